package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/peterh/liner"

	"github.com/thomasrohde/bindeval/pkg/diagnostics"
	"github.com/thomasrohde/bindeval/pkg/evaluator"
	"github.com/thomasrohde/bindeval/pkg/parser"
	"github.com/thomasrohde/bindeval/pkg/runtime"
)

const (
	banner     = "bnd v0.1 interactive. :env lists bindings, :reset clears them, :quit exits."
	promptCont = "...  "
)

func cmdRepl(_ []string) int {
	cfg, logger, ok := setup(true)
	if !ok {
		return exitUsage
	}

	rt := runtime.New(runtime.WithConfig(cfg), runtime.WithLogger(logger), runtime.WithRunID("repl"), runtime.WithOutput(os.Stdout))
	session, err := rt.NewSession()
	if err != nil {
		var diagErr *runtime.DiagnosticError
		if errors.As(err, &diagErr) {
			printDiags(diagErr.Diagnostics, "", true)
		} else {
			fmt.Fprintln(os.Stderr, err.Error())
		}
		return exitUsage
	}

	fmt.Println(banner)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	histPath := cfg.HistoryPath()
	if histPath != "" {
		if f, err := os.Open(histPath); err == nil {
			_, _ = ln.ReadHistory(f)
			_ = f.Close()
		}
		defer func() {
			if f, err := os.Create(histPath); err == nil {
				_, _ = ln.WriteHistory(f)
				_ = f.Close()
			}
		}()
	}

	sigc := make(chan os.Signal, 1)
	done := make(chan struct{})
	signal.Notify(sigc, syscall.SIGTERM, syscall.SIGHUP)
	defer func() {
		signal.Stop(sigc)
		close(done)
	}()
	go watchSignals(sigc, done, func() {
		ln.Close()
		os.Exit(130)
	})

	ctx := context.Background()
	for {
		src, ok := readByParseProbe(ln, cfg.Prompt, promptCont)
		if !ok {
			fmt.Println()
			break
		}
		trimmed := strings.TrimSpace(src)
		if trimmed == "" {
			continue
		}

		if strings.HasPrefix(trimmed, ":") {
			switch strings.ToLower(trimmed) {
			case ":quit", ":q":
				return exitOK
			case ":env":
				for _, line := range session.Lines() {
					fmt.Println(line)
				}
			case ":reset":
				session.Reset()
				fmt.Println("bindings cleared")
			default:
				fmt.Println("unknown command. Try :env, :reset or :quit.")
			}
			continue
		}

		ln.AppendHistory(strings.ReplaceAll(src, "\n", " "))

		out, err := session.Exec(ctx, src)
		if out != nil {
			if out.Echoed {
				fmt.Println(out.Echo)
			}
			if len(out.Diagnostics) > 0 {
				printDiags(out.Diagnostics, src, true)
			}
		}
		if err != nil {
			printReplError(err, src)
		}
	}
	return exitOK
}

// watchSignals calls onSignal for the first signal on sigc. It returns
// without calling it once done is closed.
func watchSignals(sigc <-chan os.Signal, done <-chan struct{}, onSignal func()) {
	select {
	case <-sigc:
		onSignal()
	case <-done:
	}
}

// readByParseProbe reads lines until they form a complete chunk.
func readByParseProbe(ln *liner.State, prompt, cont string) (string, bool) {
	var b strings.Builder

	for {
		var line string
		var err error
		if b.Len() == 0 {
			line, err = ln.Prompt(prompt)
		} else {
			line, err = ln.Prompt(cont)
		}
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if errors.Is(err, liner.ErrPromptAborted) {
			return "", true
		}
		if err != nil {
			return "", true
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		src := b.String()
		if strings.HasPrefix(strings.TrimSpace(src), ":") {
			return src, true
		}
		if _, _, incomplete := parser.ParseLine(src); incomplete {
			continue
		}
		return src, true
	}
}

func printReplError(err error, src string) {
	var diagErr *runtime.DiagnosticError
	if errors.As(err, &diagErr) {
		printDiags(diagErr.Diagnostics, src, true)
		return
	}
	var rtErr *evaluator.RuntimeError
	if errors.As(err, &rtErr) {
		printDiags([]diagnostics.Diagnostic{rtErr.Diagnostic()}, src, true)
		return
	}
	fmt.Fprintln(os.Stderr, err.Error())
}
