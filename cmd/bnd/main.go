// Command bnd runs, checks and formats binding scripts.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/thomasrohde/bindeval/internal/config"
	"github.com/thomasrohde/bindeval/internal/logging"
	"github.com/thomasrohde/bindeval/internal/observability"
	"github.com/thomasrohde/bindeval/pkg/convert"
	"github.com/thomasrohde/bindeval/pkg/diagnostics"
	"github.com/thomasrohde/bindeval/pkg/evaluator"
	"github.com/thomasrohde/bindeval/pkg/formatter"
	"github.com/thomasrohde/bindeval/pkg/help"
	"github.com/thomasrohde/bindeval/pkg/runtime"
	"github.com/thomasrohde/bindeval/pkg/value"
)

const (
	exitOK      = 0
	exitUsage   = 1
	exitDiag    = 2
	exitRuntime = 4
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: bnd <command> [options]")
		fmt.Fprintln(os.Stderr, "commands: run, check, fmt, repl, convert, trace, config, help")
		os.Exit(exitUsage)
	}

	cmd := os.Args[1]
	switch cmd {
	case "run":
		os.Exit(cmdRun(os.Args[2:]))
	case "check":
		os.Exit(cmdCheck(os.Args[2:]))
	case "fmt":
		os.Exit(cmdFmt(os.Args[2:]))
	case "repl":
		os.Exit(cmdRepl(os.Args[2:]))
	case "convert":
		os.Exit(cmdConvert(os.Args[2:]))
	case "trace":
		os.Exit(cmdTrace(os.Args[2:]))
	case "config":
		os.Exit(cmdConfig(os.Args[2:]))
	case "help", "--help", "-h":
		os.Exit(cmdHelp(os.Args[2:]))
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		os.Exit(exitUsage)
	}
}

// setup loads the configuration and installs the process logger.
func setup(pretty bool) (config.Config, zerolog.Logger, bool) {
	cwd, _ := os.Getwd()
	cfg, err := config.Find(cwd)
	if err != nil {
		printDiags([]diagnostics.Diagnostic{diagnostics.MakeDiag(diagnostics.EConfig, err.Error(), nil, "")}, "", pretty)
		return cfg, zerolog.Nop(), false
	}
	logger := logging.ConfigureRuntime(cfg.LogLevel)
	logger.Debug().Str("source", cfg.Source).Msg("configuration loaded")
	return cfg, logger, true
}

func cmdRun(args []string) int {
	var file string
	pretty := false
	keepGoing := false
	noCheck := false
	tracePath := ""
	metricsPath := ""

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--pretty":
			pretty = true
		case "--keep-going":
			keepGoing = true
		case "--no-check":
			noCheck = true
		case "--trace":
			if i+1 < len(args) {
				i++
				tracePath = args[i]
			}
		case "--metrics":
			if i+1 < len(args) {
				i++
				metricsPath = args[i]
			}
		default:
			if args[i] == "-" || !strings.HasPrefix(args[i], "-") {
				file = args[i]
			}
		}
	}

	if file == "" {
		fmt.Fprintln(os.Stderr, "usage: bnd run <file> [--pretty] [--keep-going] [--no-check] [--trace <file.jsonl>] [--metrics <file.prom>]")
		return exitUsage
	}

	source, filename, exitCode := readSource(file, pretty)
	if exitCode != 0 {
		return exitCode
	}

	cfg, logger, ok := setup(pretty)
	if !ok {
		return exitUsage
	}

	runID := strconv.FormatInt(time.Now().UnixNano(), 36)
	opts := []runtime.Option{
		runtime.WithConfig(cfg),
		runtime.WithLogger(logger),
		runtime.WithRunID(runID),
		runtime.WithOutput(os.Stdout),
	}
	if keepGoing {
		opts = append(opts, runtime.WithKeepGoing())
	}
	if noCheck {
		opts = append(opts, runtime.WithoutStaticCheck())
	}

	var tw *observability.TraceWriter
	if tracePath != "" {
		f, err := os.Create(tracePath)
		if err != nil {
			printDiags([]diagnostics.Diagnostic{ioDiag("cannot create trace file", tracePath)}, "", pretty)
			return exitUsage
		}
		defer f.Close()
		tw = observability.NewTraceWriter(f)
		opts = append(opts, runtime.WithTrace(tw.Write))
	}

	var metrics *observability.Metrics
	if metricsPath != "" {
		metrics = observability.NewMetrics()
		opts = append(opts, runtime.WithMetrics(metrics))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rt := runtime.New(opts...)
	result, execErr := rt.Run(ctx, source, filename)

	if tw != nil {
		if err := tw.Err(); err != nil {
			logger.Warn().Err(err).Str("path", tracePath).Msg("trace write failed")
		}
	}
	if metrics != nil {
		if err := metrics.WriteToTextfile(metricsPath); err != nil {
			logger.Warn().Err(err).Str("path", metricsPath).Msg("metrics write failed")
		}
	}

	if execErr != nil {
		var diagErr *runtime.DiagnosticError
		if errors.As(execErr, &diagErr) {
			printDiags(diagErr.Diagnostics, source, pretty)
			if len(diagErr.Diagnostics) > 0 && diagErr.Diagnostics[0].Code == diagnostics.EConfig {
				return exitUsage
			}
			return exitDiag
		}
		var rtErr *evaluator.RuntimeError
		if errors.As(execErr, &rtErr) {
			printDiags([]diagnostics.Diagnostic{rtErr.Diagnostic()}, source, pretty)
			return exitRuntime
		}
		fmt.Fprintln(os.Stderr, execErr.Error())
		return exitRuntime
	}

	if result != nil && len(result.Diagnostics) > 0 {
		printDiags(result.Diagnostics, source, pretty)
		return exitRuntime
	}
	return exitOK
}

func cmdCheck(args []string) int {
	var file string
	pretty := false

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--pretty":
			pretty = true
		default:
			if args[i] == "-" || !strings.HasPrefix(args[i], "-") {
				file = args[i]
			}
		}
	}

	if file == "" {
		fmt.Fprintln(os.Stderr, "usage: bnd check <file> [--pretty]")
		return exitUsage
	}

	source, filename, exitCode := readSource(file, pretty)
	if exitCode != 0 {
		return exitCode
	}

	diags := runtime.New().Check(source, filename)
	if len(diags) > 0 {
		printDiags(diags, source, pretty)
		return exitDiag
	}

	if pretty {
		fmt.Println("No errors found.")
	} else {
		fmt.Println("[]")
	}
	return exitOK
}

func cmdFmt(args []string) int {
	var file string
	write := false

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--write":
			write = true
		default:
			if !strings.HasPrefix(args[i], "-") {
				file = args[i]
			}
		}
	}

	if file == "" {
		fmt.Fprintln(os.Stderr, "usage: bnd fmt <file> [--write]")
		return exitUsage
	}

	source, _, exitCode := readSource(file, false)
	if exitCode != 0 {
		return exitCode
	}

	formatted, fmtErr := runtime.New().Format(source, file)
	if fmtErr != nil {
		var diagErr *runtime.DiagnosticError
		if errors.As(fmtErr, &diagErr) {
			printDiags(diagErr.Diagnostics, source, false)
			return exitDiag
		}
		fmt.Fprintln(os.Stderr, fmtErr.Error())
		return exitDiag
	}

	if formatter.HasComments(source) {
		fmt.Fprintln(os.Stderr, "warning: comments are not preserved by the formatter")
	}

	if write {
		if err := os.WriteFile(file, []byte(formatted), 0644); err != nil {
			fmt.Fprintf(os.Stderr, "error writing file: %s\n", err)
			return exitUsage
		}
		return exitOK
	}
	fmt.Print(formatted)
	return exitOK
}

func cmdConvert(args []string) int {
	var positional []string
	base := 0
	pretty := false

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--base":
			if i+1 < len(args) {
				i++
				n, err := strconv.Atoi(args[i])
				if err != nil {
					fmt.Fprintf(os.Stderr, "invalid base: %s\n", args[i])
					return exitUsage
				}
				base = n
			}
		case "--pretty":
			pretty = true
		default:
			positional = append(positional, args[i])
		}
	}

	if len(positional) != 2 {
		fmt.Fprintln(os.Stderr, "usage: bnd convert <type> <text> [--base <n>] [--pretty]")
		return exitUsage
	}

	target, err := convert.ParseTarget(positional[0])
	if err != nil {
		printDiags([]diagnostics.Diagnostic{
			diagnostics.MakeDiag(diagnostics.EType, err.Error(), nil, "types: "+strings.Join(typeNames, ", ")),
		}, "", pretty)
		return exitUsage
	}
	if base != 0 {
		if target.Kind != value.KindInteger {
			fmt.Fprintf(os.Stderr, "--base applies to integer types only, not %s\n", target.Name())
			return exitUsage
		}
		target = target.WithBase(base)
	}

	res, err := convert.Convert(positional[1], target)
	if err != nil {
		code := diagnostics.CodeFor(err)
		if code == "" {
			fmt.Fprintln(os.Stderr, err.Error())
			return exitUsage
		}
		printDiags([]diagnostics.Diagnostic{diagnostics.FromError(err, nil)}, "", pretty)
		return exitRuntime
	}

	if pretty {
		fmt.Printf("%s: %s\n", value.TypeName(res.Value), res.Value)
		return exitOK
	}
	b, err := value.TaggedJSON(res.Value)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error serializing value: %s\n", err)
		return exitRuntime
	}
	fmt.Println(string(b))
	return exitOK
}

var typeNames = []string{
	"i8", "i16", "i32", "i64", "i128", "isize",
	"u8", "u16", "u32", "u64", "u128", "usize",
	"f32", "f64", "bool", "char", "text",
}

func cmdTrace(args []string) int {
	var file string
	textOutput := false

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--json":
			textOutput = false
		case "--text":
			textOutput = true
		default:
			if !strings.HasPrefix(args[i], "-") {
				file = args[i]
			}
		}
	}

	if file == "" {
		fmt.Fprintln(os.Stderr, "usage: bnd trace <file.jsonl> [--json|--text]")
		return exitUsage
	}

	f, err := os.Open(file)
	if err != nil {
		printDiags([]diagnostics.Diagnostic{ioDiag("cannot read file", file)}, "", false)
		return exitUsage
	}
	defer f.Close()

	summary, err := observability.Summarize(f)
	if err != nil {
		printDiags([]diagnostics.Diagnostic{ioDiag("cannot read trace", file)}, "", false)
		return exitUsage
	}

	if textOutput {
		summary.WriteText(os.Stdout)
		return exitOK
	}
	b, _ := json.Marshal(summary)
	fmt.Println(string(b))
	return exitOK
}

func cmdConfig(args []string) int {
	asYAML := false
	for _, arg := range args {
		if arg == "--yaml" {
			asYAML = true
		}
	}

	cfg, _, ok := setup(false)
	if !ok {
		return exitUsage
	}

	var out string
	var err error
	if asYAML {
		out, err = cfg.YAML()
	} else {
		out, err = cfg.TOML()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error encoding config: %s\n", err)
		return exitUsage
	}
	if cfg.Source != "" {
		fmt.Printf("# source: %s\n", cfg.Source)
	} else {
		fmt.Println("# source: built-in defaults")
	}
	fmt.Print(out)
	return exitOK
}

func cmdHelp(args []string) int {
	topic := ""
	for _, arg := range args {
		if !strings.HasPrefix(arg, "-") {
			topic = arg
		}
	}

	if topic == "" {
		fmt.Print(help.QUICKREF)
		return exitOK
	}

	_, content, err := help.MatchTopic(topic)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\nAvailable topics: %s\n", err, strings.Join(help.TopicList, ", "))
		return exitUsage
	}
	fmt.Print(content)
	return exitOK
}

func readSource(file string, pretty bool) (string, string, int) {
	if file == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error reading stdin: %s\n", err)
			return "", "", exitUsage
		}
		return string(data), "<stdin>", 0
	}

	source, err := os.ReadFile(file)
	if err != nil {
		printDiags([]diagnostics.Diagnostic{ioDiag("cannot read file", file)}, "", pretty)
		return "", "", exitUsage
	}
	return string(source), file, 0
}

func ioDiag(msg, path string) diagnostics.Diagnostic {
	return diagnostics.MakeDiag(diagnostics.EIO, fmt.Sprintf("%s: %s", msg, path), nil, "")
}

// printDiags writes diagnostics to stderr, as a JSON array or, with pretty,
// quoting the offending source line.
func printDiags(diags []diagnostics.Diagnostic, source string, pretty bool) {
	if !pretty {
		fmt.Fprintln(os.Stderr, diagnostics.FormatDiagnostics(diags, false))
		return
	}
	parts := make([]string, len(diags))
	for i, d := range diags {
		parts[i] = diagnostics.FormatWithSource(d, source)
	}
	fmt.Fprintln(os.Stderr, strings.Join(parts, "\n\n"))
}
