// Package testutil loads the YAML scenarios shared by the conformance tests.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/thomasrohde/bindeval/internal/config"
)

// ScenariosDir is the scenario directory relative to the module root.
const ScenariosDir = "testdata/scenarios"

// Scenario is one script with the outcome it must produce.
type Scenario struct {
	Name    string          `yaml:"-"`
	Cmd     string          `yaml:"cmd"`
	Source  string          `yaml:"source"`
	Options ScenarioOptions `yaml:"options,omitempty"`
	Meta    *ScenarioMeta   `yaml:"meta,omitempty"`
	Expect  ExpectedResult  `yaml:"expect"`
}

// ScenarioOptions override the default configuration for one scenario.
type ScenarioOptions struct {
	KeepGoing      bool   `yaml:"keep_going,omitempty"`
	NoCheck        bool   `yaml:"no_check,omitempty"`
	DefaultInteger string `yaml:"default_integer,omitempty"`
	DefaultFloat   string `yaml:"default_float,omitempty"`
	IntegerBase    int    `yaml:"integer_base,omitempty"`
	MaxDepth       int    `yaml:"max_depth,omitempty"`
	MaxBindings    int    `yaml:"max_bindings,omitempty"`
	MaxStatements  int    `yaml:"max_statements,omitempty"`
}

// ScenarioMeta holds optional scenario metadata.
type ScenarioMeta struct {
	Tags []string `yaml:"tags,omitempty"`
}

// ExpectedResult describes the expected outcome of running a scenario.
type ExpectedResult struct {
	ExitCode    int            `yaml:"exit_code"`
	Printed     []string       `yaml:"printed,omitempty"`
	Diagnostics []ExpectedDiag `yaml:"diagnostics,omitempty"`
}

// ExpectedDiag matches one diagnostic. Zero Line and Col are not checked.
type ExpectedDiag struct {
	Code     string `yaml:"code"`
	Line     int    `yaml:"line,omitempty"`
	Col      int    `yaml:"col,omitempty"`
	Contains string `yaml:"contains,omitempty"`
	Hint     string `yaml:"hint,omitempty"`
}

// Config applies the scenario's options over the built-in configuration.
func (s *Scenario) Config() config.Config {
	cfg := config.Default()
	o := s.Options
	cfg.KeepGoing = o.KeepGoing
	cfg.StaticCheck = !o.NoCheck
	if o.DefaultInteger != "" {
		cfg.DefaultInteger = o.DefaultInteger
	}
	if o.DefaultFloat != "" {
		cfg.DefaultFloat = o.DefaultFloat
	}
	if o.IntegerBase != 0 {
		cfg.IntegerBase = o.IntegerBase
	}
	cfg.MaxDepth = o.MaxDepth
	cfg.MaxBindings = o.MaxBindings
	cfg.MaxStatements = o.MaxStatements
	return cfg
}

// Filename is the name diagnostics for the scenario carry in their spans.
func (s *Scenario) Filename() string {
	return s.Name + ".bnd"
}

// LoadScenario reads one scenario file. Unknown keys are an error.
func LoadScenario(path string) (*Scenario, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var s Scenario
	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	if err := decoder.Decode(&s); err != nil {
		return nil, fmt.Errorf("scenario: parse %s: %w", path, err)
	}
	switch s.Cmd {
	case "run", "check":
	case "":
		s.Cmd = "run"
	default:
		return nil, fmt.Errorf("scenario: %s: unsupported cmd %q", path, s.Cmd)
	}
	s.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return &s, nil
}

// ListScenarios returns the scenario files under root, sorted by name.
func ListScenarios(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if ext := filepath.Ext(e.Name()); ext == ".yaml" || ext == ".yml" {
			paths = append(paths, filepath.Join(root, e.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}
