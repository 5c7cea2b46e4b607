// Package config loads bnd settings from TOML files.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/thomasrohde/bindeval/pkg/convert"
	"github.com/thomasrohde/bindeval/pkg/value"
)

const (
	// ProjectFile is looked up in the working directory.
	ProjectFile = ".bnd.toml"
	// UserFile is looked up under the home directory.
	UserFile = ".bnd/config.toml"
)

// Config is the effective configuration of the runtime and the prompt.
// Budget limits of zero mean unlimited.
type Config struct {
	DefaultInteger string `toml:"default_integer" yaml:"default_integer"`
	DefaultFloat   string `toml:"default_float" yaml:"default_float"`
	IntegerBase    int    `toml:"integer_base" yaml:"integer_base"`
	KeepGoing      bool   `toml:"keep_going" yaml:"keep_going"`
	StaticCheck    bool   `toml:"static_check" yaml:"static_check"`
	MaxDepth       int    `toml:"max_depth" yaml:"max_depth"`
	MaxBindings    int    `toml:"max_bindings" yaml:"max_bindings"`
	MaxStatements  int    `toml:"max_statements" yaml:"max_statements"`
	Prompt         string `toml:"prompt" yaml:"prompt"`
	HistoryFile    string `toml:"history_file" yaml:"history_file"`
	LogLevel       string `toml:"log_level" yaml:"log_level"`

	// Source is the file the settings came from; empty for defaults.
	Source string `toml:"-" yaml:"-"`
}

// fileConfig is the on-disk shape. Load copies only the keys the file defines.
type fileConfig struct {
	DefaultInteger string `toml:"default_integer"`
	DefaultFloat   string `toml:"default_float"`
	IntegerBase    int    `toml:"integer_base"`
	KeepGoing      bool   `toml:"keep_going"`
	StaticCheck    bool   `toml:"static_check"`
	MaxDepth       int    `toml:"max_depth"`
	MaxBindings    int    `toml:"max_bindings"`
	MaxStatements  int    `toml:"max_statements"`
	Prompt         string `toml:"prompt"`
	HistoryFile    string `toml:"history_file"`
	LogLevel       string `toml:"log_level"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DefaultInteger: string(convert.DefaultWidths.Integer),
		DefaultFloat:   string(convert.DefaultWidths.Float),
		IntegerBase:    10,
		StaticCheck:    true,
		Prompt:         "bnd> ",
		HistoryFile:    ".bnd_history",
		LogLevel:       "warn",
	}
}

// Find loads the first configuration file found, in precedence order:
// project (./.bnd.toml) → user (~/.bnd/config.toml) → defaults.
// A file that exists but does not parse is an error.
func Find(projectDir string) (Config, error) {
	paths := []string{filepath.Join(projectDir, ProjectFile)}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, UserFile))
	}
	for _, path := range paths {
		cfg, err := Load(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		return cfg, err
	}
	return Default(), nil
}

// Load reads one TOML file over the defaults and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("load config %s: unknown key %q", path, undecoded[0].String())
	}

	if meta.IsDefined("default_integer") {
		cfg.DefaultInteger = strings.TrimSpace(raw.DefaultInteger)
	}
	if meta.IsDefined("default_float") {
		cfg.DefaultFloat = strings.TrimSpace(raw.DefaultFloat)
	}
	if meta.IsDefined("integer_base") {
		cfg.IntegerBase = raw.IntegerBase
	}
	if meta.IsDefined("keep_going") {
		cfg.KeepGoing = raw.KeepGoing
	}
	if meta.IsDefined("static_check") {
		cfg.StaticCheck = raw.StaticCheck
	}
	if meta.IsDefined("max_depth") {
		cfg.MaxDepth = raw.MaxDepth
	}
	if meta.IsDefined("max_bindings") {
		cfg.MaxBindings = raw.MaxBindings
	}
	if meta.IsDefined("max_statements") {
		cfg.MaxStatements = raw.MaxStatements
	}
	if meta.IsDefined("prompt") {
		cfg.Prompt = raw.Prompt
	}
	if meta.IsDefined("history_file") {
		cfg.HistoryFile = strings.TrimSpace(raw.HistoryFile)
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.ToLower(strings.TrimSpace(raw.LogLevel))
	}

	cfg.Source = path
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks widths, base and limits.
func (c Config) Validate() error {
	if _, err := c.Defaults(); err != nil {
		return err
	}
	if c.IntegerBase < 2 || c.IntegerBase > 36 {
		return fmt.Errorf("integer_base %d out of range [2, 36]", c.IntegerBase)
	}
	for key, n := range map[string]int{
		"max_depth":      c.MaxDepth,
		"max_bindings":   c.MaxBindings,
		"max_statements": c.MaxStatements,
	} {
		if n < 0 {
			return fmt.Errorf("%s must not be negative, got %d", key, n)
		}
	}
	switch c.LogLevel {
	case "trace", "debug", "info", "warn", "error", "disabled":
	default:
		return fmt.Errorf("log_level %q is not one of trace, debug, info, warn, error, disabled", c.LogLevel)
	}
	return nil
}

// Defaults returns the literal widths the configuration names.
func (c Config) Defaults() (convert.Defaults, error) {
	it := value.IntType(c.DefaultInteger)
	if !it.Valid() {
		return convert.Defaults{}, fmt.Errorf("default_integer %q is not an integer type", c.DefaultInteger)
	}
	ft := value.FloatType(c.DefaultFloat)
	if !ft.Valid() {
		return convert.Defaults{}, fmt.Errorf("default_float %q is not a float type", c.DefaultFloat)
	}
	return convert.Defaults{Integer: it, Float: ft}, nil
}

// HistoryPath resolves HistoryFile against the home directory when it is
// relative. It returns "" when history is disabled.
func (c Config) HistoryPath() string {
	if c.HistoryFile == "" || filepath.IsAbs(c.HistoryFile) {
		return c.HistoryFile
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, c.HistoryFile)
}

// TOML renders the configuration as a config file.
func (c Config) TOML() (string, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// YAML renders the configuration as YAML.
func (c Config) YAML() (string, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
