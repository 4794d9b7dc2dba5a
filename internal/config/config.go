// Package config loads kiln configuration from YAML and validates it against
// an embedded CUE schema.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaCUE string

// Config is the full kiln configuration.
type Config struct {
	// Database is the SQLite path, ":memory:" for an ephemeral ledger.
	Database string `yaml:"database" json:"database"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// LogFormat is console or json.
	LogFormat string `yaml:"log_format" json:"log_format"`

	// Output is the default CLI output format, text or json.
	Output string `yaml:"output" json:"output"`

	// ThermalEnforcement rejects sinters below the required heat.
	ThermalEnforcement bool `yaml:"thermal_enforcement" json:"thermal_enforcement"`

	// HTTPAddr is the listen address of `kiln serve`.
	HTTPAddr string `yaml:"http_addr" json:"http_addr"`

	Stress Stress `yaml:"stress" json:"stress"`
}

// Stress configures the load generator.
type Stress struct {
	// Rate is the target batches per second across all workers.
	Rate int `yaml:"rate" json:"rate"`

	// Workers is the number of concurrent submitters.
	Workers int `yaml:"workers" json:"workers"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Database:  "kiln.db",
		LogLevel:  "info",
		LogFormat: "console",
		Output:    "text",
		HTTPAddr:  "127.0.0.1:8420",
		Stress: Stress{
			Rate:    200,
			Workers: 4,
		},
	}
}

// Load reads the YAML file at path over Default and validates the result.
// An empty path returns the validated defaults.
func Load(path string) (Config, error) {
	if path == "" {
		cfg := Default()
		return cfg, cfg.Validate()
	}

	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	cfg, err := Decode(f)
	if err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Decode parses YAML from r over Default and validates the result.
// Unknown keys are rejected.
func Decode(r io.Reader) (Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse yaml: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cfg against the CUE schema.
func (c Config) Validate() error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	val := def.Unify(ctx.Encode(c))
	if err := val.Validate(cue.Concrete(true)); err != nil {
		return &ValidationError{Details: cueerrors.Details(err, nil)}
	}
	return nil
}

// Marshal renders c as YAML.
func (c Config) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ValidationError reports a configuration that violates the schema.
type ValidationError struct {
	Details string
}

func (e *ValidationError) Error() string {
	return "invalid config: " + e.Details
}
