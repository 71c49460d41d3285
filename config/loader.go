package config

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// File is the on-disk layout for the latticeprice CLI and server.
type File struct {
	Numerics Config    `yaml:"numerics"`
	Log      LogConfig `yaml:"log"`
	HTTP     HTTP      `yaml:"http"`
	Limits   Limits    `yaml:"limits"`
}

// LogConfig selects the logger level and output format ("json" or "console").
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// HTTP holds the serve command settings.
type HTTP struct {
	Addr string `yaml:"addr"`
}

// Limits caps the discretization of one valuation request. Zero disables a
// bound.
type Limits struct {
	MaxTreeSteps int `yaml:"max_tree_steps"`
	MaxFDPoints  int `yaml:"max_fd_points"`
	MaxFDSteps   int `yaml:"max_fd_steps"`
}

// DefaultFile returns the file settings used when no config file is given.
func DefaultFile() File {
	return File{
		Numerics: DefaultConfig,
		Log:      LogConfig{Level: "info", Format: "json"},
		HTTP:     HTTP{Addr: ":8080"},
		Limits:   Limits{MaxTreeSteps: 2000, MaxFDPoints: 10001, MaxFDSteps: 20000},
	}
}

// Load reads a YAML file on top of DefaultFile. Unknown keys are rejected so
// that a misspelled tolerance fails loudly instead of silently keeping the default.
func Load(path string) (File, error) {
	out := DefaultFile()
	data, err := os.ReadFile(path)
	if err != nil {
		return out, fmt.Errorf("config.Load: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&out); err != nil {
		return out, fmt.Errorf("config.Load: %s: %w", path, err)
	}
	if err := Validate(out.Numerics); err != nil {
		return out, err
	}
	if l := out.Limits; l.MaxTreeSteps < 0 || l.MaxFDPoints < 0 || l.MaxFDSteps < 0 {
		return out, fmt.Errorf("config.Load: limits must be non-negative")
	}
	return out, nil
}

// LoadEnv loads an optional .env file and applies LATTICE_* overrides to f.
func LoadEnv(f File) (File, error) {
	_ = godotenv.Load()

	if v := os.Getenv("LATTICE_LOG_LEVEL"); v != "" {
		f.Log.Level = v
	}
	if v := os.Getenv("LATTICE_LOG_FORMAT"); v != "" {
		f.Log.Format = v
	}
	if v := os.Getenv("LATTICE_HTTP_ADDR"); v != "" {
		f.HTTP.Addr = v
	}
	if v := strings.TrimSpace(os.Getenv("LATTICE_PARALLEL_THRESHOLD")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return f, fmt.Errorf("config.LoadEnv: LATTICE_PARALLEL_THRESHOLD: %w", err)
		}
		f.Numerics.ParallelThreshold = n
	}
	return f, Validate(f.Numerics)
}

// Validate rejects tolerances that would make comparisons meaningless.
func Validate(c Config) error {
	if c.TimeTolerance <= 0 {
		return fmt.Errorf("config: time_tolerance must be positive, got %g", c.TimeTolerance)
	}
	if c.ProbabilityTolerance <= 0 {
		return fmt.Errorf("config: probability_tolerance must be positive, got %g", c.ProbabilityTolerance)
	}
	if c.StatePriceTolerance <= 0 {
		return fmt.Errorf("config: state_price_tolerance must be positive, got %g", c.StatePriceTolerance)
	}
	if c.ParallelThreshold < 0 || c.MaxWorkers < 0 {
		return fmt.Errorf("config: parallel_threshold and max_workers must be non-negative")
	}
	return nil
}
