// Package config loads omicsim settings from defaults, an optional YAML file
// and OMICSIM_* environment variables, in that order of precedence.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"omicsim/internal/blob"
	"omicsim/internal/logging"
	"omicsim/internal/model"
	"omicsim/internal/sim"
	"omicsim/internal/storage"
)

const EnvPrefix = "OMICSIM_"

type Config struct {
	Simulation SimulationConfig `yaml:"simulation" envPrefix:"SIM_"`
	Store      StoreConfig      `yaml:"store" envPrefix:"STORE_"`
	Artifacts  ArtifactsConfig  `yaml:"artifacts" envPrefix:"ARTIFACTS_"`
	Blob       blob.Config      `yaml:"blob" envPrefix:"BLOB_"`
	Metrics    MetricsConfig    `yaml:"metrics" envPrefix:"METRICS_"`
	Logging    LoggingConfig    `yaml:"logging" envPrefix:"LOG_"`
}

type SimulationConfig struct {
	Dt      float64 `yaml:"dt" env:"DT"`
	MaxTime float64 `yaml:"max_time" env:"MAX_TIME"`
	// TickInterval paces steps in wall time; zero runs them back to back.
	TickInterval time.Duration `yaml:"tick_interval" env:"TICK_INTERVAL"`
	Seed         int64         `yaml:"seed" env:"SEED"`
	Genes        []string      `yaml:"genes" env:"GENES"`
	Diseases     []string      `yaml:"diseases" env:"DISEASES"`
	Preset       string        `yaml:"preset" env:"PRESET"`
	// Parameters are only read from the file; unset keys keep their defaults.
	Parameters model.Parameters `yaml:"parameters"`
}

type StoreConfig struct {
	Kind string `yaml:"kind" env:"KIND"`
	DSN  string `yaml:"dsn" env:"DSN"`
}

type ArtifactsConfig struct {
	Dir string `yaml:"dir" env:"DIR"`
}

type MetricsConfig struct {
	// Addr enables the Prometheus endpoint when set, e.g. ":9090".
	Addr string `yaml:"addr" env:"ADDR"`
}

type LoggingConfig struct {
	Level string `yaml:"level" env:"LEVEL"`
}

func Default() Config {
	return Config{
		Simulation: SimulationConfig{
			Dt:         sim.DefaultDt,
			MaxTime:    sim.DefaultMaxTime,
			Seed:       1,
			Parameters: model.DefaultParameters(),
		},
		Store: StoreConfig{
			Kind: storage.DefaultStoreKind(),
			DSN:  "omicsim.db",
		},
		Artifacts: ArtifactsConfig{Dir: "runs"},
		Blob:      blob.Config{Driver: string(blob.DriverFilesystem), FSRoot: "exports"},
		Logging:   LoggingConfig{Level: "info"},
	}
}

// Load reads path (skipped when empty) over the defaults and then applies
// environment overrides. The result is validated.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, err
		}
		if err := decodeYAML(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("decode %s: %w", path, err)
		}
	}
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ParseEnv applies OMICSIM_* environment variables to target. Unset
// variables leave the existing values untouched.
func ParseEnv(target any) error {
	if err := env.ParseWithOptions(target, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func decodeYAML(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (c Config) Validate() error {
	var problems []string
	s := c.Simulation
	if !(s.Dt > 0) || math.IsInf(s.Dt, 0) {
		problems = append(problems, fmt.Sprintf("simulation.dt must be positive, got %v", s.Dt))
	}
	if !(s.MaxTime > 0) || math.IsInf(s.MaxTime, 0) {
		problems = append(problems, fmt.Sprintf("simulation.max_time must be positive, got %v", s.MaxTime))
	}
	if s.TickInterval < 0 {
		problems = append(problems, fmt.Sprintf("simulation.tick_interval must not be negative, got %s", s.TickInterval))
	}
	if s.Preset != "" {
		if _, ok := sim.LookupPreset(s.Preset); !ok {
			problems = append(problems, fmt.Sprintf("unknown simulation.preset %q", s.Preset))
		}
	}
	switch strings.ToLower(strings.TrimSpace(c.Store.Kind)) {
	case "", "memory", "sqlite", "postgres":
	default:
		problems = append(problems, fmt.Sprintf("unsupported store.kind %q", c.Store.Kind))
	}
	switch blob.Driver(strings.ToLower(strings.TrimSpace(c.Blob.Driver))) {
	case "", blob.DriverFilesystem, blob.DriverMemory:
	case blob.DriverS3:
		if c.Blob.S3.Bucket == "" {
			problems = append(problems, "blob.s3.bucket is required for the s3 driver")
		}
	default:
		problems = append(problems, fmt.Sprintf("unsupported blob.driver %q", c.Blob.Driver))
	}
	if c.Artifacts.Dir == "" {
		problems = append(problems, "artifacts.dir is required")
	}
	if !logging.ValidLevel(c.Logging.Level) {
		problems = append(problems, fmt.Sprintf("unsupported logging.level %q", c.Logging.Level))
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}
