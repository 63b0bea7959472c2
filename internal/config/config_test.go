package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"omicsim/internal/model"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "omicsim.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Simulation.Dt != 0.1 || cfg.Simulation.MaxTime != 50 || cfg.Simulation.Seed != 1 {
		t.Fatalf("unexpected simulation defaults: %+v", cfg.Simulation)
	}
	if cfg.Simulation.Parameters != model.DefaultParameters() {
		t.Fatalf("unexpected parameter defaults: %+v", cfg.Simulation.Parameters)
	}
	if cfg.Artifacts.Dir != "runs" || cfg.Blob.Driver != "fs" || cfg.Logging.Level != "info" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
simulation:
  dt: 0.5
  max_time: 10
  tick_interval: 25ms
  genes: [TP53, EGFR]
  preset: high_noise
  parameters:
    tf_concentration: 900
store:
  kind: memory
blob:
  driver: s3
  s3:
    bucket: omics-exports
    region: eu-west-1
    path_style: true
logging:
  level: debug
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	s := cfg.Simulation
	if s.Dt != 0.5 || s.MaxTime != 10 || s.TickInterval != 25*time.Millisecond || s.Preset != "high_noise" {
		t.Fatalf("unexpected simulation config: %+v", s)
	}
	if len(s.Genes) != 2 || s.Genes[1] != "EGFR" {
		t.Fatalf("unexpected genes: %v", s.Genes)
	}
	if s.Parameters.TFConcentration != 900 || s.Parameters.HillCoefficient != 2 {
		t.Fatalf("expected partial parameter override, got %+v", s.Parameters)
	}
	if cfg.Blob.S3.Bucket != "omics-exports" || !cfg.Blob.S3.PathStyle || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected nested config: %+v", cfg)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "simulation:\n  dt: 0.5\n  seed: 9\n")
	t.Setenv("OMICSIM_SIM_DT", "0.2")
	t.Setenv("OMICSIM_SIM_GENES", "MYC,KRAS")
	t.Setenv("OMICSIM_STORE_KIND", "memory")
	t.Setenv("OMICSIM_BLOB_FS_ROOT", "/tmp/omics")
	t.Setenv("OMICSIM_METRICS_ADDR", ":9191")
	t.Setenv("OMICSIM_LOG_LEVEL", "trace")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Simulation.Dt != 0.2 || cfg.Simulation.Seed != 9 {
		t.Fatalf("expected env dt and file seed, got %+v", cfg.Simulation)
	}
	if strings.Join(cfg.Simulation.Genes, ",") != "MYC,KRAS" {
		t.Fatalf("unexpected genes: %v", cfg.Simulation.Genes)
	}
	if cfg.Blob.FSRoot != "/tmp/omics" || cfg.Metrics.Addr != ":9191" || cfg.Logging.Level != "trace" {
		t.Fatalf("unexpected env overrides: %+v", cfg)
	}
}

func TestLoadRejectsBadEnv(t *testing.T) {
	t.Setenv("OMICSIM_SIM_MAX_TIME", "soon")
	_, err := Load("")
	if err == nil || !strings.Contains(err.Error(), "parse env") {
		t.Fatalf("expected parse env error, got %v", err)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	if _, err := Load(writeConfig(t, "simulation:\n  step_size: 1\n")); err == nil {
		t.Fatal("expected unknown key error")
	}
}

func TestLoadEmptyFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Simulation.MaxTime != 50 {
		t.Fatalf("expected defaults, got %+v", cfg.Simulation)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected missing file error")
	}
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"dt":       func(c *Config) { c.Simulation.Dt = 0 },
		"max time": func(c *Config) { c.Simulation.MaxTime = -1 },
		"interval": func(c *Config) { c.Simulation.TickInterval = -time.Second },
		"preset":   func(c *Config) { c.Simulation.Preset = "zombie" },
		"store":    func(c *Config) { c.Store.Kind = "mongo" },
		"blob":     func(c *Config) { c.Blob.Driver = "ftp" },
		"bucket":   func(c *Config) { c.Blob.Driver = "s3" },
		"dir":      func(c *Config) { c.Artifacts.Dir = "" },
		"level":    func(c *Config) { c.Logging.Level = "loud" },
	}
	for name, mutate := range cases {
		cfg := Default()
		mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config: %v", err)
	}
}
