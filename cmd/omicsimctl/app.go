package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"omicsim/internal/catalog"
	"omicsim/internal/config"
	"omicsim/internal/logging"
	"omicsim/internal/metrics"
	"omicsim/internal/platform"
	"omicsim/pkg/omicsim"
)

// loadConfig resolves the config file and environment, then applies the
// persistent flags the user set explicitly.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	flags := cmd.Flags()
	path, _ := flags.GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}

	overrides := []struct {
		flag   string
		target *string
	}{
		{"log-level", &cfg.Logging.Level},
		{"store", &cfg.Store.Kind},
		{"dsn", &cfg.Store.DSN},
		{"artifacts-dir", &cfg.Artifacts.Dir},
		{"metrics-addr", &cfg.Metrics.Addr},
	}
	for _, o := range overrides {
		if flags.Changed(o.flag) {
			*o.target, _ = flags.GetString(o.flag)
		}
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// openClient builds a client from cfg; a nil cat uses the built-in catalog. Logs go to the command's stderr so
// that stdout stays machine readable with --json.
func openClient(cmd *cobra.Command, cfg config.Config, cat *catalog.Catalog) (*omicsim.Client, error) {
	logger := logging.NewLogger(cfg.Logging.Level, cmd.ErrOrStderr())

	var (
		recorder *metrics.Recorder
		modules  []platform.SupportModule
	)
	if cfg.Metrics.Addr != "" {
		recorder = metrics.NewRecorder()
		modules = append(modules, metrics.NewServer(cfg.Metrics.Addr, recorder))
	}

	client, err := omicsim.New(omicsim.Options{
		StoreKind:      cfg.Store.Kind,
		DBPath:         cfg.Store.DSN,
		ArtifactsDir:   cfg.Artifacts.Dir,
		Blob:           cfg.Blob,
		LogLevel:       cfg.Logging.Level,
		Logger:         logger,
		Metrics:        recorder,
		Catalog:        cat,
		SupportModules: modules,
	})
	if err != nil {
		return nil, err
	}
	if err := client.Init(cmd.Context()); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("init: %w", err)
	}
	return client, nil
}

func jsonOutput(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
