package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

var (
	version = "0.1.0-dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "omicsimctl",
		Short: "Multi-omics gene regulation simulator",
		Long: `omicsimctl runs gene regulation simulations across the genomic,
transcriptomic and proteomic layers and scores disease risk from the
resulting signals.

Settings come from defaults, an optional YAML file (--config) and
OMICSIM_* environment variables; flags override all three.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "YAML config file")
	flags.Bool("json", false, "Output as JSON")
	flags.String("log-level", "", "Log level: info|debug|trace")
	flags.String("store", "", "Run store backend: memory|sqlite|postgres")
	flags.String("dsn", "", "Store path (sqlite) or connection string (postgres)")
	flags.String("artifacts-dir", "", "Directory for run artifacts and the run index")
	flags.String("metrics-addr", "", "Serve Prometheus metrics on this address while running")

	rootCmd.AddCommand(
		newVersionCmd(),
		newGenesCmd(),
		newDiseasesCmd(),
		newPresetsCmd(),
		newImportGenesCmd(),
		newRunCmd(),
		newRunsCmd(),
		newRiskCmd(),
		newImpactCmd(),
		newExportCmd(),
		newEnsembleCmd(),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			if jsonOutput(cmd) {
				return writeJSON(cmd, map[string]string{
					"version": version,
					"commit":  commit,
					"date":    date,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "omicsimctl version %s (commit: %s, built: %s)\n", version, commit, date)
			return nil
		},
	}
}
