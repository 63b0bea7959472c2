package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"omicsim/internal/catalog"
	"omicsim/pkg/omicsim"
)

func newEnsembleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ensemble",
		Short: "Run replicates of one scenario and aggregate them",
		Long: `Runs the scenario --replicates times with consecutive noise seeds
starting at --seed, then writes per-gene mean/stddev graph files and a
risk spread under <artifacts-dir>/ensembles/<id>/.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			replicates, _ := cmd.Flags().GetInt("replicates")
			if replicates <= 0 {
				return errors.New("replicates must be > 0")
			}
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			req, err := scenarioRequest(cmd, cfg)
			if err != nil {
				return err
			}
			cat, err := catalogFromFlags(cmd, catalog.Default())
			if err != nil {
				return err
			}
			client, err := openClient(cmd, cfg, cat)
			if err != nil {
				return err
			}
			defer client.Close()

			ensReq := omicsim.EnsembleRequest{Replicates: replicates, Run: req}
			ensReq.ID, _ = cmd.Flags().GetString("id")
			ensReq.Notes, _ = cmd.Flags().GetString("notes")
			ensReq.GraphPostfix, _ = cmd.Flags().GetString("graph-postfix")

			summary, err := client.Ensemble(cmd.Context(), ensReq)
			if err != nil {
				return err
			}
			if jsonOutput(cmd) {
				return writeJSON(cmd, summary)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ensemble_id=%s replicates=%d runs=%s\n", summary.ID, len(summary.RunIDs), strings.Join(summary.RunIDs, ","))
			for _, r := range summary.Risks {
				fmt.Fprintf(out, "disease=%q mean=%.2f%% sd=%.2f min=%.2f%% max=%.2f%%\n", r.Disease, r.Mean, r.Std, r.Min, r.Max)
			}
			for _, p := range summary.Graphs {
				fmt.Fprintf(out, "graph=%s\n", filepath.Clean(p))
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.String("id", "", "Ensemble id (default: random UUID)")
	flags.String("notes", "", "Free-form notes stored with the ensemble")
	flags.Int("replicates", 5, "Number of replicate runs")
	flags.String("graph-postfix", "", "Graph file name suffix (default: ensemble.dat)")
	addScenarioFlags(cmd)

	cmd.AddCommand(newEnsembleListCmd())
	return cmd
}

func newEnsembleListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored ensembles, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			client, err := openClient(cmd, cfg, nil)
			if err != nil {
				return err
			}
			defer client.Close()

			list, err := client.Ensembles(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOutput(cmd) {
				return writeJSON(cmd, list)
			}
			out := cmd.OutOrStdout()
			if len(list) == 0 {
				fmt.Fprintln(out, "no ensembles found")
				return nil
			}
			for _, ens := range list {
				fmt.Fprintf(out, "ensemble_id=%s started=%s preset=%s genes=%s base_seed=%d replicates=%d\n",
					ens.ID,
					createdAgo(ens.StartedAtUTC),
					orNone(ens.Preset),
					strings.Join(ens.Genes, ","),
					ens.BaseSeed,
					ens.Replicates,
				)
			}
			return nil
		},
	}
}
