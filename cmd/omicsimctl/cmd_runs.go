package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"omicsim/internal/risk"
	"omicsim/pkg/omicsim"
)

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			if limit <= 0 {
				return errors.New("limit must be > 0")
			}
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			client, err := openClient(cmd, cfg, nil)
			if err != nil {
				return err
			}
			defer client.Close()

			items, err := client.Runs(cmd.Context(), omicsim.RunsRequest{Limit: limit})
			if err != nil {
				return err
			}
			if jsonOutput(cmd) {
				return writeJSON(cmd, items)
			}
			out := cmd.OutOrStdout()
			if len(items) == 0 {
				fmt.Fprintln(out, "no runs found")
				return nil
			}
			for _, item := range items {
				fmt.Fprintf(out, "run_id=%s created=%s preset=%s genes=%s seed=%d steps=%s top_disease=%q top_risk=%.2f%%\n",
					item.RunID,
					createdAgo(item.CreatedAtUTC),
					orNone(item.Preset),
					strings.Join(item.Genes, ","),
					item.Seed,
					humanize.Comma(int64(item.Steps)),
					item.TopDisease,
					item.TopRisk,
				)
			}
			return nil
		},
	}
	cmd.Flags().Int("limit", 20, "Max runs to list")
	return cmd
}

func newRiskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "risk",
		Short: "Show disease risk for a recorded run",
		Long: `Shows the disease risk recorded when a run completed. With --weights the
stored layer values are re-scored under different layer weights, which
needs the run in the store.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			req := omicsim.RiskRequest{}
			req.RunID, _ = flags.GetString("run-id")
			req.Latest, _ = flags.GetBool("latest")
			if flags.Changed("weights") {
				raw, _ := flags.GetString("weights")
				w, err := parseWeights(raw)
				if err != nil {
					return err
				}
				req.Weights = &w
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			client, err := openClient(cmd, cfg, nil)
			if err != nil {
				return err
			}
			defer client.Close()

			results, err := client.Risk(cmd.Context(), req)
			if err != nil {
				return err
			}
			if jsonOutput(cmd) {
				return writeJSON(cmd, results)
			}
			out := cmd.OutOrStdout()
			for _, r := range results {
				fmt.Fprintf(out, "disease=%q risk=%.2f%% level=%s\n", r.Disease, r.Risk, risk.Classify(r.Risk))
			}
			return nil
		},
	}
	cmd.Flags().String("run-id", "", "Run id")
	cmd.Flags().Bool("latest", false, "Use the most recent run")
	cmd.Flags().String("weights", "", "Layer weights genomics,transcriptomics,proteomics, e.g. 0.2,0.2,0.6")
	return cmd
}

func newImpactCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "impact",
		Short: "Classify parameter changes between two runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			from, _ := flags.GetString("from")
			to, _ := flags.GetString("to")
			if from == "" {
				return errors.New("impact requires --from")
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			client, err := openClient(cmd, cfg, nil)
			if err != nil {
				return err
			}
			defer client.Close()

			changes, err := client.Impact(cmd.Context(), omicsim.ImpactRequest{FromRunID: from, ToRunID: to})
			if err != nil {
				return err
			}
			if jsonOutput(cmd) {
				return writeJSON(cmd, changes)
			}
			if len(changes) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no parameter changes")
				return nil
			}
			printChanges(cmd.OutOrStdout(), changes)
			return nil
		},
	}
	cmd.Flags().String("from", "", "Baseline run id")
	cmd.Flags().String("to", "", "Run id to compare (default: latest run)")
	return cmd
}

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Publish a run's artifacts to the configured blob store",
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			req := omicsim.ExportRequest{}
			req.RunID, _ = flags.GetString("run-id")
			req.Latest, _ = flags.GetBool("latest")
			req.Prefix, _ = flags.GetString("prefix")
			if req.RunID != "" && req.Latest {
				return errors.New("use either --run-id or --latest, not both")
			}
			if req.RunID == "" && !req.Latest {
				return errors.New("export requires --run-id or --latest")
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if flags.Changed("driver") {
				cfg.Blob.Driver, _ = flags.GetString("driver")
			}
			if flags.Changed("out") {
				cfg.Blob.FSRoot, _ = flags.GetString("out")
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			client, err := openClient(cmd, cfg, nil)
			if err != nil {
				return err
			}
			defer client.Close()

			summary, err := client.Export(cmd.Context(), req)
			if err != nil {
				return err
			}
			if jsonOutput(cmd) {
				return writeJSON(cmd, summary)
			}
			out := cmd.OutOrStdout()
			var total int64
			for _, obj := range summary.Objects {
				total += obj.Size
				fmt.Fprintf(out, "key=%s size=%s\n", obj.Key, humanize.Bytes(uint64(obj.Size)))
			}
			fmt.Fprintf(out, "exported run_id=%s driver=%s objects=%d total=%s\n",
				summary.RunID, summary.Driver, len(summary.Objects), humanize.Bytes(uint64(total)))
			return nil
		},
	}
	cmd.Flags().String("run-id", "", "Run id")
	cmd.Flags().Bool("latest", false, "Export the most recent run")
	cmd.Flags().String("prefix", "", "Key prefix inside the blob store")
	cmd.Flags().String("driver", "", "Blob driver override: fs|s3|memory")
	cmd.Flags().String("out", "", "Root directory for the fs driver")
	return cmd
}

func parseWeights(raw string) (risk.Weights, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 3 {
		return risk.Weights{}, fmt.Errorf("weights must be three comma separated values, got %q", raw)
	}
	values := make([]float64, 3)
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return risk.Weights{}, fmt.Errorf("weights: %w", err)
		}
		if v < 0 {
			return risk.Weights{}, fmt.Errorf("weights must be >= 0, got %g", v)
		}
		values[i] = v
	}
	return risk.Weights{Genomics: values[0], Transcriptomics: values[1], Proteomics: values[2]}, nil
}

func createdAgo(ts string) string {
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return ts
	}
	return strings.ReplaceAll(humanize.Time(t), " ", "_")
}
