package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"omicsim/internal/catalog"
	"omicsim/internal/config"
	"omicsim/internal/impact"
	"omicsim/internal/model"
	"omicsim/internal/risk"
	"omicsim/internal/sim"
	"omicsim/pkg/omicsim"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a simulation to completion and store its artifacts",
		Long: `Runs one simulation headlessly until the time horizon, then stores the
run record, writes its artifacts and prints risk and parameter impact.

Parameters start from the preset when one is named, otherwise from the
config file, and --param key=value overrides either.`,
		RunE: func(cmd *cobra.Command, args []string) error {
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

			flags := cmd.Flags()
			req.RunID, _ = flags.GetString("run-id")
			req.CompareWith, _ = flags.GetString("compare-with")
			if progress, _ := flags.GetInt("progress"); progress > 0 && !jsonOutput(cmd) {
				out := cmd.OutOrStdout()
				req.OnFrame = func(frame sim.Frame) {
					if frame.Clock.Steps%progress == 0 {
						printProgress(out, frame)
					}
				}
			}

			summary, err := client.Run(cmd.Context(), req)
			if err != nil {
				return err
			}
			if jsonOutput(cmd) {
				return writeJSON(cmd, summary)
			}
			printRunSummary(cmd.OutOrStdout(), summary)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.String("run-id", "", "Run id (default: random UUID)")
	addScenarioFlags(cmd)
	flags.String("compare-with", "", "Run id to measure parameter impact against (default: latest run)")
	flags.Int("progress", 0, "Print a progress line every N steps")
	return cmd
}

// addScenarioFlags registers the flags that describe what to simulate,
// shared by run and ensemble.
func addScenarioFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringSlice("genes", nil, "Genes to simulate, e.g. TP53,EGFR (default: preset genes)")
	flags.StringSlice("diseases", nil, "Restrict risk scoring to these diseases")
	flags.String("preset", "", "Scenario preset; see the presets command")
	flags.Int64("seed", 0, "Noise seed (0 picks one from the clock)")
	flags.Float64("dt", sim.DefaultDt, "Step size in hours")
	flags.Float64("max-time", sim.DefaultMaxTime, "Time horizon in hours")
	flags.Duration("interval", 0, "Wall-clock pause between steps")
	flags.StringArray("param", nil, "Parameter override key=value, repeatable")
	addCatalogFlags(cmd)
}

// scenarioRequest layers the scenario flags over the simulation config.
func scenarioRequest(cmd *cobra.Command, cfg config.Config) (omicsim.RunRequest, error) {
	flags := cmd.Flags()
	simCfg := cfg.Simulation
	if flags.Changed("genes") {
		simCfg.Genes, _ = flags.GetStringSlice("genes")
	}
	if flags.Changed("diseases") {
		simCfg.Diseases, _ = flags.GetStringSlice("diseases")
	}
	if flags.Changed("preset") {
		simCfg.Preset, _ = flags.GetString("preset")
	}
	if flags.Changed("seed") {
		simCfg.Seed, _ = flags.GetInt64("seed")
	}
	if flags.Changed("dt") {
		simCfg.Dt, _ = flags.GetFloat64("dt")
	}
	if flags.Changed("max-time") {
		simCfg.MaxTime, _ = flags.GetFloat64("max-time")
	}
	if flags.Changed("interval") {
		simCfg.TickInterval, _ = flags.GetDuration("interval")
	}

	params := simCfg.Parameters
	if simCfg.Preset != "" {
		preset, ok := sim.LookupPreset(simCfg.Preset)
		if !ok {
			return omicsim.RunRequest{}, fmt.Errorf("%w: %s", sim.ErrUnknownPreset, simCfg.Preset)
		}
		params = preset.Parameters
	}
	overrides, _ := flags.GetStringArray("param")
	if err := applyParamOverrides(&params, overrides); err != nil {
		return omicsim.RunRequest{}, err
	}

	return omicsim.RunRequest{
		Genes:      simCfg.Genes,
		Diseases:   simCfg.Diseases,
		Preset:     simCfg.Preset,
		Parameters: &params,
		Seed:       simCfg.Seed,
		Dt:         simCfg.Dt,
		MaxTime:    simCfg.MaxTime,
		Interval:   simCfg.TickInterval,
	}, nil
}

func applyParamOverrides(params *model.Parameters, overrides []string) error {
	for _, raw := range overrides {
		key, value, ok := strings.Cut(raw, "=")
		if !ok {
			return fmt.Errorf("invalid --param %q: want key=value", raw)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return fmt.Errorf("invalid --param %q: %w", raw, err)
		}
		if err := params.Set(strings.TrimSpace(key), v); err != nil {
			return err
		}
	}
	return nil
}

func printProgress(w io.Writer, frame sim.Frame) {
	top := "n/a"
	if len(frame.Risks) > 0 {
		top = fmt.Sprintf("%s:%.1f%%", frame.Risks[0].Disease, frame.Risks[0].Risk)
	}
	fmt.Fprintf(w, "t=%.2fh step=%d mean_mrna=%.2f mean_protein=%.2f top_risk=%s\n",
		frame.Clock.Time, frame.Clock.Steps, frame.Flows.MeanMRNA, frame.Flows.MeanProtein, top)
}

func printRunSummary(w io.Writer, s omicsim.RunSummary) {
	status := "completed"
	if s.Stopped {
		status = "stopped"
	}
	fmt.Fprintf(w, "run_id=%s status=%s steps=%s sim_time=%.2fh artifacts=%s\n",
		s.RunID, status, humanize.Comma(int64(s.Steps)), s.SimTime, orNone(s.ArtifactsDir))
	for _, g := range s.Genes {
		fmt.Fprintf(w, "gene=%s final_mrna=%.4f final_protein=%.4f mean_mrna=%.4f sd_mrna=%.4f\n",
			g.Symbol, g.FinalMRNA, g.FinalProtein, g.MeanMRNA, g.StdMRNA)
	}
	for _, r := range s.Risks {
		fmt.Fprintf(w, "disease=%q risk=%.2f%% level=%s genomic=%.3f transcriptomic=%.3f proteomic=%.3f\n",
			r.Disease, r.Risk, risk.Classify(r.Risk), r.Contributions.Genomic, r.Contributions.Transcriptomic, r.Contributions.Proteomic)
	}
	if s.ComparedWith != "" {
		fmt.Fprintf(w, "compared_with=%s changes=%d\n", s.ComparedWith, len(s.Changes))
		printChanges(w, s.Changes)
	}
}

func printChanges(w io.Writer, changes []impact.Change) {
	for _, c := range changes {
		percent := fmt.Sprintf("%.1f%%", c.PercentChange)
		if c.FromZero {
			percent = "from-zero"
		}
		fmt.Fprintf(w, "param=%s %g->%g %s %s impact=%s\n", c.Key, c.Previous, c.Current, c.Direction, percent, c.Impact)
	}
}
