package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"omicsim/internal/catalog"
	"omicsim/internal/model"
	"omicsim/internal/sim"
)

func newGenesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "genes",
		Short: "List the genes available for selection",
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := catalogFromFlags(cmd, catalog.Default())
			if err != nil {
				return err
			}
			genes := cat.ListGenes()
			if jsonOutput(cmd) {
				return writeJSON(cmd, genes)
			}
			out := cmd.OutOrStdout()
			for _, g := range genes {
				fmt.Fprintf(out, "symbol=%s name=%q baseline_tpm=%.1f vmax=%.1f baseline_protein=%.1f eta=%.2f\n",
					g.Symbol, g.Name, g.BaselineTPM, g.Vmax, g.BaselineProtein, g.DefaultEta)
			}
			return nil
		},
	}
	addCatalogFlags(cmd)
	return cmd
}

func newDiseasesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diseases",
		Short: "List diseases and their gene weights",
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := catalogFromFlags(cmd, catalog.Default())
			if err != nil {
				return err
			}
			diseases := cat.ListDiseases()
			if jsonOutput(cmd) {
				return writeJSON(cmd, diseases)
			}
			out := cmd.OutOrStdout()
			for _, d := range diseases {
				fmt.Fprintf(out, "disease=%q bias=%.2f weights=%s\n", d.Name, d.Bias, formatWeights(d.GeneWeights))
			}
			return nil
		},
	}
	addCatalogFlags(cmd)
	return cmd
}

func newPresetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List the built-in scenario presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			presets := sim.Presets()
			if jsonOutput(cmd) {
				return writeJSON(cmd, presets)
			}
			out := cmd.OutOrStdout()
			defaults := model.DefaultParameters()
			for _, p := range presets {
				var changed []string
				before, after := defaults.Fields(), p.Parameters.Fields()
				for i := range after {
					if after[i].Value != before[i].Value {
						changed = append(changed, fmt.Sprintf("%s=%g", after[i].Key, after[i].Value))
					}
				}
				fmt.Fprintf(out, "preset=%s genes=%s overrides=%s\n  %s\n",
					p.Name, strings.Join(p.Genes, ","), orNone(strings.Join(changed, ",")), p.Description)
			}
			return nil
		},
	}
}

func newImportGenesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import-genes FILE",
		Short: "Validate a gene file and show the merged catalog",
		Long: `Validates gene records from a CSV, JSON or YAML file against the
catalog rules and reports the merged result. Any invalid record rejects the
whole file. Pass the same file to run with --genes-file to simulate it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatName, _ := cmd.Flags().GetString("format")
			cat, n, err := importGenesFile(catalog.Default(), args[0], formatName)
			if err != nil {
				return err
			}
			if jsonOutput(cmd) {
				return writeJSON(cmd, map[string]any{
					"imported": n,
					"genes":    cat.ListGenes(),
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported=%d total=%d symbols=%s\n", n, len(cat.ListGenes()), strings.Join(cat.Symbols(), ","))
			return nil
		},
	}
	cmd.Flags().String("format", "", "csv|json|yaml (default: from the file extension)")
	return cmd
}

func addCatalogFlags(cmd *cobra.Command) {
	cmd.Flags().String("genes-file", "", "Merge genes from a CSV, JSON or YAML file")
	cmd.Flags().String("diseases-file", "", "Merge diseases from a JSON or YAML file")
}

// catalogFromFlags merges --genes-file and --diseases-file into base.
func catalogFromFlags(cmd *cobra.Command, base *catalog.Catalog) (*catalog.Catalog, error) {
	cat := base
	if path, _ := cmd.Flags().GetString("genes-file"); path != "" {
		next, _, err := importGenesFile(cat, path, "")
		if err != nil {
			return nil, err
		}
		cat = next
	}
	if path, _ := cmd.Flags().GetString("diseases-file"); path != "" {
		format, err := catalog.ParseFormat(filepath.Ext(path))
		if err != nil {
			return nil, err
		}
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		next, _, err := cat.ImportDiseases(f, format)
		if err != nil {
			return nil, fmt.Errorf("import %s: %w", path, err)
		}
		cat = next
	}
	return cat, nil
}

func importGenesFile(base *catalog.Catalog, path, formatName string) (*catalog.Catalog, int, error) {
	if formatName == "" {
		formatName = filepath.Ext(path)
	}
	format, err := catalog.ParseFormat(formatName)
	if err != nil {
		return nil, 0, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()
	cat, n, err := base.ImportGenes(f, format)
	if err != nil {
		return nil, 0, fmt.Errorf("import %s: %w", path, err)
	}
	return cat, n, nil
}

func formatWeights(weights map[string]float64) string {
	symbols := make([]string, 0, len(weights))
	for s := range weights {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	parts := make([]string, 0, len(symbols))
	for _, s := range symbols {
		parts = append(parts, fmt.Sprintf("%s:%+.2f", s, weights[s]))
	}
	return strings.Join(parts, ",")
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
