package stats

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"
)

const ensemblesDir = "ensembles"

// Ensemble records a batch of replicate runs of one scenario that differ
// only in their noise seed.
type Ensemble struct {
	ID             string       `json:"id"`
	Notes          string       `json:"notes,omitempty"`
	Preset         string       `json:"preset,omitempty"`
	Genes          []string     `json:"genes,omitempty"`
	BaseSeed       int64        `json:"base_seed"`
	Replicates     int          `json:"replicates"`
	StartedAtUTC   string       `json:"started_at_utc,omitempty"`
	CompletedAtUTC string       `json:"completed_at_utc,omitempty"`
	RunIDs         []string     `json:"run_ids,omitempty"`
	Risks          []RiskSpread `json:"risks,omitempty"`
	Graphs         []string     `json:"graphs,omitempty"`
}

// RiskSpread is the distribution of one disease's final risk across the
// replicates of an ensemble.
type RiskSpread struct {
	Disease string  `json:"disease"`
	Mean    float64 `json:"mean"`
	Std     float64 `json:"std"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
}

// EnsembleGraph holds per-step statistics of one gene across replicates.
type EnsembleGraph struct {
	Symbol     string    `json:"symbol"`
	Times      []float64 `json:"times"`
	AvgMRNA    []float64 `json:"avg_mrna"`
	MRNAStd    []float64 `json:"mrna_std"`
	AvgProtein []float64 `json:"avg_protein"`
	ProteinStd []float64 `json:"protein_std"`
	MaxProtein []float64 `json:"max_protein"`
	MinProtein []float64 `json:"min_protein"`
}

func WriteEnsemble(baseDir string, ens Ensemble) error {
	if ens.ID == "" {
		return fmt.Errorf("ensemble id is required")
	}
	path := ensemblePath(baseDir, ens.ID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return writeJSON(path, ens)
}

func ReadEnsemble(baseDir, id string) (Ensemble, bool, error) {
	if id == "" {
		return Ensemble{}, false, fmt.Errorf("ensemble id is required")
	}
	var ens Ensemble
	ok, err := readJSON(ensemblePath(baseDir, id), &ens)
	if err != nil || !ok {
		return Ensemble{}, ok, err
	}
	return ens, true, nil
}

// ListEnsembles returns stored ensembles newest first. Ensembles without a
// start time sort last.
func ListEnsembles(baseDir string) ([]Ensemble, error) {
	root := filepath.Join(baseDir, ensemblesDir)
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return []Ensemble{}, nil
		}
		return nil, err
	}

	out := make([]Ensemble, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		ens, ok, err := ReadEnsemble(baseDir, entry.Name())
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		out = append(out, ens)
	}
	sort.Slice(out, func(i, j int) bool {
		switch {
		case out[i].StartedAtUTC == out[j].StartedAtUTC:
			return out[i].ID < out[j].ID
		case out[i].StartedAtUTC == "":
			return false
		case out[j].StartedAtUTC == "":
			return true
		default:
			return out[i].StartedAtUTC > out[j].StartedAtUTC
		}
	})
	return out, nil
}

// BuildEnsembleGraphs reads each replicate's time series and aggregates it
// per gene and step. Steps beyond the shortest replicate are dropped.
func BuildEnsembleGraphs(baseDir string, ens Ensemble) ([]EnsembleGraph, error) {
	if len(ens.RunIDs) == 0 {
		return []EnsembleGraph{}, nil
	}
	tables := make([]TimeSeriesTable, 0, len(ens.RunIDs))
	for _, runID := range ens.RunIDs {
		table, ok, err := ReadTimeSeries(baseDir, runID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("time series not found for run id: %s", runID)
		}
		tables = append(tables, table)
	}
	return AggregateTimeSeries(tables), nil
}

// AggregateTimeSeries computes mean and sample deviation per step for
// every gene present in the tables.
func AggregateTimeSeries(tables []TimeSeriesTable) []EnsembleGraph {
	type replicate struct {
		times   []float64
		mrna    []float64
		protein []float64
	}
	bySymbol := make(map[string][]replicate)
	for _, table := range tables {
		for _, ts := range table.Series {
			bySymbol[ts.Symbol] = append(bySymbol[ts.Symbol], replicate{
				times:   table.Times,
				mrna:    ts.MRNA,
				protein: ts.Protein,
			})
		}
	}

	symbols := make([]string, 0, len(bySymbol))
	for symbol := range bySymbol {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	graphs := make([]EnsembleGraph, 0, len(symbols))
	for _, symbol := range symbols {
		reps := bySymbol[symbol]
		steps := -1
		for _, rep := range reps {
			n := min(len(rep.times), len(rep.mrna), len(rep.protein))
			if steps < 0 || n < steps {
				steps = n
			}
		}
		graph := EnsembleGraph{Symbol: symbol}
		mrna := make([]float64, len(reps))
		protein := make([]float64, len(reps))
		for i := 0; i < steps; i++ {
			for r, rep := range reps {
				mrna[r] = rep.mrna[i]
				protein[r] = rep.protein[i]
			}
			avgM, stdM := meanStd(mrna)
			avgP, stdP := meanStd(protein)
			graph.Times = append(graph.Times, reps[0].times[i])
			graph.AvgMRNA = append(graph.AvgMRNA, avgM)
			graph.MRNAStd = append(graph.MRNAStd, stdM)
			graph.AvgProtein = append(graph.AvgProtein, avgP)
			graph.ProteinStd = append(graph.ProteinStd, stdP)
			graph.MaxProtein = append(graph.MaxProtein, maxFloat(protein))
			graph.MinProtein = append(graph.MinProtein, minFloat(protein))
		}
		graphs = append(graphs, graph)
	}
	return graphs
}

// SummarizeEnsembleRisks aggregates the recorded risks of each replicate.
// Diseases keep the order of the first replicate.
func SummarizeEnsembleRisks(baseDir string, runIDs []string) ([]RiskSpread, error) {
	var order []string
	values := make(map[string][]float64)
	for _, runID := range runIDs {
		risks, ok, err := ReadRisks(baseDir, runID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("risks not found for run id: %s", runID)
		}
		for _, r := range risks {
			if _, seen := values[r.Disease]; !seen {
				order = append(order, r.Disease)
			}
			values[r.Disease] = append(values[r.Disease], r.Risk)
		}
	}

	out := make([]RiskSpread, 0, len(order))
	for _, disease := range order {
		v := values[disease]
		mean, std := meanStd(v)
		out = append(out, RiskSpread{
			Disease: disease,
			Mean:    mean,
			Std:     std,
			Min:     minFloat(v),
			Max:     maxFloat(v),
		})
	}
	return out, nil
}

// WriteEnsembleGraphs writes one gnuplot-style data file per gene into the
// ensemble's directory and returns the paths sorted.
func WriteEnsembleGraphs(baseDir, ensembleID, postfix string, graphs []EnsembleGraph) ([]string, error) {
	if ensembleID == "" {
		return nil, fmt.Errorf("graph ensemble id is required")
	}
	if postfix == "" {
		postfix = "ensemble.dat"
	}
	outputDir := filepath.Join(baseDir, ensemblesDir, ensembleID)
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(graphs))
	for _, graph := range graphs {
		path := filepath.Join(outputDir, "graph_"+sanitizeGraphToken(graph.Symbol)+"_"+postfix)
		if err := writeEnsembleGraphFile(path, graph); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths, nil
}

func writeEnsembleGraphFile(path string, graph EnsembleGraph) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := writeEnsembleGraph(file, graph); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

func writeEnsembleGraph(w io.Writer, graph EnsembleGraph) error {
	if _, err := fmt.Fprintf(w, "#Avg mRNA Vs Time, Gene:%s\n", graph.Symbol); err != nil {
		return err
	}
	if err := writeSeriesWithStd(w, graph.Times, graph.AvgMRNA, graph.MRNAStd); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "\n\n#Avg Protein Vs Time, Gene:%s\n", graph.Symbol); err != nil {
		return err
	}
	if err := writeSeriesWithStd(w, graph.Times, graph.AvgProtein, graph.ProteinStd); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "\n\n#Max Protein Vs Time, Gene:%s\n", graph.Symbol); err != nil {
		return err
	}
	if err := writeSeries(w, graph.Times, graph.MaxProtein); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "\n\n#Min Protein Vs Time, Gene:%s\n", graph.Symbol); err != nil {
		return err
	}
	return writeSeries(w, graph.Times, graph.MinProtein)
}

func writeSeriesWithStd(w io.Writer, times, values, std []float64) error {
	n := min(len(times), len(values), len(std))
	for i := 0; i < n; i++ {
		if _, err := fmt.Fprintf(w, "%.2f %g %g\n", times[i], values[i], std[i]); err != nil {
			return err
		}
	}
	return nil
}

func writeSeries(w io.Writer, times, values []float64) error {
	n := min(len(times), len(values))
	for i := 0; i < n; i++ {
		if _, err := fmt.Fprintf(w, "%.2f %g\n", times[i], values[i]); err != nil {
			return err
		}
	}
	return nil
}

func sanitizeGraphToken(value string) string {
	var b strings.Builder
	for _, r := range value {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			continue
		}
		b.WriteByte('_')
	}
	token := strings.Trim(b.String(), "_")
	if token == "" {
		return "unknown"
	}
	return token
}

func maxFloat(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	out := math.Inf(-1)
	for _, v := range values {
		out = math.Max(out, v)
	}
	return out
}

func minFloat(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	out := math.Inf(1)
	for _, v := range values {
		out = math.Min(out, v)
	}
	return out
}

func ensemblePath(baseDir, id string) string {
	return filepath.Join(baseDir, ensemblesDir, id, "ensemble.json")
}
