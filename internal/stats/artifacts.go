package stats

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"omicsim/internal/blob"
	"omicsim/internal/impact"
	"omicsim/internal/model"
)

const runIndexFile = "run_index.json"

const (
	configFile     = "config.json"
	timeseriesFile = "timeseries.csv"
	riskFile       = "risk.json"
	impactFile     = "impact.json"
	summaryFile    = "summary.json"
)

type RunConfig struct {
	RunID      string           `json:"run_id"`
	Preset     string           `json:"preset,omitempty"`
	Seed       int64            `json:"seed"`
	Genes      []string         `json:"genes"`
	Diseases   []string         `json:"diseases,omitempty"`
	Dt         float64          `json:"dt"`
	MaxTime    float64          `json:"max_time"`
	Parameters model.Parameters `json:"parameters"`
}

type RunArtifacts struct {
	Config  RunConfig
	Clock   model.Clock
	Series  []model.GeneTimeSeries
	Risks   []model.RiskResult
	Changes []impact.Change
	Summary RunSummary
}

// RunSummary is the headline view of a finished run.
type RunSummary struct {
	RunID       string        `json:"run_id"`
	Steps       int           `json:"steps"`
	SimTime     float64       `json:"sim_time"`
	Completed   bool          `json:"completed"`
	Flows       model.Flows   `json:"flows"`
	Genes       []GeneSummary `json:"genes"`
	TopDisease  string        `json:"top_disease,omitempty"`
	TopRisk     float64       `json:"top_risk"`
	ChangeCount int           `json:"change_count"`
}

type RunIndexEntry struct {
	RunID        string   `json:"run_id"`
	Preset       string   `json:"preset,omitempty"`
	Genes        []string `json:"genes"`
	Seed         int64    `json:"seed"`
	Steps        int      `json:"steps"`
	SimTime      float64  `json:"sim_time"`
	Completed    bool     `json:"completed"`
	TopDisease   string   `json:"top_disease,omitempty"`
	TopRisk      float64  `json:"top_risk"`
	CreatedAtUTC string   `json:"created_at_utc"`
}

func WriteRunArtifacts(baseDir string, artifacts RunArtifacts) (string, error) {
	if artifacts.Config.RunID == "" {
		return "", fmt.Errorf("run id is required")
	}

	runDir := filepath.Join(baseDir, artifacts.Config.RunID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, configFile), artifacts.Config); err != nil {
		return "", err
	}
	if err := writeTimeSeriesFile(filepath.Join(runDir, timeseriesFile), artifacts.Clock.Dt, artifacts.Series); err != nil {
		return "", err
	}
	risks := artifacts.Risks
	if risks == nil {
		risks = []model.RiskResult{}
	}
	if err := writeJSON(filepath.Join(runDir, riskFile), risks); err != nil {
		return "", err
	}
	changes := artifacts.Changes
	if changes == nil {
		changes = []impact.Change{}
	}
	if err := writeJSON(filepath.Join(runDir, impactFile), changes); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, summaryFile), artifacts.Summary); err != nil {
		return "", err
	}
	return runDir, nil
}

// NewRunSummary derives the summary written next to a run's artifacts.
func NewRunSummary(runID string, record model.RunRecord, changes []impact.Change) RunSummary {
	summary := RunSummary{
		RunID:       runID,
		Steps:       record.Clock.Steps,
		SimTime:     record.Clock.Time,
		Completed:   record.Completed,
		Flows:       record.Flows,
		Genes:       Summarize(record.Series),
		ChangeCount: len(changes),
	}
	if top, ok := TopRisk(record.Risks); ok {
		summary.TopDisease = top.Disease
		summary.TopRisk = top.Risk
	}
	return summary
}

// TopRisk returns the highest-risk result, first by name on ties.
func TopRisk(risks []model.RiskResult) (model.RiskResult, bool) {
	if len(risks) == 0 {
		return model.RiskResult{}, false
	}
	best := risks[0]
	for _, r := range risks[1:] {
		if r.Risk > best.Risk || (r.Risk == best.Risk && r.Disease < best.Disease) {
			best = r
		}
	}
	return best, true
}

func AppendRunIndex(baseDir string, entry RunIndexEntry) error {
	if entry.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return err
	}

	index, err := readRunIndex(baseDir)
	if err != nil {
		return err
	}

	for i := range index {
		if index[i].RunID == entry.RunID {
			index[i] = entry
			return writeJSON(filepath.Join(baseDir, runIndexFile), index)
		}
	}

	index = append(index, entry)
	return writeJSON(filepath.Join(baseDir, runIndexFile), index)
}

// ListRunIndex returns index entries newest first. Entries sharing a
// timestamp keep the later append first.
func ListRunIndex(baseDir string) ([]RunIndexEntry, error) {
	entries, err := readRunIndex(baseDir)
	if err != nil {
		return nil, err
	}

	type indexedEntry struct {
		entry RunIndexEntry
		idx   int
	}
	indexed := make([]indexedEntry, len(entries))
	for i := range entries {
		indexed[i] = indexedEntry{entry: entries[i], idx: i}
	}
	sort.Slice(indexed, func(i, j int) bool {
		if indexed[i].entry.CreatedAtUTC == indexed[j].entry.CreatedAtUTC {
			return indexed[i].idx > indexed[j].idx
		}
		return indexed[i].entry.CreatedAtUTC > indexed[j].entry.CreatedAtUTC
	})

	sorted := make([]RunIndexEntry, 0, len(indexed))
	for _, item := range indexed {
		sorted = append(sorted, item.entry)
	}
	return sorted, nil
}

func readRunIndex(baseDir string) ([]RunIndexEntry, error) {
	data, err := os.ReadFile(filepath.Join(baseDir, runIndexFile))
	if err != nil {
		if os.IsNotExist(err) {
			return []RunIndexEntry{}, nil
		}
		return nil, err
	}
	var entries []RunIndexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode run index: %w", err)
	}
	return entries, nil
}

// ExportRunArtifacts publishes every artifact file of a run to sink under
// "<prefix>/<runID>/". Missing optional files are skipped.
func ExportRunArtifacts(ctx context.Context, baseDir, runID, prefix string, sink blob.Store) ([]blob.Info, error) {
	if strings.TrimSpace(runID) == "" {
		return nil, fmt.Errorf("run id is required")
	}
	src := filepath.Join(baseDir, runID)
	if _, err := os.Stat(src); err != nil {
		return nil, err
	}

	files := []struct {
		name        string
		contentType string
		required    bool
	}{
		{configFile, "application/json", true},
		{timeseriesFile, "text/csv", true},
		{riskFile, "application/json", true},
		{impactFile, "application/json", false},
		{summaryFile, "application/json", false},
	}

	published := make([]blob.Info, 0, len(files))
	for _, file := range files {
		data, err := os.ReadFile(filepath.Join(src, file.name))
		if err != nil {
			if os.IsNotExist(err) && !file.required {
				continue
			}
			return nil, err
		}
		key := path.Join(prefix, runID, file.name)
		info, err := sink.Put(ctx, key, bytes.NewReader(data), blob.PutOptions{
			ContentType: file.contentType,
			Metadata:    map[string]string{"run_id": runID},
		})
		if err != nil {
			return nil, fmt.Errorf("export %s: %w", file.name, err)
		}
		published = append(published, info)
	}
	return published, nil
}

func ReadRunConfig(baseDir, runID string) (RunConfig, bool, error) {
	var cfg RunConfig
	ok, err := readJSON(filepath.Join(baseDir, runID, configFile), &cfg)
	return cfg, ok, err
}

func ReadRisks(baseDir, runID string) ([]model.RiskResult, bool, error) {
	var risks []model.RiskResult
	ok, err := readJSON(filepath.Join(baseDir, runID, riskFile), &risks)
	return risks, ok, err
}

func ReadImpact(baseDir, runID string) ([]impact.Change, bool, error) {
	var changes []impact.Change
	ok, err := readJSON(filepath.Join(baseDir, runID, impactFile), &changes)
	return changes, ok, err
}

func ReadSummary(baseDir, runID string) (RunSummary, bool, error) {
	var summary RunSummary
	ok, err := readJSON(filepath.Join(baseDir, runID, summaryFile), &summary)
	return summary, ok, err
}

// ReadTimeSeries loads a run's timeseries.csv.
func ReadTimeSeries(baseDir, runID string) (TimeSeriesTable, bool, error) {
	file, err := os.Open(filepath.Join(baseDir, runID, timeseriesFile))
	if err != nil {
		if os.IsNotExist(err) {
			return TimeSeriesTable{}, false, nil
		}
		return TimeSeriesTable{}, false, err
	}
	defer file.Close()
	table, err := ReadTimeSeriesCSV(file)
	if err != nil {
		return TimeSeriesTable{}, false, err
	}
	return table, true, nil
}

func readJSON(path string, out any) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return true, nil
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

func writeTimeSeriesFile(path string, dt float64, series []model.GeneTimeSeries) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteTimeSeriesCSV(file, dt, series); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}
