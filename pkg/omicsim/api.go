// Package omicsim is the programmatic entry point for running gene
// regulation simulations headlessly and inspecting stored runs.
package omicsim

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"omicsim/internal/blob"
	"omicsim/internal/catalog"
	"omicsim/internal/impact"
	"omicsim/internal/kinetics"
	"omicsim/internal/logging"
	"omicsim/internal/metrics"
	"omicsim/internal/model"
	"omicsim/internal/platform"
	"omicsim/internal/risk"
	"omicsim/internal/sim"
	"omicsim/internal/stats"
	"omicsim/internal/storage"
)

const (
	defaultArtifactsDir = "runs"
	defaultDBPath       = "omicsim.db"
	defaultRunsLimit    = 20
)

var ErrNoRuns = errors.New("no runs available")

type Options struct {
	StoreKind    string
	DBPath       string
	ArtifactsDir string
	Blob         blob.Config
	// LogLevel also enables the events.jsonl transition log at debug or trace.
	LogLevel       string
	Logger         *slog.Logger
	Metrics        *metrics.Recorder
	Catalog        *catalog.Catalog
	SupportModules []platform.SupportModule
}

type Client struct {
	store   storage.Store
	host    *platform.Host
	catalog *catalog.Catalog

	artifactsDir string
	blob         blob.Config
	logger       *slog.Logger
	metrics      *metrics.Recorder
	events       *logging.EventLog
	modules      []platform.SupportModule

	newID func() string
	now   func() time.Time
}

type RunRequest struct {
	RunID string
	// Genes defaults to the preset's genes when a preset is named.
	Genes    []string
	Diseases []string
	Preset   string
	// Parameters override the preset (or defaults) when set.
	Parameters *model.Parameters
	Seed       int64
	Dt         float64
	MaxTime    float64
	Interval   time.Duration
	// CompareWith names the run whose parameters the impact report is
	// measured against; empty means the most recent run.
	CompareWith string
	OnFrame     func(sim.Frame)
}

type RunSummary struct {
	RunID        string
	ArtifactsDir string
	Steps        int
	SimTime      float64
	Completed    bool
	Stopped      bool
	Genes        []stats.GeneSummary
	Risks        []model.RiskResult
	Flows        model.Flows
	ComparedWith string
	Changes      []impact.Change
}

type RunsRequest struct {
	Limit int
}

type RunItem struct {
	RunID        string
	CreatedAtUTC string
	Preset       string
	Genes        []string
	Seed         int64
	Steps        int
	SimTime      float64
	TopDisease   string
	TopRisk      float64
}

type RiskRequest struct {
	RunID  string
	Latest bool
	// Weights re-scores the stored layer values with different layer
	// weights and needs the run in the store; nil returns the risks
	// recorded at completion, read from the artifacts when the store no
	// longer holds the run.
	Weights *risk.Weights
}

type ImpactRequest struct {
	FromRunID string
	// ToRunID defaults to the most recent stored run.
	ToRunID string
}

type ExportRequest struct {
	RunID  string
	Latest bool
	Prefix string
}

type ExportSummary struct {
	RunID   string
	Driver  blob.Driver
	Objects []blob.Info
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	artifactsDir := opts.ArtifactsDir
	if artifactsDir == "" {
		artifactsDir = defaultArtifactsDir
	}
	cat := opts.Catalog
	if cat == nil {
		cat = catalog.Default()
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}

	return &Client{
		store:        store,
		catalog:      cat,
		artifactsDir: artifactsDir,
		blob:         opts.Blob,
		logger:       logging.OrDiscard(opts.Logger),
		metrics:      opts.Metrics,
		events:       logging.NewEventLog(artifactsDir, opts.LogLevel),
		modules:      opts.SupportModules,
		newID:        uuid.NewString,
		now:          time.Now,
	}, nil
}

func (c *Client) Close() error {
	if c.host != nil {
		c.host.Stop()
	}
	_ = c.events.Close()
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	_, err := c.ensureHost(ctx)
	return err
}

func (c *Client) Catalog() *catalog.Catalog {
	return c.catalog
}

// ImportGenes merges genes from r into the client's catalog. Nothing is
// merged when any record is invalid.
func (c *Client) ImportGenes(r io.Reader, format catalog.Format) (int, error) {
	next, n, err := c.catalog.ImportGenes(r, format)
	if err != nil {
		return 0, err
	}
	c.catalog = next
	return n, nil
}

func (c *Client) ImportDiseases(r io.Reader, format catalog.Format) (int, error) {
	next, n, err := c.catalog.ImportDiseases(r, format)
	if err != nil {
		return 0, err
	}
	c.catalog = next
	return n, nil
}

// Run executes one headless simulation to completion, persists it and
// writes its artifacts. A run stopped through Stop is returned with
// Stopped set and nothing persisted.
func (c *Client) Run(ctx context.Context, req RunRequest) (RunSummary, error) {
	host, err := c.ensureHost(ctx)
	if err != nil {
		return RunSummary{}, err
	}
	if req.Seed == 0 {
		req.Seed = c.now().UnixNano()
	}
	runID := req.RunID
	if runID == "" {
		runID = c.newID()
	}

	session, err := sim.NewSession(sim.SessionConfig{
		Catalog:    c.catalog,
		Parameters: model.DefaultParameters(),
		Noise:      kinetics.NewSeededNoise(req.Seed),
		Dt:         req.Dt,
		MaxTime:    req.MaxTime,
		Diseases:   req.Diseases,
		Logger:     c.logger.With("run_id", runID),
		Metrics:    c.metrics,
		Events:     c.events,
	})
	if err != nil {
		return RunSummary{}, err
	}
	genes := req.Genes
	if req.Preset != "" {
		if err := session.ApplyPreset(req.Preset); err != nil {
			return RunSummary{}, err
		}
		if len(genes) == 0 {
			preset, _ := sim.LookupPreset(req.Preset)
			genes = preset.Genes
		}
	}
	if req.Parameters != nil {
		session.SetParameters(*req.Parameters)
	}
	if err := session.Select(genes); err != nil {
		return RunSummary{}, err
	}

	previousID, previous, hasPrevious, err := c.baseline(ctx, req.CompareWith)
	if err != nil {
		return RunSummary{}, err
	}

	outcome, err := host.RunSession(ctx, platform.RunConfig{
		RunID:    runID,
		Seed:     req.Seed,
		Session:  session,
		Interval: req.Interval,
		OnFrame:  req.OnFrame,
		Now:      c.now,
	})
	if err != nil {
		return RunSummary{}, err
	}

	record := outcome.Record
	summary := RunSummary{
		RunID:     runID,
		Steps:     record.Clock.Steps,
		SimTime:   record.Clock.Time,
		Completed: outcome.Result.Completed,
		Stopped:   outcome.Result.Stopped,
		Genes:     stats.Summarize(record.Series),
		Risks:     record.Risks,
		Flows:     record.Flows,
	}
	if !outcome.Saved {
		return summary, nil
	}

	var changes []impact.Change
	if hasPrevious {
		changes = impact.Compare(previous, record.Parameters)
		summary.ComparedWith = previousID
		summary.Changes = changes
	}

	runDir, err := stats.WriteRunArtifacts(c.artifactsDir, stats.RunArtifacts{
		Config: stats.RunConfig{
			RunID:      runID,
			Preset:     record.Preset,
			Seed:       req.Seed,
			Genes:      record.Genes,
			Diseases:   req.Diseases,
			Dt:         record.Clock.Dt,
			MaxTime:    record.Clock.MaxTime,
			Parameters: record.Parameters,
		},
		Clock:   record.Clock,
		Series:  record.Series,
		Risks:   record.Risks,
		Changes: changes,
		Summary: stats.NewRunSummary(runID, record, changes),
	})
	if err != nil {
		return RunSummary{}, err
	}

	entry := stats.RunIndexEntry{
		RunID:        runID,
		Preset:       record.Preset,
		Genes:        record.Genes,
		Seed:         req.Seed,
		Steps:        record.Clock.Steps,
		SimTime:      record.Clock.Time,
		Completed:    record.Completed,
		CreatedAtUTC: record.CreatedAt.Format(time.RFC3339Nano),
	}
	if top, ok := stats.TopRisk(record.Risks); ok {
		entry.TopDisease = top.Disease
		entry.TopRisk = top.Risk
	}
	if err := stats.AppendRunIndex(c.artifactsDir, entry); err != nil {
		return RunSummary{}, err
	}

	summary.ArtifactsDir = filepath.Clean(runDir)
	return summary, nil
}

func (c *Client) Pause(runID string) error {
	if c.host == nil {
		return platform.ErrNotInitialized
	}
	return c.host.PauseRun(runID)
}

func (c *Client) Continue(runID string) error {
	if c.host == nil {
		return platform.ErrNotInitialized
	}
	return c.host.ContinueRun(runID)
}

func (c *Client) Reset(runID string) error {
	if c.host == nil {
		return platform.ErrNotInitialized
	}
	return c.host.ResetRun(runID)
}

func (c *Client) Stop(runID string) error {
	if c.host == nil {
		return platform.ErrNotInitialized
	}
	return c.host.StopRun(runID)
}

func (c *Client) Runs(_ context.Context, req RunsRequest) ([]RunItem, error) {
	if req.Limit <= 0 {
		req.Limit = defaultRunsLimit
	}

	entries, err := stats.ListRunIndex(c.artifactsDir)
	if err != nil {
		return nil, err
	}
	if len(entries) > req.Limit {
		entries = entries[:req.Limit]
	}

	out := make([]RunItem, 0, len(entries))
	for _, e := range entries {
		out = append(out, RunItem{
			RunID:        e.RunID,
			CreatedAtUTC: e.CreatedAtUTC,
			Preset:       e.Preset,
			Genes:        append([]string(nil), e.Genes...),
			Seed:         e.Seed,
			Steps:        e.Steps,
			SimTime:      e.SimTime,
			TopDisease:   e.TopDisease,
			TopRisk:      e.TopRisk,
		})
	}
	return out, nil
}

// GetRun loads a stored run record.
func (c *Client) GetRun(ctx context.Context, runID string) (model.RunRecord, error) {
	return c.loadRun(ctx, runID)
}

func (c *Client) Risk(ctx context.Context, req RiskRequest) ([]model.RiskResult, error) {
	runID, err := c.resolveRunID(ctx, req.RunID, req.Latest)
	if err != nil {
		return nil, err
	}
	record, found, err := c.findRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	if req.Weights == nil {
		if found {
			return append([]model.RiskResult(nil), record.Risks...), nil
		}
		risks, ok, err := stats.ReadRisks(c.artifactsDir, runID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("run not found: %s", runID)
		}
		return risks, nil
	}
	if !found {
		return nil, fmt.Errorf("run %s has no stored layer values to re-score", runID)
	}

	diseases := make([]model.Disease, 0, len(record.Risks))
	for _, r := range record.Risks {
		d, ok := c.catalog.Disease(r.Disease)
		if !ok {
			return nil, fmt.Errorf("%w: %s", catalog.ErrUnknownDisease, r.Disease)
		}
		diseases = append(diseases, d)
	}
	return risk.EvaluateAll(c.catalog, record.Latest, diseases, *req.Weights, record.Genes), nil
}

// Impact compares the parameters of two runs.
func (c *Client) Impact(ctx context.Context, req ImpactRequest) ([]impact.Change, error) {
	if req.FromRunID == "" {
		return nil, errors.New("impact requires a baseline run id")
	}
	toID, err := c.resolveRunID(ctx, req.ToRunID, req.ToRunID == "")
	if err != nil {
		return nil, err
	}
	from, err := c.runParameters(ctx, req.FromRunID)
	if err != nil {
		return nil, err
	}
	to, err := c.runParameters(ctx, toID)
	if err != nil {
		return nil, err
	}
	return impact.Compare(from, to), nil
}

func (c *Client) Export(ctx context.Context, req ExportRequest) (ExportSummary, error) {
	if req.RunID != "" && req.Latest {
		return ExportSummary{}, errors.New("use either run id or latest")
	}
	if req.RunID == "" && !req.Latest {
		return ExportSummary{}, errors.New("export requires run id or latest")
	}

	runID := req.RunID
	if req.Latest {
		entries, err := stats.ListRunIndex(c.artifactsDir)
		if err != nil {
			return ExportSummary{}, err
		}
		if len(entries) == 0 {
			return ExportSummary{}, ErrNoRuns
		}
		runID = entries[0].RunID
	}

	sink, err := blob.Open(ctx, c.blob)
	if err != nil {
		return ExportSummary{}, err
	}
	objects, err := stats.ExportRunArtifacts(ctx, c.artifactsDir, runID, req.Prefix, sink)
	if err != nil {
		return ExportSummary{}, err
	}
	c.logger.Info("run exported", "run_id", runID, "driver", string(sink.Driver()), "objects", len(objects))
	return ExportSummary{RunID: runID, Driver: sink.Driver(), Objects: objects}, nil
}

type EnsembleRequest struct {
	// ID defaults to a generated id; replicate runs are named <ID>-NN.
	ID         string
	Notes      string
	Replicates int
	// Run is the scenario every replicate shares. Its Seed is the base
	// seed; replicate i runs with Seed+i. RunID must be empty.
	Run RunRequest
	// GraphPostfix names the per-gene graph files.
	GraphPostfix string
}

type EnsembleSummary struct {
	ID     string
	RunIDs []string
	Risks  []stats.RiskSpread
	Graphs []string
}

// Ensemble runs the same scenario several times under consecutive noise
// seeds and aggregates the replicates into per-gene graphs and a risk
// spread. A replicate that does not complete aborts the ensemble.
func (c *Client) Ensemble(ctx context.Context, req EnsembleRequest) (EnsembleSummary, error) {
	if req.Replicates < 1 {
		return EnsembleSummary{}, fmt.Errorf("ensemble needs at least one replicate, got %d", req.Replicates)
	}
	if req.Run.RunID != "" {
		return EnsembleSummary{}, errors.New("ensemble replicates are named from the ensemble id")
	}
	id := req.ID
	if id == "" {
		id = c.newID()
	}
	baseSeed := req.Run.Seed
	if baseSeed == 0 {
		baseSeed = c.now().UnixNano()
	}

	ens := stats.Ensemble{
		ID:           id,
		Notes:        req.Notes,
		Preset:       req.Run.Preset,
		Genes:        req.Run.Genes,
		BaseSeed:     baseSeed,
		Replicates:   req.Replicates,
		StartedAtUTC: c.now().UTC().Format(time.RFC3339Nano),
	}
	for i := 0; i < req.Replicates; i++ {
		run := req.Run
		run.RunID = fmt.Sprintf("%s-%02d", id, i+1)
		run.Seed = baseSeed + int64(i)
		summary, err := c.Run(ctx, run)
		if err != nil {
			return EnsembleSummary{}, fmt.Errorf("replicate %s: %w", run.RunID, err)
		}
		if !summary.Completed {
			return EnsembleSummary{}, fmt.Errorf("replicate %s did not complete", run.RunID)
		}
		ens.RunIDs = append(ens.RunIDs, run.RunID)
		if len(ens.Genes) == 0 {
			for _, g := range summary.Genes {
				ens.Genes = append(ens.Genes, g.Symbol)
			}
		}
	}

	graphs, err := stats.BuildEnsembleGraphs(c.artifactsDir, ens)
	if err != nil {
		return EnsembleSummary{}, err
	}
	paths, err := stats.WriteEnsembleGraphs(c.artifactsDir, id, req.GraphPostfix, graphs)
	if err != nil {
		return EnsembleSummary{}, err
	}
	risks, err := stats.SummarizeEnsembleRisks(c.artifactsDir, ens.RunIDs)
	if err != nil {
		return EnsembleSummary{}, err
	}
	ens.Risks = risks
	for _, p := range paths {
		ens.Graphs = append(ens.Graphs, filepath.Base(p))
	}
	ens.CompletedAtUTC = c.now().UTC().Format(time.RFC3339Nano)
	if err := stats.WriteEnsemble(c.artifactsDir, ens); err != nil {
		return EnsembleSummary{}, err
	}
	c.logger.Info("ensemble completed", "ensemble_id", id, "replicates", len(ens.RunIDs), "graphs", len(paths))
	return EnsembleSummary{ID: id, RunIDs: ens.RunIDs, Risks: risks, Graphs: paths}, nil
}

func (c *Client) Ensembles(_ context.Context) ([]stats.Ensemble, error) {
	return stats.ListEnsembles(c.artifactsDir)
}

// baseline returns the id and parameters a new run's impact is measured
// against: runID when given, else the most recent run.
func (c *Client) baseline(ctx context.Context, runID string) (string, model.Parameters, bool, error) {
	if runID == "" {
		latest, err := c.resolveRunID(ctx, "", true)
		if errors.Is(err, ErrNoRuns) {
			return "", model.Parameters{}, false, nil
		}
		if err != nil {
			return "", model.Parameters{}, false, err
		}
		runID = latest
	}
	params, err := c.runParameters(ctx, runID)
	if err != nil {
		return "", model.Parameters{}, false, err
	}
	return runID, params, true, nil
}

// resolveRunID prefers the store and falls back to the artifacts run index,
// which outlives a memory store.
func (c *Client) resolveRunID(ctx context.Context, runID string, latest bool) (string, error) {
	if runID != "" && latest {
		return "", errors.New("use either run id or latest")
	}
	if runID != "" {
		return runID, nil
	}
	if !latest {
		return "", errors.New("run id or latest is required")
	}
	if _, err := c.ensureHost(ctx); err != nil {
		return "", err
	}
	runs, err := c.store.ListRuns(ctx, 1)
	if err != nil {
		return "", err
	}
	if len(runs) > 0 {
		return runs[0].ID, nil
	}
	entries, err := stats.ListRunIndex(c.artifactsDir)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "", ErrNoRuns
	}
	return entries[0].RunID, nil
}

func (c *Client) runParameters(ctx context.Context, runID string) (model.Parameters, error) {
	record, found, err := c.findRun(ctx, runID)
	if err != nil {
		return model.Parameters{}, err
	}
	if found {
		return record.Parameters, nil
	}
	cfg, ok, err := stats.ReadRunConfig(c.artifactsDir, runID)
	if err != nil {
		return model.Parameters{}, err
	}
	if !ok {
		return model.Parameters{}, fmt.Errorf("run not found: %s", runID)
	}
	return cfg.Parameters, nil
}

func (c *Client) loadRun(ctx context.Context, runID string) (model.RunRecord, error) {
	record, ok, err := c.findRun(ctx, runID)
	if err != nil {
		return model.RunRecord{}, err
	}
	if !ok {
		return model.RunRecord{}, fmt.Errorf("run not found: %s", runID)
	}
	return record, nil
}

func (c *Client) findRun(ctx context.Context, runID string) (model.RunRecord, bool, error) {
	if _, err := c.ensureHost(ctx); err != nil {
		return model.RunRecord{}, false, err
	}
	return c.store.GetRun(ctx, runID)
}

func (c *Client) ensureHost(ctx context.Context) (*platform.Host, error) {
	if c.host != nil && c.host.Started() {
		return c.host, nil
	}
	h := platform.NewHost(platform.Config{
		Store:          c.store,
		SupportModules: c.modules,
		Logger:         c.logger,
	})
	if err := h.Init(ctx); err != nil {
		return nil, err
	}
	c.host = h
	return c.host, nil
}
