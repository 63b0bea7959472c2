package platform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"omicsim/internal/logging"
	"omicsim/internal/model"
	"omicsim/internal/sim"
	"omicsim/internal/storage"
)

// controlBuffer bounds queued commands per run; callers get an error rather
// than blocking when a runner falls behind.
const controlBuffer = 8

var (
	ErrNotInitialized = errors.New("host is not initialized")
	ErrRunNotActive   = errors.New("run not active")
)

type Config struct {
	Store          storage.Store
	SupportModules []SupportModule
	Logger         *slog.Logger
}

// SupportModule is a long-lived service started with the host, such as the
// metrics endpoint.
type SupportModule interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

type StopReason string

const (
	StopReasonNormal   StopReason = "normal"
	StopReasonShutdown StopReason = "shutdown"
)

type RunConfig struct {
	RunID    string
	Seed     int64
	Session  *sim.Session
	Interval time.Duration
	OnFrame  func(sim.Frame)
	// Now stamps the persisted record; defaults to time.Now.
	Now func() time.Time
}

type RunOutcome struct {
	Result sim.RunResult
	Record model.RunRecord
	// Saved is false when the run ended without completing and nothing was
	// persisted.
	Saved bool
}

// Host owns the run store, the support modules and the control channel of
// every active run.
type Host struct {
	store  storage.Store
	logger *slog.Logger

	mu             sync.RWMutex
	supportModules []SupportModule
	started        bool
	lastStopReason StopReason
	runs           map[string]chan sim.Command

	config Config
}

func NewHost(cfg Config) *Host {
	return &Host{
		store:          cfg.Store,
		logger:         logging.OrDiscard(cfg.Logger),
		runs:           make(map[string]chan sim.Command),
		config:         cfg,
		lastStopReason: StopReasonNormal,
	}
}

func (h *Host) Init(ctx context.Context) error {
	if h.store == nil {
		return fmt.Errorf("store is required")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.started {
		return nil
	}
	if err := h.store.Init(ctx); err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(h.config.SupportModules))
	started := make([]SupportModule, 0, len(h.config.SupportModules))
	for i, module := range h.config.SupportModules {
		if module == nil {
			stopSupportModules(ctx, started)
			return fmt.Errorf("support module is nil at index %d", i)
		}
		name := module.Name()
		if name == "" {
			stopSupportModules(ctx, started)
			return fmt.Errorf("support module name is required at index %d", i)
		}
		if _, exists := seen[name]; exists {
			stopSupportModules(ctx, started)
			return fmt.Errorf("duplicate support module: %s", name)
		}
		if err := module.Start(ctx); err != nil {
			stopSupportModules(ctx, started)
			return fmt.Errorf("start support module %s: %w", name, err)
		}
		seen[name] = struct{}{}
		started = append(started, module)
		h.logger.Debug("support module started", "module", name)
	}

	h.supportModules = started
	h.started = true
	return nil
}

func (h *Host) Store() storage.Store {
	return h.store
}

func (h *Host) Started() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.started
}

func (h *Host) LastStopReason() StopReason {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.lastStopReason
}

func (h *Host) Stop() {
	_ = h.StopWithReason(StopReasonNormal)
}

func (h *Host) Shutdown() {
	_ = h.StopWithReason(StopReasonShutdown)
}

// StopWithReason asks every active run to stop and stops the support
// modules in reverse start order.
func (h *Host) StopWithReason(reason StopReason) error {
	if reason == "" {
		reason = StopReasonNormal
	}
	if !isValidStopReason(reason) {
		return fmt.Errorf("unsupported stop reason: %s", reason)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, control := range h.runs {
		select {
		case control <- sim.CommandStop:
		default:
		}
	}
	stopSupportModules(context.Background(), h.supportModules)

	h.started = false
	h.lastStopReason = reason
	h.supportModules = nil
	h.runs = make(map[string]chan sim.Command)
	return nil
}

// RunSession drives cfg.Session to completion under the run id, accepting
// control commands through PauseRun, ContinueRun, ResetRun and StopRun while
// it runs. Completed runs are persisted to the store.
func (h *Host) RunSession(ctx context.Context, cfg RunConfig) (RunOutcome, error) {
	if cfg.Session == nil {
		return RunOutcome{}, fmt.Errorf("session is required")
	}
	control := make(chan sim.Command, controlBuffer)
	if err := h.registerRunControl(cfg.RunID, control); err != nil {
		return RunOutcome{}, err
	}
	defer h.unregisterRunControl(cfg.RunID)

	h.logger.Info("run started", "run_id", cfg.RunID, "genes", cfg.Session.Selected())
	runner := sim.NewRunner(cfg.Session, sim.RunnerConfig{
		Interval: cfg.Interval,
		Control:  control,
		OnFrame:  cfg.OnFrame,
	})
	result, err := runner.Run(ctx)
	if err != nil {
		return RunOutcome{Result: result}, err
	}

	record := cfg.Session.Snapshot()
	record.VersionedRecord = storage.Versioned()
	record.ID = cfg.RunID
	record.Seed = cfg.Seed
	now := time.Now
	if cfg.Now != nil {
		now = cfg.Now
	}
	record.CreatedAt = now().UTC()

	outcome := RunOutcome{Result: result, Record: record}
	if !result.Completed {
		h.logger.Info("run ended without completing", "run_id", cfg.RunID, "steps", result.Steps, "stopped", result.Stopped)
		return outcome, nil
	}
	if err := h.store.SaveRun(ctx, record); err != nil {
		return outcome, fmt.Errorf("save run %s: %w", cfg.RunID, err)
	}
	outcome.Saved = true
	h.logger.Info("run saved", "run_id", cfg.RunID, "steps", result.Steps, "sim_time", result.Clock.Time)
	return outcome, nil
}

func (h *Host) PauseRun(runID string) error {
	return h.sendRunCommand(runID, sim.CommandPause)
}

func (h *Host) ContinueRun(runID string) error {
	return h.sendRunCommand(runID, sim.CommandContinue)
}

func (h *Host) ResetRun(runID string) error {
	return h.sendRunCommand(runID, sim.CommandReset)
}

func (h *Host) StopRun(runID string) error {
	return h.sendRunCommand(runID, sim.CommandStop)
}

// ActiveRuns returns the ids of registered runs in sorted order.
func (h *Host) ActiveRuns() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	ids := make([]string, 0, len(h.runs))
	for id := range h.runs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (h *Host) ActiveSupportModules() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	names := make([]string, 0, len(h.supportModules))
	for _, module := range h.supportModules {
		names = append(names, module.Name())
	}
	sort.Strings(names)
	return names
}

func (h *Host) registerRunControl(runID string, control chan sim.Command) error {
	if runID == "" {
		return fmt.Errorf("run id is required")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.started {
		return ErrNotInitialized
	}
	if _, exists := h.runs[runID]; exists {
		return fmt.Errorf("run already active: %s", runID)
	}
	h.runs[runID] = control
	return nil
}

func (h *Host) unregisterRunControl(runID string) {
	if runID == "" {
		return
	}
	h.mu.Lock()
	delete(h.runs, runID)
	h.mu.Unlock()
}

func (h *Host) sendRunCommand(runID string, cmd sim.Command) error {
	if runID == "" {
		return fmt.Errorf("run id is required")
	}
	h.mu.RLock()
	control, ok := h.runs[runID]
	h.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrRunNotActive, runID)
	}
	select {
	case control <- cmd:
		return nil
	default:
		return fmt.Errorf("run control channel is full: %s", runID)
	}
}

func isValidStopReason(reason StopReason) bool {
	switch reason {
	case StopReasonNormal, StopReasonShutdown:
		return true
	default:
		return false
	}
}

func stopSupportModules(ctx context.Context, modules []SupportModule) {
	for i := len(modules) - 1; i >= 0; i-- {
		_ = modules[i].Stop(ctx)
	}
}
