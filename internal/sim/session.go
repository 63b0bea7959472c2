// Package sim drives the per-gene kinetics through the Idle, Running, Paused
// and Completed states and recomputes disease risk after every step.
package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"omicsim/internal/catalog"
	"omicsim/internal/impact"
	"omicsim/internal/kinetics"
	"omicsim/internal/logging"
	"omicsim/internal/metrics"
	"omicsim/internal/model"
	"omicsim/internal/risk"
)

const (
	DefaultDt      = 0.1
	DefaultMaxTime = 50.0

	// timeTolerance absorbs float error in Steps*Dt so that whole multiples
	// of dt land exactly on the horizon.
	timeTolerance = 1e-9
)

var (
	ErrNoGenesSelected   = errors.New("no genes selected")
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrNotRunning        = errors.New("session is not running")
)

type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StatePaused    State = "paused"
	StateCompleted State = "completed"
)

// Catalog is the read side of the entity catalog used by a session.
type Catalog interface {
	Gene(symbol string) (model.Gene, bool)
	Disease(name string) (model.Disease, bool)
	ListDiseases() []model.Disease
}

type SessionConfig struct {
	Catalog    Catalog
	Parameters model.Parameters
	// Noise defaults to a seed-1 generator.
	Noise   *kinetics.Noise
	Dt      float64
	MaxTime float64
	// Diseases restricts risk evaluation to the named entries; empty means all.
	Diseases   []string
	Logger     *slog.Logger
	Metrics    *metrics.Recorder
	Events     *logging.EventLog
	OnComplete func(CompletionEvent)
}

// CompletionEvent is emitted once per run when the clock reaches MaxTime.
// Changes compares Parameters with those of the previous completed run and
// is empty for the first one.
type CompletionEvent struct {
	Clock      model.Clock
	Parameters model.Parameters
	Previous   *model.Parameters
	Changes    []impact.Change
	Risks      []model.RiskResult
	Flows      model.Flows
}

// Frame is the observable result of one step.
type Frame struct {
	State  State
	Clock  model.Clock
	Latest map[string]model.LayerValues
	Flows  model.Flows
	Risks  []model.RiskResult
}

// Session owns all mutable engine state for one simulation. It is not safe
// for concurrent use; a single goroutine (usually a Runner) drives it.
type Session struct {
	catalog    Catalog
	diseases   []model.Disease
	params     model.Parameters
	preset     string
	noise      *kinetics.Noise
	clock      model.Clock
	state      State
	selected   []string
	series     map[string]*model.GeneTimeSeries
	latest     map[string]model.LayerValues
	risks      []model.RiskResult
	flows      model.Flows
	previous   *model.Parameters
	logger     *slog.Logger
	metrics    *metrics.Recorder
	events     *logging.EventLog
	onComplete func(CompletionEvent)
}

func NewSession(cfg SessionConfig) (*Session, error) {
	if cfg.Catalog == nil {
		return nil, fmt.Errorf("catalog is required")
	}
	dt := cfg.Dt
	if dt == 0 {
		dt = DefaultDt
	}
	maxTime := cfg.MaxTime
	if maxTime == 0 {
		maxTime = DefaultMaxTime
	}
	if !(dt > 0) || math.IsInf(dt, 0) {
		return nil, fmt.Errorf("dt must be > 0, got %v", dt)
	}
	if !(maxTime > 0) || math.IsInf(maxTime, 0) {
		return nil, fmt.Errorf("max time must be > 0, got %v", maxTime)
	}

	diseases := cfg.Catalog.ListDiseases()
	if len(cfg.Diseases) > 0 {
		diseases = make([]model.Disease, 0, len(cfg.Diseases))
		for _, name := range cfg.Diseases {
			d, ok := cfg.Catalog.Disease(name)
			if !ok {
				return nil, fmt.Errorf("%w: %s", catalog.ErrUnknownDisease, name)
			}
			diseases = append(diseases, d)
		}
	}

	noise := cfg.Noise
	if noise == nil {
		noise = kinetics.NewNoise(nil)
	}

	s := &Session{
		catalog:    cfg.Catalog,
		diseases:   diseases,
		params:     cfg.Parameters,
		noise:      noise,
		clock:      model.Clock{Dt: dt, MaxTime: maxTime},
		state:      StateIdle,
		series:     make(map[string]*model.GeneTimeSeries),
		latest:     make(map[string]model.LayerValues),
		logger:     logging.OrDiscard(cfg.Logger),
		metrics:    cfg.Metrics,
		events:     cfg.Events,
		onComplete: cfg.OnComplete,
	}
	return s, nil
}

// Select replaces the gene selection and resets the session. Duplicate
// symbols are collapsed; an unknown symbol rejects the whole selection.
func (s *Session) Select(symbols []string) error {
	seen := make(map[string]struct{}, len(symbols))
	selected := make([]string, 0, len(symbols))
	for _, symbol := range symbols {
		if _, ok := s.catalog.Gene(symbol); !ok {
			return fmt.Errorf("%w: %s", catalog.ErrUnknownGene, symbol)
		}
		if _, dup := seen[symbol]; dup {
			continue
		}
		seen[symbol] = struct{}{}
		selected = append(selected, symbol)
	}
	s.selected = selected
	s.Reset()
	return nil
}

// SetParameters updates the parameters read by the next step. Out-of-range
// values are logged and still applied.
func (s *Session) SetParameters(p model.Parameters) {
	for _, w := range p.Validate() {
		s.logger.Warn("parameter out of range", "warning", w)
	}
	s.params = p
}

// ApplyPreset replaces the parameters with a named preset and resets.
func (s *Session) ApplyPreset(name string) error {
	preset, ok := LookupPreset(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPreset, name)
	}
	s.params = preset.Parameters
	s.preset = preset.Name
	s.Reset()
	s.logger.Info("preset applied", "preset", preset.Name)
	return nil
}

// Start begins a run from Idle, seeding every protein series with its
// baseline, or resumes a paused run without touching the series.
func (s *Session) Start() error {
	switch s.state {
	case StateIdle:
		if len(s.selected) == 0 {
			return ErrNoGenesSelected
		}
		for _, symbol := range s.selected {
			gene, _ := s.catalog.Gene(symbol)
			s.series[symbol] = &model.GeneTimeSeries{
				Symbol:  symbol,
				MRNA:    []float64{},
				Protein: []float64{gene.BaselineProtein},
			}
		}
		s.state = StateRunning
		s.metrics.RunStarted()
		s.logger.Info("simulation started", "genes", len(s.selected), "dt", s.clock.Dt, "max_time", s.clock.MaxTime)
		s.events.Log(map[string]any{"event": "start", "genes": s.Selected(), "preset": s.preset})
		return nil
	case StatePaused:
		s.state = StateRunning
		s.logger.Info("simulation resumed", "time", s.clock.Time)
		s.events.Log(map[string]any{"event": "resume", "sim_time": s.clock.Time})
		return nil
	default:
		return fmt.Errorf("start from %s: %w", s.state, ErrInvalidTransition)
	}
}

func (s *Session) Pause() error {
	if s.state != StateRunning {
		return fmt.Errorf("pause from %s: %w", s.state, ErrInvalidTransition)
	}
	s.state = StatePaused
	s.logger.Info("simulation paused", "time", s.clock.Time)
	s.events.Log(map[string]any{"event": "pause", "sim_time": s.clock.Time})
	return nil
}

// Reset returns to Idle from any state, clearing the clock and every series.
// The selection, parameters and the last completed parameters survive.
func (s *Session) Reset() {
	from := s.state
	s.state = StateIdle
	s.clock.Time = 0
	s.clock.Steps = 0
	s.series = make(map[string]*model.GeneTimeSeries)
	s.latest = make(map[string]model.LayerValues)
	s.risks = nil
	s.flows = model.Flows{}
	s.metrics.Reset()
	if from != StateIdle {
		s.logger.Info("simulation reset", "from", string(from))
		s.events.Log(map[string]any{"event": "reset", "from": string(from)})
	}
}

// Tick advances every selected gene by one step and recomputes flows and
// risk. It completes the run once the clock reaches MaxTime.
func (s *Session) Tick() (Frame, error) {
	if s.state != StateRunning {
		return Frame{}, ErrNotRunning
	}
	began := time.Now()
	p := s.params

	for _, symbol := range s.selected {
		gene, _ := s.catalog.Gene(symbol)
		ts := s.series[symbol]
		prev, ok := ts.LastProtein()
		if !ok {
			prev = gene.BaselineProtein
		}

		e := kinetics.Expression(p.TFConcentration, p.BindingAffinity, p.HillCoefficient, gene.Vmax, p.MethylationFactor, p.MutationSeverity)
		mrna := s.noise.Apply(e, p.ExpressionNoise)
		protein := kinetics.StepProtein(prev, mrna, p.TranslationEfficiency, p.ProteinDegradation, s.clock.Dt)

		ts.MRNA = append(ts.MRNA, mrna)
		ts.Protein = append(ts.Protein, protein)
		s.latest[symbol] = model.LayerValues{Genomic: e, Transcriptomic: mrna, Proteomic: protein}
	}

	s.clock.Steps++
	s.clock.Time = float64(s.clock.Steps) * s.clock.Dt
	s.flows = computeFlows(s.selected, s.latest)
	s.risks = risk.EvaluateAll(s.catalog, s.latest, s.diseases, risk.WeightsFrom(p), s.selected)

	s.metrics.Step(s.clock.Time, time.Since(began))
	for _, r := range s.risks {
		s.metrics.Risk(r.Disease, r.Risk)
	}
	s.logger.Log(context.Background(), logging.LevelTrace, "step", "step", s.clock.Steps, "time", s.clock.Time, "total_protein", s.flows.TotalProtein)

	if s.clock.Time >= s.clock.MaxTime-timeTolerance {
		s.complete()
	}
	return s.frame(), nil
}

func (s *Session) complete() {
	s.state = StateCompleted
	current := s.params
	event := CompletionEvent{
		Clock:      s.clock,
		Parameters: current,
		Previous:   s.previous,
		Risks:      append([]model.RiskResult(nil), s.risks...),
		Flows:      s.flows,
	}
	if s.previous != nil {
		event.Changes = impact.Compare(*s.previous, current)
	}
	s.previous = &current

	s.metrics.RunCompleted()
	s.logger.Info("simulation completed", "time", s.clock.Time, "steps", s.clock.Steps, "changes", len(event.Changes))
	s.events.Log(map[string]any{"event": "complete", "sim_time": s.clock.Time, "steps": s.clock.Steps})
	if s.onComplete != nil {
		s.onComplete(event)
	}
}

func (s *Session) frame() Frame {
	return Frame{
		State:  s.state,
		Clock:  s.clock,
		Latest: s.Latest(),
		Flows:  s.flows,
		Risks:  s.Risks(),
	}
}

func computeFlows(selected []string, latest map[string]model.LayerValues) model.Flows {
	var f model.Flows
	n := 0
	for _, symbol := range selected {
		v, ok := latest[symbol]
		if !ok {
			continue
		}
		f.TotalExpression += v.Genomic
		f.TotalMRNA += v.Transcriptomic
		f.TotalProtein += v.Proteomic
		n++
	}
	if n > 0 {
		f.MeanMRNA = f.TotalMRNA / float64(n)
		f.MeanProtein = f.TotalProtein / float64(n)
	}
	return f
}

func (s *Session) State() State                 { return s.state }
func (s *Session) Clock() model.Clock           { return s.clock }
func (s *Session) Flows() model.Flows           { return s.flows }
func (s *Session) Parameters() model.Parameters { return s.params }
func (s *Session) Preset() string               { return s.preset }

func (s *Session) Selected() []string {
	return append([]string(nil), s.selected...)
}

func (s *Session) Diseases() []model.Disease {
	return append([]model.Disease(nil), s.diseases...)
}

// Series returns a copy of one gene's history.
func (s *Session) Series(symbol string) (model.GeneTimeSeries, bool) {
	ts, ok := s.series[symbol]
	if !ok {
		return model.GeneTimeSeries{}, false
	}
	return ts.Clone(), true
}

// AllSeries returns copies of every series in selection order.
func (s *Session) AllSeries() []model.GeneTimeSeries {
	out := make([]model.GeneTimeSeries, 0, len(s.series))
	for _, symbol := range s.selected {
		if ts, ok := s.series[symbol]; ok {
			out = append(out, ts.Clone())
		}
	}
	return out
}

func (s *Session) Risks() []model.RiskResult {
	return append([]model.RiskResult(nil), s.risks...)
}

func (s *Session) Latest() map[string]model.LayerValues {
	out := make(map[string]model.LayerValues, len(s.latest))
	for k, v := range s.latest {
		out[k] = v
	}
	return out
}

// Snapshot captures the session as an unsaved run record. Identity fields
// (ID, CreatedAt, Seed, versions) are left to the caller.
func (s *Session) Snapshot() model.RunRecord {
	return model.RunRecord{
		Preset:     s.preset,
		Parameters: s.params,
		Clock:      s.clock,
		Genes:      s.Selected(),
		Series:     s.AllSeries(),
		Latest:     s.Latest(),
		Risks:      s.Risks(),
		Flows:      s.flows,
		Completed:  s.state == StateCompleted,
	}
}
