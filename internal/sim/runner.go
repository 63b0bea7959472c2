package sim

import (
	"context"
	"errors"
	"time"

	"omicsim/internal/model"
)

// Command controls a running simulation from another goroutine. Commands
// are applied between steps; a step in flight always finishes first.
type Command string

const (
	CommandPause    Command = "pause"
	CommandContinue Command = "continue"
	CommandReset    Command = "reset"
	CommandStop     Command = "stop"
)

type RunnerConfig struct {
	// Interval between steps. Zero runs steps back to back.
	Interval time.Duration
	Control  <-chan Command
	OnFrame  func(Frame)
}

type RunResult struct {
	Steps     int
	Completed bool
	Stopped   bool
	Clock     model.Clock
}

// Runner is the scheduling host for a Session.
type Runner struct {
	session  *Session
	interval time.Duration
	control  <-chan Command
	onFrame  func(Frame)
}

func NewRunner(session *Session, cfg RunnerConfig) *Runner {
	return &Runner{
		session:  session,
		interval: cfg.Interval,
		control:  cfg.Control,
		onFrame:  cfg.OnFrame,
	}
}

// Run starts (or resumes) the session and steps it until completion, a stop
// command or context cancellation. While paused or reset it blocks waiting
// for CommandContinue.
func (r *Runner) Run(ctx context.Context) (RunResult, error) {
	s := r.session
	if s.State() == StateIdle || s.State() == StatePaused {
		if err := s.Start(); err != nil {
			return RunResult{}, err
		}
	}

	var ticks <-chan time.Time
	if r.interval > 0 {
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		ticks = ticker.C
	}

	steps := 0
	result := func() RunResult {
		return RunResult{Steps: steps, Completed: s.State() == StateCompleted, Clock: s.Clock()}
	}
	stopped := func() RunResult {
		out := result()
		out.Stopped = true
		return out
	}

	for {
		stop, err := r.drain()
		if err != nil {
			return result(), err
		}
		if stop {
			return stopped(), nil
		}

		switch s.State() {
		case StateCompleted:
			return result(), nil
		case StateIdle, StatePaused:
			select {
			case <-ctx.Done():
				return result(), ctx.Err()
			case cmd := <-r.control:
				stop, err := r.apply(cmd)
				if err != nil {
					return result(), err
				}
				if stop {
					return stopped(), nil
				}
			}
			continue
		}

		if err := ctx.Err(); err != nil {
			return result(), err
		}
		frame, err := s.Tick()
		if err != nil {
			return result(), err
		}
		steps++
		if r.onFrame != nil {
			r.onFrame(frame)
		}
		if frame.State == StateCompleted {
			return result(), nil
		}

		if ticks != nil {
			select {
			case <-ctx.Done():
				return result(), ctx.Err()
			case <-ticks:
			case cmd := <-r.control:
				stop, err := r.apply(cmd)
				if err != nil {
					return result(), err
				}
				if stop {
					return stopped(), nil
				}
			}
		}
	}
}

// drain applies every queued command without blocking.
func (r *Runner) drain() (bool, error) {
	for {
		select {
		case cmd := <-r.control:
			stop, err := r.apply(cmd)
			if err != nil || stop {
				return stop, err
			}
		default:
			return false, nil
		}
	}
}

// apply reports whether the runner should stop. Commands that do not fit
// the current state are ignored.
func (r *Runner) apply(cmd Command) (bool, error) {
	s := r.session
	switch cmd {
	case CommandStop:
		return true, nil
	case CommandPause:
		if err := s.Pause(); err != nil && !errors.Is(err, ErrInvalidTransition) {
			return false, err
		}
	case CommandContinue:
		if s.State() == StateIdle || s.State() == StatePaused {
			if err := s.Start(); err != nil {
				return false, err
			}
		}
	case CommandReset:
		s.Reset()
	default:
		s.logger.Warn("unknown runner command", "command", string(cmd))
	}
	return false, nil
}
