// Package pipeline sequences the generation stages behind a resumable
// cursor. Cancellation is checked between stages only; a stage always runs
// to completion once started.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"
)

// Event reports the completion of one stage.
type Event struct {
	Stage   string
	Index   int
	Total   int
	Elapsed time.Duration
	Err     error
}

// Runner steps through the configured stages one at a time.
type Runner struct {
	cfg    Config
	logger *log.Logger
	next   int
	art    *Artifacts

	// OnEvent, when set, is called after every stage.
	OnEvent func(Event)
}

// NewRunner validates cfg and positions the cursor before the first stage.
// A nil logger discards output.
func NewRunner(cfg Config, logger *log.Logger) (*Runner, error) {
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Runner{cfg: cfg, logger: logger, art: &Artifacts{Seed: cfg.Seed}}, nil
}

// Config returns the configuration the runner executes.
func (r *Runner) Config() Config { return r.cfg }

// Done reports whether every stage has run.
func (r *Runner) Done() bool { return r.next >= len(r.cfg.Stages) }

// Next returns the name of the stage the next Step runs, or "".
func (r *Runner) Next() string {
	if r.Done() {
		return ""
	}
	return r.cfg.Stages[r.next]
}

// Completed returns the number of stages already run.
func (r *Runner) Completed() int { return r.next }

// Step runs the next stage. It returns true once all stages have run. A
// failed stage leaves the cursor in place.
func (r *Runner) Step(ctx context.Context) (bool, error) {
	if r.Done() {
		return true, nil
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	name := r.cfg.Stages[r.next]
	stage, ok := stages[name]
	if !ok {
		return false, fmt.Errorf("%w: unknown stage %q", ErrInvalidConfig, name)
	}
	start := time.Now()
	err := stage(r.cfg, r.logger, r.art)
	ev := Event{Stage: name, Index: r.next, Total: len(r.cfg.Stages), Elapsed: time.Since(start), Err: err}
	if err != nil {
		r.emit(ev)
		return false, fmt.Errorf("stage %s: %w", name, err)
	}
	r.next++
	r.emit(ev)
	return r.Done(), nil
}

func (r *Runner) emit(ev Event) {
	if r.OnEvent != nil {
		r.OnEvent(ev)
	}
}

// Run steps until every stage has run or ctx is cancelled.
func (r *Runner) Run(ctx context.Context) (*Artifacts, error) {
	for {
		done, err := r.Step(ctx)
		if err != nil {
			return r.Artifacts(), err
		}
		if done {
			return r.Artifacts(), nil
		}
	}
}

// Artifacts returns a snapshot of the outputs produced so far.
func (r *Runner) Artifacts() *Artifacts { return r.art.Clone() }

// Reset rewinds the cursor and discards all artifacts, reseeding the run.
func (r *Runner) Reset(seed int64) {
	r.cfg = r.cfg.WithSeed(seed)
	r.next = 0
	r.art = &Artifacts{Seed: seed}
}

// Generate runs every stage of cfg to completion.
func Generate(ctx context.Context, cfg Config, logger *log.Logger) (*Artifacts, error) {
	r, err := NewRunner(cfg, logger)
	if err != nil {
		return nil, err
	}
	return r.Run(ctx)
}
