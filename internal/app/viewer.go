package app

import (
	"context"
	"fmt"
	"image"
	"io"
	"log"
	"strings"
	"time"

	"mapgen/internal/core"
	"mapgen/internal/pipeline"
	"mapgen/internal/render"
)

// Viewer owns the state shown by the GUI: a pipeline cursor advanced at a
// fixed pace and the layer rendered from its artifacts.
type Viewer struct {
	runner *pipeline.Runner
	pacer  *core.Pacer
	logger *log.Logger

	layer    render.Layer
	paused   bool
	stepOnce bool

	art     *pipeline.Artifacts
	img     *image.RGBA
	dirty   bool
	last    pipeline.Event
	lastErr error
}

// NewViewer prepares a runner for cfg. A nil logger discards output.
func NewViewer(cfg pipeline.Config, layer render.Layer, step time.Duration, logger *log.Logger) (*Viewer, error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	r, err := pipeline.NewRunner(cfg, logger)
	if err != nil {
		return nil, err
	}
	v := &Viewer{runner: r, pacer: core.NewPacer(step), logger: logger, layer: layer, dirty: true}
	r.OnEvent = func(ev pipeline.Event) { v.last = ev }
	v.art = r.Artifacts()
	return v, nil
}

// Tick runs the next stage when the pacer allows it or a single step was
// requested.
func (v *Viewer) Tick(ctx context.Context) {
	if v.runner.Done() {
		return
	}
	if v.stepOnce {
		v.stepOnce = false
	} else if v.paused || !v.pacer.Due() {
		return
	}
	if _, err := v.runner.Step(ctx); err != nil {
		v.lastErr = err
		v.paused = true
		v.logger.Printf("viewer: %v", err)
		return
	}
	v.lastErr = nil
	v.art = v.runner.Artifacts()
	v.dirty = true
}

// TogglePause stops or resumes automatic stepping.
func (v *Viewer) TogglePause() { v.paused = !v.paused }

// StepOnce queues a single stage regardless of pause and pacing.
func (v *Viewer) StepOnce() { v.stepOnce = true }

// Reset restarts the pipeline with seed.
func (v *Viewer) Reset(seed int64) {
	v.runner.Reset(seed)
	v.pacer.Reset()
	v.art = v.runner.Artifacts()
	v.last = pipeline.Event{}
	v.lastErr = nil
	v.stepOnce = false
	v.img = nil
	v.dirty = true
}

// Seed returns the base seed of the current run.
func (v *Viewer) Seed() int64 { return v.runner.Config().Seed }

// Layer returns the layer being shown.
func (v *Viewer) Layer() render.Layer { return v.layer }

// SetLayer switches the layer being shown.
func (v *Viewer) SetLayer(l render.Layer) {
	if l != v.layer {
		v.layer = l
		v.dirty = true
	}
}

// Done reports whether every stage has run.
func (v *Viewer) Done() bool { return v.runner.Done() }

// Artifacts returns the last snapshot taken from the runner.
func (v *Viewer) Artifacts() *pipeline.Artifacts { return v.art }

// Size returns the map dimensions in cells.
func (v *Viewer) Size() (int, int) {
	c := v.runner.Config()
	return c.Width, c.Height
}

// Image renders the current layer at one pixel per cell, or nil while its
// stage has not run yet.
func (v *Viewer) Image() *image.RGBA {
	if !v.dirty {
		return v.img
	}
	v.dirty = false
	img, err := render.Compose(v.art, v.layer, 1, v.runner.Config().Terrain.WaterThreshold)
	if err != nil {
		v.img = nil
		return nil
	}
	v.img = img
	return img
}

// Parameters exposes the pipeline configuration to the HUD.
func (v *Viewer) Parameters() core.ParameterSnapshot { return v.runner.Config().Parameters() }

// Status returns the HUD status rows.
func (v *Viewer) Status() []string {
	cfg := v.runner.Config()
	state := "running"
	switch {
	case v.runner.Done():
		state = "done"
	case v.paused:
		state = "paused"
	}
	rows := []string{
		fmt.Sprintf("seed %d  %s", cfg.Seed, state),
		fmt.Sprintf("stage %d/%d  next %s", v.runner.Completed(), len(cfg.Stages), orDash(v.runner.Next())),
		"layer " + v.layer.String(),
	}
	if v.last.Stage != "" {
		rows = append(rows, fmt.Sprintf("%s took %s", v.last.Stage, v.last.Elapsed.Round(time.Millisecond)))
	}
	if v.lastErr != nil {
		rows = append(rows, "error: "+v.lastErr.Error())
	}
	s := pipeline.Summarize(v.art)
	rows = append(rows, strings.Fields(s.String())...)
	return rows
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
