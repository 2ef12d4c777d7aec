package core

import "time"

// Pacer spaces out pipeline steps so a viewer can show each stage as it
// completes instead of jumping straight to the final map.
type Pacer struct {
	interval    time.Duration
	accumulator time.Duration
	last        time.Time
	now         func() time.Time
}

// NewPacer constructs a Pacer that becomes due once per interval.
func NewPacer(interval time.Duration) *Pacer {
	p := &Pacer{now: time.Now}
	p.SetInterval(interval)
	p.accumulator = p.interval
	return p
}

// SetInterval changes the spacing. Non-positive values make every call due.
func (p *Pacer) SetInterval(interval time.Duration) {
	if interval < 0 {
		interval = 0
	}
	p.interval = interval
}

// Reset makes the pacer due immediately on the next call.
func (p *Pacer) Reset() {
	p.accumulator = p.interval
	p.last = time.Time{}
}

// Due reports whether the next step should run.
func (p *Pacer) Due() bool {
	now := p.now()
	if p.last.IsZero() {
		p.last = now
	}
	p.accumulator += now.Sub(p.last)
	p.last = now
	if p.accumulator >= p.interval {
		p.accumulator -= p.interval
		if p.accumulator > p.interval {
			p.accumulator = p.interval
		}
		return true
	}
	return false
}
