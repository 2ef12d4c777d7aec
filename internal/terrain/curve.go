package terrain

import (
	"fmt"
	"math"
)

// Curve maps a normalised distance from the map centre to a height factor.
type Curve interface {
	Evaluate(t float64) float64
}

// CurveFunc adapts a plain function to Curve.
type CurveFunc func(t float64) float64

func (f CurveFunc) Evaluate(t float64) float64 { return f(t) }

// LinearFalloff fades from 1 at the centre to 0 at t = 1.
type LinearFalloff struct{}

func (LinearFalloff) Evaluate(t float64) float64 {
	return math.Max(0, math.Min(1, 1-t))
}

// Keyframe is one control point of a KeyframeCurve.
type Keyframe struct {
	T float64 `yaml:"t"`
	V float64 `yaml:"v"`
}

// KeyframeCurve interpolates linearly between keys sorted by T. Values
// outside the key range hold the first or last key.
type KeyframeCurve []Keyframe

func (c KeyframeCurve) Evaluate(t float64) float64 {
	switch {
	case len(c) == 0:
		return 1
	case t <= c[0].T:
		return c[0].V
	case t >= c[len(c)-1].T:
		return c[len(c)-1].V
	}
	for i := 1; i < len(c); i++ {
		a, b := c[i-1], c[i]
		if t > b.T {
			continue
		}
		span := b.T - a.T
		if span <= 0 {
			return b.V
		}
		return a.V + (b.V-a.V)*(t-a.T)/span
	}
	return c[len(c)-1].V
}

// Validate reports keys that are out of order.
func (c KeyframeCurve) Validate() error {
	for i := 1; i < len(c); i++ {
		if c[i].T < c[i-1].T {
			return fmt.Errorf("%w: island curve key %d at t=%v precedes t=%v", ErrInvalidConfig, i, c[i].T, c[i-1].T)
		}
	}
	return nil
}
