package tiles

import (
	"fmt"
	"slices"
)

// Side names one edge of a tile.
type Side int

const (
	Top Side = iota
	Right
	Bottom
	Left
)

func (s Side) String() string {
	switch s {
	case Top:
		return "top"
	case Right:
		return "right"
	case Bottom:
		return "bottom"
	case Left:
		return "left"
	default:
		return fmt.Sprintf("side(%d)", int(s))
	}
}

// Opposite returns the side a neighbour presents across s.
func (s Side) Opposite() Side { return (s + 2) % 4 }

// Signature is an ordered run of edge labels. Top and bottom edges read
// west to east, left and right edges read north to south.
type Signature []string

// Edges holds the four signatures of a tile indexed by Side.
type Edges [4]Signature

// Rule is an authored tile type.
type Rule struct {
	Name   string    `yaml:"name"`
	Weight int       `yaml:"weight"`
	Top    Signature `yaml:"top"`
	Right  Signature `yaml:"right"`
	Bottom Signature `yaml:"bottom"`
	Left   Signature `yaml:"left"`
}

// Edges returns the authored, unrotated signatures.
func (r Rule) Edges() Edges {
	return Edges{r.Top, r.Right, r.Bottom, r.Left}
}

// RotatedEdges returns the signatures after turning the tile clockwise by
// rotation degrees. Rotations are taken in quarter turns modulo 360.
func (r Rule) RotatedEdges(rotation int) Edges {
	e := r.Edges()
	for i := 0; i < quarters(rotation); i++ {
		e = quarterTurn(e)
	}
	return e
}

func quarters(rotation int) int {
	q := (rotation / 90) % 4
	if q < 0 {
		q += 4
	}
	return q
}

// quarterTurn rotates clockwise once. Left moves to top and right moves to
// bottom with their order reversed; top and bottom keep theirs.
func quarterTurn(e Edges) Edges {
	return Edges{
		Top:    reversed(e[Left]),
		Right:  e[Top],
		Bottom: reversed(e[Right]),
		Left:   e[Bottom],
	}
}

func reversed(s Signature) Signature {
	out := slices.Clone(s)
	slices.Reverse(out)
	return out
}

// Match reports whether two touching signatures are element-wise equal.
func Match(a, b Signature) bool { return slices.Equal(a, b) }

// ValidateRules checks that a rule list can drive generation.
func ValidateRules(rules []Rule) error {
	if len(rules) == 0 {
		return fmt.Errorf("%w: empty rule set", ErrInvalidConfig)
	}
	width := len(rules[0].Top)
	if width == 0 {
		return fmt.Errorf("%w: rule %q has an empty top signature", ErrInvalidConfig, rules[0].Name)
	}
	for i, r := range rules {
		if r.Weight < 1 {
			return fmt.Errorf("%w: rule %d (%q) weight %d < 1", ErrInvalidConfig, i, r.Name, r.Weight)
		}
		for s, sig := range r.Edges() {
			if len(sig) != width {
				return fmt.Errorf("%w: rule %d (%q) %s signature has %d labels, want %d",
					ErrInvalidConfig, i, r.Name, Side(s), len(sig), width)
			}
		}
	}
	return nil
}
