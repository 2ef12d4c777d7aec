package core

// Grid stores a 2D grid of values in row-major order.
type Grid[T any] struct {
	W, H int
	data []T
}

// NewGrid allocates a grid with the given dimensions. Negative dimensions are
// treated as zero.
func NewGrid[T any](w, h int) *Grid[T] {
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	return &Grid[T]{W: w, H: h, data: make([]T, w*h)}
}

// Cells exposes the backing slice so callers can read/write values directly.
func (g *Grid[T]) Cells() []T { return g.data }

// Index returns the linear slice index for coordinates (x, y).
func (g *Grid[T]) Index(x, y int) int { return y*g.W + x }

// InBounds reports whether (x, y) addresses a cell of the grid.
func (g *Grid[T]) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < g.W && y < g.H
}

// At returns the value stored at (x, y). The coordinates must be in bounds.
func (g *Grid[T]) At(x, y int) T { return g.data[y*g.W+x] }

// Set stores v at (x, y). The coordinates must be in bounds.
func (g *Grid[T]) Set(x, y int, v T) { g.data[y*g.W+x] = v }

// Fill assigns v to every cell.
func (g *Grid[T]) Fill(v T) {
	for i := range g.data {
		g.data[i] = v
	}
}

// Clone returns a deep copy of the grid.
func (g *Grid[T]) Clone() *Grid[T] {
	if g == nil {
		return nil
	}
	out := &Grid[T]{W: g.W, H: g.H, data: make([]T, len(g.data))}
	copy(out.data, g.data)
	return out
}

// GridFrom wraps an existing row-major slice. It returns nil when the slice
// length does not match w*h.
func GridFrom[T any](w, h int, cells []T) *Grid[T] {
	if w < 0 || h < 0 || len(cells) != w*h {
		return nil
	}
	return &Grid[T]{W: w, H: h, data: cells}
}

// EqualGrids reports whether two grids have identical dimensions and cells.
func EqualGrids[T comparable](a, b *Grid[T]) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.W != b.W || a.H != b.H {
		return false
	}
	for i, v := range a.data {
		if b.data[i] != v {
			return false
		}
	}
	return true
}
