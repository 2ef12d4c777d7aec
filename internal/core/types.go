package core

// Point addresses a cell or a position in grid space.
type Point struct{ X, Y int }

// Pt is a convenience constructor for Point.
func Pt(x, y int) Point { return Point{X: x, Y: y} }

// Add returns the component-wise sum of two points.
func (p Point) Add(o Point) Point { return Point{X: p.X + o.X, Y: p.Y + o.Y} }

// DistSq returns the squared Euclidean distance between two points.
func (p Point) DistSq(o Point) int {
	dx := p.X - o.X
	dy := p.Y - o.Y
	return dx*dx + dy*dy
}
