// Package hashfield derives deterministic pseudo-random values from integer
// cell coordinates and a seed. Every function is pure: identical inputs always
// produce identical outputs and arithmetic wraps at fixed width.
package hashfield

import "mapgen/internal/core"

// MaxUnit is the largest supported cell size exponent. Offsets are drawn from
// 8 bits of the cell hash so a cell may span at most 256 positions per axis.
const MaxUnit = 8

const (
	primeX     uint32 = 73856093
	primeY     uint32 = 19349663
	primeLevel uint32 = 83492791
)

func fmix32(h uint32) uint32 {
	h ^= h >> 16
	h *= 0x85ebca6b
	h ^= h >> 13
	h *= 0xc2b2ae35
	h ^= h >> 16
	return h
}

// CellHash combines level, cell coordinates and seed into a 32-bit hash.
func CellHash(level, cellX, cellY int, seed int32) uint32 {
	h := uint32(int32(cellX))*primeX ^
		uint32(int32(cellY))*primeY ^
		uint32(int32(level))*primeLevel ^
		uint32(seed)
	return fmix32(h)
}

// PointHash returns the root index in [0,256) of a cell together with an
// 8-bit offset pair. Index and offsets come from disjoint bytes of the hash.
func PointHash(level, cellX, cellY int, seed int32) (int, core.Point) {
	h := CellHash(level, cellX, cellY, seed)
	index := int(h & 0xFF)
	ox := int((h >> 16) & 0xFF)
	oy := int((h >> 8) & 0xFF)
	return index, core.Point{X: ox, Y: oy}
}

// CellRoot returns the root index and absolute root position of cell
// (cellX, cellY) for cells of size 1<<unit. unit must be in [0, MaxUnit].
func CellRoot(level, unit, cellX, cellY int, seed int32) (int, core.Point) {
	index, off := PointHash(level, cellX, cellY, seed)
	size := 1 << unit
	return index, core.Point{
		X: cellX<<unit + off.X%size,
		Y: cellY<<unit + off.Y%size,
	}
}

func mix64(z uint64) uint64 {
	z += 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

// Hash2 mixes a seed with two integers into a 64-bit hash.
func Hash2(seed int64, a, b int) uint64 {
	ua := uint64(uint32(int32(a)))
	ub := uint64(uint32(int32(b)))
	v := uint64(seed) ^ (ua * 0x9e3779b97f4a7c15) ^ (ub * 0xbf58476d1ce4e5b9)
	return mix64(v)
}

// IntRange maps a hash onto [lo, hi). It returns lo when the range is empty.
func IntRange(h uint64, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + int(h%uint64(hi-lo))
}
