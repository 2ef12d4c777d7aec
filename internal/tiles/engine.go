// Package tiles fills a grid with rotatable tiles whose touching edges must
// agree, collapsing the most constrained cell first.
package tiles

import (
	"io"
	"log"

	"mapgen/internal/core"
)

// Cell is one slot of the collapsed grid.
type Cell struct {
	Rule     int
	Rotation int
	// Forced marks tiles placed by the best-match fallback. Their edges may
	// disagree with their neighbours.
	Forced bool
	Placed bool
}

// Result holds the outcome of a collapse run.
type Result struct {
	Grid       *core.Grid[Cell]
	Failed     bool
	Forced     int
	Backtracks int
}

type option struct {
	rule    int
	quarter int
}

// Engine owns the working state of a single collapse run.
type Engine struct {
	cfg    Config
	rules  []Rule
	edges  [][4]Edges
	rng    *core.RNG
	logger *log.Logger

	grid       *core.Grid[Cell]
	available  []core.Point
	history    []core.Point
	banned     map[core.Point][]option
	backtracks int
}

// NewEngine validates its inputs and prepares an empty grid. A nil logger
// discards output.
func NewEngine(cfg Config, rules []Rule, logger *log.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := ValidateRules(rules); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	e := &Engine{
		cfg:    cfg,
		rules:  rules,
		edges:  make([][4]Edges, len(rules)),
		rng:    core.NewRNG(cfg.Seed),
		logger: logger,
		grid:   core.NewGrid[Cell](cfg.Width, cfg.Height),
		banned: make(map[core.Point][]option),
	}
	for i, r := range rules {
		for q := 0; q < 4; q++ {
			e.edges[i][q] = r.RotatedEdges(q * 90)
		}
	}
	for x := 0; x < cfg.Width; x++ {
		for y := 0; y < cfg.Height; y++ {
			e.available = append(e.available, core.Pt(x, y))
		}
	}
	return e, nil
}

// Generate collapses a cfg.Width×cfg.Height grid from rules.
func Generate(cfg Config, rules []Rule, logger *log.Logger) (Result, error) {
	e, err := NewEngine(cfg, rules, logger)
	if err != nil {
		return Result{}, err
	}
	return e.Run(), nil
}

// Run places tiles until every position is filled or backtracking is
// exhausted. The returned grid is a snapshot.
func (e *Engine) Run() Result {
	failed := false
	for len(e.available) > 0 {
		p := e.takeLowestEntropy()
		if e.place(p) {
			continue
		}
		if !e.backtrack(p) {
			e.logger.Printf("tiles: backtracking exhausted at (%d,%d) after %d pops", p.X, p.Y, e.backtracks)
			failed = true
			break
		}
	}
	res := Result{
		Grid:       e.grid.Clone(),
		Failed:     failed,
		Backtracks: e.backtracks,
	}
	for _, c := range res.Grid.Cells() {
		if c.Forced {
			res.Forced++
		}
	}
	return res
}

// takeLowestEntropy removes and returns the available position with the
// fewest valid options. The first minimum wins.
func (e *Engine) takeLowestEntropy() core.Point {
	best := 0
	lowest := -1
	for i, p := range e.available {
		n := len(e.validOptions(p))
		if lowest < 0 || n < lowest {
			lowest = n
			best = i
		}
	}
	p := e.available[best]
	e.available = append(e.available[:best], e.available[best+1:]...)
	return p
}

// Entropy reports the number of valid (rule, rotation) pairs at (x, y).
func (e *Engine) Entropy(x, y int) int {
	return len(e.validOptions(core.Pt(x, y)))
}

func (e *Engine) place(p core.Point) bool {
	opts := e.validOptions(p)
	if len(opts) > 0 {
		weights := make([]int, len(opts))
		for i, o := range opts {
			weights[i] = e.rules[o.rule].Weight
		}
		o := opts[e.rng.Weighted(weights)]
		e.set(p, o, false)
		return true
	}
	if !e.cfg.Fallback {
		return false
	}
	o, ok := e.bestMatch(p)
	if !ok {
		return false
	}
	e.logger.Printf("tiles: no valid tile at (%d,%d), forcing %s@%d", p.X, p.Y, e.rules[o.rule].Name, o.quarter*90)
	e.set(p, o, true)
	return true
}

func (e *Engine) set(p core.Point, o option, forced bool) {
	e.grid.Set(p.X, p.Y, Cell{Rule: o.rule, Rotation: o.quarter * 90, Forced: forced, Placed: true})
	e.history = append(e.history, p)
}

// backtrack undoes placements, most recent first, until one of them can be
// replaced by an option not tried there before.
func (e *Engine) backtrack(failed core.Point) bool {
	e.available = append(e.available, failed)
	budget := e.cfg.backtrackBudget()
	for len(e.history) > 0 {
		if e.backtracks >= budget {
			return false
		}
		last := e.history[len(e.history)-1]
		e.history = e.history[:len(e.history)-1]
		e.backtracks++

		c := e.grid.At(last.X, last.Y)
		e.banned[last] = append(e.banned[last], option{rule: c.Rule, quarter: c.Rotation / 90})
		e.grid.Set(last.X, last.Y, Cell{})

		if e.place(last) {
			e.clearBansExcept(last)
			return true
		}
		e.available = append(e.available, last)
	}
	return false
}

// clearBansExcept forgets bans recorded for empty cells other than keep.
// Their neighbourhood changed, so earlier dead ends may now be viable.
func (e *Engine) clearBansExcept(keep core.Point) {
	for p := range e.banned {
		if p != keep && !e.grid.At(p.X, p.Y).Placed {
			delete(e.banned, p)
		}
	}
}

func (e *Engine) isBanned(p core.Point, o option) bool {
	for _, b := range e.banned[p] {
		if b == o {
			return true
		}
	}
	return false
}

func (e *Engine) validOptions(p core.Point) []option {
	var out []option
	for r := range e.rules {
		for q := 0; q < 4; q++ {
			o := option{rule: r, quarter: q}
			if e.isBanned(p, o) {
				continue
			}
			if matched, constrained := e.matchCount(p, e.edges[r][q]); matched == constrained {
				out = append(out, o)
			}
		}
	}
	return out
}

// bestMatch returns the option agreeing with the most placed neighbours.
func (e *Engine) bestMatch(p core.Point) (option, bool) {
	best := option{}
	most := -1
	for r := range e.rules {
		for q := 0; q < 4; q++ {
			o := option{rule: r, quarter: q}
			if e.isBanned(p, o) {
				continue
			}
			if matched, _ := e.matchCount(p, e.edges[r][q]); matched > most {
				most = matched
				best = o
			}
		}
	}
	return best, most >= 0
}

var sideOffsets = [4]core.Point{
	Top:    {X: 0, Y: -1},
	Right:  {X: 1, Y: 0},
	Bottom: {X: 0, Y: 1},
	Left:   {X: -1, Y: 0},
}

// matchCount compares edges against every placed orthogonal neighbour of p
// and returns how many agree out of how many were checked.
func (e *Engine) matchCount(p core.Point, edges Edges) (matched, constrained int) {
	for s := Top; s <= Left; s++ {
		n := p.Add(sideOffsets[s])
		if !e.grid.InBounds(n.X, n.Y) {
			continue
		}
		c := e.grid.At(n.X, n.Y)
		if !c.Placed {
			continue
		}
		constrained++
		if Match(edges[s], e.edges[c.Rule][c.Rotation/90][s.Opposite()]) {
			matched++
		}
	}
	return matched, constrained
}

// Mismatches lists cells whose edge disagrees with a neighbour where
// neither of the two was forced. Each pair is reported once, from its west
// or north cell.
func Mismatches(g *core.Grid[Cell], rules []Rule) []core.Point {
	var out []core.Point
	for y := 0; y < g.H; y++ {
		for x := 0; x < g.W; x++ {
			a := g.At(x, y)
			if !a.Placed || a.Forced {
				continue
			}
			ae := rules[a.Rule].RotatedEdges(a.Rotation)
			for _, s := range []Side{Right, Bottom} {
				n := core.Pt(x, y).Add(sideOffsets[s])
				if !g.InBounds(n.X, n.Y) {
					continue
				}
				b := g.At(n.X, n.Y)
				if !b.Placed || b.Forced {
					continue
				}
				if !Match(ae[s], rules[b.Rule].RotatedEdges(b.Rotation)[s.Opposite()]) {
					out = append(out, core.Pt(x, y))
				}
			}
		}
	}
	return out
}
