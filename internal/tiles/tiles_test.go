package tiles

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"mapgen/internal/core"
)

func sig(labels ...string) Signature { return Signature(labels) }

func numbered() Rule {
	return Rule{
		Name:   "numbered",
		Weight: 1,
		Top:    sig("1", "2", "3"),
		Right:  sig("4", "5", "6"),
		Bottom: sig("7", "8", "9"),
		Left:   sig("10", "11", "12"),
	}
}

func equalEdges(a, b Edges) bool {
	for s := range a {
		if !slices.Equal(a[s], b[s]) {
			return false
		}
	}
	return true
}

func TestRotatedEdgesIdentities(t *testing.T) {
	r := numbered()
	if !equalEdges(r.RotatedEdges(0), r.Edges()) {
		t.Fatal("rotation 0 must keep authored edges")
	}
	if !equalEdges(r.RotatedEdges(360), r.RotatedEdges(0)) {
		t.Fatal("rotation 360 must equal rotation 0")
	}
	if !equalEdges(r.RotatedEdges(-90), r.RotatedEdges(270)) {
		t.Fatal("rotation -90 must equal rotation 270")
	}
	e := r.Edges()
	for i := 0; i < 4; i++ {
		e = quarterTurn(e)
	}
	if !equalEdges(e, r.Edges()) {
		t.Fatal("four quarter turns must restore the tile")
	}
}

func TestRotatedEdgesQuarterTurn(t *testing.T) {
	got := numbered().RotatedEdges(90)
	want := Edges{
		sig("12", "11", "10"),
		sig("1", "2", "3"),
		sig("6", "5", "4"),
		sig("7", "8", "9"),
	}
	if !equalEdges(got, want) {
		t.Fatalf("rotated 90 = %v, want %v", got, want)
	}
	half := numbered().RotatedEdges(180)
	if !slices.Equal(half[Top], sig("9", "8", "7")) || !slices.Equal(half[Left], sig("6", "5", "4")) {
		t.Fatalf("rotated 180 = %v", half)
	}
}

func TestRotatedEdgesDoesNotAlias(t *testing.T) {
	r := numbered()
	e := r.RotatedEdges(90)
	e[Top][0] = "x"
	if r.Left[2] != "12" {
		t.Fatal("rotation aliased the authored signature")
	}
}

func checkerRules() []Rule {
	a := Rule{
		Name:   "a",
		Weight: 1,
		Top:    sig("u", "u", "u"),
		Right:  sig("r", "r", "r"),
		Bottom: sig("d", "d", "d"),
		Left:   sig("l", "l", "l"),
	}
	e := a.RotatedEdges(180)
	b := Rule{Name: "b", Weight: 1, Top: e[Top], Right: e[Right], Bottom: e[Bottom], Left: e[Left]}
	return []Rule{a, b}
}

func TestCheckerboardFillsGrid(t *testing.T) {
	rules := checkerRules()
	cfg := DefaultConfig()
	cfg.Width, cfg.Height, cfg.Seed = 4, 4, 3
	res, err := Generate(cfg, rules, nil)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if res.Failed || res.Forced != 0 {
		t.Fatalf("failed=%v forced=%d", res.Failed, res.Forced)
	}
	for i, c := range res.Grid.Cells() {
		if !c.Placed {
			t.Fatalf("cell %d left empty", i)
		}
	}
	if m := Mismatches(res.Grid, rules); len(m) != 0 {
		t.Fatalf("edge mismatches at %v", m)
	}
	// Cells of equal parity present identical edges.
	edgesAt := func(x, y int) Edges {
		c := res.Grid.At(x, y)
		return rules[c.Rule].RotatedEdges(c.Rotation)
	}
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			ref := edgesAt((x+y)%2, 0)
			if !equalEdges(edgesAt(x, y), ref) {
				t.Fatalf("cell (%d,%d) breaks the checkerboard", x, y)
			}
		}
	}
}

func TestGenerateDeterministic(t *testing.T) {
	rs, err := DefaultRuleSet()
	if err != nil {
		t.Fatalf("default rules: %v", err)
	}
	cfg := DefaultConfig()
	cfg.Width, cfg.Height, cfg.Seed = 10, 8, 42
	a, err := Generate(cfg, rs.Rules, nil)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	b, _ := Generate(cfg, rs.Rules, nil)
	if !core.EqualGrids(a.Grid, b.Grid) {
		t.Fatal("same seed produced different tilemaps")
	}
}

func TestDefaultRulesSatisfyAdjacency(t *testing.T) {
	rs, err := DefaultRuleSet()
	if err != nil {
		t.Fatalf("default rules: %v", err)
	}
	for seed := int64(0); seed < 5; seed++ {
		cfg := DefaultConfig()
		cfg.Width, cfg.Height, cfg.Seed = 12, 12, seed
		res, err := Generate(cfg, rs.Rules, nil)
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if res.Failed {
			t.Fatalf("seed %d failed with fallback enabled", seed)
		}
		for i, c := range res.Grid.Cells() {
			if !c.Placed {
				t.Fatalf("seed %d: cell %d left empty", seed, i)
			}
		}
		if m := Mismatches(res.Grid, rs.Rules); len(m) != 0 {
			t.Fatalf("seed %d: mismatches at %v", seed, m)
		}
	}
}

func TestFallbackForcesUnmatchableTiles(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Width, cfg.Height = 2, 2
	res, err := Generate(cfg, []Rule{numbered()}, nil)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if res.Failed {
		t.Fatal("fallback run must not fail")
	}
	if res.Forced != 3 {
		t.Fatalf("forced = %d, want 3", res.Forced)
	}
	if first := res.Grid.At(0, 0); first.Forced || !first.Placed {
		t.Fatalf("first cell should be placed freely: %+v", first)
	}
	for _, p := range []core.Point{core.Pt(0, 1), core.Pt(1, 0), core.Pt(1, 1)} {
		c := res.Grid.At(p.X, p.Y)
		if !c.Forced || c.Rotation != 0 {
			t.Fatalf("cell %v = %+v, want forced first option", p, c)
		}
	}
}

func TestStrictModeExhaustsBacktracking(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Width, cfg.Height = 1, 2
	cfg.Fallback = false
	res, err := Generate(cfg, []Rule{numbered()}, nil)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !res.Failed {
		t.Fatal("expected failure")
	}
	if res.Backtracks != 4 {
		t.Fatalf("backtracks = %d, want 4", res.Backtracks)
	}

	cfg.MaxBacktracks = 2
	res, _ = Generate(cfg, []Rule{numbered()}, nil)
	if !res.Failed || res.Backtracks != 2 {
		t.Fatalf("budgeted run failed=%v backtracks=%d", res.Failed, res.Backtracks)
	}
}

func TestStrictModeRecoversByBacktracking(t *testing.T) {
	// Only the unrotated tile presents [x y] at its bottom and nothing ever
	// presents it at its top.
	dead := Rule{
		Name:   "dead",
		Weight: 1,
		Top:    sig("a", "a"),
		Right:  sig("a", "a"),
		Bottom: sig("x", "y"),
		Left:   sig("a", "a"),
	}
	recovered := 0
	for seed := int64(0); seed < 64; seed++ {
		cfg := Config{Width: 1, Height: 2, Seed: seed}
		res, err := Generate(cfg, []Rule{dead}, nil)
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if res.Failed || res.Forced != 0 {
			t.Fatalf("seed %d: failed=%v forced=%d", seed, res.Failed, res.Forced)
		}
		if top := res.Grid.At(0, 0); top.Rotation == 0 {
			t.Fatalf("seed %d: dead-end orientation survived", seed)
		}
		if m := Mismatches(res.Grid, []Rule{dead}); len(m) != 0 {
			t.Fatalf("seed %d: mismatches %v", seed, m)
		}
		if res.Backtracks > 1 {
			t.Fatalf("seed %d: %d backtracks", seed, res.Backtracks)
		}
		recovered += res.Backtracks
	}
	if recovered == 0 {
		t.Fatal("no seed exercised backtracking")
	}
}

func TestEntropyCountsOptions(t *testing.T) {
	rules := checkerRules()
	e, err := NewEngine(Config{Width: 3, Height: 3}, rules, nil)
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	if n := e.Entropy(1, 1); n != 8 {
		t.Fatalf("unconstrained entropy = %d, want 8", n)
	}
	e.set(core.Pt(0, 1), option{rule: 0, quarter: 0}, false)
	// West neighbour presents r on its right; only a@180 and b@0 show r on the left.
	if n := e.Entropy(1, 1); n != 2 {
		t.Fatalf("constrained entropy = %d, want 2", n)
	}
}

func TestDegenerateInput(t *testing.T) {
	good := []Rule{numbered()}
	short := numbered()
	short.Left = sig("1", "2")
	light := numbered()
	light.Weight = 0
	cases := []struct {
		name  string
		cfg   Config
		rules []Rule
	}{
		{"empty rules", DefaultConfig(), nil},
		{"zero width", Config{Width: 0, Height: 3}, good},
		{"zero height", Config{Width: 3, Height: 0}, good},
		{"short signature", DefaultConfig(), []Rule{short}},
		{"zero weight", DefaultConfig(), []Rule{light}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := Generate(tc.cfg, tc.rules, nil)
			if !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
			if res.Grid != nil {
				t.Fatal("no grid expected on configuration error")
			}
		})
	}
}

func TestParseRuleSet(t *testing.T) {
	rs, err := ParseRuleSet([]byte(`
name: tiny
tiles:
  - name: plain
    top: [a]
    right: [a]
    bottom: [a]
    left: [a]
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if rs.Name != "tiny" || len(rs.Rules) != 1 || rs.Rules[0].Weight != 1 {
		t.Fatalf("unexpected rule set %+v", rs)
	}
	if rs.Index("plain") != 0 || rs.Index("missing") != -1 {
		t.Fatal("Index lookup broken")
	}

	for name, doc := range map[string]string{
		"missing left":  "tiles: [{name: a, top: [a], right: [a], bottom: [a]}]",
		"zero weight":   "tiles: [{name: a, weight: 0, top: [a], right: [a], bottom: [a], left: [a]}]",
		"unknown field": "tiles: [{name: a, colour: red, top: [a], right: [a], bottom: [a], left: [a]}]",
		"no tiles":      "name: empty\ntiles: []\n",
		"not yaml":      "tiles: [",
		"width drift":   "tiles: [{name: a, top: [a, b], right: [a], bottom: [a], left: [a]}]",
	} {
		if _, err := ParseRuleSet([]byte(doc)); !errors.Is(err, ErrInvalidConfig) {
			t.Fatalf("%s: expected ErrInvalidConfig, got %v", name, err)
		}
	}
}

func TestLoadRuleSet(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	if err := os.WriteFile(path, []byte("tiles:\n  - {name: a, weight: 2, top: [x], right: [x], bottom: [x], left: [x]}\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	rs, err := LoadRuleSet(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(rs.Rules) != 1 || rs.Rules[0].Weight != 2 {
		t.Fatalf("unexpected rules %+v", rs.Rules)
	}
	if _, err := LoadRuleSet(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestDefaultRuleSetLoads(t *testing.T) {
	rs, err := DefaultRuleSet()
	if err != nil {
		t.Fatalf("default rules: %v", err)
	}
	for _, name := range []string{"grass", "road", "water", "shore"} {
		if rs.Index(name) < 0 {
			t.Fatalf("default rules miss %q", name)
		}
	}
}
