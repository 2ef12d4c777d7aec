package ui

import (
	"testing"

	"mapgen/internal/core"
)

func TestPanelLines(t *testing.T) {
	snap := core.ParameterSnapshot{Groups: []core.ParameterGroup{
		{Name: "Map", Summary: "voronoi → terrain", Params: []core.Parameter{core.Int64Param("seed", "Seed", 42)}},
		{Name: "Tiles", Params: []core.Parameter{{Key: "fallback", Value: "true"}}},
	}}
	lines := PanelLines([]string{"stage 1/2"}, snap, 0)
	want := []Line{
		{Text: "stage 1/2"},
		{},
		{Text: "Map", Header: true},
		{Text: "  voronoi → terrain"},
		{Text: "  Seed: 42"},
		{},
		{Text: "Tiles", Header: true},
		{Text: "  fallback: true"},
	}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines: %+v", len(lines), lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Fatalf("line %d = %+v, want %+v", i, lines[i], want[i])
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("abcdef", 4); got != "abc~" {
		t.Fatalf("truncate = %q", got)
	}
	if got := truncate("ab", 4); got != "ab" {
		t.Fatalf("short string changed: %q", got)
	}
	if got := truncate("→→→", 2); got != "→~" {
		t.Fatalf("runes split: %q", got)
	}
}
