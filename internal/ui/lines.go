package ui

import (
	"fmt"

	"mapgen/internal/core"
)

// Line is one row of HUD text. Headers are drawn brighter.
type Line struct {
	Text   string
	Header bool
}

// PanelLines flattens status rows and a parameter snapshot into the rows
// the HUD draws. maxWidth truncates long rows in characters; zero keeps
// them whole.
func PanelLines(status []string, snap core.ParameterSnapshot, maxWidth int) []Line {
	var out []Line
	for _, s := range status {
		out = append(out, Line{Text: truncate(s, maxWidth)})
	}
	for _, g := range snap.Groups {
		if len(out) > 0 {
			out = append(out, Line{})
		}
		out = append(out, Line{Text: truncate(g.Name, maxWidth), Header: true})
		if g.Summary != "" {
			out = append(out, Line{Text: truncate("  "+g.Summary, maxWidth)})
		}
		for _, p := range g.Params {
			label := p.Label
			if label == "" {
				label = p.Key
			}
			out = append(out, Line{Text: truncate(fmt.Sprintf("  %s: %s", label, p.Value), maxWidth)})
		}
	}
	return out
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n == 1 {
		return "~"
	}
	return string(r[:n-1]) + "~"
}
