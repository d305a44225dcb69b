package replay

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"
)

var (
	brand  = color.New(color.FgHiGreen, color.Bold)
	subtle = color.New(color.FgHiBlack)
	hot    = color.New(color.FgGreen)
	warm   = color.New(color.FgYellow)
	cold   = color.New(color.FgRed)
	target = color.New(color.FgCyan, color.Bold)
)

// Print writes a human-readable report to w.
func Print(w io.Writer, rep *Report) {
	brand.Fprintf(w, "wordgraph replay")
	subtle.Fprintf(w, "  variant=%s frames=%d took=%s\n\n", rep.Variant, rep.Frames, rep.Duration.Round(1e6))

	for i, rr := range rep.Rounds {
		status := hot.Sprint("settled")
		if !rr.Settled {
			status = cold.Sprint("moving")
		}
		fmt.Fprintf(w, "Round %d  %s  %s after %d ticks\n", i+1, target.Sprint(rr.Word), status, rr.Ticks)

		nodes := append([]Placement(nil), rr.Nodes...)
		sort.SliceStable(nodes, func(a, b int) bool {
			if nodes[a].IsTarget != nodes[b].IsTarget {
				return nodes[a].IsTarget
			}
			return nodes[a].Score > nodes[b].Score
		})
		rows := make([][]string, 0, len(nodes))
		for _, p := range nodes {
			rows = append(rows, []string{
				p.ID,
				fmt.Sprintf("%.0f", p.Score),
				fmt.Sprintf("%.1f", p.X),
				fmt.Sprintf("%.1f", p.Y),
			})
		}
		table(w, []string{"WORD", "SCORE", "X", "Y"}, rows, func(row int, cell string) string {
			if nodes[row].IsTarget {
				return target.Sprint(cell)
			}
			return scoreColor(nodes[row].Score).Sprint(cell)
		})

		if len(rr.Rejected) > 0 {
			words := make([]string, 0, len(rr.Rejected))
			for g := range rr.Rejected {
				words = append(words, g)
			}
			sort.Strings(words)
			for _, g := range words {
				subtle.Fprintf(w, "  rejected %q: %s\n", g, rr.Rejected[g])
			}
		}
		fmt.Fprintln(w)
	}
}

func scoreColor(score float64) *color.Color {
	switch {
	case score >= hotScore:
		return hot
	case score >= warmScore:
		return warm
	default:
		return cold
	}
}

// table prints an aligned table; paint colors each cell after padding so
// escape codes do not skew the widths.
func table(w io.Writer, headers []string, rows [][]string, paint func(row int, cell string) string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	header, sep := "  ", "  "
	for i, h := range headers {
		header += fmt.Sprintf("%-*s  ", widths[i], h)
		sep += strings.Repeat("-", widths[i]) + "  "
	}
	subtle.Fprintln(w, header)
	subtle.Fprintln(w, sep)

	for r, row := range rows {
		line := "  "
		for i, cell := range row {
			if i < len(widths) {
				line += paint(r, fmt.Sprintf("%-*s", widths[i], cell)) + "  "
			}
		}
		fmt.Fprintln(w, line)
	}
}
