package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/wricardo/mcp-training/gridshare/game/service"
)

// Analysis is a summary of a grid snapshot
type Analysis struct {
	Rows, Cols int
	Cells      int
	// Count of cells per value, indexed by value.
	ByValue []int
	Filled  int
	// Densest rows and columns, most filled first.
	TopRows []LineCount
	TopCols []LineCount
	// Groups of non-zero cells joined through their edges.
	Clusters       int
	LargestCluster int
}

// LineCount is the number of non-zero cells in one row or column
type LineCount struct {
	Line   int
	Filled int
}

const topLines = 3

func analyze(view *service.GridView) Analysis {
	a := Analysis{
		Rows:    view.Rows,
		Cols:    view.Cols,
		Cells:   len(view.State),
		ByValue: make([]int, max(view.States, 1)),
	}

	rows := make([]LineCount, view.Rows)
	cols := make([]LineCount, view.Cols)
	for i := range rows {
		rows[i].Line = i
	}
	for i := range cols {
		cols[i].Line = i
	}

	for r := 0; r < view.Rows; r++ {
		for c := 0; c < view.Cols; c++ {
			v := int(view.At(r, c))
			if v >= 0 && v < len(a.ByValue) {
				a.ByValue[v]++
			}
			if v != 0 {
				a.Filled++
				rows[r].Filled++
				cols[c].Filled++
			}
		}
	}

	a.TopRows = topFilled(rows)
	a.TopCols = topFilled(cols)
	a.Clusters, a.LargestCluster = clusters(view)
	return a
}

func topFilled(lines []LineCount) []LineCount {
	sorted := append([]LineCount(nil), lines...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Filled > sorted[j].Filled
	})

	var top []LineCount
	for _, l := range sorted {
		if l.Filled == 0 || len(top) == topLines {
			break
		}
		top = append(top, l)
	}
	return top
}

// clusters counts 4-connected groups of non-zero cells with an iterative
// flood fill.
func clusters(view *service.GridView) (count, largest int) {
	seen := make([]bool, len(view.State))
	var stack []int

	for start, v := range view.State {
		if v == 0 || seen[start] {
			continue
		}

		count++
		size := 0
		seen[start] = true
		stack = append(stack[:0], start)
		for len(stack) > 0 {
			i := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			size++

			r, c := i/view.Cols, i%view.Cols
			for _, n := range [][2]int{{r - 1, c}, {r + 1, c}, {r, c - 1}, {r, c + 1}} {
				if n[0] < 0 || n[0] >= view.Rows || n[1] < 0 || n[1] >= view.Cols {
					continue
				}
				j := n[0]*view.Cols + n[1]
				if view.State[j] != 0 && !seen[j] {
					seen[j] = true
					stack = append(stack, j)
				}
			}
		}
		largest = max(largest, size)
	}
	return count, largest
}

func printAnalysis(w io.Writer, a Analysis) {
	fmt.Fprintf(w, "Grid: %dx%d (%d cells)\n", a.Rows, a.Cols, a.Cells)
	fmt.Fprintf(w, "Filled: %d (%.1f%%)\n", a.Filled, percent(a.Filled, a.Cells))
	for v, n := range a.ByValue {
		fmt.Fprintf(w, "  value %d: %d\n", v, n)
	}

	printLines := func(label string, lines []LineCount) {
		if len(lines) == 0 {
			fmt.Fprintf(w, "%s: none\n", label)
			return
		}
		fmt.Fprintf(w, "%s:", label)
		for _, l := range lines {
			fmt.Fprintf(w, " %d (%d)", l.Line, l.Filled)
		}
		fmt.Fprintln(w)
	}
	printLines("Densest rows", a.TopRows)
	printLines("Densest cols", a.TopCols)

	fmt.Fprintf(w, "Clusters: %d (largest %d cells)\n", a.Clusters, a.LargestCluster)
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}
