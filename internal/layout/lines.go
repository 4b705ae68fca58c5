package layout

import (
	"math"
	"sort"
)

// Line is the set of runs sharing one bottom value, sorted left to right.
type Line struct {
	Bottom float64
	Runs   []Run
}

// GroupLines groups runs into lines by their bottom edge and returns the lines
// ordered top to bottom. Bottom is used rather than top because zero-height
// runs such as spaces share the baseline of a line but not its cap height.
//
// With epsilon <= 0 bottoms must match exactly. A positive epsilon snaps each
// bottom to the nearest multiple of epsilon first, for extractors that jitter.
func GroupLines(runs []Run, epsilon float64) []Line {
	byBottom := make(map[float64][]Run)
	for _, r := range runs {
		key := r.Bottom
		if epsilon > 0 {
			key = math.Round(r.Bottom/epsilon) * epsilon
		}
		byBottom[key] = append(byBottom[key], r)
	}

	bottoms := make([]float64, 0, len(byBottom))
	for b := range byBottom {
		bottoms = append(bottoms, b)
	}
	sort.Float64s(bottoms)

	lines := make([]Line, 0, len(bottoms))
	for _, b := range bottoms {
		items := byBottom[b]
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].Left < items[j].Left
		})
		lines = append(lines, Line{Bottom: b, Runs: items})
	}
	return lines
}
