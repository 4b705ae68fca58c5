package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run builds a normalized run at (left, bottom) with the given size.
func run(s string, left, bottom, width, height float64) Run {
	return NewRun(s, Matrix{height, 0, 0, height, left, bottom}, width, height, false)
}

func TestMatrixMultiply(t *testing.T) {
	viewport := Viewport(0, 0, 612, 792)
	text := Matrix{10, 0, 0, 10, 47, 692}

	got := viewport.Multiply(text)

	assert.Equal(t, Matrix{10, 0, 0, -10, 47, 100}, got)
	assert.Equal(t, text, Identity.Multiply(text))
}

func TestNormalize(t *testing.T) {
	raws := []RawRun{
		{Str: "05", Transform: []float64{8, 0, 0, 8, 47, 692}, Width: 9, Height: 8},
		{Str: "JAN", Transform: []float64{8, 0, 0, 0, 8, 0, 58, 692, 1}, Width: 14, Height: 8},
		{Str: "broken", Transform: []float64{1, 2}, Width: 5, Height: 8},
		{Str: "missing", Width: 5, Height: 8},
	}

	runs := Normalize(Viewport(0, 0, 612, 792), raws)
	require.Len(t, runs, 4)

	assert.Equal(t, 47.0, runs[0].Left)
	assert.Equal(t, 56.0, runs[0].Right)
	assert.Equal(t, 100.0, runs[0].Bottom)
	assert.Equal(t, 92.0, runs[0].Top)
	assert.Equal(t, 58.0, runs[1].Left)
	assert.Equal(t, 100.0, runs[1].Bottom)

	// The input is left untouched.
	assert.Equal(t, []float64{8, 0, 0, 8, 47, 692}, raws[0].Transform)

	kept := FilterRotated(runs)
	require.Len(t, kept, 2)
	assert.Equal(t, "05", kept[0].Str)
	assert.Equal(t, "JAN", kept[1].Str)
}

func TestFilterRotated(t *testing.T) {
	upright := NewRun("AMOUNT", Matrix{9, 0, 0, 9, 10, 20}, 30, 9, false)
	watermark := NewRun("COPY", Matrix{0, 9, -9, 0, 300, 400}, 30, 9, false)
	sheared := NewRun("DRAFT", Matrix{9, 0, 2, 9, 300, 400}, 30, 9, false)

	got := FilterRotated([]Run{upright, watermark, sheared})

	require.Len(t, got, 1)
	assert.Equal(t, "AMOUNT", got[0].Str)
	assert.True(t, IsNotRotated(Identity))
	assert.False(t, IsNotRotated(watermark.Transform))
}

func TestPageRuns(t *testing.T) {
	page := Page{
		Number:    1,
		Transform: Viewport(0, 0, 612, 792),
		Runs: []RawRun{
			{Str: "A", Transform: []float64{1, 0, 0, 1, 10, 700}, Width: 5, Height: 6},
			{Str: "B", Transform: []float64{0, 1, -1, 0, 10, 700}, Width: 5, Height: 6},
		},
	}

	got := PageRuns(page)

	require.Len(t, got, 1)
	assert.Equal(t, 92.0, got[0].Bottom)
}

func TestGroupLines(t *testing.T) {
	runs := []Run{
		run("c", 30, 300, 5, 8),
		run("b", 20, 100, 5, 8),
		run("a", 10, 100, 5, 8),
		run("e", 5, 200, 5, 8),
		run("d", 50, 300, 5, 8),
	}

	lines := GroupLines(runs, 0)

	require.Len(t, lines, 3)
	assert.Equal(t, []float64{100, 200, 300}, []float64{lines[0].Bottom, lines[1].Bottom, lines[2].Bottom})
	assert.Equal(t, "a", lines[0].Runs[0].Str)
	assert.Equal(t, "b", lines[0].Runs[1].Str)
	assert.Equal(t, "e", lines[1].Runs[0].Str)
	assert.Equal(t, "c", lines[2].Runs[0].Str)
	assert.Equal(t, "d", lines[2].Runs[1].Str)
}

func TestGroupLinesEpsilon(t *testing.T) {
	runs := []Run{
		run("a", 10, 100.02, 5, 8),
		run("b", 20, 99.98, 5, 8),
		run("c", 10, 120, 5, 8),
	}

	assert.Len(t, GroupLines(runs, 0), 3)

	lines := GroupLines(runs, 0.5)
	require.Len(t, lines, 2)
	assert.Len(t, lines[0].Runs, 2)
	assert.Equal(t, "a", lines[0].Runs[0].Str)
}

func TestGroupLinesZeroHeightSpace(t *testing.T) {
	// Spaces have no height, so their top differs from the letters around
	// them while their bottom matches.
	runs := []Run{
		run("A", 10, 100, 5, 8),
		run(" ", 15, 100, 2, 0),
		run("B", 17, 100, 5, 8),
	}

	lines := GroupLines(runs, 0)

	require.Len(t, lines, 1)
	assert.Len(t, lines[0].Runs, 3)
}

func TestGroupByDelimiters(t *testing.T) {
	eol := run("X", 80, 100, 5, 8)
	eol.EOL = true
	lines := GroupLines([]Run{
		run("0", 47, 100, 4, 8),
		run("5", 51, 100, 4, 8),
		run(" ", 55, 100, 3, 0),
		run("J", 58, 100, 4, 8),
		run("A", 62, 100, 4, 8),
		run("N", 66, 100, 4, 8),
		run(" ", 70, 100, 3, 0),
		run(" ", 73, 100, 3, 0),
		eol,
		run("Y", 90, 100, 5, 8),
		run("N", 10, 120, 4, 8),
		run("", 14, 120, 0, 8),
		run("O", 14, 120, 4, 8),
	}, 0)

	words := GroupByDelimiters(lines)

	require.Len(t, words, 5)
	assert.Equal(t, "05", words[0].Str)
	assert.Equal(t, 47.0, words[0].Left)
	assert.Equal(t, 55.0, words[0].Right)
	assert.Len(t, words[0].Runs, 2)
	assert.Equal(t, "JAN", words[1].Str)
	assert.Equal(t, 70.0, words[1].Right)
	assert.Equal(t, "X", words[2].Str)
	assert.Equal(t, "Y", words[3].Str)
	assert.Equal(t, "NO", words[4].Str)
	assert.Equal(t, 120.0, words[4].Bottom)
}

func TestGroupByProximity(t *testing.T) {
	lines := GroupLines([]Run{
		run("C", 100, 100, 5, 8),
		run("O", 105, 100, 5, 8),
		run(" ", 110, 100, 3, 0),
		run("S", 113, 100, 5, 8),
		run(" ", 118, 100, 20, 0),
		run("1", 138, 100, 5, 8),
		run(" ", 143, 100, 3, 0),
		run("(", 300, 100, 3, 8),
		run("9", 303.25, 100, 5, 8),
		run(")", 308.25, 100, 3, 8),
		run("zero", 400, 100, 0, 8),
	}, 0)

	words := GroupByProximity(lines)

	require.Len(t, words, 3)
	assert.Equal(t, "CO S\t1", words[0].Str)
	assert.Equal(t, 100.0, words[0].Left)
	assert.Equal(t, 143.0, words[0].Right)
	assert.Len(t, words[0].Runs, 6)
	assert.Equal(t, "(9)", words[1].Str)
	assert.Equal(t, 311.25, words[1].Right)
	assert.Equal(t, "zero", words[2].Str, "zero-width glyphs are kept")
	assert.Equal(t, 400.0, words[2].Right)
}

func TestGroupByProximityTolerance(t *testing.T) {
	tests := []struct {
		name  string
		gap   float64
		words int
	}{
		{"touching", 0, 1},
		{"within tolerance", 0.5, 1},
		{"beyond tolerance", 0.75, 2},
		{"overlapping", -1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines := GroupLines([]Run{
				run("a", 10, 50, 5, 8),
				run("b", 15+tt.gap, 50, 5, 8),
			}, 0)
			assert.Len(t, GroupByProximity(lines), tt.words)
		})
	}
}

func TestWordGroupingIdempotent(t *testing.T) {
	runs := []Run{
		run("0", 47, 100, 4, 8),
		run("5", 51, 100, 4, 8),
		run(" ", 55, 100, 3, 0),
		run("J", 58, 100, 4, 8),
		run("A", 62, 100, 4, 8),
		run("N", 66, 100, 4, 8),
		run(" ", 70, 100, 20, 0),
		run("X", 90, 100, 4, 8),
		run("(", 540, 100, 4, 8),
		run("1", 544, 100, 4, 8),
		run(")", 548, 100, 4, 8),
		run("S", 100, 112, 4, 8),
	}

	for _, s := range []Strategy{Delimiter, Proximity} {
		t.Run(s.String(), func(t *testing.T) {
			first := s.Words(runs, 0)
			require.NotEmpty(t, first)

			again := make([]Run, 0, len(first))
			for _, w := range first {
				again = append(again, w.AsRun())
			}
			second := s.Words(again, 0)

			require.Len(t, second, len(first))
			for i := range first {
				assert.Equal(t, first[i].Str, second[i].Str)
				assert.Equal(t, first[i].Left, second[i].Left)
				assert.Equal(t, first[i].Right, second[i].Right)
				assert.Equal(t, first[i].Top, second[i].Top)
				assert.Equal(t, first[i].Bottom, second[i].Bottom)
			}
		})
	}
}

func TestStrategyString(t *testing.T) {
	assert.Equal(t, "delimiter", Delimiter.String())
	assert.Equal(t, "proximity", Proximity.String())
	assert.Equal(t, "unknown", Strategy(9).String())
}
