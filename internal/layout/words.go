package layout

import "strings"

const (
	// ProximityTolerance is the largest horizontal gap between two runs that
	// still belong to the same word.
	ProximityTolerance = 0.5
	// TabWidth is the width above which a space run inside a word is
	// re-encoded as a tab, marking a column boundary.
	TabWidth = 12.0
)

// Word is a contiguous group of runs merged into one string. Left and Right
// span the first and last run; Top and Bottom come from the first run.
type Word struct {
	Str    string
	Runs   []Run
	Left   float64
	Right  float64
	Top    float64
	Bottom float64
}

// AsRun collapses the word into a single run flagged as end of word, so a
// word list can be fed back through a grouping strategy.
func (w Word) AsRun() Run {
	r := NewRun(w.Str, Matrix{1, 0, 0, 1, w.Left, w.Bottom}, w.Right-w.Left, w.Bottom-w.Top, true)
	r.Right = w.Right
	r.Top = w.Top
	return r
}

// Strategy selects how runs on a line are merged into words. Different PDF
// producers tokenize text differently, so each issuer picks one.
type Strategy int

const (
	// Delimiter splits on explicit space runs and end-of-line flags.
	Delimiter Strategy = iota
	// Proximity splits on horizontal gaps between runs.
	Proximity
)

func (s Strategy) String() string {
	switch s {
	case Delimiter:
		return "delimiter"
	case Proximity:
		return "proximity"
	default:
		return "unknown"
	}
}

// Group merges the runs of each line into words. Words keep left-to-right
// order within a line and line order across the page.
func (s Strategy) Group(lines []Line) []Word {
	if s == Proximity {
		return GroupByProximity(lines)
	}
	return GroupByDelimiters(lines)
}

// Words groups already normalized runs into lines and then into words.
func (s Strategy) Words(runs []Run, epsilon float64) []Word {
	return s.Group(GroupLines(runs, epsilon))
}

// GroupByDelimiters closes a word at every single-space run and at every run
// flagged as end of line. Space runs are boundaries and never part of a word.
func GroupByDelimiters(lines []Line) []Word {
	var words []Word
	for _, line := range lines {
		var acc []Run
		flush := func() {
			if w, ok := newWord(acc, false); ok {
				words = append(words, w)
			}
			acc = nil
		}
		for _, r := range line.Runs {
			switch {
			case r.EOL:
				if !r.IsBlank() {
					acc = append(acc, r)
				}
				flush()
			case r.Str == " ":
				flush()
			case r.Str == "":
			default:
				acc = append(acc, r)
			}
		}
		flush()
	}
	return words
}

// GroupByProximity closes a word whenever the gap between the previous run's
// right edge and the next run's left edge exceeds ProximityTolerance. Wide
// spaces inside a word become tabs so column layouts stay detectable.
func GroupByProximity(lines []Line) []Word {
	var words []Word
	for _, line := range lines {
		var acc []Run
		var lastRight float64
		flush := func() {
			if w, ok := newWord(acc, true); ok {
				words = append(words, w)
			}
			acc = nil
		}
		for _, r := range line.Runs {
			if r.Str == "" {
				continue
			}
			if len(acc) > 0 && r.Left-lastRight > ProximityTolerance {
				flush()
			}
			acc = append(acc, r)
			lastRight = r.Right
		}
		flush()
	}
	return words
}

// newWord trims blank runs from both ends of acc and joins the rest.
func newWord(acc []Run, encodeTabs bool) (Word, bool) {
	start, end := 0, len(acc)
	for start < end && acc[start].IsBlank() {
		start++
	}
	for end > start && acc[end-1].IsBlank() {
		end--
	}
	if start == end {
		return Word{}, false
	}
	runs := append([]Run(nil), acc[start:end]...)

	var b strings.Builder
	for _, r := range runs {
		if encodeTabs && r.Str == " " && r.Width > TabWidth {
			b.WriteByte('\t')
			continue
		}
		b.WriteString(r.Str)
	}

	first, last := runs[0], runs[len(runs)-1]
	return Word{
		Str:    b.String(),
		Runs:   runs,
		Left:   first.Left,
		Right:  last.Right,
		Top:    first.Top,
		Bottom: first.Bottom,
	}, true
}
