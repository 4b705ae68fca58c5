// Package layout turns the positioned text runs of a PDF page into lines and
// words that column heuristics can work with.
//
// Coordinates are in viewport space: x grows to the right and y grows down
// the page, so a larger bottom value means a line lower on the page.
package layout

// Matrix is a 2D affine transform [a b c d e f], the same layout PDF uses for
// text and page matrices. (e, f) is the translation.
type Matrix [6]float64

// Identity is the transform that leaves coordinates unchanged.
var Identity = Matrix{1, 0, 0, 1, 0, 0}

// Multiply composes m with n so that applying the result equals applying n
// first and then m.
func (m Matrix) Multiply(n Matrix) Matrix {
	return Matrix{
		m[0]*n[0] + m[2]*n[1],
		m[1]*n[0] + m[3]*n[1],
		m[0]*n[2] + m[2]*n[3],
		m[1]*n[2] + m[3]*n[3],
		m[0]*n[4] + m[2]*n[5] + m[4],
		m[1]*n[4] + m[3]*n[5] + m[5],
	}
}

// Viewport returns the page transform that maps PDF user space (y up) for the
// given MediaBox into viewport space (y down) at scale 1.
func Viewport(llx, lly, urx, ury float64) Matrix {
	return Matrix{1, 0, 0, -1, -llx, ury}
}

// RawRun is one text run as emitted by the text extractor, before
// normalization. Transform may hold 6 values (2x3) or 9 values (3x3, row
// major); anything else marks the run as unusable.
type RawRun struct {
	Str       string
	Transform []float64
	Width     float64
	Height    float64
	// EOL is set by extractors that flag the last run of a text line.
	EOL bool
}

// Page is the extractor's view of a single page.
type Page struct {
	Number    int
	Transform Matrix
	Runs      []RawRun
}

// Run is a normalized run with its derived box. The box is computed once in
// NewRun and never changes afterwards.
type Run struct {
	Str       string
	Transform Matrix
	Width     float64
	Height    float64
	EOL       bool

	Left   float64
	Right  float64
	Top    float64
	Bottom float64

	unusable bool
}

// NewRun builds a Run and derives its box from the transform translation.
func NewRun(str string, m Matrix, width, height float64, eol bool) Run {
	return Run{
		Str:       str,
		Transform: m,
		Width:     width,
		Height:    height,
		EOL:       eol,
		Left:      m[4],
		Right:     m[4] + width,
		Top:       m[5] - height,
		Bottom:    m[5],
	}
}

// IsBlank reports whether the run carries no visible text.
func (r Run) IsBlank() bool {
	return r.Str == "" || r.Str == " "
}

func toMatrix(v []float64) (Matrix, bool) {
	switch len(v) {
	case 6:
		return Matrix{v[0], v[1], v[2], v[3], v[4], v[5]}, true
	case 9:
		return Matrix{v[0], v[1], v[3], v[4], v[6], v[7]}, true
	default:
		return Matrix{}, false
	}
}
