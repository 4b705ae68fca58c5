package parser

import (
	"github.com/insightdelivered/statement-layout-parser/internal/layout"
	"github.com/insightdelivered/statement-layout-parser/internal/models"
)

// DefaultTolerance is how far, in page units, a column edge may sit outside
// its band and still match.
const DefaultTolerance = 1.0

// Band is a closed interval of x positions for one column edge.
type Band struct {
	Min float64
	Max float64
}

// Contains reports whether x lies within the band widened by tol.
func (b Band) Contains(x, tol float64) bool {
	return x >= b.Min-tol && x <= b.Max+tol
}

// AnchorKind describes how a statement prints the date of a row.
type AnchorKind int

const (
	// AnchorDayMonth is a two digit day word followed by a 3-letter month word.
	AnchorDayMonth AnchorKind = iota
	// AnchorDaySlashMonth is a single dd/mm word.
	AnchorDaySlashMonth
)

// ColumnLayout is everything that differs between issuers. One matching
// routine consumes any layout.
type ColumnLayout struct {
	Issuer   models.IssuerID
	Version  string
	Strategy layout.Strategy
	Anchor   AnchorKind

	// DayLeft bounds the left edge of anchor words.
	DayLeft Band
	// MonthLeft bounds the left edge of the month word. Only used by
	// AnchorDayMonth layouts.
	MonthLeft Band
	// AmountRight bounds the right edge of the amount word.
	AmountRight Band

	Tolerance float64
	// TableStart, when set, drops every word before the first word starting
	// with it. A page without it has no transactions.
	TableStart string
	// MaxRowHeight caps a row band when there is no next anchor close by,
	// e.g. for the last transaction on a page.
	MaxRowHeight float64
}
