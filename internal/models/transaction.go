package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionItem is one transaction recovered from a statement page.
type TransactionItem struct {
	Key             string          `json:"key"`
	Day             string          `json:"day"`
	Month           string          `json:"month"` // 3-letter uppercase, e.g. JAN
	Year            int             `json:"year"`
	Date            time.Time       `json:"date"`
	DateFormatted   string          `json:"dateFormatted"` // e.g. "5 Jan"
	Description     []string        `json:"description"`   // one entry per line, top to bottom
	AmountFormatted string          `json:"amountFormatted"`
	Amount          decimal.Decimal `json:"amount"`

	// Row band the transaction was read from, in page coordinates.
	Top    float64 `json:"-"`
	Bottom float64 `json:"-"`
}

// IssuerID identifies a statement layout.
type IssuerID string

const (
	IssuerCitibank IssuerID = "Citibank"
	IssuerOCBC     IssuerID = "OCBC"
	IssuerUnknown  IssuerID = "Unknown"
)

// Outcome is what the parser did with one anchor.
type Outcome string

const (
	OutcomeParsed        Outcome = "parsed"
	OutcomeMissingMonth  Outcome = "missing_month"
	OutcomeMissingAmount Outcome = "missing_amount"
	OutcomeInvalidAmount Outcome = "invalid_amount"
	OutcomeInvalidDate   Outcome = "invalid_date"
)

// Diagnostic captures what the parser did with each anchor it found.
type Diagnostic struct {
	Page    int     `json:"page"`
	Anchor  string  `json:"anchor"`
	Top     float64 `json:"top"`
	Bottom  float64 `json:"bottom"`
	Outcome Outcome `json:"outcome"`
	Error   string  `json:"error,omitempty"`
}

// StatementInfo holds everything extracted from one statement document.
type StatementInfo struct {
	Issuer        IssuerID
	ParserVersion string
	Pages         int
	Transactions  []TransactionItem
	Diagnostics   []Diagnostic
}

// AnchorsFound is the number of candidate rows seen across all pages.
func (s *StatementInfo) AnchorsFound() int {
	return len(s.Diagnostics)
}

// Rejected counts diagnostics by outcome, leaving out parsed rows.
func (s *StatementInfo) Rejected() map[Outcome]int {
	out := make(map[Outcome]int)
	for _, d := range s.Diagnostics {
		if d.Outcome != OutcomeParsed {
			out[d.Outcome]++
		}
	}
	return out
}
