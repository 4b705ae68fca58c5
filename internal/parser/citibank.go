package parser

import (
	"log/slog"

	"github.com/insightdelivered/statement-layout-parser/internal/layout"
	"github.com/insightdelivered/statement-layout-parser/internal/models"
)

// CitibankLayout describes Citibank card statements.
//
// Rows look like:
//
//	05  JAN  COFFEE SHOP SINGAPORE            (45.00)
//
// The day sits at x≈47 and the month at x≈58 as separate tokens, and the
// amount column is right aligned at x≈564. The producer emits explicit space
// runs between tokens. A 2-line row is about 28 units tall and a 3-line row
// about 37.4, so rows are capped at 48.
var CitibankLayout = ColumnLayout{
	Issuer:       models.IssuerCitibank,
	Version:      "1.0.0",
	Strategy:     layout.Delimiter,
	Anchor:       AnchorDayMonth,
	DayLeft:      Band{Min: 46, Max: 49},
	MonthLeft:    Band{Min: 56, Max: 60},
	AmountRight:  Band{Min: 562.5, Max: 566.2},
	Tolerance:    DefaultTolerance,
	MaxRowHeight: 48,
}

// NewCitibankParser returns the parser for Citibank statements.
func NewCitibankParser(logger *slog.Logger) *LayoutParser {
	return NewLayoutParser(CitibankLayout, logger)
}
