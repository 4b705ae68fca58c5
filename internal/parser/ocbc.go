package parser

import (
	"log/slog"

	"github.com/insightdelivered/statement-layout-parser/internal/layout"
	"github.com/insightdelivered/statement-layout-parser/internal/models"
)

// OCBCLayout describes OCBC card statements.
//
// The transaction table starts at the "TRANSACTION DATE" header. Rows print
// the date as one dd/mm token at x≈58 and the amount right aligned at
// x≈546. The producer emits glyphs without space runs, so words are found by
// proximity.
var OCBCLayout = ColumnLayout{
	Issuer:       models.IssuerOCBC,
	Version:      "1.0.0",
	Strategy:     layout.Proximity,
	Anchor:       AnchorDaySlashMonth,
	DayLeft:      Band{Min: 57, Max: 59},
	AmountRight:  Band{Min: 544.73176068, Max: 547.494946},
	Tolerance:    DefaultTolerance,
	TableStart:   "TRANSACTION DATE",
	MaxRowHeight: 50,
}

// NewOCBCParser returns the parser for OCBC statements.
func NewOCBCParser(logger *slog.Logger) *LayoutParser {
	return NewLayoutParser(OCBCLayout, logger)
}
