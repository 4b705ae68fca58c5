package parser

import (
	"log/slog"

	"github.com/insightdelivered/statement-layout-parser/internal/models"
)

// UnknownLayout is the fallback for issuers without a dedicated layout. It
// uses the Citibank columns, the most common format seen so far.
var UnknownLayout = func() ColumnLayout {
	l := CitibankLayout
	l.Issuer = models.IssuerUnknown
	return l
}()

// NewUnknownParser returns the generic fallback parser.
func NewUnknownParser(logger *slog.Logger) *LayoutParser {
	return NewLayoutParser(UnknownLayout, logger)
}
