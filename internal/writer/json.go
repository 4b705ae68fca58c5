package writer

import (
	"encoding/json"
	"io"

	"github.com/insightdelivered/statement-layout-parser/internal/models"
)

// JSONWriter writes the whole statement, diagnostics included.
type JSONWriter struct {
	Indent bool
}

func (w *JSONWriter) Extension() string { return ".json" }
func (w *JSONWriter) ContentType() string { return "application/json" }

// Document is the JSON shape of an extracted statement.
type Document struct {
	Issuer        models.IssuerID          `json:"issuer"`
	ParserVersion string                   `json:"parserVersion"`
	Pages         int                      `json:"pages"`
	AnchorsFound  int                      `json:"anchorsFound"`
	Rejected      map[models.Outcome]int   `json:"rejected"`
	Transactions  []models.TransactionItem `json:"transactions"`
	Diagnostics   []models.Diagnostic      `json:"diagnostics"`
}

// NewDocument flattens info for JSON output.
func NewDocument(info *models.StatementInfo) Document {
	txns := info.Transactions
	if txns == nil {
		txns = []models.TransactionItem{}
	}
	return Document{
		Issuer:        info.Issuer,
		ParserVersion: info.ParserVersion,
		Pages:         info.Pages,
		AnchorsFound:  info.AnchorsFound(),
		Rejected:      info.Rejected(),
		Transactions:  txns,
		Diagnostics:   info.Diagnostics,
	}
}

func (w *JSONWriter) Write(out io.Writer, info *models.StatementInfo) error {
	enc := json.NewEncoder(out)
	if w.Indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(NewDocument(info))
}
