// Package writer exports extracted statements.
package writer

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/insightdelivered/statement-layout-parser/internal/models"
)

// Writer serializes a statement.
type Writer interface {
	Write(out io.Writer, info *models.StatementInfo) error
	// Extension is the file extension, including the dot.
	Extension() string
	ContentType() string
}

// New returns the writer for format: csv, xlsx or json.
func New(format string, includeHeader bool) (Writer, error) {
	switch strings.ToLower(format) {
	case "", "csv":
		return &CSVWriter{IncludeHeader: includeHeader}, nil
	case "xlsx":
		return &XLSXWriter{IncludeHeader: includeHeader}, nil
	case "json":
		return &JSONWriter{Indent: true}, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %q", format)
	}
}

// WriteToFile writes info to a file at path.
func WriteToFile(path string, w Writer, info *models.StatementInfo) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file %q: %w", path, err)
	}
	if err := w.Write(f, info); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Row is the flat form of a transaction used by the tabular writers.
type Row struct {
	Date           string `csv:"Date"`
	Description    string `csv:"Description"`
	Amount         string `csv:"Amount"`
	OriginalAmount string `csv:"Original Amount"`
	Key            string `csv:"Key"`
}

func rows(info *models.StatementInfo) []*Row {
	out := make([]*Row, 0, len(info.Transactions))
	for _, txn := range info.Transactions {
		out = append(out, &Row{
			Date:           txn.Date.Format("2006-01-02"),
			Description:    strings.Join(txn.Description, " / "),
			Amount:         txn.Amount.StringFixed(2),
			OriginalAmount: txn.AmountFormatted,
			Key:            txn.Key,
		})
	}
	return out
}

// metadata is the summary block written ahead of the rows.
func metadata(info *models.StatementInfo) [][]string {
	return [][]string{
		{"Issuer", string(info.Issuer)},
		{"Parser Version", info.ParserVersion},
		{"Pages", fmt.Sprint(info.Pages)},
		{"Anchors Found", fmt.Sprint(info.AnchorsFound())},
		{"Transactions", fmt.Sprint(len(info.Transactions))},
	}
}
