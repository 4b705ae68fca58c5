package writer

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/gocarina/gocsv"

	"github.com/insightdelivered/statement-layout-parser/internal/models"
)

// CSVWriter writes transactions to CSV format.
type CSVWriter struct {
	IncludeHeader bool
}

func (w *CSVWriter) Extension() string { return ".csv" }
func (w *CSVWriter) ContentType() string { return "text/csv" }

// Write writes transactions in CSV format to the given writer. With
// IncludeHeader the statement summary comes first as "# key,value" rows.
func (w *CSVWriter) Write(out io.Writer, info *models.StatementInfo) error {
	cw := csv.NewWriter(out)

	if w.IncludeHeader {
		for _, kv := range metadata(info) {
			if err := cw.Write([]string{"# " + kv[0], kv[1]}); err != nil {
				return fmt.Errorf("failed to write CSV metadata: %w", err)
			}
		}
	}

	if err := gocsv.MarshalCSV(rows(info), gocsv.NewSafeCSVWriter(cw)); err != nil {
		return fmt.Errorf("failed to write CSV rows: %w", err)
	}
	cw.Flush()
	return cw.Error()
}
