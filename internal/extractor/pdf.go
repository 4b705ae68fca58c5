// Package extractor reads positioned text runs out of PDF files.
package extractor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/insightdelivered/statement-layout-parser/internal/layout"
)

// ErrNoPages is returned for documents without a single page.
var ErrNoPages = errors.New("PDF has no pages")

// US Letter, used when a page carries no MediaBox.
var defaultMediaBox = [4]float64{0, 0, 612, 792}

// Document is an open PDF that serves its pages as positioned text runs.
// Decoding happens lazily, one page per Page call.
type Document struct {
	reader *pdf.Reader
	pages  int
	logger *slog.Logger
}

// Open reads and validates the PDF at path.
func Open(path string, logger *slog.Logger) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return Load(data, logger)
}

// Load validates data with pdfcpu and prepares it for text extraction. A nil
// logger uses slog.Default().
func Load(data []byte, logger *slog.Logger) (doc *Document, err error) {
	if logger == nil {
		logger = slog.Default()
	}
	if len(data) == 0 {
		return nil, errors.New("empty PDF")
	}

	declared, err := validate(data)
	if err != nil {
		return nil, err
	}
	if declared == 0 {
		return nil, ErrNoPages
	}

	defer func() {
		if r := recover(); r != nil {
			doc, err = nil, fmt.Errorf("PDF library crashed: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open PDF: %w", err)
	}
	n := r.NumPage()
	if n == 0 {
		return nil, ErrNoPages
	}
	if n != declared {
		logger.Warn("page count mismatch", "pdfcpu", declared, "reader", n)
	}
	return &Document{reader: r, pages: n, logger: logger}, nil
}

// validate runs pdfcpu's relaxed validation and returns the page count.
func validate(data []byte) (int, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(bytes.NewReader(data), conf)
	if err != nil {
		return 0, fmt.Errorf("failed to read PDF context: %w", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return 0, fmt.Errorf("failed to ensure page count: %w", err)
	}
	return ctx.PageCount, nil
}

// NumPages returns the number of pages.
func (d *Document) NumPages() int {
	return d.pages
}

// Page decodes page n (1-based) into raw runs in PDF user space together
// with the viewport transform for its MediaBox.
func (d *Document) Page(ctx context.Context, n int) (page layout.Page, err error) {
	if err := ctx.Err(); err != nil {
		return layout.Page{}, err
	}
	if n < 1 || n > d.pages {
		return layout.Page{}, fmt.Errorf("page %d out of range 1..%d", n, d.pages)
	}

	defer func() {
		if r := recover(); r != nil {
			page, err = layout.Page{}, fmt.Errorf("PDF library crashed on page %d: %v", n, r)
		}
	}()

	p := d.reader.Page(n)
	box := defaultMediaBox
	if p.V.IsNull() {
		d.logger.Debug("empty page", "page", n)
		return layout.Page{Number: n, Transform: layout.Viewport(box[0], box[1], box[2], box[3])}, nil
	}
	box = mediaBox(p.V)

	return layout.Page{
		Number:    n,
		Transform: layout.Viewport(box[0], box[1], box[2], box[3]),
		Runs:      glyphRuns(p.Content().Text),
	}, nil
}

// glyphGap is the widest horizontal gap between two glyphs of one string.
const glyphGap = 0.5

// glyphRuns converts the decoded glyphs of a page into runs. The reader emits
// one glyph per character and a "\n" glyph after every TJ array. That
// marker, a baseline change or a jump between glyphs ends the previous run's
// string, so separately placed strings never merge into one word.
func glyphRuns(texts []pdf.Text) []layout.RawRun {
	runs := make([]layout.RawRun, 0, len(texts))
	var prev pdf.Text
	for _, t := range texts {
		if t.S == "\n" {
			if len(runs) > 0 {
				runs[len(runs)-1].EOL = true
			}
			continue
		}
		if len(runs) > 0 && stringBreak(prev, t) {
			runs[len(runs)-1].EOL = true
		}
		runs = append(runs, textRun(t))
		prev = t
	}
	return runs
}

func stringBreak(prev, next pdf.Text) bool {
	if math.Abs(next.Y-prev.Y) > glyphGap {
		return true
	}
	gap := next.X - (prev.X + prev.W)
	return gap > glyphGap || next.X < prev.X
}

// textRun converts one decoded glyph. The reader reports only the horizontal
// scale of the text rendering matrix as FontSize, so a run transform can be
// rebuilt as a plain scale and translation. A glyph drawn a quarter turn
// from upright has a FontSize of zero; it gets no transform and is dropped
// during normalization.
func textRun(t pdf.Text) layout.RawRun {
	r := layout.RawRun{
		Str:    t.S,
		Width:  t.W,
		Height: t.FontSize,
	}
	if t.FontSize > 0 {
		r.Transform = []float64{t.FontSize, 0, 0, t.FontSize, t.X, t.Y}
	}
	return r
}

// mediaBox looks up the MediaBox on the page, following inherited values up
// the page tree.
func mediaBox(v pdf.Value) [4]float64 {
	for depth := 0; depth < 32 && !v.IsNull(); depth++ {
		mb := v.Key("MediaBox")
		if mb.Len() == 4 {
			var box [4]float64
			for i := range box {
				box[i] = mb.Index(i).Float64()
			}
			if box[2] > box[0] && box[3] > box[1] {
				return box
			}
		}
		v = v.Key("Parent")
	}
	return defaultMediaBox
}
