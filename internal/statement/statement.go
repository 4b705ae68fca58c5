// Package statement runs the page pipeline: fetch a page, normalize its runs,
// group them into words and hand the words to the issuer's parser.
package statement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/insightdelivered/statement-layout-parser/internal/layout"
	"github.com/insightdelivered/statement-layout-parser/internal/models"
	"github.com/insightdelivered/statement-layout-parser/internal/parser"
)

// ErrAmountRejected is returned in strict mode when a row's amount cannot be
// parsed.
var ErrAmountRejected = errors.New("amount rejected")

// PageSource supplies positioned text one page at a time. Pages are numbered
// from 1.
type PageSource interface {
	NumPages() int
	Page(ctx context.Context, n int) (layout.Page, error)
}

// Pages is an in-memory PageSource.
type Pages []layout.Page

func (p Pages) NumPages() int { return len(p) }

func (p Pages) Page(_ context.Context, n int) (layout.Page, error) {
	if n < 1 || n > len(p) {
		return layout.Page{}, fmt.Errorf("page %d out of range 1..%d", n, len(p))
	}
	return p[n-1], nil
}

// Observer is told about every finished document.
type Observer interface {
	ObserveStatement(issuer models.IssuerID, info *models.StatementInfo, err error)
}

// Options controls one extraction.
type Options struct {
	// Issuer selects the parser. Empty means detect it from the first page.
	Issuer models.IssuerID
	// Years resolves statement years. Nil means parser.HeuristicYear.
	Years parser.YearResolver
	// Strict fails the whole document on the first unparsable amount.
	// Otherwise the row is skipped and reported in the diagnostics.
	Strict bool
	// LineEpsilon snaps run bottoms before line grouping. Zero groups by
	// exact bottom.
	LineEpsilon float64
}

// Extractor turns page sources into statements.
type Extractor struct {
	factory  *parser.Factory
	logger   *slog.Logger
	observer Observer
}

// NewExtractor creates an Extractor. A nil logger uses slog.Default(); a nil
// observer is allowed.
func NewExtractor(factory *parser.Factory, logger *slog.Logger, observer Observer) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{factory: factory, logger: logger, observer: observer}
}

// Extract walks the pages of src in order and folds each page's result into
// the statement. Cancellation is checked before every page is fetched; a
// cancelled extraction returns no partial result.
func (e *Extractor) Extract(ctx context.Context, src PageSource, opts Options) (*models.StatementInfo, error) {
	info, err := e.extract(ctx, src, opts)
	if e.observer != nil {
		issuer := opts.Issuer
		if info != nil {
			issuer = info.Issuer
		}
		e.observer.ObserveStatement(issuer, info, err)
	}
	return info, err
}

func (e *Extractor) extract(ctx context.Context, src PageSource, opts Options) (*models.StatementInfo, error) {
	years := opts.Years
	if years == nil {
		years = parser.HeuristicYear{}
	}

	total := src.NumPages()
	acc := &models.StatementInfo{Pages: total}
	var p parser.Parser

	for n := 1; n <= total; n++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("extract page %d: %w", n, err)
		}
		page, err := src.Page(ctx, n)
		if err != nil {
			return nil, fmt.Errorf("extract page %d: %w", n, err)
		}
		runs := layout.PageRuns(page)

		if p == nil {
			p = e.selectParser(opts.Issuer, runs, opts.LineEpsilon)
			acc.Issuer = p.Issuer()
			acc.ParserVersion = p.Version()
		}

		words := p.Strategy().Words(runs, opts.LineEpsilon)
		res := p.IdentifyTransactions(words, parser.PageContext{Number: n, Years: years})

		if opts.Strict && len(res.Errors) > 0 {
			return nil, fmt.Errorf("%w: %w", ErrAmountRejected, res.Errors[0])
		}
		for _, err := range res.Errors {
			e.logger.Warn("row skipped", "error", err)
		}
		acc = fold(acc, res)
	}

	if p == nil {
		p = e.factory.CreateParser(opts.Issuer)
		acc.Issuer = p.Issuer()
		acc.ParserVersion = p.Version()
	}

	e.logger.Info("statement extracted",
		"issuer", string(acc.Issuer),
		"pages", acc.Pages,
		"anchors", acc.AnchorsFound(),
		"transactions", len(acc.Transactions),
	)
	return acc, nil
}

// selectParser resolves the parser for a document, detecting the issuer from
// the first page when none was given.
func (e *Extractor) selectParser(issuer models.IssuerID, firstPage []layout.Run, epsilon float64) parser.Parser {
	if issuer != "" {
		return e.factory.CreateParser(issuer)
	}
	text := parser.PageText(layout.Delimiter.Words(firstPage, epsilon))
	detected := parser.AutoDetect([]string{text})
	e.logger.Debug("issuer detected", "issuer", string(detected))
	return e.factory.CreateParser(detected)
}

// fold returns a new statement with the page appended. acc is not modified.
func fold(acc *models.StatementInfo, page parser.PageResult) *models.StatementInfo {
	next := *acc
	next.Transactions = concat(acc.Transactions, page.Transactions)
	next.Diagnostics = concat(acc.Diagnostics, page.Diagnostics)
	return &next
}

func concat[T any](a, b []T) []T {
	out := make([]T, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}

// FindPotentialDuplicates groups transactions that share date, amount and
// description. Only groups with more than one member are returned, in order
// of first appearance.
func FindPotentialDuplicates(items []models.TransactionItem) [][]models.TransactionItem {
	groups := make(map[string][]models.TransactionItem)
	var order []string
	for _, it := range items {
		key := it.DateFormatted + "|" + it.AmountFormatted + "|" + strings.Join(it.Description, " ")
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], it)
	}

	var out [][]models.TransactionItem
	for _, k := range order {
		if len(groups[k]) > 1 {
			out = append(out, groups[k])
		}
	}
	return out
}
