package parser

import (
	"errors"
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/insightdelivered/statement-layout-parser/internal/layout"
	"github.com/insightdelivered/statement-layout-parser/internal/models"
)

// LayoutParser matches transactions on a page using a ColumnLayout. It holds
// no state besides the layout and is safe to share across pages and
// documents.
type LayoutParser struct {
	layout ColumnLayout
	logger *slog.Logger
	newKey func() string
}

// NewLayoutParser creates a parser for the given layout. A nil logger uses
// slog.Default().
func NewLayoutParser(l ColumnLayout, logger *slog.Logger) *LayoutParser {
	if logger == nil {
		logger = slog.Default()
	}
	if l.Tolerance == 0 {
		l.Tolerance = DefaultTolerance
	}
	return &LayoutParser{
		layout: l,
		logger: logger.With("issuer", string(l.Issuer)),
	}
}

func (p *LayoutParser) Issuer() models.IssuerID { return p.layout.Issuer }

func (p *LayoutParser) Version() string { return p.layout.Version }

func (p *LayoutParser) Strategy() layout.Strategy { return p.layout.Strategy }

// indexedWord is a word together with its position in the page's word list.
type indexedWord struct {
	index int
	word  layout.Word
}

// row is the vertical band of one anchor: [Top, Bottom).
type row struct {
	anchor indexedWord
	top    float64
	bottom float64
}

// IdentifyTransactions finds anchors, cuts the page into row bands and
// resolves each band into a transaction. Rows missing a month or amount are
// skipped and reported in the diagnostics only.
func (p *LayoutParser) IdentifyTransactions(words []layout.Word, page PageContext) PageResult {
	words = p.tableWords(words)

	var result PageResult
	builder := RecordBuilder{Years: page.Years, NewKey: p.newKey}

	for _, r := range p.rows(words) {
		candidates := candidateWords(words, r)
		diag := models.Diagnostic{
			Page:   page.Number,
			Anchor: r.anchor.word.Str,
			Top:    r.top,
			Bottom: r.bottom,
		}

		date, monthIdx, outcome, err := p.resolveDate(candidates, r.anchor)
		if outcome != "" {
			diag.Outcome = outcome
			if err != nil {
				diag.Error = err.Error()
			}
			p.logger.Debug("anchor skipped",
				"page", page.Number, "anchor", r.anchor.word.Str, "top", r.top, "reason", outcome)
			result.Diagnostics = append(result.Diagnostics, diag)
			continue
		}

		amountIdx := p.findAmount(candidates, r.anchor.index)
		if amountIdx < 0 {
			diag.Outcome = models.OutcomeMissingAmount
			p.logger.Debug("anchor skipped",
				"page", page.Number, "anchor", r.anchor.word.Str, "top", r.top, "reason", diag.Outcome)
			result.Diagnostics = append(result.Diagnostics, diag)
			continue
		}

		var description []layout.Word
		for _, c := range candidates {
			if c.index == r.anchor.index || c.index == monthIdx || c.index == amountIdx {
				continue
			}
			description = append(description, c.word)
		}

		item, err := builder.Build(date, words[amountIdx], description, r.top, r.bottom)
		if err != nil {
			diag.Error = err.Error()
			if isInvalidDate(err) {
				diag.Outcome = models.OutcomeInvalidDate
			} else {
				diag.Outcome = models.OutcomeInvalidAmount
				result.Errors = append(result.Errors, &CandidateError{
					Page:   page.Number,
					Anchor: r.anchor.word.Str,
					Err:    err,
				})
			}
			p.logger.Debug("anchor rejected",
				"page", page.Number, "anchor", r.anchor.word.Str, "top", r.top, "error", err)
			result.Diagnostics = append(result.Diagnostics, diag)
			continue
		}

		diag.Outcome = models.OutcomeParsed
		result.Diagnostics = append(result.Diagnostics, diag)
		result.Transactions = append(result.Transactions, item)
	}

	return result
}

// tableWords drops the page header when the layout names a table start.
func (p *LayoutParser) tableWords(words []layout.Word) []layout.Word {
	if p.layout.TableStart == "" {
		return words
	}
	for i, w := range words {
		if strings.HasPrefix(w.Str, p.layout.TableStart) {
			return words[i:]
		}
	}
	return nil
}

// findAnchors returns the anchors of a page ordered top to bottom.
func (p *LayoutParser) findAnchors(words []layout.Word) []indexedWord {
	var anchors []indexedWord
	for i, w := range words {
		if !p.layout.DayLeft.Contains(w.Left, p.layout.Tolerance) {
			continue
		}
		switch p.layout.Anchor {
		case AnchorDaySlashMonth:
			if len(w.Str) != 5 || !daySlashMonthPattern.MatchString(w.Str) {
				continue
			}
		default:
			if !isDayNumber(w.Str) || i+1 >= len(words) || !isMonthName(words[i+1].Str) {
				continue
			}
		}
		anchors = append(anchors, indexedWord{index: i, word: w})
	}
	sort.SliceStable(anchors, func(i, j int) bool {
		return anchors[i].word.Top < anchors[j].word.Top
	})
	return anchors
}

// rows cuts the page into one band per anchor. A band ends at the next
// anchor's top or MaxRowHeight below its own top, whichever comes first, so
// bands never overlap.
func (p *LayoutParser) rows(words []layout.Word) []row {
	anchors := p.findAnchors(words)
	rows := make([]row, 0, len(anchors))
	for i, a := range anchors {
		next := math.Inf(1)
		if i+1 < len(anchors) {
			next = anchors[i+1].word.Top
		}
		if p.layout.MaxRowHeight > 0 {
			next = math.Min(next, a.word.Top+p.layout.MaxRowHeight)
		}
		rows = append(rows, row{anchor: a, top: a.word.Top, bottom: next})
	}
	return rows
}

// candidateWords returns the words whose vertical extent falls in the band.
func candidateWords(words []layout.Word, r row) []indexedWord {
	var out []indexedWord
	for i, w := range words {
		if w.Top >= r.top && w.Bottom < r.bottom {
			out = append(out, indexedWord{index: i, word: w})
		}
	}
	return out
}

// resolveDate reads the row date. A non-empty outcome means the row cannot be
// used.
func (p *LayoutParser) resolveDate(candidates []indexedWord, a indexedWord) (DayMonth, int, models.Outcome, error) {
	if p.layout.Anchor == AnchorDaySlashMonth {
		d, err := parseDaySlashMonth(a.word.Str)
		if err != nil {
			return DayMonth{}, -1, models.OutcomeInvalidDate, err
		}
		return d, -1, "", nil
	}

	for _, c := range candidates {
		if c.index == a.index || !p.layout.MonthLeft.Contains(c.word.Left, p.layout.Tolerance) {
			continue
		}
		d, err := parseDayMonth(a.word.Str, c.word.Str)
		if err != nil {
			return DayMonth{}, c.index, models.OutcomeInvalidDate, err
		}
		return d, c.index, "", nil
	}
	return DayMonth{}, -1, models.OutcomeMissingMonth, nil
}

func (p *LayoutParser) findAmount(candidates []indexedWord, anchorIdx int) int {
	for _, c := range candidates {
		if c.index == anchorIdx {
			continue
		}
		if p.layout.AmountRight.Contains(c.word.Right, p.layout.Tolerance) {
			return c.index
		}
	}
	return -1
}

func isInvalidDate(err error) bool {
	return errors.Is(err, ErrInvalidDate)
}
