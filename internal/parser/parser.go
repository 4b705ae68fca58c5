package parser

import (
	"fmt"
	"strings"

	"github.com/cloudflare/ahocorasick"

	"github.com/insightdelivered/statement-layout-parser/internal/layout"
	"github.com/insightdelivered/statement-layout-parser/internal/models"
)

// Parser finds transactions in the words of one statement page.
type Parser interface {
	// Issuer returns the issuer this parser is tuned for.
	Issuer() models.IssuerID
	// Version changes whenever the column layout is retuned.
	Version() string
	// Strategy is the word grouping the issuer's PDF producer needs.
	Strategy() layout.Strategy
	// IdentifyTransactions walks the words of one page and returns the
	// transactions it could resolve, plus one diagnostic per anchor.
	IdentifyTransactions(words []layout.Word, page PageContext) PageResult
}

// PageContext carries per-page inputs that are not part of the layout.
type PageContext struct {
	Number int
	// Years resolves the statement year for a month. Nil means HeuristicYear.
	Years YearResolver
}

// PageResult is the immutable outcome of parsing one page.
type PageResult struct {
	Transactions []models.TransactionItem
	Diagnostics  []models.Diagnostic
	// Errors holds one CandidateError per row whose amount could not be
	// parsed. The rest of the page is still returned.
	Errors []error
}

// CandidateError is a hard failure for a single candidate row.
type CandidateError struct {
	Page   int
	Anchor string
	Err    error
}

func (e *CandidateError) Error() string {
	return fmt.Sprintf("page %d, anchor %q: %v", e.Page, e.Anchor, e.Err)
}

func (e *CandidateError) Unwrap() error {
	return e.Err
}

// issuerNeedles are matched against the upper-cased statement text. Earlier
// entries win when several issuers are mentioned.
var issuerNeedles = []struct {
	needle string
	issuer models.IssuerID
}{
	{"CITIBANK", models.IssuerCitibank},
	{"CITIGROUP", models.IssuerCitibank},
	{"CITI CARDS", models.IssuerCitibank},
	{"OCBC", models.IssuerOCBC},
	{"OVERSEA-CHINESE BANKING", models.IssuerOCBC},
}

var issuerMatcher = func() *ahocorasick.Matcher {
	needles := make([]string, len(issuerNeedles))
	for i, n := range issuerNeedles {
		needles[i] = n.needle
	}
	return ahocorasick.NewStringMatcher(needles)
}()

// AutoDetect tries to identify the issuer from the statement text. It never
// fails: text that names no known issuer resolves to IssuerUnknown.
func AutoDetect(pages []string) models.IssuerID {
	combined := strings.ToUpper(strings.Join(pages, "\n"))
	hits := issuerMatcher.Match([]byte(combined))
	if len(hits) == 0 {
		return models.IssuerUnknown
	}
	best := hits[0]
	for _, h := range hits[1:] {
		if h < best {
			best = h
		}
	}
	return issuerNeedles[best].issuer
}

// PageText joins the words of a page into plain text, one line per bottom
// value, for issuer detection.
func PageText(words []layout.Word) string {
	var b strings.Builder
	for i, w := range words {
		if i > 0 {
			if w.Bottom != words[i-1].Bottom {
				b.WriteByte('\n')
			} else {
				b.WriteByte(' ')
			}
		}
		b.WriteString(w.Str)
	}
	return b.String()
}
