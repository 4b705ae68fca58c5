package parser

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightdelivered/statement-layout-parser/internal/layout"
	"github.com/insightdelivered/statement-layout-parser/internal/models"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func word(s string, left, right, top, bottom float64) layout.Word {
	return layout.Word{Str: s, Left: left, Right: right, Top: top, Bottom: bottom}
}

func sequentialKeys() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("key-%d", n)
	}
}

func newTestParser(l ColumnLayout) *LayoutParser {
	p := NewLayoutParser(l, discard)
	p.newKey = sequentialKeys()
	return p
}

func coffeeRow() []layout.Word {
	return []layout.Word{
		word("05", 47, 55, 100, 110),
		word("JAN", 58, 72, 100, 110),
		word("COFFEE SHOP", 100, 160, 100, 110),
		word("(45.00)", 530, 564, 100, 110),
	}
}

func TestIdentifyTransactionsSingleRow(t *testing.T) {
	p := newTestParser(UnknownLayout)

	res := p.IdentifyTransactions(coffeeRow(), PageContext{Number: 1, Years: FixedYear(2024)})

	require.Len(t, res.Transactions, 1)
	assert.Empty(t, res.Errors)
	item := res.Transactions[0]
	assert.Equal(t, "05", item.Day)
	assert.Equal(t, "JAN", item.Month)
	assert.Equal(t, 2024, item.Year)
	assert.Equal(t, time.Date(2024, time.January, 5, 0, 0, 0, 0, time.UTC), item.Date)
	assert.Equal(t, "5 Jan", item.DateFormatted)
	assert.Equal(t, []string{"COFFEE SHOP"}, item.Description)
	assert.Equal(t, "(45.00)", item.AmountFormatted)
	assert.True(t, item.Amount.Equal(decimal.RequireFromString("-45.00")), "amount %s", item.Amount)
	assert.Equal(t, "key-1", item.Key)
	assert.Equal(t, 100.0, item.Top)
	assert.Equal(t, 148.0, item.Bottom)

	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, models.OutcomeParsed, res.Diagnostics[0].Outcome)
	assert.Equal(t, 1, res.Diagnostics[0].Page)
}

func TestIdentifyTransactionsMultiLineDescription(t *testing.T) {
	p := newTestParser(CitibankLayout)
	words := append(coffeeRow(), word("SINGAPORE SG", 100, 170, 112, 122))

	res := p.IdentifyTransactions(words, PageContext{Years: FixedYear(2024)})

	require.Len(t, res.Transactions, 1)
	assert.Equal(t, []string{"COFFEE SHOP", "SINGAPORE SG"}, res.Transactions[0].Description)
}

func TestIdentifyTransactionsSkipsIncompleteRows(t *testing.T) {
	tests := []struct {
		name    string
		words   []layout.Word
		outcome models.Outcome
		hardErr bool
	}{
		{
			name: "missing amount",
			words: []layout.Word{
				word("05", 47, 55, 100, 110),
				word("JAN", 58, 72, 100, 110),
				word("COFFEE SHOP", 100, 160, 100, 110),
			},
			outcome: models.OutcomeMissingAmount,
		},
		{
			name: "month outside its column",
			words: []layout.Word{
				word("05", 47, 55, 100, 110),
				word("JAN", 75, 90, 100, 110),
				word("(45.00)", 530, 564, 100, 110),
			},
			outcome: models.OutcomeMissingMonth,
		},
		{
			name: "unparsable amount",
			words: []layout.Word{
				word("05", 47, 55, 100, 110),
				word("JAN", 58, 72, 100, 110),
				word("N/A", 550, 564, 100, 110),
			},
			outcome: models.OutcomeInvalidAmount,
			hardErr: true,
		},
		{
			name: "day not in month",
			words: []layout.Word{
				word("31", 47, 55, 100, 110),
				word("FEB", 58, 72, 100, 110),
				word("10.00", 540, 564, 100, 110),
			},
			outcome: models.OutcomeInvalidDate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestParser(UnknownLayout)
			res := p.IdentifyTransactions(tt.words, PageContext{Number: 3, Years: FixedYear(2023)})

			assert.Empty(t, res.Transactions)
			require.Len(t, res.Diagnostics, 1)
			assert.Equal(t, tt.outcome, res.Diagnostics[0].Outcome)
			if !tt.hardErr {
				assert.Empty(t, res.Errors)
				return
			}
			require.Len(t, res.Errors, 1)
			var ce *CandidateError
			require.True(t, errors.As(res.Errors[0], &ce))
			assert.Equal(t, 3, ce.Page)
			assert.Equal(t, "05", ce.Anchor)
			assert.ErrorIs(t, res.Errors[0], ErrInvalidAmount)
		})
	}
}

func TestIdentifyTransactionsContinuesAfterBadRow(t *testing.T) {
	p := newTestParser(UnknownLayout)
	words := []layout.Word{
		word("05", 47, 55, 100, 110),
		word("JAN", 58, 72, 100, 110),
		word("BAD", 100, 120, 100, 110),
		word("N/A", 550, 564, 100, 110),
		word("06", 47, 55, 130, 140),
		word("JAN", 58, 72, 130, 140),
		word("GOOD", 100, 120, 130, 140),
		word("1,234.50", 530, 564, 130, 140),
	}

	res := p.IdentifyTransactions(words, PageContext{Years: FixedYear(2024)})

	require.Len(t, res.Transactions, 1)
	assert.Equal(t, "06", res.Transactions[0].Day)
	assert.True(t, res.Transactions[0].Amount.Equal(decimal.RequireFromString("1234.50")))
	assert.Len(t, res.Errors, 1)
	assert.Len(t, res.Diagnostics, 2)
}

func TestRowBandsPartitionPage(t *testing.T) {
	p := newTestParser(CitibankLayout)
	words := []layout.Word{
		word("01", 47, 55, 100, 110),
		word("MAR", 58, 72, 100, 110),
		word("A", 100, 110, 100, 110),
		word("02", 47, 55, 120, 130),
		word("MAR", 58, 72, 120, 130),
		word("B", 100, 110, 120, 130),
		word("B2", 100, 110, 150, 160),
		word("FOOTER", 100, 110, 170, 180),
		word("03", 47, 55, 200, 210),
		word("MAR", 58, 72, 200, 210),
		word("C", 100, 110, 200, 210),
	}

	rows := p.rows(words)
	require.Len(t, rows, 3)
	assert.Equal(t, 120.0, rows[0].bottom)
	assert.Equal(t, 168.0, rows[1].bottom)
	assert.Equal(t, 248.0, rows[2].bottom)

	for i := range rows {
		for j := i + 1; j < len(rows); j++ {
			overlap := rows[i].top < rows[j].bottom && rows[j].top < rows[i].bottom
			assert.False(t, overlap, "rows %d and %d overlap", i, j)
		}
	}

	seen := make(map[int]int)
	for _, r := range rows {
		for _, c := range candidateWords(words, r) {
			seen[c.index]++
		}
	}
	for idx, n := range seen {
		assert.LessOrEqual(t, n, 1, "word %q in %d bands", words[idx].Str, n)
	}
	_, footerSeen := seen[7]
	assert.False(t, footerSeen, "footer below the row cap must not join a band")
}

func TestAnchorsOrderedTopToBottom(t *testing.T) {
	p := newTestParser(CitibankLayout)
	words := []layout.Word{
		word("09", 47, 55, 300, 310),
		word("APR", 58, 72, 300, 310),
		word("02", 47, 55, 100, 110),
		word("APR", 58, 72, 100, 110),
		word("17", 30, 38, 200, 210),
		word("APR", 58, 72, 200, 210),
	}

	anchors := p.findAnchors(words)
	require.Len(t, anchors, 2)
	assert.Equal(t, "02", anchors[0].word.Str)
	assert.Equal(t, "09", anchors[1].word.Str)
}

func TestOCBCLayout(t *testing.T) {
	p := newTestParser(OCBCLayout)
	words := []layout.Word{
		word("01/01", 58, 80, 40, 50),
		word("99.00", 520, 546, 40, 50),
		word("TRANSACTION DATE", 58, 140, 80, 90),
		word("05/01", 58, 80, 100, 110),
		word("GRAB TRANSPORT", 100, 170, 100, 110),
		word("(12.50)", 520, 546, 100, 110),
	}

	res := p.IdentifyTransactions(words, PageContext{Years: FixedYear(2024)})

	require.Len(t, res.Transactions, 1)
	item := res.Transactions[0]
	assert.Equal(t, "05", item.Day)
	assert.Equal(t, "JAN", item.Month)
	assert.Equal(t, []string{"GRAB TRANSPORT"}, item.Description)
	assert.True(t, item.Amount.Equal(decimal.RequireFromString("-12.50")))
}

func TestOCBCLayoutWithoutTable(t *testing.T) {
	p := newTestParser(OCBCLayout)
	words := []layout.Word{
		word("05/01", 58, 80, 100, 110),
		word("12.50", 520, 546, 100, 110),
	}

	res := p.IdentifyTransactions(words, PageContext{})

	assert.Empty(t, res.Transactions)
	assert.Empty(t, res.Diagnostics)
}

func TestRecordBuilderDefaults(t *testing.T) {
	b := RecordBuilder{Years: FixedYear(2024)}
	amount := word("10.00", 0, 0, 0, 0)

	a, err := b.Build(DayMonth{Day: "01", Month: time.May}, amount, nil, 0, 10)
	require.NoError(t, err)
	c, err := b.Build(DayMonth{Day: "01", Month: time.May}, amount, nil, 0, 10)
	require.NoError(t, err)

	assert.NotEmpty(t, a.Key)
	assert.NotEqual(t, a.Key, c.Key)
	assert.Empty(t, a.Description)
}

func TestFactoryFallback(t *testing.T) {
	f := NewFactory(discard)

	unknown := f.CreateParser(models.IssuerUnknown)
	fallback := f.CreateParser("NotARealBank")

	assert.Same(t, unknown, fallback)
	assert.IsType(t, unknown, fallback)
	assert.Equal(t, models.IssuerUnknown, fallback.Issuer())
}

func TestFactoryCreateParser(t *testing.T) {
	f := NewFactory(discard)

	tests := []struct {
		issuer   models.IssuerID
		expected models.IssuerID
		strategy layout.Strategy
	}{
		{models.IssuerCitibank, models.IssuerCitibank, layout.Delimiter},
		{"citibank", models.IssuerCitibank, layout.Delimiter},
		{models.IssuerOCBC, models.IssuerOCBC, layout.Proximity},
		{"", models.IssuerUnknown, layout.Delimiter},
	}

	for _, tt := range tests {
		t.Run(string(tt.issuer), func(t *testing.T) {
			p := f.CreateParser(tt.issuer)
			assert.Equal(t, tt.expected, p.Issuer())
			assert.Equal(t, tt.strategy, p.Strategy())
		})
	}
}

func TestFactoryRegisterParser(t *testing.T) {
	f := NewFactory(discard)
	assert.Equal(t, []models.IssuerID{models.IssuerCitibank, models.IssuerOCBC, models.IssuerUnknown}, f.SupportedIssuers())

	dbs := UnknownLayout
	dbs.Issuer = "DBS"
	dbs.Version = "0.1.0"
	custom := NewLayoutParser(dbs, discard)
	f.RegisterParser("DBS", custom)

	assert.Same(t, custom, f.CreateParser("DBS"))
	assert.Contains(t, f.SupportedIssuers(), models.IssuerID("DBS"))
	assert.Contains(t, f.ParserInfo(), Info{Issuer: "DBS", Version: "0.1.0"})
}

func TestAutoDetect(t *testing.T) {
	tests := []struct {
		name     string
		pages    []string
		expected models.IssuerID
	}{
		{"citibank", []string{"Citibank Singapore Ltd\nStatement of account"}, models.IssuerCitibank},
		{"ocbc", []string{"OCBC Bank\n65 Chulia Street"}, models.IssuerOCBC},
		{"ocbc full name", []string{"page 1", "Oversea-Chinese Banking Corporation"}, models.IssuerOCBC},
		{"first needle wins", []string{"OCBC transfer from CITIBANK"}, models.IssuerCitibank},
		{"nothing known", []string{"Some Other Bank"}, models.IssuerUnknown},
		{"empty", nil, models.IssuerUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, AutoDetect(tt.pages))
		})
	}
}

func TestPageText(t *testing.T) {
	words := []layout.Word{
		word("CITIBANK", 10, 60, 0, 10),
		word("SINGAPORE", 65, 120, 0, 10),
		word("STATEMENT", 10, 70, 12, 22),
	}
	assert.Equal(t, "CITIBANK SINGAPORE\nSTATEMENT", PageText(words))
}
