package parser

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/insightdelivered/statement-layout-parser/internal/layout"
	"github.com/insightdelivered/statement-layout-parser/internal/models"
)

var (
	// ErrInvalidAmount means an amount word is not a number once grouping
	// commas and brackets are removed.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrInvalidDate means the day and month of a row do not form a date.
	ErrInvalidDate = errors.New("invalid date")
)

// ParseAmount converts a statement amount such as "1,234.50" or "(99.00)"
// to a signed decimal. An amount wrapped in parentheses is negative.
func ParseAmount(text string) (decimal.Decimal, error) {
	negative := strings.HasPrefix(strings.TrimSpace(text), "(")
	s := stripAmountNoise(text)
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, text)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, text)
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}

// RecordBuilder turns a matched row into a TransactionItem. The zero value
// uses HeuristicYear and random UUID keys.
type RecordBuilder struct {
	Years  YearResolver
	NewKey func() string
}

// Build resolves the year, formats the date, rebuilds the description lines
// and assigns a fresh key. An amount that does not parse is returned as an
// error; it never becomes a zero amount.
func (b RecordBuilder) Build(date DayMonth, amount layout.Word, description []layout.Word, top, bottom float64) (models.TransactionItem, error) {
	value, err := ParseAmount(amount.Str)
	if err != nil {
		return models.TransactionItem{}, err
	}

	years := b.Years
	if years == nil {
		years = HeuristicYear{}
	}
	year := years.ResolveYear(date.Month)

	day, _ := strconv.Atoi(date.Day)
	if day < 1 || day > daysIn(date.Month, year) {
		return models.TransactionItem{}, fmt.Errorf("%w: day %s of %s %d", ErrInvalidDate, date.Day, date.Month, year)
	}
	d := time.Date(year, date.Month, day, 0, 0, 0, 0, time.UTC)

	newKey := b.NewKey
	if newKey == nil {
		newKey = uuid.NewString
	}

	return models.TransactionItem{
		Key:             newKey(),
		Day:             date.Day,
		Month:           strings.ToUpper(d.Format("Jan")),
		Year:            year,
		Date:            d,
		DateFormatted:   d.Format("2 Jan"),
		Description:     descriptionLines(description),
		AmountFormatted: amount.Str,
		Amount:          value,
		Top:             top,
		Bottom:          bottom,
	}, nil
}

// descriptionLines joins description words that share a bottom value and
// returns the lines top to bottom.
func descriptionLines(words []layout.Word) []string {
	byBottom := make(map[float64][]string)
	for _, w := range words {
		byBottom[w.Bottom] = append(byBottom[w.Bottom], w.Str)
	}
	bottoms := make([]float64, 0, len(byBottom))
	for b := range byBottom {
		bottoms = append(bottoms, b)
	}
	sort.Float64s(bottoms)

	lines := make([]string, 0, len(bottoms))
	for _, b := range bottoms {
		lines = append(lines, strings.Join(byBottom[b], " "))
	}
	return lines
}

func daysIn(m time.Month, year int) int {
	return time.Date(year, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
