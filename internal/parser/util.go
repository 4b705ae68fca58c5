package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var threeCharMonthNames = map[string]time.Month{
	"JAN": time.January,
	"FEB": time.February,
	"MAR": time.March,
	"APR": time.April,
	"MAY": time.May,
	"JUN": time.June,
	"JUL": time.July,
	"AUG": time.August,
	"SEP": time.September,
	"OCT": time.October,
	"NOV": time.November,
	"DEC": time.December,
}

// dd/mm as printed in the date column, e.g. "05/01".
var daySlashMonthPattern = regexp.MustCompile(`^(\d{2})/(\d{2})$`)

// DayMonth is the date of a row as printed, before the year is known.
type DayMonth struct {
	Day   string // as printed, e.g. "05"
	Month time.Month
}

// isMonthName reports whether s is a 3-letter month abbreviation.
func isMonthName(s string) bool {
	_, ok := threeCharMonthNames[strings.ToUpper(strings.TrimSpace(s))]
	return ok
}

// isDayNumber reports whether s is a two digit day greater than zero.
func isDayNumber(s string) bool {
	if len(s) != 2 {
		return false
	}
	n, err := strconv.Atoi(s)
	return err == nil && n > 0
}

func parseDayMonth(day, month string) (DayMonth, error) {
	m, ok := threeCharMonthNames[strings.ToUpper(strings.TrimSpace(month))]
	if !ok || !isDayNumber(day) {
		return DayMonth{}, fmt.Errorf("%w: %s %s", ErrInvalidDate, day, month)
	}
	return DayMonth{Day: day, Month: m}, nil
}

func parseDaySlashMonth(s string) (DayMonth, error) {
	m := daySlashMonthPattern.FindStringSubmatch(s)
	if m == nil {
		return DayMonth{}, fmt.Errorf("%w: %s", ErrInvalidDate, s)
	}
	n, _ := strconv.Atoi(m[2])
	if n < 1 || n > 12 || !isDayNumber(m[1]) {
		return DayMonth{}, fmt.Errorf("%w: %s", ErrInvalidDate, s)
	}
	return DayMonth{Day: m[1], Month: time.Month(n)}, nil
}

// stripAmountNoise removes grouping commas, brackets, currency symbols and
// stray whitespace from an amount string.
func stripAmountNoise(s string) string {
	s = strings.TrimSpace(s)
	s = strings.NewReplacer(
		",", "",
		"(", "",
		")", "",
		"£", "",
		"$", "",
		"€", "",
		" ", "",
		"\u00a0", "",
	).Replace(s)
	return strings.TrimPrefix(s, "+")
}
