package parser

import (
	"errors"
	"time"
)

// YearResolver decides which calendar year a statement month belongs to.
// Statement rows print only day and month.
type YearResolver interface {
	ResolveYear(month time.Month) int
}

// HeuristicYear assumes December rows belong to the previous year and every
// other month to the current one. It is only right for statements read
// shortly after they were issued; supply a StatementPeriod when the period is
// known.
type HeuristicYear struct {
	Now func() time.Time
}

func (h HeuristicYear) ResolveYear(month time.Month) int {
	now := time.Now()
	if h.Now != nil {
		now = h.Now()
	}
	if month == time.December {
		return now.Year() - 1
	}
	return now.Year()
}

// StatementPeriod resolves years from the statement period printed in the
// header, including periods that straddle a year end.
type StatementPeriod struct {
	Start time.Time
	End   time.Time
}

// Validate checks that the period is set and ordered.
func (p StatementPeriod) Validate() error {
	if p.Start.IsZero() || p.End.IsZero() {
		return errors.New("statement period needs both a start and an end date")
	}
	if p.End.Before(p.Start) {
		return errors.New("statement period ends before it starts")
	}
	return nil
}

func (p StatementPeriod) ResolveYear(month time.Month) int {
	if p.Start.Year() == p.End.Year() || month >= p.Start.Month() {
		return p.Start.Year()
	}
	return p.End.Year()
}

// FixedYear assigns every row to one year.
type FixedYear int

func (y FixedYear) ResolveYear(time.Month) int {
	return int(y)
}
