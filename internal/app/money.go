package app

import (
	"time"

	"github.com/shopspring/decimal"
)

var (
	hundred    = decimal.NewFromInt(100)
	daysPerRun = decimal.NewFromInt(30)
)

// roundUp rounds to whole currency units, halves away from zero.
// The currency has no minor units, so every accrued amount goes through here.
func roundUp(d decimal.Decimal) decimal.Decimal {
	return d.Round(0)
}

// dateOf strips the clock part, keeping the calendar date in t's location.
func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// daysBetween counts calendar days from one date to another. DST shifts do not
// change the count because both sides are re-anchored in UTC.
func daysBetween(from, to time.Time) int {
	f := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	t := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(t.Sub(f).Hours() / 24)
}
