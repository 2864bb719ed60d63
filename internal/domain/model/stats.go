package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"orbit-redemption/internal/domain"
)

// Period names a calendar reporting window.
type Period string

const (
	PeriodThisMonth   Period = "this_month"
	PeriodLastMonth   Period = "last_month"
	PeriodThisQuarter Period = "this_quarter"
	PeriodThisYear    Period = "this_year"
	PeriodAllTime     Period = "all_time"
)

// Window is the half-open interval [Start, End). A zero bound is unbounded.
type Window struct {
	Start time.Time
	End   time.Time
}

// Unbounded covers all time.
var Unbounded = Window{}

// NewWindow validates an explicit window.
func NewWindow(start, end time.Time) (Window, error) {
	if !start.IsZero() && !end.IsZero() && !start.Before(end) {
		return Window{}, domain.ErrInvalidWindow
	}
	return Window{Start: start, End: end}, nil
}

// Contains reports whether t falls in [Start, End).
func (w Window) Contains(t time.Time) bool {
	if !w.Start.IsZero() && t.Before(w.Start) {
		return false
	}
	if !w.End.IsZero() && !t.Before(w.End) {
		return false
	}
	return true
}

// ContainsPtr is Contains for nullable timestamps; nil is never contained.
func (w Window) ContainsPtr(t *time.Time) bool {
	return t != nil && w.Contains(*t)
}

// PeriodWindow computes the calendar window for p as seen from now in loc.
func PeriodWindow(p Period, now time.Time, loc *time.Location) (Window, error) {
	if loc == nil {
		loc = time.UTC
	}
	n := now.In(loc)
	y, m, _ := n.Date()
	monthStart := time.Date(y, m, 1, 0, 0, 0, 0, loc)

	switch Period(strings.ToLower(string(p))) {
	case PeriodThisMonth:
		return Window{Start: monthStart, End: monthStart.AddDate(0, 1, 0)}, nil
	case PeriodLastMonth:
		return Window{Start: monthStart.AddDate(0, -1, 0), End: monthStart}, nil
	case PeriodThisQuarter:
		qm := time.Month((int(m)-1)/3*3 + 1)
		start := time.Date(y, qm, 1, 0, 0, 0, 0, loc)
		return Window{Start: start, End: start.AddDate(0, 3, 0)}, nil
	case PeriodThisYear:
		start := time.Date(y, time.January, 1, 0, 0, 0, 0, loc)
		return Window{Start: start, End: start.AddDate(1, 0, 0)}, nil
	case PeriodAllTime:
		return Unbounded, nil
	}
	return Window{}, domain.ErrInvalidWindow
}

// Stats are the settlement figures for one owner selection.
// TotalGenerated and TotalRedeemed are period flows; PendingSettlement is the
// outstanding liability at report time and ignores the window.
type Stats struct {
	TotalGenerated    int64
	TotalRedeemed     int64
	PendingSettlement int64
}

// RedemptionRate returns TotalRedeemed/TotalGenerated as a percentage rounded to one
// decimal place. ok is false when nothing was generated.
func (s Stats) RedemptionRate() (rate decimal.Decimal, ok bool) {
	if s.TotalGenerated <= 0 {
		return decimal.Zero, false
	}
	return decimal.NewFromInt(s.TotalRedeemed).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(s.TotalGenerated)).
		Round(1), true
}

// DistributorStats pairs a distributor with its figures for a window.
type DistributorStats struct {
	Distributor *Distributor
	Stats       Stats
}
