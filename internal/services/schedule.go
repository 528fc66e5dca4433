// Package services provides business logic and orchestration services.
//
// This file holds the date arithmetic behind recurring transactions. Each
// frequency has its own Advancer registered in a strategy table; calendar
// month steps keep the day-of-month and clamp it to the end of short months.
// Clamping is not undone on later steps, so Jan 31 -> Feb 28 -> Mar 28.
package services

import (
	"fmt"
	"time"

	"finanzas/internal/core"
)

// Advancer moves a date forward by one period of its frequency.
type Advancer interface {
	Advance(d core.Date) core.Date
}

// DayStep advances by a fixed number of days.
type DayStep struct {
	Days int
}

func (s DayStep) Advance(d core.Date) core.Date {
	return d.AddDays(s.Days)
}

// MonthStep advances by whole calendar months, clamping the day to the
// last day of the target month.
type MonthStep struct {
	Months int
}

func (s MonthStep) Advance(d core.Date) core.Date {
	return addMonthsClamped(d, s.Months)
}

var advancers = map[core.Frequency]Advancer{
	core.Daily:     DayStep{Days: 1},
	core.Weekly:    DayStep{Days: 7},
	core.Biweekly:  DayStep{Days: 14},
	core.Monthly:   MonthStep{Months: 1},
	core.Quarterly: MonthStep{Months: 3},
	core.Yearly:    MonthStep{Months: 12},
}

// GetAdvancer returns the strategy for a frequency.
func GetAdvancer(f core.Frequency) (Advancer, error) {
	a, ok := advancers[f]
	if !ok {
		return nil, fmt.Errorf("advancer for %q: %w", f, core.ErrInvalidFrequency)
	}
	return a, nil
}

// Advance returns the next occurrence strictly after d.
func Advance(d core.Date, f core.Frequency) (core.Date, error) {
	a, err := GetAdvancer(f)
	if err != nil {
		return core.Date{}, err
	}
	return a.Advance(d), nil
}

// SubsequentExecution is the occurrence following prev. It steps from prev
// itself, not from the original anchor day.
func SubsequentExecution(prev core.Date, f core.Frequency) (core.Date, error) {
	return Advance(prev, f)
}

// InitialNextExecution computes the first occurrence on or after the
// recurrence start date.
func InitialNextExecution(r core.Recurrence) (core.Date, error) {
	start := r.StartDate
	switch r.Frequency {
	case core.Daily:
		return start, nil

	case core.Weekly:
		target := int(start.Weekday())
		if r.DayOfWeek != nil {
			target = *r.DayOfWeek
		}
		delta := (target - int(start.Weekday()) + 7) % 7
		return start.AddDays(delta), nil

	case core.Biweekly:
		candidate := withDay(start, dayOfMonth(r))
		if candidate.Before(start.Time) {
			candidate = candidate.AddDays(14)
		}
		return candidate, nil

	case core.Monthly, core.Quarterly, core.Yearly:
		candidate := withDay(start, dayOfMonth(r))
		if candidate.Before(start.Time) {
			return Advance(candidate, r.Frequency)
		}
		return candidate, nil
	}
	return core.Date{}, fmt.Errorf("initial execution for %q: %w", r.Frequency, core.ErrInvalidFrequency)
}

// Occurrences lists the next n occurrences starting at from, inclusive.
// It stops early at end when end is set.
func Occurrences(from core.Date, f core.Frequency, end *core.Date, n int) ([]core.Date, error) {
	out := make([]core.Date, 0, n)
	d := from
	for len(out) < n {
		if end != nil && d.After(end.Time) {
			break
		}
		out = append(out, d)
		next, err := Advance(d, f)
		if err != nil {
			return nil, err
		}
		d = next
	}
	return out, nil
}

func dayOfMonth(r core.Recurrence) int {
	if r.DayOfMonth != nil {
		return *r.DayOfMonth
	}
	return r.StartDate.Day()
}

// withDay sets the day of month of d, clamped to the month length.
func withDay(d core.Date, day int) core.Date {
	last := core.DaysInMonth(d.Year(), d.Month())
	if day > last {
		day = last
	}
	return core.NewDate(d.Year(), d.Month(), day)
}

func addMonthsClamped(d core.Date, months int) core.Date {
	total := d.Year()*12 + (d.Month() - 1) + months
	year, month := total/12, total%12+1
	day := d.Day()
	if last := core.DaysInMonth(year, month); day > last {
		day = last
	}
	return core.Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}
