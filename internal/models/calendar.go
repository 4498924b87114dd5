package models

import (
	"fmt"
	"strings"
	"time"
)

// All is the selector value that disables a filter
const All = "all"

// MonthSelector is either All (zero value) or a calendar month
type MonthSelector struct {
	month time.Month
}

// DaySelector is either All (zero value) or a weekday
type DaySelector struct {
	day     time.Weekday
	present bool
}

// AllMonths selects every month
var AllMonths = MonthSelector{}

// AllDays selects every day of the week
var AllDays = DaySelector{}

// ParseMonth accepts "all" or an English month name, case-insensitive
func ParseMonth(value string) (MonthSelector, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == All {
		return AllMonths, nil
	}
	for m := time.January; m <= time.December; m++ {
		if strings.ToLower(m.String()) == v {
			return MonthSelector{month: m}, nil
		}
	}
	return MonthSelector{}, fmt.Errorf("%w: month %q", ErrInvalidSelector, value)
}

// ParseDay accepts "all" or an English weekday name, case-insensitive
func ParseDay(value string) (DaySelector, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == All {
		return AllDays, nil
	}
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.ToLower(d.String()) == v {
			return DaySelector{day: d, present: true}, nil
		}
	}
	return DaySelector{}, fmt.Errorf("%w: day %q", ErrInvalidSelector, value)
}

// MonthOf selects a single month
func MonthOf(m time.Month) MonthSelector { return MonthSelector{month: m} }

// DayOf selects a single weekday
func DayOf(d time.Weekday) DaySelector { return DaySelector{day: d, present: true} }

// IsAll reports whether the selector disables the month filter
func (s MonthSelector) IsAll() bool { return s.month == 0 }

// Ordinal returns the 1-based month number, or 0 for All
func (s MonthSelector) Ordinal() int { return int(s.month) }

func (s MonthSelector) String() string {
	if s.IsAll() {
		return All
	}
	return strings.ToLower(s.month.String())
}

// IsAll reports whether the selector disables the day filter
func (s DaySelector) IsAll() bool { return !s.present }

// Name returns the capitalized weekday name, or "" for All
func (s DaySelector) Name() string {
	if s.IsAll() {
		return ""
	}
	return s.day.String()
}

func (s DaySelector) String() string {
	if s.IsAll() {
		return All
	}
	return strings.ToLower(s.day.String())
}

// MonthName returns the English name of a 1-based month number
func MonthName(month int) string {
	if month < 1 || month > 12 {
		return ""
	}
	return time.Month(month).String()
}
