package calendar

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// CalendarID identifies a holiday calendar.
type CalendarID string

const (
	TARGET CalendarID = "TARGET"
	USD    CalendarID = "USD"
	KRW    CalendarID = "KRW"
	// NONE treats every weekday as a business day.
	NONE CalendarID = "NONE"
)

// ErrUnknownConvention is returned for an unsupported business-day convention.
var ErrUnknownConvention = errors.New("unknown business day convention")

// Convention is a business-day roll rule.
type Convention string

const (
	ModifiedFollowing Convention = "MF"
	Following         Convention = "F"
)

// ParseConvention accepts MF, F and their long names. An empty string is
// Modified Following.
func ParseConvention(s string) (Convention, error) {
	switch strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "_", " ")) {
	case "", "MF", "MODIFIED FOLLOWING":
		return ModifiedFollowing, nil
	case "F", "FOLLOWING":
		return Following, nil
	}
	return "", fmt.Errorf("convention %q: %w", s, ErrUnknownConvention)
}

// isHoliday applies rule-based holiday sets. Only fixed-date and Easter-based
// holidays are modelled; lunar holidays for KRW are not.
func isHoliday(cal CalendarID, t time.Time) bool {
	m, d := t.Month(), t.Day()
	switch cal {
	case TARGET:
		if (m == time.January && d == 1) || (m == time.May && d == 1) ||
			(m == time.December && (d == 25 || d == 26)) {
			return true
		}
		easter := easterSunday(t.Year())
		return sameDay(t, easter.AddDate(0, 0, -2)) || sameDay(t, easter.AddDate(0, 0, 1))
	case USD:
		return observed(t, time.January, 1) || observed(t, time.July, 4) ||
			observed(t, time.November, 11) || observed(t, time.December, 25)
	case KRW:
		return (m == time.January && d == 1) || (m == time.March && d == 1) ||
			(m == time.May && d == 5) || (m == time.June && d == 6) ||
			(m == time.August && d == 15) || (m == time.October && (d == 3 || d == 9)) ||
			(m == time.December && d == 25)
	default:
		return false
	}
}

// observed reports whether t is the fixed-date holiday (month, day), moved to
// Friday when it falls on Saturday and to Monday when it falls on Sunday.
func observed(t time.Time, month time.Month, day int) bool {
	h := time.Date(t.Year(), month, day, 0, 0, 0, 0, time.UTC)
	switch h.Weekday() {
	case time.Saturday:
		h = h.AddDate(0, 0, -1)
	case time.Sunday:
		h = h.AddDate(0, 0, 1)
	}
	return sameDay(t, h)
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

// easterSunday uses the anonymous Gregorian algorithm.
func easterSunday(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := ((h + l - 7*m + 114) % 31) + 1
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

// IsBusinessDay checks weekends and holiday sets.
func IsBusinessDay(cal CalendarID, t time.Time) bool {
	if t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		return false
	}
	return !isHoliday(cal, t)
}

// Adjust applies Modified Following.
func Adjust(cal CalendarID, t time.Time) time.Time {
	origMonth := t.Month()
	for !IsBusinessDay(cal, t) {
		t = t.AddDate(0, 0, 1)
	}
	if t.Month() != origMonth {
		t = t.AddDate(0, 0, -1)
		for !IsBusinessDay(cal, t) {
			t = t.AddDate(0, 0, -1)
		}
	}
	return t
}

// AdjustFollowing applies a simple Following convention (no month preservation).
func AdjustFollowing(cal CalendarID, t time.Time) time.Time {
	for !IsBusinessDay(cal, t) {
		t = t.AddDate(0, 0, 1)
	}
	return t
}

// AdjustWith rolls t on cal by conv.
func AdjustWith(cal CalendarID, conv Convention, t time.Time) time.Time {
	if conv == Following {
		return AdjustFollowing(cal, t)
	}
	return Adjust(cal, t)
}

// AddBusinessDays advances n business days (n can be negative).
func AddBusinessDays(cal CalendarID, t time.Time, n int) time.Time {
	step := 1
	if n < 0 {
		step = -1
	}
	for n != 0 {
		t = t.AddDate(0, 0, step)
		if IsBusinessDay(cal, t) {
			n -= step
		}
	}
	return t
}
