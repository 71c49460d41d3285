package utils

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUnknownDayCount is returned by ParseDayCount.
var ErrUnknownDayCount = errors.New("unknown day count convention")

var dayCountAliases = map[string]string{
	"ACT/360":  "ACT/360",
	"A360":     "ACT/360",
	"ACT360":   "ACT/360",
	"ACT/365F": "ACT/365F",
	"ACT/365":  "ACT/365F",
	"A365F":    "ACT/365F",
	"ACT365F":  "ACT/365F",
	"30E/360":  "30E/360",
	"30/360":   "30/360",
}

// ParseDayCount normalizes a convention name to one YearFraction accepts.
func ParseDayCount(s string) (string, error) {
	if dc, ok := dayCountAliases[strings.ToUpper(strings.TrimSpace(s))]; ok {
		return dc, nil
	}
	return "", fmt.Errorf("ParseDayCount: %q: %w", s, ErrUnknownDayCount)
}

// YearFraction computes year fraction between two dates using the specified day count convention.
// Supported conventions: ACT/360, ACT/365F, 30E/360, 30/360. Anything else falls back to ACT/365F,
// which is also the time axis used by lattices and time grids.
func YearFraction(start, end time.Time, convention string) float64 {
	switch convention {
	case "ACT/360":
		return Days(start, end) / 360.0
	case "ACT/365F":
		return Days(start, end) / 365.0
	case "30E/360", "30/360":
		// 30E/360 ISDA (Eurobond basis)
		// D1 and D2 are capped at 30
		d1 := start.Day()
		if d1 > 30 {
			d1 = 30
		}
		d2 := end.Day()
		if d2 > 30 {
			d2 = 30
		}
		y1, m1 := start.Year(), int(start.Month())
		y2, m2 := end.Year(), int(end.Month())
		return float64(360*(y2-y1)+30*(m2-m1)+(d2-d1)) / 360.0
	default:
		return Days(start, end) / 365.0
	}
}
