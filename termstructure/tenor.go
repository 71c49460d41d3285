package termstructure

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// TenorToYears converts tenor strings like "1W", "3M", "10Y" to year
// fractions. A bare number is read as years.
func TenorToYears(tenor string) (float64, error) {
	tenor = strings.TrimSpace(strings.ToUpper(tenor))
	unit := 0.0
	switch {
	case strings.HasSuffix(tenor, "D"):
		unit = 1.0 / 365.0
	case strings.HasSuffix(tenor, "W"):
		unit = 7.0 / 365.0
	case strings.HasSuffix(tenor, "M"):
		unit = 1.0 / 12.0
	case strings.HasSuffix(tenor, "Y"):
		unit = 1.0
	}
	if unit == 0 {
		v, err := strconv.ParseFloat(tenor, 64)
		if err != nil {
			return 0, fmt.Errorf("TenorToYears: %q: %w", tenor, ErrBadPillars)
		}
		return v, nil
	}
	v, err := strconv.Atoi(tenor[:len(tenor)-1])
	if err != nil {
		return 0, fmt.Errorf("TenorToYears: %q: %w", tenor, ErrBadPillars)
	}
	return float64(v) * unit, nil
}

// NewFromZeroRates builds an interpolated curve from continuously compounded
// zero rates keyed by tenor. Rates are decimals (0.025 == 2.5%).
func NewFromZeroRates(zeros map[string]float64) (*InterpolatedDiscount, error) {
	times := make([]float64, 0, len(zeros))
	dfs := make([]float64, 0, len(zeros))
	for tenor, z := range zeros {
		t, err := TenorToYears(tenor)
		if err != nil {
			return nil, err
		}
		times = append(times, t)
		dfs = append(dfs, math.Exp(-z*t))
	}
	return NewInterpolatedDiscount(times, dfs)
}
