// Package termstructure defines the discount curve collaborator consumed by
// lattices and instruments. Curve construction itself lives elsewhere; the
// implementations here are the minimal ones needed to drive valuations.
package termstructure

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/meenmo/molattice/utils"
)

var (
	// ErrNilCurve is returned when a required curve argument is nil.
	ErrNilCurve = errors.New("nil curve")
	// ErrBadPillars is returned for malformed interpolation pillars.
	ErrBadPillars = errors.New("bad curve pillars")
)

// DiscountCurve provides discount factors on a year-fraction time axis.
type DiscountCurve interface {
	Discount(t float64) float64
}

// DatedCurve provides discount factors keyed on calendar dates.
type DatedCurve interface {
	DF(t time.Time) float64
}

// Forward returns the discount factor between t1 and t2.
func Forward(c DiscountCurve, t1, t2 float64) float64 {
	return c.Discount(t2) / c.Discount(t1)
}

// ZeroRate returns the continuously compounded zero rate to t.
func ZeroRate(c DiscountCurve, t float64) float64 {
	if t <= 0 {
		return 0
	}
	return -math.Log(c.Discount(t)) / t
}

// FlatForward is a constant continuously compounded rate.
type FlatForward struct {
	Rate float64
}

// Discount implements DiscountCurve.
func (f FlatForward) Discount(t float64) float64 {
	return math.Exp(-f.Rate * t)
}

// InterpolatedDiscount interpolates log discount factors linearly in time
// (piecewise flat forwards) and extrapolates the last forward flat.
type InterpolatedDiscount struct {
	times  []float64
	logDFs []float64
}

// NewInterpolatedDiscount builds a curve from pillars. A pillar at t=0 with
// DF 1 is implied when absent.
func NewInterpolatedDiscount(times, dfs []float64) (*InterpolatedDiscount, error) {
	if len(times) != len(dfs) || len(times) == 0 {
		return nil, fmt.Errorf("NewInterpolatedDiscount: %d times vs %d dfs: %w", len(times), len(dfs), ErrBadPillars)
	}
	idx := make([]int, len(times))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return times[idx[a]] < times[idx[b]] })

	c := &InterpolatedDiscount{}
	if times[idx[0]] > 0 {
		c.times = append(c.times, 0)
		c.logDFs = append(c.logDFs, 0)
	}
	for _, i := range idx {
		if dfs[i] <= 0 {
			return nil, fmt.Errorf("NewInterpolatedDiscount: df %g at t=%g: %w", dfs[i], times[i], ErrBadPillars)
		}
		if n := len(c.times); n > 0 && times[i] <= c.times[n-1] {
			return nil, fmt.Errorf("NewInterpolatedDiscount: duplicate pillar t=%g: %w", times[i], ErrBadPillars)
		}
		c.times = append(c.times, times[i])
		c.logDFs = append(c.logDFs, math.Log(dfs[i]))
	}
	if len(c.times) < 2 {
		return nil, fmt.Errorf("NewInterpolatedDiscount: need a positive pillar: %w", ErrBadPillars)
	}
	return c, nil
}

// Discount implements DiscountCurve.
func (c *InterpolatedDiscount) Discount(t float64) float64 {
	n := len(c.times)
	i := sort.SearchFloat64s(c.times, t)
	switch {
	case i == 0:
		i = 1
	case i >= n:
		i = n - 1
	}
	t1, t2 := c.times[i-1], c.times[i]
	l1, l2 := c.logDFs[i-1], c.logDFs[i]
	forward := (l1 - l2) / (t2 - t1)
	return math.Exp(l1 - forward*(t-t1))
}

// Dated adapts a date-keyed curve to the year-fraction axis used by lattices.
type Dated struct {
	Curve     DatedCurve
	Reference time.Time
	DayCount  string
}

// Discount implements DiscountCurve by mapping t back to a calendar date. The
// mapping is exact to the day for ACT/365F, the lattice time axis.
func (d Dated) Discount(t float64) float64 {
	days := t * 365.0
	if d.DayCount == "ACT/360" {
		days = t * 360.0
	}
	date := d.Reference.Add(time.Duration(math.Round(days*24)) * time.Hour)
	return d.Curve.DF(date)
}

// YearFraction converts a date to the curve's time axis.
func (d Dated) YearFraction(date time.Time) float64 {
	return utils.YearFraction(d.Reference, date, d.DayCount)
}
