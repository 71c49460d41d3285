// Package timegrid holds the ordered valuation times a lattice or a finite
// difference grid is built on.
package timegrid

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/meenmo/molattice/config"
	"github.com/meenmo/molattice/utils"
)

var (
	// ErrNotIncreasing is returned when grid times are not strictly increasing.
	ErrNotIncreasing = errors.New("time grid not strictly increasing")
	// ErrTimeNotOnGrid is returned when a time does not match any grid point.
	ErrTimeNotOnGrid = errors.New("time not on grid")
)

// Grid is an immutable, strictly increasing sequence of times in years.
type Grid struct {
	times []float64
}

// New builds a grid from explicit times. Times must be non-negative and
// strictly increasing.
func New(times ...float64) (Grid, error) {
	if len(times) == 0 {
		return Grid{}, fmt.Errorf("timegrid.New: empty grid: %w", ErrNotIncreasing)
	}
	if times[0] < 0 {
		return Grid{}, fmt.Errorf("timegrid.New: negative time %g", times[0])
	}
	for i := 1; i < len(times); i++ {
		if !(times[i] > times[i-1]) {
			return Grid{}, fmt.Errorf("timegrid.New: t[%d]=%g after t[%d]=%g: %w",
				i, times[i], i-1, times[i-1], ErrNotIncreasing)
		}
	}
	out := make([]float64, len(times))
	copy(out, times)
	return Grid{times: out}, nil
}

// NewUniform builds steps+1 equally spaced points on [0, end].
func NewUniform(end float64, steps int) (Grid, error) {
	if steps <= 0 || !(end > 0) {
		return Grid{}, fmt.Errorf("timegrid.NewUniform: need end > 0 and steps > 0, got %g, %d", end, steps)
	}
	times := make([]float64, steps+1)
	dt := end / float64(steps)
	for i := range times {
		times[i] = dt * float64(i)
	}
	times[steps] = end
	return Grid{times: times}, nil
}

// NewWithMandatory builds a grid from 0 to the last mandatory time that
// contains every mandatory time and splits each interval between them into
// sub-steps no longer than last/steps.
func NewWithMandatory(mandatory []float64, steps int) (Grid, error) {
	if steps <= 0 {
		return Grid{}, fmt.Errorf("timegrid.NewWithMandatory: steps must be positive, got %d", steps)
	}
	tol := config.GetConfig().TimeTolerance

	points := make([]float64, 0, len(mandatory)+1)
	points = append(points, 0)
	for _, t := range mandatory {
		if t < -tol {
			return Grid{}, fmt.Errorf("timegrid.NewWithMandatory: negative time %g", t)
		}
		points = append(points, math.Max(t, 0))
	}
	sort.Float64s(points)
	uniq := points[:1]
	for _, t := range points[1:] {
		if t-uniq[len(uniq)-1] > tol {
			uniq = append(uniq, t)
		}
	}
	if len(uniq) < 2 {
		return Grid{}, fmt.Errorf("timegrid.NewWithMandatory: no positive mandatory time")
	}

	last := uniq[len(uniq)-1]
	maxDt := last / float64(steps)
	times := []float64{0}
	for i := 1; i < len(uniq); i++ {
		begin, end := uniq[i-1], uniq[i]
		n := int(math.Ceil((end-begin)/maxDt - tol))
		if n < 1 {
			n = 1
		}
		dt := (end - begin) / float64(n)
		for k := 1; k < n; k++ {
			times = append(times, begin+dt*float64(k))
		}
		times = append(times, end)
	}
	return Grid{times: times}, nil
}

// FromDates converts dated valuation points to year fractions from ref using
// the given day count. ref itself becomes time 0.
func FromDates(ref time.Time, dates []time.Time, dayCount string) (Grid, error) {
	sorted := make([]time.Time, len(dates))
	copy(sorted, dates)
	utils.SortDates(sorted)

	times := []float64{0}
	for _, d := range sorted {
		t := utils.YearFraction(ref, d, dayCount)
		if t <= times[len(times)-1] {
			if t < 0 {
				return Grid{}, fmt.Errorf("timegrid.FromDates: %s before reference %s",
					d.Format("2006-01-02"), ref.Format("2006-01-02"))
			}
			continue
		}
		times = append(times, t)
	}
	return New(times...)
}

// Len returns the number of grid points.
func (g Grid) Len() int { return len(g.times) }

// At returns t_i.
func (g Grid) At(i int) float64 { return g.times[i] }

// Dt returns t_{i+1} - t_i.
func (g Grid) Dt(i int) float64 { return g.times[i+1] - g.times[i] }

// Last returns the final grid time.
func (g Grid) Last() float64 { return g.times[len(g.times)-1] }

// Times returns a copy of the grid times.
func (g Grid) Times() []float64 {
	out := make([]float64, len(g.times))
	copy(out, g.times)
	return out
}

// Index returns i such that |t_i - t| is within the configured time tolerance.
func (g Grid) Index(t float64) (int, error) {
	i := g.ClosestIndex(t)
	if i < 0 || math.Abs(g.times[i]-t) > config.GetConfig().TimeTolerance {
		return -1, fmt.Errorf("timegrid.Index: t=%g: %w", t, ErrTimeNotOnGrid)
	}
	return i, nil
}

// ClosestIndex returns the index of the grid time nearest to t, or -1 for an
// empty grid.
func (g Grid) ClosestIndex(t float64) int {
	n := len(g.times)
	if n == 0 {
		return -1
	}
	i := sort.SearchFloat64s(g.times, t)
	switch {
	case i == 0:
		return 0
	case i >= n:
		return n - 1
	case t-g.times[i-1] <= g.times[i]-t:
		return i - 1
	default:
		return i
	}
}

// IsUniform reports whether all steps match the first within tol.
func (g Grid) IsUniform(tol float64) bool {
	if len(g.times) < 3 {
		return true
	}
	dt := g.Dt(0)
	for i := 1; i < len(g.times)-1; i++ {
		if math.Abs(g.Dt(i)-dt) > tol {
			return false
		}
	}
	return true
}
