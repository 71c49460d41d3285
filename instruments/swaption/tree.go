package swaption

import (
	"fmt"
	"sort"

	"github.com/meenmo/molattice/config"
	"github.com/meenmo/molattice/lattice"
	"github.com/meenmo/molattice/stepcondition"
	"github.com/meenmo/molattice/termstructure"
	"github.com/meenmo/molattice/timegrid"
)

// Method is the lattice a swaption is rolled back on. *lattice.HullWhiteTree
// and any other short-rate tree built on *lattice.Tree satisfy it.
type Method interface {
	Grid() timegrid.Grid
	Initialize(asset lattice.Asset, t float64) error
	RollbackAll(assets []lattice.Asset, to float64) error
}

// TreeSwaption is the right to enter Swap at one of ExerciseTimes. A single
// exercise time makes it European, several make it Bermudan.
type TreeSwaption struct {
	Swap          SwapTerms
	ExerciseTimes []float64
}

// Validate checks the swap and that every exercise time starts a period.
func (s TreeSwaption) Validate() error {
	if err := s.Swap.Validate(); err != nil {
		return err
	}
	if len(s.ExerciseTimes) == 0 {
		return fmt.Errorf("no exercise time: %w", ErrInvalidTerms)
	}
	_, err := s.Swap.matchTimes(s.ExerciseTimes)
	return err
}

// MandatoryTimes returns the times a lattice must contain to value s.
func (s TreeSwaption) MandatoryTimes() []float64 {
	times := append([]float64{s.Swap.StartTime}, s.Swap.PaymentTimes...)
	times = append(times, s.ExerciseTimes...)
	sort.Float64s(times)
	tol := config.GetConfig().TimeTolerance
	out := times[:1]
	for _, t := range times[1:] {
		if t-out[len(out)-1] > tol {
			out = append(out, t)
		}
	}
	return out
}

// NewTree builds a Hull-White tree fitted to curve whose grid holds every
// mandatory time of s and at least steps intervals.
func (s TreeSwaption) NewTree(curve termstructure.DiscountCurve, a, sigma float64, steps int, opts ...lattice.Option) (*lattice.HullWhiteTree, error) {
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("TreeSwaption.NewTree: %w", err)
	}
	grid, err := timegrid.NewWithMandatory(s.MandatoryTimes(), steps)
	if err != nil {
		return nil, fmt.Errorf("TreeSwaption.NewTree: %w", err)
	}
	return lattice.NewHullWhiteTree(grid, curve, a, sigma, opts...)
}

// Price values s on m. The fixed leg is rolled back as a bond alongside the
// option; at every exercise time the option reads the bond before the coupon
// paid at that time is added, so exercise captures later cash flows only.
func (s TreeSwaption) Price(m Method) (float64, error) {
	if err := s.Validate(); err != nil {
		return 0, fmt.Errorf("TreeSwaption.Price: %w", err)
	}
	grid := m.Grid()
	for _, t := range s.MandatoryTimes() {
		if _, err := grid.Index(t); err != nil {
			return 0, fmt.Errorf("TreeSwaption.Price: %w", err)
		}
	}

	swap := s.Swap
	last := len(swap.PaymentTimes) - 1
	tol := config.GetConfig().TimeTolerance

	bond := lattice.ConstantAsset(swap.Notional + swap.Coupon(last))
	bond.AddTimes(swap.PaymentTimes...)
	bond.AddCondition(stepcondition.Func[[]float64](func(values []float64, t float64) {
		for k := 0; k < last; k++ {
			if d := swap.PaymentTimes[k] - t; d <= tol && d >= -tol {
				c := swap.Coupon(k)
				for n := range values {
					values[n] += c
				}
				return
			}
		}
	}))

	sign := swap.Position.sign()
	exercise := stepcondition.NewAmerican(stepcondition.InnerValueFunc(func(n int, _ float64) float64 {
		return sign * (bond.Values()[n] - swap.Notional)
	}))
	option := lattice.ConstantAsset(0, stepcondition.OnTimes[[]float64]{
		Times:     s.ExerciseTimes,
		Condition: exercise,
	})
	option.AddTimes(s.ExerciseTimes...)

	maturity := swap.Maturity()
	if err := m.Initialize(option, maturity); err != nil {
		return 0, fmt.Errorf("TreeSwaption.Price: %w", err)
	}
	if err := m.Initialize(bond, maturity); err != nil {
		return 0, fmt.Errorf("TreeSwaption.Price: %w", err)
	}
	if err := m.RollbackAll([]lattice.Asset{option, bond}, grid.At(0)); err != nil {
		return 0, fmt.Errorf("TreeSwaption.Price: %w", err)
	}
	return option.Values()[0], nil
}
