package lattice

import (
	"fmt"
	"math"

	"github.com/meenmo/molattice/config"
	"github.com/meenmo/molattice/termstructure"
	"github.com/meenmo/molattice/timegrid"
)

// HullWhiteTree is a trinomial short-rate tree r = x + alpha(t), where x
// follows a zero-mean Ornstein-Uhlenbeck process and alpha is fitted column
// by column so that state prices reprice the discount curve.
type HullWhiteTree struct {
	*TrinomialTree
	curve termstructure.DiscountCurve
	alpha []float64
}

// NewHullWhiteTree builds and fits a Hull-White tree with mean reversion a
// and volatility sigma to curve.
func NewHullWhiteTree(grid timegrid.Grid, curve termstructure.DiscountCurve, a, sigma float64, opts ...Option) (*HullWhiteTree, error) {
	if curve == nil {
		return nil, fmt.Errorf("NewHullWhiteTree: %w", termstructure.ErrNilCurve)
	}
	if !(sigma > 0) || a < 0 {
		return nil, fmt.Errorf("NewHullWhiteTree: a=%g sigma=%g: %w", a, sigma, ErrConstruction)
	}
	hw := &HullWhiteTree{
		TrinomialTree: &TrinomialTree{process: OrnsteinUhlenbeck{Speed: a, Vol: sigma}},
		curve:         curve,
		alpha:         make([]float64, grid.Len()),
	}
	if err := hw.build(grid, hw, opts...); err != nil {
		return nil, fmt.Errorf("NewHullWhiteTree: %w", err)
	}
	if err := hw.fit(); err != nil {
		return nil, fmt.Errorf("NewHullWhiteTree: %w", err)
	}
	hw.logger.Debug().
		Float64("a", a).
		Float64("sigma", sigma).
		Int("columns", hw.Len()).
		Msg("hull-white tree fitted")
	return hw, nil
}

// fit solves alpha_i from the state prices of column i, which only depend on
// alpha_0..alpha_{i-1}.
func (hw *HullWhiteTree) fit() error {
	grid := hw.Grid()
	for i := 0; i < grid.Len()-1; i++ {
		q, err := hw.StatePrices(i)
		if err != nil {
			return err
		}
		dt := grid.Dt(i)
		sum := 0.0
		for k, n := range hw.columns[i] {
			sum += q[k] * math.Exp(-hw.Underlying(i, n.J)*dt)
		}
		target := hw.curve.Discount(grid.At(i + 1))
		if !(sum > 0) || !(target > 0) {
			return fmt.Errorf("fit column %d: state sum %g, discount %g: %w", i, sum, target, ErrNumericalDomain)
		}
		hw.alpha[i] = math.Log(sum/target) / dt
	}
	return hw.CheckFit(hw.curve, config.GetConfig().StatePriceTolerance)
}

// CheckFit verifies that the state prices of every column sum to
// curve.Discount at that column within relative tolerance tol.
func (hw *HullWhiteTree) CheckFit(curve termstructure.DiscountCurve, tol float64) error {
	grid := hw.Grid()
	for i := 1; i < hw.Len(); i++ {
		sum, err := hw.StatePriceSum(i)
		if err != nil {
			return err
		}
		target := curve.Discount(grid.At(i))
		if !(math.Abs(sum-target) <= tol*target) {
			return fmt.Errorf("CheckFit: column %d state prices sum to %.15g, discount %.15g: %w",
				i, sum, target, ErrNumericalDomain)
		}
	}
	return nil
}

// Discount implements Scheme.
func (hw *HullWhiteTree) Discount(i, j int) float64 {
	return math.Exp(-hw.ShortRate(i, j) * hw.Grid().Dt(i))
}

// ShortRate returns the short rate at node j of column i.
func (hw *HullWhiteTree) ShortRate(i, j int) float64 {
	return hw.Underlying(i, j) + hw.alpha[i]
}

// Alpha returns the fitted drift shift of column i.
func (hw *HullWhiteTree) Alpha(i int) float64 { return hw.alpha[i] }
