package lattice

import (
	"fmt"
	"math"

	"github.com/meenmo/molattice/config"
	"github.com/meenmo/molattice/timegrid"
)

// BinomialStep holds the constant per-step parameters of a recombining
// binomial tree on the log of its underlying.
type BinomialStep struct {
	LogUp    float64
	LogDown  float64
	ProbUp   float64
	Discount float64
}

// CoxRossRubinstein returns the CRR step for a diffusion with the given
// volatility, risk-free rate and dividend yield over dt.
func CoxRossRubinstein(vol, rate, dividend, dt float64) BinomialStep {
	dx := vol * math.Sqrt(dt)
	up := math.Exp(dx)
	growth := math.Exp((rate - dividend) * dt)
	return BinomialStep{
		LogUp:    dx,
		LogDown:  -dx,
		ProbUp:   (growth - 1/up) / (up - 1/up),
		Discount: math.Exp(-rate * dt),
	}
}

// JarrowRudd returns the equal-probability step matching the drift of the
// log underlying.
func JarrowRudd(vol, rate, dividend, dt float64) BinomialStep {
	drift := (rate - dividend - 0.5*vol*vol) * dt
	dx := vol * math.Sqrt(dt)
	return BinomialStep{
		LogUp:    drift + dx,
		LogDown:  drift - dx,
		ProbUp:   0.5,
		Discount: math.Exp(-rate * dt),
	}
}

// BinomialTree is a recombining two-branch tree. Branching index j counts up
// moves, so column i holds j = 0..i.
type BinomialTree struct {
	*Tree
	spot float64
	step BinomialStep
}

// NewBinomialTree builds a binomial tree of underlying spot on a uniform grid.
func NewBinomialTree(grid timegrid.Grid, spot float64, step BinomialStep, opts ...Option) (*BinomialTree, error) {
	if !grid.IsUniform(config.GetConfig().TimeTolerance) {
		return nil, fmt.Errorf("NewBinomialTree: grid is not uniform: %w", ErrConstruction)
	}
	if step.ProbUp < 0 || step.ProbUp > 1 || math.IsNaN(step.ProbUp) {
		return nil, fmt.Errorf("NewBinomialTree: up probability %g: %w", step.ProbUp, ErrNumericalDomain)
	}
	if !(step.Discount > 0) {
		return nil, fmt.Errorf("NewBinomialTree: discount factor %g: %w", step.Discount, ErrNumericalDomain)
	}
	if !(step.LogUp > step.LogDown) {
		return nil, fmt.Errorf("NewBinomialTree: up move %g not above down move %g: %w",
			step.LogUp, step.LogDown, ErrConstruction)
	}
	bt := &BinomialTree{spot: spot, step: step}
	tree, err := NewTree(grid, 2, bt, opts...)
	if err != nil {
		return nil, err
	}
	bt.Tree = tree

	err = tree.Grow(func(i int, col Column) (Column, error) {
		for k := range col {
			j := col[k].J
			col[k].Descendants = []int{j, j + 1}
			col[k].Probabilities = []float64{1 - step.ProbUp, step.ProbUp}
		}
		next := make(Column, i+2)
		for j := range next {
			next[j].J = j
		}
		return next, nil
	})
	if err != nil {
		return nil, fmt.Errorf("NewBinomialTree: %w", err)
	}
	return bt, nil
}

// NewCRRTree is a Cox-Ross-Rubinstein tree with steps equal steps to maturity.
func NewCRRTree(spot, vol, rate, dividend, maturity float64, steps int, opts ...Option) (*BinomialTree, error) {
	grid, err := timegrid.NewUniform(maturity, steps)
	if err != nil {
		return nil, fmt.Errorf("NewCRRTree: %w", err)
	}
	return NewBinomialTree(grid, spot, CoxRossRubinstein(vol, rate, dividend, grid.Dt(0)), opts...)
}

// NewJarrowRuddTree is a Jarrow-Rudd tree with steps equal steps to maturity.
func NewJarrowRuddTree(spot, vol, rate, dividend, maturity float64, steps int, opts ...Option) (*BinomialTree, error) {
	grid, err := timegrid.NewUniform(maturity, steps)
	if err != nil {
		return nil, fmt.Errorf("NewJarrowRuddTree: %w", err)
	}
	return NewBinomialTree(grid, spot, JarrowRudd(vol, rate, dividend, grid.Dt(0)), opts...)
}

// Discount implements Scheme.
func (b *BinomialTree) Discount(_, _ int) float64 { return b.step.Discount }

// NodeIndex implements Scheme.
func (b *BinomialTree) NodeIndex(_, j int) int { return j }

// Underlying implements StateScheme.
func (b *BinomialTree) Underlying(i, j int) float64 {
	return b.spot * math.Exp(float64(j)*b.step.LogUp+float64(i-j)*b.step.LogDown)
}

// Step returns the per-step parameters.
func (b *BinomialTree) Step() BinomialStep { return b.step }
