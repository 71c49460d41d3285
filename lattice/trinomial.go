package lattice

import (
	"fmt"
	"math"

	"github.com/meenmo/molattice/timegrid"
)

// OrnsteinUhlenbeck is dx = -Speed*x dt + Vol dW started at X0.
type OrnsteinUhlenbeck struct {
	Speed float64
	Vol   float64
	X0    float64
}

// Expectation returns E[x(t+dt) | x(t) = x].
func (p OrnsteinUhlenbeck) Expectation(x, dt float64) float64 {
	return x * math.Exp(-p.Speed*dt)
}

// Variance returns Var[x(t+dt) | x(t)].
func (p OrnsteinUhlenbeck) Variance(dt float64) float64 {
	if p.Speed == 0 {
		return p.Vol * p.Vol * dt
	}
	return p.Vol * p.Vol * -math.Expm1(-2*p.Speed*dt) / (2 * p.Speed)
}

// TrinomialTree is a recombining three-branch tree of an Ornstein-Uhlenbeck
// state. Each node branches to the node nearest its conditional mean and the
// two around it, which keeps the branching bounded under mean reversion.
type TrinomialTree struct {
	*Tree
	process OrnsteinUhlenbeck
	rate    float64
	dx      []float64
	jMin    []int
}

// NewTrinomialTree builds a trinomial tree of process on grid, discounting
// at the constant rate.
func NewTrinomialTree(grid timegrid.Grid, process OrnsteinUhlenbeck, rate float64, opts ...Option) (*TrinomialTree, error) {
	tt := &TrinomialTree{process: process, rate: rate}
	if err := tt.build(grid, tt, opts...); err != nil {
		return nil, fmt.Errorf("NewTrinomialTree: %w", err)
	}
	return tt, nil
}

func (tt *TrinomialTree) build(grid timegrid.Grid, scheme Scheme, opts ...Option) error {
	tree, err := NewTree(grid, 3, scheme, opts...)
	if err != nil {
		return err
	}
	tt.Tree = tree
	tt.dx = make([]float64, 1, grid.Len())
	tt.jMin = make([]int, 1, grid.Len())

	return tree.Grow(func(i int, col Column) (Column, error) {
		dt := grid.Dt(i)
		v2 := tt.process.Variance(dt)
		if !(v2 > 0) {
			return nil, fmt.Errorf("variance %g over dt=%g: %w", v2, dt, ErrConstruction)
		}
		v := math.Sqrt(v2)
		dx := v * math.Sqrt(3)

		kMin, kMax := math.MaxInt, math.MinInt
		for n := range col {
			x := tt.Underlying(i, col[n].J)
			m := tt.process.Expectation(x, dt)
			k := int(math.Floor((m-tt.process.X0)/dx + 0.5))
			e := m - (tt.process.X0 + float64(k)*dx)
			e2 := e * e
			e3 := e * math.Sqrt(3)

			col[n].Descendants = []int{k - 1, k, k + 1}
			col[n].Probabilities = []float64{
				1/6.0 + (e2/v2-e3/v)/6.0,
				2/3.0 - e2/(3*v2),
				1/6.0 + (e2/v2+e3/v)/6.0,
			}
			kMin, kMax = min(kMin, k), max(kMax, k)
		}

		tt.dx = append(tt.dx, dx)
		tt.jMin = append(tt.jMin, kMin-1)
		next := make(Column, kMax-kMin+3)
		for n := range next {
			next[n].J = kMin - 1 + n
		}
		return next, nil
	})
}

// Discount implements Scheme.
func (tt *TrinomialTree) Discount(i, _ int) float64 {
	return math.Exp(-tt.rate * tt.Grid().Dt(i))
}

// NodeIndex implements Scheme.
func (tt *TrinomialTree) NodeIndex(i, j int) int { return j - tt.jMin[i] }

// Underlying implements StateScheme.
func (tt *TrinomialTree) Underlying(i, j int) float64 {
	return tt.process.X0 + float64(j)*tt.dx[i]
}

// Dx returns the state spacing of column i.
func (tt *TrinomialTree) Dx(i int) float64 { return tt.dx[i] }
