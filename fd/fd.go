// Package fd solves the Black-Scholes equation backwards on a uniform
// log-spot mesh with the Crank-Nicolson scheme. Early exercise and other
// path features are plugged in as step conditions, the same ones trees use.
package fd

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/meenmo/molattice/config"
	"github.com/meenmo/molattice/stepcondition"
)

// ErrGrid is returned for invalid mesh or stepping parameters.
var ErrGrid = errors.New("invalid finite difference grid")

// DefaultStdDevs is the half-width of the mesh in standard deviations of the
// log spot at maturity.
const DefaultStdDevs = 5.0

// Grid is a uniform mesh in log spot centred on the current spot.
type Grid struct {
	x    []float64
	dx   float64
	spot float64
}

// NewGrid spans points nodes over ln(spot) ± stdDevs·vol·sqrt(maturity).
func NewGrid(spot, vol, maturity float64, points int, stdDevs float64) (*Grid, error) {
	if points < 3 {
		return nil, fmt.Errorf("NewGrid: %d points: %w", points, ErrGrid)
	}
	if !(spot > 0) || !(vol > 0) || !(maturity > 0) || !(stdDevs > 0) {
		return nil, fmt.Errorf("NewGrid: spot=%g vol=%g maturity=%g stdDevs=%g: %w",
			spot, vol, maturity, stdDevs, ErrGrid)
	}
	half := stdDevs * vol * math.Sqrt(maturity)
	center := math.Log(spot)
	x := floats.Span(make([]float64, points), center-half, center+half)
	return &Grid{x: x, dx: x[1] - x[0], spot: spot}, nil
}

// Points returns the number of mesh nodes.
func (g *Grid) Points() int { return len(g.x) }

// Spot returns the spot the mesh is centred on.
func (g *Grid) Spot() float64 { return g.spot }

// Spots returns the underlying level at every node.
func (g *Grid) Spots() []float64 {
	s := make([]float64, len(g.x))
	for k, x := range g.x {
		s[k] = math.Exp(x)
	}
	return s
}

// Sample evaluates f at every node's underlying level.
func (g *Grid) Sample(f func(s float64) float64) []float64 {
	v := make([]float64, len(g.x))
	for k, x := range g.x {
		v[k] = f(math.Exp(x))
	}
	return v
}

// ValueAt interpolates values linearly in log spot at underlying level s.
func (g *Grid) ValueAt(values []float64, s float64) (float64, error) {
	if len(values) != len(g.x) {
		return 0, fmt.Errorf("ValueAt: %d values on %d points: %w", len(values), len(g.x), ErrGrid)
	}
	x := math.Log(s)
	n := len(g.x)
	if x <= g.x[0] {
		return values[0], nil
	}
	if x >= g.x[n-1] {
		return values[n-1], nil
	}
	k := int((x - g.x[0]) / g.dx)
	if k >= n-1 {
		k = n - 2
	}
	w := (x - g.x[k]) / g.dx
	return (1-w)*values[k] + w*values[k+1], nil
}

// Model holds Black-Scholes parameters.
type Model struct {
	Rate     float64
	Dividend float64
	Vol      float64
}

// Solver steps values on a Grid backwards in time under a Model.
type Solver struct {
	grid  *Grid
	model Model

	// operator L on the mesh, as tridiagonal bands
	lower, diag, upper []float64
}

// NewSolver discretises the Black-Scholes operator on grid. The boundary rows
// assume a vanishing second derivative.
func NewSolver(grid *Grid, model Model) (*Solver, error) {
	if grid == nil {
		return nil, fmt.Errorf("NewSolver: nil grid: %w", ErrGrid)
	}
	if !(model.Vol > 0) {
		return nil, fmt.Errorf("NewSolver: vol %g: %w", model.Vol, ErrGrid)
	}
	n := grid.Points()
	a := 0.5 * model.Vol * model.Vol
	b := model.Rate - model.Dividend - a
	dx, dx2 := grid.dx, grid.dx*grid.dx

	s := &Solver{
		grid:  grid,
		model: model,
		lower: make([]float64, n-1),
		diag:  make([]float64, n),
		upper: make([]float64, n-1),
	}
	s.diag[0] = -b/dx - model.Rate
	s.upper[0] = b / dx
	for j := 1; j < n-1; j++ {
		s.lower[j-1] = a/dx2 - b/(2*dx)
		s.diag[j] = -2*a/dx2 - model.Rate
		s.upper[j] = a/dx2 + b/(2*dx)
	}
	s.lower[n-2] = -b / dx
	s.diag[n-1] = b/dx - model.Rate
	return s, nil
}

// Grid returns the solver mesh.
func (s *Solver) Grid() *Grid { return s.grid }

// Rollback moves values from time from back to time to in steps equal
// Crank-Nicolson steps, applying cond after each step at the new time.
func (s *Solver) Rollback(values []float64, from, to float64, steps int, cond stepcondition.Standard) error {
	n := s.grid.Points()
	if len(values) != n {
		return fmt.Errorf("Rollback: %d values on %d points: %w", len(values), n, ErrGrid)
	}
	if math.Abs(from-to) <= config.GetConfig().TimeTolerance {
		return nil
	}
	if to > from || steps <= 0 {
		return fmt.Errorf("Rollback: from %g to %g in %d steps: %w", from, to, steps, ErrGrid)
	}
	dt := (from - to) / float64(steps)
	h := 0.5 * dt

	dl := make([]float64, n-1)
	d := make([]float64, n)
	du := make([]float64, n-1)
	for j := range d {
		d[j] = 1 - h*s.diag[j]
	}
	for j := range dl {
		dl[j] = -h * s.lower[j]
		du[j] = -h * s.upper[j]
	}

	rhs := mat.NewVecDense(n, nil)
	next := mat.NewVecDense(n, nil)
	for step := 1; step <= steps; step++ {
		for j := 0; j < n; j++ {
			lv := s.diag[j] * values[j]
			if j > 0 {
				lv += s.lower[j-1] * values[j-1]
			}
			if j < n-1 {
				lv += s.upper[j] * values[j+1]
			}
			rhs.SetVec(j, values[j]+h*lv)
		}
		implicit := mat.NewTridiag(n,
			append([]float64(nil), dl...), append([]float64(nil), d...), append([]float64(nil), du...))
		if err := implicit.SolveVecTo(next, false, rhs); err != nil {
			return fmt.Errorf("Rollback: step %d: %w", step, err)
		}
		for j := range values {
			values[j] = next.AtVec(j)
		}
		t := from - float64(step)*dt
		if step == steps {
			t = to
		}
		if cond != nil {
			cond.ApplyTo(values, t)
		}
	}
	return nil
}
