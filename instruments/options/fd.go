package options

import (
	"fmt"

	"github.com/meenmo/molattice/fd"
	"github.com/meenmo/molattice/stepcondition"
)

// FDEngine prices vanillas on a Crank-Nicolson grid. Zero fields take the
// package defaults.
type FDEngine struct {
	Points  int
	Steps   int
	StdDevs float64
}

const (
	DefaultFDPoints = 401
	DefaultFDSteps  = 400
)

// Price values v under m with the given exercise style.
func (e FDEngine) Price(style Style, v Vanilla, m Market) (float64, error) {
	if err := validate(v, m); err != nil {
		return 0, fmt.Errorf("FDEngine.Price: %w", err)
	}
	points, steps, stdDevs := e.Points, e.Steps, e.StdDevs
	if points == 0 {
		points = DefaultFDPoints
	}
	if steps == 0 {
		steps = DefaultFDSteps
	}
	if stdDevs == 0 {
		stdDevs = fd.DefaultStdDevs
	}

	grid, err := fd.NewGrid(m.Spot, m.Vol, v.Maturity, points, stdDevs)
	if err != nil {
		return 0, fmt.Errorf("FDEngine.Price: %w", err)
	}
	solver, err := fd.NewSolver(grid, fd.Model{Rate: m.Rate, Dividend: m.Dividend, Vol: m.Vol})
	if err != nil {
		return 0, fmt.Errorf("FDEngine.Price: %w", err)
	}

	intrinsic := grid.Sample(v.Payoff)
	inner := stepcondition.FixedInnerValue(intrinsic)
	var cond stepcondition.Standard
	switch style {
	case European:
	case American:
		cond = stepcondition.NewAmerican(inner)
	case Shout:
		cond = stepcondition.NewShout(inner, m.Rate, v.Maturity)
	default:
		return 0, fmt.Errorf("FDEngine.Price: style %q: %w", style, ErrInvalidContract)
	}

	values := append([]float64(nil), intrinsic...)
	if err := solver.Rollback(values, v.Maturity, 0, steps, cond); err != nil {
		return 0, fmt.Errorf("FDEngine.Price: %w", err)
	}
	return grid.ValueAt(values, m.Spot)
}

// European values v with exercise at maturity only.
func (e FDEngine) European(v Vanilla, m Market) (float64, error) { return e.Price(European, v, m) }

// American values v with exercise after every time step.
func (e FDEngine) American(v Vanilla, m Market) (float64, error) { return e.Price(American, v, m) }

// Shout values v with a single shout right after every time step.
func (e FDEngine) Shout(v Vanilla, m Market) (float64, error) { return e.Price(Shout, v, m) }
