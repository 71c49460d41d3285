// Package stepcondition encodes path-dependent features as in-place
// transformations of the values held on one time slice of a lattice or grid.
package stepcondition

import (
	"math"

	"github.com/meenmo/molattice/config"
)

// StepCondition mutates a value array aligned with the current column or grid
// at time t.
type StepCondition[A any] interface {
	ApplyTo(a A, t float64)
}

// Standard is the step condition over plain float slices, the value array
// used by every engine in this module.
type Standard = StepCondition[[]float64]

// Func adapts a function to StepCondition.
type Func[A any] func(a A, t float64)

// ApplyTo implements StepCondition.
func (f Func[A]) ApplyTo(a A, t float64) { f(a, t) }

// Null leaves values untouched.
type Null[A any] struct{}

// ApplyTo implements StepCondition.
func (n Null[A]) ApplyTo(_ A, _ float64) {}

// Chain applies its conditions in insertion order.
type Chain[A any] struct {
	conditions []StepCondition[A]
}

// NewChain returns a chain applying conds in the given order. Nil entries are
// skipped.
func NewChain[A any](conds ...StepCondition[A]) *Chain[A] {
	c := &Chain[A]{}
	for _, cond := range conds {
		c.Append(cond)
	}
	return c
}

// Append adds cond at the end of the chain.
func (c *Chain[A]) Append(cond StepCondition[A]) {
	if cond != nil {
		c.conditions = append(c.conditions, cond)
	}
}

// Len returns the number of conditions.
func (c *Chain[A]) Len() int {
	if c == nil {
		return 0
	}
	return len(c.conditions)
}

// ApplyTo implements StepCondition. A nil chain is a no-op.
func (c *Chain[A]) ApplyTo(a A, t float64) {
	if c == nil {
		return
	}
	for _, cond := range c.conditions {
		cond.ApplyTo(a, t)
	}
}

// OnTimes applies Condition only at the listed times, matched with the
// configured absolute time tolerance.
type OnTimes[A any] struct {
	Times     []float64
	Condition StepCondition[A]
}

// ApplyTo implements StepCondition.
func (o OnTimes[A]) ApplyTo(a A, t float64) {
	if o.Condition == nil {
		return
	}
	tol := config.GetConfig().TimeTolerance
	for _, s := range o.Times {
		if math.Abs(s-t) <= tol {
			o.Condition.ApplyTo(a, t)
			return
		}
	}
}
