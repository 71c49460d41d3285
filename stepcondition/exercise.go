package stepcondition

import "math"

// InnerValue gives the value of exercising immediately at position k of the
// current slice at time t.
type InnerValue interface {
	InnerValue(k int, t float64) float64
}

// InnerValueFunc adapts a function to InnerValue.
type InnerValueFunc func(k int, t float64) float64

// InnerValue implements InnerValue.
func (f InnerValueFunc) InnerValue(k int, t float64) float64 { return f(k, t) }

// FixedInnerValue holds one intrinsic value per grid position, independent of
// time. Finite difference grids use it since their mesh does not move.
type FixedInnerValue []float64

// InnerValue implements InnerValue.
func (f FixedInnerValue) InnerValue(k int, _ float64) float64 { return f[k] }

// American replaces every value with the larger of continuation and
// immediate exercise. It is monotone and idempotent.
type American struct {
	Inner InnerValue
}

// NewAmerican returns an early-exercise condition over inner.
func NewAmerican(inner InnerValue) *American {
	return &American{Inner: inner}
}

// ApplyTo implements Standard.
func (c *American) ApplyTo(a []float64, t float64) {
	for k := range a {
		a[k] = math.Max(a[k], c.Inner.InnerValue(k, t))
	}
}

// Shout lets the holder lock in the intrinsic value once before maturity.
// The locked amount is funded forward to Maturity at Rate, so the reset level
// is inner*exp(Rate*(Maturity-t)): the intrinsic value plus a funding
// adjustment of inner*(exp(Rate*(Maturity-t))-1).
type Shout struct {
	Inner    InnerValue
	Rate     float64
	Maturity float64
}

// NewShout returns a shout condition maturing at maturity.
func NewShout(inner InnerValue, rate, maturity float64) *Shout {
	return &Shout{Inner: inner, Rate: rate, Maturity: maturity}
}

// Factor returns exp(Rate*(Maturity-t)).
func (c *Shout) Factor(t float64) float64 {
	return math.Exp(c.Rate * (c.Maturity - t))
}

// ApplyTo implements Standard.
func (c *Shout) ApplyTo(a []float64, t float64) {
	b := c.Factor(t)
	for k := range a {
		a[k] = math.Max(a[k], b*c.Inner.InnerValue(k, t))
	}
}
