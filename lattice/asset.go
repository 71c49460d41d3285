package lattice

import (
	"fmt"
	"sort"

	"github.com/meenmo/molattice/stepcondition"
)

// Asset is a value array positioned at one column of a lattice.
type Asset interface {
	Time() float64
	SetTime(t float64)
	Values() []float64
	SetValues(v []float64)
	// Reset fills size values at the current time.
	Reset(size int)
	// ApplyCondition applies the asset's step conditions at the current time.
	ApplyCondition()
}

// Method drives assets over a lattice. *Tree implements it.
type Method interface {
	Initialize(asset Asset, t float64) error
	Rollback(asset Asset, to float64) error
	PartialRollback(asset Asset, to float64) error
	PresentValue(asset Asset) (float64, error)
}

// ResetFunc returns the terminal values of an asset for a column of size
// nodes.
type ResetFunc func(size int) []float64

// DiscretizedAsset is the standard Asset: a value array with a reset rule and
// an ordered chain of step conditions.
type DiscretizedAsset struct {
	time       float64
	values     []float64
	reset      ResetFunc
	conditions *stepcondition.Chain[[]float64]
	times      []float64
	method     Method
}

// NewDiscretizedAsset returns an asset filled by reset and adjusted by conds
// in the given order.
func NewDiscretizedAsset(reset ResetFunc, conds ...stepcondition.Standard) *DiscretizedAsset {
	return &DiscretizedAsset{
		reset:      reset,
		conditions: stepcondition.NewChain(conds...),
	}
}

// ConstantAsset returns an asset worth value at every terminal node, such as
// a zero-coupon bond paying value.
func ConstantAsset(value float64, conds ...stepcondition.Standard) *DiscretizedAsset {
	return NewDiscretizedAsset(func(size int) []float64 {
		v := make([]float64, size)
		for k := range v {
			v[k] = value
		}
		return v
	}, conds...)
}

// PayoffAsset returns an asset whose terminal values are payoff applied to
// the state of each node of the column closest to maturity.
func PayoffAsset(tree *Tree, maturity float64, payoff func(x float64) float64, conds ...stepcondition.Standard) (*DiscretizedAsset, error) {
	i := tree.Grid().ClosestIndex(maturity)
	states, err := tree.States(i)
	if err != nil {
		return nil, fmt.Errorf("PayoffAsset: %w", err)
	}
	return NewDiscretizedAsset(func(size int) []float64 {
		v := make([]float64, size)
		for k := range v {
			v[k] = payoff(states[k])
		}
		return v
	}, conds...), nil
}

// Time implements Asset.
func (a *DiscretizedAsset) Time() float64 { return a.time }

// SetTime implements Asset.
func (a *DiscretizedAsset) SetTime(t float64) { a.time = t }

// Values implements Asset.
func (a *DiscretizedAsset) Values() []float64 { return a.values }

// SetValues implements Asset.
func (a *DiscretizedAsset) SetValues(v []float64) { a.values = v }

// Reset implements Asset.
func (a *DiscretizedAsset) Reset(size int) {
	if a.reset == nil {
		a.values = make([]float64, size)
		return
	}
	a.values = a.reset(size)
}

// ApplyCondition implements Asset.
func (a *DiscretizedAsset) ApplyCondition() {
	a.conditions.ApplyTo(a.values, a.time)
}

// AddCondition appends cond to the step conditions.
func (a *DiscretizedAsset) AddCondition(cond stepcondition.Standard) {
	a.conditions.Append(cond)
}

// AddTimes registers times the lattice grid must contain, such as exercise
// or payment dates.
func (a *DiscretizedAsset) AddTimes(times ...float64) {
	a.times = append(a.times, times...)
	sort.Float64s(a.times)
}

// MandatoryTimes returns the registered times in increasing order.
func (a *DiscretizedAsset) MandatoryTimes() []float64 {
	return append([]float64(nil), a.times...)
}

// Initialize binds the asset to m and fills its values at time t.
func (a *DiscretizedAsset) Initialize(m Method, t float64) error {
	a.method = m
	return m.Initialize(a, t)
}

// Rollback moves the asset back to time to on its method.
func (a *DiscretizedAsset) Rollback(to float64) error {
	if a.method == nil {
		return fmt.Errorf("DiscretizedAsset.Rollback: not initialized: %w", ErrConstruction)
	}
	return a.method.Rollback(a, to)
}

// PartialRollback moves the asset back to to without applying conditions at
// the destination.
func (a *DiscretizedAsset) PartialRollback(to float64) error {
	if a.method == nil {
		return fmt.Errorf("DiscretizedAsset.PartialRollback: not initialized: %w", ErrConstruction)
	}
	return a.method.PartialRollback(a, to)
}

// PresentValue rolls the asset back to the start of its method's grid.
func (a *DiscretizedAsset) PresentValue() (float64, error) {
	if a.method == nil {
		return 0, fmt.Errorf("DiscretizedAsset.PresentValue: not initialized: %w", ErrConstruction)
	}
	return a.method.PresentValue(a)
}
