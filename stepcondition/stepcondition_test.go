package stepcondition_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/meenmo/molattice/stepcondition"
)

func TestAmerican_MonotoneAndIdempotent(t *testing.T) {
	t.Parallel()

	inner := stepcondition.FixedInnerValue{0, 3, 6, 9}
	cond := stepcondition.NewAmerican(inner)

	continuation := []float64{1, 4, 5, 2}
	once := append([]float64(nil), continuation...)
	cond.ApplyTo(once, 0.5)

	for k := range once {
		assert.GreaterOrEqual(t, once[k], continuation[k])
	}
	assert.Equal(t, []float64{1, 4, 6, 9}, once)

	twice := append([]float64(nil), once...)
	cond.ApplyTo(twice, 0.5)
	assert.Equal(t, once, twice)
}

func TestShout_ForwardFundedReset(t *testing.T) {
	t.Parallel()

	inner := stepcondition.FixedInnerValue{0, 5}
	cond := stepcondition.NewShout(inner, 0.05, 1.0)

	values := []float64{1, 1}
	cond.ApplyTo(values, 0.25)

	b := math.Exp(0.05 * 0.75)
	assert.InDelta(t, b, cond.Factor(0.25), 1e-15)
	assert.Equal(t, 1.0, values[0])
	assert.InDelta(t, 5*b, values[1], 1e-12)
	// the reset strictly dominates plain early exercise when intrinsic is positive
	assert.Greater(t, values[1], 5.0)

	atMaturity := []float64{1, 1}
	cond.ApplyTo(atMaturity, 1.0)
	assert.InDelta(t, 5.0, atMaturity[1], 1e-15)
}

func TestChain_PreservesOrder(t *testing.T) {
	t.Parallel()

	var trace []string
	record := func(name string) stepcondition.Standard {
		return stepcondition.Func[[]float64](func(a []float64, _ float64) {
			trace = append(trace, name)
		})
	}

	chain := stepcondition.NewChain[[]float64](record("first"), nil, record("second"))
	chain.Append(record("third"))
	assert.Equal(t, 3, chain.Len())

	chain.ApplyTo([]float64{0}, 0)
	assert.Equal(t, []string{"first", "second", "third"}, trace)

	var nilChain *stepcondition.Chain[[]float64]
	assert.Equal(t, 0, nilChain.Len())
	nilChain.ApplyTo([]float64{0}, 0)
}

func TestChain_OrderChangesShoutResult(t *testing.T) {
	t.Parallel()

	american := stepcondition.NewAmerican(stepcondition.FixedInnerValue{4})
	shout := stepcondition.NewShout(stepcondition.FixedInnerValue{4}, 0.05, 1.0)
	bump := stepcondition.Func[[]float64](func(a []float64, _ float64) { a[0] += 1 })

	forward := []float64{0}
	stepcondition.NewChain[[]float64](shout, bump).ApplyTo(forward, 0)

	reversed := []float64{0}
	stepcondition.NewChain[[]float64](bump, shout).ApplyTo(reversed, 0)
	assert.NotEqual(t, forward[0], reversed[0])

	single := []float64{0}
	stepcondition.NewChain[[]float64](american).ApplyTo(single, 0)
	singleAgain := []float64{0}
	stepcondition.NewChain[[]float64](american).ApplyTo(singleAgain, 0)
	assert.Equal(t, single, singleAgain)
}

func TestOnTimes(t *testing.T) {
	t.Parallel()

	cond := stepcondition.OnTimes[[]float64]{
		Times:     []float64{0.5, 1.0},
		Condition: stepcondition.NewAmerican(stepcondition.FixedInnerValue{7}),
	}

	off := []float64{1}
	cond.ApplyTo(off, 0.75)
	assert.Equal(t, 1.0, off[0])

	on := []float64{1}
	cond.ApplyTo(on, 0.5+1e-12)
	assert.Equal(t, 7.0, on[0])

	stepcondition.OnTimes[[]float64]{Times: []float64{0}}.ApplyTo(on, 0)
	stepcondition.Null[[]float64]{}.ApplyTo(on, 0)
	assert.Equal(t, 7.0, on[0])
}

func TestInnerValueFunc(t *testing.T) {
	t.Parallel()

	inner := stepcondition.InnerValueFunc(func(k int, t float64) float64 { return float64(k) * t })
	assert.Equal(t, 1.5, inner.InnerValue(3, 0.5))
}
