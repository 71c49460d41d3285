package fd_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/meenmo/molattice/fd"
	"github.com/meenmo/molattice/stepcondition"
)

const (
	spot   = 100.0
	strike = 100.0
	rate   = 0.05
	vol    = 0.2
	expiry = 1.0
)

func blackScholesPut() float64 {
	n := distuv.UnitNormal
	sd := vol * math.Sqrt(expiry)
	d1 := (math.Log(spot/strike) + (rate+0.5*vol*vol)*expiry) / sd
	d2 := d1 - sd
	return strike*math.Exp(-rate*expiry)*n.CDF(-d2) - spot*n.CDF(-d1)
}

func newSolver(t *testing.T) *fd.Solver {
	t.Helper()
	grid, err := fd.NewGrid(spot, vol, expiry, 401, fd.DefaultStdDevs)
	require.NoError(t, err)
	s, err := fd.NewSolver(grid, fd.Model{Rate: rate, Vol: vol})
	require.NoError(t, err)
	return s
}

func TestCrankNicolson_EuropeanPut(t *testing.T) {
	t.Parallel()

	s := newSolver(t)
	values := s.Grid().Sample(func(x float64) float64 { return math.Max(strike-x, 0) })
	require.NoError(t, s.Rollback(values, expiry, 0, 200, nil))

	pv, err := s.Grid().ValueAt(values, spot)
	require.NoError(t, err)
	assert.InDelta(t, blackScholesPut(), pv, 5e-3)
}

func TestCrankNicolson_PutCallParity(t *testing.T) {
	t.Parallel()

	s := newSolver(t)
	call := s.Grid().Sample(func(x float64) float64 { return math.Max(x-strike, 0) })
	put := s.Grid().Sample(func(x float64) float64 { return math.Max(strike-x, 0) })
	require.NoError(t, s.Rollback(call, expiry, 0, 200, nil))
	require.NoError(t, s.Rollback(put, expiry, 0, 200, nil))

	c, err := s.Grid().ValueAt(call, spot)
	require.NoError(t, err)
	p, err := s.Grid().ValueAt(put, spot)
	require.NoError(t, err)
	assert.InDelta(t, spot-strike*math.Exp(-rate*expiry), c-p, 1e-3)
}

func TestCrankNicolson_AmericanPut(t *testing.T) {
	t.Parallel()

	s := newSolver(t)
	intrinsic := s.Grid().Sample(func(x float64) float64 { return math.Max(strike-x, 0) })
	values := append([]float64(nil), intrinsic...)
	cond := stepcondition.NewAmerican(stepcondition.FixedInnerValue(intrinsic))
	require.NoError(t, s.Rollback(values, expiry, 0, 400, cond))

	for k := range values {
		assert.GreaterOrEqual(t, values[k], intrinsic[k]-1e-12)
	}
	pv, err := s.Grid().ValueAt(values, spot)
	require.NoError(t, err)
	assert.InDelta(t, 6.09, pv, 0.03)
	assert.Greater(t, pv, blackScholesPut())
}

func TestRollback_ConditionTimes(t *testing.T) {
	t.Parallel()

	s := newSolver(t)
	values := make([]float64, s.Grid().Points())
	var times []float64
	record := stepcondition.Func[[]float64](func(_ []float64, t float64) { times = append(times, t) })
	require.NoError(t, s.Rollback(values, 1, 0, 4, record))
	require.Len(t, times, 4)
	assert.InDelta(t, 0.75, times[0], 1e-15)
	assert.Equal(t, 0.0, times[3])

	require.NoError(t, s.Rollback(values, 0.5, 0.5, 0, record))
	assert.Len(t, times, 4)
}

func TestErrors(t *testing.T) {
	t.Parallel()

	_, err := fd.NewGrid(spot, vol, expiry, 2, fd.DefaultStdDevs)
	require.ErrorIs(t, err, fd.ErrGrid)
	_, err = fd.NewGrid(-1, vol, expiry, 101, fd.DefaultStdDevs)
	require.ErrorIs(t, err, fd.ErrGrid)
	_, err = fd.NewSolver(nil, fd.Model{Vol: vol})
	require.ErrorIs(t, err, fd.ErrGrid)

	s := newSolver(t)
	require.ErrorIs(t, s.Rollback(make([]float64, 3), 1, 0, 10, nil), fd.ErrGrid)
	require.ErrorIs(t, s.Rollback(make([]float64, 401), 0, 1, 10, nil), fd.ErrGrid)
	require.ErrorIs(t, s.Rollback(make([]float64, 401), 1, 0, 0, nil), fd.ErrGrid)

	_, err = s.Grid().ValueAt(make([]float64, 3), spot)
	require.ErrorIs(t, err, fd.ErrGrid)
}

func TestGridSpots(t *testing.T) {
	t.Parallel()

	grid, err := fd.NewGrid(spot, vol, expiry, 5, 1)
	require.NoError(t, err)
	s := grid.Spots()
	require.Len(t, s, 5)
	assert.InDelta(t, spot, s[2], 1e-12)
	assert.InDelta(t, spot*math.Exp(-0.2), s[0], 1e-12)
	assert.Equal(t, spot, grid.Spot())
}
