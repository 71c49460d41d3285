package swaption_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meenmo/molattice/calendar"
	"github.com/meenmo/molattice/instruments/swaption"
	"github.com/meenmo/molattice/lattice"
	"github.com/meenmo/molattice/termstructure"
	"github.com/meenmo/molattice/timegrid"
	"github.com/meenmo/molattice/utils"
)

var curve = termstructure.FlatForward{Rate: 0.03}

// oneIntoFour is a 1y forward-starting 4y annual swap.
func oneIntoFour(pos swaption.Position, rate float64) swaption.SwapTerms {
	return swaption.SwapTerms{
		Notional:     100,
		FixedRate:    rate,
		Position:     pos,
		StartTime:    1,
		PaymentTimes: []float64{2, 3, 4, 5},
		Accruals:     []float64{1, 1, 1, 1},
	}
}

func price(t *testing.T, tree swaption.Method, s swaption.TreeSwaption) float64 {
	t.Helper()
	pv, err := s.Price(tree)
	require.NoError(t, err)
	return pv
}

func TestBermudanDominatesEuropean(t *testing.T) {
	t.Parallel()

	for _, pos := range []swaption.Position{swaption.PositionReceive, swaption.PositionPay} {
		swap := oneIntoFour(pos, 0.03)
		bermudan := swaption.TreeSwaption{Swap: swap, ExerciseTimes: swap.StartTimes()}
		european := swaption.TreeSwaption{Swap: swap, ExerciseTimes: []float64{1}}

		tree, err := bermudan.NewTree(curve, 0.05, 0.01, 100)
		require.NoError(t, err)

		e := price(t, tree, european)
		b := price(t, tree, bermudan)
		assert.Greater(t, e, 0.0, string(pos))
		assert.GreaterOrEqual(t, b, e, string(pos))
	}
}

func TestEuropeanPayerReceiverParity(t *testing.T) {
	t.Parallel()

	rec := swaption.TreeSwaption{Swap: oneIntoFour(swaption.PositionReceive, 0.035), ExerciseTimes: []float64{1}}
	pay := swaption.TreeSwaption{Swap: oneIntoFour(swaption.PositionPay, 0.035), ExerciseTimes: []float64{1}}

	tree, err := rec.NewTree(curve, 0.1, 0.012, 80)
	require.NoError(t, err)

	forward := rec.Swap.ForwardValue(curve, 0)
	assert.InDelta(t, forward, price(t, tree, rec)-price(t, tree, pay), 1e-9)
}

func TestZeroVolatilityLimit(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		pos  swaption.Position
		rate float64
	}{
		{name: "receiver in the money", pos: swaption.PositionReceive, rate: 0.04},
		{name: "receiver out of the money", pos: swaption.PositionReceive, rate: 0.02},
		{name: "payer in the money", pos: swaption.PositionPay, rate: 0.02},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			s := swaption.TreeSwaption{Swap: oneIntoFour(tc.pos, tc.rate), ExerciseTimes: []float64{1}}
			tree, err := s.NewTree(curve, 0.05, 1e-7, 40)
			require.NoError(t, err)
			want := math.Max(s.Swap.ForwardValue(curve, 0), 0)
			assert.InDelta(t, want, price(t, tree, s), 1e-5)
		})
	}
}

func TestInvalidTerms(t *testing.T) {
	t.Parallel()

	swap := oneIntoFour(swaption.PositionPay, 0.03)

	_, err := swaption.TreeSwaption{Swap: swap, ExerciseTimes: []float64{1.5}}.NewTree(curve, 0.05, 0.01, 50)
	require.ErrorIs(t, err, swaption.ErrInvalidTerms)

	_, err = swaption.TreeSwaption{Swap: swap}.Price(nil)
	require.ErrorIs(t, err, swaption.ErrInvalidTerms)

	bad := swap
	bad.Accruals = bad.Accruals[:2]
	require.ErrorIs(t, bad.Validate(), swaption.ErrInvalidTerms)

	bad = swap
	bad.Position = "BOTH"
	require.ErrorIs(t, bad.Validate(), swaption.ErrInvalidTerms)

	bad = swap
	bad.PaymentTimes = []float64{2, 2, 4, 5}
	require.ErrorIs(t, bad.Validate(), swaption.ErrInvalidTerms)
}

func TestPrice_GridMissingTimes(t *testing.T) {
	t.Parallel()

	grid, err := timegrid.NewUniform(5, 7)
	require.NoError(t, err)
	tree, err := lattice.NewHullWhiteTree(grid, curve, 0.05, 0.01)
	require.NoError(t, err)

	s := swaption.TreeSwaption{Swap: oneIntoFour(swaption.PositionPay, 0.03), ExerciseTimes: []float64{1}}
	_, err = s.Price(tree)
	require.ErrorIs(t, err, timegrid.ErrTimeNotOnGrid)
}

func TestScheduleFromDates(t *testing.T) {
	t.Parallel()

	ref := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	start := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	terms, err := swaption.ScheduleFromDates(ref, start, 24, 6, calendar.TARGET, "ACT/365F")
	require.NoError(t, err)

	require.Len(t, terms.PaymentTimes, 4)
	require.Len(t, terms.Accruals, 4)
	assert.InDelta(t, 1.0, terms.StartTime, 1e-12)
	for _, a := range terms.Accruals {
		assert.InDelta(t, 0.5, a, 0.02)
	}
	assert.InDelta(t, 3.0, terms.Maturity(), 0.02)

	terms.Notional, terms.Position = 100, swaption.PositionPay
	terms.FixedRate = terms.ParRate(curve, 0)
	require.NoError(t, terms.Validate())
	assert.InDelta(t, 0.0302, terms.FixedRate, 1e-3)
	assert.InDelta(t, 0, terms.ForwardValue(curve, 0), 1e-12)

	_, err = swaption.ScheduleFromDates(ref, start, 12, 5, calendar.TARGET, "ACT/365F")
	require.ErrorIs(t, err, swaption.ErrInvalidTerms)
	_, err = swaption.ScheduleFromDates(start, ref, 12, 6, calendar.TARGET, "ACT/365F")
	require.ErrorIs(t, err, swaption.ErrInvalidTerms)
}

func TestSchedule_RollAndSpotLag(t *testing.T) {
	t.Parallel()

	day := func(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }
	ref := day(2025, 1, 2)
	yf := func(d time.Time) float64 { return utils.YearFraction(ref, d, "ACT/365F") }

	// 2025-05-31 is a Saturday; the period ends fall on Sundays at month end.
	sc := swaption.Schedule{
		Reference:       ref,
		Start:           day(2025, 5, 31),
		TenorMonths:     12,
		FrequencyMonths: 6,
		Calendar:        calendar.TARGET,
		Roll:            calendar.ModifiedFollowing,
		DayCount:        "ACT/365F",
	}
	mf, err := sc.Terms()
	require.NoError(t, err)
	assert.InDelta(t, yf(day(2025, 5, 30)), mf.StartTime, 1e-12)
	assert.InDelta(t, yf(day(2025, 11, 28)), mf.PaymentTimes[0], 1e-12)
	assert.InDelta(t, yf(day(2026, 5, 29)), mf.Maturity(), 1e-12)

	sc.Roll = calendar.Following
	f, err := sc.Terms()
	require.NoError(t, err)
	assert.InDelta(t, yf(day(2025, 6, 2)), f.StartTime, 1e-12)
	assert.InDelta(t, yf(day(2025, 12, 1)), f.PaymentTimes[0], 1e-12)
	assert.InDelta(t, yf(day(2026, 6, 1)), f.Maturity(), 1e-12)

	// Two TARGET business days after the Thursday before Good Friday.
	sc = swaption.Schedule{
		Reference:       ref,
		Start:           day(2025, 4, 17),
		SpotLag:         2,
		TenorMonths:     12,
		FrequencyMonths: 12,
		Calendar:        calendar.TARGET,
		DayCount:        "ACT/365F",
	}
	lagged, err := sc.Terms()
	require.NoError(t, err)
	assert.InDelta(t, yf(day(2025, 4, 23)), lagged.StartTime, 1e-12)
	assert.InDelta(t, yf(day(2026, 4, 23)), lagged.Maturity(), 1e-12)

	sc.SpotLag = -1
	_, err = sc.Terms()
	require.ErrorIs(t, err, swaption.ErrInvalidTerms)
}
