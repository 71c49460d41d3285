package utils_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meenmo/molattice/utils"
)

func TestYearFraction(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		convention string
		want       float64
	}{
		{"ACT/360", 365.0 / 360.0},
		{"ACT/365F", 1.0},
		{"30/360", 1.0},
		{"30E/360", 1.0},
		{"", 1.0},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.convention, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tc.want, utils.YearFraction(start, end, tc.convention), 1e-12)
		})
	}
}

func TestAddMonth_EndOfMonth(t *testing.T) {
	t.Parallel()

	jan31 := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC), utils.AddMonth(jan31, 1))
	assert.Equal(t, time.Date(2025, 7, 31, 0, 0, 0, 0, time.UTC), utils.AddMonth(jan31, 6))
}

func TestParseDateAndSort(t *testing.T) {
	t.Parallel()

	a, err := utils.ParseDate("2025-06-30")
	require.NoError(t, err)
	b, err := utils.ParseDate("2025-01-02")
	require.NoError(t, err)

	dates := []time.Time{a, b}
	utils.SortDates(dates)
	assert.True(t, dates[0].Equal(b))

	_, err = utils.ParseDate("30/06/2025")
	require.Error(t, err)
}

func TestParseDayCount(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]string{"act/365": "ACT/365F", " A360 ": "ACT/360", "30E/360": "30E/360"} {
		got, err := utils.ParseDayCount(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := utils.ParseDayCount("BUS/252")
	require.ErrorIs(t, err, utils.ErrUnknownDayCount)
}
