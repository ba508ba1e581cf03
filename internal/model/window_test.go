package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonthRange(t *testing.T) {
	w, err := MonthRange(MustYearMonth("2025-11"), MustYearMonth("2026-02"))
	require.NoError(t, err)
	assert.Equal(t, 4, w.Len())
	assert.True(t, w.IsTrend())
	assert.Equal(t, "2025-11..2026-02", w.String())

	_, err = MonthRange(MustYearMonth("2025-06"), MustYearMonth("2025-04"))
	assert.Error(t, err)
}

func TestMonthListSortsAndDedupes(t *testing.T) {
	w := MonthList(MustYearMonth("2025-06"), MustYearMonth("2025-04"), MustYearMonth("2025-06"))
	require.Equal(t, 2, w.Len())
	assert.Equal(t, MustYearMonth("2025-04"), w.First())
	assert.Equal(t, MustYearMonth("2025-06"), w.Last())
	assert.Equal(t, "2025-04,2025-06", w.String())
}

func TestLastN(t *testing.T) {
	w, err := LastN(MustYearMonth("2025-06"), 3)
	require.NoError(t, err)
	assert.Equal(t, []YearMonth{MustYearMonth("2025-04"), MustYearMonth("2025-05"), MustYearMonth("2025-06")}, w.Months())

	single, err := LastN(MustYearMonth("2025-06"), 1)
	require.NoError(t, err)
	assert.False(t, single.IsTrend())

	_, err = LastN(MustYearMonth("2025-06"), 0)
	assert.Error(t, err)
}

func TestParseWindow(t *testing.T) {
	for _, s := range []string{"2025-06", "2025-04..2025-06", "2025-01,2025-03"} {
		w, err := ParseWindow(s)
		require.NoError(t, err, s)
		assert.Equal(t, s, w.String())
	}
}
