package contextutils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDaysSince(t *testing.T) {
	t.Run("same day is zero", func(t *testing.T) {
		then := time.Date(2025, 3, 15, 1, 0, 0, 0, time.UTC)
		now := time.Date(2025, 3, 15, 23, 59, 0, 0, time.UTC)
		assert.Equal(t, 0, DaysSince(then, now))
	})

	t.Run("midnight boundary counts as a day", func(t *testing.T) {
		then := time.Date(2025, 3, 15, 23, 59, 0, 0, time.UTC)
		now := time.Date(2025, 3, 16, 0, 1, 0, 0, time.UTC)
		assert.Equal(t, 1, DaysSince(then, now))
	})

	t.Run("whole weeks", func(t *testing.T) {
		then := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
		now := time.Date(2025, 3, 15, 8, 0, 0, 0, time.UTC)
		assert.Equal(t, 14, DaysSince(then, now))
	})

	t.Run("crosses month boundary", func(t *testing.T) {
		then := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)
		now := time.Date(2025, 2, 2, 0, 0, 0, 0, time.UTC)
		assert.Equal(t, 2, DaysSince(then, now))
	})

	t.Run("non-UTC locations bucket on UTC days", func(t *testing.T) {
		kst := time.FixedZone("KST", 9*60*60)
		// 2025-03-09 08:30 KST is 2025-03-08 23:30 UTC
		then := time.Date(2025, 3, 9, 8, 30, 0, 0, kst)
		now := time.Date(2025, 3, 15, 23, 30, 0, 0, time.UTC)
		assert.Equal(t, 7, DaysSince(then, now))
		assert.Equal(t, DaysSince(then.UTC(), now), DaysSince(then, now))
	})
}

func TestStartOfDayUTC(t *testing.T) {
	ts := time.Date(2025, 3, 15, 17, 42, 3, 12, time.UTC)
	start := StartOfDayUTC(ts)
	assert.Equal(t, time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC), start)
}

func TestParseDate(t *testing.T) {
	t.Run("valid date", func(t *testing.T) {
		date, err := ParseDate("2025-03-15")
		require.NoError(t, err)
		assert.Equal(t, time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC), date)
	})

	t.Run("rejects other layouts", func(t *testing.T) {
		_, err := ParseDate("15/03/2025")
		assert.Error(t, err)
		_, err = ParseDate("")
		assert.Error(t, err)
	})
}
