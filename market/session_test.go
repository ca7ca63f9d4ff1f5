package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCalendar(t *testing.T) *Calendar {
	t.Helper()
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	cal, err := NewRTHCalendar(ny, "09:30", "16:00")
	require.NoError(t, err)
	return cal
}

func TestNewRTHCalendarRejectsBadInput(t *testing.T) {
	t.Parallel()

	_, err := NewRTHCalendar(time.UTC, "930", "16:00")
	assert.Error(t, err)

	_, err = NewRTHCalendar(time.UTC, "16:00", "09:30")
	assert.ErrorContains(t, err, "must be after")
}

func TestWindowContaining(t *testing.T) {
	t.Parallel()

	cal := newTestCalendar(t)
	ny := cal.Loc

	// 2024-01-02 is a Tuesday.
	t.Run("inside session", func(t *testing.T) {
		start, end, ok := cal.WindowContaining(time.Date(2024, 1, 2, 14, 35, 0, 0, ny))
		require.True(t, ok)
		assert.Equal(t, time.Date(2024, 1, 2, 9, 30, 0, 0, ny), start)
		assert.Equal(t, time.Date(2024, 1, 2, 16, 0, 0, 0, ny), end)
	})

	t.Run("session open is inclusive", func(t *testing.T) {
		_, _, ok := cal.WindowContaining(time.Date(2024, 1, 2, 9, 30, 0, 0, ny))
		assert.True(t, ok)
	})

	t.Run("session close is exclusive", func(t *testing.T) {
		_, _, ok := cal.WindowContaining(time.Date(2024, 1, 2, 16, 0, 0, 0, ny))
		assert.False(t, ok)
	})

	t.Run("pre-market", func(t *testing.T) {
		_, _, ok := cal.WindowContaining(time.Date(2024, 1, 2, 8, 0, 0, 0, ny))
		assert.False(t, ok)
	})

	t.Run("weekend", func(t *testing.T) {
		_, _, ok := cal.WindowContaining(time.Date(2024, 1, 6, 11, 0, 0, 0, ny))
		assert.False(t, ok)
	})

	t.Run("utc input converted to calendar zone", func(t *testing.T) {
		// 19:35 UTC == 14:35 ET in January.
		_, end, ok := cal.WindowContaining(time.Date(2024, 1, 2, 19, 35, 0, 0, time.UTC))
		require.True(t, ok)
		assert.True(t, end.Equal(time.Date(2024, 1, 2, 16, 0, 0, 0, ny)))
	})
}
