package intent

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/replay/market"
)

func nyCalendar(t *testing.T) (*market.Calendar, *time.Location) {
	t.Helper()
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	cal, err := market.NewRTHCalendar(ny, "09:30", "16:00")
	require.NoError(t, err)
	return cal, ny
}

func TestComputeWindowOneBar(t *testing.T) {
	t.Parallel()

	_, ny := nyCalendar(t)
	signal := time.Date(2024, 1, 2, 14, 35, 0, 0, ny)

	ws := WindowSpec{
		Timeframe: 5 * time.Minute,
		Policy:    PolicyOneBar,
		ValidFrom: FromSignalTS,
		// A configured fixed duration must not leak into one_bar.
		FixedMinutes: 90 * time.Minute,
	}

	from, to, err := ComputeWindow(signal, ws)
	require.NoError(t, err)
	assert.Equal(t, signal, from)
	assert.Equal(t, signal.Add(5*time.Minute), to)
}

func TestComputeWindowNextBar(t *testing.T) {
	t.Parallel()

	_, ny := nyCalendar(t)
	signal := time.Date(2024, 1, 2, 14, 35, 0, 0, ny)

	from, to, err := ComputeWindow(signal, WindowSpec{
		Timeframe: 5 * time.Minute,
		Policy:    PolicyOneBar,
		ValidFrom: FromNextBar,
	})
	require.NoError(t, err)
	assert.Equal(t, signal.Add(5*time.Minute), from)
	assert.Equal(t, signal.Add(10*time.Minute), to)
}

func TestComputeWindowFixedMinutes(t *testing.T) {
	t.Parallel()

	cal, ny := nyCalendar(t)
	signal := time.Date(2024, 1, 2, 14, 35, 0, 0, ny)

	t.Run("unclamped", func(t *testing.T) {
		_, to, err := ComputeWindow(signal, WindowSpec{
			Timeframe:    5 * time.Minute,
			Policy:       PolicyFixedMinutes,
			FixedMinutes: 90 * time.Minute,
		})
		require.NoError(t, err)
		assert.Equal(t, signal.Add(90*time.Minute), to)
	})

	t.Run("clamped to session close", func(t *testing.T) {
		_, to, err := ComputeWindow(signal, WindowSpec{
			Timeframe:      5 * time.Minute,
			Policy:         PolicyFixedMinutes,
			FixedMinutes:   90 * time.Minute,
			ClampToSession: true,
			Calendar:       cal,
		})
		require.NoError(t, err)
		assert.True(t, to.Equal(time.Date(2024, 1, 2, 16, 0, 0, 0, ny)))
	})
}

func TestComputeWindowSessionEnd(t *testing.T) {
	t.Parallel()

	cal, ny := nyCalendar(t)

	t.Run("derived from valid_from", func(t *testing.T) {
		signal := time.Date(2024, 1, 2, 14, 35, 0, 0, ny)
		from, to, err := ComputeWindow(signal, WindowSpec{
			Timeframe: 5 * time.Minute,
			Policy:    PolicySessionEnd,
			ValidFrom: FromNextBar,
			Calendar:  cal,
		})
		require.NoError(t, err)
		assert.Equal(t, signal.Add(5*time.Minute), from)
		assert.True(t, to.Equal(time.Date(2024, 1, 2, 16, 0, 0, 0, ny)))
	})

	t.Run("next_bar pushed past the close is rejected", func(t *testing.T) {
		// Signal on the last bar of the day: valid_from lands at 16:03,
		// outside the session. That is a boundary error, not a zero-length
		// window.
		signal := time.Date(2024, 1, 2, 15, 58, 0, 0, ny)
		_, _, err := ComputeWindow(signal, WindowSpec{
			Timeframe: 5 * time.Minute,
			Policy:    PolicySessionEnd,
			ValidFrom: FromNextBar,
			Calendar:  cal,
		})
		var boundary *SessionBoundaryError
		require.ErrorAs(t, err, &boundary)
	})

	t.Run("signal outside session is rejected", func(t *testing.T) {
		signal := time.Date(2024, 1, 2, 8, 0, 0, 0, ny)
		_, _, err := ComputeWindow(signal, WindowSpec{
			Timeframe: 5 * time.Minute,
			Policy:    PolicySessionEnd,
			Calendar:  cal,
		})
		var boundary *SessionBoundaryError
		require.ErrorAs(t, err, &boundary)
	})

	t.Run("missing calendar", func(t *testing.T) {
		_, _, err := ComputeWindow(time.Date(2024, 1, 2, 14, 0, 0, 0, ny), WindowSpec{
			Timeframe: 5 * time.Minute,
			Policy:    PolicySessionEnd,
		})
		assert.ErrorContains(t, err, "calendar")
	})
}

func TestComputeWindowNaiveSignal(t *testing.T) {
	t.Parallel()

	naive := market.Naive(time.Date(2024, 1, 2, 14, 0, 0, 0, time.UTC))
	_, _, err := ComputeWindow(naive, WindowSpec{Timeframe: 5 * time.Minute, Policy: PolicyOneBar})
	assert.True(t, errors.Is(err, ErrNaiveTimestamp))

	_, _, err = ComputeWindow(time.Time{}, WindowSpec{Timeframe: 5 * time.Minute, Policy: PolicyOneBar})
	assert.True(t, errors.Is(err, ErrNaiveTimestamp))
}

func TestComputeWindowBadTimeframe(t *testing.T) {
	t.Parallel()

	_, _, err := ComputeWindow(time.Date(2024, 1, 2, 14, 0, 0, 0, time.UTC), WindowSpec{Policy: PolicyOneBar})
	assert.ErrorContains(t, err, "timeframe")
}
