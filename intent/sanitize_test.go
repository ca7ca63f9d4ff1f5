package intent

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var genTS = time.Date(2024, 1, 2, 14, 0, 0, 0, time.UTC)

func TestSanitizeStripsOutcomeFields(t *testing.T) {
	t.Parallel()

	san := &Sanitizer{}
	raw := map[string]string{
		"template_id":       "T1",
		"signal_ts":         "2024-01-02T14:00:00Z",
		"symbol":            "NVDA",
		"side":              "BUY",
		"entry_price":       "100",
		"stop_price":        "95",
		"take_profit_price": "110",

		// Outcome columns from a labeled dataset: all must vanish.
		"exit_ts":          "2024-01-02T15:00:00Z",
		"exit_reason":      "take_profit",
		"fill_price":       "100.02",
		"pnl_net":          "42",
		"realized_slip":    "0.2",
		"trade_id":         "abc",
		"entry_trigger_ts": "2024-01-02T14:05:00Z",
		"bars_until_exit":  "7",
	}

	out, err := san.Sanitize(raw, genTS)
	require.NoError(t, err)

	for _, denied := range []string{
		"exit_ts", "exit_reason", "fill_price", "pnl_net",
		"realized_slip", "trade_id", "entry_trigger_ts", "bars_until_exit",
	} {
		assert.NotContains(t, out, denied)
	}
	assert.Equal(t, "T1", out["template_id"])
	assert.Equal(t, "100", out["entry_price"])
}

func TestSanitizeDropsUnknownFields(t *testing.T) {
	t.Parallel()

	san := &Sanitizer{}
	out, err := san.Sanitize(map[string]string{
		"template_id": "T1",
		"mystery":     "x",
	}, genTS)
	require.NoError(t, err)
	assert.NotContains(t, out, "mystery")
}

func TestSanitizeKeepsScheduledFields(t *testing.T) {
	t.Parallel()

	// valid_to points at the future because it is a scheduled boundary,
	// not an observed outcome. It must survive even strict mode.
	san := &Sanitizer{Strict: true}
	out, err := san.Sanitize(map[string]string{
		"template_id": "T1",
		"valid_from":  "2024-01-02T14:05:00Z",
		"valid_to":    "2024-01-02T16:00:00Z",
	}, genTS)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-02T16:00:00Z", out["valid_to"])
	assert.Equal(t, "2024-01-02T14:05:00Z", out["valid_from"])
}

func TestSanitizeFutureTimestamp(t *testing.T) {
	t.Parallel()

	raw := map[string]string{
		"template_id": "T1",
		"ts":          "2024-01-02T15:00:00Z", // one hour after generation
	}

	t.Run("strict mode fails the record", func(t *testing.T) {
		san := &Sanitizer{Strict: true}
		_, err := san.Sanitize(raw, genTS)
		assert.ErrorContains(t, err, "lookahead")
	})

	t.Run("permissive mode drops the field", func(t *testing.T) {
		san := &Sanitizer{}
		out, err := san.Sanitize(raw, genTS)
		require.NoError(t, err)
		assert.NotContains(t, out, "ts")
		assert.Contains(t, out, "template_id")
	})
}

func TestSanitizeTimestampAtGenerationIsKept(t *testing.T) {
	t.Parallel()

	san := &Sanitizer{Strict: true}
	out, err := san.Sanitize(map[string]string{
		"signal_ts": "2024-01-02T14:00:00Z",
	}, genTS)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-02T14:00:00Z", out["signal_ts"])
}

func TestSanitizeNormalizesKeyCase(t *testing.T) {
	t.Parallel()

	san := &Sanitizer{}
	out, err := san.Sanitize(map[string]string{" Symbol ": "NVDA"}, genTS)
	require.NoError(t, err)
	assert.Equal(t, "NVDA", out["symbol"])
}
