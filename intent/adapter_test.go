package intent

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/replay/market"
)

func TestParseTS(t *testing.T) {
	t.Parallel()

	ts, err := ParseTS("2024-01-02T14:00:00Z")
	require.NoError(t, err)
	assert.True(t, ts.Equal(time.Date(2024, 1, 2, 14, 0, 0, 0, time.UTC)))
	assert.False(t, market.IsNaive(ts))

	ts, err = ParseTS("2024-01-02 14:00:00")
	require.NoError(t, err)
	assert.True(t, market.IsNaive(ts))
	assert.Equal(t, 14, ts.Hour())

	_, err = ParseTS("02/01/2024")
	assert.Error(t, err)
}

func TestGeneratedTS(t *testing.T) {
	t.Parallel()

	ts, err := GeneratedTS(map[string]string{"signal_ts": "2024-01-02T14:00:00Z"})
	require.NoError(t, err)
	assert.Equal(t, 14, ts.UTC().Hour())

	// Alias resolution applies here too.
	_, err = GeneratedTS(map[string]string{"timestamp": "2024-01-02T14:00:00Z"})
	assert.NoError(t, err)

	_, err = GeneratedTS(map[string]string{"symbol": "NVDA"})
	assert.ErrorContains(t, err, "signal_ts")
}

func TestFromRecord(t *testing.T) {
	t.Parallel()

	sig, err := FromRecord(map[string]string{
		"template_id":       "T1",
		"signal_ts":         "2024-01-02T14:00:00Z",
		"symbol":            "NVDA",
		"side":              "BUY",
		"entry_price":       "100.5",
		"stop_price":        "95",
		"take_profit_price": "110",
		"oco_group_id":      "G1",
	})
	require.NoError(t, err)
	assert.Equal(t, "T1", sig.TemplateID)
	assert.Equal(t, "NVDA", sig.Symbol)
	assert.Equal(t, Buy, sig.Side)
	assert.Equal(t, 100.5, sig.EntryPrice)
	assert.Equal(t, 95.0, sig.StopPrice)
	assert.Equal(t, 110.0, sig.TakeProfitPrice)
	assert.Equal(t, "G1", sig.OCOGroupID)
}

func TestFromRecordResolvesAliases(t *testing.T) {
	t.Parallel()

	sig, err := FromRecord(map[string]string{
		"id":        "T2",
		"ts":        "2024-01-02T14:00:00Z",
		"ticker":    "AMD",
		"direction": "SHORT",
		"entry":     "80",
		"stop_loss": "85",
		"target":    "70",
	})
	require.NoError(t, err)
	assert.Equal(t, "T2", sig.TemplateID)
	assert.Equal(t, "AMD", sig.Symbol)
	assert.Equal(t, Sell, sig.Side)
	assert.Equal(t, 80.0, sig.EntryPrice)
	assert.Equal(t, 85.0, sig.StopPrice)
	assert.Equal(t, 70.0, sig.TakeProfitPrice)
	assert.Empty(t, sig.OCOGroupID)
}

func TestFromRecordMissingFields(t *testing.T) {
	t.Parallel()

	base := func() map[string]string {
		return map[string]string{
			"template_id":       "T1",
			"signal_ts":         "2024-01-02T14:00:00Z",
			"symbol":            "NVDA",
			"side":              "BUY",
			"entry_price":       "100",
			"stop_price":        "95",
			"take_profit_price": "110",
		}
	}

	for _, field := range []string{"template_id", "signal_ts", "symbol", "side", "entry_price", "stop_price", "take_profit_price"} {
		rec := base()
		delete(rec, field)
		_, err := FromRecord(rec)
		assert.Error(t, err, "missing %s should fail", field)
	}

	rec := base()
	rec["entry_price"] = "a lot"
	_, err := FromRecord(rec)
	assert.ErrorContains(t, err, "entry_price")

	rec = base()
	rec["side"] = "hold"
	_, err = FromRecord(rec)
	assert.ErrorContains(t, err, "side")
}
