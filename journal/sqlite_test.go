package journal

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/replay/exec"
	"github.com/rustyeddy/replay/intent"
	"github.com/rustyeddy/replay/sim"
)

func newSQLiteJournal(t *testing.T, runID string) *SQLiteJournal {
	t.Helper()
	j, err := NewSQLite(filepath.Join(t.TempDir(), "replay.db"), runID)
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func sampleTrade(id string, exit time.Time, net float64) exec.Trade {
	return exec.Trade{
		TemplateID:     id,
		Symbol:         "NVDA",
		Side:           intent.Buy,
		Qty:            100,
		EntryTime:      exit.Add(-5 * time.Minute),
		ExitTime:       exit,
		EntryPrice:     100,
		ExitPrice:      110,
		ExitReason:     intent.ReasonTakeProfit,
		GrossPNL:       1000,
		NetPNL:         net,
		CommissionCost: 2,
		SlippageCost:   4,
		TotalCost:      6,
	}
}

func TestSQLiteJournalRoundtrip(t *testing.T) {
	t.Parallel()

	j := newSQLiteJournal(t, "run-1")

	exitTS := time.Date(2024, 1, 2, 14, 10, 0, 0, time.UTC)
	require.NoError(t, j.RecordIntent(intent.Intent{
		TemplateID:      "T1",
		SignalTS:        exitTS.Add(-10 * time.Minute),
		Symbol:          "NVDA",
		Side:            intent.Buy,
		EntryPrice:      100,
		StopPrice:       95,
		TakeProfitPrice: 110,
		ValidFrom:       exitTS.Add(-5 * time.Minute),
		ValidTo:         exitTS.Add(time.Hour),
		ValidToReason:   intent.ReasonSessionEnd,
	}))
	require.NoError(t, j.RecordFill(FillRow{
		Fill: sim.Fill{TemplateID: "T1", Symbol: "NVDA", Time: exitTS, Price: 110, Reason: intent.ReasonTakeProfit},
		Qty:  100,
	}))
	require.NoError(t, j.RecordTrade(sampleTrade("T1", exitTS, 994)))
	require.NoError(t, j.RecordEquity(EquityPoint{TS: exitTS, Equity: 100_994, DrawdownPct: 0}))

	trades, err := j.ListTrades()
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, "T1", trades[0].TemplateID)
	assert.Equal(t, "BUY", trades[0].Side)
	assert.Equal(t, "take_profit", trades[0].ExitReason)
	assert.Equal(t, 994.0, trades[0].NetPNL)
	assert.False(t, trades[0].Open)
	assert.True(t, trades[0].ExitTS.Equal(exitTS))

	equity, err := j.EquitySeries()
	require.NoError(t, err)
	require.Len(t, equity, 1)
	assert.Equal(t, 100_994.0, equity[0].Equity)
}

func TestSQLiteJournalScopesByRun(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "replay.db")
	exitTS := time.Date(2024, 1, 2, 14, 10, 0, 0, time.UTC)

	a, err := NewSQLite(path, "run-a")
	require.NoError(t, err)
	require.NoError(t, a.RecordTrade(sampleTrade("T1", exitTS, 100)))
	require.NoError(t, a.Close())

	b, err := NewSQLite(path, "run-b")
	require.NoError(t, err)
	defer b.Close()
	require.NoError(t, b.RecordTrade(sampleTrade("T2", exitTS, 200)))

	trades, err := b.ListTrades()
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, "T2", trades[0].TemplateID)
}

func TestSQLiteListTradesClosedBetween(t *testing.T) {
	t.Parallel()

	j := newSQLiteJournal(t, "run-1")
	base := time.Date(2024, 1, 2, 14, 0, 0, 0, time.UTC)

	require.NoError(t, j.RecordTrade(sampleTrade("A", base.Add(10*time.Minute), 10)))
	require.NoError(t, j.RecordTrade(sampleTrade("B", base.Add(30*time.Minute), 20)))
	require.NoError(t, j.RecordTrade(sampleTrade("C", base.Add(50*time.Minute), 30)))

	got, err := j.ListTradesClosedBetween(base.Add(10*time.Minute), base.Add(50*time.Minute))
	require.NoError(t, err)
	require.Len(t, got, 2) // [start, end): C is excluded
	assert.Equal(t, "A", got[0].TemplateID)
	assert.Equal(t, "B", got[1].TemplateID)
}
