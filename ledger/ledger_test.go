package ledger

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/replay/exec"
	"github.com/rustyeddy/replay/intent"
	"github.com/rustyeddy/replay/market"
)

func lts(h, m int) time.Time {
	return time.Date(2024, 1, 2, h, m, 0, 0, time.UTC)
}

func TestLedgerSeedsStartEntry(t *testing.T) {
	t.Parallel()

	l := New(100_000, Options{})
	entries := l.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, Start, entries[0].Type)
	assert.Equal(t, 100_000.0, entries[0].CashAfter)
	assert.Equal(t, 100_000.0, entries[0].EquityAfter)
	assert.Equal(t, 0, entries[0].Seq)
}

func TestLedgerAccountingIdentity(t *testing.T) {
	t.Parallel()

	l := New(100_000, Options{})
	pnls := []float64{120.5, -80.25, 42.0}
	for i, pnl := range pnls {
		_, err := l.ApplyTrade(lts(10, 5*(i+1)), pnl, 1.5, 2.0, nil)
		require.NoError(t, err)
	}

	sum := l.Summary()
	assert.InDelta(t, 82.25, sum.TotalPNLNetUSD, 1e-9)
	// final_cash == initial_cash + total_pnl_net, nothing else moves cash.
	assert.Equal(t, sum.InitialCashUSD+sum.TotalPNLNetUSD, sum.FinalCashUSD)
	// Fees and slippage are evidence only, never deducted a second time.
	assert.InDelta(t, 4.5, sum.TotalFeesUSD, 1e-9)
	assert.InDelta(t, 6.0, sum.TotalSlippageUSD, 1e-9)

	entries := l.Entries()
	for i := 1; i < len(entries); i++ {
		assert.Equal(t, entries[i-1].CashAfter, entries[i].CashBefore)
		assert.Equal(t, entries[i].CashBefore+entries[i].PNL, entries[i].CashAfter)
		assert.Equal(t, i, entries[i].Seq)
	}
}

func TestLedgerOutOfOrderTimestamps(t *testing.T) {
	t.Parallel()

	t.Run("strict mode rejects", func(t *testing.T) {
		l := New(1000, Options{StrictTime: true})
		_, err := l.ApplyTrade(lts(10, 10), 5, 0, 0, nil)
		require.NoError(t, err)
		_, err = l.ApplyTrade(lts(10, 5), 5, 0, 0, nil)
		assert.ErrorContains(t, err, "before previous entry")
	})

	t.Run("permissive mode appends with sequence authority", func(t *testing.T) {
		l := New(1000, Options{})
		_, err := l.ApplyTrade(lts(10, 10), 5, 0, 0, nil)
		require.NoError(t, err)
		e, err := l.ApplyTrade(lts(10, 5), 5, 0, 0, nil)
		require.NoError(t, err)
		assert.Equal(t, 2, e.Seq)
		assert.Equal(t, 1010.0, l.Cash())
	})
}

func TestLedgerNaiveTimestamps(t *testing.T) {
	t.Parallel()

	naive := market.Naive(lts(10, 5))

	t.Run("strict mode rejects", func(t *testing.T) {
		l := New(1000, Options{StrictTime: true})
		_, err := l.ApplyTrade(naive, 5, 0, 0, nil)
		assert.ErrorContains(t, err, "naive")
	})

	t.Run("permissive mode normalizes with evidence", func(t *testing.T) {
		l := New(1000, Options{RefZone: time.UTC})
		e, err := l.ApplyTrade(naive, 5, 0, 0, nil)
		require.NoError(t, err)
		assert.Equal(t, "true", e.Meta["naive_ts_normalized"])
		assert.False(t, market.IsNaive(e.TS))
		assert.True(t, e.TS.Equal(lts(10, 5)))
	})
}

func replayTrades() []exec.Trade {
	mk := func(id string, exit time.Time, net, fees, slip float64) exec.Trade {
		return exec.Trade{
			TemplateID:     id,
			Symbol:         "NVDA",
			Side:           intent.Buy,
			ExitTime:       exit,
			NetPNL:         net,
			CommissionCost: fees,
			SlippageCost:   slip,
			ExitReason:     intent.ReasonTakeProfit,
		}
	}
	return []exec.Trade{
		mk("A", lts(10, 10), 100, 1, 2),
		mk("B", lts(10, 20), -40, 1, 2),
		mk("C", lts(10, 20), 15, 1, 2), // shares B's exit time, id breaks the tie
		mk("D", lts(11, 0), 60, 1, 2),
		{TemplateID: "E", Symbol: "NVDA", Open: true}, // open: skipped
	}
}

func TestReplayFromTrades(t *testing.T) {
	t.Parallel()

	l, err := ReplayFromTrades(replayTrades(), 10_000, Options{})
	require.NoError(t, err)

	entries := l.Entries()
	require.Len(t, entries, 5) // START + 4 closed trades
	assert.Equal(t, "A", entries[1].Meta["template_id"])
	assert.Equal(t, "B", entries[2].Meta["template_id"])
	assert.Equal(t, "C", entries[3].Meta["template_id"])
	assert.Equal(t, "D", entries[4].Meta["template_id"])
	assert.Equal(t, "take_profit", entries[1].Meta["exit_reason"])
	assert.InDelta(t, 10_135.0, l.Cash(), 1e-9)
}

func TestReplayFromTradesShuffleInvariant(t *testing.T) {
	t.Parallel()

	want, err := ReplayFromTrades(replayTrades(), 10_000, Options{})
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 20; i++ {
		shuffled := replayTrades()
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})
		got, err := ReplayFromTrades(shuffled, 10_000, Options{})
		require.NoError(t, err)
		// Row-for-row identical, not just the same final balance.
		assert.Equal(t, want.Entries(), got.Entries())
	}
}
