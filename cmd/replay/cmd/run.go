package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/replay/backtest"
	"github.com/rustyeddy/replay/config"
	"github.com/rustyeddy/replay/id"
	"github.com/rustyeddy/replay/journal"
	"github.com/rustyeddy/replay/market"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Replay signals against historical bars",
	Long: `Run loads a bar CSV and a raw-signal CSV, sanitizes and windows the
signals, simulates fills, pairs trades and writes the run artifacts
(events_intent, fills, trades, equity_curve, manifest).

Example:
  replay run --config replay.yaml --bars data/nvda_5m.csv --symbol NVDA --signals signals.csv`,
	RunE: runReplay,
}

var (
	runConfigPath  string
	runBarsPath    string
	runSymbol      string
	runSignalsPath string
	runVerbose     bool
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runConfigPath, "config", "c", "", "path to YAML/JSON config (default: built-in defaults)")
	runCmd.Flags().StringVarP(&runBarsPath, "bars", "b", "", "path to bar CSV (time,open,high,low,close,volume) (required)")
	runCmd.Flags().StringVarP(&runSymbol, "symbol", "s", "", "symbol the bar file belongs to (required)")
	runCmd.Flags().StringVar(&runSignalsPath, "signals", "", "path to raw signal CSV (required)")
	runCmd.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "debug logging")

	runCmd.MarkFlagRequired("bars")
	runCmd.MarkFlagRequired("symbol")
	runCmd.MarkFlagRequired("signals")
}

func runReplay(cmd *cobra.Command, args []string) error {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if runVerbose {
		log.SetLevel(logrus.DebugLevel)
	}

	cfg := config.Default()
	if runConfigPath != "" {
		loaded, err := config.LoadFromFile(runConfigPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	series, stats, err := market.LoadCSV(runBarsPath, strings.ToUpper(runSymbol))
	if err != nil {
		return fmt.Errorf("load bars: %w", err)
	}
	if stats.BadLines > 0 || stats.Duplicates > 0 || stats.NaiveTimes > 0 {
		log.WithFields(logrus.Fields{
			"bad":   stats.BadLines,
			"dup":   stats.Duplicates,
			"naive": stats.NaiveTimes,
		}).Warn("bar ingest warnings")
	}

	signals, err := backtest.LoadSignalsCSV(runSignalsPath)
	if err != nil {
		return err
	}

	loc, err := time.LoadLocation(cfg.Session.Timezone)
	if err != nil {
		return fmt.Errorf("session timezone: %w", err)
	}
	cal, err := market.NewRTHCalendar(loc, cfg.Session.Open, cfg.Session.Close)
	if err != nil {
		return err
	}

	runID := id.New()
	j, err := openJournal(cfg, runID)
	if err != nil {
		return err
	}

	runner := &backtest.Runner{
		RunID:    runID,
		Config:   cfg,
		Calendar: cal,
		Series:   map[string]*market.Series{series.Symbol: series},
		Signals:  signals,
		Journal:  j,
		Log:      log,
	}

	res, err := runner.Run(context.Background())
	if cerr := j.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}

	if cfg.Journal.Type == "csv" {
		manifest, err := journal.BuildManifest(runID, cfg.Journal.Dir, runBarsPath)
		if err != nil {
			return err
		}
		if err := manifest.Write(cfg.Journal.Dir); err != nil {
			return err
		}
	}

	fmt.Fprintf(os.Stdout, "\nRun %s complete\n", res.RunID)
	fmt.Printf("  Intents:    %d (signals rejected: %d)\n", res.Intents, res.RejectedSignals)
	fmt.Printf("  Fills:      %d\n", res.Fills)
	fmt.Printf("  Trades:     %d (wins %d / losses %d)\n", res.Trades, res.Wins, res.Losses)
	fmt.Printf("  Net P/L:    $%.2f (%.2f%%)\n", res.NetPL, res.ReturnPct)
	fmt.Printf("  Final cash: $%.2f\n", res.Summary.FinalCashUSD)
	if res.Gaps.SessionEndSnapCount > 0 {
		fmt.Printf("  Gap stats:  %d session-end snaps, max gap %.0fs\n",
			res.Gaps.SessionEndSnapCount, res.Gaps.BarsGapMaxSeconds)
	}
	return nil
}

func openJournal(cfg *config.Config, runID string) (journal.Journal, error) {
	switch cfg.Journal.Type {
	case "sqlite":
		return journal.NewSQLite(cfg.Journal.DBPath, runID)
	default:
		return journal.NewCSV(cfg.Journal.Dir)
	}
}
