package cmd

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "replay",
	Short: "Deterministic backtest replay engine for order intents",
	Long: `Replay simulates trading-strategy order intents against historical
price bars and produces auditable fills, trades and cash/equity evolution.

It guarantees:
  - No lookahead: raw signals pass a structural sanitizer first
  - Determinism: identical inputs yield byte-identical artifacts,
    regardless of input ordering
  - Auditable accounting: per-fill costs sum exactly to trade totals`,
}

// Execute adds all child commands to the root command and runs it.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Optional .env for local defaults; absence is fine.
	_ = godotenv.Load()
}
