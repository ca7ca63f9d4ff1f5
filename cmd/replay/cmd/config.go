package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/replay/config"
)

var configOut string

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Write a default configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Default()
		if err := cfg.SaveToFile(configOut); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", configOut)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.Flags().StringVarP(&configOut, "out", "o", "replay.yaml", "output path (.yaml or .json)")
}
