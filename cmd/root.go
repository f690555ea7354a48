package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/civiclab/splitrate/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "splitrate",
	Short: "Split-rate land value tax scenario engine",
	Long:  "Fetches county parcel rolls and census demographics, recreates current property taxes, solves revenue-neutral split-rate millages, and reports who pays more and who pays less.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
