package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aaryan23/cold-email-os/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "coldemail",
	Short: "Research-backed cold email generation",
	Long:  "Turns a sales-call transcript into a research report on the client's buyers, then writes cold email campaigns grounded in that report and a knowledge base of proven copy.",
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
