package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/article-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "article-cli",
	Short: "AI-assisted long-form article generator",
	Long:  "Turns a reference document plus configuration into a finished article: staggered analysis tasks, parallel section generation with cross-section de-duplication, and a resumable analyze/write workflow.",
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
