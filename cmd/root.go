package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/scriptura/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "scriptura",
	Short: "Scripture chapter resolution service",
	Long:  "Resolves (work, chapter, edition) into canonical verse sequences, reconciling seeded local text, the ESV passage API, and a multi-edition content-tree aggregator behind one cache.",
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
