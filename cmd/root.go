package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/trenchy69/FLashloanbotonETH/utils"
)

var (
	cfgFile string
	logDir  string
	debug   bool
	dryRun  bool
)

var rootCmd = &cobra.Command{
	Use:   "flashswap",
	Short: "Flash-loan arbitrage settlement bot",
	Long: `A settlement bot that borrows from a flash pool, runs a fixed menu of
two-hop cross-venue arbitrage routes, and repays principal plus fee in one
all-or-nothing unit. Profit goes to the configured beneficiary.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (JSON or YAML)")
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", "", "directory for log files")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "run against the in-memory world")
}

func initConfig() {
	utils.InitLogger(debug, logDir)
}
