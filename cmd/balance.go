package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/trenchy69/FLashloanbotonETH/cmd/bot"
	"github.com/trenchy69/FLashloanbotonETH/config"
	"github.com/trenchy69/FLashloanbotonETH/utils"
)

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Print the engine's holdings of the configured assets",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := utils.GetLogger()

		if err := config.LoadEnv(); err != nil {
			log.Debug("No .env file loaded", zap.Error(err))
		}

		cfg, err := config.LoadConfig(cfgFile)
		if err != nil {
			return err
		}
		if dryRun {
			cfg.DryRun = true
		}

		b, err := bot.New(cfg, log)
		if err != nil {
			return err
		}

		for name, addr := range map[string]string{
			"base":        cfg.Tokens.Base,
			"secondary_a": cfg.Tokens.SecondaryA,
			"secondary_b": cfg.Tokens.SecondaryB,
		} {
			balance, err := b.Engine().BalanceOf(cmd.Context(), config.Address(addr))
			if err != nil {
				return fmt.Errorf("failed to read %s balance: %w", name, err)
			}
			fmt.Printf("%-12s %s  %s\n", name, addr, balance)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(balanceCmd)
}
