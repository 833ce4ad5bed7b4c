package cmd

import (
	"fmt"
	"math/big"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/trenchy69/FLashloanbotonETH/cmd/bot"
	"github.com/trenchy69/FLashloanbotonETH/config"
	"github.com/trenchy69/FLashloanbotonETH/engine"
	"github.com/trenchy69/FLashloanbotonETH/utils"
)

var (
	arbAmount  string
	arbVariant uint8
)

var arbCmd = &cobra.Command{
	Use:   "arb",
	Short: "Settle one flash-loan arbitrage attempt on a chosen route",
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

		amount := cfg.TradeAmountInt()
		if arbAmount != "" {
			parsed, ok := new(big.Int).SetString(arbAmount, 10)
			if !ok || parsed.Sign() <= 0 {
				return fmt.Errorf("invalid amount %q", arbAmount)
			}
			amount = parsed
		}
		if arbVariant >= engine.NumPathVariants {
			return fmt.Errorf("variant must be below %d", engine.NumPathVariants)
		}

		b, err := bot.New(cfg, log)
		if err != nil {
			return err
		}

		variant := engine.PathVariant(arbVariant)
		base := config.Address(cfg.Tokens.Base)
		owner := b.Engine().Owner()

		log.Info("Settling one attempt",
			zap.String("amount", amount.String()),
			zap.String("variant", variant.String()),
		)
		return b.Engine().StartArbitrage(cmd.Context(), owner, base, amount, variant)
	},
}

func init() {
	rootCmd.AddCommand(arbCmd)
	arbCmd.Flags().StringVar(&arbAmount, "amount", "", "loan principal in smallest units (default trade_amount)")
	arbCmd.Flags().Uint8Var(&arbVariant, "variant", 0, "path variant 0-3")
}
