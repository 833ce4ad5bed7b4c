package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/trenchy69/FLashloanbotonETH/cmd/bot"
	"github.com/trenchy69/FLashloanbotonETH/config"
	"github.com/trenchy69/FLashloanbotonETH/utils"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Scan the route menu and settle clearing opportunities",
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

		ctx := cmd.Context()
		if err := b.Start(ctx); err != nil {
			return err
		}

		<-ctx.Done()
		b.Stop()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(startCmd)
}
