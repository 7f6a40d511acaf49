package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/repairsched/app"
	"github.com/kilianp07/repairsched/config"
	"github.com/kilianp07/repairsched/infra/logger"
)

var (
	cfgPath    string
	envFile    string
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:   "repairsched",
	Short: "Repair routing and shipment scheduling",
	Long: `repairsched assigns defective products to repairers and plans the shipment
batches that minimize lead time, shipping cost, quality loss, repair cost and
emissions.

Environment Variables:
  K_<SECTION>__<KEY>  Override a configuration value, e.g. K_MODEL__TAU=12
  APP_ENV=dev         Human readable logs
  LOG_LEVEL           debug, info, warn or error`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return config.LoadDotEnv(envFile)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "configuration file (YAML or JSON)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the configuration")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output JSON instead of human-readable text")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

// signalContext is canceled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// withService loads the configuration, lets tune adjust it, and runs fn with
// a service that is closed afterwards.
func withService(tune func(*config.Config) error, fn func(*app.Service) error) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if tune != nil {
		if err := tune(cfg); err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("main").Errorf("service close: %v", err)
		}
	}()
	return fn(svc)
}

// offline disables the outbound connections a read-only command never needs.
func offline(c *config.Config) error {
	c.Publish.Enabled = false
	return nil
}
