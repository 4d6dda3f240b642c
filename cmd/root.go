// Package cmd defines the ktweb command line interface.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/ktweb-minutes/internal/app"
	"github.com/JakeFAU/ktweb-minutes/internal/config"
	"github.com/JakeFAU/ktweb-minutes/internal/logging"
)

// appKeyType is the key for storing the App in the command context.
type appKeyType string

const appKey appKeyType = "app"

// newApp is the application factory. Tests replace it to inject fakes.
var newApp = app.New

// newRootCmd creates the root command and registers every subcommand.
func newRootCmd() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "ktweb",
		Short: "Download, parse and serve ktweb meeting minutes.",
		Long: `ktweb mirrors municipal meeting minutes published by the ktweb
publishing system, extracts structured meeting documents from the mirrored
pages, stores them and serves them over a read-only REST API.`,
		SilenceUsage: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("force") {
				if cfg.Crawler.Force, err = cmd.Flags().GetBool("force"); err != nil {
					return err
				}
			}

			logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			zap.ReplaceGlobals(logger)

			appInstance, err := newApp(cmd.Context(), cfg, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, appInstance))
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if appInstance, ok := cmd.Context().Value(appKey).(*app.App); ok && appInstance != nil {
				appInstance.Close()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML, JSON or TOML)")

	cmd.AddCommand(
		newDownloadCmd(),
		newParseCmd(),
		newIngestCmd(),
		newMigrateCmd(),
		newServeCmd(),
	)
	return cmd
}

// resolveApp extracts the App stored by the root command.
func resolveApp(ctx context.Context) (*app.App, error) {
	if ctx == nil {
		return nil, errors.New("command context is nil")
	}
	appInstance, ok := ctx.Value(appKey).(*app.App)
	if !ok || appInstance == nil {
		return nil, errors.New("application not initialized")
	}
	return appInstance, nil
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	ctx := context.Background()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		zap.L().Error("command failed", zap.Error(err))
		os.Exit(1)
	}
}
