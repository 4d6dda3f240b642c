package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/ktweb-minutes/internal/crawler"
)

func newDownloadCmd() *cobra.Command {
	var ingestAfter bool

	cmd := &cobra.Command{
		Use:   "download <policymaker>...",
		Short: "Mirror the meeting documents of one or more policymakers",
		Long: `Fetches the policymaker listing of every given policymaker and stores
each linked meeting document (index, cover and issue pages) under the
configured download directory. Pages already on disk are kept unless
--force is given.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDownload(cmd, args, ingestAfter)
		},
	}
	cmd.Flags().Bool("force", false, "re-download pages that already exist locally")
	cmd.Flags().BoolVar(&ingestAfter, "ingest", false, "ingest the downloaded meeting documents")
	return cmd
}

func runDownload(cmd *cobra.Command, policymakers []string, ingestAfter bool) error {
	a, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		dirs     []string
		failures int
		errs     []error
	)
	for _, policymaker := range policymakers {
		logger := a.Logger.With(zap.String("policymaker", policymaker))
		err := a.Planner.Download(ctx, policymaker, func(result crawler.DocumentResult) {
			for _, d := range result.Failures {
				logger.Warn("page download failed", zap.String("diagnostic", d.String()))
			}
			failures += len(result.Failures)
			if result.Dir == "" {
				return
			}
			dirs = append(dirs, result.Dir)
			logger.Info("meeting document downloaded",
				zap.String("dir", result.Dir),
				zap.Int("pages", len(result.Pages)),
				zap.Bool("complete", result.OK()),
			)
		})
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			logger.Error("policymaker download failed", zap.Error(err))
			errs = append(errs, fmt.Errorf("download %s: %w", policymaker, err))
		}
	}

	a.Logger.Info("download finished",
		zap.Int("documents", len(dirs)),
		zap.Int("page_failures", failures),
	)

	if ingestAfter && len(dirs) > 0 {
		report, err := a.Ingester.Run(ctx, dirs)
		if err != nil {
			return fmt.Errorf("ingest: %w", err)
		}
		if err := writeReport(cmd, report); err != nil {
			return err
		}
	}
	return errors.Join(errs...)
}
