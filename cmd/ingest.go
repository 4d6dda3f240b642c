package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/ktweb-minutes/internal/ingest"
)

func newIngestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <dir>...",
		Short: "Parse downloaded meeting documents and store them",
		Long: `Walks every given directory for meeting document directories, parses
them, stores new documents in the repository and publishes an event for
each stored document. Documents already stored are skipped.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runIngest,
	}
}

func runIngest(cmd *cobra.Command, roots []string) error {
	a, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var dirs []string
	for _, root := range roots {
		found, err := ingest.FindMeetingDocumentDirs(root)
		if err != nil {
			return err
		}
		dirs = append(dirs, found...)
	}
	a.Logger.Info("meeting documents found", zap.Int("count", len(dirs)))

	report, err := a.Ingester.Run(ctx, dirs)
	if err != nil {
		return fmt.Errorf("ingest: %w", err)
	}
	return writeReport(cmd, report)
}

func writeReport(cmd *cobra.Command, report ingest.Report) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
