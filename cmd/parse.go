package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/JakeFAU/ktweb-minutes/internal/validate"
)

func newParseCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "parse <dir>",
		Short: "Parse one downloaded meeting document and print it",
		Long: `Parses a single meeting document directory and writes the extracted
document to standard output. Validation warnings are logged and do not fail
the command.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(cmd, args[0], format)
		},
	}
	cmd.Flags().StringVar(&format, "format", "json", "output format: json or yaml")
	return cmd
}

func runParse(cmd *cobra.Command, dir, format string) error {
	if format != "json" && format != "yaml" {
		return fmt.Errorf("unknown format %q", format)
	}
	a, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}

	doc, err := a.Parser.ParseMeetingDocument(dir)
	if err != nil {
		return err
	}
	for _, w := range validate.Validate(doc) {
		a.Logger.Warn("validation warning",
			zap.String("dir", dir),
			zap.String("field", w.Field),
			zap.String("message", w.Message),
		)
	}

	out := cmd.OutOrStdout()
	if format == "yaml" {
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}
