package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
)

func newExportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export every profile and progress record as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			outputPath, _ := cmd.Flags().GetString("output")
			if outputPath == "" {
				outputPath = defaultExportFilename(time.Now())
			}

			if outputPath == "-" {
				return a.backup.ExportToWriter(ctx, cmd.OutOrStdout())
			}

			if dir := filepath.Dir(outputPath); dir != "." {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return fmt.Errorf("failed to create output directory: %w", err)
				}
			}
			if err := a.backup.Export(ctx, outputPath); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Backup written to %s\n", outputPath)
			return nil
		},
	}

	cmd.Flags().StringP("output", "o", "", "Output file path, - for stdout (default backup_YYYYMMDD_HHMMSS.json)")
	return cmd
}

func newImportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Restore profiles and progress from a JSON backup",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			inputPath, _ := cmd.Flags().GetString("input")
			if inputPath == "-" {
				return a.backup.ImportFromReader(ctx, cmd.InOrStdin())
			}
			if err := a.backup.Import(ctx, inputPath); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Backup restored from %s\n", inputPath)
			return nil
		},
	}

	cmd.Flags().StringP("input", "i", "", "Backup file to restore, - for stdin")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func defaultExportFilename(now time.Time) string {
	return fmt.Sprintf("backup_%s.json", now.Format("20060102_150405"))
}
