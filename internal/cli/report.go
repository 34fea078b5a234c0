package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"techblok-cli/internal/api"
)

func newReportCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Report spreadsheet operations",
	}
	cmd.AddCommand(newReportDownloadCmd(app))
	cmd.AddCommand(newReportUploadCmd(app))
	cmd.AddCommand(newReportClearCmd(app))
	return cmd
}

func newReportDownloadCmd(app *App) *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download the generated report spreadsheet",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := app.bootstrap(false)
			if err != nil {
				return err
			}
			defer rt.close()

			ctx, cancel := rt.ctx()
			defer cancel()
			if err := rt.requireSession(ctx); err != nil {
				return err
			}

			data, err := rt.client.DownloadReport(ctx)
			if err != nil {
				return err
			}
			path := filepath.Join(outDir, api.ReportFilename)
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	cmd.Flags().StringVar(&outDir, "out", ".", "Directory to save the spreadsheet in")
	return cmd
}

func newReportUploadCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload <file.xlsx>",
		Short: "Upload a report spreadsheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if !strings.EqualFold(filepath.Ext(path), ".xlsx") {
				return fmt.Errorf("%s: only .xlsx reports are accepted", path)
			}

			rt, err := app.bootstrap(false)
			if err != nil {
				return err
			}
			defer rt.close()

			ctx, cancel := rt.ctx()
			defer cancel()
			if err := rt.requireSession(ctx); err != nil {
				return err
			}

			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()

			err = rt.client.UploadReport(ctx, filepath.Base(path), f, func(pct float64) {
				fmt.Fprintf(cmd.ErrOrStderr(), "\ruploading %3.0f%%", pct)
			})
			fmt.Fprintln(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "uploaded")
			return nil
		},
	}
	return cmd
}

func newReportClearCmd(app *App) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all uploaded report files on the server (admin)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to clear files without --yes")
			}
			rt, err := app.bootstrap(false)
			if err != nil {
				return err
			}
			defer rt.close()

			ctx, cancel := rt.ctx()
			defer cancel()
			if err := rt.requireSession(ctx); err != nil {
				return err
			}
			if err := rt.client.ClearFiles(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "cleared")
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm clearing")
	return cmd
}
