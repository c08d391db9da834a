package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"knowledge-weaver/backend/internal/bootstrap"
	"knowledge-weaver/backend/internal/export"
)

func newExportCmd(open appOpener) *cobra.Command {
	var format, out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export notes as json, markdown or csv",
		Long: `Export writes every note to --out. The default file name carries
today's date; use --out - for stdout.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}

			return withApp(cmd, open, func(ctx context.Context, app *bootstrap.App) error {
				ns, cats, err := app.Graphs.Snapshot(ctx)
				if err != nil {
					return err
				}

				now := time.Now()
				var buf bytes.Buffer
				if err := export.Write(&buf, f, ns, cats, now); err != nil {
					return err
				}

				if out == "-" {
					_, err := buf.WriteTo(cmd.OutOrStdout())
					return err
				}
				path := out
				if path == "" {
					path = export.Filename(f, now)
				}
				if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "exported %d notes to %s\n", len(ns), path)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "json, markdown or csv")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file, - for stdout")
	return cmd
}

func newImportCmd(open appOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "import [file]",
		Short: "Import a JSON export or a bare array of note records (- for stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}

			payload, err := export.Parse(r)
			if err != nil {
				return err
			}

			return withApp(cmd, open, func(ctx context.Context, app *bootstrap.App) error {
				res, err := app.Capture.ImportRecords(ctx, payload.Records, payload.Categories)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "imported %d, skipped %d, categories added %d\n",
					res.Imported, res.Skipped, res.CategoriesAdded)
				for _, f := range res.Failed {
					fmt.Fprintf(cmd.ErrOrStderr(), "failed %s: %s\n", f.ID, f.Error)
				}
				return nil
			})
		},
	}
}
