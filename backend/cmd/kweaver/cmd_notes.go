package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"knowledge-weaver/backend/internal/bootstrap"
	"knowledge-weaver/backend/internal/capture"
	"knowledge-weaver/backend/internal/notes"
)

const snippetLength = 60

func newNotesCmd(open appOpener) *cobra.Command {
	notesCmd := &cobra.Command{
		Use:   "notes",
		Short: "List, add and remove notes",
	}

	var asJSON bool
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List notes oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, open, func(ctx context.Context, app *bootstrap.App) error {
				ns, err := app.Store.List(ctx)
				if err != nil {
					return err
				}
				if asJSON {
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					if ns == nil {
						ns = []notes.Note{}
					}
					return enc.Encode(ns)
				}

				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tCREATED\tCATEGORIES\tCONTENT")
				for _, n := range ns {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
						n.ID,
						time.UnixMilli(n.Timestamp).UTC().Format(time.RFC3339),
						strings.Join(n.Categories, ", "),
						notes.NameOf(n.Content, snippetLength),
					)
				}
				return tw.Flush()
			})
		},
	}
	listCmd.Flags().BoolVar(&asJSON, "json", false, "print notes as JSON")

	var req capture.Request
	addCmd := &cobra.Command{
		Use:   "add [content]",
		Short: "Capture a note; without --category the categorizer picks one",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Content = strings.Join(args, " ")
			return withApp(cmd, open, func(ctx context.Context, app *bootstrap.App) error {
				n, err := app.Capture.Capture(ctx, req)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s [%s]\n", n.ID, strings.Join(n.Categories, ", "))
				return nil
			})
		},
	}
	addCmd.Flags().StringVar(&req.URL, "url", "", "page the note was taken on")
	addCmd.Flags().StringSliceVar(&req.Categories, "category", nil, "category (repeatable)")

	rmCmd := &cobra.Command{
		Use:   "rm [id...]",
		Short: "Delete notes by id",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, open, func(ctx context.Context, app *bootstrap.App) error {
				for _, id := range args {
					if err := app.Capture.Delete(ctx, id); err != nil {
						return err
					}
					if app.Projection != nil {
						if _, err := app.Projection.DeleteEntity(ctx, id); err != nil {
							fmt.Fprintf(cmd.ErrOrStderr(), "graph database still holds %s: %v\n", id, err)
						}
					}
					fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", id)
				}
				return nil
			})
		},
	}

	notesCmd.AddCommand(listCmd, addCmd, rmCmd)
	return notesCmd
}
