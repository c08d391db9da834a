package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"knowledge-weaver/backend/internal/bootstrap"
	"knowledge-weaver/backend/internal/knowledge"
	apperrors "knowledge-weaver/backend/pkg/errors"
)

func newGraphCmd(open appOpener) *cobra.Command {
	var (
		policy string
		window time.Duration
		stats  bool
	)

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Build the knowledge graph and print it as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, open, func(ctx context.Context, app *bootstrap.App) error {
				opts := app.Graphs.Options()
				if policy != "" {
					p, err := knowledge.ParsePolicy(policy)
					if err != nil {
						return err
					}
					opts.Policy = p
				}
				if window > 0 {
					opts.TemporalWindow = window
				}

				g, err := app.Graphs.Build(ctx, opts)
				if err != nil {
					return err
				}
				if stats {
					return printJSON(cmd, g.Stats())
				}
				return printJSON(cmd, g)
			})
		},
	}
	cmd.Flags().StringVar(&policy, "policy", "", "edge policy: first_wins, merge or parallel")
	cmd.Flags().DurationVar(&window, "window", 0, "temporal window (default from TEMPORAL_WINDOW)")
	cmd.Flags().BoolVar(&stats, "stats", false, "print node and edge counts only")
	return cmd
}

func newOverviewCmd(open appOpener) *cobra.Command {
	var top int

	cmd := &cobra.Command{
		Use:   "overview",
		Short: "Summarize the graph: counts, top domains and categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, open, func(ctx context.Context, app *bootstrap.App) error {
				g, err := app.Graphs.BuildDefault(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd, knowledge.Summarize(g, top))
			})
		},
	}
	cmd.Flags().IntVar(&top, "top", 10, "how many domains and categories to list")
	return cmd
}

func newRecategorizeCmd(open appOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "recategorize [id]",
		Short: "Re-run categorization for one note, or for every note",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, open, func(ctx context.Context, app *bootstrap.App) error {
				if len(args) == 1 {
					n, err := app.Capture.Recategorize(ctx, args[0])
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s [%s]\n", n.ID, n.Category)
					return nil
				}

				count, err := app.Capture.RecategorizeAll(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "recategorized %d notes\n", count)
				return nil
			})
		},
	}
}

func newSyncCmd(open appOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Mirror the built graph into Neo4j (needs NEO4J_URI)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, open, func(ctx context.Context, app *bootstrap.App) error {
				if app.Projection == nil {
					return apperrors.ErrGraphUnavailable
				}

				g, err := app.Graphs.BuildDefault(ctx)
				if err != nil {
					return err
				}
				res, err := app.Projection.SyncGraph(ctx, g)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "synced %d nodes, %d edges, removed %d stale entities\n",
					res.Nodes, res.Edges, res.Removed)
				return nil
			})
		},
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
