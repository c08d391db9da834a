package main

import (
	"context"

	"github.com/spf13/cobra"

	"knowledge-weaver/backend/internal/bootstrap"
	"knowledge-weaver/backend/pkg/config"
	"knowledge-weaver/backend/pkg/logger"
)

// newRootCmd builds the command tree. Every subcommand opens the configured
// store for the duration of one run.
func newRootCmd() *cobra.Command {
	var cfg *config.Config

	rootCmd := &cobra.Command{
		Use:   "kweaver",
		Short: "Manage a local Knowledge Weaver note store",
		Long: `kweaver works directly on the note store the server uses
(STORE_BACKEND / DATA_DIR), so the server should not be running
against a badger store at the same time.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load()
			if err != nil {
				return err
			}
			cfg = loaded
			if logger.Logger == nil {
				return logger.Init(cfg.Env)
			}
			return nil
		},
	}

	open := func(ctx context.Context) (*bootstrap.App, error) {
		return bootstrap.New(ctx, cfg)
	}

	rootCmd.AddCommand(
		newNotesCmd(open),
		newExportCmd(open),
		newImportCmd(open),
		newGraphCmd(open),
		newOverviewCmd(open),
		newRecategorizeCmd(open),
		newSyncCmd(open),
	)
	return rootCmd
}

type appOpener func(ctx context.Context) (*bootstrap.App, error)

// withApp opens the app, runs fn and closes the app again
func withApp(cmd *cobra.Command, open appOpener, fn func(ctx context.Context, app *bootstrap.App) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	app, err := open(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	return fn(ctx, app)
}
