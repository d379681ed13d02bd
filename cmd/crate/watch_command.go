package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"crate/internal/catalog"
	"crate/internal/config"
	"crate/internal/scanner"
	"crate/internal/watch"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "watch [root...]",
		Short: "Watch library roots and scan incrementally on changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			roots, err := ctx.resolveRoots(args)
			if err != nil {
				return err
			}
			if len(roots) == 0 {
				return fmt.Errorf("no library roots configured; set paths.library_roots or pass a root")
			}

			return ctx.withStore(func(cfg *config.Config, store *catalog.Store, logger *slog.Logger) error {
				scn := scanner.New(cfg, store, logger)
				fmt.Fprintf(cmd.OutOrStdout(), "Watching %d root(s); press Ctrl-C to stop\n", len(roots))
				return watch.New(cfg, scn, logger).Run(cmd.Context(), roots)
			})
		},
	}
}
