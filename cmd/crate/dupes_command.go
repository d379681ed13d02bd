package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"crate/internal/catalog"
	"crate/internal/config"
	"crate/internal/dedupe"
)

func newDupesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "dupes",
		Short: "Report likely duplicate recordings, best copy first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *catalog.Store, logger *slog.Logger) error {
				groups, err := dedupe.New(store, logger).Find(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, groups)
				}

				out := cmd.OutOrStdout()
				if len(groups) == 0 {
					fmt.Fprintln(out, "No duplicates found")
					return nil
				}
				for _, group := range groups {
					fmt.Fprintf(out, "%s - %s\n", group.Artist, group.Title)
					fmt.Fprintf(out, "  keep  %s\n", group.Keep.Path)
					for _, dup := range group.Duplicates {
						fmt.Fprintf(out, "  dupe  %s (%s)\n", dup.Entry.Path, dup.Reason)
					}
				}
				fmt.Fprintf(out, "\n%d duplicate group(s)\n", len(groups))
				return nil
			})
		},
	}
}
