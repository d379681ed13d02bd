package main

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"crate/internal/catalog"
	"crate/internal/config"
	"crate/internal/scanner"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	var full bool

	cmd := &cobra.Command{
		Use:   "scan [root...]",
		Short: "Reconcile library roots with the catalog",
		Long: `Scan walks each library root, catalogs new audio files, refreshes
entries whose files changed, and removes entries for files that vanished
from the scanned root. Without arguments all configured roots are scanned.`,
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
				results := make(map[string]*scanner.Result, len(roots))
				for _, root := range roots {
					result, err := scn.Scan(cmd.Context(), root, full)
					if err != nil {
						return err
					}
					results[root] = result
				}

				if ctx.jsonOutput() {
					return writeJSON(cmd, results)
				}
				rows := make([][]string, 0, len(roots))
				for _, root := range roots {
					r := results[root]
					rows = append(rows, []string{
						root,
						strconv.Itoa(r.Total),
						strconv.Itoa(r.New),
						strconv.Itoa(r.Updated),
						strconv.Itoa(r.Unchanged),
						strconv.Itoa(r.Deleted),
						strconv.Itoa(r.Queued),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Root", "Total", "New", "Updated", "Unchanged", "Deleted", "Queued"},
					rows,
					[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight},
				))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&full, "full", false, "Re-extract metadata for every file, changed or not")
	return cmd
}
