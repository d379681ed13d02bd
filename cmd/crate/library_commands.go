package main

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"crate/internal/catalog"
	"crate/internal/config"
	"crate/internal/quality"
)

func newLibraryCommand(ctx *commandContext) *cobra.Command {
	libraryCmd := &cobra.Command{
		Use:   "library",
		Short: "Inspect and manage catalog entries",
	}

	libraryCmd.AddCommand(newLibraryListCommand(ctx))
	libraryCmd.AddCommand(newLibraryShowCommand(ctx))
	libraryCmd.AddCommand(newLibraryRemoveCommand(ctx))

	return libraryCmd
}

func newLibraryListCommand(ctx *commandContext) *cobra.Command {
	var prefix string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog entries in path order",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *catalog.Store, logger *slog.Logger) error {
				var entries []*catalog.Entry
				var err error
				if prefix != "" {
					entries, err = store.ListByPathPrefix(cmd.Context(), prefix)
				} else {
					entries, err = store.List(cmd.Context())
				}
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, entries)
				}

				rows := make([][]string, 0, len(entries))
				for _, entry := range entries {
					rows = append(rows, []string{
						entry.ID,
						entry.Artist,
						entry.DisplayTitle(),
						entry.Format,
						string(entry.Status),
						entry.Path,
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Artist", "Title", "Format", "Status", "Path"},
					rows,
					nil,
				))
				fmt.Fprintf(cmd.OutOrStdout(), "%d entries\n", len(entries))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&prefix, "prefix", "", "Only list entries whose path starts with this prefix")
	return cmd
}

func newLibraryShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one catalog entry in full",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *catalog.Store, logger *slog.Logger) error {
				entry, err := store.GetByID(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if entry == nil {
					return fmt.Errorf("no entry with id %s", args[0])
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, entry)
				}

				score := quality.Classify(
					entry.Format,
					entry.BitrateKbps,
					entry.SampleRateHz,
					entry.BitDepth,
					quality.ParseBitrateMode(entry.BitrateMode),
				)
				rows := [][]string{
					{"ID", entry.ID},
					{"Path", entry.Path},
					{"Status", string(entry.Status)},
					{"Title", entry.Title},
					{"Artist", entry.Artist},
					{"Album", entry.Album},
					{"Album artist", entry.AlbumArtist},
					{"Track", formatTrack(entry.TrackNumber, entry.DiscNumber)},
					{"Year", zeroBlank(entry.Year)},
					{"Genre", entry.Genre},
					{"Quality", quality.Describe(score)},
					{"Fingerprint", entry.Fingerprint},
					{"Updated", entry.UpdatedAt.Format("2006-01-02 15:04:05")},
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Field", "Value"}, rows, nil))
				return nil
			})
		},
	}
}

func newLibraryRemoveCommand(ctx *commandContext) *cobra.Command {
	var hard bool

	cmd := &cobra.Command{
		Use:   "rm <id>...",
		Short: "Remove catalog entries",
		Long: `Remove marks entries as pending deletion so the next scan of their
root purges them. With --hard the rows are deleted immediately. The audio
files themselves are never touched.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *catalog.Store, logger *slog.Logger) error {
				return store.WithTx(cmd.Context(), func(tx *catalog.Tx) error {
					for _, id := range args {
						entry, err := store.GetByID(cmd.Context(), id)
						if err != nil {
							return err
						}
						if entry == nil {
							return fmt.Errorf("no entry with id %s", id)
						}
						if hard {
							if err := tx.Delete(cmd.Context(), id); err != nil {
								return err
							}
							fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s (%s)\n", id, entry.Path)
							continue
						}
						entry.Status = catalog.StatusPendingDeletion
						if err := tx.Update(cmd.Context(), entry); err != nil {
							return err
						}
						fmt.Fprintf(cmd.OutOrStdout(), "Marked %s for deletion (%s)\n", id, entry.Path)
					}
					return nil
				})
			})
		},
	}

	cmd.Flags().BoolVar(&hard, "hard", false, "Delete the catalog rows immediately")
	return cmd
}

func formatTrack(track, disc int) string {
	if track == 0 {
		return ""
	}
	if disc > 0 {
		return strconv.Itoa(track) + " (disc " + strconv.Itoa(disc) + ")"
	}
	return strconv.Itoa(track)
}

func zeroBlank(n int) string {
	if n == 0 {
		return ""
	}
	return strconv.Itoa(n)
}
