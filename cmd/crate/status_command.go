package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"crate/internal/catalog"
	"crate/internal/config"
	"crate/internal/quality"
	"crate/internal/scanner"
)

type statusReport struct {
	DatabasePath string             `json:"database_path"`
	LibraryRoots []string           `json:"library_roots"`
	Entries      int                `json:"entries"`
	ByStatus     map[string]int     `json:"by_status"`
	ByTier       map[string]int     `json:"by_tier"`
	Scans        []scanner.Progress `json:"scans,omitempty"`
}

// loadScanProgress reads the per-root progress snapshots scans publish into
// the catalog's key-value state. Unparseable snapshots are skipped.
func loadScanProgress(cmd *cobra.Command, store *catalog.Store) ([]scanner.Progress, error) {
	kv := store.KV()
	keys, err := kv.Keys(cmd.Context(), "scan:")
	if err != nil {
		return nil, err
	}
	scans := make([]scanner.Progress, 0, len(keys))
	for _, key := range keys {
		value, ok, err := kv.Get(cmd.Context(), key)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		var progress scanner.Progress
		if err := json.Unmarshal(value, &progress); err != nil {
			continue
		}
		scans = append(scans, progress)
	}
	return scans, nil
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Summarize the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *catalog.Store, logger *slog.Logger) error {
				entries, err := store.List(cmd.Context())
				if err != nil {
					return err
				}

				report := statusReport{
					DatabasePath: store.Path(),
					LibraryRoots: cfg.Paths.LibraryRoots,
					Entries:      len(entries),
					ByStatus:     make(map[string]int),
					ByTier:       make(map[string]int),
				}
				report.Scans, err = loadScanProgress(cmd, store)
				if err != nil {
					return err
				}
				for _, entry := range entries {
					report.ByStatus[string(entry.Status)]++
					score := quality.Classify(
						entry.Format,
						entry.BitrateKbps,
						entry.SampleRateHz,
						entry.BitDepth,
						quality.ParseBitrateMode(entry.BitrateMode),
					)
					report.ByTier[score.Tier.String()]++
				}

				if ctx.jsonOutput() {
					return writeJSON(cmd, report)
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Database: %s\n", report.DatabasePath)
				for _, root := range report.LibraryRoots {
					fmt.Fprintf(out, "Root:     %s\n", root)
				}
				fmt.Fprintf(out, "Entries:  %d\n\n", report.Entries)

				rows := make([][]string, 0, len(report.ByStatus)+len(report.ByTier))
				for _, status := range []string{"active", "missing", "pending_deletion"} {
					if count := report.ByStatus[status]; count > 0 {
						rows = append(rows, []string{"status", status, strconv.Itoa(count)})
					}
				}
				for tier := quality.TierLosslessHiRes; tier >= quality.TierUnknown; tier-- {
					if count := report.ByTier[tier.String()]; count > 0 {
						rows = append(rows, []string{"quality", tier.String(), strconv.Itoa(count)})
					}
				}
				if len(rows) > 0 {
					fmt.Fprintln(out, renderTable(
						[]string{"Kind", "Value", "Count"},
						rows,
						[]columnAlignment{alignLeft, alignLeft, alignRight},
					))
				}

				if len(report.Scans) > 0 {
					scanRows := make([][]string, 0, len(report.Scans))
					for _, scan := range report.Scans {
						scanRows = append(scanRows, []string{
							scan.Root,
							scan.Phase,
							fmt.Sprintf("%d/%d", scan.Scanned, scan.Total),
							scan.UpdatedAt.Local().Format("2006-01-02 15:04:05"),
						})
					}
					fmt.Fprintln(out, renderTable(
						[]string{"Scan Root", "Phase", "Progress", "Updated"},
						scanRows,
						[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
					))
				}
				return nil
			})
		},
	}
}
