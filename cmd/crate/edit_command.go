package main

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"crate/internal/bulkedit"
	"crate/internal/catalog"
	"crate/internal/config"
	"crate/internal/tagwriter"
)

func newEditCommand(ctx *commandContext) *cobra.Command {
	var ids []string
	var sets []string
	var writeTags bool
	var showCommon bool

	cmd := &cobra.Command{
		Use:   "edit --ids ID[,ID...] --set field=value [--set field=value...]",
		Short: "Apply one set of tag updates to many entries",
		Long: `Edit applies the same field values to every selected entry. Failures
on individual entries (missing entry, unwritable file) are reported but do
not stop the rest of the batch. With --show-common the current values are
printed instead; fields the entries disagree on show as "mixed".

Editable fields: ` + strings.Join(bulkedit.EditableFields(), ", "),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(ids) == 0 {
				return fmt.Errorf("no entries selected; pass --ids")
			}

			return ctx.withStore(func(cfg *config.Config, store *catalog.Store, logger *slog.Logger) error {
				editor := bulkedit.New(store, tagwriter.NewFileWriter(logger), logger)

				if showCommon {
					values, err := editor.CommonValues(cmd.Context(), ids)
					if err != nil {
						return err
					}
					if ctx.jsonOutput() {
						return writeJSON(cmd, values)
					}
					fields := make([]string, 0, len(values))
					for field := range values {
						fields = append(fields, field)
					}
					sort.Strings(fields)
					rows := make([][]string, 0, len(fields))
					for _, field := range fields {
						rows = append(rows, []string{field, values[field]})
					}
					fmt.Fprintln(cmd.OutOrStdout(), renderTable(
						[]string{"Field", "Value"},
						rows,
						[]columnAlignment{alignLeft, alignLeft},
					))
					return nil
				}

				raw, err := parseSetFlags(sets)
				if err != nil {
					return err
				}
				updates, err := bulkedit.FilterUpdates(raw)
				if err != nil {
					return err
				}
				if len(updates) == 0 {
					return fmt.Errorf("nothing to do; pass at least one --set field=value")
				}

				result, err := editor.Apply(cmd.Context(), ids, updates, writeTags)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, result)
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Updated %d of %d entries (%s)\n", result.Successful, result.Total, strings.Join(result.FieldsUpdated, ", "))
				if result.Failed > 0 {
					failed := make([]string, 0, len(result.Errors))
					for id := range result.Errors {
						failed = append(failed, id)
					}
					sort.Strings(failed)
					for _, id := range failed {
						fmt.Fprintf(out, "  failed %s: %s\n", id, result.Errors[id])
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVar(&ids, "ids", nil, "Entry IDs to edit")
	cmd.Flags().StringArrayVar(&sets, "set", nil, "Field update as field=value; repeatable")
	cmd.Flags().BoolVar(&writeTags, "write-tags", false, "Also write the updated tags into the audio files")
	cmd.Flags().BoolVar(&showCommon, "show-common", false, "Show current values shared by the selected entries")
	return cmd
}

func parseSetFlags(sets []string) (map[string]*string, error) {
	raw := make(map[string]*string, len(sets))
	for _, set := range sets {
		field, value, ok := strings.Cut(set, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --set %q; expected field=value", set)
		}
		field = strings.TrimSpace(field)
		if field == "" {
			return nil, fmt.Errorf("invalid --set %q; empty field name", set)
		}
		v := value
		raw[field] = &v
	}
	return raw, nil
}
