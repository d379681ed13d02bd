package bulkedit

import (
	"context"
	"log/slog"
	"os"
	"sort"
	"strconv"

	"crate/internal/catalog"
	"crate/internal/logging"
	"crate/internal/services"
	"crate/internal/tagwriter"
)

// Result summarizes one bulk edit batch. Errors maps entry IDs to a short
// human-readable failure reason.
type Result struct {
	Total         int               `json:"total"`
	Successful    int               `json:"successful"`
	Failed        int               `json:"failed"`
	Errors        map[string]string `json:"errors,omitempty"`
	FieldsUpdated []string          `json:"fields_updated"`
}

// Editor applies field updates to catalog entries and, optionally, to the
// files on disk.
type Editor struct {
	store  *catalog.Store
	writer tagwriter.Writer
	logger *slog.Logger
}

// New constructs a bulk editor.
func New(store *catalog.Store, writer tagwriter.Writer, logger *slog.Logger) *Editor {
	return &Editor{
		store:  store,
		writer: writer,
		logger: logging.NewComponentLogger(logger, "bulkedit"),
	}
}

// Apply sets the given fields on every entry in ids. Per-entry failures
// (missing entry, missing file, tag write errors) are recorded in the
// result and do not affect other entries. All catalog updates for the
// successful entries commit in one transaction; only a failed commit makes
// Apply itself return an error.
func (e *Editor) Apply(ctx context.Context, ids []string, updates map[string]string, writeToFiles bool) (*Result, error) {
	result := &Result{
		Total:         len(ids),
		Errors:        make(map[string]string),
		FieldsUpdated: sortedKeys(updates),
	}
	if len(updates) == 0 || len(ids) == 0 {
		return result, nil
	}

	var edited []*catalog.Entry
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		entry, err := e.store.GetByID(ctx, id)
		if err != nil {
			result.Failed++
			result.Errors[id] = "Catalog lookup failed"
			e.logger.Warn("entry lookup failed", logging.String(logging.FieldEntryID, id), logging.Error(err))
			continue
		}
		if entry == nil {
			result.Failed++
			result.Errors[id] = "Entry not found"
			continue
		}

		if writeToFiles {
			if _, err := os.Stat(entry.Path); err != nil {
				result.Failed++
				result.Errors[id] = "File not found"
				continue
			}
			if err := e.writer.Write(ctx, entry.Path, updates, true); err != nil {
				result.Failed++
				result.Errors[id] = err.Error()
				e.logger.Warn("tag write failed", logging.String(logging.FieldPath, entry.Path), logging.Error(err))
				continue
			}
		}

		applyUpdates(entry, updates)
		edited = append(edited, entry)
		result.Successful++
	}

	if len(edited) > 0 {
		err := e.store.WithTx(ctx, func(tx *catalog.Tx) error {
			for _, entry := range edited {
				if err := tx.Update(ctx, entry); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return nil, services.Wrap(services.ErrPersistence, "bulkedit", "commit batch", "Unable to commit bulk edit", err)
		}
	}

	e.logger.Info(
		"bulk edit applied",
		logging.Int("total", result.Total),
		logging.Int("successful", result.Successful),
		logging.Int("failed", result.Failed),
		logging.Bool("write_to_files", writeToFiles),
	)
	return result, nil
}

// CommonValues reports, for every editable field, the value shared by all
// selected entries, or the Mixed sentinel where they disagree. Unknown IDs
// are skipped.
func (e *Editor) CommonValues(ctx context.Context, ids []string) (map[string]string, error) {
	values := make(map[string]string)
	seen := false
	for _, id := range ids {
		entry, err := e.store.GetByID(ctx, id)
		if err != nil {
			return nil, services.Wrap(services.ErrPersistence, "bulkedit", "load entries", "Unable to load entry", err)
		}
		if entry == nil {
			continue
		}
		fields := fieldValues(entry)
		if !seen {
			for field, value := range fields {
				values[field] = value
			}
			seen = true
			continue
		}
		for field, value := range fields {
			if values[field] != value {
				values[field] = Mixed
			}
		}
	}
	return values, nil
}

func applyUpdates(entry *catalog.Entry, updates map[string]string) {
	for field, value := range updates {
		switch field {
		case tagwriter.KeyTitle:
			entry.Title = value
		case tagwriter.KeyArtist:
			entry.Artist = value
		case tagwriter.KeyAlbum:
			entry.Album = value
		case tagwriter.KeyAlbumArtist:
			entry.AlbumArtist = value
		case tagwriter.KeyGenre:
			entry.Genre = value
		case tagwriter.KeyYear:
			entry.Year = parseInt(value)
		case tagwriter.KeyTrackNumber:
			entry.TrackNumber = parseInt(value)
		case tagwriter.KeyDiscNumber:
			entry.DiscNumber = parseInt(value)
		}
	}
}

func fieldValues(entry *catalog.Entry) map[string]string {
	return map[string]string{
		tagwriter.KeyTitle:       entry.Title,
		tagwriter.KeyArtist:      entry.Artist,
		tagwriter.KeyAlbum:       entry.Album,
		tagwriter.KeyAlbumArtist: entry.AlbumArtist,
		tagwriter.KeyGenre:       entry.Genre,
		tagwriter.KeyYear:        formatInt(entry.Year),
		tagwriter.KeyTrackNumber: formatInt(entry.TrackNumber),
		tagwriter.KeyDiscNumber:  formatInt(entry.DiscNumber),
	}
}

func parseInt(value string) int {
	if value == "" {
		return 0
	}
	n, _ := strconv.Atoi(value)
	return n
}

func formatInt(n int) string {
	if n == 0 {
		return ""
	}
	return strconv.Itoa(n)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
