package tagwriter

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"crate/internal/logging"
	"crate/internal/metadata"
	"crate/internal/services"
)

// Canonical field keys accepted by Write. They match the bulk editor's
// editable field set.
const (
	KeyTitle       = "title"
	KeyArtist      = "artist"
	KeyAlbum       = "album"
	KeyAlbumArtist = "album_artist"
	KeyGenre       = "genre"
	KeyYear        = "year"
	KeyTrackNumber = "track_number"
	KeyDiscNumber  = "disc_number"
)

// Writer persists tag updates into the file at path. When overwrite is
// false, fields that already carry a value in the file are left alone.
type Writer interface {
	Write(ctx context.Context, path string, updates map[string]string, overwrite bool) error
}

// FileWriter dispatches on container format: ID3v2 for mp3, Vorbis
// comments for flac. Other containers are rejected with ErrTagWrite.
type FileWriter struct {
	logger *slog.Logger
}

// NewFileWriter constructs the default on-disk writer.
func NewFileWriter(logger *slog.Logger) *FileWriter {
	return &FileWriter{logger: logging.NewComponentLogger(logger, "tagwriter")}
}

func (w *FileWriter) Write(ctx context.Context, path string, updates map[string]string, overwrite bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(updates) == 0 {
		return nil
	}
	switch metadata.FormatFromPath(path) {
	case "mp3":
		return w.writeID3(path, updates, overwrite)
	case "flac":
		return w.writeVorbis(path, updates, overwrite)
	default:
		return services.Wrap(
			services.ErrTagWrite,
			"tagwriter",
			"select codec",
			fmt.Sprintf("Tag writing is not supported for %q files", metadata.FormatFromPath(path)),
			nil,
		)
	}
}

func validKey(key string) bool {
	switch key {
	case KeyTitle, KeyArtist, KeyAlbum, KeyAlbumArtist, KeyGenre, KeyYear, KeyTrackNumber, KeyDiscNumber:
		return true
	default:
		return false
	}
}

func sanitize(updates map[string]string) (map[string]string, error) {
	cleaned := make(map[string]string, len(updates))
	for key, value := range updates {
		key = strings.ToLower(strings.TrimSpace(key))
		if !validKey(key) {
			return nil, services.Wrap(services.ErrValidation, "tagwriter", "validate fields", fmt.Sprintf("Unknown tag field %q", key), nil)
		}
		cleaned[key] = strings.TrimSpace(value)
	}
	return cleaned, nil
}
