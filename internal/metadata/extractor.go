package metadata

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"

	"crate/internal/logging"
	"crate/internal/services"
)

// Fields is the flat tag-field set consumed by the reconciler. Zero values
// mean "absent".
type Fields struct {
	Title       string
	Artist      string
	Album       string
	AlbumArtist string
	TrackNumber int
	DiscNumber  int
	Year        int
	Genre       string

	DurationSeconds float64
	SampleRateHz    int
	BitDepth        int
	BitrateKbps     int
	BitrateMode     string
	Format          string
}

// Extractor reads tag fields from a file.
type Extractor interface {
	Extract(ctx context.Context, path string) (Fields, error)
}

// TagExtractor reads tags with dhowden/tag and stream properties from the
// container headers (FLAC STREAMINFO, mp3 frame decoding). Properties a
// container does not expose stay zero; the quality scorer treats them as
// absent.
type TagExtractor struct {
	logger *slog.Logger
}

// NewExtractor constructs the default extractor.
func NewExtractor(logger *slog.Logger) *TagExtractor {
	return &TagExtractor{logger: logging.NewComponentLogger(logger, "metadata")}
}

// Extract reads tag fields and stream properties from path. On failure it
// returns whatever fields could be derived (at minimum the container format
// from the extension) alongside an ErrExtraction-classified error; a failed
// tag read does not prevent the stream-property read, and vice versa.
func (e *TagExtractor) Extract(ctx context.Context, path string) (Fields, error) {
	fields := Fields{Format: FormatFromPath(path)}

	if err := ctx.Err(); err != nil {
		return fields, err
	}

	f, err := os.Open(path)
	if err != nil {
		return fields, services.Wrap(services.ErrExtraction, "metadata", "open file", "Unable to open file for tag reading", err)
	}
	defer f.Close()

	var extractErr error
	meta, err := tag.ReadFrom(f)
	if err != nil {
		e.logger.Debug("tag read failed", logging.String(logging.FieldPath, path), logging.Error(err))
		extractErr = services.Wrap(services.ErrExtraction, "metadata", "read tags", "Unable to parse tags", err)
	} else {
		fields.Title = strings.TrimSpace(meta.Title())
		fields.Artist = strings.TrimSpace(meta.Artist())
		fields.Album = strings.TrimSpace(meta.Album())
		fields.AlbumArtist = strings.TrimSpace(meta.AlbumArtist())
		fields.Genre = strings.TrimSpace(meta.Genre())
		fields.Year = meta.Year()
		fields.TrackNumber, _ = meta.Track()
		fields.DiscNumber, _ = meta.Disc()
		if ft := string(meta.FileType()); ft != "" && ft != string(tag.UnknownFileType) {
			fields.Format = strings.ToLower(ft)
		}
	}

	e.readStreamProperties(path, &fields)
	return fields, extractErr
}

// FormatFromPath derives the container format from the file extension.
func FormatFromPath(path string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
}
