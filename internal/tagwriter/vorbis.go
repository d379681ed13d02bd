package tagwriter

import (
	"strings"

	"github.com/go-flac/flacvorbis"
	flac "github.com/go-flac/go-flac"

	"crate/internal/logging"
	"crate/internal/services"
)

func (w *FileWriter) writeVorbis(path string, updates map[string]string, overwrite bool) error {
	updates, err := sanitize(updates)
	if err != nil {
		return err
	}

	f, err := flac.ParseFile(path)
	if err != nil {
		return services.Wrap(services.ErrTagWrite, "tagwriter", "parse flac", "Unable to parse FLAC file", err)
	}

	existing := flacvorbis.New()
	blockIndex := -1
	for i, block := range f.Meta {
		if block.Type == flac.VorbisComment {
			parsed, parseErr := flacvorbis.ParseFromMetaDataBlock(*block)
			if parseErr != nil {
				return services.Wrap(services.ErrTagWrite, "tagwriter", "parse vorbis comment", "Corrupt Vorbis comment block", parseErr)
			}
			existing = parsed
			blockIndex = i
			break
		}
	}

	replaced := make(map[string]string, len(updates))
	for key, value := range updates {
		field := vorbisField(key)
		current, _ := existing.Get(field)
		if !overwrite && len(current) > 0 && strings.TrimSpace(current[0]) != "" {
			continue
		}
		replaced[field] = value
	}

	rebuilt := flacvorbis.New()
	rebuilt.Vendor = existing.Vendor
	for _, comment := range existing.Comments {
		field, _, found := strings.Cut(comment, "=")
		if found {
			if _, drop := replaced[strings.ToUpper(field)]; drop {
				continue
			}
		}
		rebuilt.Comments = append(rebuilt.Comments, comment)
	}
	for field, value := range replaced {
		if err := rebuilt.Add(field, value); err != nil {
			return services.Wrap(services.ErrTagWrite, "tagwriter", "add vorbis field", "Unable to add Vorbis comment", err)
		}
	}

	block := rebuilt.Marshal()
	if blockIndex >= 0 {
		f.Meta[blockIndex] = &block
	} else {
		f.Meta = append(f.Meta, &block)
	}

	if err := f.Save(path); err != nil {
		return services.Wrap(services.ErrTagWrite, "tagwriter", "save flac", "Unable to save FLAC file", err)
	}
	w.logger.Debug("wrote vorbis comments", logging.String(logging.FieldPath, path), logging.Int("fields", len(replaced)))
	return nil
}

func vorbisField(key string) string {
	switch key {
	case KeyTitle:
		return flacvorbis.FIELD_TITLE
	case KeyArtist:
		return flacvorbis.FIELD_ARTIST
	case KeyAlbum:
		return flacvorbis.FIELD_ALBUM
	case KeyAlbumArtist:
		return "ALBUMARTIST"
	case KeyGenre:
		return flacvorbis.FIELD_GENRE
	case KeyYear:
		return flacvorbis.FIELD_DATE
	case KeyTrackNumber:
		return flacvorbis.FIELD_TRACKNUMBER
	case KeyDiscNumber:
		return "DISCNUMBER"
	default:
		return strings.ToUpper(key)
	}
}
