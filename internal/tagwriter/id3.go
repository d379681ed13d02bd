package tagwriter

import (
	"github.com/bogem/id3v2/v2"

	"crate/internal/logging"
	"crate/internal/services"
)

func (w *FileWriter) writeID3(path string, updates map[string]string, overwrite bool) error {
	updates, err := sanitize(updates)
	if err != nil {
		return err
	}

	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return services.Wrap(services.ErrTagWrite, "tagwriter", "open id3", "Unable to open ID3 tag", err)
	}
	defer tag.Close()

	for key, value := range updates {
		frameID := id3FrameID(key)
		if !overwrite && tag.GetTextFrame(frameID).Text != "" {
			continue
		}
		tag.AddTextFrame(frameID, tag.DefaultEncoding(), value)
	}

	if err := tag.Save(); err != nil {
		return services.Wrap(services.ErrTagWrite, "tagwriter", "save id3", "Unable to save ID3 tag", err)
	}
	w.logger.Debug("wrote id3 tags", logging.String(logging.FieldPath, path), logging.Int("fields", len(updates)))
	return nil
}

func id3FrameID(key string) string {
	switch key {
	case KeyTitle:
		return "TIT2"
	case KeyArtist:
		return "TPE1"
	case KeyAlbum:
		return "TALB"
	case KeyAlbumArtist:
		return "TPE2"
	case KeyGenre:
		return "TCON"
	case KeyYear:
		return "TDRC"
	case KeyTrackNumber:
		return "TRCK"
	case KeyDiscNumber:
		return "TPOS"
	default:
		return ""
	}
}
