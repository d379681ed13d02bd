package bulkedit

import (
	"fmt"
	"strconv"

	"crate/internal/services"
	"crate/internal/tagwriter"
)

// Mixed is the sentinel reported by CommonValues when the selected entries
// disagree on a field.
const Mixed = "mixed"

// numericFields must parse as non-negative integers.
var numericFields = map[string]struct{}{
	tagwriter.KeyYear:        {},
	tagwriter.KeyTrackNumber: {},
	tagwriter.KeyDiscNumber:  {},
}

var editableFields = map[string]struct{}{
	tagwriter.KeyTitle:       {},
	tagwriter.KeyArtist:      {},
	tagwriter.KeyAlbum:       {},
	tagwriter.KeyAlbumArtist: {},
	tagwriter.KeyGenre:       {},
	tagwriter.KeyYear:        {},
	tagwriter.KeyTrackNumber: {},
	tagwriter.KeyDiscNumber:  {},
}

// EditableFields returns the allow-listed field names in sorted order.
func EditableFields() []string {
	return []string{
		tagwriter.KeyAlbum,
		tagwriter.KeyAlbumArtist,
		tagwriter.KeyArtist,
		tagwriter.KeyDiscNumber,
		tagwriter.KeyGenre,
		tagwriter.KeyTitle,
		tagwriter.KeyTrackNumber,
		tagwriter.KeyYear,
	}
}

// FilterUpdates validates raw field updates against the allow-list and
// drops nil values, which callers use to express "leave this field alone".
// Unknown fields and malformed numeric values are rejected outright rather
// than partially applied.
func FilterUpdates(raw map[string]*string) (map[string]string, error) {
	updates := make(map[string]string, len(raw))
	for field, value := range raw {
		if value == nil {
			continue
		}
		if _, ok := editableFields[field]; !ok {
			return nil, services.Wrap(services.ErrValidation, "bulkedit", "validate updates", fmt.Sprintf("Field %q is not editable", field), nil)
		}
		if _, numeric := numericFields[field]; numeric && *value != "" {
			n, err := strconv.Atoi(*value)
			if err != nil || n < 0 {
				return nil, services.Wrap(services.ErrValidation, "bulkedit", "validate updates", fmt.Sprintf("Field %q requires a non-negative integer, got %q", field, *value), err)
			}
		}
		updates[field] = *value
	}
	return updates, nil
}
