package scanner

import (
	"context"
	"encoding/json"
	"time"

	"crate/internal/logging"
)

// Progress is the snapshot a running scan publishes under "scan:<root>".
type Progress struct {
	Root      string    `json:"root"`
	Phase     string    `json:"phase"`
	Scanned   int       `json:"scanned"`
	Total     int       `json:"total"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProgressKey returns the key a scan of root publishes its progress under.
func ProgressKey(root string) string {
	return "scan:" + root
}

func (s *Scanner) publishProgress(ctx context.Context, root, phase string, scanned, total int) {
	snapshot := Progress{
		Root:      root,
		Phase:     phase,
		Scanned:   scanned,
		Total:     total,
		UpdatedAt: time.Now().UTC(),
	}
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return
	}
	if err := s.progress.Put(ctx, ProgressKey(root), payload); err != nil {
		s.logger.Debug("progress publish failed", logging.String(logging.FieldRoot, root), logging.Error(err))
	}
}
