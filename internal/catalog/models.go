package catalog

import (
	"fmt"
	"strings"
	"time"
)

// Status describes an entry's lifecycle state.
type Status string

const (
	// StatusActive marks an entry whose file was present at the last scan.
	StatusActive Status = "active"
	// StatusMissing marks an entry whose file was absent at the last scan
	// and is inside its missing grace window.
	StatusMissing Status = "missing"
	// StatusPendingDeletion marks an entry queued for explicit removal.
	StatusPendingDeletion Status = "pending_deletion"
)

var allStatuses = []Status{StatusActive, StatusMissing, StatusPendingDeletion}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// ParseStatus validates a raw status string.
func ParseStatus(value string) (Status, error) {
	status := Status(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := statusSet[status]; !ok {
		return "", fmt.Errorf("unknown status %q", value)
	}
	return status, nil
}

// Entry is one persisted track record. Path is unique across the catalog.
type Entry struct {
	ID          string
	Path        string
	Fingerprint string
	ModTime     time.Time

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

	Status       Status
	MissingSince *time.Time

	// AnalysisVersion counts forced re-analyses; the reconciler resets it
	// to zero when a file changes so downstream feature extraction reruns.
	AnalysisVersion int
	AnalyzedAt      *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Active reports whether the entry's file was present at the last scan.
func (e *Entry) Active() bool {
	return e.Status == StatusActive
}

// DisplayTitle falls back to the file name when the title tag is empty.
func (e *Entry) DisplayTitle() string {
	if title := strings.TrimSpace(e.Title); title != "" {
		return title
	}
	path := e.Path
	if idx := strings.LastIndexByte(path, '/'); idx >= 0 {
		path = path[idx+1:]
	}
	if idx := strings.LastIndexByte(path, '.'); idx > 0 {
		path = path[:idx]
	}
	return path
}
