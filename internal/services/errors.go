package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrPath marks an inaccessible or missing filesystem root. Fatal to
	// the operation that needed it; nothing is retried automatically.
	ErrPath = errors.New("path error")
	// ErrExtraction marks a per-file metadata read failure. Recoverable:
	// the entry is still created or updated with whatever was obtainable.
	ErrExtraction = errors.New("extraction failure")
	// ErrTagWrite marks a per-entry on-disk tag write failure. Isolated to
	// that entry and reported in the aggregate result.
	ErrTagWrite = errors.New("tag write failure")
	// ErrPersistence marks a transaction or commit failure. The whole
	// operation fails and in-memory state from the run is discarded.
	ErrPersistence = errors.New("persistence failure")
	ErrValidation  = errors.New("validation error")
	ErrNotFound    = errors.New("not found")
	// ErrLocked marks contention on a per-root scan lock.
	ErrLocked = errors.New("already locked")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification via errors.Is. The
// marker should be one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrPersistence
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Recoverable reports whether an error is local to a single file or entry
// and should be recorded in the aggregate result instead of aborting the
// whole operation.
func Recoverable(err error) bool {
	return errors.Is(err, ErrExtraction) || errors.Is(err, ErrTagWrite)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
