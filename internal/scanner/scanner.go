package scanner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"crate/internal/analysis"
	"crate/internal/catalog"
	"crate/internal/config"
	"crate/internal/fingerprint"
	"crate/internal/kvstore"
	"crate/internal/logging"
	"crate/internal/metadata"
	"crate/internal/services"
)

// ErrDeletionGuard is returned when a scan would delete more than the
// configured fraction of the entries under the scanned root. It usually
// means the root's mount is gone rather than the music.
var ErrDeletionGuard = errors.New("deletion guard triggered")

// Supported audio file extensions, matched case-insensitively.
var supportedExtensions = map[string]struct{}{
	".mp3": {}, ".flac": {}, ".m4a": {}, ".aac": {},
	".ogg": {}, ".wav": {}, ".aiff": {}, ".aif": {},
}

// Result aggregates the counts of one reconciliation pass.
type Result struct {
	Total     int `json:"total"`
	New       int `json:"new"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
	Deleted   int `json:"deleted"`
	Queued    int `json:"queued"`
}

// Scanner drives library reconciliation. At most one scan per root runs at
// a time, enforced in-process and across processes via a lock file.
type Scanner struct {
	cfg       *config.Config
	store     *catalog.Store
	extractor metadata.Extractor
	queue     analysis.Queue
	progress  kvstore.Store
	logger    *slog.Logger

	mu     sync.Mutex
	active map[string]struct{}
}

// New constructs the scanner with default collaborators. Progress goes to
// the catalog's persistent key-value state so other commands can observe a
// running scan.
func New(cfg *config.Config, store *catalog.Store, logger *slog.Logger) *Scanner {
	return NewWithDependencies(
		cfg,
		store,
		logger,
		metadata.NewExtractor(logger),
		analysis.NewMemoryQueue(cfg.Analysis.QueueSize),
		store.KV(),
	)
}

// NewWithDependencies allows injecting collaborators (used in tests).
func NewWithDependencies(
	cfg *config.Config,
	store *catalog.Store,
	logger *slog.Logger,
	extractor metadata.Extractor,
	queue analysis.Queue,
	progress kvstore.Store,
) *Scanner {
	return &Scanner{
		cfg:       cfg,
		store:     store,
		extractor: extractor,
		queue:     queue,
		progress:  progress,
		logger:    logging.NewComponentLogger(logger, "scanner"),
		active:    make(map[string]struct{}),
	}
}

type outcomeKind int

const (
	outcomeUnchanged outcomeKind = iota
	outcomeNew
	outcomeUpdated
	outcomeSkipped
)

type fileOutcome struct {
	path    string
	kind    outcomeKind
	fp      string
	modTime time.Time
	fields  metadata.Fields
	entry   *catalog.Entry
}

// Scan reconciles root against the catalog. A full scan re-extracts
// metadata for every file even when its fingerprint is unchanged. Files are
// processed in sorted path order so counts and side effects are
// reproducible for identical filesystem state.
func (s *Scanner) Scan(ctx context.Context, root string, full bool) (*Result, error) {
	expanded, err := config.ExpandPath(root)
	if err != nil {
		return nil, services.Wrap(services.ErrPath, "scanner", "resolve root", "Unable to resolve library root", err)
	}
	root = expanded

	info, err := os.Stat(root)
	if err != nil {
		return nil, services.Wrap(services.ErrPath, "scanner", "stat root", fmt.Sprintf("Library root %s is not accessible", root), err)
	}
	if !info.IsDir() {
		return nil, services.Wrap(services.ErrPath, "scanner", "stat root", fmt.Sprintf("Library root %s is not a directory", root), nil)
	}

	release, err := s.acquireRoot(root)
	if err != nil {
		return nil, err
	}
	defer release()

	start := time.Now()
	s.logger.Info("starting scan", logging.String(logging.FieldRoot, root), logging.Bool("full", full))
	s.publishProgress(ctx, root, "walking", 0, 0)

	entries, err := s.store.List(ctx)
	if err != nil {
		return nil, services.Wrap(services.ErrPersistence, "scanner", "load catalog", "Unable to load catalog entries", err)
	}
	byPath := make(map[string]*catalog.Entry, len(entries))
	for _, entry := range entries {
		byPath[entry.Path] = entry
	}

	discovered, err := s.walk(ctx, root)
	if err != nil {
		return nil, err
	}

	s.publishProgress(ctx, root, "processing", 0, len(discovered))
	outcomes, err := s.processFiles(ctx, root, discovered, byPath, full)
	if err != nil {
		return nil, err
	}

	result := &Result{Total: len(discovered)}
	discoveredSet := make(map[string]struct{}, len(discovered))
	for _, path := range discovered {
		discoveredSet[path] = struct{}{}
	}
	missing, purged, err := s.planDeletions(entries, discoveredSet, root)
	if err != nil {
		return nil, err
	}

	var queueIDs []string
	err = s.store.WithTx(ctx, func(tx *catalog.Tx) error {
		for i := range outcomes {
			outcome := &outcomes[i]
			switch outcome.kind {
			case outcomeNew:
				entry := entryFromFields(outcome)
				if err := tx.Insert(ctx, entry); err != nil {
					return err
				}
				queueIDs = append(queueIDs, entry.ID)
				result.New++
			case outcomeUpdated:
				applyFields(outcome.entry, outcome)
				if err := tx.Update(ctx, outcome.entry); err != nil {
					return err
				}
				queueIDs = append(queueIDs, outcome.entry.ID)
				result.Updated++
			case outcomeUnchanged:
				result.Unchanged++
			case outcomeSkipped:
				// unreadable file, already logged
			}
		}
		now := time.Now().UTC()
		for _, entry := range missing {
			entry.Status = catalog.StatusMissing
			entry.MissingSince = &now
			if err := tx.Update(ctx, entry); err != nil {
				return err
			}
			result.Deleted++
		}
		for _, entry := range purged {
			if err := tx.Delete(ctx, entry.ID); err != nil {
				return err
			}
			result.Deleted++
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, services.Wrap(services.ErrPersistence, "scanner", "commit scan", "Unable to commit scan transaction", err)
	}

	for _, id := range queueIDs {
		if err := s.queue.Enqueue(ctx, id); err != nil {
			s.logger.Warn("analysis enqueue failed", logging.String(logging.FieldEntryID, id), logging.Error(err))
			continue
		}
		result.Queued++
	}

	s.publishProgress(ctx, root, "done", result.Total, result.Total)
	s.logger.Info(
		"scan completed",
		logging.String(logging.FieldRoot, root),
		logging.Int("total", result.Total),
		logging.Int("new", result.New),
		logging.Int("updated", result.Updated),
		logging.Int("unchanged", result.Unchanged),
		logging.Int("deleted", result.Deleted),
		logging.Int("queued", result.Queued),
		logging.Duration("elapsed", time.Since(start)),
	)
	return result, nil
}

func (s *Scanner) walk(ctx context.Context, root string) ([]string, error) {
	var discovered []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			s.logger.Warn("walk error", logging.String(logging.FieldPath, path), logging.Error(err))
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if _, ok := supportedExtensions[ext]; !ok {
			return nil
		}
		discovered = append(discovered, path)
		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, services.Wrap(services.ErrPath, "scanner", "walk root", "Directory walk failed", err)
	}
	sort.Strings(discovered)
	return discovered, nil
}

// processFiles fingerprints and, where needed, extracts metadata over a
// bounded worker pool. The returned outcomes preserve the sorted path
// order of the input.
func (s *Scanner) processFiles(
	ctx context.Context,
	root string,
	discovered []string,
	byPath map[string]*catalog.Entry,
	full bool,
) ([]fileOutcome, error) {
	workers := s.cfg.Scan.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	outcomes := make([]fileOutcome, len(discovered))
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for i, path := range discovered {
		if err := ctx.Err(); err != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int, path string) {
			defer wg.Done()
			defer func() { <-sem }()
			outcomes[idx] = s.processFile(ctx, path, byPath[path], full)
			if idx%100 == 0 {
				s.publishProgress(ctx, root, "processing", idx, len(discovered))
			}
		}(i, path)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

func (s *Scanner) processFile(ctx context.Context, path string, entry *catalog.Entry, full bool) fileOutcome {
	outcome := fileOutcome{path: path, entry: entry, kind: outcomeSkipped}

	// An entry the user marked for deletion is purged by this scan even
	// though its file is still present; touching it here would undo the
	// mark.
	if entry != nil && entry.Status == catalog.StatusPendingDeletion {
		return outcome
	}

	info, err := os.Stat(path)
	if err != nil {
		s.logger.Warn("stat failed, skipping file", logging.String(logging.FieldPath, path), logging.Error(err))
		return outcome
	}
	outcome.modTime = info.ModTime().UTC()

	fp, err := fingerprint.File(path)
	if err != nil {
		s.logger.Warn("fingerprint failed, skipping file", logging.String(logging.FieldPath, path), logging.Error(err))
		return outcome
	}
	outcome.fp = fp

	switch {
	case entry == nil:
		outcome.kind = outcomeNew
	case full, fp != entry.Fingerprint, entry.Status == catalog.StatusMissing:
		outcome.kind = outcomeUpdated
	default:
		outcome.kind = outcomeUnchanged
		return outcome
	}

	fields, err := s.extractor.Extract(ctx, path)
	if err != nil {
		if services.Recoverable(err) {
			// Keep whatever fields were obtainable.
			s.logger.Warn("metadata extraction failed", logging.String(logging.FieldPath, path), logging.Error(err))
		} else {
			s.logger.Warn("metadata extraction aborted", logging.String(logging.FieldPath, path), logging.Error(err))
		}
	}
	outcome.fields = fields
	return outcome
}

// planDeletions computes the entries under root that this scan no longer
// observed, plus every entry marked pending_deletion whether its file is
// present or not. Entries outside the scanned root are never touched; that
// path-prefix scoping is what keeps a scan of one root from wiping the
// rest of the library. With a missing grace configured, active entries are
// first parked in status missing and only purged after the grace expires.
func (s *Scanner) planDeletions(
	entries []*catalog.Entry,
	discovered map[string]struct{},
	root string,
) (missing, purged []*catalog.Entry, err error) {
	prefix := strings.TrimSuffix(root, string(os.PathSeparator)) + string(os.PathSeparator)

	var underRoot int
	var vanished []*catalog.Entry
	for _, entry := range entries {
		if !strings.HasPrefix(entry.Path, prefix) {
			continue
		}
		if entry.Status == catalog.StatusPendingDeletion {
			purged = append(purged, entry)
			continue
		}
		underRoot++
		if _, found := discovered[entry.Path]; found {
			continue
		}
		vanished = append(vanished, entry)
	}

	if guard := s.cfg.Scan.MaxDeletedFraction; guard < 1.0 && underRoot > 0 {
		fraction := float64(len(vanished)) / float64(underRoot)
		if fraction > guard {
			return nil, nil, services.Wrap(
				services.ErrValidation,
				"scanner",
				"deletion guard",
				fmt.Sprintf("Scan would remove %d of %d entries under %s; refusing (max_deleted_fraction=%.2f)", len(vanished), underRoot, root, guard),
				ErrDeletionGuard,
			)
		}
	}

	grace := time.Duration(s.cfg.Scan.MissingGraceHours) * time.Hour
	now := time.Now().UTC()
	for _, entry := range vanished {
		if grace <= 0 {
			purged = append(purged, entry)
			continue
		}
		switch entry.Status {
		case catalog.StatusActive:
			missing = append(missing, entry)
		case catalog.StatusMissing:
			if entry.MissingSince != nil && now.Sub(*entry.MissingSince) >= grace {
				purged = append(purged, entry)
			}
		default:
			purged = append(purged, entry)
		}
	}
	return missing, purged, nil
}

func entryFromFields(outcome *fileOutcome) *catalog.Entry {
	entry := &catalog.Entry{
		Path:        outcome.path,
		Fingerprint: outcome.fp,
		ModTime:     outcome.modTime,
		Status:      catalog.StatusActive,
	}
	setFields(entry, outcome.fields)
	return entry
}

func applyFields(entry *catalog.Entry, outcome *fileOutcome) {
	entry.Fingerprint = outcome.fp
	entry.ModTime = outcome.modTime
	entry.Status = catalog.StatusActive
	entry.MissingSince = nil
	// Force downstream re-analysis of the changed audio.
	entry.AnalysisVersion = 0
	entry.AnalyzedAt = nil
	setFields(entry, outcome.fields)
}

func setFields(entry *catalog.Entry, fields metadata.Fields) {
	entry.Title = fields.Title
	entry.Artist = fields.Artist
	entry.Album = fields.Album
	entry.AlbumArtist = fields.AlbumArtist
	entry.TrackNumber = fields.TrackNumber
	entry.DiscNumber = fields.DiscNumber
	entry.Year = fields.Year
	entry.Genre = fields.Genre
	entry.DurationSeconds = fields.DurationSeconds
	entry.SampleRateHz = fields.SampleRateHz
	entry.BitDepth = fields.BitDepth
	entry.BitrateKbps = fields.BitrateKbps
	entry.BitrateMode = fields.BitrateMode
	entry.Format = fields.Format
}
