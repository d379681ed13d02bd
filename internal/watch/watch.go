package watch

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"crate/internal/config"
	"crate/internal/logging"
	"crate/internal/scanner"
	"crate/internal/services"
)

// Rescanner triggers one reconciliation pass of a root.
type Rescanner interface {
	Scan(ctx context.Context, root string, full bool) (*scanner.Result, error)
}

// Watcher follows filesystem events under the library roots and schedules
// incremental scans after a quiet period.
type Watcher struct {
	cfg     *config.Config
	scanner Rescanner
	logger  *slog.Logger
}

// New constructs a watcher around the given rescanner.
func New(cfg *config.Config, scan Rescanner, logger *slog.Logger) *Watcher {
	return &Watcher{
		cfg:     cfg,
		scanner: scan,
		logger:  logging.NewComponentLogger(logger, "watch"),
	}
}

var watchedExtensions = map[string]struct{}{
	".mp3": {}, ".flac": {}, ".m4a": {}, ".aac": {},
	".ogg": {}, ".wav": {}, ".aiff": {}, ".aif": {},
}

// Run blocks watching roots until ctx is cancelled. Scans triggered by
// events are incremental; a root already being scanned elsewhere is simply
// skipped until its next event. Directories created while watching are
// picked up automatically.
func (w *Watcher) Run(ctx context.Context, roots []string) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return services.Wrap(services.ErrPath, "watch", "create watcher", "Unable to create filesystem watcher", err)
	}
	defer fsw.Close()

	for _, root := range roots {
		if err := w.addRecursive(fsw, root); err != nil {
			return err
		}
	}

	debounce := time.Duration(w.cfg.Scan.WatchDebounceMS) * time.Millisecond
	if debounce <= 0 {
		debounce = 2 * time.Second
	}
	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	dirty := make(map[string]struct{})

	w.logger.Info("watching library roots", logging.Int("roots", len(roots)), logging.Duration("debounce", debounce))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			root := rootFor(roots, event.Name)
			if root == "" {
				continue
			}
			if event.Op.Has(fsnotify.Create) {
				if info, statErr := os.Stat(event.Name); statErr == nil && info.IsDir() {
					if err := w.addRecursive(fsw, event.Name); err != nil {
						w.logger.Warn("watch add failed", logging.String(logging.FieldPath, event.Name), logging.Error(err))
					}
					dirty[root] = struct{}{}
					timer.Reset(debounce)
					continue
				}
			}
			ext := strings.ToLower(filepath.Ext(event.Name))
			if _, watched := watchedExtensions[ext]; !watched {
				continue
			}
			dirty[root] = struct{}{}
			timer.Reset(debounce)

		case watchErr, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", logging.Error(watchErr))

		case <-timer.C:
			for root := range dirty {
				w.rescan(ctx, root)
			}
			clear(dirty)
		}
	}
}

func (w *Watcher) rescan(ctx context.Context, root string) {
	result, err := w.scanner.Scan(ctx, root, false)
	switch {
	case err == nil:
		w.logger.Info(
			"watch scan completed",
			logging.String(logging.FieldRoot, root),
			logging.Int("new", result.New),
			logging.Int("updated", result.Updated),
			logging.Int("deleted", result.Deleted),
		)
	case errors.Is(err, services.ErrLocked):
		w.logger.Debug("scan already running", logging.String(logging.FieldRoot, root))
	case errors.Is(err, context.Canceled):
	default:
		w.logger.Error("watch scan failed", logging.String(logging.FieldRoot, root), logging.Error(err))
	}
}

func (w *Watcher) addRecursive(fsw *fsnotify.Watcher, root string) error {
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		return fsw.Add(path)
	})
	if err != nil {
		return services.Wrap(services.ErrPath, "watch", "watch root", "Unable to watch directory tree", err)
	}
	return nil
}

func rootFor(roots []string, path string) string {
	for _, root := range roots {
		prefix := strings.TrimSuffix(root, string(os.PathSeparator)) + string(os.PathSeparator)
		if path == root || strings.HasPrefix(path, prefix) {
			return root
		}
	}
	return ""
}
