package scanner

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"crate/internal/services"
)

// acquireRoot takes the per-root scan guard: an in-process registry plus a
// lock file so concurrent processes cannot scan the same root either. The
// returned release function must be called exactly once.
func (s *Scanner) acquireRoot(root string) (func(), error) {
	s.mu.Lock()
	if _, busy := s.active[root]; busy {
		s.mu.Unlock()
		return nil, services.Wrap(services.ErrLocked, "scanner", "acquire root", fmt.Sprintf("A scan of %s is already running", root), nil)
	}
	s.active[root] = struct{}{}
	s.mu.Unlock()

	if err := os.MkdirAll(s.cfg.Paths.LockDir, 0o755); err != nil {
		s.releaseInProcess(root)
		return nil, services.Wrap(services.ErrLocked, "scanner", "acquire root", "Unable to create lock directory", err)
	}
	lock := flock.New(s.lockPath(root))
	locked, err := lock.TryLock()
	if err != nil {
		s.releaseInProcess(root)
		return nil, services.Wrap(services.ErrLocked, "scanner", "acquire root", fmt.Sprintf("Unable to take the scan lock for %s", root), err)
	}
	if !locked {
		s.releaseInProcess(root)
		return nil, services.Wrap(services.ErrLocked, "scanner", "acquire root", fmt.Sprintf("A scan of %s is already running in another process", root), nil)
	}

	return func() {
		_ = lock.Unlock()
		s.releaseInProcess(root)
	}, nil
}

func (s *Scanner) releaseInProcess(root string) {
	s.mu.Lock()
	delete(s.active, root)
	s.mu.Unlock()
}

// lockPath hashes the root so lock file names stay flat and filesystem-safe.
func (s *Scanner) lockPath(root string) string {
	sum := sha256.Sum256([]byte(root))
	return filepath.Join(s.cfg.Paths.LockDir, "scan-"+hex.EncodeToString(sum[:8])+".lock")
}
