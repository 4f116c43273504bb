package daemon

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// lockStaleAfter is how long an unreleased startup lock sits before a
// waiter is allowed to break it (spec.md §4.4, §5).
const lockStaleAfter = time.Second

// Lock is the mkdir-based advisory lock arbitrating daemon startup and
// restart. Grounded on the original's startup_lock.rs, itself a hand-rolled
// mkdir lock rather than a library — no advisory-lock crate or Go package
// appears anywhere in the example pack, so this keeps the same approach.
type Lock struct {
	path string
}

// LockPath returns the startup lock path for a socket directory.
func LockPath(socketDir string) string {
	return filepath.Join(socketDir, "daemon.lock")
}

// AcquireLock blocks until it holds the lock, breaking it if it has sat
// unclaimed for more than lockStaleAfter.
func AcquireLock(socketDir string) (*Lock, error) {
	path := LockPath(socketDir)
	if err := os.MkdirAll(socketDir, 0o755); err != nil {
		return nil, fmt.Errorf("daemon: creating socket directory: %w", err)
	}

	var takenAt time.Time
	for {
		err := os.Mkdir(path, 0o755)
		if err == nil {
			return &Lock{path: path}, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("daemon: acquiring startup lock: %w", err)
		}

		info, statErr := os.Stat(path)
		if statErr != nil {
			continue // lock vanished between Mkdir and Stat; retry immediately
		}

		switch {
		case takenAt.IsZero():
			takenAt = info.ModTime()
		case time.Since(takenAt) > lockStaleAfter:
			_ = os.RemoveAll(path)
			takenAt = time.Time{}
			continue
		}

		time.Sleep(10 * time.Microsecond)
	}
}

// Release drops the lock.
func (l *Lock) Release() error {
	return os.RemoveAll(l.path)
}
