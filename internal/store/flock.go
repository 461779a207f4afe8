package store

import (
	"errors"
	"fmt"
	"os"
	"syscall"
)

// fileLock is an exclusive advisory lock held on a sidecar file next to the
// database while migrations run.
type fileLock struct {
	f *os.File
}

func lockPath(dbPath string) string { return dbPath + ".migrate.lock" }

// acquireLock blocks until the lock for dbPath is held.
func acquireLock(dbPath string) (*fileLock, error) {
	path := lockPath(dbPath)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600) //nolint:gosec // G304: derived from the configured db path
	if err != nil {
		return nil, fmt.Errorf("open lock file %s: %w", path, err)
	}
	for {
		err = syscall.Flock(int(f.Fd()), syscall.LOCK_EX)
		if !errors.Is(err, syscall.EINTR) {
			break
		}
	}
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("acquire lock %s: %w", path, err)
	}
	return &fileLock{f: f}, nil
}

// release drops the lock. It is safe on a nil lock.
func (l *fileLock) release() {
	if l == nil {
		return
	}
	_ = syscall.Flock(int(l.f.Fd()), syscall.LOCK_UN)
	_ = l.f.Close()
}
