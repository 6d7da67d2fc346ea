//go:build !unix

package store

import (
	"errors"
	"fmt"
	"os"
	"time"
)

// ErrLocked is returned when a lock cannot be taken within its timeout.
var ErrLocked = errors.New("store: database is locked")

// Lock is the sidecar file. This platform has no advisory locking, so
// only the file itself is managed.
type Lock struct {
	f    *os.File
	path string
}

// LockFile creates path. The timeout is ignored on this platform.
func LockFile(path string, mode os.FileMode, _ time.Duration) (*Lock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, mode)
	if err != nil {
		return nil, fmt.Errorf("store: open lock file: %w", err)
	}
	return &Lock{f: f, path: path}, nil
}

// Release closes and removes the lock file. It is idempotent.
func (l *Lock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	closeErr := l.f.Close()
	l.f = nil
	removeErr := os.Remove(l.path)
	if errors.Is(removeErr, os.ErrNotExist) {
		removeErr = nil
	}
	return errors.Join(closeErr, removeErr)
}
