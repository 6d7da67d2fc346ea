//go:build unix

package store

import (
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// ErrLocked is returned when a lock cannot be taken within its timeout.
var ErrLocked = errors.New("store: database is locked")

// Lock is an exclusive advisory lock on a sidecar file.
type Lock struct {
	f    *os.File
	path string
}

// LockFile creates path if needed and locks it exclusively. A zero timeout
// blocks until the lock is free; otherwise LockFile polls until the timeout
// expires and returns ErrLocked.
func LockFile(path string, mode os.FileMode, timeout time.Duration) (*Lock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, mode)
	if err != nil {
		return nil, fmt.Errorf("store: open lock file: %w", err)
	}
	fd := int(f.Fd())

	if timeout <= 0 {
		err = flockRetryEINTR(fd, unix.LOCK_EX)
	} else {
		err = flockPoll(fd, timeout)
	}
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &Lock{f: f, path: path}, nil
}

// Release unlocks, closes and removes the lock file. It is idempotent.
func (l *Lock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	unlockErr := flockRetryEINTR(int(l.f.Fd()), unix.LOCK_UN)
	closeErr := l.f.Close()
	l.f = nil
	removeErr := os.Remove(l.path)
	if errors.Is(removeErr, os.ErrNotExist) {
		removeErr = nil
	}
	return errors.Join(unlockErr, closeErr, removeErr)
}

func flockRetryEINTR(fd, how int) error {
	for {
		err := unix.Flock(fd, how)
		if !errors.Is(err, unix.EINTR) {
			return err
		}
	}
}

func flockPoll(fd int, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	backoff := time.Millisecond
	for {
		err := flockRetryEINTR(fd, unix.LOCK_EX|unix.LOCK_NB)
		if err == nil {
			return nil
		}
		if !errors.Is(err, unix.EWOULDBLOCK) {
			return fmt.Errorf("store: flock: %w", err)
		}
		if time.Now().After(deadline) {
			return ErrLocked
		}
		time.Sleep(backoff)
		backoff = min(backoff*2, 25*time.Millisecond)
	}
}
