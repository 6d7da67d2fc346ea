//go:build unix

package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockFileContention(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db-lock-hack")

	l, err := LockFile(path, 0o600, 0)
	require.NoError(t, err)

	// flock conflicts between separate open file descriptions, even in one
	// process.
	_, err = LockFile(path, 0o600, 20*time.Millisecond)
	assert.ErrorIs(t, err, ErrLocked)

	require.NoError(t, l.Release())

	l2, err := LockFile(path, 0o600, 20*time.Millisecond)
	require.NoError(t, err)
	require.NoError(t, l2.Release())
}
