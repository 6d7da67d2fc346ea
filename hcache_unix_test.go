//go:build unix

package hcache

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/hcache/store"
	"github.com/hupe1980/hcache/store/bolt"
)

func TestLockedDatabaseIsNotRemoved(t *testing.T) {
	file := filepath.Join(t.TempDir(), "headers")

	c, err := Open(file, "mbox", nil)
	require.NoError(t, err)
	require.NoError(t, c.Store([]byte("1"), sampleEmail("kept"), 1))
	require.NoError(t, c.Close())

	// Another process holding the database.
	l, err := store.LockFile(file+bolt.LockSuffix, 0o600, 0)
	require.NoError(t, err)

	_, err = Open(file, "mbox", nil, WithLockTimeout(30*time.Millisecond))
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrLocked)
	var oe *OpenError
	assert.ErrorAs(t, err, &oe)
	assert.FileExists(t, file)

	require.NoError(t, l.Release())

	c = openCache(t, file, "mbox")
	entry, err := c.Fetch([]byte("1"), 1)
	require.NoError(t, err)
	require.NotNil(t, entry.Email)
	assert.Equal(t, "kept", entry.Email.Env.Subject)
}
