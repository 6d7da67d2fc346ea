// Package storetest provides a conformance suite for store backends.
package storetest

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/hcache/store"
)

// Run checks that b honors the store contract. Each subtest opens a fresh
// database under t.TempDir() with opts.
func Run(t *testing.T, b store.Backend, opts store.Options) {
	t.Helper()

	newPath := func(t *testing.T) string {
		return filepath.Join(t.TempDir(), "cache.db")
	}

	open := func(t *testing.T, path string) store.Store {
		t.Helper()
		s, err := b.Open(path, opts)
		require.NoError(t, err)
		return s
	}

	t.Run("Name", func(t *testing.T) {
		assert.NotEmpty(t, b.Name())
		assert.NotEmpty(t, b.Version())
	})

	t.Run("Miss", func(t *testing.T) {
		s := open(t, newPath(t))
		defer s.Close()

		_, err := s.Fetch([]byte("missing"))
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("Upsert", func(t *testing.T) {
		s := open(t, newPath(t))
		defer s.Close()

		k := []byte("k")
		require.NoError(t, s.Store(k, []byte("v1")))
		require.NoError(t, s.Store(k, []byte("v2")))

		got, err := s.Fetch(k)
		require.NoError(t, err)
		assert.Equal(t, []byte("v2"), got)
	})

	t.Run("Delete", func(t *testing.T) {
		s := open(t, newPath(t))
		defer s.Close()

		k := []byte("k")
		require.NoError(t, s.Store(k, []byte("v")))
		require.NoError(t, s.Delete(k))

		_, err := s.Fetch(k)
		assert.ErrorIs(t, err, store.ErrNotFound)

		// Deleting again, and deleting a key never stored, succeeds.
		assert.NoError(t, s.Delete(k))
		assert.NoError(t, s.Delete([]byte("never")))
	})

	t.Run("BinaryKeysAndValues", func(t *testing.T) {
		s := open(t, newPath(t))
		defer s.Close()

		keys := [][]byte{
			{0x00},
			{0x00, 0x01},
			{0xFF, 0x00, 0xFE},
			[]byte("folder/1-zstd"),
		}
		for i, k := range keys {
			require.NoError(t, s.Store(k, []byte{byte(i), 0x00, 0xFF}))
		}
		for i, k := range keys {
			got, err := s.Fetch(k)
			require.NoError(t, err, "key %x", k)
			assert.Equal(t, []byte{byte(i), 0x00, 0xFF}, got, "key %x", k)
		}
	})

	t.Run("ManyKeys", func(t *testing.T) {
		s := open(t, newPath(t))
		defer s.Close()

		for i := 0; i < 500; i++ {
			require.NoError(t, s.Store([]byte(fmt.Sprintf("key-%d", i)), []byte(fmt.Sprintf("value-%d", i))))
		}
		for i := 0; i < 500; i++ {
			got, err := s.Fetch([]byte(fmt.Sprintf("key-%d", i)))
			require.NoError(t, err)
			assert.Equal(t, fmt.Sprintf("value-%d", i), string(got))
		}
	})

	t.Run("LargeValue", func(t *testing.T) {
		s := open(t, newPath(t))
		defer s.Close()

		v := bytes.Repeat([]byte("0123456789abcdef"), 64<<10)
		require.NoError(t, s.Store([]byte("big"), v))

		got, err := s.Fetch([]byte("big"))
		require.NoError(t, err)
		assert.True(t, bytes.Equal(v, got))
	})

	t.Run("Persistence", func(t *testing.T) {
		path := newPath(t)

		s := open(t, path)
		require.NoError(t, s.Store([]byte("a"), []byte("1")))
		require.NoError(t, s.Store([]byte("b"), []byte("2")))
		require.NoError(t, s.Delete([]byte("b")))
		require.NoError(t, s.Close())

		s = open(t, path)
		defer s.Close()

		got, err := s.Fetch([]byte("a"))
		require.NoError(t, err)
		assert.Equal(t, []byte("1"), got)

		_, err = s.Fetch([]byte("b"))
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("Remove", func(t *testing.T) {
		path := newPath(t)

		s := open(t, path)
		require.NoError(t, s.Store([]byte("a"), []byte("1")))
		require.NoError(t, s.Close())

		require.NoError(t, store.Remove(b, path))

		s = open(t, path)
		defer s.Close()
		_, err := s.Fetch([]byte("a"))
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("Closed", func(t *testing.T) {
		s := open(t, newPath(t))
		require.NoError(t, s.Close())
		assert.NoError(t, s.Close())

		_, err := s.Fetch([]byte("a"))
		assert.True(t, errors.Is(err, store.ErrClosed), "fetch after close: %v", err)
		assert.ErrorIs(t, s.Store([]byte("a"), []byte("1")), store.ErrClosed)
		assert.ErrorIs(t, s.Delete([]byte("a")), store.ErrClosed)
	})
}
