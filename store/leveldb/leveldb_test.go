package leveldb

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/hcache/store"
	"github.com/hupe1980/hcache/store/storetest"
)

func TestConformance(t *testing.T) {
	storetest.Run(t, Backend{}, store.Options{})
}

func TestConformanceSnappy(t *testing.T) {
	storetest.Run(t, Backend{}, store.Options{Compress: true, PageSize: 4096})
}

func TestDirectoryLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")

	s, err := Backend{}.Open(path, store.Options{})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	assert.DirExists(t, path+DirSuffix)
	assert.NoFileExists(t, path)
	assert.NoDirExists(t, path)
}

func TestMustExist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")

	_, err := Backend{}.Open(path, store.Options{MustExist: true})
	assert.Error(t, err)
}

func TestConcurrentOpenFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")

	s, err := Backend{}.Open(path, store.Options{})
	require.NoError(t, err)
	require.NoError(t, s.Store([]byte("k"), []byte("v")))
	defer s.Close()

	// The first handle holds the LOCK file; neither the read-write open
	// nor the read-only retry can take it.
	_, err = Backend{}.Open(path, store.Options{})
	assert.Error(t, err)
}
