// Package leveldb registers the "leveldb" store backend built on goleveldb.
//
// goleveldb keeps a directory of table files. The directory is placed at
// "<path>.ldb" so the resolved cache path itself never turns into a
// directory.
package leveldb

import (
	"errors"
	"fmt"
	"os"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"

	"github.com/hupe1980/hcache/store"
)

// DirSuffix is appended to the database path to name the table directory.
const DirSuffix = ".ldb"

func init() {
	store.Register(Backend{})
}

// Backend opens goleveldb databases.
type Backend struct{}

// Name implements store.Backend.
func (Backend) Name() string { return "leveldb" }

// Version implements store.Backend.
func (Backend) Version() string { return "github.com/syndtr/goleveldb" }

// Remove implements store.Remover.
func (Backend) Remove(path string) error {
	return os.RemoveAll(path + DirSuffix)
}

// Open implements store.Backend. The database is opened read-write with
// creation; if that fails, a read-only open of an existing database is
// attempted before giving up.
func (Backend) Open(path string, opts store.Options) (store.Store, error) {
	opts = opts.WithDefaults()
	dir := path + DirSuffix

	o := &opt.Options{
		BlockSize:      opts.PageSize,
		Compression:    opt.NoCompression,
		ErrorIfMissing: opts.MustExist,
	}
	if opts.Compress {
		o.Compression = opt.SnappyCompression
	}

	db, err := leveldb.OpenFile(dir, o)
	if err != nil {
		opts.Logger.Debug("leveldb: read-write open failed, trying read-only", "path", dir, "error", err)

		ro := *o
		ro.ReadOnly = true
		ro.ErrorIfMissing = true
		var roErr error
		db, roErr = leveldb.OpenFile(dir, &ro)
		if roErr != nil {
			return nil, fmt.Errorf("leveldb: open %s: %w", dir, err)
		}
	}

	opts.Logger.Debug("leveldb: opened", "path", dir, "block_size", opts.PageSize, "snappy", opts.Compress)
	return &levelStore{db: db}, nil
}

type levelStore struct {
	db *leveldb.DB
}

func (s *levelStore) Fetch(key []byte) ([]byte, error) {
	if s.db == nil {
		return nil, store.ErrClosed
	}
	v, err := s.db.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("leveldb: fetch: %w", err)
	}
	return v, nil
}

func (s *levelStore) Store(key, value []byte) error {
	if s.db == nil {
		return store.ErrClosed
	}
	if err := s.db.Put(key, value, nil); err != nil {
		return fmt.Errorf("leveldb: store: %w", err)
	}
	return nil
}

func (s *levelStore) Delete(key []byte) error {
	if s.db == nil {
		return store.ErrClosed
	}
	if err := s.db.Delete(key, nil); err != nil {
		return fmt.Errorf("leveldb: delete: %w", err)
	}
	return nil
}

func (s *levelStore) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
