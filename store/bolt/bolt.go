// Package bolt registers the "bolt" store backend, a single-file B+tree
// database built on bbolt.
//
// While a database is open, a sidecar file "<path>-lock-hack" is held
// under an exclusive flock, so cooperating processes take turns on one
// cache file. Handles within one process share a single environment per
// file and may be open at the same time.
package bolt

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	bolt "go.etcd.io/bbolt"

	"github.com/hupe1980/hcache/store"
)

// LockSuffix is appended to the database path to name the lock file.
const LockSuffix = "-lock-hack"

var bucket = []byte("hcache")

func init() {
	store.Register(Backend{})
}

// env is a database opened once per process and shared by its handles.
type env struct {
	key  string
	db   *bolt.DB
	lock *store.Lock
	refs int
}

var (
	envsMu sync.Mutex
	envs   = map[string]*env{}
)

// Backend opens bbolt databases.
type Backend struct{}

// Name implements store.Backend.
func (Backend) Name() string { return "bolt" }

// Version implements store.Backend.
func (Backend) Version() string { return "go.etcd.io/bbolt" }

// Open implements store.Backend. A database already open in this process
// is shared. Otherwise the sidecar lock and then the database are
// acquired, each waiting at most opts.LockTimeout; resources acquired
// before a failure are released in reverse order.
func (Backend) Open(path string, opts store.Options) (store.Store, error) {
	opts = opts.WithDefaults()

	key, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("bolt: %w", err)
	}

	envsMu.Lock()
	defer envsMu.Unlock()

	if e, ok := envs[key]; ok {
		e.refs++
		opts.Logger.Debug("bolt: shared", "path", path, "refs", e.refs)
		return &boltStore{env: e}, nil
	}

	if opts.MustExist {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("bolt: %w", err)
		}
	}

	lock, err := store.LockFile(path+LockSuffix, opts.Mode, opts.LockTimeout)
	if err != nil {
		return nil, fmt.Errorf("bolt: %s: %w", path, err)
	}

	db, err := bolt.Open(path, opts.Mode, &bolt.Options{
		PageSize:       opts.PageSize,
		NoFreelistSync: true,
		Timeout:        opts.LockTimeout,
	})
	if errors.Is(err, bolt.ErrTimeout) {
		err = store.ErrLocked
	}
	if err != nil {
		_ = lock.Release()
		return nil, fmt.Errorf("bolt: open %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		_ = lock.Release()
		return nil, fmt.Errorf("bolt: create bucket in %s: %w", path, err)
	}

	e := &env{key: key, db: db, lock: lock, refs: 1}
	envs[key] = e

	opts.Logger.Debug("bolt: opened", "path", path, "page_size", opts.PageSize)
	return &boltStore{env: e}, nil
}

// release drops one reference; the last one closes the database and
// frees the lock.
func (e *env) release() error {
	envsMu.Lock()
	defer envsMu.Unlock()

	e.refs--
	if e.refs > 0 {
		return nil
	}
	delete(envs, e.key)
	dbErr := e.db.Close()
	lockErr := e.lock.Release()
	return errors.Join(dbErr, lockErr)
}

type boltStore struct {
	env *env
	buf []byte
}

func (s *boltStore) Fetch(key []byte) ([]byte, error) {
	if s.env == nil {
		return nil, store.ErrClosed
	}
	found := false
	err := s.env.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucket).Get(key)
		if v == nil {
			return nil
		}
		found = true
		// bbolt memory is only valid inside the transaction.
		s.buf = append(s.buf[:0], v...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("bolt: fetch: %w", err)
	}
	if !found {
		return nil, store.ErrNotFound
	}
	return s.buf, nil
}

func (s *boltStore) Store(key, value []byte) error {
	if s.env == nil {
		return store.ErrClosed
	}
	err := s.env.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Put(key, value)
	})
	if err != nil {
		return fmt.Errorf("bolt: store: %w", err)
	}
	return nil
}

func (s *boltStore) Delete(key []byte) error {
	if s.env == nil {
		return store.ErrClosed
	}
	err := s.env.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Delete(key)
	})
	if err != nil {
		return fmt.Errorf("bolt: delete: %w", err)
	}
	return nil
}

func (s *boltStore) Close() error {
	if s.env == nil {
		return nil
	}
	err := s.env.release()
	s.env = nil
	s.buf = nil
	return err
}
