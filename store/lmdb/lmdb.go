// Package lmdb registers the "lmdb" store backend built on lmdb-go.
//
// The environment is a single file (NoSubdir) plus LMDB's "<path>-lock"
// file. One read transaction and one write transaction are reused
// lazily: a fetch renews or begins a read transaction unless a write
// transaction is already open; a store or delete aborts an outstanding
// read transaction and begins a write transaction, which stays open until
// Close commits it.
//
// LMDB write transactions are bound to an OS thread, so every operation
// of a store runs on one goroutine locked to its thread.
package lmdb

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"syscall"

	"github.com/bmatsuo/lmdb-go/lmdb"

	"github.com/hupe1980/hcache/store"
)

const (
	// initialMapSize is the first map size tried; it halves on ENOMEM.
	initialMapSize = int64(2) << 30
	minMapSize     = int64(1) << 20
)

type txnMode uint8

const (
	txnUninit txnMode = iota
	txnRead
	txnWrite
)

func init() {
	store.Register(Backend{})
}

// Backend opens LMDB environments.
type Backend struct{}

// Name implements store.Backend.
func (Backend) Name() string { return "lmdb" }

// Version implements store.Backend.
func (Backend) Version() string {
	major, minor, patch, _ := lmdb.Version()
	return fmt.Sprintf("github.com/bmatsuo/lmdb-go (LMDB %d.%d.%d)", major, minor, patch)
}

// Remove implements store.Remover.
func (Backend) Remove(path string) error {
	var errs []error
	for _, p := range []string{path, path + "-lock"} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Open implements store.Backend.
func (Backend) Open(path string, opts store.Options) (store.Store, error) {
	opts = opts.WithDefaults()

	if opts.MustExist {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("lmdb: %w", err)
		}
	}

	s := &lmdbStore{
		ops:  make(chan func()),
		done: make(chan struct{}),
	}
	go s.loop()

	err := s.do(func() error {
		env, mapSize, err := openEnv(path, opts.Mode)
		if err != nil {
			return err
		}
		opts.Logger.Debug("lmdb: opened", "path", path, "map_size", mapSize)

		txn, err := env.BeginTxn(nil, 0)
		if err != nil {
			env.Close()
			return fmt.Errorf("lmdb: begin: %w", err)
		}
		dbi, err := txn.OpenRoot(lmdb.Create)
		if err != nil {
			txn.Abort()
			env.Close()
			return fmt.Errorf("lmdb: open root: %w", err)
		}
		if err := txn.Commit(); err != nil {
			env.Close()
			return fmt.Errorf("lmdb: commit: %w", err)
		}

		s.env = env
		s.dbi = dbi
		return nil
	})
	if err != nil {
		close(s.ops)
		<-s.done
		return nil, err
	}
	return s, nil
}

func openEnv(path string, mode os.FileMode) (*lmdb.Env, int64, error) {
	for mapSize := initialMapSize; ; mapSize /= 2 {
		env, err := lmdb.NewEnv()
		if err != nil {
			return nil, 0, fmt.Errorf("lmdb: create env: %w", err)
		}
		if err := env.SetMapSize(mapSize); err != nil {
			env.Close()
			return nil, 0, fmt.Errorf("lmdb: set map size: %w", err)
		}
		err = env.Open(path, lmdb.NoSubdir, mode)
		if err == nil {
			return env, mapSize, nil
		}
		env.Close()
		if !lmdb.IsErrnoSys(err, syscall.ENOMEM) || mapSize/2 < minMapSize {
			return nil, 0, fmt.Errorf("lmdb: open %s: %w", path, err)
		}
	}
}

type lmdbStore struct {
	env    *lmdb.Env
	dbi    lmdb.DBI
	txn    *lmdb.Txn
	mode   txnMode
	ops    chan func()
	done   chan struct{}
	closed bool
}

func (s *lmdbStore) loop() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	for fn := range s.ops {
		fn()
	}
	close(s.done)
}

// do runs fn on the store's thread and waits for it.
func (s *lmdbStore) do(fn func() error) error {
	errc := make(chan error, 1)
	s.ops <- func() { errc <- fn() }
	return <-errc
}

func (s *lmdbStore) readTxn() error {
	if s.txn != nil && (s.mode == txnRead || s.mode == txnWrite) {
		return nil
	}
	txn, err := s.env.BeginTxn(nil, lmdb.Readonly)
	if err != nil {
		s.mode = txnUninit
		return fmt.Errorf("lmdb: begin read: %w", err)
	}
	txn.RawRead = true
	s.txn = txn
	s.mode = txnRead
	return nil
}

func (s *lmdbStore) writeTxn() error {
	if s.txn != nil {
		if s.mode == txnWrite {
			return nil
		}
		s.txn.Abort()
		s.txn = nil
	}
	txn, err := s.env.BeginTxn(nil, 0)
	if err != nil {
		s.mode = txnUninit
		return fmt.Errorf("lmdb: begin write: %w", err)
	}
	txn.RawRead = true
	s.txn = txn
	s.mode = txnWrite
	return nil
}

func (s *lmdbStore) abort() {
	if s.txn != nil {
		s.txn.Abort()
	}
	s.txn = nil
	s.mode = txnUninit
}

// Fetch returns memory owned by LMDB. It stays valid until the next
// operation on the store.
func (s *lmdbStore) Fetch(key []byte) ([]byte, error) {
	if s.closed {
		return nil, store.ErrClosed
	}
	var v []byte
	err := s.do(func() error {
		if err := s.readTxn(); err != nil {
			return err
		}
		var err error
		v, err = s.txn.Get(s.dbi, key)
		if lmdb.IsNotFound(err) {
			return store.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("lmdb: fetch: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (s *lmdbStore) Store(key, value []byte) error {
	if s.closed {
		return store.ErrClosed
	}
	return s.do(func() error {
		if err := s.writeTxn(); err != nil {
			return err
		}
		if err := s.txn.Put(s.dbi, key, value, 0); err != nil {
			s.abort()
			return fmt.Errorf("lmdb: store: %w", err)
		}
		return nil
	})
}

func (s *lmdbStore) Delete(key []byte) error {
	if s.closed {
		return store.ErrClosed
	}
	return s.do(func() error {
		if err := s.writeTxn(); err != nil {
			return err
		}
		err := s.txn.Del(s.dbi, key, nil)
		if err != nil && !lmdb.IsNotFound(err) {
			s.abort()
			return fmt.Errorf("lmdb: delete: %w", err)
		}
		return nil
	})
}

// Close commits a pending write transaction and closes the environment.
func (s *lmdbStore) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	err := s.do(func() error {
		var err error
		if s.txn != nil {
			if s.mode == txnWrite {
				if cerr := s.txn.Commit(); cerr != nil {
					err = fmt.Errorf("lmdb: commit: %w", cerr)
				}
			} else {
				s.txn.Abort()
			}
			s.txn = nil
		}
		s.mode = txnUninit
		s.env.Close()
		s.env = nil
		return err
	})
	close(s.ops)
	<-s.done
	return err
}
