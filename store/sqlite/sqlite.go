// Package sqlite registers the "sqlite" store backend built on
// mattn/go-sqlite3.
//
// Records live in one WITHOUT ROWID table keyed by the raw key bytes.
// Several handles, in one process or several, may share a database file;
// SQLite serializes their writes.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/hupe1980/hcache/store"
)

// busyTimeout is how long SQLite polls a locked database before failing.
const busyTimeout = 30 * time.Second

const schema = `CREATE TABLE IF NOT EXISTS hcache (
	k BLOB NOT NULL PRIMARY KEY,
	v BLOB NOT NULL
) WITHOUT ROWID`

func init() {
	store.Register(Backend{})
}

// Backend opens SQLite databases.
type Backend struct{}

// Name implements store.Backend.
func (Backend) Name() string { return "sqlite" }

// Version implements store.Backend.
func (Backend) Version() string {
	v, _, _ := sqlite3.Version()
	return "github.com/mattn/go-sqlite3 (SQLite " + v + ")"
}

// Remove implements store.Remover.
func (Backend) Remove(path string) error {
	var errs []error
	for _, p := range []string{path, path + "-wal", path + "-shm", path + "-journal"} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func dsnFromPath(path string, values url.Values) string {
	u := &url.URL{Scheme: "file", Opaque: path}
	if filepath.IsAbs(path) {
		u = &url.URL{Scheme: "file", Path: path}
	}
	u.RawQuery = values.Encode()
	return u.String()
}

// Open implements store.Backend.
func (Backend) Open(path string, opts store.Options) (store.Store, error) {
	opts = opts.WithDefaults()

	mode := "rwc"
	if opts.MustExist {
		mode = "rw"
	}
	created := false
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) && !opts.MustExist {
		created = true
	}

	dsn := dsnFromPath(path, url.Values{
		"mode":          {mode},
		"_busy_timeout": {fmt.Sprintf("%d", busyTimeout.Milliseconds())},
	})
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	// One connection keeps the handle's operations strictly ordered.
	db.SetMaxOpenConns(1)

	if created {
		// page_size only takes effect before the first table exists.
		if _, err := db.Exec(fmt.Sprintf("PRAGMA page_size = %d", opts.PageSize)); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite: set page size: %w", err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: init schema in %s: %w", path, err)
	}
	if created {
		if err := os.Chmod(path, opts.Mode); err != nil {
			opts.Logger.Debug("sqlite: chmod failed", "path", path, "error", err)
		}
	}

	opts.Logger.Debug("sqlite: opened", "path", path, "created", created)
	return &sqliteStore{db: db}, nil
}

type sqliteStore struct {
	db *sql.DB
}

func (s *sqliteStore) Fetch(key []byte) ([]byte, error) {
	if s.db == nil {
		return nil, store.ErrClosed
	}
	var v []byte
	err := s.db.QueryRow(`SELECT v FROM hcache WHERE k = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: fetch: %w", err)
	}
	return v, nil
}

func (s *sqliteStore) Store(key, value []byte) error {
	if s.db == nil {
		return store.ErrClosed
	}
	_, err := s.db.Exec(`INSERT INTO hcache (k, v) VALUES (?, ?)
		ON CONFLICT (k) DO UPDATE SET v = excluded.v`, key, value)
	if err != nil {
		return fmt.Errorf("sqlite: store: %w", err)
	}
	return nil
}

func (s *sqliteStore) Delete(key []byte) error {
	if s.db == nil {
		return store.ErrClosed
	}
	if _, err := s.db.Exec(`DELETE FROM hcache WHERE k = ?`, key); err != nil {
		return fmt.Errorf("sqlite: delete: %w", err)
	}
	return nil
}

func (s *sqliteStore) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
