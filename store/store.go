package store

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"
)

var (
	// ErrNotFound is returned by Fetch for a missing key.
	ErrNotFound = errors.New("store: key not found")

	// ErrClosed is returned when a closed Store is used.
	ErrClosed = errors.New("store: closed")
)

// DefaultBackend is the backend used when none is configured.
const DefaultBackend = "bolt"

// DefaultPageSize is the page size used when none is configured.
const DefaultPageSize = 16384

// DefaultLockTimeout bounds how long Open waits for a database another
// process holds.
const DefaultLockTimeout = 30 * time.Second

// Store is an open key/value database.
type Store interface {
	// Fetch returns the value stored under key, or ErrNotFound.
	// The returned slice may point into memory owned by the store; it is
	// valid until the next call on the Store. Callers that keep it must
	// copy it.
	Fetch(key []byte) ([]byte, error)

	// Store sets key to value, replacing any previous value.
	Store(key, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(key []byte) error

	// Close releases the database. Pending writes are committed.
	Close() error
}

// Backend opens stores of one kind.
type Backend interface {
	// Name is the configuration name of the backend.
	Name() string
	// Version describes the implementing library.
	Version() string
	// Open opens or creates the database at path.
	Open(path string, opts Options) (Store, error)
}

// Remover is implemented by backends whose database is not a single file.
// Remove deletes everything Open created at path.
type Remover interface {
	Remove(path string) error
}

// Options are passed to Backend.Open.
type Options struct {
	// PageSize is the database page or block size in bytes.
	PageSize int
	// Compress enables compression inside the backend, where supported.
	Compress bool
	// MustExist makes Open fail instead of creating a missing database.
	MustExist bool
	// Mode is the permission of newly created files.
	Mode os.FileMode
	// Logger receives backend diagnostics.
	Logger *slog.Logger
	// LockTimeout bounds the wait for a lock held by another process.
	// Backends report expiry with an error matching ErrLocked.
	LockTimeout time.Duration
}

// WithDefaults returns o with zero fields replaced by defaults.
func (o Options) WithDefaults() Options {
	if o.PageSize <= 0 {
		o.PageSize = DefaultPageSize
	}
	if o.Mode == 0 {
		o.Mode = 0o600
	}
	if o.LockTimeout <= 0 {
		o.LockTimeout = DefaultLockTimeout
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o
}

var (
	registryMu sync.RWMutex
	registry   = map[string]Backend{}
)

// Register makes a backend available by name. It panics if a backend with
// the same name is already registered.
func Register(b Backend) {
	registryMu.Lock()
	defer registryMu.Unlock()
	name := b.Name()
	if _, dup := registry[name]; dup {
		panic("store: backend registered twice: " + name)
	}
	registry[name] = b
}

// Lookup returns the named backend.
func Lookup(name string) (Backend, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	b, ok := registry[name]
	return b, ok
}

// Names returns the registered backend names in sorted order.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Remove deletes the database b created at path. Backends implementing
// Remover decide what that means; for the rest it is the single file.
func Remove(b Backend, path string) error {
	if r, ok := b.(Remover); ok {
		return r.Remove(path)
	}
	return os.Remove(path)
}
