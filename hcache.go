package hcache

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/hupe1980/hcache/compress"
	"github.com/hupe1980/hcache/email"
	"github.com/hupe1980/hcache/internal/charset"
	"github.com/hupe1980/hcache/internal/fs"
	"github.com/hupe1980/hcache/internal/serial"
	"github.com/hupe1980/hcache/store"

	// The default backend is always available.
	_ "github.com/hupe1980/hcache/store/bolt"
)

// Entry is the result of a Fetch.
//
// Email is nil on a miss. When a record was found but rejected, UIDValidity
// and CRC still describe what was stored.
type Entry struct {
	UIDValidity uint32
	CRC         uint32
	Email       *email.Email
}

// StoredAt interprets UIDValidity as the wall-clock stamp written by Store
// when it was called without a UIDVALIDITY.
func (e Entry) StoredAt() time.Time {
	return time.Unix(int64(e.UIDValidity), 0)
}

// Fresh reports whether the entry holds an email stored no earlier than
// mtime, the modification time of the message file it caches.
func (e Entry) Fresh(mtime time.Time) bool {
	return e.Email != nil && !mtime.After(e.StoredAt())
}

// Cache is an open header cache for one folder.
//
// A Cache is not safe for concurrent use.
type Cache struct {
	path    string
	folder  string
	crc     uint32
	backend store.Backend
	store   store.Store
	codec   compress.Codec // nil when records are not compressed
	suffix  string
	conv    *charset.Converter

	logger           *Logger
	metricsCollector MetricsCollector
	now              func() time.Time

	key    []byte
	closed bool
}

// Open opens the cache for folder below path, creating it if needed.
//
// If path is an existing file, or a missing path without a trailing slash,
// the database lives at path itself. Otherwise path is a directory holding
// one database per folder, named by namer or by a hash of folder, backend
// and compression method when namer is nil.
//
// A database the backend cannot open is removed and opened once more, so
// a damaged cache is replaced by an empty one. *OpenError reports a second
// failure. A database another process keeps locked past the lock timeout
// is left in place and reported as an *OpenError matching store.ErrLocked.
func Open(path, folder string, namer Namer, opts ...Option) (c *Cache, err error) {
	start := time.Now()

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	defer func() {
		o.metricsCollector.RecordOpen(time.Since(start), err)
	}()

	if path == "" {
		return nil, ErrEmptyPath
	}

	cfg := o.config
	backendName := cfg.Backend
	if backendName == "" {
		backendName = store.DefaultBackend
	}
	backend, ok := store.Lookup(backendName)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backendName)
	}

	logger := o.logger.WithBackend(backendName)

	var codec compress.Codec
	if cfg.CompressMethod != "" {
		m, ok := compress.Lookup(cfg.CompressMethod)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, cfg.CompressMethod)
		}
		level, clamped := m.Clamp(cfg.CompressLevel)
		if clamped {
			logger.LogClamp(m.Name, cfg.CompressLevel, level)
		}
		codec, err = m.Open(level)
		if err != nil {
			return nil, fmt.Errorf("hcache: open %s codec: %w", m.Name, err)
		}
	}
	defer func() {
		if err != nil && codec != nil {
			_ = codec.Close()
		}
	}()

	conv, err := charset.New(cfg.Charset)
	if err != nil {
		return nil, fmt.Errorf("hcache: %w", err)
	}

	canonical := CanonicalFolder(folder)
	codecName := ""
	if codec != nil {
		codecName = codec.Name()
	}
	file, err := resolvePath(o.fs, path, canonical, namer, backendName, codecName)
	if err != nil {
		return nil, err
	}
	logger = logger.WithFolder(canonical)

	sopts := store.Options{
		PageSize:    cfg.PageSize,
		Compress:    cfg.CompressInBackend,
		MustExist:   !o.create,
		Logger:      logger.Logger,
		LockTimeout: o.lockTimeout,
	}.WithDefaults()

	st, err := openStore(o.fs, backend, file, sopts, logger)
	logger.LogOpen(file, codecName, err)
	if err != nil {
		return nil, err
	}

	c = &Cache{
		path:             file,
		folder:           canonical,
		crc:              SchemaCRC(cfg.Spam, cfg.NoSpam),
		backend:          backend,
		store:            st,
		codec:            codec,
		conv:             conv,
		logger:           logger,
		metricsCollector: o.metricsCollector,
		now:              o.now,
	}
	if codec != nil {
		c.suffix = "-" + codecName
	}
	return c, nil
}

// openStore opens the database, removing it and retrying once on failure.
// A database locked by another process is live and never removed.
func openStore(fsys fs.FileSystem, b store.Backend, file string, opts store.Options, logger *Logger) (store.Store, error) {
	st, err := b.Open(file, opts)
	if err == nil {
		return st, nil
	}
	if errors.Is(err, store.ErrLocked) {
		return nil, &OpenError{Path: file, Backend: b.Name(), cause: err}
	}
	logger.LogRetry(file, err)

	if rmErr := removeDatabase(fsys, b, file); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
		return nil, &OpenError{Path: file, Backend: b.Name(), cause: errors.Join(err, rmErr)}
	}

	st, err = b.Open(file, opts)
	if err != nil {
		return nil, &OpenError{Path: file, Backend: b.Name(), cause: err}
	}
	return st, nil
}

func removeDatabase(fsys fs.FileSystem, b store.Backend, file string) error {
	if r, ok := b.(store.Remover); ok {
		return r.Remove(file)
	}
	return fsys.Remove(file)
}

// Close closes the codec and then the store. It is idempotent.
func (c *Cache) Close() error {
	if c == nil || c.closed {
		return nil
	}
	c.closed = true

	var errs []error
	if c.codec != nil {
		errs = append(errs, c.codec.Close())
	}
	errs = append(errs, c.store.Close())

	err := errors.Join(errs...)
	c.logger.LogClose(err)
	return err
}

// Path returns the database file.
func (c *Cache) Path() string { return c.path }

// Folder returns the canonical folder used to prefix keys.
func (c *Cache) Folder() string { return c.folder }

// CRC returns the fingerprint records must carry to be accepted.
func (c *Cache) CRC() uint32 { return c.crc }

// Fetch looks up the email stored under key.
//
// A record is returned only if its fingerprint matches the handle and, when
// uidvalidity is non-zero, it was stored with the same UIDVALIDITY. Misses,
// rejected and undecodable records all yield an Entry without Email and a
// nil error; errors come from the backend only.
func (c *Cache) Fetch(key []byte, uidvalidity uint32) (Entry, error) {
	if c.closed {
		return Entry{}, ErrClosed
	}
	start := time.Now()
	entry, outcome, err := c.fetch(key, uidvalidity)
	c.metricsCollector.RecordFetch(outcome, time.Since(start))
	return entry, err
}

func (c *Cache) fetch(key []byte, uidvalidity uint32) (Entry, FetchOutcome, error) {
	raw, err := c.store.Fetch(c.emailKey(key))
	if errors.Is(err, store.ErrNotFound) {
		return Entry{}, FetchMiss, nil
	}
	if err != nil {
		return Entry{}, FetchError, fmt.Errorf("hcache: fetch: %w", err)
	}

	h, err := serial.ReadHeader(raw)
	if err != nil {
		c.logger.LogCorrupt(key, err)
		return Entry{}, FetchCorrupt, nil
	}
	entry := Entry{UIDValidity: h.UIDValidity, CRC: h.CRC}

	if h.CRC != c.crc {
		c.logger.LogRejected(key, "crc", h.CRC, c.crc)
		return entry, FetchRejected, nil
	}
	if uidvalidity != 0 && uidvalidity != h.UIDValidity {
		c.logger.LogRejected(key, "uidvalidity", h.UIDValidity, uidvalidity)
		return entry, FetchRejected, nil
	}

	payload := raw[serial.HeaderSize:]
	if c.codec != nil {
		payload, err = c.codec.Decompress(payload)
		if err != nil {
			c.logger.LogCorrupt(key, err)
			return entry, FetchCorrupt, nil
		}
	}

	e, err := serial.RestorePayload(payload, c.conv)
	if err != nil {
		c.logger.LogCorrupt(key, err)
		return entry, FetchCorrupt, nil
	}
	entry.Email = e
	return entry, FetchHit, nil
}

// Store writes e under key, replacing any previous record. A zero
// uidvalidity stamps the record with the current time instead.
func (c *Cache) Store(key []byte, e *email.Email, uidvalidity uint32) error {
	if c.closed {
		return ErrClosed
	}
	if e == nil {
		return ErrNilEmail
	}
	start := time.Now()
	n, err := c.storeEmail(key, e, uidvalidity)
	c.metricsCollector.RecordStore(n, time.Since(start), err)
	return err
}

func (c *Cache) storeEmail(key []byte, e *email.Email, uidvalidity uint32) (int, error) {
	if uidvalidity == 0 {
		uidvalidity = uint32(c.now().Unix())
	}
	blob, err := serial.Dump(e, serial.Header{UIDValidity: uidvalidity, CRC: c.crc}, c.conv)
	if err != nil {
		return 0, fmt.Errorf("hcache: serialize: %w", err)
	}

	if c.codec != nil {
		framed, err := c.codec.Compress(blob[serial.HeaderSize:])
		if err != nil {
			return 0, fmt.Errorf("hcache: compress: %w", err)
		}
		blob = append(blob[:serial.HeaderSize:serial.HeaderSize], framed...)
	}

	if err := c.store.Store(c.emailKey(key), blob); err != nil {
		return 0, fmt.Errorf("hcache: store: %w", err)
	}
	return len(blob), nil
}

// Delete removes the email stored under key. Deleting a missing key is not
// an error.
func (c *Cache) Delete(key []byte) error {
	if c.closed {
		return ErrClosed
	}
	start := time.Now()
	err := c.store.Delete(c.emailKey(key))
	if err != nil {
		err = fmt.Errorf("hcache: delete: %w", err)
	}
	c.metricsCollector.RecordDelete(time.Since(start), err)
	return err
}

// FetchRaw returns a copy of the untyped value stored under key by
// StoreRaw. The bool is false on a miss.
func (c *Cache) FetchRaw(key []byte) ([]byte, bool, error) {
	if c.closed {
		return nil, false, ErrClosed
	}
	v, err := c.store.Fetch(c.rawKey(key))
	if errors.Is(err, store.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("hcache: fetch raw: %w", err)
	}
	return append([]byte(nil), v...), true, nil
}

// StoreRaw writes an untyped value under key. Raw values are neither
// serialized nor compressed nor checked on fetch.
func (c *Cache) StoreRaw(key, value []byte) error {
	if c.closed {
		return ErrClosed
	}
	if err := c.store.Store(c.rawKey(key), value); err != nil {
		return fmt.Errorf("hcache: store raw: %w", err)
	}
	return nil
}

// DeleteRaw removes the untyped value stored under key.
func (c *Cache) DeleteRaw(key []byte) error {
	if c.closed {
		return ErrClosed
	}
	if err := c.store.Delete(c.rawKey(key)); err != nil {
		return fmt.Errorf("hcache: delete raw: %w", err)
	}
	return nil
}

// rawKey builds folder || key in a buffer reused across calls.
func (c *Cache) rawKey(key []byte) []byte {
	c.key = append(c.key[:0], c.folder...)
	c.key = append(c.key, key...)
	return c.key
}

// emailKey is rawKey plus "-<codec>" when records are compressed, so the
// compressed and plain forms of a record never collide.
func (c *Cache) emailKey(key []byte) []byte {
	k := c.rawKey(key)
	c.key = append(k, c.suffix...)
	return c.key
}
