package hcache

import (
	"time"

	"github.com/hupe1980/hcache/config"
	"github.com/hupe1980/hcache/internal/fs"
)

type options struct {
	config           config.Config
	logger           *Logger
	metricsCollector MetricsCollector
	create           bool
	now              func() time.Time
	lockTimeout      time.Duration
	fs               fs.FileSystem
}

func defaultOptions() options {
	return options{
		config:           config.Default(),
		logger:           NoopLogger(),
		metricsCollector: NoopMetricsCollector{},
		create:           true,
		now:              time.Now,
		fs:               fs.Default,
	}
}

// Option configures Open.
type Option func(*options)

// WithConfig selects backend, codec, page size, charset and the spam
// settings that feed the record fingerprint.
//
// Open does not validate cfg as a whole: unknown backends and codecs fail
// the open, out-of-range compression levels are clamped.
func WithConfig(cfg config.Config) Option {
	return func(o *options) {
		o.config = cfg
	}
}

// WithLogger configures structured logging.
//
// If nil is passed, logging is disabled.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithMetricsCollector configures the metrics sink.
//
// If nil is passed, metrics are discarded.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithCreate controls whether a missing database is created (the default)
// or reported as an error.
func WithCreate(create bool) Option {
	return func(o *options) {
		o.create = create
	}
}

// WithClock sets the clock used to stamp records stored with a zero
// UIDVALIDITY.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithLockTimeout bounds how long Open waits for a database locked by
// another process. Zero selects store.DefaultLockTimeout.
func WithLockTimeout(d time.Duration) Option {
	return func(o *options) {
		o.lockTimeout = d
	}
}

// withFileSystem swaps the filesystem used for path resolution and removal.
func withFileSystem(fsys fs.FileSystem) Option {
	return func(o *options) {
		o.fs = fsys
	}
}
