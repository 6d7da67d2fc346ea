package hcache

import (
	"io"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with cache-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that writes JSON-formatted logs to w, or
// to stderr when w is nil. level sets the minimum log level (e.g.,
// slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(w io.Writer, level slog.Level) *Logger {
	if w == nil {
		w = os.Stderr
	}
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that writes human-readable text logs to
// w, or to stderr when w is nil.
func NewTextLogger(w io.Writer, level slog.Level) *Logger {
	if w == nil {
		w = os.Stderr
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithFolder adds a folder field to the logger.
func (l *Logger) WithFolder(folder string) *Logger {
	return &Logger{
		Logger: l.Logger.With("folder", folder),
	}
}

// WithBackend adds a backend field to the logger.
func (l *Logger) WithBackend(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("backend", name),
	}
}

// LogOpen logs an open operation.
func (l *Logger) LogOpen(path, codec string, err error) {
	if err != nil {
		l.Error("open failed",
			"path", path,
			"codec", codec,
			"error", err,
		)
	} else {
		l.Debug("open completed",
			"path", path,
			"codec", codec,
		)
	}
}

// LogClose logs a close operation.
func (l *Logger) LogClose(err error) {
	if err != nil {
		l.Warn("close failed", "error", err)
	}
}

// LogRetry logs the removal of a database that could not be opened.
func (l *Logger) LogRetry(path string, err error) {
	l.Debug("database unreadable, removing and retrying",
		"path", path,
		"error", err,
	)
}

// LogClamp logs a compression level outside the codec's range.
func (l *Logger) LogClamp(method string, level, used int) {
	l.Debug("compression level out of range",
		"method", method,
		"level", level,
		"using", used,
	)
}

// LogRejected logs a record discarded by the validity gates.
func (l *Logger) LogRejected(key []byte, reason string, stored, want uint32) {
	l.Debug("record rejected",
		"key", string(key),
		"reason", reason,
		"stored", stored,
		"want", want,
	)
}

// LogCorrupt logs a record that could not be decoded.
func (l *Logger) LogCorrupt(key []byte, err error) {
	l.Debug("corrupt record",
		"key", string(key),
		"error", err,
	)
}
