package hcache

import (
	"errors"
	"fmt"

	"github.com/hupe1980/hcache/internal/serial"
)

var (
	// ErrEmptyPath is returned by Open when no cache path is configured.
	ErrEmptyPath = errors.New("hcache: empty cache path")

	// ErrClosed is returned by every method of a closed Cache.
	ErrClosed = errors.New("hcache: cache is closed")

	// ErrUnknownBackend is returned when the configured backend is not linked in.
	ErrUnknownBackend = errors.New("hcache: unknown store backend")

	// ErrUnknownCodec is returned when the configured compression method is not linked in.
	ErrUnknownCodec = errors.New("hcache: unknown compression method")

	// ErrNilEmail is returned by Store for a nil email.
	ErrNilEmail = errors.New("hcache: nil email")

	// ErrBodyTooDeep is returned by Store for a MIME tree nested deeper than
	// a record can hold. Nothing is stored.
	ErrBodyTooDeep = serial.ErrTooDeep
)

// OpenError reports that the store could not be opened, even after the
// damaged database was removed and the open retried, or that another
// process kept it locked.
//
// The original underlying error can be accessed via errors.Unwrap.
type OpenError struct {
	Path    string
	Backend string
	cause   error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("hcache: open %s database %s: %v", e.Backend, e.Path, e.cause)
}

func (e *OpenError) Unwrap() error { return e.cause }
