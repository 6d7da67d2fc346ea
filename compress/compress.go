package compress

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	// ErrCorruptFrame is returned when compressed input cannot be decoded.
	ErrCorruptFrame = errors.New("compress: corrupt frame")

	// ErrEmptyInput is returned when asked to compress nothing.
	ErrEmptyInput = errors.New("compress: empty input")

	// ErrClosed is returned by a Codec after Close.
	ErrClosed = errors.New("compress: codec closed")
)

// MaxFrameSize caps the uncompressed size a frame may declare.
const MaxFrameSize = 256 << 20

// sizePrefix is the length of the uncompressed-size prefix.
const sizePrefix = 4

// Codec is an open compression handle.
type Codec interface {
	// Name returns the method name.
	Name() string
	// Level returns the level the codec was opened with.
	Level() int
	// Compress returns the framed compressed form of src.
	Compress(src []byte) ([]byte, error)
	// Decompress returns the original bytes of a frame.
	Decompress(src []byte) ([]byte, error)
	// Close releases the codec. It is idempotent.
	Close() error
}

// Method describes a compression family.
type Method struct {
	Name         string
	MinLevel     int
	MaxLevel     int
	DefaultLevel int
	// Version reports the implementing library.
	Version string
	// LevelDoc says what raising the level does.
	LevelDoc string
	// New opens a codec at a level already known to be in range.
	New func(level int) (Codec, error)
}

// Clamp returns level if it lies in [MinLevel, MaxLevel], otherwise
// MinLevel. The second result reports whether clamping happened.
func (m Method) Clamp(level int) (int, bool) {
	if level < m.MinLevel || level > m.MaxLevel {
		return m.MinLevel, true
	}
	return level, false
}

// Open returns a codec at level. Out-of-range levels are clamped.
func (m Method) Open(level int) (Codec, error) {
	level, _ = m.Clamp(level)
	return m.New(level)
}

var (
	registryMu sync.RWMutex
	registry   = map[string]Method{}
)

// Register makes a method available by name. It panics on a duplicate or
// incomplete registration, which is a programming error.
func Register(m Method) {
	if m.Name == "" || m.New == nil {
		panic("compress: incomplete method registration")
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := registry[m.Name]; dup {
		panic("compress: method registered twice: " + m.Name)
	}
	registry[m.Name] = m
}

// Lookup returns the named method.
func Lookup(name string) (Method, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	m, ok := registry[name]
	return m, ok
}

// Names returns the registered method names in sorted order.
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

// Methods returns all registered methods sorted by name.
func Methods() []Method {
	names := Names()
	out := make([]Method, 0, len(names))
	for _, n := range names {
		m, _ := Lookup(n)
		out = append(out, m)
	}
	return out
}

// Open opens the named method at level.
func Open(name string, level int) (Codec, error) {
	m, ok := Lookup(name)
	if !ok {
		return nil, fmt.Errorf("compress: unknown method %q", name)
	}
	return m.Open(level)
}

// readPrefix splits a size-prefixed frame.
func readPrefix(src []byte) (int, []byte, error) {
	if len(src) < sizePrefix {
		return 0, nil, fmt.Errorf("%w: %d bytes is shorter than the size prefix", ErrCorruptFrame, len(src))
	}
	size := binary.LittleEndian.Uint32(src)
	if size == 0 {
		return 0, nil, fmt.Errorf("%w: declared size is zero", ErrCorruptFrame)
	}
	if size > MaxFrameSize {
		return 0, nil, fmt.Errorf("%w: declared size %d exceeds limit", ErrCorruptFrame, size)
	}
	return int(size), src[sizePrefix:], nil
}

// grow returns buf resized to n, reusing its storage when possible.
func grow(buf []byte, n int) []byte {
	if cap(buf) < n {
		return make([]byte, n)
	}
	return buf[:n]
}
