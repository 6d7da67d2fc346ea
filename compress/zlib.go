package compress

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
)

func init() {
	Register(Method{
		Name:         "zlib",
		MinLevel:     1,
		MaxLevel:     9,
		DefaultLevel: 6,
		Version:      "github.com/klauspost/compress/zlib",
		LevelDoc:     "higher is smaller",
		New:          newZlib,
	})
}

type zlibCodec struct {
	level  int
	out    bytes.Buffer
	w      *zlib.Writer
	src    bytes.Reader
	r      io.ReadCloser
	buf    []byte
	closed bool
}

func newZlib(level int) (Codec, error) {
	c := &zlibCodec{level: level}
	w, err := zlib.NewWriterLevel(&c.out, level)
	if err != nil {
		return nil, fmt.Errorf("zlib: %w", err)
	}
	c.w = w
	return c, nil
}

func (c *zlibCodec) Name() string { return "zlib" }

func (c *zlibCodec) Level() int { return c.level }

func (c *zlibCodec) Compress(src []byte) ([]byte, error) {
	if c.closed {
		return nil, ErrClosed
	}
	if len(src) == 0 {
		return nil, ErrEmptyInput
	}
	if len(src) > MaxFrameSize {
		return nil, fmt.Errorf("zlib: input of %d bytes exceeds frame limit", len(src))
	}

	c.out.Reset()
	var prefix [sizePrefix]byte
	binary.LittleEndian.PutUint32(prefix[:], uint32(len(src)))
	c.out.Write(prefix[:])

	c.w.Reset(&c.out)
	if _, err := c.w.Write(src); err != nil {
		return nil, fmt.Errorf("zlib: %w", err)
	}
	if err := c.w.Close(); err != nil {
		return nil, fmt.Errorf("zlib: %w", err)
	}
	return c.out.Bytes(), nil
}

func (c *zlibCodec) Decompress(src []byte) ([]byte, error) {
	if c.closed {
		return nil, ErrClosed
	}
	size, payload, err := readPrefix(src)
	if err != nil {
		return nil, err
	}

	c.src.Reset(payload)
	if c.r == nil {
		c.r, err = zlib.NewReader(&c.src)
	} else {
		err = c.r.(zlib.Resetter).Reset(&c.src, nil)
	}
	if err != nil {
		c.r = nil
		return nil, fmt.Errorf("%w: zlib: %w", ErrCorruptFrame, err)
	}

	c.buf = grow(c.buf, size)
	if _, err := io.ReadFull(c.r, c.buf); err != nil {
		c.dropReader()
		return nil, fmt.Errorf("%w: zlib: %w", ErrCorruptFrame, err)
	}
	// Reading past the end verifies the checksum and the declared size.
	var tail [1]byte
	if n, err := io.ReadFull(c.r, tail[:]); n != 0 || !errors.Is(err, io.EOF) {
		c.dropReader()
		return nil, fmt.Errorf("%w: zlib: stream longer than declared %d bytes or bad checksum", ErrCorruptFrame, size)
	}
	return c.buf, nil
}

// dropReader discards a reader left with a sticky decode error. The next
// Decompress starts a fresh one.
func (c *zlibCodec) dropReader() {
	if c.r != nil {
		_ = c.r.Close()
		c.r = nil
	}
}

func (c *zlibCodec) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	// A reader only ever reports the last decode error here, which
	// Decompress already returned.
	c.dropReader()
	c.buf = nil
	return nil
}
