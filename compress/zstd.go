package compress

import (
	"fmt"
	"slices"

	"github.com/klauspost/compress/zstd"
)

func init() {
	Register(Method{
		Name:         "zstd",
		MinLevel:     1,
		MaxLevel:     22,
		DefaultLevel: 3,
		Version:      "github.com/klauspost/compress/zstd",
		LevelDoc:     "higher is smaller",
		New:          newZstd,
	})
}

// zstdCodec writes plain zstd frames. The frame header carries the content
// size, so no length prefix is added.
type zstdCodec struct {
	level  int
	enc    *zstd.Encoder
	dec    *zstd.Decoder
	buf    []byte
	closed bool
}

func newZstd(level int) (Codec, error) {
	enc, err := zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)),
		zstd.WithEncoderConcurrency(1),
	)
	if err != nil {
		return nil, fmt.Errorf("zstd: %w", err)
	}
	dec, err := zstd.NewReader(nil,
		zstd.WithDecoderConcurrency(1),
		zstd.WithDecoderMaxMemory(MaxFrameSize),
	)
	if err != nil {
		_ = enc.Close()
		return nil, fmt.Errorf("zstd: %w", err)
	}
	return &zstdCodec{level: level, enc: enc, dec: dec}, nil
}

func (c *zstdCodec) Name() string { return "zstd" }

func (c *zstdCodec) Level() int { return c.level }

func (c *zstdCodec) Compress(src []byte) ([]byte, error) {
	if c.closed {
		return nil, ErrClosed
	}
	if len(src) == 0 {
		return nil, ErrEmptyInput
	}
	if len(src) > MaxFrameSize {
		return nil, fmt.Errorf("zstd: input of %d bytes exceeds frame limit", len(src))
	}
	c.buf = c.enc.EncodeAll(src, c.buf[:0])
	return c.buf, nil
}

func (c *zstdCodec) Decompress(src []byte) ([]byte, error) {
	if c.closed {
		return nil, ErrClosed
	}
	if len(src) == 0 {
		return nil, fmt.Errorf("%w: zstd: empty input", ErrCorruptFrame)
	}

	var h zstd.Header
	if err := h.Decode(src); err != nil {
		return nil, fmt.Errorf("%w: zstd: %w", ErrCorruptFrame, err)
	}
	if h.Skippable {
		return nil, fmt.Errorf("%w: zstd: skippable frame", ErrCorruptFrame)
	}
	if h.HasFCS {
		if h.FrameContentSize == 0 {
			return nil, fmt.Errorf("%w: zstd: declared size is zero", ErrCorruptFrame)
		}
		if h.FrameContentSize > MaxFrameSize {
			return nil, fmt.Errorf("%w: zstd: declared size %d exceeds limit", ErrCorruptFrame, h.FrameContentSize)
		}
		c.buf = slices.Grow(c.buf[:0], int(h.FrameContentSize))
	}

	out, err := c.dec.DecodeAll(src, c.buf[:0])
	if err != nil {
		return nil, fmt.Errorf("%w: zstd: %w", ErrCorruptFrame, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: zstd: frame decoded to nothing", ErrCorruptFrame)
	}
	c.buf = out
	return out, nil
}

func (c *zstdCodec) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.dec.Close()
	err := c.enc.Close()
	c.buf = nil
	return err
}
