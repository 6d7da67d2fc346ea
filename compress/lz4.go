package compress

import (
	"encoding/binary"
	"fmt"

	"github.com/pierrec/lz4/v4"
)

// Level 1 is the fast block compressor; 2..12 map onto the HC search
// depths, saturating at the deepest one.
var lz4HCLevels = [...]lz4.CompressionLevel{
	lz4.Level1, lz4.Level2, lz4.Level3, lz4.Level4, lz4.Level5,
	lz4.Level6, lz4.Level7, lz4.Level8, lz4.Level9,
}

// The lz4 method reads its level as compression effort, not as LZ4 fast
// acceleration: 1 is the fast compressor and higher levels trade speed for
// smaller output.
func init() {
	Register(Method{
		Name:         "lz4",
		MinLevel:     1,
		MaxLevel:     12,
		DefaultLevel: 1,
		Version:      "github.com/pierrec/lz4/v4",
		LevelDoc:     "1 fast, 2-12 HC depth (higher is smaller, not faster)",
		New:          newLZ4,
	})
}

type lz4Codec struct {
	level  int
	fast   *lz4.Compressor
	hc     *lz4.CompressorHC
	buf    []byte
	closed bool
}

func newLZ4(level int) (Codec, error) {
	c := &lz4Codec{level: level}
	if level <= 1 {
		c.fast = &lz4.Compressor{}
	} else {
		idx := min(level-2, len(lz4HCLevels)-1)
		c.hc = &lz4.CompressorHC{Level: lz4HCLevels[idx]}
	}
	return c, nil
}

func (c *lz4Codec) Name() string { return "lz4" }

func (c *lz4Codec) Level() int { return c.level }

func (c *lz4Codec) Compress(src []byte) ([]byte, error) {
	if c.closed {
		return nil, ErrClosed
	}
	if len(src) == 0 {
		return nil, ErrEmptyInput
	}
	if len(src) > MaxFrameSize {
		return nil, fmt.Errorf("lz4: input of %d bytes exceeds frame limit", len(src))
	}

	c.buf = grow(c.buf, sizePrefix+lz4.CompressBlockBound(len(src)))
	binary.LittleEndian.PutUint32(c.buf, uint32(len(src)))

	var (
		n   int
		err error
	)
	if c.fast != nil {
		n, err = c.fast.CompressBlock(src, c.buf[sizePrefix:])
	} else {
		n, err = c.hc.CompressBlock(src, c.buf[sizePrefix:])
	}
	if err != nil {
		return nil, fmt.Errorf("lz4: %w", err)
	}
	if n == 0 {
		return nil, fmt.Errorf("lz4: compressor produced no output for %d bytes", len(src))
	}
	return c.buf[:sizePrefix+n], nil
}

func (c *lz4Codec) Decompress(src []byte) ([]byte, error) {
	if c.closed {
		return nil, ErrClosed
	}
	size, payload, err := readPrefix(src)
	if err != nil {
		return nil, err
	}

	c.buf = grow(c.buf, size)
	n, err := lz4.UncompressBlock(payload, c.buf)
	if err != nil {
		return nil, fmt.Errorf("%w: lz4: %w", ErrCorruptFrame, err)
	}
	if n != size {
		return nil, fmt.Errorf("%w: lz4: decoded %d bytes, expected %d", ErrCorruptFrame, n, size)
	}
	return c.buf[:n], nil
}

func (c *lz4Codec) Close() error {
	c.closed = true
	c.buf = nil
	c.fast = nil
	c.hc = nil
	return nil
}
