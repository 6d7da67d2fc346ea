// Package compress provides the pluggable compression codecs of the header
// cache.
//
// A [Method] describes a codec family (name, level range, constructor); a
// [Codec] is an open handle at one level. Methods register themselves in
// init, so every codec in this package is always available:
//
//	m, _ := compress.Lookup("zstd")
//	level, _ := m.Clamp(19)
//	c, _ := m.Open(level)
//	defer c.Close()
//
// # Levels
//
// Higher levels compress harder for every method. For lz4 this differs
// from the LZ4 "fast" acceleration parameter: level 1 is the fast block
// compressor and 2-12 select high-compression search depths.
//
// # Framing
//
// lz4 and zlib prefix their output with the uncompressed size as a 4-byte
// little-endian integer. zstd relies on the content size stored in its own
// frame header. Empty input and a declared size of zero are rejected on
// both sides.
//
// # Buffers
//
// A Codec owns a scratch buffer that is reused across calls. The slice
// returned by Compress or Decompress is valid until the next call on the
// same Codec or until Close; callers that keep it must copy it. A Codec is
// not safe for concurrent use.
package compress
