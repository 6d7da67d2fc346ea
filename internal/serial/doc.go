// Package serial implements the binary record format of the header cache.
//
// A record is an 8-byte header followed by a payload:
//
//	uidvalidity u32 | crc u32 | payload
//
// The header is never compressed so a reader can reject an incompatible
// record before touching the payload. The payload is the email graph in a
// fixed field order; every integer is little-endian and every string is a
// u32 size (including a trailing NUL, 0 for the empty string) followed by
// the bytes and the NUL.
//
// Encoding appends to a byte slice. Decoding walks the input with a bounds
// checked cursor and reports [ErrCorrupt] instead of panicking on
// malformed data.
package serial
