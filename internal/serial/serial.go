package serial

import (
	"encoding/binary"
	"errors"
	"time"

	"github.com/hupe1980/hcache/email"
	"github.com/hupe1980/hcache/internal/charset"
)

// HeaderSize is the size of the uncompressed record header.
const HeaderSize = 8

const noRealSubj = 0xFFFFFFFF

// ErrCorrupt is returned when a record cannot be decoded.
var ErrCorrupt = errors.New("serial: corrupt record")

// ErrTooDeep is returned by Dump for MIME trees nested deeper than a record
// may hold. Cyclic trees end up here too.
var ErrTooDeep = errors.New("serial: body nesting too deep")

// Header is the fixed prefix of every record.
type Header struct {
	UIDValidity uint32
	CRC         uint32
}

// AppendHeader appends h to dst.
func AppendHeader(dst []byte, h Header) []byte {
	dst = binary.LittleEndian.AppendUint32(dst, h.UIDValidity)
	return binary.LittleEndian.AppendUint32(dst, h.CRC)
}

// ReadHeader decodes the record header at the start of data.
func ReadHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, ErrCorrupt
	}
	return Header{
		UIDValidity: binary.LittleEndian.Uint32(data),
		CRC:         binary.LittleEndian.Uint32(data[4:]),
	}, nil
}

// Dump encodes e behind header h. Only cacheable fields are written, so two
// messages that differ in runtime state produce identical records. conv may
// be nil when the process charset is UTF-8.
func Dump(e *email.Email, h Header, conv *charset.Converter) ([]byte, error) {
	enc := encoder{
		buf:  make([]byte, 0, 512),
		conv: conv,
	}
	enc.buf = AppendHeader(enc.buf, h)
	enc.email(e)
	if enc.err != nil {
		return nil, enc.err
	}
	return enc.buf, nil
}

// Restore decodes a full record (header and payload).
func Restore(data []byte, conv *charset.Converter) (*email.Email, error) {
	if len(data) < HeaderSize {
		return nil, ErrCorrupt
	}
	return RestorePayload(data[HeaderSize:], conv)
}

// RestorePayload decodes a payload without its header. The result shares
// no memory with data.
func RestorePayload(payload []byte, conv *charset.Converter) (*email.Email, error) {
	dec := decoder{data: payload, conv: conv}
	m := dec.email()
	if dec.err != nil {
		return nil, dec.err
	}
	if dec.off != len(payload) {
		dec.fail("%d trailing bytes", len(payload)-dec.off)
		return nil, dec.err
	}
	return m, nil
}

const (
	bitExpired = 16 + iota
	bitFlagged
	bitMIME
	bitOld
	bitRead
	bitReplied
	bitSuperseded
	bitTrash
	bitDeleted
)

func boolBit(b bool, pos uint) uint32 {
	if b {
		return 1 << pos
	}
	return 0
}

func hasBit(v uint32, pos uint) bool { return v&(1<<pos) != 0 }

func packEmailFlags(m *email.Email) uint32 {
	v := uint32(m.Security)
	v |= boolBit(m.Expired, bitExpired)
	v |= boolBit(m.Flagged, bitFlagged)
	v |= boolBit(m.MIME, bitMIME)
	v |= boolBit(m.Old, bitOld)
	v |= boolBit(m.Read, bitRead)
	v |= boolBit(m.Replied, bitReplied)
	v |= boolBit(m.Superseded, bitSuperseded)
	v |= boolBit(m.Trash, bitTrash)
	v |= boolBit(m.Deleted, bitDeleted)
	return v
}

func unpackEmailFlags(v uint32, m *email.Email) {
	m.Security = email.SecurityFlags(v & 0xFFFF)
	m.Expired = hasBit(v, bitExpired)
	m.Flagged = hasBit(v, bitFlagged)
	m.MIME = hasBit(v, bitMIME)
	m.Old = hasBit(v, bitOld)
	m.Read = hasBit(v, bitRead)
	m.Replied = hasBit(v, bitReplied)
	m.Superseded = hasBit(v, bitSuperseded)
	m.Trash = hasBit(v, bitTrash)
	m.Deleted = hasBit(v, bitDeleted)
}

func packTimezone(tz email.Timezone) uint32 {
	v := uint32(tz.Hours) & 0x1F
	v |= (uint32(tz.Minutes) & 0x3F) << 5
	v |= boolBit(tz.Occident, 11)
	return v
}

func unpackTimezone(v uint32) email.Timezone {
	return email.Timezone{
		Hours:    uint8(v & 0x1F),
		Minutes:  uint8((v >> 5) & 0x3F),
		Occident: hasBit(v, 11),
	}
}

func packBodyFlags(b *email.Body) uint32 {
	v := uint32(b.Type) & 0xF
	v |= (uint32(b.Encoding) & 0x7) << 4
	v |= (uint32(b.Disposition) & 0x3) << 7
	v |= boolBit(b.BadSig, 9)
	v |= boolBit(b.ForceCharset, 10)
	v |= boolBit(b.GoodSig, 11)
	v |= boolBit(b.NoConv, 12)
	v |= boolBit(b.UseDisp, 13)
	v |= boolBit(b.WarnSig, 14)
	v |= boolBit(b.IsAutocrypt, 15)
	return v
}

func unpackBodyFlags(v uint32, b *email.Body) {
	b.Type = email.ContentType(v & 0xF)
	b.Encoding = email.Encoding((v >> 4) & 0x7)
	b.Disposition = email.Disposition((v >> 7) & 0x3)
	b.BadSig = hasBit(v, 9)
	b.ForceCharset = hasBit(v, 10)
	b.GoodSig = hasBit(v, 11)
	b.NoConv = hasBit(v, 12)
	b.UseDisp = hasBit(v, 13)
	b.WarnSig = hasBit(v, 14)
	b.IsAutocrypt = hasBit(v, 15)
}

// Times are stored as Unix seconds; 0 means unset.
func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func timeOrZero(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}
