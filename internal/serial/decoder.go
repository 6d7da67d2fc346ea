package serial

import (
	"encoding/binary"
	"fmt"

	"github.com/hupe1980/hcache/email"
	"github.com/hupe1980/hcache/internal/charset"
)

// maxDepth bounds MIME nesting in both directions.
const maxDepth = 64

// decoder consumes a payload. The first failure is sticky: later reads
// return zero values and the error is reported once at the end.
type decoder struct {
	data []byte
	off  int
	conv *charset.Converter
	err  error
}

func (d *decoder) fail(format string, args ...any) {
	if d.err == nil {
		d.err = fmt.Errorf("%w: %s at offset %d", ErrCorrupt, fmt.Sprintf(format, args...), d.off)
	}
}

func (d *decoder) take(n int) []byte {
	if d.err != nil {
		return nil
	}
	if n < 0 || len(d.data)-d.off < n {
		d.fail("truncated (need %d bytes)", n)
		return nil
	}
	b := d.data[d.off : d.off+n]
	d.off += n
	return b
}

func (d *decoder) u8() byte {
	b := d.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (d *decoder) u32() uint32 {
	b := d.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (d *decoder) u64() uint64 {
	b := d.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

// count reads a list length and rejects values that cannot fit in the
// remaining input given the smallest encoding of one element.
func (d *decoder) count(minElem int) int {
	n := d.u32()
	if d.err != nil {
		return 0
	}
	if uint64(n)*uint64(minElem) > uint64(len(d.data)-d.off) {
		d.fail("list count %d exceeds input", n)
		return 0
	}
	return int(n)
}

func (d *decoder) str(convert bool) string {
	size := d.u32()
	if size == 0 || d.err != nil {
		return ""
	}
	if uint64(size) > uint64(len(d.data)-d.off) {
		d.fail("string size %d exceeds input", size)
		return ""
	}
	b := d.take(int(size))
	if b == nil {
		return ""
	}
	if b[len(b)-1] != 0 {
		d.fail("string not NUL terminated")
		return ""
	}
	s := string(b[:len(b)-1])
	if convert {
		s = d.conv.FromUTF8(s)
	}
	return s
}

func (d *decoder) strs(convert bool) []string {
	n := d.count(4)
	if n == 0 {
		return nil
	}
	list := make([]string, 0, n)
	for i := 0; i < n && d.err == nil; i++ {
		list = append(list, d.str(convert))
	}
	return list
}

func (d *decoder) buffer() *email.Buffer {
	if d.u32() == 0 {
		return nil
	}
	return &email.Buffer{Data: d.str(true)}
}

func (d *decoder) addresses() []email.Address {
	n := d.count(12)
	if n == 0 {
		return nil
	}
	list := make([]email.Address, 0, n)
	for i := 0; i < n && d.err == nil; i++ {
		var a email.Address
		a.Personal = d.str(true)
		a.Mailbox = d.str(false)
		a.Group = d.u32()&1 != 0
		list = append(list, a)
	}
	return list
}

func (d *decoder) parameters() []email.Parameter {
	n := d.count(8)
	if n == 0 {
		return nil
	}
	list := make([]email.Parameter, 0, n)
	for i := 0; i < n && d.err == nil; i++ {
		var p email.Parameter
		p.Attribute = d.str(false)
		p.Value = d.str(true)
		list = append(list, p)
	}
	return list
}

func (d *decoder) envelope() *email.Envelope {
	env := &email.Envelope{}

	env.ReturnPath = d.addresses()
	env.From = d.addresses()
	env.To = d.addresses()
	env.Cc = d.addresses()
	env.Bcc = d.addresses()
	env.Sender = d.addresses()
	env.ReplyTo = d.addresses()
	env.MailFollowupTo = d.addresses()
	env.XOriginalTo = d.addresses()

	env.ListPost = d.str(true)
	env.ListSubscribe = d.str(true)
	env.ListUnsubscribe = d.str(true)
	env.Subject = d.str(true)
	if off := d.u32(); off == noRealSubj || int64(off) >= int64(len(env.Subject)) {
		env.RealSubj = -1
	} else {
		env.RealSubj = int(off)
	}

	env.MessageID = d.str(false)
	env.Supersedes = d.str(false)
	env.Date = d.str(false)
	env.XLabel = d.str(true)
	env.Organization = d.str(true)
	env.Spam = d.buffer()

	env.References = d.strs(false)
	env.InReplyTo = d.strs(false)
	env.UserHdrs = d.strs(true)

	env.Xref = d.str(false)
	env.FollowupTo = d.str(false)
	env.XCommentTo = d.str(true)
	env.Newsgroups = d.str(false)
	return env
}

func (d *decoder) body(depth int) *email.Body {
	if depth > maxDepth {
		d.fail("body nesting deeper than %d", maxDepth)
		return nil
	}

	b := &email.Body{}
	unpackBodyFlags(d.u32(), b)
	b.Offset = int64(d.u64())
	b.Length = int64(d.u64())

	b.XType = d.str(false)
	b.Subtype = d.str(false)
	b.Parameters = d.parameters()
	b.Description = d.str(true)
	b.ContentID = d.str(true)
	b.FormName = d.str(true)
	b.Filename = d.str(true)
	b.DFilename = d.str(true)

	for d.err == nil {
		switch d.u8() {
		case 0:
			return b
		case 1:
			if p := d.body(depth + 1); p != nil {
				b.Parts = append(b.Parts, p)
			}
		default:
			d.fail("bad part marker")
		}
	}
	return b
}

func (d *decoder) email() *email.Email {
	m := &email.Email{}
	unpackEmailFlags(d.u32(), m)
	m.Zone = unpackTimezone(d.u32())
	m.DateSent = timeOrZero(int64(d.u64()))
	m.Received = timeOrZero(int64(d.u64()))
	m.Lines = int(d.u32())

	m.Env = d.envelope()
	m.Body = d.body(0)
	m.Tags = d.strs(false)
	m.MaildirFlags = d.str(false)
	return m
}
