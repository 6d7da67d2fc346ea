package serial

import (
	"encoding/binary"

	"github.com/hupe1980/hcache/email"
	"github.com/hupe1980/hcache/internal/charset"
)

type encoder struct {
	buf  []byte
	conv *charset.Converter
	err  error
}

func (e *encoder) u8(v byte) { e.buf = append(e.buf, v) }

func (e *encoder) u32(v uint32) { e.buf = binary.LittleEndian.AppendUint32(e.buf, v) }

func (e *encoder) u64(v uint64) { e.buf = binary.LittleEndian.AppendUint64(e.buf, v) }

// str writes a NUL-terminated, size-prefixed string. convert selects the
// process charset -> UTF-8 transcoding.
func (e *encoder) str(s string, convert bool) {
	if s == "" {
		e.u32(0)
		return
	}
	if convert {
		s = e.conv.ToUTF8(s)
	}
	e.u32(uint32(len(s) + 1))
	e.buf = append(e.buf, s...)
	e.buf = append(e.buf, 0)
}

func (e *encoder) strs(list []string, convert bool) {
	e.u32(uint32(len(list)))
	for _, s := range list {
		e.str(s, convert)
	}
}

func (e *encoder) buffer(b *email.Buffer) {
	if b == nil {
		e.u32(0)
		return
	}
	e.u32(1)
	e.str(b.Data, true)
}

func (e *encoder) addresses(list []email.Address) {
	e.u32(uint32(len(list)))
	for _, a := range list {
		e.str(a.Personal, true)
		e.str(a.Mailbox, false)
		e.u32(boolBit(a.Group, 0))
	}
}

func (e *encoder) parameters(list []email.Parameter) {
	e.u32(uint32(len(list)))
	for _, p := range list {
		e.str(p.Attribute, false)
		e.str(p.Value, true)
	}
}

func (e *encoder) envelope(env *email.Envelope) {
	if env == nil {
		env = &email.Envelope{RealSubj: -1}
	}

	e.addresses(env.ReturnPath)
	e.addresses(env.From)
	e.addresses(env.To)
	e.addresses(env.Cc)
	e.addresses(env.Bcc)
	e.addresses(env.Sender)
	e.addresses(env.ReplyTo)
	e.addresses(env.MailFollowupTo)
	e.addresses(env.XOriginalTo)

	e.str(env.ListPost, true)
	e.str(env.ListSubscribe, true)
	e.str(env.ListUnsubscribe, true)
	e.str(env.Subject, true)
	// An offset at the end of Subject leaves no subject proper; it is
	// stored as unset.
	if env.RealSubj < 0 || env.RealSubj >= len(env.Subject) {
		e.u32(noRealSubj)
	} else {
		e.u32(uint32(env.RealSubj))
	}

	e.str(env.MessageID, false)
	e.str(env.Supersedes, false)
	e.str(env.Date, false)
	e.str(env.XLabel, true)
	e.str(env.Organization, true)
	e.buffer(env.Spam)

	e.strs(env.References, false)
	e.strs(env.InReplyTo, false)
	e.strs(env.UserHdrs, true)

	e.str(env.Xref, false)
	e.str(env.FollowupTo, false)
	e.str(env.XCommentTo, true)
	e.str(env.Newsgroups, false)
}

func (e *encoder) body(b *email.Body, depth int) {
	if e.err != nil {
		return
	}
	if depth > maxDepth {
		e.err = ErrTooDeep
		return
	}
	if b == nil {
		b = &email.Body{}
	}

	e.u32(packBodyFlags(b))
	e.u64(uint64(b.Offset))
	e.u64(uint64(b.Length))

	e.str(b.XType, false)
	e.str(b.Subtype, false)
	e.parameters(b.Parameters)
	e.str(b.Description, true)
	e.str(b.ContentID, true)
	e.str(b.FormName, true)
	e.str(b.Filename, true)
	e.str(b.DFilename, true)

	for _, p := range b.Parts {
		if p == nil {
			continue
		}
		e.u8(1)
		e.body(p, depth+1)
	}
	e.u8(0)
}

func (e *encoder) email(m *email.Email) {
	e.u32(packEmailFlags(m))
	e.u32(packTimezone(m.Zone))
	e.u64(uint64(unixOrZero(m.DateSent)))
	e.u64(uint64(unixOrZero(m.Received)))
	e.u32(uint32(m.Lines))

	e.envelope(m.Env)
	e.body(m.Body, 0)
	e.strs(m.Tags, false)
	e.str(m.MaildirFlags, false)
}
