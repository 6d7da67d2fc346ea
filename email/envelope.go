package email

import "strings"

// Address is one entry of an address list. Group markers have Group set
// and carry the group name in Mailbox; a group end marker has both
// Mailbox and Personal empty.
type Address struct {
	Personal string
	Mailbox  string
	Group    bool
}

// String formats the address the way it would appear in a header.
func (a Address) String() string {
	switch {
	case a.Group && a.Mailbox == "":
		return ";"
	case a.Group:
		return a.Mailbox + ":"
	case a.Personal == "":
		return a.Mailbox
	default:
		return a.Personal + " <" + a.Mailbox + ">"
	}
}

// Buffer is an optional raw byte string. A nil *Buffer is absent; a
// non-nil one may still be empty.
type Buffer struct {
	Data string
}

// Envelope holds the RFC 5322 header fields of a message.
type Envelope struct {
	ReturnPath     []Address
	From           []Address
	To             []Address
	Cc             []Address
	Bcc            []Address
	Sender         []Address
	ReplyTo        []Address
	MailFollowupTo []Address
	XOriginalTo    []Address

	ListPost        string
	ListSubscribe   string
	ListUnsubscribe string
	Subject         string
	// RealSubj is the byte offset into Subject where the subject proper
	// starts once reply prefixes are stripped, or -1 when unset.
	RealSubj     int
	MessageID    string
	Supersedes   string
	Date         string
	XLabel       string
	Organization string
	Spam         *Buffer
	References   []string
	InReplyTo    []string
	UserHdrs     []string
	Xref         string
	FollowupTo   string
	XCommentTo   string
	Newsgroups   string
}

// RealSubject returns the subject without reply prefixes.
func (env *Envelope) RealSubject() string {
	if env.RealSubj < 0 || env.RealSubj > len(env.Subject) {
		return env.Subject
	}
	return env.Subject[env.RealSubj:]
}

// SetSubject sets Subject and derives RealSubj by skipping any leading
// "Re:" / "Fwd:" style prefixes.
func (env *Envelope) SetSubject(s string) {
	env.Subject = s
	off := 0
	for {
		rest := s[off:]
		trimmed := strings.TrimLeft(rest, " \t")
		lower := strings.ToLower(trimmed)
		var n int
		switch {
		case strings.HasPrefix(lower, "re:"):
			n = 3
		case strings.HasPrefix(lower, "fw:"):
			n = 3
		case strings.HasPrefix(lower, "fwd:"):
			n = 4
		case strings.HasPrefix(lower, "aw:"):
			n = 3
		default:
			off += len(rest) - len(trimmed)
			env.RealSubj = off
			return
		}
		off += len(rest) - len(trimmed) + n
	}
}
