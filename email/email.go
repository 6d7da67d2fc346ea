package email

import "time"

// SecurityFlags describes the crypto state of a message or part.
type SecurityFlags uint16

const (
	SecEncrypt SecurityFlags = 1 << iota
	SecSign
	SecGoodSign
	SecBadSign
	SecPartSign
	SecSignOpaque
	SecKeyBlock
	SecInline
	SecOppEncrypt
	SecAutocrypt
	SecAutocryptOverride
	SecApplicationPGP
	SecApplicationSMIME
)

// Has reports whether all bits of f are set.
func (s SecurityFlags) Has(f SecurityFlags) bool { return s&f == f }

// Timezone is the sender's UTC offset as parsed from the Date header.
type Timezone struct {
	Hours    uint8 // 0..23
	Minutes  uint8 // 0..59
	Occident bool  // west of UTC
}

// Offset returns the zone offset in seconds east of UTC.
func (tz Timezone) Offset() int {
	secs := int(tz.Hours)*3600 + int(tz.Minutes)*60
	if tz.Occident {
		return -secs
	}
	return secs
}

// Email is a parsed message.
type Email struct {
	// Cacheable.
	Security   SecurityFlags
	Expired    bool
	Flagged    bool
	MIME       bool
	Old        bool
	Read       bool
	Replied    bool
	Superseded bool
	Trash      bool
	Deleted    bool

	Zone     Timezone
	DateSent time.Time
	Received time.Time
	Lines    int

	Env          *Envelope
	Body         *Body
	Tags         []string
	MaildirFlags string

	// Runtime only.
	Tagged      bool
	Changed     bool
	Threaded    bool
	Searched    bool
	Matched     bool
	Collapsed   bool
	Limited     bool
	NumHidden   int
	Recipient   int
	Pair        int
	AttachValid bool
	MsgNo       int
	Index       int
	Path        string
	Tree        string
	Thread      any
	EData       any
}

// New returns an Email with an empty envelope and a text/plain body.
func New() *Email {
	return &Email{
		Env:  &Envelope{RealSubj: -1},
		Body: &Body{Type: TypeText, Subtype: "plain", Disposition: DispInline},
	}
}

// HasTag reports whether name is among the message's tags.
func (e *Email) HasTag(name string) bool {
	for _, t := range e.Tags {
		if t == name {
			return true
		}
	}
	return false
}
