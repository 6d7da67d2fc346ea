package testutil

import (
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/hupe1980/hcache/email"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Uint32 returns a pseudo-random uint32.
func (r *RNG) Uint32() uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Uint32()
}

// Bytes returns n pseudo-random bytes.
func (r *RNG) Bytes(n int) []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	b := make([]byte, n)
	r.rand.Read(b)
	return b
}

// EmailOptions tunes the shape of generated emails.
type EmailOptions struct {
	// MaxDepth bounds MIME nesting. Zero means 2.
	MaxDepth int
	// MaxParts bounds the children of a multipart body. Zero means 3.
	MaxParts int
	// Latin1 mixes ISO-8859-1 bytes (0xE0-0xFF) into converted fields.
	Latin1 bool
	// Runtime also fills fields that are never cached.
	Runtime bool
}

// Email returns a random email with default options.
func (r *RNG) Email() *email.Email {
	return r.EmailWith(EmailOptions{})
}

// EmailWith returns a random email. All cacheable fields are populated
// with values that survive a cache round trip unchanged.
func (r *RNG) EmailWith(opts EmailOptions) *email.Email {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = 2
	}
	if opts.MaxParts <= 0 {
		opts.MaxParts = 3
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	g := gen{r: r.rand, opts: opts}
	return g.email()
}

type gen struct {
	r    *rand.Rand
	opts EmailOptions
}

const alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789 .-_"

func (g *gen) word(maxLen int) string {
	n := g.r.Intn(maxLen + 1)
	var sb strings.Builder
	for i := 0; i < n; i++ {
		sb.WriteByte(alphabet[g.r.Intn(len(alphabet))])
	}
	return sb.String()
}

// text may contain 8-bit bytes and is used for converted fields.
func (g *gen) text(maxLen int) string {
	s := g.word(maxLen)
	if !g.opts.Latin1 || s == "" || g.r.Intn(2) == 0 {
		return s
	}
	b := []byte(s)
	b[g.r.Intn(len(b))] = byte(0xE0 + g.r.Intn(0x20))
	return string(b)
}

func (g *gen) flag() bool { return g.r.Intn(2) == 1 }

func (g *gen) addresses() []email.Address {
	n := g.r.Intn(4)
	if n == 0 {
		return nil
	}
	list := make([]email.Address, n)
	for i := range list {
		list[i] = email.Address{
			Personal: g.text(12),
			Mailbox:  g.word(8) + "@example.org",
			Group:    g.r.Intn(8) == 0,
		}
	}
	return list
}

func (g *gen) strs(maxLen int, convert bool) []string {
	n := g.r.Intn(4)
	if n == 0 {
		return nil
	}
	list := make([]string, n)
	for i := range list {
		if convert {
			list[i] = g.text(maxLen)
		} else {
			list[i] = g.word(maxLen)
		}
	}
	return list
}

func (g *gen) envelope() *email.Envelope {
	env := &email.Envelope{
		ReturnPath:      g.addresses(),
		From:            g.addresses(),
		To:              g.addresses(),
		Cc:              g.addresses(),
		Bcc:             g.addresses(),
		Sender:          g.addresses(),
		ReplyTo:         g.addresses(),
		MailFollowupTo:  g.addresses(),
		XOriginalTo:     g.addresses(),
		ListPost:        g.word(20),
		ListSubscribe:   g.word(20),
		ListUnsubscribe: g.word(20),
		MessageID:       "<" + g.word(16) + "@example.org>",
		Supersedes:      g.word(10),
		Date:            g.word(24),
		XLabel:          g.text(10),
		Organization:    g.text(16),
		References:      g.strs(20, false),
		InReplyTo:       g.strs(20, false),
		UserHdrs:        g.strs(30, true),
		Xref:            g.word(12),
		FollowupTo:      g.word(12),
		XCommentTo:      g.text(12),
		Newsgroups:      g.word(12),
	}
	prefix := ""
	if g.flag() {
		prefix = "Re: "
	}
	env.SetSubject(prefix + g.text(40))
	if env.RealSubj >= len(env.Subject) {
		// Nothing follows the prefixes; records keep this as unset.
		env.RealSubj = -1
	}
	if g.flag() {
		env.Spam = &email.Buffer{Data: g.text(8)}
	}
	return env
}

func (g *gen) params() []email.Parameter {
	n := g.r.Intn(3)
	if n == 0 {
		return nil
	}
	list := make([]email.Parameter, n)
	for i := range list {
		list[i] = email.Parameter{Attribute: g.word(8), Value: g.text(16)}
	}
	return list
}

func (g *gen) body(depth int) *email.Body {
	b := &email.Body{
		Type:         email.ContentType(g.r.Intn(int(email.TypeAny) + 1)),
		Encoding:     email.Encoding(g.r.Intn(int(email.EncUUEncoded) + 1)),
		Disposition:  email.Disposition(g.r.Intn(int(email.DispNone) + 1)),
		BadSig:       g.flag(),
		ForceCharset: g.flag(),
		GoodSig:      g.flag(),
		NoConv:       g.flag(),
		UseDisp:      g.flag(),
		WarnSig:      g.flag(),
		IsAutocrypt:  g.flag(),
		Offset:       g.r.Int63n(1 << 40),
		Length:       g.r.Int63n(1 << 30),
		XType:        g.word(6),
		Subtype:      g.word(10),
		Parameters:   g.params(),
		Description:  g.text(20),
		ContentID:    g.text(12),
		FormName:     g.text(8),
		Filename:     g.text(16),
		DFilename:    g.text(16),
	}
	if depth < g.opts.MaxDepth && g.r.Intn(2) == 0 {
		b.Type = email.TypeMultipart
		n := 1 + g.r.Intn(g.opts.MaxParts)
		for i := 0; i < n; i++ {
			b.Parts = append(b.Parts, g.body(depth+1))
		}
	}
	return b
}

func (g *gen) email() *email.Email {
	e := &email.Email{
		Security:   email.SecurityFlags(g.r.Intn(1 << 13)),
		Expired:    g.flag(),
		Flagged:    g.flag(),
		MIME:       g.flag(),
		Old:        g.flag(),
		Read:       g.flag(),
		Replied:    g.flag(),
		Superseded: g.flag(),
		Trash:      g.flag(),
		Deleted:    g.flag(),
		Zone: email.Timezone{
			Hours:    uint8(g.r.Intn(24)),
			Minutes:  uint8(g.r.Intn(60)),
			Occident: g.flag(),
		},
		DateSent:     time.Unix(1_000_000_000+g.r.Int63n(1<<30), 0).UTC(),
		Received:     time.Unix(1_000_000_000+g.r.Int63n(1<<30), 0).UTC(),
		Lines:        g.r.Intn(10000),
		Env:          g.envelope(),
		Body:         g.body(0),
		Tags:         g.strs(10, false),
		MaildirFlags: []string{"", "S", "RS", "FS"}[g.r.Intn(4)],
	}
	if g.opts.Runtime {
		e.Tagged = true
		e.Changed = true
		e.Threaded = true
		e.Searched = true
		e.Matched = true
		e.Collapsed = true
		e.Limited = true
		e.NumHidden = 1 + g.r.Intn(10)
		e.Recipient = 1 + g.r.Intn(10)
		e.Pair = 1 + g.r.Intn(10)
		e.AttachValid = true
		e.MsgNo = 1 + g.r.Intn(1000)
		e.Index = 1 + g.r.Intn(1000)
		e.Path = "cur/" + g.word(12)
		e.Tree = "->"
		e.Thread = struct{}{}
		e.EData = g.word(4)
	}
	return e
}
