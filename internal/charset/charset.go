// Package charset converts header strings between the configured process
// charset and UTF-8.
package charset

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
)

// ErrUnsupported is returned for charset names that are known but have no
// available codec.
var ErrUnsupported = errors.New("charset: unsupported")

// IsUTF8 reports whether name denotes UTF-8. The empty name counts as
// UTF-8.
func IsUTF8(name string) bool {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8":
		return true
	}
	return false
}

// IsASCII reports whether s only contains 7-bit bytes.
func IsASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// Lookup resolves a charset name through the IANA registry, falling back to
// the WHATWG labels (which know aliases like "latin1").
func Lookup(name string) (encoding.Encoding, error) {
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil || enc == nil {
		if e2, err2 := htmlindex.Get(name); err2 == nil {
			return e2, nil
		}
	}
	if err != nil {
		return nil, fmt.Errorf("charset %q: %w", name, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnsupported, name)
	}
	return enc, nil
}

// Converter transcodes between one charset and UTF-8. A nil *Converter is
// valid and converts nothing, which is what a UTF-8 process uses.
type Converter struct {
	name string
	enc  encoding.Encoding
}

// New returns a Converter for name, or nil when name is UTF-8.
func New(name string) (*Converter, error) {
	if IsUTF8(name) {
		return nil, nil
	}
	enc, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	if enc == unicode.UTF8 {
		return nil, nil
	}
	return &Converter{name: name, enc: enc}, nil
}

// Name returns the charset name the converter was built for.
func (c *Converter) Name() string {
	if c == nil {
		return "utf-8"
	}
	return c.name
}

// Active reports whether strings need converting at all.
func (c *Converter) Active() bool { return c != nil }

// ToUTF8 converts s from the charset to UTF-8. ASCII strings and failed
// conversions are returned unchanged.
func (c *Converter) ToUTF8(s string) string {
	if c == nil || IsASCII(s) {
		return s
	}
	out, err := c.enc.NewDecoder().String(s)
	if err != nil {
		return s
	}
	return out
}

// FromUTF8 converts s from UTF-8 to the charset. ASCII strings and failed
// conversions are returned unchanged.
func (c *Converter) FromUTF8(s string) string {
	if c == nil || IsASCII(s) {
		return s
	}
	out, err := c.enc.NewEncoder().String(s)
	if err != nil {
		return s
	}
	return out
}
