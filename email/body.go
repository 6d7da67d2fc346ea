package email

import "strings"

// ContentType is the MIME major type.
type ContentType uint8

const (
	TypeOther ContentType = iota
	TypeAudio
	TypeApplication
	TypeImage
	TypeMessage
	TypeModel
	TypeMultipart
	TypeText
	TypeVideo
	TypeAny
)

var contentTypeNames = [...]string{
	"x-unknown", "audio", "application", "image", "message",
	"model", "multipart", "text", "video", "*",
}

func (t ContentType) String() string {
	if int(t) < len(contentTypeNames) {
		return contentTypeNames[t]
	}
	return "x-unknown"
}

// Encoding is the Content-Transfer-Encoding.
type Encoding uint8

const (
	EncOther Encoding = iota
	Enc7Bit
	Enc8Bit
	EncQuotedPrintable
	EncBase64
	EncBinary
	EncUUEncoded
)

// Disposition is the Content-Disposition.
type Disposition uint8

const (
	DispInline Disposition = iota
	DispAttach
	DispFormData
	DispNone
)

// Parameter is one MIME parameter (Content-Type or Content-Disposition).
type Parameter struct {
	Attribute string
	Value     string
}

// Body is one MIME part.
type Body struct {
	Type        ContentType
	Encoding    Encoding
	Disposition Disposition

	BadSig       bool
	ForceCharset bool
	GoodSig      bool
	NoConv       bool
	UseDisp      bool
	WarnSig      bool
	IsAutocrypt  bool

	Offset int64
	Length int64

	XType       string
	Subtype     string
	Parameters  []Parameter
	Description string
	ContentID   string
	FormName    string
	Filename    string
	DFilename   string

	Parts []*Body
}

// Param returns the value of the named parameter, matched
// case-insensitively, or "" when absent.
func (b *Body) Param(attr string) string {
	for _, p := range b.Parameters {
		if strings.EqualFold(p.Attribute, attr) {
			return p.Value
		}
	}
	return ""
}

// MIMEType returns "type/subtype".
func (b *Body) MIMEType() string {
	major := b.Type.String()
	if b.Type == TypeOther && b.XType != "" {
		major = b.XType
	}
	return major + "/" + b.Subtype
}

// Walk visits b and its descendants depth first. Returning false from fn
// stops the walk.
func (b *Body) Walk(fn func(*Body) bool) bool {
	if b == nil {
		return true
	}
	if !fn(b) {
		return false
	}
	for _, p := range b.Parts {
		if !p.Walk(fn) {
			return false
		}
	}
	return true
}
