package charset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsUTF8(t *testing.T) {
	assert.True(t, IsUTF8(""))
	assert.True(t, IsUTF8("UTF-8"))
	assert.True(t, IsUTF8(" utf8 "))
	assert.False(t, IsUTF8("iso-8859-1"))
}

func TestNewUTF8IsNil(t *testing.T) {
	c, err := New("utf-8")
	require.NoError(t, err)
	assert.Nil(t, c)
	assert.False(t, c.Active())
	assert.Equal(t, "caf\xe9", c.ToUTF8("caf\xe9"))
	assert.Equal(t, "utf-8", c.Name())
}

func TestLatin1RoundTrip(t *testing.T) {
	c, err := New("ISO-8859-1")
	require.NoError(t, err)
	require.True(t, c.Active())

	latin := "caf\xe9"
	utf := c.ToUTF8(latin)
	assert.Equal(t, "café", utf)
	assert.Equal(t, latin, c.FromUTF8(utf))

	// ASCII passes through untouched.
	assert.Equal(t, "plain", c.ToUTF8("plain"))
}

func TestLookupAlias(t *testing.T) {
	enc, err := Lookup("latin1")
	require.NoError(t, err)
	assert.NotNil(t, enc)
}

func TestUnknownCharset(t *testing.T) {
	_, err := New("no-such-charset")
	assert.Error(t, err)
}

func TestFailedConversionKeepsInput(t *testing.T) {
	c, err := New("ISO-8859-1")
	require.NoError(t, err)

	// U+4E2D has no Latin-1 encoding.
	assert.Equal(t, "中", c.FromUTF8("中"))
}
