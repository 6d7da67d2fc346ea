package imapstate

import (
	"path/filepath"
	"testing"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/hcache/email"
)

func TestNamer(t *testing.T) {
	tests := []struct {
		folder string
		want   string
	}{
		{"imaps://user@mail.example.com/INBOX", "mail.example.com/INBOX.hcache"},
		{"imap://mail.example.com:143/Lists/golang-nuts", "mail.example.com:143/Lists/golang-nuts.hcache"},
		{"INBOX", "INBOX.hcache"},
		{"/INBOX/../../etc/passwd", "etc/passwd.hcache"},
	}
	for _, tt := range tests {
		got, err := Namer(tt.folder)
		require.NoError(t, err, tt.folder)
		assert.Equal(t, tt.want, got, tt.folder)
	}

	_, err := Namer("")
	assert.Error(t, err)
}

func TestUIDKey(t *testing.T) {
	assert.Equal(t, []byte("4711"), UIDKey(4711))
	assert.Equal(t, []byte("4294967295"), UIDKey(^uint32(0)))
}

func TestSeqSet(t *testing.T) {
	b, err := ParseSeqSet("1:3,5")
	require.NoError(t, err)
	assert.Equal(t, []uint32{1, 2, 3, 5}, b.ToArray())
	assert.Equal(t, "1:3,5", FormatSeqSet(b))

	b, err = ParseSeqSet("12:9,7,1:5,4")
	require.NoError(t, err)
	assert.Equal(t, "1:5,7,9:12", FormatSeqSet(b))

	assert.Equal(t, "", FormatSeqSet(roaring.New()))
	assert.Equal(t, "", FormatSeqSet(nil))
	assert.Equal(t, "42", FormatSeqSet(roaring.BitmapOf(42)))

	b, err = ParseSeqSet("")
	require.NoError(t, err)
	assert.True(t, b.IsEmpty())

	for _, bad := range []string{"0", "1:*", "a", "1,,2", "1:2:3", "4294967296"} {
		_, err := ParseSeqSet(bad)
		assert.ErrorIs(t, err, ErrSeqSet, bad)
	}
}

func openState(t *testing.T) *State {
	t.Helper()
	s, err := Open(t.TempDir(), "imaps://user@mail.example.com/INBOX")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestState(t *testing.T) {
	s := openState(t)
	assert.Equal(t, "INBOX.hcache", filepath.Base(s.Cache().Path()))

	_, ok, err := s.UIDValidity()
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SetUIDValidity(1700000000))
	require.NoError(t, s.SetUIDNext(4712))
	require.NoError(t, s.SetModSeq(1<<40+3))
	require.NoError(t, s.SetUIDSeqSet(roaring.BitmapOf(1, 2, 3, 5, 4711)))

	uv, ok, err := s.UIDValidity()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint32(1700000000), uv)

	next, ok, err := s.UIDNext()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint32(4712), next)

	ms, ok, err := s.ModSeq()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(1<<40+3), ms)

	set, ok, err := s.UIDSeqSet()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []uint32{1, 2, 3, 5, 4711}, set.ToArray())

	raw, ok, err := s.Cache().FetchRaw([]byte(KeyUIDSeqSet))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "1:3,5,4711\x00", string(raw))

	require.NoError(t, s.Reset())
	_, ok, err = s.ModSeq()
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = s.UIDSeqSet()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestWrongLengthIsMissing(t *testing.T) {
	s := openState(t)

	require.NoError(t, s.Cache().StoreRaw([]byte(KeyUIDValidity), []byte{1, 2, 3}))
	_, ok, err := s.UIDValidity()
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Cache().StoreRaw([]byte(KeyModSeq), []byte{1, 2, 3, 4}))
	_, ok, err = s.ModSeq()
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Cache().StoreRaw([]byte(KeyUIDSeqSet), []byte("1:x\x00")))
	_, ok, err = s.UIDSeqSet()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMessages(t *testing.T) {
	s := openState(t)

	e := email.New()
	e.Env.SetSubject("Re: status")
	require.NoError(t, s.StoreMessage(17, e, 99))

	got, err := s.Message(17, 99)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Re: status", got.Env.Subject)

	got, err = s.Message(17, 100)
	require.NoError(t, err)
	assert.Nil(t, got, "new UIDVALIDITY epoch")

	require.NoError(t, s.DeleteMessage(17))
	got, err = s.Message(17, 99)
	require.NoError(t, err)
	assert.Nil(t, got)
}
