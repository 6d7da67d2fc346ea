package hcache

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/hcache/compress"
	"github.com/hupe1980/hcache/config"
	"github.com/hupe1980/hcache/email"
	"github.com/hupe1980/hcache/internal/fs"
	"github.com/hupe1980/hcache/internal/serial"
	"github.com/hupe1980/hcache/testutil"

	_ "github.com/hupe1980/hcache/store/leveldb"
	_ "github.com/hupe1980/hcache/store/lmdb"
	_ "github.com/hupe1980/hcache/store/sqlite"
)

const mariner = `It is an ancient Mariner,
And he stoppeth one of three.
'By thy long grey beard and glittering eye,
Now wherefore stopp'st thou me?
The Bridegroom's doors are opened wide,
And I am next of kin;
The guests are met, the feast is set:
May'st hear the merry din.'
Water, water, every where,
And all the boards did shrink;
Water, water, every where,
Nor any drop to drink.
`

func coleridge() string {
	s := strings.Repeat(mariner, 4096/len(mariner)+1)
	return s[:4096]
}

func sampleEmail(subject string) *email.Email {
	e := email.New()
	e.Env.SetSubject(subject)
	e.Env.From = []email.Address{{Personal: "Ishmael", Mailbox: "ishmael@example.com"}}
	e.Env.MessageID = "<4711@example.com>"
	e.Read = true
	e.Lines = 12
	e.DateSent = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return e
}

func openCache(t *testing.T, path, folder string, opts ...Option) *Cache {
	t.Helper()
	c, err := Open(path, folder, nil, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestFetchStore(t *testing.T) {
	c := openCache(t, t.TempDir()+"/", "mbox")
	e := sampleEmail("Re: hello")

	require.NoError(t, c.Store([]byte("1"), e, 42))

	entry, err := c.Fetch([]byte("1"), 42)
	require.NoError(t, err)
	require.NotNil(t, entry.Email)
	assert.Empty(t, cmp.Diff(e, entry.Email))
	assert.Equal(t, uint32(42), entry.UIDValidity)
	assert.Equal(t, c.CRC(), entry.CRC)
	assert.Equal(t, "hello", entry.Email.Env.RealSubject())

	entry, err = c.Fetch([]byte("1"), 43)
	require.NoError(t, err)
	assert.Nil(t, entry.Email, "uidvalidity mismatch must miss")
	assert.Equal(t, uint32(42), entry.UIDValidity)

	entry, err = c.Fetch([]byte("1"), 0)
	require.NoError(t, err)
	assert.NotNil(t, entry.Email, "zero uidvalidity skips the check")

	entry, err = c.Fetch([]byte("2"), 42)
	require.NoError(t, err)
	assert.Equal(t, Entry{}, entry)
}

func TestRandomRoundTrip(t *testing.T) {
	c := openCache(t, t.TempDir()+"/", "random")
	rng := testutil.NewRNG(7)

	for i := 0; i < 50; i++ {
		e := rng.Email()
		key := []byte(fmt.Sprint(i))
		require.NoError(t, c.Store(key, e, 1))

		entry, err := c.Fetch(key, 1)
		require.NoError(t, err)
		require.Empty(t, cmp.Diff(e, entry.Email), "iteration %d", i)
	}
}

func TestCRCInvalidation(t *testing.T) {
	dir := t.TempDir() + "/"

	c, err := Open(dir, "mbox", nil)
	require.NoError(t, err)
	require.NoError(t, c.Store([]byte("1"), sampleEmail("first"), 7))
	oldCRC := c.CRC()
	require.NoError(t, c.Close())

	cfg := config.Default()
	cfg.Spam = []config.SpamRule{{Pattern: "^X-Spam-Flag: YES", Template: "spam"}}
	c = openCache(t, dir, "mbox", WithConfig(cfg))
	require.NotEqual(t, oldCRC, c.CRC())

	entry, err := c.Fetch([]byte("1"), 7)
	require.NoError(t, err)
	assert.Nil(t, entry.Email)
	assert.Equal(t, oldCRC, entry.CRC)

	require.NoError(t, c.Store([]byte("1"), sampleEmail("second"), 7))
	entry, err = c.Fetch([]byte("1"), 7)
	require.NoError(t, err)
	require.NotNil(t, entry.Email)
	assert.Equal(t, "second", entry.Email.Env.Subject)
}

func TestCodecRoundTrip(t *testing.T) {
	subject := coleridge()
	require.Len(t, subject, 4096)

	for _, m := range compress.Methods() {
		for _, level := range []int{m.MinLevel, m.MaxLevel} {
			t.Run(fmt.Sprintf("%s/%d", m.Name, level), func(t *testing.T) {
				cfg := config.Default()
				cfg.CompressMethod = m.Name
				cfg.CompressLevel = level
				c := openCache(t, t.TempDir()+"/", "mbox", WithConfig(cfg))

				require.NoError(t, c.Store([]byte("1"), sampleEmail(subject), 1))

				entry, err := c.Fetch([]byte("1"), 1)
				require.NoError(t, err)
				require.NotNil(t, entry.Email)
				assert.Equal(t, subject, entry.Email.Env.Subject)

				// The record lives under the suffixed key, header uncompressed.
				raw, ok, err := c.FetchRaw([]byte("1-" + m.Name))
				require.NoError(t, err)
				require.True(t, ok)
				assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(raw[0:4]))
				assert.Equal(t, c.CRC(), binary.LittleEndian.Uint32(raw[4:8]))
				assert.Less(t, len(raw), len(subject))

				_, ok, err = c.FetchRaw([]byte("1"))
				require.NoError(t, err)
				assert.False(t, ok)
			})
		}
	}
}

func TestLevelClamped(t *testing.T) {
	cfg := config.Default()
	cfg.CompressMethod = "zstd"
	cfg.CompressLevel = 99
	c := openCache(t, t.TempDir()+"/", "mbox", WithConfig(cfg))

	require.NoError(t, c.Store([]byte("1"), sampleEmail("clamped"), 1))
	entry, err := c.Fetch([]byte("1"), 1)
	require.NoError(t, err)
	require.NotNil(t, entry.Email)
	assert.Equal(t, "clamped", entry.Email.Env.Subject)
}

func TestCorruptFrameIsMiss(t *testing.T) {
	for _, name := range compress.Names() {
		t.Run(name, func(t *testing.T) {
			cfg := config.Default()
			cfg.CompressMethod = name
			mc := &BasicMetricsCollector{}
			c := openCache(t, t.TempDir()+"/", "mbox", WithConfig(cfg), WithMetricsCollector(mc))

			blob := serial.AppendHeader(nil, serial.Header{UIDValidity: 1, CRC: c.CRC()})
			blob = append(blob, make([]byte, 16)...)
			require.NoError(t, c.StoreRaw([]byte("1-"+name), blob))

			entry, err := c.Fetch([]byte("1"), 1)
			require.NoError(t, err)
			assert.Nil(t, entry.Email)
			assert.Equal(t, int64(1), mc.GetStats().Corrupt)
		})
	}
}

func TestCorruptFrameDoesNotFailClose(t *testing.T) {
	for _, name := range compress.Names() {
		t.Run(name, func(t *testing.T) {
			cfg := config.Default()
			cfg.CompressMethod = name
			c, err := Open(t.TempDir()+"/", "mbox", nil, WithConfig(cfg))
			require.NoError(t, err)

			require.NoError(t, c.Store([]byte("1"), sampleEmail(coleridge()), 1))
			raw, ok, err := c.FetchRaw([]byte("1-" + name))
			require.NoError(t, err)
			require.True(t, ok)
			require.NoError(t, c.StoreRaw([]byte("1-"+name), raw[:len(raw)/2]))

			entry, err := c.Fetch([]byte("1"), 1)
			require.NoError(t, err)
			assert.Nil(t, entry.Email)

			require.NoError(t, c.Store([]byte("2"), sampleEmail("after"), 1))
			entry, err = c.Fetch([]byte("2"), 1)
			require.NoError(t, err)
			require.NotNil(t, entry.Email)
			assert.Equal(t, "after", entry.Email.Env.Subject)

			assert.NoError(t, c.Close())
		})
	}
}

func TestCorruptPayloadIsMiss(t *testing.T) {
	c := openCache(t, t.TempDir()+"/", "mbox")

	require.NoError(t, c.StoreRaw([]byte("short"), []byte{1, 2, 3}))
	entry, err := c.Fetch([]byte("short"), 0)
	require.NoError(t, err)
	assert.Equal(t, Entry{}, entry)

	blob := serial.AppendHeader(nil, serial.Header{UIDValidity: 1, CRC: c.CRC()})
	blob = append(blob, 0xff, 0xff, 0xff)
	require.NoError(t, c.StoreRaw([]byte("garbage"), blob))
	entry, err = c.Fetch([]byte("garbage"), 1)
	require.NoError(t, err)
	assert.Nil(t, entry.Email)
}

func TestMultipleFolders(t *testing.T) {
	dir := t.TempDir() + "/"
	h1 := openCache(t, dir, "A/")
	h2 := openCache(t, dir, "B/")

	assert.NotEqual(t, h1.Path(), h2.Path())
	assert.Equal(t, filepath.Dir(h1.Path()), filepath.Dir(h2.Path()))

	require.NoError(t, h1.Store([]byte("42"), sampleEmail("one"), 1))
	require.NoError(t, h2.Store([]byte("42"), sampleEmail("two"), 1))

	e1, err := h1.Fetch([]byte("42"), 1)
	require.NoError(t, err)
	e2, err := h2.Fetch([]byte("42"), 1)
	require.NoError(t, err)
	assert.Equal(t, "one", e1.Email.Env.Subject)
	assert.Equal(t, "two", e2.Email.Env.Subject)
}

func TestMultipleFoldersOneFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "headers")

	h1 := openCache(t, file, "A/")
	h2 := openCache(t, file, "B/")
	assert.Equal(t, file, h1.Path())
	assert.Equal(t, file, h2.Path())

	require.NoError(t, h1.Store([]byte("42"), sampleEmail("one"), 1))
	require.NoError(t, h2.Store([]byte("42"), sampleEmail("two"), 1))

	e1, err := h1.Fetch([]byte("42"), 1)
	require.NoError(t, err)
	e2, err := h2.Fetch([]byte("42"), 1)
	require.NoError(t, err)
	require.NotNil(t, e1.Email)
	require.NotNil(t, e2.Email)
	assert.Equal(t, "one", e1.Email.Env.Subject)
	assert.Equal(t, "two", e2.Email.Env.Subject)

	require.NoError(t, h1.Close())
	e2, err = h2.Fetch([]byte("42"), 1)
	require.NoError(t, err)
	require.NotNil(t, e2.Email)
	require.NoError(t, h2.Close())

	for _, f := range []string{"A/", "B/"} {
		c := openCache(t, file, f)
		entry, err := c.Fetch([]byte("42"), 1)
		require.NoError(t, err)
		assert.NotNil(t, entry.Email)
		require.NoError(t, c.Close())
	}
}

func TestMultipleFoldersOneFileConcurrent(t *testing.T) {
	cfg := config.Default()
	cfg.Backend = "sqlite"
	file := filepath.Join(t.TempDir(), "headers.db")

	h1 := openCache(t, file, "A/", WithConfig(cfg))
	h2 := openCache(t, file, "B/", WithConfig(cfg))

	require.NoError(t, h1.Store([]byte("42"), sampleEmail("one"), 1))
	require.NoError(t, h2.Store([]byte("42"), sampleEmail("two"), 1))

	e1, err := h1.Fetch([]byte("42"), 1)
	require.NoError(t, err)
	e2, err := h2.Fetch([]byte("42"), 1)
	require.NoError(t, err)
	assert.Equal(t, "one", e1.Email.Env.Subject)
	assert.Equal(t, "two", e2.Email.Env.Subject)
}

func TestCompressedAndPlainDoNotCollide(t *testing.T) {
	file := filepath.Join(t.TempDir(), "headers")
	zstdCfg := config.Default()
	zstdCfg.CompressMethod = "zstd"

	c, err := Open(file, "mbox", nil)
	require.NoError(t, err)
	require.NoError(t, c.Store([]byte("k"), sampleEmail("plain"), 1))
	require.NoError(t, c.Close())

	c, err = Open(file, "mbox", nil, WithConfig(zstdCfg))
	require.NoError(t, err)
	entry, err := c.Fetch([]byte("k"), 1)
	require.NoError(t, err)
	assert.Nil(t, entry.Email)
	require.NoError(t, c.Store([]byte("k"), sampleEmail("zstd"), 1))
	require.NoError(t, c.Close())

	c = openCache(t, file, "mbox")
	entry, err = c.Fetch([]byte("k"), 1)
	require.NoError(t, err)
	require.NotNil(t, entry.Email)
	assert.Equal(t, "plain", entry.Email.Env.Subject)
}

func TestUpsertAndDelete(t *testing.T) {
	c := openCache(t, t.TempDir()+"/", "mbox")
	key := []byte("7")

	require.NoError(t, c.Store(key, sampleEmail("v1"), 1))
	require.NoError(t, c.Store(key, sampleEmail("v2"), 1))
	entry, err := c.Fetch(key, 1)
	require.NoError(t, err)
	assert.Equal(t, "v2", entry.Email.Env.Subject)

	require.NoError(t, c.Delete(key))
	entry, err = c.Fetch(key, 1)
	require.NoError(t, err)
	assert.Nil(t, entry.Email)
}

func TestDeleteIdempotent(t *testing.T) {
	for _, backend := range []string{"bolt", "leveldb", "lmdb", "sqlite"} {
		t.Run(backend, func(t *testing.T) {
			cfg := config.Default()
			cfg.Backend = backend
			cfg.CompressMethod = "lz4"
			c := openCache(t, t.TempDir()+"/", "mbox", WithConfig(cfg))

			require.NoError(t, c.Store([]byte("kept"), sampleEmail("kept"), 1))
			require.NoError(t, c.Delete([]byte("never-stored")))
			require.NoError(t, c.Delete([]byte("never-stored")))

			entry, err := c.Fetch([]byte("kept"), 1)
			require.NoError(t, err)
			require.NotNil(t, entry.Email)
			assert.Equal(t, "kept", entry.Email.Env.Subject)
		})
	}
}

func TestLMDBRoundTrip(t *testing.T) {
	for _, method := range []string{"", "zstd"} {
		t.Run("compress="+method, func(t *testing.T) {
			cfg := config.Default()
			cfg.Backend = "lmdb"
			cfg.CompressMethod = method
			file := filepath.Join(t.TempDir(), "headers")

			rng := testutil.NewRNG(11)
			emails := make([]*email.Email, 30)

			c, err := Open(file, "imaps://host/INBOX", nil, WithConfig(cfg))
			require.NoError(t, err)
			for i := range emails {
				emails[i] = rng.Email()
				key := []byte(fmt.Sprint(i))
				require.NoError(t, c.Store(key, emails[i], 7))

				// Read back inside the pending write transaction.
				entry, err := c.Fetch(key, 7)
				require.NoError(t, err)
				require.Empty(t, cmp.Diff(emails[i], entry.Email), "record %d", i)
			}

			// Decoded records own their memory.
			first, err := c.Fetch([]byte("0"), 7)
			require.NoError(t, err)
			require.NoError(t, c.Store([]byte("0"), sampleEmail("replaced"), 7))
			assert.Empty(t, cmp.Diff(emails[0], first.Email))
			emails[0] = sampleEmail("replaced")

			require.NoError(t, c.StoreRaw([]byte("/UIDVALIDITY"), []byte{7, 0, 0, 0}))
			raw, ok, err := c.FetchRaw([]byte("/UIDVALIDITY"))
			require.NoError(t, err)
			require.True(t, ok)
			require.NoError(t, c.StoreRaw([]byte("/UIDVALIDITY"), []byte{8, 0, 0, 0}))
			assert.Equal(t, []byte{7, 0, 0, 0}, raw)

			require.NoError(t, c.Delete([]byte("1")))
			require.NoError(t, c.Close())

			// Committed on close, read back through a read transaction.
			c = openCache(t, file, "imaps://host/INBOX", WithConfig(cfg))
			for i := range emails {
				entry, err := c.Fetch([]byte(fmt.Sprint(i)), 7)
				require.NoError(t, err)
				if i == 1 {
					assert.Nil(t, entry.Email)
					continue
				}
				require.Empty(t, cmp.Diff(emails[i], entry.Email), "record %d", i)
			}
			raw, ok, err = c.FetchRaw([]byte("/UIDVALIDITY"))
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, []byte{8, 0, 0, 0}, raw)
		})
	}
}

func TestRaw(t *testing.T) {
	cfg := config.Default()
	cfg.CompressMethod = "zlib"
	c := openCache(t, t.TempDir()+"/", "imaps://host/INBOX", WithConfig(cfg))

	_, ok, err := c.FetchRaw([]byte("/UIDVALIDITY"))
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.StoreRaw([]byte("/UIDVALIDITY"), []byte{1, 2, 3, 4}))
	v, ok, err := c.FetchRaw([]byte("/UIDVALIDITY"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2, 3, 4}, v)

	// The copy is ours.
	v[0] = 9
	v2, _, err := c.FetchRaw([]byte("/UIDVALIDITY"))
	require.NoError(t, err)
	assert.Equal(t, byte(1), v2[0])

	require.NoError(t, c.DeleteRaw([]byte("/UIDVALIDITY")))
	_, ok, err = c.FetchRaw([]byte("/UIDVALIDITY"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestZeroUIDValidityUsesClock(t *testing.T) {
	stamp := time.Date(2025, 6, 1, 8, 30, 0, 0, time.UTC)
	c := openCache(t, t.TempDir()+"/", "maildir", WithClock(func() time.Time { return stamp }))

	require.NoError(t, c.Store([]byte("cur/1700000000.M1P2.host:2,S"), sampleEmail("flat"), 0))
	entry, err := c.Fetch([]byte("cur/1700000000.M1P2.host:2,S"), 0)
	require.NoError(t, err)
	require.NotNil(t, entry.Email)

	assert.Equal(t, uint32(stamp.Unix()), entry.UIDValidity)
	assert.True(t, entry.StoredAt().Equal(stamp))
	assert.True(t, entry.Fresh(stamp.Add(-time.Hour)))
	assert.True(t, entry.Fresh(stamp))
	assert.False(t, entry.Fresh(stamp.Add(time.Second)))
	assert.False(t, Entry{UIDValidity: entry.UIDValidity}.Fresh(stamp), "no email, not fresh")
}

func TestCharsetConversion(t *testing.T) {
	cfg := config.Default()
	cfg.Charset = "iso-8859-1"
	c := openCache(t, t.TempDir()+"/", "mbox", WithConfig(cfg))

	e := sampleEmail("caf\xe9")
	require.NoError(t, c.Store([]byte("1"), e, 1))

	raw, ok, err := c.FetchRaw([]byte("1"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, string(raw), "café", "stored as UTF-8")

	entry, err := c.Fetch([]byte("1"), 1)
	require.NoError(t, err)
	assert.Equal(t, "caf\xe9", entry.Email.Env.Subject)
}

func TestUnlinkAndRetry(t *testing.T) {
	file := filepath.Join(t.TempDir(), "headers")
	require.NoError(t, os.WriteFile(file, []byte("this is not a bolt database"), 0o600))

	mc := &BasicMetricsCollector{}
	c := openCache(t, file, "mbox", WithMetricsCollector(mc))

	require.NoError(t, c.Store([]byte("1"), sampleEmail("recovered"), 1))
	entry, err := c.Fetch([]byte("1"), 1)
	require.NoError(t, err)
	assert.Equal(t, "recovered", entry.Email.Env.Subject)

	stats := mc.GetStats()
	assert.Equal(t, int64(1), stats.OpenCount)
	assert.Equal(t, int64(0), stats.OpenErrors)
}

func TestOpenErrorWhenRemoveFails(t *testing.T) {
	file := filepath.Join(t.TempDir(), "headers")
	require.NoError(t, os.WriteFile(file, []byte("this is not a bolt database"), 0o600))

	ffs := fs.NewFaultyFS(nil)
	ffs.AddRule(fs.OpRemove, "headers", fs.Fault{})
	mc := &BasicMetricsCollector{}

	_, err := Open(file, "mbox", nil, withFileSystem(ffs), WithMetricsCollector(mc))
	var oerr *OpenError
	require.ErrorAs(t, err, &oerr)
	assert.Equal(t, file, oerr.Path)
	assert.Equal(t, "bolt", oerr.Backend)
	assert.ErrorIs(t, err, fs.ErrInjected)
	assert.Equal(t, 1, ffs.Calls(fs.OpRemove))
	assert.Equal(t, int64(1), mc.GetStats().OpenErrors)

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, "this is not a bolt database", string(data))
}

func TestWithCreateFalse(t *testing.T) {
	file := filepath.Join(t.TempDir(), "headers")

	_, err := Open(file, "mbox", nil, WithCreate(false))
	var oerr *OpenError
	require.ErrorAs(t, err, &oerr)
	_, err = os.Stat(file)
	assert.ErrorIs(t, err, os.ErrNotExist)

	c, err := Open(file, "mbox", nil)
	require.NoError(t, err)
	require.NoError(t, c.Close())

	c = openCache(t, file, "mbox", WithCreate(false))
	assert.Equal(t, file, c.Path())
}

func TestOpenErrors(t *testing.T) {
	_, err := Open("", "mbox", nil)
	assert.ErrorIs(t, err, ErrEmptyPath)

	cfg := config.Default()
	cfg.Backend = "tokyocabinet"
	_, err = Open(t.TempDir()+"/", "mbox", nil, WithConfig(cfg))
	assert.ErrorIs(t, err, ErrUnknownBackend)

	cfg = config.Default()
	cfg.CompressMethod = "brotli"
	_, err = Open(t.TempDir()+"/", "mbox", nil, WithConfig(cfg))
	assert.ErrorIs(t, err, ErrUnknownCodec)

	cfg = config.Default()
	cfg.Charset = "no-such-charset"
	_, err = Open(t.TempDir()+"/", "mbox", nil, WithConfig(cfg))
	assert.Error(t, err)
}

func TestClosed(t *testing.T) {
	c, err := Open(t.TempDir()+"/", "mbox", nil)
	require.NoError(t, err)
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	_, err = c.Fetch([]byte("1"), 0)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, c.Store([]byte("1"), email.New(), 0), ErrClosed)
	assert.ErrorIs(t, c.Delete([]byte("1")), ErrClosed)
	_, _, err = c.FetchRaw([]byte("1"))
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, c.StoreRaw([]byte("1"), nil), ErrClosed)
	assert.ErrorIs(t, c.DeleteRaw([]byte("1")), ErrClosed)
}

func TestStoreNil(t *testing.T) {
	c := openCache(t, t.TempDir()+"/", "mbox")
	assert.ErrorIs(t, c.Store([]byte("1"), nil, 1), ErrNilEmail)
}

func TestStoreTooDeep(t *testing.T) {
	c := openCache(t, t.TempDir()+"/", "mbox")

	e := sampleEmail("deep")
	b := e.Body
	for i := 0; i < 70; i++ {
		child := &email.Body{}
		b.Parts = []*email.Body{child}
		b = child
	}
	assert.ErrorIs(t, c.Store([]byte("1"), e, 1), ErrBodyTooDeep)

	_, ok, err := c.FetchRaw([]byte("1"))
	require.NoError(t, err)
	assert.False(t, ok, "nothing stored")

	cyclic := sampleEmail("cycle")
	cyclic.Body.Parts = []*email.Body{cyclic.Body}
	assert.ErrorIs(t, c.Store([]byte("2"), cyclic, 1), ErrBodyTooDeep)
}

func TestMetrics(t *testing.T) {
	mc := &BasicMetricsCollector{}
	c := openCache(t, t.TempDir()+"/", "mbox", WithMetricsCollector(mc))

	require.NoError(t, c.Store([]byte("1"), sampleEmail("m"), 5))
	_, err := c.Fetch([]byte("1"), 5) // hit
	require.NoError(t, err)
	_, err = c.Fetch([]byte("1"), 6) // rejected
	require.NoError(t, err)
	_, err = c.Fetch([]byte("2"), 5) // miss
	require.NoError(t, err)
	require.NoError(t, c.Delete([]byte("1")))

	stats := mc.GetStats()
	assert.Equal(t, int64(1), stats.OpenCount)
	assert.Equal(t, int64(1), stats.StoreCount)
	assert.Positive(t, stats.StoreBytes)
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Rejected)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(0), stats.Corrupt)
	assert.Equal(t, int64(1), stats.DeleteCount)
	assert.Equal(t, int64(0), stats.DeleteErrors)
}

func TestFetchOutcomeString(t *testing.T) {
	assert.Equal(t, "hit", FetchHit.String())
	assert.Equal(t, "rejected", FetchRejected.String())
	assert.Equal(t, "unknown", FetchOutcome(200).String())
}
