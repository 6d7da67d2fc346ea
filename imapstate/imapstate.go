// Package imapstate keeps the per-mailbox IMAP bookkeeping of a header
// cache: the UIDVALIDITY, UIDNEXT and HIGHESTMODSEQ of the last session and
// the set of UIDs seen, next to the cached headers keyed by UID.
package imapstate

import (
	"encoding/binary"
	"fmt"
	"net/url"
	"path"
	"strconv"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/hcache"
	"github.com/hupe1980/hcache/email"
)

// Raw record keys.
const (
	KeyUIDValidity = "/UIDVALIDITY"
	KeyUIDNext     = "/UIDNEXT"
	KeyModSeq      = "/MODSEQ"
	KeyUIDSeqSet   = "UIDSEQSET"
)

// Namer names the database of a mailbox "<mailbox>.hcache", with the
// mailbox hierarchy mapped to directories. Remote folders are named by
// host and path.
func Namer(folder string) (string, error) {
	name := folder
	if hcache.IsURL(folder) {
		u, err := url.Parse(folder)
		if err != nil {
			return "", fmt.Errorf("imapstate: %w", err)
		}
		name = u.Host + "/" + u.Path
	}
	name = path.Clean("/" + name)[1:]
	if name == "" {
		return "", fmt.Errorf("imapstate: no mailbox in %q", folder)
	}
	return name + ".hcache", nil
}

// UIDKey is the record key of the message with the given UID.
func UIDKey(uid uint32) []byte {
	return strconv.AppendUint(nil, uint64(uid), 10)
}

// State is a header cache for one IMAP mailbox.
type State struct {
	cache *hcache.Cache
}

// Open opens the cache of folder below the cache directory dir.
func Open(dir, folder string, opts ...hcache.Option) (*State, error) {
	c, err := hcache.Open(dir, folder, Namer, opts...)
	if err != nil {
		return nil, err
	}
	return &State{cache: c}, nil
}

// Cache returns the underlying header cache.
func (s *State) Cache() *hcache.Cache { return s.cache }

// Close closes the underlying cache.
func (s *State) Close() error { return s.cache.Close() }

// Message fetches the cached header of uid. Headers from another
// UIDVALIDITY epoch are misses.
func (s *State) Message(uid, uidvalidity uint32) (*email.Email, error) {
	entry, err := s.cache.Fetch(UIDKey(uid), uidvalidity)
	if err != nil {
		return nil, err
	}
	return entry.Email, nil
}

// StoreMessage caches the header of uid.
func (s *State) StoreMessage(uid uint32, e *email.Email, uidvalidity uint32) error {
	return s.cache.Store(UIDKey(uid), e, uidvalidity)
}

// DeleteMessage drops the cached header of uid.
func (s *State) DeleteMessage(uid uint32) error {
	return s.cache.Delete(UIDKey(uid))
}

// fixed fetches a raw record of exactly n bytes. Any other length is
// treated as missing.
func (s *State) fixed(key string, n int) ([]byte, bool, error) {
	v, ok, err := s.cache.FetchRaw([]byte(key))
	if err != nil || !ok {
		return nil, false, err
	}
	if len(v) != n {
		return nil, false, nil
	}
	return v, true, nil
}

func (s *State) fetch32(key string) (uint32, bool, error) {
	v, ok, err := s.fixed(key, 4)
	if !ok {
		return 0, false, err
	}
	return binary.LittleEndian.Uint32(v), true, nil
}

func (s *State) store32(key string, v uint32) error {
	return s.cache.StoreRaw([]byte(key), binary.LittleEndian.AppendUint32(nil, v))
}

// UIDValidity returns the stored UIDVALIDITY.
func (s *State) UIDValidity() (uint32, bool, error) { return s.fetch32(KeyUIDValidity) }

// SetUIDValidity stores the UIDVALIDITY.
func (s *State) SetUIDValidity(v uint32) error { return s.store32(KeyUIDValidity, v) }

// UIDNext returns the stored UIDNEXT.
func (s *State) UIDNext() (uint32, bool, error) { return s.fetch32(KeyUIDNext) }

// SetUIDNext stores the UIDNEXT.
func (s *State) SetUIDNext(v uint32) error { return s.store32(KeyUIDNext, v) }

// ModSeq returns the stored HIGHESTMODSEQ.
func (s *State) ModSeq() (uint64, bool, error) {
	v, ok, err := s.fixed(KeyModSeq, 8)
	if !ok {
		return 0, false, err
	}
	return binary.LittleEndian.Uint64(v), true, nil
}

// SetModSeq stores the HIGHESTMODSEQ.
func (s *State) SetModSeq(v uint64) error {
	return s.cache.StoreRaw([]byte(KeyModSeq), binary.LittleEndian.AppendUint64(nil, v))
}

// UIDSeqSet returns the stored set of UIDs. An unparsable record is
// treated as missing.
func (s *State) UIDSeqSet() (*roaring.Bitmap, bool, error) {
	v, ok, err := s.cache.FetchRaw([]byte(KeyUIDSeqSet))
	if err != nil || !ok {
		return nil, false, err
	}
	if n := len(v); n > 0 && v[n-1] == 0 {
		v = v[:n-1]
	}
	b, err := ParseSeqSet(string(v))
	if err != nil {
		return nil, false, nil
	}
	return b, true, nil
}

// SetUIDSeqSet stores the set of UIDs as an IMAP sequence set.
func (s *State) SetUIDSeqSet(b *roaring.Bitmap) error {
	v := append([]byte(FormatSeqSet(b)), 0)
	return s.cache.StoreRaw([]byte(KeyUIDSeqSet), v)
}

// Reset drops the mailbox bookkeeping, as after a UIDVALIDITY change.
// Cached headers are left alone; the UIDVALIDITY gate hides them.
func (s *State) Reset() error {
	for _, k := range []string{KeyUIDValidity, KeyUIDNext, KeyModSeq, KeyUIDSeqSet} {
		if err := s.cache.DeleteRaw([]byte(k)); err != nil {
			return err
		}
	}
	return nil
}
