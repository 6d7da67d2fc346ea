package hcache

import (
	"crypto/md5"
	"encoding/binary"

	"github.com/hupe1980/hcache/config"
)

// SchemaVersion identifies the record layout. It is bumped whenever the
// serialized form changes so that old records fail the fingerprint check.
const SchemaVersion uint32 = 0x48430003

// SchemaCRC fingerprints the record layout together with the spam
// settings, whose results are baked into cached envelopes.
func SchemaCRC(spam []config.SpamRule, nospam []string) uint32 {
	h := md5.New()

	var v [4]byte
	binary.LittleEndian.PutUint32(v[:], SchemaVersion)
	h.Write(v[:])

	for _, r := range spam {
		h.Write([]byte(r.Pattern))
		h.Write([]byte(r.Template))
	}
	for _, p := range nospam {
		h.Write([]byte(p))
	}

	return binary.LittleEndian.Uint32(h.Sum(nil)[:4])
}
