// Package hcache is an on-disk header cache for mail clients.
//
// A cache maps (folder, key) pairs to serialized [email.Email] headers so a
// client can reopen a large mailbox without re-parsing every message. The
// database file is produced by a pluggable store backend and the records can
// be compressed with a pluggable codec.
//
// # Quick Start
//
//	c, err := hcache.Open("~/.cache/mail/", "imap://mail.example.com/INBOX", nil)
//	if err != nil {
//	    // run without a cache
//	}
//	defer c.Close()
//
//	if err := c.Store([]byte("4711"), e, uidvalidity); err != nil { ... }
//
//	entry, err := c.Fetch([]byte("4711"), uidvalidity)
//	if entry.Email != nil {
//	    // cache hit
//	}
//
// # Backends and codecs
//
// Backends register themselves on import. The bolt backend is always linked
// in; import the others for their side effect:
//
//	import _ "github.com/hupe1980/hcache/store/lmdb"
//
// Then select them through the configuration:
//
//	cfg := config.Default()
//	cfg.Backend = "lmdb"
//	cfg.CompressMethod = "zstd"
//	cfg.CompressLevel = 3
//	c, err := hcache.Open(dir, folder, nil, hcache.WithConfig(cfg))
//
// # Validity
//
// Every record starts with the IMAP UIDVALIDITY it was stored under and a
// fingerprint of the record layout and spam settings. A record whose
// fingerprint differs from the handle's, or whose UIDVALIDITY differs from
// a non-zero one passed to Fetch, is reported as a miss. Corrupt records are
// misses too. A cache never hands stale data to the caller; at worst it is
// slower.
//
// # Concurrency
//
// A Cache is not safe for concurrent use. Open one handle per goroutine, or
// guard a shared handle with a mutex. Whether two handles may share one
// database file at the same time depends on the backend. The default bolt
// backend shares one database between the handles of a process and makes
// other processes wait, up to the lock timeout, until the last is closed.
package hcache
