// Package store defines the key/value backend abstraction of the header
// cache.
//
// A [Backend] opens a [Store] at a path. Backends live in subpackages and
// register themselves from init, so a program selects the backends it
// links in with blank imports:
//
//	import (
//	    _ "github.com/hupe1980/hcache/store/bolt"
//	    _ "github.com/hupe1980/hcache/store/lmdb"
//	)
//
// Every backend honors the same contract, checked by
// [github.com/hupe1980/hcache/store/storetest]:
//
//   - Fetch returns exactly the bytes stored under a key, or ErrNotFound.
//   - Store is an upsert.
//   - Delete of a missing key succeeds.
//   - Close releases all resources; later calls return ErrClosed.
//
// A Store is used by one goroutine at a time.
package store
