// Package email defines the parsed message header graph that the header
// cache stores and restores.
//
// An [Email] owns one [Envelope] (the RFC 5322 header fields) and one root
// [Body] (the MIME structure). Bodies form a tree through [Body.Parts].
//
// Fields are split in two groups. Cacheable fields survive a dump/restore
// cycle. Runtime fields (selection state, thread links, display positions)
// only make sense inside one process and are never written to the cache;
// a restored Email always has them zeroed.
package email
