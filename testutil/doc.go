// Package testutil provides testing utilities for hcache.
//
// This package is intended for use in tests and benchmarks only.
// It generates reproducible random email graphs for round-trip tests.
//
// # Random Emails
//
//	rng := testutil.NewRNG(seed)
//	e := rng.Email()            // full graph, ASCII strings
//	e = rng.EmailWith(testutil.EmailOptions{MaxDepth: 3, Latin1: true})
package testutil
