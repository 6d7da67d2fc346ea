// Package fs abstracts the few filesystem operations the header cache
// performs around its database files, so tests can inject failures.
//
// Production code uses [Default], which is [LocalFS]:
//
//	if err := fs.Default.MkdirAll(dir, 0o700); err != nil { ... }
//
// Tests wrap it with [FaultyFS]:
//
//	ffs := fs.NewFaultyFS(nil)
//	ffs.AddRule(fs.OpRemove, "hcache.db", fs.Fault{})
//
// The store backends open their files themselves; this package only covers
// path resolution, directory creation and unlinking.
package fs
