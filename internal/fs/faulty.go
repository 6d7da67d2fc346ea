package fs

import (
	"errors"
	"os"
	"strings"
	"sync"
)

// ErrInjected is the error returned by a Fault without an explicit Err.
var ErrInjected = errors.New("injected fault error")

// Op names a FileSystem operation a Fault can target.
type Op string

const (
	OpStat      Op = "stat"
	OpMkdirAll  Op = "mkdirall"
	OpRemove    Op = "remove"
	OpRemoveAll Op = "removeall"
)

// Fault defines specific failure behavior.
type Fault struct {
	Err   error // Returned instead of calling through. ErrInjected if nil.
	Times int   // Number of failures before the rule disarms. 0 means forever.
}

type rule struct {
	op      Op
	pattern string
	fault   Fault
	hits    int
}

// FaultyFS is a FileSystem wrapper that can inject errors.
type FaultyFS struct {
	FS FileSystem

	mu    sync.Mutex
	rules []*rule
	calls map[Op]int
}

// NewFaultyFS creates a new FaultyFS wrapping the provided FS (or Default if nil).
func NewFaultyFS(fs FileSystem) *FaultyFS {
	if fs == nil {
		fs = Default
	}
	return &FaultyFS{FS: fs, calls: make(map[Op]int)}
}

// AddRule makes op fail for every path containing pattern. An empty
// pattern matches every path. Later rules win.
func (f *FaultyFS) AddRule(op Op, pattern string, fault Fault) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules = append(f.rules, &rule{op: op, pattern: pattern, fault: fault})
}

// Calls returns how often op was invoked, failed calls included.
func (f *FaultyFS) Calls(op Op) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *FaultyFS) check(op Op, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls[op]++
	for i := len(f.rules) - 1; i >= 0; i-- {
		r := f.rules[i]
		if r.op != op || !strings.Contains(name, r.pattern) {
			continue
		}
		if r.fault.Times > 0 && r.hits >= r.fault.Times {
			continue
		}
		r.hits++
		if r.fault.Err != nil {
			return &os.PathError{Op: string(op), Path: name, Err: r.fault.Err}
		}
		return &os.PathError{Op: string(op), Path: name, Err: ErrInjected}
	}
	return nil
}

func (f *FaultyFS) Stat(name string) (os.FileInfo, error) {
	if err := f.check(OpStat, name); err != nil {
		return nil, err
	}
	return f.FS.Stat(name)
}

func (f *FaultyFS) MkdirAll(path string, perm os.FileMode) error {
	if err := f.check(OpMkdirAll, path); err != nil {
		return err
	}
	return f.FS.MkdirAll(path, perm)
}

func (f *FaultyFS) Remove(name string) error {
	if err := f.check(OpRemove, name); err != nil {
		return err
	}
	return f.FS.Remove(name)
}

func (f *FaultyFS) RemoveAll(path string) error {
	if err := f.check(OpRemoveAll, path); err != nil {
		return err
	}
	return f.FS.RemoveAll(path)
}
