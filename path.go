package hcache

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/hupe1980/hcache/config"
	hfs "github.com/hupe1980/hcache/internal/fs"
	"github.com/hupe1980/hcache/store"
)

// Namer maps a folder to a database file name relative to the cache
// directory. The name may contain subdirectories.
type Namer func(folder string) (string, error)

const dirMode = 0o700

var urlScheme = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*://`)

// IsURL reports whether folder names a remote mailbox such as
// imaps://host/INBOX rather than a local path.
func IsURL(folder string) bool {
	return urlScheme.MatchString(folder)
}

// CanonicalFolder returns the form of folder used for key prefixes and
// hashed file names. Existing local paths are made absolute with symlinks
// resolved; everything else is returned as is.
func CanonicalFolder(folder string) string {
	if folder == "" || IsURL(folder) {
		return folder
	}
	abs, err := filepath.Abs(folder)
	if err != nil {
		return folder
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return folder
	}
	return resolved
}

// HashName is the database file name used for folder when no Namer is
// given. codec is empty when compression is off.
func HashName(backend, folder, codec string) string {
	sum := md5.Sum([]byte(backend + "|" + folder + codec))
	return hex.EncodeToString(sum[:])
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("hcache: expand %s: %w", path, err)
	}
	return filepath.Join(home, path[1:]), nil
}

// resolvePath picks the database file for folder.
//
// An existing non-directory, or a missing path without a trailing slash,
// is used as the file itself. Anything else is a directory holding one
// database per folder, named by namer or by HashName. Missing parent
// directories are created.
func resolvePath(fsys hfs.FileSystem, path, folder string, namer Namer, backend, codec string) (string, error) {
	if path == "" {
		return "", ErrEmptyPath
	}
	path, err := expandHome(path)
	if err != nil {
		return "", err
	}

	slash := strings.HasSuffix(path, "/") || strings.HasSuffix(path, string(filepath.Separator))
	info, err := fsys.Stat(path)
	if (err == nil && !info.IsDir()) || (errors.Is(err, fs.ErrNotExist) && !slash) {
		if err := fsys.MkdirAll(filepath.Dir(path), dirMode); err != nil {
			return "", fmt.Errorf("hcache: create cache directory: %w", err)
		}
		return path, nil
	}

	var name string
	if namer != nil {
		name, err = namer(folder)
		if err != nil {
			return "", fmt.Errorf("hcache: name database for %q: %w", folder, err)
		}
		if name == "" {
			return "", fmt.Errorf("hcache: namer returned an empty name for %q", folder)
		}
	} else {
		name = HashName(backend, folder, codec)
	}

	file := filepath.Join(path, name)
	if _, err := fsys.Stat(file); err == nil {
		return file, nil
	}
	if err := fsys.MkdirAll(filepath.Dir(file), dirMode); err != nil {
		return "", fmt.Errorf("hcache: create cache directory: %w", err)
	}
	return file, nil
}

// DatabasePath returns the database file Open would use for folder under
// cfg, creating missing parent directories but not the database.
func DatabasePath(path, folder string, namer Namer, cfg config.Config) (string, error) {
	backend := cfg.Backend
	if backend == "" {
		backend = store.DefaultBackend
	}
	return resolvePath(hfs.Default, path, CanonicalFolder(folder), namer, backend, cfg.CompressMethod)
}
