// Package config holds the header cache settings and their validators.
//
// Settings are usually loaded from YAML:
//
//	header_cache: ~/.cache/mail/
//	header_cache_backend: lmdb
//	header_cache_compress_method: zstd
//	header_cache_compress_level: 3
//	spam:
//	  - pattern: "^X-Spam-Status: Yes"
//	    template: "%1"
//	nospam:
//	  - "^X-Spam-Status: No"
//
// The validators check names against the backends and codecs linked into
// the program, so call them after the store backends have been imported.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/hcache/compress"
	"github.com/hupe1980/hcache/internal/charset"
	"github.com/hupe1980/hcache/store"
)

// SpamRule is one spam pattern with its replacement template.
type SpamRule struct {
	Pattern  string `yaml:"pattern"`
	Template string `yaml:"template"`
}

// Config holds the header cache settings.
type Config struct {
	// HeaderCache is the cache file or directory.
	HeaderCache string `yaml:"header_cache"`
	// Backend names the store backend.
	Backend string `yaml:"header_cache_backend"`
	// CompressMethod names the codec; empty disables compression.
	CompressMethod string `yaml:"header_cache_compress_method"`
	// CompressLevel is the codec level.
	CompressLevel int `yaml:"header_cache_compress_level"`
	// PageSize is passed to backends that have a page or block size.
	PageSize int `yaml:"header_cache_pagesize"`
	// CompressInBackend enables compression inside the store backend,
	// for backends that support it.
	CompressInBackend bool `yaml:"header_cache_compress"`
	// Charset is the process charset. Header strings are stored as UTF-8
	// and converted when it differs.
	Charset string `yaml:"charset"`
	// Spam and NoSpam are part of the schema fingerprint: changing them
	// invalidates cached records.
	Spam   []SpamRule `yaml:"spam"`
	NoSpam []string   `yaml:"nospam"`
}

// Default returns the default settings.
func Default() Config {
	return Config{
		Backend:       store.DefaultBackend,
		CompressLevel: 1,
		PageSize:      store.DefaultPageSize,
		Charset:       "utf-8",
	}
}

// ValidationError reports a rejected setting.
type ValidationError struct {
	Key    string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: invalid %s %q: %s", e.Key, e.Value, e.Reason)
}

// ValidateBackend accepts the name of a registered store backend or "".
func ValidateBackend(name string) error {
	if name == "" {
		return nil
	}
	if _, ok := store.Lookup(name); ok {
		return nil
	}
	return &ValidationError{
		Key:    "header_cache_backend",
		Value:  name,
		Reason: "not a compiled-in backend (available: " + strings.Join(store.Names(), ", ") + ")",
	}
}

// ValidateCompressMethod accepts the name of a registered codec or "".
func ValidateCompressMethod(name string) error {
	if name == "" {
		return nil
	}
	if _, ok := compress.Lookup(name); ok {
		return nil
	}
	return &ValidationError{
		Key:    "header_cache_compress_method",
		Value:  name,
		Reason: "not a compiled-in compression method (available: " + strings.Join(compress.Names(), ", ") + ")",
	}
}

// ValidateCompressLevel checks level against the range of method. The
// level cannot be checked until a method is chosen.
func ValidateCompressLevel(method string, level int) error {
	value := fmt.Sprint(level)
	if method == "" {
		return &ValidationError{
			Key:    "header_cache_compress_level",
			Value:  value,
			Reason: "set header_cache_compress_method first",
		}
	}
	m, ok := compress.Lookup(method)
	if !ok {
		return ValidateCompressMethod(method)
	}
	if level < m.MinLevel || level > m.MaxLevel {
		return &ValidationError{
			Key:    "header_cache_compress_level",
			Value:  value,
			Reason: fmt.Sprintf("%s accepts levels %d to %d", m.Name, m.MinLevel, m.MaxLevel),
		}
	}
	return nil
}

// Validate checks every setting and reports all problems at once.
func (c *Config) Validate() error {
	var errs []error
	errs = append(errs, ValidateBackend(c.Backend))
	errs = append(errs, ValidateCompressMethod(c.CompressMethod))
	if c.CompressMethod != "" {
		errs = append(errs, ValidateCompressLevel(c.CompressMethod, c.CompressLevel))
	}
	if c.PageSize < 0 {
		errs = append(errs, &ValidationError{
			Key:    "header_cache_pagesize",
			Value:  fmt.Sprint(c.PageSize),
			Reason: "must not be negative",
		})
	}
	if _, err := charset.New(c.Charset); err != nil {
		errs = append(errs, &ValidationError{Key: "charset", Value: c.Charset, Reason: err.Error()})
	}
	for _, r := range c.Spam {
		if _, err := regexp.Compile(r.Pattern); err != nil {
			errs = append(errs, &ValidationError{Key: "spam", Value: r.Pattern, Reason: err.Error()})
		}
	}
	for _, p := range c.NoSpam {
		if _, err := regexp.Compile(p); err != nil {
			errs = append(errs, &ValidationError{Key: "nospam", Value: p, Reason: err.Error()})
		}
	}
	return errors.Join(errs...)
}

// Parse decodes YAML settings on top of Default and validates them.
// Unknown keys are rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load reads and parses a YAML settings file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}
