// Package store is the flat-file document store behind the orchestration
// core: dependency-chain overrides, issue history, rejected-niche memory,
// scoring config, and campaign state all live here as JSON documents keyed by
// relative path. Absence of a document is an empty default, never an error.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Store manages JSON documents on disk under a single base directory.
type Store struct {
	baseDir string // defaults to ~/.leadpilot
}

// New creates a Store rooted at baseDir.
func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

// Default returns a Store at ~/.leadpilot, creating the directory if needed.
func Default() (*Store, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("get home dir: %w", err)
	}
	dir := filepath.Join(home, ".leadpilot")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return &Store{baseDir: dir}, nil
}

// BaseDir returns the store's root directory.
func (s *Store) BaseDir() string {
	return s.baseDir
}

// path resolves a document key to an on-disk path, rejecting traversal.
func (s *Store) path(key string) (string, error) {
	clean := filepath.Clean(key)
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("document key %q escapes store", key)
	}
	return filepath.Join(s.baseDir, clean), nil
}

// Load reads the document at key into v. It returns ok=false when the
// document does not exist; the caller supplies its own empty default.
func (s *Store) Load(key string, v any) (bool, error) {
	p, err := s.path(key)
	if err != nil {
		return false, err
	}
	data, err := os.ReadFile(p)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("decoding document %s: %w", key, err)
	}
	return true, nil
}

// Save writes v as the document at key, atomically.
func (s *Store) Save(key string, v any) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding document %s: %w", key, err)
	}
	return writeDoc(p, append(data, '\n'))
}

// Append adds one entry to the append-only log at key (JSON Lines).
// One writer per process; the orchestration loop is sequential.
func (s *Store) Append(key string, entry any) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("creating log dir for %s: %w", key, err)
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encoding log entry for %s: %w", key, err)
	}
	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening log %s: %w", key, err)
	}
	defer f.Close()
	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("appending to log %s: %w", key, err)
	}
	return nil
}

// writeDoc replaces the document at path through a temp file and rename,
// so a crashed writer never leaves a half-written document behind.
func writeDoc(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating document dir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".doc-*")
	if err != nil {
		return fmt.Errorf("creating temp document: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing temp document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("closing temp document: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}

// List returns the document keys directly under prefix, sorted by name.
func (s *Store) List(prefix string) ([]string, error) {
	p, err := s.path(prefix)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read dir %s: %w", p, err)
	}
	var keys []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		keys = append(keys, filepath.Join(prefix, e.Name()))
	}
	return keys, nil
}
