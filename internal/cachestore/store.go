// Package cachestore persists the single usage snapshot as a JSON file at a
// fixed path shared with any other implementation of the same cache design.
package cachestore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/JillVernus/cc-usageline/internal/record"
)

// Store reads and writes the cache file. Every write replaces the whole
// record; partial updates are not supported.
type Store struct {
	path string
}

// New creates a store for the given cache file path.
func New(path string) *Store {
	return &Store{path: path}
}

// Path returns the cache file path.
func (s *Store) Path() string {
	return s.path
}

// Read returns the parsed record and the raw file bytes. A missing or
// unparsable file is treated as "no cache" (nil, nil), never as an error —
// corruption just forces the next refresh to run as a cold start.
func (s *Store) Read() (*record.QuotaRecord, []byte) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, nil
	}

	var rec record.QuotaRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, nil
	}

	return &rec, data
}

// ModTime returns the cache file's last-modified time. The second return is
// false when the file does not exist.
func (s *Store) ModTime() (time.Time, bool) {
	info, err := os.Stat(s.path)
	if err != nil {
		return time.Time{}, false
	}
	return info.ModTime(), true
}

// Write overwrites the cache file with the given record, creating the parent
// directory if needed.
func (s *Store) Write(rec *record.QuotaRecord) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal usage record: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write usage cache file: %w", err)
	}

	return nil
}
