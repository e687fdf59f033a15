package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/electricfoxes1989/the-triton-sub000/internal/domain"
)

// Store is the persisted per-slug migration checkpoint. A slug marked
// imported is skipped by later runs; a failed slug is retried. Saved via
// temp-file-then-rename so a crash mid-write never truncates it.
type Store struct {
	path string

	mu      sync.Mutex
	records map[string]domain.MigrationRecord
}

// Load reads the checkpoint file; an absent file starts empty state, not an
// error.
func Load(path string) (*Store, error) {
	s := &Store{path: path, records: map[string]domain.MigrationRecord{}}

	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read checkpoint %s: %w", path, err)
	}
	if err := json.Unmarshal(raw, &s.records); err != nil {
		return nil, fmt.Errorf("parse checkpoint %s: %w", path, err)
	}
	return s, nil
}

// Imported reports whether the slug reached the imported terminal state.
func (s *Store) Imported(slug string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[slug]
	return ok && rec.Status == domain.StatusImported
}

// Get returns the record for a slug, if any.
func (s *Store) Get(slug string) (domain.MigrationRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[slug]
	return rec, ok
}

// Set records the terminal outcome for a slug.
func (s *Store) Set(slug string, rec domain.MigrationRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[slug] = rec
}

// Len returns the number of recorded slugs.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Save atomically replaces the checkpoint file with the current state.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := json.MarshalIndent(s.records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace checkpoint: %w", err)
	}
	return nil
}
