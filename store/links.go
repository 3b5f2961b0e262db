// Package store persists the email→member link records and the event
// journal. The link collection is a single JSON document: every mutation is a
// full read-modify-write cycle under one mutex, which is what makes the
// no-interleaving guarantee of the design structural rather than assumed.
// Running more than one process against the same files is unsupported.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/downtowncxsh/xplx-access-bot/entitlement"
)

// Links is the identity link store. All access serializes on mu; a Get
// observes a fully written document and a Put can never interleave with
// another load-modify-save cycle.
type Links struct {
	path string
	mu   sync.Mutex
}

func NewLinks(path string) (*Links, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	s := &Links{path: path}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Links) load() (map[string]entitlement.EmailRecord, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]entitlement.EmailRecord{}, nil
		}
		return nil, fmt.Errorf("read link store: %w", err)
	}
	if len(data) == 0 {
		return map[string]entitlement.EmailRecord{}, nil
	}
	records := map[string]entitlement.EmailRecord{}
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse link store: %w", err)
	}
	return records, nil
}

// save writes the whole collection to a temp file and renames it into place
// so a crash mid-write never leaves a torn document.
func (s *Links) save(records map[string]entitlement.EmailRecord) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode link store: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write link store: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace link store: %w", err)
	}
	return nil
}

// Get returns the record for a normalized email, or nil when none exists.
func (s *Links) Get(email string) (*entitlement.EmailRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	records, err := s.load()
	if err != nil {
		return nil, err
	}
	rec, ok := records[entitlement.NormalizeEmail(email)]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

// Put overwrites the record keyed by its normalized email. UpdatedAt is
// stamped here so every persisted mutation carries it.
func (s *Links) Put(rec entitlement.EmailRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	records, err := s.load()
	if err != nil {
		return err
	}
	rec.Email = entitlement.NormalizeEmail(rec.Email)
	rec.UpdatedAt = time.Now().UTC()
	records[rec.Email] = rec
	return s.save(records)
}

// All returns every record sorted by email, for the audit sweep.
func (s *Links) All() ([]entitlement.EmailRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	records, err := s.load()
	if err != nil {
		return nil, err
	}
	out := make([]entitlement.EmailRecord, 0, len(records))
	for _, rec := range records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}
