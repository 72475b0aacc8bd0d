package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"pagepulse/internal/safefile"
)

// MaxFileEntries bounds the file index; older entries are dropped first.
const MaxFileEntries = 200

type fileIndex struct {
	Entries []Entry `json:"entries"`
}

// FileStore keeps history in <dir>/index.json.
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(dir string) (*FileStore, error) {
	abs, err := safefile.EnsureDir(dir)
	if err != nil {
		return nil, fmt.Errorf("prepare history directory: %w", err)
	}
	return &FileStore{path: filepath.Join(abs, "index.json")}, nil
}

func (s *FileStore) Previous(_ context.Context, key string) (Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, err := s.load()
	if err != nil {
		return Entry{}, false, err
	}
	for i := len(idx.Entries) - 1; i >= 0; i-- {
		if idx.Entries[i].Key == key {
			return idx.Entries[i], true, nil
		}
	}
	return Entry{}, false, nil
}

func (s *FileStore) Record(_ context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, err := s.load()
	if err != nil {
		return err
	}
	idx.Entries = append(idx.Entries, e)
	if over := len(idx.Entries) - MaxFileEntries; over > 0 {
		idx.Entries = idx.Entries[over:]
	}
	if err := safefile.WriteJSON(s.path, idx); err != nil {
		return fmt.Errorf("write history: %w", err)
	}
	return nil
}

func (s *FileStore) Close() error { return nil }

func (s *FileStore) load() (fileIndex, error) {
	b, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return fileIndex{}, nil
	}
	if err != nil {
		return fileIndex{}, fmt.Errorf("read history: %w", err)
	}
	var idx fileIndex
	if err := json.Unmarshal(b, &idx); err != nil {
		return fileIndex{}, fmt.Errorf("parse history %s: %w", s.path, err)
	}
	return idx, nil
}
