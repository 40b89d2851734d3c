package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// FileStore keeps the sent history in a JSON file.
type FileStore struct {
	path  string
	ttl   time.Duration
	now   func() time.Time
	mu    sync.RWMutex
	items map[string]SentItem // by link
}

// OpenFileStore loads path, dropping entries older than ttlHours. A missing
// or empty file starts an empty history.
func OpenFileStore(path string, ttlHours int) (*FileStore, error) {
	s := newFileStore(path, ttlHours, time.Now)
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func newFileStore(path string, ttlHours int, now func() time.Time) *FileStore {
	return &FileStore{
		path:  path,
		ttl:   time.Duration(ttlHours) * time.Hour,
		now:   now,
		items: make(map[string]SentItem),
	}
}

func (s *FileStore) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && len(data) == 0) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read cache file: %w", err)
	}

	var items []SentItem
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("failed to unmarshal cache: %w", err)
	}

	cutoff := s.cutoff()
	for _, item := range items {
		if item.SentAt.After(cutoff) {
			s.items[item.Link] = item
		}
	}
	return nil
}

func (s *FileStore) cutoff() time.Time {
	return s.now().Add(-s.ttl)
}

func (s *FileStore) IsSent(_ context.Context, link string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[link]
	return ok && item.SentAt.After(s.cutoff()), nil
}

// MarkSent records the item and rewrites the file.
func (s *FileStore) MarkSent(_ context.Context, item SentItem) error {
	if item.SentAt.IsZero() {
		item.SentAt = s.now()
	}
	if item.Hash == "" {
		item.Hash = NewsHash(item.Title, item.Link)
	}

	s.mu.Lock()
	s.items[item.Link] = item
	s.mu.Unlock()

	return s.save()
}

// Cleanup removes expired items from memory.
func (s *FileStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.cutoff()
	for link, item := range s.items {
		if item.SentAt.Before(cutoff) {
			delete(s.items, link)
		}
	}
}

func (s *FileStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *FileStore) save() error {
	s.mu.RLock()
	items := make([]SentItem, 0, len(s.items))
	for _, item := range s.items {
		items = append(items, item)
	}
	s.mu.RUnlock()
	sort.Slice(items, func(i, j int) bool { return items[i].SentAt.Before(items[j].SentAt) })

	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cache: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	return nil
}

// Close saves whatever is in memory.
func (s *FileStore) Close() error {
	s.Cleanup()
	return s.save()
}
