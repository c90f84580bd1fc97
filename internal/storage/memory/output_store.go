// Package memory stores outputs in-memory for tests and dry runs.
package memory

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
)

// Store keeps saved outputs in a map and hands back pseudo URIs.
type Store struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{data: make(map[string][]byte)}
}

// Save reads content fully and keeps it under name.
func (s *Store) Save(_ context.Context, name string, content io.Reader) (string, error) {
	raw, err := io.ReadAll(content)
	if err != nil {
		return "", fmt.Errorf("read content for %s: %w", name, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[name] = append([]byte(nil), raw...)
	return "memory://" + name, nil
}

// Get returns a stored output and whether it exists.
func (s *Store) Get(name string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	raw, ok := s.data[name]
	return raw, ok
}

// Names lists the stored output names in sorted order.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.data))
	for name := range s.data {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
