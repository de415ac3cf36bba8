package store

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// DefaultKey is the context key every run starts with.
const DefaultKey = "default"

// ErrKeyNotFound is returned by Load when no context was saved under a key.
var ErrKeyNotFound = errors.New("context key not found")

// Store maps context keys to contexts for the lifetime of one pipeline run.
type Store struct {
	mu       sync.RWMutex
	contexts map[string]Context
}

// New returns a Store holding only an empty default context.
func New() *Store {
	s := &Store{}
	s.Reset()
	return s
}

// Reset drops every context and recreates the empty default context.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contexts = map[string]Context{DefaultKey: {Files: []FileRef{}}}
}

// Load returns a copy of the context saved under key.
func (s *Store) Load(key string) (Context, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ctx, ok := s.contexts[key]
	if !ok {
		return Context{}, fmt.Errorf("%w: %q", ErrKeyNotFound, key)
	}
	return ctx.Clone(), nil
}

// Save stores a copy of ctx under key, replacing any previous value.
func (s *Store) Save(key string, ctx Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.contexts == nil {
		s.contexts = make(map[string]Context)
	}
	s.contexts[key] = NewContext(ctx.Files...)
}

// Keys returns the saved context keys in sorted order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.contexts))
	for key := range s.contexts {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Snapshot returns a copy of every saved context keyed by name.
func (s *Store) Snapshot() map[string]Context {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]Context, len(s.contexts))
	for key, ctx := range s.contexts {
		out[key] = ctx.Clone()
	}
	return out
}
