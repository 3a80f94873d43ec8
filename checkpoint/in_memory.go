package checkpoint

import (
	"context"
	"fmt"
	"sync"
)

// InMemoryStore is a volatile Store keeping threads in a process local map.
// Every thread handed in or out is cloned to prevent external mutation of
// internal state.
type InMemoryStore struct {
	mu      sync.RWMutex
	threads map[string]*Thread
}

// NewInMemoryStore constructs an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{threads: make(map[string]*Thread)}
}

// Get returns a clone of the stored thread.
func (s *InMemoryStore) Get(_ context.Context, id string) (*Thread, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.threads[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrThreadNotFound, id)
	}
	return t.Clone(), nil
}

// Put stores a clone of t, replacing any previous snapshot.
func (s *InMemoryStore) Put(_ context.Context, t *Thread) error {
	if t == nil || t.ID == "" {
		return fmt.Errorf("checkpoint: thread without id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threads[t.ID] = t.Clone()
	return nil
}

// Delete removes a thread. Deleting an unknown thread is not an error.
func (s *InMemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.threads, id)
	return nil
}

// Len returns the number of stored threads.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.threads)
}
