package publish

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore is an in-memory ObjectStore for tests and local development.
type MemoryStore struct {
	mu      sync.Mutex
	objects map[string]MemoryObject
	failOn  string
}

// MemoryObject holds one stored object.
type MemoryObject struct {
	Data        []byte
	ContentType string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]MemoryObject)}
}

// FailOn makes Put return an error for the given key, for failure-path tests.
func (s *MemoryStore) FailOn(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failOn = key
}

// Put stores a copy of the object.
func (s *MemoryStore) Put(_ context.Context, key string, data []byte, contentType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failOn != "" && s.failOn == key {
		return fmt.Errorf("simulated upload failure for %s", key)
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	s.objects[key] = MemoryObject{Data: cp, ContentType: contentType}
	return nil
}

// Get returns a stored object.
func (s *MemoryStore) Get(key string) (MemoryObject, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objects[key]
	return obj, ok
}

// Len returns the number of stored objects.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

// Keys returns all stored keys.
func (s *MemoryStore) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		keys = append(keys, k)
	}
	return keys
}
