package memory

import (
	"context"
	"sync"

	"rateplans/internal/app/policies"
)

type StoredObject struct {
	ContentType string
	Body        []byte
}

// ObjectStore keeps exported files in memory and hands out memory:// URLs.
type ObjectStore struct {
	mu      sync.RWMutex
	objects map[string]StoredObject
}

func NewObjectStore() *ObjectStore {
	return &ObjectStore{objects: make(map[string]StoredObject)}
}

func (s *ObjectStore) Put(ctx context.Context, key, contentType string, body []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = StoredObject{ContentType: contentType, Body: append([]byte(nil), body...)}
	return "memory://" + key, nil
}

func (s *ObjectStore) Object(key string) (StoredObject, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	return obj, ok
}

var _ policies.ObjectStore = (*ObjectStore)(nil)
