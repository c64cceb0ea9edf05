package memory

import (
	"context"
	"sync"
)

// Storage is an in-memory wronganswer.Storage. LoadErr and SaveErr simulate an
// unavailable medium.
type Storage struct {
	mu      sync.RWMutex
	data    []byte
	LoadErr error
	SaveErr error
}

func NewStorage() *Storage {
	return &Storage{}
}

func (s *Storage) Load(_ context.Context) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.LoadErr != nil {
		return nil, s.LoadErr
	}
	if s.data == nil {
		return nil, nil
	}
	out := make([]byte, len(s.data))
	copy(out, s.data)
	return out, nil
}

func (s *Storage) Save(_ context.Context, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SaveErr != nil {
		return s.SaveErr
	}
	s.data = append([]byte(nil), data...)
	return nil
}

// Raw returns the stored bytes as written.
func (s *Storage) Raw() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]byte(nil), s.data...)
}

// SetRaw replaces the stored bytes, e.g. with corrupt data.
func (s *Storage) SetRaw(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = append([]byte(nil), data...)
}

// StorageFactory hands out one Storage per profile and keeps them for the process lifetime.
type StorageFactory struct {
	mu       sync.Mutex
	profiles map[string]*Storage
}

func NewStorageFactory() *StorageFactory {
	return &StorageFactory{profiles: make(map[string]*Storage)}
}

func (f *StorageFactory) For(profileID string) *Storage {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.profiles[profileID]; ok {
		return s
	}
	s := NewStorage()
	f.profiles[profileID] = s
	return s
}
