package artifact

import (
	"bytes"
	"sort"
	"sync"
)

// InMemoryStore keeps artifacts in process memory, keyed by session then
// artifact id. Payloads are cloned on the way in and out so callers never
// share a buffer with the store. Suited to tests and single-process use; it
// enforces no quotas and nothing survives a restart.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]map[string][]byte
}

// NewInMemoryStore returns an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[string]map[string][]byte)}
}

// Save stores or replaces an artifact.
func (s *InMemoryStore) Save(sessionID, artifactID string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	byID := s.sessions[sessionID]
	if byID == nil {
		byID = make(map[string][]byte)
		s.sessions[sessionID] = byID
	}
	byID[artifactID] = bytes.Clone(data)
	return nil
}

// Get returns a copy of the artifact bytes or ErrNotFound.
func (s *InMemoryStore) Get(sessionID, artifactID string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.sessions[sessionID][artifactID]
	if !ok {
		return nil, ErrNotFound
	}
	return bytes.Clone(data), nil
}

// List returns the session's artifact ids in lexical order.
func (s *InMemoryStore) List(sessionID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byID := s.sessions[sessionID]
	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Delete removes an artifact or returns ErrNotFound.
func (s *InMemoryStore) Delete(sessionID, artifactID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	byID := s.sessions[sessionID]
	if _, ok := byID[artifactID]; !ok {
		return ErrNotFound
	}
	delete(byID, artifactID)
	if len(byID) == 0 {
		delete(s.sessions, sessionID)
	}
	return nil
}
