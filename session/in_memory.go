package session

import (
	"sync"

	"github.com/ensembleai/ensemble/core"
)

// InMemoryService is a volatile core.SessionService implementation keeping
// sessions in process-local nested maps keyed app -> user -> session id. It
// is best suited for tests and single-process prototypes. Returned sessions
// are clones so callers never mutate internal state directly; all changes go
// through the service operations.
//
// The documented contract assumes one writer per session id. The internal
// mutex only protects the map structure against the runner's consumer
// goroutine; it does not serialize concurrent invocations of the same
// session, which must be serialized externally.
type InMemoryService struct {
	mu sync.RWMutex
	// apps: appName -> userID -> sessionID -> session
	apps map[string]map[string]map[string]*core.Session
	// order: appName -> userID -> session ids in insertion order
	order map[string]map[string][]string
}

// NewInMemoryService constructs an empty in-memory session service.
func NewInMemoryService() *InMemoryService {
	return &InMemoryService{
		apps:  make(map[string]map[string]map[string]*core.Session),
		order: make(map[string]map[string][]string),
	}
}

// Create allocates a session with a fresh unique id, optionally seeded with
// initial state.
func (s *InMemoryService) Create(appName, userID string, initialState map[string]any) (*core.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := core.NewSession(core.NewID(), appName, userID)
	if len(initialState) > 0 {
		sess.ApplyStateDelta(initialState)
	}

	if _, ok := s.apps[appName]; !ok {
		s.apps[appName] = make(map[string]map[string]*core.Session)
		s.order[appName] = make(map[string][]string)
	}
	if _, ok := s.apps[appName][userID]; !ok {
		s.apps[appName][userID] = make(map[string]*core.Session)
	}
	s.apps[appName][userID][sess.ID] = sess
	s.order[appName][userID] = append(s.order[appName][userID], sess.ID)

	return sess.Clone(), nil
}

// Get returns a clone of the session or core.ErrSessionNotFound.
func (s *InMemoryService) Get(appName, userID, sessionID string) (*core.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.lookupLocked(appName, userID, sessionID)
	if !ok {
		return nil, core.ErrSessionNotFound
	}
	return sess.Clone(), nil
}

// UpdateState merges the delta into the session's state map, bumping the
// last-update timestamp.
func (s *InMemoryService) UpdateState(appName, userID, sessionID string, delta map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.lookupLocked(appName, userID, sessionID)
	if !ok {
		return core.ErrSessionNotFound
	}
	sess.ApplyStateDelta(delta)
	return nil
}

// AppendEvent appends to the session's event log, bumping the last-update
// timestamp.
func (s *InMemoryService) AppendEvent(appName, userID, sessionID string, ev core.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.lookupLocked(appName, userID, sessionID)
	if !ok {
		return core.ErrSessionNotFound
	}
	sess.AddEvent(ev)
	return nil
}

// Delete removes the session, reporting whether it existed.
func (s *InMemoryService) Delete(appName, userID, sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.lookupLocked(appName, userID, sessionID); !ok {
		return false
	}
	delete(s.apps[appName][userID], sessionID)

	ids := s.order[appName][userID]
	for i, id := range ids {
		if id == sessionID {
			s.order[appName][userID] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	return true
}

// List returns clones of all sessions for (appName, userID) in insertion order.
func (s *InMemoryService) List(appName, userID string) []*core.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids, ok := s.order[appName][userID]
	if !ok {
		return []*core.Session{}
	}
	sessions := make([]*core.Session, 0, len(ids))
	for _, id := range ids {
		if sess, ok := s.apps[appName][userID][id]; ok {
			sessions = append(sessions, sess.Clone())
		}
	}
	return sessions
}

// lookupLocked resolves the nested maps; caller must hold a lock.
func (s *InMemoryService) lookupLocked(appName, userID, sessionID string) (*core.Session, bool) {
	users, ok := s.apps[appName]
	if !ok {
		return nil, false
	}
	sessions, ok := users[userID]
	if !ok {
		return nil, false
	}
	sess, ok := sessions[sessionID]
	return sess, ok
}
