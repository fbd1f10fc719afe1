package core

import (
	"encoding/json"
	"errors"
	"sync"
	"time"
)

// ErrSessionNotFound is the sentinel returned by SessionService operations
// addressing a session id that does not exist for the given app/user scope.
var ErrSessionNotFound = errors.New("session not found")

// StateKeyUserPrefix namespaces state keys shared across an entire user.
// The prefix is a documented convention, not a type-level partition: merges
// must preserve prefixed keys verbatim.
const StateKeyUserPrefix = "user:"

// StateKeyAppPrefix namespaces state keys shared across an entire application.
const StateKeyAppPrefix = "app:"

// Session represents a conversational container scoped to one application and
// user. It tracks a mutable flat key/value state map plus an ordered,
// append-only event history. Methods are safe for concurrent access, but the
// documented contract assumes a single writer per session id; concurrent
// Runner invocations against the same session must be serialized externally.
type Session struct {
	ID         string
	AppName    string
	UserID     string
	State      map[string]any
	Events     []Event
	LastUpdate time.Time

	mu sync.RWMutex
}

// NewSession creates an empty session with the given identity.
func NewSession(id, appName, userID string) *Session {
	return &Session{
		ID:         id,
		AppName:    appName,
		UserID:     userID,
		State:      map[string]any{},
		Events:     []Event{},
		LastUpdate: time.Now().UTC(),
	}
}

// GetState returns the value and existence flag for a state key.
func (s *Session) GetState(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.State[key]
	return v, ok
}

// SetState sets a key/value pair in session state updating the LastUpdate timestamp.
func (s *Session) SetState(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.State[key] = value
	s.LastUpdate = time.Now().UTC()
}

// ApplyStateDelta merges the provided key/value pairs into State. Prefixed
// keys ("user:", "app:") are merged verbatim like any other key.
func (s *Session) ApplyStateDelta(delta map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range delta {
		s.State[k] = v
	}
	s.LastUpdate = time.Now().UTC()
}

// AddEvent appends an event to the history updating the LastUpdate timestamp.
func (s *Session) AddEvent(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Events = append(s.Events, ev)
	s.LastUpdate = time.Now().UTC()
}

// GetEvents returns a copy of the full event slice.
func (s *Session) GetEvents() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	events := make([]Event, len(s.Events))
	copy(events, s.Events)
	return events
}

// GetConversationHistory returns filtered events suitable for providing
// conversational context to models (only conversational roles).
func (s *Session) GetConversationHistory() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	allowed := map[string]bool{"user": true, "assistant": true, "tool": true}
	res := make([]Event, 0, len(s.Events))
	for _, ev := range s.Events {
		if ev.Content == nil || !allowed[ev.Content.Role] {
			continue
		}
		res = append(res, ev)
	}
	return res
}

// Clone returns a deep copy of the session safe for independent mutation.
func (s *Session) Clone() *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	clone := &Session{
		ID:         s.ID,
		AppName:    s.AppName,
		UserID:     s.UserID,
		State:      make(map[string]any, len(s.State)),
		Events:     make([]Event, len(s.Events)),
		LastUpdate: s.LastUpdate,
	}
	for k, v := range s.State {
		clone.State[k] = v
	}
	copy(clone.Events, s.Events)
	return clone
}

// sessionJSON is the wire shape of a Session. The timestamp is serialized as
// fractional Unix seconds; round-trips preserve whole-second precision.
type sessionJSON struct {
	ID             string         `json:"id"`
	AppName        string         `json:"app_name"`
	UserID         string         `json:"user_id"`
	State          map[string]any `json:"state"`
	Events         []Event        `json:"events"`
	LastUpdateTime float64        `json:"last_update_time"`
}

// MarshalJSON implements json.Marshaler.
func (s *Session) MarshalJSON() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return json.Marshal(sessionJSON{
		ID:             s.ID,
		AppName:        s.AppName,
		UserID:         s.UserID,
		State:          s.State,
		Events:         s.Events,
		LastUpdateTime: float64(s.LastUpdate.Unix()),
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Session) UnmarshalJSON(data []byte) error {
	var raw sessionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.ID = raw.ID
	s.AppName = raw.AppName
	s.UserID = raw.UserID
	s.State = raw.State
	if s.State == nil {
		s.State = map[string]any{}
	}
	s.Events = raw.Events
	s.LastUpdate = time.Unix(int64(raw.LastUpdateTime), 0).UTC()
	return nil
}

// SessionService persists sessions and their evolving state / event history.
// These six operations are the entire boundary a storage backend must
// implement to replace the in-memory default.
type SessionService interface {
	// Create allocates a session with a fresh unique id under (appName, userID),
	// optionally seeded with initial state.
	Create(appName, userID string, initialState map[string]any) (*Session, error)

	// Get returns the session or ErrSessionNotFound.
	Get(appName, userID, sessionID string) (*Session, error)

	// UpdateState merges the delta into session state and bumps the
	// last-update timestamp, or returns ErrSessionNotFound.
	UpdateState(appName, userID, sessionID string, delta map[string]any) error

	// AppendEvent appends to the session's event log and bumps the
	// last-update timestamp, or returns ErrSessionNotFound.
	AppendEvent(appName, userID, sessionID string, ev Event) error

	// Delete removes the session, reporting whether it existed.
	Delete(appName, userID, sessionID string) bool

	// List returns all sessions for (appName, userID) in insertion order.
	List(appName, userID string) []*Session
}
