// Package session maps opaque bearer tokens to (room, user) pairs.
// Sessions are credentials: an unknown id is unauthorized, not not-found.
package session

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shoutwars/backend-go/internal/v1/apierr"
	"github.com/shoutwars/backend-go/internal/v1/logging"
	"github.com/shoutwars/backend-go/internal/v1/metrics"
)

// Session is an immutable (session id, room id, user id) triple. It is
// live for as long as its room exists and still contains its user.
type Session struct {
	ID     uuid.UUID
	RoomID uuid.UUID
	UserID uuid.UUID
}

// New creates a session with a fresh time-ordered id.
func New(roomID, userID uuid.UUID) Session {
	return Session{
		ID:     uuid.Must(uuid.NewV7()),
		RoomID: roomID,
		UserID: userID,
	}
}

// Registry holds all live sessions. It is independent of the room lock and
// must never be acquired while a room lock is held.
type Registry struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]Session

	log *zap.Logger
}

// NewRegistry creates an empty session registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[uuid.UUID]Session),
		log:      logging.GetLogger(),
	}
}

// Create mints and stores a session for the given membership.
func (reg *Registry) Create(roomID, userID uuid.UUID) Session {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	s := New(roomID, userID)
	reg.sessions[s.ID] = s

	metrics.ActiveSessions.Set(float64(len(reg.sessions)))
	reg.log.Info("Session created",
		zap.String("session_id", s.ID.String()),
		zap.String("room_id", roomID.String()),
		zap.String("user_id", userID.String()),
	)
	return s
}

// Get returns the session, or unauthorized on a miss.
func (reg *Registry) Get(id uuid.UUID) (Session, error) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	s, ok := reg.sessions[id]
	if !ok {
		return Session{}, apierr.Unauthorized("Session not found.")
	}
	return s, nil
}

// Exists reports whether the session is present.
func (reg *Registry) Exists(id uuid.UUID) bool {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	_, ok := reg.sessions[id]
	return ok
}

// Remove drops the session; reports whether it was present.
func (reg *Registry) Remove(id uuid.UUID) bool {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if _, ok := reg.sessions[id]; !ok {
		return false
	}
	delete(reg.sessions, id)

	metrics.ActiveSessions.Set(float64(len(reg.sessions)))
	reg.log.Info("Session removed", zap.String("session_id", id.String()))
	return true
}

// Count returns the number of live sessions.
func (reg *Registry) Count() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.sessions)
}

// Clean removes every session for which isExpired holds and returns how
// many were dropped. The janitor's canonical predicate is "room gone or
// user gone from the room", which keeps session membership consistent with
// room membership.
func (reg *Registry) Clean(isExpired func(Session) bool) int {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	count := 0
	for id, s := range reg.sessions {
		if isExpired(s) {
			delete(reg.sessions, id)
			count++
			reg.log.Info("Session expired", zap.String("session_id", id.String()))
		}
	}
	if count > 0 {
		metrics.ActiveSessions.Set(float64(len(reg.sessions)))
	}
	return count
}
