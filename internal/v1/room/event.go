// Package room implements the room synchronization engine: events, sync
// records, users, the per-room barrier and the process-wide room registry.
package room

import "github.com/google/uuid"

// Event is one player contribution (a report or an action) within a round.
// Immutable once constructed; identity is the client-supplied id.
type Event struct {
	ID   uuid.UUID
	From uuid.UUID
	Type string
	Data any
}

// NewEvent constructs an immutable event.
func NewEvent(id, from uuid.UUID, eventType string, data any) *Event {
	return &Event{ID: id, From: from, Type: eventType, Data: data}
}
