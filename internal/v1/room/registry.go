package room

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shoutwars/backend-go/internal/v1/apierr"
	"github.com/shoutwars/backend-go/internal/v1/logging"
	"github.com/shoutwars/backend-go/internal/v1/metrics"
)

const (
	// NameLength is the number of decimal digits in a room name.
	NameLength = 6

	nameSpace = 1_000_000 // 10^NameLength
)

// Registry is the process-wide set of rooms, indexed by id and by the
// human-facing six-digit name. Both indexes and the capacity check live
// under one lock so lookups round-trip and the limit is never exceeded.
type Registry struct {
	LobbyLifetime time.Duration
	GameLifetime  time.Duration

	mu       sync.RWMutex
	limit    int
	rooms    map[uuid.UUID]*Room
	nameToID map[string]uuid.UUID

	log *zap.Logger
}

// NewRegistry creates an empty registry with the given room limit and the
// lifetimes applied to every room it creates.
func NewRegistry(limit int, lobbyLifetime, gameLifetime time.Duration) *Registry {
	return &Registry{
		LobbyLifetime: lobbyLifetime,
		GameLifetime:  gameLifetime,
		limit:         limit,
		rooms:         make(map[uuid.UUID]*Room),
		nameToID:      make(map[string]uuid.UUID),
		log:           logging.GetLogger(),
	}
}

// Create constructs a room with a fresh unique name and inserts it into
// both indexes atomically. Refused when the registry is at capacity.
func (reg *Registry) Create(version string, owner *User, size int) (*Room, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if len(reg.rooms) >= reg.limit {
		return nil, apierr.Forbidden("Room limit reached. Max room count is %d.", reg.limit)
	}

	// Rejection sampling over the 10^6 name space. math/rand/v2's top-level
	// generator keeps per-thread state, so name generation does not add a
	// second hot lock on the create path.
	var name string
	for {
		name = fmt.Sprintf("%0*d", NameLength, rand.IntN(nameSpace))
		if _, taken := reg.nameToID[name]; !taken {
			break
		}
	}

	room, err := NewRoom(version, owner, name, size, reg.LobbyLifetime, reg.GameLifetime)
	if err != nil {
		return nil, err
	}
	reg.rooms[room.ID] = room
	reg.nameToID[name] = room.ID

	metrics.RoomsCreated.Inc()
	metrics.ActiveRooms.Set(float64(len(reg.rooms)))
	reg.log.Info("Room created",
		zap.String("room_id", room.ID.String()),
		zap.String("room_name", name),
		zap.String("version", version),
		zap.String("owner_id", owner.ID.String()),
		zap.Int("size", size),
	)
	return room, nil
}

// GetByID returns the room with the given id.
func (reg *Registry) GetByID(id uuid.UUID) (*Room, error) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	room, ok := reg.rooms[id]
	if !ok {
		return nil, apierr.NotFound("Room not found.")
	}
	return room, nil
}

// Get returns the room with the given name.
func (reg *Registry) Get(name string) (*Room, error) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	id, ok := reg.nameToID[name]
	if !ok {
		return nil, apierr.NotFound("Room not found.")
	}
	room, ok := reg.rooms[id]
	if !ok {
		return nil, apierr.NotFound("Room not found.")
	}
	return room, nil
}

// ExistsByID reports whether a room with the given id is present.
func (reg *Registry) ExistsByID(id uuid.UUID) bool {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	_, ok := reg.rooms[id]
	return ok
}

// Exists reports whether a room with the given name is present.
func (reg *Registry) Exists(name string) bool {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	_, ok := reg.nameToID[name]
	return ok
}

// Remove drops the room from both indexes; reports whether it was present.
func (reg *Registry) Remove(id uuid.UUID) bool {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	room, ok := reg.rooms[id]
	if !ok {
		return false
	}
	delete(reg.nameToID, room.Name)
	delete(reg.rooms, id)

	metrics.RoomsRemoved.Inc()
	metrics.ActiveRooms.Set(float64(len(reg.rooms)))
	reg.log.Info("Room removed", zap.String("room_id", id.String()))
	return true
}

// Count returns the number of rooms.
func (reg *Registry) Count() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.rooms)
}

// All returns a snapshot of every room.
func (reg *Registry) All() []*Room {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	out := make([]*Room, 0, len(reg.rooms))
	for _, room := range reg.rooms {
		out = append(out, room)
	}
	return out
}

// Limit returns the configured room limit.
func (reg *Registry) Limit() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return reg.limit
}

// SetLimit changes the room limit. Existing rooms above the new limit are
// left to expire naturally.
func (reg *Registry) SetLimit(newLimit int) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.limit = newLimit
}

// Clean sweeps every room once: unavailable rooms are removed, surviving
// rooms get their inactive users kicked and their consumed records dropped.
// The room set is snapshotted first so per-room work runs outside the
// registry lock.
func (reg *Registry) Clean(userTimeout time.Duration) {
	for _, room := range reg.All() {
		if !room.IsAvailable() {
			reg.Remove(room.ID)
			continue
		}
		room.KickExpired(userTimeout)
		room.CleanSyncRecords()
	}
}
