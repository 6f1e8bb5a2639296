package room

import (
	"bytes"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shoutwars/backend-go/internal/v1/apierr"
	"github.com/shoutwars/backend-go/internal/v1/logging"
	"github.com/shoutwars/backend-go/internal/v1/metrics"
)

const (
	// VersionMaxLength bounds the protocol version string, in bytes.
	VersionMaxLength = 32
	// SizeMin and SizeMax bound the room's target player count.
	SizeMin = 2
	SizeMax = 4

	// DefaultWaitTimeout caps the slow-joiner wait: how long a caller waits
	// for stragglers from the previous round before closing admission.
	DefaultWaitTimeout = 200 * time.Millisecond
	// DefaultSyncTimeout caps the consensus wait: how long an engaged caller
	// blocks for the slowest member before leaving them behind.
	DefaultSyncTimeout = 50 * time.Millisecond
)

// Room owns its users and the ordered log of sync records, and implements
// the per-round synchronization barrier.
//
// One write lock guards the whole mutable interior. The condition variable
// is bound to the write side of that lock; Sync releases the lock only
// inside its two bounded waits.
type Room struct {
	ID      uuid.UUID
	Version string
	Name    string
	Size    int

	LobbyLifetime time.Duration
	GameLifetime  time.Duration

	mu       sync.RWMutex
	syncCond *sync.Cond

	expireTime time.Time
	userOrder  []uuid.UUID // insertion order; the first entry is the owner
	users      map[uuid.UUID]*User
	inLobby    bool
	info       any
	records    []*SyncRecord // append-only ordering; pruned by CleanSyncRecords

	log *zap.Logger
}

// NewRoom validates version and size, inserts the owner as the first user,
// creates the inaugural empty sync record and stamps the lobby deadline.
func NewRoom(version string, owner *User, name string, size int, lobbyLifetime, gameLifetime time.Duration) (*Room, error) {
	if len(version) == 0 || len(version) > VersionMaxLength {
		return nil, apierr.BadRequest(
			"Invalid room version length: %d. Must be between 1 and %d.",
			len(version), VersionMaxLength,
		)
	}
	if size < SizeMin || size > SizeMax {
		return nil, apierr.BadRequest(
			"Invalid room size: %d. Must be between %d and %d.",
			size, SizeMin, SizeMax,
		)
	}

	r := &Room{
		ID:            newID(),
		Version:       version,
		Name:          name,
		Size:          size,
		LobbyLifetime: lobbyLifetime,
		GameLifetime:  gameLifetime,
		expireTime:    time.Now().Add(lobbyLifetime),
		userOrder:     []uuid.UUID{owner.ID},
		users:         map[uuid.UUID]*User{owner.ID: owner},
		inLobby:       true,
		records:       []*SyncRecord{NewSyncRecord()},
	}
	r.syncCond = sync.NewCond(&r.mu)
	r.log = logging.GetLogger().With(
		zap.String("room_id", r.ID.String()),
		zap.String("room_name", name),
	)
	owner.UpdateLast(uuid.Nil)
	return r, nil
}

// ExpireTime returns the current expiry deadline.
func (r *Room) ExpireTime() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.expireTime
}

// Join admits a user into the lobby. The joiner's bookmark is set to the
// current record when the room has already run rounds, so they pick up from
// the next round; a joiner arriving before any real round starts from the
// beginning and still receives the inaugural round.
func (r *Room) Join(version string, user *User) error {
	if version != r.Version {
		return apierr.BadRequest(
			"Invalid room version: %s. This room version is %s.",
			version, r.Version,
		)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.inLobby {
		return apierr.Forbidden("Game already started.")
	}
	if len(r.users) >= r.Size {
		return apierr.Forbidden("Room is full. Max user count is %d.", r.Size)
	}
	if _, exists := r.users[user.ID]; exists {
		return apierr.Forbidden("User already in the room.")
	}

	r.userOrder = append(r.userOrder, user.ID)
	r.users[user.ID] = user
	if len(r.records) > 1 {
		user.UpdateLast(r.records[len(r.records)-1].ID)
	} else {
		user.UpdateLast(uuid.Nil)
	}
	return nil
}

// User returns a snapshot copy of the member, or not-found.
func (r *Room) User(id uuid.UUID) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return User{}, apierr.NotFound("User not found.")
	}
	return *user, nil
}

// HasUser reports membership.
func (r *Room) HasUser(id uuid.UUID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.users[id]
	return ok
}

// Kick removes a user; reports whether they were present.
func (r *Room) Kick(id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.removeUserLocked(id)
}

// KickExpired removes every user inactive for longer than timeout and
// returns how many were dropped.
func (r *Room) KickExpired(timeout time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	var expired []uuid.UUID
	for id, user := range r.users {
		if now.Sub(user.LastTime()) > timeout {
			expired = append(expired, id)
		}
	}
	for _, id := range expired {
		r.removeUserLocked(id)
	}
	if len(expired) > 0 {
		metrics.UsersKicked.Add(float64(len(expired)))
		r.log.Info("Kicked expired users", zap.Int("count", len(expired)))
	}
	return len(expired)
}

func (r *Room) removeUserLocked(id uuid.UUID) bool {
	if _, ok := r.users[id]; !ok {
		return false
	}
	delete(r.users, id)
	for i, uid := range r.userOrder {
		if uid == id {
			r.userOrder = append(r.userOrder[:i], r.userOrder[i+1:]...)
			break
		}
	}
	return true
}

// CountUsers returns the number of members.
func (r *Room) CountUsers() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}

// UserIDs returns member ids in insertion order.
func (r *Room) UserIDs() []uuid.UUID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]uuid.UUID, len(r.userOrder))
	copy(out, r.userOrder)
	return out
}

// Users returns snapshot copies of the members in insertion order.
func (r *Room) Users() []User {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]User, 0, len(r.userOrder))
	for _, id := range r.userOrder {
		out = append(out, *r.users[id])
	}
	return out
}

// Owner returns the first inserted user.
func (r *Room) Owner() (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.userOrder) == 0 {
		return User{}, apierr.NotFound("Room is empty.")
	}
	return *r.users[r.userOrder[0]], nil
}

// InLobby reports whether the game has not started yet.
func (r *Room) InLobby() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.inLobby
}

// StartGame leaves the lobby and rearms the expiry with the game lifetime.
// Requires at least two members.
func (r *Room) StartGame() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.inLobby {
		return apierr.Forbidden("Game already started.")
	}
	if len(r.users) < 2 {
		return apierr.Forbidden("Not enough players to start the game.")
	}
	r.inLobby = false
	r.expireTime = time.Now().Add(r.GameLifetime)
	r.log.Info("Game started", zap.Int("users", len(r.users)))
	return nil
}

// IsAvailable reports whether the room should stay alive: not expired, and
// populated enough for its lifecycle stage (lobby needs one user, a running
// game needs two).
func (r *Room) IsAvailable() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if time.Now().After(r.expireTime) {
		return false
	}
	if r.inLobby {
		return len(r.users) > 0
	}
	return len(r.users) > 1
}

// Info returns the owner-controlled room info value.
func (r *Room) Info() any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.info
}

// UpdateInfo overwrites the room info. Ownership is the caller's policy.
func (r *Room) UpdateInfo(newInfo any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.info = newInfo
}

// Sync runs the synchronization barrier for one caller and returns the
// ordered catch-up slice of records they have not yet acknowledged.
//
// The caller deposits its events into the current record, waits (bounded by
// waitTimeout) for stragglers from the previous round, advances to SYNCING,
// waits (bounded by syncTimeout) for members that have not submitted, and
// finalizes at SYNCED. A member that never shows up is left behind at
// CREATED with their bookmark pinned, so they can catch up on reconnect.
func (r *Room) Sync(userID uuid.UUID, reports, actions []*Event, waitTimeout, syncTimeout time.Duration) ([]*SyncRecord, error) {
	start := time.Now()
	defer func() {
		metrics.SyncBarrierDuration.Observe(time.Since(start).Seconds())
	}()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[userID]; !ok {
		return nil, apierr.Forbidden("User not in the room.")
	}
	record := r.records[len(r.records)-1]
	if record.Phase(userID) > PhaseCreated {
		return nil, apierr.Forbidden("User already synced.")
	}
	if record.MaxPhase() >= PhaseSynced {
		return nil, apierr.Forbidden("Room already synced.")
	}

	if err := record.AddEvents(userID, reports, actions); err != nil {
		return nil, err
	}

	// Give stragglers from the previous round a chance to land their events
	// in this record. The wait shortens as soon as any member advances to
	// SYNCING. Skipped on the inaugural round.
	if len(r.records) > 1 && record.MaxPhase() <= PhaseWaiting {
		r.waitLocked(waitTimeout, func() bool {
			return record.MaxPhase() > PhaseWaiting
		})
	}
	record.AdvancePhase(userID, PhaseSyncing)
	r.syncCond.Broadcast()

	// Bounded wait for members that have not submitted into this record.
	if r.anyMemberUnsubmittedLocked(record) {
		r.waitLocked(syncTimeout, func() bool {
			return record.MaxPhase() > PhaseSyncing
		})
	}
	record.AdvancePhase(userID, PhaseSynced)
	r.syncCond.Broadcast()

	// The locks were released during the waits; the janitor may have kicked
	// this user in between.
	user, ok := r.users[userID]
	if !ok {
		return nil, apierr.Forbidden("User not in the room.")
	}

	// Catch-up slice: every record past the caller's bookmark, in log
	// order. Records the caller skipped entirely are marked consumed.
	cursor := user.LastSyncID()
	var backlog []*SyncRecord
	for _, rec := range r.records {
		if bytes.Compare(rec.ID[:], cursor[:]) <= 0 {
			continue
		}
		backlog = append(backlog, rec)
		rec.AdvancePhase(userID, PhaseSynced)
	}
	// A joiner bookmarked at the active record has nothing past the cursor;
	// they still get the round they just deposited into.
	if len(backlog) == 0 {
		backlog = append(backlog, record)
	}

	// Round rollover: when no member is mid-round (everyone is either done
	// or never participated), open the next round.
	if r.roundSettledLocked(record) {
		next := NewSyncRecord()
		r.records = append(r.records, next)
		metrics.RoundsCompleted.Inc()
	}

	user.UpdateLast(record.ID)
	return backlog, nil
}

// anyMemberUnsubmittedLocked reports whether some member has not deposited
// into the record yet. Callers hold the write lock.
func (r *Room) anyMemberUnsubmittedLocked(record *SyncRecord) bool {
	for _, id := range r.userOrder {
		if record.Phase(id) <= PhaseCreated {
			return true
		}
	}
	return false
}

// roundSettledLocked reports whether no member is mid-round on the record:
// each one is either finished (>= SYNCED) or never participated (<= CREATED).
func (r *Room) roundSettledLocked(record *SyncRecord) bool {
	for _, id := range r.userOrder {
		phase := record.Phase(id)
		if phase > PhaseCreated && phase < PhaseSynced {
			return false
		}
	}
	return true
}

// waitLocked blocks until done() holds or the timeout elapses, releasing
// the room write lock while parked and re-checking the predicate under the
// lock after every wakeup. The timer broadcast takes the lock first so a
// waiter between its predicate check and the park cannot miss the wakeup.
func (r *Room) waitLocked(timeout time.Duration, done func() bool) {
	deadline := time.Now().Add(timeout)
	timer := time.AfterFunc(timeout, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.syncCond.Broadcast()
	})
	defer timer.Stop()

	for !done() && time.Now().Before(deadline) {
		r.syncCond.Wait()
	}
}

// CleanSyncRecords drops consumed records from the log and returns how many
// were removed. The active (last) record is never dropped, so the log is
// never empty and in-flight syncs keep their round.
func (r *Room) CleanSyncRecords() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cleaned := 0
	kept := make([]*SyncRecord, 0, len(r.records))
	for i, rec := range r.records {
		if i == len(r.records)-1 {
			kept = append(kept, rec)
			continue
		}
		consumed := false
		for _, id := range r.userOrder {
			if rec.Phase(id) >= PhaseSynced {
				consumed = true
				break
			}
		}
		if consumed {
			cleaned++
			continue
		}
		kept = append(kept, rec)
	}
	r.records = kept
	if cleaned > 0 {
		metrics.RecordsCleaned.Add(float64(cleaned))
	}
	return cleaned
}

// CountSyncRecords returns the current log length.
func (r *Room) CountSyncRecords() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}
