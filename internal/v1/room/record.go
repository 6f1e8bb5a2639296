package room

import (
	"sync"

	"github.com/google/uuid"

	"github.com/shoutwars/backend-go/internal/v1/apierr"
)

// Phase is a user's progress within one sync record. Phases are totally
// ordered and only ever advance.
type Phase int

const (
	PhaseCreated Phase = iota
	PhaseWaiting
	PhaseSyncing
	PhaseSynced
)

func (p Phase) String() string {
	switch p {
	case PhaseCreated:
		return "created"
	case PhaseWaiting:
		return "waiting"
	case PhaseSyncing:
		return "syncing"
	case PhaseSynced:
		return "synced"
	}
	return "unknown"
}

// SyncRecord is one round's event bucket plus the per-user phase map.
//
// Records carry their own lock because the transport layer reads reports
// and actions after the room lock has been released; all mutation happens
// while the owning room holds its write lock.
type SyncRecord struct {
	ID uuid.UUID

	mu          sync.RWMutex
	reports     map[uuid.UUID]*Event
	reportOrder []uuid.UUID
	actions     map[uuid.UUID]*Event
	actionOrder []uuid.UUID
	phases      map[uuid.UUID]Phase
}

// NewSyncRecord creates an empty record. The id is a UUIDv7, so natural
// ordering equals creation order.
func NewSyncRecord() *SyncRecord {
	return &SyncRecord{
		ID:      newID(),
		reports: make(map[uuid.UUID]*Event),
		actions: make(map[uuid.UUID]*Event),
		phases:  make(map[uuid.UUID]Phase),
	}
}

// AddEvents merges the given reports and actions into the record and moves
// the submitting user to PhaseWaiting. Fails if the user already submitted
// into this record or if any event does not originate from them.
func (r *SyncRecord) AddEvents(from uuid.UUID, newReports, newActions []*Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.phases[from] > PhaseCreated {
		return apierr.BadRequest("Record already synced.")
	}
	for _, report := range newReports {
		if report.From != from {
			return apierr.BadRequest("Invalid report from.")
		}
	}
	for _, action := range newActions {
		if action.From != from {
			return apierr.BadRequest("Invalid action from.")
		}
	}
	for _, report := range newReports {
		if _, seen := r.reports[report.ID]; !seen {
			r.reportOrder = append(r.reportOrder, report.ID)
		}
		r.reports[report.ID] = report
	}
	for _, action := range newActions {
		if _, seen := r.actions[action.ID]; !seen {
			r.actionOrder = append(r.actionOrder, action.ID)
		}
		r.actions[action.ID] = action
	}
	r.phases[from] = PhaseWaiting
	return nil
}

// Phase returns the user's phase, observing them at PhaseCreated if the
// record has not seen them before. A user first appearing mid-round counts
// as "not yet submitted" rather than missing.
func (r *SyncRecord) Phase(userID uuid.UUID) Phase {
	r.mu.Lock()
	defer r.mu.Unlock()

	phase, ok := r.phases[userID]
	if !ok {
		r.phases[userID] = PhaseCreated
	}
	return phase
}

// AdvancePhase moves the user's phase forward, never backward. Reports
// whether the phase strictly advanced.
func (r *SyncRecord) AdvancePhase(userID uuid.UUID, newPhase Phase) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if newPhase <= r.phases[userID] {
		// Keep the observe=create side effect of a failed advance.
		if _, ok := r.phases[userID]; !ok {
			r.phases[userID] = PhaseCreated
		}
		return false
	}
	r.phases[userID] = newPhase
	return true
}

// MaxPhase returns the maximum phase across all observed users, or
// PhaseCreated if the record has observed nobody yet.
func (r *SyncRecord) MaxPhase() Phase {
	r.mu.RLock()
	defer r.mu.RUnlock()

	maxPhase := PhaseCreated
	for _, phase := range r.phases {
		if phase > maxPhase {
			maxPhase = phase
		}
	}
	return maxPhase
}

// Reports returns the stored reports in admission order.
func (r *SyncRecord) Reports() []*Event {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Event, 0, len(r.reportOrder))
	for _, id := range r.reportOrder {
		out = append(out, r.reports[id])
	}
	return out
}

// Actions returns the stored actions in admission order.
func (r *SyncRecord) Actions() []*Event {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Event, 0, len(r.actionOrder))
	for _, id := range r.actionOrder {
		out = append(out, r.actions[id])
	}
	return out
}

// newID generates a time-ordered UUID (v7).
func newID() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}
