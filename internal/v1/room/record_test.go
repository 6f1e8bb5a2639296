package room

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shoutwars/backend-go/internal/v1/apierr"
)

func TestNewSyncRecord_IDsAreTimeOrdered(t *testing.T) {
	a := NewSyncRecord()
	b := NewSyncRecord()

	assert.NotEqual(t, a.ID, b.ID)
	assert.Less(t, a.ID.String(), b.ID.String())
}

func TestSyncRecord_AddEvents(t *testing.T) {
	rec := NewSyncRecord()
	from := newID()

	report := NewEvent(newID(), from, "ping", 1)
	action := NewEvent(newID(), from, "move", map[string]any{"dx": 1})

	err := rec.AddEvents(from, []*Event{report}, []*Event{action})
	require.NoError(t, err)

	// Reports and actions land in separate maps
	reports := rec.Reports()
	require.Len(t, reports, 1)
	assert.Equal(t, report.ID, reports[0].ID)

	actions := rec.Actions()
	require.Len(t, actions, 1)
	assert.Equal(t, action.ID, actions[0].ID)

	assert.Equal(t, PhaseWaiting, rec.Phase(from))
}

func TestSyncRecord_AddEvents_RepeatIDReplaces(t *testing.T) {
	rec := NewSyncRecord()
	alice := newID()
	bob := newID()

	eventID := newID()
	err := rec.AddEvents(alice, nil, []*Event{NewEvent(eventID, alice, "move", 1)})
	require.NoError(t, err)

	err = rec.AddEvents(bob, nil, []*Event{NewEvent(eventID, bob, "move", 2)})
	require.NoError(t, err)

	actions := rec.Actions()
	require.Len(t, actions, 1)
	assert.Equal(t, bob, actions[0].From)
	assert.Equal(t, 2, actions[0].Data)
}

func TestSyncRecord_AddEvents_RejectsForeignFrom(t *testing.T) {
	rec := NewSyncRecord()
	alice := newID()
	bob := newID()

	err := rec.AddEvents(alice, []*Event{NewEvent(newID(), bob, "ping", nil)}, nil)
	require.Error(t, err)
	assert.Equal(t, 400, apierr.StatusOf(err))
	assert.Equal(t, "Invalid report from.", err.Error())

	err = rec.AddEvents(alice, nil, []*Event{NewEvent(newID(), bob, "move", nil)})
	require.Error(t, err)
	assert.Equal(t, "Invalid action from.", err.Error())

	// A failed validation must not mutate the record
	assert.Empty(t, rec.Reports())
	assert.Empty(t, rec.Actions())
	assert.Equal(t, PhaseCreated, rec.Phase(alice))
}

func TestSyncRecord_AddEvents_RejectsSecondSubmit(t *testing.T) {
	rec := NewSyncRecord()
	from := newID()

	require.NoError(t, rec.AddEvents(from, nil, nil))

	err := rec.AddEvents(from, nil, nil)
	require.Error(t, err)
	assert.Equal(t, 400, apierr.StatusOf(err))
	assert.Equal(t, "Record already synced.", err.Error())
}

func TestSyncRecord_Phase_ObserveCreates(t *testing.T) {
	rec := NewSyncRecord()
	user := newID()

	// Unknown user is observed at CREATED, not missing
	assert.Equal(t, PhaseCreated, rec.Phase(user))
	assert.Equal(t, PhaseCreated, rec.MaxPhase())
}

func TestSyncRecord_AdvancePhase_Monotonic(t *testing.T) {
	rec := NewSyncRecord()
	user := newID()

	assert.True(t, rec.AdvancePhase(user, PhaseSyncing))
	assert.Equal(t, PhaseSyncing, rec.Phase(user))

	// Backward and equal moves are rejected
	assert.False(t, rec.AdvancePhase(user, PhaseWaiting))
	assert.False(t, rec.AdvancePhase(user, PhaseSyncing))
	assert.Equal(t, PhaseSyncing, rec.Phase(user))

	assert.True(t, rec.AdvancePhase(user, PhaseSynced))
	assert.Equal(t, PhaseSynced, rec.Phase(user))
}

func TestSyncRecord_MaxPhase(t *testing.T) {
	rec := NewSyncRecord()

	// Empty record is implicitly at CREATED
	assert.Equal(t, PhaseCreated, rec.MaxPhase())

	a, b := newID(), newID()
	rec.AdvancePhase(a, PhaseWaiting)
	assert.Equal(t, PhaseWaiting, rec.MaxPhase())

	rec.AdvancePhase(b, PhaseSynced)
	assert.Equal(t, PhaseSynced, rec.MaxPhase())
}

func TestSyncRecord_SnapshotsKeepAdmissionOrder(t *testing.T) {
	rec := NewSyncRecord()
	from := newID()

	var want []uuid.UUID
	var events []*Event
	for i := 0; i < 5; i++ {
		ev := NewEvent(newID(), from, "move", i)
		want = append(want, ev.ID)
		events = append(events, ev)
	}
	require.NoError(t, rec.AddEvents(from, nil, events))

	got := rec.Actions()
	require.Len(t, got, 5)
	for i, ev := range got {
		assert.Equal(t, want[i], ev.ID)
	}
}

func TestPhase_String(t *testing.T) {
	assert.Equal(t, "created", PhaseCreated.String())
	assert.Equal(t, "waiting", PhaseWaiting.String())
	assert.Equal(t, "syncing", PhaseSyncing.String())
	assert.Equal(t, "synced", PhaseSynced.String())
	assert.Equal(t, "unknown", Phase(42).String())
}
