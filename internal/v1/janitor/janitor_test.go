package janitor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/shoutwars/backend-go/internal/v1/room"
	"github.com/shoutwars/backend-go/internal/v1/session"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestOwner(t *testing.T) *room.User {
	t.Helper()
	u, err := room.NewUser("owner")
	require.NoError(t, err)
	return u
}

func TestJanitor_Sweep(t *testing.T) {
	rooms := room.NewRegistry(10, 10*time.Minute, 20*time.Minute)
	sessions := session.NewRegistry()
	j := New(rooms, sessions, DefaultInterval, time.Hour)

	// A healthy room with a live session survives the sweep.
	owner := newTestOwner(t)
	rm, err := rooms.Create("1.0.0", owner, 2)
	require.NoError(t, err)
	liveSession := sessions.Create(rm.ID, owner.ID)

	// A session pointing at a room that no longer exists is orphaned.
	ghost := newTestOwner(t)
	ghostRoom, err := rooms.Create("1.0.0", ghost, 2)
	require.NoError(t, err)
	orphanByRoom := sessions.Create(ghostRoom.ID, ghost.ID)
	rooms.Remove(ghostRoom.ID)

	// A session whose user was kicked from a surviving room is orphaned too.
	kicked, err := room.NewUser("kicked")
	require.NoError(t, err)
	require.NoError(t, rm.Join(rm.Version, kicked))
	orphanByKick := sessions.Create(rm.ID, kicked.ID)
	rm.Kick(kicked.ID)

	j.Sweep()

	assert.True(t, rooms.ExistsByID(rm.ID))
	assert.True(t, sessions.Exists(liveSession.ID))
	assert.False(t, sessions.Exists(orphanByRoom.ID))
	assert.False(t, sessions.Exists(orphanByKick.ID))
}

func TestJanitor_Sweep_RemovesExpiredRooms(t *testing.T) {
	rooms := room.NewRegistry(10, -time.Second, -time.Second)
	sessions := session.NewRegistry()
	j := New(rooms, sessions, DefaultInterval, time.Hour)

	owner := newTestOwner(t)
	rm, err := rooms.Create("1.0.0", owner, 2)
	require.NoError(t, err)
	s := sessions.Create(rm.ID, owner.ID)

	j.Sweep()

	assert.Equal(t, 0, rooms.Count())
	assert.False(t, sessions.Exists(s.ID))
}

func TestJanitor_StartStop(t *testing.T) {
	rooms := room.NewRegistry(10, -time.Second, -time.Second)
	sessions := session.NewRegistry()

	owner := newTestOwner(t)
	_, err := rooms.Create("1.0.0", owner, 2)
	require.NoError(t, err)

	j := New(rooms, sessions, 5*time.Millisecond, time.Hour)
	j.Start()

	assert.Eventually(t, func() bool {
		return rooms.Count() == 0
	}, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, j.Stop(ctx))
}
