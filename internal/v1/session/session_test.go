package session

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shoutwars/backend-go/internal/v1/apierr"
)

func TestNew(t *testing.T) {
	roomID := uuid.Must(uuid.NewV7())
	userID := uuid.Must(uuid.NewV7())

	s := New(roomID, userID)
	assert.NotEqual(t, uuid.Nil, s.ID)
	assert.Equal(t, roomID, s.RoomID)
	assert.Equal(t, userID, s.UserID)
}

func TestRegistry_CreateAndGet(t *testing.T) {
	reg := NewRegistry()

	s := reg.Create(uuid.Must(uuid.NewV7()), uuid.Must(uuid.NewV7()))
	assert.Equal(t, 1, reg.Count())
	assert.True(t, reg.Exists(s.ID))

	got, err := reg.Get(s.ID)
	require.NoError(t, err)
	assert.Equal(t, s, got)
}

func TestRegistry_Get_UnknownIsUnauthorized(t *testing.T) {
	reg := NewRegistry()

	_, err := reg.Get(uuid.Must(uuid.NewV7()))
	require.Error(t, err)
	assert.Equal(t, 401, apierr.StatusOf(err))
	assert.Equal(t, "Session not found.", err.Error())
}

func TestRegistry_Remove(t *testing.T) {
	reg := NewRegistry()
	s := reg.Create(uuid.Must(uuid.NewV7()), uuid.Must(uuid.NewV7()))

	assert.True(t, reg.Remove(s.ID))
	assert.False(t, reg.Exists(s.ID))
	assert.Equal(t, 0, reg.Count())

	assert.False(t, reg.Remove(s.ID))
}

func TestRegistry_Clean(t *testing.T) {
	reg := NewRegistry()

	liveRoom := uuid.Must(uuid.NewV7())
	deadRoom := uuid.Must(uuid.NewV7())
	kept := reg.Create(liveRoom, uuid.Must(uuid.NewV7()))
	reg.Create(deadRoom, uuid.Must(uuid.NewV7()))
	reg.Create(deadRoom, uuid.Must(uuid.NewV7()))

	removed := reg.Clean(func(s Session) bool {
		return s.RoomID == deadRoom
	})
	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, reg.Count())
	assert.True(t, reg.Exists(kept.ID))
}
