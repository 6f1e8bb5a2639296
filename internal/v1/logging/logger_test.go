package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitialize(t *testing.T) {
	err := Initialize(true)
	require.NoError(t, err)
	assert.NotNil(t, GetLogger())

	// Second call is a no-op (sync.Once), must not error
	err = Initialize(false)
	assert.NoError(t, err)
}

func TestGetLogger_BeforeInit(t *testing.T) {
	// Must never return nil, even before Initialize
	assert.NotNil(t, GetLogger())
}

func TestAppendContextFields(t *testing.T) {
	ctx := context.WithValue(context.Background(), CorrelationIDKey, "cid-1")
	ctx = context.WithValue(ctx, RoomIDKey, "room-1")
	ctx = context.WithValue(ctx, UserIDKey, "user-1")

	fields := appendContextFields(ctx, nil)

	keys := make(map[string]bool)
	for _, f := range fields {
		keys[f.Key] = true
	}
	assert.True(t, keys["correlation_id"])
	assert.True(t, keys["room_id"])
	assert.True(t, keys["user_id"])
	assert.True(t, keys["service"])
	assert.False(t, keys["session_id"])
}

func TestAppendContextFields_NilContext(t *testing.T) {
	//nolint:staticcheck // deliberately exercising the nil-context guard
	fields := appendContextFields(nil, nil)
	assert.Empty(t, fields)
}
