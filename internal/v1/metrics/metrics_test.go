package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestGauges(t *testing.T) {
	ActiveRooms.Set(3)
	assert.Equal(t, float64(3), testutil.ToFloat64(ActiveRooms))

	ActiveRooms.Dec()
	assert.Equal(t, float64(2), testutil.ToFloat64(ActiveRooms))

	ActiveSessions.Set(5)
	assert.Equal(t, float64(5), testutil.ToFloat64(ActiveSessions))
}

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(RoomsCreated)
	RoomsCreated.Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(RoomsCreated))

	beforeOK := testutil.ToFloat64(SyncRequests.WithLabelValues("ok"))
	SyncRequests.WithLabelValues("ok").Inc()
	assert.Equal(t, beforeOK+1, testutil.ToFloat64(SyncRequests.WithLabelValues("ok")))
}
