// Package janitor runs the periodic cleanup pass over both registries.
// It is the only component that destroys rooms and sessions.
package janitor

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/shoutwars/backend-go/internal/v1/logging"
	"github.com/shoutwars/backend-go/internal/v1/room"
	"github.com/shoutwars/backend-go/internal/v1/session"
)

const (
	// DefaultInterval is how often the janitor sweeps.
	DefaultInterval = 3 * time.Second
	// DefaultUserTimeout is the per-user inactivity limit.
	DefaultUserTimeout = 10 * time.Second
)

// Janitor periodically removes expired rooms, inactive users, consumed
// sync records and orphaned sessions.
type Janitor struct {
	rooms       *room.Registry
	sessions    *session.Registry
	interval    time.Duration
	userTimeout time.Duration

	cancel context.CancelFunc
	wg     sync.WaitGroup
	log    *zap.Logger
}

// New creates a janitor over the given registries.
func New(rooms *room.Registry, sessions *session.Registry, interval, userTimeout time.Duration) *Janitor {
	return &Janitor{
		rooms:       rooms,
		sessions:    sessions,
		interval:    interval,
		userTimeout: userTimeout,
		log:         logging.GetLogger(),
	}
}

// Start launches the background sweep loop. Call Stop to end it.
func (j *Janitor) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	j.cancel = cancel

	j.wg.Add(1)
	go func() {
		defer j.wg.Done()

		ticker := time.NewTicker(j.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				j.Sweep()
			}
		}
	}()
	j.log.Info("Janitor started",
		zap.Duration("interval", j.interval),
		zap.Duration("user_timeout", j.userTimeout),
	)
}

// Sweep runs one cleanup pass: rooms first, then the sessions whose room
// or user vanished. Ordering matters — a session is orphaned only after
// its room is actually gone.
func (j *Janitor) Sweep() {
	j.rooms.Clean(j.userTimeout)
	j.sessions.Clean(func(s session.Session) bool {
		rm, err := j.rooms.GetByID(s.RoomID)
		if err != nil {
			return true
		}
		return !rm.HasUser(s.UserID)
	})
}

// Stop ends the sweep loop and waits for it to exit, bounded by ctx.
func (j *Janitor) Stop(ctx context.Context) error {
	if j.cancel != nil {
		j.cancel()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		j.wg.Wait()
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
