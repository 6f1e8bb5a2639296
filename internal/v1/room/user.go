package room

import (
	"time"

	"github.com/google/uuid"

	"github.com/shoutwars/backend-go/internal/v1/apierr"
)

// NameMaxLength bounds the display name, in bytes.
const NameMaxLength = 32

// User is a membership entry in a room. It is mutable but not thread-safe;
// the owning room's lock guards all access.
type User struct {
	ID uuid.UUID

	name       string
	lastSyncID uuid.UUID
	lastTime   time.Time
}

// NewUser creates a user with a fresh time-ordered id. The display name is
// validated; lastSyncID starts at the nil sentinel.
func NewUser(name string) (*User, error) {
	u := &User{
		ID:         newID(),
		lastSyncID: uuid.Nil,
		lastTime:   time.Now(),
	}
	if err := u.SetName(name); err != nil {
		return nil, err
	}
	return u, nil
}

// Name returns the display name.
func (u User) Name() string {
	return u.name
}

// SetName validates and updates the display name.
func (u *User) SetName(newName string) error {
	if len(newName) == 0 || len(newName) > NameMaxLength {
		return apierr.BadRequest(
			"Invalid user name length: %d. Must be between 1 and %d.",
			len(newName), NameMaxLength,
		)
	}
	u.name = newName
	return nil
}

// LastSyncID returns the id of the most recent record the user has
// acknowledged; uuid.Nil means none.
func (u User) LastSyncID() uuid.UUID {
	return u.lastSyncID
}

// LastTime returns the time of the user's last activity.
func (u User) LastTime() time.Time {
	return u.lastTime
}

// UpdateLast stamps both the sync bookmark and the activity time.
func (u *User) UpdateLast(newSyncID uuid.UUID) {
	u.lastSyncID = newSyncID
	u.lastTime = time.Now()
}
