package transport

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/shoutwars/backend-go/internal/v1/apierr"
	"github.com/shoutwars/backend-go/internal/v1/metrics"
	"github.com/shoutwars/backend-go/internal/v1/room"
	"github.com/shoutwars/backend-go/internal/v1/session"
)

const (
	// APIVersion is the protocol version; every route lives under APIPath.
	APIVersion = 2

	// SyncCooldown is the minimum spacing between two sync calls from the
	// same user.
	SyncCooldown = 100 * time.Millisecond
)

// APIPath is the route prefix for the current protocol version.
var APIPath = fmt.Sprintf("/v%d", APIVersion)

// Handler wires the HTTP surface to the synchronization core.
type Handler struct {
	Rooms    *room.Registry
	Sessions *session.Registry

	// Barrier and cooldown knobs; tests shrink these.
	WaitTimeout time.Duration
	SyncTimeout time.Duration
	Cooldown    time.Duration

	// Password guards the whole API; empty means open.
	Password string
}

// NewHandler creates a Handler with production timeouts.
func NewHandler(rooms *room.Registry, sessions *session.Registry, password string) *Handler {
	return &Handler{
		Rooms:       rooms,
		Sessions:    sessions,
		WaitTimeout: room.DefaultWaitTimeout,
		SyncTimeout: room.DefaultSyncTimeout,
		Cooldown:    SyncCooldown,
		Password:    password,
	}
}

// --- wire types ---

type userPayload struct {
	Name string `msgpack:"name"`
}

type createRoomRequest struct {
	Version string      `msgpack:"version"`
	User    userPayload `msgpack:"user"`
	Size    int         `msgpack:"size"`
}

type createRoomResponse struct {
	SessionID string `msgpack:"session_id"`
	UserID    string `msgpack:"user_id"`
	ID        string `msgpack:"id"`
	Name      string `msgpack:"name"`
}

type joinRoomRequest struct {
	Version string      `msgpack:"version"`
	Name    string      `msgpack:"name"`
	User    userPayload `msgpack:"user"`
}

type joinRoomResponse struct {
	SessionID string `msgpack:"session_id"`
	ID        string `msgpack:"id"`
	UserID    string `msgpack:"user_id"`
	RoomInfo  any    `msgpack:"room_info"`
}

type startGameRequest struct {
	SessionID string `msgpack:"session_id"`
}

type eventPayload struct {
	ID    string `msgpack:"id"`
	Type  string `msgpack:"type"`
	Event any    `msgpack:"event"`
}

type syncRequest struct {
	SessionID string         `msgpack:"session_id"`
	Reports   []eventPayload `msgpack:"reports"`
	Actions   []eventPayload `msgpack:"actions"`
	// RoomInfo stays raw so "absent" and "null" are distinguishable.
	RoomInfo msgpack.RawMessage `msgpack:"room_info"`
}

type wireEvent struct {
	ID     string `msgpack:"id"`
	From   string `msgpack:"from"`
	Type   string `msgpack:"type"`
	Data   any    `msgpack:"data"`
	SyncID string `msgpack:"sync_id,omitempty"`
}

type wireUser struct {
	ID   string `msgpack:"id"`
	Name string `msgpack:"name"`
}

type syncResponse struct {
	ID        string      `msgpack:"id"`
	Reports   []wireEvent `msgpack:"reports"`
	Actions   []wireEvent `msgpack:"actions"`
	RoomUsers []wireUser  `msgpack:"room_users"`
}

type statusResponse struct {
	RoomCount int `msgpack:"room_count"`
	RoomLimit int `msgpack:"room_limit"`
}

// --- handlers ---

// CreateRoom handles POST /v2/room/create.
func (h *Handler) CreateRoom(c *gin.Context) {
	var req createRoomRequest
	if err := decode(c, &req); err != nil {
		respondError(c, err)
		return
	}

	owner, err := room.NewUser(req.User.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	rm, err := h.Rooms.Create(req.Version, owner, req.Size)
	if err != nil {
		respondError(c, err)
		return
	}
	s := h.Sessions.Create(rm.ID, owner.ID)

	respond(c, http.StatusOK, createRoomResponse{
		SessionID: s.ID.String(),
		UserID:    owner.ID.String(),
		ID:        rm.ID.String(),
		Name:      rm.Name,
	})
}

// JoinRoom handles POST /v2/room/join.
func (h *Handler) JoinRoom(c *gin.Context) {
	var req joinRoomRequest
	if err := decode(c, &req); err != nil {
		respondError(c, err)
		return
	}

	rm, err := h.Rooms.Get(req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	user, err := room.NewUser(req.User.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := rm.Join(req.Version, user); err != nil {
		respondError(c, err)
		return
	}
	s := h.Sessions.Create(rm.ID, user.ID)

	respond(c, http.StatusOK, joinRoomResponse{
		SessionID: s.ID.String(),
		ID:        rm.ID.String(),
		UserID:    user.ID.String(),
		RoomInfo:  rm.Info(),
	})
}

// StartGame handles POST /v2/room/start.
func (h *Handler) StartGame(c *gin.Context) {
	var req startGameRequest
	if err := decode(c, &req); err != nil {
		respondError(c, err)
		return
	}

	sess, rm, err := h.resolveSession(req.SessionID)
	if err != nil {
		respondError(c, err)
		return
	}
	owner, err := rm.Owner()
	if err != nil {
		respondError(c, err)
		return
	}
	if sess.UserID != owner.ID {
		respondError(c, apierr.Forbidden("Only owner can start the game."))
		return
	}
	if err := rm.StartGame(); err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, struct{}{})
}

// Sync handles POST /v2/room/sync: deposit the caller's events, run the
// barrier and return the catch-up slice.
func (h *Handler) Sync(c *gin.Context) {
	var req syncRequest
	if err := decode(c, &req); err != nil {
		respondError(c, err)
		return
	}

	sess, rm, err := h.resolveSession(req.SessionID)
	if err != nil {
		respondError(c, err)
		return
	}
	user, err := rm.User(sess.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	if time.Since(user.LastTime()) < h.Cooldown {
		metrics.SyncRequests.WithLabelValues("throttled").Inc()
		respondError(c, apierr.TooManyRequests("Wait 100ms before sending another sync request."))
		return
	}

	reports, err := buildEvents(sess.UserID, req.Reports, "report")
	if err != nil {
		respondError(c, err)
		return
	}
	actions, err := buildEvents(sess.UserID, req.Actions, "action")
	if err != nil {
		respondError(c, err)
		return
	}

	// Only the owner may replace the room info, and only when the field
	// is actually present.
	if len(req.RoomInfo) > 0 {
		owner, err := rm.Owner()
		if err == nil && sess.UserID == owner.ID {
			var info any
			if err := msgpack.Unmarshal(req.RoomInfo, &info); err != nil {
				respondError(c, apierr.BadRequest("Invalid room info."))
				return
			}
			rm.UpdateInfo(info)
		}
	}

	records, err := rm.Sync(sess.UserID, reports, actions, h.WaitTimeout, h.SyncTimeout)
	if err != nil {
		metrics.SyncRequests.WithLabelValues("rejected").Inc()
		respondError(c, err)
		return
	}
	if len(records) == 0 {
		respondError(c, fmt.Errorf("sync returned an empty catch-up slice"))
		return
	}
	metrics.SyncRequests.WithLabelValues("ok").Inc()

	respond(c, http.StatusOK, h.buildSyncResponse(sess.UserID, rm, records))
}

// Status handles GET /v2/status.
func (h *Handler) Status(c *gin.Context) {
	respond(c, http.StatusOK, statusResponse{
		RoomCount: h.Rooms.Count(),
		RoomLimit: h.Rooms.Limit(),
	})
}

// InvalidVersion answers every path outside APIPath. The password filter
// does not run on NoRoute, so the check is repeated here: a caller without
// the secret learns nothing, not even the supported version.
func (h *Handler) InvalidVersion(c *gin.Context) {
	if !passwordAllowed(c, h.Password) {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}
	respond(c, http.StatusNotFound, errorResponse{
		Error: fmt.Sprintf("Invalid API version. Use %s.", APIPath),
	})
}

// --- helpers ---

// resolveSession parses and authenticates a session id, then resolves its
// room.
func (h *Handler) resolveSession(raw string) (session.Session, *room.Room, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return session.Session{}, nil, apierr.BadRequest("Invalid session id.")
	}
	sess, err := h.Sessions.Get(id)
	if err != nil {
		return session.Session{}, nil, err
	}
	rm, err := h.Rooms.GetByID(sess.RoomID)
	if err != nil {
		return session.Session{}, nil, err
	}
	return sess, rm, nil
}

// buildEvents stamps the session's user id onto the submitted payloads.
func buildEvents(from uuid.UUID, payloads []eventPayload, kind string) ([]*room.Event, error) {
	events := make([]*room.Event, 0, len(payloads))
	for _, p := range payloads {
		id, err := uuid.Parse(p.ID)
		if err != nil {
			return nil, apierr.BadRequest("Invalid %s id: %s.", kind, p.ID)
		}
		events = append(events, room.NewEvent(id, from, p.Type, p.Event))
	}
	return events, nil
}

// buildSyncResponse flattens the catch-up slice into the wire shape.
// Reports are private: only the caller's own come back. Actions from every
// participant come back. Events from records other than the newest carry
// the sync_id of their record.
func (h *Handler) buildSyncResponse(userID uuid.UUID, rm *room.Room, records []*room.SyncRecord) syncResponse {
	last := records[len(records)-1]
	resp := syncResponse{
		ID:      last.ID.String(),
		Reports: []wireEvent{},
		Actions: []wireEvent{},
	}

	for _, rec := range records {
		syncID := ""
		if rec.ID != last.ID {
			syncID = rec.ID.String()
		}
		for _, ev := range rec.Reports() {
			if ev.From != userID {
				continue
			}
			resp.Reports = append(resp.Reports, wireEvent{
				ID: ev.ID.String(), From: ev.From.String(), Type: ev.Type, Data: ev.Data, SyncID: syncID,
			})
		}
		for _, ev := range rec.Actions() {
			resp.Actions = append(resp.Actions, wireEvent{
				ID: ev.ID.String(), From: ev.From.String(), Type: ev.Type, Data: ev.Data, SyncID: syncID,
			})
		}
	}

	for _, u := range rm.Users() {
		resp.RoomUsers = append(resp.RoomUsers, wireUser{ID: u.ID.String(), Name: u.Name()})
	}
	return resp
}
