package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/ashbrook/roomengine/internal/apperr"
	"github.com/ashbrook/roomengine/internal/roomcore"
	"github.com/ashbrook/roomengine/internal/roomregistry"
	"github.com/ashbrook/roomengine/internal/store"
	"github.com/ashbrook/roomengine/internal/writesink"
)

// newRoomContext builds the cancellable context a spawned room actor runs
// under; Cancel on the registry handle is this Go port's stand-in for
// dropping the last sender in the reference implementation.
func newRoomContext() (context.Context, func()) {
	return context.WithCancel(context.Background())
}

// RoomHandlers implements the management surface's room lifecycle
// endpoints: create, list, get, close, reset-admins, and unban.
type RoomHandlers struct {
	registry  *roomregistry.Registry
	store     store.Store
	sink      *writesink.Sink
	roomCfg   roomcore.Config
	log       *zerolog.Logger
	publicURL string
}

// NewRoomHandlers wires a RoomHandlers against the process's shared
// registry, store, and write sink.
func NewRoomHandlers(registry *roomregistry.Registry, st store.Store, sink *writesink.Sink, roomCfg roomcore.Config, publicURL string, logger *zerolog.Logger) *RoomHandlers {
	return &RoomHandlers{registry: registry, store: st, sink: sink, roomCfg: roomCfg, log: logger, publicURL: publicURL}
}

// CreateRoomRequest is the body of POST /api/rooms.
type CreateRoomRequest struct {
	Name         string   `json:"name" binding:"required,min=1,max=64"`
	AdminUserIDs []string `json:"admin_user_ids"`
}

// CreateRoomResponse is returned on successful creation.
type CreateRoomResponse struct {
	RoomID       string `json:"room_id"`
	WebsocketURL string `json:"websocket_url"`
}

// CreateRoom handles POST /api/rooms: persists the room, spawns its actor,
// and registers it.
func (h *RoomHandlers) CreateRoom(c *gin.Context) {
	var req CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Write(c, h.log, apperr.BadRequest("invalid request body"))
		return
	}

	room, err := h.store.CreateRoom(c.Request.Context(), req.Name, req.AdminUserIDs)
	if err != nil {
		h.log.Error().Err(err).Str("room_name", req.Name).Msg("failed to create room")
		apperr.WriteInternal(c)
		return
	}

	admins := make(map[string]struct{}, len(req.AdminUserIDs))
	for _, id := range req.AdminUserIDs {
		admins[id] = struct{}{}
	}
	h.SpawnRoom(room.ID, admins, nil)

	c.JSON(http.StatusCreated, CreateRoomResponse{
		RoomID:       room.ID,
		WebsocketURL: h.publicURL + "/ws/rooms/" + room.ID,
	})
}

// SpawnRoom starts a room actor and registers it. Used both by CreateRoom
// and by process start-up re-hydration of persisted rooms.
func (h *RoomHandlers) SpawnRoom(roomID string, admins, bans map[string]struct{}) {
	room := roomcore.NewRoom(roomID, admins, bans, h.sink, h.roomCfg, h.log)
	ctx, cancel := newRoomContext()
	go room.Run(ctx)

	h.registry.Insert(&roomregistry.Handle{
		ID:         roomID,
		HighPrio:   room.HighPrioIngress(),
		NormalPrio: room.NormalPrioIngress(),
		Control:    room.ControlIngress(),
		Stats:      room.StatsIngress(),
		Cancel:     cancel,
	})
}

// RoomSummary is one entry of GET /api/rooms.
type RoomSummary struct {
	RoomID       string    `json:"room_id"`
	Name         string    `json:"name"`
	CreatedAt    time.Time `json:"created_at"`
	CurrentUsers int       `json:"current_users"`
	PeakUsers    int       `json:"peak_users"`
}

// ListRooms handles GET /api/rooms: persisted room rows enriched with a
// live stats snapshot per room.
func (h *RoomHandlers) ListRooms(c *gin.Context) {
	rooms, err := h.store.ListRooms(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list rooms")
		apperr.WriteInternal(c)
		return
	}

	out := make([]RoomSummary, 0, len(rooms))
	for _, r := range rooms {
		summary := RoomSummary{RoomID: r.ID, Name: r.Name, CreatedAt: r.CreatedAt}
		if snap, ok := h.queryStats(r.ID); ok {
			summary.CurrentUsers = snap.Stats.CurrentUsers
			summary.PeakUsers = snap.Stats.PeakUsers
		}
		out = append(out, summary)
	}
	c.JSON(http.StatusOK, out)
}

// RoomDetail is the body of GET /api/rooms/{room_id}.
type RoomDetail struct {
	RoomID       string    `json:"room_id"`
	Name         string    `json:"name"`
	CreatedAt    time.Time `json:"created_at"`
	StartTime    time.Time `json:"start_time"`
	Admins       []string  `json:"admins"`
	CurrentUsers int       `json:"current_users"`
	PeakUsers    int       `json:"peak_users"`
	TotalJoins   uint64    `json:"total_joins"`
}

// GetRoom handles GET /api/rooms/{room_id}.
func (h *RoomHandlers) GetRoom(c *gin.Context) {
	roomID := c.Param("room_id")
	room, err := h.store.GetRoom(c.Request.Context(), roomID)
	if err != nil {
		if errors.Is(err, store.ErrRoomNotFound) {
			apperr.Write(c, h.log, apperr.NotFound("room not found"))
		} else {
			h.log.Error().Err(err).Str("room_id", roomID).Msg("failed to get room")
			apperr.WriteInternal(c)
		}
		return
	}

	detail := RoomDetail{RoomID: room.ID, Name: room.Name, CreatedAt: room.CreatedAt}
	if snap, ok := h.queryStats(roomID); ok {
		detail.StartTime = snap.StartTime
		detail.CurrentUsers = snap.Stats.CurrentUsers
		detail.PeakUsers = snap.Stats.PeakUsers
		detail.TotalJoins = snap.Stats.TotalJoins
		for admin := range snap.Admins {
			detail.Admins = append(detail.Admins, admin)
		}
	}
	c.JSON(http.StatusOK, detail)
}

// queryStats runs a synchronous stats query against a live room actor.
func (h *RoomHandlers) queryStats(roomID string) (roomcore.StatsSnapshot, bool) {
	handle, ok := h.registry.Get(roomID)
	if !ok {
		return roomcore.StatsSnapshot{}, false
	}
	reply := make(chan roomcore.StatsSnapshot, 1)
	select {
	case handle.Stats <- roomcore.StatsQuery{Reply: reply}:
	case <-time.After(time.Second):
		return roomcore.StatsSnapshot{}, false
	}
	select {
	case snap := <-reply:
		return snap, true
	case <-time.After(time.Second):
		return roomcore.StatsSnapshot{}, false
	}
}

// ResetAdminsRequest is the body of POST /api/rooms/{room_id}/reset-admins.
type ResetAdminsRequest struct {
	AdminUserIDs []string `json:"admin_user_ids"`
}

// ResetAdmins handles POST /api/rooms/{room_id}/reset-admins: persists the
// new admin set, then notifies the live actor. The is_admin flag cached on
// already-connected sockets is not updated; the new set applies to a user
// only when that user joins again (see DESIGN.md).
func (h *RoomHandlers) ResetAdmins(c *gin.Context) {
	roomID := c.Param("room_id")
	var req ResetAdminsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Write(c, h.log, apperr.BadRequest("invalid request body"))
		return
	}

	if err := h.store.ReplaceAdmins(c.Request.Context(), roomID, req.AdminUserIDs); err != nil {
		h.log.Error().Err(err).Str("room_id", roomID).Msg("failed to persist admin reset")
		apperr.WriteInternal(c)
		return
	}

	if handle, ok := h.registry.Get(roomID); ok {
		admins := make(map[string]struct{}, len(req.AdminUserIDs))
		for _, id := range req.AdminUserIDs {
			admins[id] = struct{}{}
		}
		handle.Control <- roomcore.Control{Kind: roomcore.ControlResetAdmins, Admins: admins}
	}
	c.Status(http.StatusNoContent)
}

// UnbanUser handles DELETE /api/rooms/{room_id}/bans/{user_id}.
func (h *RoomHandlers) UnbanUser(c *gin.Context) {
	roomID := c.Param("room_id")
	userID := c.Param("user_id")

	if err := h.store.DeleteBan(c.Request.Context(), roomID, userID); err != nil {
		h.log.Error().Err(err).Str("room_id", roomID).Str("user_id", userID).Msg("failed to persist unban")
		apperr.WriteInternal(c)
		return
	}

	if handle, ok := h.registry.Get(roomID); ok {
		handle.Control <- roomcore.Control{Kind: roomcore.ControlUnbanUser, UserID: userID}
	}
	c.Status(http.StatusNoContent)
}

// CloseRoom handles DELETE /api/rooms/{room_id}: queries a final stats
// snapshot before tearing the actor down, so a concurrent caller never
// observes a closed room reporting zero users.
func (h *RoomHandlers) CloseRoom(c *gin.Context) {
	roomID := c.Param("room_id")

	finalStats, _ := h.queryStats(roomID)

	handle, ok := h.registry.Remove(roomID)
	if !ok {
		apperr.Write(c, h.log, apperr.NotFound("room not found"))
		return
	}
	handle.Cancel()

	h.log.Info().Str("room_id", roomID).Int("final_current_users", finalStats.Stats.CurrentUsers).Msg("room closed")
	c.Status(http.StatusNoContent)
}

// parsePageParams reads the shared ?limit=&before_id= pagination params
// used by the chat/session history endpoints.
func parsePageParams(c *gin.Context) (limit int, beforeID *int64) {
	limit = 50
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	if raw := c.Query("before_id"); raw != "" {
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			beforeID = &n
		}
	}
	return limit, beforeID
}
