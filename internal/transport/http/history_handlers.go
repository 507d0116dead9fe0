package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/ashbrook/roomengine/internal/apperr"
	"github.com/ashbrook/roomengine/internal/store"
)

// HistoryHandlers implements the paginated chat/session history reads.
// These never touch a live room actor, so they are plain store reads
// independent of RoomHandlers.
type HistoryHandlers struct {
	store store.Store
	log   *zerolog.Logger
}

// NewHistoryHandlers wires history reads against the shared store.
func NewHistoryHandlers(st store.Store, logger *zerolog.Logger) *HistoryHandlers {
	return &HistoryHandlers{store: st, log: logger}
}

// ListMessages handles GET /api/rooms/{room_id}/messages.
func (h *HistoryHandlers) ListMessages(c *gin.Context) {
	roomID := c.Param("room_id")
	limit, beforeID := parsePageParams(c)

	entries, err := h.store.ListChatHistory(c.Request.Context(), roomID, limit, beforeID)
	if err != nil {
		h.log.Error().Err(err).Str("room_id", roomID).Msg("failed to list chat history")
		apperr.WriteInternal(c)
		return
	}
	c.JSON(http.StatusOK, entries)
}

// ListSessions handles GET /api/rooms/{room_id}/sessions.
func (h *HistoryHandlers) ListSessions(c *gin.Context) {
	roomID := c.Param("room_id")
	limit, beforeID := parsePageParams(c)

	entries, err := h.store.ListSessions(c.Request.Context(), roomID, limit, beforeID)
	if err != nil {
		h.log.Error().Err(err).Str("room_id", roomID).Msg("failed to list sessions")
		apperr.WriteInternal(c)
		return
	}
	c.JSON(http.StatusOK, entries)
}
