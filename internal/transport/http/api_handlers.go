package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/miipal/internal/core"
	"github.com/vovakirdan/miipal/internal/store"
)

const (
	defaultSessionLimit = 50
	maxSessionLimit     = 500
)

// APIHandlers provides HTTP handlers for the read-only presence API.
type APIHandlers struct {
	hub   core.Hub
	store store.PresenceStore
	log   *zerolog.Logger
}

// NewAPIHandlers creates a new API handlers instance. st may be nil when the
// presence journal is disabled.
func NewAPIHandlers(hub core.Hub, st store.PresenceStore, logger *zerolog.Logger) *APIHandlers {
	return &APIHandlers{
		hub:   hub,
		store: st,
		log:   logger,
	}
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// UsersResponse lists the names currently online.
type UsersResponse struct {
	Users []string `json:"users"`
}

// SessionResponse is one presence journal row.
type SessionResponse struct {
	ID       int64      `json:"id"`
	ConnID   string     `json:"conn_id"`
	Name     string     `json:"name"`
	JoinedAt time.Time  `json:"joined_at"`
	LeftAt   *time.Time `json:"left_at,omitempty"`
}

// Health reports liveness.
// GET /health
func (h *APIHandlers) Health(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// Users returns the online names.
// GET /api/users
func (h *APIHandlers) Users(c *gin.Context) {
	names, err := h.hub.Online(c.Request.Context())
	if err != nil {
		h.log.Warn().Err(err).Msg("failed to read online users")
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "presence unavailable"})
		return
	}

	c.JSON(http.StatusOK, UsersResponse{Users: names})
}

// Sessions returns recent presence journal rows.
// GET /api/sessions?limit=N
func (h *APIHandlers) Sessions(c *gin.Context) {
	if h.store == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "presence journal disabled"})
		return
	}

	limit := defaultSessionLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxSessionLimit {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "limit must be between 1 and 500"})
			return
		}
		limit = n
	}

	sessions, err := h.store.ListSessions(c.Request.Context(), limit)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list sessions")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	resp := make([]SessionResponse, 0, len(sessions))
	for _, s := range sessions {
		resp = append(resp, SessionResponse{
			ID:       s.ID,
			ConnID:   s.ConnID,
			Name:     s.Name,
			JoinedAt: s.JoinedAt,
			LeftAt:   s.LeftAt,
		})
	}
	c.JSON(http.StatusOK, resp)
}
