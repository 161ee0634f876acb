// -----------------------------------------------------------------------
// Session Handler - HTTP surface for portal session management
// -----------------------------------------------------------------------

package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/fieldreach/fieldreach/internal/interfaces"
	"github.com/fieldreach/fieldreach/internal/models"
	"github.com/ternarybob/arbor"
)

type SessionHandler struct {
	sessions interfaces.SessionService
	logger   arbor.ILogger
}

func NewSessionHandler(sessions interfaces.SessionService, logger arbor.ILogger) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		logger:   logger,
	}
}

type createSessionRequest struct {
	Label      string                  `json:"label" validate:"required"`
	TTLMinutes int                     `json:"ttl_minutes" validate:"omitempty,min=1"`
	Snapshot   *models.SessionSnapshot `json:"snapshot" validate:"omitempty"`
	Username   string                  `json:"username" validate:"omitempty"`
	Password   string                  `json:"password" validate:"omitempty"`
}

// sessionResponse never exposes the encrypted state.
type sessionResponse struct {
	ID        string    `json:"id"`
	Label     string    `json:"label"`
	ExpiresAt time.Time `json:"expires_at"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

func toSessionResponse(s *models.Session) sessionResponse {
	return sessionResponse{
		ID:        s.ID,
		Label:     s.Label,
		ExpiresAt: s.ExpiresAt,
		IsActive:  s.IsActive,
		CreatedAt: s.CreatedAt,
	}
}

// CreateSessionHandler creates a session from a captured snapshot or, when
// credentials are supplied instead, by running the portal login flow.
// POST /api/sessions
func (h *SessionHandler) CreateSessionHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req createSessionRequest
	if !DecodeAndValidate(w, r, &req) {
		return
	}

	ttl := time.Duration(req.TTLMinutes) * time.Minute

	var session *models.Session
	var err error
	switch {
	case req.Snapshot != nil:
		session, err = h.sessions.CreateSession(r.Context(), req.Label, req.Snapshot, ttl)
	case req.Username != "" && req.Password != "":
		session, err = h.sessions.CreateSessionFromCredentials(r.Context(), req.Label, req.Username, req.Password, ttl)
	default:
		WriteError(w, http.StatusBadRequest, "provide either a snapshot or username and password")
		return
	}
	if err != nil {
		WriteTypedError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, toSessionResponse(session))
}

// ListSessionsHandler lists all stored sessions.
// GET /api/sessions
func (h *SessionHandler) ListSessionsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	sessions, err := h.sessions.ListSessions(r.Context())
	if err != nil {
		WriteTypedError(w, err)
		return
	}

	responses := make([]sessionResponse, 0, len(sessions))
	for _, s := range sessions {
		responses = append(responses, toSessionResponse(s))
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"sessions": responses})
}

// SessionRoutesHandler dispatches /api/sessions/{id} and subpaths.
func (h *SessionHandler) SessionRoutesHandler(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/sessions/")
	parts := strings.SplitN(rest, "/", 2)
	id := parts[0]
	if id == "" {
		WriteError(w, http.StatusBadRequest, "session id is required")
		return
	}

	action := ""
	if len(parts) == 2 {
		action = parts[1]
	}

	switch {
	case action == "" && r.Method == "GET":
		h.getSession(w, r, id)
	case action == "" && r.Method == "DELETE":
		h.deactivateSession(w, r, id)
	case action == "validate" && r.Method == "POST":
		h.validateSession(w, r, id)
	default:
		WriteError(w, http.StatusNotFound, "unknown session route")
	}
}

func (h *SessionHandler) getSession(w http.ResponseWriter, r *http.Request, id string) {
	session, err := h.sessions.GetSession(r.Context(), id)
	if err != nil {
		WriteTypedError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, toSessionResponse(session))
}

func (h *SessionHandler) deactivateSession(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.sessions.DeactivateSession(r.Context(), id); err != nil {
		WriteTypedError(w, err)
		return
	}
	WriteSuccess(w, "session deactivated")
}

// validateSession checks the stored session against the live portal.
func (h *SessionHandler) validateSession(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.sessions.ValidateSession(r.Context(), id); err != nil {
		h.logger.Debug().Err(err).Str("session_id", id).Msg("Session validation failed")
		WriteTypedError(w, err)
		return
	}
	WriteSuccess(w, "session is valid")
}
