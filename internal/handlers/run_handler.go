// -----------------------------------------------------------------------
// Run Handler - HTTP surface for batch extraction runs
// -----------------------------------------------------------------------

package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/fieldreach/fieldreach/internal/common"
	"github.com/fieldreach/fieldreach/internal/interfaces"
	"github.com/ternarybob/arbor"
)

type RunHandler struct {
	runs   interfaces.RunService
	logger arbor.ILogger
}

func NewRunHandler(runs interfaces.RunService, logger arbor.ILogger) *RunHandler {
	return &RunHandler{
		runs:   runs,
		logger: logger,
	}
}

type createRunRequest struct {
	SessionID   string   `json:"session_id" validate:"required"`
	PropertyIDs []string `json:"property_ids" validate:"required,min=1,dive,required"`
}

// CreateRunHandler creates a queued run with one item per property.
// POST /api/runs
func (h *RunHandler) CreateRunHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req createRunRequest
	if !DecodeAndValidate(w, r, &req) {
		return
	}

	run, err := h.runs.CreateRun(r.Context(), req.SessionID, req.PropertyIDs)
	if err != nil {
		WriteTypedError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, run)
}

// ListRunsHandler lists recent runs.
// GET /api/runs
func (h *RunHandler) ListRunsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}

	runs, err := h.runs.ListRuns(r.Context(), limit)
	if err != nil {
		WriteTypedError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"runs": runs})
}

// RunRoutesHandler dispatches /api/runs/{id} and subpaths.
func (h *RunHandler) RunRoutesHandler(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/runs/")
	parts := strings.SplitN(rest, "/", 2)
	id := parts[0]
	if id == "" {
		WriteError(w, http.StatusBadRequest, "run id is required")
		return
	}

	action := ""
	if len(parts) == 2 {
		action = parts[1]
	}

	switch {
	case action == "" && r.Method == "GET":
		h.getRun(w, r, id)
	case action == "start" && r.Method == "POST":
		h.startRun(w, r, id)
	default:
		WriteError(w, http.StatusNotFound, "unknown run route")
	}
}

func (h *RunHandler) getRun(w http.ResponseWriter, r *http.Request, id string) {
	run, items, err := h.runs.GetRun(r.Context(), id)
	if err != nil {
		WriteTypedError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"run":   run,
		"items": items,
	})
}

// startRun transitions the run to running and kicks off processing in the
// background. The transition is synchronous so a second start gets a
// conflict; the extraction work itself is not.
func (h *RunHandler) startRun(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.runs.StartRun(r.Context(), id); err != nil {
		if strings.Contains(err.Error(), "only queued runs") {
			WriteError(w, http.StatusConflict, err.Error())
			return
		}
		WriteTypedError(w, err)
		return
	}

	common.SafeGo(h.logger, "processRun:"+id, func() {
		if err := h.runs.ProcessRun(context.Background(), id); err != nil {
			h.logger.Error().Err(err).Str("run_id", id).Msg("Run processing failed")
		}
	})

	WriteStarted(w, "run processing started")
}
