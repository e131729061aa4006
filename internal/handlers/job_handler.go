package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/quimbydigital/client-report-automations/internal/services/inputs"
	"github.com/quimbydigital/client-report-automations/internal/services/jobs"
	storage "github.com/quimbydigital/client-report-automations/internal/storage/badger"
)

// JobHandler exposes report job submission and status over HTTP.
type JobHandler struct {
	orchestrator *jobs.Orchestrator
	logger       arbor.ILogger
}

func NewJobHandler(orchestrator *jobs.Orchestrator, logger arbor.ILogger) *JobHandler {
	return &JobHandler{
		orchestrator: orchestrator,
		logger:       logger,
	}
}

type submitRequest struct {
	Client string `json:"client"`
	Month  string `json:"month,omitempty"`
}

// SubmitJobHandler handles POST /api/jobs.
// Body: {"client": "...", "month": "..."}; month defaults to the latest.
func (h *JobHandler) SubmitJobHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Client == "" {
		WriteError(w, http.StatusBadRequest, "client is required")
		return
	}

	job, err := h.orchestrator.Submit(r.Context(), req.Client, req.Month)
	if err != nil {
		switch {
		case errors.Is(err, jobs.ErrJobAlreadyRunning):
			WriteError(w, http.StatusConflict, err.Error())
		case errors.Is(err, inputs.ErrInputMissing):
			WriteError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			h.logger.Error().Err(err).Str("client", req.Client).Msg("Job submission failed")
			WriteError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	WriteJSON(w, http.StatusAccepted, job)
}

// SubmitAllHandler handles POST /api/jobs/all, submitting every client's
// latest month.
func (h *JobHandler) SubmitAllHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	submitted, err := h.orchestrator.SubmitAll(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Batch submission failed")
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	WriteJSON(w, http.StatusAccepted, map[string]interface{}{
		"submitted": len(submitted),
		"jobs":      submitted,
	})
}

// ListJobsHandler handles GET /api/jobs.
func (h *JobHandler) ListJobsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	list, err := h.orchestrator.List(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list jobs")
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(list),
		"jobs":  list,
	})
}

// GetJobHandler handles GET /api/jobs/{client}/{month}.
func (h *JobHandler) GetJobHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		WriteError(w, http.StatusBadRequest, "expected /api/jobs/{client}/{month}")
		return
	}

	job, err := h.orchestrator.Status(r.Context(), parts[0], parts[1])
	if err != nil {
		if errors.Is(err, storage.ErrJobNotFound) {
			WriteError(w, http.StatusNotFound, "job not found")
			return
		}
		h.logger.Error().Err(err).Str("client", parts[0]).Msg("Failed to load job")
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, job)
}
