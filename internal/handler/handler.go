// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Shivanand-hulikatti/clinic-checkin/internal/model"
	"github.com/Shivanand-hulikatti/clinic-checkin/internal/repository"
	"github.com/Shivanand-hulikatti/clinic-checkin/internal/service"
	"github.com/Shivanand-hulikatti/clinic-checkin/pkg/logging"
)

// Error kinds returned in the "kind" field of every error response.
const (
	KindValidation    = "validation_error"
	KindNotFound      = "not_found"
	KindNoActiveEvent = "no_active_event"
	KindConflict      = "conflict"
	KindUnauthorized  = "unauthorized"
	KindRateLimited   = "rate_limited"
	KindInternal      = "internal_error"
)

// ClinicHandler holds the HTTP handlers for check-in and the dashboard.
type ClinicHandler struct {
	clients  *service.ClientService
	checkIn  *service.CheckInService
	queue    *service.QueueService
	pipeline *service.PipelineService
	logger   *logging.Logger
}

// NewClinicHandler constructs a ClinicHandler.
func NewClinicHandler(
	clients *service.ClientService,
	checkIn *service.CheckInService,
	queue *service.QueueService,
	pipeline *service.PipelineService,
	logger *logging.Logger,
) *ClinicHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &ClinicHandler{clients: clients, checkIn: checkIn, queue: queue, pipeline: pipeline, logger: logger}
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, kind, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg, Kind: kind})
}

func decodeJSON(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// respondError maps a service error to its status code and error kind.
// Internal errors are logged and answered with a generic message.
func (h *ClinicHandler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, KindValidation, verr.Error())
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, KindNotFound, "not found")
	case errors.Is(err, repository.ErrNoActiveEvent):
		writeError(w, http.StatusConflict, KindNoActiveEvent, "no event is active")
	case errors.Is(err, repository.ErrConflict):
		h.logger.Warn("unexpected conflict", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusConflict, KindConflict, "conflicting update, please retry")
	default:
		h.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, KindInternal, "internal error, please retry")
	}
}

// ─── Handlers ─────────────────────────────────────────────────────────────────

// RegisterClient handles POST /api/clients
func (h *ClinicHandler) RegisterClient(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterClientRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, KindValidation, "invalid request body: "+err.Error())
		return
	}

	client, err := h.clients.Register(r.Context(), req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, client)
}

// GetClient handles GET /api/clients/{id}
func (h *ClinicHandler) GetClient(w http.ResponseWriter, r *http.Request) {
	client, err := h.clients.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, client)
}

// CheckIn handles POST /api/checkin
// Moves the client into the waiting room and queues the requested services.
// Services the gate turns away are listed under "rejected"; they are not errors.
func (h *ClinicHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	var req model.CheckInRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, KindValidation, "invalid request body: "+err.Error())
		return
	}

	res, err := h.checkIn.CheckIn(r.Context(), req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// Queue handles GET /api/queue
// Returns Now Serving and the Wait List for the active event.
func (h *ClinicHandler) Queue(w http.ResponseWriter, r *http.Request) {
	view, err := h.queue.Snapshot(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// AdvanceVisitService handles PATCH /api/visit-services/{id}
func (h *ClinicHandler) AdvanceVisitService(w http.ResponseWriter, r *http.Request) {
	var req model.AdvanceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, KindValidation, "invalid request body: "+err.Error())
		return
	}

	vs, err := h.pipeline.Advance(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, vs)
}
