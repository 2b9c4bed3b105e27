// Package handler exposes the checklist HTTP surface. Handlers translate
// between the wire format and the coordinator; they never touch stores.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"visadesk/internal/checklist"
	"visadesk/internal/platform/metrics"
	"visadesk/internal/platform/middleware"
	dErrors "visadesk/pkg/domain-errors"
	"visadesk/pkg/platform/httputil"
	"visadesk/pkg/requestcontext"
)

// Service defines the coordinator operations the handler depends on.
type Service interface {
	Get(ctx context.Context, applicationID string) (*checklist.DocumentChecklist, error)
	Regenerate(ctx context.Context, applicationID string, force bool) (*checklist.DocumentChecklist, error)
	Delete(ctx context.Context, applicationID string) error
}

// Handler handles checklist endpoints.
type Handler struct {
	logger       *slog.Logger
	service      Service
	metrics      *metrics.Metrics
	jwtValidator middleware.JWTValidator
}

// New creates a checklist Handler.
func New(
	service Service,
	logger *slog.Logger,
	metrics *metrics.Metrics,
	jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		service:      service,
		metrics:      metrics,
		jwtValidator: jwtValidator,
	}
}

// Register registers the checklist routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	checklistRouter := chi.NewRouter()
	checklistRouter.Use(middleware.Recovery(h.logger))
	checklistRouter.Use(middleware.RequestID)
	checklistRouter.Use(middleware.Device)
	checklistRouter.Use(middleware.Logger(h.logger))
	checklistRouter.Use(middleware.Timeout(30 * time.Second))
	checklistRouter.Use(middleware.LatencyMiddleware(h.metrics))
	checklistRouter.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
	checklistRouter.Get("/{applicationID}/checklist", h.handleGetChecklist)
	checklistRouter.Post("/{applicationID}/checklist/regenerate", h.handleRegenerate)
	checklistRouter.Delete("/{applicationID}/checklist", h.handleDelete)

	r.Mount("/applications", checklistRouter)
}

// checklistResponse is the wire shape for a checklist record. Items are
// omitted unless the record is ready.
type checklistResponse struct {
	ApplicationID string           `json:"applicationId"`
	Status        checklist.Status `json:"status"`
	Items         []checklist.Item `json:"items,omitempty"`
	AIGenerated   bool             `json:"aiGenerated"`
	GeneratedAt   *time.Time       `json:"generatedAt,omitempty"`
	ErrorMessage  string           `json:"errorMessage,omitempty"`
}

func toResponse(record *checklist.DocumentChecklist) checklistResponse {
	resp := checklistResponse{
		ApplicationID: record.ApplicationID,
		Status:        record.Status,
		AIGenerated:   record.AIGenerated,
		ErrorMessage:  record.ErrorMessage,
	}
	if record.Status == checklist.StatusReady {
		resp.Items = record.Items
		generatedAt := record.GeneratedAt
		resp.GeneratedAt = &generatedAt
	}
	return resp
}

// handleGetChecklist returns the current checklist state without blocking;
// a first read starts generation and reports processing.
func (h *Handler) handleGetChecklist(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	applicationID := chi.URLParam(r, "applicationID")

	record, err := h.service.Get(ctx, applicationID)
	if err != nil {
		h.writeServiceError(ctx, w, "get checklist", applicationID, err)
		return
	}

	status := http.StatusOK
	if record.Status == checklist.StatusProcessing {
		status = http.StatusAccepted
	}
	httputil.WriteJSON(w, status, toResponse(record))
}

type regenerateRequest struct {
	Force bool `json:"force"`
}

// handleRegenerate re-runs generation. The body is optional; {"force": true}
// re-triggers a failed record.
func (h *Handler) handleRegenerate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	applicationID := chi.URLParam(r, "applicationID")

	var req regenerateRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.logger.WarnContext(ctx, "invalid regenerate request",
				"request_id", requestcontext.RequestID(ctx),
				"error", err.Error(),
			)
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
			return
		}
	}

	record, err := h.service.Regenerate(ctx, applicationID, req.Force)
	if err != nil {
		h.writeServiceError(ctx, w, "regenerate checklist", applicationID, err)
		return
	}

	httputil.WriteJSON(w, http.StatusAccepted, toResponse(record))
}

// handleDelete removes the checklist record for an application.
func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	applicationID := chi.URLParam(r, "applicationID")

	if err := h.service.Delete(ctx, applicationID); err != nil {
		h.writeServiceError(ctx, w, "delete checklist", applicationID, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, op, applicationID string, err error) {
	requestID := requestcontext.RequestID(ctx)
	switch {
	case dErrors.Is(err, dErrors.CodeBadRequest),
		dErrors.Is(err, dErrors.CodeNotFound),
		dErrors.Is(err, dErrors.CodeUnavailable):
		h.logger.WarnContext(ctx, op+" rejected",
			"request_id", requestID,
			"application_id", applicationID,
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
	default:
		h.logger.ErrorContext(ctx, op+" failed",
			"request_id", requestID,
			"application_id", applicationID,
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "internal error"))
	}
}
