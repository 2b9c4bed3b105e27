// Package handler exposes the admin rule set surface behind the X-Admin-Key
// header.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"visadesk/internal/platform/metrics"
	"visadesk/internal/platform/middleware"
	"visadesk/internal/rules"
	"visadesk/internal/rules/service"
	"visadesk/internal/secrets"
	dErrors "visadesk/pkg/domain-errors"
	"visadesk/pkg/platform/httputil"
	"visadesk/pkg/requestcontext"
)

// Service defines the rule set operations the handler depends on.
type Service interface {
	Create(ctx context.Context, input service.CreateInput) (*rules.RuleSet, error)
	Approve(ctx context.Context, id uuid.UUID) (*rules.RuleSet, error)
	ListVersions(ctx context.Context, countryCode, visaType string) ([]*rules.RuleSet, error)
}

// Handler handles the admin rule set endpoints.
type Handler struct {
	logger       *slog.Logger
	service      Service
	metrics      *metrics.Metrics
	adminKeyHash string
}

// New creates a rule set admin Handler. adminKeyHash is the bcrypt hash of
// the shared admin key; an empty hash disables the surface entirely.
func New(
	service Service,
	logger *slog.Logger,
	metrics *metrics.Metrics,
	adminKeyHash string) *Handler {
	return &Handler{
		logger:       logger,
		service:      service,
		metrics:      metrics,
		adminKeyHash: adminKeyHash,
	}
}

// Register registers the admin routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	adminRouter := chi.NewRouter()
	adminRouter.Use(middleware.Recovery(h.logger))
	adminRouter.Use(middleware.RequestID)
	adminRouter.Use(middleware.Logger(h.logger))
	adminRouter.Use(middleware.Timeout(15 * time.Second))
	adminRouter.Use(middleware.ContentTypeJSON)
	adminRouter.Use(middleware.LatencyMiddleware(h.metrics))
	adminRouter.Use(h.requireAdminKey)
	adminRouter.Post("/rulesets", h.handleCreate)
	adminRouter.Post("/rulesets/{ruleSetID}/approve", h.handleApprove)
	adminRouter.Get("/rulesets", h.handleList)

	r.Mount("/admin", adminRouter)
}

// requireAdminKey verifies the X-Admin-Key header against the configured
// bcrypt hash.
func (h *Handler) requireAdminKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.adminKeyHash == "" {
			httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "admin surface is disabled"))
			return
		}
		key := r.Header.Get("X-Admin-Key")
		if key == "" {
			httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing admin key"))
			return
		}
		if err := secrets.Verify(key, h.adminKeyHash); err != nil {
			h.logger.WarnContext(r.Context(), "admin key rejected",
				"request_id", requestcontext.RequestID(r.Context()),
			)
			httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid admin key"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// handleCreate registers a new unapproved rule set version.
func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	input, ok := httputil.DecodeAndPrepare[service.CreateInput](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	ruleSet, err := h.service.Create(ctx, input)
	if err != nil {
		h.writeServiceError(ctx, w, "create rule set", err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, ruleSet)
}

// handleApprove flips the approved version for the rule set's pair.
func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "ruleSetID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid rule set id"))
		return
	}

	ruleSet, err := h.service.Approve(ctx, id)
	if err != nil {
		h.writeServiceError(ctx, w, "approve rule set", err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, ruleSet)
}

// handleList returns every version for a (country, visaType) pair.
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	versions, err := h.service.ListVersions(ctx,
		r.URL.Query().Get("country"),
		r.URL.Query().Get("visaType"),
	)
	if err != nil {
		h.writeServiceError(ctx, w, "list rule sets", err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{"ruleSets": versions})
}

func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, op string, err error) {
	requestID := requestcontext.RequestID(ctx)
	switch {
	case dErrors.Is(err, dErrors.CodeBadRequest),
		dErrors.Is(err, dErrors.CodeNotFound),
		dErrors.Is(err, dErrors.CodeConflict):
		h.logger.WarnContext(ctx, op+" rejected",
			"request_id", requestID,
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
	default:
		h.logger.ErrorContext(ctx, op+" failed",
			"request_id", requestID,
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "internal error"))
	}
}
