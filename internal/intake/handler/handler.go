package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"lumine/internal/intake/models"
	"lumine/pkg/domain"
	"lumine/pkg/platform/httputil"
	"lumine/pkg/platform/middleware/auth"
	"lumine/pkg/requestcontext"
)

// Stage names double as rate-limit actions.
const (
	StagePreRegistration = "pre_registration"
	StageTriage          = "triage"
	StageEnrollment      = "enrollment"
)

// MaxPayloadBytes caps intake form bodies.
const MaxPayloadBytes int64 = 256 << 10

// Service defines the intake operations exposed over HTTP.
type Service interface {
	CreateIntake(ctx context.Context, p models.PreRegistration) (*models.IntakeResult, error)
	AdvanceToTriage(ctx context.Context, t models.Triage) (*models.AdvanceResult, error)
	AdvanceToEnrollment(ctx context.Context, e models.Enrollment) (*models.AdvanceResult, error)
}

// Handler serves the three intake stages.
type Handler struct {
	service Service
	logger  *slog.Logger
	stage   func(stage string) func(http.Handler) http.Handler
}

type Option func(*Handler)

// WithStageMiddleware installs per-stage middleware (rate limiting, actor
// resolution) ahead of the role gate.
func WithStageMiddleware(fn func(stage string) func(http.Handler) http.Handler) Option {
	return func(h *Handler) {
		h.stage = fn
	}
}

func New(service Service, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{service: service, logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	if h.stage == nil {
		h.stage = func(string) func(http.Handler) http.Handler {
			return func(next http.Handler) http.Handler { return next }
		}
	}
	return h
}

// Register mounts the stage endpoints. Pre-registration is open to any resolved
// actor; triage and enrollment are gated by role.
func (h *Handler) Register(r chi.Router) {
	r.With(h.stage(StagePreRegistration)).
		Post("/intake/pre-registration", h.HandlePreRegistration)
	r.With(h.stage(StageTriage), auth.RequireRole(h.logger, domain.RoleAdmin, domain.RoleTriage)).
		Post("/intake/triage", h.HandleTriage)
	r.With(h.stage(StageEnrollment), auth.RequireRole(h.logger, domain.RoleAdmin, domain.RoleSecretary)).
		Post("/intake/enrollment", h.HandleEnrollment)
}

func (h *Handler) HandlePreRegistration(w http.ResponseWriter, r *http.Request) {
	handle(h, w, r, StagePreRegistration, models.DecodePreRegistration, h.service.CreateIntake)
}

func (h *Handler) HandleTriage(w http.ResponseWriter, r *http.Request) {
	handle(h, w, r, StageTriage, models.DecodeTriage, h.service.AdvanceToTriage)
}

func (h *Handler) HandleEnrollment(w http.ResponseWriter, r *http.Request) {
	handle(h, w, r, StageEnrollment, models.DecodeEnrollment, h.service.AdvanceToEnrollment)
}

// handle reads, decodes and runs one stage. Each stage shares the same
// envelope so the three handlers differ only in their decoder and operation.
func handle[Req, Res any](
	h *Handler,
	w http.ResponseWriter,
	r *http.Request,
	stage string,
	decode func([]byte) (Req, error),
	run func(context.Context, Req) (*Res, error),
) {
	ctx := r.Context()

	body, err := httputil.ReadBody(w, r, MaxPayloadBytes)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, err := decode(body)
	if err != nil {
		h.logger.WarnContext(ctx, "intake payload rejected",
			"stage", stage,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	res, err := run(ctx, req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, res)
}
