package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"lumine/internal/dataset/models"
	"lumine/internal/dataset/normalize"
	"lumine/internal/dataset/service"
	"lumine/pkg/platform/httputil"
	"lumine/pkg/requestcontext"
)

// DefaultMaxPayloadBytes caps POST /sync bodies.
const DefaultMaxPayloadBytes int64 = 4 << 20

// Service defines the dataset operations exposed over HTTP.
type Service interface {
	Fetch(ctx context.Context) (*models.Snapshot, error)
	Overwrite(ctx context.Context, req service.OverwriteRequest) (*service.OverwriteResult, error)
	AddIndividual(ctx context.Context, ind models.Individual) (*service.IndividualResult, error)
	AddRecord(ctx context.Context, rec models.Record) (*service.RecordResult, error)
}

// Handler wires the sync endpoints to the dataset service.
type Handler struct {
	service    Service
	logger     *slog.Logger
	maxPayload int64
}

// New constructs a dataset handler. A non-positive maxPayload selects DefaultMaxPayloadBytes.
func New(service Service, logger *slog.Logger, maxPayload int64) *Handler {
	if maxPayload <= 0 {
		maxPayload = DefaultMaxPayloadBytes
	}
	return &Handler{service: service, logger: logger, maxPayload: maxPayload}
}

// Register mounts the sync endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/sync", h.HandleFetch)
	r.Post("/sync", h.HandleMutate)
}

// HandleFetch handles GET /sync.
func (h *Handler) HandleFetch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	snap, err := h.service.Fetch(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "dataset fetch failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, snap)
}

// HandleMutate handles POST /sync for the sync, addIndividual and addRecord actions.
func (h *Handler) HandleMutate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	body, err := httputil.ReadBody(w, r, h.maxPayload)
	if err != nil {
		h.logger.WarnContext(ctx, "sync payload rejected", "request_id", requestID, "error", err)
		httputil.WriteError(w, err)
		return
	}

	req, err := normalize.DecodeRequest(body)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var result any
	switch req.Action {
	case normalize.ActionSync:
		result, err = h.service.Overwrite(ctx, service.OverwriteRequest{
			Individuals:      req.Individuals,
			Records:          req.Records,
			ExpectedRevision: req.ExpectedRevision,
		})
	case normalize.ActionAddIndividual:
		result, err = h.service.AddIndividual(ctx, req.Individual)
	case normalize.ActionAddRecord:
		result, err = h.service.AddRecord(ctx, req.Record)
	}
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "sync mutation applied",
		"request_id", requestID,
		"action", req.Action,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteSuccess(w, http.StatusOK, result)
}
