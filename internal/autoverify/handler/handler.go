package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"custodia/internal/autoverify/models"
	"custodia/internal/platform/metrics"
	"custodia/internal/platform/middleware"
	"custodia/internal/transport/http/shared"
	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/requestcontext"
)

// Service defines the interface for auto-verification trigger operations.
type Service interface {
	CheckDocument(ctx context.Context, docID id.DocumentID) error
	CheckBatch(ctx context.Context, ids []id.DocumentID) error
	ForceTrigger(ctx context.Context, caller id.Principal, docID id.DocumentID, kind models.TriggerKind) error
	UpdateConfig(ctx context.Context, caller id.Principal, cfg models.Config) error
	Config(ctx context.Context, docType id.DocumentType) (models.Config, error)
	History(ctx context.Context, docID id.DocumentID) ([]models.Trigger, error)
}

// Handler handles auto-verification endpoints.
type Handler struct {
	logger       *slog.Logger
	autoverify   Service
	metrics      *metrics.Metrics
	jwtValidator middleware.JWTValidator
}

func New(autoverify Service, logger *slog.Logger, m *metrics.Metrics, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		autoverify:   autoverify,
		metrics:      m,
		jwtValidator: jwtValidator,
	}
}

// Register registers the auto-verification routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	rt := chi.NewRouter()
	rt.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
	rt.Post("/auto-verification/check", h.handleCheckBatch)
	rt.Put("/auto-verification/config", h.handleUpdateConfig)
	rt.Get("/auto-verification/config/{documentType}", h.handleGetConfig)
	rt.Post("/documents/{documentID}/auto-verification/check", h.handleCheck)
	rt.Post("/documents/{documentID}/auto-verification/force", h.handleForce)
	rt.Get("/documents/{documentID}/auto-verification/history", h.handleHistory)

	r.Mount("/", rt)
}

func (h *Handler) handleCheck(w http.ResponseWriter, r *http.Request) {
	docID, err := h.documentID(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if err := h.autoverify.CheckDocument(r.Context(), docID); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type checkBatchRequest struct {
	DocumentIDs []uint64 `json:"documentIds"`
}

func (h *Handler) handleCheckBatch(w http.ResponseWriter, r *http.Request) {
	var req checkBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	ids := make([]id.DocumentID, 0, len(req.DocumentIDs))
	for _, raw := range req.DocumentIDs {
		ids = append(ids, id.DocumentID(raw))
	}
	if err := h.autoverify.CheckBatch(r.Context(), ids); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type forceTriggerRequest struct {
	Kind string `json:"kind"`
}

func (h *Handler) handleForce(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := requestcontext.Principal(ctx)
	if caller.IsZero() {
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}
	docID, err := h.documentID(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var req forceTriggerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	if err := h.autoverify.ForceTrigger(ctx, caller, docID, models.TriggerKind(req.Kind)); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type triggerResponse struct {
	DocumentID uint64    `json:"documentId"`
	Kind       string    `json:"kind"`
	At         time.Time `json:"at"`
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	docID, err := h.documentID(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	triggers, err := h.autoverify.History(r.Context(), docID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	out := make([]triggerResponse, 0, len(triggers))
	for _, t := range triggers {
		out = append(out, triggerResponse{
			DocumentID: uint64(t.DocumentID),
			Kind:       string(t.Kind),
			At:         t.At,
		})
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"triggers": out})
}

type configPayload struct {
	DocumentType           string `json:"documentType"`
	Enabled                bool   `json:"enabled"`
	TimeThresholdSeconds   int64  `json:"timeThresholdSeconds"`
	ConsensusThreshold     int    `json:"consensusThreshold"`
	RequiresManualApproval bool   `json:"requiresManualApproval"`
	MaxPerDay              int    `json:"maxPerDay"`
}

func (h *Handler) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	docType := id.DocumentType(chi.URLParam(r, "documentType"))
	cfg, err := h.autoverify.Config(r.Context(), docType)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, configPayload{
		DocumentType:           string(cfg.DocumentType),
		Enabled:                cfg.Enabled,
		TimeThresholdSeconds:   int64(cfg.TimeThreshold / time.Second),
		ConsensusThreshold:     cfg.ConsensusThreshold,
		RequiresManualApproval: cfg.RequiresManualApproval,
		MaxPerDay:              cfg.MaxPerDay,
	})
}

func (h *Handler) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := requestcontext.Principal(ctx)
	if caller.IsZero() {
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	var req configPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	err := h.autoverify.UpdateConfig(ctx, caller, models.Config{
		DocumentType:           id.DocumentType(req.DocumentType),
		Enabled:                req.Enabled,
		TimeThreshold:          time.Duration(req.TimeThresholdSeconds) * time.Second,
		ConsensusThreshold:     req.ConsensusThreshold,
		RequiresManualApproval: req.RequiresManualApproval,
		MaxPerDay:              req.MaxPerDay,
	})
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) documentID(r *http.Request) (id.DocumentID, error) {
	docID, ok := id.ParseDocumentID(chi.URLParam(r, "documentID"))
	if !ok {
		return 0, dErrors.New(dErrors.CodeBadRequest, "invalid document id")
	}
	return docID, nil
}
