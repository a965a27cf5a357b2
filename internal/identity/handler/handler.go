package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"custodia/internal/identity/service"
	"custodia/internal/platform/metrics"
	"custodia/internal/platform/middleware"
	"custodia/internal/transport/http/shared"
	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/requestcontext"
)

// Service defines the interface for identity and access operations.
type Service interface {
	AssignRole(ctx context.Context, caller, principal id.Principal, role id.Role) error
	Role(ctx context.Context, principal id.Principal) (id.Role, bool)
	GrantDocumentAccess(ctx context.Context, caller id.Principal, req service.GrantRequest) error
	RevokeDocumentAccess(ctx context.Context, caller id.Principal, doc id.DocumentID, grantee id.Principal) error
	HasReadAccess(ctx context.Context, principal id.Principal, doc id.DocumentID) bool
	HasVerifyAccess(ctx context.Context, principal id.Principal, doc id.DocumentID) bool
	HasTransferAccess(ctx context.Context, principal id.Principal, doc id.DocumentID) bool
}

// Handler handles role directory and access grant endpoints.
type Handler struct {
	logger       *slog.Logger
	identity     Service
	metrics      *metrics.Metrics
	jwtValidator middleware.JWTValidator
}

func New(identity Service, logger *slog.Logger, m *metrics.Metrics, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		identity:     identity,
		metrics:      m,
		jwtValidator: jwtValidator,
	}
}

// Register registers the identity routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	rt := chi.NewRouter()
	rt.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
	rt.Post("/roles", h.handleAssignRole)
	rt.Get("/roles/{principal}", h.handleGetRole)
	rt.Post("/documents/{documentID}/grants", h.handleGrant)
	rt.Delete("/documents/{documentID}/grants/{grantee}", h.handleRevoke)
	rt.Get("/documents/{documentID}/access", h.handleAccess)

	r.Mount("/", rt)
}

type assignRoleRequest struct {
	Principal string `json:"principal"`
	Role      string `json:"role"`
}

func (h *Handler) handleAssignRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := requestcontext.Principal(ctx)
	if caller.IsZero() {
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	var req assignRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	if err := h.identity.AssignRole(ctx, caller, id.Principal(req.Principal), id.Role(req.Role)); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleGetRole(w http.ResponseWriter, r *http.Request) {
	principal := id.Principal(chi.URLParam(r, "principal"))
	role, ok := h.identity.Role(r.Context(), principal)
	if !ok {
		shared.WriteError(w, dErrors.New(dErrors.CodeNotFound, "principal has no role assignment"))
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{
		"principal": principal.String(),
		"role":      string(role),
	})
}

type grantRequest struct {
	Grantee     string    `json:"grantee"`
	ExpiresAt   time.Time `json:"expiresAt,omitzero"`
	CanRead     bool      `json:"canRead"`
	CanVerify   bool      `json:"canVerify"`
	CanTransfer bool      `json:"canTransfer"`
}

func (h *Handler) handleGrant(w http.ResponseWriter, r *http.Request) {
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

	var req grantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	err = h.identity.GrantDocumentAccess(ctx, caller, service.GrantRequest{
		DocumentID:  docID,
		Grantee:     id.Principal(req.Grantee),
		ExpiresAt:   req.ExpiresAt,
		CanRead:     req.CanRead,
		CanVerify:   req.CanVerify,
		CanTransfer: req.CanTransfer,
	})
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleRevoke(w http.ResponseWriter, r *http.Request) {
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

	grantee := id.Principal(chi.URLParam(r, "grantee"))
	if err := h.identity.RevokeDocumentAccess(ctx, caller, docID, grantee); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleAccess reports the caller's effective capabilities on a document.
func (h *Handler) handleAccess(w http.ResponseWriter, r *http.Request) {
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

	shared.WriteJSON(w, http.StatusOK, map[string]bool{
		"canRead":     h.identity.HasReadAccess(ctx, caller, docID),
		"canVerify":   h.identity.HasVerifyAccess(ctx, caller, docID),
		"canTransfer": h.identity.HasTransferAccess(ctx, caller, docID),
	})
}

func (h *Handler) documentID(r *http.Request) (id.DocumentID, error) {
	docID, ok := id.ParseDocumentID(chi.URLParam(r, "documentID"))
	if !ok {
		return 0, dErrors.New(dErrors.CodeBadRequest, "invalid document id")
	}
	return docID, nil
}
