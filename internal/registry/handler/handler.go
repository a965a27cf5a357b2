package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"custodia/internal/platform/metrics"
	"custodia/internal/platform/middleware"
	"custodia/internal/registry/models"
	"custodia/internal/registry/service"
	"custodia/internal/transport/http/shared"
	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/requestcontext"
)

// Service defines the interface for document registry operations.
type Service interface {
	RegisterDocument(ctx context.Context, caller id.Principal, req service.RegisterRequest) (*models.Document, error)
	SubmitVerificationProof(ctx context.Context, caller id.Principal, docID id.DocumentID, proofHash, payload string, isValid bool) (*models.Document, error)
	TransferDocumentOwnership(ctx context.Context, caller id.Principal, docID id.DocumentID, newOwner id.Principal) error
	ArchiveDocument(ctx context.Context, caller id.Principal, docID id.DocumentID) error
	ExpireDocument(ctx context.Context, caller id.Principal, docID id.DocumentID) error
	GetDocument(ctx context.Context, docID id.DocumentID) (*models.Document, error)
	GetUserDocuments(ctx context.Context, owner id.Principal) ([]models.Document, error)
	GetDocumentProofs(ctx context.Context, docID id.DocumentID) ([]models.VerificationProof, error)
	GetLatestProof(ctx context.Context, docID id.DocumentID) (*models.VerificationProof, error)
	DocumentExistsByHash(ctx context.Context, hash string) (bool, error)
}

// Handler handles document registry endpoints.
type Handler struct {
	logger       *slog.Logger
	registry     Service
	metrics      *metrics.Metrics
	jwtValidator middleware.JWTValidator
}

func New(registry Service, logger *slog.Logger, m *metrics.Metrics, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		registry:     registry,
		metrics:      m,
		jwtValidator: jwtValidator,
	}
}

// Register registers the registry routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	rt := chi.NewRouter()
	rt.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
	rt.Post("/documents", h.handleRegister)
	rt.Get("/documents", h.handleListOwn)
	rt.Get("/documents/hash/{hash}", h.handleExistsByHash)
	rt.Get("/documents/{documentID}", h.handleGet)
	rt.Post("/documents/{documentID}/proofs", h.handleSubmitProof)
	rt.Get("/documents/{documentID}/proofs", h.handleListProofs)
	rt.Get("/documents/{documentID}/proofs/latest", h.handleLatestProof)
	rt.Post("/documents/{documentID}/transfer", h.handleTransfer)
	rt.Post("/documents/{documentID}/archive", h.handleArchive)
	rt.Post("/documents/{documentID}/expire", h.handleExpire)

	r.Mount("/", rt)
}

type registerRequest struct {
	ContentPointer string `json:"contentPointer"`
	ContentHash    string `json:"contentHash"`
	Metadata       string `json:"metadata"`
	Size           int64  `json:"size"`
	DocumentType   string `json:"documentType"`
}

type documentResponse struct {
	ID               uint64    `json:"id"`
	ContentPointer   string    `json:"contentPointer"`
	ContentHash      string    `json:"contentHash"`
	ProofHash        string    `json:"proofHash,omitempty"`
	Owner            string    `json:"owner"`
	CreatedAt        time.Time `json:"createdAt"`
	LastVerifiedAt   time.Time `json:"lastVerifiedAt,omitzero"`
	IsVerified       bool      `json:"isVerified"`
	MultiSigVerified bool      `json:"multiSigVerified"`
	Metadata         string    `json:"metadata,omitempty"`
	Size             int64     `json:"size"`
	DocumentType     string    `json:"documentType"`
	Lifecycle        string    `json:"lifecycle"`
	ExpiresAt        time.Time `json:"expiresAt"`
}

func toDocumentResponse(doc *models.Document) documentResponse {
	return documentResponse{
		ID:               uint64(doc.ID),
		ContentPointer:   doc.ContentPointer,
		ContentHash:      doc.ContentHash,
		ProofHash:        doc.ProofHash,
		Owner:            doc.Owner.String(),
		CreatedAt:        doc.CreatedAt,
		LastVerifiedAt:   doc.LastVerifiedAt,
		IsVerified:       doc.IsVerified,
		MultiSigVerified: doc.MultiSigVerified,
		Metadata:         doc.Metadata,
		Size:             doc.Size,
		DocumentType:     string(doc.DocumentType),
		Lifecycle:        string(doc.Lifecycle),
		ExpiresAt:        doc.ExpiresAt,
	}
}

type proofResponse struct {
	DocumentID uint64    `json:"documentId"`
	ProofHash  string    `json:"proofHash"`
	Timestamp  time.Time `json:"timestamp"`
	Verifier   string    `json:"verifier"`
	IsValid    bool      `json:"isValid"`
	Payload    string    `json:"payload,omitempty"`
}

func toProofResponse(p *models.VerificationProof) proofResponse {
	return proofResponse{
		DocumentID: uint64(p.DocumentID),
		ProofHash:  p.ProofHash,
		Timestamp:  p.Timestamp,
		Verifier:   p.Verifier.String(),
		IsValid:    p.IsValid,
		Payload:    p.Payload,
	}
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := requestcontext.Principal(ctx)
	if caller.IsZero() {
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	doc, err := h.registry.RegisterDocument(ctx, caller, service.RegisterRequest{
		ContentPointer: req.ContentPointer,
		ContentHash:    req.ContentHash,
		Metadata:       req.Metadata,
		Size:           req.Size,
		DocumentType:   id.DocumentType(req.DocumentType),
	})
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, toDocumentResponse(doc))
}

type submitProofRequest struct {
	ProofHash string `json:"proofHash"`
	Payload   string `json:"payload"`
	IsValid   bool   `json:"isValid"`
}

func (h *Handler) handleSubmitProof(w http.ResponseWriter, r *http.Request) {
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

	var req submitProofRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	doc, err := h.registry.SubmitVerificationProof(ctx, caller, docID, req.ProofHash, req.Payload, req.IsValid)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toDocumentResponse(doc))
}

type transferRequest struct {
	NewOwner string `json:"newOwner"`
}

func (h *Handler) handleTransfer(w http.ResponseWriter, r *http.Request) {
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

	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	if err := h.registry.TransferDocumentOwnership(ctx, caller, docID, id.Principal(req.NewOwner)); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleArchive(w http.ResponseWriter, r *http.Request) {
	h.lifecycleAction(w, r, h.registry.ArchiveDocument)
}

func (h *Handler) handleExpire(w http.ResponseWriter, r *http.Request) {
	h.lifecycleAction(w, r, h.registry.ExpireDocument)
}

func (h *Handler) lifecycleAction(w http.ResponseWriter, r *http.Request, action func(context.Context, id.Principal, id.DocumentID) error) {
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
	if err := action(ctx, caller, docID); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	docID, err := h.documentID(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	doc, err := h.registry.GetDocument(r.Context(), docID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toDocumentResponse(doc))
}

func (h *Handler) handleListOwn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := requestcontext.Principal(ctx)
	if caller.IsZero() {
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}
	docs, err := h.registry.GetUserDocuments(ctx, caller)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	out := make([]documentResponse, 0, len(docs))
	for i := range docs {
		out = append(out, toDocumentResponse(&docs[i]))
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"documents": out})
}

func (h *Handler) handleListProofs(w http.ResponseWriter, r *http.Request) {
	docID, err := h.documentID(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	proofs, err := h.registry.GetDocumentProofs(r.Context(), docID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	out := make([]proofResponse, 0, len(proofs))
	for i := range proofs {
		out = append(out, toProofResponse(&proofs[i]))
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"proofs": out})
}

func (h *Handler) handleLatestProof(w http.ResponseWriter, r *http.Request) {
	docID, err := h.documentID(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	proof, err := h.registry.GetLatestProof(r.Context(), docID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toProofResponse(proof))
}

func (h *Handler) handleExistsByHash(w http.ResponseWriter, r *http.Request) {
	hash := chi.URLParam(r, "hash")
	exists, err := h.registry.DocumentExistsByHash(r.Context(), hash)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]bool{"exists": exists})
}

func (h *Handler) documentID(r *http.Request) (id.DocumentID, error) {
	docID, ok := id.ParseDocumentID(chi.URLParam(r, "documentID"))
	if !ok {
		return 0, dErrors.New(dErrors.CodeBadRequest, "invalid document id")
	}
	return docID, nil
}
