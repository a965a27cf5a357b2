package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"custodia/internal/governance/models"
	"custodia/internal/platform/metrics"
	"custodia/internal/platform/middleware"
	"custodia/internal/transport/http/shared"
	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/requestcontext"
)

// Service defines the interface for multi-signature governance operations.
type Service interface {
	CreateProposal(ctx context.Context, caller id.Principal, opType models.OperationType, docID id.DocumentID, signers []id.Principal, payload models.OperationPayload, reason string) (*models.Proposal, error)
	CreateVerificationProposal(ctx context.Context, caller id.Principal, docID id.DocumentID, proofHash, payload, reason string) (*models.Proposal, error)
	CreateOwnershipTransferProposal(ctx context.Context, caller id.Principal, docID id.DocumentID, newOwner id.Principal, reason string) (*models.Proposal, error)
	CreateArchiveProposal(ctx context.Context, caller id.Principal, docID id.DocumentID, reason string) (*models.Proposal, error)
	ApproveProposal(ctx context.Context, caller id.Principal, proposalID id.ProposalID) (*models.Proposal, error)
	RejectProposal(ctx context.Context, caller id.Principal, proposalID id.ProposalID, reason string) error
	CancelProposal(ctx context.Context, caller id.Principal, proposalID id.ProposalID) error
	ExpireProposals(ctx context.Context, ids []id.ProposalID) (int, error)
	GetProposal(ctx context.Context, proposalID id.ProposalID) (*models.Proposal, error)
	ListProposalsByProposer(ctx context.Context, proposer id.Principal) ([]models.Proposal, error)
	HasApproved(ctx context.Context, proposalID id.ProposalID, signer id.Principal) (bool, error)
	ResolveConfig(ctx context.Context, docID id.DocumentID, docType id.DocumentType) (models.MultiSigConfig, error)
	UpdateDefaultConfig(ctx context.Context, caller id.Principal, cfg models.MultiSigConfig) error
}

// Handler handles proposal and multi-signature configuration endpoints.
type Handler struct {
	logger       *slog.Logger
	governance   Service
	metrics      *metrics.Metrics
	jwtValidator middleware.JWTValidator
}

func New(governance Service, logger *slog.Logger, m *metrics.Metrics, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		governance:   governance,
		metrics:      m,
		jwtValidator: jwtValidator,
	}
}

// Register registers the governance routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	rt := chi.NewRouter()
	rt.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
	rt.Post("/proposals", h.handleCreate)
	rt.Get("/proposals", h.handleListOwn)
	rt.Post("/proposals/expire", h.handleExpire)
	rt.Get("/proposals/{proposalID}", h.handleGet)
	rt.Post("/proposals/{proposalID}/approve", h.handleApprove)
	rt.Post("/proposals/{proposalID}/reject", h.handleReject)
	rt.Post("/proposals/{proposalID}/cancel", h.handleCancel)
	rt.Get("/proposals/{proposalID}/approvals/{signer}", h.handleHasApproved)
	rt.Get("/multisig-config", h.handleResolveConfig)
	rt.Put("/multisig-config/default", h.handleUpdateDefaultConfig)

	r.Mount("/", rt)
}

type createProposalRequest struct {
	OperationType string          `json:"operationType"`
	DocumentID    uint64          `json:"documentId,omitempty"`
	Signers       []string        `json:"signers,omitempty"`
	Payload       json.RawMessage `json:"payload"`
	Reason        string          `json:"reason,omitempty"`
}

type proposalResponse struct {
	ID                uint64          `json:"id"`
	OperationType     string          `json:"operationType"`
	DocumentID        uint64          `json:"documentId,omitempty"`
	Proposer          string          `json:"proposer"`
	RequiredSigners   []string        `json:"requiredSigners"`
	Approvers         []string        `json:"approvers"`
	RequiredApprovals int             `json:"requiredApprovals"`
	CurrentApprovals  int             `json:"currentApprovals"`
	CreatedAt         time.Time       `json:"createdAt"`
	ExpiresAt         time.Time       `json:"expiresAt"`
	State             string          `json:"state"`
	Payload           json.RawMessage `json:"payload,omitempty"`
	PayloadDigest     string          `json:"payloadDigest,omitempty"`
	Reason            string          `json:"reason,omitempty"`
}

func toProposalResponse(p *models.Proposal) proposalResponse {
	signers := make([]string, 0, len(p.RequiredSigners))
	for _, signer := range p.RequiredSigners {
		signers = append(signers, signer.String())
	}
	approvers := make([]string, 0, len(p.Approvers))
	for _, approver := range p.Approvers {
		approvers = append(approvers, approver.String())
	}
	var payload json.RawMessage
	if p.Payload != nil {
		if raw, err := models.EncodePayload(p.Payload); err == nil {
			payload = raw
		}
	}
	return proposalResponse{
		ID:                uint64(p.ID),
		OperationType:     string(p.OperationType),
		DocumentID:        uint64(p.DocumentID),
		Proposer:          p.Proposer.String(),
		RequiredSigners:   signers,
		Approvers:         approvers,
		RequiredApprovals: p.RequiredApprovals,
		CurrentApprovals:  p.CurrentApprovals,
		CreatedAt:         p.CreatedAt,
		ExpiresAt:         p.ExpiresAt,
		State:             string(p.State),
		Payload:           payload,
		PayloadDigest:     p.PayloadDigest,
		Reason:            p.Reason,
	}
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := requestcontext.Principal(ctx)
	if caller.IsZero() {
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	var req createProposalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	payload, err := models.DecodePayload(req.Payload)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid operation payload"))
		return
	}

	signers := make([]id.Principal, 0, len(req.Signers))
	for _, signer := range req.Signers {
		signers = append(signers, id.Principal(signer))
	}

	proposal, err := h.governance.CreateProposal(ctx, caller,
		models.OperationType(req.OperationType), id.DocumentID(req.DocumentID), signers, payload, req.Reason)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, toProposalResponse(proposal))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	proposalID, err := h.proposalID(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	proposal, err := h.governance.GetProposal(r.Context(), proposalID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toProposalResponse(proposal))
}

func (h *Handler) handleListOwn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := requestcontext.Principal(ctx)
	if caller.IsZero() {
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}
	list, err := h.governance.ListProposalsByProposer(ctx, caller)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	out := make([]proposalResponse, 0, len(list))
	for i := range list {
		out = append(out, toProposalResponse(&list[i]))
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"proposals": out})
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := requestcontext.Principal(ctx)
	if caller.IsZero() {
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}
	proposalID, err := h.proposalID(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	proposal, err := h.governance.ApproveProposal(ctx, caller, proposalID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toProposalResponse(proposal))
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := requestcontext.Principal(ctx)
	if caller.IsZero() {
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}
	proposalID, err := h.proposalID(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var req rejectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	if err := h.governance.RejectProposal(ctx, caller, proposalID, req.Reason); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := requestcontext.Principal(ctx)
	if caller.IsZero() {
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}
	proposalID, err := h.proposalID(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if err := h.governance.CancelProposal(ctx, caller, proposalID); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type expireRequest struct {
	ProposalIDs []uint64 `json:"proposalIds"`
}

func (h *Handler) handleExpire(w http.ResponseWriter, r *http.Request) {
	var req expireRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	ids := make([]id.ProposalID, 0, len(req.ProposalIDs))
	for _, raw := range req.ProposalIDs {
		ids = append(ids, id.ProposalID(raw))
	}
	expired, err := h.governance.ExpireProposals(r.Context(), ids)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]int{"expired": expired})
}

func (h *Handler) handleHasApproved(w http.ResponseWriter, r *http.Request) {
	proposalID, err := h.proposalID(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	signer := id.Principal(chi.URLParam(r, "signer"))
	approved, err := h.governance.HasApproved(r.Context(), proposalID, signer)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]bool{"approved": approved})
}

type configResponse struct {
	MinSigners               int            `json:"minSigners"`
	MaxSigners               int            `json:"maxSigners"`
	ApprovalThresholdPercent int            `json:"approvalThresholdPercent"`
	ProposalExpirySeconds    int64          `json:"proposalExpirySeconds"`
	RequiresUnanimous        bool           `json:"requiresUnanimous"`
	OperationThresholds      map[string]int `json:"operationThresholds,omitempty"`
}

func toConfigResponse(cfg models.MultiSigConfig) configResponse {
	var thresholds map[string]int
	if len(cfg.OperationThresholds) > 0 {
		thresholds = make(map[string]int, len(cfg.OperationThresholds))
		for op, pct := range cfg.OperationThresholds {
			thresholds[string(op)] = pct
		}
	}
	return configResponse{
		MinSigners:               cfg.MinSigners,
		MaxSigners:               cfg.MaxSigners,
		ApprovalThresholdPercent: cfg.ApprovalThresholdPercent,
		ProposalExpirySeconds:    int64(cfg.ProposalExpiry / time.Second),
		RequiresUnanimous:        cfg.RequiresUnanimous,
		OperationThresholds:      thresholds,
	}
}

// handleResolveConfig resolves the effective configuration for the document
// or document type given as query parameters, falling back to the default.
func (h *Handler) handleResolveConfig(w http.ResponseWriter, r *http.Request) {
	var docID id.DocumentID
	if raw := r.URL.Query().Get("documentId"); raw != "" {
		parsed, ok := id.ParseDocumentID(raw)
		if !ok {
			shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid document id"))
			return
		}
		docID = parsed
	}
	docType := id.DocumentType(r.URL.Query().Get("documentType"))

	cfg, err := h.governance.ResolveConfig(r.Context(), docID, docType)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toConfigResponse(cfg))
}

type updateConfigRequest struct {
	MinSigners               int            `json:"minSigners"`
	MaxSigners               int            `json:"maxSigners"`
	ApprovalThresholdPercent int            `json:"approvalThresholdPercent"`
	ProposalExpirySeconds    int64          `json:"proposalExpirySeconds"`
	RequiresUnanimous        bool           `json:"requiresUnanimous"`
	OperationThresholds      map[string]int `json:"operationThresholds,omitempty"`
}

func (h *Handler) handleUpdateDefaultConfig(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := requestcontext.Principal(ctx)
	if caller.IsZero() {
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	var req updateConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	var thresholds map[models.OperationType]int
	if len(req.OperationThresholds) > 0 {
		thresholds = make(map[models.OperationType]int, len(req.OperationThresholds))
		for op, pct := range req.OperationThresholds {
			thresholds[models.OperationType(op)] = pct
		}
	}

	err := h.governance.UpdateDefaultConfig(ctx, caller, models.MultiSigConfig{
		MinSigners:               req.MinSigners,
		MaxSigners:               req.MaxSigners,
		ApprovalThresholdPercent: req.ApprovalThresholdPercent,
		ProposalExpiry:           time.Duration(req.ProposalExpirySeconds) * time.Second,
		RequiresUnanimous:        req.RequiresUnanimous,
		OperationThresholds:      thresholds,
	})
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) proposalID(r *http.Request) (id.ProposalID, error) {
	proposalID, ok := id.ParseProposalID(chi.URLParam(r, "proposalID"))
	if !ok {
		return 0, dErrors.New(dErrors.CodeBadRequest, "invalid proposal id")
	}
	return proposalID, nil
}
