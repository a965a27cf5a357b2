package service

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"custodia/internal/audit"
	"custodia/internal/governance/models"
	identityservice "custodia/internal/identity/service"
	"custodia/internal/platform/metrics"
	registry "custodia/internal/registry/models"
	"custodia/pkg/attrs"
	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/hashing"
	"custodia/pkg/platform/sentinel"
	"custodia/pkg/requestcontext"
)

// ProposalStore persists proposals with sequential ids and atomic updates.
type ProposalStore interface {
	Create(ctx context.Context, proposal *models.Proposal) error
	FindByID(ctx context.Context, proposalID id.ProposalID) (*models.Proposal, error)
	ListByProposer(ctx context.Context, proposer id.Principal) ([]models.Proposal, error)
	Execute(ctx context.Context, proposalID id.ProposalID, validate func(*models.Proposal) error, mutate func(*models.Proposal) error) (*models.Proposal, error)
}

// ConfigStore resolves and updates multi-signature configs across the three
// scopes.
type ConfigStore interface {
	Resolve(ctx context.Context, docID id.DocumentID, docType id.DocumentType) (models.MultiSigConfig, error)
	SetDocumentConfig(ctx context.Context, docID id.DocumentID, cfg models.MultiSigConfig) error
	SetTypeConfig(ctx context.Context, docType id.DocumentType, cfg models.MultiSigConfig) error
	SetDefaultConfig(ctx context.Context, cfg models.MultiSigConfig) error
}

// RegistryActions is the slice of the document registry that proposal
// execution drives.
type RegistryActions interface {
	GetDocument(ctx context.Context, docID id.DocumentID) (*registry.Document, error)
	ExecuteVerification(ctx context.Context, executor id.Principal, docID id.DocumentID, proofHash, payload string) error
	ExecuteOwnershipTransfer(ctx context.Context, docID id.DocumentID, newOwner id.Principal) error
	ExecuteArchive(ctx context.Context, docID id.DocumentID) error
	MarkMultiSigVerified(ctx context.Context, docID id.DocumentID) error
}

// IdentityActions answers hierarchy queries and applies collective grants.
type IdentityActions interface {
	HasRoleOrHigher(ctx context.Context, principal id.Principal, required id.Role) bool
	ExecuteGrant(ctx context.Context, grantor id.Principal, req identityservice.GrantRequest) error
}

// AuditPublisher records governance activity.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service runs the multi-signature workflow: proposals gather approvals from
// a required signer set and, once the threshold is met, the bundled
// operation executes against the registry in the same call.
type Service struct {
	proposals ProposalStore
	configs   ConfigStore
	registry  RegistryActions
	identity  IdentityActions
	logger    *slog.Logger
	publisher AuditPublisher
	metrics   *metrics.Metrics
	tracer    trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) { s.publisher = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(proposals ProposalStore, configs ConfigStore, registryActions RegistryActions, identity IdentityActions, opts ...Option) *Service {
	s := &Service{
		proposals: proposals,
		configs:   configs,
		registry:  registryActions,
		identity:  identity,
		logger:    slog.Default(),
		tracer:    otel.Tracer("custodia/governance"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateProposal opens a collective decision. The caller must hold VERIFIER
// or higher; the signer set must satisfy the resolved config's bounds.
// Emergency operations have no executor and are refused here rather than
// failing silently at execution time.
func (s *Service) CreateProposal(ctx context.Context, caller id.Principal, opType models.OperationType, docID id.DocumentID, signers []id.Principal, payload models.OperationPayload, reason string) (*models.Proposal, error) {
	ctx, span := s.tracer.Start(ctx, "governance.CreateProposal")
	defer span.End()

	if !s.identity.HasRoleOrHigher(ctx, caller, id.RoleVerifier) {
		return nil, dErrors.New(dErrors.CodeForbidden, "creating proposals requires verifier role")
	}
	if opType == models.OpEmergency {
		return nil, dErrors.New(dErrors.CodeBadRequest, "emergency operations are not supported")
	}
	if payload == nil || payload.OperationType() != opType {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "payload does not match the operation type")
	}

	docType := id.DocumentTypeDefault
	if opType.DocumentScoped() {
		if docID == 0 {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "a document id is required for this operation")
		}
		doc, err := s.registry.GetDocument(ctx, docID)
		if err != nil {
			return nil, err
		}
		docType = doc.DocumentType
	} else if docID != 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "this operation is not document-scoped")
	}

	cfg, err := s.configs.Resolve(ctx, docID, docType)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve multi-signature config")
	}
	if err := validateSigners(signers, cfg); err != nil {
		return nil, err
	}

	encoded, err := models.EncodePayload(payload)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode payload")
	}

	now := requestcontext.Now(ctx)
	proposal := &models.Proposal{
		OperationType:     opType,
		DocumentID:        docID,
		Proposer:          caller,
		RequiredSigners:   signers,
		Approvals:         make(map[id.Principal]bool),
		RequiredApprovals: cfg.RequiredApprovals(len(signers), opType),
		CreatedAt:         now,
		ExpiresAt:         now.Add(cfg.ProposalExpiry),
		State:             models.ProposalPending,
		Payload:           payload,
		PayloadDigest:     hashing.PayloadDigest(encoded),
		Reason:            reason,
	}
	if err := s.proposals.Create(ctx, proposal); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store proposal")
	}

	s.emit(ctx, caller, audit.EventProposalCreated, proposal, "")
	if s.metrics != nil {
		s.metrics.ProposalsCreated.WithLabelValues(string(opType)).Inc()
	}
	s.logger.InfoContext(ctx, "proposal created", attrs.Proposal(proposal.ID), attrs.Principal(caller), "operation", string(opType))
	return proposal, nil
}

// CreateVerificationProposal opens a verification proposal with the default
// signer set: the document's owner and the proposer.
func (s *Service) CreateVerificationProposal(ctx context.Context, caller id.Principal, docID id.DocumentID, proofHash, payload, reason string) (*models.Proposal, error) {
	signers, err := s.defaultSigners(ctx, caller, docID)
	if err != nil {
		return nil, err
	}
	return s.CreateProposal(ctx, caller, models.OpVerification, docID, signers, &models.VerificationPayload{ProofHash: proofHash, Payload: payload}, reason)
}

// CreateOwnershipTransferProposal opens a transfer proposal with the default
// signer set.
func (s *Service) CreateOwnershipTransferProposal(ctx context.Context, caller id.Principal, docID id.DocumentID, newOwner id.Principal, reason string) (*models.Proposal, error) {
	signers, err := s.defaultSigners(ctx, caller, docID)
	if err != nil {
		return nil, err
	}
	return s.CreateProposal(ctx, caller, models.OpOwnershipTransfer, docID, signers, &models.OwnershipTransferPayload{NewOwner: newOwner}, reason)
}

// CreateArchiveProposal opens an archive proposal with the default signer
// set.
func (s *Service) CreateArchiveProposal(ctx context.Context, caller id.Principal, docID id.DocumentID, reason string) (*models.Proposal, error) {
	signers, err := s.defaultSigners(ctx, caller, docID)
	if err != nil {
		return nil, err
	}
	return s.CreateProposal(ctx, caller, models.OpArchive, docID, signers, &models.ArchivePayload{}, reason)
}

// ApproveProposal records a signer's approval. When the threshold is met the
// proposal moves to APPROVED and its operation executes synchronously in the
// same call; a failed execution aborts the approval entirely.
func (s *Service) ApproveProposal(ctx context.Context, caller id.Principal, proposalID id.ProposalID) (*models.Proposal, error) {
	ctx, span := s.tracer.Start(ctx, "governance.ApproveProposal")
	defer span.End()

	now := requestcontext.Now(ctx)
	proposal, err := s.proposals.Execute(ctx, proposalID,
		func(p *models.Proposal) error { return p.CanApprove(caller, now) },
		func(p *models.Proposal) error {
			p.RecordApproval(caller)
			if !p.ThresholdMet() {
				return nil
			}
			p.State = models.ProposalApproved
			if err := s.dispatch(ctx, p); err != nil {
				return err
			}
			p.State = models.ProposalExecuted
			return nil
		},
	)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "proposal not found")
		}
		return nil, err
	}

	s.emit(ctx, caller, audit.EventProposalApproved, proposal, "")
	if proposal.State == models.ProposalExecuted {
		s.emit(ctx, caller, audit.EventProposalExecuted, proposal, "")
		if s.metrics != nil {
			s.metrics.ProposalsExecuted.WithLabelValues(string(proposal.OperationType)).Inc()
		}
		s.logger.InfoContext(ctx, "proposal executed", attrs.Proposal(proposal.ID), "operation", string(proposal.OperationType))
	}
	return proposal, nil
}

// RejectProposal terminally rejects a pending proposal, regardless of how
// many approvals it has gathered. Any required signer or an admin may
// reject.
func (s *Service) RejectProposal(ctx context.Context, caller id.Principal, proposalID id.ProposalID, reason string) error {
	_, err := s.proposals.Execute(ctx, proposalID,
		func(p *models.Proposal) error {
			if p.State != models.ProposalPending {
				return dErrors.Newf(dErrors.CodeConflict, "proposal is %s and cannot be rejected", p.State)
			}
			if !p.IsSigner(caller) && !s.identity.HasRoleOrHigher(ctx, caller, id.RoleAdmin) {
				return dErrors.New(dErrors.CodeForbidden, "rejecting requires being a required signer or admin")
			}
			return nil
		},
		func(p *models.Proposal) error {
			p.State = models.ProposalRejected
			p.Reason = reason
			return nil
		},
	)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "proposal not found")
		}
		return err
	}

	s.emitByID(ctx, caller, audit.EventProposalRejected, proposalID, reason)
	return nil
}

// CancelProposal withdraws a pending proposal. Only the proposer or an admin
// may cancel.
func (s *Service) CancelProposal(ctx context.Context, caller id.Principal, proposalID id.ProposalID) error {
	_, err := s.proposals.Execute(ctx, proposalID,
		func(p *models.Proposal) error {
			if p.State != models.ProposalPending {
				return dErrors.Newf(dErrors.CodeConflict, "proposal is %s and cannot be cancelled", p.State)
			}
			if caller != p.Proposer && !s.identity.HasRoleOrHigher(ctx, caller, id.RoleAdmin) {
				return dErrors.New(dErrors.CodeForbidden, "cancelling requires being the proposer or admin")
			}
			return nil
		},
		func(p *models.Proposal) error {
			p.State = models.ProposalCancelled
			return nil
		},
	)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "proposal not found")
		}
		return err
	}

	s.emitByID(ctx, caller, audit.EventProposalCancelled, proposalID, "")
	return nil
}

// ExpireProposals is the housekeeping sweep: each listed proposal that is
// still pending and past its deadline moves to EXPIRED. Anyone may call it;
// ineligible ids are skipped. Returns how many proposals expired.
func (s *Service) ExpireProposals(ctx context.Context, ids []id.ProposalID) (int, error) {
	now := requestcontext.Now(ctx)
	errNotEligible := errors.New("not eligible")

	expired := 0
	for _, proposalID := range ids {
		_, err := s.proposals.Execute(ctx, proposalID,
			func(p *models.Proposal) error {
				if p.State != models.ProposalPending || !p.IsExpired(now) {
					return errNotEligible
				}
				return nil
			},
			func(p *models.Proposal) error {
				p.State = models.ProposalExpired
				return nil
			},
		)
		if err != nil {
			if errors.Is(err, errNotEligible) || errors.Is(err, sentinel.ErrNotFound) {
				continue
			}
			return expired, dErrors.Wrap(err, dErrors.CodeInternal, "failed to expire proposal")
		}
		expired++
		s.emitByID(ctx, "", audit.EventProposalExpired, proposalID, "")
	}
	return expired, nil
}

// GetProposal returns a proposal by id.
func (s *Service) GetProposal(ctx context.Context, proposalID id.ProposalID) (*models.Proposal, error) {
	proposal, err := s.proposals.FindByID(ctx, proposalID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "proposal not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load proposal")
	}
	return proposal, nil
}

// ListProposalsByProposer lists a principal's proposals, newest first.
func (s *Service) ListProposalsByProposer(ctx context.Context, proposer id.Principal) ([]models.Proposal, error) {
	proposals, err := s.proposals.ListByProposer(ctx, proposer)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list proposals")
	}
	return proposals, nil
}

// HasApproved reports whether a signer already approved a proposal.
func (s *Service) HasApproved(ctx context.Context, proposalID id.ProposalID, signer id.Principal) (bool, error) {
	proposal, err := s.GetProposal(ctx, proposalID)
	if err != nil {
		return false, err
	}
	return proposal.HasApproved(signer), nil
}

// ResolveConfig returns the effective multi-signature config for a document.
func (s *Service) ResolveConfig(ctx context.Context, docID id.DocumentID, docType id.DocumentType) (models.MultiSigConfig, error) {
	cfg, err := s.configs.Resolve(ctx, docID, docType)
	if err != nil {
		return models.MultiSigConfig{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve multi-signature config")
	}
	return cfg, nil
}

// UpdateDefaultConfig replaces the default multi-signature config directly.
// Admin only; scoped overrides go through CONFIG_UPDATE proposals.
func (s *Service) UpdateDefaultConfig(ctx context.Context, caller id.Principal, cfg models.MultiSigConfig) error {
	if !s.identity.HasRoleOrHigher(ctx, caller, id.RoleAdmin) {
		return dErrors.New(dErrors.CodeForbidden, "updating the default config requires admin role")
	}
	if err := validateConfig(cfg); err != nil {
		return err
	}
	if err := s.configs.SetDefaultConfig(ctx, cfg); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store config")
	}
	s.emitByID(ctx, caller, audit.EventConfigUpdated, 0, "default")
	return nil
}

// dispatch applies an approved proposal's operation. Lifecycle transitions
// carried out collectively also stamp the document as multi-signature
// verified; grant and config operations do not touch the stamp.
func (s *Service) dispatch(ctx context.Context, p *models.Proposal) error {
	switch payload := p.Payload.(type) {
	case *models.VerificationPayload:
		if err := s.registry.ExecuteVerification(ctx, p.Proposer, p.DocumentID, payload.ProofHash, payload.Payload); err != nil {
			return err
		}
		return s.registry.MarkMultiSigVerified(ctx, p.DocumentID)
	case *models.OwnershipTransferPayload:
		if err := s.registry.ExecuteOwnershipTransfer(ctx, p.DocumentID, payload.NewOwner); err != nil {
			return err
		}
		return s.registry.MarkMultiSigVerified(ctx, p.DocumentID)
	case *models.ArchivePayload:
		if err := s.registry.ExecuteArchive(ctx, p.DocumentID); err != nil {
			return err
		}
		return s.registry.MarkMultiSigVerified(ctx, p.DocumentID)
	case *models.AccessGrantPayload:
		return s.identity.ExecuteGrant(ctx, p.Proposer, identityservice.GrantRequest{
			DocumentID:  p.DocumentID,
			Grantee:     payload.Grantee,
			ExpiresAt:   payload.ExpiresAt,
			CanRead:     payload.CanRead,
			CanVerify:   payload.CanVerify,
			CanTransfer: payload.CanTransfer,
		})
	case *models.ConfigUpdatePayload:
		return s.applyConfigUpdate(ctx, payload)
	default:
		return dErrors.Newf(dErrors.CodeInternal, "no executor for operation type %s", p.OperationType)
	}
}

func (s *Service) applyConfigUpdate(ctx context.Context, payload *models.ConfigUpdatePayload) error {
	if err := validateConfig(payload.Config); err != nil {
		return err
	}
	switch payload.Scope {
	case models.ScopeDocument:
		if payload.DocumentID == 0 {
			return dErrors.New(dErrors.CodeInvalidInput, "a document id is required for document-scoped config")
		}
		return s.configs.SetDocumentConfig(ctx, payload.DocumentID, payload.Config)
	case models.ScopeType:
		if payload.DocumentType == "" {
			return dErrors.New(dErrors.CodeInvalidInput, "a document type is required for type-scoped config")
		}
		return s.configs.SetTypeConfig(ctx, payload.DocumentType, payload.Config)
	case models.ScopeDefault:
		return s.configs.SetDefaultConfig(ctx, payload.Config)
	default:
		return dErrors.Newf(dErrors.CodeInvalidInput, "unknown config scope %q", payload.Scope)
	}
}

func (s *Service) defaultSigners(ctx context.Context, proposer id.Principal, docID id.DocumentID) ([]id.Principal, error) {
	doc, err := s.registry.GetDocument(ctx, docID)
	if err != nil {
		return nil, err
	}
	if doc.Owner == proposer {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "the default signer set needs a distinct owner and proposer; pass an explicit signer set")
	}
	return []id.Principal{doc.Owner, proposer}, nil
}

func validateSigners(signers []id.Principal, cfg models.MultiSigConfig) error {
	if len(signers) < cfg.MinSigners || len(signers) > cfg.MaxSigners {
		return dErrors.Newf(dErrors.CodeValidation, "signer count must be between %d and %d", cfg.MinSigners, cfg.MaxSigners)
	}
	seen := make(map[id.Principal]struct{}, len(signers))
	for _, signer := range signers {
		if signer.IsZero() {
			return dErrors.New(dErrors.CodeInvalidInput, "signers must be non-empty principals")
		}
		if _, dup := seen[signer]; dup {
			return dErrors.New(dErrors.CodeValidation, "signers must be distinct")
		}
		seen[signer] = struct{}{}
	}
	return nil
}

func validateConfig(cfg models.MultiSigConfig) error {
	// A signer collective needs at least two members; one signer is just a
	// direct operation.
	if cfg.MinSigners < 2 {
		return dErrors.New(dErrors.CodeValidation, "min signers must be at least 2")
	}
	if cfg.MaxSigners < cfg.MinSigners {
		return dErrors.New(dErrors.CodeValidation, "max signers must not be below min signers")
	}
	if cfg.ApprovalThresholdPercent < 1 || cfg.ApprovalThresholdPercent > 100 {
		return dErrors.New(dErrors.CodeValidation, "approval threshold must be between 1 and 100 percent")
	}
	if cfg.ProposalExpiry <= 0 {
		return dErrors.New(dErrors.CodeValidation, "proposal expiry must be positive")
	}
	for op, threshold := range cfg.OperationThresholds {
		if threshold < 1 || threshold > 100 {
			return dErrors.Newf(dErrors.CodeValidation, "threshold override for %s must be between 1 and 100 percent", op)
		}
	}
	return nil
}

func (s *Service) emit(ctx context.Context, caller id.Principal, action audit.AuditEvent, proposal *models.Proposal, decision string) {
	if s.publisher == nil {
		return
	}
	event := audit.ContextEvent(ctx, action)
	event.Principal = caller
	event.ProposalID = proposal.ID
	event.DocumentID = proposal.DocumentID
	event.Subject = string(proposal.OperationType)
	event.Decision = decision
	if err := s.publisher.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "audit emit failed", attrs.Err(err), "action", string(action))
	}
}

func (s *Service) emitByID(ctx context.Context, caller id.Principal, action audit.AuditEvent, proposalID id.ProposalID, reason string) {
	if s.publisher == nil {
		return
	}
	event := audit.ContextEvent(ctx, action)
	event.Principal = caller
	event.ProposalID = proposalID
	event.Reason = reason
	if err := s.publisher.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "audit emit failed", attrs.Err(err), "action", string(action))
	}
}
