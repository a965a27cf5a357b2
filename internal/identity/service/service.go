package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"custodia/internal/audit"
	"custodia/internal/identity/models"
	"custodia/internal/platform/metrics"
	"custodia/pkg/attrs"
	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/platform/sentinel"
	"custodia/pkg/requestcontext"
)

// RoleStore persists the single active role per principal.
type RoleStore interface {
	Assign(ctx context.Context, assignment *models.RoleAssignment) error
	Find(ctx context.Context, principal id.Principal) (*models.RoleAssignment, error)
}

// GrantStore persists per-document capability grants and the per-document
// grantee index.
type GrantStore interface {
	Upsert(ctx context.Context, grant *models.AccessGrant) error
	Find(ctx context.Context, doc id.DocumentID, grantee id.Principal) (*models.AccessGrant, error)
	Revoke(ctx context.Context, doc id.DocumentID, grantee id.Principal) error
	ListGrantees(ctx context.Context, doc id.DocumentID) ([]id.Principal, error)
}

// DocumentDirectory answers ownership lookups. Satisfied by the registry's
// document store so the role directory never depends on registry internals.
type DocumentDirectory interface {
	Owner(ctx context.Context, doc id.DocumentID) (id.Principal, error)
}

// AuditPublisher records identity mutations.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service is the identity and role directory: it answers hierarchy queries
// and manages per-document capability grants.
type Service struct {
	roles     RoleStore
	grants    GrantStore
	documents DocumentDirectory
	logger    *slog.Logger
	publisher AuditPublisher
	metrics   *metrics.Metrics
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

func New(roles RoleStore, grants GrantStore, documents DocumentDirectory, opts ...Option) *Service {
	s := &Service{
		roles:     roles,
		grants:    grants,
		documents: documents,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AssignRole installs a role for a principal, retiring any previous one.
// Reassigning the same role is permitted and idempotent in effect.
func (s *Service) AssignRole(ctx context.Context, caller, principal id.Principal, role id.Role) error {
	if !s.HasRoleOrHigher(ctx, caller, id.RoleAdmin) {
		return dErrors.New(dErrors.CodeForbidden, "role assignment requires admin role")
	}
	if principal.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "principal is required")
	}
	if !role.Valid() {
		return dErrors.New(dErrors.CodeInvalidInput, "unknown role")
	}

	assignment := &models.RoleAssignment{
		Principal:  principal,
		Role:       role,
		AssignedBy: caller,
		AssignedAt: requestcontext.Now(ctx),
	}
	if err := s.roles.Assign(ctx, assignment); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to assign role")
	}

	s.emit(ctx, caller, audit.EventRoleAssigned, func(e *audit.Event) {
		e.Subject = principal.String()
		e.Decision = string(role)
	})
	if s.metrics != nil {
		s.metrics.RolesAssigned.Inc()
	}
	return nil
}

// Role returns the principal's current role, if any.
func (s *Service) Role(ctx context.Context, principal id.Principal) (id.Role, bool) {
	assignment, err := s.roles.Find(ctx, principal)
	if err != nil {
		return "", false
	}
	return assignment.Role, true
}

// HasRoleOrHigher reports whether the principal's role level meets the
// required role's level. Principals with no assignment never qualify.
func (s *Service) HasRoleOrHigher(ctx context.Context, principal id.Principal, required id.Role) bool {
	role, ok := s.Role(ctx, principal)
	return ok && role.Meets(required)
}

// GrantRequest carries the parameters of a capability grant.
type GrantRequest struct {
	DocumentID  id.DocumentID
	Grantee     id.Principal
	ExpiresAt   time.Time // zero = never expires
	CanRead     bool
	CanVerify   bool
	CanTransfer bool
}

// GrantDocumentAccess issues (or overwrites) a capability grant. The caller
// must be a document manager or higher, or the document's owner.
func (s *Service) GrantDocumentAccess(ctx context.Context, caller id.Principal, req GrantRequest) error {
	if !s.isManagerOrOwner(ctx, caller, req.DocumentID) {
		return dErrors.New(dErrors.CodeForbidden, "granting access requires document manager role or document ownership")
	}
	if req.Grantee.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "grantee is required")
	}
	if req.Grantee == caller {
		return dErrors.New(dErrors.CodeInvalidInput, "cannot grant access to yourself")
	}
	now := requestcontext.Now(ctx)
	if !req.ExpiresAt.IsZero() && !req.ExpiresAt.After(now) {
		return dErrors.New(dErrors.CodeValidation, "grant expiry must be in the future")
	}

	grant := &models.AccessGrant{
		DocumentID:  req.DocumentID,
		Grantee:     req.Grantee,
		Grantor:     caller,
		ExpiresAt:   req.ExpiresAt,
		CanRead:     req.CanRead,
		CanVerify:   req.CanVerify,
		CanTransfer: req.CanTransfer,
		GrantedAt:   now,
		Active:      true,
	}
	if err := s.grants.Upsert(ctx, grant); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store grant")
	}

	s.emit(ctx, caller, audit.EventAccessGranted, func(e *audit.Event) {
		e.DocumentID = req.DocumentID
		e.Subject = req.Grantee.String()
	})
	if s.metrics != nil {
		s.metrics.GrantsIssued.Inc()
	}
	return nil
}

// ExecuteGrant issues a grant on behalf of an approved signer collective.
// Per-caller authorization was already settled by the approval workflow; the
// grant is recorded under the grantor it names.
func (s *Service) ExecuteGrant(ctx context.Context, grantor id.Principal, req GrantRequest) error {
	if req.Grantee.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "grantee is required")
	}
	now := requestcontext.Now(ctx)
	if !req.ExpiresAt.IsZero() && !req.ExpiresAt.After(now) {
		return dErrors.New(dErrors.CodeValidation, "grant expiry must be in the future")
	}

	grant := &models.AccessGrant{
		DocumentID:  req.DocumentID,
		Grantee:     req.Grantee,
		Grantor:     grantor,
		ExpiresAt:   req.ExpiresAt,
		CanRead:     req.CanRead,
		CanVerify:   req.CanVerify,
		CanTransfer: req.CanTransfer,
		GrantedAt:   now,
		Active:      true,
	}
	if err := s.grants.Upsert(ctx, grant); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store grant")
	}

	s.emit(ctx, grantor, audit.EventAccessGranted, func(e *audit.Event) {
		e.DocumentID = req.DocumentID
		e.Subject = req.Grantee.String()
	})
	if s.metrics != nil {
		s.metrics.GrantsIssued.Inc()
	}
	return nil
}

// RevokeDocumentAccess deactivates an active grant. Allowed for document
// managers and higher, the document owner, and the original grantor.
func (s *Service) RevokeDocumentAccess(ctx context.Context, caller id.Principal, doc id.DocumentID, grantee id.Principal) error {
	grant, err := s.grants.Find(ctx, doc, grantee)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "no grant exists for this document and grantee")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load grant")
	}
	if !s.isManagerOrOwner(ctx, caller, doc) && caller != grant.Grantor {
		return dErrors.New(dErrors.CodeForbidden, "revoking access requires document manager role, document ownership, or being the grantor")
	}

	if err := s.grants.Revoke(ctx, doc, grantee); err != nil {
		if errors.Is(err, sentinel.ErrInvalidState) {
			return dErrors.New(dErrors.CodeConflict, "grant is already revoked")
		}
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "no grant exists for this document and grantee")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke grant")
	}

	s.emit(ctx, caller, audit.EventAccessRevoked, func(e *audit.Event) {
		e.DocumentID = doc
		e.Subject = grantee.String()
	})
	if s.metrics != nil {
		s.metrics.GrantsRevoked.Inc()
	}
	return nil
}

// HasReadAccess reports read capability. Owners always qualify; otherwise an
// effective grant with the read flag is required. Queries never fail.
func (s *Service) HasReadAccess(ctx context.Context, principal id.Principal, doc id.DocumentID) bool {
	if s.isOwner(ctx, principal, doc) {
		return true
	}
	return s.hasCapability(ctx, principal, doc, func(g *models.AccessGrant) bool { return g.CanRead })
}

// HasVerifyAccess reports verify capability. Owners and principals holding
// the verifier role (or higher) always qualify.
func (s *Service) HasVerifyAccess(ctx context.Context, principal id.Principal, doc id.DocumentID) bool {
	if s.isOwner(ctx, principal, doc) {
		return true
	}
	if s.HasRoleOrHigher(ctx, principal, id.RoleVerifier) {
		return true
	}
	return s.hasCapability(ctx, principal, doc, func(g *models.AccessGrant) bool { return g.CanVerify })
}

// HasTransferAccess reports transfer capability.
func (s *Service) HasTransferAccess(ctx context.Context, principal id.Principal, doc id.DocumentID) bool {
	if s.isOwner(ctx, principal, doc) {
		return true
	}
	return s.hasCapability(ctx, principal, doc, func(g *models.AccessGrant) bool { return g.CanTransfer })
}

func (s *Service) hasCapability(ctx context.Context, principal id.Principal, doc id.DocumentID, capability func(*models.AccessGrant) bool) bool {
	grant, err := s.grants.Find(ctx, doc, principal)
	if err != nil {
		return false
	}
	return grant.EffectiveAt(requestcontext.Now(ctx)) && capability(grant)
}

func (s *Service) isOwner(ctx context.Context, principal id.Principal, doc id.DocumentID) bool {
	owner, err := s.documents.Owner(ctx, doc)
	return err == nil && !owner.IsZero() && owner == principal
}

func (s *Service) isManagerOrOwner(ctx context.Context, caller id.Principal, doc id.DocumentID) bool {
	return s.HasRoleOrHigher(ctx, caller, id.RoleDocumentManager) || s.isOwner(ctx, caller, doc)
}

func (s *Service) emit(ctx context.Context, caller id.Principal, action audit.AuditEvent, fill func(*audit.Event)) {
	if s.publisher == nil {
		return
	}
	event := audit.ContextEvent(ctx, action)
	event.Principal = caller
	fill(&event)
	if err := s.publisher.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "audit emit failed", attrs.Err(err), "action", string(action))
	}
}
