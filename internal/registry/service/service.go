package service

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"custodia/internal/audit"
	"custodia/internal/platform/metrics"
	"custodia/internal/registry/models"
	"custodia/pkg/attrs"
	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/platform/sentinel"
	"custodia/pkg/requestcontext"
)

// DocumentStore persists documents with hash uniqueness and atomic updates.
type DocumentStore interface {
	Create(ctx context.Context, doc *models.Document) error
	FindByID(ctx context.Context, docID id.DocumentID) (*models.Document, error)
	FindByHash(ctx context.Context, hash string) (*models.Document, error)
	ListByOwner(ctx context.Context, owner id.Principal) ([]models.Document, error)
	Execute(ctx context.Context, docID id.DocumentID, validate func(*models.Document) error, mutate func(*models.Document) error) (*models.Document, error)
}

// ProofStore is the append-only verification proof log.
type ProofStore interface {
	Append(ctx context.Context, proof *models.VerificationProof) error
	ListByDocument(ctx context.Context, docID id.DocumentID) ([]models.VerificationProof, error)
	Latest(ctx context.Context, docID id.DocumentID) (*models.VerificationProof, error)
	CountValid(ctx context.Context, docID id.DocumentID) (int, error)
}

// AccessChecker answers authorization queries against the role directory.
type AccessChecker interface {
	HasRoleOrHigher(ctx context.Context, principal id.Principal, required id.Role) bool
	HasVerifyAccess(ctx context.Context, principal id.Principal, doc id.DocumentID) bool
	HasTransferAccess(ctx context.Context, principal id.Principal, doc id.DocumentID) bool
}

// AutoVerifier is notified after each proof submission so eligible documents
// advance without manual action.
type AutoVerifier interface {
	CheckDocument(ctx context.Context, docID id.DocumentID) error
}

// AuditPublisher records registry mutations.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// TxRunner runs a function atomically with respect to the backing stores.
// SQL deployments provide one so multi-store writes commit together; without
// it the function runs directly.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(context.Context) error) error
}

// Service owns document records, the proof log, and the lifecycle state
// machine. Sensitive transitions on behalf of a signer collective enter
// through the Execute* methods, which skip per-caller authorization.
type Service struct {
	documents DocumentStore
	proofs    ProofStore
	access    AccessChecker
	retention models.RetentionSchedule
	verifier  AutoVerifier
	txRunner  TxRunner
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

func WithAutoVerifier(v AutoVerifier) Option {
	return func(s *Service) { s.verifier = v }
}

func WithRetentionSchedule(r models.RetentionSchedule) Option {
	return func(s *Service) { s.retention = r }
}

func WithTxRunner(r TxRunner) Option {
	return func(s *Service) { s.txRunner = r }
}

func New(documents DocumentStore, proofs ProofStore, access AccessChecker, opts ...Option) *Service {
	s := &Service{
		documents: documents,
		proofs:    proofs,
		access:    access,
		retention: models.DefaultRetentionSchedule(),
		logger:    slog.Default(),
		tracer:    otel.Tracer("custodia/registry"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterRequest carries the fields of a document registration.
type RegisterRequest struct {
	ContentPointer string
	ContentHash    string
	Metadata       string
	Size           int64
	DocumentType   id.DocumentType
}

// RegisterDocument records a new document owned by the caller. The content
// hash must not already be registered; the expiry deadline is fixed here from
// the retention schedule.
func (s *Service) RegisterDocument(ctx context.Context, caller id.Principal, req RegisterRequest) (*models.Document, error) {
	ctx, span := s.tracer.Start(ctx, "registry.RegisterDocument")
	defer span.End()

	if caller.IsZero() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "caller is required")
	}
	if req.ContentPointer == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "content pointer is required")
	}
	if req.ContentHash == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "content hash is required")
	}
	docType := req.DocumentType
	if docType == "" {
		docType = id.DocumentTypeDefault
	}

	now := requestcontext.Now(ctx)
	doc := models.NewDocument(caller, req.ContentPointer, req.ContentHash, req.Metadata, req.Size, docType, now, s.retention.Duration(docType))
	if err := s.documents.Create(ctx, doc); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeConflict, "a document with this content hash already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store document")
	}

	s.emit(ctx, caller, audit.EventDocumentRegistered, func(e *audit.Event) {
		e.DocumentID = doc.ID
		e.Subject = string(docType)
	})
	if s.metrics != nil {
		s.metrics.DocumentsRegistered.Inc()
	}
	s.logger.InfoContext(ctx, "document registered", attrs.Document(doc.ID), attrs.Principal(caller))
	return doc, nil
}

// SubmitVerificationProof appends a proof and resolves the document's
// lifecycle in the same call: PROCESSING, then VERIFIED when the proof is
// valid or REJECTED when it is not. The auto-verification check runs as a
// side effect afterwards.
func (s *Service) SubmitVerificationProof(ctx context.Context, caller id.Principal, docID id.DocumentID, proofHash, payload string, isValid bool) (*models.Document, error) {
	ctx, span := s.tracer.Start(ctx, "registry.SubmitVerificationProof")
	defer span.End()

	if proofHash == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "proof hash is required")
	}
	if !s.access.HasVerifyAccess(ctx, caller, docID) {
		return nil, dErrors.New(dErrors.CodeForbidden, "submitting proofs requires verifier role or verify access")
	}

	now := requestcontext.Now(ctx)
	proof := &models.VerificationProof{
		DocumentID: docID,
		ProofHash:  proofHash,
		Timestamp:  now,
		Verifier:   caller,
		IsValid:    isValid,
		Payload:    payload,
	}

	// The lifecycle transition and the proof row must land together: a
	// verified document without its proof is unaccountable.
	var doc *models.Document
	err := s.runInTx(ctx, func(ctx context.Context) error {
		var execErr error
		doc, execErr = s.documents.Execute(ctx, docID,
			func(d *models.Document) error {
				if d.Lifecycle.IsTerminal() {
					return dErrors.Newf(dErrors.CodeInvariantViolation, "document is %s and cannot accept proofs", d.Lifecycle)
				}
				return nil
			},
			func(d *models.Document) error {
				if d.Lifecycle == models.LifecyclePending {
					d.Lifecycle = models.LifecycleProcessing
				}
				if isValid {
					d.ApplyVerified(proofHash, now)
				} else {
					d.Lifecycle = models.LifecycleRejected
				}
				return nil
			},
		)
		if execErr != nil {
			return execErr
		}
		if appendErr := s.proofs.Append(ctx, proof); appendErr != nil {
			return dErrors.Wrap(appendErr, dErrors.CodeInternal, "failed to record proof")
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "document not found")
		}
		return nil, err
	}

	s.emit(ctx, caller, audit.EventProofSubmitted, func(e *audit.Event) {
		e.DocumentID = docID
		e.Decision = decisionLabel(isValid)
	})
	if s.metrics != nil {
		s.metrics.ProofsSubmitted.WithLabelValues(decisionLabel(isValid)).Inc()
	}

	if s.verifier != nil {
		if err := s.verifier.CheckDocument(ctx, docID); err != nil {
			s.logger.WarnContext(ctx, "auto-verification check failed", attrs.Document(docID), attrs.Err(err))
		}
	}
	return doc, nil
}

// TransferDocumentOwnership moves a document to a new owner. The caller must
// be the current owner or hold an effective transfer grant.
func (s *Service) TransferDocumentOwnership(ctx context.Context, caller id.Principal, docID id.DocumentID, newOwner id.Principal) error {
	ctx, span := s.tracer.Start(ctx, "registry.TransferDocumentOwnership")
	defer span.End()

	if newOwner.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "new owner is required")
	}
	if !s.access.HasTransferAccess(ctx, caller, docID) {
		return dErrors.New(dErrors.CodeForbidden, "transferring ownership requires being the owner or holding transfer access")
	}
	if err := s.applyTransfer(ctx, docID, newOwner); err != nil {
		return err
	}

	s.emit(ctx, caller, audit.EventOwnershipTransferred, func(e *audit.Event) {
		e.DocumentID = docID
		e.Subject = newOwner.String()
	})
	if s.metrics != nil {
		s.metrics.OwnershipTransfers.Inc()
	}
	return nil
}

// ArchiveDocument moves a document to its terminal archived state. Allowed
// for the owner and for admins.
func (s *Service) ArchiveDocument(ctx context.Context, caller id.Principal, docID id.DocumentID) error {
	ctx, span := s.tracer.Start(ctx, "registry.ArchiveDocument")
	defer span.End()

	doc, err := s.documents.FindByID(ctx, docID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "document not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load document")
	}
	if caller != doc.Owner && !s.access.HasRoleOrHigher(ctx, caller, id.RoleAdmin) {
		return dErrors.New(dErrors.CodeForbidden, "archiving requires document ownership or admin role")
	}
	if err := s.applyArchive(ctx, docID); err != nil {
		return err
	}

	s.emit(ctx, caller, audit.EventDocumentArchived, func(e *audit.Event) {
		e.DocumentID = docID
	})
	if s.metrics != nil {
		s.metrics.DocumentsArchived.Inc()
	}
	return nil
}

// ExpireDocument moves a document to its terminal expired state. Admins may
// expire at any time; anyone else only once the retention deadline passed.
func (s *Service) ExpireDocument(ctx context.Context, caller id.Principal, docID id.DocumentID) error {
	ctx, span := s.tracer.Start(ctx, "registry.ExpireDocument")
	defer span.End()

	now := requestcontext.Now(ctx)
	_, err := s.documents.Execute(ctx, docID,
		func(d *models.Document) error {
			if !s.access.HasRoleOrHigher(ctx, caller, id.RoleAdmin) && now.Before(d.ExpiresAt) {
				return dErrors.New(dErrors.CodeForbidden, "expiring before the retention deadline requires admin role")
			}
			return d.CanTransition(models.LifecycleExpired)
		},
		func(d *models.Document) error {
			d.Lifecycle = models.LifecycleExpired
			return nil
		},
	)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "document not found")
		}
		return err
	}

	s.emit(ctx, caller, audit.EventDocumentExpired, func(e *audit.Event) {
		e.DocumentID = docID
	})
	if s.metrics != nil {
		s.metrics.DocumentsExpired.Inc()
	}
	return nil
}

// GetDocument returns a document by id.
func (s *Service) GetDocument(ctx context.Context, docID id.DocumentID) (*models.Document, error) {
	doc, err := s.documents.FindByID(ctx, docID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "document not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load document")
	}
	return doc, nil
}

// GetUserDocuments lists documents owned by a principal, in unspecified order.
func (s *Service) GetUserDocuments(ctx context.Context, owner id.Principal) ([]models.Document, error) {
	docs, err := s.documents.ListByOwner(ctx, owner)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list documents")
	}
	return docs, nil
}

// GetDocumentProofs lists a document's proofs in submission order.
func (s *Service) GetDocumentProofs(ctx context.Context, docID id.DocumentID) ([]models.VerificationProof, error) {
	proofs, err := s.proofs.ListByDocument(ctx, docID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list proofs")
	}
	return proofs, nil
}

// GetLatestProof returns the most recent proof for a document, failing when
// none has been submitted yet.
func (s *Service) GetLatestProof(ctx context.Context, docID id.DocumentID) (*models.VerificationProof, error) {
	proof, err := s.proofs.Latest(ctx, docID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no proof has been submitted for this document")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load proof")
	}
	return proof, nil
}

// DocumentExistsByHash reports whether a content hash is already registered.
func (s *Service) DocumentExistsByHash(ctx context.Context, hash string) (bool, error) {
	_, err := s.documents.FindByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, nil
		}
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up content hash")
	}
	return true, nil
}

// ExecuteVerification applies a verification outcome on behalf of an approved
// signer collective. Per-caller authorization was already settled by the
// approval workflow.
func (s *Service) ExecuteVerification(ctx context.Context, executor id.Principal, docID id.DocumentID, proofHash, payload string) error {
	now := requestcontext.Now(ctx)
	_, err := s.documents.Execute(ctx, docID,
		func(d *models.Document) error {
			if d.Lifecycle.IsTerminal() {
				return dErrors.Newf(dErrors.CodeInvariantViolation, "document is %s and cannot accept proofs", d.Lifecycle)
			}
			return nil
		},
		func(d *models.Document) error {
			if d.Lifecycle == models.LifecyclePending {
				d.Lifecycle = models.LifecycleProcessing
			}
			d.ApplyVerified(proofHash, now)
			return nil
		},
	)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "document not found")
		}
		return err
	}

	proof := &models.VerificationProof{
		DocumentID: docID,
		ProofHash:  proofHash,
		Timestamp:  now,
		Verifier:   executor,
		IsValid:    true,
		Payload:    payload,
	}
	if err := s.proofs.Append(ctx, proof); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record proof")
	}
	return nil
}

// ExecuteOwnershipTransfer applies an ownership transfer on behalf of an
// approved signer collective.
func (s *Service) ExecuteOwnershipTransfer(ctx context.Context, docID id.DocumentID, newOwner id.Principal) error {
	if newOwner.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "new owner is required")
	}
	return s.applyTransfer(ctx, docID, newOwner)
}

// ExecuteArchive applies an archive transition on behalf of an approved
// signer collective.
func (s *Service) ExecuteArchive(ctx context.Context, docID id.DocumentID) error {
	return s.applyArchive(ctx, docID)
}

// MarkMultiSigVerified stamps the document as collectively verified.
func (s *Service) MarkMultiSigVerified(ctx context.Context, docID id.DocumentID) error {
	_, err := s.documents.Execute(ctx, docID,
		func(d *models.Document) error { return nil },
		func(d *models.Document) error {
			d.MultiSigVerified = true
			return nil
		},
	)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "document not found")
		}
		return err
	}
	return nil
}

func (s *Service) applyTransfer(ctx context.Context, docID id.DocumentID, newOwner id.Principal) error {
	_, err := s.documents.Execute(ctx, docID,
		func(d *models.Document) error {
			if d.Owner == newOwner {
				return dErrors.New(dErrors.CodeInvalidInput, "new owner must differ from the current owner")
			}
			if d.Lifecycle.IsTerminal() {
				return dErrors.Newf(dErrors.CodeInvariantViolation, "document is %s and cannot change owner", d.Lifecycle)
			}
			return nil
		},
		func(d *models.Document) error {
			d.Owner = newOwner
			return nil
		},
	)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "document not found")
		}
		return err
	}
	return nil
}

func (s *Service) applyArchive(ctx context.Context, docID id.DocumentID) error {
	_, err := s.documents.Execute(ctx, docID,
		func(d *models.Document) error { return d.CanTransition(models.LifecycleArchived) },
		func(d *models.Document) error {
			d.Lifecycle = models.LifecycleArchived
			return nil
		},
	)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "document not found")
		}
		return err
	}
	return nil
}

func decisionLabel(isValid bool) string {
	if isValid {
		return "valid"
	}
	return "invalid"
}

// runInTx defers to the configured TxRunner, or runs fn directly when the
// deployment has no transactional backend.
func (s *Service) runInTx(ctx context.Context, fn func(context.Context) error) error {
	if s.txRunner == nil {
		return fn(ctx)
	}
	return s.txRunner.RunInTx(ctx, fn)
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
