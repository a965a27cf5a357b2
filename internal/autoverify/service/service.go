package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"custodia/internal/audit"
	"custodia/internal/autoverify/models"
	"custodia/internal/platform/metrics"
	registry "custodia/internal/registry/models"
	"custodia/pkg/attrs"
	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/platform/sentinel"
	"custodia/pkg/requestcontext"
)

// batchConcurrency bounds parallel document checks in CheckBatch.
const batchConcurrency = 8

// ConfigStore resolves per-type trigger configuration.
type ConfigStore interface {
	Resolve(ctx context.Context, docType id.DocumentType) (models.Config, error)
	Upsert(ctx context.Context, cfg models.Config) error
}

// RateGate enforces the rolling per-document trigger ceiling and keeps the
// trigger history.
type RateGate interface {
	Reserve(ctx context.Context, docID id.DocumentID, kind models.TriggerKind, now time.Time, maxPerDay int) (bool, error)
	History(ctx context.Context, docID id.DocumentID) ([]models.Trigger, error)
}

// DocumentStore is the slice of the registry's document store this engine
// needs to read and advance lifecycles.
type DocumentStore interface {
	FindByID(ctx context.Context, docID id.DocumentID) (*registry.Document, error)
	Execute(ctx context.Context, docID id.DocumentID, validate func(*registry.Document) error, mutate func(*registry.Document) error) (*registry.Document, error)
}

// ProofCounter reports accumulated proof consensus.
type ProofCounter interface {
	CountValid(ctx context.Context, docID id.DocumentID) (int, error)
	Latest(ctx context.Context, docID id.DocumentID) (*registry.VerificationProof, error)
}

// RoleChecker answers hierarchy queries for the privileged operations.
type RoleChecker interface {
	HasRoleOrHigher(ctx context.Context, principal id.Principal, required id.Role) bool
}

// AuditPublisher records trigger events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service evaluates whether documents should advance automatically, based on
// elapsed time or proof consensus. It runs only when called: after proof
// submissions, on explicit batch requests, or on a forced trigger.
type Service struct {
	configs   ConfigStore
	gate      RateGate
	documents DocumentStore
	proofs    ProofCounter
	roles     RoleChecker
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

func New(configs ConfigStore, gate RateGate, documents DocumentStore, proofs ProofCounter, roles RoleChecker, opts ...Option) *Service {
	s := &Service{
		configs:   configs,
		gate:      gate,
		documents: documents,
		proofs:    proofs,
		roles:     roles,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CheckDocument evaluates both trigger conditions for one document. A
// time-based advance can make the consensus condition eligible within the
// same call.
func (s *Service) CheckDocument(ctx context.Context, docID id.DocumentID) error {
	doc, err := s.documents.FindByID(ctx, docID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "document not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load document")
	}

	cfg, err := s.configs.Resolve(ctx, doc.DocumentType)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve trigger config")
	}
	if !cfg.Enabled {
		return nil
	}

	now := requestcontext.Now(ctx)
	lifecycle := doc.Lifecycle

	if lifecycle == registry.LifecyclePending && !now.Before(doc.CreatedAt.Add(cfg.TimeThreshold)) {
		advanced, err := s.advance(ctx, docID, cfg, models.TriggerTimeBased, now)
		if err != nil {
			return err
		}
		if advanced {
			lifecycle = registry.LifecycleProcessing
		}
	}

	if lifecycle == registry.LifecycleProcessing {
		count, err := s.proofs.CountValid(ctx, docID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to count proofs")
		}
		if count >= cfg.ConsensusThreshold {
			if _, err := s.advance(ctx, docID, cfg, models.TriggerConsensusBased, now); err != nil {
				return err
			}
		}
	}
	return nil
}

// CheckBatch evaluates a caller-supplied id list with bounded concurrency.
// Per-document failures are logged and do not stop the rest of the batch.
func (s *Service) CheckBatch(ctx context.Context, ids []id.DocumentID) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(batchConcurrency)
	for _, docID := range ids {
		g.Go(func() error {
			if err := s.CheckDocument(ctx, docID); err != nil {
				s.logger.WarnContext(ctx, "batch auto-verification check failed", attrs.Document(docID), attrs.Err(err))
			}
			return ctx.Err()
		})
	}
	return g.Wait()
}

// ForceTrigger lets an admin fire a specific trigger kind without the
// condition checks. The rate gate still applies.
func (s *Service) ForceTrigger(ctx context.Context, caller id.Principal, docID id.DocumentID, kind models.TriggerKind) error {
	if !s.roles.HasRoleOrHigher(ctx, caller, id.RoleAdmin) {
		return dErrors.New(dErrors.CodeForbidden, "forcing a trigger requires admin role")
	}
	if !kind.Valid() {
		return dErrors.New(dErrors.CodeInvalidInput, "unknown trigger kind")
	}

	doc, err := s.documents.FindByID(ctx, docID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "document not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load document")
	}
	cfg, err := s.configs.Resolve(ctx, doc.DocumentType)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve trigger config")
	}

	advanced, err := s.advance(ctx, docID, cfg, kind, requestcontext.Now(ctx))
	if err != nil {
		return err
	}
	if !advanced {
		return dErrors.New(dErrors.CodeConflict, "trigger denied by the rate gate")
	}
	return nil
}

// UpdateConfig installs a per-type trigger config. Admin only.
func (s *Service) UpdateConfig(ctx context.Context, caller id.Principal, cfg models.Config) error {
	if !s.roles.HasRoleOrHigher(ctx, caller, id.RoleAdmin) {
		return dErrors.New(dErrors.CodeForbidden, "updating trigger config requires admin role")
	}
	if cfg.DocumentType == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "document type is required")
	}
	if cfg.ConsensusThreshold < 1 {
		return dErrors.New(dErrors.CodeValidation, "consensus threshold must be at least 1")
	}
	if cfg.MaxPerDay < 1 {
		return dErrors.New(dErrors.CodeValidation, "max triggers per day must be at least 1")
	}
	if err := s.configs.Upsert(ctx, cfg); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store trigger config")
	}
	return nil
}

// Config resolves the effective trigger config for a document type.
func (s *Service) Config(ctx context.Context, docType id.DocumentType) (models.Config, error) {
	cfg, err := s.configs.Resolve(ctx, docType)
	if err != nil {
		return models.Config{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve trigger config")
	}
	return cfg, nil
}

// History returns a document's recorded triggers.
func (s *Service) History(ctx context.Context, docID id.DocumentID) ([]models.Trigger, error) {
	history, err := s.gate.History(ctx, docID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load trigger history")
	}
	return history, nil
}

// advance passes the rate gate and applies the lifecycle move for the trigger
// kind. Returns false when the gate denies.
func (s *Service) advance(ctx context.Context, docID id.DocumentID, cfg models.Config, kind models.TriggerKind, now time.Time) (bool, error) {
	if cfg.RequiresManualApproval {
		return false, nil
	}
	allowed, err := s.gate.Reserve(ctx, docID, kind, now, cfg.MaxPerDay)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "rate gate failed")
	}
	if !allowed {
		return false, nil
	}

	switch kind {
	case models.TriggerTimeBased:
		err = s.applyProcessing(ctx, docID)
	case models.TriggerConsensusBased:
		err = s.applyVerified(ctx, docID, now)
	}
	if err != nil {
		return false, err
	}

	s.emit(ctx, docID, kind)
	if s.metrics != nil {
		s.metrics.AutoVerifications.WithLabelValues(string(kind)).Inc()
	}
	s.logger.InfoContext(ctx, "auto-verification triggered", attrs.Document(docID), "kind", string(kind))
	return true, nil
}

func (s *Service) applyProcessing(ctx context.Context, docID id.DocumentID) error {
	_, err := s.documents.Execute(ctx, docID,
		func(d *registry.Document) error { return d.CanTransition(registry.LifecycleProcessing) },
		func(d *registry.Document) error {
			d.Lifecycle = registry.LifecycleProcessing
			return nil
		},
	)
	return err
}

func (s *Service) applyVerified(ctx context.Context, docID id.DocumentID, now time.Time) error {
	proofHash := ""
	if latest, err := s.proofs.Latest(ctx, docID); err == nil {
		proofHash = latest.ProofHash
	}
	_, err := s.documents.Execute(ctx, docID,
		func(d *registry.Document) error { return d.CanTransition(registry.LifecycleVerified) },
		func(d *registry.Document) error {
			if proofHash == "" {
				proofHash = d.ProofHash
			}
			d.ApplyVerified(proofHash, now)
			return nil
		},
	)
	return err
}

func (s *Service) emit(ctx context.Context, docID id.DocumentID, kind models.TriggerKind) {
	if s.publisher == nil {
		return
	}
	event := audit.ContextEvent(ctx, audit.EventAutoVerification)
	event.DocumentID = docID
	event.Decision = string(kind)
	if err := s.publisher.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "audit emit failed", attrs.Err(err))
	}
}
