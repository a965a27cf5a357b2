package models

import (
	"time"

	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
)

// Lifecycle is a document's processing stage.
//
// Transitions are monotonic: PENDING is never re-entered once left, and
// ARCHIVED/EXPIRED are terminal. Any non-terminal state may be forced to
// EXPIRED (time) or ARCHIVED (owner/admin action).
type Lifecycle string

const (
	LifecyclePending    Lifecycle = "pending"
	LifecycleProcessing Lifecycle = "processing"
	LifecycleVerified   Lifecycle = "verified"
	LifecycleRejected   Lifecycle = "rejected"
	LifecycleExpired    Lifecycle = "expired"
	LifecycleArchived   Lifecycle = "archived"
)

// IsTerminal reports whether no further transitions are possible.
func (l Lifecycle) IsTerminal() bool {
	return l == LifecycleExpired || l == LifecycleArchived
}

var lifecycleNext = map[Lifecycle][]Lifecycle{
	LifecyclePending:    {LifecycleProcessing, LifecycleExpired, LifecycleArchived},
	LifecycleProcessing: {LifecycleVerified, LifecycleRejected, LifecycleExpired, LifecycleArchived},
	LifecycleVerified:   {LifecycleExpired, LifecycleArchived},
	LifecycleRejected:   {LifecycleExpired, LifecycleArchived},
}

// CanTransitionTo reports whether the transition is allowed.
func (l Lifecycle) CanTransitionTo(next Lifecycle) bool {
	for _, n := range lifecycleNext[l] {
		if n == next {
			return true
		}
	}
	return false
}

// Document is the registered record for externally stored content. The
// content itself never enters the system; ContentPointer and ContentHash are
// opaque.
type Document struct {
	ID               id.DocumentID
	ContentPointer   string
	ContentHash      string
	ProofHash        string
	Owner            id.Principal
	CreatedAt        time.Time
	LastVerifiedAt   time.Time
	IsVerified       bool
	MultiSigVerified bool
	Metadata         string
	Size             int64
	DocumentType     id.DocumentType
	Lifecycle        Lifecycle
	// ExpiresAt is fixed at creation from the retention schedule and never
	// recomputed, even if the schedule changes later.
	ExpiresAt time.Time
}

// CanTransition validates a lifecycle move without applying it.
func (d *Document) CanTransition(next Lifecycle) error {
	if d.Lifecycle.IsTerminal() {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "document is %s and cannot change state", d.Lifecycle)
	}
	if !d.Lifecycle.CanTransitionTo(next) {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "cannot move document from %s to %s", d.Lifecycle, next)
	}
	return nil
}

// ApplyVerified records a successful verification outcome.
func (d *Document) ApplyVerified(proofHash string, now time.Time) {
	d.Lifecycle = LifecycleVerified
	d.IsVerified = true
	d.ProofHash = proofHash
	d.LastVerifiedAt = now
}

// NewDocument constructs a pending document. Callers must have validated the
// pointer and hash; the store enforces hash uniqueness.
func NewDocument(owner id.Principal, pointer, hash, metadata string, size int64, docType id.DocumentType, now time.Time, retention time.Duration) *Document {
	return &Document{
		ContentPointer: pointer,
		ContentHash:    hash,
		Owner:          owner,
		CreatedAt:      now,
		Metadata:       metadata,
		Size:           size,
		DocumentType:   docType,
		Lifecycle:      LifecyclePending,
		ExpiresAt:      now.Add(retention),
	}
}

// VerificationProof is an append-only attestation about a document. Proofs
// are never mutated or deleted.
type VerificationProof struct {
	DocumentID id.DocumentID
	ProofHash  string
	Timestamp  time.Time
	Verifier   id.Principal
	IsValid    bool
	Payload    string
}
