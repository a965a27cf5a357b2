package models

import (
	"time"

	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
)

// ProposalState is a proposal's position in its lifecycle. Every state
// except PENDING is terminal; EXECUTED is only reachable through APPROVED.
type ProposalState string

const (
	ProposalPending   ProposalState = "pending"
	ProposalApproved  ProposalState = "approved"
	ProposalRejected  ProposalState = "rejected"
	ProposalExecuted  ProposalState = "executed"
	ProposalCancelled ProposalState = "cancelled"
	ProposalExpired   ProposalState = "expired"
)

// Proposal is a pending collective decision: an operation that takes effect
// only once enough of the required signers approve.
type Proposal struct {
	ID              id.ProposalID
	OperationType   OperationType
	DocumentID      id.DocumentID // zero for non-document operations
	Proposer        id.Principal
	RequiredSigners []id.Principal
	// Approvals records which signers approved; Approvers preserves the
	// order approvals arrived in.
	Approvals         map[id.Principal]bool
	Approvers         []id.Principal
	RequiredApprovals int
	CurrentApprovals  int
	CreatedAt         time.Time
	ExpiresAt         time.Time
	State             ProposalState
	Payload           OperationPayload
	// PayloadDigest fingerprints the encoded payload at creation so approvers
	// can verify what they are signing off on has not been re-encoded.
	PayloadDigest string
	Reason        string
}

// IsSigner reports whether the principal is in the required signer set.
func (p *Proposal) IsSigner(principal id.Principal) bool {
	for _, s := range p.RequiredSigners {
		if s == principal {
			return true
		}
	}
	return false
}

// HasApproved reports whether the signer already approved.
func (p *Proposal) HasApproved(principal id.Principal) bool {
	return p.Approvals[principal]
}

// IsExpired reports whether the approval window has closed.
func (p *Proposal) IsExpired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}

// CanApprove validates an approval attempt without recording it.
func (p *Proposal) CanApprove(signer id.Principal, now time.Time) error {
	if p.State != ProposalPending {
		return dErrors.Newf(dErrors.CodeConflict, "proposal is %s and no longer accepts approvals", p.State)
	}
	if p.IsExpired(now) {
		return dErrors.New(dErrors.CodeTimeout, "proposal has expired")
	}
	if !p.IsSigner(signer) {
		return dErrors.New(dErrors.CodeForbidden, "caller is not a required signer for this proposal")
	}
	if p.HasApproved(signer) {
		return dErrors.New(dErrors.CodeConflict, "caller has already approved this proposal")
	}
	return nil
}

// RecordApproval registers a signer's approval. Callers must have passed
// CanApprove first.
func (p *Proposal) RecordApproval(signer id.Principal) {
	if p.Approvals == nil {
		p.Approvals = make(map[id.Principal]bool)
	}
	p.Approvals[signer] = true
	p.Approvers = append(p.Approvers, signer)
	p.CurrentApprovals++
}

// ThresholdMet reports whether enough approvals have accumulated.
func (p *Proposal) ThresholdMet() bool {
	return p.CurrentApprovals >= p.RequiredApprovals
}
