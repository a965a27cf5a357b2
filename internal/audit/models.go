package audit

import (
	"time"

	id "custodia/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose. Categories
// drive topic routing and retention policy downstream.
type EventCategory string

const (
	// CategoryCompliance covers events with legal/regulatory significance:
	// registrations, verifications, ownership transfers, governance outcomes.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers authorization-sensitive events: role
	// assignments, grants and revocations.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine visibility events that can be
	// sampled: auto-verification triggers, proposal housekeeping.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category   EventCategory
	Timestamp  time.Time
	Principal  id.Principal
	Action     string
	DocumentID id.DocumentID
	ProposalID id.ProposalID
	Subject    string
	Decision   string
	Reason     string
	RequestID  string
	ClientIP   string
	Device     string
}

type AuditEvent string

const (
	// Registry events
	EventDocumentRegistered   AuditEvent = "document_registered"
	EventProofSubmitted       AuditEvent = "proof_submitted"
	EventOwnershipTransferred AuditEvent = "ownership_transferred"
	EventDocumentArchived     AuditEvent = "document_archived"
	EventDocumentExpired      AuditEvent = "document_expired"

	// Identity events
	EventRoleAssigned  AuditEvent = "role_assigned"
	EventAccessGranted AuditEvent = "access_granted"
	EventAccessRevoked AuditEvent = "access_revoked"

	// Auto-verification events
	EventAutoVerification AuditEvent = "auto_verification_triggered"

	// Governance events
	EventProposalCreated   AuditEvent = "proposal_created"
	EventProposalApproved  AuditEvent = "proposal_approved"
	EventProposalRejected  AuditEvent = "proposal_rejected"
	EventProposalCancelled AuditEvent = "proposal_cancelled"
	EventProposalExecuted  AuditEvent = "proposal_executed"
	EventProposalExpired   AuditEvent = "proposal_expired"
	EventConfigUpdated     AuditEvent = "multisig_config_updated"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventDocumentRegistered:   CategoryCompliance,
	EventProofSubmitted:       CategoryCompliance,
	EventOwnershipTransferred: CategoryCompliance,
	EventDocumentArchived:     CategoryCompliance,
	EventDocumentExpired:      CategoryOperations,

	EventRoleAssigned:  CategorySecurity,
	EventAccessGranted: CategorySecurity,
	EventAccessRevoked: CategorySecurity,

	EventAutoVerification: CategoryOperations,

	EventProposalCreated:   CategoryCompliance,
	EventProposalApproved:  CategoryCompliance,
	EventProposalRejected:  CategoryCompliance,
	EventProposalCancelled: CategoryOperations,
	EventProposalExecuted:  CategoryCompliance,
	EventProposalExpired:   CategoryOperations,
	EventConfigUpdated:     CategorySecurity,
}

// CategoryFor returns the category for a known event, defaulting to
// operations for anything unmapped.
func CategoryFor(action AuditEvent) EventCategory {
	if c, ok := eventCategories[action]; ok {
		return c
	}
	return CategoryOperations
}
