package models

import (
	"time"

	id "custodia/pkg/domain"
)

// TriggerKind names the condition that advanced a document automatically.
type TriggerKind string

const (
	// TriggerTimeBased fires when a pending document has waited past the
	// configured time threshold.
	TriggerTimeBased TriggerKind = "time_based"

	// TriggerConsensusBased fires when a processing document has accumulated
	// enough valid proofs.
	TriggerConsensusBased TriggerKind = "consensus_based"
)

func (k TriggerKind) Valid() bool {
	return k == TriggerTimeBased || k == TriggerConsensusBased
}

// Config controls automatic lifecycle advancement for one document type.
type Config struct {
	DocumentType id.DocumentType
	Enabled      bool
	// TimeThreshold is how long a document may sit in PENDING before a
	// time-based trigger becomes eligible.
	TimeThreshold time.Duration
	// ConsensusThreshold is the count of valid proofs needed for a
	// consensus-based trigger.
	ConsensusThreshold int
	// RequiresManualApproval disables every automatic transition, including
	// forced triggers.
	RequiresManualApproval bool
	// MaxPerDay caps triggers per document in a rolling 24 hour window.
	MaxPerDay int
}

// DefaultConfig is the fallback applied to document types without an
// explicit entry.
func DefaultConfig() Config {
	return Config{
		DocumentType:       id.DocumentTypeDefault,
		Enabled:            true,
		TimeThreshold:      72 * time.Hour,
		ConsensusThreshold: 3,
		MaxPerDay:          10,
	}
}

// Trigger is one recorded automatic advancement.
type Trigger struct {
	DocumentID id.DocumentID
	Kind       TriggerKind
	At         time.Time
}
