package models

import "time"

// MultiSigConfig controls how many approvals a proposal needs. Configs
// resolve in order: per-document override, per-document-type override,
// default.
type MultiSigConfig struct {
	MinSigners               int
	MaxSigners               int
	ApprovalThresholdPercent int
	ProposalExpiry           time.Duration
	RequiresUnanimous        bool
	// OperationThresholds overrides ApprovalThresholdPercent for specific
	// operation types. RequiresUnanimous still wins over both.
	OperationThresholds map[OperationType]int
}

// IsSet reports whether this config was explicitly configured. A zero
// MinSigners always means "unset, fall through", never a genuine
// zero-minimum override.
func (c MultiSigConfig) IsSet() bool {
	return c.MinSigners > 0
}

// ThresholdFor returns the effective approval percentage for an operation.
func (c MultiSigConfig) ThresholdFor(op OperationType) int {
	if t, ok := c.OperationThresholds[op]; ok {
		return t
	}
	return c.ApprovalThresholdPercent
}

// RequiredApprovals computes how many approvals a proposal with the given
// signer count needs: every signer when unanimous, otherwise the ceiling of
// signerCount x threshold / 100.
func (c MultiSigConfig) RequiredApprovals(signerCount int, op OperationType) int {
	if c.RequiresUnanimous {
		return signerCount
	}
	return (signerCount*c.ThresholdFor(op) + 99) / 100
}

// DefaultMultiSigConfig is the fallback when neither a document nor its type
// carries an override.
func DefaultMultiSigConfig() MultiSigConfig {
	return MultiSigConfig{
		MinSigners:               2,
		MaxSigners:               10,
		ApprovalThresholdPercent: 67,
		ProposalExpiry:           7 * 24 * time.Hour,
	}
}
