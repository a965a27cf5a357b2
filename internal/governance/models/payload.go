package models

import (
	"encoding/json"
	"fmt"
	"time"

	id "custodia/pkg/domain"
)

// OperationType names the action a proposal carries.
type OperationType string

const (
	OpVerification      OperationType = "verification"
	OpOwnershipTransfer OperationType = "ownership_transfer"
	OpAccessGrant       OperationType = "access_grant"
	OpArchive           OperationType = "archive"
	OpConfigUpdate      OperationType = "config_update"
	OpEmergency         OperationType = "emergency"
)

// DocumentScoped reports whether the operation targets a specific document.
func (t OperationType) DocumentScoped() bool {
	switch t {
	case OpVerification, OpOwnershipTransfer, OpAccessGrant, OpArchive:
		return true
	}
	return false
}

// OperationPayload is the operation-specific data a proposal carries. Each
// operation type has exactly one payload variant; execution dispatches on the
// concrete type, so an unhandled variant is a compile-time gap rather than a
// silent no-op.
type OperationPayload interface {
	OperationType() OperationType
}

// VerificationPayload applies a collective verification proof.
type VerificationPayload struct {
	ProofHash string `json:"proofHash"`
	Payload   string `json:"payload,omitempty"`
}

func (VerificationPayload) OperationType() OperationType { return OpVerification }

// OwnershipTransferPayload moves the document to a new owner.
type OwnershipTransferPayload struct {
	NewOwner id.Principal `json:"newOwner"`
}

func (OwnershipTransferPayload) OperationType() OperationType { return OpOwnershipTransfer }

// AccessGrantPayload issues a capability grant on the target document.
type AccessGrantPayload struct {
	Grantee     id.Principal `json:"grantee"`
	ExpiresAt   time.Time    `json:"expiresAt,omitzero"`
	CanRead     bool         `json:"canRead"`
	CanVerify   bool         `json:"canVerify"`
	CanTransfer bool         `json:"canTransfer"`
}

func (AccessGrantPayload) OperationType() OperationType { return OpAccessGrant }

// ArchivePayload archives the target document. It carries no data of its own.
type ArchivePayload struct{}

func (ArchivePayload) OperationType() OperationType { return OpArchive }

// ConfigScope selects which multi-signature config a config update targets.
type ConfigScope string

const (
	ScopeDocument ConfigScope = "document"
	ScopeType     ConfigScope = "type"
	ScopeDefault  ConfigScope = "default"
)

// ConfigUpdatePayload replaces a multi-signature config at the given scope.
type ConfigUpdatePayload struct {
	Scope        ConfigScope     `json:"scope"`
	DocumentID   id.DocumentID   `json:"documentId,omitempty"`
	DocumentType id.DocumentType `json:"documentType,omitempty"`
	Config       MultiSigConfig  `json:"config"`
}

func (ConfigUpdatePayload) OperationType() OperationType { return OpConfigUpdate }

// payloadEnvelope is the wire and storage form of a payload.
type payloadEnvelope struct {
	Type OperationType   `json:"type"`
	Data json.RawMessage `json:"data"`
}

// EncodePayload serializes a payload with its type tag.
func EncodePayload(p OperationPayload) ([]byte, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", p.OperationType(), err)
	}
	return json.Marshal(payloadEnvelope{Type: p.OperationType(), Data: data})
}

// DecodePayload reverses EncodePayload, returning the concrete variant.
func DecodePayload(raw []byte) (OperationPayload, error) {
	var envelope payloadEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("decode payload envelope: %w", err)
	}

	var payload OperationPayload
	switch envelope.Type {
	case OpVerification:
		payload = &VerificationPayload{}
	case OpOwnershipTransfer:
		payload = &OwnershipTransferPayload{}
	case OpAccessGrant:
		payload = &AccessGrantPayload{}
	case OpArchive:
		payload = &ArchivePayload{}
	case OpConfigUpdate:
		payload = &ConfigUpdatePayload{}
	default:
		return nil, fmt.Errorf("unknown operation type %q", envelope.Type)
	}
	if err := json.Unmarshal(envelope.Data, payload); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", envelope.Type, err)
	}
	return payload, nil
}
