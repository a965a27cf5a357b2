package domain

import "strconv"

// Principal is the opaque identity of a caller. The registry never assumes
// any internal structure; principals arrive from the auth layer as-is.
type Principal string

// IsZero reports whether the principal is unset.
func (p Principal) IsZero() bool {
	return p == ""
}

func (p Principal) String() string {
	return string(p)
}

// DocumentID identifies a registered document. IDs are assigned sequentially
// by the document store and never reused.
type DocumentID uint64

func (d DocumentID) String() string {
	return strconv.FormatUint(uint64(d), 10)
}

// ParseDocumentID parses a decimal document id. Returns 0 and false on
// malformed input; 0 is never a valid id.
func ParseDocumentID(s string) (DocumentID, bool) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil || v == 0 {
		return 0, false
	}
	return DocumentID(v), true
}

// ProposalID identifies a governance proposal, assigned sequentially.
type ProposalID uint64

func (p ProposalID) String() string {
	return strconv.FormatUint(uint64(p), 10)
}

// ParseProposalID parses a decimal proposal id.
func ParseProposalID(s string) (ProposalID, bool) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil || v == 0 {
		return 0, false
	}
	return ProposalID(v), true
}

// DocumentType tags a document for retention and auto-verification policy
// lookup. Unknown types fall back to DocumentTypeDefault.
type DocumentType string

// DocumentTypeDefault is the fallback policy key for unrecognized types.
const DocumentTypeDefault DocumentType = "default"
