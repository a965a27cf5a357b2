package models

import (
	"time"

	id "custodia/pkg/domain"
)

// RoleAssignment binds a principal to its single active role. Reassignment
// replaces the previous assignment; the store keeps at most one per
// principal.
type RoleAssignment struct {
	Principal  id.Principal
	Role       id.Role
	AssignedBy id.Principal
	AssignedAt time.Time
}

// AccessGrant is a per-document capability grant, keyed by (document,
// grantee).
//
// Invariant: a grant is effective iff Active and (ExpiresAt is zero or
// now <= ExpiresAt). Revocation flips Active to false and removes the
// grantee from the document's access index; a fresh grant may be issued
// afterwards.
type AccessGrant struct {
	DocumentID  id.DocumentID
	Grantee     id.Principal
	Grantor     id.Principal
	ExpiresAt   time.Time // zero = never expires
	CanRead     bool
	CanVerify   bool
	CanTransfer bool
	GrantedAt   time.Time
	Active      bool
}

// EffectiveAt reports whether the grant confers any capability at the given
// instant. The boundary is inclusive: a grant is still effective exactly at
// ExpiresAt and lapses immediately after.
func (g *AccessGrant) EffectiveAt(now time.Time) bool {
	if !g.Active {
		return false
	}
	return g.ExpiresAt.IsZero() || !now.After(g.ExpiresAt)
}
