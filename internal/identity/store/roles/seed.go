package roles

import (
	"context"
	"time"

	"custodia/internal/identity/models"
	id "custodia/pkg/domain"
)

// Assigner is the slice of the role stores that seeding needs.
type Assigner interface {
	Assign(ctx context.Context, assignment *models.RoleAssignment) error
}

// SeedBootstrapAdmin installs the configured principal as an admin so a
// fresh deployment has someone able to assign roles. The assignment is
// self-attributed; a zero principal is a no-op. Re-running against an
// existing deployment refreshes the same row.
func SeedBootstrapAdmin(ctx context.Context, store Assigner, principal id.Principal, now time.Time) error {
	if principal.IsZero() {
		return nil
	}
	return store.Assign(ctx, &models.RoleAssignment{
		Principal:  principal,
		Role:       id.RoleAdmin,
		AssignedBy: principal,
		AssignedAt: now,
	})
}
