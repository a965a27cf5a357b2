package roles

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"custodia/internal/identity/models"
	id "custodia/pkg/domain"
	"custodia/pkg/platform/sentinel"
	"custodia/pkg/platform/tx"
)

// PostgresStore persists role assignments in PostgreSQL, one row per
// principal.
//
// Schema:
//
//	CREATE TABLE role_assignments (
//	    principal TEXT PRIMARY KEY,
//	    role TEXT NOT NULL,
//	    assigned_by TEXT NOT NULL,
//	    assigned_at TIMESTAMPTZ NOT NULL
//	);
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Assign(ctx context.Context, assignment *models.RoleAssignment) error {
	query := `
		INSERT INTO role_assignments (principal, role, assigned_by, assigned_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (principal)
		DO UPDATE SET role = EXCLUDED.role, assigned_by = EXCLUDED.assigned_by, assigned_at = EXCLUDED.assigned_at
	`
	_, err := tx.Resolve(ctx, s.db).ExecContext(ctx, query,
		assignment.Principal.String(),
		string(assignment.Role),
		assignment.AssignedBy.String(),
		assignment.AssignedAt,
	)
	if err != nil {
		return fmt.Errorf("assign role: %w", err)
	}
	return nil
}

func (s *PostgresStore) Find(ctx context.Context, principal id.Principal) (*models.RoleAssignment, error) {
	query := `SELECT principal, role, assigned_by, assigned_at FROM role_assignments WHERE principal = $1`
	var a models.RoleAssignment
	var p, role, assignedBy string
	err := tx.Resolve(ctx, s.db).QueryRowContext(ctx, query, principal.String()).Scan(&p, &role, &assignedBy, &a.AssignedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find role assignment: %w", err)
	}
	a.Principal = id.Principal(p)
	a.Role = id.Role(role)
	a.AssignedBy = id.Principal(assignedBy)
	return &a, nil
}
