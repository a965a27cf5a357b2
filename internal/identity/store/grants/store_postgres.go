package grants

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

// PostgresStore persists access grants in PostgreSQL, keyed by (document,
// grantee). Active grants double as the per-document access index.
//
// Schema:
//
//	CREATE TABLE access_grants (
//	    document_id BIGINT NOT NULL,
//	    grantee TEXT NOT NULL,
//	    grantor TEXT NOT NULL,
//	    expires_at TIMESTAMPTZ,
//	    can_read BOOLEAN NOT NULL,
//	    can_verify BOOLEAN NOT NULL,
//	    can_transfer BOOLEAN NOT NULL,
//	    granted_at TIMESTAMPTZ NOT NULL,
//	    active BOOLEAN NOT NULL,
//	    PRIMARY KEY (document_id, grantee)
//	);
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Upsert(ctx context.Context, grant *models.AccessGrant) error {
	query := `
		INSERT INTO access_grants (document_id, grantee, grantor, expires_at,
			can_read, can_verify, can_transfer, granted_at, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (document_id, grantee)
		DO UPDATE SET grantor = EXCLUDED.grantor, expires_at = EXCLUDED.expires_at,
			can_read = EXCLUDED.can_read, can_verify = EXCLUDED.can_verify,
			can_transfer = EXCLUDED.can_transfer, granted_at = EXCLUDED.granted_at,
			active = EXCLUDED.active
	`
	var expiresAt sql.NullTime
	if !grant.ExpiresAt.IsZero() {
		expiresAt = sql.NullTime{Time: grant.ExpiresAt, Valid: true}
	}
	_, err := tx.Resolve(ctx, s.db).ExecContext(ctx, query,
		uint64(grant.DocumentID),
		grant.Grantee.String(),
		grant.Grantor.String(),
		expiresAt,
		grant.CanRead,
		grant.CanVerify,
		grant.CanTransfer,
		grant.GrantedAt,
		grant.Active,
	)
	if err != nil {
		return fmt.Errorf("upsert grant: %w", err)
	}
	return nil
}

func (s *PostgresStore) Find(ctx context.Context, doc id.DocumentID, grantee id.Principal) (*models.AccessGrant, error) {
	query := `
		SELECT document_id, grantee, grantor, expires_at, can_read, can_verify, can_transfer, granted_at, active
		FROM access_grants WHERE document_id = $1 AND grantee = $2
	`
	var g models.AccessGrant
	var granteeCol, grantor string
	var expiresAt sql.NullTime
	err := tx.Resolve(ctx, s.db).QueryRowContext(ctx, query, uint64(doc), grantee.String()).Scan(
		&g.DocumentID,
		&granteeCol,
		&grantor,
		&expiresAt,
		&g.CanRead,
		&g.CanVerify,
		&g.CanTransfer,
		&g.GrantedAt,
		&g.Active,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find grant: %w", err)
	}
	g.Grantee = id.Principal(granteeCol)
	g.Grantor = id.Principal(grantor)
	if expiresAt.Valid {
		g.ExpiresAt = expiresAt.Time
	}
	return &g, nil
}

// Revoke flips the grant inactive. Fails with ErrNotFound when no grant
// exists and ErrInvalidState when it is already inactive.
func (s *PostgresStore) Revoke(ctx context.Context, doc id.DocumentID, grantee id.Principal) error {
	query := `
		UPDATE access_grants SET active = FALSE
		WHERE document_id = $1 AND grantee = $2 AND active
	`
	res, err := tx.Resolve(ctx, s.db).ExecContext(ctx, query, uint64(doc), grantee.String())
	if err != nil {
		return fmt.Errorf("revoke grant: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("revoke grant: %w", err)
	}
	if affected == 0 {
		var exists bool
		check := `SELECT EXISTS (SELECT 1 FROM access_grants WHERE document_id = $1 AND grantee = $2)`
		if err := tx.Resolve(ctx, s.db).QueryRowContext(ctx, check, uint64(doc), grantee.String()).Scan(&exists); err != nil {
			return fmt.Errorf("revoke grant: %w", err)
		}
		if !exists {
			return sentinel.ErrNotFound
		}
		return sentinel.ErrInvalidState
	}
	return nil
}

// ListGrantees returns the principals with an active grant on the document,
// in unspecified order.
func (s *PostgresStore) ListGrantees(ctx context.Context, doc id.DocumentID) ([]id.Principal, error) {
	query := `SELECT grantee FROM access_grants WHERE document_id = $1 AND active`
	rows, err := tx.Resolve(ctx, s.db).QueryContext(ctx, query, uint64(doc))
	if err != nil {
		return nil, fmt.Errorf("list grantees: %w", err)
	}
	defer rows.Close()

	var out []id.Principal
	for rows.Next() {
		var grantee string
		if err := rows.Scan(&grantee); err != nil {
			return nil, fmt.Errorf("scan grantee: %w", err)
		}
		out = append(out, id.Principal(grantee))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list grantees: %w", err)
	}
	return out, nil
}
