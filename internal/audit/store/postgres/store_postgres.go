package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"custodia/internal/audit"
	id "custodia/pkg/domain"
)

// Store persists audit events in PostgreSQL via a pgx pool.
//
// Schema:
//
//	CREATE TABLE audit_events (
//	    id          BIGSERIAL PRIMARY KEY,
//	    category    TEXT NOT NULL,
//	    occurred_at TIMESTAMPTZ NOT NULL,
//	    principal   TEXT NOT NULL,
//	    action      TEXT NOT NULL,
//	    document_id BIGINT NOT NULL DEFAULT 0,
//	    proposal_id BIGINT NOT NULL DEFAULT 0,
//	    subject     TEXT NOT NULL DEFAULT '',
//	    decision    TEXT NOT NULL DEFAULT '',
//	    reason      TEXT NOT NULL DEFAULT '',
//	    request_id  TEXT NOT NULL DEFAULT '',
//	    client_ip   TEXT NOT NULL DEFAULT '',
//	    device      TEXT NOT NULL DEFAULT ''
//	);
//	CREATE INDEX audit_events_principal_idx ON audit_events (principal, occurred_at);
type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO audit_events
			(category, occurred_at, principal, action, document_id, proposal_id,
			 subject, decision, reason, request_id, client_ip, device)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		string(event.Category), event.Timestamp, string(event.Principal), event.Action,
		uint64(event.DocumentID), uint64(event.ProposalID),
		event.Subject, event.Decision, event.Reason,
		event.RequestID, event.ClientIP, event.Device,
	)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

func (s *Store) ListByPrincipal(ctx context.Context, principal id.Principal) ([]audit.Event, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT category, occurred_at, principal, action, document_id, proposal_id,
		       subject, decision, reason, request_id, client_ip, device
		FROM audit_events
		WHERE principal = $1
		ORDER BY occurred_at`,
		string(principal),
	)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var out []audit.Event
	for rows.Next() {
		var e audit.Event
		var category, principalCol string
		var docID, propID uint64
		if err := rows.Scan(&category, &e.Timestamp, &principalCol, &e.Action, &docID, &propID,
			&e.Subject, &e.Decision, &e.Reason, &e.RequestID, &e.ClientIP, &e.Device); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.Category = audit.EventCategory(category)
		e.Principal = id.Principal(principalCol)
		e.DocumentID = id.DocumentID(docID)
		e.ProposalID = id.ProposalID(propID)
		out = append(out, e)
	}
	return out, rows.Err()
}
