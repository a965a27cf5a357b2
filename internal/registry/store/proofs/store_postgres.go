package proofs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"custodia/internal/registry/models"
	id "custodia/pkg/domain"
	"custodia/pkg/platform/sentinel"
	"custodia/pkg/platform/tx"
)

// PostgresStore persists the append-only proof log in PostgreSQL. Queries
// join an ambient transaction when the context carries one.
//
// Schema:
//
//	CREATE TABLE verification_proofs (
//	    id BIGSERIAL PRIMARY KEY,
//	    document_id BIGINT NOT NULL REFERENCES documents (id),
//	    proof_hash TEXT NOT NULL,
//	    submitted_at TIMESTAMPTZ NOT NULL,
//	    verifier TEXT NOT NULL,
//	    is_valid BOOLEAN NOT NULL,
//	    payload TEXT NOT NULL DEFAULT ''
//	);
//	CREATE INDEX verification_proofs_document_idx ON verification_proofs (document_id, id);
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, proof *models.VerificationProof) error {
	query := `
		INSERT INTO verification_proofs (document_id, proof_hash, submitted_at, verifier, is_valid, payload)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := tx.Resolve(ctx, s.db).ExecContext(ctx, query,
		uint64(proof.DocumentID),
		proof.ProofHash,
		proof.Timestamp,
		proof.Verifier.String(),
		proof.IsValid,
		proof.Payload,
	)
	if err != nil {
		return fmt.Errorf("append proof: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByDocument(ctx context.Context, docID id.DocumentID) ([]models.VerificationProof, error) {
	query := `
		SELECT document_id, proof_hash, submitted_at, verifier, is_valid, payload
		FROM verification_proofs
		WHERE document_id = $1
		ORDER BY id
	`
	rows, err := tx.Resolve(ctx, s.db).QueryContext(ctx, query, uint64(docID))
	if err != nil {
		return nil, fmt.Errorf("list proofs: %w", err)
	}
	defer rows.Close()

	var out []models.VerificationProof
	for rows.Next() {
		proof, err := scanProof(rows)
		if err != nil {
			return nil, fmt.Errorf("scan proof: %w", err)
		}
		out = append(out, *proof)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list proofs: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Latest(ctx context.Context, docID id.DocumentID) (*models.VerificationProof, error) {
	query := `
		SELECT document_id, proof_hash, submitted_at, verifier, is_valid, payload
		FROM verification_proofs
		WHERE document_id = $1
		ORDER BY id DESC
		LIMIT 1
	`
	proof, err := scanProof(tx.Resolve(ctx, s.db).QueryRowContext(ctx, query, uint64(docID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("latest proof: %w", err)
	}
	return proof, nil
}

func (s *PostgresStore) CountValid(ctx context.Context, docID id.DocumentID) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM verification_proofs
		WHERE document_id = $1 AND is_valid
	`
	var count int
	if err := tx.Resolve(ctx, s.db).QueryRowContext(ctx, query, uint64(docID)).Scan(&count); err != nil {
		return 0, fmt.Errorf("count valid proofs: %w", err)
	}
	return count, nil
}

type proofRow interface {
	Scan(dest ...any) error
}

func scanProof(row proofRow) (*models.VerificationProof, error) {
	var proof models.VerificationProof
	var verifier string
	if err := row.Scan(
		&proof.DocumentID,
		&proof.ProofHash,
		&proof.Timestamp,
		&verifier,
		&proof.IsValid,
		&proof.Payload,
	); err != nil {
		return nil, err
	}
	proof.Verifier = id.Principal(verifier)
	return &proof, nil
}
