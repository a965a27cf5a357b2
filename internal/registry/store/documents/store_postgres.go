package documents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"custodia/internal/registry/models"
	id "custodia/pkg/domain"
	"custodia/pkg/platform/sentinel"
	"custodia/pkg/platform/tx"
)

// PostgresStore persists documents in PostgreSQL. IDs come from the table's
// BIGSERIAL sequence; content hash uniqueness is enforced by a unique index.
//
// Schema:
//
//	CREATE TABLE documents (
//	    id BIGSERIAL PRIMARY KEY,
//	    content_pointer TEXT NOT NULL,
//	    content_hash TEXT NOT NULL UNIQUE,
//	    proof_hash TEXT NOT NULL DEFAULT '',
//	    owner TEXT NOT NULL,
//	    created_at TIMESTAMPTZ NOT NULL,
//	    last_verified_at TIMESTAMPTZ,
//	    is_verified BOOLEAN NOT NULL DEFAULT FALSE,
//	    multisig_verified BOOLEAN NOT NULL DEFAULT FALSE,
//	    metadata TEXT NOT NULL DEFAULT '',
//	    size BIGINT NOT NULL,
//	    document_type TEXT NOT NULL,
//	    lifecycle TEXT NOT NULL,
//	    expires_at TIMESTAMPTZ NOT NULL
//	);
//	CREATE INDEX documents_owner_idx ON documents (owner);
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const documentColumns = `id, content_pointer, content_hash, proof_hash, owner, created_at,
	last_verified_at, is_verified, multisig_verified, metadata, size, document_type, lifecycle, expires_at`

func (s *PostgresStore) Create(ctx context.Context, doc *models.Document) error {
	query := `
		INSERT INTO documents (content_pointer, content_hash, proof_hash, owner, created_at,
			is_verified, multisig_verified, metadata, size, document_type, lifecycle, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`
	err := tx.Resolve(ctx, s.db).QueryRowContext(ctx, query,
		doc.ContentPointer,
		doc.ContentHash,
		doc.ProofHash,
		doc.Owner.String(),
		doc.CreatedAt,
		doc.IsVerified,
		doc.MultiSigVerified,
		doc.Metadata,
		doc.Size,
		string(doc.DocumentType),
		string(doc.Lifecycle),
		doc.ExpiresAt,
	).Scan(&doc.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("create document: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, docID id.DocumentID) (*models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`
	doc, err := scanDocument(tx.Resolve(ctx, s.db).QueryRowContext(ctx, query, uint64(docID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find document: %w", err)
	}
	return doc, nil
}

func (s *PostgresStore) FindByHash(ctx context.Context, hash string) (*models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE content_hash = $1`
	doc, err := scanDocument(tx.Resolve(ctx, s.db).QueryRowContext(ctx, query, hash))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find document by hash: %w", err)
	}
	return doc, nil
}

func (s *PostgresStore) ListByOwner(ctx context.Context, owner id.Principal) ([]models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE owner = $1`
	rows, err := tx.Resolve(ctx, s.db).QueryContext(ctx, query, owner.String())
	if err != nil {
		return nil, fmt.Errorf("list documents by owner: %w", err)
	}
	defer rows.Close()

	var out []models.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		out = append(out, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list documents by owner: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Owner(ctx context.Context, docID id.DocumentID) (id.Principal, error) {
	var owner string
	err := tx.Resolve(ctx, s.db).QueryRowContext(ctx, `SELECT owner FROM documents WHERE id = $1`, uint64(docID)).Scan(&owner)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", sentinel.ErrNotFound
		}
		return "", fmt.Errorf("find document owner: %w", err)
	}
	return id.Principal(owner), nil
}

// Execute loads the document under a row lock, runs validate and mutate, and
// writes the result back in the same transaction. An error from either
// callback rolls the transaction back. When the context already carries a
// transaction the update joins it and the caller owns the commit.
func (s *PostgresStore) Execute(ctx context.Context, docID id.DocumentID, validate func(*models.Document) error, mutate func(*models.Document) error) (*models.Document, error) {
	if ambient, ok := tx.From(ctx); ok {
		return s.executeIn(ctx, ambient, docID, validate, mutate)
	}

	txn, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin document update: %w", err)
	}
	defer func() {
		_ = txn.Rollback()
	}()

	doc, err := s.executeIn(ctx, txn, docID, validate, mutate)
	if err != nil {
		return nil, err
	}
	if err := txn.Commit(); err != nil {
		return nil, fmt.Errorf("commit document update: %w", err)
	}
	return doc, nil
}

func (s *PostgresStore) executeIn(ctx context.Context, txn *sql.Tx, docID id.DocumentID, validate func(*models.Document) error, mutate func(*models.Document) error) (*models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1 FOR UPDATE`
	doc, err := scanDocument(txn.QueryRowContext(ctx, query, uint64(docID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("lock document: %w", err)
	}

	if err := validate(doc); err != nil {
		return nil, err
	}
	if err := mutate(doc); err != nil {
		return nil, err
	}

	update := `
		UPDATE documents
		SET proof_hash = $2, owner = $3, last_verified_at = $4, is_verified = $5,
			multisig_verified = $6, lifecycle = $7
		WHERE id = $1
	`
	var lastVerified sql.NullTime
	if !doc.LastVerifiedAt.IsZero() {
		lastVerified = sql.NullTime{Time: doc.LastVerifiedAt, Valid: true}
	}
	if _, err := txn.ExecContext(ctx, update,
		uint64(doc.ID),
		doc.ProofHash,
		doc.Owner.String(),
		lastVerified,
		doc.IsVerified,
		doc.MultiSigVerified,
		string(doc.Lifecycle),
	); err != nil {
		return nil, fmt.Errorf("update document: %w", err)
	}
	return doc, nil
}

type documentRow interface {
	Scan(dest ...any) error
}

func scanDocument(row documentRow) (*models.Document, error) {
	var doc models.Document
	var owner, docType, lifecycle string
	var lastVerified sql.NullTime
	if err := row.Scan(
		&doc.ID,
		&doc.ContentPointer,
		&doc.ContentHash,
		&doc.ProofHash,
		&owner,
		&doc.CreatedAt,
		&lastVerified,
		&doc.IsVerified,
		&doc.MultiSigVerified,
		&doc.Metadata,
		&doc.Size,
		&docType,
		&lifecycle,
		&doc.ExpiresAt,
	); err != nil {
		return nil, err
	}
	doc.Owner = id.Principal(owner)
	doc.DocumentType = id.DocumentType(docType)
	doc.Lifecycle = models.Lifecycle(lifecycle)
	if lastVerified.Valid {
		doc.LastVerifiedAt = lastVerified.Time
	}
	return &doc, nil
}
