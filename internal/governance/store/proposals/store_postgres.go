package proposals

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"custodia/internal/governance/models"
	id "custodia/pkg/domain"
	"custodia/pkg/platform/sentinel"
	"custodia/pkg/platform/tx"
)

// PostgresStore persists proposals in PostgreSQL. The operation payload is
// stored as the tagged JSON envelope; signer and approver sets use text
// arrays.
//
// Schema:
//
//	CREATE TABLE proposals (
//	    id BIGSERIAL PRIMARY KEY,
//	    operation_type TEXT NOT NULL,
//	    document_id BIGINT NOT NULL DEFAULT 0,
//	    proposer TEXT NOT NULL,
//	    required_signers TEXT[] NOT NULL,
//	    approvers TEXT[] NOT NULL DEFAULT '{}',
//	    required_approvals INT NOT NULL,
//	    created_at TIMESTAMPTZ NOT NULL,
//	    expires_at TIMESTAMPTZ NOT NULL,
//	    state TEXT NOT NULL,
//	    payload JSONB NOT NULL,
//	    payload_digest TEXT NOT NULL DEFAULT '',
//	    reason TEXT NOT NULL DEFAULT ''
//	);
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const proposalColumns = `id, operation_type, document_id, proposer, required_signers, approvers,
	required_approvals, created_at, expires_at, state, payload, payload_digest, reason`

func (s *PostgresStore) Create(ctx context.Context, proposal *models.Proposal) error {
	payload, err := models.EncodePayload(proposal.Payload)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO proposals (operation_type, document_id, proposer, required_signers, approvers,
			required_approvals, created_at, expires_at, state, payload, payload_digest, reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`
	err = tx.Resolve(ctx, s.db).QueryRowContext(ctx, query,
		string(proposal.OperationType),
		uint64(proposal.DocumentID),
		proposal.Proposer.String(),
		pq.Array(principalsToStrings(proposal.RequiredSigners)),
		pq.Array(principalsToStrings(proposal.Approvers)),
		proposal.RequiredApprovals,
		proposal.CreatedAt,
		proposal.ExpiresAt,
		string(proposal.State),
		payload,
		proposal.PayloadDigest,
		proposal.Reason,
	).Scan(&proposal.ID)
	if err != nil {
		return fmt.Errorf("create proposal: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, proposalID id.ProposalID) (*models.Proposal, error) {
	query := `SELECT ` + proposalColumns + ` FROM proposals WHERE id = $1`
	proposal, err := scanProposal(tx.Resolve(ctx, s.db).QueryRowContext(ctx, query, uint64(proposalID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find proposal: %w", err)
	}
	return proposal, nil
}

func (s *PostgresStore) ListByProposer(ctx context.Context, proposer id.Principal) ([]models.Proposal, error) {
	query := `SELECT ` + proposalColumns + ` FROM proposals WHERE proposer = $1 ORDER BY id DESC`
	rows, err := tx.Resolve(ctx, s.db).QueryContext(ctx, query, proposer.String())
	if err != nil {
		return nil, fmt.Errorf("list proposals: %w", err)
	}
	defer rows.Close()

	var out []models.Proposal
	for rows.Next() {
		proposal, err := scanProposal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan proposal: %w", err)
		}
		out = append(out, *proposal)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list proposals: %w", err)
	}
	return out, nil
}

// Execute loads the proposal under a row lock, runs validate and mutate, and
// writes the result back in the same transaction. Proposal execution runs
// inside the mutate callback, so a failed dispatch rolls everything back.
func (s *PostgresStore) Execute(ctx context.Context, proposalID id.ProposalID, validate func(*models.Proposal) error, mutate func(*models.Proposal) error) (*models.Proposal, error) {
	txn, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin proposal update: %w", err)
	}
	defer func() {
		_ = txn.Rollback()
	}()

	query := `SELECT ` + proposalColumns + ` FROM proposals WHERE id = $1 FOR UPDATE`
	proposal, err := scanProposal(txn.QueryRowContext(ctx, query, uint64(proposalID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("lock proposal: %w", err)
	}

	if err := validate(proposal); err != nil {
		return nil, err
	}
	if err := mutate(proposal); err != nil {
		return nil, err
	}

	update := `
		UPDATE proposals
		SET approvers = $2, state = $3, reason = $4
		WHERE id = $1
	`
	if _, err := txn.ExecContext(ctx, update,
		uint64(proposal.ID),
		pq.Array(principalsToStrings(proposal.Approvers)),
		string(proposal.State),
		proposal.Reason,
	); err != nil {
		return nil, fmt.Errorf("update proposal: %w", err)
	}
	if err := txn.Commit(); err != nil {
		return nil, fmt.Errorf("commit proposal update: %w", err)
	}
	return proposal, nil
}

type proposalRow interface {
	Scan(dest ...any) error
}

func scanProposal(row proposalRow) (*models.Proposal, error) {
	var p models.Proposal
	var opType, proposer, state string
	var signers, approvers pq.StringArray
	var payload []byte
	if err := row.Scan(
		&p.ID,
		&opType,
		&p.DocumentID,
		&proposer,
		&signers,
		&approvers,
		&p.RequiredApprovals,
		&p.CreatedAt,
		&p.ExpiresAt,
		&state,
		&payload,
		&p.PayloadDigest,
		&p.Reason,
	); err != nil {
		return nil, err
	}
	p.OperationType = models.OperationType(opType)
	p.Proposer = id.Principal(proposer)
	p.State = models.ProposalState(state)
	p.RequiredSigners = stringsToPrincipals(signers)
	p.Approvers = stringsToPrincipals(approvers)
	p.Approvals = make(map[id.Principal]bool, len(p.Approvers))
	for _, a := range p.Approvers {
		p.Approvals[a] = true
	}
	p.CurrentApprovals = len(p.Approvers)

	decoded, err := models.DecodePayload(payload)
	if err != nil {
		return nil, err
	}
	p.Payload = decoded
	return &p, nil
}

func principalsToStrings(in []id.Principal) []string {
	out := make([]string, len(in))
	for i, p := range in {
		out[i] = p.String()
	}
	return out
}

func stringsToPrincipals(in []string) []id.Principal {
	out := make([]id.Principal, len(in))
	for i, s := range in {
		out[i] = id.Principal(s)
	}
	return out
}
