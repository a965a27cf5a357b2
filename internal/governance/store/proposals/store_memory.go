package proposals

import (
	"context"
	"sync"

	"custodia/internal/governance/models"
	id "custodia/pkg/domain"
	"custodia/pkg/platform/sentinel"
)

// InMemory keeps proposals with sequentially assigned ids.
type InMemory struct {
	mu     sync.RWMutex
	nextID id.ProposalID
	byID   map[id.ProposalID]*models.Proposal
}

func NewInMemory() *InMemory {
	return &InMemory{
		nextID: 1,
		byID:   make(map[id.ProposalID]*models.Proposal),
	}
}

func (s *InMemory) Create(ctx context.Context, proposal *models.Proposal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	proposal.ID = s.nextID
	s.nextID++
	stored := cloneProposal(proposal)
	s.byID[proposal.ID] = stored
	return nil
}

func (s *InMemory) FindByID(ctx context.Context, proposalID id.ProposalID) (*models.Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored, ok := s.byID[proposalID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneProposal(stored), nil
}

// ListByProposer returns proposals created by a principal, newest first.
func (s *InMemory) ListByProposer(ctx context.Context, proposer id.Principal) ([]models.Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Proposal
	for pid := s.nextID - 1; pid >= 1; pid-- {
		if stored, ok := s.byID[pid]; ok && stored.Proposer == proposer {
			out = append(out, *cloneProposal(stored))
		}
	}
	return out, nil
}

// Execute atomically validates and mutates a proposal while holding the
// store lock. The mutation runs on a copy; an error from either callback
// leaves the stored proposal untouched.
func (s *InMemory) Execute(ctx context.Context, proposalID id.ProposalID, validate func(*models.Proposal) error, mutate func(*models.Proposal) error) (*models.Proposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.byID[proposalID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	working := cloneProposal(stored)
	if err := validate(working); err != nil {
		return nil, err
	}
	if err := mutate(working); err != nil {
		return nil, err
	}
	s.byID[proposalID] = working
	return cloneProposal(working), nil
}

func cloneProposal(p *models.Proposal) *models.Proposal {
	out := *p
	out.RequiredSigners = append([]id.Principal(nil), p.RequiredSigners...)
	out.Approvers = append([]id.Principal(nil), p.Approvers...)
	out.Approvals = make(map[id.Principal]bool, len(p.Approvals))
	for k, v := range p.Approvals {
		out.Approvals[k] = v
	}
	return &out
}
