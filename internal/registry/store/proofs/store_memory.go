package proofs

import (
	"context"
	"sync"

	"custodia/internal/registry/models"
	id "custodia/pkg/domain"
	"custodia/pkg/platform/sentinel"
)

// InMemory is an append-only proof log keyed by document. Proofs are never
// updated or removed once appended.
type InMemory struct {
	mu         sync.RWMutex
	byDocument map[id.DocumentID][]models.VerificationProof
}

func NewInMemory() *InMemory {
	return &InMemory{
		byDocument: make(map[id.DocumentID][]models.VerificationProof),
	}
}

func (s *InMemory) Append(ctx context.Context, proof *models.VerificationProof) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byDocument[proof.DocumentID] = append(s.byDocument[proof.DocumentID], *proof)
	return nil
}

// ListByDocument returns the document's proofs in submission order.
func (s *InMemory) ListByDocument(ctx context.Context, docID id.DocumentID) ([]models.VerificationProof, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored := s.byDocument[docID]
	out := make([]models.VerificationProof, len(stored))
	copy(out, stored)
	return out, nil
}

// Latest returns the most recently appended proof for the document.
func (s *InMemory) Latest(ctx context.Context, docID id.DocumentID) (*models.VerificationProof, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored := s.byDocument[docID]
	if len(stored) == 0 {
		return nil, sentinel.ErrNotFound
	}
	out := stored[len(stored)-1]
	return &out, nil
}

// CountValid returns the number of valid proofs appended for the document.
// Every submission counts, including repeats from the same verifier.
func (s *InMemory) CountValid(ctx context.Context, docID id.DocumentID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, p := range s.byDocument[docID] {
		if p.IsValid {
			count++
		}
	}
	return count, nil
}
