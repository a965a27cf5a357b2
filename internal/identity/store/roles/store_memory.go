package roles

import (
	"context"
	"sync"

	"custodia/internal/identity/models"
	id "custodia/pkg/domain"
	"custodia/pkg/platform/sentinel"
)

// InMemory keeps role assignments in a process-local map. Assignments are
// upserts: installing a role retires any previous one for the principal.
type InMemory struct {
	mu    sync.RWMutex
	roles map[id.Principal]models.RoleAssignment
}

func NewInMemory() *InMemory {
	return &InMemory{roles: make(map[id.Principal]models.RoleAssignment)}
}

func (s *InMemory) Assign(ctx context.Context, assignment *models.RoleAssignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roles[assignment.Principal] = *assignment
	return nil
}

func (s *InMemory) Find(ctx context.Context, principal id.Principal) (*models.RoleAssignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.roles[principal]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := a
	return &out, nil
}
