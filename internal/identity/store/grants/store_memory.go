package grants

import (
	"context"
	"sync"

	"custodia/internal/identity/models"
	id "custodia/pkg/domain"
	"custodia/pkg/platform/sentinel"
)

type grantKey struct {
	doc     id.DocumentID
	grantee id.Principal
}

// InMemory keeps access grants plus a per-document grantee index. Index
// removal is swap-with-last-and-pop, so iteration order over grantees is
// unspecified and must not be relied on.
type InMemory struct {
	mu     sync.RWMutex
	grants map[grantKey]models.AccessGrant
	index  map[id.DocumentID][]id.Principal
}

func NewInMemory() *InMemory {
	return &InMemory{
		grants: make(map[grantKey]models.AccessGrant),
		index:  make(map[id.DocumentID][]id.Principal),
	}
}

// Upsert overwrites any existing grant for the (document, grantee) pair. The
// grantee joins the document index only when no active grant already existed,
// avoiding duplicate index entries.
func (s *InMemory) Upsert(ctx context.Context, grant *models.AccessGrant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := grantKey{doc: grant.DocumentID, grantee: grant.Grantee}
	prev, existed := s.grants[key]
	s.grants[key] = *grant

	if !existed || !prev.Active {
		s.index[grant.DocumentID] = append(s.index[grant.DocumentID], grant.Grantee)
	}
	return nil
}

func (s *InMemory) Find(ctx context.Context, doc id.DocumentID, grantee id.Principal) (*models.AccessGrant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.grants[grantKey{doc: doc, grantee: grantee}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := g
	return &out, nil
}

// Revoke marks the grant inactive and drops the grantee from the document
// index. Fails with ErrNotFound when no grant exists and ErrInvalidState when
// the grant is already inactive.
func (s *InMemory) Revoke(ctx context.Context, doc id.DocumentID, grantee id.Principal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := grantKey{doc: doc, grantee: grantee}
	g, ok := s.grants[key]
	if !ok {
		return sentinel.ErrNotFound
	}
	if !g.Active {
		return sentinel.ErrInvalidState
	}
	g.Active = false
	s.grants[key] = g

	list := s.index[doc]
	for i, p := range list {
		if p == grantee {
			list[i] = list[len(list)-1]
			s.index[doc] = list[:len(list)-1]
			break
		}
	}
	return nil
}

// ListGrantees returns the principals currently indexed for a document, in
// unspecified order.
func (s *InMemory) ListGrantees(ctx context.Context, doc id.DocumentID) ([]id.Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]id.Principal, len(s.index[doc]))
	copy(out, s.index[doc])
	return out, nil
}
