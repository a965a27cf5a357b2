package documents

import (
	"context"
	"sync"

	"custodia/internal/registry/models"
	id "custodia/pkg/domain"
	"custodia/pkg/platform/sentinel"
)

// InMemory keeps documents with hash and owner indexes. IDs are assigned
// sequentially and never reused. Owner index removal is swap-with-last-and-
// pop, so iteration order is unspecified.
type InMemory struct {
	mu      sync.RWMutex
	nextID  id.DocumentID
	byID    map[id.DocumentID]models.Document
	byHash  map[string]id.DocumentID
	byOwner map[id.Principal][]id.DocumentID
}

func NewInMemory() *InMemory {
	return &InMemory{
		nextID:  1,
		byID:    make(map[id.DocumentID]models.Document),
		byHash:  make(map[string]id.DocumentID),
		byOwner: make(map[id.Principal][]id.DocumentID),
	}
}

// Create assigns the next id and indexes the document. Fails with
// ErrAlreadyUsed when the content hash is already registered.
func (s *InMemory) Create(ctx context.Context, doc *models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byHash[doc.ContentHash]; exists {
		return sentinel.ErrAlreadyUsed
	}

	doc.ID = s.nextID
	s.nextID++

	s.byID[doc.ID] = *doc
	s.byHash[doc.ContentHash] = doc.ID
	s.byOwner[doc.Owner] = append(s.byOwner[doc.Owner], doc.ID)
	return nil
}

func (s *InMemory) FindByID(ctx context.Context, docID id.DocumentID) (*models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.byID[docID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := doc
	return &out, nil
}

func (s *InMemory) FindByHash(ctx context.Context, hash string) (*models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docID, ok := s.byHash[hash]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := s.byID[docID]
	return &out, nil
}

// ListByOwner returns the owner's documents in unspecified order.
func (s *InMemory) ListByOwner(ctx context.Context, owner id.Principal) ([]models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byOwner[owner]
	out := make([]models.Document, 0, len(ids))
	for _, docID := range ids {
		out = append(out, s.byID[docID])
	}
	return out, nil
}

// Owner satisfies the identity service's document directory.
func (s *InMemory) Owner(ctx context.Context, docID id.DocumentID) (id.Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.byID[docID]
	if !ok {
		return "", sentinel.ErrNotFound
	}
	return doc.Owner, nil
}

// Execute atomically validates and mutates a document while holding the
// store lock. The mutation runs on a copy; an error from either callback
// leaves the stored document untouched. Owner index entries move when a
// mutation changes ownership.
func (s *InMemory) Execute(ctx context.Context, docID id.DocumentID, validate func(*models.Document) error, mutate func(*models.Document) error) (*models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.byID[docID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(&doc); err != nil {
		return nil, err
	}

	prevOwner := doc.Owner
	if err := mutate(&doc); err != nil {
		return nil, err
	}
	s.byID[docID] = doc

	if doc.Owner != prevOwner {
		s.moveOwnerIndex(docID, prevOwner, doc.Owner)
	}

	out := doc
	return &out, nil
}

func (s *InMemory) moveOwnerIndex(docID id.DocumentID, from, to id.Principal) {
	list := s.byOwner[from]
	for i, d := range list {
		if d == docID {
			list[i] = list[len(list)-1]
			s.byOwner[from] = list[:len(list)-1]
			break
		}
	}
	s.byOwner[to] = append(s.byOwner[to], docID)
}
