package multisigconfig

import (
	"context"
	"sync"

	"custodia/internal/governance/models"
	id "custodia/pkg/domain"
)

// InMemory keeps multi-signature configs at their three scopes. Resolution
// walks per-document, then per-type, then the default; an entry counts as
// present only when IsSet reports true.
type InMemory struct {
	mu         sync.RWMutex
	byDocument map[id.DocumentID]models.MultiSigConfig
	byType     map[id.DocumentType]models.MultiSigConfig
	fallback   models.MultiSigConfig
}

func NewInMemory() *InMemory {
	return &InMemory{
		byDocument: make(map[id.DocumentID]models.MultiSigConfig),
		byType:     make(map[id.DocumentType]models.MultiSigConfig),
		fallback:   models.DefaultMultiSigConfig(),
	}
}

// Resolve returns the effective config for a document and its type.
func (s *InMemory) Resolve(ctx context.Context, docID id.DocumentID, docType id.DocumentType) (models.MultiSigConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if cfg, ok := s.byDocument[docID]; ok && cfg.IsSet() {
		return cfg, nil
	}
	if cfg, ok := s.byType[docType]; ok && cfg.IsSet() {
		return cfg, nil
	}
	return s.fallback, nil
}

func (s *InMemory) SetDocumentConfig(ctx context.Context, docID id.DocumentID, cfg models.MultiSigConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byDocument[docID] = cfg
	return nil
}

func (s *InMemory) SetTypeConfig(ctx context.Context, docType id.DocumentType, cfg models.MultiSigConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byType[docType] = cfg
	return nil
}

func (s *InMemory) SetDefaultConfig(ctx context.Context, cfg models.MultiSigConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fallback = cfg
	return nil
}
