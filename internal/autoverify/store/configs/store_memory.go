package configs

import (
	"context"
	"sync"

	"custodia/internal/autoverify/models"
	id "custodia/pkg/domain"
)

// InMemory holds per-type auto-verification configs with a default fallback.
type InMemory struct {
	mu       sync.RWMutex
	byType   map[id.DocumentType]models.Config
	fallback models.Config
}

func NewInMemory() *InMemory {
	return &InMemory{
		byType:   make(map[id.DocumentType]models.Config),
		fallback: models.DefaultConfig(),
	}
}

// Resolve returns the config for a document type, falling back to the
// default entry when the type has none.
func (s *InMemory) Resolve(ctx context.Context, docType id.DocumentType) (models.Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if cfg, ok := s.byType[docType]; ok {
		return cfg, nil
	}
	return s.fallback, nil
}

// Upsert installs or replaces a type's config. Writing the default type
// replaces the fallback itself.
func (s *InMemory) Upsert(ctx context.Context, cfg models.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cfg.DocumentType == id.DocumentTypeDefault {
		s.fallback = cfg
		return nil
	}
	s.byType[cfg.DocumentType] = cfg
	return nil
}
