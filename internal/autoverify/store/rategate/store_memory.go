package rategate

import (
	"context"
	"sync"
	"time"

	"custodia/internal/autoverify/models"
	id "custodia/pkg/domain"
)

// Window is the rolling period the per-document trigger counter covers. The
// counter resets implicitly once the most recent trigger is older than this.
const Window = 24 * time.Hour

type entry struct {
	count   int
	last    time.Time
	history []models.Trigger
}

// InMemory tracks per-document trigger counts and history.
type InMemory struct {
	mu      sync.Mutex
	entries map[id.DocumentID]*entry
}

func NewInMemory() *InMemory {
	return &InMemory{entries: make(map[id.DocumentID]*entry)}
}

// Reserve consumes one trigger slot for the document if the rolling window
// allows it, recording the trigger on success.
func (s *InMemory) Reserve(ctx context.Context, docID id.DocumentID, kind models.TriggerKind, now time.Time, maxPerDay int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[docID]
	if !ok {
		e = &entry{}
		s.entries[docID] = e
	}
	if !e.last.IsZero() && now.Sub(e.last) > Window {
		e.count = 0
	}
	if e.count >= maxPerDay {
		return false, nil
	}
	e.count++
	e.last = now
	e.history = append(e.history, models.Trigger{DocumentID: docID, Kind: kind, At: now})
	return true, nil
}

// History returns the document's recorded triggers in order.
func (s *InMemory) History(ctx context.Context, docID id.DocumentID) ([]models.Trigger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[docID]
	if !ok {
		return nil, nil
	}
	out := make([]models.Trigger, len(e.history))
	copy(out, e.history)
	return out, nil
}
