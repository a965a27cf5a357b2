package audit_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"custodia/internal/audit"
	"custodia/internal/audit/store/memory"
	id "custodia/pkg/domain"
)

func TestPublisher_SyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := audit.NewPublisher(store)
	defer pub.Close()

	principal := id.Principal("verifier-1")
	err := pub.Emit(context.Background(), audit.Event{
		Principal: principal,
		Action:    string(audit.EventProofSubmitted),
	})
	require.NoError(t, err)

	events, err := pub.List(context.Background(), principal)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, string(audit.EventProofSubmitted), events[0].Action)
	assert.Equal(t, audit.CategoryCompliance, events[0].Category)
	assert.False(t, events[0].Timestamp.IsZero())
}

func TestPublisher_AsyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := audit.NewPublisher(store, audit.WithAsyncBuffer(10))
	defer pub.Close()

	principal := id.Principal("owner-1")
	err := pub.Emit(context.Background(), audit.Event{
		Principal: principal,
		Action:    string(audit.EventDocumentRegistered),
	})
	require.NoError(t, err)

	// Wait for async processing
	time.Sleep(100 * time.Millisecond)

	events, err := pub.List(context.Background(), principal)
	require.NoError(t, err)
	require.Len(t, events, 1)
}

func TestPublisher_AsyncDrainsOnClose(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := audit.NewPublisher(store, audit.WithAsyncBuffer(100))

	principal := id.Principal("owner-2")
	for range 10 {
		err := pub.Emit(context.Background(), audit.Event{
			Principal: principal,
			Action:    string(audit.EventProposalApproved),
		})
		require.NoError(t, err)
	}

	pub.Close()

	events, err := store.ListByPrincipal(context.Background(), principal)
	require.NoError(t, err)
	assert.Len(t, events, 10, "all events should be drained on close")
}

func TestPublisher_BufferFull_DropsEvent(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := audit.NewPublisher(store, audit.WithAsyncBuffer(1))
	defer pub.Close()

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = pub.Emit(context.Background(), audit.Event{
				Principal: "owner-3",
				Action:    string(audit.EventAutoVerification),
			})
		}()
	}
	wg.Wait()
	// Some events may be dropped; the publisher must stay usable.
}

type failingSink struct{ calls int }

func (s *failingSink) Publish(ctx context.Context, event audit.Event) error {
	s.calls++
	return assert.AnError
}

func TestPublisher_SinkFailureDoesNotPropagate(t *testing.T) {
	store := memory.NewInMemoryStore()
	sink := &failingSink{}
	pub := audit.NewPublisher(store, audit.WithSink(sink))
	defer pub.Close()

	err := pub.Emit(context.Background(), audit.Event{
		Principal: "admin-1",
		Action:    string(audit.EventRoleAssigned),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, sink.calls)

	events, err := store.ListByPrincipal(context.Background(), "admin-1")
	require.NoError(t, err)
	assert.Len(t, events, 1, "event persisted even when the sink fails")
}
