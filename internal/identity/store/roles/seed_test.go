package roles

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "custodia/pkg/domain"
	"custodia/pkg/platform/sentinel"
)

func TestSeedBootstrapAdmin(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	t.Run("seeds a self-attributed admin assignment", func(t *testing.T) {
		store := NewInMemory()
		require.NoError(t, SeedBootstrapAdmin(ctx, store, "root-admin", now))

		found, err := store.Find(ctx, "root-admin")
		require.NoError(t, err)
		assert.Equal(t, id.RoleAdmin, found.Role)
		assert.Equal(t, id.Principal("root-admin"), found.AssignedBy)
		assert.Equal(t, now, found.AssignedAt)
	})

	t.Run("zero principal leaves the store empty", func(t *testing.T) {
		store := NewInMemory()
		require.NoError(t, SeedBootstrapAdmin(ctx, store, "", now))

		_, err := store.Find(ctx, "")
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("reseeding refreshes the assignment", func(t *testing.T) {
		store := NewInMemory()
		require.NoError(t, SeedBootstrapAdmin(ctx, store, "root-admin", now))
		require.NoError(t, SeedBootstrapAdmin(ctx, store, "root-admin", now.Add(time.Hour)))

		found, err := store.Find(ctx, "root-admin")
		require.NoError(t, err)
		assert.Equal(t, now.Add(time.Hour), found.AssignedAt)
	})
}
