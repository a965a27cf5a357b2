package grants

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"custodia/internal/identity/models"
	id "custodia/pkg/domain"
	"custodia/pkg/platform/sentinel"
)

type GrantStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func TestGrantStoreSuite(t *testing.T) {
	suite.Run(t, new(GrantStoreSuite))
}

func (s *GrantStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func (s *GrantStoreSuite) newGrant(doc id.DocumentID, grantee id.Principal) *models.AccessGrant {
	return &models.AccessGrant{
		DocumentID: doc,
		Grantee:    grantee,
		Grantor:    "owner-1",
		CanRead:    true,
		GrantedAt:  time.Now(),
		Active:     true,
	}
}

func (s *GrantStoreSuite) TestUpsertAndFind() {
	s.Run("stores and retrieves a grant", func() {
		g := s.newGrant(1, "alice")
		s.Require().NoError(s.store.Upsert(s.ctx, g))

		found, err := s.store.Find(s.ctx, 1, "alice")
		s.Require().NoError(err)
		s.True(found.CanRead)
		s.True(found.Active)
	})

	s.Run("returns ErrNotFound for unknown pair", func() {
		_, err := s.store.Find(s.ctx, 1, "nobody")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("overwrite does not duplicate the index entry", func() {
		g := s.newGrant(2, "bob")
		s.Require().NoError(s.store.Upsert(s.ctx, g))
		g2 := s.newGrant(2, "bob")
		g2.CanVerify = true
		s.Require().NoError(s.store.Upsert(s.ctx, g2))

		grantees, err := s.store.ListGrantees(s.ctx, 2)
		s.Require().NoError(err)
		s.Len(grantees, 1)
	})
}

func (s *GrantStoreSuite) TestRevoke() {
	s.Run("marks inactive and removes from index", func() {
		s.Require().NoError(s.store.Upsert(s.ctx, s.newGrant(3, "alice")))
		s.Require().NoError(s.store.Upsert(s.ctx, s.newGrant(3, "bob")))

		s.Require().NoError(s.store.Revoke(s.ctx, 3, "alice"))

		found, err := s.store.Find(s.ctx, 3, "alice")
		s.Require().NoError(err)
		s.False(found.Active)

		grantees, err := s.store.ListGrantees(s.ctx, 3)
		s.Require().NoError(err)
		s.ElementsMatch([]id.Principal{"bob"}, grantees)
	})

	s.Run("fails for missing grant", func() {
		s.Require().ErrorIs(s.store.Revoke(s.ctx, 4, "nobody"), sentinel.ErrNotFound)
	})

	s.Run("fails for already revoked grant", func() {
		s.Require().NoError(s.store.Upsert(s.ctx, s.newGrant(5, "carol")))
		s.Require().NoError(s.store.Revoke(s.ctx, 5, "carol"))
		s.Require().ErrorIs(s.store.Revoke(s.ctx, 5, "carol"), sentinel.ErrInvalidState)
	})

	s.Run("grant can be re-created after revocation", func() {
		s.Require().NoError(s.store.Upsert(s.ctx, s.newGrant(6, "dave")))
		s.Require().NoError(s.store.Revoke(s.ctx, 6, "dave"))
		s.Require().NoError(s.store.Upsert(s.ctx, s.newGrant(6, "dave")))

		found, err := s.store.Find(s.ctx, 6, "dave")
		s.Require().NoError(err)
		s.True(found.Active)

		grantees, err := s.store.ListGrantees(s.ctx, 6)
		s.Require().NoError(err)
		s.Len(grantees, 1)
	})
}
