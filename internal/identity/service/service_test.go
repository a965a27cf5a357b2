package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"custodia/internal/identity/models"
	"custodia/internal/identity/store/grants"
	"custodia/internal/identity/store/roles"
	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/requestcontext"
)

type ownerDirectory map[id.DocumentID]id.Principal

func (d ownerDirectory) Owner(ctx context.Context, doc id.DocumentID) (id.Principal, error) {
	return d[doc], nil
}

type IdentityServiceSuite struct {
	suite.Suite
	svc    *Service
	roles  *roles.InMemory
	owners ownerDirectory
	ctx    context.Context
}

func TestIdentityServiceSuite(t *testing.T) {
	suite.Run(t, new(IdentityServiceSuite))
}

func (s *IdentityServiceSuite) SetupTest() {
	s.roles = roles.NewInMemory()
	s.owners = ownerDirectory{1: "owner-1", 2: "owner-2"}
	s.svc = New(s.roles, grants.NewInMemory(), s.owners)
	s.ctx = context.Background()

	// Bootstrap an admin directly through the store; AssignRole itself
	// requires an existing admin.
	s.Require().NoError(s.roles.Assign(s.ctx, &models.RoleAssignment{
		Principal: "admin-1", Role: id.RoleAdmin, AssignedAt: time.Now(),
	}))
}

func (s *IdentityServiceSuite) seedRole(p id.Principal, role id.Role) {
	s.Require().NoError(s.svc.AssignRole(s.ctx, "admin-1", p, role))
}

func (s *IdentityServiceSuite) TestAssignRole() {
	s.Run("requires admin", func() {
		err := s.svc.AssignRole(s.ctx, "nobody", "alice", id.RoleVerifier)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("bootstrap-seeded admin can assign on a fresh store", func() {
		fresh := roles.NewInMemory()
		s.Require().NoError(roles.SeedBootstrapAdmin(s.ctx, fresh, "root-admin", time.Now()))
		svc := New(fresh, grants.NewInMemory(), s.owners)

		s.Require().NoError(svc.AssignRole(s.ctx, "root-admin", "alice", id.RoleVerifier))
		assignment, ok := svc.Role(s.ctx, "alice")
		s.Require().True(ok)
		s.Equal(id.RoleVerifier, assignment)
	})

	s.Run("admin assigns and reassigns", func() {
		s.Require().NoError(s.svc.AssignRole(s.ctx, "admin-1", "alice", id.RoleVerifier))
		role, ok := s.svc.Role(s.ctx, "alice")
		s.True(ok)
		s.Equal(id.RoleVerifier, role)

		// Reassignment retires the previous role.
		s.Require().NoError(s.svc.AssignRole(s.ctx, "admin-1", "alice", id.RoleModerator))
		role, _ = s.svc.Role(s.ctx, "alice")
		s.Equal(id.RoleModerator, role)

		// Same-role reassignment is idempotent.
		s.Require().NoError(s.svc.AssignRole(s.ctx, "admin-1", "alice", id.RoleModerator))
	})

	s.Run("rejects unknown role", func() {
		err := s.svc.AssignRole(s.ctx, "admin-1", "bob", id.Role("emperor"))
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func (s *IdentityServiceSuite) TestHasRoleOrHigher() {
	s.seedRole("verifier-1", id.RoleVerifier)
	s.seedRole("auditor-1", id.RoleAuditor)
	s.seedRole("manager-1", id.RoleDocumentManager)
	s.seedRole("user-1", id.RoleUser)

	s.True(s.svc.HasRoleOrHigher(s.ctx, "admin-1", id.RoleVerifier))
	s.True(s.svc.HasRoleOrHigher(s.ctx, "auditor-1", id.RoleVerifier))
	s.True(s.svc.HasRoleOrHigher(s.ctx, "manager-1", id.RoleVerifier))
	s.True(s.svc.HasRoleOrHigher(s.ctx, "verifier-1", id.RoleVerifier))
	s.False(s.svc.HasRoleOrHigher(s.ctx, "user-1", id.RoleVerifier))
	s.False(s.svc.HasRoleOrHigher(s.ctx, "unassigned", id.RoleVerifier))
	s.False(s.svc.HasRoleOrHigher(s.ctx, "unassigned", id.RoleUser))
}

func (s *IdentityServiceSuite) TestGrantDocumentAccess() {
	s.Run("owner grants read access", func() {
		err := s.svc.GrantDocumentAccess(s.ctx, "owner-1", GrantRequest{
			DocumentID: 1, Grantee: "alice", CanRead: true,
		})
		s.Require().NoError(err)
		s.True(s.svc.HasReadAccess(s.ctx, "alice", 1))
		s.False(s.svc.HasVerifyAccess(s.ctx, "alice", 1))
	})

	s.Run("stranger cannot grant", func() {
		err := s.svc.GrantDocumentAccess(s.ctx, "stranger", GrantRequest{
			DocumentID: 1, Grantee: "bob", CanRead: true,
		})
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("document manager can grant on any document", func() {
		s.seedRole("manager-1", id.RoleDocumentManager)
		err := s.svc.GrantDocumentAccess(s.ctx, "manager-1", GrantRequest{
			DocumentID: 2, Grantee: "carol", CanVerify: true,
		})
		s.Require().NoError(err)
		s.True(s.svc.HasVerifyAccess(s.ctx, "carol", 2))
	})

	s.Run("self-grant rejected", func() {
		err := s.svc.GrantDocumentAccess(s.ctx, "owner-1", GrantRequest{
			DocumentID: 1, Grantee: "owner-1", CanRead: true,
		})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("past expiry rejected", func() {
		now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		ctx := requestcontext.WithTime(s.ctx, now)
		err := s.svc.GrantDocumentAccess(ctx, "owner-1", GrantRequest{
			DocumentID: 1, Grantee: "dave", ExpiresAt: now.Add(-time.Minute), CanRead: true,
		})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *IdentityServiceSuite) TestGrantExpiry() {
	granted := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	expires := granted.Add(24 * time.Hour)

	grantCtx := requestcontext.WithTime(s.ctx, granted)
	s.Require().NoError(s.svc.GrantDocumentAccess(grantCtx, "owner-1", GrantRequest{
		DocumentID: 1, Grantee: "alice", ExpiresAt: expires, CanRead: true,
	}))

	before := requestcontext.WithTime(s.ctx, expires.Add(-time.Second))
	s.True(s.svc.HasReadAccess(before, "alice", 1))

	// Boundary is inclusive: still effective exactly at the deadline.
	at := requestcontext.WithTime(s.ctx, expires)
	s.True(s.svc.HasReadAccess(at, "alice", 1))

	after := requestcontext.WithTime(s.ctx, expires.Add(time.Nanosecond))
	s.False(s.svc.HasReadAccess(after, "alice", 1))
}

func (s *IdentityServiceSuite) TestRevokeDocumentAccess() {
	s.Require().NoError(s.svc.GrantDocumentAccess(s.ctx, "owner-1", GrantRequest{
		DocumentID: 1, Grantee: "alice", CanRead: true,
	}))

	s.Run("stranger cannot revoke", func() {
		err := s.svc.RevokeDocumentAccess(s.ctx, "stranger", 1, "alice")
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("grantor revokes", func() {
		s.Require().NoError(s.svc.RevokeDocumentAccess(s.ctx, "owner-1", 1, "alice"))
		s.False(s.svc.HasReadAccess(s.ctx, "alice", 1))
	})

	s.Run("double revoke conflicts", func() {
		err := s.svc.RevokeDocumentAccess(s.ctx, "owner-1", 1, "alice")
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("missing grant not found", func() {
		err := s.svc.RevokeDocumentAccess(s.ctx, "owner-1", 1, "ghost")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *IdentityServiceSuite) TestAccessQueries() {
	s.seedRole("verifier-1", id.RoleVerifier)

	s.Run("owner always has every capability", func() {
		s.True(s.svc.HasReadAccess(s.ctx, "owner-1", 1))
		s.True(s.svc.HasVerifyAccess(s.ctx, "owner-1", 1))
		s.True(s.svc.HasTransferAccess(s.ctx, "owner-1", 1))
	})

	s.Run("verifier role implies verify access without a grant", func() {
		s.True(s.svc.HasVerifyAccess(s.ctx, "verifier-1", 1))
		s.False(s.svc.HasReadAccess(s.ctx, "verifier-1", 1))
	})

	s.Run("queries on unknown documents return false", func() {
		s.False(s.svc.HasReadAccess(s.ctx, "anyone", 999))
	})
}
