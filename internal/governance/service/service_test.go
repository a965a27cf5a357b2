package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"custodia/internal/governance/models"
	"custodia/internal/governance/store/multisigconfig"
	"custodia/internal/governance/store/proposals"
	identitymodels "custodia/internal/identity/models"
	identityservice "custodia/internal/identity/service"
	"custodia/internal/identity/store/grants"
	"custodia/internal/identity/store/roles"
	registrymodels "custodia/internal/registry/models"
	registryservice "custodia/internal/registry/service"
	"custodia/internal/registry/store/documents"
	"custodia/internal/registry/store/proofs"
	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/hashing"
	"custodia/pkg/requestcontext"
)

type GovernanceSuite struct {
	suite.Suite
	svc      *Service
	registry *registryservice.Service
	identity *identityservice.Service
	configs  *multisigconfig.InMemory
	roles    *roles.InMemory
	ctx      context.Context
	now      time.Time
}

func TestGovernanceSuite(t *testing.T) {
	suite.Run(t, new(GovernanceSuite))
}

func (s *GovernanceSuite) SetupTest() {
	docs := documents.NewInMemory()
	proofStore := proofs.NewInMemory()
	s.roles = roles.NewInMemory()
	s.identity = identityservice.New(s.roles, grants.NewInMemory(), docs)
	s.registry = registryservice.New(docs, proofStore, s.identity)
	s.configs = multisigconfig.NewInMemory()
	s.svc = New(proposals.NewInMemory(), s.configs, s.registry, s.identity)

	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)

	s.seedRole("admin-1", id.RoleAdmin)
	s.seedRole("verifier-1", id.RoleVerifier)
	s.seedRole("verifier-2", id.RoleVerifier)
	s.seedRole("owner-1", id.RoleUser)
}

func (s *GovernanceSuite) seedRole(p id.Principal, role id.Role) {
	s.Require().NoError(s.roles.Assign(s.ctx, &identitymodels.RoleAssignment{
		Principal: p, Role: role, AssignedAt: s.now,
	}))
}

func (s *GovernanceSuite) registerDocument(hash string) *registrymodels.Document {
	doc, err := s.registry.RegisterDocument(s.ctx, "owner-1", registryservice.RegisterRequest{
		ContentPointer: "s3://bucket/" + hash,
		ContentHash:    hash,
		DocumentType:   "legal",
	})
	s.Require().NoError(err)
	return doc
}

func (s *GovernanceSuite) TestCreateProposal() {
	doc := s.registerDocument("hash-create")

	s.Run("verifier creates a verification proposal", func() {
		proposal, err := s.svc.CreateProposal(s.ctx, "verifier-1", models.OpVerification, doc.ID,
			[]id.Principal{"owner-1", "verifier-1", "verifier-2"},
			&models.VerificationPayload{ProofHash: "proof-1"}, "quarterly review")
		s.Require().NoError(err)
		s.Equal(id.ProposalID(1), proposal.ID)
		s.Equal(models.ProposalPending, proposal.State)
		// 3 signers at the default 67 percent threshold need all 3.
		s.Equal(3, proposal.RequiredApprovals)
		s.Equal(s.now.Add(7*24*time.Hour), proposal.ExpiresAt)

		encoded, err := models.EncodePayload(proposal.Payload)
		s.Require().NoError(err)
		s.Equal(hashing.PayloadDigest(encoded), proposal.PayloadDigest)
	})

	s.Run("plain user cannot propose", func() {
		_, err := s.svc.CreateProposal(s.ctx, "owner-1", models.OpArchive, doc.ID,
			[]id.Principal{"owner-1", "verifier-1"}, &models.ArchivePayload{}, "")
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("emergency operations are refused", func() {
		_, err := s.svc.CreateProposal(s.ctx, "verifier-1", models.OpEmergency, 0,
			[]id.Principal{"verifier-1", "verifier-2"}, nil, "")
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	s.Run("payload must match the operation", func() {
		_, err := s.svc.CreateProposal(s.ctx, "verifier-1", models.OpArchive, doc.ID,
			[]id.Principal{"owner-1", "verifier-1"}, &models.VerificationPayload{ProofHash: "p"}, "")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("signer set bounds", func() {
		_, err := s.svc.CreateProposal(s.ctx, "verifier-1", models.OpArchive, doc.ID,
			[]id.Principal{"owner-1"}, &models.ArchivePayload{}, "")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))

		eleven := make([]id.Principal, 11)
		for i := range eleven {
			eleven[i] = id.Principal(string(rune('a' + i)))
		}
		_, err = s.svc.CreateProposal(s.ctx, "verifier-1", models.OpArchive, doc.ID, eleven, &models.ArchivePayload{}, "")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))

		_, err = s.svc.CreateProposal(s.ctx, "verifier-1", models.OpArchive, doc.ID,
			[]id.Principal{"owner-1", "owner-1"}, &models.ArchivePayload{}, "")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("document-scoped operations need an existing document", func() {
		_, err := s.svc.CreateProposal(s.ctx, "verifier-1", models.OpArchive, 0,
			[]id.Principal{"owner-1", "verifier-1"}, &models.ArchivePayload{}, "")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))

		_, err = s.svc.CreateProposal(s.ctx, "verifier-1", models.OpArchive, 999,
			[]id.Principal{"owner-1", "verifier-1"}, &models.ArchivePayload{}, "")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("default signer set needs a distinct owner", func() {
		s.seedRole("owner-1", id.RoleVerifier)
		_, err := s.svc.CreateVerificationProposal(s.ctx, "owner-1", doc.ID, "proof-x", "", "")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func (s *GovernanceSuite) TestApprovalWorkflow() {
	doc := s.registerDocument("hash-approve")

	// Two signers at 67 percent: both approvals are required.
	proposal, err := s.svc.CreateVerificationProposal(s.ctx, "verifier-1", doc.ID, "proof-collective", "{}", "audit")
	s.Require().NoError(err)
	s.Equal(2, proposal.RequiredApprovals)
	s.Equal([]id.Principal{"owner-1", "verifier-1"}, proposal.RequiredSigners)

	s.Run("first approval stays pending", func() {
		updated, err := s.svc.ApproveProposal(s.ctx, "owner-1", proposal.ID)
		s.Require().NoError(err)
		s.Equal(models.ProposalPending, updated.State)
		s.Equal(1, updated.CurrentApprovals)

		approved, err := s.svc.HasApproved(s.ctx, proposal.ID, "owner-1")
		s.Require().NoError(err)
		s.True(approved)
	})

	s.Run("double approval conflicts and changes nothing", func() {
		_, err := s.svc.ApproveProposal(s.ctx, "owner-1", proposal.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))

		current, err := s.svc.GetProposal(s.ctx, proposal.ID)
		s.Require().NoError(err)
		s.Equal(1, current.CurrentApprovals)
	})

	s.Run("non-signer cannot approve", func() {
		_, err := s.svc.ApproveProposal(s.ctx, "verifier-2", proposal.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("threshold approval executes the operation", func() {
		updated, err := s.svc.ApproveProposal(s.ctx, "verifier-1", proposal.ID)
		s.Require().NoError(err)
		s.Equal(models.ProposalExecuted, updated.State)

		verified, err := s.registry.GetDocument(s.ctx, doc.ID)
		s.Require().NoError(err)
		s.Equal(registrymodels.LifecycleVerified, verified.Lifecycle)
		s.True(verified.IsVerified)
		s.True(verified.MultiSigVerified)
	})

	s.Run("executed proposals accept no further approvals", func() {
		_, err := s.svc.ApproveProposal(s.ctx, "owner-1", proposal.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func (s *GovernanceSuite) TestProposalExpiry() {
	doc := s.registerDocument("hash-expiry")

	proposal, err := s.svc.CreateVerificationProposal(s.ctx, "verifier-1", doc.ID, "proof-late", "", "")
	s.Require().NoError(err)

	s.Run("approval after the deadline fails with a temporal error", func() {
		late := requestcontext.WithTime(s.ctx, s.now.Add(8*24*time.Hour))
		_, err := s.svc.ApproveProposal(late, "owner-1", proposal.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeTimeout))
	})

	s.Run("housekeeping expires eligible proposals only", func() {
		fresh, err := s.svc.CreateVerificationProposal(s.ctx, "verifier-2", doc.ID, "proof-fresh", "", "")
		s.Require().NoError(err)

		// Unknown ids are skipped; the fresh proposal is not in the list.
		late := requestcontext.WithTime(s.ctx, s.now.Add(8*24*time.Hour))
		count, err := s.svc.ExpireProposals(late, []id.ProposalID{proposal.ID, 999})
		s.Require().NoError(err)
		s.Equal(1, count)

		expired, err := s.svc.GetProposal(s.ctx, proposal.ID)
		s.Require().NoError(err)
		s.Equal(models.ProposalExpired, expired.State)

		stillPending, err := s.svc.GetProposal(s.ctx, fresh.ID)
		s.Require().NoError(err)
		s.Equal(models.ProposalPending, stillPending.State)
	})
}

func (s *GovernanceSuite) TestRejectAndCancel() {
	doc := s.registerDocument("hash-reject")

	s.Run("a signer rejects despite an existing approval", func() {
		proposal, err := s.svc.CreateVerificationProposal(s.ctx, "verifier-1", doc.ID, "proof-r", "", "")
		s.Require().NoError(err)
		_, err = s.svc.ApproveProposal(s.ctx, "owner-1", proposal.ID)
		s.Require().NoError(err)

		s.Require().NoError(s.svc.RejectProposal(s.ctx, "verifier-1", proposal.ID, "hash mismatch"))

		rejected, err := s.svc.GetProposal(s.ctx, proposal.ID)
		s.Require().NoError(err)
		s.Equal(models.ProposalRejected, rejected.State)
		s.Equal("hash mismatch", rejected.Reason)

		_, err = s.svc.ApproveProposal(s.ctx, "verifier-1", proposal.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("an admin outside the signer set rejects", func() {
		proposal, err := s.svc.CreateVerificationProposal(s.ctx, "verifier-1", doc.ID, "proof-r2", "", "")
		s.Require().NoError(err)
		s.Require().NoError(s.svc.RejectProposal(s.ctx, "admin-1", proposal.ID, "policy"))
	})

	s.Run("a stranger cannot reject", func() {
		proposal, err := s.svc.CreateVerificationProposal(s.ctx, "verifier-1", doc.ID, "proof-r3", "", "")
		s.Require().NoError(err)
		err = s.svc.RejectProposal(s.ctx, "verifier-2", proposal.ID, "nope")
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("only the proposer or an admin cancels, and only while pending", func() {
		proposal, err := s.svc.CreateVerificationProposal(s.ctx, "verifier-1", doc.ID, "proof-c", "", "")
		s.Require().NoError(err)

		err = s.svc.CancelProposal(s.ctx, "owner-1", proposal.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

		s.Require().NoError(s.svc.CancelProposal(s.ctx, "verifier-1", proposal.ID))

		err = s.svc.CancelProposal(s.ctx, "verifier-1", proposal.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func (s *GovernanceSuite) TestOperationExecution() {
	s.Run("ownership transfer moves the document and stamps it", func() {
		doc := s.registerDocument("hash-op-transfer")
		proposal, err := s.svc.CreateOwnershipTransferProposal(s.ctx, "verifier-1", doc.ID, "owner-2", "handover")
		s.Require().NoError(err)

		_, err = s.svc.ApproveProposal(s.ctx, "owner-1", proposal.ID)
		s.Require().NoError(err)
		_, err = s.svc.ApproveProposal(s.ctx, "verifier-1", proposal.ID)
		s.Require().NoError(err)

		moved, err := s.registry.GetDocument(s.ctx, doc.ID)
		s.Require().NoError(err)
		s.Equal(id.Principal("owner-2"), moved.Owner)
		s.True(moved.MultiSigVerified)
	})

	s.Run("archive proposal archives", func() {
		doc := s.registerDocument("hash-op-archive")
		proposal, err := s.svc.CreateArchiveProposal(s.ctx, "verifier-1", doc.ID, "retention over")
		s.Require().NoError(err)

		_, err = s.svc.ApproveProposal(s.ctx, "owner-1", proposal.ID)
		s.Require().NoError(err)
		_, err = s.svc.ApproveProposal(s.ctx, "verifier-1", proposal.ID)
		s.Require().NoError(err)

		archived, err := s.registry.GetDocument(s.ctx, doc.ID)
		s.Require().NoError(err)
		s.Equal(registrymodels.LifecycleArchived, archived.Lifecycle)
	})

	s.Run("access grant proposal issues the grant without the stamp", func() {
		doc := s.registerDocument("hash-op-grant")
		proposal, err := s.svc.CreateProposal(s.ctx, "verifier-1", models.OpAccessGrant, doc.ID,
			[]id.Principal{"owner-1", "verifier-1"},
			&models.AccessGrantPayload{Grantee: "reader-1", CanRead: true}, "")
		s.Require().NoError(err)

		_, err = s.svc.ApproveProposal(s.ctx, "owner-1", proposal.ID)
		s.Require().NoError(err)
		_, err = s.svc.ApproveProposal(s.ctx, "verifier-1", proposal.ID)
		s.Require().NoError(err)

		s.True(s.identity.HasReadAccess(s.ctx, "reader-1", doc.ID))

		granted, err := s.registry.GetDocument(s.ctx, doc.ID)
		s.Require().NoError(err)
		s.False(granted.MultiSigVerified)
	})

	s.Run("config update proposal installs a type override", func() {
		override := models.MultiSigConfig{
			MinSigners: 2, MaxSigners: 4, ApprovalThresholdPercent: 100,
			ProposalExpiry: 48 * time.Hour,
		}
		proposal, err := s.svc.CreateProposal(s.ctx, "verifier-1", models.OpConfigUpdate, 0,
			[]id.Principal{"verifier-1", "verifier-2"},
			&models.ConfigUpdatePayload{Scope: models.ScopeType, DocumentType: "legal", Config: override}, "")
		s.Require().NoError(err)

		_, err = s.svc.ApproveProposal(s.ctx, "verifier-1", proposal.ID)
		s.Require().NoError(err)
		_, err = s.svc.ApproveProposal(s.ctx, "verifier-2", proposal.ID)
		s.Require().NoError(err)

		resolved, err := s.svc.ResolveConfig(s.ctx, 0, "legal")
		s.Require().NoError(err)
		s.Equal(100, resolved.ApprovalThresholdPercent)
		s.Equal(48*time.Hour, resolved.ProposalExpiry)
	})
}

func (s *GovernanceSuite) TestConfigResolution() {
	doc := s.registerDocument("hash-config")

	typeCfg := models.DefaultMultiSigConfig()
	typeCfg.ApprovalThresholdPercent = 51
	s.Require().NoError(s.configs.SetTypeConfig(s.ctx, "legal", typeCfg))

	s.Run("type override applies", func() {
		// 4 signers at 51 percent need 3 approvals.
		proposal, err := s.svc.CreateProposal(s.ctx, "verifier-1", models.OpVerification, doc.ID,
			[]id.Principal{"owner-1", "verifier-1", "verifier-2", "admin-1"},
			&models.VerificationPayload{ProofHash: "p"}, "")
		s.Require().NoError(err)
		s.Equal(3, proposal.RequiredApprovals)
	})

	s.Run("document override beats the type override", func() {
		docCfg := models.DefaultMultiSigConfig()
		docCfg.RequiresUnanimous = true
		s.Require().NoError(s.configs.SetDocumentConfig(s.ctx, doc.ID, docCfg))

		proposal, err := s.svc.CreateProposal(s.ctx, "verifier-1", models.OpVerification, doc.ID,
			[]id.Principal{"owner-1", "verifier-1", "verifier-2", "admin-1"},
			&models.VerificationPayload{ProofHash: "p2"}, "")
		s.Require().NoError(err)
		s.Equal(4, proposal.RequiredApprovals)
	})

	s.Run("an unset document override falls through", func() {
		other := s.registerDocument("hash-config-unset")
		s.Require().NoError(s.configs.SetDocumentConfig(s.ctx, other.ID, models.MultiSigConfig{}))

		proposal, err := s.svc.CreateProposal(s.ctx, "verifier-1", models.OpVerification, other.ID,
			[]id.Principal{"owner-1", "verifier-1", "verifier-2", "admin-1"},
			&models.VerificationPayload{ProofHash: "p3"}, "")
		s.Require().NoError(err)
		// The type override at 51 percent applies, not the default 67.
		s.Equal(3, proposal.RequiredApprovals)
	})
}

func (s *GovernanceSuite) TestUpdateDefaultConfig() {
	s.Run("admin only", func() {
		err := s.svc.UpdateDefaultConfig(s.ctx, "verifier-1", models.DefaultMultiSigConfig())
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("rejects malformed configs", func() {
		bad := models.DefaultMultiSigConfig()
		bad.ApprovalThresholdPercent = 140
		err := s.svc.UpdateDefaultConfig(s.ctx, "admin-1", bad)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("a single-signer minimum is rejected", func() {
		bad := models.DefaultMultiSigConfig()
		bad.MinSigners = 1
		err := s.svc.UpdateDefaultConfig(s.ctx, "admin-1", bad)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("admin replaces the default", func() {
		cfg := models.DefaultMultiSigConfig()
		cfg.RequiresUnanimous = true
		s.Require().NoError(s.svc.UpdateDefaultConfig(s.ctx, "admin-1", cfg))

		resolved, err := s.svc.ResolveConfig(s.ctx, 0, "financial")
		s.Require().NoError(err)
		s.True(resolved.RequiresUnanimous)
	})
}
