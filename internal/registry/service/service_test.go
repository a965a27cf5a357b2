package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"custodia/internal/registry/models"
	"custodia/internal/registry/store/documents"
	"custodia/internal/registry/store/proofs"
	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/requestcontext"
)

// stubAccess answers authorization from a fixed role map plus ownership
// lookups against the document store.
type stubAccess struct {
	roles map[id.Principal]id.Role
	docs  *documents.InMemory
}

func (a *stubAccess) HasRoleOrHigher(ctx context.Context, p id.Principal, required id.Role) bool {
	role, ok := a.roles[p]
	return ok && role.Meets(required)
}

func (a *stubAccess) isOwner(ctx context.Context, p id.Principal, doc id.DocumentID) bool {
	owner, err := a.docs.Owner(ctx, doc)
	return err == nil && owner == p
}

func (a *stubAccess) HasVerifyAccess(ctx context.Context, p id.Principal, doc id.DocumentID) bool {
	return a.isOwner(ctx, p, doc) || a.HasRoleOrHigher(ctx, p, id.RoleVerifier)
}

func (a *stubAccess) HasTransferAccess(ctx context.Context, p id.Principal, doc id.DocumentID) bool {
	return a.isOwner(ctx, p, doc)
}

// recordingRunner counts transactional units and whether the last one was
// abandoned by an error.
type recordingRunner struct {
	calls      int
	rolledBack bool
}

func (r *recordingRunner) RunInTx(ctx context.Context, fn func(context.Context) error) error {
	r.calls++
	if err := fn(ctx); err != nil {
		r.rolledBack = true
		return err
	}
	return nil
}

// failingProofs refuses appends while answering reads from the embedded log.
type failingProofs struct {
	*proofs.InMemory
}

func (f *failingProofs) Append(ctx context.Context, proof *models.VerificationProof) error {
	return errors.New("proof log unavailable")
}

type recordingVerifier struct {
	checked []id.DocumentID
}

func (v *recordingVerifier) CheckDocument(ctx context.Context, docID id.DocumentID) error {
	v.checked = append(v.checked, docID)
	return nil
}

type RegistryServiceSuite struct {
	suite.Suite
	svc      *Service
	docs     *documents.InMemory
	verifier *recordingVerifier
	ctx      context.Context
}

func TestRegistryServiceSuite(t *testing.T) {
	suite.Run(t, new(RegistryServiceSuite))
}

func (s *RegistryServiceSuite) SetupTest() {
	s.docs = documents.NewInMemory()
	s.verifier = &recordingVerifier{}
	access := &stubAccess{
		roles: map[id.Principal]id.Role{
			"verifier-1": id.RoleVerifier,
			"admin-1":    id.RoleAdmin,
			"user-1":     id.RoleUser,
		},
		docs: s.docs,
	}
	s.svc = New(s.docs, proofs.NewInMemory(), access, WithAutoVerifier(s.verifier))
	s.ctx = context.Background()
}

func (s *RegistryServiceSuite) register(owner id.Principal, hash string, docType id.DocumentType) *models.Document {
	doc, err := s.svc.RegisterDocument(s.ctx, owner, RegisterRequest{
		ContentPointer: "s3://bucket/" + hash,
		ContentHash:    hash,
		Metadata:       "{}",
		Size:           2048,
		DocumentType:   docType,
	})
	s.Require().NoError(err)
	return doc
}

func (s *RegistryServiceSuite) TestRegisterDocument() {
	s.Run("assigns id and pending lifecycle", func() {
		doc := s.register("owner-1", "hash-1", "legal")
		s.Equal(id.DocumentID(1), doc.ID)
		s.Equal(models.LifecyclePending, doc.Lifecycle)
		s.False(doc.IsVerified)
	})

	s.Run("duplicate hash conflicts", func() {
		s.register("owner-1", "hash-dup", "legal")
		_, err := s.svc.RegisterDocument(s.ctx, "owner-2", RegisterRequest{
			ContentPointer: "s3://bucket/other", ContentHash: "hash-dup",
		})
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("empty pointer and hash rejected", func() {
		_, err := s.svc.RegisterDocument(s.ctx, "owner-1", RegisterRequest{ContentHash: "h"})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		_, err = s.svc.RegisterDocument(s.ctx, "owner-1", RegisterRequest{ContentPointer: "p"})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("expiry follows the retention schedule", func() {
		now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
		ctx := requestcontext.WithTime(s.ctx, now)
		doc, err := s.svc.RegisterDocument(ctx, "owner-1", RegisterRequest{
			ContentPointer: "p", ContentHash: "hash-retention", DocumentType: "legal",
		})
		s.Require().NoError(err)
		s.Equal(now.Add(models.DefaultRetentionSchedule().Duration("legal")), doc.ExpiresAt)
	})

	s.Run("unknown type falls back to default retention", func() {
		now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
		ctx := requestcontext.WithTime(s.ctx, now)
		doc, err := s.svc.RegisterDocument(ctx, "owner-1", RegisterRequest{
			ContentPointer: "p", ContentHash: "hash-unknown-type", DocumentType: "mixtape",
		})
		s.Require().NoError(err)
		s.Equal(now.Add(models.DefaultRetentionSchedule().Duration(id.DocumentTypeDefault)), doc.ExpiresAt)
	})
}

func (s *RegistryServiceSuite) TestSubmitVerificationProof() {
	s.Run("valid proof verifies a legal document", func() {
		doc := s.register("owner-1", "hash-scenario", "legal")

		updated, err := s.svc.SubmitVerificationProof(s.ctx, "verifier-1", doc.ID, "proof-1", "{}", true)
		s.Require().NoError(err)
		s.Equal(models.LifecycleVerified, updated.Lifecycle)
		s.True(updated.IsVerified)
		s.Equal("proof-1", updated.ProofHash)
		s.False(updated.LastVerifiedAt.IsZero())

		latest, err := s.svc.GetLatestProof(s.ctx, doc.ID)
		s.Require().NoError(err)
		s.Equal(id.Principal("verifier-1"), latest.Verifier)
		s.True(latest.IsValid)
	})

	s.Run("invalid proof rejects", func() {
		doc := s.register("owner-1", "hash-invalid", "legal")
		updated, err := s.svc.SubmitVerificationProof(s.ctx, "verifier-1", doc.ID, "proof-bad", "{}", false)
		s.Require().NoError(err)
		s.Equal(models.LifecycleRejected, updated.Lifecycle)
		s.False(updated.IsVerified)
	})

	s.Run("plain user cannot submit", func() {
		doc := s.register("owner-1", "hash-noauth", "legal")
		_, err := s.svc.SubmitVerificationProof(s.ctx, "user-1", doc.ID, "proof-x", "", true)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

		proofList, err := s.svc.GetDocumentProofs(s.ctx, doc.ID)
		s.Require().NoError(err)
		s.Empty(proofList)
	})

	s.Run("archived document refuses proofs", func() {
		doc := s.register("owner-1", "hash-archived", "legal")
		s.Require().NoError(s.svc.ArchiveDocument(s.ctx, "owner-1", doc.ID))
		_, err := s.svc.SubmitVerificationProof(s.ctx, "verifier-1", doc.ID, "proof-late", "", true)
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	s.Run("triggers the auto-verification check", func() {
		doc := s.register("owner-1", "hash-autocheck", "legal")
		_, err := s.svc.SubmitVerificationProof(s.ctx, "verifier-1", doc.ID, "proof-1", "", true)
		s.Require().NoError(err)
		s.Contains(s.verifier.checked, doc.ID)
	})

	s.Run("lifecycle change and proof append share one transactional unit", func() {
		runner := &recordingRunner{}
		access := &stubAccess{roles: map[id.Principal]id.Role{"verifier-1": id.RoleVerifier}, docs: s.docs}
		svc := New(s.docs, proofs.NewInMemory(), access, WithTxRunner(runner))
		doc := s.register("owner-1", "hash-tx-unit", "legal")

		_, err := svc.SubmitVerificationProof(s.ctx, "verifier-1", doc.ID, "proof-1", "", true)
		s.Require().NoError(err)
		s.Equal(1, runner.calls)
		s.False(runner.rolledBack)
	})

	s.Run("failed proof append aborts the unit", func() {
		runner := &recordingRunner{}
		access := &stubAccess{roles: map[id.Principal]id.Role{"verifier-1": id.RoleVerifier}, docs: s.docs}
		svc := New(s.docs, &failingProofs{proofs.NewInMemory()}, access, WithTxRunner(runner))
		doc := s.register("owner-1", "hash-tx-abort", "legal")

		_, err := svc.SubmitVerificationProof(s.ctx, "verifier-1", doc.ID, "proof-1", "", true)
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
		s.True(runner.rolledBack)
	})
}

func (s *RegistryServiceSuite) TestTransferDocumentOwnership() {
	doc := s.register("owner-1", "hash-transfer", "legal")

	s.Run("non-owner cannot transfer", func() {
		err := s.svc.TransferDocumentOwnership(s.ctx, "user-1", doc.ID, "user-1")
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("transfer to current owner rejected", func() {
		err := s.svc.TransferDocumentOwnership(s.ctx, "owner-1", doc.ID, "owner-1")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("owner transfers and indices move", func() {
		s.Require().NoError(s.svc.TransferDocumentOwnership(s.ctx, "owner-1", doc.ID, "owner-2"))

		previous, err := s.svc.GetUserDocuments(s.ctx, "owner-1")
		s.Require().NoError(err)
		s.Empty(previous)

		current, err := s.svc.GetUserDocuments(s.ctx, "owner-2")
		s.Require().NoError(err)
		s.Len(current, 1)

		// The previous owner lost transfer rights with the ownership.
		err = s.svc.TransferDocumentOwnership(s.ctx, "owner-1", doc.ID, "owner-3")
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}

func (s *RegistryServiceSuite) TestArchiveDocument() {
	s.Run("owner archives", func() {
		doc := s.register("owner-1", "hash-archive-owner", "legal")
		s.Require().NoError(s.svc.ArchiveDocument(s.ctx, "owner-1", doc.ID))
		got, err := s.svc.GetDocument(s.ctx, doc.ID)
		s.Require().NoError(err)
		s.Equal(models.LifecycleArchived, got.Lifecycle)
	})

	s.Run("admin archives someone else's document", func() {
		doc := s.register("owner-1", "hash-archive-admin", "legal")
		s.Require().NoError(s.svc.ArchiveDocument(s.ctx, "admin-1", doc.ID))
	})

	s.Run("stranger cannot archive", func() {
		doc := s.register("owner-1", "hash-archive-stranger", "legal")
		err := s.svc.ArchiveDocument(s.ctx, "user-1", doc.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("archived is terminal", func() {
		doc := s.register("owner-1", "hash-archive-twice", "legal")
		s.Require().NoError(s.svc.ArchiveDocument(s.ctx, "owner-1", doc.ID))
		err := s.svc.ArchiveDocument(s.ctx, "owner-1", doc.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})
}

func (s *RegistryServiceSuite) TestExpireDocument() {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(s.ctx, now)

	s.Run("admin expires early", func() {
		doc := s.register("owner-1", "hash-expire-admin", "legal")
		s.Require().NoError(s.svc.ExpireDocument(ctx, "admin-1", doc.ID))
		got, err := s.svc.GetDocument(s.ctx, doc.ID)
		s.Require().NoError(err)
		s.Equal(models.LifecycleExpired, got.Lifecycle)
	})

	s.Run("non-admin cannot expire before the deadline", func() {
		doc := s.register("owner-1", "hash-expire-early", "legal")
		err := s.svc.ExpireDocument(ctx, "user-1", doc.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("anyone expires after the deadline", func() {
		createCtx := requestcontext.WithTime(s.ctx, now)
		doc, err := s.svc.RegisterDocument(createCtx, "owner-1", RegisterRequest{
			ContentPointer: "p", ContentHash: "hash-expire-late", DocumentType: "legal",
		})
		s.Require().NoError(err)

		lateCtx := requestcontext.WithTime(s.ctx, doc.ExpiresAt.Add(time.Hour))
		s.Require().NoError(s.svc.ExpireDocument(lateCtx, "user-1", doc.ID))
	})
}

func (s *RegistryServiceSuite) TestReads() {
	s.Run("unknown document not found", func() {
		_, err := s.svc.GetDocument(s.ctx, 404)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("latest proof before any submission", func() {
		doc := s.register("owner-1", "hash-noproof", "legal")
		_, err := s.svc.GetLatestProof(s.ctx, doc.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("exists by hash", func() {
		s.register("owner-1", "hash-exists", "legal")
		ok, err := s.svc.DocumentExistsByHash(s.ctx, "hash-exists")
		s.Require().NoError(err)
		s.True(ok)
		ok, err = s.svc.DocumentExistsByHash(s.ctx, "hash-missing")
		s.Require().NoError(err)
		s.False(ok)
	})
}

func (s *RegistryServiceSuite) TestExecuteOnBehalfOfCollective() {
	s.Run("verification applies without per-caller checks", func() {
		doc := s.register("owner-1", "hash-exec-verify", "legal")
		s.Require().NoError(s.svc.ExecuteVerification(s.ctx, "proposer-1", doc.ID, "proof-collective", "{}"))

		got, err := s.svc.GetDocument(s.ctx, doc.ID)
		s.Require().NoError(err)
		s.Equal(models.LifecycleVerified, got.Lifecycle)
		s.True(got.IsVerified)

		latest, err := s.svc.GetLatestProof(s.ctx, doc.ID)
		s.Require().NoError(err)
		s.Equal(id.Principal("proposer-1"), latest.Verifier)
	})

	s.Run("multi-sig stamp", func() {
		doc := s.register("owner-1", "hash-exec-stamp", "legal")
		s.Require().NoError(s.svc.MarkMultiSigVerified(s.ctx, doc.ID))
		got, err := s.svc.GetDocument(s.ctx, doc.ID)
		s.Require().NoError(err)
		s.True(got.MultiSigVerified)
	})

	s.Run("collective transfer still validates the target", func() {
		doc := s.register("owner-1", "hash-exec-transfer", "legal")
		err := s.svc.ExecuteOwnershipTransfer(s.ctx, doc.ID, "owner-1")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
		s.Require().NoError(s.svc.ExecuteOwnershipTransfer(s.ctx, doc.ID, "owner-9"))
	})
}
