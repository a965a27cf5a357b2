package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks RegistryActions,IdentityActions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"custodia/internal/governance/models"
	"custodia/internal/governance/service/mocks"
	"custodia/internal/governance/store/multisigconfig"
	"custodia/internal/governance/store/proposals"
	registrymodels "custodia/internal/registry/models"
	id "custodia/pkg/domain"
	"custodia/pkg/requestcontext"
)

// ExecutionSuite exercises the dispatch path against mocked collaborators,
// in particular that a failed execution aborts the whole approval.
type ExecutionSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	registry *mocks.MockRegistryActions
	identity *mocks.MockIdentityActions
	svc      *Service
	ctx      context.Context
}

func TestExecutionSuite(t *testing.T) {
	suite.Run(t, new(ExecutionSuite))
}

func (s *ExecutionSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.registry = mocks.NewMockRegistryActions(s.ctrl)
	s.identity = mocks.NewMockIdentityActions(s.ctrl)
	s.svc = New(proposals.NewInMemory(), multisigconfig.NewInMemory(), s.registry, s.identity)
	s.ctx = requestcontext.WithTime(context.Background(), time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	s.identity.EXPECT().HasRoleOrHigher(gomock.Any(), gomock.Any(), gomock.Any()).Return(true).AnyTimes()
}

func (s *ExecutionSuite) createVerificationProposal() *models.Proposal {
	s.registry.EXPECT().GetDocument(gomock.Any(), id.DocumentID(7)).Return(&registrymodels.Document{
		ID: 7, Owner: "owner-1", DocumentType: "legal", Lifecycle: registrymodels.LifecyclePending,
	}, nil)

	proposal, err := s.svc.CreateProposal(s.ctx, "verifier-1", models.OpVerification, 7,
		[]id.Principal{"owner-1", "verifier-1"},
		&models.VerificationPayload{ProofHash: "proof-7"}, "")
	s.Require().NoError(err)
	return proposal
}

func (s *ExecutionSuite) TestDispatchFailureAbortsApproval() {
	proposal := s.createVerificationProposal()

	_, err := s.svc.ApproveProposal(s.ctx, "owner-1", proposal.ID)
	s.Require().NoError(err)

	s.registry.EXPECT().
		ExecuteVerification(gomock.Any(), id.Principal("verifier-1"), id.DocumentID(7), "proof-7", "").
		Return(errors.New("store unavailable"))

	_, err = s.svc.ApproveProposal(s.ctx, "verifier-1", proposal.ID)
	s.Require().Error(err)

	// The failed approval left no trace: the proposal is still pending with
	// one approval and the same signer can retry.
	current, err := s.svc.GetProposal(s.ctx, proposal.ID)
	s.Require().NoError(err)
	s.Equal(models.ProposalPending, current.State)
	s.Equal(1, current.CurrentApprovals)

	approved, err := s.svc.HasApproved(s.ctx, proposal.ID, "verifier-1")
	s.Require().NoError(err)
	s.False(approved)

	s.registry.EXPECT().
		ExecuteVerification(gomock.Any(), id.Principal("verifier-1"), id.DocumentID(7), "proof-7", "").
		Return(nil)
	s.registry.EXPECT().MarkMultiSigVerified(gomock.Any(), id.DocumentID(7)).Return(nil)

	retried, err := s.svc.ApproveProposal(s.ctx, "verifier-1", proposal.ID)
	s.Require().NoError(err)
	s.Equal(models.ProposalExecuted, retried.State)
}

func (s *ExecutionSuite) TestStampFailureAlsoAborts() {
	proposal := s.createVerificationProposal()

	_, err := s.svc.ApproveProposal(s.ctx, "owner-1", proposal.ID)
	s.Require().NoError(err)

	s.registry.EXPECT().
		ExecuteVerification(gomock.Any(), id.Principal("verifier-1"), id.DocumentID(7), "proof-7", "").
		Return(nil)
	s.registry.EXPECT().
		MarkMultiSigVerified(gomock.Any(), id.DocumentID(7)).
		Return(errors.New("store unavailable"))

	_, err = s.svc.ApproveProposal(s.ctx, "verifier-1", proposal.ID)
	s.Require().Error(err)

	current, err := s.svc.GetProposal(s.ctx, proposal.ID)
	s.Require().NoError(err)
	s.Equal(models.ProposalPending, current.State)
}
