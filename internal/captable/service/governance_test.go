package service

import (
	"context"
	"time"

	"captable/internal/captable/models"
	ledgermodels "captable/internal/ledger/models"
	msmodels "captable/internal/multisig/models"
	"captable/internal/projector"
	dErrors "captable/pkg/domain-errors"
	"captable/pkg/requestcontext"
	"captable/pkg/testutil"
)

// walletAt acts as wallet at now+d.
func (s *ServiceSuite) walletAt(wallet string, d time.Duration) context.Context {
	return requestcontext.WithTime(s.as(requestcontext.RoleWallet, wallet), s.now.Add(d))
}

func (s *ServiceSuite) systemAt(d time.Duration) context.Context {
	return requestcontext.WithTime(s.ctx, s.now.Add(d))
}

func (s *ServiceSuite) TestGovernanceLifecycle() {
	_, err := s.svc.Transfer(s.ctx, s.token, testutil.WalletA, testutil.WalletB, 400_000)
	s.Require().NoError(err)
	action := pause("holder vote")

	s.Run("proposer needs shares and may only propose for itself", func() {
		_, err := s.svc.CreateGovernanceProposal(s.walletAt(testutil.WalletD, 0), s.token,
			models.GovernanceProposal{Proposer: testutil.WalletD, Description: "no stake"})
		s.requireCode(err, dErrors.CodeForbidden)
		_, err = s.svc.CreateGovernanceProposal(s.walletAt(testutil.WalletD, 0), s.token,
			models.GovernanceProposal{Proposer: testutil.WalletA, Description: "borrowed stake"})
		s.requireCode(err, dErrors.CodeForbidden)
	})

	s.Run("actions outside pause, resume, split and rename are rejected", func() {
		_, err := s.svc.CreateGovernanceProposal(s.walletAt(testutil.WalletA, 0), s.token, models.GovernanceProposal{
			Proposer: testutil.WalletA, Description: "new signers",
			Action: &msmodels.Instruction{Kind: string(msmodels.KindThresholdUpdate), ThresholdUpdate: &ledgermodels.ThresholdChange{Threshold: 1}},
		})
		s.requireCode(err, dErrors.CodeValidation)
	})

	p, err := s.svc.CreateGovernanceProposal(s.walletAt(testutil.WalletA, 0), s.token,
		models.GovernanceProposal{Proposer: testutil.WalletA, Description: "pause trading", Action: &action})
	s.Require().NoError(err)
	s.Equal(projector.ProposalPending, p.Status)
	s.Equal(s.now.Add(24*time.Hour).Unix(), p.VotingStarts)
	s.Equal(s.now.Add(96*time.Hour).Unix(), p.VotingEnds)
	s.Equal(int64(1_000_000), p.SupplyAtSnap)

	// D buys in after the proposal and carries no weight on it.
	_, err = s.svc.Transfer(s.ctx, s.token, testutil.WalletB, testutil.WalletD, 100_000)
	s.Require().NoError(err)

	s.Run("votes before the window open conflict", func() {
		_, err := s.svc.CastVote(s.walletAt(testutil.WalletA, time.Hour), s.token, p.ID, testutil.WalletA, projector.VoteFor)
		s.requireCode(err, dErrors.CodeConflict)
	})

	s.Run("holders after the proposal cannot vote", func() {
		_, err := s.svc.CastVote(s.walletAt(testutil.WalletD, 25*time.Hour), s.token, p.ID, testutil.WalletD, projector.VoteFor)
		s.requireCode(err, dErrors.CodeForbidden)
	})

	s.Run("wallets vote only for themselves", func() {
		_, err := s.svc.CastVote(s.walletAt(testutil.WalletD, 25*time.Hour), s.token, p.ID, testutil.WalletA, projector.VoteFor)
		s.requireCode(err, dErrors.CodeForbidden)
	})

	got, err := s.svc.CastVote(s.walletAt(testutil.WalletA, 25*time.Hour), s.token, p.ID, testutil.WalletA, projector.VoteFor)
	s.Require().NoError(err)
	s.Equal(projector.ProposalActive, got.Status)
	s.Equal(int64(600_000), got.VotesFor)
	got, err = s.svc.CastVote(s.walletAt(testutil.WalletB, 26*time.Hour), s.token, p.ID, testutil.WalletB, projector.VoteAbstain)
	s.Require().NoError(err)
	s.Equal(int64(400_000), got.VotesAbstain)

	s.Run("second vote conflicts", func() {
		_, err := s.svc.CastVote(s.walletAt(testutil.WalletB, 27*time.Hour), s.token, p.ID, testutil.WalletB, projector.VoteAgainst)
		s.requireCode(err, dErrors.CodeConflict)
	})

	s.Run("finalize waits for the window to close", func() {
		_, err := s.svc.FinalizeGovernanceProposal(s.systemAt(50*time.Hour), s.token, p.ID)
		s.requireCode(err, dErrors.CodeConflict)
	})

	got, err = s.svc.FinalizeGovernanceProposal(s.systemAt(97*time.Hour), s.token, p.ID)
	s.Require().NoError(err)
	s.Equal(projector.ProposalPassed, got.Status)

	s.Run("execution waits for the delay", func() {
		_, err := s.svc.ExecuteGovernanceProposal(s.systemAt(100*time.Hour), s.token, p.ID)
		s.requireCode(err, dErrors.CodeConflict)
	})

	before := s.recordCount()
	got, err = s.svc.ExecuteGovernanceProposal(s.systemAt(121*time.Hour), s.token, p.ID)
	s.Require().NoError(err)
	s.Equal(projector.ProposalExecuted, got.Status)
	s.NotZero(got.ActionRecordID)
	s.Equal(before+2, s.recordCount())
	s.True(s.live().Paused)

	s.Run("executing twice conflicts", func() {
		_, err := s.svc.ExecuteGovernanceProposal(s.systemAt(122*time.Hour), s.token, p.ID)
		s.requireCode(err, dErrors.CodeConflict)
	})

	s.Run("reads report the derived status", func() {
		list, err := s.svc.GovernanceProposals(s.ctx, s.token)
		s.Require().NoError(err)
		s.Require().Len(list, 1)
		s.Equal(projector.ProposalExecuted, list[0].Status)
		one, err := s.svc.GovernanceProposal(s.ctx, s.token, p.ID)
		s.Require().NoError(err)
		s.Equal(got.ActionRecordID, one.ActionRecordID)

		power, err := s.svc.VotingPower(s.ctx, s.token, testutil.WalletD)
		s.Require().NoError(err)
		s.Equal(int64(100_000), power)
	})
}

func (s *ServiceSuite) TestGovernanceCancelAndExpiry() {
	s.Run("only the proposer cancels and only before voting", func() {
		p, err := s.svc.CreateGovernanceProposal(s.walletAt(testutil.WalletA, 0), s.token,
			models.GovernanceProposal{Proposer: testutil.WalletA, Description: "withdrawn later"})
		s.Require().NoError(err)
		_, err = s.svc.CancelGovernanceProposal(s.walletAt(testutil.WalletB, time.Hour), s.token, p.ID, testutil.WalletB, "not mine")
		s.requireCode(err, dErrors.CodeForbidden)

		got, err := s.svc.CancelGovernanceProposal(s.walletAt(testutil.WalletA, time.Hour), s.token, p.ID, testutil.WalletA, "withdrawn")
		s.Require().NoError(err)
		s.Equal(projector.ProposalCancelled, got.Status)
		s.Equal("withdrawn", got.CancelReason)

		_, err = s.svc.CastVote(s.walletAt(testutil.WalletA, 25*time.Hour), s.token, p.ID, testutil.WalletA, projector.VoteFor)
		s.requireCode(err, dErrors.CodeConflict)
	})

	s.Run("a vote without quorum fails", func() {
		p, err := s.svc.CreateGovernanceProposal(s.walletAt(testutil.WalletA, 2*time.Hour), s.token,
			models.GovernanceProposal{Proposer: testutil.WalletA, Description: "nobody cares"})
		s.Require().NoError(err)
		got, err := s.svc.FinalizeGovernanceProposal(s.systemAt(99*time.Hour), s.token, p.ID)
		s.Require().NoError(err)
		s.Equal(projector.ProposalFailed, got.Status)
		_, err = s.svc.ExecuteGovernanceProposal(s.systemAt(130*time.Hour), s.token, p.ID)
		s.requireCode(err, dErrors.CodeConflict)
	})

	s.Run("a passed proposal expires after its window", func() {
		p, err := s.svc.CreateGovernanceProposal(s.walletAt(testutil.WalletA, 131*time.Hour), s.token,
			models.GovernanceProposal{Proposer: testutil.WalletA, Description: "too slow"})
		s.Require().NoError(err)
		_, err = s.svc.CastVote(s.walletAt(testutil.WalletA, 156*time.Hour), s.token, p.ID, testutil.WalletA, projector.VoteFor)
		s.Require().NoError(err)
		got, err := s.svc.FinalizeGovernanceProposal(s.systemAt(228*time.Hour), s.token, p.ID)
		s.Require().NoError(err)
		s.Equal(projector.ProposalPassed, got.Status)
		_, err = s.svc.ExecuteGovernanceProposal(s.systemAt(228*time.Hour+8*24*time.Hour), s.token, p.ID)
		s.requireCode(err, dErrors.CodeConflict)
	})
}

func (s *ServiceSuite) TestGovernanceRules() {
	s.NoError(DefaultGovernanceRules().Validate())
	bad := DefaultGovernanceRules()
	bad.ApprovalPct = 0
	s.Error(bad.Validate())
	bad = DefaultGovernanceRules()
	bad.VotingPeriod = 0
	s.Error(bad.Validate())

	svc, err := New(s.log, s.svc.snapshots, s.slots, WithGovernanceRules(bad))
	s.Require().NoError(err)
	s.Equal(DefaultGovernanceRules(), svc.governance)
}
