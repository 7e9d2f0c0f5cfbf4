package projector

import (
	"time"

	"github.com/google/uuid"

	"captable/internal/ledger/models"
	"captable/pkg/testutil"
)

// propose records a proposal by A whose vote runs for 100 seconds from
// t0+start.
func (s *StateSuite) propose(slot, start int64, action *models.InstructionPayload) string {
	proposalID := uuid.NewString()
	s.apply(models.Record{
		Slot: slot, Type: models.TypeGovernancePropose, Wallet: testutil.WalletA,
		Payload: payload(&s.Suite, models.GovernanceProposePayload{
			ProposalID: proposalID, Description: "raise the float", Action: action,
			VotingStarts: t0 + start, VotingEnds: t0 + start + 100,
			QuorumPct: 50, ApprovalPct: 66, ExecutionDelay: 50, ExecutionWindow: 100,
		}),
	})
	return proposalID
}

func (s *StateSuite) ballot(slot int64, wallet, proposalID string, choice VoteChoice) models.Record {
	return models.Record{
		Slot: slot, Type: models.TypeGovernanceVote, Wallet: wallet,
		Payload: payload(&s.Suite, models.GovernanceVotePayload{ProposalID: proposalID, Choice: string(choice)}),
	}
}

// rejects folds rec into a copy of the state and requires it to be corrupt.
func (s *StateSuite) rejects(rec models.Record) {
	st := s.state.Clone()
	c := *s.chain
	s.ErrorIs(st.Apply(c.seal(&s.Suite, rec)), ErrCorruptLog)
}

func (s *StateSuite) TestGovernanceProposalPasses() {
	s.grant(10, testutil.WalletA, 600)
	s.grant(10, testutil.WalletB, 300)
	s.grant(10, testutil.WalletC, 100)
	pause := &models.InstructionPayload{Kind: "pause", Pause: &models.PausePayload{Reason: "vote"}}
	proposalID := s.propose(20, 100, pause)

	p := s.state.Proposals[proposalID]
	s.Equal(int64(1000), p.SupplyAtSnap)
	s.Equal(ProposalPending, p.StatusAt(t0+50))
	s.Equal(ProposalActive, p.StatusAt(t0+150))

	s.Run("weights are fixed when the proposal is made", func() {
		s.apply(models.Record{Slot: 30, Type: models.TypeTransfer, Wallet: testutil.WalletA, WalletTo: testutil.WalletD, Amount: 100})
		s.Equal(int64(600), s.state.Proposals[proposalID].Weights[testutil.WalletA])
		s.Zero(s.state.Proposals[proposalID].Weights[testutil.WalletD])
	})

	s.Run("votes outside the window are corrupt", func() {
		s.rejects(s.ballot(99, testutil.WalletA, proposalID, VoteFor))
	})

	s.apply(s.ballot(150, testutil.WalletA, proposalID, VoteFor))
	s.apply(s.ballot(160, testutil.WalletB, proposalID, VoteAgainst))
	s.apply(s.ballot(170, testutil.WalletC, proposalID, VoteAbstain))

	s.Run("second vote and weightless voters are corrupt", func() {
		s.rejects(s.ballot(180, testutil.WalletA, proposalID, VoteAgainst))
		s.rejects(s.ballot(180, testutil.WalletD, proposalID, VoteFor))
	})

	p = s.state.Proposals[proposalID]
	s.Equal(int64(600), p.VotesFor)
	s.Equal(int64(300), p.VotesAgainst)
	s.Equal(int64(100), p.VotesAbstain)

	s.Run("finalize before voting ends is corrupt", func() {
		s.rejects(models.Record{Slot: 200, Type: models.TypeGovernanceFinalize,
			Payload: payload(&s.Suite, models.GovernanceFinalizePayload{ProposalID: proposalID})})
	})

	s.apply(models.Record{Slot: 201, Type: models.TypeGovernanceFinalize,
		Payload: payload(&s.Suite, models.GovernanceFinalizePayload{ProposalID: proposalID})})
	// 600*100/900 = 66 meets 66; 1000 votes meet a quorum of 500.
	s.Equal(ProposalPassed, s.state.Proposals[proposalID].Status)

	s.Run("execution waits for the delay", func() {
		s.rejects(models.Record{Slot: 249, Type: models.TypeGovernanceExecute,
			Payload: payload(&s.Suite, models.GovernanceExecutePayload{ProposalID: proposalID, RecordID: 99})})
	})

	action := s.apply(models.Record{Slot: 260, Type: models.TypePause, Payload: payload(&s.Suite, models.PausePayload{Reason: "vote"})})
	s.apply(models.Record{Slot: 260, Type: models.TypeGovernanceExecute,
		Payload: payload(&s.Suite, models.GovernanceExecutePayload{ProposalID: proposalID, RecordID: action.ID})})
	p = s.state.Proposals[proposalID]
	s.Equal(ProposalExecuted, p.Status)
	s.Equal(action.ID, p.ActionRecordID)
	s.True(s.state.Paused)

	s.Run("executing twice is corrupt", func() {
		s.rejects(models.Record{Slot: 270, Type: models.TypeGovernanceExecute,
			Payload: payload(&s.Suite, models.GovernanceExecutePayload{ProposalID: proposalID, RecordID: action.ID})})
	})
}

func (s *StateSuite) TestGovernanceProposalFails() {
	s.grant(10, testutil.WalletA, 600)
	s.grant(10, testutil.WalletB, 400)

	s.Run("below quorum", func() {
		proposalID := s.propose(20, 100, nil)
		s.apply(s.ballot(150, testutil.WalletB, proposalID, VoteFor))
		s.apply(models.Record{Slot: 201, Type: models.TypeGovernanceFinalize,
			Payload: payload(&s.Suite, models.GovernanceFinalizePayload{ProposalID: proposalID})})
		p := s.state.Proposals[proposalID]
		quorum, approval := p.Outcome()
		s.False(quorum)
		s.True(approval)
		s.Equal(ProposalFailed, p.Status)
	})

	s.Run("abstentions meet quorum without approving", func() {
		proposalID := s.propose(201, 300, nil)
		s.apply(s.ballot(300, testutil.WalletA, proposalID, VoteAbstain))
		s.apply(models.Record{Slot: 401, Type: models.TypeGovernanceFinalize,
			Payload: payload(&s.Suite, models.GovernanceFinalizePayload{ProposalID: proposalID})})
		quorum, approval := s.state.Proposals[proposalID].Outcome()
		s.True(quorum)
		s.False(approval)
		s.Equal(ProposalFailed, s.state.Proposals[proposalID].Status)
	})
}

func (s *StateSuite) TestGovernanceCancel() {
	s.grant(10, testutil.WalletA, 100)
	proposalID := s.propose(20, 100, nil)

	s.Run("only the proposer cancels", func() {
		s.rejects(models.Record{Slot: 30, Type: models.TypeGovernanceCancel, Wallet: testutil.WalletB,
			Payload: payload(&s.Suite, models.GovernanceCancelPayload{ProposalID: proposalID})})
	})

	s.Run("cancel after voting opens is corrupt", func() {
		s.rejects(models.Record{Slot: 100, Type: models.TypeGovernanceCancel, Wallet: testutil.WalletA,
			Payload: payload(&s.Suite, models.GovernanceCancelPayload{ProposalID: proposalID})})
	})

	s.apply(models.Record{Slot: 30, Type: models.TypeGovernanceCancel, Wallet: testutil.WalletA,
		Payload: payload(&s.Suite, models.GovernanceCancelPayload{ProposalID: proposalID, Reason: "withdrawn"})})
	p := s.state.Proposals[proposalID]
	s.Equal(ProposalCancelled, p.Status)
	s.Equal(ProposalCancelled, p.StatusAt(t0+150))
	s.Equal("withdrawn", p.CancelReason)
	s.rejects(s.ballot(150, testutil.WalletA, proposalID, VoteFor))
}

func (s *StateSuite) TestProposalWindowAndActions() {
	p := Proposal{Status: ProposalPassed, VotingEnds: 100, ExecutionDelay: 10, ExecutionWindow: 5}
	s.False(p.ExecutableAt(109))
	s.True(p.ExecutableAt(110))
	s.True(p.ExecutableAt(115))
	s.False(p.ExecutableAt(116))
	p.ExecutionWindow = 0
	s.True(p.ExecutableAt(1_000_000))

	recordType, _, err := ActionRecord(models.InstructionPayload{Kind: "stock_split", StockSplit: &models.StockSplitPayload{Numerator: 2, Denominator: 1}})
	s.Require().NoError(err)
	s.Equal(models.TypeStockSplit, recordType)
	_, _, err = ActionRecord(models.InstructionPayload{Kind: "threshold_update", ThresholdUpdate: &models.ThresholdChange{Threshold: 1}})
	s.ErrorIs(err, ErrUnsupportedAction)
	_, _, err = ActionRecord(models.InstructionPayload{Kind: "pause"})
	s.ErrorIs(err, ErrUnsupportedAction)
}

func (s *StateSuite) TestProposalsSurviveClone() {
	s.grant(10, testutil.WalletA, 100)
	proposalID := s.propose(20, 100, nil)
	clone := s.state.Clone()
	s.apply(s.ballot(150, testutil.WalletA, proposalID, VoteFor))
	s.Empty(clone.Proposals[proposalID].Votes)
	s.Len(s.state.ProposalList(), 1)
	s.Equal(time.Unix(t0+150, 0).UTC(), s.state.LastBlockTime)
}
