package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"captable/internal/captable/models"
	ledgermodels "captable/internal/ledger/models"
	"captable/internal/projector"
	id "captable/pkg/domain"
	dErrors "captable/pkg/domain-errors"
)

// GovernanceRules are stamped onto every new proposal, so changing them never
// moves the goalposts of a running vote. MinProposalShares is the balance a
// proposer must hold; below one share it is treated as one.
type GovernanceRules struct {
	VotingDelay       time.Duration
	VotingPeriod      time.Duration
	QuorumPct         int64
	ApprovalPct       int64
	ExecutionDelay    time.Duration
	ExecutionWindow   time.Duration
	MinProposalShares int64
}

// DefaultGovernanceRules opens voting a day after proposal for three days
// and needs 10% turnout with two thirds of decisive votes in favour.
func DefaultGovernanceRules() GovernanceRules {
	return GovernanceRules{
		VotingDelay:     24 * time.Hour,
		VotingPeriod:    72 * time.Hour,
		QuorumPct:       10,
		ApprovalPct:     66,
		ExecutionDelay:  24 * time.Hour,
		ExecutionWindow: 7 * 24 * time.Hour,
	}
}

func (r GovernanceRules) Validate() error {
	if r.VotingPeriod <= 0 {
		return errors.New("voting period must be positive")
	}
	if r.VotingDelay < 0 || r.ExecutionDelay < 0 || r.ExecutionWindow < 0 {
		return errors.New("governance delays must not be negative")
	}
	if r.QuorumPct < 0 || r.QuorumPct > 100 {
		return fmt.Errorf("quorum must be within 0..100, got %d", r.QuorumPct)
	}
	if r.ApprovalPct < 1 || r.ApprovalPct > 100 {
		return fmt.Errorf("approval threshold must be within 1..100, got %d", r.ApprovalPct)
	}
	if r.MinProposalShares < 0 {
		return errors.New("minimum proposal shares must not be negative")
	}
	return nil
}

// WithGovernanceRules replaces the proposal defaults; invalid rules are
// ignored.
func WithGovernanceRules(r GovernanceRules) Option {
	return func(s *Service) {
		if r.Validate() == nil {
			s.governance = r
		}
	}
}

func seconds(d time.Duration) int64 {
	return int64(d / time.Second)
}

func proposalAt(p *projector.Proposal, now time.Time) projector.Proposal {
	out := *p.Clone()
	out.Status = p.StatusAt(now.Unix())
	return out
}

func lookupProposal(w *work, proposalID id.ProposalID) (*projector.Proposal, error) {
	p, ok := w.view.state.Proposals[proposalID.String()]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "governance proposal not found")
	}
	return p, nil
}

// CreateGovernanceProposal opens a holder vote. Weights are the balances at
// the proposal's slot.
func (s *Service) CreateGovernanceProposal(ctx context.Context, tokenID id.TokenID, prop models.GovernanceProposal) (projector.Proposal, error) {
	if err := parseWallets(prop.Proposer); err != nil {
		return projector.Proposal{}, err
	}
	if err := actsFor(ctx, prop.Proposer); err != nil {
		return projector.Proposal{}, err
	}
	if prop.Description == "" || len(prop.Description) > 500 {
		return projector.Proposal{}, dErrors.New(dErrors.CodeValidation, "description must be 1 to 500 bytes")
	}
	if prop.Action != nil {
		if _, _, err := projector.ActionRecord(*prop.Action); err != nil {
			return projector.Proposal{}, translate(err)
		}
	}
	proposalID := id.ProposalID(uuid.New())
	rules := s.governance

	var out projector.Proposal
	err := s.write(ctx, "create_governance_proposal", tokenID, func(ctx context.Context, w *work) error {
		if err := requireToken(w.view); err != nil {
			return err
		}
		if held := w.view.state.Balances[prop.Proposer]; held < max(rules.MinProposalShares, 1) {
			return dErrors.New(dErrors.CodeForbidden, fmt.Sprintf("proposer holds %d shares, %d required", held, max(rules.MinProposalShares, 1)))
		}
		if prop.Action != nil {
			if err := s.checkInstruction(w, prop.Action); err != nil {
				return err
			}
		}
		starts := w.now.Add(rules.VotingDelay).Unix()
		draft, err := ledgermodels.Record{
			Type:        ledgermodels.TypeGovernancePropose,
			Slot:        w.slot,
			Wallet:      prop.Proposer,
			TriggeredBy: triggeredBy(ctx),
		}.WithPayload(ledgermodels.GovernanceProposePayload{
			ProposalID:      proposalID.String(),
			Description:     prop.Description,
			Action:          prop.Action,
			VotingStarts:    starts,
			VotingEnds:      starts + seconds(rules.VotingPeriod),
			QuorumPct:       rules.QuorumPct,
			ApprovalPct:     rules.ApprovalPct,
			ExecutionDelay:  seconds(rules.ExecutionDelay),
			ExecutionWindow: seconds(rules.ExecutionWindow),
		})
		if err != nil {
			return err
		}
		if _, err := w.append(ctx, draft); err != nil {
			return err
		}
		out = proposalAt(w.view.state.Proposals[proposalID.String()], w.now)
		return nil
	})
	if err != nil {
		return projector.Proposal{}, err
	}
	s.logAudit(ctx, "governance_proposed",
		"token_id", tokenID.String(),
		"proposal_id", proposalID.String(),
		"wallet", prop.Proposer,
	)
	return out, nil
}

// CastVote records voter's ballot with its snapshot weight. Each wallet votes
// once while voting is open.
func (s *Service) CastVote(ctx context.Context, tokenID id.TokenID, proposalID id.ProposalID, voter string, choice projector.VoteChoice) (projector.Proposal, error) {
	if err := parseWallets(voter); err != nil {
		return projector.Proposal{}, err
	}
	if err := actsFor(ctx, voter); err != nil {
		return projector.Proposal{}, err
	}
	if !choice.IsValid() {
		return projector.Proposal{}, dErrors.New(dErrors.CodeValidation, "choice must be for, against or abstain")
	}
	var out projector.Proposal
	err := s.write(ctx, "cast_vote", tokenID, func(ctx context.Context, w *work) error {
		if err := requireToken(w.view); err != nil {
			return err
		}
		p, err := lookupProposal(w, proposalID)
		if err != nil {
			return err
		}
		if status := p.StatusAt(w.now.Unix()); status != projector.ProposalActive {
			return dErrors.New(dErrors.CodeConflict, fmt.Sprintf("voting is not open on a %s proposal", status))
		}
		if _, voted := p.Votes[voter]; voted {
			return dErrors.New(dErrors.CodeConflict, "wallet already voted")
		}
		weight := p.Weights[voter]
		if weight == 0 {
			return dErrors.New(dErrors.CodeForbidden, "wallet held no shares when the proposal was made")
		}
		draft, err := ledgermodels.Record{
			Type:        ledgermodels.TypeGovernanceVote,
			Slot:        w.slot,
			Wallet:      voter,
			Amount:      weight,
			ReferenceID: proposalID.String(),
			TriggeredBy: triggeredBy(ctx),
		}.WithPayload(ledgermodels.GovernanceVotePayload{ProposalID: proposalID.String(), Choice: string(choice)})
		if err != nil {
			return err
		}
		if _, err := w.append(ctx, draft); err != nil {
			return err
		}
		out = proposalAt(w.view.state.Proposals[proposalID.String()], w.now)
		return nil
	})
	if err != nil {
		return projector.Proposal{}, err
	}
	s.logAudit(ctx, "governance_voted",
		"token_id", tokenID.String(),
		"proposal_id", proposalID.String(),
		"wallet", voter,
		"choice", string(choice),
	)
	return out, nil
}

// FinalizeGovernanceProposal tallies a closed vote into passed or failed.
// Anyone may finalize.
func (s *Service) FinalizeGovernanceProposal(ctx context.Context, tokenID id.TokenID, proposalID id.ProposalID) (projector.Proposal, error) {
	var out projector.Proposal
	err := s.write(ctx, "finalize_governance_proposal", tokenID, func(ctx context.Context, w *work) error {
		if err := requireToken(w.view); err != nil {
			return err
		}
		p, err := lookupProposal(w, proposalID)
		if err != nil {
			return err
		}
		if p.Status != projector.ProposalPending {
			return dErrors.New(dErrors.CodeConflict, fmt.Sprintf("proposal is already %s", p.Status))
		}
		if w.now.Unix() <= p.VotingEnds {
			return dErrors.New(dErrors.CodeConflict, "voting has not ended")
		}
		draft, err := ledgermodels.Record{
			Type:        ledgermodels.TypeGovernanceFinalize,
			Slot:        w.slot,
			ReferenceID: proposalID.String(),
			TriggeredBy: triggeredBy(ctx),
		}.WithPayload(ledgermodels.GovernanceFinalizePayload{ProposalID: proposalID.String()})
		if err != nil {
			return err
		}
		if _, err := w.append(ctx, draft); err != nil {
			return err
		}
		out = proposalAt(w.view.state.Proposals[proposalID.String()], w.now)
		return nil
	})
	if err != nil {
		return projector.Proposal{}, err
	}
	s.logAudit(ctx, "governance_finalized",
		"token_id", tokenID.String(),
		"proposal_id", proposalID.String(),
		"status", string(out.Status),
	)
	return out, nil
}

// CancelGovernanceProposal withdraws a proposal before voting opens. Only the
// proposer may cancel.
func (s *Service) CancelGovernanceProposal(ctx context.Context, tokenID id.TokenID, proposalID id.ProposalID, caller, reason string) (projector.Proposal, error) {
	if err := signsAs(ctx, caller); err != nil {
		return projector.Proposal{}, err
	}
	var out projector.Proposal
	err := s.write(ctx, "cancel_governance_proposal", tokenID, func(ctx context.Context, w *work) error {
		if err := requireToken(w.view); err != nil {
			return err
		}
		p, err := lookupProposal(w, proposalID)
		if err != nil {
			return err
		}
		if p.Proposer != caller {
			return dErrors.New(dErrors.CodeForbidden, "only the proposer may cancel")
		}
		if p.Status != projector.ProposalPending || w.now.Unix() >= p.VotingStarts {
			return dErrors.New(dErrors.CodeConflict, "proposal can only be cancelled before voting starts")
		}
		draft, err := ledgermodels.Record{
			Type:        ledgermodels.TypeGovernanceCancel,
			Slot:        w.slot,
			Wallet:      caller,
			ReferenceID: proposalID.String(),
			TriggeredBy: triggeredBy(ctx),
		}.WithPayload(ledgermodels.GovernanceCancelPayload{ProposalID: proposalID.String(), Reason: reason})
		if err != nil {
			return err
		}
		if _, err := w.append(ctx, draft); err != nil {
			return err
		}
		out = proposalAt(w.view.state.Proposals[proposalID.String()], w.now)
		return nil
	})
	if err != nil {
		return projector.Proposal{}, err
	}
	s.logAudit(ctx, "governance_cancelled", "token_id", tokenID.String(), "proposal_id", proposalID.String(), "wallet", caller)
	return out, nil
}

// ExecuteGovernanceProposal applies a passed proposal inside its execution
// window: the action record, when there is one, then GOVERNANCE_EXECUTE
// linking to it. A passed vote stands in for the multi-sig gate.
func (s *Service) ExecuteGovernanceProposal(ctx context.Context, tokenID id.TokenID, proposalID id.ProposalID) (projector.Proposal, error) {
	var out projector.Proposal
	err := s.write(ctx, "execute_governance_proposal", tokenID, func(ctx context.Context, w *work) error {
		if err := requireToken(w.view); err != nil {
			return err
		}
		p, err := lookupProposal(w, proposalID)
		if err != nil {
			return err
		}
		now := w.now.Unix()
		if !p.ExecutableAt(now) {
			switch {
			case p.Status != projector.ProposalPassed:
				return dErrors.New(dErrors.CodeConflict, fmt.Sprintf("proposal is %s", p.StatusAt(now)))
			case now < p.ExecutableFrom():
				return dErrors.New(dErrors.CodeConflict, "execution delay has not elapsed")
			default:
				return dErrors.New(dErrors.CodeConflict, "execution window has passed")
			}
		}
		var recordID int64
		if p.Action != nil {
			action := *p.Action
			if err := s.checkInstruction(w, &action); err != nil {
				return err
			}
			recordType, payload, err := projector.ActionRecord(action)
			if err != nil {
				return err
			}
			draft, err := ledgermodels.Record{
				Type:        recordType,
				Slot:        w.slot,
				ReferenceID: proposalID.String(),
				TriggeredBy: triggeredBy(ctx),
			}.WithPayload(payload)
			if err != nil {
				return err
			}
			rec, err := w.append(ctx, draft)
			if err != nil {
				return err
			}
			recordID = rec.ID
		}
		link, err := ledgermodels.Record{
			Type:        ledgermodels.TypeGovernanceExecute,
			Slot:        w.slot,
			ReferenceID: proposalID.String(),
			TriggeredBy: triggeredBy(ctx),
		}.WithPayload(ledgermodels.GovernanceExecutePayload{ProposalID: proposalID.String(), RecordID: recordID})
		if err != nil {
			return err
		}
		if _, err := w.append(ctx, link); err != nil {
			return err
		}
		out = proposalAt(w.view.state.Proposals[proposalID.String()], w.now)
		return nil
	})
	if err != nil {
		return projector.Proposal{}, err
	}
	s.logAudit(ctx, "governance_executed",
		"token_id", tokenID.String(),
		"proposal_id", proposalID.String(),
		"record_id", out.ActionRecordID,
	)
	return out, nil
}

// GovernanceProposal returns one proposal with its status at now.
func (s *Service) GovernanceProposal(ctx context.Context, tokenID id.TokenID, proposalID id.ProposalID) (projector.Proposal, error) {
	var out projector.Proposal
	err := s.read(ctx, tokenID, func(v view) error {
		p, ok := v.state.Proposals[proposalID.String()]
		if !ok {
			return dErrors.New(dErrors.CodeNotFound, "governance proposal not found")
		}
		out = proposalAt(p, s.now(ctx))
		return nil
	})
	return out, err
}

// GovernanceProposals lists proposals in proposal order.
func (s *Service) GovernanceProposals(ctx context.Context, tokenID id.TokenID) ([]projector.Proposal, error) {
	var out []projector.Proposal
	err := s.read(ctx, tokenID, func(v view) error {
		now := s.now(ctx)
		out = v.state.ProposalList()
		for i := range out {
			out[i].Status = out[i].StatusAt(now.Unix())
		}
		return nil
	})
	return out, err
}

// VotingPower is the weight wallet would carry on a proposal made now.
func (s *Service) VotingPower(ctx context.Context, tokenID id.TokenID, wallet string) (int64, error) {
	if err := parseWallets(wallet); err != nil {
		return 0, err
	}
	var out int64
	err := s.read(ctx, tokenID, func(v view) error {
		out = v.state.Balances[wallet]
		return nil
	})
	return out, err
}
