package projector

import (
	"errors"
	"fmt"
	"maps"
	"math/big"
	"sort"

	"captable/internal/ledger/models"
	id "captable/pkg/domain"
)

// ProposalStatus is the lifecycle of a governance proposal. Active is never
// stored; it is derived from the voting window.
type ProposalStatus string

const (
	ProposalPending   ProposalStatus = "pending"
	ProposalActive    ProposalStatus = "active"
	ProposalPassed    ProposalStatus = "passed"
	ProposalFailed    ProposalStatus = "failed"
	ProposalExecuted  ProposalStatus = "executed"
	ProposalCancelled ProposalStatus = "cancelled"
)

type VoteChoice string

const (
	VoteFor     VoteChoice = "for"
	VoteAgainst VoteChoice = "against"
	VoteAbstain VoteChoice = "abstain"
)

func (c VoteChoice) IsValid() bool {
	return c == VoteFor || c == VoteAgainst || c == VoteAbstain
}

// Vote is one wallet's ballot.
type Vote struct {
	Choice VoteChoice `json:"choice"`
	Weight int64      `json:"weight"`
	Slot   int64      `json:"slot"`
}

// ErrUnsupportedAction rejects proposal actions governance cannot carry.
var ErrUnsupportedAction = errors.New("unsupported governance action")

// Proposal is a token holder vote. Voting weight is the balance each wallet
// held when the proposal was recorded.
type Proposal struct {
	ID          id.ProposalID              `json:"id"`
	Proposer    string                     `json:"proposer"`
	Description string                     `json:"description"`
	Action      *models.InstructionPayload `json:"action,omitempty"`
	// SnapshotSlot is the slot whose balances fixed the weights.
	SnapshotSlot    int64            `json:"snapshot_slot"`
	SupplyAtSnap    int64            `json:"supply_at_snapshot"`
	Weights         map[string]int64 `json:"weights"`
	VotingStarts    int64            `json:"voting_starts"`
	VotingEnds      int64            `json:"voting_ends"`
	QuorumPct       int64            `json:"quorum_pct"`
	ApprovalPct     int64            `json:"approval_pct"`
	ExecutionDelay  int64            `json:"execution_delay"`
	ExecutionWindow int64            `json:"execution_window,omitempty"`
	VotesFor        int64            `json:"votes_for"`
	VotesAgainst    int64            `json:"votes_against"`
	VotesAbstain    int64            `json:"votes_abstain"`
	Votes           map[string]Vote  `json:"votes"`
	Status          ProposalStatus   `json:"status"`
	ExecutedAt      int64            `json:"executed_at,omitempty"`
	ActionRecordID  int64            `json:"action_record_id,omitempty"`
	CancelReason    string           `json:"cancel_reason,omitempty"`
}

// Clone copies p deeply enough to leave the folded state untouched.
func (p *Proposal) Clone() *Proposal {
	c := *p
	c.Weights = maps.Clone(p.Weights)
	c.Votes = maps.Clone(p.Votes)
	if p.Action != nil {
		a := *p.Action
		c.Action = &a
	}
	return &c
}

// StatusAt derives the status at unix time at.
func (p *Proposal) StatusAt(at int64) ProposalStatus {
	if p.Status == ProposalPending && at >= p.VotingStarts && at <= p.VotingEnds {
		return ProposalActive
	}
	return p.Status
}

// TotalVotes includes abstentions.
func (p *Proposal) TotalVotes() int64 {
	return p.VotesFor + p.VotesAgainst + p.VotesAbstain
}

// Outcome applies the quorum and approval rules to the votes cast: quorum
// needs total votes >= floor(supply * quorum / 100); approval needs
// floor(for * 100 / (for + against)) >= approval, with abstentions counting
// only toward quorum.
func (p *Proposal) Outcome() (quorum, approval bool) {
	hundred := big.NewInt(100)
	need := new(big.Int).Mul(big.NewInt(p.SupplyAtSnap), big.NewInt(p.QuorumPct))
	need.Quo(need, hundred)
	total := new(big.Int).Add(big.NewInt(p.VotesFor), big.NewInt(p.VotesAgainst))
	total.Add(total, big.NewInt(p.VotesAbstain))
	quorum = total.Cmp(need) >= 0

	decisive := new(big.Int).Add(big.NewInt(p.VotesFor), big.NewInt(p.VotesAgainst))
	if decisive.Sign() > 0 {
		pct := new(big.Int).Mul(big.NewInt(p.VotesFor), hundred)
		pct.Quo(pct, decisive)
		approval = pct.Cmp(big.NewInt(p.ApprovalPct)) >= 0
	}
	return quorum, approval
}

// ExecutableFrom is the first unix second execution is allowed.
func (p *Proposal) ExecutableFrom() int64 {
	return p.VotingEnds + p.ExecutionDelay
}

// ExecutableAt reports whether a passed proposal may execute at at. A zero
// window never closes.
func (p *Proposal) ExecutableAt(at int64) bool {
	if p.Status != ProposalPassed || at < p.ExecutableFrom() {
		return false
	}
	return p.ExecutionWindow == 0 || at <= p.ExecutableFrom()+p.ExecutionWindow
}

// ActionRecord maps a governance action to the record that carries its
// effect.
func ActionRecord(a models.InstructionPayload) (models.RecordType, any, error) {
	switch a.Kind {
	case "pause":
		if a.Pause != nil {
			return models.TypePause, *a.Pause, nil
		}
	case "resume":
		if a.Resume != nil {
			return models.TypeResume, *a.Resume, nil
		}
	case "stock_split":
		if a.StockSplit != nil {
			return models.TypeStockSplit, *a.StockSplit, nil
		}
	case "symbol_change":
		if a.SymbolChange != nil {
			return models.TypeSymbolChange, *a.SymbolChange, nil
		}
	}
	return "", nil, fmt.Errorf("%w: %q", ErrUnsupportedAction, a.Kind)
}

func (s *State) proposal(rec models.Record, proposalID string) (*Proposal, error) {
	p, ok := s.Proposals[proposalID]
	if !ok {
		return nil, corrupt(rec, "unknown proposal %s", proposalID)
	}
	return p, nil
}

func (s *State) propose(rec models.Record) error {
	var p models.GovernanceProposePayload
	if err := rec.DecodePayload(&p); err != nil {
		return corrupt(rec, "payload: %v", err)
	}
	proposalID, err := id.ParseProposalID(p.ProposalID)
	if err != nil {
		return corrupt(rec, "proposal id: %v", err)
	}
	if _, exists := s.Proposals[p.ProposalID]; exists {
		return corrupt(rec, "proposal %s already exists", p.ProposalID)
	}
	if p.VotingEnds < p.VotingStarts {
		return corrupt(rec, "voting ends before it starts")
	}
	if p.Action != nil {
		if _, _, err := ActionRecord(*p.Action); err != nil {
			return corrupt(rec, "%v", err)
		}
	}
	weights := make(map[string]int64, len(s.Balances))
	for wallet, balance := range s.Balances {
		if balance > 0 {
			weights[wallet] = balance
		}
	}
	if s.Proposals == nil {
		s.Proposals = make(map[string]*Proposal)
	}
	s.Proposals[p.ProposalID] = &Proposal{
		ID:              proposalID,
		Proposer:        rec.Wallet,
		Description:     p.Description,
		Action:          p.Action,
		SnapshotSlot:    rec.Slot,
		SupplyAtSnap:    s.TotalSupply,
		Weights:         weights,
		VotingStarts:    p.VotingStarts,
		VotingEnds:      p.VotingEnds,
		QuorumPct:       p.QuorumPct,
		ApprovalPct:     p.ApprovalPct,
		ExecutionDelay:  p.ExecutionDelay,
		ExecutionWindow: p.ExecutionWindow,
		Votes:           make(map[string]Vote),
		Status:          ProposalPending,
	}
	return nil
}

func (s *State) vote(rec models.Record) error {
	var v models.GovernanceVotePayload
	if err := rec.DecodePayload(&v); err != nil {
		return corrupt(rec, "payload: %v", err)
	}
	p, err := s.proposal(rec, v.ProposalID)
	if err != nil {
		return err
	}
	choice := VoteChoice(v.Choice)
	if !choice.IsValid() {
		return corrupt(rec, "unknown vote choice %q", v.Choice)
	}
	if status := p.StatusAt(rec.BlockTime.Unix()); status != ProposalActive {
		return corrupt(rec, "vote on %s proposal", status)
	}
	if _, voted := p.Votes[rec.Wallet]; voted {
		return corrupt(rec, "%s already voted", rec.Wallet)
	}
	weight := p.Weights[rec.Wallet]
	if weight == 0 {
		return corrupt(rec, "%s has no voting weight", rec.Wallet)
	}
	if rec.Amount != 0 && rec.Amount != weight {
		return corrupt(rec, "vote weight %d does not match snapshot weight %d", rec.Amount, weight)
	}
	switch choice {
	case VoteFor:
		p.VotesFor += weight
	case VoteAgainst:
		p.VotesAgainst += weight
	case VoteAbstain:
		p.VotesAbstain += weight
	}
	p.Votes[rec.Wallet] = Vote{Choice: choice, Weight: weight, Slot: rec.Slot}
	return nil
}

func (s *State) finalize(rec models.Record) error {
	var f models.GovernanceFinalizePayload
	if err := rec.DecodePayload(&f); err != nil {
		return corrupt(rec, "payload: %v", err)
	}
	p, err := s.proposal(rec, f.ProposalID)
	if err != nil {
		return err
	}
	if p.Status != ProposalPending {
		return corrupt(rec, "finalize of %s proposal", p.Status)
	}
	if rec.BlockTime.Unix() <= p.VotingEnds {
		return corrupt(rec, "finalize before voting ends")
	}
	if quorum, approval := p.Outcome(); quorum && approval {
		p.Status = ProposalPassed
	} else {
		p.Status = ProposalFailed
	}
	return nil
}

func (s *State) cancelProposal(rec models.Record) error {
	var c models.GovernanceCancelPayload
	if err := rec.DecodePayload(&c); err != nil {
		return corrupt(rec, "payload: %v", err)
	}
	p, err := s.proposal(rec, c.ProposalID)
	if err != nil {
		return err
	}
	if p.Status != ProposalPending {
		return corrupt(rec, "cancel of %s proposal", p.Status)
	}
	if rec.Wallet != p.Proposer {
		return corrupt(rec, "cancel by %s of proposal by %s", rec.Wallet, p.Proposer)
	}
	if rec.BlockTime.Unix() >= p.VotingStarts {
		return corrupt(rec, "cancel after voting started")
	}
	p.Status = ProposalCancelled
	p.CancelReason = c.Reason
	return nil
}

func (s *State) executeProposal(rec models.Record) error {
	var e models.GovernanceExecutePayload
	if err := rec.DecodePayload(&e); err != nil {
		return corrupt(rec, "payload: %v", err)
	}
	p, err := s.proposal(rec, e.ProposalID)
	if err != nil {
		return err
	}
	at := rec.BlockTime.Unix()
	if !p.ExecutableAt(at) {
		return corrupt(rec, "%s proposal is not executable at %d", p.Status, at)
	}
	if (p.Action == nil) != (e.RecordID == 0) {
		return corrupt(rec, "action record %d does not match the proposal action", e.RecordID)
	}
	p.Status = ProposalExecuted
	p.ExecutedAt = at
	p.ActionRecordID = e.RecordID
	return nil
}

// ProposalList returns proposals ordered by snapshot slot then id.
func (s *State) ProposalList() []Proposal {
	out := make([]Proposal, 0, len(s.Proposals))
	for _, p := range s.Proposals {
		out = append(out, *p.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SnapshotSlot != out[j].SnapshotSlot {
			return out[i].SnapshotSlot < out[j].SnapshotSlot
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}
