package models

// Payload variants, one per record type that carries structured data. Times are
// unix seconds so that the canonical form hashes identically on every backend.

type TokenCreatePayload struct {
	Symbol    string   `json:"symbol"`
	Name      string   `json:"name"`
	Decimals  int      `json:"decimals"`
	Signers   []string `json:"signers"`
	Threshold int      `json:"threshold"`
}

type StockSplitPayload struct {
	Numerator   int64 `json:"numerator"`
	Denominator int64 `json:"denominator"`
}

type SymbolChangePayload struct {
	NewSymbol string `json:"new_symbol"`
}

// PausePayload is shared by PAUSE and RESUME.
type PausePayload struct {
	Reason string `json:"reason,omitempty"`
}

type ThresholdUpdatePayload struct {
	Threshold int      `json:"threshold"`
	Signers   []string `json:"signers"`
	Nonce     uint64   `json:"nonce"`
}

type VestingSchedulePayload struct {
	ScheduleID      string `json:"schedule_id"`
	StartTime       int64  `json:"start_time"`
	CliffSeconds    int64  `json:"cliff_seconds"`
	DurationSeconds int64  `json:"duration_seconds"`
	Interval        string `json:"interval"`
	Revocable       bool   `json:"revocable"`
}

type VestingReleasePayload struct {
	ScheduleID string `json:"schedule_id"`
}

type VestingTerminatePayload struct {
	ScheduleID      string `json:"schedule_id"`
	TerminationType string `json:"termination_type"`
	TerminatedAt    int64  `json:"terminated_at"`
	// TreasuryWallet receives forfeited shares; empty burns them.
	TreasuryWallet string `json:"treasury_wallet,omitempty"`
}

// InstructionPayload mirrors a gated admin instruction. Exactly one variant is set.
type InstructionPayload struct {
	Kind             string                   `json:"kind"`
	Pause            *PausePayload            `json:"pause,omitempty"`
	Resume           *PausePayload            `json:"resume,omitempty"`
	StockSplit       *StockSplitPayload       `json:"stock_split,omitempty"`
	SymbolChange     *SymbolChangePayload     `json:"symbol_change,omitempty"`
	ThresholdUpdate  *ThresholdChange         `json:"threshold_update,omitempty"`
	UpdateSigners    *ThresholdChange         `json:"update_signers,omitempty"`
	VestingTerminate *VestingTerminatePayload `json:"vesting_terminate,omitempty"`
}

// ThresholdChange is the requested config; the nonce is assigned on execution.
type ThresholdChange struct {
	Threshold int      `json:"threshold"`
	Signers   []string `json:"signers,omitempty"`
}

type MultisigProposePayload struct {
	TxID        string             `json:"tx_id"`
	Nonce       uint64             `json:"nonce"`
	Instruction InstructionPayload `json:"instruction"`
	CreatedAt   int64              `json:"created_at"`
	ExpiresAt   int64              `json:"expires_at,omitempty"`
}

type MultisigApprovePayload struct {
	TxID string `json:"tx_id"`
}

type MultisigExecutePayload struct {
	TxID     string `json:"tx_id"`
	RecordID int64  `json:"record_id"`
}

type MultisigCancelPayload struct {
	TxID   string `json:"tx_id"`
	Reason string `json:"reason,omitempty"`
}

type DividendRoundPayload struct {
	RoundID      string `json:"round_id"`
	PaymentToken string `json:"payment_token"`
	ExpiresAt    int64  `json:"expires_at,omitempty"`
}

type DividendClaimPayload struct {
	RoundID string `json:"round_id"`
}

// GovernanceProposePayload freezes the voting rules in force when the
// proposal was made. Action, when set, is limited to pause, resume,
// stock_split and symbol_change.
type GovernanceProposePayload struct {
	ProposalID      string              `json:"proposal_id"`
	Description     string              `json:"description"`
	Action          *InstructionPayload `json:"action,omitempty"`
	VotingStarts    int64               `json:"voting_starts"`
	VotingEnds      int64               `json:"voting_ends"`
	QuorumPct       int64               `json:"quorum_pct"`
	ApprovalPct     int64               `json:"approval_pct"`
	ExecutionDelay  int64               `json:"execution_delay"`
	ExecutionWindow int64               `json:"execution_window,omitempty"`
}

type GovernanceVotePayload struct {
	ProposalID string `json:"proposal_id"`
	Choice     string `json:"choice"`
}

type GovernanceFinalizePayload struct {
	ProposalID string `json:"proposal_id"`
}

type GovernanceCancelPayload struct {
	ProposalID string `json:"proposal_id"`
	Reason     string `json:"reason,omitempty"`
}

// GovernanceExecutePayload points at the action record the proposal wrote;
// RecordID is empty for proposals without an action.
type GovernanceExecutePayload struct {
	ProposalID string `json:"proposal_id"`
	RecordID   int64  `json:"record_id,omitempty"`
}
