package models

import (
	"errors"
	"slices"
	"time"

	ledger "captable/internal/ledger/models"
)

// Gate workflow errors. None of them leave partial state behind.
var (
	ErrNotASigner         = errors.New("not a signer")
	ErrAlreadyApproved    = errors.New("already approved")
	ErrExpired            = errors.New("pending transaction expired")
	ErrStaleNonce         = errors.New("stale nonce")
	ErrNotExecutable      = errors.New("not executable")
	ErrInvalidThreshold   = errors.New("invalid threshold")
	ErrInvalidInstruction = errors.New("invalid instruction")
	ErrTxNotFound         = errors.New("pending transaction not found")
	ErrNotCancellable     = errors.New("pending transaction cannot be cancelled")
	ErrNotInitialized     = errors.New("multi-sig not configured")
)

// Config is the signer set and approval threshold. Nonce increments on every
// threshold or signer change.
type Config struct {
	Signers   []string `json:"signers"`
	Threshold int      `json:"threshold"`
	Nonce     uint64   `json:"nonce"`
}

func (c Config) IsSigner(wallet string) bool {
	return slices.Contains(c.Signers, wallet)
}

// Validate enforces 1 <= threshold <= |signers| over a duplicate-free set.
func (c Config) Validate() error {
	if len(c.Signers) == 0 {
		return errors.Join(ErrInvalidThreshold, errors.New("signer set is empty"))
	}
	seen := make(map[string]struct{}, len(c.Signers))
	for _, s := range c.Signers {
		if _, dup := seen[s]; dup {
			return errors.Join(ErrInvalidThreshold, errors.New("duplicate signer "+s))
		}
		seen[s] = struct{}{}
	}
	if c.Threshold < 1 || c.Threshold > len(c.Signers) {
		return ErrInvalidThreshold
	}
	return nil
}

// Clone returns a deep copy.
func (c Config) Clone() Config {
	c.Signers = slices.Clone(c.Signers)
	return c
}

// State of a pending transaction. Expired is derived lazily from ExpiresAt.
type State string

const (
	StateProposed   State = "proposed"
	StateExecutable State = "executable"
	StateExecuted   State = "executed"
	StateExpired    State = "expired"
	StateRejected   State = "rejected"
)

func (s State) IsTerminal() bool {
	return s == StateExecuted || s == StateExpired || s == StateRejected
}

// InstructionKind names the admin action a proposal carries.
type InstructionKind string

const (
	KindPause            InstructionKind = "pause"
	KindResume           InstructionKind = "resume"
	KindStockSplit       InstructionKind = "stock_split"
	KindSymbolChange     InstructionKind = "symbol_change"
	KindThresholdUpdate  InstructionKind = "threshold_update"
	KindUpdateSigners    InstructionKind = "update_signers"
	KindVestingTerminate InstructionKind = "vesting_terminate"
)

// Instruction is the tagged union persisted in MULTISIG_PROPOSE payloads.
type Instruction = ledger.InstructionPayload

// ExecutionResult is what Execute returns, including on re-execution.
type ExecutionResult struct {
	TxID       string            `json:"tx_id"`
	RecordID   int64             `json:"record_id"`
	RecordType ledger.RecordType `json:"record_type"`
	Seq        int64             `json:"seq"`
	Slot       int64             `json:"slot"`
}

// PendingTx is one proposal and its approvals.
type PendingTx struct {
	ID          string           `json:"id"`
	Instruction Instruction      `json:"instruction"`
	Proposer    string           `json:"proposer"`
	Approvals   []string         `json:"approvals"`
	Nonce       uint64           `json:"nonce"`
	CreatedAt   time.Time        `json:"created_at"`
	ExpiresAt   time.Time        `json:"expires_at,omitzero"`
	State       State            `json:"state"`
	Result      *ExecutionResult `json:"result,omitempty"`
	// CancelReason is set when the proposal was cancelled.
	CancelReason string `json:"cancel_reason,omitempty"`
}

func (p PendingTx) HasApproved(wallet string) bool {
	return slices.Contains(p.Approvals, wallet)
}

// ExpiredAt reports whether the proposal is past its expiry at now.
func (p PendingTx) ExpiredAt(now time.Time) bool {
	return !p.ExpiresAt.IsZero() && now.After(p.ExpiresAt)
}

// Clone returns a deep copy.
func (p PendingTx) Clone() PendingTx {
	p.Approvals = slices.Clone(p.Approvals)
	if p.Result != nil {
		r := *p.Result
		p.Result = &r
	}
	return p
}

// GateState is the caller-facing view of a pending transaction.
type GateState struct {
	TxID           string   `json:"tx_id"`
	State          State    `json:"state"`
	Approvals      []string `json:"signers_approved"`
	Pending        []string `json:"signers_pending"`
	Threshold      int      `json:"threshold"`
	Nonce          uint64   `json:"nonce"`
	Stale          bool     `json:"stale"`
	ApprovalsCount int      `json:"approvals_count"`
}
