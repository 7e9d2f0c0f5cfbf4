package models

import (
	"encoding/json"
	"errors"
	"time"

	id "captable/pkg/domain"
)

// RecordType tags a transaction record and selects its payload schema.
type RecordType string

const (
	TypeTokenCreate           RecordType = "TOKEN_CREATE"
	TypeApproval              RecordType = "APPROVAL"
	TypeRevocation            RecordType = "REVOCATION"
	TypeShareGrant            RecordType = "SHARE_GRANT"
	TypeMint                  RecordType = "MINT"
	TypeBurn                  RecordType = "BURN"
	TypeTransfer              RecordType = "TRANSFER"
	TypeVestingScheduleCreate RecordType = "VESTING_SCHEDULE_CREATE"
	TypeVestingRelease        RecordType = "VESTING_RELEASE"
	TypeVestingTerminate      RecordType = "VESTING_TERMINATE"
	TypeStockSplit            RecordType = "STOCK_SPLIT"
	TypeSymbolChange          RecordType = "SYMBOL_CHANGE"
	TypePause                 RecordType = "PAUSE"
	TypeResume                RecordType = "RESUME"
	TypeThresholdUpdate       RecordType = "THRESHOLD_UPDATE"
	TypeMultisigPropose       RecordType = "MULTISIG_PROPOSE"
	TypeMultisigApprove       RecordType = "MULTISIG_APPROVE"
	TypeMultisigExecute       RecordType = "MULTISIG_EXECUTE"
	TypeMultisigCancel        RecordType = "MULTISIG_CANCEL"
	TypeDividendRoundCreate   RecordType = "DIVIDEND_ROUND_CREATE"
	TypeDividendClaim         RecordType = "DIVIDEND_CLAIM"
	TypeGovernancePropose     RecordType = "GOVERNANCE_PROPOSE"
	TypeGovernanceVote        RecordType = "GOVERNANCE_VOTE"
	TypeGovernanceFinalize    RecordType = "GOVERNANCE_FINALIZE"
	TypeGovernanceCancel      RecordType = "GOVERNANCE_CANCEL"
	TypeGovernanceExecute     RecordType = "GOVERNANCE_EXECUTE"
)

// AllTypes lists every known record type in declaration order.
var AllTypes = []RecordType{
	TypeTokenCreate, TypeApproval, TypeRevocation, TypeShareGrant, TypeMint, TypeBurn,
	TypeTransfer, TypeVestingScheduleCreate, TypeVestingRelease, TypeVestingTerminate,
	TypeStockSplit, TypeSymbolChange, TypePause, TypeResume, TypeThresholdUpdate,
	TypeMultisigPropose, TypeMultisigApprove, TypeMultisigExecute, TypeMultisigCancel,
	TypeDividendRoundCreate, TypeDividendClaim,
	TypeGovernancePropose, TypeGovernanceVote, TypeGovernanceFinalize,
	TypeGovernanceCancel, TypeGovernanceExecute,
}

func (t RecordType) IsValid() bool {
	for _, known := range AllTypes {
		if t == known {
			return true
		}
	}
	return false
}

// IsGated reports whether records of this type may only enter the log after
// passing the multi-signature gate (or from the chain indexer).
func (t RecordType) IsGated() bool {
	switch t {
	case TypeStockSplit, TypeSymbolChange, TypePause, TypeResume,
		TypeThresholdUpdate, TypeVestingTerminate:
		return true
	}
	return false
}

// RequiresAmount reports whether Amount must be strictly positive.
func (t RecordType) RequiresAmount() bool {
	switch t {
	case TypeShareGrant, TypeMint, TypeBurn, TypeTransfer,
		TypeVestingScheduleCreate, TypeVestingRelease, TypeDividendRoundCreate:
		return true
	}
	return false
}

// RequiresWallet reports whether Wallet must be set.
func (t RecordType) RequiresWallet() bool {
	switch t {
	case TypeApproval, TypeRevocation, TypeShareGrant, TypeMint, TypeBurn, TypeTransfer,
		TypeVestingScheduleCreate, TypeVestingRelease, TypeDividendClaim,
		TypeGovernancePropose, TypeGovernanceVote, TypeGovernanceCancel:
		return true
	}
	return false
}

// TriggeredBy identifies the actor class that caused a record.
type TriggeredBy string

const (
	TriggeredByAdmin  TriggeredBy = "admin"
	TriggeredByWallet TriggeredBy = "wallet"
	TriggeredBySystem TriggeredBy = "system"
)

func (t TriggeredBy) IsValid() bool {
	return t == TriggeredByAdmin || t == TriggeredByWallet || t == TriggeredBySystem
}

// Record is one immutable entry of a token's event log.
//
// Ordering is (Slot, ID). Seq is the 1-based position within the token's log
// and links records into a hash chain through PrevHash/Hash. CreatedAt is
// informational; BlockTime is the deterministic clock used for vesting.
type Record struct {
	ID           int64           `json:"id"`
	TokenID      id.TokenID      `json:"token_id"`
	Seq          int64           `json:"seq"`
	Slot         int64           `json:"slot"`
	BlockTime    time.Time       `json:"block_time"`
	Type         RecordType      `json:"tx_type"`
	Wallet       string          `json:"wallet,omitempty"`
	WalletTo     string          `json:"wallet_to,omitempty"`
	Amount       int64           `json:"amount,omitempty"`
	ShareClassID *int64          `json:"share_class_id,omitempty"`
	Payload      json.RawMessage `json:"payload,omitempty"`
	ReferenceID  string          `json:"reference_id,omitempty"`
	TxSignature  string          `json:"tx_signature,omitempty"`
	TriggeredBy  TriggeredBy     `json:"triggered_by"`
	CreatedAt    time.Time       `json:"created_at"`
	PrevHash     string          `json:"prev_hash,omitempty"`
	Hash         string          `json:"hash,omitempty"`
}

// Position is a cursor into a token's log.
type Position struct {
	Slot int64 `json:"slot"`
	Seq  int64 `json:"seq"`
}

// Position returns the record's cursor.
func (r Record) Position() Position {
	return Position{Slot: r.Slot, Seq: r.Seq}
}

// DecodePayload unmarshals the record payload into dst.
func (r Record) DecodePayload(dst any) error {
	if len(r.Payload) == 0 {
		return nil
	}
	return json.Unmarshal(r.Payload, dst)
}

// WithPayload marshals v into the record payload.
func (r Record) WithPayload(v any) (Record, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return r, err
	}
	r.Payload = raw
	return r, nil
}

// ErrInvalidRecord marks structural rejections by the log. Records failing
// with it never changed any state and can be retried once fixed.
var ErrInvalidRecord = errors.New("invalid record")
