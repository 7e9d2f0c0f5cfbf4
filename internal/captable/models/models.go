// Package models holds the request and result types of the token service.
package models

import (
	"errors"
	"time"

	ledger "captable/internal/ledger/models"
	"captable/internal/vesting"
	id "captable/pkg/domain"
)

// Business-rule rejections. They never leave state behind.
var (
	ErrInsufficientVestedBalance = errors.New("insufficient vested balance")
	ErrInsufficientBalance       = errors.New("insufficient transferable balance")
	ErrNotAllowlisted            = errors.New("wallet is not allowlisted")
	ErrPaused                    = errors.New("token is paused")
	ErrTokenHalted               = errors.New("token writes halted pending log audit")
)

// SlotQuery selects a historical slot or the live head.
type SlotQuery struct {
	Slot int64
	Live bool
}

func AtSlot(slot int64) SlotQuery { return SlotQuery{Slot: slot} }

func Live() SlotQuery { return SlotQuery{Live: true} }

// Target is the projector target: -1 for live.
func (q SlotQuery) Target() int64 {
	if q.Live {
		return -1
	}
	return q.Slot
}

// CreateToken opens a new token log. A nil TokenID is generated.
type CreateToken struct {
	TokenID   id.TokenID
	Symbol    string
	Name      string
	Decimals  int
	Signers   []string
	Threshold int
}

// VestingGrant creates a schedule and escrows its total to the beneficiary.
type VestingGrant struct {
	Beneficiary     string
	Total           int64
	StartTime       time.Time
	CliffSeconds    int64
	DurationSeconds int64
	Interval        vesting.Interval
	Revocable       bool
}

// DividendRound opens a round whose entitlements are fixed at its slot.
type DividendRound struct {
	PaymentToken string
	Pool         int64
	// ExpiresAt is optional; the zero time never expires.
	ExpiresAt time.Time
}

// GovernanceProposal puts a question to a holder vote. Action is optional
// and limited to pause, resume, stock_split and symbol_change.
type GovernanceProposal struct {
	Proposer    string
	Description string
	Action      *ledger.InstructionPayload
}

// HistoryQuery pages a token's records.
type HistoryQuery struct {
	TokenID  id.TokenID
	FromSlot int64
	// ToSlot is inclusive; negative means the head.
	ToSlot int64
	Types  []ledger.RecordType
	After  ledger.Position
	Limit  int
}

// HistoryPage is one page of records. Next is nil on the last page.
type HistoryPage struct {
	Records []ledger.Record  `json:"records"`
	Next    *ledger.Position `json:"next,omitempty"`
}

// Release is the outcome of a vesting release.
type Release struct {
	ScheduleID id.ScheduleID `json:"schedule_id"`
	Amount     int64         `json:"amount"`
	Released   int64         `json:"released_total"`
	Record     ledger.Record `json:"record"`
}
