package handler

import (
	ledgermodels "captable/internal/ledger/models"
	id "captable/pkg/domain"
)

// TokenResponse is returned by POST /tokens.
type TokenResponse struct {
	TokenID id.TokenID          `json:"token_id"`
	Record  ledgermodels.Record `json:"record"`
}

// RecordResponse wraps the record a write appended.
type RecordResponse struct {
	Record ledgermodels.Record `json:"record"`
}

// AppendResponse carries the id of an appended raw record.
type AppendResponse struct {
	ID int64 `json:"id"`
}

// ScheduleResponse is returned when a vesting schedule is created.
type ScheduleResponse struct {
	ScheduleID id.ScheduleID `json:"schedule_id"`
}

// ClaimResponse is the amount paid by a dividend claim.
type ClaimResponse struct {
	RoundID id.RoundID `json:"round_id"`
	Wallet  string     `json:"wallet"`
	Amount  int64      `json:"amount"`
}

// ProposalResponse carries the id of a new pending transaction.
type ProposalResponse struct {
	TxID string `json:"tx_id"`
}

// VotingPowerResponse is the weight a wallet would carry on a new proposal.
type VotingPowerResponse struct {
	Wallet string `json:"wallet"`
	Power  int64  `json:"power"`
}
