package handler

import (
	"encoding/json"
	"strings"
	"time"

	"captable/internal/captable/models"
	ledgermodels "captable/internal/ledger/models"
	msmodels "captable/internal/multisig/models"
	"captable/internal/vesting"
	id "captable/pkg/domain"
	dErrors "captable/pkg/domain-errors"
)

func requireWallet(field, value string) error {
	if _, err := id.ParseWallet(value); err != nil {
		return dErrors.New(dErrors.CodeValidation, field+" must be a valid wallet address")
	}
	return nil
}

func requirePositive(field string, v int64) error {
	if v <= 0 {
		return dErrors.New(dErrors.CodeValidation, field+" must be positive")
	}
	return nil
}

// CreateTokenRequest is the body of POST /tokens.
type CreateTokenRequest struct {
	Symbol    string   `json:"symbol"`
	Name      string   `json:"name"`
	Decimals  int      `json:"decimals"`
	Signers   []string `json:"signers"`
	Threshold int      `json:"threshold"`
}

func (r *CreateTokenRequest) Validate() error {
	r.Symbol = strings.TrimSpace(r.Symbol)
	r.Name = strings.TrimSpace(r.Name)
	if r.Symbol == "" {
		return dErrors.New(dErrors.CodeValidation, "symbol is required")
	}
	if r.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if r.Decimals < 0 || r.Decimals > 18 {
		return dErrors.New(dErrors.CodeValidation, "decimals must be between 0 and 18")
	}
	if len(r.Signers) == 0 {
		return dErrors.New(dErrors.CodeValidation, "signers is required")
	}
	for _, s := range r.Signers {
		if err := requireWallet("signers", s); err != nil {
			return err
		}
	}
	return nil
}

func (r *CreateTokenRequest) toModel() models.CreateToken {
	return models.CreateToken{
		Symbol:    r.Symbol,
		Name:      r.Name,
		Decimals:  r.Decimals,
		Signers:   r.Signers,
		Threshold: r.Threshold,
	}
}

// AppendTransactionRequest is a raw record from a trusted feed.
type AppendTransactionRequest struct {
	Slot         int64                    `json:"slot"`
	BlockTime    *time.Time               `json:"block_time"`
	Type         ledgermodels.RecordType  `json:"tx_type"`
	Wallet       string                   `json:"wallet"`
	WalletTo     string                   `json:"wallet_to"`
	Amount       int64                    `json:"amount"`
	ShareClassID *int64                   `json:"share_class_id"`
	Payload      json.RawMessage          `json:"payload"`
	ReferenceID  string                   `json:"reference_id"`
	TxSignature  string                   `json:"tx_signature"`
	TriggeredBy  ledgermodels.TriggeredBy `json:"triggered_by"`
}

func (r *AppendTransactionRequest) Validate() error {
	if !r.Type.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "unknown tx_type")
	}
	if r.Slot < 0 {
		return dErrors.New(dErrors.CodeValidation, "slot must not be negative")
	}
	if r.TriggeredBy != "" && !r.TriggeredBy.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "triggered_by must be admin, wallet or system")
	}
	if len(r.TxSignature) > 128 {
		return dErrors.New(dErrors.CodeValidation, "tx_signature is too long")
	}
	return nil
}

func (r *AppendTransactionRequest) toRecord(tokenID id.TokenID) ledgermodels.Record {
	rec := ledgermodels.Record{
		TokenID:      tokenID,
		Slot:         r.Slot,
		Type:         r.Type,
		Wallet:       r.Wallet,
		WalletTo:     r.WalletTo,
		Amount:       r.Amount,
		ShareClassID: r.ShareClassID,
		Payload:      r.Payload,
		ReferenceID:  r.ReferenceID,
		TxSignature:  r.TxSignature,
		TriggeredBy:  r.TriggeredBy,
	}
	if r.BlockTime != nil {
		rec.BlockTime = *r.BlockTime
	}
	return rec
}

// WalletRequest names a single wallet (allowlist approval, dividend claim).
type WalletRequest struct {
	Wallet string `json:"wallet"`
}

func (r *WalletRequest) Validate() error {
	return requireWallet("wallet", r.Wallet)
}

// GrantRequest is the body of POST /tokens/{tokenID}/grants.
type GrantRequest struct {
	Wallet string `json:"wallet"`
	Amount int64  `json:"amount"`
}

func (r *GrantRequest) Validate() error {
	if err := requireWallet("wallet", r.Wallet); err != nil {
		return err
	}
	return requirePositive("amount", r.Amount)
}

// TransferRequest is the body of POST /tokens/{tokenID}/transfers. From
// defaults to the caller's wallet.
type TransferRequest struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount int64  `json:"amount"`
}

func (r *TransferRequest) Validate() error {
	if r.From != "" {
		if err := requireWallet("from", r.From); err != nil {
			return err
		}
	}
	if err := requireWallet("to", r.To); err != nil {
		return err
	}
	return requirePositive("amount", r.Amount)
}

// VestingScheduleRequest is the body of POST /tokens/{tokenID}/vesting.
type VestingScheduleRequest struct {
	Beneficiary     string    `json:"beneficiary"`
	Total           int64     `json:"total"`
	StartTime       time.Time `json:"start_time"`
	CliffSeconds    int64     `json:"cliff_seconds"`
	DurationSeconds int64     `json:"duration_seconds"`
	Interval        string    `json:"interval"`
	Revocable       bool      `json:"revocable"`
}

func (r *VestingScheduleRequest) Validate() error {
	if err := requireWallet("beneficiary", r.Beneficiary); err != nil {
		return err
	}
	if err := requirePositive("total", r.Total); err != nil {
		return err
	}
	if r.StartTime.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "start_time is required")
	}
	if err := requirePositive("duration_seconds", r.DurationSeconds); err != nil {
		return err
	}
	if _, ok := vesting.Interval(r.Interval).Seconds(); !ok {
		return dErrors.New(dErrors.CodeValidation, "interval must be minute, hour, day or month")
	}
	return nil
}

func (r *VestingScheduleRequest) toModel() models.VestingGrant {
	return models.VestingGrant{
		Beneficiary:     r.Beneficiary,
		Total:           r.Total,
		StartTime:       r.StartTime,
		CliffSeconds:    r.CliffSeconds,
		DurationSeconds: r.DurationSeconds,
		Interval:        vesting.Interval(r.Interval),
		Revocable:       r.Revocable,
	}
}

// ReleaseRequest is the body of POST .../vesting/{scheduleID}/release. A
// zero amount releases everything releasable.
type ReleaseRequest struct {
	Amount int64      `json:"amount"`
	AsOf   *time.Time `json:"as_of"`
}

func (r *ReleaseRequest) Validate() error {
	if r.Amount < 0 {
		return dErrors.New(dErrors.CodeValidation, "amount must not be negative")
	}
	return nil
}

func (r *ReleaseRequest) asOf() time.Time {
	if r.AsOf == nil {
		return time.Time{}
	}
	return *r.AsOf
}

// DividendRoundRequest is the body of POST /tokens/{tokenID}/dividends.
type DividendRoundRequest struct {
	PaymentToken string     `json:"payment_token"`
	Pool         int64      `json:"pool"`
	ExpiresAt    *time.Time `json:"expires_at"`
}

func (r *DividendRoundRequest) Validate() error {
	r.PaymentToken = strings.TrimSpace(r.PaymentToken)
	if r.PaymentToken == "" || len(r.PaymentToken) > 44 {
		return dErrors.New(dErrors.CodeValidation, "payment_token must be 1 to 44 characters")
	}
	return requirePositive("pool", r.Pool)
}

func (r *DividendRoundRequest) toModel() models.DividendRound {
	round := models.DividendRound{PaymentToken: r.PaymentToken, Pool: r.Pool}
	if r.ExpiresAt != nil {
		round.ExpiresAt = *r.ExpiresAt
	}
	return round
}

// ProposeRequest is the body of POST .../multisig/proposals. Proposer
// defaults to the caller's wallet.
type ProposeRequest struct {
	Proposer    string               `json:"proposer"`
	Instruction msmodels.Instruction `json:"instruction"`
}

func (r *ProposeRequest) Validate() error {
	if r.Proposer != "" {
		if err := requireWallet("proposer", r.Proposer); err != nil {
			return err
		}
	}
	if r.Instruction.Kind == "" {
		return dErrors.New(dErrors.CodeValidation, "instruction.kind is required")
	}
	return nil
}

// SignerRequest carries the signing wallet of an approval or cancellation.
// Signer defaults to the caller's wallet.
type SignerRequest struct {
	Signer string `json:"signer"`
	Reason string `json:"reason"`
}

func (r *SignerRequest) Validate() error {
	if r.Signer != "" {
		if err := requireWallet("signer", r.Signer); err != nil {
			return err
		}
	}
	if len(r.Reason) > 256 {
		return dErrors.New(dErrors.CodeValidation, "reason must be at most 256 characters")
	}
	return nil
}

// ThresholdRequest is the body of PUT .../multisig/threshold.
type ThresholdRequest struct {
	Threshold int    `json:"threshold"`
	Nonce     uint64 `json:"nonce"`
}

func (r *ThresholdRequest) Validate() error {
	if r.Threshold < 1 {
		return dErrors.New(dErrors.CodeValidation, "threshold must be at least 1")
	}
	return nil
}

// GovernanceProposalRequest is the body of POST .../governance/proposals.
// Proposer defaults to the caller's wallet.
type GovernanceProposalRequest struct {
	Proposer    string                `json:"proposer"`
	Description string                `json:"description"`
	Action      *msmodels.Instruction `json:"action"`
}

func (r *GovernanceProposalRequest) Validate() error {
	r.Description = strings.TrimSpace(r.Description)
	if r.Proposer != "" {
		if err := requireWallet("proposer", r.Proposer); err != nil {
			return err
		}
	}
	if r.Description == "" || len(r.Description) > 500 {
		return dErrors.New(dErrors.CodeValidation, "description must be 1 to 500 characters")
	}
	if r.Action != nil && r.Action.Kind == "" {
		return dErrors.New(dErrors.CodeValidation, "action.kind is required")
	}
	return nil
}

func (r *GovernanceProposalRequest) toModel(proposer string) models.GovernanceProposal {
	return models.GovernanceProposal{Proposer: proposer, Description: r.Description, Action: r.Action}
}

// VoteRequest is the body of POST .../governance/proposals/{proposalID}/votes.
// Voter defaults to the caller's wallet.
type VoteRequest struct {
	Voter  string `json:"voter"`
	Choice string `json:"choice"`
}

func (r *VoteRequest) Validate() error {
	if r.Voter != "" {
		if err := requireWallet("voter", r.Voter); err != nil {
			return err
		}
	}
	switch r.Choice {
	case "for", "against", "abstain":
		return nil
	}
	return dErrors.New(dErrors.CodeValidation, "choice must be for, against or abstain")
}
