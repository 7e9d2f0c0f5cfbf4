package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"captable/internal/captable/models"
	"captable/internal/corpaction"
	ledgermodels "captable/internal/ledger/models"
	msmodels "captable/internal/multisig/models"
	"captable/internal/vesting"
	id "captable/pkg/domain"
	dErrors "captable/pkg/domain-errors"
	"captable/pkg/requestcontext"
)

func parseWallets(wallets ...string) error {
	for _, w := range wallets {
		if _, err := id.ParseWallet(w); err != nil {
			return err
		}
	}
	return nil
}

// checkAllowed requires every wallet on the on-log allowlist and, when an
// external checker is configured, on that too.
func (s *Service) checkAllowed(ctx context.Context, w *work, wallets ...string) error {
	for _, wallet := range wallets {
		if !w.view.state.Allowlist[wallet] {
			return fmt.Errorf("%w: %s", models.ErrNotAllowlisted, wallet)
		}
		if s.allowlist == nil {
			continue
		}
		ok, err := s.allowlist.IsAllowed(ctx, w.tokenID, wallet)
		if err != nil {
			return fmt.Errorf("check kyc allowlist: %w", err)
		}
		if !ok {
			return fmt.Errorf("%w: %s has no active kyc clearance", models.ErrNotAllowlisted, wallet)
		}
	}
	return nil
}

// CreateToken writes the TOKEN_CREATE record carrying the initial multi-sig
// configuration.
func (s *Service) CreateToken(ctx context.Context, cmd models.CreateToken) (ledgermodels.Record, error) {
	if err := requireRole(ctx, requestcontext.RoleAdmin, requestcontext.RoleSystem); err != nil {
		return ledgermodels.Record{}, err
	}
	if err := corpaction.ValidateSymbol(cmd.Symbol); err != nil {
		return ledgermodels.Record{}, translate(err)
	}
	if cmd.Name == "" {
		return ledgermodels.Record{}, dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if err := parseWallets(cmd.Signers...); err != nil {
		return ledgermodels.Record{}, err
	}
	if err := (msmodels.Config{Signers: cmd.Signers, Threshold: cmd.Threshold}).Validate(); err != nil {
		return ledgermodels.Record{}, translate(err)
	}
	if cmd.TokenID.IsNil() {
		cmd.TokenID = id.TokenID(uuid.New())
	}

	var out ledgermodels.Record
	err := s.write(ctx, "create_token", cmd.TokenID, func(ctx context.Context, w *work) error {
		if w.view.state.Created {
			return dErrors.New(dErrors.CodeConflict, "token already exists")
		}
		draft, err := ledgermodels.Record{
			Type:        ledgermodels.TypeTokenCreate,
			Slot:        w.slot,
			TriggeredBy: triggeredBy(ctx),
		}.WithPayload(ledgermodels.TokenCreatePayload{
			Symbol:    cmd.Symbol,
			Name:      cmd.Name,
			Decimals:  cmd.Decimals,
			Signers:   cmd.Signers,
			Threshold: cmd.Threshold,
		})
		if err != nil {
			return err
		}
		out, err = w.append(ctx, draft)
		return err
	})
	if err != nil {
		return ledgermodels.Record{}, err
	}
	s.logAudit(ctx, "token_created",
		"token_id", cmd.TokenID.String(),
		"symbol", cmd.Symbol,
		"threshold", cmd.Threshold,
	)
	return out, nil
}

// AppendTransaction accepts a record from a trusted feed such as the chain
// indexer. Gated types are admitted only from system callers and gate
// records only from the gate itself. Issuance and allowlist records need an
// admin or system caller; wallet movements need a caller acting for the
// source wallet and pass the same checks as the typed operations.
func (s *Service) AppendTransaction(ctx context.Context, rec ledgermodels.Record) (int64, error) {
	switch rec.Type {
	case ledgermodels.TypeMultisigPropose, ledgermodels.TypeMultisigApprove,
		ledgermodels.TypeMultisigExecute, ledgermodels.TypeMultisigCancel:
		return 0, dErrors.New(dErrors.CodeForbidden, "multi-sig records are written by the gate")
	case ledgermodels.TypeGovernancePropose, ledgermodels.TypeGovernanceVote, ledgermodels.TypeGovernanceFinalize,
		ledgermodels.TypeGovernanceCancel, ledgermodels.TypeGovernanceExecute:
		return 0, dErrors.New(dErrors.CodeForbidden, "governance records are written by the governance operations")
	}
	if rec.TokenID.IsNil() {
		return 0, dErrors.New(dErrors.CodeValidation, "token id is required")
	}
	if rec.Type.IsGated() && requestcontext.CallerRole(ctx) != requestcontext.RoleSystem {
		return 0, dErrors.New(dErrors.CodeForbidden, fmt.Sprintf("%s must pass the multi-sig gate", rec.Type))
	}
	switch rec.Type {
	case ledgermodels.TypeTokenCreate, ledgermodels.TypeApproval, ledgermodels.TypeRevocation,
		ledgermodels.TypeShareGrant, ledgermodels.TypeMint, ledgermodels.TypeBurn,
		ledgermodels.TypeVestingScheduleCreate, ledgermodels.TypeDividendRoundCreate:
		if err := requireRole(ctx, requestcontext.RoleAdmin, requestcontext.RoleSystem); err != nil {
			return 0, err
		}
	case ledgermodels.TypeTransfer, ledgermodels.TypeVestingRelease, ledgermodels.TypeDividendClaim:
		if err := actsFor(ctx, rec.Wallet); err != nil {
			return 0, err
		}
	}
	if rec.TriggeredBy == "" {
		rec.TriggeredBy = triggeredBy(ctx)
	}

	var stored ledgermodels.Record
	err := s.write(ctx, "append_transaction", rec.TokenID, func(ctx context.Context, w *work) error {
		if rec.Type != ledgermodels.TypeTokenCreate {
			if err := requireToken(w.view); err != nil {
				return err
			}
		}
		switch rec.Type {
		case ledgermodels.TypeTransfer:
			if w.view.state.Paused {
				return models.ErrPaused
			}
			if err := s.checkAllowed(ctx, w, rec.Wallet, rec.WalletTo); err != nil {
				return err
			}
			if available := w.view.state.Transferable(rec.Wallet); available < rec.Amount {
				return fmt.Errorf("%w: %d requested, %d transferable", models.ErrInsufficientBalance, rec.Amount, available)
			}
		case ledgermodels.TypeVestingRelease:
			if err := checkRelease(w, rec); err != nil {
				return err
			}
		case ledgermodels.TypeShareGrant, ledgermodels.TypeMint:
			if err := s.checkAllowed(ctx, w, rec.Wallet); err != nil {
				return err
			}
		}
		var err error
		stored, err = w.append(ctx, rec)
		return err
	})
	if err != nil {
		return 0, err
	}
	return stored.ID, nil
}

// checkRelease holds a fed VESTING_RELEASE to what has vested by its block
// time.
func checkRelease(w *work, rec ledgermodels.Record) error {
	var p ledgermodels.VestingReleasePayload
	if err := rec.DecodePayload(&p); err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "invalid vesting release payload")
	}
	sched, ok := w.view.state.Schedules[p.ScheduleID]
	if !ok {
		return dErrors.New(dErrors.CodeNotFound, "vesting schedule not found")
	}
	if sched.Beneficiary != rec.Wallet {
		return dErrors.New(dErrors.CodeForbidden, "release must be made by the schedule beneficiary")
	}
	if w.view.state.Paused {
		return models.ErrPaused
	}
	at := rec.BlockTime
	if at.IsZero() {
		at = w.now
	}
	if at.After(w.now) {
		return dErrors.New(dErrors.CodeValidation, "block time must not be in the future")
	}
	if releasable := vesting.Releasable(*sched, at); rec.Amount <= 0 || rec.Amount > releasable {
		return fmt.Errorf("%w: %d requested, %d releasable", models.ErrInsufficientVestedBalance, rec.Amount, releasable)
	}
	return nil
}

// GrantShares issues new shares to an allowlisted wallet.
func (s *Service) GrantShares(ctx context.Context, tokenID id.TokenID, wallet string, amount int64) (ledgermodels.Record, error) {
	if err := requireRole(ctx, requestcontext.RoleAdmin, requestcontext.RoleSystem); err != nil {
		return ledgermodels.Record{}, err
	}
	if err := parseWallets(wallet); err != nil {
		return ledgermodels.Record{}, err
	}
	if amount <= 0 {
		return ledgermodels.Record{}, dErrors.New(dErrors.CodeValidation, "amount must be positive")
	}
	var out ledgermodels.Record
	err := s.write(ctx, "grant_shares", tokenID, func(ctx context.Context, w *work) error {
		if err := requireToken(w.view); err != nil {
			return err
		}
		if err := s.checkAllowed(ctx, w, wallet); err != nil {
			return err
		}
		var err error
		out, err = w.append(ctx, ledgermodels.Record{
			Type:        ledgermodels.TypeShareGrant,
			Slot:        w.slot,
			Wallet:      wallet,
			Amount:      amount,
			TriggeredBy: triggeredBy(ctx),
		})
		return err
	})
	if err != nil {
		return ledgermodels.Record{}, err
	}
	s.logAudit(ctx, "shares_granted", "token_id", tokenID.String(), "wallet", wallet, "amount", amount)
	return out, nil
}

// Transfer moves unlocked shares between two allowlisted wallets.
func (s *Service) Transfer(ctx context.Context, tokenID id.TokenID, from, to string, amount int64) (ledgermodels.Record, error) {
	if err := parseWallets(from, to); err != nil {
		return ledgermodels.Record{}, err
	}
	if err := actsFor(ctx, from); err != nil {
		return ledgermodels.Record{}, err
	}
	if from == to {
		return ledgermodels.Record{}, dErrors.New(dErrors.CodeValidation, "source and destination must differ")
	}
	if amount <= 0 {
		return ledgermodels.Record{}, dErrors.New(dErrors.CodeValidation, "amount must be positive")
	}
	var out ledgermodels.Record
	err := s.write(ctx, "transfer", tokenID, func(ctx context.Context, w *work) error {
		if err := requireToken(w.view); err != nil {
			return err
		}
		if w.view.state.Paused {
			return models.ErrPaused
		}
		if err := s.checkAllowed(ctx, w, from, to); err != nil {
			return err
		}
		if available := w.view.state.Transferable(from); available < amount {
			return fmt.Errorf("%w: %d requested, %d transferable", models.ErrInsufficientBalance, amount, available)
		}
		var err error
		out, err = w.append(ctx, ledgermodels.Record{
			Type:        ledgermodels.TypeTransfer,
			Slot:        w.slot,
			Wallet:      from,
			WalletTo:    to,
			Amount:      amount,
			TriggeredBy: triggeredBy(ctx),
		})
		return err
	})
	if err != nil {
		return ledgermodels.Record{}, err
	}
	return out, nil
}

// ApproveWallet adds wallet to the on-log allowlist.
func (s *Service) ApproveWallet(ctx context.Context, tokenID id.TokenID, wallet string) (ledgermodels.Record, error) {
	return s.allowlistChange(ctx, "approve_wallet", tokenID, wallet, ledgermodels.TypeApproval)
}

// RevokeWallet removes wallet from the on-log allowlist. Its balance stays
// but can no longer move.
func (s *Service) RevokeWallet(ctx context.Context, tokenID id.TokenID, wallet string) (ledgermodels.Record, error) {
	return s.allowlistChange(ctx, "revoke_wallet", tokenID, wallet, ledgermodels.TypeRevocation)
}

func (s *Service) allowlistChange(ctx context.Context, op string, tokenID id.TokenID, wallet string, t ledgermodels.RecordType) (ledgermodels.Record, error) {
	if err := requireRole(ctx, requestcontext.RoleAdmin, requestcontext.RoleSystem); err != nil {
		return ledgermodels.Record{}, err
	}
	if err := parseWallets(wallet); err != nil {
		return ledgermodels.Record{}, err
	}
	var out ledgermodels.Record
	err := s.write(ctx, op, tokenID, func(ctx context.Context, w *work) error {
		if err := requireToken(w.view); err != nil {
			return err
		}
		listed := w.view.state.Allowlist[wallet]
		if t == ledgermodels.TypeApproval && listed {
			return dErrors.New(dErrors.CodeConflict, "wallet is already allowlisted")
		}
		if t == ledgermodels.TypeRevocation && !listed {
			return dErrors.New(dErrors.CodeConflict, "wallet is not allowlisted")
		}
		var err error
		out, err = w.append(ctx, ledgermodels.Record{
			Type:        t,
			Slot:        w.slot,
			Wallet:      wallet,
			TriggeredBy: triggeredBy(ctx),
		})
		return err
	})
	if err != nil {
		return ledgermodels.Record{}, err
	}
	s.logAudit(ctx, op, "token_id", tokenID.String(), "wallet", wallet)
	return out, nil
}
