package service

import (
	"context"
	"fmt"
	"maps"

	"github.com/google/uuid"

	"captable/internal/captable/models"
	ledgermodels "captable/internal/ledger/models"
	"captable/internal/projector"
	id "captable/pkg/domain"
	dErrors "captable/pkg/domain-errors"
	"captable/pkg/requestcontext"
)

// CreateDividendRound fixes entitlements at the current supply. The pool is
// denominated in the payment token's base units.
func (s *Service) CreateDividendRound(ctx context.Context, tokenID id.TokenID, round models.DividendRound) (projector.DividendRound, error) {
	if err := requireRole(ctx, requestcontext.RoleAdmin, requestcontext.RoleSystem); err != nil {
		return projector.DividendRound{}, err
	}
	if round.Pool <= 0 {
		return projector.DividendRound{}, dErrors.New(dErrors.CodeValidation, "pool must be positive")
	}
	if round.PaymentToken == "" {
		return projector.DividendRound{}, dErrors.New(dErrors.CodeValidation, "payment token is required")
	}
	roundID := id.RoundID(uuid.New())

	var out projector.DividendRound
	err := s.write(ctx, "create_dividend_round", tokenID, func(ctx context.Context, w *work) error {
		if err := requireToken(w.view); err != nil {
			return err
		}
		if w.view.state.TotalSupply <= 0 {
			return dErrors.New(dErrors.CodeValidation, "token has no supply to pay dividends on")
		}
		payload := ledgermodels.DividendRoundPayload{RoundID: roundID.String(), PaymentToken: round.PaymentToken}
		if !round.ExpiresAt.IsZero() {
			if !round.ExpiresAt.After(w.now) {
				return dErrors.New(dErrors.CodeValidation, "expiry must be in the future")
			}
			payload.ExpiresAt = round.ExpiresAt.Unix()
		}
		draft, err := ledgermodels.Record{
			Type:        ledgermodels.TypeDividendRoundCreate,
			Slot:        w.slot,
			Amount:      round.Pool,
			TriggeredBy: triggeredBy(ctx),
		}.WithPayload(payload)
		if err != nil {
			return err
		}
		if _, err := w.append(ctx, draft); err != nil {
			return err
		}
		out = *w.view.state.Dividends[roundID.String()]
		out.Entitlements = maps.Clone(out.Entitlements)
		out.Claimed = maps.Clone(out.Claimed)
		return nil
	})
	if err != nil {
		return projector.DividendRound{}, err
	}
	s.logAudit(ctx, "dividend_round_created",
		"token_id", tokenID.String(),
		"round_id", roundID.String(),
		"pool", round.Pool,
		"amount_per_share", out.AmountPerShare,
	)
	return out, nil
}

// ClaimDividend marks the wallet's entitlement paid and returns it. Payment
// itself happens off-log.
func (s *Service) ClaimDividend(ctx context.Context, tokenID id.TokenID, roundID id.RoundID, wallet string) (int64, error) {
	if err := parseWallets(wallet); err != nil {
		return 0, err
	}
	if err := actsFor(ctx, wallet); err != nil {
		return 0, err
	}
	var amount int64
	err := s.write(ctx, "claim_dividend", tokenID, func(ctx context.Context, w *work) error {
		if err := requireToken(w.view); err != nil {
			return err
		}
		round, ok := w.view.state.Dividends[roundID.String()]
		if !ok {
			return dErrors.New(dErrors.CodeNotFound, "dividend round not found")
		}
		entitled := round.Entitlements[wallet]
		if entitled == 0 {
			return dErrors.New(dErrors.CodeValidation, "wallet has no entitlement in this round")
		}
		if _, done := round.Claimed[wallet]; done {
			return dErrors.New(dErrors.CodeConflict, "dividend already claimed")
		}
		if round.ExpiresAt > 0 && w.now.Unix() > round.ExpiresAt {
			return dErrors.New(dErrors.CodeConflict, "dividend round has expired")
		}
		draft, err := ledgermodels.Record{
			Type:        ledgermodels.TypeDividendClaim,
			Slot:        w.slot,
			Wallet:      wallet,
			Amount:      entitled,
			TriggeredBy: triggeredBy(ctx),
		}.WithPayload(ledgermodels.DividendClaimPayload{RoundID: roundID.String()})
		if err != nil {
			return err
		}
		if _, err := w.append(ctx, draft); err != nil {
			return fmt.Errorf("claim dividend: %w", err)
		}
		amount = entitled
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.logAudit(ctx, "dividend_claimed",
		"token_id", tokenID.String(),
		"round_id", roundID.String(),
		"wallet", wallet,
		"amount", amount,
	)
	return amount, nil
}
