package service

import (
	"context"
	"fmt"

	"captable/internal/corpaction"
	ledgermodels "captable/internal/ledger/models"
	msmodels "captable/internal/multisig/models"
	"captable/internal/vesting"
	id "captable/pkg/domain"
	dErrors "captable/pkg/domain-errors"
	"captable/pkg/requestcontext"
)

// ProposeAdminAction opens a proposal under the current nonce. The proposer
// must be a signer and counts as its first approval.
func (s *Service) ProposeAdminAction(ctx context.Context, tokenID id.TokenID, ins msmodels.Instruction, proposer string) (string, error) {
	if err := requireRole(ctx, requestcontext.RoleAdmin, requestcontext.RoleSystem); err != nil {
		return "", err
	}
	if err := signsAs(ctx, proposer); err != nil {
		return "", err
	}
	var txID string
	err := s.write(ctx, "propose", tokenID, func(ctx context.Context, w *work) error {
		if err := requireToken(w.view); err != nil {
			return err
		}
		if err := w.view.gate.CanPropose(ins, proposer); err != nil {
			return err
		}
		if err := s.checkInstruction(w, &ins); err != nil {
			return err
		}
		cfg, err := w.view.gate.Config()
		if err != nil {
			return err
		}
		txID = w.view.gate.NextTxID()
		payload := ledgermodels.MultisigProposePayload{
			TxID:        txID,
			Nonce:       cfg.Nonce,
			Instruction: ins,
			CreatedAt:   w.now.Unix(),
		}
		if s.ttl > 0 {
			payload.ExpiresAt = w.now.Add(s.ttl).Unix()
		}
		draft, err := ledgermodels.Record{
			Type:        ledgermodels.TypeMultisigPropose,
			Slot:        w.slot,
			Wallet:      proposer,
			TriggeredBy: triggeredBy(ctx),
		}.WithPayload(payload)
		if err != nil {
			return err
		}
		_, err = w.append(ctx, draft)
		return err
	})
	if err != nil {
		return "", err
	}
	s.metrics.IncrementTransition("propose")
	s.logAudit(ctx, "multisig_proposed",
		"token_id", tokenID.String(),
		"tx_id", txID,
		"kind", ins.Kind,
		"wallet", proposer,
	)
	return txID, nil
}

// checkInstruction validates the instruction against token state and fills
// defaults the record needs.
func (s *Service) checkInstruction(w *work, ins *msmodels.Instruction) error {
	switch msmodels.InstructionKind(ins.Kind) {
	case msmodels.KindStockSplit:
		return corpaction.Ratio{Numerator: ins.StockSplit.Numerator, Denominator: ins.StockSplit.Denominator}.Validate()
	case msmodels.KindSymbolChange:
		return corpaction.ValidateSymbol(ins.SymbolChange.NewSymbol)
	case msmodels.KindVestingTerminate:
		t := ins.VestingTerminate
		sched, ok := w.view.state.Schedules[t.ScheduleID]
		if !ok {
			return dErrors.New(dErrors.CodeNotFound, "vesting schedule not found")
		}
		if !sched.Revocable {
			return fmt.Errorf("%w: schedule is not revocable", vesting.ErrInvalidSchedule)
		}
		if sched.Terminated {
			return fmt.Errorf("%w: schedule already terminated", vesting.ErrInvalidSchedule)
		}
		if !vesting.TerminationType(t.TerminationType).IsValid() {
			return fmt.Errorf("%w: unknown termination type %q", vesting.ErrInvalidSchedule, t.TerminationType)
		}
		if t.TreasuryWallet != "" {
			if err := parseWallets(t.TreasuryWallet); err != nil {
				return err
			}
		}
		if t.TerminatedAt == 0 {
			c := *t
			c.TerminatedAt = w.now.Unix()
			ins.VestingTerminate = &c
		}
	}
	return nil
}

// Approve records signer's approval and returns the resulting gate state.
func (s *Service) Approve(ctx context.Context, tokenID id.TokenID, txID, signer string) (msmodels.GateState, error) {
	if err := signsAs(ctx, signer); err != nil {
		return msmodels.GateState{}, err
	}
	var out msmodels.GateState
	err := s.write(ctx, "approve", tokenID, func(ctx context.Context, w *work) error {
		if err := requireToken(w.view); err != nil {
			return err
		}
		if err := w.view.gate.CanApprove(txID, signer, w.now); err != nil {
			return err
		}
		draft, err := ledgermodels.Record{
			Type:        ledgermodels.TypeMultisigApprove,
			Slot:        w.slot,
			Wallet:      signer,
			TriggeredBy: triggeredBy(ctx),
		}.WithPayload(ledgermodels.MultisigApprovePayload{TxID: txID})
		if err != nil {
			return err
		}
		if _, err := w.append(ctx, draft); err != nil {
			return err
		}
		out, err = w.view.gate.State(txID, w.now)
		return err
	})
	if err != nil {
		return msmodels.GateState{}, err
	}
	s.metrics.IncrementTransition("approve")
	s.logAudit(ctx, "multisig_approved",
		"token_id", tokenID.String(),
		"tx_id", txID,
		"wallet", signer,
		"state", string(out.State),
	)
	return out, nil
}

// Execute applies an executable proposal: the admin record carrying its
// effect, then the MULTISIG_EXECUTE record linking to it. Executing an
// executed proposal returns the original result and appends nothing.
func (s *Service) Execute(ctx context.Context, tokenID id.TokenID, txID string) (msmodels.ExecutionResult, error) {
	if err := requireRole(ctx, requestcontext.RoleAdmin, requestcontext.RoleSystem); err != nil {
		return msmodels.ExecutionResult{}, err
	}
	var (
		out    msmodels.ExecutionResult
		repeat bool
	)
	err := s.write(ctx, "execute", tokenID, func(ctx context.Context, w *work) error {
		if err := requireToken(w.view); err != nil {
			return err
		}
		prior, err := w.view.gate.CanExecute(txID, w.now)
		if err != nil {
			return err
		}
		if prior != nil {
			out, repeat = *prior, true
			return nil
		}
		recordType, payload, err := w.view.gate.AdminRecord(txID)
		if err != nil {
			return err
		}
		draft, err := ledgermodels.Record{
			Type:        recordType,
			Slot:        w.slot,
			ReferenceID: txID,
			TriggeredBy: triggeredBy(ctx),
		}.WithPayload(payload)
		if err != nil {
			return err
		}
		admin, err := w.append(ctx, draft)
		if err != nil {
			return err
		}
		link, err := ledgermodels.Record{
			Type:        ledgermodels.TypeMultisigExecute,
			Slot:        w.slot,
			Wallet:      requestcontext.Wallet(ctx),
			ReferenceID: txID,
			TriggeredBy: triggeredBy(ctx),
		}.WithPayload(ledgermodels.MultisigExecutePayload{TxID: txID, RecordID: admin.ID})
		if err != nil {
			return err
		}
		if _, err := w.append(ctx, link); err != nil {
			return err
		}
		tx, err := w.view.gate.Get(txID, w.now)
		if err != nil {
			return err
		}
		if tx.Result == nil {
			return fmt.Errorf("proposal %s executed without a result", txID)
		}
		out = *tx.Result
		return nil
	})
	if err != nil {
		return msmodels.ExecutionResult{}, err
	}
	if !repeat {
		s.metrics.IncrementTransition("execute")
		s.logAudit(ctx, "multisig_executed",
			"token_id", tokenID.String(),
			"tx_id", txID,
			"tx_type", string(out.RecordType),
			"record_id", out.RecordID,
		)
	}
	return out, nil
}

// CancelAdminAction rejects a proposal. The proposer may cancel a live one;
// any signer may clear an expired or stale one.
func (s *Service) CancelAdminAction(ctx context.Context, tokenID id.TokenID, txID, caller, reason string) (msmodels.GateState, error) {
	if err := signsAs(ctx, caller); err != nil {
		return msmodels.GateState{}, err
	}
	var out msmodels.GateState
	err := s.write(ctx, "cancel", tokenID, func(ctx context.Context, w *work) error {
		if err := requireToken(w.view); err != nil {
			return err
		}
		if err := w.view.gate.CanCancel(txID, caller, w.now); err != nil {
			return err
		}
		draft, err := ledgermodels.Record{
			Type:        ledgermodels.TypeMultisigCancel,
			Slot:        w.slot,
			Wallet:      caller,
			TriggeredBy: triggeredBy(ctx),
		}.WithPayload(ledgermodels.MultisigCancelPayload{TxID: txID, Reason: reason})
		if err != nil {
			return err
		}
		if _, err := w.append(ctx, draft); err != nil {
			return err
		}
		out, err = w.view.gate.State(txID, w.now)
		return err
	})
	if err != nil {
		return msmodels.GateState{}, err
	}
	s.metrics.IncrementTransition("cancel")
	s.logAudit(ctx, "multisig_cancelled", "token_id", tokenID.String(), "tx_id", txID, "wallet", caller)
	return out, nil
}

// UpdateThreshold changes the threshold directly, guarded by the current
// nonce. Success bumps the nonce and strands every open proposal.
func (s *Service) UpdateThreshold(ctx context.Context, tokenID id.TokenID, newThreshold int, nonce uint64) (msmodels.Config, error) {
	if err := requireRole(ctx, requestcontext.RoleAdmin, requestcontext.RoleSystem); err != nil {
		return msmodels.Config{}, err
	}
	var out msmodels.Config
	err := s.write(ctx, "update_threshold", tokenID, func(ctx context.Context, w *work) error {
		if err := requireToken(w.view); err != nil {
			return err
		}
		next, err := w.view.gate.CanUpdateThreshold(newThreshold, nonce)
		if err != nil {
			return err
		}
		draft, err := ledgermodels.Record{
			Type:        ledgermodels.TypeThresholdUpdate,
			Slot:        w.slot,
			TriggeredBy: triggeredBy(ctx),
		}.WithPayload(ledgermodels.ThresholdUpdatePayload{
			Threshold: next.Threshold,
			Signers:   next.Signers,
			Nonce:     next.Nonce,
		})
		if err != nil {
			return err
		}
		if _, err := w.append(ctx, draft); err != nil {
			return err
		}
		out = next
		return nil
	})
	if err != nil {
		return msmodels.Config{}, err
	}
	s.metrics.IncrementTransition("threshold_update")
	s.logAudit(ctx, "multisig_threshold_updated",
		"token_id", tokenID.String(),
		"threshold", out.Threshold,
		"nonce", out.Nonce,
	)
	return out, nil
}

// read runs fn against the caught-up book without staging anything.
func (s *Service) read(ctx context.Context, tokenID id.TokenID, fn func(v view) error) error {
	b, err := s.acquire(ctx, tokenID)
	if err != nil {
		return translate(err)
	}
	defer b.mu.Unlock()
	if err := requireToken(b.view); err != nil {
		return err
	}
	return translate(fn(b.view))
}

// PendingTransactions lists proposals in proposal order. activeOnly drops
// executed, rejected, expired and stale ones.
func (s *Service) PendingTransactions(ctx context.Context, tokenID id.TokenID, activeOnly bool) ([]msmodels.PendingTx, error) {
	var out []msmodels.PendingTx
	err := s.read(ctx, tokenID, func(v view) error {
		out = v.gate.Pending(s.now(ctx), activeOnly)
		return nil
	})
	return out, err
}

// PendingTransaction returns one proposal with its lazily derived state.
func (s *Service) PendingTransaction(ctx context.Context, tokenID id.TokenID, txID string) (msmodels.PendingTx, error) {
	var out msmodels.PendingTx
	err := s.read(ctx, tokenID, func(v view) error {
		var err error
		out, err = v.gate.Get(txID, s.now(ctx))
		return err
	})
	return out, err
}

// MultiSigConfig returns the current signer set, threshold and nonce.
func (s *Service) MultiSigConfig(ctx context.Context, tokenID id.TokenID) (msmodels.Config, error) {
	var out msmodels.Config
	err := s.read(ctx, tokenID, func(v view) error {
		var err error
		out, err = v.gate.Config()
		return err
	})
	return out, err
}
