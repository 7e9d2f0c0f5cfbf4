// Package gate is the N-of-M approval state machine for admin-class actions.
//
// The gate is event-sourced: Can* methods check a transition against current
// state without changing it, the caller appends the resulting record to the
// log, and Apply folds that record back in. Rebuilding from the log replays
// the same Apply calls. A Gate is not safe for concurrent use; the token
// service serializes access per token.
package gate

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"time"

	ledger "captable/internal/ledger/models"
	"captable/internal/multisig/models"
	strs "captable/pkg/platform/strings"
)

type Gate struct {
	config      models.Config
	initialized bool
	proposals   int64
	pending     map[string]*models.PendingTx
	order       []string
}

func New() *Gate {
	return &Gate{pending: make(map[string]*models.PendingTx)}
}

// Config returns a copy of the current configuration.
func (g *Gate) Config() (models.Config, error) {
	if !g.initialized {
		return models.Config{}, models.ErrNotInitialized
	}
	return g.config.Clone(), nil
}

// Clone returns an independent copy, used for dry runs.
func (g *Gate) Clone() *Gate {
	out := &Gate{
		config:      g.config.Clone(),
		initialized: g.initialized,
		proposals:   g.proposals,
		pending:     make(map[string]*models.PendingTx, len(g.pending)),
		order:       slices.Clone(g.order),
	}
	for k, v := range g.pending {
		c := v.Clone()
		out.pending[k] = &c
	}
	return out
}

// NextTxID is the id the next proposal will carry: "<nonce>-<proposal seq>".
func (g *Gate) NextTxID() string {
	return fmt.Sprintf("%d-%d", g.config.Nonce, g.proposals+1)
}

// CanPropose checks that proposer may submit ins.
func (g *Gate) CanPropose(ins models.Instruction, proposer string) error {
	if !g.initialized {
		return models.ErrNotInitialized
	}
	if !g.config.IsSigner(proposer) {
		return models.ErrNotASigner
	}
	return g.validateInstruction(ins)
}

func (g *Gate) validateInstruction(ins models.Instruction) error {
	invalid := func(msg string) error {
		return fmt.Errorf("%w: %s", models.ErrInvalidInstruction, msg)
	}
	set := 0
	for _, present := range []bool{
		ins.Pause != nil, ins.Resume != nil, ins.StockSplit != nil, ins.SymbolChange != nil,
		ins.ThresholdUpdate != nil, ins.UpdateSigners != nil, ins.VestingTerminate != nil,
	} {
		if present {
			set++
		}
	}
	if set != 1 {
		return invalid("exactly one instruction variant must be set")
	}

	switch models.InstructionKind(ins.Kind) {
	case models.KindPause:
		if ins.Pause == nil {
			return invalid("pause variant missing")
		}
	case models.KindResume:
		if ins.Resume == nil {
			return invalid("resume variant missing")
		}
	case models.KindStockSplit:
		if ins.StockSplit == nil {
			return invalid("stock_split variant missing")
		}
		if ins.StockSplit.Numerator < 1 || ins.StockSplit.Denominator < 1 {
			return invalid("split ratio terms must be at least 1")
		}
	case models.KindSymbolChange:
		if ins.SymbolChange == nil {
			return invalid("symbol_change variant missing")
		}
	case models.KindThresholdUpdate:
		if ins.ThresholdUpdate == nil {
			return invalid("threshold_update variant missing")
		}
		next := models.Config{Signers: g.config.Signers, Threshold: ins.ThresholdUpdate.Threshold}
		if err := next.Validate(); err != nil {
			return err
		}
	case models.KindUpdateSigners:
		if ins.UpdateSigners == nil {
			return invalid("update_signers variant missing")
		}
		next := models.Config{Signers: ins.UpdateSigners.Signers, Threshold: ins.UpdateSigners.Threshold}
		if err := next.Validate(); err != nil {
			return err
		}
	case models.KindVestingTerminate:
		if ins.VestingTerminate == nil {
			return invalid("vesting_terminate variant missing")
		}
	default:
		return invalid(fmt.Sprintf("unknown kind %q", ins.Kind))
	}
	return nil
}

func (g *Gate) lookup(txID string) (*models.PendingTx, error) {
	tx, ok := g.pending[txID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrTxNotFound, txID)
	}
	return tx, nil
}

// CanApprove checks that signer may approve txID at now.
func (g *Gate) CanApprove(txID, signer string, now time.Time) error {
	tx, err := g.lookup(txID)
	if err != nil {
		return err
	}
	if !g.config.IsSigner(signer) {
		return models.ErrNotASigner
	}
	switch tx.State {
	case models.StateExecuted, models.StateRejected:
		return fmt.Errorf("%w: transaction is %s", models.ErrNotExecutable, tx.State)
	}
	if tx.ExpiredAt(now) {
		return models.ErrExpired
	}
	if tx.Nonce != g.config.Nonce {
		return models.ErrStaleNonce
	}
	if tx.HasApproved(signer) {
		return models.ErrAlreadyApproved
	}
	return nil
}

// CanExecute checks that txID may execute at now. For an already executed
// transaction it returns the prior result and no error; callers must then
// append nothing.
func (g *Gate) CanExecute(txID string, now time.Time) (*models.ExecutionResult, error) {
	tx, err := g.lookup(txID)
	if err != nil {
		return nil, err
	}
	if tx.State == models.StateExecuted && tx.Result != nil {
		r := *tx.Result
		return &r, nil
	}
	if tx.State == models.StateRejected {
		return nil, fmt.Errorf("%w: transaction was cancelled", models.ErrNotExecutable)
	}
	if tx.Nonce != g.config.Nonce {
		return nil, errors.Join(models.ErrStaleNonce, models.ErrNotExecutable)
	}
	if tx.ExpiredAt(now) {
		return nil, errors.Join(models.ErrExpired, models.ErrNotExecutable)
	}
	if len(tx.Approvals) < g.config.Threshold {
		return nil, fmt.Errorf("%w: %d of %d approvals", models.ErrNotExecutable, len(tx.Approvals), g.config.Threshold)
	}
	return nil, nil
}

// CanCancel allows the proposer to cancel a live proposal and any signer to
// cancel an expired one.
func (g *Gate) CanCancel(txID, caller string, now time.Time) error {
	tx, err := g.lookup(txID)
	if err != nil {
		return err
	}
	if tx.State == models.StateExecuted || tx.State == models.StateRejected {
		return fmt.Errorf("%w: transaction is %s", models.ErrNotCancellable, tx.State)
	}
	if caller == tx.Proposer {
		return nil
	}
	if !g.config.IsSigner(caller) {
		return models.ErrNotASigner
	}
	if tx.ExpiredAt(now) || tx.Nonce != g.config.Nonce {
		return nil
	}
	return fmt.Errorf("%w: only the proposer may cancel a live proposal", models.ErrNotCancellable)
}

// CanUpdateThreshold validates a direct threshold change guarded by nonce and
// returns the config that a THRESHOLD_UPDATE record should carry.
func (g *Gate) CanUpdateThreshold(newThreshold int, nonce uint64) (models.Config, error) {
	if !g.initialized {
		return models.Config{}, models.ErrNotInitialized
	}
	if nonce != g.config.Nonce {
		return models.Config{}, fmt.Errorf("%w: expected nonce %d, got %d", models.ErrStaleNonce, g.config.Nonce, nonce)
	}
	next := models.Config{Signers: slices.Clone(g.config.Signers), Threshold: newThreshold, Nonce: g.config.Nonce + 1}
	if err := next.Validate(); err != nil {
		return models.Config{}, err
	}
	return next, nil
}

// AdminRecord maps an executable proposal to the record type and payload that
// carries its effect into the log.
func (g *Gate) AdminRecord(txID string) (ledger.RecordType, any, error) {
	tx, err := g.lookup(txID)
	if err != nil {
		return "", nil, err
	}
	ins := tx.Instruction
	switch models.InstructionKind(ins.Kind) {
	case models.KindPause:
		return ledger.TypePause, *ins.Pause, nil
	case models.KindResume:
		return ledger.TypeResume, *ins.Resume, nil
	case models.KindStockSplit:
		return ledger.TypeStockSplit, *ins.StockSplit, nil
	case models.KindSymbolChange:
		return ledger.TypeSymbolChange, *ins.SymbolChange, nil
	case models.KindThresholdUpdate:
		return ledger.TypeThresholdUpdate, ledger.ThresholdUpdatePayload{
			Threshold: ins.ThresholdUpdate.Threshold,
			Signers:   slices.Clone(g.config.Signers),
			Nonce:     g.config.Nonce + 1,
		}, nil
	case models.KindUpdateSigners:
		return ledger.TypeThresholdUpdate, ledger.ThresholdUpdatePayload{
			Threshold: ins.UpdateSigners.Threshold,
			Signers:   slices.Clone(ins.UpdateSigners.Signers),
			Nonce:     g.config.Nonce + 1,
		}, nil
	case models.KindVestingTerminate:
		return ledger.TypeVestingTerminate, *ins.VestingTerminate, nil
	}
	return "", nil, fmt.Errorf("%w: unknown kind %q", models.ErrInvalidInstruction, ins.Kind)
}

// Apply folds a record into gate state. Records the gate does not track are
// ignored. An error means the record contradicts gate state, which for an
// accepted log indicates corruption.
func (g *Gate) Apply(rec ledger.Record) error {
	switch rec.Type {
	case ledger.TypeTokenCreate:
		var p ledger.TokenCreatePayload
		if err := rec.DecodePayload(&p); err != nil {
			return fmt.Errorf("decode token create: %w", err)
		}
		cfg := models.Config{Signers: slices.Clone(p.Signers), Threshold: p.Threshold}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("initial multi-sig config: %w", err)
		}
		g.config = cfg
		g.initialized = true

	case ledger.TypeThresholdUpdate:
		var p ledger.ThresholdUpdatePayload
		if err := rec.DecodePayload(&p); err != nil {
			return fmt.Errorf("decode threshold update: %w", err)
		}
		if p.Nonce != g.config.Nonce+1 {
			return fmt.Errorf("threshold update nonce %d does not follow %d", p.Nonce, g.config.Nonce)
		}
		cfg := models.Config{Signers: slices.Clone(p.Signers), Threshold: p.Threshold, Nonce: p.Nonce}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("threshold update: %w", err)
		}
		g.config = cfg
		g.markExecuted(rec)

	case ledger.TypeMultisigPropose:
		var p ledger.MultisigProposePayload
		if err := rec.DecodePayload(&p); err != nil {
			return fmt.Errorf("decode propose: %w", err)
		}
		if _, exists := g.pending[p.TxID]; exists {
			return fmt.Errorf("duplicate proposal %s", p.TxID)
		}
		tx := &models.PendingTx{
			ID:          p.TxID,
			Instruction: p.Instruction,
			Proposer:    rec.Wallet,
			Approvals:   []string{rec.Wallet},
			Nonce:       p.Nonce,
			CreatedAt:   time.Unix(p.CreatedAt, 0).UTC(),
			State:       models.StateProposed,
		}
		if p.ExpiresAt > 0 {
			tx.ExpiresAt = time.Unix(p.ExpiresAt, 0).UTC()
		}
		g.pending[p.TxID] = tx
		g.order = append(g.order, p.TxID)
		g.proposals++
		g.refresh(tx)

	case ledger.TypeMultisigApprove:
		var p ledger.MultisigApprovePayload
		if err := rec.DecodePayload(&p); err != nil {
			return fmt.Errorf("decode approve: %w", err)
		}
		tx, err := g.lookup(p.TxID)
		if err != nil {
			return err
		}
		if tx.HasApproved(rec.Wallet) {
			return fmt.Errorf("%s approved %s twice", rec.Wallet, p.TxID)
		}
		tx.Approvals = append(tx.Approvals, rec.Wallet)
		sort.Strings(tx.Approvals)
		g.refresh(tx)

	case ledger.TypeMultisigCancel:
		var p ledger.MultisigCancelPayload
		if err := rec.DecodePayload(&p); err != nil {
			return fmt.Errorf("decode cancel: %w", err)
		}
		tx, err := g.lookup(p.TxID)
		if err != nil {
			return err
		}
		tx.State = models.StateRejected
		tx.CancelReason = p.Reason

	case ledger.TypeMultisigExecute:
		var p ledger.MultisigExecutePayload
		if err := rec.DecodePayload(&p); err != nil {
			return fmt.Errorf("decode execute: %w", err)
		}
		tx, err := g.lookup(p.TxID)
		if err != nil {
			return err
		}
		if tx.State != models.StateExecuted || tx.Result == nil || tx.Result.RecordID != p.RecordID {
			return fmt.Errorf("execute record for %s does not match an applied admin record", p.TxID)
		}

	case ledger.TypePause, ledger.TypeResume, ledger.TypeStockSplit,
		ledger.TypeSymbolChange, ledger.TypeVestingTerminate:
		g.markExecuted(rec)
	}
	return nil
}

// markExecuted links a gated admin record back to its proposal.
func (g *Gate) markExecuted(rec ledger.Record) {
	if rec.ReferenceID == "" {
		return
	}
	tx, ok := g.pending[rec.ReferenceID]
	if !ok {
		return
	}
	tx.State = models.StateExecuted
	tx.Result = &models.ExecutionResult{
		TxID:       tx.ID,
		RecordID:   rec.ID,
		RecordType: rec.Type,
		Seq:        rec.Seq,
		Slot:       rec.Slot,
	}
}

func (g *Gate) refresh(tx *models.PendingTx) {
	if tx.State.IsTerminal() {
		return
	}
	if len(tx.Approvals) >= g.config.Threshold {
		tx.State = models.StateExecutable
	} else {
		tx.State = models.StateProposed
	}
}

// Get returns the transaction as seen at now.
func (g *Gate) Get(txID string, now time.Time) (models.PendingTx, error) {
	tx, err := g.lookup(txID)
	if err != nil {
		return models.PendingTx{}, err
	}
	return g.view(tx, now), nil
}

// view derives the lazy states: expiry and executability under the current
// threshold.
func (g *Gate) view(tx *models.PendingTx, now time.Time) models.PendingTx {
	out := tx.Clone()
	if out.State.IsTerminal() {
		return out
	}
	if out.ExpiredAt(now) {
		out.State = models.StateExpired
		return out
	}
	if out.Nonce == g.config.Nonce && len(out.Approvals) >= g.config.Threshold {
		out.State = models.StateExecutable
	} else {
		out.State = models.StateProposed
	}
	return out
}

// State summarizes txID for callers of Approve.
func (g *Gate) State(txID string, now time.Time) (models.GateState, error) {
	tx, err := g.Get(txID, now)
	if err != nil {
		return models.GateState{}, err
	}
	pending := strs.SortedSet(strs.Subtract(g.config.Signers, tx.Approvals))
	return models.GateState{
		TxID:           tx.ID,
		State:          tx.State,
		Approvals:      slices.Clone(tx.Approvals),
		Pending:        pending,
		Threshold:      g.config.Threshold,
		Nonce:          g.config.Nonce,
		Stale:          tx.Nonce != g.config.Nonce,
		ApprovalsCount: len(tx.Approvals),
	}, nil
}

// Pending lists proposals in proposal order. With activeOnly, terminal and
// stale proposals are skipped.
func (g *Gate) Pending(now time.Time, activeOnly bool) []models.PendingTx {
	out := make([]models.PendingTx, 0, len(g.order))
	for _, txID := range g.order {
		tx := g.view(g.pending[txID], now)
		if activeOnly && (tx.State.IsTerminal() || tx.Nonce != g.config.Nonce) {
			continue
		}
		out = append(out, tx)
	}
	return out
}
