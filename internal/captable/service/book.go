package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"captable/internal/captable/models"
	ledgermodels "captable/internal/ledger/models"
	ledger "captable/internal/ledger/service"
	"captable/internal/multisig/gate"
	"captable/internal/projector"
	id "captable/pkg/domain"
	dErrors "captable/pkg/domain-errors"
)

// view is the folded cap table and gate of one token.
type view struct {
	state *projector.State
	gate  *gate.Gate
}

func newView(tokenID id.TokenID) view {
	return view{state: projector.NewState(tokenID), gate: gate.New()}
}

func (v view) clone() view {
	return view{state: v.state.Clone(), gate: v.gate.Clone()}
}

// apply folds rec into both halves. Any failure on an accepted record is a
// corrupt log.
func (v view) apply(rec ledgermodels.Record) error {
	if err := v.state.Apply(rec); err != nil {
		return err
	}
	if err := v.gate.Apply(rec); err != nil {
		return fmt.Errorf("%w: seq %d: gate: %v", projector.ErrCorruptLog, rec.Seq, err)
	}
	return nil
}

// book is the single-writer section of one token.
type book struct {
	mu     sync.Mutex
	view   view
	stale  bool
	halted error
}

// acquire returns the token's book locked and caught up with the log. The
// caller unlocks it.
func (s *Service) acquire(ctx context.Context, tokenID id.TokenID) (*book, error) {
	s.mu.Lock()
	b, ok := s.books[tokenID]
	if !ok {
		b = &book{view: newView(tokenID)}
		s.books[tokenID] = b
	}
	s.mu.Unlock()

	b.mu.Lock()
	if b.halted != nil {
		b.mu.Unlock()
		return nil, dErrors.Wrap(errors.Join(models.ErrTokenHalted, b.halted), dErrors.CodeInvariantViolation, models.ErrTokenHalted.Error())
	}
	if b.stale {
		b.view = newView(tokenID)
		b.stale = false
	}
	if err := s.catchUp(ctx, b); err != nil {
		b.mu.Unlock()
		return nil, err
	}
	return b, nil
}

// catchUp folds records appended since the book last saw the log, which
// covers writes made by other replicas.
func (s *Service) catchUp(ctx context.Context, b *book) error {
	st := b.view.state
	it := s.log.Scan(ctx, ledger.RangeQuery{TokenID: st.TokenID, MaxSlot: -1, After: st.Position()})
	defer it.Close()
	for it.Next() {
		if err := b.view.apply(it.Record()); err != nil {
			return s.halt(ctx, b, err)
		}
	}
	if err := it.Err(); err != nil {
		return fmt.Errorf("load token %s: %w", st.TokenID, err)
	}
	return nil
}

// halt fails the token closed. Only a restart after the log has been
// audited clears it.
func (s *Service) halt(ctx context.Context, b *book, err error) error {
	if b.halted == nil {
		s.metrics.IncrementHalted()
	}
	b.halted = err
	s.logger.ErrorContext(ctx, "CRITICAL: corrupt event log, token writes halted",
		"token_id", b.view.state.TokenID.String(),
		"last_seq", b.view.state.LastSeq,
		"error", err,
	)
	return dErrors.Wrap(err, dErrors.CodeInvariantViolation, "token log failed integrity checks; writes halted")
}

// requireToken rejects operations on a token that was never created.
func requireToken(v view) error {
	if !v.state.Created {
		return dErrors.New(dErrors.CodeNotFound, "token not found")
	}
	return nil
}
