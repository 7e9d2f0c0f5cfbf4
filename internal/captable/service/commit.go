package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"captable/internal/ledger/hashchain"
	ledgermodels "captable/internal/ledger/models"
	"captable/internal/outbox"
	"captable/internal/projector"
	id "captable/pkg/domain"
	dErrors "captable/pkg/domain-errors"
	"captable/pkg/platform/sentinel"
)

// work stages records for one write on a copy of the book's view.
type work struct {
	svc     *Service
	tokenID id.TokenID
	view    view
	slot    int64
	now     time.Time

	appended []ledgermodels.Record
	// diverged is set once the log no longer matches what the book expects.
	diverged bool
	corrupt  error
}

// write runs fn with the token's book locked. Records fn appends commit in
// one unit of work; the book adopts the staged view only when it commits.
// Once the lock is held the write ignores caller cancellation.
func (s *Service) write(ctx context.Context, op string, tokenID id.TokenID, fn func(ctx context.Context, w *work) error) error {
	start := time.Now()
	defer s.metrics.ObserveOperation(op, start)
	ctx, span := s.tracer.Start(ctx, "captable."+op, trace.WithAttributes(
		attribute.String("token_id", tokenID.String()),
	))
	defer span.End()

	b, err := s.acquire(ctx, tokenID)
	if err != nil {
		span.RecordError(err)
		return s.reject(op, err)
	}
	defer b.mu.Unlock()
	ctx = context.WithoutCancel(ctx)

	w := &work{
		svc:     s,
		tokenID: tokenID,
		view:    b.view.clone(),
		slot:    s.nextSlot(ctx, b.view.state.LastSlot),
		now:     s.now(ctx),
	}
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		return fn(ctx, w)
	})
	if w.corrupt != nil {
		span.RecordError(w.corrupt)
		return s.reject(op, s.halt(ctx, b, w.corrupt))
	}
	if err != nil {
		if len(w.appended) > 0 || w.diverged {
			// Without a transactional backend part of the write may be durable.
			b.stale = true
		}
		span.RecordError(err)
		return s.reject(op, err)
	}
	b.view = w.view
	s.snapshots.Forget(tokenID)
	for _, rec := range w.appended {
		s.metrics.IncrementAppended(string(rec.Type))
	}
	return nil
}

// nextSlot is the slot stamped on new records: the chain slot, never below
// the log head.
func (s *Service) nextSlot(ctx context.Context, head int64) int64 {
	current, err := s.slots.CurrentSlot(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "slot source unavailable, using log head",
			"head_slot", head, "error", err)
		current = head
	}
	return max(current, head, 0)
}

// append dry-runs draft against the staged view, appends it and folds the
// stored record. The outbox entry joins the same unit of work.
func (w *work) append(ctx context.Context, draft ledgermodels.Record) (ledgermodels.Record, error) {
	draft.TokenID = w.tokenID
	if draft.BlockTime.IsZero() {
		draft.BlockTime = w.now
	}
	draft.BlockTime = draft.BlockTime.UTC().Truncate(time.Microsecond)
	draft.Seq = w.view.state.LastSeq + 1
	if err := w.svc.validator.Validate(draft); err != nil {
		return ledgermodels.Record{}, err
	}
	if draft.Slot < w.view.state.LastSlot {
		return ledgermodels.Record{}, fmt.Errorf("%w: slot %d is below the latest slot %d", ledgermodels.ErrInvalidRecord, draft.Slot, w.view.state.LastSlot)
	}

	sealed, err := hashchain.Seal(w.view.state.LastHash, draft)
	if err != nil {
		return ledgermodels.Record{}, err
	}
	if err := w.view.clone().apply(sealed); err != nil {
		return ledgermodels.Record{}, dErrors.Wrap(err, dErrors.CodeValidation, "record conflicts with token state")
	}

	stored, err := w.svc.log.Append(ctx, draft)
	if err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			w.diverged = true
			return ledgermodels.Record{}, dErrors.Wrap(err, dErrors.CodeConflict, "token log advanced concurrently, retry")
		}
		return ledgermodels.Record{}, err
	}
	if stored.Seq != sealed.Seq || stored.Hash != sealed.Hash {
		w.diverged = true
		return ledgermodels.Record{}, dErrors.New(dErrors.CodeConflict,
			fmt.Sprintf("token log advanced concurrently (expected seq %d, got %d), retry", sealed.Seq, stored.Seq))
	}
	w.appended = append(w.appended, stored)
	if err := w.view.apply(stored); err != nil {
		if errors.Is(err, projector.ErrCorruptLog) {
			w.corrupt = err
		}
		return ledgermodels.Record{}, err
	}

	if w.svc.outbox != nil {
		entry, err := outbox.NewRecordEntry(stored, w.now)
		if err != nil {
			return ledgermodels.Record{}, err
		}
		if err := w.svc.outbox.Append(ctx, entry); err != nil {
			return ledgermodels.Record{}, fmt.Errorf("enqueue record event: %w", err)
		}
	}
	return stored, nil
}
