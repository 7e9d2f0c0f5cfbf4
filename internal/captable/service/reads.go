package service

import (
	"context"
	"errors"
	"time"

	"captable/internal/captable/models"
	ledgermodels "captable/internal/ledger/models"
	ledger "captable/internal/ledger/service"
	"captable/internal/projector"
	"captable/internal/vesting"
	id "captable/pkg/domain"
	dErrors "captable/pkg/domain-errors"
)

const (
	defaultHistoryLimit = 100
	maxHistoryLimit     = 1000
)

// ProjectCapTable returns the cap table at a historical slot or live. Reads
// never take the token's write lock.
func (s *Service) ProjectCapTable(ctx context.Context, tokenID id.TokenID, q models.SlotQuery) (projector.Snapshot, error) {
	if !q.Live && q.Slot < 0 {
		return projector.Snapshot{}, dErrors.New(dErrors.CodeValidation, "slot must not be negative")
	}
	ctx, span := s.tracer.Start(ctx, "captable.project")
	defer span.End()

	snap, err := s.snapshots.Snapshot(ctx, tokenID, q.Target())
	if err != nil {
		span.RecordError(err)
		return projector.Snapshot{}, s.readFailure(ctx, tokenID, err)
	}
	if snap.LastSeq == 0 {
		if err := s.requireLog(ctx, tokenID); err != nil {
			return projector.Snapshot{}, err
		}
	}
	return snap, nil
}

// readFailure escalates corruption found by a read and fails the token's
// writes closed.
func (s *Service) readFailure(ctx context.Context, tokenID id.TokenID, err error) error {
	if !errors.Is(err, projector.ErrCorruptLog) {
		return translate(err)
	}
	s.mu.Lock()
	b, ok := s.books[tokenID]
	if !ok {
		b = &book{view: newView(tokenID)}
		s.books[tokenID] = b
	}
	s.mu.Unlock()
	b.mu.Lock()
	defer b.mu.Unlock()
	return s.halt(ctx, b, err)
}

// requireLog distinguishes an unknown token from a slot before its first record.
func (s *Service) requireLog(ctx context.Context, tokenID id.TokenID) error {
	it := s.log.Scan(ctx, ledger.RangeQuery{TokenID: tokenID, MaxSlot: -1, Limit: 1})
	defer it.Close()
	if it.Next() {
		return nil
	}
	if err := it.Err(); err != nil {
		return translate(err)
	}
	return dErrors.New(dErrors.CodeNotFound, "token not found")
}

// Transactions pages the token's records in log order.
func (s *Service) Transactions(ctx context.Context, q models.HistoryQuery) (models.HistoryPage, error) {
	if q.FromSlot < 0 {
		return models.HistoryPage{}, dErrors.New(dErrors.CodeValidation, "from_slot must not be negative")
	}
	for _, t := range q.Types {
		if !t.IsValid() {
			return models.HistoryPage{}, dErrors.New(dErrors.CodeValidation, "unknown tx_type "+string(t))
		}
	}
	limit := q.Limit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	limit = min(limit, maxHistoryLimit)

	it := s.log.Scan(ctx, ledger.RangeQuery{
		TokenID: q.TokenID,
		MinSlot: q.FromSlot,
		MaxSlot: q.ToSlot,
		After:   q.After,
		Types:   q.Types,
		Limit:   limit + 1,
	})
	records, err := it.Collect()
	if err != nil {
		return models.HistoryPage{}, translate(err)
	}
	page := models.HistoryPage{Records: records}
	if len(records) > limit {
		page.Records = records[:limit]
		next := records[limit-1].Position()
		page.Next = &next
	}
	if page.Records == nil {
		page.Records = []ledgermodels.Record{}
	}
	return page, nil
}

// VestingStatus evaluates a schedule on the live state at asOf; the zero
// time means now.
func (s *Service) VestingStatus(ctx context.Context, tokenID id.TokenID, scheduleID id.ScheduleID, asOf time.Time) (projector.VestingStatus, error) {
	st, err := s.liveState(ctx, tokenID)
	if err != nil {
		return projector.VestingStatus{}, err
	}
	if asOf.IsZero() {
		asOf = s.now(ctx)
	}
	status, ok := st.Vesting(scheduleID.String(), asOf)
	if !ok {
		return projector.VestingStatus{}, dErrors.New(dErrors.CodeNotFound, "vesting schedule not found")
	}
	return status, nil
}

// SchedulesOf lists the wallet's vesting schedules.
func (s *Service) SchedulesOf(ctx context.Context, tokenID id.TokenID, wallet string) ([]vesting.Schedule, error) {
	st, err := s.liveState(ctx, tokenID)
	if err != nil {
		return nil, err
	}
	out := st.SchedulesOf(wallet)
	if out == nil {
		out = []vesting.Schedule{}
	}
	return out, nil
}

// DividendStatus reports the wallet's entitlement in a round.
func (s *Service) DividendStatus(ctx context.Context, tokenID id.TokenID, roundID id.RoundID, wallet string) (projector.DividendStatus, error) {
	st, err := s.liveState(ctx, tokenID)
	if err != nil {
		return projector.DividendStatus{}, err
	}
	status, ok := st.Dividend(roundID.String(), wallet)
	if !ok {
		return projector.DividendStatus{}, dErrors.New(dErrors.CodeNotFound, "dividend round not found")
	}
	return status, nil
}

func (s *Service) liveState(ctx context.Context, tokenID id.TokenID) (*projector.State, error) {
	st, err := s.snapshots.State(ctx, tokenID, -1)
	if err != nil {
		return nil, s.readFailure(ctx, tokenID, err)
	}
	if !st.Created {
		return nil, dErrors.New(dErrors.CodeNotFound, "token not found")
	}
	return st, nil
}
