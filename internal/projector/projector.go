// Package projector folds a token's event log into cap table state. Folding
// is deterministic: the same records always yield the same state.
package projector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	ledger "captable/internal/ledger/service"
	id "captable/pkg/domain"
)

// LogReader is the slice of the event log the projector needs.
type LogReader interface {
	Scan(ctx context.Context, q ledger.RangeQuery) *ledger.Iterator
}

// Clock supplies the as-of time for live reads.
type Clock func() time.Time

type Projector struct {
	log    LogReader
	clock  Clock
	tracer trace.Tracer
}

type Option func(*Projector)

func WithClock(clock Clock) Option {
	return func(p *Projector) {
		p.clock = clock
	}
}

func New(log LogReader, opts ...Option) (*Projector, error) {
	if log == nil {
		return nil, errors.New("event log is required")
	}
	p := &Projector{
		log:    log,
		clock:  time.Now,
		tracer: otel.Tracer("captable/projector"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// CatchUp folds every record after the state's cursor with slot <= target
// (negative target means the head). It returns the number of records folded.
func (p *Projector) CatchUp(ctx context.Context, st *State, target int64) (int, error) {
	return p.CatchUpEach(ctx, st, target, nil)
}

// CatchUpEach is CatchUp with a hook run after every folded record. A hook
// error stops the fold.
func (p *Projector) CatchUpEach(ctx context.Context, st *State, target int64, after func(*State) error) (int, error) {
	ctx, span := p.tracer.Start(ctx, "projector.CatchUp", trace.WithAttributes(
		attribute.String("token_id", st.TokenID.String()),
		attribute.Int64("from_seq", st.LastSeq),
		attribute.Int64("target_slot", target),
	))
	defer span.End()

	it := p.log.Scan(ctx, ledger.RangeQuery{
		TokenID: st.TokenID,
		MaxSlot: target,
		After:   st.Position(),
	})
	defer it.Close()

	n := 0
	for it.Next() {
		if err := st.Apply(it.Record()); err != nil {
			span.RecordError(err)
			return n, err
		}
		n++
		if after != nil {
			if err := after(st); err != nil {
				return n, err
			}
		}
	}
	if err := it.Err(); err != nil {
		span.RecordError(err)
		return n, fmt.Errorf("read event log: %w", err)
	}
	return n, nil
}

// Fold replays the token from genesis up to target.
func (p *Projector) Fold(ctx context.Context, tokenID id.TokenID, target int64) (*State, error) {
	st := NewState(tokenID)
	if _, err := p.CatchUp(ctx, st, target); err != nil {
		return nil, err
	}
	return st, nil
}

// Project returns the cap table at target without any cache. A negative
// target is a live read evaluated at the current clock.
func (p *Projector) Project(ctx context.Context, tokenID id.TokenID, target int64) (Snapshot, error) {
	st, err := p.Fold(ctx, tokenID, target)
	if err != nil {
		return Snapshot{}, err
	}
	return p.Render(st, target), nil
}

// Render turns folded state into a snapshot. Historical snapshots are
// evaluated at the last folded block time; live ones at the clock.
func (p *Projector) Render(st *State, target int64) Snapshot {
	if target < 0 {
		return st.Snapshot(-1, p.clock())
	}
	return st.Snapshot(target, st.LastBlockTime)
}
