// Package service is the event log: the only writer of the transactions table.
// It validates structure, assigns the per-token sequence, extends the hash
// chain and hands records to a durable store.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"captable/internal/ledger/hashchain"
	"captable/internal/ledger/models"
	"captable/internal/ledger/store"
	"captable/internal/ledger/validation"
	id "captable/pkg/domain"
	"captable/pkg/platform/sentinel"
)

// Store is the persistence port. Backends live in internal/ledger/store.
type Store interface {
	Insert(ctx context.Context, rec models.Record) (models.Record, error)
	Head(ctx context.Context, tokenID id.TokenID) (models.Record, error)
	Page(ctx context.Context, q store.Query) ([]models.Record, error)
	Tokens(ctx context.Context) ([]id.TokenID, error)
}

// Log is the append-only, slot-ordered transaction log.
type Log struct {
	store     Store
	validator *validation.Validator
	logger    *slog.Logger
	tracer    trace.Tracer
	pageSize  int
}

type Option func(*Log)

func WithLogger(logger *slog.Logger) Option {
	return func(l *Log) {
		l.logger = logger
	}
}

// WithPageSize sets how many records an Iterator fetches per round trip.
func WithPageSize(n int) Option {
	return func(l *Log) {
		if n > 0 {
			l.pageSize = n
		}
	}
}

func New(st Store, opts ...Option) (*Log, error) {
	if st == nil {
		return nil, errors.New("record store is required")
	}
	v, err := validation.New()
	if err != nil {
		return nil, fmt.Errorf("build record validator: %w", err)
	}
	l := &Log{
		store:     st,
		validator: v,
		logger:    slog.Default(),
		tracer:    otel.Tracer("captable/ledger"),
		pageSize:  store.DefaultPageSize,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Append validates rec, links it to the token's chain head and persists it.
// The returned record carries the assigned ID, Seq and Hash. Callers that need
// the append to commit with other writes run it inside a tx from ctx.
//
// Errors: models.ErrInvalidRecord for structural failures (nothing written),
// sentinel.ErrConflict when a concurrent writer took the next seq.
func (l *Log) Append(ctx context.Context, rec models.Record) (models.Record, error) {
	ctx, span := l.tracer.Start(ctx, "ledger.Append", trace.WithAttributes(
		attribute.String("token_id", rec.TokenID.String()),
		attribute.String("tx_type", string(rec.Type)),
		attribute.Int64("slot", rec.Slot),
	))
	defer span.End()

	// The chain commits to microsecond block time, the finest precision every
	// backend round-trips.
	rec.BlockTime = rec.BlockTime.UTC().Truncate(time.Microsecond)
	rec.ID = 0
	rec.CreatedAt = time.Time{}

	if err := l.validator.Validate(rec); err != nil {
		return models.Record{}, err
	}

	prevHash := ""
	var nextSeq int64 = 1
	head, err := l.store.Head(ctx, rec.TokenID)
	switch {
	case err == nil:
		if rec.Slot < head.Slot {
			return models.Record{}, fmt.Errorf("%w: slot %d is below the latest slot %d", models.ErrInvalidRecord, rec.Slot, head.Slot)
		}
		if rec.Type == models.TypeTokenCreate {
			return models.Record{}, fmt.Errorf("%w: token %s already exists", models.ErrInvalidRecord, rec.TokenID)
		}
		prevHash = head.Hash
		nextSeq = head.Seq + 1
	case errors.Is(err, sentinel.ErrNotFound):
		if rec.Type != models.TypeTokenCreate {
			return models.Record{}, fmt.Errorf("%w: first record of a token must be %s", models.ErrInvalidRecord, models.TypeTokenCreate)
		}
	default:
		span.RecordError(err)
		return models.Record{}, fmt.Errorf("read log head: %w", err)
	}

	rec.Seq = nextSeq
	sealed, err := hashchain.Seal(prevHash, rec)
	if err != nil {
		return models.Record{}, err
	}
	stored, err := l.store.Insert(ctx, sealed)
	if err != nil {
		span.RecordError(err)
		return models.Record{}, err
	}
	l.logger.DebugContext(ctx, "record appended",
		"token_id", stored.TokenID.String(),
		"seq", stored.Seq,
		"slot", stored.Slot,
		"tx_type", string(stored.Type),
	)
	return stored, nil
}

// Range returns a lazy iterator over the token's records with
// minSlot <= slot <= maxSlot. A negative maxSlot means no upper bound.
func (l *Log) Range(ctx context.Context, tokenID id.TokenID, minSlot, maxSlot int64) *Iterator {
	return l.Scan(ctx, RangeQuery{TokenID: tokenID, MinSlot: minSlot, MaxSlot: maxSlot})
}

// RangeQuery narrows a scan by slot window, keyset cursor and record types.
type RangeQuery struct {
	TokenID id.TokenID
	MinSlot int64
	// MaxSlot is inclusive; negative means no upper bound.
	MaxSlot int64
	After   models.Position
	Types   []models.RecordType
	// Limit caps the total number of records yielded; 0 is unlimited.
	Limit int
}

// Scan returns a lazy iterator for q. Restart an interrupted scan by passing
// the last yielded Position as After.
func (l *Log) Scan(ctx context.Context, q RangeQuery) *Iterator {
	if q.MaxSlot < 0 {
		q.MaxSlot = store.NoUpperBound
	}
	return &Iterator{
		ctx:   ctx,
		store: l.store,
		query: store.Query{
			TokenID: q.TokenID,
			MinSlot: q.MinSlot,
			MaxSlot: q.MaxSlot,
			After:   q.After,
			Types:   q.Types,
			Limit:   l.pageSize,
		},
		remaining: q.Limit,
	}
}

// LatestSlot returns the highest slot in the token's log, or -1 when empty.
func (l *Log) LatestSlot(ctx context.Context, tokenID id.TokenID) (int64, error) {
	head, err := l.Head(ctx, tokenID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return -1, nil
		}
		return 0, err
	}
	return head.Slot, nil
}

// Head returns the token's last record or sentinel.ErrNotFound.
func (l *Log) Head(ctx context.Context, tokenID id.TokenID) (models.Record, error) {
	head, err := l.store.Head(ctx, tokenID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.Record{}, err
		}
		return models.Record{}, fmt.Errorf("read log head: %w", err)
	}
	return head, nil
}

// Tokens lists every token with at least one record.
func (l *Log) Tokens(ctx context.Context) ([]id.TokenID, error) {
	return l.store.Tokens(ctx)
}
