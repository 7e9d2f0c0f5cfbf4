// Package snapshotcache serves cap table snapshots from periodic checkpoints
// plus incremental replay. Historical snapshots are rebuilt from the nearest
// checkpoint; live snapshots are recomputed on every request.
package snapshotcache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"captable/internal/projector"
	id "captable/pkg/domain"
	"captable/pkg/platform/sentinel"
)

var (
	checkpointLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "captable_checkpoint_lookups_total",
		Help: "Checkpoint lookups by outcome (hit, miss, error)",
	}, []string{"outcome"})
	replayedRecords = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "captable_snapshot_replayed_records",
		Help:    "Records folded after the checkpoint to answer one snapshot request",
		Buckets: prometheus.ExponentialBuckets(1, 4, 8),
	})
)

// DefaultInterval is K, the number of records between checkpoints.
const DefaultInterval = 100

// Projector is the folding side of the cache.
type Projector interface {
	CatchUpEach(ctx context.Context, st *projector.State, target int64, after func(*projector.State) error) (int, error)
	Render(st *projector.State, target int64) projector.Snapshot
}

type Cache struct {
	projector Projector
	store     CheckpointStore
	interval  int64
	logger    *slog.Logger
	tracer    trace.Tracer
	live      singleflight.Group
}

type Option func(*Cache)

// WithInterval sets K; values below 1 keep the default.
func WithInterval(k int64) Option {
	return func(c *Cache) {
		if k > 0 {
			c.interval = k
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

func New(p Projector, store CheckpointStore, opts ...Option) (*Cache, error) {
	if p == nil {
		return nil, errors.New("projector is required")
	}
	if store == nil {
		return nil, errors.New("checkpoint store is required")
	}
	c := &Cache{
		projector: p,
		store:     store,
		interval:  DefaultInterval,
		logger:    slog.Default(),
		tracer:    otel.Tracer("captable/snapshotcache"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Snapshot returns the cap table at target, or the live table when target
// is negative. Concurrent live requests for one token share a single fold.
func (c *Cache) Snapshot(ctx context.Context, tokenID id.TokenID, target int64) (projector.Snapshot, error) {
	if target >= 0 {
		return c.historical(ctx, tokenID, target)
	}
	// The shared fold must not die with whichever caller started it.
	shared := context.WithoutCancel(ctx)
	v, err, _ := c.live.Do(liveKey(tokenID), func() (any, error) {
		return c.historical(shared, tokenID, -1)
	})
	if err != nil {
		return projector.Snapshot{}, err
	}
	return v.(projector.Snapshot), nil
}

// State returns the folded state at target without rendering it.
func (c *Cache) State(ctx context.Context, tokenID id.TokenID, target int64) (*projector.State, error) {
	return c.fold(ctx, tokenID, target)
}

// Forget drops an in-flight live fold so the next caller starts a new one.
func (c *Cache) Forget(tokenID id.TokenID) {
	c.live.Forget(liveKey(tokenID))
}

// Invalidate drops every checkpoint of the token.
func (c *Cache) Invalidate(ctx context.Context, tokenID id.TokenID) error {
	c.Forget(tokenID)
	return c.store.Drop(ctx, tokenID)
}

func liveKey(tokenID id.TokenID) string {
	return "live:" + tokenID.String()
}

func (c *Cache) historical(ctx context.Context, tokenID id.TokenID, target int64) (projector.Snapshot, error) {
	st, err := c.fold(ctx, tokenID, target)
	if err != nil {
		return projector.Snapshot{}, err
	}
	return c.projector.Render(st, target), nil
}

func (c *Cache) fold(ctx context.Context, tokenID id.TokenID, target int64) (*projector.State, error) {
	ctx, span := c.tracer.Start(ctx, "snapshotcache.fold", trace.WithAttributes(
		attribute.String("token_id", tokenID.String()),
		attribute.Int64("target_slot", target),
	))
	defer span.End()

	lookup := target
	if lookup < 0 {
		lookup = math.MaxInt64
	}
	st, err := c.store.Nearest(ctx, tokenID, lookup)
	switch {
	case err == nil:
		checkpointLookups.WithLabelValues("hit").Inc()
		span.SetAttributes(attribute.Int64("checkpoint_seq", st.LastSeq))
	case errors.Is(err, sentinel.ErrNotFound):
		checkpointLookups.WithLabelValues("miss").Inc()
		st = projector.NewState(tokenID)
	default:
		// Checkpoints are an optimization; fall back to a full replay.
		checkpointLookups.WithLabelValues("error").Inc()
		c.logger.WarnContext(ctx, "checkpoint lookup failed, replaying from genesis",
			"token_id", tokenID.String(), "error", err)
		st = projector.NewState(tokenID)
	}

	n, err := c.projector.CatchUpEach(ctx, st, target, func(cur *projector.State) error {
		if cur.RecordCount%c.interval == 0 {
			c.checkpoint(ctx, cur)
		}
		return nil
	})
	replayedRecords.Observe(float64(n))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("replay token %s: %w", tokenID, err)
	}
	return st, nil
}

func (c *Cache) checkpoint(ctx context.Context, st *projector.State) {
	if err := c.store.Save(ctx, st); err != nil {
		c.logger.WarnContext(ctx, "failed to save checkpoint",
			"token_id", st.TokenID.String(), "seq", st.LastSeq, "error", err)
	}
}
