package outbox

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	relayedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "captable_outbox_relayed_total",
		Help: "Outbox entries published to Kafka",
	})
	relayFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "captable_outbox_relay_failures_total",
		Help: "Outbox entries that failed to publish",
	})
)

// Publisher delivers one message to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, key, value []byte, headers map[string]string) error
}

// TxRunner scopes a batch to one transaction.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Relay polls the outbox and publishes pending entries keyed by aggregate,
// so records of one token stay ordered within a partition.
type Relay struct {
	store     Store
	publisher Publisher
	runner    TxRunner
	topic     string
	batchSize int
	interval  time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

type RelayOption func(*Relay)

func WithBatchSize(n int) RelayOption {
	return func(r *Relay) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

func WithInterval(d time.Duration) RelayOption {
	return func(r *Relay) {
		if d > 0 {
			r.interval = d
		}
	}
}

func WithLogger(logger *slog.Logger) RelayOption {
	return func(r *Relay) {
		r.logger = logger
	}
}

// WithTxRunner locks each batch in a transaction (postgres backends).
func WithTxRunner(runner TxRunner) RelayOption {
	return func(r *Relay) {
		r.runner = runner
	}
}

func NewRelay(store Store, publisher Publisher, topic string, opts ...RelayOption) (*Relay, error) {
	if store == nil {
		return nil, errors.New("outbox store is required")
	}
	if publisher == nil {
		return nil, errors.New("publisher is required")
	}
	if topic == "" {
		return nil, errors.New("topic is required")
	}
	r := &Relay{
		store:     store,
		publisher: publisher,
		topic:     topic,
		batchSize: 100,
		interval:  time.Second,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Run relays until ctx is done.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		n, err := r.ProcessBatch(ctx)
		if err != nil && ctx.Err() == nil {
			r.logger.WarnContext(ctx, "outbox relay batch failed", "error", err)
		}
		if n == r.batchSize {
			continue
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// ProcessBatch publishes up to one batch and returns how many entries were
// marked processed. It stops at the first publish failure so later entries
// of the same token are not published ahead of it.
func (r *Relay) ProcessBatch(ctx context.Context) (int, error) {
	processed := 0
	run := func(ctx context.Context) error {
		entries, err := r.store.FetchUnprocessed(ctx, r.batchSize)
		if err != nil {
			return err
		}
		for _, e := range entries {
			headers := map[string]string{
				"event_id":       e.ID.String(),
				"event_type":     e.EventType,
				"aggregate_type": e.AggregateType,
			}
			if err := r.publisher.Publish(ctx, r.topic, []byte(e.AggregateID), e.Payload, headers); err != nil {
				relayFailures.Inc()
				return err
			}
			if err := r.store.MarkProcessed(ctx, e.ID, r.now()); err != nil {
				return err
			}
			relayedTotal.Inc()
			processed++
		}
		return nil
	}
	if r.runner == nil {
		err := run(ctx)
		return processed, err
	}
	err := r.runner.RunInTx(ctx, run)
	if err != nil {
		// The rollback discarded every mark in this batch.
		processed = 0
	}
	return processed, err
}
