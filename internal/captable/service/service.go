// Package service is the token service: the single writer of every token's
// log. All writes for one token run under that token's book lock, are
// checked against a dry run of the folded state and gate, and only then
// appended. Reads go through the snapshot cache and never take the lock.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"captable/internal/captable/metrics"
	"captable/internal/captable/ports"
	"captable/internal/ledger/validation"
	id "captable/pkg/domain"
	"captable/pkg/requestcontext"
)

// DefaultProposalTTL bounds how long a proposal collects approvals.
const DefaultProposalTTL = 7 * 24 * time.Hour

type Service struct {
	log       ports.EventLog
	snapshots ports.Snapshots
	slots     ports.SlotSource
	allowlist ports.AllowlistChecker
	outbox    ports.OutboxWriter
	tx        ports.TxRunner
	clock     func() time.Time
	ttl       time.Duration
	logger    *slog.Logger
	metrics   *metrics.Metrics
	tracer    trace.Tracer
	validator *validation.Validator

	// governance is stamped onto each new holder proposal.
	governance GovernanceRules

	mu    sync.Mutex
	books map[id.TokenID]*book
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithAllowlist adds an off-log KYC check on top of the on-log allowlist.
func WithAllowlist(checker ports.AllowlistChecker) Option {
	return func(s *Service) {
		s.allowlist = checker
	}
}

// WithOutbox announces every appended record through w. Pair it with
// WithTxRunner so the entry commits with the record.
func WithOutbox(w ports.OutboxWriter) Option {
	return func(s *Service) {
		s.outbox = w
	}
}

func WithTxRunner(r ports.TxRunner) Option {
	return func(s *Service) {
		s.tx = r
	}
}

// WithClock sets the fallback clock used when the request carries no time.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		s.clock = clock
	}
}

// WithProposalTTL sets how long proposals stay open; 0 keeps them open until
// executed or cancelled.
func WithProposalTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl >= 0 {
			s.ttl = ttl
		}
	}
}

func New(log ports.EventLog, snapshots ports.Snapshots, slots ports.SlotSource, opts ...Option) (*Service, error) {
	if log == nil {
		return nil, errors.New("event log is required")
	}
	if snapshots == nil {
		return nil, errors.New("snapshot reader is required")
	}
	if slots == nil {
		return nil, errors.New("slot source is required")
	}
	v, err := validation.New()
	if err != nil {
		return nil, fmt.Errorf("build record validator: %w", err)
	}
	s := &Service{
		validator:  v,
		log:        log,
		snapshots:  snapshots,
		slots:      slots,
		tx:         inlineTx{},
		clock:      time.Now,
		ttl:        DefaultProposalTTL,
		governance: DefaultGovernanceRules(),
		logger:     slog.Default(),
		tracer:     otel.Tracer("captable/service"),
		books:      make(map[id.TokenID]*book),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// now prefers the request-scoped time set by middleware.
func (s *Service) now(ctx context.Context) time.Time {
	if t, ok := requestcontext.TimeFrom(ctx); ok {
		return t.UTC()
	}
	return s.clock().UTC()
}

// inlineTx runs fn directly, for backends without transactions.
type inlineTx struct{}

func (inlineTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (s *Service) logAudit(ctx context.Context, event string, attributes ...any) {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", event, "log_type", "audit")
	s.logger.InfoContext(ctx, event, args...)
}
