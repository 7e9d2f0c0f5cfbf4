// Package chain reads the current Solana slot, the ordering clock of the
// event log.
package chain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gagliardetto/solana-go/rpc"
	"golang.org/x/time/rate"

	"captable/internal/platform/config"
	"captable/pkg/platform/circuit"
	"captable/pkg/platform/sentinel"
)

// RPC is the slice of the Solana JSON-RPC client used here.
type RPC interface {
	GetSlot(ctx context.Context, commitment rpc.CommitmentType) (uint64, error)
}

// RPCSlots reads finalized slots from a Solana node. Calls are rate limited
// and guarded by a breaker; while the breaker is open the last slot seen is
// served instead.
type RPCSlots struct {
	client  RPC
	limiter *rate.Limiter
	breaker *circuit.Breaker
	timeout time.Duration
	logger  *slog.Logger
	last    atomic.Int64
}

type Option func(*RPCSlots)

func WithLogger(logger *slog.Logger) Option {
	return func(s *RPCSlots) {
		s.logger = logger
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(s *RPCSlots) {
		if b != nil {
			s.breaker = b
		}
	}
}

func WithLimiter(l *rate.Limiter) Option {
	return func(s *RPCSlots) {
		if l != nil {
			s.limiter = l
		}
	}
}

// NewRPCSlots wraps an RPC client.
func NewRPCSlots(client RPC, opts ...Option) (*RPCSlots, error) {
	if client == nil {
		return nil, errors.New("rpc client is required")
	}
	s := &RPCSlots{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(10), 10),
		breaker: circuit.New("solana-rpc"),
		timeout: 2 * time.Second,
		logger:  slog.Default(),
	}
	s.last.Store(-1)
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// NewFromConfig dials the configured RPC endpoint.
func NewFromConfig(cfg config.ChainConfig, logger *slog.Logger) (*RPCSlots, error) {
	opts := []Option{
		WithLogger(logger),
		WithBreaker(circuit.New("solana-rpc", circuit.WithFailureThreshold(cfg.BreakerFailures))),
	}
	if cfg.RateLimit > 0 {
		opts = append(opts, WithLimiter(rate.NewLimiter(rate.Limit(cfg.RateLimit), max(cfg.Burst, 1))))
	}
	s, err := NewRPCSlots(rpc.New(cfg.RPCURL), opts...)
	if err != nil {
		return nil, err
	}
	if cfg.RequestTimeout > 0 {
		s.timeout = cfg.RequestTimeout
	}
	return s, nil
}

// CurrentSlot returns the finalized slot. When the node is unreachable it
// returns the last slot observed, or sentinel.ErrUnavailable if there is none.
func (s *RPCSlots) CurrentSlot(ctx context.Context) (int64, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return s.fallback(fmt.Errorf("rate limit: %w", err))
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	slot, err := s.client.GetSlot(callCtx, rpc.CommitmentFinalized)
	if err != nil {
		_, change := s.breaker.RecordFailure()
		if change.Opened {
			s.logger.WarnContext(ctx, "solana rpc breaker opened", "breaker", s.breaker.Name(), "error", err)
		}
		return s.fallback(err)
	}

	usePrimary, change := s.breaker.RecordSuccess()
	if change.Closed {
		s.logger.InfoContext(ctx, "solana rpc breaker closed", "breaker", s.breaker.Name())
	}
	observed := int64(slot)
	if !usePrimary {
		// Probe succeeded but the breaker is still open.
		s.advance(observed)
		return s.fallback(nil)
	}
	return s.advance(observed), nil
}

// advance raises the high-water mark and returns it; slots never go back.
func (s *RPCSlots) advance(slot int64) int64 {
	for {
		cur := s.last.Load()
		if slot <= cur {
			return cur
		}
		if s.last.CompareAndSwap(cur, slot) {
			return slot
		}
	}
}

func (s *RPCSlots) fallback(cause error) (int64, error) {
	if last := s.last.Load(); last >= 0 {
		return last, nil
	}
	if cause == nil {
		cause = errors.New("no slot observed")
	}
	return 0, fmt.Errorf("%w: current slot: %v", sentinel.ErrUnavailable, cause)
}

// ClockSlots derives slots from wall time at Solana's 400ms target slot
// time. It serves deployments without an RPC endpoint.
type ClockSlots struct {
	now     func() time.Time
	genesis time.Time
}

// SlotDuration is the target slot time.
const SlotDuration = 400 * time.Millisecond

func NewClockSlots(genesis time.Time, now func() time.Time) *ClockSlots {
	if now == nil {
		now = time.Now
	}
	return &ClockSlots{now: now, genesis: genesis}
}

func (c *ClockSlots) CurrentSlot(context.Context) (int64, error) {
	elapsed := c.now().Sub(c.genesis)
	if elapsed < 0 {
		return 0, nil
	}
	return int64(elapsed / SlotDuration), nil
}
