// Package ports declares what the token service needs from the outside.
package ports

//go:generate mockgen -source=ports.go -destination=../mocks/ports.go -package=mocks

import (
	"context"

	ledgermodels "captable/internal/ledger/models"
	ledger "captable/internal/ledger/service"
	"captable/internal/outbox"
	"captable/internal/projector"
	id "captable/pkg/domain"
)

// EventLog is the durable append-only log.
type EventLog interface {
	Append(ctx context.Context, rec ledgermodels.Record) (ledgermodels.Record, error)
	Scan(ctx context.Context, q ledger.RangeQuery) *ledger.Iterator
}

// Snapshots answers cap table reads, usually the checkpoint cache.
type Snapshots interface {
	Snapshot(ctx context.Context, tokenID id.TokenID, target int64) (projector.Snapshot, error)
	State(ctx context.Context, tokenID id.TokenID, target int64) (*projector.State, error)
	Forget(tokenID id.TokenID)
}

// AllowlistChecker is an off-log KYC check. The on-log allowlist is always
// consulted first; this only narrows it.
type AllowlistChecker interface {
	IsAllowed(ctx context.Context, tokenID id.TokenID, wallet string) (bool, error)
}

// SlotSource reports the current chain slot for new records.
type SlotSource interface {
	CurrentSlot(ctx context.Context) (int64, error)
}

// OutboxWriter joins the append transaction carried in ctx.
type OutboxWriter interface {
	Append(ctx context.Context, e outbox.Entry) error
}

// TxRunner runs fn in one unit of work shared by the log and the outbox.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}
