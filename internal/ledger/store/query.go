// Package store persists event log records. All backends order a token's
// records by (slot, seq) and reject a second record at an existing
// (token_id, seq) with sentinel.ErrConflict.
package store

import (
	"context"
	"database/sql"
	"math"

	"captable/internal/ledger/models"
	id "captable/pkg/domain"
	txcontext "captable/pkg/platform/tx"
)

// NoUpperBound disables the MaxSlot filter.
const NoUpperBound int64 = math.MaxInt64

// DefaultPageSize is used when a Query carries no limit.
const DefaultPageSize = 500

// Query selects one page of a token's records, ascending by (slot, seq).
type Query struct {
	TokenID id.TokenID
	MinSlot int64
	// MaxSlot is inclusive.
	MaxSlot int64
	// After is an exclusive keyset cursor; the zero Position starts at the beginning.
	After models.Position
	Types []models.RecordType
	Limit int
}

func (q Query) limit() int {
	if q.Limit <= 0 {
		return DefaultPageSize
	}
	return q.Limit
}

func (q Query) matches(rec models.Record) bool {
	if rec.Slot < q.MinSlot || rec.Slot > q.MaxSlot {
		return false
	}
	if !after(rec.Position(), q.After) {
		return false
	}
	if len(q.Types) == 0 {
		return true
	}
	for _, t := range q.Types {
		if rec.Type == t {
			return true
		}
	}
	return false
}

func after(p, cursor models.Position) bool {
	if p.Slot != cursor.Slot {
		return p.Slot > cursor.Slot
	}
	return p.Seq > cursor.Seq
}

func typeNames(types []models.RecordType) []string {
	if len(types) == 0 {
		return nil
	}
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = string(t)
	}
	return out
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func execer(ctx context.Context, db *sql.DB) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return db
}
