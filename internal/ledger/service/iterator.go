package service

import (
	"context"

	"captable/internal/ledger/models"
	"captable/internal/ledger/store"
)

type pager interface {
	Page(ctx context.Context, q store.Query) ([]models.Record, error)
}

// Iterator walks a record range page by page. It is not safe for concurrent use.
//
//	it := log.Range(ctx, token, 0, -1)
//	defer it.Close()
//	for it.Next() {
//		rec := it.Record()
//	}
//	if err := it.Err(); err != nil { ... }
type Iterator struct {
	ctx       context.Context
	store     pager
	query     store.Query
	buf       []models.Record
	cur       models.Record
	err       error
	done      bool
	remaining int
	yielded   int
}

// Next advances to the next record, fetching a page when the buffer is empty.
func (it *Iterator) Next() bool {
	if it.err != nil || (it.done && len(it.buf) == 0) {
		return false
	}
	if it.remaining > 0 && it.yielded >= it.remaining {
		return false
	}
	if len(it.buf) == 0 {
		if err := it.ctx.Err(); err != nil {
			it.err = err
			return false
		}
		page, err := it.store.Page(it.ctx, it.query)
		if err != nil {
			it.err = err
			return false
		}
		if len(page) < it.query.Limit {
			it.done = true
		}
		if len(page) == 0 {
			return false
		}
		it.buf = page
		it.query.After = page[len(page)-1].Position()
	}
	it.cur = it.buf[0]
	it.buf = it.buf[1:]
	it.yielded++
	return true
}

// Record returns the current record. Valid after Next returned true.
func (it *Iterator) Record() models.Record {
	return it.cur
}

// Position is the cursor of the current record, usable as RangeQuery.After.
func (it *Iterator) Position() models.Position {
	return it.cur.Position()
}

func (it *Iterator) Err() error {
	return it.err
}

// Close releases buffered records. Iterators hold no connections between pages.
func (it *Iterator) Close() error {
	it.buf = nil
	it.done = true
	return nil
}

// Collect drains the iterator into a slice.
func (it *Iterator) Collect() ([]models.Record, error) {
	defer it.Close()
	var out []models.Record
	for it.Next() {
		out = append(out, it.Record())
	}
	return out, it.Err()
}
