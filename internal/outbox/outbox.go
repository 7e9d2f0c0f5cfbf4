// Package outbox carries appended records to Kafka. Entries are written in
// the same transaction as the record and relayed afterwards, so a record is
// published at least once iff it was committed.
package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"captable/internal/ledger/models"
)

const AggregateToken = "token"

// Entry is one row of the outbox table.
type Entry struct {
	ID            uuid.UUID
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
	CreatedAt     time.Time
	ProcessedAt   *time.Time
}

// RecordEvent is the message published for every appended record.
type RecordEvent struct {
	EventID string        `json:"event_id"`
	TokenID string        `json:"token_id"`
	Seq     int64         `json:"seq"`
	Slot    int64         `json:"slot"`
	TxType  string        `json:"tx_type"`
	Hash    string        `json:"hash"`
	Record  models.Record `json:"record"`
}

// Store persists outbox entries. Append joins the tx carried in ctx.
type Store interface {
	Append(ctx context.Context, e Entry) error
	// FetchUnprocessed returns the oldest unprocessed entries. Inside a tx
	// the rows stay locked against other relays until it ends.
	FetchUnprocessed(ctx context.Context, limit int) ([]Entry, error)
	MarkProcessed(ctx context.Context, id uuid.UUID, at time.Time) error
}

// NewRecordEntry builds the entry announcing rec.
func NewRecordEntry(rec models.Record, now time.Time) (Entry, error) {
	eventID := uuid.New()
	payload, err := json.Marshal(RecordEvent{
		EventID: eventID.String(),
		TokenID: rec.TokenID.String(),
		Seq:     rec.Seq,
		Slot:    rec.Slot,
		TxType:  string(rec.Type),
		Hash:    rec.Hash,
		Record:  rec,
	})
	if err != nil {
		return Entry{}, fmt.Errorf("marshal record event: %w", err)
	}
	return Entry{
		ID:            eventID,
		AggregateType: AggregateToken,
		AggregateID:   rec.TokenID.String(),
		EventType:     string(rec.Type),
		Payload:       payload,
		CreatedAt:     now,
	}, nil
}

// DecodeRecordEvent parses a published payload.
func DecodeRecordEvent(raw []byte) (RecordEvent, error) {
	var ev RecordEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return RecordEvent{}, fmt.Errorf("decode record event: %w", err)
	}
	return ev, nil
}
