package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"captable/internal/ledger/models"
	"captable/internal/platform/postgres"
	id "captable/pkg/domain"
	"captable/pkg/platform/sentinel"
)

const recordColumns = `id, token_id, seq, slot, block_time, tx_type, wallet, wallet_to, amount,
	share_class_id, payload, reference_id, tx_signature, triggered_by, prev_hash, hash, created_at`

// PostgresStore persists records in the transactions table. Writes join the
// transaction carried in ctx so an append and its outbox row commit together.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed record store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Insert(ctx context.Context, rec models.Record) (models.Record, error) {
	query := `
		INSERT INTO transactions (
			token_id, seq, slot, block_time, tx_type, wallet, wallet_to, amount,
			share_class_id, payload, reference_id, tx_signature, triggered_by, prev_hash, hash
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id, created_at
	`
	err := execer(ctx, s.db).QueryRowContext(ctx, query,
		uuid.UUID(rec.TokenID),
		rec.Seq,
		rec.Slot,
		rec.BlockTime,
		string(rec.Type),
		rec.Wallet,
		rec.WalletTo,
		rec.Amount,
		nullInt64(rec.ShareClassID),
		nullJSON(rec.Payload),
		rec.ReferenceID,
		rec.TxSignature,
		string(rec.TriggeredBy),
		rec.PrevHash,
		rec.Hash,
	).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err, "transactions_token_seq_key") {
			return models.Record{}, fmt.Errorf("token %s seq %d: %w", rec.TokenID, rec.Seq, sentinel.ErrConflict)
		}
		return models.Record{}, fmt.Errorf("insert record: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) Head(ctx context.Context, tokenID id.TokenID) (models.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM transactions WHERE token_id = $1 ORDER BY seq DESC LIMIT 1`
	rec, err := scanRecord(execer(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(tokenID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Record{}, sentinel.ErrNotFound
		}
		return models.Record{}, fmt.Errorf("read log head: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) Page(ctx context.Context, q Query) ([]models.Record, error) {
	query := `SELECT ` + recordColumns + `
		FROM transactions
		WHERE token_id = $1
		  AND slot >= $2 AND slot <= $3
		  AND (slot, seq) > ($4, $5)
		  AND ($6::text[] IS NULL OR tx_type = ANY($6::text[]))
		ORDER BY slot, seq
		LIMIT $7
	`
	rows, err := execer(ctx, s.db).QueryContext(ctx, query,
		uuid.UUID(q.TokenID),
		q.MinSlot,
		q.MaxSlot,
		q.After.Slot,
		q.After.Seq,
		pq.Array(typeNames(q.Types)),
		q.limit(),
	)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var out []models.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Tokens(ctx context.Context) ([]id.TokenID, error) {
	rows, err := execer(ctx, s.db).QueryContext(ctx, `SELECT DISTINCT token_id FROM transactions ORDER BY token_id`)
	if err != nil {
		return nil, fmt.Errorf("query tokens: %w", err)
	}
	defer rows.Close()

	var out []id.TokenID
	for rows.Next() {
		var u uuid.UUID
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("scan token id: %w", err)
		}
		out = append(out, id.TokenID(u))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tokens: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (models.Record, error) {
	var (
		rec         models.Record
		tokenID     uuid.UUID
		recType     string
		triggeredBy string
		shareClass  sql.NullInt64
		payload     []byte
	)
	err := row.Scan(
		&rec.ID,
		&tokenID,
		&rec.Seq,
		&rec.Slot,
		&rec.BlockTime,
		&recType,
		&rec.Wallet,
		&rec.WalletTo,
		&rec.Amount,
		&shareClass,
		&payload,
		&rec.ReferenceID,
		&rec.TxSignature,
		&triggeredBy,
		&rec.PrevHash,
		&rec.Hash,
		&rec.CreatedAt,
	)
	if err != nil {
		return models.Record{}, err
	}
	rec.TokenID = id.TokenID(tokenID)
	rec.Type = models.RecordType(recType)
	rec.TriggeredBy = models.TriggeredBy(triggeredBy)
	rec.BlockTime = rec.BlockTime.UTC()
	rec.CreatedAt = rec.CreatedAt.UTC()
	if shareClass.Valid {
		v := shareClass.Int64
		rec.ShareClassID = &v
	}
	if len(payload) > 0 {
		rec.Payload = payload
	}
	return rec, nil
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullJSON(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
