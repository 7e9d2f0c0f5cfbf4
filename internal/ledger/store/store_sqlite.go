package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"captable/internal/ledger/models"
	id "captable/pkg/domain"
	"captable/pkg/platform/sentinel"
)

// SQLiteStore is the embedded single-node backend. Times are stored as unix
// microseconds, matching the precision the hash chain commits to.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens (or creates) the database file and applies the schema.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, *SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection serializes writers; sqlite allows one at a time anyway.
	db.SetMaxOpenConns(1)
	s, err := NewSQLite(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return db, s, nil
}

func NewSQLite(ctx context.Context, db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db, now: time.Now}
	if err := s.migrate(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS transactions (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		token_id       TEXT    NOT NULL,
		seq            INTEGER NOT NULL,
		slot           INTEGER NOT NULL CHECK (slot >= 0),
		block_time_us  INTEGER NOT NULL,
		tx_type        TEXT    NOT NULL,
		wallet         TEXT    NOT NULL DEFAULT '',
		wallet_to      TEXT    NOT NULL DEFAULT '',
		amount         INTEGER NOT NULL DEFAULT 0,
		share_class_id INTEGER,
		payload        TEXT,
		reference_id   TEXT    NOT NULL DEFAULT '',
		tx_signature   TEXT    NOT NULL DEFAULT '',
		triggered_by   TEXT    NOT NULL,
		prev_hash      TEXT    NOT NULL DEFAULT '',
		hash           TEXT    NOT NULL,
		created_at_us  INTEGER NOT NULL,
		UNIQUE (token_id, seq)
	);
	CREATE INDEX IF NOT EXISTS transactions_token_slot_idx ON transactions (token_id, slot, seq);`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("migrate sqlite: %w", err)
	}
	return nil
}

const sqliteColumns = `id, token_id, seq, slot, block_time_us, tx_type, wallet, wallet_to, amount,
	share_class_id, payload, reference_id, tx_signature, triggered_by, prev_hash, hash, created_at_us`

func (s *SQLiteStore) Insert(ctx context.Context, rec models.Record) (models.Record, error) {
	rec.CreatedAt = s.now().UTC().Truncate(time.Microsecond)
	res, err := execer(ctx, s.db).ExecContext(ctx, `
		INSERT INTO transactions (
			token_id, seq, slot, block_time_us, tx_type, wallet, wallet_to, amount,
			share_class_id, payload, reference_id, tx_signature, triggered_by, prev_hash, hash, created_at_us
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.TokenID.String(),
		rec.Seq,
		rec.Slot,
		rec.BlockTime.UnixMicro(),
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
		rec.CreatedAt.UnixMicro(),
	)
	if err != nil {
		if isSQLiteUnique(err) {
			return models.Record{}, fmt.Errorf("token %s seq %d: %w", rec.TokenID, rec.Seq, sentinel.ErrConflict)
		}
		return models.Record{}, fmt.Errorf("insert record: %w", err)
	}
	rec.ID, err = res.LastInsertId()
	if err != nil {
		return models.Record{}, fmt.Errorf("read record id: %w", err)
	}
	return rec, nil
}

func (s *SQLiteStore) Head(ctx context.Context, tokenID id.TokenID) (models.Record, error) {
	row := execer(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+sqliteColumns+` FROM transactions WHERE token_id = ? ORDER BY seq DESC LIMIT 1`,
		tokenID.String())
	rec, err := scanSQLiteRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Record{}, sentinel.ErrNotFound
		}
		return models.Record{}, fmt.Errorf("read log head: %w", err)
	}
	return rec, nil
}

func (s *SQLiteStore) Page(ctx context.Context, q Query) ([]models.Record, error) {
	rows, err := execer(ctx, s.db).QueryContext(ctx, `
		SELECT `+sqliteColumns+`
		FROM transactions
		WHERE token_id = ?
		  AND slot >= ? AND slot <= ?
		  AND (slot > ? OR (slot = ? AND seq > ?))
		ORDER BY slot, seq`,
		q.TokenID.String(), q.MinSlot, q.MaxSlot, q.After.Slot, q.After.Slot, q.After.Seq,
	)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	limit := q.limit()
	var out []models.Record
	for rows.Next() {
		rec, err := scanSQLiteRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		// Type filtering happens here; sqlite has no array parameters.
		if !q.matches(rec) {
			continue
		}
		out = append(out, rec)
		if len(out) == limit {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) Tokens(ctx context.Context) ([]id.TokenID, error) {
	rows, err := execer(ctx, s.db).QueryContext(ctx, `SELECT DISTINCT token_id FROM transactions ORDER BY token_id`)
	if err != nil {
		return nil, fmt.Errorf("query tokens: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []id.TokenID
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan token id: %w", err)
		}
		u, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("token id %q: %w", raw, sentinel.ErrCorrupt)
		}
		out = append(out, id.TokenID(u))
	}
	return out, rows.Err()
}

func scanSQLiteRecord(row rowScanner) (models.Record, error) {
	var (
		rec         models.Record
		tokenID     string
		blockTimeUs int64
		createdUs   int64
		recType     string
		triggeredBy string
		shareClass  sql.NullInt64
		payload     sql.NullString
	)
	err := row.Scan(
		&rec.ID, &tokenID, &rec.Seq, &rec.Slot, &blockTimeUs, &recType,
		&rec.Wallet, &rec.WalletTo, &rec.Amount, &shareClass, &payload,
		&rec.ReferenceID, &rec.TxSignature, &triggeredBy, &rec.PrevHash, &rec.Hash, &createdUs,
	)
	if err != nil {
		return models.Record{}, err
	}
	u, err := uuid.Parse(tokenID)
	if err != nil {
		return models.Record{}, fmt.Errorf("token id %q: %w", tokenID, sentinel.ErrCorrupt)
	}
	rec.TokenID = id.TokenID(u)
	rec.BlockTime = time.UnixMicro(blockTimeUs).UTC()
	rec.CreatedAt = time.UnixMicro(createdUs).UTC()
	rec.Type = models.RecordType(recType)
	rec.TriggeredBy = models.TriggeredBy(triggeredBy)
	if shareClass.Valid {
		v := shareClass.Int64
		rec.ShareClassID = &v
	}
	if payload.Valid && payload.String != "" {
		rec.Payload = []byte(payload.String)
	}
	return rec, nil
}

func isSQLiteUnique(err error) bool {
	var sErr *sqlite.Error
	return errors.As(err, &sErr) && sErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}
