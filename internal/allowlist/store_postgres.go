package allowlist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	id "captable/pkg/domain"
	"captable/pkg/requestcontext"
)

// PostgresStore reads and writes the kyc_allowlist table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Add(ctx context.Context, entry Entry) error {
	if entry.Wallet == "" {
		return errors.New("allowlist entry wallet is required")
	}
	query := `
		INSERT INTO kyc_allowlist (token_id, wallet, reason, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (token_id, wallet) DO UPDATE
		SET reason = EXCLUDED.reason, expires_at = EXCLUDED.expires_at
	`
	_, err := s.db.ExecContext(ctx, query,
		entry.TokenID.String(),
		entry.Wallet,
		entry.Reason,
		nullTime(entry.ExpiresAt),
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("add allowlist entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) Remove(ctx context.Context, tokenID id.TokenID, wallet string) error {
	query := `DELETE FROM kyc_allowlist WHERE token_id = $1 AND wallet = $2`
	if _, err := s.db.ExecContext(ctx, query, tokenID.String(), wallet); err != nil {
		return fmt.Errorf("remove allowlist entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) IsAllowed(ctx context.Context, tokenID id.TokenID, wallet string) (bool, error) {
	if wallet == "" {
		return false, nil
	}
	query := `
		SELECT EXISTS (
			SELECT 1 FROM kyc_allowlist
			WHERE token_id = $1 AND wallet = $2 AND (expires_at IS NULL OR expires_at > $3)
		)
	`
	var exists bool
	err := s.db.QueryRowContext(ctx, query, tokenID.String(), wallet, requestcontext.Now(ctx)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check allowlist: %w", err)
	}
	return exists, nil
}

// Allowed resolves a batch of wallets in one round trip. Every requested
// wallet appears in the result.
func (s *PostgresStore) Allowed(ctx context.Context, tokenID id.TokenID, wallets []string) (map[string]bool, error) {
	out := make(map[string]bool, len(wallets))
	if len(wallets) == 0 {
		return out, nil
	}
	for _, w := range wallets {
		out[w] = false
	}
	query := `
		SELECT wallet FROM kyc_allowlist
		WHERE token_id = $1 AND wallet = ANY($2) AND (expires_at IS NULL OR expires_at > $3)
	`
	rows, err := s.db.QueryContext(ctx, query, tokenID.String(), pq.Array(wallets), requestcontext.Now(ctx))
	if err != nil {
		return nil, fmt.Errorf("batch check allowlist: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var w string
		if err := rows.Scan(&w); err != nil {
			return nil, fmt.Errorf("scan allowlist wallet: %w", err)
		}
		out[w] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate allowlist rows: %w", err)
	}
	return out, nil
}

// StartCleanup deletes expired entries every interval until ctx is cancelled.
func (s *PostgresStore) StartCleanup(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := s.RemoveExpiredAt(ctx, time.Now()); err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// RemoveExpiredAt deletes entries expired as of now and reports how many.
func (s *PostgresStore) RemoveExpiredAt(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM kyc_allowlist WHERE expires_at IS NOT NULL AND expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("cleanup allowlist entries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("cleanup allowlist entries: %w", err)
	}
	return n, nil
}

func nullTime(value *time.Time) sql.NullTime {
	if value == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *value, Valid: true}
}
