// Package allowlist is the off-log KYC allowlist. The on-log allowlist
// (APPROVAL/REVOCATION records) is authoritative for a token; entries here
// narrow it further when a deployment keeps KYC status in its own table.
package allowlist

import (
	"context"
	"time"

	id "captable/pkg/domain"
)

// Entry clears one wallet for one token until ExpiresAt.
type Entry struct {
	TokenID   id.TokenID `json:"token_id"`
	Wallet    string     `json:"wallet"`
	Reason    string     `json:"reason,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// ActiveAt reports whether the entry has not expired at now.
func (e Entry) ActiveAt(now time.Time) bool {
	return e.ExpiresAt == nil || e.ExpiresAt.After(now)
}

// Store is implemented by the memory and PostgreSQL backends.
type Store interface {
	Add(ctx context.Context, entry Entry) error
	Remove(ctx context.Context, tokenID id.TokenID, wallet string) error
	IsAllowed(ctx context.Context, tokenID id.TokenID, wallet string) (bool, error)
	Allowed(ctx context.Context, tokenID id.TokenID, wallets []string) (map[string]bool, error)
}
