package service

import (
	"context"
	"slices"

	ledgermodels "captable/internal/ledger/models"
	dErrors "captable/pkg/domain-errors"
	"captable/pkg/requestcontext"
)

// requireRole admits the caller classes listed. Non-HTTP callers are system.
func requireRole(ctx context.Context, roles ...requestcontext.Role) error {
	if slices.Contains(roles, requestcontext.CallerRole(ctx)) {
		return nil
	}
	return dErrors.New(dErrors.CodeForbidden, "caller role may not perform this operation")
}

func triggeredBy(ctx context.Context) ledgermodels.TriggeredBy {
	switch requestcontext.CallerRole(ctx) {
	case requestcontext.RoleAdmin:
		return ledgermodels.TriggeredByAdmin
	case requestcontext.RoleWallet:
		return ledgermodels.TriggeredByWallet
	}
	return ledgermodels.TriggeredBySystem
}

// actsFor admits the wallet itself and admin or system callers on its behalf.
func actsFor(ctx context.Context, wallet string) error {
	if requestcontext.CallerRole(ctx) != requestcontext.RoleWallet {
		return nil
	}
	if requestcontext.Wallet(ctx) == wallet {
		return nil
	}
	return dErrors.New(dErrors.CodeForbidden, "wallet callers may only act for their own wallet")
}

// signsAs requires non-system callers to sign with their own wallet.
func signsAs(ctx context.Context, signer string) error {
	if requestcontext.CallerRole(ctx) == requestcontext.RoleSystem {
		return nil
	}
	if requestcontext.Wallet(ctx) == signer {
		return nil
	}
	return dErrors.New(dErrors.CodeForbidden, "callers may only sign as their own wallet")
}
