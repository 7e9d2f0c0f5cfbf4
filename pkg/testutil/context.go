package testutil

import (
	"net/http"

	"captable/pkg/requestcontext"
)

// AsCaller puts the wallet and role the auth middleware would have set on req.
func AsCaller(req *http.Request, wallet string, role requestcontext.Role) *http.Request {
	ctx := requestcontext.WithWallet(req.Context(), wallet)
	ctx = requestcontext.WithRole(ctx, role)
	return req.WithContext(ctx)
}

// AsAdmin is AsCaller with the admin role.
func AsAdmin(req *http.Request, wallet string) *http.Request {
	return AsCaller(req, wallet, requestcontext.RoleAdmin)
}
