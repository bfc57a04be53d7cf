// Package authctx carries the typed authenticated-request context resolved by
// the auth middleware.
package authctx

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

// Claims is the authenticated caller identity.
type Claims struct {
	UserID     snowflake.ID
	Email      string
	OrgID      snowflake.ID
	Role       string
	SuperAdmin bool
}

type claimsKey struct{}

func WithClaims(ctx context.Context, claims Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

func ClaimsFromContext(ctx context.Context) (Claims, bool) {
	if ctx == nil {
		return Claims{}, false
	}
	claims, ok := ctx.Value(claimsKey{}).(Claims)
	return claims, ok
}
