package models

import (
	"context"
)

type principalContextKey struct{}

// Principal is the signed-in identity supplied by the identity provider.
// ClerkId is the provider subject; Email keys admin lookups.
type Principal struct {
	ClerkId string
	Email   string
}

// WithPrincipal attaches the authenticated identity to a context.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// GetPrincipal retrieves the authenticated identity from context, or nil if absent.
func GetPrincipal(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalContextKey{}).(*Principal)
	return p
}
