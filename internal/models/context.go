package models

import "context"

type mintContextKey struct{}

// MintContext carries the batch position of a mint through context.
type MintContext struct {
	BatchId    string
	BatchIndex int
}

// WithMintContext attaches batch data to a context.
func WithMintContext(ctx context.Context, mc *MintContext) context.Context {
	return context.WithValue(ctx, mintContextKey{}, mc)
}

// GetMintContext retrieves batch data from context, or nil if absent.
func GetMintContext(ctx context.Context) *MintContext {
	mc, _ := ctx.Value(mintContextKey{}).(*MintContext)
	return mc
}
