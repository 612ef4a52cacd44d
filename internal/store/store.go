package store

import (
	"context"
	"errors"

	"xrpl-iou-issuer-go/internal/models"
)

// Sentinel errors shared across all backend implementations.
var (
	ErrDuplicateMint = errors.New("duplicate mint")
	ErrMintNotFound  = errors.New("mint not found")
)

// Resolution is the final outcome of a mint that was left pending.
type Resolution struct {
	TxHash      string
	Status      string
	LedgerIndex uint32
	ResultCode  string
	Message     string
}

// IssuanceStore defines the contract that every audit backend (SQLite, Formance, ...) must satisfy.
type IssuanceStore interface {
	// RecordMint stores rec, replacing any earlier record with the same hash.
	RecordMint(ctx context.Context, rec models.MintRecord) error
	// ResolveMint moves a pending mint to its final status.
	ResolveMint(ctx context.Context, res Resolution) error
	ListPendingMints(ctx context.Context, limit int) ([]models.MintRecord, error)
	// GetMintHistory lists mints newest first; an empty recipient lists all.
	GetMintHistory(ctx context.Context, recipient string, limit, offset int) ([]models.MintRecord, error)
	GetIssuedTotals(ctx context.Context) ([]models.IssuedTotal, error)

	Close()
}
