package issuance

import (
	"context"

	"xrpl-iou-issuer-go/internal/codec"
	"xrpl-iou-issuer-go/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Ledger is the subset of node commands the issuance engine depends on.
type Ledger interface {
	AccountLines(ctx context.Context, account, peer string) ([]models.TrustLine, error)
	Autofill(ctx context.Context, account string) (models.TxParams, error)
	Submit(ctx context.Context, blob string) (models.SubmitResult, error)
	Transaction(ctx context.Context, hash string) (models.TxStatus, error)
	ValidatedLedgerIndex(ctx context.Context) (uint32, error)
}

// TrustlineVerifier checks a recipient can receive the issued currency.
// The amount is compared against the line's remaining credit (limit minus
// the balance already held), not against the raw limit.
//
// The check runs against the last validated ledger and is not atomic with
// the payment that follows it. The ledger enforces the real limit when the
// payment is applied; this only avoids paying the round trip for a payment
// that is certain to fail.
type TrustlineVerifier struct {
	ledger   Ledger
	issuer   string
	currency string
}

func NewTrustlineVerifier(ledger Ledger, issuer, currency string) *TrustlineVerifier {
	return &TrustlineVerifier{ledger: ledger, issuer: issuer, currency: codec.NormalizeCurrency(currency)}
}

// FindLine returns the recipient's line for the configured currency and
// issuer, or nil when there is none.
func (v *TrustlineVerifier) FindLine(ctx context.Context, recipient string) (*models.TrustLine, error) {
	lines, err := v.ledger.AccountLines(ctx, recipient, v.issuer)
	if err != nil {
		return nil, err
	}
	for i := range lines {
		if lines[i].Account == v.issuer && codec.NormalizeCurrency(lines[i].Currency) == v.currency {
			line := lines[i]
			return &line, nil
		}
	}
	return nil, nil
}

// EnsureTrustline fails with NoTrustlineError or InsufficientLimitError when
// the recipient cannot receive needed.
func (v *TrustlineVerifier) EnsureTrustline(ctx context.Context, recipient string, needed decimal.Decimal) error {
	line, err := v.FindLine(ctx, recipient)
	if err != nil {
		return err
	}
	if line == nil {
		return &NoTrustlineError{Recipient: recipient, Currency: v.currency, Issuer: v.issuer}
	}

	limit, err := decimal.NewFromString(line.Limit)
	if err != nil {
		zap.L().Warn("Trust line limit is not numeric, skipping limit check",
			zap.String("recipient", recipient),
			zap.String("limit", line.Limit))
		return nil
	}

	held := decimal.Zero
	if balance, err := decimal.NewFromString(line.Balance); err == nil && balance.IsPositive() {
		held = balance
	}
	available := limit.Sub(held)
	if available.LessThan(needed) {
		return &InsufficientLimitError{
			Recipient: recipient,
			Limit:     limit,
			Available: available,
			Needed:    needed,
		}
	}
	return nil
}
