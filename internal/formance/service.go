package formance

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"xrpl-iou-issuer-go/internal/models"
	"xrpl-iou-issuer-go/internal/store"

	v3 "github.com/formancehq/formance-sdk-go/v3"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/operations"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/sdkerrors"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Compile-time check: *Service must satisfy store.IssuanceStore.
var _ store.IssuanceStore = (*Service)(nil)

const defaultPrecision = 6

// Service implements store.IssuanceStore backed by a Formance Stack ledger.
// Only validated mints move value, so they are the only records posted;
// pending, failed and rejected outcomes are logged and not kept.
type Service struct {
	client    *v3.Formance
	ledger    string
	precision int
}

// NewService connects to the stack, creates the ledger if it doesn't already
// exist, and returns ready to use.
func NewService(ctx context.Context, cfg models.FormanceConfig) (*Service, error) {
	if cfg.StackURL == "" || cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("formance config requires StackURL, ClientID, and ClientSecret")
	}
	if cfg.LedgerName == "" {
		cfg.LedgerName = "xrpl-iou-issuer"
	}
	if cfg.AssetPrecision <= 0 {
		cfg.AssetPrecision = defaultPrecision
	}

	zap.L().Info("Connecting to Formance Stack",
		zap.String("stack_url", cfg.StackURL),
		zap.String("ledger", cfg.LedgerName))

	client := v3.New(
		v3.WithServerURL(cfg.StackURL),
		v3.WithSecurity(shared.Security{
			ClientID:     v3.Pointer(cfg.ClientID),
			ClientSecret: v3.Pointer(cfg.ClientSecret),
		}),
	)

	svc := &Service{client: client, ledger: cfg.LedgerName, precision: cfg.AssetPrecision}

	if err := svc.ensureLedger(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure ledger exists: %w", err)
	}

	zap.L().Info("Formance service initialized", zap.String("ledger", cfg.LedgerName))
	return svc, nil
}

// ensureLedger creates the ledger if it does not already exist.
func (s *Service) ensureLedger(ctx context.Context) error {
	_, err := s.client.Ledger.V2.CreateLedger(ctx, operations.V2CreateLedgerRequest{
		Ledger: s.ledger,
		V2CreateLedgerRequest: shared.V2CreateLedgerRequest{
			Metadata: map[string]string{
				"application": "xrpl-iou-issuer",
			},
		},
	})
	if err != nil {
		var apiErr *sdkerrors.V2ErrorResponse
		if errors.As(err, &apiErr) && apiErr.ErrorCode == shared.V2ErrorsEnumLedgerAlreadyExists {
			zap.L().Info("Ledger already exists", zap.String("ledger", s.ledger))
			return nil
		}
		return err
	}
	zap.L().Info("Ledger created", zap.String("ledger", s.ledger))
	return nil
}

// Close is a no-op for the Formance backend (HTTP client needs no teardown).
func (s *Service) Close() {}

// ---------- helpers ----------

// formanceAsset returns the Formance UMN notation, e.g. "USD/6". Currency
// codes Formance cannot name (40 hex characters) are posted as IOU.
func formanceAsset(currency string, precision int) string {
	return fmt.Sprintf("%s/%d", assetName(currency), precision)
}

func assetName(currency string) string {
	if len(currency) == 0 || len(currency) > 16 {
		return "IOU"
	}
	for _, c := range currency {
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return "IOU"
		}
	}
	if currency[0] >= '0' && currency[0] <= '9' {
		return "IOU"
	}
	return currency
}

// toSmallestUnit converts value to an integer count of 10^-precision units.
// Values with more decimals than precision cannot be posted exactly.
func toSmallestUnit(value decimal.Decimal, precision int) (*big.Int, error) {
	shifted := value.Shift(int32(precision))
	if !shifted.Equal(shifted.Truncate(0)) {
		return nil, fmt.Errorf("amount %s has more than %d decimals", value.String(), precision)
	}
	return shifted.BigInt(), nil
}

func bigIntToDecimal(raw *big.Int, precision int) decimal.Decimal {
	if raw == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(raw, -int32(precision))
}

// isConflictError checks whether a Formance SDK error is a CONFLICT (duplicate reference).
func isConflictError(err error) bool {
	var apiErr *sdkerrors.V2ErrorResponse
	return errors.As(err, &apiErr) && apiErr.ErrorCode == shared.V2ErrorsEnumConflict
}

func strPtr(s string) *string { return &s }
