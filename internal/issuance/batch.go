package issuance

import (
	"context"
	"errors"
	"fmt"

	"xrpl-iou-issuer-go/internal/amount"
	"xrpl-iou-issuer-go/internal/keys"
	"xrpl-iou-issuer-go/internal/metrics"
	"xrpl-iou-issuer-go/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Orchestrator validates mint requests and drives them through the
// Submitter, one at a time.
type Orchestrator struct {
	submitter *Submitter
	maxItems  int
	maxAmount decimal.Decimal
}

func NewOrchestrator(submitter *Submitter, maxItems int, maxAmount decimal.Decimal) *Orchestrator {
	return &Orchestrator{submitter: submitter, maxItems: maxItems, maxAmount: maxAmount}
}

// ValidateRequest checks the recipient address and the amount's format,
// precision and bounds. It performs no network calls.
func (o *Orchestrator) ValidateRequest(req models.MintRequest) error {
	if !keys.IsValidClassicAddress(req.To) {
		return &ValidationError{Field: "to", Message: fmt.Sprintf("invalid recipient address %q", req.To)}
	}
	if _, err := amount.Validate(req.Amount, o.maxAmount); err != nil {
		var precErr *amount.PrecisionError
		if errors.As(err, &precErr) {
			return err
		}
		return &ValidationError{Field: "amount", Message: err.Error()}
	}
	return nil
}

// Mint validates and issues a single request.
func (o *Orchestrator) Mint(ctx context.Context, req models.MintRequest) (models.Receipt, error) {
	if err := o.ValidateRequest(req); err != nil {
		metrics.ObserveMint(metrics.OutcomeInvalid)
		return models.Receipt{}, err
	}
	return o.submitter.SendAsset(ctx, req.To, req.Amount)
}

// MintBatch issues every item in order. An empty or oversized batch is
// rejected as a whole; otherwise each item's failure is recorded in its
// result and the batch carries on. Items never run concurrently: each one
// consumes the issuer's next sequence number.
func (o *Orchestrator) MintBatch(ctx context.Context, items []models.MintRequest) (models.BatchResult, error) {
	if len(items) == 0 {
		return models.BatchResult{}, &ValidationError{Field: "items", Message: "batch must contain at least one item"}
	}
	if o.maxItems > 0 && len(items) > o.maxItems {
		return models.BatchResult{}, &ValidationError{
			Field:   "items",
			Message: fmt.Sprintf("batch has %d items, maximum is %d", len(items), o.maxItems),
		}
	}

	batchId := uuid.New().String()
	zap.L().Info("Starting batch mint",
		zap.String("batch_id", batchId),
		zap.Int("items", len(items)))

	results := mapInOrder(items, func(i int, item models.MintRequest) models.MintResult {
		itemCtx := models.WithMintContext(ctx, &models.MintContext{BatchId: batchId, BatchIndex: i})
		receipt, err := o.Mint(itemCtx, item)
		if err != nil {
			zap.L().Warn("Batch item failed",
				zap.String("batch_id", batchId),
				zap.Int("index", i),
				zap.String("recipient", item.To),
				zap.Error(err))
			return models.NewMintFailure(i, item, err)
		}
		return models.NewMintSuccess(i, item, receipt)
	})

	result := models.NewBatchResult(results)
	metrics.ObserveBatch(result.Status)
	zap.L().Info("Batch mint finished",
		zap.String("batch_id", batchId),
		zap.String("status", result.Status),
		zap.Int("ok", result.OKCount),
		zap.Int("errors", result.ErrCount))
	return result, nil
}

// mapInOrder applies f to each item sequentially and returns a new slice of
// results in input order.
func mapInOrder[T, R any](items []T, f func(int, T) R) []R {
	out := make([]R, len(items))
	for i, item := range items {
		out[i] = f(i, item)
	}
	return out
}
