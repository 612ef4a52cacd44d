package reconciler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"xrpl-iou-issuer-go/internal/metrics"
	"xrpl-iou-issuer-go/internal/models"
	"xrpl-iou-issuer-go/internal/store"

	"go.uber.org/zap"
)

// Ledger is what the reconciler needs from the node.
type Ledger interface {
	Transaction(ctx context.Context, hash string) (models.TxStatus, error)
	ValidatedLedgerIndex(ctx context.Context) (uint32, error)
}

type Config struct {
	Store     store.IssuanceStore
	Ledger    Ledger
	Interval  time.Duration
	BatchSize int
}

// Summary counts what one pass did.
type Summary struct {
	Checked   int
	Validated int
	Failed    int
	Pending   int
}

// Reconciler settles mints whose validation wait ran out. A pending mint is
// final once its transaction is in a validated ledger, or once the validated
// ledger has passed its LastLedgerSequence without it.
type Reconciler struct {
	store     store.IssuanceStore
	ledger    Ledger
	interval  time.Duration
	batchSize int

	stopOnce sync.Once
	stopChan chan struct{}
	doneChan chan struct{}
}

func New(cfg Config) *Reconciler {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	return &Reconciler{
		store:     cfg.Store,
		ledger:    cfg.Ledger,
		interval:  cfg.Interval,
		batchSize: cfg.BatchSize,
		stopChan:  make(chan struct{}),
		doneChan:  make(chan struct{}),
	}
}

// Start runs a recovery pass over mints left pending by a previous run and
// then polls in the background until Stop or ctx is done.
func (r *Reconciler) Start(ctx context.Context) error {
	zap.L().Info("Starting pending mint reconciler")

	summary, err := r.ReconcileOnce(ctx)
	if err != nil {
		// the node may simply be unreachable at boot; the poll loop retries
		zap.L().Warn("Startup recovery incomplete", zap.Error(err))
	} else {
		zap.L().Info("Startup recovery complete",
			zap.Int("checked", summary.Checked),
			zap.Int("validated", summary.Validated),
			zap.Int("failed", summary.Failed),
			zap.Int("pending", summary.Pending))
	}

	go r.pollLoop(ctx)

	zap.L().Info("Pending mint reconciler started", zap.Duration("interval", r.interval))
	return nil
}

// Stop gracefully stops the reconciler
func (r *Reconciler) Stop() {
	r.stopOnce.Do(func() {
		zap.L().Info("Stopping pending mint reconciler")
		close(r.stopChan)
		<-r.doneChan
		zap.L().Info("Pending mint reconciler stopped")
	})
}

func (r *Reconciler) pollLoop(ctx context.Context) {
	defer close(r.doneChan)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			summary, err := r.ReconcileOnce(ctx)
			if err != nil {
				zap.L().Error("Reconcile pass failed", zap.Error(err))
				continue
			}
			if summary.Checked > 0 {
				fmt.Printf("%s[%s] Reconciled %d pending mints: %d validated, %d failed, %d still pending%s\n",
					colorCyan, time.Now().Format("15:04:05"),
					summary.Checked, summary.Validated, summary.Failed, summary.Pending, colorReset)
			}
		case <-r.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

// ANSI color helpers for console output.
const (
	colorReset = "\033[0m"
	colorCyan  = "\033[36m"
)

// ReconcileOnce checks up to one batch of pending mints against the ledger.
func (r *Reconciler) ReconcileOnce(ctx context.Context) (Summary, error) {
	var summary Summary

	pending, err := r.store.ListPendingMints(ctx, r.batchSize)
	if err != nil {
		return summary, fmt.Errorf("failed to list pending mints: %w", err)
	}
	if len(pending) == 0 {
		return summary, nil
	}

	// read before the lookups so a missing transaction is conclusive
	validated, err := r.ledger.ValidatedLedgerIndex(ctx)
	if err != nil {
		return summary, fmt.Errorf("failed to get validated ledger: %w", err)
	}

	for _, rec := range pending {
		summary.Checked++
		res, final, err := r.settle(ctx, rec, validated)
		if err != nil {
			summary.Pending++
			zap.L().Warn("Unable to check pending mint",
				zap.String("hash", rec.TxHash),
				zap.Error(err))
			continue
		}
		if !final {
			summary.Pending++
			continue
		}

		if err := r.store.ResolveMint(ctx, res); err != nil {
			if errors.Is(err, store.ErrDuplicateMint) {
				zap.L().Debug("Pending mint already resolved", zap.String("hash", rec.TxHash))
				continue
			}
			summary.Pending++
			zap.L().Error("Failed to resolve pending mint",
				zap.String("hash", rec.TxHash),
				zap.Error(err))
			continue
		}

		if res.Status == models.MintStatusValidated {
			summary.Validated++
			metrics.ObserveMint(metrics.OutcomeValidated)
		} else {
			summary.Failed++
			metrics.ObserveMint(metrics.OutcomeFailed)
		}
		zap.L().Info("Pending mint resolved",
			zap.String("hash", rec.TxHash),
			zap.String("recipient", rec.Recipient),
			zap.String("amount", rec.Amount.String()),
			zap.String("status", res.Status),
			zap.String("result", res.ResultCode))
	}
	return summary, nil
}

func (r *Reconciler) settle(ctx context.Context, rec models.MintRecord, validated uint32) (store.Resolution, bool, error) {
	status, err := r.ledger.Transaction(ctx, rec.TxHash)
	if err != nil {
		return store.Resolution{}, false, err
	}

	res := store.Resolution{TxHash: rec.TxHash}
	switch {
	case status.Validated && status.Result == "tesSUCCESS":
		res.Status = models.MintStatusValidated
		res.LedgerIndex = status.LedgerIndex
		res.ResultCode = status.Result
	case status.Validated:
		res.Status = models.MintStatusFailed
		res.LedgerIndex = status.LedgerIndex
		res.ResultCode = status.Result
	case rec.LastLedgerSequence > 0 && validated > rec.LastLedgerSequence:
		res.Status = models.MintStatusFailed
		res.ResultCode = "tefMAX_LEDGER"
		res.Message = fmt.Sprintf("not validated by ledger %d", rec.LastLedgerSequence)
	default:
		return res, false, nil
	}
	return res, true, nil
}
