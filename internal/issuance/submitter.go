package issuance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"xrpl-iou-issuer-go/internal/amount"
	"xrpl-iou-issuer-go/internal/codec"
	"xrpl-iou-issuer-go/internal/lock"
	"xrpl-iou-issuer-go/internal/metrics"
	"xrpl-iou-issuer-go/internal/models"
	"xrpl-iou-issuer-go/internal/xrpl"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const resultSuccess = "tesSUCCESS"

// Recorder keeps an audit trail of submitted mints. Failures to record are
// logged and never change the outcome of a mint.
type Recorder interface {
	RecordMint(ctx context.Context, rec models.MintRecord) error
}

type SubmitterConfig struct {
	Currency          string
	ValidationTimeout time.Duration
	PollInterval      time.Duration
}

// Submitter builds, signs and submits payments from the issuer and waits for
// them to validate. Everything from autofill to the final result runs under
// the issuer's lock so sequence numbers are consumed strictly in order, no
// matter how many requests are in flight.
type Submitter struct {
	ledger   Ledger
	identity *Identity
	verifier *TrustlineVerifier
	locker   lock.Locker
	recorder Recorder
	cfg      SubmitterConfig
}

func NewSubmitter(ledger Ledger, identity *Identity, verifier *TrustlineVerifier, locker lock.Locker, recorder Recorder, cfg SubmitterConfig) *Submitter {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.ValidationTimeout <= 0 {
		cfg.ValidationTimeout = time.Minute
	}
	return &Submitter{
		ledger:   ledger,
		identity: identity,
		verifier: verifier,
		locker:   locker,
		recorder: recorder,
		cfg:      cfg,
	}
}

// SendAsset issues value to recipient and returns once the payment is
// validated.
func (s *Submitter) SendAsset(ctx context.Context, recipient, value string) (models.Receipt, error) {
	if err := amount.AssertPrecision(value); err != nil {
		return models.Receipt{}, err
	}
	needed, err := amount.Parse(value)
	if err != nil {
		return models.Receipt{}, &ValidationError{Field: "amount", Message: err.Error()}
	}

	if err := s.verifier.EnsureTrustline(ctx, recipient, needed); err != nil {
		return models.Receipt{}, err
	}

	unlock, err := s.locker.Lock(ctx, s.identity.Address())
	if err != nil {
		return models.Receipt{}, fmt.Errorf("unable to acquire issuer lock: %w", err)
	}
	defer unlock()

	start := time.Now()
	defer func() { metrics.ObserveSubmit(time.Since(start)) }()

	params, err := s.ledger.Autofill(ctx, s.identity.Address())
	if err != nil {
		return models.Receipt{}, err
	}

	payment := &codec.Payment{
		Account:     s.identity.Address(),
		Destination: recipient,
		Amount: codec.IssuedAmount{
			Currency: s.cfg.Currency,
			Issuer:   s.identity.Address(),
			Value:    needed,
		},
		Fee:                params.Fee,
		Sequence:           params.Sequence,
		LastLedgerSequence: params.LastLedgerSequence,
	}
	blob, hash, err := payment.Sign(s.identity.Keypair())
	if err != nil {
		return models.Receipt{}, fmt.Errorf("unable to sign payment: %w", err)
	}

	rec := s.newRecord(ctx, recipient, needed, hash, params.LastLedgerSequence)

	zap.L().Info("Submitting payment",
		zap.String("recipient", recipient),
		zap.String("amount", needed.String()),
		zap.String("currency", s.cfg.Currency),
		zap.Uint32("sequence", params.Sequence),
		zap.Int64("fee_drops", params.Fee),
		zap.Uint32("last_ledger_sequence", params.LastLedgerSequence),
		zap.String("hash", hash))

	submitted, err := s.ledger.Submit(ctx, blob)
	if err != nil {
		var rpcErr *xrpl.RPCError
		var connErr *xrpl.ConnectionError
		switch {
		case errors.As(err, &rpcErr):
			subErr := &SubmissionError{Code: rpcErr.Code, Message: rpcErr.Message, Hash: hash}
			s.finish(ctx, rec, models.MintStatusRejected, 0, subErr.Code, subErr.Message)
			return models.Receipt{}, subErr
		case errors.As(err, &connErr):
			s.finish(ctx, rec, models.MintStatusRejected, 0, "", err.Error())
			return models.Receipt{}, err
		}
		// the blob may have reached the node, so find out from the ledger
		zap.L().Warn("Submit response lost, waiting on ledger for outcome",
			zap.String("hash", hash),
			zap.Error(err))
	} else {
		zap.L().Info("Payment submitted",
			zap.String("hash", hash),
			zap.String("engine_result", submitted.EngineResult),
			zap.String("engine_result_message", submitted.EngineResultMessage))

		if rejectedBeforeConsensus(submitted.EngineResult) {
			subErr := &SubmissionError{Code: submitted.EngineResult, Message: submitted.EngineResultMessage, Hash: hash}
			s.finish(ctx, rec, models.MintStatusRejected, 0, subErr.Code, subErr.Message)
			return models.Receipt{}, subErr
		}
	}

	receipt, err := s.awaitValidation(ctx, hash, params.LastLedgerSequence, submitted)
	var failed *TransactionFailedError
	var timeout *ValidationTimeoutError
	switch {
	case err == nil:
		s.finish(ctx, rec, models.MintStatusValidated, receipt.LedgerIndex, resultSuccess, "")
	case errors.As(err, &failed):
		s.finish(ctx, rec, models.MintStatusFailed, 0, failed.Code, failed.Message)
	case errors.As(err, &timeout):
		s.finish(ctx, rec, models.MintStatusPending, 0, "", err.Error())
	}
	return receipt, err
}

// rejectedBeforeConsensus reports preliminary results that can never make
// it into a validated ledger as submitted.
func rejectedBeforeConsensus(result string) bool {
	return strings.HasPrefix(result, "tem") ||
		strings.HasPrefix(result, "tef") ||
		strings.HasPrefix(result, "tel")
}

func (s *Submitter) awaitValidation(ctx context.Context, hash string, lastLedger uint32, submitted models.SubmitResult) (models.Receipt, error) {
	waitCtx, cancel := context.WithTimeout(ctx, s.cfg.ValidationTimeout)
	defer cancel()

	for {
		status, err := s.ledger.Transaction(waitCtx, hash)
		if err != nil {
			zap.L().Warn("Transaction lookup failed, retrying", zap.String("hash", hash), zap.Error(err))
		} else if status.Validated {
			return s.conclude(hash, status, submitted)
		} else {
			expired, err := s.expired(waitCtx, lastLedger)
			if err != nil {
				zap.L().Warn("Validated ledger lookup failed, retrying", zap.String("hash", hash), zap.Error(err))
			} else if expired {
				// the ledger may have closed between the two lookups
				if status, err := s.ledger.Transaction(waitCtx, hash); err == nil && status.Validated {
					return s.conclude(hash, status, submitted)
				}
				metrics.ObserveMint(metrics.OutcomeFailed)
				return models.Receipt{}, &TransactionFailedError{
					Code:    "tefMAX_LEDGER",
					Message: fmt.Sprintf("not validated by ledger %d", lastLedger),
					Hash:    hash,
				}
			}
		}

		if err := sleepWithContext(waitCtx, s.cfg.PollInterval); err != nil {
			metrics.ObserveMint(metrics.OutcomeTimeout)
			return models.Receipt{}, &ValidationTimeoutError{Hash: hash, LastLedgerSequence: lastLedger, Err: err}
		}
	}
}

func (s *Submitter) expired(ctx context.Context, lastLedger uint32) (bool, error) {
	validated, err := s.ledger.ValidatedLedgerIndex(ctx)
	if err != nil {
		return false, err
	}
	return validated > lastLedger, nil
}

func (s *Submitter) conclude(hash string, status models.TxStatus, submitted models.SubmitResult) (models.Receipt, error) {
	if status.Result != resultSuccess {
		msg := ""
		if status.Result == submitted.EngineResult {
			msg = submitted.EngineResultMessage
		}
		zap.L().Warn("Payment validated with failure",
			zap.String("hash", hash),
			zap.String("result", status.Result),
			zap.Uint32("ledger_index", status.LedgerIndex))
		metrics.ObserveMint(metrics.OutcomeFailed)
		return models.Receipt{}, &TransactionFailedError{Code: status.Result, Message: msg, Hash: hash}
	}

	zap.L().Info("Payment validated",
		zap.String("hash", hash),
		zap.Uint32("ledger_index", status.LedgerIndex))
	metrics.ObserveMint(metrics.OutcomeValidated)
	return models.Receipt{Hash: hash, LedgerIndex: status.LedgerIndex}, nil
}

func (s *Submitter) newRecord(ctx context.Context, recipient string, value decimal.Decimal, hash string, lastLedger uint32) models.MintRecord {
	rec := models.MintRecord{
		Id:                 uuid.New().String(),
		Recipient:          recipient,
		Currency:           s.cfg.Currency,
		Issuer:             s.identity.Address(),
		Amount:             value,
		TxHash:             hash,
		LastLedgerSequence: lastLedger,
	}
	if mc := models.GetMintContext(ctx); mc != nil {
		rec.BatchId = mc.BatchId
		rec.BatchIndex = mc.BatchIndex
	}
	return rec
}

func (s *Submitter) finish(ctx context.Context, rec models.MintRecord, status string, ledgerIndex uint32, code, message string) {
	if status == models.MintStatusRejected {
		metrics.ObserveMint(metrics.OutcomeRejected)
	}
	if s.recorder == nil {
		return
	}
	now := time.Now().UTC()
	rec.Status = status
	rec.LedgerIndex = ledgerIndex
	rec.ResultCode = code
	rec.ErrorMessage = message
	rec.CreatedAt = now
	rec.UpdatedAt = now

	// recording must outlive a request that was cancelled mid-wait
	recCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := s.recorder.RecordMint(recCtx, rec); err != nil {
		zap.L().Error("Failed to record mint",
			zap.String("hash", rec.TxHash),
			zap.String("status", status),
			zap.Error(err))
	}
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
