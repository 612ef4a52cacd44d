// Package issuance issues one currency from one account: it checks
// recipients can hold it, submits payments strictly in sequence and reports
// each outcome.
package issuance

import (
	"context"
	"fmt"
	"time"

	"xrpl-iou-issuer-go/internal/amount"
	"xrpl-iou-issuer-go/internal/codec"
	"xrpl-iou-issuer-go/internal/keys"
	"xrpl-iou-issuer-go/internal/lock"
	"xrpl-iou-issuer-go/internal/models"

	"github.com/shopspring/decimal"
)

type Options struct {
	Identity          *Identity
	Ledger            Ledger
	Currency          string
	Locker            lock.Locker
	Recorder          Recorder
	MaxBatchItems     int
	MaxSingleAmount   decimal.Decimal
	ValidationTimeout time.Duration
	PollInterval      time.Duration
}

// Service is the entry point used by the HTTP API and the command line tools.
type Service struct {
	identity     *Identity
	currency     string
	verifier     *TrustlineVerifier
	submitter    *Submitter
	orchestrator *Orchestrator
}

func NewService(opts Options) (*Service, error) {
	if opts.Identity == nil {
		return nil, fmt.Errorf("issuer identity is required")
	}
	if opts.Ledger == nil {
		return nil, fmt.Errorf("ledger is required")
	}
	if _, err := codec.EncodeCurrency(opts.Currency); err != nil {
		return nil, err
	}
	locker := opts.Locker
	if locker == nil {
		locker = lock.NewLocal()
	}

	verifier := NewTrustlineVerifier(opts.Ledger, opts.Identity.Address(), opts.Currency)
	submitter := NewSubmitter(opts.Ledger, opts.Identity, verifier, locker, opts.Recorder, SubmitterConfig{
		Currency:          opts.Currency,
		ValidationTimeout: opts.ValidationTimeout,
		PollInterval:      opts.PollInterval,
	})

	return &Service{
		identity:     opts.Identity,
		currency:     opts.Currency,
		verifier:     verifier,
		submitter:    submitter,
		orchestrator: NewOrchestrator(submitter, opts.MaxBatchItems, opts.MaxSingleAmount),
	}, nil
}

func (s *Service) Issuer() string { return s.identity.Address() }

func (s *Service) Currency() string { return s.currency }

// CheckTrustline returns the recipient's line for the issued currency, or
// nil when the recipient has none.
func (s *Service) CheckTrustline(ctx context.Context, recipient string) (*models.TrustLine, error) {
	if !keys.IsValidClassicAddress(recipient) {
		return nil, &ValidationError{Field: "to", Message: fmt.Sprintf("invalid recipient address %q", recipient)}
	}
	return s.verifier.FindLine(ctx, recipient)
}

func (s *Service) MintSingle(ctx context.Context, req models.MintRequest) (models.Receipt, error) {
	return s.orchestrator.Mint(ctx, req)
}

func (s *Service) MintBatch(ctx context.Context, items []models.MintRequest) (models.BatchResult, error) {
	return s.orchestrator.MintBatch(ctx, items)
}

// TrustSetTemplate is an unsigned TrustSet a holder signs to accept the
// issued currency up to limit.
func (s *Service) TrustSetTemplate(limit string) (map[string]any, error) {
	if _, err := amount.Parse(limit); err != nil {
		return nil, &ValidationError{Field: "limit", Message: err.Error()}
	}
	if err := amount.AssertPrecision(limit); err != nil {
		return nil, err
	}
	return map[string]any{
		"TransactionType": "TrustSet",
		"LimitAmount": map[string]any{
			"currency": s.currency,
			"issuer":   s.identity.Address(),
			"value":    limit,
		},
	}, nil
}
