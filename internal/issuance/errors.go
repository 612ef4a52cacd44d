package issuance

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ValidationError is a malformed request: bad address, amount or batch size.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NoTrustlineError means the recipient never authorized holding the currency.
type NoTrustlineError struct {
	Recipient string
	Currency  string
	Issuer    string
}

func (e *NoTrustlineError) Error() string {
	return fmt.Sprintf("recipient %s has no trust line for %s issued by %s", e.Recipient, e.Currency, e.Issuer)
}

// InsufficientLimitError means the recipient's trust line cannot absorb the amount.
type InsufficientLimitError struct {
	Recipient string
	Limit     decimal.Decimal
	Available decimal.Decimal
	Needed    decimal.Decimal
}

func (e *InsufficientLimitError) Error() string {
	return fmt.Sprintf("recipient %s trust line limit %s leaves %s available, %s needed",
		e.Recipient, e.Limit.String(), e.Available.String(), e.Needed.String())
}

// TransactionFailedError is a transaction the ledger validated with a
// non-success result, or one that expired without validation.
type TransactionFailedError struct {
	Code    string
	Message string
	Hash    string
}

func (e *TransactionFailedError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("transaction failed: %s (%s)", e.Code, e.Message)
	}
	return fmt.Sprintf("transaction failed: %s", e.Code)
}

// SubmissionError is a rejection before consensus: a node RPC error or a
// tem/tef/tel preliminary result.
type SubmissionError struct {
	Code    string
	Message string
	Hash    string
}

func (e *SubmissionError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("submission rejected: %s (%s)", e.Code, e.Message)
	}
	return fmt.Sprintf("submission rejected: %s", e.Code)
}

// ValidationTimeoutError means the wait for consensus ran out. The
// transaction may still validate later; Hash identifies it.
type ValidationTimeoutError struct {
	Hash               string
	LastLedgerSequence uint32
	Err                error
}

func (e *ValidationTimeoutError) Error() string {
	return fmt.Sprintf("transaction %s not validated before timeout (last ledger %d): %v",
		e.Hash, e.LastLedgerSequence, e.Err)
}

func (e *ValidationTimeoutError) Unwrap() error { return e.Err }

// IdentityMismatchError means the configured secret derives a different address.
type IdentityMismatchError struct {
	Configured string
	Derived    string
}

func (e *IdentityMismatchError) Error() string {
	return fmt.Sprintf("issuer secret derives %s, configured address is %s", e.Derived, e.Configured)
}
