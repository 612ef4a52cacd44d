package api

import (
	"errors"
	"net/http"

	"xrpl-iou-issuer-go/internal/amount"
	"xrpl-iou-issuer-go/internal/issuance"
	"xrpl-iou-issuer-go/internal/signing"
	"xrpl-iou-issuer-go/internal/xrpl"
)

// statusFor maps an issuance error to its HTTP status.
func statusFor(err error) int {
	var (
		validationErr *issuance.ValidationError
		precisionErr  *amount.PrecisionError
		noLineErr     *issuance.NoTrustlineError
		limitErr      *issuance.InsufficientLimitError
		failedErr     *issuance.TransactionFailedError
		submitErr     *issuance.SubmissionError
		timeoutErr    *issuance.ValidationTimeoutError
		connErr       *xrpl.ConnectionError
		signingErr    *signing.APIError
		transportErr  *signing.TransportError
	)
	switch {
	case errors.As(err, &validationErr),
		errors.As(err, &precisionErr),
		errors.As(err, &noLineErr),
		errors.As(err, &limitErr),
		errors.As(err, &failedErr),
		errors.As(err, &submitErr):
		return http.StatusBadRequest
	case errors.As(err, &timeoutErr):
		return http.StatusGatewayTimeout
	case errors.As(err, &connErr), errors.Is(err, signing.ErrDisabled):
		return http.StatusServiceUnavailable
	case errors.As(err, &signingErr), errors.As(err, &transportErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// hashOf returns the transaction hash carried by err, if any.
func hashOf(err error) string {
	var (
		failedErr  *issuance.TransactionFailedError
		submitErr  *issuance.SubmissionError
		timeoutErr *issuance.ValidationTimeoutError
	)
	switch {
	case errors.As(err, &failedErr):
		return failedErr.Hash
	case errors.As(err, &submitErr):
		return submitErr.Hash
	case errors.As(err, &timeoutErr):
		return timeoutErr.Hash
	}
	return ""
}

func messageFor(status int, err error) string {
	if status == http.StatusInternalServerError {
		return "internal error"
	}
	return err.Error()
}
