// Package amount validates issued currency amounts before they reach the ledger.
package amount

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxSignificantDigits is the mantissa width of an issued currency amount.
const MaxSignificantDigits = 16

var decimalPattern = regexp.MustCompile(`^\d+(\.\d+)?$`)

var (
	ErrInvalidFormat = errors.New("amount must be a positive decimal string")
	ErrNotPositive   = errors.New("amount must be greater than zero")
)

// PrecisionError reports an amount with more significant digits than the
// ledger can encode.
type PrecisionError struct {
	Value  string
	Digits int
}

func (e *PrecisionError) Error() string {
	return fmt.Sprintf("amount %s has %d significant digits, maximum is %d", e.Value, e.Digits, MaxSignificantDigits)
}

// ExceedsMaximumError reports an amount above the configured single mint cap.
type ExceedsMaximumError struct {
	Value   decimal.Decimal
	Maximum decimal.Decimal
}

func (e *ExceedsMaximumError) Error() string {
	return fmt.Sprintf("amount %s exceeds maximum %s", e.Value.String(), e.Maximum.String())
}

// SignificantDigits counts the digits left after removing the decimal
// separator and any leading zeros.
func SignificantDigits(value string) int {
	digits := strings.TrimLeft(strings.Replace(value, ".", "", 1), "0")
	return len(digits)
}

// AssertPrecision fails when value has more than MaxSignificantDigits.
func AssertPrecision(value string) error {
	if n := SignificantDigits(value); n > MaxSignificantDigits {
		return &PrecisionError{Value: value, Digits: n}
	}
	return nil
}

// Parse checks the textual form of an amount and converts it.
func Parse(value string) (decimal.Decimal, error) {
	if !decimalPattern.MatchString(value) {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidFormat, value)
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidFormat, value)
	}
	return d, nil
}

// ValidateBounds enforces 0 < value <= maximum.
func ValidateBounds(value, maximum decimal.Decimal) error {
	if !value.IsPositive() {
		return ErrNotPositive
	}
	if value.GreaterThan(maximum) {
		return &ExceedsMaximumError{Value: value, Maximum: maximum}
	}
	return nil
}

// Validate runs format, precision and bounds checks in that order.
func Validate(value string, maximum decimal.Decimal) (decimal.Decimal, error) {
	d, err := Parse(value)
	if err != nil {
		return decimal.Zero, err
	}
	if err := AssertPrecision(value); err != nil {
		return decimal.Zero, err
	}
	if err := ValidateBounds(d, maximum); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}
