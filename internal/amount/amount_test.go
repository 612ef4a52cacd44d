package amount

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestSignificantDigits(t *testing.T) {
	tests := []struct {
		input string
		want  int
	}{
		{"1", 1},
		{"10", 2},
		{"0.5", 1},
		{"0.000123", 3},
		{"100.00", 5},
		{"12345678901234567", 17},
		{"1234567890.123456", 16},
		{"0", 0},
	}
	for _, tt := range tests {
		if got := SignificantDigits(tt.input); got != tt.want {
			t.Errorf("SignificantDigits(%q) = %d, want %d", tt.input, got, tt.want)
		}
	}
}

func TestAssertPrecision(t *testing.T) {
	if err := AssertPrecision("1234567890123456"); err != nil {
		t.Errorf("16 digits should pass: %v", err)
	}
	if err := AssertPrecision("0.0000001234567890123456"); err != nil {
		t.Errorf("Leading zeros should not count: %v", err)
	}

	err := AssertPrecision("12345678901234567")
	var precErr *PrecisionError
	if !errors.As(err, &precErr) {
		t.Fatalf("Expected PrecisionError, got %v", err)
	}
	if precErr.Digits != 17 {
		t.Errorf("Expected 17 digits, got %d", precErr.Digits)
	}
}

func TestParse(t *testing.T) {
	valid := []string{"1", "10.5", "0.001", "1000000"}
	for _, v := range valid {
		if _, err := Parse(v); err != nil {
			t.Errorf("Parse(%q) failed: %v", v, err)
		}
	}

	invalid := []string{"", "-1", "1e5", "abc", "1.", ".5", " 1", "1,5", "+3"}
	for _, v := range invalid {
		if _, err := Parse(v); !errors.Is(err, ErrInvalidFormat) {
			t.Errorf("Parse(%q) expected ErrInvalidFormat, got %v", v, err)
		}
	}
}

func TestValidateBounds(t *testing.T) {
	max := decimal.NewFromInt(1000)

	if err := ValidateBounds(decimal.Zero, max); !errors.Is(err, ErrNotPositive) {
		t.Errorf("Expected ErrNotPositive for zero, got %v", err)
	}
	if err := ValidateBounds(decimal.NewFromInt(1000), max); err != nil {
		t.Errorf("Maximum itself should be allowed: %v", err)
	}

	err := ValidateBounds(decimal.RequireFromString("1000.01"), max)
	var maxErr *ExceedsMaximumError
	if !errors.As(err, &maxErr) {
		t.Errorf("Expected ExceedsMaximumError, got %v", err)
	}

	if err := ValidateBounds(decimal.NewFromInt(1), decimal.Zero); !errors.As(err, &maxErr) {
		t.Errorf("Zero maximum should reject every amount, got %v", err)
	}
}

func TestValidate_PrecisionBeforeBounds(t *testing.T) {
	_, err := Validate("12345678901234567", decimal.NewFromInt(1_000_000))
	var precErr *PrecisionError
	if !errors.As(err, &precErr) {
		t.Errorf("Expected precision error to win over bounds, got %v", err)
	}

	d, err := Validate("42.5", decimal.NewFromInt(100))
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if !d.Equal(decimal.RequireFromString("42.5")) {
		t.Errorf("Unexpected value %s", d.String())
	}
}
