package codec

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	minMantissa = 1_000_000_000_000_000
	maxMantissa = 9_999_999_999_999_999
	minExponent = -96
	maxExponent = 80

	// MaxDrops is the total XRP supply in drops.
	MaxDrops = 100_000_000_000_000_000

	notXRPBit    = uint64(1) << 63
	positiveBit  = uint64(1) << 62
	currencySize = 20
)

var (
	ErrInvalidCurrency = errors.New("invalid currency code")
	ErrAmountRange     = errors.New("amount outside issued currency range")
	ErrAmountPrecision = errors.New("amount has more precision than the ledger can encode")

	bigTen         = big.NewInt(10)
	bigMinMantissa = big.NewInt(minMantissa)
	bigMaxMantissa = big.NewInt(maxMantissa)
)

// IssuedAmount is a value of an issued currency.
type IssuedAmount struct {
	Currency string
	Issuer   string
	Value    decimal.Decimal
}

// EncodeCurrency returns the 20 byte currency field. Three character codes
// occupy bytes 12-14; 40 character hex codes are used as is.
func EncodeCurrency(code string) ([]byte, error) {
	out := make([]byte, currencySize)
	switch len(code) {
	case 3:
		if strings.EqualFold(code, "XRP") {
			return nil, fmt.Errorf("%w: XRP is not an issued currency", ErrInvalidCurrency)
		}
		for i := 0; i < 3; i++ {
			c := code[i]
			if c <= ' ' || c > '~' {
				return nil, fmt.Errorf("%w: %q", ErrInvalidCurrency, code)
			}
			out[12+i] = c
		}
		return out, nil
	case 2 * currencySize:
		raw, err := hex.DecodeString(code)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidCurrency, code)
		}
		if raw[0] == 0x00 {
			return nil, fmt.Errorf("%w: hex code must not start with 00", ErrInvalidCurrency)
		}
		return raw, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrInvalidCurrency, code)
}

// NormalizeCurrency returns the form the ledger reports a currency in.
func NormalizeCurrency(code string) string {
	if len(code) == 2*currencySize {
		return strings.ToUpper(code)
	}
	return code
}

// encodeIssuedValue packs a decimal into the 64 bit issued currency format.
func encodeIssuedValue(v decimal.Decimal) ([]byte, error) {
	out := make([]byte, 8)
	if v.IsZero() {
		binary.BigEndian.PutUint64(out, notXRPBit)
		return out, nil
	}

	mantissa := new(big.Int).Abs(v.Coefficient())
	exponent := int(v.Exponent())

	for mantissa.Cmp(bigMinMantissa) < 0 {
		mantissa.Mul(mantissa, bigTen)
		exponent--
	}
	for mantissa.Cmp(bigMaxMantissa) > 0 {
		var rem big.Int
		mantissa.QuoRem(mantissa, bigTen, &rem)
		if rem.Sign() != 0 {
			return nil, fmt.Errorf("%w: %s", ErrAmountPrecision, v.String())
		}
		exponent++
	}
	if exponent < minExponent || exponent > maxExponent {
		return nil, fmt.Errorf("%w: %s", ErrAmountRange, v.String())
	}

	bits := notXRPBit | uint64(exponent+97)<<54 | mantissa.Uint64()
	if v.IsPositive() {
		bits |= positiveBit
	}
	binary.BigEndian.PutUint64(out, bits)
	return out, nil
}

// EncodeIssuedAmount returns value, currency and issuer as 48 bytes.
func EncodeIssuedAmount(a IssuedAmount) ([]byte, error) {
	value, err := encodeIssuedValue(a.Value)
	if err != nil {
		return nil, err
	}
	currency, err := EncodeCurrency(a.Currency)
	if err != nil {
		return nil, err
	}
	issuer, err := decodeAccount(a.Issuer)
	if err != nil {
		return nil, fmt.Errorf("issuer: %w", err)
	}
	out := make([]byte, 0, 48)
	out = append(out, value...)
	out = append(out, currency...)
	return append(out, issuer...), nil
}

// EncodeDrops returns an XRP amount in drops as 8 bytes.
func EncodeDrops(drops int64) ([]byte, error) {
	if drops < 0 || drops > MaxDrops {
		return nil, fmt.Errorf("%w: %d drops", ErrAmountRange, drops)
	}
	out := make([]byte, 8)
	binary.BigEndian.PutUint64(out, positiveBit|uint64(drops))
	return out, nil
}
