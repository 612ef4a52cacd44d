// Package keys implements the XRP Ledger account identifier formats and the
// key derivation used to sign transactions for the issuing account.
package keys

import (
	"bytes"
	"crypto/sha256"
	"crypto/sha512"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/ripemd160"
)

// AccountIDSize is the size of a decoded account identifier.
const AccountIDSize = ripemd160.Size

const accountIDPrefix = 0x00

var xrplAlphabet = base58.NewAlphabet("rpshnaf39wBUDNEGHJKLM4PQRST7VWXYZ2bcdeCg65jkm8oFqi1tuvAxyz")

var (
	ErrChecksum       = errors.New("base58 checksum mismatch")
	ErrInvalidAddress = errors.New("invalid classic address")
)

// IsValidClassicAddress reports whether s is a well formed classic account
// address: base58 with the ledger alphabet, a zero version byte, a 20 byte
// account id and a matching double-SHA256 checksum.
func IsValidClassicAddress(s string) bool {
	_, err := DecodeAddress(s)
	return err == nil
}

// DecodeAddress returns the 20 byte account id encoded in a classic address.
func DecodeAddress(s string) ([]byte, error) {
	if len(s) < 25 || len(s) > 35 || s[0] != 'r' {
		return nil, ErrInvalidAddress
	}
	payload, err := decodeCheck(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if len(payload) != 1+AccountIDSize || payload[0] != accountIDPrefix {
		return nil, ErrInvalidAddress
	}
	return payload[1:], nil
}

// EncodeAccountID renders a 20 byte account id as a classic address.
func EncodeAccountID(id []byte) (string, error) {
	if len(id) != AccountIDSize {
		return "", fmt.Errorf("account id must be %d bytes, got %d", AccountIDSize, len(id))
	}
	return encodeCheck(append([]byte{accountIDPrefix}, id...)), nil
}

// AccountID is RIPEMD160(SHA256(publicKey)).
func AccountID(publicKey []byte) []byte {
	inner := sha256.Sum256(publicKey)
	h := ripemd160.New()
	h.Write(inner[:])
	return h.Sum(nil)
}

// SHA512Half returns the first 32 bytes of SHA-512 over the concatenated parts.
func SHA512Half(parts ...[]byte) []byte {
	h := sha512.New()
	for _, p := range parts {
		h.Write(p)
	}
	return h.Sum(nil)[:32]
}

func checksum(payload []byte) []byte {
	first := sha256.Sum256(payload)
	second := sha256.Sum256(first[:])
	return second[:4]
}

func encodeCheck(payload []byte) string {
	buf := make([]byte, 0, len(payload)+4)
	buf = append(buf, payload...)
	buf = append(buf, checksum(payload)...)
	return base58.EncodeAlphabet(buf, xrplAlphabet)
}

func decodeCheck(s string) ([]byte, error) {
	if s == "" {
		return nil, errors.New("empty input")
	}
	raw, err := base58.DecodeAlphabet(s, xrplAlphabet)
	if err != nil {
		return nil, err
	}
	if len(raw) < 5 {
		return nil, errors.New("decoded value too short")
	}
	payload, sum := raw[:len(raw)-4], raw[len(raw)-4:]
	if !bytes.Equal(checksum(payload), sum) {
		return nil, ErrChecksum
	}
	return payload, nil
}
