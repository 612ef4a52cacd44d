package keys

import (
	"bytes"
	"errors"
	"fmt"
)

type KeyType string

const (
	KeyTypeSecp256k1 KeyType = "secp256k1"
	KeyTypeEd25519   KeyType = "ed25519"
)

// EntropySize is the size of the entropy carried by a family seed.
const EntropySize = 16

var (
	secp256k1SeedPrefix = []byte{0x21}
	ed25519SeedPrefix   = []byte{0x01, 0xE1, 0x4B}
)

var ErrInvalidSeed = errors.New("invalid seed")

// DecodeSeed returns the entropy and key type carried by an encoded seed
// ("s..." for secp256k1 family seeds, "sEd..." for ed25519 seeds).
func DecodeSeed(seed string) ([]byte, KeyType, error) {
	payload, err := decodeCheck(seed)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidSeed, err)
	}
	switch {
	case len(payload) == len(ed25519SeedPrefix)+EntropySize && bytes.HasPrefix(payload, ed25519SeedPrefix):
		return payload[len(ed25519SeedPrefix):], KeyTypeEd25519, nil
	case len(payload) == len(secp256k1SeedPrefix)+EntropySize && bytes.HasPrefix(payload, secp256k1SeedPrefix):
		return payload[len(secp256k1SeedPrefix):], KeyTypeSecp256k1, nil
	}
	return nil, "", ErrInvalidSeed
}

// EncodeSeed renders entropy as a seed of the given key type.
func EncodeSeed(entropy []byte, keyType KeyType) (string, error) {
	if len(entropy) != EntropySize {
		return "", fmt.Errorf("seed entropy must be %d bytes, got %d", EntropySize, len(entropy))
	}
	var prefix []byte
	switch keyType {
	case KeyTypeSecp256k1:
		prefix = secp256k1SeedPrefix
	case KeyTypeEd25519:
		prefix = ed25519SeedPrefix
	default:
		return "", fmt.Errorf("unknown key type %q", keyType)
	}
	return encodeCheck(append(append([]byte{}, prefix...), entropy...)), nil
}
