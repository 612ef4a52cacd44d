package issuance

import (
	"errors"
	"fmt"

	"xrpl-iou-issuer-go/internal/keys"

	"go.uber.org/zap"
)

var ErrMissingSecret = errors.New("issuer secret is required")

// Identity is the issuing account and its signing keys.
type Identity struct {
	address string
	keypair *keys.Keypair
}

// NewIdentity derives the keypair for secret and checks it controls address.
func NewIdentity(address, secret string) (*Identity, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	if !keys.IsValidClassicAddress(address) {
		return nil, fmt.Errorf("issuer address %q is not a valid classic address", address)
	}
	kp, err := keys.DeriveKeypair(secret)
	if err != nil {
		return nil, fmt.Errorf("unable to derive issuer keys: %w", err)
	}
	if derived := kp.Address(); derived != address {
		return nil, &IdentityMismatchError{Configured: address, Derived: derived}
	}

	zap.L().Info("Issuer identity loaded",
		zap.String("address", address),
		zap.String("key_type", string(kp.KeyType())),
		zap.String("public_key", kp.PublicKeyHex()))

	return &Identity{address: address, keypair: kp}, nil
}

func (i *Identity) Address() string { return i.address }

func (i *Identity) Keypair() *keys.Keypair { return i.keypair }
