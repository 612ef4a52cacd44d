package keys

import (
	"crypto/ed25519"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
)

const ed25519PublicKeyPrefix = 0xED

// Keypair is the signing material of one account. It is immutable once
// derived and safe for concurrent use.
type Keypair struct {
	keyType   KeyType
	secp      *btcec.PrivateKey
	ed        ed25519.PrivateKey
	publicKey []byte
}

// DeriveKeypair derives the account keypair for an encoded seed.
func DeriveKeypair(seed string) (*Keypair, error) {
	entropy, keyType, err := DecodeSeed(seed)
	if err != nil {
		return nil, err
	}
	return DeriveKeypairFromEntropy(entropy, keyType)
}

// DeriveKeypairFromEntropy derives the account keypair for raw seed entropy.
func DeriveKeypairFromEntropy(entropy []byte, keyType KeyType) (*Keypair, error) {
	switch keyType {
	case KeyTypeEd25519:
		priv := ed25519.NewKeyFromSeed(SHA512Half(entropy))
		pub := append([]byte{ed25519PublicKeyPrefix}, priv.Public().(ed25519.PublicKey)...)
		return &Keypair{keyType: keyType, ed: priv, publicKey: pub}, nil
	case KeyTypeSecp256k1:
		priv, err := deriveSecp256k1(entropy)
		if err != nil {
			return nil, err
		}
		return &Keypair{keyType: keyType, secp: priv, publicKey: priv.PubKey().SerializeCompressed()}, nil
	}
	return nil, fmt.Errorf("unknown key type %q", keyType)
}

// deriveSecp256k1 follows the family seed scheme: a root key from the seed,
// an intermediate key for account 0 from the root public key, and their sum.
func deriveSecp256k1(entropy []byte) (*btcec.PrivateKey, error) {
	order := btcec.S256().Params().N

	root, err := deriveScalar(order, entropy)
	if err != nil {
		return nil, err
	}
	rootPriv, _ := btcec.PrivKeyFromBytes(root.FillBytes(make([]byte, 32)))
	rootPub := rootPriv.PubKey().SerializeCompressed()

	intermediate, err := deriveScalar(order, rootPub, []byte{0, 0, 0, 0})
	if err != nil {
		return nil, err
	}

	final := new(big.Int).Add(root, intermediate)
	final.Mod(final, order)
	priv, _ := btcec.PrivKeyFromBytes(final.FillBytes(make([]byte, 32)))
	return priv, nil
}

func deriveScalar(order *big.Int, parts ...[]byte) (*big.Int, error) {
	var seq [4]byte
	for i := uint32(0); i < math.MaxUint32; i++ {
		binary.BigEndian.PutUint32(seq[:], i)
		k := new(big.Int).SetBytes(SHA512Half(append(parts, seq[:])...))
		if k.Sign() > 0 && k.Cmp(order) < 0 {
			return k, nil
		}
	}
	return nil, errors.New("unable to derive a valid secp256k1 scalar")
}

func (k *Keypair) KeyType() KeyType { return k.keyType }

// PublicKey returns a copy of the 33 byte public key.
func (k *Keypair) PublicKey() []byte {
	return append([]byte(nil), k.publicKey...)
}

// PublicKeyHex is the upper case hex form used in SigningPubKey.
func (k *Keypair) PublicKeyHex() string {
	return strings.ToUpper(hex.EncodeToString(k.publicKey))
}

func (k *Keypair) AccountID() []byte {
	return AccountID(k.publicKey)
}

// Address returns the classic address of the keypair.
func (k *Keypair) Address() string {
	addr, _ := EncodeAccountID(k.AccountID())
	return addr
}

// Sign signs a transaction's signing data. secp256k1 keys sign the
// SHA-512Half digest with a canonical DER signature; ed25519 keys sign the
// message itself.
func (k *Keypair) Sign(message []byte) ([]byte, error) {
	switch k.keyType {
	case KeyTypeEd25519:
		return ed25519.Sign(k.ed, message), nil
	case KeyTypeSecp256k1:
		return ecdsa.Sign(k.secp, SHA512Half(message)).Serialize(), nil
	}
	return nil, fmt.Errorf("unknown key type %q", k.keyType)
}

// Verify checks a signature produced by Sign.
func (k *Keypair) Verify(message, signature []byte) bool {
	switch k.keyType {
	case KeyTypeEd25519:
		return ed25519.Verify(k.ed.Public().(ed25519.PublicKey), message, signature)
	case KeyTypeSecp256k1:
		sig, err := ecdsa.ParseDERSignature(signature)
		if err != nil {
			return false
		}
		return sig.Verify(SHA512Half(message), k.secp.PubKey())
	}
	return false
}
