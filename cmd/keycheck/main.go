package main

import (
	"crypto/rand"
	"errors"
	"flag"
	"fmt"
	"os"

	"xrpl-iou-issuer-go/internal/common"
	"xrpl-iou-issuer-go/internal/config"
	"xrpl-iou-issuer-go/internal/issuance"
	"xrpl-iou-issuer-go/internal/keys"

	"go.uber.org/zap"
)

// keycheck confirms ISSUER_SECRET controls ISSUER_ADDRESS without touching
// the network, or prints a fresh testnet-style key pair with --new.
func main() {
	newFlag := flag.Bool("new", false, "Generate a new seed and address instead of checking the configured one")
	keyTypeFlag := flag.String("type", string(keys.KeyTypeEd25519), "Key type for --new: ed25519 or secp256k1")
	flag.Parse()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	if *newFlag {
		if err := generate(keys.KeyType(*keyTypeFlag)); err != nil {
			zap.L().Fatal("Failed to generate key pair", zap.Error(err))
		}
		return
	}

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	common.PrintHeader("ISSUER KEY CHECK", common.DefaultWidth)
	identity, err := issuance.NewIdentity(cfg.Issuer.Address, cfg.Issuer.Secret)
	if err != nil {
		var mismatch *issuance.IdentityMismatchError
		if errors.As(err, &mismatch) {
			fmt.Printf("❌ ISSUER_SECRET belongs to %s, not %s\n", mismatch.Derived, mismatch.Configured)
		} else {
			fmt.Printf("❌ %v\n", err)
		}
		os.Exit(1)
	}

	kp := identity.Keypair()
	fmt.Printf("✅ Secret controls %s\n", identity.Address())
	fmt.Printf("%sKey type:   %s\n", common.BoxPrefix(false), kp.KeyType())
	fmt.Printf("%sPublic key: %s\n", common.BoxPrefix(true), kp.PublicKeyHex())
}

func generate(keyType keys.KeyType) error {
	entropy := make([]byte, keys.EntropySize)
	if _, err := rand.Read(entropy); err != nil {
		return err
	}
	seed, err := keys.EncodeSeed(entropy, keyType)
	if err != nil {
		return err
	}
	kp, err := keys.DeriveKeypairFromEntropy(entropy, keyType)
	if err != nil {
		return err
	}

	common.PrintHeader("NEW KEY PAIR", common.DefaultWidth)
	fmt.Printf("Address: %s\n", kp.Address())
	fmt.Printf("Seed:    %s\n", seed)
	fmt.Println("\nFund the address before using it as an issuer. Keep the seed secret.")
	return nil
}
