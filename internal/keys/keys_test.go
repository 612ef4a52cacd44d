package keys

import (
	"bytes"
	"encoding/hex"
	"strings"
	"testing"
)

const (
	genesisSeed    = "snoPBrXtMeMyMHUVTgbuqAfg1SUTb"
	genesisAddress = "rHb9CJAWyB4rj91VRWn96DkukG4bwdtyTh"
)

func TestIsValidClassicAddress(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"genesis", genesisAddress, true},
		{"account zero", "rrrrrrrrrrrrrrrrrrrrrhoLvTp", true},
		{"account one", "rrrrrrrrrrrrrrrrrrrrBZbvji", true},
		{"empty", "", false},
		{"placeholder", "rBADADDR", false},
		{"bad checksum", "rHb9CJAWyB4rj91VRWn96DkukG4bwdtyTj", false},
		{"wrong leading char", "xHb9CJAWyB4rj91VRWn96DkukG4bwdtyTh", false},
		{"non alphabet char", "rHb9CJAWyB4rj91VRWn96DkukG4bwdty0h", false},
		{"seed is not an address", genesisSeed, false},
		{"trailing space", genesisAddress + " ", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidClassicAddress(tt.input); got != tt.want {
				t.Errorf("IsValidClassicAddress(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestEncodeAccountID(t *testing.T) {
	zero := make([]byte, AccountIDSize)
	addr, err := EncodeAccountID(zero)
	if err != nil {
		t.Fatalf("EncodeAccountID failed: %v", err)
	}
	if addr != "rrrrrrrrrrrrrrrrrrrrrhoLvTp" {
		t.Errorf("Expected account zero address, got %s", addr)
	}

	one := make([]byte, AccountIDSize)
	one[AccountIDSize-1] = 1
	addr, err = EncodeAccountID(one)
	if err != nil {
		t.Fatalf("EncodeAccountID failed: %v", err)
	}
	if addr != "rrrrrrrrrrrrrrrrrrrrBZbvji" {
		t.Errorf("Expected account one address, got %s", addr)
	}

	if _, err := EncodeAccountID([]byte{1, 2, 3}); err == nil {
		t.Error("Expected error for short account id")
	}
}

func TestDecodeAddressRoundTrip(t *testing.T) {
	id, err := DecodeAddress(genesisAddress)
	if err != nil {
		t.Fatalf("DecodeAddress failed: %v", err)
	}
	if len(id) != AccountIDSize {
		t.Fatalf("Expected %d bytes, got %d", AccountIDSize, len(id))
	}
	addr, _ := EncodeAccountID(id)
	if addr != genesisAddress {
		t.Errorf("Round trip mismatch: got %s", addr)
	}
}

func TestDecodeSeed(t *testing.T) {
	entropy, keyType, err := DecodeSeed(genesisSeed)
	if err != nil {
		t.Fatalf("DecodeSeed failed: %v", err)
	}
	if keyType != KeyTypeSecp256k1 {
		t.Errorf("Expected secp256k1, got %s", keyType)
	}
	if got := strings.ToUpper(hex.EncodeToString(entropy)); got != "DEDCE9CE67B451D852FD4E846FCDE31C" {
		t.Errorf("Unexpected entropy %s", got)
	}

	if _, _, err := DecodeSeed(genesisAddress); err == nil {
		t.Error("Expected error decoding an address as a seed")
	}
	if _, _, err := DecodeSeed("not-a-seed"); err == nil {
		t.Error("Expected error for garbage seed")
	}
}

func TestEncodeSeed(t *testing.T) {
	seed, err := EncodeSeed(make([]byte, EntropySize), KeyTypeSecp256k1)
	if err != nil {
		t.Fatalf("EncodeSeed failed: %v", err)
	}
	if seed != "sp6JS7f14BuwFY8Mw6bTtLKWauoUs" {
		t.Errorf("Unexpected zero seed encoding %s", seed)
	}

	edSeed, err := EncodeSeed(make([]byte, EntropySize), KeyTypeEd25519)
	if err != nil {
		t.Fatalf("EncodeSeed failed: %v", err)
	}
	if !strings.HasPrefix(edSeed, "sEd") {
		t.Errorf("Expected ed25519 seed to start with sEd, got %s", edSeed)
	}
	entropy, keyType, err := DecodeSeed(edSeed)
	if err != nil {
		t.Fatalf("DecodeSeed failed: %v", err)
	}
	if keyType != KeyTypeEd25519 || !bytes.Equal(entropy, make([]byte, EntropySize)) {
		t.Errorf("Ed25519 seed round trip mismatch: %s %x", keyType, entropy)
	}
}

func TestDeriveKeypair_Secp256k1(t *testing.T) {
	kp, err := DeriveKeypair(genesisSeed)
	if err != nil {
		t.Fatalf("DeriveKeypair failed: %v", err)
	}
	if kp.Address() != genesisAddress {
		t.Errorf("Expected %s, got %s", genesisAddress, kp.Address())
	}
	if len(kp.PublicKey()) != 33 {
		t.Errorf("Expected 33 byte public key, got %d", len(kp.PublicKey()))
	}

	msg := []byte("payment signing data")
	sig, err := kp.Sign(msg)
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	if !kp.Verify(msg, sig) {
		t.Error("Signature did not verify")
	}
	if kp.Verify([]byte("other"), sig) {
		t.Error("Signature verified for a different message")
	}
}

func TestDeriveKeypair_Ed25519(t *testing.T) {
	entropy := bytes.Repeat([]byte{0x42}, EntropySize)
	seed, err := EncodeSeed(entropy, KeyTypeEd25519)
	if err != nil {
		t.Fatalf("EncodeSeed failed: %v", err)
	}
	kp, err := DeriveKeypair(seed)
	if err != nil {
		t.Fatalf("DeriveKeypair failed: %v", err)
	}
	pub := kp.PublicKey()
	if len(pub) != 33 || pub[0] != 0xED {
		t.Errorf("Expected 0xED prefixed public key, got %x", pub)
	}
	if !IsValidClassicAddress(kp.Address()) {
		t.Errorf("Derived address %s is not valid", kp.Address())
	}

	msg := []byte("payment signing data")
	sig, _ := kp.Sign(msg)
	if len(sig) != 64 || !kp.Verify(msg, sig) {
		t.Error("Ed25519 signature did not verify")
	}
}

func TestDeriveKeypair_Deterministic(t *testing.T) {
	a, _ := DeriveKeypair(genesisSeed)
	b, _ := DeriveKeypair(genesisSeed)
	if a.PublicKeyHex() != b.PublicKeyHex() {
		t.Error("Derivation is not deterministic")
	}
	if a.PublicKeyHex() != strings.ToUpper(a.PublicKeyHex()) {
		t.Error("Expected upper case public key hex")
	}
}
