package config

import (
	"strings"
	"testing"
	"time"

	"xrpl-iou-issuer-go/internal/amount"

	"github.com/shopspring/decimal"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STORE_BACKEND", "")
	t.Setenv("MAX_SINGLE_AMOUNT", "")
	t.Setenv("MAX_BATCH_ITEMS", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Store.Backend != BackendSQLite {
		t.Errorf("expected sqlite backend, got %q", cfg.Store.Backend)
	}
	if cfg.Limits.MaxBatchItems != 100 {
		t.Errorf("expected 100 batch items, got %d", cfg.Limits.MaxBatchItems)
	}
	if !cfg.Limits.MaxSingleAmount.Equal(decimal.RequireFromString(DefaultMaxSingleAmount)) {
		t.Errorf("expected default single amount cap, got %s", cfg.Limits.MaxSingleAmount)
	}
	if cfg.Ledger.LastLedgerOffset != 20 {
		t.Errorf("expected offset 20, got %d", cfg.Ledger.LastLedgerOffset)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("XRPL_ENDPOINT", "wss://xrplcluster.com")
	t.Setenv("MAX_SINGLE_AMOUNT", "2500.50")
	t.Setenv("VALIDATION_TIMEOUT", "90s")
	t.Setenv("STORE_BACKEND", "Formance")
	t.Setenv("ISSUER_ADDRESS", "  rHb9CJAWyB4rj91VRWn96DkukG4bwdtyTh ")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Ledger.Endpoint != "wss://xrplcluster.com" {
		t.Errorf("unexpected endpoint %q", cfg.Ledger.Endpoint)
	}
	if !cfg.Limits.MaxSingleAmount.Equal(decimal.RequireFromString("2500.5")) {
		t.Errorf("unexpected max amount %s", cfg.Limits.MaxSingleAmount)
	}
	if cfg.Ledger.ValidationTimeout != 90*time.Second {
		t.Errorf("unexpected validation timeout %s", cfg.Ledger.ValidationTimeout)
	}
	if cfg.Store.Backend != BackendFormance {
		t.Errorf("expected formance backend, got %q", cfg.Store.Backend)
	}
	if cfg.Issuer.Address != "rHb9CJAWyB4rj91VRWn96DkukG4bwdtyTh" {
		t.Errorf("expected trimmed address, got %q", cfg.Issuer.Address)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Setenv("VALIDATION_TIMEOUT", "soon")
	t.Setenv("MAX_SINGLE_AMOUNT", "lots")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, key := range []string{"VALIDATION_TIMEOUT", "MAX_SINGLE_AMOUNT"} {
		if !strings.Contains(err.Error(), key) {
			t.Errorf("expected error to mention %s: %v", key, err)
		}
	}
}

func TestValidate(t *testing.T) {
	t.Setenv("STORE_BACKEND", "")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}

	bad := *cfg
	bad.Ledger.Endpoint = "https://example.com"
	if err := Validate(&bad); err == nil {
		t.Error("expected error for http endpoint")
	}

	bad = *cfg
	bad.Store.Backend = BackendFormance
	if err := Validate(&bad); err == nil || !strings.Contains(err.Error(), "FORMANCE_STACK_URL") {
		t.Errorf("expected formance credentials error, got %v", err)
	}

	bad = *cfg
	bad.Redis.Addr = "localhost:6379"
	bad.Redis.LockTTL = 10 * time.Second
	if err := Validate(&bad); err == nil || !strings.Contains(err.Error(), "SUBMIT_LOCK_TTL") {
		t.Errorf("expected lock ttl error, got %v", err)
	}

	bad = *cfg
	bad.Limits.MaxSingleAmount = decimal.Zero
	if err := Validate(&bad); err == nil || !strings.Contains(err.Error(), "MAX_SINGLE_AMOUNT") {
		t.Errorf("expected max single amount error, got %v", err)
	}

	bad = *cfg
	bad.Store.Backend = "postgres"
	if err := Validate(&bad); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestLoad_SingleAmountCapWhenUnset(t *testing.T) {
	t.Setenv("STORE_BACKEND", "")
	t.Setenv("MAX_SINGLE_AMOUNT", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}

	over := decimal.RequireFromString(DefaultMaxSingleAmount).Add(decimal.NewFromInt(1))
	if _, err := amount.Validate(over.String(), cfg.Limits.MaxSingleAmount); err == nil {
		t.Errorf("expected %s to exceed the default cap", over)
	}
	if _, err := amount.Validate("9999999999999999", cfg.Limits.MaxSingleAmount); err == nil {
		t.Error("expected 9999999999999999 to exceed the default cap")
	}
}

func TestLoad_TrustedProxies(t *testing.T) {
	t.Setenv("TRUSTED_PROXIES", "")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(cfg.HTTP.TrustedProxies) != 0 {
		t.Errorf("expected no trusted proxies by default, got %v", cfg.HTTP.TrustedProxies)
	}

	t.Setenv("TRUSTED_PROXIES", "10.0.0.1, 192.168.0.0/16,")
	cfg, err = Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(cfg.HTTP.TrustedProxies) != 2 || cfg.HTTP.TrustedProxies[1] != "192.168.0.0/16" {
		t.Errorf("unexpected trusted proxies %v", cfg.HTTP.TrustedProxies)
	}
}
