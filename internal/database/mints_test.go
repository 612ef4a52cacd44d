package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"xrpl-iou-issuer-go/internal/models"
	"xrpl-iou-issuer-go/internal/store"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

func setupTestDb(t *testing.T) (*Service, func()) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	// every connection to :memory: is a separate database
	db.SetMaxOpenConns(1)

	service, err := newServiceWithDB(context.Background(), db)
	if err != nil {
		t.Fatalf("Failed to create test schema: %v", err)
	}

	cleanup := func() {
		db.Close()
	}

	return service, cleanup
}

func mintRecord(hash, recipient, amount, status string, at time.Time) models.MintRecord {
	return models.MintRecord{
		Recipient:          recipient,
		Currency:           "USD",
		Issuer:             "rIssuer",
		Amount:             decimal.RequireFromString(amount),
		Status:             status,
		TxHash:             hash,
		LastLedgerSequence: 120,
		CreatedAt:          at,
		UpdatedAt:          at,
	}
}

func TestRecordMint_AndHistory(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()
	ctx := context.Background()
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	records := []models.MintRecord{
		mintRecord("H1", "rAlice", "10.5", models.MintStatusValidated, base),
		mintRecord("H2", "rBob", "3", models.MintStatusFailed, base.Add(time.Minute)),
		mintRecord("H3", "rAlice", "0.25", models.MintStatusValidated, base.Add(2*time.Minute)),
	}
	for _, rec := range records {
		if err := service.RecordMint(ctx, rec); err != nil {
			t.Fatalf("RecordMint(%s) failed: %v", rec.TxHash, err)
		}
	}

	history, err := service.GetMintHistory(ctx, "", 10, 0)
	if err != nil {
		t.Fatalf("GetMintHistory failed: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(history))
	}
	if history[0].TxHash != "H3" || history[2].TxHash != "H1" {
		t.Errorf("Expected newest first, got %s..%s", history[0].TxHash, history[2].TxHash)
	}
	if !history[2].Amount.Equal(decimal.RequireFromString("10.5")) {
		t.Errorf("Expected amount 10.5, got %s", history[2].Amount.String())
	}
	if history[0].Id == "" {
		t.Error("Expected generated id")
	}

	alice, err := service.GetMintHistory(ctx, "rAlice", 10, 0)
	if err != nil {
		t.Fatalf("GetMintHistory failed: %v", err)
	}
	if len(alice) != 2 {
		t.Fatalf("Expected 2 records for rAlice, got %d", len(alice))
	}

	page, err := service.GetMintHistory(ctx, "", 1, 1)
	if err != nil {
		t.Fatalf("GetMintHistory failed: %v", err)
	}
	if len(page) != 1 || page[0].TxHash != "H2" {
		t.Errorf("Expected page with H2, got %+v", page)
	}
}

func TestRecordMint_FinalRecordIsImmutable(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()
	ctx := context.Background()
	now := time.Now().UTC()

	if err := service.RecordMint(ctx, mintRecord("H1", "rAlice", "1", models.MintStatusPending, now)); err != nil {
		t.Fatalf("RecordMint failed: %v", err)
	}
	// pending may be overwritten by the final outcome
	if err := service.RecordMint(ctx, mintRecord("H1", "rAlice", "1", models.MintStatusValidated, now)); err != nil {
		t.Fatalf("RecordMint over pending failed: %v", err)
	}

	err := service.RecordMint(ctx, mintRecord("H1", "rAlice", "1", models.MintStatusFailed, now))
	if !errors.Is(err, store.ErrDuplicateMint) {
		t.Fatalf("Expected ErrDuplicateMint, got %v", err)
	}

	history, err := service.GetMintHistory(ctx, "rAlice", 10, 0)
	if err != nil {
		t.Fatalf("GetMintHistory failed: %v", err)
	}
	if len(history) != 1 || history[0].Status != models.MintStatusValidated {
		t.Errorf("Expected single validated record, got %+v", history)
	}
}

func TestRecordMint_RequiresHash(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	if err := service.RecordMint(context.Background(), mintRecord("", "rAlice", "1", models.MintStatusValidated, time.Now())); err == nil {
		t.Error("Expected error for record without hash")
	}
}

func TestResolveMint(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()
	ctx := context.Background()
	now := time.Now().UTC()

	for _, hash := range []string{"P1", "P2"} {
		if err := service.RecordMint(ctx, mintRecord(hash, "rAlice", "2", models.MintStatusPending, now)); err != nil {
			t.Fatalf("RecordMint failed: %v", err)
		}
	}

	pending, err := service.ListPendingMints(ctx, 10)
	if err != nil {
		t.Fatalf("ListPendingMints failed: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("Expected 2 pending mints, got %d", len(pending))
	}
	if pending[0].LastLedgerSequence != 120 {
		t.Errorf("Expected last ledger sequence 120, got %d", pending[0].LastLedgerSequence)
	}

	err = service.ResolveMint(ctx, store.Resolution{TxHash: "P1", Status: models.MintStatusValidated, LedgerIndex: 115, ResultCode: "tesSUCCESS"})
	if err != nil {
		t.Fatalf("ResolveMint failed: %v", err)
	}

	err = service.ResolveMint(ctx, store.Resolution{TxHash: "P1", Status: models.MintStatusFailed})
	if !errors.Is(err, store.ErrDuplicateMint) {
		t.Errorf("Expected ErrDuplicateMint resolving twice, got %v", err)
	}

	err = service.ResolveMint(ctx, store.Resolution{TxHash: "NOPE", Status: models.MintStatusFailed})
	if !errors.Is(err, store.ErrMintNotFound) {
		t.Errorf("Expected ErrMintNotFound, got %v", err)
	}

	pending, err = service.ListPendingMints(ctx, 10)
	if err != nil {
		t.Fatalf("ListPendingMints failed: %v", err)
	}
	if len(pending) != 1 || pending[0].TxHash != "P2" {
		t.Errorf("Expected only P2 pending, got %+v", pending)
	}
}

func TestGetIssuedTotals(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()
	ctx := context.Background()
	now := time.Now().UTC()

	records := []models.MintRecord{
		mintRecord("H1", "rAlice", "0.1", models.MintStatusValidated, now),
		mintRecord("H2", "rAlice", "0.2", models.MintStatusValidated, now),
		mintRecord("H3", "rAlice", "100", models.MintStatusFailed, now),
		mintRecord("H4", "rBob", "7", models.MintStatusValidated, now),
		mintRecord("H5", "rBob", "9", models.MintStatusPending, now),
	}
	for _, rec := range records {
		if err := service.RecordMint(ctx, rec); err != nil {
			t.Fatalf("RecordMint(%s) failed: %v", rec.TxHash, err)
		}
	}

	totals, err := service.GetIssuedTotals(ctx)
	if err != nil {
		t.Fatalf("GetIssuedTotals failed: %v", err)
	}
	if len(totals) != 2 {
		t.Fatalf("Expected 2 totals, got %d", len(totals))
	}
	// exact decimal arithmetic, no float drift
	if totals[0].Recipient != "rAlice" || !totals[0].Total.Equal(decimal.RequireFromString("0.3")) || totals[0].Count != 2 {
		t.Errorf("Unexpected rAlice total: %+v", totals[0])
	}
	if totals[1].Recipient != "rBob" || !totals[1].Total.Equal(decimal.NewFromInt(7)) || totals[1].Count != 1 {
		t.Errorf("Unexpected rBob total: %+v", totals[1])
	}
}

func TestNewService_ValidatesConfig(t *testing.T) {
	ctx := context.Background()
	cases := []models.DatabaseConfig{
		{Path: "", MaxOpenConns: 1, PingTimeout: time.Second},
		{Path: "x.db", MaxOpenConns: 0, PingTimeout: time.Second},
		{Path: "x.db", MaxOpenConns: 1, MaxIdleConns: -1, PingTimeout: time.Second},
		{Path: "x.db", MaxOpenConns: 1, PingTimeout: 0},
	}
	for i, cfg := range cases {
		if _, err := NewService(ctx, cfg); err == nil {
			t.Errorf("case %d: expected config error", i)
		}
	}
}

func TestNewService_OpensFile(t *testing.T) {
	path := t.TempDir() + "/issuer.db"
	service, err := NewService(context.Background(), models.DatabaseConfig{
		Path:         path,
		MaxOpenConns: 2,
		MaxIdleConns: 1,
		PingTimeout:  time.Second,
	})
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	defer service.Close()

	if err := service.RecordMint(context.Background(), mintRecord("H1", "rAlice", "1", models.MintStatusValidated, time.Now())); err != nil {
		t.Fatalf("RecordMint failed: %v", err)
	}
}
