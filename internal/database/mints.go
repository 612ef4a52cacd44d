package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"xrpl-iou-issuer-go/internal/models"
	"xrpl-iou-issuer-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RecordMint inserts rec. A record already stored under the same hash is
// replaced only while it is pending; otherwise store.ErrDuplicateMint is
// returned.
func (s *Service) RecordMint(ctx context.Context, rec models.MintRecord) error {
	if rec.TxHash == "" {
		return fmt.Errorf("mint record has no transaction hash")
	}
	if rec.Id == "" {
		rec.Id = uuid.New().String()
	}
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = now
	}

	res, err := s.db.ExecContext(ctx, queryUpsertMint,
		rec.Id, rec.BatchId, rec.BatchIndex, rec.Recipient, rec.Currency, rec.Issuer,
		rec.Amount.String(), rec.Status, rec.TxHash, rec.LedgerIndex, rec.LastLedgerSequence,
		rec.ResultCode, rec.ErrorMessage, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("unable to record mint %s: %w", rec.TxHash, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("unable to record mint %s: %w", rec.TxHash, err)
	}
	if affected == 0 {
		return fmt.Errorf("mint %s already final: %w", rec.TxHash, store.ErrDuplicateMint)
	}

	zap.L().Debug("Mint recorded",
		zap.String("hash", rec.TxHash),
		zap.String("status", rec.Status),
		zap.String("recipient", rec.Recipient),
		zap.String("amount", rec.Amount.String()))
	return nil
}

func (s *Service) ResolveMint(ctx context.Context, r store.Resolution) error {
	res, err := s.db.ExecContext(ctx, queryResolveMint,
		r.Status, r.LedgerIndex, r.ResultCode, r.Message, time.Now().UTC(), r.TxHash)
	if err != nil {
		return fmt.Errorf("unable to resolve mint %s: %w", r.TxHash, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("unable to resolve mint %s: %w", r.TxHash, err)
	}
	if affected > 0 {
		return nil
	}

	var status string
	err = s.db.QueryRowContext(ctx, queryGetMintStatus, r.TxHash).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("resolve %s: %w", r.TxHash, store.ErrMintNotFound)
	}
	if err != nil {
		return fmt.Errorf("unable to resolve mint %s: %w", r.TxHash, err)
	}
	return fmt.Errorf("mint %s already %s: %w", r.TxHash, status, store.ErrDuplicateMint)
}

func (s *Service) ListPendingMints(ctx context.Context, limit int) ([]models.MintRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, queryListPendingMints, limit)
	if err != nil {
		return nil, fmt.Errorf("unable to list pending mints: %w", err)
	}
	return scanMints(rows)
}

func (s *Service) GetMintHistory(ctx context.Context, recipient string, limit, offset int) ([]models.MintRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := s.db.QueryContext(ctx, queryGetMintHistory, recipient, recipient, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("unable to query mint history: %w", err)
	}
	return scanMints(rows)
}

func (s *Service) GetIssuedTotals(ctx context.Context) ([]models.IssuedTotal, error) {
	rows, err := s.db.QueryContext(ctx, queryValidatedAmounts)
	if err != nil {
		return nil, fmt.Errorf("unable to query issued totals: %w", err)
	}
	defer rows.Close()

	var totals []models.IssuedTotal
	for rows.Next() {
		var recipient, currency, raw string
		if err := rows.Scan(&recipient, &currency, &raw); err != nil {
			return nil, fmt.Errorf("unable to scan issued amount: %w", err)
		}
		value, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("stored amount %q for %s is invalid: %w", raw, recipient, err)
		}

		n := len(totals)
		if n > 0 && totals[n-1].Recipient == recipient && totals[n-1].Currency == currency {
			totals[n-1].Total = totals[n-1].Total.Add(value)
			totals[n-1].Count++
			continue
		}
		totals = append(totals, models.IssuedTotal{Recipient: recipient, Currency: currency, Total: value, Count: 1})
	}
	return totals, rows.Err()
}

func scanMints(rows *sql.Rows) ([]models.MintRecord, error) {
	defer rows.Close()

	var records []models.MintRecord
	for rows.Next() {
		var rec models.MintRecord
		var raw string
		if err := rows.Scan(
			&rec.Id, &rec.BatchId, &rec.BatchIndex, &rec.Recipient, &rec.Currency, &rec.Issuer,
			&raw, &rec.Status, &rec.TxHash, &rec.LedgerIndex, &rec.LastLedgerSequence,
			&rec.ResultCode, &rec.ErrorMessage, &rec.CreatedAt, &rec.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("unable to scan mint: %w", err)
		}
		amt, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("stored amount %q for %s is invalid: %w", raw, rec.TxHash, err)
		}
		rec.Amount = amt
		records = append(records, rec)
	}
	return records, rows.Err()
}
