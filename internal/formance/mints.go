package formance

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"xrpl-iou-issuer-go/internal/models"
	"xrpl-iou-issuer-go/internal/store"

	"github.com/formancehq/formance-sdk-go/v3/pkg/models/operations"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/shared"
	"go.uber.org/zap"
)

// The issuer account mirrors the XRPL issuer: its balance goes negative by
// the amount in circulation.
const numscriptMint = `vars {
  asset $asset
  number $amount
  account $issuer
  account $recipient
  string $tx_hash
  string $currency
  string $amount_human
  string $ledger_index
  string $batch_id
  string $batch_index
}

send [$asset $amount] (
  source = @issuers:$issuer allowing unbounded overdraft
  destination = @holders:$recipient
)

set_tx_meta("event_type", "mint")
set_tx_meta("tx_hash", $tx_hash)
set_tx_meta("currency", $currency)
set_tx_meta("amount_human", $amount_human)
set_tx_meta("ledger_index", $ledger_index)
set_tx_meta("batch_id", $batch_id)
set_tx_meta("batch_index", $batch_index)
`

const historyPageSize = 100

// RecordMint posts a validated mint from the issuer to the holder, using the
// XRPL transaction hash as the reference. Reposting the same hash is a no-op.
func (s *Service) RecordMint(ctx context.Context, rec models.MintRecord) error {
	if rec.Status != models.MintStatusValidated {
		zap.L().Debug("Skipping non-validated mint for Formance",
			zap.String("hash", rec.TxHash),
			zap.String("status", rec.Status))
		return nil
	}
	if rec.TxHash == "" {
		return fmt.Errorf("mint record has no transaction hash")
	}

	units, err := toSmallestUnit(rec.Amount, s.precision)
	if err != nil {
		return fmt.Errorf("unable to post mint %s: %w", rec.TxHash, err)
	}

	postTx := shared.V2PostTransaction{
		Reference: strPtr(rec.TxHash),
		Script: &shared.V2PostTransactionScript{
			Plain: numscriptMint,
			Vars: map[string]string{
				"asset":        formanceAsset(rec.Currency, s.precision),
				"amount":       units.String(),
				"issuer":       rec.Issuer,
				"recipient":    rec.Recipient,
				"tx_hash":      rec.TxHash,
				"currency":     rec.Currency,
				"amount_human": rec.Amount.String(),
				"ledger_index": strconv.FormatUint(uint64(rec.LedgerIndex), 10),
				"batch_id":     rec.BatchId,
				"batch_index":  strconv.Itoa(rec.BatchIndex),
			},
		},
	}
	if !rec.UpdatedAt.IsZero() {
		postTx.Timestamp = &rec.UpdatedAt
	}

	_, err = s.client.Ledger.V2.CreateTransaction(ctx, operations.V2CreateTransactionRequest{
		Ledger:            s.ledger,
		V2PostTransaction: postTx,
	})
	if err != nil {
		if isConflictError(err) {
			return nil // idempotent
		}
		return fmt.Errorf("error recording mint: %w", err)
	}

	zap.L().Info("Mint recorded in Formance",
		zap.String("hash", rec.TxHash),
		zap.String("recipient", rec.Recipient),
		zap.String("amount", rec.Amount.String()))
	return nil
}

// ResolveMint always reports store.ErrMintNotFound: pending mints are never
// posted to Formance.
func (s *Service) ResolveMint(_ context.Context, r store.Resolution) error {
	return fmt.Errorf("resolve %s: %w", r.TxHash, store.ErrMintNotFound)
}

func (s *Service) ListPendingMints(context.Context, int) ([]models.MintRecord, error) {
	return nil, nil
}

func (s *Service) GetMintHistory(ctx context.Context, recipient string, limit, offset int) ([]models.MintRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	pageSize := int64(limit + offset) // fetch enough to skip offset

	resp, err := s.client.Ledger.V2.ListTransactions(ctx, operations.V2ListTransactionsRequest{
		Ledger:      s.ledger,
		PageSize:    &pageSize,
		RequestBody: mintFilter(recipient),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	var result []models.MintRecord
	for i, tx := range resp.V2TransactionsCursorResponse.Cursor.Data {
		if i < offset {
			continue
		}
		result = append(result, s.toMintRecord(tx))
		if len(result) >= limit {
			break
		}
	}
	return result, nil
}

// GetIssuedTotals walks every mint posting and sums them per holder.
func (s *Service) GetIssuedTotals(ctx context.Context) ([]models.IssuedTotal, error) {
	pageSize := int64(historyPageSize)
	index := map[string]int{}
	var totals []models.IssuedTotal

	var cursor *string
	for {
		resp, err := s.client.Ledger.V2.ListTransactions(ctx, operations.V2ListTransactionsRequest{
			Ledger:      s.ledger,
			PageSize:    &pageSize,
			Cursor:      cursor,
			RequestBody: mintFilter(""),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list transactions: %w", err)
		}

		page := resp.V2TransactionsCursorResponse.Cursor
		for _, tx := range page.Data {
			rec := s.toMintRecord(tx)
			key := rec.Recipient + "|" + rec.Currency
			i, ok := index[key]
			if !ok {
				index[key] = len(totals)
				totals = append(totals, models.IssuedTotal{Recipient: rec.Recipient, Currency: rec.Currency, Total: rec.Amount, Count: 1})
				continue
			}
			totals[i].Total = totals[i].Total.Add(rec.Amount)
			totals[i].Count++
		}

		if !page.HasMore || page.Next == nil {
			break
		}
		cursor = page.Next
	}
	return totals, nil
}

func mintFilter(recipient string) map[string]any {
	byEvent := map[string]any{"$match": map[string]any{"metadata[event_type]": "mint"}}
	if recipient == "" {
		return byEvent
	}
	return map[string]any{
		"$and": []any{
			byEvent,
			map[string]any{"$match": map[string]any{"destination": "holders:" + recipient}},
		},
	}
}

func (s *Service) toMintRecord(tx shared.V2Transaction) models.MintRecord {
	rec := models.MintRecord{
		BatchId:    tx.Metadata["batch_id"],
		Currency:   tx.Metadata["currency"],
		Status:     models.MintStatusValidated,
		TxHash:     tx.Metadata["tx_hash"],
		ResultCode: "tesSUCCESS",
		CreatedAt:  tx.Timestamp,
		UpdatedAt:  tx.Timestamp,
	}
	if tx.ID != nil {
		rec.Id = tx.ID.String()
	}
	if rec.TxHash == "" && tx.Reference != nil {
		rec.TxHash = *tx.Reference
	}
	if n, err := strconv.Atoi(tx.Metadata["batch_index"]); err == nil {
		rec.BatchIndex = n
	}
	if n, err := strconv.ParseUint(tx.Metadata["ledger_index"], 10, 32); err == nil {
		rec.LedgerIndex = uint32(n)
	}

	for _, p := range tx.Postings {
		if !strings.HasPrefix(p.Destination, "holders:") {
			continue
		}
		rec.Recipient = strings.TrimPrefix(p.Destination, "holders:")
		rec.Issuer = strings.TrimPrefix(p.Source, "issuers:")
		rec.Amount = bigIntToDecimal(p.Amount, s.precision)
	}
	return rec
}
