package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	MintStatusValidated = "validated"
	MintStatusFailed    = "failed"
	MintStatusRejected  = "rejected"
	MintStatusPending   = "pending"
)

// MintRecord is the audit entry for one issuance attempt that reached the ledger
type MintRecord struct {
	Id                 string          `db:"id" json:"id"`
	BatchId            string          `db:"batch_id" json:"batchId"`
	BatchIndex         int             `db:"batch_index" json:"batchIndex"`
	Recipient          string          `db:"recipient" json:"recipient"`
	Currency           string          `db:"currency" json:"currency"`
	Issuer             string          `db:"issuer" json:"issuer"`
	Amount             decimal.Decimal `db:"amount" json:"amount"`
	Status             string          `db:"status" json:"status"`
	TxHash             string          `db:"tx_hash" json:"hash"`
	LedgerIndex        uint32          `db:"ledger_index" json:"ledgerIndex"`
	LastLedgerSequence uint32          `db:"last_ledger_sequence" json:"lastLedgerSequence"`
	ResultCode         string          `db:"result_code" json:"resultCode"`
	ErrorMessage       string          `db:"error_message" json:"errorMessage"`
	CreatedAt          time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt          time.Time       `db:"updated_at" json:"updatedAt"`
}

// IssuedTotal aggregates validated issuance per recipient
type IssuedTotal struct {
	Recipient string          `db:"recipient" json:"recipient"`
	Currency  string          `db:"currency" json:"currency"`
	Total     decimal.Decimal `db:"total" json:"total"`
	Count     int             `db:"count" json:"count"`
}
