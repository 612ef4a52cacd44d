package xrpl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"xrpl-iou-issuer-go/internal/models"

	"go.uber.org/zap"
)

const accountLinesPageSize = 400

// Client issues the handful of commands the issuer needs over the shared
// session of a Manager.
type Client struct {
	manager          *Manager
	lastLedgerOffset uint32
	maxFeeDrops      int64
}

func NewClient(manager *Manager, cfg models.LedgerConfig) *Client {
	return &Client{
		manager:          manager,
		lastLedgerOffset: cfg.LastLedgerOffset,
		maxFeeDrops:      cfg.MaxFeeDrops,
	}
}

func (c *Client) Manager() *Manager { return c.manager }

// IsRPCError reports whether err is a node error with the given code.
func IsRPCError(err error, code string) bool {
	var rpcErr *RPCError
	return errors.As(err, &rpcErr) && rpcErr.Code == code
}

type accountLinesResult struct {
	Account string             `json:"account"`
	Lines   []models.TrustLine `json:"lines"`
	Marker  json.RawMessage    `json:"marker,omitempty"`
}

// AccountLines lists the trust lines account holds with peer in the latest
// validated ledger. An account that does not exist holds no lines.
func (c *Client) AccountLines(ctx context.Context, account, peer string) ([]models.TrustLine, error) {
	var lines []models.TrustLine
	var marker json.RawMessage

	for {
		params := map[string]any{
			"account":      account,
			"ledger_index": "validated",
			"limit":        accountLinesPageSize,
		}
		if peer != "" {
			params["peer"] = peer
		}
		if len(marker) > 0 {
			params["marker"] = marker
		}

		var res accountLinesResult
		if err := c.manager.request(ctx, "account_lines", params, &res); err != nil {
			if IsRPCError(err, "actNotFound") {
				zap.L().Debug("Account not found on ledger", zap.String("account", account))
				return nil, nil
			}
			return nil, fmt.Errorf("unable to list trust lines: %w", err)
		}
		for _, line := range res.Lines {
			line.Holder = account
			lines = append(lines, line)
		}
		if len(res.Marker) == 0 || string(res.Marker) == "null" {
			return lines, nil
		}
		marker = res.Marker
	}
}

type accountInfoResult struct {
	AccountData struct {
		Sequence uint32 `json:"Sequence"`
	} `json:"account_data"`
	LedgerCurrentIndex uint32 `json:"ledger_current_index"`
}

type feeResult struct {
	Drops struct {
		BaseFee       string `json:"base_fee"`
		OpenLedgerFee string `json:"open_ledger_fee"`
	} `json:"drops"`
}

// Autofill reads the next sequence number, the current fee and derives the
// LastLedgerSequence for a transaction sent by account.
func (c *Client) Autofill(ctx context.Context, account string) (models.TxParams, error) {
	var info accountInfoResult
	err := c.manager.request(ctx, "account_info", map[string]any{
		"account":      account,
		"ledger_index": "current",
	}, &info)
	if err != nil {
		return models.TxParams{}, fmt.Errorf("unable to read account info: %w", err)
	}

	var fees feeResult
	if err := c.manager.request(ctx, "fee", nil, &fees); err != nil {
		return models.TxParams{}, fmt.Errorf("unable to read network fee: %w", err)
	}
	fee, err := c.pickFee(fees)
	if err != nil {
		return models.TxParams{}, err
	}

	return models.TxParams{
		Sequence:           info.AccountData.Sequence,
		Fee:                fee,
		LastLedgerSequence: info.LedgerCurrentIndex + c.lastLedgerOffset,
	}, nil
}

func (c *Client) pickFee(fees feeResult) (int64, error) {
	base, err := strconv.ParseInt(fees.Drops.BaseFee, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid base fee %q: %w", fees.Drops.BaseFee, err)
	}
	fee := base
	if open, err := strconv.ParseInt(fees.Drops.OpenLedgerFee, 10, 64); err == nil && open > fee {
		fee = open
	}
	if c.maxFeeDrops > 0 && fee > c.maxFeeDrops {
		return 0, fmt.Errorf("network fee %d drops exceeds maximum %d drops", fee, c.maxFeeDrops)
	}
	return fee, nil
}

type submitResult struct {
	EngineResult        string `json:"engine_result"`
	EngineResultMessage string `json:"engine_result_message"`
	TxJSON              struct {
		Hash string `json:"hash"`
	} `json:"tx_json"`
}

// Submit hands a signed blob to the node and returns its preliminary result.
func (c *Client) Submit(ctx context.Context, blob string) (models.SubmitResult, error) {
	var res submitResult
	if err := c.manager.request(ctx, "submit", map[string]any{"tx_blob": blob}, &res); err != nil {
		return models.SubmitResult{}, err
	}
	return models.SubmitResult{
		EngineResult:        res.EngineResult,
		EngineResultMessage: res.EngineResultMessage,
		Hash:                res.TxJSON.Hash,
	}, nil
}

type txResult struct {
	Validated   bool   `json:"validated"`
	LedgerIndex uint32 `json:"ledger_index"`
	Meta        struct {
		TransactionResult string `json:"TransactionResult"`
	} `json:"meta"`
}

// Transaction looks up a transaction by hash. Unknown hashes are reported
// as not found rather than as an error.
func (c *Client) Transaction(ctx context.Context, hash string) (models.TxStatus, error) {
	var res txResult
	err := c.manager.request(ctx, "tx", map[string]any{"transaction": hash, "binary": false}, &res)
	if err != nil {
		if IsRPCError(err, "txnNotFound") {
			return models.TxStatus{}, nil
		}
		return models.TxStatus{}, err
	}
	return models.TxStatus{
		Found:       true,
		Validated:   res.Validated,
		Result:      res.Meta.TransactionResult,
		LedgerIndex: res.LedgerIndex,
	}, nil
}

type ledgerResult struct {
	LedgerIndex uint32 `json:"ledger_index"`
}

// ValidatedLedgerIndex returns the sequence of the latest validated ledger.
func (c *Client) ValidatedLedgerIndex(ctx context.Context) (uint32, error) {
	var res ledgerResult
	if err := c.manager.request(ctx, "ledger", map[string]any{"ledger_index": "validated"}, &res); err != nil {
		return 0, err
	}
	return res.LedgerIndex, nil
}
