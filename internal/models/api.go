package models

const (
	BatchStatusSuccess = "success"
	BatchStatusPartial = "partial"
)

// MintRequest asks for amount of the configured currency to be issued to To
type MintRequest struct {
	To     string `json:"to" yaml:"to"`
	Amount string `json:"amount" yaml:"amount"`
}

// Receipt identifies a validated issuance on the ledger
type Receipt struct {
	Hash        string `json:"hash"`
	LedgerIndex uint32 `json:"ledgerIndex"`
}

// MintResult is the outcome of one mint request. Built once, never modified.
type MintResult struct {
	Index       int    `json:"index"`
	To          string `json:"to"`
	Amount      string `json:"amount"`
	OK          bool   `json:"ok"`
	Hash        string `json:"hash,omitempty"`
	LedgerIndex uint32 `json:"ledgerIndex,omitempty"`
	Error       string `json:"error,omitempty"`
}

// BatchResult summarizes a batch in input order
type BatchResult struct {
	Status   string       `json:"status"`
	OKCount  int          `json:"okCount"`
	ErrCount int          `json:"errCount"`
	Results  []MintResult `json:"results"`
}

func NewMintSuccess(index int, req MintRequest, receipt Receipt) MintResult {
	return MintResult{
		Index:       index,
		To:          req.To,
		Amount:      req.Amount,
		OK:          true,
		Hash:        receipt.Hash,
		LedgerIndex: receipt.LedgerIndex,
	}
}

func NewMintFailure(index int, req MintRequest, err error) MintResult {
	return MintResult{
		Index:  index,
		To:     req.To,
		Amount: req.Amount,
		Error:  err.Error(),
	}
}

// NewBatchResult derives counts and status from results.
func NewBatchResult(results []MintResult) BatchResult {
	out := BatchResult{Results: results}
	for _, r := range results {
		if r.OK {
			out.OKCount++
		} else {
			out.ErrCount++
		}
	}
	out.Status = BatchStatusSuccess
	if out.ErrCount > 0 {
		out.Status = BatchStatusPartial
	}
	return out
}

// PayloadRef identifies a signing request created with the hosted signer
type PayloadRef struct {
	UUID string `json:"uuid"`
	Link string `json:"link"`
	QR   string `json:"qr"`
}

// PayloadStatus is the state of a signing request
type PayloadStatus struct {
	Signed  bool   `json:"signed"`
	Expired bool   `json:"expired"`
	Account string `json:"account,omitempty"`
	TxID    string `json:"txid,omitempty"`
}
