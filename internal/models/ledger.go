package models

// TrustLine is one line of account_lines as seen from the holder
type TrustLine struct {
	Account      string `json:"account"`
	Holder       string `json:"holder,omitempty"`
	Currency     string `json:"currency"`
	Balance      string `json:"balance"`
	Limit        string `json:"limit"`
	LimitPeer    string `json:"limit_peer"`
	QualityIn    uint32 `json:"quality_in,omitempty"`
	QualityOut   uint32 `json:"quality_out,omitempty"`
	NoRipple     bool   `json:"no_ripple,omitempty"`
	NoRipplePeer bool   `json:"no_ripple_peer,omitempty"`
	Authorized   bool   `json:"authorized,omitempty"`
	Freeze       bool   `json:"freeze,omitempty"`
	FreezePeer   bool   `json:"freeze_peer,omitempty"`
}

// TxParams are the account and network dependent fields of a transaction
type TxParams struct {
	Sequence           uint32
	Fee                int64
	LastLedgerSequence uint32
}

// SubmitResult is the node's preliminary verdict on a submitted blob
type SubmitResult struct {
	EngineResult        string
	EngineResultMessage string
	Hash                string
}

// TxStatus is what the node knows about a transaction hash
type TxStatus struct {
	Found       bool
	Validated   bool
	Result      string
	LedgerIndex uint32
}
