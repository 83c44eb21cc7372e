package query

import "github.com/google/uuid"

// BalanceResponse is a user's projected position for one collateral asset.
// Amounts are wad decimal strings; AsOfSequence reports projection freshness.
type BalanceResponse struct {
	UserID       uuid.UUID `json:"user_id"`
	Asset        string    `json:"asset"`
	Collateral   string    `json:"collateral"`
	Liability    string    `json:"liability"`
	AsOfSequence int64     `json:"as_of_sequence"`
}

// OperationResponse is one committed operation from the durable log.
type OperationResponse struct {
	Sequence       int64  `json:"sequence"`
	EventType      string `json:"event_type"`
	IdempotencyKey string `json:"idempotency_key"`
	Asset          string `json:"asset,omitempty"`
	Payload        []byte `json:"payload"`
	StateHash      string `json:"state_hash"`
	PrevHash       string `json:"prev_hash"`
	Timestamp      int64  `json:"timestamp"`
}

// JournalHistoryEntry is one journal entry from the durable log.
type JournalHistoryEntry struct {
	JournalID     string `json:"journal_id"`
	BatchID       string `json:"batch_id"`
	OpRef         string `json:"op_ref"`
	Sequence      int64  `json:"sequence"`
	DebitAccount  string `json:"debit_account"`
	CreditAccount string `json:"credit_account"`
	Asset         string `json:"asset"`
	Amount        string `json:"amount"`
	JournalType   int32  `json:"journal_type"`
	Timestamp     int64  `json:"timestamp"`
}

// IntegrityReport is the result of verifying the persisted hash chain and
// the zero-sum property of projected balances.
type IntegrityReport struct {
	IsHealthy        bool              `json:"is_healthy"`
	HashChainBreaks  []int64           `json:"hash_chain_breaks,omitempty"`
	UnbalancedAssets []UnbalancedAsset `json:"unbalanced_assets,omitempty"`
}

// UnbalancedAsset is an asset whose projected balances do not sum to zero.
type UnbalancedAsset struct {
	Asset     string `json:"asset"`
	Imbalance string `json:"imbalance"`
}
