package ledger

import (
	"fmt"
	"math/big"

	"github.com/google/uuid"
)

// JournalType labels the purpose of a journal entry.
type JournalType int32

const (
	JournalTypeDeposit JournalType = iota
	JournalTypeRedeem
	JournalTypeMint
	JournalTypeBurn
	JournalTypeLiquidationSeize
	JournalTypeLiquidationBurn
)

func (jt JournalType) String() string {
	switch jt {
	case JournalTypeDeposit:
		return "deposit"
	case JournalTypeRedeem:
		return "redeem"
	case JournalTypeMint:
		return "mint"
	case JournalTypeBurn:
		return "burn"
	case JournalTypeLiquidationSeize:
		return "liquidation_seize"
	case JournalTypeLiquidationBurn:
		return "liquidation_burn"
	default:
		return "unknown"
	}
}

// Journal is a single double-entry transfer: a positive Amount moves from the
// credit account to the debit account (debit balance increases).
type Journal struct {
	JournalID     uuid.UUID
	BatchID       uuid.UUID
	OpRef         string // idempotency key of the originating operation
	Sequence      int64
	DebitAccount  AccountKey
	CreditAccount AccountKey
	Asset         string
	Amount        *big.Int // wad, always positive
	JournalType   JournalType
	Timestamp     int64 // epoch microseconds
}

// Batch groups the journals committed by one operation. A batch is applied
// and reverted as a unit.
type Batch struct {
	BatchID   uuid.UUID
	OpRef     string
	Sequence  int64
	Timestamp int64
	Journals  []Journal
}

// Validate ensures the batch is well-formed. Each journal is balanced by
// construction (one positive amount, two accounts), so zero-sum holds
// per-entry; this checks the remaining shape invariants.
func (b *Batch) Validate() error {
	if len(b.Journals) == 0 {
		return fmt.Errorf("batch %s is empty", b.BatchID)
	}

	for _, j := range b.Journals {
		if j.Amount == nil || j.Amount.Sign() <= 0 {
			return fmt.Errorf("journal %s has non-positive amount", j.JournalID)
		}
		if j.BatchID != b.BatchID {
			return fmt.Errorf("journal %s has mismatched batch_id", j.JournalID)
		}
		if j.DebitAccount == j.CreditAccount {
			return fmt.Errorf("journal %s has same debit and credit account", j.JournalID)
		}
	}

	return nil
}
