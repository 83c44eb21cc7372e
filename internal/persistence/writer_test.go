package persistence_test

import (
	"crypto/sha256"
	"testing"
	"time"

	"github.com/google/uuid"

	"SynthLedger/internal/engine"
	"SynthLedger/internal/event"
	"SynthLedger/internal/fixedpoint"
	"SynthLedger/internal/ledger"
	"SynthLedger/internal/persistence"
)

func TestRowsFromOutput_FlattensEnvelopeAndJournals(t *testing.T) {
	user := uuid.New()
	batchID := uuid.New()
	prev := sha256.Sum256([]byte("prev"))
	state := sha256.Sum256([]byte("state"))
	ts := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	amount := fixedpoint.FromUnits(5)

	out := engine.Output{
		Envelope: &event.Envelope{
			Sequence:       7,
			IdempotencyKey: "op-7",
			EventType:      event.EventTypeCollateralDeposited,
			Asset:          "WETH",
			Timestamp:      ts,
			Payload:        []byte(`{"k":"v"}`),
			StateHash:      state,
			PrevHash:       prev,
		},
		Batches: []*ledger.Batch{{
			BatchID: batchID,
			OpRef:   "op-7",
			Journals: []ledger.Journal{{
				JournalID:     uuid.New(),
				BatchID:       batchID,
				OpRef:         "op-7",
				DebitAccount:  ledger.NewCollateralKey(user, "WETH"),
				CreditAccount: ledger.NewCustodyKey("WETH"),
				Asset:         "WETH",
				Amount:        amount,
				JournalType:   ledger.JournalTypeDeposit,
				Timestamp:     ts.UnixMicro(),
			}},
		}},
	}

	op, journals := persistence.RowsFromOutput(out)

	if op.Sequence != 7 || op.IdempotencyKey != "op-7" || op.Asset != "WETH" {
		t.Errorf("operation row = %+v", op)
	}
	if string(op.StateHash) != string(state[:]) || string(op.PrevHash) != string(prev[:]) {
		t.Error("hash bytes do not match the envelope")
	}

	if len(journals) != 1 {
		t.Fatalf("journal rows = %d, want 1", len(journals))
	}
	j := journals[0]
	if j.Sequence != 7 {
		t.Errorf("journal sequence = %d, want envelope sequence 7", j.Sequence)
	}
	if j.Amount != amount.String() {
		t.Errorf("amount = %q, want %q", j.Amount, amount.String())
	}
	if j.DebitAccount != ledger.NewCollateralKey(user, "WETH").AccountPath() {
		t.Errorf("debit account = %q", j.DebitAccount)
	}
	if j.JournalType != int32(ledger.JournalTypeDeposit) {
		t.Errorf("journal type = %d", j.JournalType)
	}
}

func TestRowsFromOutput_MultipleBatches(t *testing.T) {
	user := uuid.New()
	mkBatch := func() *ledger.Batch {
		id := uuid.New()
		return &ledger.Batch{
			BatchID: id,
			Journals: []ledger.Journal{{
				JournalID:     uuid.New(),
				BatchID:       id,
				DebitAccount:  ledger.NewDebtIssuedKey(),
				CreditAccount: ledger.NewDebtKey(user),
				Asset:         ledger.DebtAsset,
				Amount:        fixedpoint.FromUnits(1),
			}},
		}
	}

	out := engine.Output{
		Envelope: &event.Envelope{EventType: event.EventTypePositionLiquidated},
		Batches:  []*ledger.Batch{mkBatch(), mkBatch()},
	}

	_, journals := persistence.RowsFromOutput(out)
	if len(journals) != 2 {
		t.Errorf("journal rows = %d, want 2", len(journals))
	}
}
