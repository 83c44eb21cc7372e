package query_test

import (
	"context"
	"crypto/sha256"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"SynthLedger/internal/engine"
	"SynthLedger/internal/event"
	"SynthLedger/internal/fixedpoint"
	"SynthLedger/internal/ledger"
	"SynthLedger/internal/persistence"
	"SynthLedger/internal/projection"
	"SynthLedger/internal/query"
	"SynthLedger/internal/testutil"
)

// depositOutput builds the committed-operation output of a single deposit.
func depositOutput(user uuid.UUID, seq int64, prev [32]byte) engine.Output {
	amount := fixedpoint.FromUnits(5)
	ts := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	batchID := uuid.New()

	digest := append(prev[:], byte(seq))
	return engine.Output{
		Envelope: &event.Envelope{
			Sequence:       seq,
			IdempotencyKey: uuid.New().String(),
			EventType:      event.EventTypeCollateralDeposited,
			Asset:          "WETH",
			Timestamp:      ts,
			Payload:        []byte(`{}`),
			StateHash:      sha256.Sum256(digest),
			PrevHash:       prev,
		},
		Batches: []*ledger.Batch{{
			BatchID:   batchID,
			OpRef:     "it-op",
			Sequence:  seq,
			Timestamp: ts.UnixMicro(),
			Journals: []ledger.Journal{{
				JournalID:     uuid.New(),
				BatchID:       batchID,
				OpRef:         "it-op",
				Sequence:      seq,
				DebitAccount:  ledger.NewCollateralKey(user, "WETH"),
				CreditAccount: ledger.NewCustodyKey("WETH"),
				Asset:         "WETH",
				Amount:        amount,
				JournalType:   ledger.JournalTypeDeposit,
				Timestamp:     ts.UnixMicro(),
			}},
		}},
	}
}

func TestQueryService_EndToEnd(t *testing.T) {
	testutil.RequireIntegration(t)
	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	migrator := persistence.NewMigrator(db, testutil.MigrationsDir(t), zerolog.Nop())
	if err := migrator.Up(ctx); err != nil {
		t.Fatalf("migrate up: %v", err)
	}

	user := uuid.New()
	var prev [32]byte
	first := depositOutput(user, 0, prev)
	second := depositOutput(user, 1, first.Envelope.StateHash)

	// Durable log.
	writer := persistence.NewOperationLogWriter(db)
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("begin tx: %v", err)
	}
	for _, out := range []engine.Output{first, second} {
		op, journals := persistence.RowsFromOutput(out)
		if err := writer.WriteOperationBatch(ctx, tx, []persistence.OperationRow{op}); err != nil {
			t.Fatalf("write operations: %v", err)
		}
		if err := writer.WriteJournalBatch(ctx, tx, journals); err != nil {
			t.Fatalf("write journals: %v", err)
		}
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	// Projections, via the worker's normal drain path.
	ch := make(chan engine.Output, 2)
	ch <- first
	ch <- second
	close(ch)
	worker := projection.NewWorker(db, ch, zerolog.Nop())
	if err := worker.Run(ctx); err != nil {
		t.Fatalf("projection worker: %v", err)
	}

	svc := query.NewService(db)

	balance, err := svc.GetBalance(ctx, user, "WETH")
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	want := fixedpoint.FromUnits(10).String()
	if balance.Collateral != want {
		t.Errorf("collateral = %s, want %s", balance.Collateral, want)
	}
	if balance.AsOfSequence != 1 {
		t.Errorf("as_of_sequence = %d, want 1", balance.AsOfSequence)
	}

	ops, err := svc.GetOperations(ctx, 0, 10)
	if err != nil {
		t.Fatalf("GetOperations: %v", err)
	}
	if len(ops) != 2 || ops[0].Sequence != 0 || ops[1].Sequence != 1 {
		t.Errorf("operations = %+v", ops)
	}

	history, err := svc.GetJournalHistory(ctx, user, 10, nil)
	if err != nil {
		t.Fatalf("GetJournalHistory: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("journal history entries = %d, want 2", len(history))
	}
	if history[0].Sequence != 1 {
		t.Errorf("history not newest-first: %+v", history[0])
	}

	report, err := svc.VerifyIntegrity(ctx)
	if err != nil {
		t.Fatalf("VerifyIntegrity: %v", err)
	}
	if !report.IsHealthy {
		t.Errorf("integrity report unhealthy: %+v", report)
	}
}

func TestQueryService_DetectsChainBreak(t *testing.T) {
	testutil.RequireIntegration(t)
	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	migrator := persistence.NewMigrator(db, testutil.MigrationsDir(t), zerolog.Nop())
	if err := migrator.Up(ctx); err != nil {
		t.Fatalf("migrate up: %v", err)
	}

	user := uuid.New()
	var prev [32]byte
	first := depositOutput(user, 0, prev)
	// Second operation deliberately does not link to the first.
	second := depositOutput(user, 1, sha256.Sum256([]byte("severed")))

	writer := persistence.NewOperationLogWriter(db)
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("begin tx: %v", err)
	}
	for _, out := range []engine.Output{first, second} {
		op, journals := persistence.RowsFromOutput(out)
		if err := writer.WriteOperationBatch(ctx, tx, []persistence.OperationRow{op}); err != nil {
			t.Fatalf("write operations: %v", err)
		}
		if err := writer.WriteJournalBatch(ctx, tx, journals); err != nil {
			t.Fatalf("write journals: %v", err)
		}
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	report, err := query.NewService(db).VerifyIntegrity(ctx)
	if err != nil {
		t.Fatalf("VerifyIntegrity: %v", err)
	}
	if report.IsHealthy {
		t.Error("severed hash chain reported healthy")
	}
	if len(report.HashChainBreaks) != 1 || report.HashChainBreaks[0] != 1 {
		t.Errorf("hash chain breaks = %v, want [1]", report.HashChainBreaks)
	}
}
