// Package projection maintains the queryable Postgres balance tables.
// Missed updates are acceptable: the channel feeding the worker drops when
// full, and the tables can be rebuilt from the journal at any time.
package projection

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"SynthLedger/internal/engine"
	"SynthLedger/internal/ledger"
)

// Worker applies committed journal batches to projections.balances and
// advances the watermark.
type Worker struct {
	db    *sql.DB
	input <-chan engine.Output
	log   zerolog.Logger
}

func NewWorker(db *sql.DB, input <-chan engine.Output, log zerolog.Logger) *Worker {
	return &Worker{db: db, input: input, log: log}
}

// Run blocks until ctx is cancelled or the input channel closes.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case out, ok := <-w.input:
			if !ok {
				return nil
			}
			if err := w.apply(ctx, out); err != nil {
				w.log.Warn().Err(err).
					Int64("sequence", out.Envelope.Sequence).
					Msg("projection update failed")
			}
		}
	}
}

func (w *Worker) apply(ctx context.Context, out engine.Output) error {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	seq := out.Envelope.Sequence
	for _, batch := range out.Batches {
		for _, j := range batch.Journals {
			if err := w.applyJournal(ctx, tx, j, seq); err != nil {
				return fmt.Errorf("balance projection: %w", err)
			}
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO projections.watermark (worker_id, last_sequence, updated_at)
		VALUES ('main', $1, NOW())
		ON CONFLICT (worker_id) DO UPDATE SET last_sequence = $1, updated_at = NOW()
	`, seq); err != nil {
		return fmt.Errorf("watermark update: %w", err)
	}

	return tx.Commit()
}

// applyJournal mirrors the in-memory tracker: debit increases the balance,
// credit decreases it. Amounts are wad decimal strings into NUMERIC(78,0).
func (w *Worker) applyJournal(ctx context.Context, tx *sql.Tx, j ledger.Journal, seq int64) error {
	amount := j.Amount.String()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO projections.balances (account_path, asset, balance, last_sequence)
		VALUES ($1, $2, $3::numeric, $4)
		ON CONFLICT (account_path)
		DO UPDATE SET balance = projections.balances.balance + $3::numeric, last_sequence = $4
	`, j.DebitAccount.AccountPath(), j.Asset, amount, seq); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO projections.balances (account_path, asset, balance, last_sequence)
		VALUES ($1, $2, -$3::numeric, $4)
		ON CONFLICT (account_path)
		DO UPDATE SET balance = projections.balances.balance - $3::numeric, last_sequence = $4
	`, j.CreditAccount.AccountPath(), j.Asset, amount, seq); err != nil {
		return err
	}

	return nil
}
