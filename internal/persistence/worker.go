package persistence

import (
	"context"
	"database/sql"
	"time"

	"github.com/rs/zerolog"

	"SynthLedger/internal/engine"
	"SynthLedger/internal/observability"
)

// Worker drains the engine's persist channel and batch-writes to Postgres.
// The engine's sends are blocking, so a stalled worker applies backpressure
// instead of losing operations. Flushes happen when the batch fills or the
// flush timeout fires, and failed flushes retry with exponential backoff
// until they succeed or the context is cancelled.
type Worker struct {
	db           *sql.DB
	writer       *OperationLogWriter
	input        <-chan engine.Output
	batchSize    int
	flushTimeout time.Duration
	metrics      *observability.Metrics
	log          zerolog.Logger
}

func NewWorker(db *sql.DB, input <-chan engine.Output, batchSize int, flushTimeout time.Duration, metrics *observability.Metrics, log zerolog.Logger) *Worker {
	return &Worker{
		db:           db,
		writer:       NewOperationLogWriter(db),
		input:        input,
		batchSize:    batchSize,
		flushTimeout: flushTimeout,
		metrics:      metrics,
		log:          log,
	}
}

// Run blocks until ctx is cancelled or the input channel closes; either way
// it flushes whatever it holds before returning.
func (w *Worker) Run(ctx context.Context) error {
	opBatch := make([]OperationRow, 0, w.batchSize)
	journalBatch := make([]JournalRow, 0, w.batchSize*2)

	timer := time.NewTimer(w.flushTimeout)
	defer timer.Stop()

	finalFlush := func() {
		if len(opBatch) == 0 {
			return
		}
		if err := w.flush(context.Background(), opBatch, journalBatch); err != nil {
			w.log.Error().Err(err).Int("operations", len(opBatch)).Msg("final flush failed")
		}
	}

	for {
		select {
		case <-ctx.Done():
			finalFlush()
			return ctx.Err()

		case out, ok := <-w.input:
			if !ok {
				finalFlush()
				return nil
			}

			op, journals := RowsFromOutput(out)
			opBatch = append(opBatch, op)
			journalBatch = append(journalBatch, journals...)

			if len(opBatch) >= w.batchSize {
				w.flushWithRetry(ctx, opBatch, journalBatch)
				opBatch = opBatch[:0]
				journalBatch = journalBatch[:0]
				timer.Reset(w.flushTimeout)
			}

		case <-timer.C:
			if len(opBatch) > 0 {
				w.flushWithRetry(ctx, opBatch, journalBatch)
				opBatch = opBatch[:0]
				journalBatch = journalBatch[:0]
			}
			timer.Reset(w.flushTimeout)
		}
	}
}

// flushWithRetry retries indefinitely with exponential backoff. The worker
// never drops a batch; on cancellation it makes one last attempt with a
// background context.
func (w *Worker) flushWithRetry(ctx context.Context, ops []OperationRow, journals []JournalRow) {
	backoff := 100 * time.Millisecond
	const maxBackoff = 30 * time.Second

	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			w.log.Warn().Int("attempt", attempt).Dur("backoff", backoff).
				Int("operations", len(ops)).Msg("persistence flush retry")
			select {
			case <-ctx.Done():
				if err := w.flush(context.Background(), ops, journals); err != nil {
					w.log.Error().Err(err).Msg("final flush on shutdown failed")
				}
				return
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		}

		err := w.flush(ctx, ops, journals)
		if err == nil {
			if attempt > 0 {
				w.log.Info().Int("attempts", attempt).Msg("persistence flush recovered")
			}
			return
		}
		if w.metrics != nil {
			w.metrics.PersistErrors.WithLabelValues("retry").Inc()
		}
	}
}

func (w *Worker) flush(ctx context.Context, ops []OperationRow, journals []JournalRow) error {
	start := time.Now()

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		if w.metrics != nil {
			w.metrics.PersistErrors.WithLabelValues("tx_begin").Inc()
		}
		return err
	}
	defer tx.Rollback()

	if err := w.writer.WriteOperationBatch(ctx, tx, ops); err != nil {
		if w.metrics != nil {
			w.metrics.PersistErrors.WithLabelValues("write_operations").Inc()
		}
		return err
	}
	if err := w.writer.WriteJournalBatch(ctx, tx, journals); err != nil {
		if w.metrics != nil {
			w.metrics.PersistErrors.WithLabelValues("write_journals").Inc()
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		if w.metrics != nil {
			w.metrics.PersistErrors.WithLabelValues("tx_commit").Inc()
		}
		return err
	}

	if w.metrics != nil {
		w.metrics.PersistBatchDur.Observe(time.Since(start).Seconds())
		w.metrics.PersistBatchSize.Observe(float64(len(ops)))
		w.metrics.PersistOpsWritten.Add(float64(len(ops)))
		w.metrics.PersistJournals.Add(float64(len(journals)))
		w.metrics.PersistLastSequence.Set(float64(ops[len(ops)-1].Sequence))
	}
	return nil
}

// Writer exposes the underlying writer for startup sequence recovery.
func (w *Worker) Writer() *OperationLogWriter {
	return w.writer
}
