// Package query serves read-only views over the projection tables and the
// durable operation log. Responses carry as_of_sequence so callers can judge
// projection freshness against the live engine sequence.
package query

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"

	"SynthLedger/internal/ledger"
)

type Service struct {
	db *sql.DB
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// GetBalance returns the projected collateral and liability of one user for
// one asset.
func (s *Service) GetBalance(ctx context.Context, userID uuid.UUID, asset string) (*BalanceResponse, error) {
	asOfSeq, err := s.watermark(ctx)
	if err != nil {
		return nil, fmt.Errorf("watermark: %w", err)
	}

	collateral, err := s.projectedBalance(ctx, ledger.NewCollateralKey(userID, asset).AccountPath())
	if err != nil {
		return nil, err
	}
	liability, err := s.projectedBalance(ctx, ledger.NewDebtKey(userID).AccountPath())
	if err != nil {
		return nil, err
	}

	return &BalanceResponse{
		UserID:       userID,
		Asset:        asset,
		Collateral:   collateral,
		Liability:    liability,
		AsOfSequence: asOfSeq,
	}, nil
}

// GetOperations pages through the operation log from a sequence onward.
func (s *Service) GetOperations(ctx context.Context, fromSequence int64, limit int) ([]OperationResponse, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT sequence, event_type, idempotency_key, asset, payload, state_hash, prev_hash, timestamp
		FROM event_log.operations
		WHERE sequence >= $1
		ORDER BY sequence ASC
		LIMIT $2
	`, fromSequence, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ops []OperationResponse
	for rows.Next() {
		var (
			op                  OperationResponse
			stateHash, prevHash []byte
			ts                  time.Time
		)
		if err := rows.Scan(
			&op.Sequence, &op.EventType, &op.IdempotencyKey, &op.Asset,
			&op.Payload, &stateHash, &prevHash, &ts,
		); err != nil {
			return nil, err
		}
		op.StateHash = hex.EncodeToString(stateHash)
		op.PrevHash = hex.EncodeToString(prevHash)
		op.Timestamp = ts.UnixMicro()
		ops = append(ops, op)
	}
	return ops, rows.Err()
}

// GetJournalHistory returns the journal entries touching any of a user's
// accounts, newest first, cursor-paginated by sequence.
func (s *Service) GetJournalHistory(ctx context.Context, userID uuid.UUID, limit int, beforeSequence *int64) ([]JournalHistoryEntry, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	prefix := fmt.Sprintf("user:%s:%%", userID)
	q := `
		SELECT journal_id, batch_id, op_ref, sequence, debit_account, credit_account,
		       asset, amount::text, journal_type, timestamp
		FROM event_log.journal
		WHERE (debit_account LIKE $1 OR credit_account LIKE $1)
	`
	args := []interface{}{prefix}
	if beforeSequence != nil {
		q += ` AND sequence < $2 ORDER BY sequence DESC LIMIT $3`
		args = append(args, *beforeSequence, limit)
	} else {
		q += ` ORDER BY sequence DESC LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []JournalHistoryEntry
	for rows.Next() {
		var e JournalHistoryEntry
		if err := rows.Scan(
			&e.JournalID, &e.BatchID, &e.OpRef, &e.Sequence,
			&e.DebitAccount, &e.CreditAccount, &e.Asset, &e.Amount,
			&e.JournalType, &e.Timestamp,
		); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// VerifyIntegrity walks the persisted hash chain and checks that projected
// balances sum to zero per asset.
func (s *Service) VerifyIntegrity(ctx context.Context) (*IntegrityReport, error) {
	report := &IntegrityReport{IsHealthy: true}

	rows, err := s.db.QueryContext(ctx, `
		SELECT sequence, state_hash, prev_hash
		FROM event_log.operations
		ORDER BY sequence ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var (
		havePrev bool
		prev     []byte
	)
	for rows.Next() {
		var (
			seq                 int64
			stateHash, prevHash []byte
		)
		if err := rows.Scan(&seq, &stateHash, &prevHash); err != nil {
			return nil, err
		}
		if havePrev && !bytes.Equal(prev, prevHash) {
			report.IsHealthy = false
			report.HashChainBreaks = append(report.HashChainBreaks, seq)
		}
		prev = stateHash
		havePrev = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sumRows, err := s.db.QueryContext(ctx, `
		SELECT asset, SUM(balance)::text
		FROM projections.balances
		GROUP BY asset
		HAVING SUM(balance) <> 0
	`)
	if err != nil {
		return nil, err
	}
	defer sumRows.Close()

	for sumRows.Next() {
		var ua UnbalancedAsset
		if err := sumRows.Scan(&ua.Asset, &ua.Imbalance); err != nil {
			return nil, err
		}
		report.IsHealthy = false
		report.UnbalancedAssets = append(report.UnbalancedAssets, ua)
	}
	return report, sumRows.Err()
}

// Watermark exposes the projection watermark for freshness endpoints.
func (s *Service) Watermark(ctx context.Context) (int64, error) {
	return s.watermark(ctx)
}

func (s *Service) watermark(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT last_sequence FROM projections.watermark WHERE worker_id = 'main'
	`).Scan(&seq)
	if err == sql.ErrNoRows {
		return -1, nil
	}
	if err != nil {
		return 0, err
	}
	return seq.Int64, nil
}

func (s *Service) projectedBalance(ctx context.Context, accountPath string) (string, error) {
	var balance string
	err := s.db.QueryRowContext(ctx, `
		SELECT balance::text FROM projections.balances WHERE account_path = $1
	`, accountPath).Scan(&balance)
	if err == sql.ErrNoRows {
		return "0", nil
	}
	if err != nil {
		return "", err
	}
	return balance, nil
}
