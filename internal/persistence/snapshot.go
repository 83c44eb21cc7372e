package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"SynthLedger/internal/engine"
)

// SnapshotStore persists engine balance snapshots for warm restart: load the
// latest snapshot, then resume from its sequence.
type SnapshotStore struct {
	db *sql.DB
}

// snapshotDoc is the JSON body of a snapshot row.
type snapshotDoc struct {
	Sequence  int64             `json:"sequence"`
	PrevHash  []byte            `json:"prev_hash"`
	Balances  map[string]string `json:"balances"`
	CreatedAt time.Time         `json:"created_at"`
}

func NewSnapshotStore(db *sql.DB) *SnapshotStore {
	return &SnapshotStore{db: db}
}

// Save persists a snapshot, replacing any existing row at the same sequence.
func (s *SnapshotStore) Save(ctx context.Context, snap engine.BalanceSnapshot) error {
	doc := snapshotDoc{
		Sequence:  snap.Sequence,
		PrevHash:  append([]byte(nil), snap.PrevHash[:]...),
		Balances:  snap.Balances,
		CreatedAt: time.Now().UTC(),
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO event_log.snapshots
			(snapshot_id, sequence, data, prev_hash, size_bytes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (sequence) DO UPDATE SET data = $3, prev_hash = $4, size_bytes = $5
	`, uuid.New(), snap.Sequence, data, doc.PrevHash, len(data), doc.CreatedAt)
	return err
}

// LoadLatest returns the most recent snapshot, or ok=false on cold start.
func (s *SnapshotStore) LoadLatest(ctx context.Context) (engine.BalanceSnapshot, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT data FROM event_log.snapshots
		ORDER BY sequence DESC
		LIMIT 1
	`)

	var data []byte
	if err := row.Scan(&data); err != nil {
		if err == sql.ErrNoRows {
			return engine.BalanceSnapshot{}, false, nil
		}
		return engine.BalanceSnapshot{}, false, fmt.Errorf("load snapshot: %w", err)
	}

	var doc snapshotDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return engine.BalanceSnapshot{}, false, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	if len(doc.PrevHash) != 32 {
		return engine.BalanceSnapshot{}, false, fmt.Errorf("snapshot at sequence %d has %d-byte hash", doc.Sequence, len(doc.PrevHash))
	}

	snap := engine.BalanceSnapshot{
		Sequence: doc.Sequence,
		Balances: doc.Balances,
	}
	copy(snap.PrevHash[:], doc.PrevHash)
	return snap, true, nil
}
