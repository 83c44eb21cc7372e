package engine

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"sort"

	"SynthLedger/internal/ledger"
)

const genesisHashSeed = "SynthLedger:genesis:v1"

// StateHasher maintains the hash chain over committed operations:
// state_hash[N] = SHA-256(prev_hash || sequence || state_digest).
type StateHasher struct {
	prevHash [32]byte
}

func NewStateHasher() *StateHasher {
	return &StateHasher{
		prevHash: sha256.Sum256([]byte(genesisHashSeed)),
	}
}

// ComputeHash advances the chain by one link and returns the new tip.
func (h *StateHasher) ComputeHash(sequence int64, stateDigest []byte) [32]byte {
	hasher := sha256.New()
	hasher.Write(h.prevHash[:])

	var seqBuf [8]byte
	binary.LittleEndian.PutUint64(seqBuf[:], uint64(sequence))
	hasher.Write(seqBuf[:])
	hasher.Write(stateDigest)

	var hash [32]byte
	copy(hash[:], hasher.Sum(nil))
	h.prevHash = hash
	return hash
}

// PrevHash returns the current chain tip.
func (h *StateHasher) PrevHash() [32]byte {
	return h.prevHash
}

// SetPrevHash resets the chain tip. Snapshot restore only.
func (h *StateHasher) SetPrevHash(hash [32]byte) {
	h.prevHash = hash
}

// computeStateDigest produces canonical bytes over the post-operation
// balances of every account the batches touched: account paths sorted
// lexicographically, each followed by its balance rendered in decimal.
func computeStateDigest(tracker *ledger.BalanceTracker, batches []*ledger.Batch) []byte {
	affected := make(map[ledger.AccountKey]struct{})
	for _, batch := range batches {
		for _, j := range batch.Journals {
			affected[j.DebitAccount] = struct{}{}
			affected[j.CreditAccount] = struct{}{}
		}
	}

	paths := make([]string, 0, len(affected))
	byPath := make(map[string]ledger.AccountKey, len(affected))
	for key := range affected {
		path := key.AccountPath()
		paths = append(paths, path)
		byPath[path] = key
	}
	sort.Strings(paths)

	var digest []byte
	for _, path := range paths {
		balance := tracker.GetBalance(byPath[path])
		digest = append(digest, fmt.Sprintf("%s=%s\n", path, balance.String())...)
	}
	return digest
}
