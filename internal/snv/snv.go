// Package snv implements §4.5 Simple Name Verification support.
// ReconstructNameAt recovers a name's state as of a historical block from
// its stored history. VerifyBlock re-hashes a block's stored committed-op
// lines and checks the result against the engine's own stored consensus
// hash; it does not rebuild those lines from reconstructed records.
package snv

import (
	"fmt"

	"github.com/namesys/stateengine/internal/engine"
	"github.com/namesys/stateengine/internal/nameset"
)

// ReconstructNameAt returns the state name held immediately after the
// operation committed at (block, vtxindex), replaying its history
// snapshots rather than trusting the live record (which may since have
// changed, or the name since have expired and been removed entirely).
func ReconstructNameAt(db *nameset.DB, name string, block int64, vtxindex int) (*nameset.NameRecord, error) {
	target := nameset.HistoryKey{Block: block, Vtxindex: vtxindex}

	entries, err := db.History(name)
	if err != nil {
		return nil, fmt.Errorf("snv: history for %q: %w", name, err)
	}
	for _, entry := range entries {
		if target.Less(entry.Key) {
			snap := entry.Snapshot
			return &snap, nil
		}
	}

	// No later history entry: the operation at (block, vtxindex) is the
	// most recent change, so the live record (if the name still exists)
	// is the answer.
	rec, err := db.GetName(name)
	if err != nil {
		return nil, fmt.Errorf("snv: %q has no state reachable at block %d vtxindex %d: %w", name, block, vtxindex, err)
	}
	return rec, nil
}

// Proof is the result of reconstructing and re-serializing a historical
// block, ready to compare against a trusted consensus hash.
type Proof struct {
	Block           int64
	RecomputedHash  [16]byte
	StoredHash      [16]byte
	Matches         bool
}

// VerifyBlock regenerates block's serialized op-stream from its stored
// committed-ops ledger — using the identical ordering and hashing
// engine.OrderCanonically/engine.OpsHash applies live — and compares the
// result to the consensus hash the engine originally persisted for that
// block. A mismatch means the stored database was tampered with or
// corrupted between when the block was processed and now.
func VerifyBlock(db *nameset.DB, block int64) (Proof, error) {
	committed, err := db.CommittedOpsAt(block)
	if err != nil {
		return Proof{}, fmt.Errorf("snv: committed ops at block %d: %w", block, err)
	}

	oh := engine.OpsHash(committed)

	stored, err := db.GetConsensusHash(block)
	if err != nil {
		return Proof{}, fmt.Errorf("snv: stored consensus hash at block %d: %w", block, err)
	}

	recomputed, err := recomputeConsensusHash(db, block, oh)
	if err != nil {
		return Proof{}, err
	}

	return Proof{
		Block:          block,
		RecomputedHash: recomputed,
		StoredHash:     stored,
		Matches:        recomputed == stored,
	}, nil
}

// recomputeConsensusHash repeats the geometric-sample chaining step of
// §4.4 step 4 using only already-persisted consensus hashes — it never
// needs to re-run check/commit, since every earlier block's hash is
// already durable.
func recomputeConsensusHash(db *nameset.DB, block int64, oh [16]byte) ([16]byte, error) {
	return engine.RecomputeConsensusHash(db, block, oh)
}
