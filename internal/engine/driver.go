package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dgraph-io/badger/v2"
	"go.uber.org/zap"

	"github.com/namesys/stateengine/internal/chain"
	"github.com/namesys/stateengine/internal/nameset"
	"github.com/namesys/stateengine/internal/ops"
	"github.com/namesys/stateengine/internal/wire"
)

func namespaceOf(name string) string {
	idx := strings.LastIndexByte(name, '.')
	if idx < 0 {
		return ""
	}
	return name[idx+1:]
}

// Engine drives §2's data flow — block -> raw txs -> parser -> candidate
// ops -> check/commit in canonical order -> expirations -> consensus hash
// -> persist — one block at a time, never interleaved (§5).
type Engine struct {
	DB      *nameset.DB
	Testset bool
	Log     *zap.Logger
}

// New constructs an Engine. log may be nil, in which case a no-op logger
// is used.
func New(db *nameset.DB, testset bool, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{DB: db, Testset: testset, Log: log}
}

// ProcessBlock applies one block's worth of transactions: parse, check,
// commit (all within a single badger transaction so later checks observe
// earlier commits from the same block), expire, hash, persist.
func (e *Engine) ProcessBlock(block int64, txs []chain.RawTx) ([16]byte, error) {
	candidates, err := e.buildCandidates(block, txs)
	if err != nil {
		return [16]byte{}, err
	}
	orderCandidates(candidates)

	var consensus [16]byte
	err = e.DB.WithTxn(func(txn *badger.Txn) error {
		for _, op := range candidates {
			accepted, err := ops.Check(txn, e.DB, op, e.Testset)
			if err != nil {
				return fmt.Errorf("engine: check %s at block %d vtxindex %d: %w", op.Opcode, block, op.Vtxindex, err)
			}
			if !accepted {
				e.Log.Debug("operation rejected",
					zap.Stringer("opcode", op.Opcode), zap.Int64("block", block), zap.Int("vtxindex", op.Vtxindex))
				continue
			}
			if err := ops.Commit(txn, e.DB, op); err != nil {
				return fmt.Errorf("engine: commit %s at block %d vtxindex %d: %w", op.Opcode, block, op.Vtxindex, err)
			}
			if err := e.DB.PutCommittedOpTxn(txn, toCommittedOp(op)); err != nil {
				return err
			}
		}

		exp, err := applyExpirations(txn, e.DB, block)
		if err != nil {
			return fmt.Errorf("engine: expirations at block %d: %w", block, err)
		}
		if err := e.DB.PutCommittedOpTxn(txn, virtualExpireOp(block, exp)); err != nil {
			return err
		}

		committedOps, err := e.DB.CommittedOpsAtTxn(txn, block)
		if err != nil {
			return err
		}

		oh := opsHash(committedOps)
		if err := e.DB.PutOpsHashTxn(txn, block, oh); err != nil {
			return err
		}

		ch, err := consensusHash(txn, e.DB, block, oh)
		if err != nil {
			return fmt.Errorf("engine: consensus hash at block %d: %w", block, err)
		}
		if err := e.DB.PutConsensusHashTxn(txn, block, ch); err != nil {
			return err
		}
		consensus = ch
		return nil
	})
	if err != nil {
		return [16]byte{}, err
	}

	if err := e.DB.SetLastBlock(block); err != nil {
		return consensus, fmt.Errorf("engine: persist lastblock %d: %w", block, err)
	}
	return consensus, nil
}

// buildCandidates parses every transaction's OP_RETURN payload in block
// and builds the candidate operations FromWire produces for it. A
// transaction with no recognized payload is silently skipped — a
// parse-reject per §7, never logged as a failure.
func (e *Engine) buildCandidates(block int64, txs []chain.RawTx) ([]*ops.Op, error) {
	var candidates []*ops.Op
	for _, tx := range txs {
		if len(tx.OpReturnPayload) == 0 {
			continue
		}
		payload, err := wire.Parse(tx.OpReturnPayload)
		if err != nil {
			continue
		}
		ctx, err := wire.ExtractContext(tx)
		if err != nil {
			continue
		}
		op, err := ops.FromWire(payload, ctx, block, tx.VtxIndex, tx.TxID)
		if err != nil {
			continue
		}
		candidates = append(candidates, op)
	}
	return candidates, nil
}

// orderCandidates sorts candidates into the canonical per-block order
// (§4.3): grouped by opcode in CanonicalOrder, then by vtxindex within a
// group. This is both the check/commit iteration order and the order
// consensus hashing serializes in.
func orderCandidates(candidates []*ops.Op) {
	rank := make(map[wire.Opcode]int, len(wire.CanonicalOrder))
	for i, oc := range wire.CanonicalOrder {
		rank[oc] = i
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		ri, rj := rank[candidates[i].Opcode], rank[candidates[j].Opcode]
		if ri != rj {
			return ri < rj
		}
		return candidates[i].Vtxindex < candidates[j].Vtxindex
	})
}
