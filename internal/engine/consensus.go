// Package engine implements the state-engine driver of §4.3.11/§4.4: the
// per-block loop that parses, checks, commits, expires, and hashes, in the
// single-threaded cooperative style §5 mandates (one block fully applied
// before the next begins — no interleaving is allowed to touch consensus
// determinism).
package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"

	"github.com/dgraph-io/badger/v2"
	"github.com/namesys/stateengine/internal/nameset"
	"github.com/namesys/stateengine/internal/ops"
	"github.com/namesys/stateengine/internal/wire"
)

// fieldsFor returns the fixed, sorted-by-convention field list §4.4 step 1
// calls for, one entry per opcode. Order within the map doesn't matter —
// CommittedOp.Line sorts keys itself — what matters is that the same
// fields are always present for a given opcode.
func fieldsFor(op *ops.Op) map[string]string {
	switch op.Opcode {
	case wire.NamePreorder, wire.NamespacePreorder:
		return map[string]string{
			"preorder_hash":  hex.EncodeToString(op.PreorderHash[:]),
			"consensus_hash": hex.EncodeToString(op.ConsensusHash[:]),
			"op_fee":         strconv.FormatUint(op.OpFee, 10),
			"sender":         hex.EncodeToString(op.Sender),
		}
	case wire.NameRegistration:
		return map[string]string{
			"name":           op.Name,
			"consensus_hash": hex.EncodeToString(op.ConsensusHash[:]),
			"address":        op.RecipientAddress,
			"op_fee":         strconv.FormatUint(op.OpFee, 10),
		}
	case wire.NameUpdate:
		return map[string]string{
			"name":           op.Name,
			"update_hash":    hex.EncodeToString(op.UpdateHash[:]),
			"consensus_hash": hex.EncodeToString(op.ConsensusHash[:]),
		}
	case wire.NameTransfer:
		return map[string]string{
			"name":           op.Name,
			"address":        op.RecipientAddress,
			"consensus_hash": hex.EncodeToString(op.ConsensusHash[:]),
			"disposition":    string(rune(op.Disposition)),
		}
	case wire.NameRevoke:
		return map[string]string{"name": op.Name}
	case wire.NameImport:
		return map[string]string{
			"name":        op.Name,
			"address":     op.RecipientAddress,
			"update_hash": hex.EncodeToString(op.ImportUpdateHash[:]),
			"sender":      hex.EncodeToString(op.Sender),
		}
	case wire.NamespaceReveal:
		return map[string]string{
			"namespace_id":      op.NamespaceID,
			"version":           strconv.FormatUint(uint64(op.Version), 10),
			"lifetime":          strconv.FormatUint(uint64(op.Lifetime), 10),
			"coeff":             strconv.FormatUint(uint64(op.Coeff), 10),
			"base":              strconv.FormatUint(uint64(op.Base), 10),
			"nonalpha_discount": strconv.FormatUint(uint64(op.NonalphaDiscount), 10),
			"no_vowel_discount": strconv.FormatUint(uint64(op.NoVowelDiscount), 10),
			"sender":            hex.EncodeToString(op.Sender),
		}
	case wire.NamespaceReady:
		return map[string]string{"namespace_id": op.NamespaceID}
	case wire.Announce:
		return map[string]string{
			"message_hash": hex.EncodeToString(op.MessageHash[:]),
			"sender":       hex.EncodeToString(op.Sender),
		}
	default:
		return nil
	}
}

// toCommittedOp converts a checked-and-committed candidate into its
// durable, serialization-ready form.
func toCommittedOp(op *ops.Op) nameset.CommittedOp {
	return nameset.CommittedOp{
		Opcode:   byte(op.Opcode),
		Block:    op.Block,
		Vtxindex: op.Vtxindex,
		TxID:     op.TxID,
		Fields:   fieldsFor(op),
	}
}

// virtualExpireOp summarizes a block's expirations (§4.4 step 2) as the
// synthetic VIRTUAL_EXPIRE pseudo-op.
func virtualExpireOp(block int64, exp expirations) nameset.CommittedOp {
	return nameset.CommittedOp{
		Opcode:   byte(wire.VirtualExpire),
		Block:    block,
		Vtxindex: -1,
		Fields: map[string]string{
			"expired_names_count":               strconv.Itoa(len(exp.names)),
			"expired_names":                     joinSorted(exp.names),
			"expired_preorders_count":            strconv.Itoa(len(exp.preorderHashes)),
			"expired_preorders":                 joinSorted(exp.preorderHashes),
			"expired_namespace_preorders_count":  strconv.Itoa(len(exp.namespacePreorderHashes)),
			"expired_namespace_preorders":        joinSorted(exp.namespacePreorderHashes),
			"expired_namespaces_count":           strconv.Itoa(len(exp.namespaceIDs)),
			"expired_namespaces":                 joinSorted(exp.namespaceIDs),
		},
	}
}

func joinSorted(vals []string) string {
	sorted := append([]string(nil), vals...)
	sort.Strings(sorted)
	out := ""
	for i, v := range sorted {
		if i > 0 {
			out += ","
		}
		out += v
	}
	return out
}

// opsHash computes ops_hash = trunc128(sha256(concat lines)) over a
// block's committed ops, ordered canonically (§4.4 steps 1-3). committed
// is expected to already include the VIRTUAL_EXPIRE line persisted with
// Vtxindex -1, which orderCanonically leaves trailing since the pseudo-op
// has no place in CanonicalOrder. This same function backs both the live
// engine's hashing and SNV's reconstruction (§4.5), so both paths are
// guaranteed to serialize identically.
func opsHash(committed []nameset.CommittedOp) [16]byte {
	ordered := orderCanonically(committed)

	h := sha256.New()
	for _, op := range ordered {
		h.Write([]byte(op.Line()))
	}
	return wire.Trunc128(h.Sum(nil))
}

func orderCanonically(committed []nameset.CommittedOp) []nameset.CommittedOp {
	rank := make(map[byte]int, len(wire.CanonicalOrder))
	for i, oc := range wire.CanonicalOrder {
		rank[byte(oc)] = i
	}
	out := append([]nameset.CommittedOp(nil), committed...)
	sort.SliceStable(out, func(i, j int) bool {
		ri, oki := rank[out[i].Opcode]
		rj, okj := rank[out[j].Opcode]
		if !oki || !okj {
			return false
		}
		if ri != rj {
			return ri < rj
		}
		return out[i].Vtxindex < out[j].Vtxindex
	})
	return out
}

// OrderCanonically and OpsHash are exported for internal/snv, which must
// serialize a historical block's op-stream using the exact same
// ordering/hash function the engine used when it first computed that
// block's stored consensus hash (§4.5).
func OrderCanonically(committed []nameset.CommittedOp) []nameset.CommittedOp {
	return orderCanonically(committed)
}

func OpsHash(committed []nameset.CommittedOp) [16]byte {
	return opsHash(committed)
}

// RecomputeConsensusHash is consensusHash's read-only counterpart, used
// by SNV to repeat the geometric-sample chaining step against
// already-persisted hashes without opening a write transaction.
func RecomputeConsensusHash(db *nameset.DB, block int64, oh [16]byte) ([16]byte, error) {
	var out [16]byte
	err := db.View(func(txn *badger.Txn) error {
		var innerErr error
		out, innerErr = consensusHash(txn, db, block, oh)
		return innerErr
	})
	return out, err
}

// consensusHash computes consensus_hash[B] = trunc128(sha256(ops_hash ||
// prev_consensus_hash_geometric_sample)), sampling prior consensus hashes
// at B-1, B-2, B-4, B-8, B-16, ... (§4.4 step 4) so each hash cheaply
// commits to deep history without storing every prior hash inline.
func consensusHash(txn *badger.Txn, db *nameset.DB, block int64, ops [16]byte) ([16]byte, error) {
	h := sha256.New()
	h.Write(ops[:])

	for lookback := int64(1); lookback <= block; lookback *= 2 {
		sampleBlock := block - lookback
		if sampleBlock < 0 {
			break
		}
		ch, err := db.GetConsensusHashTxn(txn, sampleBlock)
		if err != nil {
			continue // no hash yet at that depth (e.g. genesis); skip it
		}
		h.Write(ch[:])
	}

	return wire.Trunc128(h.Sum(nil)), nil
}
