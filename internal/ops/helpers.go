package ops

import (
	"strings"

	"github.com/dgraph-io/badger/v2"
	"github.com/namesys/stateengine/internal/nameset"
)

// namespaceOf returns the namespace suffix of a fully-qualified name
// (everything after the last '.').
func namespaceOf(name string) string {
	idx := strings.LastIndexByte(name, '.')
	if idx < 0 {
		return ""
	}
	return name[idx+1:]
}

// consensusHashValid reports whether candidate equals this engine's own
// consensus_hash[h] for some h in [block-ConsensusHashValidWindow, block],
// resolving the Open Question in SPEC_FULL.md §9.
func consensusHashValid(txn *badger.Txn, db *nameset.DB, candidate [16]byte, block int64) bool {
	for h := block; h >= block-ConsensusHashValidWindow && h >= 0; h-- {
		stored, err := db.GetConsensusHashTxn(txn, h)
		if err == nil && stored == candidate {
			return true
		}
	}
	return false
}

// localPart returns the portion of a fully-qualified name before its last
// '.', the part the price curve of §4.2 actually measures.
func localPart(name string) string {
	idx := strings.LastIndexByte(name, '.')
	if idx < 0 {
		return name
	}
	return name[:idx]
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func underQuota(txn *badger.Txn, db *nameset.DB, address string) bool {
	names, err := db.NamesOwnedByAddressTxn(txn, address)
	if err != nil {
		return false
	}
	return len(names) < MaxNamesPerSender
}
