package engine

import (
	"encoding/hex"
	"sort"

	"github.com/dgraph-io/badger/v2"
	"github.com/namesys/stateengine/internal/nameset"
	"github.com/namesys/stateengine/internal/ops"
)

// expirations accumulates everything that lapsed while processing one
// block, for both bookkeeping (removal from lookup tables) and the
// VIRTUAL_EXPIRE summary line (§4.4 step 2).
type expirations struct {
	names                   []string
	preorderHashes          []string
	namespacePreorderHashes []string
	namespaceIDs            []string
}

// applyExpirations runs §4.3.11's four expiration passes in deterministic
// order (by record kind, then lexicographic key) against the state as of
// the end of block's ordinary commits.
func applyExpirations(txn *badger.Txn, db *nameset.DB, block int64) (expirations, error) {
	var exp expirations

	if err := expireNamePreorders(txn, db, block, &exp); err != nil {
		return exp, err
	}
	if err := expireNamespacePreorders(txn, db, block, &exp); err != nil {
		return exp, err
	}
	if err := expireNamespaceReveals(txn, db, block, &exp); err != nil {
		return exp, err
	}
	if err := expireNames(txn, db, block, &exp); err != nil {
		return exp, err
	}

	return exp, nil
}

func expireNamePreorders(txn *badger.Txn, db *nameset.DB, block int64, exp *expirations) error {
	stale, err := db.StalePreorderHashesTxn(txn, func(p *nameset.PendingPreorder) bool {
		return block >= p.Block+ops.NamePreorderExpire
	})
	if err != nil {
		return err
	}
	sort.Slice(stale, func(i, j int) bool { return hex.EncodeToString(stale[i][:]) < hex.EncodeToString(stale[j][:]) })
	for _, h := range stale {
		if err := db.DeletePendingPreorderTxn(txn, h); err != nil {
			return err
		}
		exp.preorderHashes = append(exp.preorderHashes, hex.EncodeToString(h[:]))
	}
	return nil
}

func expireNamespacePreorders(txn *badger.Txn, db *nameset.DB, block int64, exp *expirations) error {
	stale, err := db.StaleNamespacePreorderHashesTxn(txn, func(p *nameset.PendingNamespacePreorder) bool {
		return block >= p.Block+ops.NamespacePreorderExpire
	})
	if err != nil {
		return err
	}
	sort.Slice(stale, func(i, j int) bool { return hex.EncodeToString(stale[i][:]) < hex.EncodeToString(stale[j][:]) })
	for _, h := range stale {
		if err := db.DeletePendingNamespacePreorderTxn(txn, h); err != nil {
			return err
		}
		exp.namespacePreorderHashes = append(exp.namespacePreorderHashes, hex.EncodeToString(h[:]))
	}
	return nil
}

func expireNamespaceReveals(txn *badger.Txn, db *nameset.DB, block int64, exp *expirations) error {
	ids, err := db.NamespaceIDsByStateTxn(txn, nameset.Revealed)
	if err != nil {
		return err
	}
	sort.Strings(ids)
	for _, id := range ids {
		ns, err := db.GetNamespaceTxn(txn, id)
		if err != nil {
			continue
		}
		if block < ns.RevealBlock+ops.NamespaceRevealExpire {
			continue
		}
		if err := db.DeleteNamespaceTxn(txn, id); err != nil {
			return err
		}
		exp.namespaceIDs = append(exp.namespaceIDs, id)
	}
	return nil
}

func expireNames(txn *badger.Txn, db *nameset.DB, block int64, exp *expirations) error {
	names, err := db.AllNames(0, 0)
	if err != nil {
		return err
	}
	sort.Strings(names)
	for _, name := range names {
		rec, err := db.GetNameTxn(txn, name)
		if err != nil {
			continue
		}
		ns, err := db.GetNamespaceTxn(txn, namespaceOf(name))
		if err != nil || ns.Lifetime == nameset.LifetimeInfinite {
			continue
		}
		if rec.LastRenewed+int64(ns.Lifetime) >= block {
			continue
		}
		if err := db.RemoveOwnerIndexTxn(txn, rec.Address, name); err != nil {
			return err
		}
		if err := db.RemoveNamespaceIndexTxn(txn, ns.NamespaceID, name); err != nil {
			return err
		}
		if err := db.DeleteNameTxn(txn, name); err != nil {
			return err
		}
		exp.names = append(exp.names, name)
	}
	return nil
}
