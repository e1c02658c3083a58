package nameset

import (
	"encoding/json"
	"errors"

	"github.com/dgraph-io/badger/v2"
)

// ErrNotFound is returned by Get-style lookups that find nothing.
var ErrNotFound = errors.New("nameset: not found")

// DB is the badger-backed name/namespace database. Methods without a Txn
// suffix manage their own transactions; the ...Txn methods run inside a
// caller's transaction, and callers needing several mutations to commit
// atomically should use them under WithTxn.
type DB struct {
	badger *badger.DB
}

// Open opens (creating if absent) a badger database at path.
func Open(path string) (*DB, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	bdb, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &DB{badger: bdb}, nil
}

// Close releases the underlying badger handles.
func (db *DB) Close() error {
	return db.badger.Close()
}

// WithTxn runs fn inside a single read-write badger transaction, committing
// on success and discarding on error — the unit the engine uses to apply
// one block's worth of commits atomically.
func (db *DB) WithTxn(fn func(txn *badger.Txn) error) error {
	return db.badger.Update(fn)
}

// View runs fn inside a read-only badger transaction — the handle SNV and
// the query server use so reads never block the engine's writer.
func (db *DB) View(fn func(txn *badger.Txn) error) error {
	return db.badger.View(fn)
}

func setJSON(txn *badger.Txn, key []byte, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return txn.Set(key, data)
}

func getJSON(txn *badger.Txn, key []byte, out interface{}) error {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, out)
	})
}

// --- name records ---------------------------------------------------------

func (db *DB) PutNameTxn(txn *badger.Txn, rec *NameRecord) error {
	return setJSON(txn, nameRecordKey(rec.Name), rec)
}

func (db *DB) GetNameTxn(txn *badger.Txn, name string) (*NameRecord, error) {
	var rec NameRecord
	if err := getJSON(txn, nameRecordKey(name), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (db *DB) GetName(name string) (*NameRecord, error) {
	var rec *NameRecord
	err := db.badger.View(func(txn *badger.Txn) error {
		var innerErr error
		rec, innerErr = db.GetNameTxn(txn, name)
		return innerErr
	})
	return rec, err
}

func (db *DB) DeleteNameTxn(txn *badger.Txn, name string) error {
	return txn.Delete(nameRecordKey(name))
}

// --- name history -----------------------------------------------------------

func (db *DB) AppendHistoryTxn(txn *badger.Txn, name string, key HistoryKey, snapshot NameRecord) error {
	return setJSON(txn, nameHistoryKey(name, key), snapshot)
}

// HistoryEntry pairs a history key with the record snapshot stored there.
type HistoryEntry struct {
	Key      HistoryKey
	Snapshot NameRecord
}

func (db *DB) HistoryTxn(txn *badger.Txn, name string) ([]HistoryEntry, error) {
	prefix := nameHistoryPrefix(name)
	it := txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()

	var entries []HistoryEntry
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		var snap NameRecord
		if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &snap) }); err != nil {
			return nil, err
		}
		key := item.KeyCopy(nil)
		blockOffset := len(prefix)
		block := beToInt64(key[blockOffset : blockOffset+8])
		vtx := beToInt64(key[blockOffset+8 : blockOffset+16])
		entries = append(entries, HistoryEntry{Key: HistoryKey{Block: block, Vtxindex: int(vtx)}, Snapshot: snap})
	}
	return entries, nil
}

func (db *DB) History(name string) ([]HistoryEntry, error) {
	var entries []HistoryEntry
	err := db.badger.View(func(txn *badger.Txn) error {
		var innerErr error
		entries, innerErr = db.HistoryTxn(txn, name)
		return innerErr
	})
	return entries, err
}

func beToInt64(b []byte) int64 {
	var v int64
	for _, c := range b {
		v = v<<8 | int64(c)
	}
	return v
}

// --- namespace records ------------------------------------------------------

func (db *DB) PutNamespaceTxn(txn *badger.Txn, rec *NamespaceRecord) error {
	return setJSON(txn, namespaceRecordKey(rec.NamespaceID), rec)
}

func (db *DB) GetNamespaceTxn(txn *badger.Txn, nsID string) (*NamespaceRecord, error) {
	var rec NamespaceRecord
	if err := getJSON(txn, namespaceRecordKey(nsID), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (db *DB) GetNamespace(nsID string) (*NamespaceRecord, error) {
	var rec *NamespaceRecord
	err := db.badger.View(func(txn *badger.Txn) error {
		var innerErr error
		rec, innerErr = db.GetNamespaceTxn(txn, nsID)
		return innerErr
	})
	return rec, err
}

// --- pending name preorders --------------------------------------------------

func (db *DB) PutPendingPreorderTxn(txn *badger.Txn, p *PendingPreorder) error {
	return setJSON(txn, pendingNamePreorderKey(p.PreorderHash), p)
}

func (db *DB) GetPendingPreorderTxn(txn *badger.Txn, hash [20]byte) (*PendingPreorder, error) {
	var p PendingPreorder
	if err := getJSON(txn, pendingNamePreorderKey(hash), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (db *DB) DeletePendingPreorderTxn(txn *badger.Txn, hash [20]byte) error {
	return txn.Delete(pendingNamePreorderKey(hash))
}

func (db *DB) IsNewPreorderTxn(txn *badger.Txn, hash [20]byte) (bool, error) {
	_, err := db.GetPendingPreorderTxn(txn, hash)
	if errors.Is(err, ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return false, nil
}

// --- pending namespace preorders ---------------------------------------------

func (db *DB) PutPendingNamespacePreorderTxn(txn *badger.Txn, p *PendingNamespacePreorder) error {
	return setJSON(txn, pendingNamespacePreorderKey(p.PreorderHash), p)
}

func (db *DB) GetPendingNamespacePreorderTxn(txn *badger.Txn, hash [20]byte) (*PendingNamespacePreorder, error) {
	var p PendingNamespacePreorder
	if err := getJSON(txn, pendingNamespacePreorderKey(hash), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (db *DB) DeletePendingNamespacePreorderTxn(txn *badger.Txn, hash [20]byte) error {
	return txn.Delete(pendingNamespacePreorderKey(hash))
}

func (db *DB) IsNewNamespacePreorderTxn(txn *badger.Txn, hash [20]byte) (bool, error) {
	_, err := db.GetPendingNamespacePreorderTxn(txn, hash)
	if errors.Is(err, ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return false, nil
}

// StalePreorderHashesTxn returns the hashes of every pending name preorder
// for which isStale returns true, for the per-block expiration sweep.
func (db *DB) StalePreorderHashesTxn(txn *badger.Txn, isStale func(*PendingPreorder) bool) ([][20]byte, error) {
	it := txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()

	var stale [][20]byte
	for it.Seek(prefixPendingNamePreorder); it.ValidForPrefix(prefixPendingNamePreorder); it.Next() {
		var p PendingPreorder
		if err := it.Item().Value(func(val []byte) error { return json.Unmarshal(val, &p) }); err != nil {
			return nil, err
		}
		if isStale(&p) {
			stale = append(stale, p.PreorderHash)
		}
	}
	return stale, nil
}

// StaleNamespacePreorderHashesTxn is StalePreorderHashesTxn's namespace
// analogue.
func (db *DB) StaleNamespacePreorderHashesTxn(txn *badger.Txn, isStale func(*PendingNamespacePreorder) bool) ([][20]byte, error) {
	it := txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()

	var stale [][20]byte
	for it.Seek(prefixPendingNamespacePreorder); it.ValidForPrefix(prefixPendingNamespacePreorder); it.Next() {
		var p PendingNamespacePreorder
		if err := it.Item().Value(func(val []byte) error { return json.Unmarshal(val, &p) }); err != nil {
			return nil, err
		}
		if isStale(&p) {
			stale = append(stale, p.PreorderHash)
		}
	}
	return stale, nil
}

// NamespaceIDsByStateTxn returns every namespace ID currently in state.
func (db *DB) NamespaceIDsByStateTxn(txn *badger.Txn, state LifecycleState) ([]string, error) {
	it := txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()

	var ids []string
	for it.Seek(prefixNamespaceRecord); it.ValidForPrefix(prefixNamespaceRecord); it.Next() {
		var rec NamespaceRecord
		if err := it.Item().Value(func(val []byte) error { return json.Unmarshal(val, &rec) }); err != nil {
			return nil, err
		}
		if rec.State == state {
			ids = append(ids, rec.NamespaceID)
		}
	}
	return ids, nil
}

func (db *DB) DeleteNamespaceTxn(txn *badger.Txn, nsID string) error {
	return txn.Delete(namespaceRecordKey(nsID))
}

// --- consensus hash ring -----------------------------------------------------

func (db *DB) PutConsensusHashTxn(txn *badger.Txn, block int64, hash [16]byte) error {
	if err := txn.Set(consensusHashByBlockKey(block), hash[:]); err != nil {
		return err
	}
	return txn.Set(blockByConsensusHashKey(hash), beInt64(block))
}

func (db *DB) GetConsensusHashTxn(txn *badger.Txn, block int64) ([16]byte, error) {
	var out [16]byte
	item, err := txn.Get(consensusHashByBlockKey(block))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return out, ErrNotFound
	}
	if err != nil {
		return out, err
	}
	err = item.Value(func(val []byte) error {
		copy(out[:], val)
		return nil
	})
	return out, err
}

func (db *DB) GetConsensusHash(block int64) ([16]byte, error) {
	var out [16]byte
	err := db.badger.View(func(txn *badger.Txn) error {
		var innerErr error
		out, innerErr = db.GetConsensusHashTxn(txn, block)
		return innerErr
	})
	return out, err
}

func (db *DB) GetBlockFromConsensusHash(hash [16]byte) (int64, error) {
	var block int64
	err := db.badger.View(func(txn *badger.Txn) error {
		item, err := txn.Get(blockByConsensusHashKey(hash))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			block = beToInt64(val)
			return nil
		})
	})
	return block, err
}

// --- ops hash (intermediate, pre-chaining digest of a block's op-stream) ----

func (db *DB) PutOpsHashTxn(txn *badger.Txn, block int64, hash [16]byte) error {
	return txn.Set(append(append([]byte{}, prefixOpsHashByBlock...), beInt64(block)...), hash[:])
}

func (db *DB) GetOpsHashTxn(txn *badger.Txn, block int64) ([16]byte, error) {
	var out [16]byte
	item, err := txn.Get(append(append([]byte{}, prefixOpsHashByBlock...), beInt64(block)...))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return out, ErrNotFound
	}
	if err != nil {
		return out, err
	}
	err = item.Value(func(val []byte) error {
		copy(out[:], val)
		return nil
	})
	return out, err
}

func (db *DB) GetOpsHash(block int64) ([16]byte, error) {
	var out [16]byte
	err := db.badger.View(func(txn *badger.Txn) error {
		var innerErr error
		out, innerErr = db.GetOpsHashTxn(txn, block)
		return innerErr
	})
	return out, err
}

// --- owner / namespace secondary indexes -------------------------------------

func (db *DB) AddOwnerIndexTxn(txn *badger.Txn, address, name string) error {
	return txn.Set(ownerIndexKey(address, name), []byte{})
}

func (db *DB) RemoveOwnerIndexTxn(txn *badger.Txn, address, name string) error {
	return txn.Delete(ownerIndexKey(address, name))
}

func (db *DB) NamesOwnedByAddressTxn(txn *badger.Txn, address string) ([]string, error) {
	return enumerateNamesByPrefix(txn, ownerIndexPrefix(address))
}

func (db *DB) NamesOwnedByAddress(address string) ([]string, error) {
	var names []string
	err := db.badger.View(func(txn *badger.Txn) error {
		var innerErr error
		names, innerErr = db.NamesOwnedByAddressTxn(txn, address)
		return innerErr
	})
	return names, err
}

func (db *DB) AddNamespaceIndexTxn(txn *badger.Txn, nsID, name string) error {
	return txn.Set(namespaceNameIndexKey(nsID, name), []byte{})
}

func (db *DB) RemoveNamespaceIndexTxn(txn *badger.Txn, nsID, name string) error {
	return txn.Delete(namespaceNameIndexKey(nsID, name))
}

func (db *DB) NamesInNamespaceTxn(txn *badger.Txn, nsID string) ([]string, error) {
	return enumerateNamesByPrefix(txn, namespaceNameIndexPrefix(nsID))
}

func (db *DB) NamesInNamespace(nsID string) ([]string, error) {
	var names []string
	err := db.badger.View(func(txn *badger.Txn) error {
		var innerErr error
		names, innerErr = db.NamesInNamespaceTxn(txn, nsID)
		return innerErr
	})
	return names, err
}

func enumerateNamesByPrefix(txn *badger.Txn, prefix []byte) ([]string, error) {
	it := txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()

	var names []string
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		key := it.Item().KeyCopy(nil)
		names = append(names, string(key[len(prefix):]))
	}
	return names, nil
}

// AllNames returns every currently-registered name, in key order, with
// offset/count pagination.
func (db *DB) AllNames(offset, count int) ([]string, error) {
	var names []string
	err := db.badger.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		skipped, taken := 0, 0
		for it.Seek(prefixNameRecord); it.ValidForPrefix(prefixNameRecord); it.Next() {
			if skipped < offset {
				skipped++
				continue
			}
			if count > 0 && taken >= count {
				break
			}
			key := it.Item().KeyCopy(nil)
			names = append(names, string(key[len(prefixNameRecord):]))
			taken++
		}
		return nil
	})
	return names, err
}

// --- announce log ------------------------------------------------------------

func (db *DB) PutAnnounceTxn(txn *badger.Txn, a *AnnounceRecord) error {
	return setJSON(txn, announceKey(a.Block, a.Vtxindex), a)
}

// --- last block pointer -------------------------------------------------------

func (db *DB) SetLastBlock(block int64) error {
	return db.badger.Update(func(txn *badger.Txn) error {
		return txn.Set(lastBlockKey(), beInt64(block))
	})
}

func (db *DB) LastBlock() (int64, error) {
	var block int64
	err := db.badger.View(func(txn *badger.Txn) error {
		item, err := txn.Get(lastBlockKey())
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			block = beToInt64(val)
			return nil
		})
	})
	return block, err
}
