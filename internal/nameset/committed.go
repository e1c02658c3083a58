package nameset

import (
	"encoding/json"
	"sort"

	"github.com/dgraph-io/badger/v2"
)

// CommittedOp is the durable, serialization-ready record of one accepted
// operation (or the synthetic VIRTUAL_EXPIRE pseudo-op) within a block,
// stored so the consensus-hash computation (§4.4) and SNV reconstruction
// (§4.5) never have to re-derive it from raw transactions. Fields holds
// only the "consensus fields" §4.4 specifies for that opcode, already
// stringified, keyed by field name.
type CommittedOp struct {
	Opcode   byte
	Block    int64
	Vtxindex int
	TxID     string
	Fields   map[string]string
}

// Line renders the op in the exact form §4.4 step 1 specifies:
// "opcode_char + ':' + comma_separated_fields", fields in fixed sorted
// name order so the same op always serializes identically.
func (c CommittedOp) Line() string {
	keys := make([]string, 0, len(c.Fields))
	for k := range c.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	line := string(rune(c.Opcode)) + ":"
	for i, k := range keys {
		if i > 0 {
			line += ","
		}
		line += k + "=" + c.Fields[k]
	}
	return line
}

func blockOpsKey(block int64, vtxindex int) []byte {
	key := append([]byte{}, prefixBlockOps...)
	key = append(key, beInt64(block)...)
	return append(key, beInt64(int64(vtxindex))...)
}

func blockOpsPrefix(block int64) []byte {
	key := append([]byte{}, prefixBlockOps...)
	return append(key, beInt64(block)...)
}

func (db *DB) PutCommittedOpTxn(txn *badger.Txn, op CommittedOp) error {
	return setJSON(txn, blockOpsKey(op.Block, op.Vtxindex), op)
}

func (db *DB) CommittedOpsAtTxn(txn *badger.Txn, block int64) ([]CommittedOp, error) {
	prefix := blockOpsPrefix(block)
	it := txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()

	var ops []CommittedOp
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		var op CommittedOp
		if err := it.Item().Value(func(val []byte) error { return json.Unmarshal(val, &op) }); err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, nil
}

func (db *DB) CommittedOpsAt(block int64) ([]CommittedOp, error) {
	var ops []CommittedOp
	err := db.badger.View(func(txn *badger.Txn) error {
		var innerErr error
		ops, innerErr = db.CommittedOpsAtTxn(txn, block)
		return innerErr
	})
	return ops, err
}
