package nameset

import "encoding/binary"

// Key prefixes, one byte tag per logical table — the
// one-byte-prefix-per-table convention a DeSo-style node's DBPrefixes
// uses, scaled down to this module's fixed, small table set.
var (
	prefixNameRecord               = []byte{0x01}
	prefixNameHistory              = []byte{0x02}
	prefixNamespaceRecord          = []byte{0x03}
	prefixPendingNamePreorder      = []byte{0x04}
	prefixPendingNamespacePreorder = []byte{0x05}
	prefixConsensusHashByBlock     = []byte{0x06}
	prefixBlockByConsensusHash     = []byte{0x07}
	prefixOwnerIndex               = []byte{0x08} // address || '\x00' || name -> {}
	prefixNamespaceNameIndex       = []byte{0x09} // nsID || '\x00' || name -> {}
	prefixAnnounce                 = []byte{0x0a} // block(BE) || vtxindex(BE) -> AnnounceRecord
	prefixLastBlock                = []byte{0x0b} // singleton key -> int64
	prefixBlockOps                 = []byte{0x0c} // block(BE) || vtxindex(BE) -> CommittedOp
	prefixOpsHashByBlock           = []byte{0x0d} // block(BE) -> [16]byte
)

func beInt64(n int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(n))
	return b
}

func nameRecordKey(name string) []byte {
	return append(append([]byte{}, prefixNameRecord...), []byte(name)...)
}

func nameHistoryKey(name string, k HistoryKey) []byte {
	key := append([]byte{}, prefixNameHistory...)
	key = append(key, []byte(name)...)
	key = append(key, 0x00)
	key = append(key, beInt64(k.Block)...)
	key = append(key, beInt64(int64(k.Vtxindex))...)
	return key
}

func nameHistoryPrefix(name string) []byte {
	key := append([]byte{}, prefixNameHistory...)
	key = append(key, []byte(name)...)
	return append(key, 0x00)
}

func namespaceRecordKey(nsID string) []byte {
	return append(append([]byte{}, prefixNamespaceRecord...), []byte(nsID)...)
}

func pendingNamePreorderKey(hash [20]byte) []byte {
	return append(append([]byte{}, prefixPendingNamePreorder...), hash[:]...)
}

func pendingNamespacePreorderKey(hash [20]byte) []byte {
	return append(append([]byte{}, prefixPendingNamespacePreorder...), hash[:]...)
}

func consensusHashByBlockKey(block int64) []byte {
	return append(append([]byte{}, prefixConsensusHashByBlock...), beInt64(block)...)
}

func blockByConsensusHashKey(hash [16]byte) []byte {
	return append(append([]byte{}, prefixBlockByConsensusHash...), hash[:]...)
}

func ownerIndexKey(address, name string) []byte {
	key := append([]byte{}, prefixOwnerIndex...)
	key = append(key, []byte(address)...)
	key = append(key, 0x00)
	return append(key, []byte(name)...)
}

func ownerIndexPrefix(address string) []byte {
	key := append([]byte{}, prefixOwnerIndex...)
	key = append(key, []byte(address)...)
	return append(key, 0x00)
}

func namespaceNameIndexKey(nsID, name string) []byte {
	key := append([]byte{}, prefixNamespaceNameIndex...)
	key = append(key, []byte(nsID)...)
	key = append(key, 0x00)
	return append(key, []byte(name)...)
}

func namespaceNameIndexPrefix(nsID string) []byte {
	key := append([]byte{}, prefixNamespaceNameIndex...)
	key = append(key, []byte(nsID)...)
	return append(key, 0x00)
}

func announceKey(block int64, vtxindex int) []byte {
	key := append([]byte{}, prefixAnnounce...)
	key = append(key, beInt64(block)...)
	return append(key, beInt64(int64(vtxindex))...)
}

func lastBlockKey() []byte {
	return append([]byte{}, prefixLastBlock...)
}
