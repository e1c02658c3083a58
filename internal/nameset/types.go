// Package nameset implements the name/namespace database of §3: typed
// records, their append-only history, the consensus-hash ring, and the
// queries the engine and SNV support need over them. Records are persisted
// in badger (github.com/dgraph-io/badger/v2), keyed by the prefix scheme in
// keys.go — the same "one byte tag per logical table" idiom a DeSo-style
// node's DBPrefixes struct uses, adapted from reflect-tag declarations to
// plain exported []byte constants since this module has a much smaller,
// fixed table set.
package nameset

// LifecycleState is a namespace's position in its PREORDERED -> REVEALED ->
// READY progression (§3.1, §3.3).
type LifecycleState int

const (
	Preordered LifecycleState = iota
	Revealed
	Ready
)

func (s LifecycleState) String() string {
	switch s {
	case Preordered:
		return "PREORDERED"
	case Revealed:
		return "REVEALED"
	case Ready:
		return "READY"
	default:
		return "UNKNOWN"
	}
}

// LifetimeInfinite is the sentinel namespace lifetime meaning names never
// expire from renewal neglect (§3.1).
const LifetimeInfinite uint32 = 0xFFFFFFFF

// NamespaceRecord is the rules under which a set of names is registered
// (§3.1).
type NamespaceRecord struct {
	NamespaceID string

	Version uint16
	Lifetime uint32
	Coeff    uint8
	Base     uint8
	Buckets  [16]uint8

	NonalphaDiscount uint8
	NoVowelDiscount  uint8

	PreorderHash [20]byte

	Sender           []byte
	Recipient        []byte
	Address          string
	RecipientAddress string

	PreorderBlock int64
	RevealBlock   int64
	ReadyBlock    int64

	OpFee uint64

	State LifecycleState

	// RevealerPubkey is the compressed public key recovered from the
	// reveal transaction's first input, when recoverable. NAME_IMPORT
	// checks a candidate sender against this key and its derived keyring
	// (§4.3.6); empty means import falls back to address equality.
	RevealerPubkey []byte
}

// NameRecord is an owned name within a namespace (§3.1).
type NameRecord struct {
	Name string

	PreorderHash  [20]byte
	ConsensusHash [16]byte

	Sender       []byte
	Address      string
	SenderPubkey string

	// ValueHash is nil when the name has no content pointer set.
	ValueHash *[20]byte

	BlockNumber     int64
	FirstRegistered int64
	LastRenewed     int64

	OpFee uint64

	Revoked  bool
	Importer string
}

// Clone returns a deep copy suitable for stashing into history before the
// record is mutated in place.
func (r NameRecord) Clone() NameRecord {
	out := r
	out.Sender = append([]byte(nil), r.Sender...)
	if r.ValueHash != nil {
		v := *r.ValueHash
		out.ValueHash = &v
	}
	return out
}

// PendingPreorder is a name preorder awaiting its matching registration
// (§3.1).
type PendingPreorder struct {
	PreorderHash  [20]byte
	Sender        []byte
	ConsensusHash [16]byte
	Block         int64
	OpFee         uint64
}

// PendingNamespacePreorder is a namespace preorder awaiting its matching
// reveal. The namespace ID itself is blinded until reveal, just like a name
// preorder.
type PendingNamespacePreorder struct {
	PreorderHash  [20]byte
	Sender        []byte
	ConsensusHash [16]byte
	Block         int64
	OpFee         uint64
}

// AnnounceRecord records an ANNOUNCE opcode's hash for downstream
// announcement-log resolution (§6 Persisted State: "Announce log").
type AnnounceRecord struct {
	MessageHash [20]byte
	Sender      []byte
	Block       int64
	Vtxindex    int
}

// HistoryKey orders a record's prior snapshots; ties are impossible since
// vtxindex is unique within a block (§3.2).
type HistoryKey struct {
	Block    int64
	Vtxindex int
}

// Less reports whether k sorts before other.
func (k HistoryKey) Less(other HistoryKey) bool {
	if k.Block != other.Block {
		return k.Block < other.Block
	}
	return k.Vtxindex < other.Vtxindex
}
