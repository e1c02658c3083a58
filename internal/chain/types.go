// Package chain defines the minimal view of the underlying proof-of-work
// chain that the parser and state engine depend on. It mirrors the shape
// rosetta-style indexers expose (ScriptPubKey-bearing inputs/outputs) so
// that a real ChainClient implementation can be adapted with almost no
// translation layer.
package chain

// BurnAddress is the well-known address that preorder and namespace-preorder
// fees are paid to. Payments here are burned, not spendable.
const BurnAddress = "1111111111111111111114oLvT2"

// ScriptPubKey is the output script half of a transaction output, carrying
// both its raw forms and any addresses the chain client resolved it to.
type ScriptPubKey struct {
	ASM       string
	Hex       string
	Addresses []string
	Type      string
}

// TxInput is one spent output consumed by a transaction.
type TxInput struct {
	ScriptPubKey ScriptPubKey
	// RedeemScriptHint, when non-empty, lets the parser recover a
	// compressed public key from a standard p2pkh scriptSig without a
	// full script interpreter.
	RedeemScriptHint []byte
}

// TxOutput is one newly created output of a transaction.
type TxOutput struct {
	Value        int64
	ScriptPubKey ScriptPubKey
}

// RawTx is the chain-client's view of one transaction within a block,
// satisfying the "Chain client interface (consumed)" contract of §6.
type RawTx struct {
	TxID     string
	VtxIndex int
	Inputs   []TxInput
	Outputs  []TxOutput

	// OpReturnPayload is the raw bytes carried in the transaction's
	// OP_RETURN output, or nil if it has none.
	OpReturnPayload []byte
}
