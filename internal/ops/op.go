package ops

import (
	"fmt"

	"github.com/namesys/stateengine/internal/wire"
)

// Op is a single candidate or committed operation: the tagged variant
// described in §9's design notes, flattened into one struct rather than an
// interface hierarchy, with only the fields relevant to Opcode populated.
type Op struct {
	Opcode   wire.Opcode
	Block    int64
	Vtxindex int
	TxID     string

	Sender          []byte
	SenderAddress   string
	SenderPubkeyHex string

	RecipientScript  []byte
	RecipientAddress string

	// OpFee is the amount actually paid to the burn address in this
	// transaction; checked against the price table by the opcode's
	// check function.
	OpFee uint64

	PreorderHash  [20]byte
	ConsensusHash [16]byte

	Name        string
	NameHash128 [16]byte
	UpdateHash  [20]byte

	Disposition wire.TransferDisposition

	NamespaceID      string
	Lifetime         uint32
	Coeff            uint8
	Base             uint8
	Buckets          [16]uint8
	NonalphaDiscount uint8
	NoVowelDiscount  uint8
	Version          uint16

	MessageHash [20]byte

	// ImportUpdateHash is NAME_IMPORT's auxiliary update_hash, read from
	// the transaction's second non-OP_RETURN output rather than the wire
	// payload (see wire.TxContext.SecondaryHash160).
	ImportUpdateHash    [20]byte
	HasImportUpdateHash bool
}

// FromWire builds a candidate Op from a decoded wire payload and the
// transaction context the parser extracted around it (§4.1's "beyond the
// payload" paragraph). This is the Go analogue of blockstack's per-opcode
// tx_extract() functions, unified into one switch since every opcode's
// extraction only differs in which wire fields it copies.
func FromWire(p *wire.Payload, ctx wire.TxContext, block int64, vtxindex int, txid string) (*Op, error) {
	op := &Op{
		Opcode:           p.Opcode,
		Block:            block,
		Vtxindex:         vtxindex,
		TxID:             txid,
		Sender:           ctx.SenderScriptPubkey,
		SenderAddress:    ctx.SenderAddress,
		SenderPubkeyHex:  ctx.SenderPubkeyHex,
		RecipientScript:  ctx.RecipientScriptPubkey,
		RecipientAddress: ctx.RecipientAddress,
		OpFee:            uint64(ctx.BurnAmount),

		ImportUpdateHash:    ctx.SecondaryHash160,
		HasImportUpdateHash: ctx.HasSecondaryHash160,
	}

	switch p.Opcode {
	case wire.NamePreorder, wire.NamespacePreorder:
		op.PreorderHash = p.Preorder.PreorderHash
		op.ConsensusHash = p.Preorder.ConsensusHash

	case wire.NameRegistration, wire.NameRevoke, wire.NameImport:
		op.Name = p.Name.Name

	case wire.NameUpdate:
		op.NameHash128 = p.Update.NameHash128
		op.UpdateHash = p.Update.UpdateHash

	case wire.NameTransfer:
		op.Disposition = p.Transfer.Disposition
		op.NameHash128 = p.Transfer.NameHash128
		op.ConsensusHash = p.Transfer.ConsensusHash

	case wire.NamespaceReveal:
		nr := p.NamespaceReveal
		op.NamespaceID = nr.NamespaceID
		op.Lifetime = nr.Lifetime
		op.Coeff = nr.Coeff
		op.Base = nr.Base
		op.Buckets = nr.Buckets
		op.NonalphaDiscount = nr.NonalphaDiscount
		op.NoVowelDiscount = nr.NoVowelDiscount
		op.Version = nr.Version

	case wire.NamespaceReady:
		op.NamespaceID = p.NamespaceReady.NamespaceID

	case wire.Announce:
		op.MessageHash = p.Announce.MessageHash

	default:
		return nil, fmt.Errorf("ops: cannot build candidate for opcode %s", p.Opcode)
	}

	return op, nil
}
