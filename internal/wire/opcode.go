// Package wire implements the transaction parser of §4.1: recognition and
// decoding of this system's opcodes from chain transaction OP_RETURN
// payloads — a small set of typed constants plus a String() method for
// logging.
package wire

import "fmt"

// Opcode identifies which of the ten name-registry operations (or the
// synthetic VIRTUAL_EXPIRE pseudo-op) a payload encodes.
type Opcode byte

const (
	NamePreorder       Opcode = '?'
	NameRegistration   Opcode = ':'
	NameUpdate         Opcode = '+'
	NameTransfer       Opcode = '>'
	NameRevoke         Opcode = '~'
	NameImport         Opcode = ';'
	NamespacePreorder  Opcode = '*'
	NamespaceReveal    Opcode = '&'
	NamespaceReady     Opcode = '!'
	Announce           Opcode = '#'
	// VirtualExpire is never parsed off the wire; the engine synthesizes
	// it once per block to summarize that block's expirations (§4.4).
	VirtualExpire Opcode = 'X'
)

// NameRenewal is an alias: renewal uses the exact same wire form as
// NameRegistration and is distinguished by state (see §4.3.2).
const NameRenewal = NameRegistration

func (o Opcode) String() string {
	switch o {
	case NamePreorder:
		return "NAME_PREORDER"
	case NameRegistration:
		return "NAME_REGISTRATION"
	case NameUpdate:
		return "NAME_UPDATE"
	case NameTransfer:
		return "NAME_TRANSFER"
	case NameRevoke:
		return "NAME_REVOKE"
	case NameImport:
		return "NAME_IMPORT"
	case NamespacePreorder:
		return "NAMESPACE_PREORDER"
	case NamespaceReveal:
		return "NAMESPACE_REVEAL"
	case NamespaceReady:
		return "NAMESPACE_READY"
	case Announce:
		return "ANNOUNCE"
	case VirtualExpire:
		return "VIRTUAL_EXPIRE"
	default:
		return fmt.Sprintf("UNKNOWN(0x%02x)", byte(o))
	}
}

// CanonicalOrder is the per-block processing and serialization order of
// §4.3: operations are grouped by opcode in this order, then by vtxindex
// within a group.
var CanonicalOrder = []Opcode{
	NamePreorder,
	NameRevoke,
	NameRegistration,
	NameUpdate,
	NameTransfer,
	NameImport,
	NamespacePreorder,
	NamespaceReveal,
	NamespaceReady,
	Announce,
}

// Magic is the 2-byte tag that begins every recognized payload.
type Magic [2]byte

var (
	MagicMainset = Magic{'i', 'd'}
	MagicTestset = Magic{'e', 'g'}
)

func (m Magic) String() string {
	switch m {
	case MagicMainset:
		return "mainset"
	case MagicTestset:
		return "testset"
	default:
		return fmt.Sprintf("unknown(%q)", [2]byte(m))
	}
}

// MaxPayloadLength is the hard ceiling on a recognized payload, including
// the 3-byte magic+opcode prefix (§4.1).
const MaxPayloadLength = 40

// TransferDisposition is the single-byte flag on NAME_TRANSFER governing
// whether the name's value_hash survives the transfer.
type TransferDisposition byte

const (
	TransferKeepData   TransferDisposition = '>'
	TransferRemoveData TransferDisposition = '~'
)
