package wire

import (
	"errors"
	"fmt"

	"github.com/namesys/stateengine/internal/b40"
)

// Field width constants from §4.1's per-opcode binary bodies.
const (
	lenPreorderHash  = 20
	lenConsensusHash = 16
	lenNameHash      = 16
	lenUpdateHash    = 20
	lenDisposition   = 1
	lenNameMin       = 1
	lenNameMax       = 37
	lenNSIDMin       = 1
	lenNSIDMax       = 19
	lenNSLifetime    = 4
	lenNSCoeff       = 1
	lenNSBase        = 1
	lenNSBuckets     = 8 // 16 nibbles packed two-per-byte
	lenNSDiscounts   = 1 // 2 nibbles packed
	lenNSVersion     = 2
	lenAnnounceHash  = 20
)

// ErrParse is wrapped by every payload recognition failure. Per §7, a
// parse-reject silently drops the operation; callers should not log it as
// a failure, only route it to "not recognized."
var ErrParse = errors.New("wire: parse failure")

func parseErr(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrParse}, args...)...)
}

// Preorder bodies are shared verbatim between NAME_PREORDER and
// NAMESPACE_PREORDER.
type PreorderBody struct {
	PreorderHash  [20]byte
	ConsensusHash [16]byte
}

// NameBody carries a name for NAME_REGISTRATION/NAME_RENEWAL,
// NAME_REVOKE, and NAME_IMPORT — the three opcodes whose body is just a
// base-40 name.
type NameBody struct {
	Name string
}

type UpdateBody struct {
	NameHash128 [16]byte
	UpdateHash  [20]byte
}

type TransferBody struct {
	Disposition   TransferDisposition
	NameHash128   [16]byte
	ConsensusHash [16]byte
}

type NamespaceRevealBody struct {
	Lifetime         uint32
	Coeff            uint8
	Base             uint8
	Buckets          [16]uint8
	NonalphaDiscount uint8
	NoVowelDiscount  uint8
	Version          uint16
	NamespaceID      string
}

type NamespaceReadyBody struct {
	NamespaceID string
}

type AnnounceBody struct {
	MessageHash [20]byte
}

// Payload is the fully decoded contents of a recognized OP_RETURN: the
// magic tag, the opcode, and exactly one populated body matching that
// opcode. Exactly one of the Body* fields is non-nil.
type Payload struct {
	Magic  Magic
	Opcode Opcode

	Preorder        *PreorderBody
	Name            *NameBody
	Update          *UpdateBody
	Transfer        *TransferBody
	NamespaceReveal *NamespaceRevealBody
	NamespaceReady  *NamespaceReadyBody
	Announce        *AnnounceBody
}

// Parse decodes a raw OP_RETURN payload. It is total: every byte string
// either decodes to a Payload or returns an error wrapping ErrParse: bad
// magic, bad opcode, bad length, bad base-40, or field overflow are all
// parse-rejects, never panics.
func Parse(data []byte) (*Payload, error) {
	if len(data) < 3 {
		return nil, parseErr("payload too short: %d bytes", len(data))
	}
	if len(data) > MaxPayloadLength {
		return nil, parseErr("payload too long: %d bytes", len(data))
	}

	magic := Magic{data[0], data[1]}
	if magic != MagicMainset && magic != MagicTestset {
		return nil, parseErr("bad magic %q", data[0:2])
	}

	op := Opcode(data[2])
	body := data[3:]

	p := &Payload{Magic: magic, Opcode: op}

	switch op {
	case NamePreorder, NamespacePreorder:
		pb, err := parsePreorderBody(body)
		if err != nil {
			return nil, err
		}
		p.Preorder = pb

	case NameRegistration, NameRevoke, NameImport:
		nb, err := parseNameBody(body)
		if err != nil {
			return nil, err
		}
		p.Name = nb

	case NameUpdate:
		ub, err := parseUpdateBody(body)
		if err != nil {
			return nil, err
		}
		p.Update = ub

	case NameTransfer:
		tb, err := parseTransferBody(body)
		if err != nil {
			return nil, err
		}
		p.Transfer = tb

	case NamespaceReveal:
		nr, err := parseNamespaceRevealBody(body)
		if err != nil {
			return nil, err
		}
		p.NamespaceReveal = nr

	case NamespaceReady:
		nrb, err := parseNamespaceReadyBody(body)
		if err != nil {
			return nil, err
		}
		p.NamespaceReady = nrb

	case Announce:
		ab, err := parseAnnounceBody(body)
		if err != nil {
			return nil, err
		}
		p.Announce = ab

	default:
		return nil, parseErr("unknown opcode 0x%02x", byte(op))
	}

	return p, nil
}

func parsePreorderBody(b []byte) (*PreorderBody, error) {
	if len(b) != lenPreorderHash+lenConsensusHash {
		return nil, parseErr("preorder body length %d", len(b))
	}
	pb := &PreorderBody{}
	copy(pb.PreorderHash[:], b[:lenPreorderHash])
	copy(pb.ConsensusHash[:], b[lenPreorderHash:])
	return pb, nil
}

func parseNameBody(b []byte) (*NameBody, error) {
	if len(b) < lenNameMin || len(b) > lenNameMax {
		return nil, parseErr("name length %d out of [%d,%d]", len(b), lenNameMin, lenNameMax)
	}
	name := string(b)
	if !b40.Valid(name) {
		return nil, parseErr("name %q is not base-40", name)
	}
	return &NameBody{Name: name}, nil
}

func parseUpdateBody(b []byte) (*UpdateBody, error) {
	if len(b) != lenNameHash+lenUpdateHash {
		return nil, parseErr("update body length %d", len(b))
	}
	ub := &UpdateBody{}
	copy(ub.NameHash128[:], b[:lenNameHash])
	copy(ub.UpdateHash[:], b[lenNameHash:])
	return ub, nil
}

func parseTransferBody(b []byte) (*TransferBody, error) {
	if len(b) != lenDisposition+lenNameHash+lenConsensusHash {
		return nil, parseErr("transfer body length %d", len(b))
	}
	disp := TransferDisposition(b[0])
	if disp != TransferKeepData && disp != TransferRemoveData {
		return nil, parseErr("bad transfer disposition 0x%02x", b[0])
	}
	tb := &TransferBody{Disposition: disp}
	copy(tb.NameHash128[:], b[1:1+lenNameHash])
	copy(tb.ConsensusHash[:], b[1+lenNameHash:])
	return tb, nil
}

func parseNamespaceRevealBody(b []byte) (*NamespaceRevealBody, error) {
	fixed := lenNSLifetime + lenNSCoeff + lenNSBase + lenNSBuckets + lenNSDiscounts + lenNSVersion
	if len(b) < fixed+lenNSIDMin || len(b) > fixed+lenNSIDMax {
		return nil, parseErr("namespace-reveal body length %d", len(b))
	}
	nr := &NamespaceRevealBody{}
	nr.Lifetime = beUint32(b[0:4])
	nr.Coeff = b[4]
	nr.Base = b[5]

	bucketBytes := b[6 : 6+lenNSBuckets]
	for i := 0; i < 16; i++ {
		byteIdx := i / 2
		if i%2 == 0 {
			nr.Buckets[i] = bucketBytes[byteIdx] >> 4
		} else {
			nr.Buckets[i] = bucketBytes[byteIdx] & 0x0f
		}
	}

	discountByte := b[6+lenNSBuckets]
	nr.NonalphaDiscount = discountByte >> 4
	nr.NoVowelDiscount = discountByte & 0x0f

	verOffset := 6 + lenNSBuckets + lenNSDiscounts
	nr.Version = beUint16(b[verOffset : verOffset+2])

	nsid := string(b[verOffset+2:])
	if !b40.Valid(nsid) || containsDot(nsid) {
		return nil, parseErr("namespace id %q is not base-40", nsid)
	}
	nr.NamespaceID = nsid
	return nr, nil
}

func parseNamespaceReadyBody(b []byte) (*NamespaceReadyBody, error) {
	if len(b) < 1+lenNSIDMin || len(b) > 1+lenNSIDMax {
		return nil, parseErr("namespace-ready body length %d", len(b))
	}
	if b[0] != '.' {
		return nil, parseErr("namespace-ready missing '.' marker")
	}
	nsid := string(b[1:])
	if !b40.Valid(nsid) || containsDot(nsid) {
		return nil, parseErr("namespace id %q is not base-40", nsid)
	}
	return &NamespaceReadyBody{NamespaceID: nsid}, nil
}

func parseAnnounceBody(b []byte) (*AnnounceBody, error) {
	if len(b) != lenAnnounceHash {
		return nil, parseErr("announce body length %d", len(b))
	}
	ab := &AnnounceBody{}
	copy(ab.MessageHash[:], b)
	return ab, nil
}

func containsDot(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			return true
		}
	}
	return false
}

func beUint32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

func beUint16(b []byte) uint16 {
	return uint16(b[0])<<8 | uint16(b[1])
}
