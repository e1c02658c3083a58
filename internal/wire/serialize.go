package wire

import "fmt"

// Serialize re-encodes a Payload into wire bytes, inverse of Parse. The
// magic tag written is the one testset selects, not p.Magic, so every valid
// Payload whose Magic matches that tag round-trips: Parse(Serialize(p))
// deep-equals p.
func (p *Payload) Serialize(testset bool) ([]byte, error) {
	magic := MagicMainset
	if testset {
		magic = MagicTestset
	}

	var body []byte
	switch p.Opcode {
	case NamePreorder, NamespacePreorder:
		if p.Preorder == nil {
			return nil, fmt.Errorf("wire: missing preorder body for %s", p.Opcode)
		}
		body = append(append([]byte{}, p.Preorder.PreorderHash[:]...), p.Preorder.ConsensusHash[:]...)

	case NameRegistration, NameRevoke, NameImport:
		if p.Name == nil {
			return nil, fmt.Errorf("wire: missing name body for %s", p.Opcode)
		}
		body = []byte(p.Name.Name)

	case NameUpdate:
		if p.Update == nil {
			return nil, fmt.Errorf("wire: missing update body")
		}
		body = append(append([]byte{}, p.Update.NameHash128[:]...), p.Update.UpdateHash[:]...)

	case NameTransfer:
		if p.Transfer == nil {
			return nil, fmt.Errorf("wire: missing transfer body")
		}
		body = append([]byte{byte(p.Transfer.Disposition)}, p.Transfer.NameHash128[:]...)
		body = append(body, p.Transfer.ConsensusHash[:]...)

	case NamespaceReveal:
		if p.NamespaceReveal == nil {
			return nil, fmt.Errorf("wire: missing namespace-reveal body")
		}
		body = serializeNamespaceReveal(p.NamespaceReveal)

	case NamespaceReady:
		if p.NamespaceReady == nil {
			return nil, fmt.Errorf("wire: missing namespace-ready body")
		}
		body = append([]byte{'.'}, []byte(p.NamespaceReady.NamespaceID)...)

	case Announce:
		if p.Announce == nil {
			return nil, fmt.Errorf("wire: missing announce body")
		}
		body = append([]byte{}, p.Announce.MessageHash[:]...)

	default:
		return nil, fmt.Errorf("wire: cannot serialize opcode %s", p.Opcode)
	}

	out := make([]byte, 0, 3+len(body))
	out = append(out, magic[0], magic[1], byte(p.Opcode))
	out = append(out, body...)
	if len(out) > MaxPayloadLength {
		return nil, fmt.Errorf("wire: serialized payload %d bytes exceeds max %d", len(out), MaxPayloadLength)
	}
	return out, nil
}

func serializeNamespaceReveal(nr *NamespaceRevealBody) []byte {
	out := make([]byte, 0, lenNSLifetime+lenNSCoeff+lenNSBase+lenNSBuckets+lenNSDiscounts+lenNSVersion+len(nr.NamespaceID))
	out = append(out, byte(nr.Lifetime>>24), byte(nr.Lifetime>>16), byte(nr.Lifetime>>8), byte(nr.Lifetime))
	out = append(out, nr.Coeff, nr.Base)

	bucketBytes := make([]byte, lenNSBuckets)
	for i := 0; i < 16; i += 2 {
		bucketBytes[i/2] = (nr.Buckets[i] << 4) | (nr.Buckets[i+1] & 0x0f)
	}
	out = append(out, bucketBytes...)
	out = append(out, (nr.NonalphaDiscount<<4)|(nr.NoVowelDiscount&0x0f))
	out = append(out, byte(nr.Version>>8), byte(nr.Version))
	out = append(out, []byte(nr.NamespaceID)...)
	return out
}
