package wire

import (
	"crypto/sha256"

	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // required bit-for-bit compatible with the preorder commitment
)

// Trunc128 returns the first 16 bytes of sha256(data), the truncated-128
// digest used throughout §4.4/§4.5 for consensus hashes and name hashes.
func Trunc128(data []byte) [16]byte {
	full := sha256.Sum256(data)
	var out [16]byte
	copy(out[:], full[:16])
	return out
}

// HashName computes the preorder commitment of §9 Design Notes:
//
//	RIPEMD160(SHA256(name ⧺ sender_script_pubkey ⧺ recipient_address))
//
// senderScriptPubkey must be the raw script bytes, not hex — canonical byte
// encoding here is load-bearing for consensus.
func HashName(name string, senderScriptPubkey []byte, recipientAddress string) [20]byte {
	h := sha256.New()
	h.Write([]byte(name))
	h.Write(senderScriptPubkey)
	h.Write([]byte(recipientAddress))
	sum := h.Sum(nil)

	r := ripemd160.New()
	r.Write(sum)
	digest := r.Sum(nil)

	var out [20]byte
	copy(out[:], digest)
	return out
}

// NameHash128 computes the NAME_UPDATE wire field:
// trunc128(sha256(name ⧺ consensus_hash)).
func NameHash128(name string, consensusHash [16]byte) [16]byte {
	h := sha256.New()
	h.Write([]byte(name))
	h.Write(consensusHash[:])
	return Trunc128(h.Sum(nil))
}

// TransferNameHash128 computes the NAME_TRANSFER wire field, which hashes
// only the name (no consensus hash mixed in, per §4.1's NAME_TRANSFER body).
func TransferNameHash128(name string) [16]byte {
	return Trunc128([]byte(name))
}

// OpReturnHash fingerprints an arbitrary OP_RETURN payload as
// RIPEMD160(SHA256(payload)).
func OpReturnHash(payload []byte) [20]byte {
	h := sha256.New()
	h.Write(payload)
	sum := h.Sum(nil)
	r := ripemd160.New()
	r.Write(sum)
	digest := r.Sum(nil)
	var out [20]byte
	copy(out[:], digest)
	return out
}
