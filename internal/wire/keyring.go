package wire

import (
	"crypto/hmac"
	"crypto/sha256"
)

// DeriveImportKeyring derives up to size candidate public keys from a
// namespace revealer's public key, so a batch of NAME_IMPORT transactions
// signed by different keys in the same keyring can all be attributed to
// the same revealer (§4.3.6). The derivation is an HMAC-SHA256 ratchet
// seeded by the revealer's serialized public key: each successive key is
// HMAC(prevKey, "blockstack-import-keyring"), which needs no elliptic-curve
// arithmetic to verify membership — a candidate pubkey either appears in
// the derived set or it doesn't.
//
// This resolves the Open Question in §9: the keyring derivation function
// is not specified by the distilled spec, and the reference
// implementation's derivation lives in blockstack_client, which was not
// part of the retrieved source slice.
func DeriveImportKeyring(revealerPubkeyCompressed []byte, size int) [][]byte {
	if size <= 0 {
		return nil
	}
	out := make([][]byte, size)
	cur := revealerPubkeyCompressed
	for i := 0; i < size; i++ {
		mac := hmac.New(sha256.New, cur)
		mac.Write([]byte("blockstack-import-keyring"))
		cur = mac.Sum(nil)
		out[i] = cur
	}
	return out
}

// InKeyring reports whether candidate matches the revealer's own key or
// any key in its derived keyring.
func InKeyring(candidate, revealerPubkeyCompressed []byte, keyring [][]byte) bool {
	if bytesEqual(candidate, revealerPubkeyCompressed) {
		return true
	}
	for _, k := range keyring {
		if bytesEqual(candidate, k) {
			return true
		}
	}
	return false
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
