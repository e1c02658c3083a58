package ops

import (
	"encoding/hex"

	"github.com/dgraph-io/badger/v2"
	"github.com/namesys/stateengine/internal/nameset"
	"github.com/namesys/stateengine/internal/pricing"
	"github.com/namesys/stateengine/internal/wire"
)

// Check reports whether op is valid against the state visible through txn,
// mutating nothing. The engine runs check/commit pairs one operation at a
// time inside a single per-block transaction, so a commit made earlier in
// the same block is already visible to later checks in the same block —
// this is what gives collision detection (§8 scenario 5) and same-block
// renewal-after-preorder (§8 scenario 2) their "for free" semantics,
// without threading an explicit accepted-this-block list through every
// check call.
//
// Some opcodes fill in fields on op as a side effect of checking (NAME_
// UPDATE and NAME_TRANSFER recover the plaintext name by searching the
// sender's held names for one whose hash matches) — commit depends on
// those fields, so check must always run immediately before commit for
// the same op.
func Check(txn *badger.Txn, db *nameset.DB, op *Op, testset bool) (bool, error) {
	switch op.Opcode {
	case wire.NamePreorder:
		return checkNamePreorder(txn, db, op)
	case wire.NameRegistration:
		return checkNameRegistration(txn, db, op)
	case wire.NameUpdate:
		return checkNameUpdate(txn, db, op)
	case wire.NameTransfer:
		return checkNameTransfer(txn, db, op)
	case wire.NameRevoke:
		return checkNameRevoke(txn, db, op)
	case wire.NameImport:
		return checkNameImport(txn, db, op)
	case wire.NamespacePreorder:
		return checkNamespacePreorder(txn, db, op)
	case wire.NamespaceReveal:
		return checkNamespaceReveal(txn, db, op, testset)
	case wire.NamespaceReady:
		return checkNamespaceReady(txn, db, op)
	case wire.Announce:
		return true, nil
	default:
		return false, nil
	}
}

func checkNamePreorder(txn *badger.Txn, db *nameset.DB, op *Op) (bool, error) {
	isNew, err := db.IsNewPreorderTxn(txn, op.PreorderHash)
	if err != nil {
		return false, err
	}
	if !isNew {
		return false, nil
	}
	if !consensusHashValid(txn, db, op.ConsensusHash, op.Block) {
		return false, nil
	}
	// Price is unknowable here: the name is blinded behind the preorder
	// hash until registration. Only presence of a burn payment is
	// checked now; the amount is validated against the namespace's
	// price table at NAME_REGISTRATION (§4.3.2).
	return op.OpFee > 0, nil
}

func checkNameRegistration(txn *badger.Txn, db *nameset.DB, op *Op) (bool, error) {
	preorderHash := wire.HashName(op.Name, op.Sender, op.RecipientAddress)
	pending, err := db.GetPendingPreorderTxn(txn, preorderHash)
	if err != nil {
		return false, nil
	}
	if !bytesEqual(pending.Sender, op.Sender) {
		return false, nil
	}
	if op.Block > pending.Block+NamePreorderExpire {
		return false, nil
	}

	existing, err := db.GetNameTxn(txn, op.Name)
	nameExists := err == nil

	if nameExists {
		if existing.Revoked {
			return false, nil
		}
		if existing.Address != op.SenderAddress {
			return false, nil
		}
		// Renewal: op_fee must be re-paid at the namespace's current
		// price, same as a fresh registration.
	} else {
		ns, err := db.GetNamespaceTxn(txn, namespaceOf(op.Name))
		if err != nil || ns.State != nameset.Ready {
			return false, nil
		}
		if !underQuota(txn, db, op.RecipientAddress) {
			return false, nil
		}
	}

	ns, err := db.GetNamespaceTxn(txn, namespaceOf(op.Name))
	if err != nil {
		return false, nil
	}
	price := pricing.NamePrice(localPart(op.Name), pricing.NamespaceParams{
		Coeff: ns.Coeff, Base: ns.Base, Buckets: ns.Buckets,
		NonalphaDiscount: ns.NonalphaDiscount, NoVowelDiscount: ns.NoVowelDiscount,
	})
	// A fresh registration is paid for by its preorder's burn; a renewal
	// re-pays in the registration transaction itself.
	paid := op.OpFee
	if !nameExists {
		paid = pending.OpFee
	}
	if paid < price {
		return false, nil
	}

	op.ConsensusHash = pending.ConsensusHash
	op.PreorderHash = preorderHash
	return true, nil
}

func checkNameUpdate(txn *badger.Txn, db *nameset.DB, op *Op) (bool, error) {
	candidates, err := db.NamesOwnedByAddressTxn(txn, op.SenderAddress)
	if err != nil {
		return false, err
	}
	for _, name := range candidates {
		rec, err := db.GetNameTxn(txn, name)
		if err != nil || rec.Revoked {
			continue
		}
		for h := op.Block; h >= op.Block-ConsensusHashValidWindow && h >= 0; h-- {
			ch, err := db.GetConsensusHashTxn(txn, h)
			if err != nil {
				continue
			}
			if wire.NameHash128(name, ch) == op.NameHash128 {
				op.Name = name
				op.ConsensusHash = ch
				return true, nil
			}
		}
	}
	return false, nil
}

func checkNameTransfer(txn *badger.Txn, db *nameset.DB, op *Op) (bool, error) {
	if !consensusHashValid(txn, db, op.ConsensusHash, op.Block) {
		return false, nil
	}
	candidates, err := db.NamesOwnedByAddressTxn(txn, op.SenderAddress)
	if err != nil {
		return false, err
	}
	var matched string
	for _, name := range candidates {
		rec, err := db.GetNameTxn(txn, name)
		if err != nil || rec.Revoked {
			continue
		}
		if wire.TransferNameHash128(name) == op.NameHash128 {
			matched = name
			break
		}
	}
	if matched == "" {
		return false, nil
	}
	if !underQuota(txn, db, op.RecipientAddress) {
		return false, nil
	}
	op.Name = matched
	return true, nil
}

func checkNameRevoke(txn *badger.Txn, db *nameset.DB, op *Op) (bool, error) {
	existing, err := db.GetNameTxn(txn, op.Name)
	if err != nil {
		return false, nil
	}
	if existing.Revoked {
		return false, nil
	}
	return existing.Address == op.SenderAddress, nil
}

func checkNameImport(txn *badger.Txn, db *nameset.DB, op *Op) (bool, error) {
	ns, err := db.GetNamespaceTxn(txn, namespaceOf(op.Name))
	if err != nil || ns.State != nameset.Revealed {
		return false, nil
	}
	if len(ns.RevealerPubkey) > 0 && op.SenderPubkeyHex != "" {
		candidate, err := hex.DecodeString(op.SenderPubkeyHex)
		if err != nil {
			return false, nil
		}
		keyring := wire.DeriveImportKeyring(ns.RevealerPubkey, NameImportKeyringSize)
		return wire.InKeyring(candidate, ns.RevealerPubkey, keyring), nil
	}
	return op.SenderAddress == ns.Address, nil
}

func checkNamespacePreorder(txn *badger.Txn, db *nameset.DB, op *Op) (bool, error) {
	isNew, err := db.IsNewNamespacePreorderTxn(txn, op.PreorderHash)
	if err != nil {
		return false, err
	}
	if !isNew {
		return false, nil
	}
	if !consensusHashValid(txn, db, op.ConsensusHash, op.Block) {
		return false, nil
	}
	return op.OpFee > 0, nil
}

func checkNamespaceReveal(txn *badger.Txn, db *nameset.DB, op *Op, testset bool) (bool, error) {
	if op.Version != NamespaceVersion {
		return false, nil
	}
	if op.NonalphaDiscount < 1 || op.NonalphaDiscount > 15 {
		return false, nil
	}
	if op.NoVowelDiscount < 1 || op.NoVowelDiscount > 15 {
		return false, nil
	}
	if _, err := db.GetNamespaceTxn(txn, op.NamespaceID); err == nil {
		return false, nil // namespace ID already claimed
	}

	preorderHash := wire.HashName(op.NamespaceID, op.Sender, op.RecipientAddress)
	pending, err := db.GetPendingNamespacePreorderTxn(txn, preorderHash)
	if err != nil {
		return false, nil
	}
	if !bytesEqual(pending.Sender, op.Sender) {
		return false, nil
	}
	if op.Block > pending.Block+NamespacePreorderExpire {
		return false, nil
	}
	if pending.OpFee < pricing.NamespacePrice(op.NamespaceID, testset) {
		return false, nil
	}

	op.PreorderHash = preorderHash
	op.OpFee = pending.OpFee
	return true, nil
}

func checkNamespaceReady(txn *badger.Txn, db *nameset.DB, op *Op) (bool, error) {
	ns, err := db.GetNamespaceTxn(txn, op.NamespaceID)
	if err != nil {
		return false, nil
	}
	if ns.State != nameset.Revealed {
		return false, nil
	}
	if op.Block > ns.RevealBlock+NamespaceRevealExpire {
		return false, nil
	}
	return op.SenderAddress == ns.Address, nil
}
