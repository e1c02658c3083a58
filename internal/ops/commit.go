package ops

import (
	"encoding/hex"

	"github.com/dgraph-io/badger/v2"
	"github.com/namesys/stateengine/internal/nameset"
	"github.com/namesys/stateengine/internal/wire"
)

// Commit applies an already-Checked op to the state visible through txn.
// Calling Commit on an op that Check rejected is a logic error in the
// caller; Commit does not re-validate.
func Commit(txn *badger.Txn, db *nameset.DB, op *Op) error {
	switch op.Opcode {
	case wire.NamePreorder:
		return commitNamePreorder(txn, db, op)
	case wire.NameRegistration:
		return commitNameRegistration(txn, db, op)
	case wire.NameUpdate:
		return commitNameUpdate(txn, db, op)
	case wire.NameTransfer:
		return commitNameTransfer(txn, db, op)
	case wire.NameRevoke:
		return commitNameRevoke(txn, db, op)
	case wire.NameImport:
		return commitNameImport(txn, db, op)
	case wire.NamespacePreorder:
		return commitNamespacePreorder(txn, db, op)
	case wire.NamespaceReveal:
		return commitNamespaceReveal(txn, db, op)
	case wire.NamespaceReady:
		return commitNamespaceReady(txn, db, op)
	case wire.Announce:
		return commitAnnounce(txn, db, op)
	default:
		return nil
	}
}

func commitNamePreorder(txn *badger.Txn, db *nameset.DB, op *Op) error {
	return db.PutPendingPreorderTxn(txn, &nameset.PendingPreorder{
		PreorderHash:  op.PreorderHash,
		Sender:        op.Sender,
		ConsensusHash: op.ConsensusHash,
		Block:         op.Block,
		OpFee:         op.OpFee,
	})
}

func commitNameRegistration(txn *badger.Txn, db *nameset.DB, op *Op) error {
	if err := db.DeletePendingPreorderTxn(txn, op.PreorderHash); err != nil {
		return err
	}

	existing, err := db.GetNameTxn(txn, op.Name)
	if err == nil {
		// Renewal.
		snapshot := existing.Clone()
		if err := db.AppendHistoryTxn(txn, op.Name, nameset.HistoryKey{Block: op.Block, Vtxindex: op.Vtxindex}, snapshot); err != nil {
			return err
		}
		existing.LastRenewed = op.Block
		existing.OpFee = op.OpFee
		existing.ConsensusHash = op.ConsensusHash
		return db.PutNameTxn(txn, existing)
	}

	rec := &nameset.NameRecord{
		Name:            op.Name,
		PreorderHash:    op.PreorderHash,
		ConsensusHash:   op.ConsensusHash,
		Sender:          op.RecipientScript,
		Address:         op.RecipientAddress,
		BlockNumber:     op.Block,
		FirstRegistered: op.Block,
		LastRenewed:     op.Block,
		OpFee:           op.OpFee,
	}
	if err := db.PutNameTxn(txn, rec); err != nil {
		return err
	}
	if err := db.AddOwnerIndexTxn(txn, rec.Address, rec.Name); err != nil {
		return err
	}
	return db.AddNamespaceIndexTxn(txn, namespaceOf(op.Name), op.Name)
}

func commitNameUpdate(txn *badger.Txn, db *nameset.DB, op *Op) error {
	rec, err := db.GetNameTxn(txn, op.Name)
	if err != nil {
		return err
	}
	snapshot := rec.Clone()
	if err := db.AppendHistoryTxn(txn, op.Name, nameset.HistoryKey{Block: op.Block, Vtxindex: op.Vtxindex}, snapshot); err != nil {
		return err
	}
	updateHash := op.UpdateHash
	rec.ValueHash = &updateHash
	return db.PutNameTxn(txn, rec)
}

func commitNameTransfer(txn *badger.Txn, db *nameset.DB, op *Op) error {
	rec, err := db.GetNameTxn(txn, op.Name)
	if err != nil {
		return err
	}
	snapshot := rec.Clone()
	if err := db.AppendHistoryTxn(txn, op.Name, nameset.HistoryKey{Block: op.Block, Vtxindex: op.Vtxindex}, snapshot); err != nil {
		return err
	}

	if err := db.RemoveOwnerIndexTxn(txn, rec.Address, op.Name); err != nil {
		return err
	}

	rec.Sender = op.RecipientScript
	rec.Address = op.RecipientAddress
	if op.Disposition == wire.TransferRemoveData {
		rec.ValueHash = nil
	}
	if err := db.PutNameTxn(txn, rec); err != nil {
		return err
	}
	return db.AddOwnerIndexTxn(txn, rec.Address, op.Name)
}

func commitNameRevoke(txn *badger.Txn, db *nameset.DB, op *Op) error {
	rec, err := db.GetNameTxn(txn, op.Name)
	if err != nil {
		return err
	}
	snapshot := rec.Clone()
	if err := db.AppendHistoryTxn(txn, op.Name, nameset.HistoryKey{Block: op.Block, Vtxindex: op.Vtxindex}, snapshot); err != nil {
		return err
	}
	rec.Revoked = true
	rec.ValueHash = nil
	return db.PutNameTxn(txn, rec)
}

func commitNameImport(txn *badger.Txn, db *nameset.DB, op *Op) error {
	existing, err := db.GetNameTxn(txn, op.Name)
	fresh := err != nil

	rec := &nameset.NameRecord{
		Name:            op.Name,
		Sender:          op.RecipientScript,
		Address:         op.RecipientAddress,
		SenderPubkey:    op.SenderPubkeyHex,
		BlockNumber:     op.Block,
		FirstRegistered: op.Block,
		LastRenewed:     op.Block,
		OpFee:           op.OpFee,
		Importer:        op.SenderAddress,
	}
	if op.HasImportUpdateHash {
		h := op.ImportUpdateHash
		rec.ValueHash = &h
	}

	if !fresh {
		snapshot := existing.Clone()
		if err := db.AppendHistoryTxn(txn, op.Name, nameset.HistoryKey{Block: op.Block, Vtxindex: op.Vtxindex}, snapshot); err != nil {
			return err
		}
		if err := db.RemoveOwnerIndexTxn(txn, existing.Address, op.Name); err != nil {
			return err
		}
	}
	if err := db.PutNameTxn(txn, rec); err != nil {
		return err
	}
	if err := db.AddOwnerIndexTxn(txn, rec.Address, op.Name); err != nil {
		return err
	}
	if fresh {
		return db.AddNamespaceIndexTxn(txn, namespaceOf(op.Name), op.Name)
	}
	return nil
}

func commitNamespacePreorder(txn *badger.Txn, db *nameset.DB, op *Op) error {
	return db.PutPendingNamespacePreorderTxn(txn, &nameset.PendingNamespacePreorder{
		PreorderHash:  op.PreorderHash,
		Sender:        op.Sender,
		ConsensusHash: op.ConsensusHash,
		Block:         op.Block,
		OpFee:         op.OpFee,
	})
}

func commitNamespaceReveal(txn *badger.Txn, db *nameset.DB, op *Op) error {
	if err := db.DeletePendingNamespacePreorderTxn(txn, op.PreorderHash); err != nil {
		return err
	}
	var revealerPubkey []byte
	if op.SenderPubkeyHex != "" {
		revealerPubkey, _ = hex.DecodeString(op.SenderPubkeyHex)
	}
	ns := &nameset.NamespaceRecord{
		NamespaceID:      op.NamespaceID,
		Version:          op.Version,
		Lifetime:         op.Lifetime,
		Coeff:            op.Coeff,
		Base:             op.Base,
		Buckets:          op.Buckets,
		NonalphaDiscount: op.NonalphaDiscount,
		NoVowelDiscount:  op.NoVowelDiscount,
		PreorderHash:     op.PreorderHash,
		Sender:           op.Sender,
		Recipient:        op.RecipientScript,
		// Address is the reveal's recipient, not its sender: §4.3.9
		// requires NAMESPACE_READY to be sent by that recipient, the
		// same actor the preorder hash commitment names as reveal_addr.
		Address:          op.RecipientAddress,
		RecipientAddress: op.RecipientAddress,
		PreorderBlock:    op.Block,
		RevealBlock:      op.Block,
		OpFee:            op.OpFee,
		State:            nameset.Revealed,
		RevealerPubkey:   revealerPubkey,
	}
	return db.PutNamespaceTxn(txn, ns)
}

func commitNamespaceReady(txn *badger.Txn, db *nameset.DB, op *Op) error {
	ns, err := db.GetNamespaceTxn(txn, op.NamespaceID)
	if err != nil {
		return err
	}
	ns.State = nameset.Ready
	ns.ReadyBlock = op.Block
	return db.PutNamespaceTxn(txn, ns)
}

func commitAnnounce(txn *badger.Txn, db *nameset.DB, op *Op) error {
	return db.PutAnnounceTxn(txn, &nameset.AnnounceRecord{
		MessageHash: op.MessageHash,
		Sender:      op.Sender,
		Block:       op.Block,
		Vtxindex:    op.Vtxindex,
	})
}
