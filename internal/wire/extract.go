package wire

import (
	"encoding/hex"

	"github.com/btcsuite/btcd/btcec"
	"github.com/namesys/stateengine/internal/chain"
)

// TxContext is everything the parser reads from a transaction's structure
// beyond its OP_RETURN payload, per §4.1's closing paragraph: the primary
// sender script/address (first input), an optional recovered sender public
// key, the first non-OP_RETURN output as the named recipient, and the
// amount paid to the burn address.
type TxContext struct {
	SenderScriptPubkey []byte
	SenderAddress      string
	SenderPubkeyHex    string // empty if not recoverable

	RecipientScriptPubkey []byte
	RecipientAddress      string

	BurnAmount int64

	// SecondaryHash160 is the trailing 20 bytes of the second
	// non-OP_RETURN output's script, when that script is at least 20
	// bytes long. NAME_IMPORT uses it to carry its
	// update_hash auxiliary field outside the wire payload proper
	// (§4.1: "auxiliary fields ... are read from the transaction's
	// non-OP_RETURN outputs").
	SecondaryHash160    [20]byte
	HasSecondaryHash160 bool
}

// ExtractContext derives a TxContext from a raw transaction. It fails only
// for a transaction with no inputs: a transaction missing a recipient
// output or burn payment
// simply leaves those fields zero, and it is up to each opcode's check
// function to reject the candidate operation for it (a check-reject, not a
// parse-reject).
func ExtractContext(tx chain.RawTx) (TxContext, error) {
	var ctx TxContext

	if len(tx.Inputs) == 0 {
		return ctx, parseErr("transaction has no inputs")
	}
	first := tx.Inputs[0]
	ctx.SenderScriptPubkey, _ = hex.DecodeString(first.ScriptPubKey.Hex)
	if len(first.ScriptPubKey.Addresses) > 0 {
		ctx.SenderAddress = first.ScriptPubKey.Addresses[0]
	}

	if first.ScriptPubKey.Type == "pubkeyhash" && len(first.RedeemScriptHint) > 0 {
		if pub, err := btcec.ParsePubKey(first.RedeemScriptHint, btcec.S256()); err == nil {
			ctx.SenderPubkeyHex = hex.EncodeToString(pub.SerializeCompressed())
		}
	}

	for _, out := range tx.Outputs {
		if isOpReturn(out.ScriptPubKey) {
			continue
		}
		if len(out.ScriptPubKey.Addresses) == 0 {
			continue
		}
		ctx.RecipientScriptPubkey, _ = hex.DecodeString(out.ScriptPubKey.Hex)
		ctx.RecipientAddress = out.ScriptPubKey.Addresses[0]
		break
	}

	for _, out := range tx.Outputs {
		if len(out.ScriptPubKey.Addresses) == 1 && out.ScriptPubKey.Addresses[0] == chain.BurnAddress {
			ctx.BurnAmount += out.Value
		}
	}

	nonReturn := 0
	for _, out := range tx.Outputs {
		if isOpReturn(out.ScriptPubKey) {
			continue
		}
		nonReturn++
		if nonReturn != 2 {
			continue
		}
		raw, err := hex.DecodeString(out.ScriptPubKey.Hex)
		if err == nil && len(raw) >= 20 {
			copy(ctx.SecondaryHash160[:], raw[len(raw)-20:])
			ctx.HasSecondaryHash160 = true
		}
		break
	}

	return ctx, nil
}

func isOpReturn(spk chain.ScriptPubKey) bool {
	if spk.Type == "nulldata" {
		return true
	}
	return len(spk.ASM) >= 9 && spk.ASM[:9] == "OP_RETURN"
}
