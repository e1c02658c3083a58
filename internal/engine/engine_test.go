package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/namesys/stateengine/internal/chain"
	"github.com/namesys/stateengine/internal/nameset"
	"github.com/namesys/stateengine/internal/wire"
)

func newTestDB(t *testing.T) *nameset.DB {
	t.Helper()
	db, err := nameset.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// tx builds a chain.RawTx carrying payload from senderScript/senderAddr,
// an optional recipient output, an optional burn output, and nothing
// else — everything ExtractContext needs and nothing it has to guess at.
func tx(txid string, vtx int, payload []byte, senderAddr string, senderScript []byte, recipientAddr string, burn int64) chain.RawTx {
	var outputs []chain.TxOutput
	if recipientAddr != "" {
		outputs = append(outputs, chain.TxOutput{
			Value:        1000,
			ScriptPubKey: chain.ScriptPubKey{Addresses: []string{recipientAddr}, Type: "pubkeyhash", Hex: "00"},
		})
	}
	if burn > 0 {
		outputs = append(outputs, chain.TxOutput{
			Value:        burn,
			ScriptPubKey: chain.ScriptPubKey{Addresses: []string{chain.BurnAddress}, Type: "pubkeyhash"},
		})
	}
	return chain.RawTx{
		TxID:     txid,
		VtxIndex: vtx,
		Inputs: []chain.TxInput{{
			ScriptPubKey: chain.ScriptPubKey{Addresses: []string{senderAddr}, Type: "pubkeyhash", Hex: hexEncode(senderScript)},
		}},
		Outputs:         outputs,
		OpReturnPayload: payload,
	}
}

func hexEncode(b []byte) string {
	const hexdigits = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, c := range b {
		out[i*2] = hexdigits[c>>4]
		out[i*2+1] = hexdigits[c&0x0f]
	}
	return string(out)
}

var (
	sSender  = []byte{0xaa, 0x01}
	sAddr    = "S"
	rAddr    = "R"
	spSender = []byte{0xbb, 0x02}
	spAddr   = "Sp"
	rpAddr   = "Rp"
)

func namespaceRevealPayload(t *testing.T, nsID string) *wire.Payload {
	return &wire.Payload{
		Opcode: wire.NamespaceReveal,
		NamespaceReveal: &wire.NamespaceRevealBody{
			Lifetime:         52596,
			Coeff:            4,
			Base:             4,
			Buckets:          [16]uint8{6, 5, 4, 3, 3, 3, 3, 2, 2, 2, 1, 1, 1, 1, 1, 1},
			NonalphaDiscount: 10,
			NoVowelDiscount:  10,
			Version:          1,
			NamespaceID:      nsID,
		},
	}
}

// TestNamespaceLifecycle mirrors §8 scenario 1: preorder, reveal, ready.
func TestNamespaceLifecycle(t *testing.T) {
	db := newTestDB(t)
	eng := New(db, false, nil)

	setupReadyNamespace(t, eng, db, "test")

	ns, err := db.GetNamespace("test")
	require.NoError(t, err)
	assert.Equal(t, nameset.Ready, ns.State)
	assert.Equal(t, rAddr, ns.Address, "NAMESPACE_READY must be signed by the reveal's recipient")

	price := uint64(4 * 64 * 100) // coeff * base^bucket[4] * NAME_COST_UNIT
	assert.EqualValues(t, 25600, price)
}

// TestNameRegistrationUpdateTransfer chains §8 scenarios 2-4: a name is
// preordered and registered, updated, then transferred with data dropped.
func TestNameRegistrationUpdateTransfer(t *testing.T) {
	db := newTestDB(t)
	eng := New(db, false, nil)

	// Establish the "test" namespace as READY, as in TestNamespaceLifecycle.
	setupReadyNamespace(t, eng, db, "test")

	runForward(t, eng, 103, 109, nil)
	h109 := mustConsensusHash(t, db, 109)
	preorderHash := wire.HashName("alice.test", spSender, rpAddr)
	preorderPayload := &wire.Payload{
		Opcode: wire.NamePreorder,
		Preorder: &wire.PreorderBody{
			PreorderHash:  preorderHash,
			ConsensusHash: h109,
		},
	}
	preorderWire, err := preorderPayload.Serialize(false)
	require.NoError(t, err)

	registerPayload := &wire.Payload{Opcode: wire.NameRegistration, Name: &wire.NameBody{Name: "alice.test"}}
	registerWire, err := registerPayload.Serialize(false)
	require.NoError(t, err)

	_, err = eng.ProcessBlock(110, []chain.RawTx{tx("t110", 0, preorderWire, spAddr, spSender, rpAddr, 25600)})
	require.NoError(t, err)
	_, err = eng.ProcessBlock(111, []chain.RawTx{tx("t111", 0, registerWire, spAddr, spSender, rpAddr, 25600)})
	require.NoError(t, err)

	rec, err := db.GetName("alice.test")
	require.NoError(t, err)
	assert.Equal(t, rpAddr, rec.Address)
	assert.Nil(t, rec.ValueHash)
	assert.EqualValues(t, 111, rec.LastRenewed)

	// Scenario 3: NAME_UPDATE at block 120, signed by the owner Rp.
	runForward(t, eng, 112, 119, nil)
	h119 := mustConsensusHash(t, db, 119)
	nameHash := wire.NameHash128("alice.test", h119)
	updateHash := [20]byte{}
	for i := range updateHash {
		updateHash[i] = 0xAA
	}
	updatePayload := &wire.Payload{Opcode: wire.NameUpdate, Update: &wire.UpdateBody{NameHash128: nameHash, UpdateHash: updateHash}}
	updateWire, err := updatePayload.Serialize(false)
	require.NoError(t, err)
	_, err = eng.ProcessBlock(120, []chain.RawTx{tx("t120", 0, updateWire, rpAddr, []byte{0xdd}, "", 0)})
	require.NoError(t, err)

	rec, err = db.GetName("alice.test")
	require.NoError(t, err)
	require.NotNil(t, rec.ValueHash)
	assert.Equal(t, updateHash, *rec.ValueHash)

	history, err := db.History("alice.test")
	require.NoError(t, err)
	assert.NotEmpty(t, history)

	// Scenario 4: NAME_TRANSFER at block 130, disposition '~' drops data.
	runForward(t, eng, 121, 129, nil)
	h129 := mustConsensusHash(t, db, 129)
	transferHash := wire.TransferNameHash128("alice.test")
	const a2 = "A2"
	transferPayload := &wire.Payload{
		Opcode: wire.NameTransfer,
		Transfer: &wire.TransferBody{
			Disposition:   wire.TransferRemoveData,
			NameHash128:   transferHash,
			ConsensusHash: h129,
		},
	}
	transferWire, err := transferPayload.Serialize(false)
	require.NoError(t, err)
	_, err = eng.ProcessBlock(130, []chain.RawTx{tx("t130", 0, transferWire, rpAddr, []byte{0xdd}, a2, 0)})
	require.NoError(t, err)

	rec, err = db.GetName("alice.test")
	require.NoError(t, err)
	assert.Equal(t, a2, rec.Address)
	assert.Nil(t, rec.ValueHash)
}

// TestPreorderCollisionWithinBlock mirrors §8 scenario 5: two preorders
// with the same hash in one block, only the first is accepted.
func TestPreorderCollisionWithinBlock(t *testing.T) {
	db := newTestDB(t)
	eng := New(db, false, nil)
	runForward(t, eng, 0, 139, nil)

	h139 := mustConsensusHash(t, db, 139)
	preorderHash := wire.HashName("dupe.test", sSender, rAddr)
	payload := &wire.Payload{Opcode: wire.NamePreorder, Preorder: &wire.PreorderBody{PreorderHash: preorderHash, ConsensusHash: h139}}
	w, err := payload.Serialize(false)
	require.NoError(t, err)

	first := tx("t140a", 0, w, sAddr, sSender, rAddr, 1000)
	second := tx("t140b", 1, w, sAddr, sSender, rAddr, 1000)

	_, err = eng.ProcessBlock(140, []chain.RawTx{first, second})
	require.NoError(t, err)

	committed, err := db.CommittedOpsAt(140)
	require.NoError(t, err)

	preorderCount := 0
	for _, c := range committed {
		if c.Opcode == byte(wire.NamePreorder) {
			preorderCount++
		}
	}
	assert.Equal(t, 1, preorderCount, "only the first of two colliding preorders should commit")
}

// TestExpirationAndReregistration mirrors §8 scenario 6: a name registered
// in a short-lifetime namespace expires, then is freely re-preordered.
func TestExpirationAndReregistration(t *testing.T) {
	db := newTestDB(t)
	eng := New(db, false, nil)

	setupReadyNamespaceWithLifetime(t, eng, db, "short", 10)
	runForward(t, eng, 103, 199, nil)

	h199 := mustConsensusHash(t, db, 199)
	preorderHash := wire.HashName("bob.short", sSender, rAddr)
	preorderPayload := &wire.Payload{Opcode: wire.NamePreorder, Preorder: &wire.PreorderBody{PreorderHash: preorderHash, ConsensusHash: h199}}
	preorderWire, err := preorderPayload.Serialize(false)
	require.NoError(t, err)
	registerPayload := &wire.Payload{Opcode: wire.NameRegistration, Name: &wire.NameBody{Name: "bob.short"}}
	registerWire, err := registerPayload.Serialize(false)
	require.NoError(t, err)

	_, err = eng.ProcessBlock(200, []chain.RawTx{tx("t200p", 0, preorderWire, sAddr, sSender, rAddr, 1000000)})
	require.NoError(t, err)
	_, err = eng.ProcessBlock(201, []chain.RawTx{tx("t200r", 0, registerWire, sAddr, sSender, rAddr, 1000000)})
	require.NoError(t, err)

	_, err = db.GetName("bob.short")
	require.NoError(t, err)

	// No renewal: the expiration sweep keeps a name alive while
	// last_renewed + lifetime >= block (201 + 10 = 211), so it first lapses
	// once a block number exceeds 211, i.e. at block 212.
	runForward(t, eng, 202, 212, nil)

	_, err = db.GetName("bob.short")
	assert.ErrorIs(t, err, nameset.ErrNotFound)

	// A different sender can now preorder the same name.
	h212 := mustConsensusHash(t, db, 212)
	otherSender := []byte{0xee}
	otherPreorderHash := wire.HashName("bob.short", otherSender, "R2")
	otherPreorder := &wire.Payload{Opcode: wire.NamePreorder, Preorder: &wire.PreorderBody{PreorderHash: otherPreorderHash, ConsensusHash: h212}}
	otherWire, err := otherPreorder.Serialize(false)
	require.NoError(t, err)
	_, err = eng.ProcessBlock(213, []chain.RawTx{tx("t213", 0, otherWire, "S2", otherSender, "R2", 1000000)})
	require.NoError(t, err)

	committed, err := db.CommittedOpsAt(213)
	require.NoError(t, err)
	accepted := false
	for _, c := range committed {
		if c.Opcode == byte(wire.NamePreorder) {
			accepted = true
		}
	}
	assert.True(t, accepted, "preorder of an expired name by a new sender should be accepted")
}

func mustConsensusHash(t *testing.T, db *nameset.DB, block int64) [16]byte {
	t.Helper()
	h, err := db.GetConsensusHash(block)
	require.NoError(t, err)
	return h
}

func runForward(t *testing.T, eng *Engine, from, to int64, txsByBlock map[int64][]chain.RawTx) {
	t.Helper()
	for b := from; b <= to; b++ {
		_, err := eng.ProcessBlock(b, txsByBlock[b])
		require.NoError(t, err, "block %d", b)
	}
}

func setupReadyNamespace(t *testing.T, eng *Engine, db *nameset.DB, nsID string) {
	setupReadyNamespaceWithLifetime(t, eng, db, nsID, 52596)
}

func setupReadyNamespaceWithLifetime(t *testing.T, eng *Engine, db *nameset.DB, nsID string, lifetime uint32) {
	t.Helper()
	runForward(t, eng, 0, 99, nil)

	h99 := mustConsensusHash(t, db, 99)
	preorderHash := wire.HashName(nsID, sSender, rAddr)
	preorderPayload := &wire.Payload{Opcode: wire.NamespacePreorder, Preorder: &wire.PreorderBody{PreorderHash: preorderHash, ConsensusHash: h99}}
	preorderWire, err := preorderPayload.Serialize(false)
	require.NoError(t, err)

	revealBody := namespaceRevealPayload(t, nsID)
	revealBody.NamespaceReveal.Lifetime = lifetime
	revealWire, err := revealBody.Serialize(false)
	require.NoError(t, err)

	readyPayload := &wire.Payload{Opcode: wire.NamespaceReady, NamespaceReady: &wire.NamespaceReadyBody{NamespaceID: nsID}}
	readyWire, err := readyPayload.Serialize(false)
	require.NoError(t, err)

	_, err = eng.ProcessBlock(100, []chain.RawTx{tx("ns100", 0, preorderWire, sAddr, sSender, rAddr, 4_000_000_000)})
	require.NoError(t, err)
	_, err = eng.ProcessBlock(101, []chain.RawTx{tx("ns101", 0, revealWire, sAddr, sSender, rAddr, 0)})
	require.NoError(t, err)
	_, err = eng.ProcessBlock(102, []chain.RawTx{tx("ns102", 0, readyWire, rAddr, []byte{0xcc}, "", 0)})
	require.NoError(t, err)

	ns, err := db.GetNamespace(nsID)
	require.NoError(t, err)
	require.Equal(t, nameset.Ready, ns.State)
}
