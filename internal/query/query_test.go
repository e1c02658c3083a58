package query

import (
	"testing"

	"github.com/dgraph-io/badger/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/namesys/stateengine/internal/config"
	"github.com/namesys/stateengine/internal/nameset"
)

func newTestDB(t *testing.T) *nameset.DB {
	t.Helper()
	db, err := nameset.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Default()
	require.NoError(t, err)
	cfg.WorkingDir = t.TempDir()
	require.NoError(t, cfg.EnsureDirs())
	return cfg
}

// TestGuardReturnsErrIndexingWhileFlagIsSet covers §6/§5: every Reader
// method except GetInfo must refuse to answer while a block is mid-processing, rather
// than risk reading inconsistent partial state.
func TestGuardReturnsErrIndexingWhileFlagIsSet(t *testing.T) {
	db := newTestDB(t)
	cfg := newTestConfig(t)
	r := New(db, cfg, false, 1000)

	require.NoError(t, cfg.SetIndexing(true))
	_, err := r.GetNameRecord("alice.test")
	assert.ErrorIs(t, err, ErrIndexing)

	require.NoError(t, cfg.SetIndexing(false))
	_, err = r.GetNameRecord("alice.test")
	assert.ErrorIs(t, err, ErrNotFound)
}

// TestGetNameRecordAndHistory exercises the read path against a DB
// populated directly (bypassing the engine, since this package only
// reads).
func TestGetNameRecordAndHistory(t *testing.T) {
	db := newTestDB(t)
	cfg := newTestConfig(t)
	r := New(db, cfg, false, 1000)

	err := db.WithTxn(func(txn *badger.Txn) error {
		if err := db.PutNameTxn(txn, &nameset.NameRecord{Name: "alice.test", Address: "Rp", LastRenewed: 100}); err != nil {
			return err
		}
		snap := nameset.NameRecord{Name: "alice.test", Address: "Rp", LastRenewed: 50}
		return db.AppendHistoryTxn(txn, "alice.test", nameset.HistoryKey{Block: 90, Vtxindex: 0}, snap)
	})
	require.NoError(t, err)

	rec, err := r.GetNameRecord("alice.test")
	require.NoError(t, err)
	assert.Equal(t, "Rp", rec.Address)

	hist, err := r.GetNameHistory("alice.test", 0, 200)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.EqualValues(t, 90, hist[0].Key.Block)

	narrow, err := r.GetNameHistory("alice.test", 91, 200)
	require.NoError(t, err)
	assert.Empty(t, narrow)
}

// TestGetNamesInNamespacePagination covers the offset/count slicing
// GetNamesInNamespace applies over the namespace secondary index.
func TestGetNamesInNamespacePagination(t *testing.T) {
	db := newTestDB(t)
	cfg := newTestConfig(t)
	r := New(db, cfg, false, 1000)

	err := db.WithTxn(func(txn *badger.Txn) error {
		for _, name := range []string{"alice.test", "bob.test", "carol.test"} {
			if err := db.AddNamespaceIndexTxn(txn, "test", name); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	all, err := r.GetNamesInNamespace("test", 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	page, err := r.GetNamesInNamespace("test", 1, 1)
	require.NoError(t, err)
	assert.Len(t, page, 1)

	past, err := r.GetNamesInNamespace("test", 10, 1)
	require.NoError(t, err)
	assert.Empty(t, past)
}

// TestGetNameCostReadsNamespacePriceTable confirms pricing lookups route
// through the namespace record's own stored curve parameters, not a
// global default.
func TestGetNameCostReadsNamespacePriceTable(t *testing.T) {
	db := newTestDB(t)
	cfg := newTestConfig(t)
	r := New(db, cfg, false, 1000)

	err := db.WithTxn(func(txn *badger.Txn) error {
		return db.PutNamespaceTxn(txn, &nameset.NamespaceRecord{
			NamespaceID:      "test",
			Coeff:            4,
			Base:             4,
			Buckets:          [16]uint8{6, 5, 4, 3, 3, 3, 3, 2, 2, 2, 1, 1, 1, 1, 1, 1},
			NonalphaDiscount: 10,
			NoVowelDiscount:  10,
			State:            nameset.Ready,
		})
	})
	require.NoError(t, err)

	cost, err := r.GetNameCost("alice.test")
	require.NoError(t, err)
	assert.EqualValues(t, 25600, cost)
}

// TestGetInfoReportsLastProcessedBlockAndConsensus covers getinfo()'s
// fields when the engine hasn't processed anything yet vs. after it has
// recorded a last block and consensus hash.
func TestGetInfoReportsLastProcessedBlockAndConsensus(t *testing.T) {
	db := newTestDB(t)
	cfg := newTestConfig(t)
	r := New(db, cfg, false, 500)

	info, err := r.GetInfo()
	require.NoError(t, err)
	assert.EqualValues(t, 500, info.ChainTip)
	assert.EqualValues(t, 0, info.LastProcessedBlock)

	require.NoError(t, db.SetLastBlock(42))
	err = db.WithTxn(func(txn *badger.Txn) error {
		return db.PutConsensusHashTxn(txn, 42, [16]byte{9, 9, 9})
	})
	require.NoError(t, err)

	info, err = r.GetInfo()
	require.NoError(t, err)
	assert.EqualValues(t, 42, info.LastProcessedBlock)
	assert.Equal(t, [16]byte{9, 9, 9}, info.Consensus)
}
