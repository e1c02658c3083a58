// Package query implements the read-only "query interface (exposed)" of
// §6, the external collaborator a JSON-RPC front-end would sit behind.
// Every call except GetInfo first checks the indexing flag and returns the sentinel
// "Indexing blockchain" error rather than risk reading a block's partial
// state (§5's "Indexing state" requirement).
package query

import (
	"errors"
	"strings"

	"github.com/namesys/stateengine/internal/config"
	"github.com/namesys/stateengine/internal/engine"
	"github.com/namesys/stateengine/internal/nameset"
	"github.com/namesys/stateengine/internal/pricing"
)

func nsIDOf(name string) string {
	idx := strings.LastIndexByte(name, '.')
	if idx < 0 {
		return ""
	}
	return name[idx+1:]
}

func localPart(name string) string {
	idx := strings.LastIndexByte(name, '.')
	if idx < 0 {
		return name
	}
	return name[:idx]
}

// ErrIndexing is returned by every Reader method except GetInfo while the
// engine is mid-block.
var ErrIndexing = errors.New("Indexing blockchain")

// ErrNotFound mirrors nameset.ErrNotFound for callers that only import
// this package.
var ErrNotFound = nameset.ErrNotFound

// InfoResponse answers getinfo() (§6).
type InfoResponse struct {
	ChainTip           int64
	LastProcessedBlock int64
	Consensus          [16]byte
	Version            string
}

// Reader is the query surface a JSON-RPC (or any other) front-end is
// built against.
type Reader interface {
	GetNameRecord(name string) (*nameset.NameRecord, error)
	GetNameHistory(name string, start, end int64) ([]nameset.HistoryEntry, error)
	GetRecordsAt(block int64) ([]nameset.CommittedOp, error)
	GetRecordsHashAt(block int64) ([16]byte, error)
	GetConsensusAt(block int64) ([16]byte, error)
	GetBlockFromConsensus(hash [16]byte) (int64, error)
	GetNamesOwnedByAddress(addr string) ([]string, error)
	GetAllNames(offset, count int) ([]string, error)
	GetNamesInNamespace(ns string, offset, count int) ([]string, error)
	GetNamespaceRecord(nsID string) (*nameset.NamespaceRecord, error)
	GetNameCost(name string) (uint64, error)
	GetNamespaceCost(nsID string) (uint64, error)
	GetInfo() (InfoResponse, error)
}

// Version is the engine build identifier getinfo() reports.
const Version = "stateengine/0.1.0"

// server is the concrete, indexing-flag-aware Reader implementation.
type server struct {
	db      *nameset.DB
	cfg     *config.Config
	testset bool
	chainTip int64
}

// New builds a Reader backed by db. chainTip is supplied by the caller's
// chain-client connection (query doesn't dial the chain itself).
func New(db *nameset.DB, cfg *config.Config, testset bool, chainTip int64) Reader {
	return &server{db: db, cfg: cfg, testset: testset, chainTip: chainTip}
}

func (s *server) guard() error {
	if s.cfg != nil && s.cfg.IsIndexing() {
		return ErrIndexing
	}
	return nil
}

func (s *server) GetNameRecord(name string) (*nameset.NameRecord, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	return s.db.GetName(name)
}

func (s *server) GetNameHistory(name string, start, end int64) ([]nameset.HistoryEntry, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	all, err := s.db.History(name)
	if err != nil {
		return nil, err
	}
	var out []nameset.HistoryEntry
	for _, e := range all {
		if e.Key.Block >= start && e.Key.Block <= end {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *server) GetRecordsAt(block int64) ([]nameset.CommittedOp, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	committed, err := s.db.CommittedOpsAt(block)
	if err != nil {
		return nil, err
	}
	return engine.OrderCanonically(committed), nil
}

func (s *server) GetRecordsHashAt(block int64) ([16]byte, error) {
	if err := s.guard(); err != nil {
		return [16]byte{}, err
	}
	return s.db.GetOpsHash(block)
}

func (s *server) GetConsensusAt(block int64) ([16]byte, error) {
	if err := s.guard(); err != nil {
		return [16]byte{}, err
	}
	return s.db.GetConsensusHash(block)
}

func (s *server) GetBlockFromConsensus(hash [16]byte) (int64, error) {
	if err := s.guard(); err != nil {
		return 0, err
	}
	return s.db.GetBlockFromConsensusHash(hash)
}

func (s *server) GetNamesOwnedByAddress(addr string) ([]string, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	return s.db.NamesOwnedByAddress(addr)
}

func (s *server) GetAllNames(offset, count int) ([]string, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	return s.db.AllNames(offset, count)
}

func (s *server) GetNamesInNamespace(ns string, offset, count int) ([]string, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	all, err := s.db.NamesInNamespace(ns)
	if err != nil {
		return nil, err
	}
	if offset >= len(all) {
		return nil, nil
	}
	end := len(all)
	if count > 0 && offset+count < end {
		end = offset + count
	}
	return all[offset:end], nil
}

func (s *server) GetNamespaceRecord(nsID string) (*nameset.NamespaceRecord, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	return s.db.GetNamespace(nsID)
}

func (s *server) GetNameCost(name string) (uint64, error) {
	if err := s.guard(); err != nil {
		return 0, err
	}
	ns, err := s.db.GetNamespace(nsIDOf(name))
	if err != nil {
		return 0, err
	}
	return pricing.NamePrice(localPart(name), pricing.NamespaceParams{
		Coeff: ns.Coeff, Base: ns.Base, Buckets: ns.Buckets,
		NonalphaDiscount: ns.NonalphaDiscount, NoVowelDiscount: ns.NoVowelDiscount,
	}), nil
}

func (s *server) GetNamespaceCost(nsID string) (uint64, error) {
	if err := s.guard(); err != nil {
		return 0, err
	}
	return pricing.NamespacePrice(nsID, s.testset), nil
}

func (s *server) GetInfo() (InfoResponse, error) {
	last, err := s.db.LastBlock()
	if err != nil && !errors.Is(err, nameset.ErrNotFound) {
		return InfoResponse{}, err
	}
	var consensus [16]byte
	if last > 0 {
		consensus, _ = s.db.GetConsensusHash(last)
	}
	return InfoResponse{
		ChainTip:           s.chainTip,
		LastProcessedBlock: last,
		Consensus:          consensus,
		Version:            Version,
	}, nil
}
