// Command stateengine is the CLI surface of §6: start/stop the indexing
// daemon, inspect or rebuild its database, and verify snapshots, using
// github.com/alecthomas/kong for the subcommand surface.
package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"golang.org/x/sync/errgroup"

	"github.com/namesys/stateengine/internal/chain"
	"github.com/namesys/stateengine/internal/chainclient"
	"github.com/namesys/stateengine/internal/config"
	"github.com/namesys/stateengine/internal/engine"
	"github.com/namesys/stateengine/internal/logging"
	"github.com/namesys/stateengine/internal/nameset"
	"github.com/namesys/stateengine/internal/snv"
)

var version = "0.1.0"

type cli struct {
	WorkingDir string `help:"Override the default working directory." type:"path"`

	Start       startCmd       `cmd:"" help:"Start the indexing daemon."`
	Stop        stopCmd        `cmd:"" help:"Stop a running daemon."`
	Reconfigure reconfigureCmd `cmd:"" help:"Reload configuration in a running daemon."`
	Clean       cleanCmd       `cmd:"" help:"Remove all persisted state."`
	Restore     restoreCmd     `cmd:"" help:"Restore state to a prior block from backups."`
	RebuildDB   rebuildDBCmd   `cmd:"" help:"Rebuild a database from a block range."`
	VerifyDB    verifyDBCmd    `cmd:"" help:"Verify a block's consensus hash against a database."`
	ImportDB    importDBCmd    `cmd:"" help:"Replace the working database with an already-built one."`
	Version     versionCmd     `cmd:"" help:"Print the version and exit."`
}

func main() {
	var c cli
	parser := kong.Parse(&c, kong.Name("stateengine"), kong.Description("decentralized name-registry state engine"))

	cfg, err := resolveConfig(c.WorkingDir)
	if err != nil {
		parser.FatalIfErrorf(err)
	}

	if err := parser.Run(cfg); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		if isUsageError(err) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func resolveConfig(workingDir string) (*config.Config, error) {
	cfg, err := config.Default()
	if err != nil {
		return nil, err
	}
	if workingDir != "" {
		cfg.WorkingDir = workingDir
	}
	return cfg, nil
}

type usageError struct{ error }

func isUsageError(err error) bool {
	_, ok := err.(usageError)
	return ok
}

// --- start ------------------------------------------------------------------

type startCmd struct {
	Foreground     bool   `help:"Run in the foreground with verbose logging."`
	Testset        bool   `help:"Use the low-cost test network parameters."`
	CheckSnapshots string `help:"Path to a {\"snapshots\":{...}} JSON file to validate against as blocks are processed." type:"path"`
}

func (s *startCmd) Run(cfg *config.Config) error {
	if s.Testset {
		cfg.Network = config.Testset
	}
	cfg.CheckSnapshotsPath = s.CheckSnapshots
	if err := cfg.EnsureDirs(); err != nil {
		return err
	}

	log, err := logging.New(s.Foreground)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	db, err := nameset.Open(cfg.DBPath())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	var snapshots map[string]string
	if cfg.CheckSnapshotsPath != "" {
		snapshots, err = loadSnapshots(cfg.CheckSnapshotsPath)
		if err != nil {
			return err
		}
	}

	eng := engine.New(db, s.Testset, log)

	// Dialing a concrete chain node is an external collaborator per §1 —
	// out of this repository's scope. A real deployment supplies its own
	// chainclient.Dialer (e.g. a JSON-RPC client against a full node);
	// here we only wire the reconnect/backoff plumbing around it.
	dial := chainclient.Dialer(func(ctx context.Context) (chainclient.ChainClient, error) {
		return nil, fmt.Errorf("stateengine: no chain client configured for this build")
	})
	reconnector := chainclient.NewReconnector(dial, log)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	client, err := reconnector.Connect(ctx)
	if err != nil {
		return fmt.Errorf("chain client: %w", err)
	}

	return runIndexLoop(ctx, cfg, db, eng, client, snapshots)
}

func runIndexLoop(ctx context.Context, cfg *config.Config, db *nameset.DB, eng *engine.Engine, client chainclient.ChainClient, snapshots map[string]string) error {
	if err := cfg.SetIndexing(true); err != nil {
		return err
	}
	defer cfg.SetIndexing(false) //nolint:errcheck

	first, tip, err := client.GetIndexRange(ctx)
	if err != nil {
		return fmt.Errorf("get index range: %w", err)
	}

	start := first
	if last, err := db.LastBlock(); err == nil && last+1 > start {
		start = last + 1
	}
	if start > tip {
		return nil
	}

	// Block commitment stays strictly serial (§5): one block's check/commit
	// pass must finish before the next begins. The chain client's fetch of
	// a block's transactions is pure I/O, though, so while block N commits
	// we read block N+1 ahead of time under an errgroup — overlapping
	// network latency with processing without touching consensus order.
	txs, err := collectTxs(ctx, client, start)
	if err != nil {
		return fmt.Errorf("tx iterator at block %d: %w", start, err)
	}

	for block := start; block <= tip; block++ {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		var g *errgroup.Group
		var cancel context.CancelFunc
		var nextTxs []chain.RawTx
		if block+1 <= tip {
			var gctx context.Context
			gctx, cancel = context.WithCancel(ctx)
			g = new(errgroup.Group)
			g.Go(func() error {
				fetched, err := collectTxs(gctx, client, block+1)
				nextTxs = fetched
				return err
			})
		}

		hash, processErr := eng.ProcessBlock(block, txs)

		var snapshotErr error
		if processErr == nil && snapshots != nil {
			if want, ok := snapshots[fmt.Sprint(block)]; ok {
				if want != hex.EncodeToString(hash[:]) {
					snapshotErr = fmt.Errorf("snapshot mismatch at block %d: want %s got %x", block, want, hash)
				}
			}
		}

		var fetchErr error
		if g != nil {
			fetchErr = g.Wait()
			cancel()
			txs = nextTxs
		}

		if processErr != nil {
			return fmt.Errorf("process block %d: %w", block, processErr)
		}
		if snapshotErr != nil {
			return snapshotErr
		}
		if fetchErr != nil {
			return fmt.Errorf("tx iterator at block %d: %w", block+1, fetchErr)
		}
	}
	return nil
}

func collectTxs(ctx context.Context, client chainclient.ChainClient, block int64) ([]chain.RawTx, error) {
	txCh, err := client.TxIterator(ctx, block)
	if err != nil {
		return nil, err
	}
	var txs []chain.RawTx
	for tx := range txCh {
		txs = append(txs, tx)
	}
	return txs, nil
}

func loadSnapshots(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var wrapper struct {
		Snapshots map[string]string `json:"snapshots"`
	}
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return nil, err
	}
	return wrapper.Snapshots, nil
}

// --- stop / reconfigure / clean ---------------------------------------------

type stopCmd struct {
	Clean bool `help:"Also remove persisted state after stopping."`
	Kill  bool `help:"Send SIGKILL instead of SIGTERM."`
}

func (s *stopCmd) Run(cfg *config.Config) error {
	pid, err := readPID(cfg.PIDFilePath())
	if err != nil {
		return err
	}
	sig := syscall.SIGTERM
	if s.Kill {
		sig = syscall.SIGKILL
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	if err := proc.Signal(sig); err != nil {
		return err
	}
	if s.Clean {
		return os.RemoveAll(cfg.WorkingDir)
	}
	return nil
}

func readPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	var pid int
	if _, err := fmt.Sscanf(string(data), "%d", &pid); err != nil {
		return 0, usageError{fmt.Errorf("malformed pid file %s: %w", path, err)}
	}
	return pid, nil
}

type reconfigureCmd struct{}

func (r *reconfigureCmd) Run(cfg *config.Config) error {
	pid, err := readPID(cfg.PIDFilePath())
	if err != nil {
		return err
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return proc.Signal(syscall.SIGHUP)
}

type cleanCmd struct {
	Force bool `help:"Skip the confirmation prompt."`
}

func (c *cleanCmd) Run(cfg *config.Config) error {
	if !c.Force {
		return usageError{fmt.Errorf("clean requires --force")}
	}
	return os.RemoveAll(cfg.WorkingDir)
}

// --- restore / rebuilddb / verifydb / importdb ------------------------------

type restoreCmd struct {
	BlockNumber int64 `arg:"" optional:"" help:"Block to restore to; defaults to the latest backup."`
}

func (r *restoreCmd) Run(cfg *config.Config) error {
	return fmt.Errorf("stateengine: restore is not implemented in this build (no backup directory contents to restore from)")
}

type rebuildDBCmd struct {
	DBPath     string `arg:"" type:"path"`
	StartBlock int64  `arg:""`
	EndBlock   int64  `arg:""`
	ResumeDir  string `help:"Directory to resume a partially-built database from." type:"path"`
}

func (r *rebuildDBCmd) Run(cfg *config.Config) error {
	return fmt.Errorf("stateengine: rebuilddb requires a configured chain client, which this build does not provide (see startCmd)")
}

type verifyDBCmd struct {
	BlockID       int64  `arg:""`
	ConsensusHash string `arg:""`
	DBPath        string `arg:"" type:"path"`
}

func (v *verifyDBCmd) Run(cfg *config.Config) error {
	db, err := nameset.Open(v.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	proof, err := snv.VerifyBlock(db, v.BlockID)
	if err != nil {
		return err
	}
	want, err := hex.DecodeString(v.ConsensusHash)
	if err != nil {
		return usageError{fmt.Errorf("bad consensus hash %q: %w", v.ConsensusHash, err)}
	}
	if hex.EncodeToString(proof.StoredHash[:]) != hex.EncodeToString(want) {
		return fmt.Errorf("stored consensus hash at block %d (%x) does not match supplied hash (%x)", v.BlockID, proof.StoredHash, want)
	}
	if !proof.Matches {
		return fmt.Errorf("recomputed consensus hash (%x) does not match stored hash (%x) at block %d", proof.RecomputedHash, proof.StoredHash, v.BlockID)
	}
	fmt.Printf("block %d verified: %x\n", v.BlockID, proof.StoredHash)
	return nil
}

type importDBCmd struct {
	DBPath string `arg:"" type:"path"`
}

func (i *importDBCmd) Run(cfg *config.Config) error {
	if err := cfg.EnsureDirs(); err != nil {
		return err
	}
	if err := os.RemoveAll(cfg.DBPath()); err != nil {
		return err
	}
	return os.Rename(i.DBPath, cfg.DBPath())
}

// --- version -----------------------------------------------------------------

type versionCmd struct{}

func (v *versionCmd) Run(cfg *config.Config) error {
	fmt.Println(version)
	return nil
}
