// Package config resolves the engine's working directory layout and
// network selection (mainset vs testset), mirroring the chaincfg.Params
// pattern the wire codec also follows.
package config

import (
	"os"
	"path/filepath"
)

// Network selects which magic bytes and price table the engine uses.
type Network int

const (
	// Mainset is the production network.
	Mainset Network = iota
	// Testset is the low-cost test network.
	Testset
)

func (n Network) String() string {
	if n == Testset {
		return "testset"
	}
	return "mainset"
}

// Config describes the on-disk layout and runtime knobs for one engine
// instance. All paths are derived from WorkingDir unless overridden.
type Config struct {
	WorkingDir    string
	Network       Network
	Confirmations int64

	// CheckSnapshotsPath, when non-empty, points at a JSON file of
	// {"snapshots": {"<block>": "<hex consensus hash>"}} that `start
	// --check-snapshots` validates against as blocks are processed.
	CheckSnapshotsPath string
}

const (
	dbDirName          = "db"
	lastBlockFileName  = "lastblock"
	snapshotsFileName  = "snapshots"
	indexingFileName   = "indexing"
	pidFileName        = "stateengine.pid"
	announceLogName    = "announce.log"
	announceTextDir    = "announcements"
	backupDirName      = "backups"
)

// Default returns a Config rooted at the user's home directory under
// ~/.stateengine, a single well-known working directory absent an
// explicit --working-dir.
func Default() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return &Config{
		WorkingDir:    filepath.Join(home, ".stateengine"),
		Network:       Mainset,
		Confirmations: 6,
	}, nil
}

// EnsureDirs creates the working directory and its subdirectories if they
// do not already exist.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.WorkingDir, c.DBPath(), c.BackupDir(), c.AnnounceTextDir()} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) DBPath() string            { return filepath.Join(c.WorkingDir, dbDirName) }
func (c *Config) LastBlockPath() string      { return filepath.Join(c.WorkingDir, lastBlockFileName) }
func (c *Config) SnapshotsPath() string      { return filepath.Join(c.WorkingDir, snapshotsFileName) }
func (c *Config) IndexingFlagPath() string   { return filepath.Join(c.WorkingDir, indexingFileName) }
func (c *Config) PIDFilePath() string        { return filepath.Join(c.WorkingDir, pidFileName) }
func (c *Config) AnnounceLogPath() string    { return filepath.Join(c.WorkingDir, announceLogName) }
func (c *Config) AnnounceTextDir() string    { return filepath.Join(c.WorkingDir, announceTextDir) }
func (c *Config) BackupDir() string          { return filepath.Join(c.WorkingDir, backupDirName) }

// IsIndexing reports whether the indexing flag file is currently present.
func (c *Config) IsIndexing() bool {
	_, err := os.Stat(c.IndexingFlagPath())
	return err == nil
}

// SetIndexing creates or removes the indexing flag file.
func (c *Config) SetIndexing(on bool) error {
	if on {
		f, err := os.Create(c.IndexingFlagPath())
		if err != nil {
			return err
		}
		return f.Close()
	}
	err := os.Remove(c.IndexingFlagPath())
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
