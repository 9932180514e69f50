// Package config loads server and engine settings from a TOML file, with
// flag overrides, the way Pieczasz-smf's internal/parser/toml parser
// decodes its schema file with github.com/BurntSushi/toml.
package config

import (
	"flag"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/leengari/ksdb/internal/tableengine"
)

// Config is the full set of server + engine settings.
type Config struct {
	DataDir    string `toml:"data_dir"`
	ListenAddr string `toml:"listen_addr"`
	Engine     EngineConfig `toml:"engine"`
}

// EngineConfig mirrors tableengine.Settings' TOML representation.
type EngineConfig struct {
	WALFsync           string `toml:"wal_fsync"`
	WALFsyncIntervalMs int    `toml:"wal_fsync_interval_ms"`
	WALFsyncBytes      uint64 `toml:"wal_fsync_bytes"`
	MemtableMaxBytes   uint64 `toml:"memtable_max_bytes"`
	SSTableIndexStride int    `toml:"sstable_index_stride"`
}

// Default returns the configuration spec.md §6 describes when no file or
// flags override it: periodic fsync every 50ms, index stride 16.
func Default() Config {
	return Config{
		DataDir:    "data",
		ListenAddr: ":4444",
		Engine: EngineConfig{
			WALFsync:           "periodic",
			WALFsyncIntervalMs: 50,
			SSTableIndexStride: 16,
		},
	}
}

// Load reads path (if non-empty and present) over the defaults, then layers
// -data-dir/-listen flag overrides from fs on top. cmd/ksdb passes the serve
// command's own flag.FlagSet; tests pass theirs.
func Load(path string, fs *flag.FlagSet, args []string) (Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, &cfg); err != nil {
				return Config{}, fmt.Errorf("config: decode %q: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("config: stat %q: %w", path, err)
		}
	}

	dataDir := fs.String("data-dir", cfg.DataDir, "data root directory")
	listenAddr := fs.String("listen", cfg.ListenAddr, "TCP listen address")
	if err := fs.Parse(args); err != nil {
		return Config{}, fmt.Errorf("config: parse flags: %w", err)
	}
	cfg.DataDir = *dataDir
	cfg.ListenAddr = *listenAddr

	return cfg, nil
}

// EngineSettings projects the TOML-facing EngineConfig onto
// tableengine.Settings.
func (c Config) EngineSettings() tableengine.Settings {
	return tableengine.Settings{
		WALFsync:           c.Engine.WALFsync,
		WALFsyncIntervalMs: c.Engine.WALFsyncIntervalMs,
		WALFsyncBytes:      c.Engine.WALFsyncBytes,
		MemtableMaxBytes:   c.Engine.MemtableMaxBytes,
		SSTableIndexStride: c.Engine.SSTableIndexStride,
	}.Normalized()
}
