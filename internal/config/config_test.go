package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaultsWithNoFileOrFlags(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg, err := Load("", fs, nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.DataDir != "data" {
		t.Fatalf("DataDir = %q, want %q", cfg.DataDir, "data")
	}
	if cfg.ListenAddr != ":4444" {
		t.Fatalf("ListenAddr = %q, want %q", cfg.ListenAddr, ":4444")
	}
	if cfg.Engine.WALFsyncIntervalMs != 50 {
		t.Fatalf("WALFsyncIntervalMs = %d, want 50", cfg.Engine.WALFsyncIntervalMs)
	}
	if cfg.Engine.SSTableIndexStride != 16 {
		t.Fatalf("SSTableIndexStride = %d, want 16", cfg.Engine.SSTableIndexStride)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ksdb.toml")
	contents := `
data_dir = "/var/lib/ksdb"
listen_addr = ":9000"

[engine]
wal_fsync = "always"
wal_fsync_interval_ms = 25
sstable_index_stride = 32
`
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg, err := Load(path, fs, nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.DataDir != "/var/lib/ksdb" {
		t.Fatalf("DataDir = %q", cfg.DataDir)
	}
	if cfg.ListenAddr != ":9000" {
		t.Fatalf("ListenAddr = %q", cfg.ListenAddr)
	}
	if cfg.Engine.WALFsync != "always" {
		t.Fatalf("WALFsync = %q", cfg.Engine.WALFsync)
	}
	if cfg.Engine.WALFsyncIntervalMs != 25 {
		t.Fatalf("WALFsyncIntervalMs = %d", cfg.Engine.WALFsyncIntervalMs)
	}
	if cfg.Engine.SSTableIndexStride != 32 {
		t.Fatalf("SSTableIndexStride = %d", cfg.Engine.SSTableIndexStride)
	}
}

func TestFlagsOverrideDefaults(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg, err := Load("", fs, []string{"-data-dir", "/tmp/override", "-listen", ":1234"})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.DataDir != "/tmp/override" {
		t.Fatalf("DataDir = %q", cfg.DataDir)
	}
	if cfg.ListenAddr != ":1234" {
		t.Fatalf("ListenAddr = %q", cfg.ListenAddr)
	}
}

func TestEngineSettingsAppliesNormalization(t *testing.T) {
	cfg := Default()
	cfg.Engine.WALFsyncIntervalMs = 0
	cfg.Engine.SSTableIndexStride = 0

	settings := cfg.EngineSettings()
	if settings.WALFsyncIntervalMs != 50 {
		t.Fatalf("WALFsyncIntervalMs = %d, want 50", settings.WALFsyncIntervalMs)
	}
	if settings.SSTableIndexStride != 16 {
		t.Fatalf("SSTableIndexStride = %d, want 16", settings.SSTableIndexStride)
	}
}
