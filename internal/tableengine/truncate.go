package tableengine

import (
	"os"
	"path/filepath"

	"github.com/leengari/ksdb/internal/manifest"
	"github.com/leengari/ksdb/internal/memtable"
	"github.com/leengari/ksdb/internal/storeerr"
	"github.com/leengari/ksdb/internal/walstore"
)

// Truncate deletes every SSTable, the manifest and the WAL, then
// reinitializes the table to its just-created state with an empty
// manifest and a fresh WAL. The background worker is stopped before the
// reset and restarted after, per spec.md §4.8.
func (e *Engine) Truncate() error {
	const op = "truncate"

	e.stopWorkerIfRunning()

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.wal != nil {
		if err := e.wal.Close(); err != nil {
			return storeerr.Wrap(op, storeerr.KindWriteFailed, err)
		}
	}

	// Glob the directory directly rather than trusting e.manifest.SSTableFiles:
	// a manifest that's stale relative to disk (e.g. after a prior
	// corruption-default-to-empty-manifest event) must not leave orphan
	// sstable-*.bin files behind that Recover() would never see again.
	matches, err := filepath.Glob(filepath.Join(e.dir, "sstable-*.bin"))
	if err != nil {
		return storeerr.Wrap(op, storeerr.KindWriteFailed, err)
	}
	for _, path := range matches {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return storeerr.Wrap(op, storeerr.KindWriteFailed, err)
		}
	}
	if err := os.Remove(e.manifestPath()); err != nil && !os.IsNotExist(err) {
		return storeerr.Wrap(op, storeerr.KindWriteFailed, err)
	}
	if err := os.Remove(e.walPath()); err != nil && !os.IsNotExist(err) {
		return storeerr.Wrap(op, storeerr.KindWriteFailed, err)
	}
	if err := os.RemoveAll(e.tmpDir()); err != nil {
		return storeerr.Wrap(op, storeerr.KindWriteFailed, err)
	}
	if err := os.MkdirAll(e.tmpDir(), 0o755); err != nil {
		return storeerr.Wrap(op, storeerr.KindWriteFailed, err)
	}

	e.mem = memtable.New()
	e.sstables = nil
	e.manifest = manifest.Default()
	e.nextSeq = 1

	if err := manifest.WriteAtomic(e.manifestPath(), e.manifest); err != nil {
		return err
	}
	w, err := walstore.OpenOrCreate(e.walPath(), true)
	if err != nil {
		return err
	}
	e.wal = w

	e.startWorkerLocked()
	return nil
}
