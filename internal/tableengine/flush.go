package tableengine

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"

	"github.com/leengari/ksdb/internal/manifest"
	"github.com/leengari/ksdb/internal/sstable"
	"github.com/leengari/ksdb/internal/storeerr"
	"github.com/leengari/ksdb/internal/walstore"
)

// Flush drains the memtable into a new SSTable and commits it to the
// manifest. An empty memtable is a no-op: no new SSTable, no manifest
// rewrite (spec.md §8).
func (e *Engine) Flush() error {
	const op = "flush"

	e.mu.Lock()
	if e.mem.Len() == 0 {
		e.mu.Unlock()
		return nil
	}
	snapshot := e.mem.Snapshot()
	gen := e.manifest.NextSstableGen
	stride := e.settings.SSTableIndexStride
	e.mu.Unlock()

	entries := make([]sstable.Entry, 0, len(snapshot))
	var maxSeq uint64
	for _, ent := range snapshot {
		entries = append(entries, sstable.Entry{
			Key:   ent.DecoratedKey,
			Seq:   ent.Value.Seq,
			Value: ent.Value.Value,
		})
		if ent.Value.Seq > maxSeq {
			maxSeq = ent.Value.Seq
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		return bytes.Compare(entries[i].Key, entries[j].Key) < 0
	})

	fileName := sstable.FileName(gen)
	tmpPath := filepath.Join(e.tmpDir(), fileName+".tmp")
	finalPath := filepath.Join(e.dir, fileName)

	if err := sstable.Write(tmpPath, entries, stride); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return storeerr.Wrap(op, storeerr.KindCannotWriteSSTable, err)
	}

	reader, err := sstable.Open(finalPath)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.manifest.SSTableFiles = append(e.manifest.SSTableFiles, fileName)
	e.manifest.NextSstableGen++
	e.manifest.LastFlushedSeq = maxSeq
	if err := manifest.WriteAtomic(e.manifestPath(), e.manifest); err != nil {
		return err
	}

	e.sstables = append(e.sstables, reader)
	e.mem.Clear()

	if e.wal != nil {
		if err := e.wal.Close(); err != nil {
			return storeerr.Wrap(op, storeerr.KindWriteFailed, err)
		}
	}
	w, err := walstore.OpenOrCreate(e.walPath(), true)
	if err != nil {
		return err
	}
	e.wal = w

	return nil
}
