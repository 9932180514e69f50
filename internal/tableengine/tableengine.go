// Package tableengine implements the per-table storage engine (spec.md
// §4.8): it orchestrates one table's WAL, memtable, manifest and SSTable
// set behind a single mutex, and runs the optional periodic fsync worker.
// This is the component the teacher's internal/storage/manager package
// plays the closest analogue to — a per-database handle combining a WAL
// manager, an in-memory table and on-disk persistence behind one lock.
package tableengine

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/leengari/ksdb/internal/manifest"
	"github.com/leengari/ksdb/internal/memtable"
	"github.com/leengari/ksdb/internal/schema"
	"github.com/leengari/ksdb/internal/sstable"
	"github.com/leengari/ksdb/internal/storeerr"
	"github.com/leengari/ksdb/internal/walstore"
)

// Settings are the engine-level configuration knobs spec.md §6 describes.
type Settings struct {
	// WALFsync is "always", "periodic", or anything else for flush-only.
	WALFsync string
	// WALFsyncIntervalMs is the periodic worker's sleep interval; 0 means
	// the default of 50ms.
	WALFsyncIntervalMs int
	// WALFsyncBytes is an observed-only threshold hint, exported via the
	// WAL's own byte counter; nothing here auto-triggers on it.
	WALFsyncBytes uint64
	// MemtableMaxBytes is observed-only, exported via the memtable's byte
	// counter.
	MemtableMaxBytes uint64
	// SSTableIndexStride is the sparse index granularity; 0 means the
	// default of 16.
	SSTableIndexStride int
}

// Normalized applies the defaults spec.md §6/§8 specify for zero values.
func (s Settings) Normalized() Settings {
	if s.WALFsyncIntervalMs <= 0 {
		s.WALFsyncIntervalMs = 50
	}
	if s.SSTableIndexStride <= 0 {
		s.SSTableIndexStride = sstable.DefaultIndexStride
	}
	return s
}

// Engine is one open table: its directory, schema, settings, and the
// WAL/memtable/manifest/SSTable state a single mutex protects.
type Engine struct {
	mu sync.Mutex

	dir      string
	uuid     string
	keyspace string
	table    string

	schema   *schema.Schema
	settings Settings

	nextSeq  uint64
	wal      *walstore.WAL
	mem      *memtable.Memtable
	manifest *manifest.Manifest
	sstables []*sstable.Reader // parallel to manifest.SSTableFiles, oldest first

	stopCh        chan struct{}
	workerDone    chan struct{}
	workerRunning bool
}

func (e *Engine) metadataPath() string { return filepath.Join(e.dir, "metadata.bin") }
func (e *Engine) manifestPath() string { return filepath.Join(e.dir, "manifest.bin") }
func (e *Engine) walPath() string      { return filepath.Join(e.dir, "commitlog.bin") }
func (e *Engine) tmpDir() string       { return filepath.Join(e.dir, "tmp") }

// Schema returns the table's schema. Safe to call at any time — the schema
// is fixed at creation and never mutated.
func (e *Engine) Schema() *schema.Schema { return e.schema }

// Dir returns the table's on-disk directory.
func (e *Engine) Dir() string { return e.dir }

// UUID returns the table's identifying UUID.
func (e *Engine) UUID() string { return e.uuid }

// CreateNewFiles creates dir and writes fresh metadata/manifest/WAL for a
// brand-new table, per spec.md §4.8's open_or_create_files(create_new=true).
func CreateNewFiles(dir, uuid, keyspace, table string, sch *schema.Schema, settings Settings) (*Engine, error) {
	const op = "table_engine_create_new_files"

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, storeerr.Wrap(op, storeerr.KindWriteFailed, err)
	}
	e := &Engine{
		dir:      dir,
		uuid:     uuid,
		keyspace: keyspace,
		table:    table,
		schema:   sch,
		settings: settings.Normalized(),
		nextSeq:  1,
		mem:      memtable.New(),
		manifest: manifest.Default(),
	}
	if err := os.MkdirAll(e.tmpDir(), 0o755); err != nil {
		return nil, storeerr.Wrap(op, storeerr.KindWriteFailed, err)
	}

	if err := writeMetadata(e.metadataPath(), metadataRecord{
		UUID:         uuid,
		Keyspace:     keyspace,
		Table:        table,
		CreationTime: time.Unix(creationTimeNow(), 0).UTC(),
		Schema:       sch,
	}); err != nil {
		return nil, err
	}
	if err := manifest.WriteAtomic(e.manifestPath(), e.manifest); err != nil {
		return nil, err
	}

	w, err := walstore.OpenOrCreate(e.walPath(), true)
	if err != nil {
		return nil, err
	}
	e.wal = w

	return e, nil
}

// OpenExistingFiles reads an existing table's metadata, manifest and WAL
// header, per spec.md §4.8's open_or_create_files(create_new=false). The
// caller must still call Recover to load SSTable indexes and replay the WAL.
func OpenExistingFiles(dir string, settings Settings) (*Engine, error) {
	meta, err := readMetadata(filepath.Join(dir, "metadata.bin"))
	if err != nil {
		return nil, err
	}

	e := &Engine{
		dir:      dir,
		uuid:     meta.UUID,
		keyspace: meta.Keyspace,
		table:    meta.Table,
		schema:   meta.Schema,
		settings: settings.Normalized(),
		nextSeq:  1,
		mem:      memtable.New(),
		manifest: manifest.Read(filepath.Join(dir, "manifest.bin")),
	}
	if err := os.MkdirAll(e.tmpDir(), 0o755); err != nil {
		return nil, storeerr.Wrap("table_engine_open_existing_files", storeerr.KindWriteFailed, err)
	}

	w, err := walstore.OpenOrCreate(e.walPath(), false)
	if err != nil {
		return nil, err
	}
	e.wal = w

	return e, nil
}

// Recover loads every SSTable referenced by the manifest and replays the
// WAL into the memtable, then starts the background fsync worker if the
// policy calls for one.
func (e *Engine) Recover() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.sstables = e.sstables[:0]
	for _, name := range e.manifest.SSTableFiles {
		r, err := sstable.Open(filepath.Join(e.dir, name))
		if err != nil {
			return err
		}
		e.sstables = append(e.sstables, r)
	}

	records, err := walstore.ScanRecords(e.walPath())
	if err != nil {
		return err
	}
	for _, rec := range records {
		e.mem.Put(rec.Key, rec.Seq, rec.Value)
		if rec.Seq+1 > e.nextSeq {
			e.nextSeq = rec.Seq + 1
		}
	}

	e.startWorkerLocked()
	return nil
}

func (e *Engine) startWorkerLocked() {
	if e.settings.WALFsync != "periodic" || e.workerRunning {
		return
	}
	e.stopCh = make(chan struct{})
	e.workerDone = make(chan struct{})
	e.workerRunning = true
	go e.fsyncWorkerLoop(e.stopCh, e.workerDone)
}

func (e *Engine) fsyncWorkerLoop(stop, done chan struct{}) {
	defer close(done)
	interval := time.Duration(e.settings.WALFsyncIntervalMs) * time.Millisecond
	for {
		select {
		case <-stop:
			return
		case <-time.After(interval):
		}
		e.mu.Lock()
		if e.wal != nil && e.wal.IsDirty() {
			_ = e.wal.FsyncNow() // I/O errors are swallowed per spec.md §4.8
		}
		e.mu.Unlock()
	}
}

func (e *Engine) stopWorkerIfRunning() {
	if !e.workerRunning {
		return
	}
	close(e.stopCh)
	<-e.workerDone
	e.workerRunning = false
}

// Shutdown stops the background worker and closes the WAL. Idempotent.
func (e *Engine) Shutdown() error {
	e.stopWorkerIfRunning()

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.wal == nil {
		return nil
	}
	err := e.wal.Close()
	e.wal = nil
	return err
}

// creationTimeNow returns the Unix time recorded in a freshly-created
// table's metadata. Factored out so a future caller can inject a clock.
func creationTimeNow() int64 {
	return time.Now().Unix()
}
