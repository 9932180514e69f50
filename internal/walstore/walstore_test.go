package walstore

import (
	"os"
	"path/filepath"
	"testing"
)

func TestAppendAndScanRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "commitlog.bin")

	w, err := OpenOrCreate(path, true)
	if err != nil {
		t.Fatalf("OpenOrCreate failed: %v", err)
	}
	if err := w.Append(1, []byte("k1"), []byte("v1")); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := w.Append(2, []byte("k2"), nil); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if !w.IsDirty() || w.BytesSinceFsync() == 0 {
		t.Fatal("expected dirty state with nonzero bytes after append")
	}
	if err := w.FsyncNow(); err != nil {
		t.Fatalf("FsyncNow failed: %v", err)
	}
	if w.IsDirty() || w.BytesSinceFsync() != 0 {
		t.Fatal("expected clean state after fsync")
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	records, err := ScanRecords(path)
	if err != nil {
		t.Fatalf("ScanRecords failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Seq != 1 || string(records[0].Key) != "k1" || string(records[0].Value) != "v1" {
		t.Fatalf("unexpected first record: %+v", records[0])
	}
	if records[1].Seq != 2 || string(records[1].Key) != "k2" || len(records[1].Value) != 0 {
		t.Fatalf("unexpected second record: %+v", records[1])
	}
}

func TestOpenOrCreateRecreatesOnMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "commitlog.bin")
	if err := os.WriteFile(path, []byte("not a wal file at all"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	w, err := OpenOrCreate(path, false)
	if err != nil {
		t.Fatalf("OpenOrCreate failed: %v", err)
	}
	defer w.Close()

	records, err := ScanRecords(path)
	if err != nil {
		t.Fatalf("ScanRecords failed: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected fresh empty log, got %d records", len(records))
	}
}

func TestScanRecordsStopsAtCorruptTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "commitlog.bin")
	w, err := OpenOrCreate(path, true)
	if err != nil {
		t.Fatalf("OpenOrCreate failed: %v", err)
	}
	if err := w.Append(1, []byte("k1"), []byte("v1")); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		t.Fatalf("OpenFile failed: %v", err)
	}
	if _, err := f.Write([]byte{1, 2, 3}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	f.Close()

	records, err := ScanRecords(path)
	if err != nil {
		t.Fatalf("ScanRecords failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected the one well-formed record to survive, got %d", len(records))
	}
}

func TestScanRecordsMissingFile(t *testing.T) {
	records, err := ScanRecords(filepath.Join(t.TempDir(), "does-not-exist.bin"))
	if err != nil {
		t.Fatalf("expected no error for a missing file, got %v", err)
	}
	if records != nil {
		t.Fatalf("expected no records, got %v", records)
	}
}
