package sstable

import (
	"path/filepath"
	"testing"
)

func writeTestTable(t *testing.T, entries []Entry, stride int) *Reader {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sstable-000001.bin")
	if err := Write(path, entries, stride); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return r
}

func TestWriteAndGet(t *testing.T) {
	entries := []Entry{
		{Key: []byte("aaa"), Seq: 1, Value: []byte("1")},
		{Key: []byte("bbb"), Seq: 2, Value: []byte("2")},
		{Key: []byte("ccc"), Seq: 3, Value: []byte("3")},
	}
	r := writeTestTable(t, entries, 1)

	for _, e := range entries {
		v, found, err := r.Get(e.Key)
		if err != nil {
			t.Fatalf("Get(%s) failed: %v", e.Key, err)
		}
		if !found || string(v) != string(e.Value) {
			t.Fatalf("Get(%s) = %q, %v; want %q, true", e.Key, v, found, e.Value)
		}
	}

	if _, found, err := r.Get([]byte("zzz")); err != nil || found {
		t.Fatalf("expected miss for zzz, got found=%v err=%v", found, err)
	}
	if _, found, err := r.Get([]byte("000")); err != nil || found {
		t.Fatalf("expected miss before first key, got found=%v err=%v", found, err)
	}
}

func TestSparseIndexStride(t *testing.T) {
	var entries []Entry
	for i := 0; i < 50; i++ {
		key := []byte{byte(i)}
		entries = append(entries, Entry{Key: key, Seq: uint64(i + 1), Value: []byte("v")})
	}
	r := writeTestTable(t, entries, 16)
	if len(r.index) != 4 {
		t.Fatalf("expected 4 index entries (50 entries, stride 16, plus first), got %d", len(r.index))
	}

	for i := 0; i < 50; i++ {
		v, found, err := r.Get([]byte{byte(i)})
		if err != nil || !found || string(v) != "v" {
			t.Fatalf("Get(%d) = %q, %v, %v", i, v, found, err)
		}
	}
}

func TestScanAll(t *testing.T) {
	entries := []Entry{
		{Key: []byte("a"), Seq: 1, Value: []byte("1")},
		{Key: []byte("b"), Seq: 2, Value: nil},
		{Key: []byte("c"), Seq: 3, Value: []byte("3")},
	}
	r := writeTestTable(t, entries, 2)

	got, err := r.ScanAll()
	if err != nil {
		t.Fatalf("ScanAll failed: %v", err)
	}
	if len(got) != len(entries) {
		t.Fatalf("got %d entries, want %d", len(got), len(entries))
	}
	for i, e := range entries {
		if string(got[i].Key) != string(e.Key) || got[i].Seq != e.Seq || string(got[i].Value) != string(e.Value) {
			t.Fatalf("entry %d = %+v, want %+v", i, got[i], e)
		}
	}
}

func TestEmptyTableIsCleanMiss(t *testing.T) {
	r := writeTestTable(t, nil, 16)
	if _, found, err := r.Get([]byte("x")); err != nil || found {
		t.Fatalf("expected clean miss on empty table, got found=%v err=%v", found, err)
	}
}

func TestFileName(t *testing.T) {
	if got, want := FileName(7), "sstable-000007.bin"; got != want {
		t.Fatalf("FileName(7) = %q, want %q", got, want)
	}
}
