package tableengine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/leengari/ksdb/internal/rowcodec"
	"github.com/leengari/ksdb/internal/schema"
)

func intSchema() *schema.Schema {
	return &schema.Schema{
		Columns: []schema.Column{
			{Name: "id", Type: schema.TypeInt64},
			{Name: "name", Type: schema.TypeText},
		},
		PrimaryKeyIndex: 0,
	}
}

func pkFor(t *testing.T, n int64) []byte {
	t.Helper()
	pk, err := rowcodec.PartitionKeyBytes(schema.TypeInt64, rowcodec.Literal{
		Kind: rowcodec.LitNumber, Text: itoa(n),
	})
	if err != nil {
		t.Fatalf("pk encode failed: %v", err)
	}
	return pk
}

func itoa(n int64) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	if neg {
		digits = append([]byte{'-'}, digits...)
	}
	return string(digits)
}

func newEngineForTest(t *testing.T) *Engine {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "k.t-abc123")
	e, err := CreateNewFiles(dir, "abc123", "k", "t", intSchema(), Settings{})
	if err != nil {
		t.Fatalf("CreateNewFiles failed: %v", err)
	}
	if err := e.Recover(); err != nil {
		t.Fatalf("Recover failed: %v", err)
	}
	return e
}

func TestPutThenGetRow(t *testing.T) {
	e := newEngineForTest(t)
	defer e.Shutdown()

	pk := pkFor(t, 1)
	if err := e.PutRow(pk, []byte("row-bytes")); err != nil {
		t.Fatalf("PutRow failed: %v", err)
	}

	v, found, err := e.GetRow(pk)
	if err != nil {
		t.Fatalf("GetRow failed: %v", err)
	}
	if !found || string(v) != "row-bytes" {
		t.Fatalf("GetRow = %q, %v; want row-bytes, true", v, found)
	}
}

func TestDeleteRowIsTombstone(t *testing.T) {
	e := newEngineForTest(t)
	defer e.Shutdown()

	pk := pkFor(t, 1)
	if err := e.PutRow(pk, []byte("x")); err != nil {
		t.Fatalf("PutRow failed: %v", err)
	}
	if err := e.DeleteRow(pk); err != nil {
		t.Fatalf("DeleteRow failed: %v", err)
	}
	_, found, err := e.GetRow(pk)
	if err != nil {
		t.Fatalf("GetRow failed: %v", err)
	}
	if found {
		t.Fatal("expected row to be gone after delete")
	}
}

func TestTombstoneSurvivesFlush(t *testing.T) {
	e := newEngineForTest(t)
	defer e.Shutdown()

	pk := pkFor(t, 1)
	if err := e.PutRow(pk, []byte("a")); err != nil {
		t.Fatalf("PutRow failed: %v", err)
	}
	if err := e.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	if err := e.DeleteRow(pk); err != nil {
		t.Fatalf("DeleteRow failed: %v", err)
	}
	if err := e.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	_, found, err := e.GetRow(pk)
	if err != nil {
		t.Fatalf("GetRow failed: %v", err)
	}
	if found {
		t.Fatal("expected tombstone to survive flush and report not-found")
	}
}

func TestEmptyFlushIsNoOp(t *testing.T) {
	e := newEngineForTest(t)
	defer e.Shutdown()

	if err := e.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	if len(e.manifest.SSTableFiles) != 0 {
		t.Fatalf("expected no SSTables after flushing an empty memtable, got %v", e.manifest.SSTableFiles)
	}
}

func TestScanAllRowsByPKOrdersAscendingAndDescending(t *testing.T) {
	e := newEngineForTest(t)
	defer e.Shutdown()

	for _, n := range []int64{3, 1, 2} {
		if err := e.PutRow(pkFor(t, n), []byte("v")); err != nil {
			t.Fatalf("PutRow(%d) failed: %v", n, err)
		}
	}

	asc, err := e.ScanAllRowsByPK(false)
	if err != nil {
		t.Fatalf("ScanAllRowsByPK failed: %v", err)
	}
	if len(asc) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(asc))
	}
	for i, want := range []int64{1, 2, 3} {
		v, _, err := rowcodecDecodeInt64(asc[i].PKBytes)
		if err != nil {
			t.Fatalf("decode failed: %v", err)
		}
		if v != want {
			t.Fatalf("ascending[%d] = %d, want %d", i, v, want)
		}
	}

	desc, err := e.ScanAllRowsByPK(true)
	if err != nil {
		t.Fatalf("ScanAllRowsByPK failed: %v", err)
	}
	for i, want := range []int64{3, 2, 1} {
		v, _, err := rowcodecDecodeInt64(desc[i].PKBytes)
		if err != nil {
			t.Fatalf("decode failed: %v", err)
		}
		if v != want {
			t.Fatalf("descending[%d] = %d, want %d", i, v, want)
		}
	}
}

func TestRecoveryAcrossShutdownAndReopen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "k.t-abc123")
	e, err := CreateNewFiles(dir, "abc123", "k", "t", intSchema(), Settings{})
	if err != nil {
		t.Fatalf("CreateNewFiles failed: %v", err)
	}
	if err := e.Recover(); err != nil {
		t.Fatalf("Recover failed: %v", err)
	}
	pk := pkFor(t, 1)
	if err := e.PutRow(pk, []byte("persisted")); err != nil {
		t.Fatalf("PutRow failed: %v", err)
	}
	if err := e.Shutdown(); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}

	reopened, err := OpenExistingFiles(dir, Settings{})
	if err != nil {
		t.Fatalf("OpenExistingFiles failed: %v", err)
	}
	if err := reopened.Recover(); err != nil {
		t.Fatalf("Recover failed: %v", err)
	}
	defer reopened.Shutdown()

	v, found, err := reopened.GetRow(pk)
	if err != nil {
		t.Fatalf("GetRow failed: %v", err)
	}
	if !found || string(v) != "persisted" {
		t.Fatalf("GetRow after reopen = %q, %v", v, found)
	}
}

func TestWALTailCorruptionDropsOnlyTheTail(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "k.t-abc123")
	e, err := CreateNewFiles(dir, "abc123", "k", "t", intSchema(), Settings{})
	if err != nil {
		t.Fatalf("CreateNewFiles failed: %v", err)
	}
	if err := e.Recover(); err != nil {
		t.Fatalf("Recover failed: %v", err)
	}
	for _, n := range []int64{1, 2, 3} {
		if err := e.PutRow(pkFor(t, n), []byte("v")); err != nil {
			t.Fatalf("PutRow(%d) failed: %v", n, err)
		}
	}
	if err := e.Shutdown(); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}

	walPath := filepath.Join(dir, "commitlog.bin")
	info, err := os.Stat(walPath)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if err := os.Truncate(walPath, info.Size()-5); err != nil {
		t.Fatalf("Truncate failed: %v", err)
	}

	reopened, err := OpenExistingFiles(dir, Settings{})
	if err != nil {
		t.Fatalf("OpenExistingFiles failed: %v", err)
	}
	if err := reopened.Recover(); err != nil {
		t.Fatalf("Recover failed: %v", err)
	}
	defer reopened.Shutdown()

	if _, found, _ := reopened.GetRow(pkFor(t, 3)); found {
		t.Fatal("expected the corrupted last record to be dropped")
	}
	if _, found, _ := reopened.GetRow(pkFor(t, 2)); !found {
		t.Fatal("expected id=2 to survive")
	}
	if _, found, _ := reopened.GetRow(pkFor(t, 1)); !found {
		t.Fatal("expected id=1 to survive")
	}
}

// rowcodecDecodeInt64 decodes a big-endian int64 pk back for assertions.
func rowcodecDecodeInt64(pk []byte) (int64, []byte, error) {
	v, rest, err := (&int64Codec{}).decode(pk)
	return v, rest, err
}

type int64Codec struct{}

func (int64Codec) decode(b []byte) (int64, []byte, error) {
	if len(b) < 8 {
		return 0, b, os.ErrInvalid
	}
	var v uint64
	for i := 0; i < 8; i++ {
		v = v<<8 | uint64(b[i])
	}
	return int64(v), b[8:], nil
}
