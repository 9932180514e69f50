package tableengine

import (
	"bytes"
	"encoding/binary"
	"math"
	"sort"

	"github.com/leengari/ksdb/internal/schema"
	"github.com/leengari/ksdb/internal/sstable"
	"github.com/leengari/ksdb/internal/token"
)

// PutRow writes pkBytes/rowBytes through the WAL and into the memtable,
// allocating the next sequence number.
func (e *Engine) PutRow(pkBytes, rowBytes []byte) error {
	return e.writeRow(pkBytes, rowBytes)
}

// DeleteRow writes a tombstone (empty value) for pkBytes.
func (e *Engine) DeleteRow(pkBytes []byte) error {
	return e.writeRow(pkBytes, nil)
}

func (e *Engine) writeRow(pkBytes, value []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	seq := e.nextSeq
	e.nextSeq++
	decorated := token.DecoratedKey(pkBytes)

	if err := e.wal.Append(seq, decorated, value); err != nil {
		return err
	}
	if e.settings.WALFsync == "always" {
		if err := e.wal.FsyncNow(); err != nil {
			return err
		}
	}
	e.mem.Put(decorated, seq, value)
	return nil
}

// GetRow looks up pkBytes: memtable first, then SSTables newest to oldest.
// An empty value at the newest hit is a tombstone and reports not-found.
func (e *Engine) GetRow(pkBytes []byte) (value []byte, found bool, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	decorated := token.DecoratedKey(pkBytes)

	if v, ok := e.mem.Get(decorated); ok {
		if len(v.Value) == 0 {
			return nil, false, nil
		}
		return v.Value, true, nil
	}

	for i := len(e.sstables) - 1; i >= 0; i-- {
		v, ok, err := e.sstables[i].Get(decorated)
		if err != nil {
			return nil, false, err
		}
		if ok {
			if len(v) == 0 {
				return nil, false, nil
			}
			return v, true, nil
		}
	}

	return nil, false, nil
}

// PKRow is one row's decoded primary key alongside its row bytes, as
// returned by ScanAllRowsByPK.
type PKRow struct {
	PKBytes  []byte
	RowBytes []byte
}

// ScanAllRowsByPK merges the memtable and every SSTable by decorated key
// (keeping the entry with the largest sequence number per key), drops
// tombstones, and returns the surviving rows sorted by their decoded
// primary key using spec.md §4.8's type-aware comparator.
func (e *Engine) ScanAllRowsByPK(desc bool) ([]PKRow, error) {
	e.mu.Lock()
	sch := e.schema
	memSnapshot := e.mem.Snapshot()
	readers := append([]*sstable.Reader(nil), e.sstables...)
	e.mu.Unlock()

	type merged struct {
		seq   uint64
		value []byte
	}
	byKey := make(map[string]merged, len(memSnapshot))
	for _, entry := range memSnapshot {
		byKey[string(entry.DecoratedKey)] = merged{seq: entry.Value.Seq, value: entry.Value.Value}
	}

	for _, r := range readers {
		entries, err := r.ScanAll()
		if err != nil {
			return nil, err
		}
		for _, ent := range entries {
			key := string(ent.Key)
			if cur, ok := byKey[key]; !ok || ent.Seq > cur.seq {
				byKey[key] = merged{seq: ent.Seq, value: ent.Value}
			}
		}
	}

	rows := make([]PKRow, 0, len(byKey))
	for key, m := range byKey {
		if len(m.value) == 0 {
			continue
		}
		pk := token.SplitDecoratedKey([]byte(key))
		rows = append(rows, PKRow{PKBytes: pk, RowBytes: m.value})
	}

	pkType := sch.PrimaryKeyColumn().Type
	sort.Slice(rows, func(i, j int) bool {
		return comparePK(pkType, rows[i].PKBytes, rows[j].PKBytes) < 0
	})
	if desc {
		for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
			rows[i], rows[j] = rows[j], rows[i]
		}
	}

	return rows, nil
}

// comparePK compares two primary-key byte strings per spec.md §4.8: lex for
// text/char/blob, unsigned byte for boolean, signed integer for
// int32/date/int64/timestamp, IEEE float32 ordering with NaN as smallest by
// convention (equal NaNs compare equal), falling back to lex on malformed widths. Ties
// are broken by raw lex order.
func comparePK(t schema.ColumnType, a, b []byte) int {
	cmp := typedComparePK(t, a, b)
	if cmp != 0 {
		return cmp
	}
	return bytes.Compare(a, b)
}

func typedComparePK(t schema.ColumnType, a, b []byte) int {
	switch t {
	case schema.TypeText, schema.TypeChar, schema.TypeBlob:
		return bytes.Compare(a, b)

	case schema.TypeBoolean:
		if len(a) != 1 || len(b) != 1 {
			return bytes.Compare(a, b)
		}
		return compareInt64(int64(a[0]), int64(b[0]))

	case schema.TypeInt32, schema.TypeDate:
		if len(a) != 4 || len(b) != 4 {
			return bytes.Compare(a, b)
		}
		av := int32(binary.BigEndian.Uint32(a))
		bv := int32(binary.BigEndian.Uint32(b))
		return compareInt64(int64(av), int64(bv))

	case schema.TypeInt64, schema.TypeTimestamp:
		if len(a) != 8 || len(b) != 8 {
			return bytes.Compare(a, b)
		}
		av := int64(binary.BigEndian.Uint64(a))
		bv := int64(binary.BigEndian.Uint64(b))
		return compareInt64(av, bv)

	case schema.TypeFloat32:
		if len(a) != 4 || len(b) != 4 {
			return bytes.Compare(a, b)
		}
		av := math.Float32frombits(binary.BigEndian.Uint32(a))
		bv := math.Float32frombits(binary.BigEndian.Uint32(b))
		return compareFloat32NaNSmallest(av, bv)

	default:
		return bytes.Compare(a, b)
	}
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareFloat32NaNSmallest(a, b float32) int {
	aNaN, bNaN := math.IsNaN(float64(a)), math.IsNaN(float64(b))
	switch {
	case aNaN && bNaN:
		return 0
	case aNaN:
		return -1
	case bNaN:
		return 1
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
