// Package sstable implements the immutable, sorted, on-disk table format a
// memtable flushes into: a sequence of key-ordered entries, a sparse index,
// and a footer pointing at that index. This mirrors the sparse-index design
// other_examples' decoesp-escabelo sstable sketch uses (an in-memory index
// sampling every Nth entry, newest-file-wins lookups) generalized to the
// fixed binary layout spec.md §4.4 requires.
package sstable

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/leengari/ksdb/internal/storeerr"
)

var (
	headerMagic = [7]byte{'B', 'Z', 'S', 'T', '0', '0', '1'}
	indexMagic  = [7]byte{'B', 'Z', 'I', 'X', '0', '0', '1'}
	footerMagic = [8]byte{'B', 'Z', 'E', 'N', 'D', '0', '0', '1'}

	writerVersion uint32 = 1
)

const footerSize = 8 + 1 + 8 // magic(8) + pad(1) + index_start_offset(8)

// Entry is one (key, seq, value) triple as stored in an SSTable. An empty
// Value marks a tombstone.
type Entry struct {
	Key   []byte
	Seq   uint64
	Value []byte
}

// DefaultIndexStride is the index granularity used when the configured
// stride is zero (spec.md §4.4/§8: "sstableIndexStride = 0 behaves as 16").
const DefaultIndexStride = 16

// Write encodes entries (which must already be sorted ascending by Key) to
// path, sampling one index entry per stride entries plus the first. Callers
// are expected to write to a temporary path and rename into place
// atomically; this function does not do the rename itself.
func Write(path string, entries []Entry, stride int) error {
	const op = "sstable_write"
	if stride <= 0 {
		stride = DefaultIndexStride
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return storeerr.Wrap(op, storeerr.KindCannotWriteSSTable, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)

	if _, err := w.Write(headerMagic[:]); err != nil {
		return storeerr.Wrap(op, storeerr.KindCannotWriteSSTable, err)
	}
	if err := w.WriteByte(0); err != nil {
		return storeerr.Wrap(op, storeerr.KindCannotWriteSSTable, err)
	}
	if err := writeU32(w, writerVersion); err != nil {
		return storeerr.Wrap(op, storeerr.KindCannotWriteSSTable, err)
	}
	if err := writeU64(w, uint64(len(entries))); err != nil {
		return storeerr.Wrap(op, storeerr.KindCannotWriteSSTable, err)
	}

	type indexEntry struct {
		key    []byte
		offset uint64
	}
	var index []indexEntry
	offset := uint64(7 + 1 + 4 + 8)

	for i, e := range entries {
		if i%stride == 0 {
			index = append(index, indexEntry{key: e.Key, offset: offset})
		}
		n, err := writeEntry(w, e)
		if err != nil {
			return storeerr.Wrap(op, storeerr.KindCannotWriteSSTable, err)
		}
		offset += uint64(n)
	}

	indexStart := offset
	if _, err := w.Write(indexMagic[:]); err != nil {
		return storeerr.Wrap(op, storeerr.KindCannotWriteSSTable, err)
	}
	if err := w.WriteByte(0); err != nil {
		return storeerr.Wrap(op, storeerr.KindCannotWriteSSTable, err)
	}
	if err := writeU64(w, uint64(len(index))); err != nil {
		return storeerr.Wrap(op, storeerr.KindCannotWriteSSTable, err)
	}
	for _, ie := range index {
		if err := writeU32(w, uint32(len(ie.key))); err != nil {
			return storeerr.Wrap(op, storeerr.KindCannotWriteSSTable, err)
		}
		if _, err := w.Write(ie.key); err != nil {
			return storeerr.Wrap(op, storeerr.KindCannotWriteSSTable, err)
		}
		if err := writeU64(w, ie.offset); err != nil {
			return storeerr.Wrap(op, storeerr.KindCannotWriteSSTable, err)
		}
	}

	if _, err := w.Write(footerMagic[:]); err != nil {
		return storeerr.Wrap(op, storeerr.KindCannotWriteSSTable, err)
	}
	if err := w.WriteByte(0); err != nil {
		return storeerr.Wrap(op, storeerr.KindCannotWriteSSTable, err)
	}
	if err := writeU64(w, indexStart); err != nil {
		return storeerr.Wrap(op, storeerr.KindCannotWriteSSTable, err)
	}

	if err := w.Flush(); err != nil {
		return storeerr.Wrap(op, storeerr.KindCannotWriteSSTable, err)
	}
	return f.Sync()
}

func writeEntry(w io.Writer, e Entry) (int, error) {
	var buf []byte
	buf = appendU32(buf, uint32(len(e.Key)))
	buf = append(buf, e.Key...)
	buf = appendU64(buf, e.Seq)
	buf = appendU32(buf, uint32(len(e.Value)))
	buf = append(buf, e.Value...)
	n, err := w.Write(buf)
	return n, err
}

func writeU32(w io.Writer, v uint32) error {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func writeU64(w io.Writer, v uint64) error {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func appendU32(dst []byte, v uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return append(dst, b[:]...)
}

func appendU64(dst []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(dst, b[:]...)
}

// indexEntry is one sampled (key, byte_offset) pair held in memory by a
// Reader.
type indexEntry struct {
	key    []byte
	offset uint64
}

// Reader holds an SSTable's sparse index in memory; the underlying file is
// closed between calls and reopened on demand for point lookups and scans.
type Reader struct {
	path  string
	index []indexEntry
}

// Open validates the footer and index and loads the index into memory. The
// file is closed before Open returns.
func Open(path string) (*Reader, error) {
	const op = "sstable_open"
	f, err := os.Open(path)
	if err != nil {
		return nil, storeerr.Wrap(op, storeerr.KindReadFailed, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, storeerr.Wrap(op, storeerr.KindReadFailed, err)
	}
	if info.Size() < int64(footerSize) {
		return nil, storeerr.New(op, storeerr.KindSSTableTooSmall)
	}

	footer := make([]byte, footerSize)
	if _, err := f.ReadAt(footer, info.Size()-int64(footerSize)); err != nil {
		return nil, storeerr.Wrap(op, storeerr.KindReadFailed, err)
	}
	if !bytes.Equal(footer[:8], footerMagic[:]) {
		return nil, storeerr.New(op, storeerr.KindBadSSTableFooter)
	}
	indexStart := binary.BigEndian.Uint64(footer[9:17])
	if indexStart >= uint64(info.Size()) {
		return nil, storeerr.New(op, storeerr.KindBadSSTableFooter)
	}

	indexBytes := make([]byte, int64(info.Size())-int64(footerSize)-int64(indexStart))
	if _, err := f.ReadAt(indexBytes, int64(indexStart)); err != nil {
		return nil, storeerr.Wrap(op, storeerr.KindReadFailed, err)
	}
	if len(indexBytes) < 7+1+8 ||!bytes.Equal(indexBytes[:7], indexMagic[:]) {
		return nil, storeerr.New(op, storeerr.KindBadIndex)
	}
	count := binary.BigEndian.Uint64(indexBytes[8:16])
	rest := indexBytes[16:]

	index := make([]indexEntry, 0, count)
	for i := uint64(0); i < count; i++ {
		if len(rest) < 4 {
			return nil, storeerr.New(op, storeerr.KindBadIndex)
		}
		keyLen := binary.BigEndian.Uint32(rest[:4])
		rest = rest[4:]
		if uint64(len(rest)) < uint64(keyLen)+8 {
			return nil, storeerr.New(op, storeerr.KindBadIndex)
		}
		key := append([]byte(nil), rest[:keyLen]...)
		rest = rest[keyLen:]
		offset := binary.BigEndian.Uint64(rest[:8])
		rest = rest[8:]
		index = append(index, indexEntry{key: key, offset: offset})
	}

	return &Reader{path: path, index: index}, nil
}

// Get looks up key, returning (value, true) on a hit. A hit with an empty
// value is still a hit (the caller must interpret empty-as-tombstone).
func (r *Reader) Get(key []byte) (value []byte, found bool, err error) {
	const op = "sstable_get"
	if len(r.index) == 0 {
		return nil, false, nil
	}

	i := sort.Search(len(r.index), func(i int) bool {
		return compareBytes(r.index[i].key, key) > 0
	})
	if i == 0 {
		return nil, false, nil
	}
	floor := r.index[i-1]

	f, err := os.Open(r.path)
	if err != nil {
		return nil, false, storeerr.Wrap(op, storeerr.KindReadFailed, err)
	}
	defer f.Close()

	if _, err := f.Seek(int64(floor.offset), io.SeekStart); err != nil {
		return nil, false, storeerr.Wrap(op, storeerr.KindReadFailed, err)
	}
	br := bufio.NewReader(f)

	for {
		k, _, v, ok, err := readEntry(br)
		if err != nil {
			return nil, false, storeerr.Wrap(op, storeerr.KindReadFailed, err)
		}
		if !ok {
			return nil, false, nil
		}
		cmp := compareBytes(k, key)
		if cmp == 0 {
			return v, true, nil
		}
		if cmp > 0 {
			return nil, false, nil
		}
	}
}

// ScanAll reads every entry in the table in file order (ascending key).
func (r *Reader) ScanAll() ([]Entry, error) {
	const op = "sstable_scan_all"
	f, err := os.Open(r.path)
	if err != nil {
		return nil, storeerr.Wrap(op, storeerr.KindReadFailed, err)
	}
	defer f.Close()

	header := make([]byte, 7+1+4+8)
	if _, err := io.ReadFull(f, header); err != nil {
		return nil, storeerr.Wrap(op, storeerr.KindReadFailed, err)
	}
	if !bytes.Equal(header[:7], headerMagic[:]) {
		return nil, storeerr.New(op, storeerr.KindBadSSTableFooter)
	}
	count := binary.BigEndian.Uint64(header[12:20])

	br := bufio.NewReader(f)
	entries := make([]Entry, 0, count)
	for i := uint64(0); i < count; i++ {
		k, seq, v, ok, err := readEntry(br)
		if err != nil {
			return nil, storeerr.Wrap(op, storeerr.KindReadFailed, err)
		}
		if !ok {
			return nil, storeerr.New(op, storeerr.KindBadRow)
		}
		entries = append(entries, Entry{Key: k, Seq: seq, Value: v})
	}
	return entries, nil
}

// readEntry reads one (key, seq, value) triple. ok is false when the next
// 7 bytes match the index magic (end of entries) rather than a key length.
func readEntry(br *bufio.Reader) (key []byte, seq uint64, value []byte, ok bool, err error) {
	if peek, perr := br.Peek(7); perr == nil && bytes.Equal(peek, indexMagic[:]) {
		return nil, 0, nil, false, nil
	}

	var lenBuf [4]byte
	if _, err := io.ReadFull(br, lenBuf[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, 0, nil, false, nil
		}
		return nil, 0, nil, false, err
	}
	keyLen := binary.BigEndian.Uint32(lenBuf[:])
	key = make([]byte, keyLen)
	if _, err := io.ReadFull(br, key); err != nil {
		return nil, 0, nil, false, err
	}

	var seqBuf [8]byte
	if _, err := io.ReadFull(br, seqBuf[:]); err != nil {
		return nil, 0, nil, false, err
	}
	seq = binary.BigEndian.Uint64(seqBuf[:])

	var valLenBuf [4]byte
	if _, err := io.ReadFull(br, valLenBuf[:]); err != nil {
		return nil, 0, nil, false, err
	}
	valLen := binary.BigEndian.Uint32(valLenBuf[:])
	value = make([]byte, valLen)
	if _, err := io.ReadFull(br, value); err != nil {
		return nil, 0, nil, false, err
	}

	return key, seq, value, true, nil
}

func compareBytes(a, b []byte) int {
	return bytes.Compare(a, b)
}

// FileName builds the zero-padded SSTable file name for generation gen.
func FileName(gen uint64) string {
	return fmt.Sprintf("sstable-%06d.bin", gen)
}
