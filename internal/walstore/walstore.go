// Package walstore implements the per-table write-ahead log: a header
// followed by a sequence of length-prefixed, CRC-protected records. Unlike
// the row/SSTable codecs, WAL integers are little-endian (the host's native
// layout, per the Open Question decision recorded in DESIGN.md), matching
// the teacher's own internal/wal package, which this is grounded on.
package walstore

import (
	"bytes"
	"encoding/binary"
	"io"
	"os"
	"sync"

	"github.com/leengari/ksdb/internal/codec"
	"github.com/leengari/ksdb/internal/storeerr"
)

var headerMagic = [8]byte{'B', 'Z', 'W', 'A', 'L', '0', '0', '2'}

const (
	headerVersion uint32 = 2
	headerSize           = 8 + 1 + 4 // magic + pad + version
)

// Record is one replayed WAL entry.
type Record struct {
	Seq   uint64
	Key   []byte
	Value []byte
}

// WAL is an open, append-only commit log for one table.
type WAL struct {
	mu              sync.Mutex
	f               *os.File
	path            string
	bytesSinceFsync uint64
	dirty           bool
}

// OpenOrCreate opens path as a WAL. truncate=true always starts a fresh
// file with a new header. truncate=false validates the existing header and
// silently truncates-and-recreates on any magic or version mismatch (or on
// an empty/missing file), rather than failing the open — spec.md treats a
// corrupt or absent WAL header as "start fresh", not an error.
func OpenOrCreate(path string, truncate bool) (*WAL, error) {
	const op = "wal_open_or_create"

	if truncate {
		return createFresh(op, path)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, storeerr.Wrap(op, storeerr.KindCannotOpenCommitlog, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, storeerr.Wrap(op, storeerr.KindCannotOpenCommitlog, err)
	}
	if info.Size() == 0 {
		if err := writeHeader(f); err != nil {
			f.Close()
			return nil, storeerr.Wrap(op, storeerr.KindCannotOpenCommitlog, err)
		}
		return &WAL{f: f, path: path}, nil
	}

	header := make([]byte, headerSize)
	if _, err := f.ReadAt(header, 0); err != nil {
		f.Close()
		return createFresh(op, path)
	}
	if !bytes.Equal(header[:8], headerMagic[:]) || binary.LittleEndian.Uint32(header[9:13]) != headerVersion {
		f.Close()
		return createFresh(op, path)
	}

	return &WAL{f: f, path: path}, nil
}

func createFresh(op, path string) (*WAL, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC|os.O_APPEND, 0o644)
	if err != nil {
		return nil, storeerr.Wrap(op, storeerr.KindCannotOpenCommitlog, err)
	}
	if err := writeHeader(f); err != nil {
		f.Close()
		return nil, storeerr.Wrap(op, storeerr.KindCannotOpenCommitlog, err)
	}
	return &WAL{f: f, path: path}, nil
}

func writeHeader(f *os.File) error {
	buf := make([]byte, 0, headerSize)
	buf = append(buf, headerMagic[:]...)
	buf = append(buf, 0)
	var v [4]byte
	binary.LittleEndian.PutUint32(v[:], headerVersion)
	buf = append(buf, v[:]...)
	_, err := f.Write(buf)
	return err
}

// Append writes one record: seq, key, value, followed by a CRC32 over the
// record's own header-through-value bytes.
func (w *WAL) Append(seq uint64, key, value []byte) error {
	const op = "wal_append"
	w.mu.Lock()
	defer w.mu.Unlock()

	body := make([]byte, 0, 8+4+4+len(key)+len(value))
	body = appendU64LE(body, seq)
	body = appendU32LE(body, uint32(len(key)))
	body = appendU32LE(body, uint32(len(value)))
	body = append(body, key...)
	body = append(body, value...)

	crc := codec.CRC32(body)
	record := appendU32LE(body, crc)

	n, err := w.f.Write(record)
	if err != nil {
		return storeerr.Wrap(op, storeerr.KindWriteFailed, err)
	}
	w.bytesSinceFsync += uint64(n)
	w.dirty = true
	return nil
}

// FsyncNow fsyncs the underlying file and clears the dirty/byte counters.
func (w *WAL) FsyncNow() error {
	const op = "wal_fsync_now"
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.f.Sync(); err != nil {
		return storeerr.Wrap(op, storeerr.KindFsyncFailed, err)
	}
	w.bytesSinceFsync = 0
	w.dirty = false
	return nil
}

// BytesSinceFsync reports bytes appended since the last FsyncNow.
func (w *WAL) BytesSinceFsync() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.bytesSinceFsync
}

// IsDirty reports whether any appends are unsynced.
func (w *WAL) IsDirty() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.dirty
}

// Close closes the underlying file.
func (w *WAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.f.Close()
}

// ScanRecords opens path read-only and replays every well-formed record in
// order. Replay stops — without error — at the first short read, header
// mismatch, or CRC failure, per spec.md §4.8's recovery policy: a corrupt
// tail is simply dropped, not a fatal error.
func ScanRecords(path string) ([]Record, error) {
	const op = "wal_scan_records"
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, storeerr.Wrap(op, storeerr.KindReadFailed, err)
	}
	defer f.Close()

	header := make([]byte, headerSize)
	if _, err := io.ReadFull(f, header); err != nil {
		return nil, nil
	}
	if !bytes.Equal(header[:8], headerMagic[:]) || binary.LittleEndian.Uint32(header[9:13]) != headerVersion {
		return nil, nil
	}

	var records []Record
	for {
		rec, ok := readOneRecord(f)
		if !ok {
			break
		}
		records = append(records, rec)
	}
	return records, nil
}

// readOneRecord reads and CRC-validates a single record. ok is false on any
// short read or CRC mismatch.
func readOneRecord(f *os.File) (Record, bool) {
	fixed := make([]byte, 8+4+4)
	if _, err := io.ReadFull(f, fixed); err != nil {
		return Record{}, false
	}
	seq := binary.LittleEndian.Uint64(fixed[0:8])
	keyLen := binary.LittleEndian.Uint32(fixed[8:12])
	valLen := binary.LittleEndian.Uint32(fixed[12:16])

	keyVal := make([]byte, keyLen+valLen)
	if _, err := io.ReadFull(f, keyVal); err != nil {
		return Record{}, false
	}

	crcBuf := make([]byte, 4)
	if _, err := io.ReadFull(f, crcBuf); err != nil {
		return Record{}, false
	}
	wantCRC := binary.LittleEndian.Uint32(crcBuf)

	body := make([]byte, 0, len(fixed)+len(keyVal))
	body = append(body, fixed...)
	body = append(body, keyVal...)
	if codec.CRC32(body) != wantCRC {
		return Record{}, false
	}

	return Record{
		Seq:   seq,
		Key:   append([]byte(nil), keyVal[:keyLen]...),
		Value: append([]byte(nil), keyVal[keyLen:]...),
	}, true
}

func appendU32LE(dst []byte, v uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return append(dst, b[:]...)
}

func appendU64LE(dst []byte, v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return append(dst, b[:]...)
}
