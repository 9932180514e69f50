// Package manifest implements the per-table manifest: the compact,
// atomically-rewritten file that lists the current SSTable set and two
// monotonic counters, acting as the root of a table's on-disk truth
// (spec.md §4.7). Like walstore, metadata and keyspace schema files, it
// uses little-endian integers rather than internal/codec's big-endian
// convention — see the Open Question decision in DESIGN.md.
package manifest

import (
	"bytes"
	"encoding/binary"
	"os"

	"github.com/leengari/ksdb/internal/storeerr"
)

var headerMagic = [7]byte{'B', 'Z', 'M', 'F', '0', '0', '1'}

const (
	version   uint32 = 1
	headerLen        = 7 + 1 + 4
)

// Manifest is a table's current SSTable set plus bookkeeping counters. The
// order of SSTableFiles is creation order: oldest first, newest last.
type Manifest struct {
	LastFlushedSeq uint64
	NextSstableGen uint64
	SSTableFiles   []string
}

// Default returns the manifest a brand-new or unreadable table starts
// from: no flushed sequence, generation counter at 1, no files.
func Default() *Manifest {
	return &Manifest{LastFlushedSeq: 0, NextSstableGen: 1}
}

// Read loads a manifest from path. A missing file or a corrupt/mismatched
// header yields Default() rather than an error, per spec.md §4.7.
func Read(path string) *Manifest {
	data, err := os.ReadFile(path)
	if err != nil {
		return Default()
	}
	if len(data) < headerLen {
		return Default()
	}
	if !bytes.Equal(data[:7], headerMagic[:]) {
		return Default()
	}
	if binary.LittleEndian.Uint32(data[8:12]) != version {
		return Default()
	}
	rest := data[headerLen:]

	if len(rest) < 24 {
		return Default()
	}
	last := binary.LittleEndian.Uint64(rest[0:8])
	nextGen := binary.LittleEndian.Uint64(rest[8:16])
	count := binary.LittleEndian.Uint64(rest[16:24])
	rest = rest[24:]

	files := make([]string, 0, count)
	for i := uint64(0); i < count; i++ {
		if len(rest) < 4 {
			return Default()
		}
		n := binary.LittleEndian.Uint32(rest[:4])
		rest = rest[4:]
		if uint64(len(rest)) < uint64(n) {
			return Default()
		}
		files = append(files, string(rest[:n]))
		rest = rest[n:]
	}

	return &Manifest{LastFlushedSeq: last, NextSstableGen: nextGen, SSTableFiles: files}
}

// WriteAtomic writes m to path.tmp and renames it into place.
func WriteAtomic(path string, m *Manifest) error {
	const op = "write_manifest_atomic"

	buf := make([]byte, 0, headerLen+24)
	buf = append(buf, headerMagic[:]...)
	buf = append(buf, 0)
	buf = appendU32(buf, version)
	buf = appendU64(buf, m.LastFlushedSeq)
	buf = appendU64(buf, m.NextSstableGen)
	buf = appendU64(buf, uint64(len(m.SSTableFiles)))
	for _, name := range m.SSTableFiles {
		buf = appendU32(buf, uint32(len(name)))
		buf = append(buf, name...)
	}

	tmpPath := path + ".tmp"
	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return storeerr.Wrap(op, storeerr.KindCannotWriteManifest, err)
	}
	if _, err := f.Write(buf); err != nil {
		f.Close()
		return storeerr.Wrap(op, storeerr.KindCannotWriteManifest, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return storeerr.Wrap(op, storeerr.KindCannotWriteManifest, err)
	}
	if err := f.Close(); err != nil {
		return storeerr.Wrap(op, storeerr.KindCannotWriteManifest, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return storeerr.Wrap(op, storeerr.KindCannotWriteManifest, err)
	}
	return nil
}

func appendU32(dst []byte, v uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return append(dst, b[:]...)
}

func appendU64(dst []byte, v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return append(dst, b[:]...)
}
