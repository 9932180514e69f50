// Package keyspace implements the per-keyspace table-name-to-UUID registry
// (spec.md §4.9): a small atomically-rewritten schema.bin file, plus a
// directory-scan fallback for recovering a table's UUID when the registry
// and the on-disk layout disagree.
package keyspace

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/leengari/ksdb/internal/storeerr"
)

var headerMagic = [7]byte{'B', 'Z', 'S', 'C', '0', '0', '1'}

const headerVersion uint32 = 1
const headerLen = 7 + 1 + 4 // magic + pad + version

// FindTableUUIDFromSchema reads path and returns table's UUID, if present.
// A missing or unreadable file is treated as an empty registry, not an
// error, per spec.md §4.9.
func FindTableUUIDFromSchema(path, table string) (uuid string, found bool) {
	entries := readSchema(path)
	uuid, found = entries[table]
	return uuid, found
}

// UpsertTableUUID sets table's UUID in path's registry, rewriting the whole
// file atomically. Existing entries for other tables are preserved.
func UpsertTableUUID(path, table, uuid string) error {
	entries := readSchema(path)
	if entries == nil {
		entries = make(map[string]string)
	}
	entries[table] = uuid
	return writeSchemaAtomic(path, entries)
}

// RemoveTableFromSchema deletes table's entry from path's registry if
// present, rewriting the file atomically. Reports whether the entry existed.
func RemoveTableFromSchema(path, table string) (existed bool, err error) {
	entries := readSchema(path)
	if entries == nil {
		return false, nil
	}
	if _, ok := entries[table]; !ok {
		return false, nil
	}
	delete(entries, table)
	if err := writeSchemaAtomic(path, entries); err != nil {
		return false, err
	}
	return true, nil
}

// FindTableUUIDByScan is the directory-scan fallback: it walks dir looking
// for a subdirectory named "<table>-<uuid>" and recovers uuid from the
// suffix, used when the registry is missing or stale.
func FindTableUUIDByScan(dir, table string) (uuid string, found bool) {
	infos, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}
	prefix := table + "-"
	for _, info := range infos {
		if !info.IsDir() {
			continue
		}
		name := info.Name()
		if strings.HasPrefix(name, prefix) && len(name) > len(prefix) {
			return name[len(prefix):], true
		}
	}
	return "", false
}

// ListKeyspaces returns the sorted list of immediate subdirectories of
// dataDir whose names match the ASCII identifier pattern.
func ListKeyspaces(dataDir string) []string {
	return listIdentifierDirs(dataDir, func(name string) (string, bool) {
		if !isIdentifier(name) {
			return "", false
		}
		return name, true
	})
}

// ListTables returns the sorted, deduplicated list of table names found in
// <dataDir>/<keyspace>, derived from subdirectories named "<table>-<rest>"
// where table is a valid identifier.
func ListTables(dataDir, keyspaceName string) []string {
	return listIdentifierDirs(filepath.Join(dataDir, keyspaceName), func(name string) (string, bool) {
		idx := strings.LastIndex(name, "-")
		if idx <= 0 {
			return "", false
		}
		table := name[:idx]
		if !isIdentifier(table) {
			return "", false
		}
		return table, true
	})
}

func listIdentifierDirs(dir string, extract func(name string) (string, bool)) []string {
	infos, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	seen := make(map[string]struct{})
	for _, info := range infos {
		if !info.IsDir() {
			continue
		}
		if name, ok := extract(info.Name()); ok {
			seen[name] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// isIdentifier reports whether name matches [A-Za-z_][A-Za-z0-9_]*.
func isIdentifier(name string) bool {
	if len(name) == 0 {
		return false
	}
	first := name[0]
	if !(first == '_' || (first >= 'a' && first <= 'z') || (first >= 'A' && first <= 'Z')) {
		return false
	}
	for i := 1; i < len(name); i++ {
		c := name[i]
		if !(c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')) {
			return false
		}
	}
	return true
}

func readSchema(path string) map[string]string {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	if len(data) < headerLen+8 {
		return nil
	}
	if !bytes.Equal(data[:7], headerMagic[:]) {
		return nil
	}
	if binary.LittleEndian.Uint32(data[8:12]) != headerVersion {
		return nil
	}
	pos := headerLen
	count := binary.LittleEndian.Uint64(data[pos : pos+8])
	pos += 8

	entries := make(map[string]string, count)
	for i := uint64(0); i < count; i++ {
		name, next, ok := readString(data, pos)
		if !ok {
			return nil
		}
		pos = next
		uuid, next, ok := readString(data, pos)
		if !ok {
			return nil
		}
		pos = next
		entries[name] = uuid
	}
	return entries
}

func readString(data []byte, pos int) (s string, next int, ok bool) {
	if pos+4 > len(data) {
		return "", pos, false
	}
	n := int(binary.LittleEndian.Uint32(data[pos : pos+4]))
	pos += 4
	if n < 0 || pos+n > len(data) {
		return "", pos, false
	}
	return string(data[pos : pos+n]), pos + n, true
}

func writeSchemaAtomic(path string, entries map[string]string) error {
	const op = "write_keyspace_schema"

	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)

	buf := make([]byte, 0, 256)
	buf = append(buf, headerMagic[:]...)
	buf = append(buf, 0)
	buf = appendU32(buf, headerVersion)
	buf = appendU64(buf, uint64(len(names)))
	for _, name := range names {
		buf = appendString(buf, name)
		buf = appendString(buf, entries[name])
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, buf, 0o644); err != nil {
		return storeerr.Wrap(op, storeerr.KindWriteFailed, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return storeerr.Wrap(op, storeerr.KindWriteFailed, err)
	}
	return nil
}

func appendU32(buf []byte, v uint32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendU64(buf []byte, v uint64) []byte {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendString(buf []byte, s string) []byte {
	buf = appendU32(buf, uint32(len(s)))
	return append(buf, s...)
}
