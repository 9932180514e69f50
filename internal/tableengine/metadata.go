package tableengine

import (
	"encoding/binary"
	"os"
	"time"

	"github.com/leengari/ksdb/internal/schema"
	"github.com/leengari/ksdb/internal/storeerr"
)

var metadataMagic = [7]byte{'B', 'Z', 'M', 'D', '0', '0', '2'}

const metadataVersion uint32 = 2

type metadataRecord struct {
	UUID         string
	Keyspace     string
	Table        string
	CreationTime time.Time
	Schema       *schema.Schema
}

func writeMetadata(path string, m metadataRecord) error {
	const op = "write_metadata"

	var buf []byte
	buf = append(buf, metadataMagic[:]...)
	buf = append(buf, 0)
	buf = appendU32LE(buf, metadataVersion)
	buf = appendStringLE(buf, m.UUID)
	buf = appendStringLE(buf, m.Keyspace)
	buf = appendStringLE(buf, m.Table)
	buf = appendU64LE(buf, uint64(m.CreationTime.Unix()))
	buf = appendU32LE(buf, uint32(m.Schema.PrimaryKeyIndex))
	buf = appendU32LE(buf, uint32(len(m.Schema.Columns)))
	for _, col := range m.Schema.Columns {
		buf = appendStringLE(buf, col.Name)
		buf = append(buf, byte(col.Type))
	}

	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return storeerr.Wrap(op, storeerr.KindCannotWriteMetadata, err)
	}
	return nil
}

func readMetadata(path string) (metadataRecord, error) {
	const op = "read_metadata"
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return metadataRecord{}, storeerr.New(op, storeerr.KindMissingMetadata)
		}
		return metadataRecord{}, storeerr.Wrap(op, storeerr.KindReadFailed, err)
	}

	if len(data) < 12 {
		return metadataRecord{}, storeerr.New(op, storeerr.KindBadMetadata)
	}
	if string(data[:7]) != string(metadataMagic[:]) {
		return metadataRecord{}, storeerr.New(op, storeerr.KindBadMetadata)
	}
	if binary.LittleEndian.Uint32(data[8:12]) != metadataVersion {
		return metadataRecord{}, storeerr.New(op, storeerr.KindBadMetadata)
	}
	rest := data[12:]

	uuid, rest, err := getStringLE(rest)
	if err != nil {
		return metadataRecord{}, storeerr.Wrap(op, storeerr.KindBadMetadata, err)
	}
	keyspace, rest, err := getStringLE(rest)
	if err != nil {
		return metadataRecord{}, storeerr.Wrap(op, storeerr.KindBadMetadata, err)
	}
	table, rest, err := getStringLE(rest)
	if err != nil {
		return metadataRecord{}, storeerr.Wrap(op, storeerr.KindBadMetadata, err)
	}
	if len(rest) < 8 {
		return metadataRecord{}, storeerr.New(op, storeerr.KindBadMetadata)
	}
	creationSeconds := binary.LittleEndian.Uint64(rest[:8])
	rest = rest[8:]

	if len(rest) < 8 {
		return metadataRecord{}, storeerr.New(op, storeerr.KindBadMetadata)
	}
	pkIndex := binary.LittleEndian.Uint32(rest[:4])
	colCount := binary.LittleEndian.Uint32(rest[4:8])
	rest = rest[8:]

	cols := make([]schema.Column, 0, colCount)
	for i := uint32(0); i < colCount; i++ {
		name, next, err := getStringLE(rest)
		if err != nil {
			return metadataRecord{}, storeerr.Wrap(op, storeerr.KindBadMetadata, err)
		}
		if len(next) < 1 {
			return metadataRecord{}, storeerr.New(op, storeerr.KindBadMetadata)
		}
		colType := schema.ColumnType(next[0])
		rest = next[1:]
		cols = append(cols, schema.Column{Name: name, Type: colType})
	}

	sch := &schema.Schema{Columns: cols, PrimaryKeyIndex: int(pkIndex)}
	if err := sch.Validate(); err != nil {
		return metadataRecord{}, storeerr.Wrap(op, storeerr.KindBadMetadata, err)
	}

	return metadataRecord{
		UUID:         uuid,
		Keyspace:     keyspace,
		Table:        table,
		CreationTime: time.Unix(int64(creationSeconds), 0).UTC(),
		Schema:       sch,
	}, nil
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

func appendStringLE(dst []byte, s string) []byte {
	dst = appendU32LE(dst, uint32(len(s)))
	return append(dst, s...)
}

func getStringLE(b []byte) (string, []byte, error) {
	if len(b) < 4 {
		return "", b, storeerr.New("get_string", storeerr.KindBadMetadata)
	}
	n := binary.LittleEndian.Uint32(b[:4])
	rest := b[4:]
	if uint64(len(rest)) < uint64(n) {
		return "", b, storeerr.New("get_string", storeerr.KindBadMetadata)
	}
	return string(rest[:n]), rest[n:], nil
}
