package rowcodec

import (
	"github.com/leengari/ksdb/internal/codec"
	"github.com/leengari/ksdb/internal/schema"
	"github.com/leengari/ksdb/internal/storeerr"
)

// rowVersion is the only row-bytes format version this codec emits or
// accepts.
const rowVersion uint32 = 1

// RowBytes encodes the non-primary-key columns of a row into the canonical
// row-bytes format: a u32 version, then one entry per schema column other
// than the primary key, in schema order — a 1-byte null marker, and, when
// not null, the column's value (length-prefixed for char/text/blob,
// length-free big-endian for scalar types). colNames/values give the
// columns actually supplied by the caller (e.g. an INSERT's column list);
// any schema column absent from colNames is stored as null.
func RowBytes(sch *schema.Schema, colNames []string, values []Literal) ([]byte, error) {
	const op = "row_bytes"
	if len(colNames) != len(values) {
		return nil, storeerr.New(op, storeerr.KindBadRow)
	}

	given := make(map[string]Literal, len(colNames))
	for i, name := range colNames {
		if _, _, ok := sch.ColumnByName(name); !ok {
			return nil, storeerr.New(op, storeerr.KindUnknownColumn)
		}
		if _, dup := given[name]; dup {
			return nil, storeerr.New(op, storeerr.KindDuplicateColumn)
		}
		given[name] = values[i]
	}

	out := codec.PutU32(nil, rowVersion)
	for i, col := range sch.Columns {
		if i == sch.PrimaryKeyIndex {
			continue
		}
		lit, ok := given[col.Name]
		if !ok || lit.Kind == LitNull {
			out = append(out, 1)
			continue
		}
		raw, err := literalToRawBytes(op, col.Type, lit, false)
		if err != nil {
			return nil, err
		}
		out = append(out, 0)
		if isVariableWidth(col.Type) {
			out = codec.PutBytes(out, raw)
		} else {
			out = append(out, raw...)
		}
	}
	return out, nil
}

// decodedField is one non-primary-key column's decoded state: either null,
// or present with its raw value bytes.
type decodedField struct {
	null bool
	raw  []byte
}

// decodeRowBytes parses row bytes back into a map from column name to its
// decoded field, validating the version header.
func decodeRowBytes(sch *schema.Schema, rowBytes []byte) (map[string]decodedField, error) {
	const op = "decode_row_bytes"
	version, rest, err := codec.GetU32(rowBytes)
	if err != nil {
		return nil, storeerr.Wrap(op, storeerr.KindBadRow, err)
	}
	if version != rowVersion {
		return nil, storeerr.New(op, storeerr.KindBadRowVersion)
	}

	out := make(map[string]decodedField, len(sch.Columns))
	for i, col := range sch.Columns {
		if i == sch.PrimaryKeyIndex {
			continue
		}
		if len(rest) < 1 {
			return nil, storeerr.New(op, storeerr.KindBadRow)
		}
		marker := rest[0]
		rest = rest[1:]
		if marker == 1 {
			out[col.Name] = decodedField{null: true}
			continue
		}
		if marker != 0 {
			return nil, storeerr.New(op, storeerr.KindBadRow)
		}

		var raw []byte
		if isVariableWidth(col.Type) {
			raw, rest, err = codec.GetBytes(rest)
			if err != nil {
				return nil, storeerr.Wrap(op, storeerr.KindBadRow, err)
			}
		} else {
			width := fixedWidth(col.Type)
			if len(rest) < width {
				return nil, storeerr.New(op, storeerr.KindBadRow)
			}
			raw, rest = rest[:width], rest[width:]
		}
		out[col.Name] = decodedField{raw: raw}
	}
	return out, nil
}

func fixedWidth(t schema.ColumnType) int {
	switch t {
	case schema.TypeInt32, schema.TypeFloat32, schema.TypeDate:
		return 4
	case schema.TypeInt64, schema.TypeTimestamp:
		return 8
	case schema.TypeBoolean:
		return 1
	default:
		return 0
	}
}

// MergeRowBytesForUpdate applies an UPDATE's SET list to an existing row's
// bytes and re-emits the full row-bytes encoding. The primary-key column may
// not appear in setCols (cannot_update_pk); every name must be a known,
// non-primary-key column (unknown_column), and no name may repeat
// (duplicate_column).
func MergeRowBytesForUpdate(sch *schema.Schema, existing []byte, setCols []string, setVals []Literal) ([]byte, error) {
	const op = "merge_row_bytes_for_update"
	if len(setCols) != len(setVals) {
		return nil, storeerr.New(op, storeerr.KindBadRow)
	}

	// No existing row: unset columns become null rather than reading back
	// bytes that don't exist.
	var decoded map[string]decodedField
	if existing == nil {
		decoded = make(map[string]decodedField, len(sch.Columns))
		for i, col := range sch.Columns {
			if i == sch.PrimaryKeyIndex {
				continue
			}
			decoded[col.Name] = decodedField{null: true}
		}
	} else {
		var err error
		decoded, err = decodeRowBytes(sch, existing)
		if err != nil {
			return nil, err
		}
	}

	pkName := sch.PrimaryKeyColumn().Name
	seen := make(map[string]struct{}, len(setCols))
	sets := make(map[string]Literal, len(setCols))
	for i, name := range setCols {
		if name == pkName {
			return nil, storeerr.New(op, storeerr.KindCannotUpdatePK)
		}
		if _, _, ok := sch.ColumnByName(name); !ok {
			return nil, storeerr.New(op, storeerr.KindUnknownColumn)
		}
		if _, dup := seen[name]; dup {
			return nil, storeerr.New(op, storeerr.KindDuplicateColumn)
		}
		seen[name] = struct{}{}
		sets[name] = setVals[i]
	}

	out := codec.PutU32(nil, rowVersion)
	for i, col := range sch.Columns {
		if i == sch.PrimaryKeyIndex {
			continue
		}
		if lit, ok := sets[col.Name]; ok {
			if lit.Kind == LitNull {
				out = append(out, 1)
				continue
			}
			raw, err := literalToRawBytes(op, col.Type, lit, false)
			if err != nil {
				return nil, err
			}
			out = append(out, 0)
			if isVariableWidth(col.Type) {
				out = codec.PutBytes(out, raw)
			} else {
				out = append(out, raw...)
			}
			continue
		}

		field := decoded[col.Name]
		if field.null {
			out = append(out, 1)
			continue
		}
		out = append(out, 0)
		if isVariableWidth(col.Type) {
			out = codec.PutBytes(out, field.raw)
		} else {
			out = append(out, field.raw...)
		}
	}
	return out, nil
}
