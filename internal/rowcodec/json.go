package rowcodec

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"math"
	"time"

	"github.com/leengari/ksdb/internal/codec"
	"github.com/leengari/ksdb/internal/schema"
	"github.com/leengari/ksdb/internal/storeerr"
)

// SelectPair names one column to include in a row_to_json_mapped reply and
// the JSON key to emit it under.
type SelectPair struct {
	Alias  string
	Column string
}

// RowToJSONMapped builds the compact JSON object for a single row: pairs
// lists the columns to include, in the order they should appear in the
// object, each under its own Alias. The primary-key column is decoded from
// pkBytes; every other column is decoded from rowBytes.
func RowToJSONMapped(sch *schema.Schema, pkBytes []byte, rowBytes []byte, pairs []SelectPair) ([]byte, error) {
	const op = "row_to_json_mapped"

	decoded, err := decodeRowBytes(sch, rowBytes)
	if err != nil {
		return nil, err
	}
	pkType := sch.PrimaryKeyColumn().Type

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, p := range pairs {
		idx, col, ok := sch.ColumnByName(p.Column)
		if !ok {
			return nil, storeerr.New(op, storeerr.KindUnknownColumn)
		}

		var val any
		if idx == sch.PrimaryKeyIndex {
			val, err = decodeScalarToJSON(pkType, pkBytes)
			if err != nil {
				return nil, err
			}
		} else {
			field := decoded[col.Name]
			if field.null {
				val = nil
			} else {
				val, err = decodeScalarToJSON(col.Type, field.raw)
				if err != nil {
					return nil, err
				}
			}
		}

		if i > 0 {
			buf.WriteByte(',')
		}
		keyJSON, err := json.Marshal(p.Alias)
		if err != nil {
			return nil, storeerr.Wrap(op, storeerr.KindBadRow, err)
		}
		valJSON, err := json.Marshal(val)
		if err != nil {
			return nil, storeerr.Wrap(op, storeerr.KindBadRow, err)
		}
		buf.Write(keyJSON)
		buf.WriteByte(':')
		buf.Write(valJSON)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// decodeScalarToJSON turns raw column bytes back into a JSON-marshalable Go
// value. Non-finite float32 values (NaN, +/-Inf) decode to nil: JSON has no
// literal for them.
func decodeScalarToJSON(colType schema.ColumnType, raw []byte) (any, error) {
	const op = "decode_scalar"
	switch colType {
	case schema.TypeChar:
		if len(raw) != 1 {
			return nil, storeerr.New(op, storeerr.KindBadRow)
		}
		return string(raw), nil

	case schema.TypeText:
		return string(raw), nil

	case schema.TypeBlob:
		return base64.StdEncoding.EncodeToString(raw), nil

	case schema.TypeInt32:
		v, _, err := codec.GetI32(raw)
		if err != nil {
			return nil, storeerr.Wrap(op, storeerr.KindBadRow, err)
		}
		return v, nil

	case schema.TypeInt64:
		v, _, err := codec.GetI64(raw)
		if err != nil {
			return nil, storeerr.Wrap(op, storeerr.KindBadRow, err)
		}
		return v, nil

	case schema.TypeBoolean:
		if len(raw) != 1 {
			return nil, storeerr.New(op, storeerr.KindBadRow)
		}
		return raw[0] != 0, nil

	case schema.TypeFloat32:
		bits, _, err := codec.GetU32(raw)
		if err != nil {
			return nil, storeerr.Wrap(op, storeerr.KindBadRow, err)
		}
		f := math.Float32frombits(bits)
		if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
			return nil, nil
		}
		return float64(f), nil

	case schema.TypeDate:
		days, _, err := codec.GetI32(raw)
		if err != nil {
			return nil, storeerr.Wrap(op, storeerr.KindBadRow, err)
		}
		t := time.Unix(int64(days)*86400, 0).UTC()
		return t.Format("2006-01-02"), nil

	case schema.TypeTimestamp:
		ms, _, err := codec.GetI64(raw)
		if err != nil {
			return nil, storeerr.Wrap(op, storeerr.KindBadRow, err)
		}
		t := time.UnixMilli(ms).UTC()
		return t.Format("2006-01-02T15:04:05.000") + "Z", nil

	default:
		return nil, storeerr.New(op, storeerr.KindBadRow)
	}
}
