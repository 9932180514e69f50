package rowcodec

import (
	"encoding/base64"
	"encoding/hex"
	"math"
	"strconv"
	"time"

	"github.com/leengari/ksdb/internal/codec"
	"github.com/leengari/ksdb/internal/schema"
	"github.com/leengari/ksdb/internal/storeerr"
)

// PartitionKeyBytes encodes a single literal into the canonical primary-key
// bytes for colType, per spec.md §4.2. A NULL literal is always invalid_pk:
// the primary key can never be null.
func PartitionKeyBytes(colType schema.ColumnType, lit Literal) ([]byte, error) {
	const op = "partition_key_bytes"
	if lit.Kind == LitNull {
		return nil, storeerr.New(op, storeerr.KindInvalidPK)
	}
	return literalToRawBytes(op, colType, lit, true)
}

// isVariableWidth reports whether colType's raw encoding needs an explicit
// length (char/text/blob) as opposed to a fixed-width scalar.
func isVariableWidth(t schema.ColumnType) bool {
	switch t {
	case schema.TypeChar, schema.TypeText, schema.TypeBlob:
		return true
	default:
		return false
	}
}

// literalToRawBytes encodes lit as colType's raw value bytes: no length
// prefix, since the prefix (when one is needed) is the caller's job — pk
// bytes never carry one, row bytes add one only for variable-width types.
// allowRawMillisTimestamp permits an unquoted integer literal for a
// timestamp column, which spec.md restricts to primary-key encoding.
func literalToRawBytes(op string, colType schema.ColumnType, lit Literal, allowRawMillisTimestamp bool) ([]byte, error) {
	switch colType {
	case schema.TypeChar:
		if lit.Kind != LitQuoted || len(lit.Text) != 1 {
			return nil, storeerr.New(op, storeerr.KindInvalidPK)
		}
		return []byte{lit.Text[0]}, nil

	case schema.TypeText:
		if lit.Kind != LitQuoted {
			return nil, storeerr.New(op, storeerr.KindInvalidPK)
		}
		return []byte(lit.Text), nil

	case schema.TypeBlob:
		switch lit.Kind {
		case LitHex:
			b, err := hex.DecodeString(lit.Text)
			if err != nil {
				return nil, storeerr.Wrap(op, storeerr.KindBadHex, err)
			}
			return b, nil
		case LitBase64:
			b, err := base64.StdEncoding.DecodeString(lit.Text)
			if err != nil {
				return nil, storeerr.Wrap(op, storeerr.KindBadBase64, err)
			}
			return b, nil
		default:
			return nil, storeerr.New(op, storeerr.KindInvalidPK)
		}

	case schema.TypeInt32:
		if lit.Kind != LitNumber {
			return nil, storeerr.New(op, storeerr.KindInvalidPK)
		}
		n, err := strconv.ParseInt(lit.Text, 10, 32)
		if err != nil {
			return nil, storeerr.Wrap(op, storeerr.KindBadInt, err)
		}
		return codec.PutI32(nil, int32(n)), nil

	case schema.TypeInt64:
		if lit.Kind != LitNumber {
			return nil, storeerr.New(op, storeerr.KindInvalidPK)
		}
		n, err := strconv.ParseInt(lit.Text, 10, 64)
		if err != nil {
			return nil, storeerr.Wrap(op, storeerr.KindBadInt, err)
		}
		return codec.PutI64(nil, n), nil

	case schema.TypeBoolean:
		if lit.Kind != LitBool {
			return nil, storeerr.New(op, storeerr.KindInvalidPK)
		}
		switch lit.Text {
		case "true":
			return []byte{1}, nil
		case "false":
			return []byte{0}, nil
		default:
			return nil, storeerr.New(op, storeerr.KindInvalidPK)
		}

	case schema.TypeFloat32:
		if lit.Kind != LitNumber {
			return nil, storeerr.New(op, storeerr.KindInvalidPK)
		}
		f, err := strconv.ParseFloat(lit.Text, 32)
		if err != nil {
			return nil, storeerr.Wrap(op, storeerr.KindBadFloat, err)
		}
		return codec.PutU32(nil, math.Float32bits(float32(f))), nil

	case schema.TypeDate:
		if lit.Kind != LitQuoted {
			return nil, storeerr.New(op, storeerr.KindInvalidPK)
		}
		days, err := parseDateStrict(lit.Text)
		if err != nil {
			return nil, storeerr.Wrap(op, storeerr.KindBadDate, err)
		}
		return codec.PutI32(nil, days), nil

	case schema.TypeTimestamp:
		switch lit.Kind {
		case LitQuoted:
			ms, err := parseTimestampStrict(lit.Text)
			if err != nil {
				return nil, storeerr.Wrap(op, storeerr.KindBadTimestamp, err)
			}
			return codec.PutI64(nil, ms), nil
		case LitNumber:
			if !allowRawMillisTimestamp {
				return nil, storeerr.New(op, storeerr.KindInvalidPK)
			}
			ms, err := strconv.ParseInt(lit.Text, 10, 64)
			if err != nil {
				return nil, storeerr.Wrap(op, storeerr.KindBadTimestamp, err)
			}
			return codec.PutI64(nil, ms), nil
		default:
			return nil, storeerr.New(op, storeerr.KindInvalidPK)
		}

	default:
		return nil, storeerr.New(op, storeerr.KindInvalidPK)
	}
}

// parseDateStrict parses an exact "YYYY-MM-DD" string into days since the
// Unix epoch. time.Parse already rejects out-of-range months/days.
func parseDateStrict(s string) (int32, error) {
	if len(s) != 10 {
		return 0, storeerr.New("parse_date", storeerr.KindBadDate)
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return 0, err
	}
	return int32(t.Unix() / 86400), nil
}

// parseTimestampStrict parses "YYYY-MM-DDThh:mm:ss[.fff...]Z" into
// milliseconds since the Unix epoch. A fractional-seconds suffix may carry
// any number of digits; only the first three are significant, the rest are
// discarded rather than rounded. The trailing "Z" is mandatory.
func parseTimestampStrict(s string) (int64, error) {
	if len(s) < 20 {
		return 0, storeerr.New("parse_timestamp", storeerr.KindBadTimestamp)
	}
	last := s[len(s)-1]
	if last != 'Z' && last != 'z' {
		return 0, storeerr.New("parse_timestamp", storeerr.KindBadTimestamp)
	}
	body := s[:len(s)-1]
	if len(body) < 19 {
		return 0, storeerr.New("parse_timestamp", storeerr.KindBadTimestamp)
	}

	t, err := time.Parse("2006-01-02T15:04:05", body[:19])
	if err != nil {
		return 0, err
	}

	var ms int64
	if frac := body[19:]; len(frac) > 0 {
		if frac[0] != '.' || len(frac) == 1 {
			return 0, storeerr.New("parse_timestamp", storeerr.KindBadTimestamp)
		}
		digits := frac[1:]
		for _, c := range digits {
			if c < '0' || c > '9' {
				return 0, storeerr.New("parse_timestamp", storeerr.KindBadTimestamp)
			}
		}
		use := digits
		if len(use) > 3 {
			use = use[:3]
		}
		for len(use) < 3 {
			use += "0"
		}
		v, err := strconv.Atoi(use)
		if err != nil {
			return 0, err
		}
		ms = int64(v)
	}

	return t.Unix()*1000 + ms, nil
}
