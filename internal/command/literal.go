package command

import (
	"strings"

	"github.com/leengari/ksdb/internal/rowcodec"
	"github.com/leengari/ksdb/internal/schema"
)

// parseLiteral classifies one token into a rowcodec.Literal. Syntax:
// NULL, true/false, "quoted text", x'hex', b64'base64', or a bare number.
func parseLiteral(tok string) rowcodec.Literal {
	switch {
	case strings.EqualFold(tok, "null"):
		return rowcodec.Null

	case strings.EqualFold(tok, "true"):
		return rowcodec.Literal{Kind: rowcodec.LitBool, Text: "true"}
	case strings.EqualFold(tok, "false"):
		return rowcodec.Literal{Kind: rowcodec.LitBool, Text: "false"}

	case len(tok) >= 2 && tok[0] == '"' && tok[len(tok)-1] == '"':
		return rowcodec.Literal{Kind: rowcodec.LitQuoted, Text: tok[1 : len(tok)-1]}

	case len(tok) >= 3 && (tok[0] == 'x' || tok[0] == 'X') && tok[1] == '\'' && tok[len(tok)-1] == '\'':
		return rowcodec.Literal{Kind: rowcodec.LitHex, Text: tok[2 : len(tok)-1]}

	case len(tok) >= 6 && strings.HasPrefix(strings.ToLower(tok), "b64'") && tok[len(tok)-1] == '\'':
		return rowcodec.Literal{Kind: rowcodec.LitBase64, Text: tok[4 : len(tok)-1]}

	default:
		return rowcodec.Literal{Kind: rowcodec.LitNumber, Text: tok}
	}
}

// parseColumnType maps a CREATE TABLE type token to a schema.ColumnType.
// "int" is accepted as an alias for int64, and "bool"/"float" as aliases
// for boolean/float32 — the command surface is more permissive about
// synonyms than the on-disk type tag is.
func parseColumnType(tok string) (schema.ColumnType, bool) {
	switch strings.ToLower(tok) {
	case "char":
		return schema.TypeChar, true
	case "text":
		return schema.TypeText, true
	case "blob":
		return schema.TypeBlob, true
	case "int32":
		return schema.TypeInt32, true
	case "int", "int64":
		return schema.TypeInt64, true
	case "boolean", "bool":
		return schema.TypeBoolean, true
	case "float32", "float":
		return schema.TypeFloat32, true
	case "date":
		return schema.TypeDate, true
	case "timestamp":
		return schema.TypeTimestamp, true
	default:
		return 0, false
	}
}

// splitQualifiedName splits "keyspace.table" or falls back to
// currentKeyspace for a bare "table".
func splitQualifiedName(tok, currentKeyspace string) (keyspaceName, table string) {
	idx := strings.LastIndex(tok, ".")
	if idx < 0 {
		return currentKeyspace, tok
	}
	return tok[:idx], tok[idx+1:]
}
