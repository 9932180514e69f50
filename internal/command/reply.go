package command

import (
	"bytes"
	"encoding/json"

	"github.com/leengari/ksdb/internal/storeerr"
)

// replyOK is the bare success reply.
func replyOK() []byte { return []byte(`{"ok":true}`) }

// replyOKFields wraps extra already-encoded "key":value fields after
// "ok":true, in the order given — map marshaling would alphabetize them,
// which the wire scenarios' field ordering forbids.
func replyOKFields(fields ...field) []byte {
	var buf bytes.Buffer
	buf.WriteString(`{"ok":true`)
	for _, f := range fields {
		buf.WriteByte(',')
		writeJSONString(&buf, f.key)
		buf.WriteByte(':')
		buf.Write(f.rawValue)
	}
	buf.WriteByte('}')
	return buf.Bytes()
}

type field struct {
	key      string
	rawValue []byte
}

func rawField(key string, value any) field {
	b, err := json.Marshal(value)
	if err != nil {
		b = []byte("null")
	}
	return field{key: key, rawValue: b}
}

func preEncodedField(key string, raw []byte) field {
	return field{key: key, rawValue: raw}
}

// replyError renders {"ok":false,"error":"<kind>"}.
func replyError(kind storeerr.Kind) []byte {
	var buf bytes.Buffer
	buf.WriteString(`{"ok":false,"error":`)
	writeJSONString(&buf, string(kind))
	buf.WriteByte('}')
	return buf.Bytes()
}

// replyFromError classifies err into a wire error kind, defaulting to
// write_failed for anything not tagged with storeerr.
func replyFromError(err error) []byte {
	if se, ok := err.(*storeerr.Error); ok {
		return replyError(se.Kind)
	}
	return replyError(storeerr.KindWriteFailed)
}

func writeJSONString(buf *bytes.Buffer, s string) {
	b, _ := json.Marshal(s)
	buf.Write(b)
}
