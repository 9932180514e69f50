package rowcodec

import (
	"testing"

	"github.com/leengari/ksdb/internal/schema"
	"github.com/leengari/ksdb/internal/storeerr"
)

func testSchema() *schema.Schema {
	return &schema.Schema{
		Columns: []schema.Column{
			{Name: "id", Type: schema.TypeInt64},
			{Name: "name", Type: schema.TypeText},
			{Name: "score", Type: schema.TypeFloat32},
		},
		PrimaryKeyIndex: 0,
	}
}

func TestPartitionKeyBytesInt64(t *testing.T) {
	got, err := PartitionKeyBytes(schema.TypeInt64, Literal{Kind: LitNumber, Text: "42"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 8 {
		t.Fatalf("expected 8 bytes, got %d", len(got))
	}
}

func TestPartitionKeyBytesNullIsInvalid(t *testing.T) {
	_, err := PartitionKeyBytes(schema.TypeInt64, Null)
	if kind, ok := storeerr.KindOf(err); !ok || kind != storeerr.KindInvalidPK {
		t.Fatalf("expected invalid_pk, got %v", err)
	}
}

func TestPartitionKeyBytesCharRequiresSingleByte(t *testing.T) {
	if _, err := PartitionKeyBytes(schema.TypeChar, Literal{Kind: LitQuoted, Text: "ab"}); err == nil {
		t.Fatal("expected error for multi-byte char literal")
	}
	got, err := PartitionKeyBytes(schema.TypeChar, Literal{Kind: LitQuoted, Text: "a"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != "a" {
		t.Fatalf("expected %q, got %q", "a", got)
	}
}

func TestPartitionKeyBytesBlobHexAndBase64(t *testing.T) {
	hexGot, err := PartitionKeyBytes(schema.TypeBlob, Literal{Kind: LitHex, Text: "0a0b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hexGot) != 2 || hexGot[0] != 0x0a || hexGot[1] != 0x0b {
		t.Fatalf("unexpected hex decode: %v", hexGot)
	}

	if _, err := PartitionKeyBytes(schema.TypeBlob, Literal{Kind: LitHex, Text: "zz"}); err == nil {
		t.Fatal("expected bad_hex error")
	} else if kind, _ := storeerr.KindOf(err); kind != storeerr.KindBadHex {
		t.Fatalf("expected bad_hex, got %v", kind)
	}

	if _, err := PartitionKeyBytes(schema.TypeBlob, Literal{Kind: LitQuoted, Text: "nope"}); err == nil {
		t.Fatal("expected invalid_pk for quoted blob literal")
	}
}

func TestPartitionKeyBytesDateAndTimestamp(t *testing.T) {
	if _, err := PartitionKeyBytes(schema.TypeDate, Literal{Kind: LitQuoted, Text: "2024-02-29"}); err != nil {
		t.Fatalf("unexpected error for valid leap date: %v", err)
	}
	if _, err := PartitionKeyBytes(schema.TypeDate, Literal{Kind: LitQuoted, Text: "2023-02-29"}); err == nil {
		t.Fatal("expected bad_date for non-leap Feb 29")
	}

	ts, err := PartitionKeyBytes(schema.TypeTimestamp, Literal{Kind: LitQuoted, Text: "2024-01-01T00:00:00.123456Z"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ts) != 8 {
		t.Fatalf("expected 8 bytes, got %d", len(ts))
	}

	if _, err := PartitionKeyBytes(schema.TypeTimestamp, Literal{Kind: LitNumber, Text: "1700000000000"}); err != nil {
		t.Fatalf("expected raw-millis timestamp to be accepted for pk, got %v", err)
	}
}

func TestRowBytesRoundTripThroughJSON(t *testing.T) {
	sch := testSchema()
	pk, err := PartitionKeyBytes(schema.TypeInt64, Literal{Kind: LitNumber, Text: "7"})
	if err != nil {
		t.Fatalf("pk encode failed: %v", err)
	}

	row, err := RowBytes(sch, []string{"id", "name", "score"}, []Literal{
		{Kind: LitNumber, Text: "7"},
		{Kind: LitQuoted, Text: "alice"},
		{Kind: LitNumber, Text: "3.5"},
	})
	if err != nil {
		t.Fatalf("row encode failed: %v", err)
	}

	out, err := RowToJSONMapped(sch, pk, row, []SelectPair{
		{Alias: "id", Column: "id"},
		{Alias: "name", Column: "name"},
		{Alias: "score", Column: "score"},
	})
	if err != nil {
		t.Fatalf("row_to_json_mapped failed: %v", err)
	}

	want := `{"id":7,"name":"alice","score":3.5}`
	if string(out) != want {
		t.Fatalf("got %s, want %s", out, want)
	}
}

func TestRowBytesMissingColumnIsNull(t *testing.T) {
	sch := testSchema()
	pk, _ := PartitionKeyBytes(schema.TypeInt64, Literal{Kind: LitNumber, Text: "1"})
	row, err := RowBytes(sch, []string{"id"}, []Literal{{Kind: LitNumber, Text: "1"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out, err := RowToJSONMapped(sch, pk, row, []SelectPair{
		{Alias: "name", Column: "name"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out) != `{"name":null}` {
		t.Fatalf("got %s", out)
	}
}

func TestRowBytesUnknownColumnRejected(t *testing.T) {
	sch := testSchema()
	_, err := RowBytes(sch, []string{"id", "nope"}, []Literal{
		{Kind: LitNumber, Text: "1"},
		{Kind: LitQuoted, Text: "x"},
	})
	if kind, ok := storeerr.KindOf(err); !ok || kind != storeerr.KindUnknownColumn {
		t.Fatalf("expected unknown_column, got %v", err)
	}
}

func TestMergeRowBytesForUpdate(t *testing.T) {
	sch := testSchema()
	row, err := RowBytes(sch, []string{"id", "name", "score"}, []Literal{
		{Kind: LitNumber, Text: "1"},
		{Kind: LitQuoted, Text: "bob"},
		{Kind: LitNumber, Text: "1.0"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	merged, err := MergeRowBytesForUpdate(sch, row, []string{"name"}, []Literal{{Kind: LitQuoted, Text: "carol"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pk, _ := PartitionKeyBytes(schema.TypeInt64, Literal{Kind: LitNumber, Text: "1"})
	out, err := RowToJSONMapped(sch, pk, merged, []SelectPair{
		{Alias: "name", Column: "name"},
		{Alias: "score", Column: "score"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out) != `{"name":"carol","score":1}` {
		t.Fatalf("got %s", out)
	}
}

func TestMergeRowBytesForUpdateWithNilExistingSynthesizesNulls(t *testing.T) {
	sch := testSchema()

	merged, err := MergeRowBytesForUpdate(sch, nil, []string{"name"}, []Literal{{Kind: LitQuoted, Text: "carol"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pk, _ := PartitionKeyBytes(schema.TypeInt64, Literal{Kind: LitNumber, Text: "1"})
	out, err := RowToJSONMapped(sch, pk, merged, []SelectPair{
		{Alias: "name", Column: "name"},
		{Alias: "score", Column: "score"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out) != `{"name":"carol","score":null}` {
		t.Fatalf("got %s", out)
	}
}

func TestMergeRowBytesForUpdateCannotUpdatePK(t *testing.T) {
	sch := testSchema()
	row, _ := RowBytes(sch, []string{"id", "name", "score"}, []Literal{
		{Kind: LitNumber, Text: "1"},
		{Kind: LitQuoted, Text: "bob"},
		{Kind: LitNumber, Text: "1.0"},
	})

	_, err := MergeRowBytesForUpdate(sch, row, []string{"id"}, []Literal{{Kind: LitNumber, Text: "2"}})
	if kind, ok := storeerr.KindOf(err); !ok || kind != storeerr.KindCannotUpdatePK {
		t.Fatalf("expected cannot_update_pk, got %v", err)
	}
}

func TestMergeRowBytesForUpdateDuplicateColumn(t *testing.T) {
	sch := testSchema()
	row, _ := RowBytes(sch, []string{"id", "name", "score"}, []Literal{
		{Kind: LitNumber, Text: "1"},
		{Kind: LitQuoted, Text: "bob"},
		{Kind: LitNumber, Text: "1.0"},
	})

	_, err := MergeRowBytesForUpdate(sch, row, []string{"name", "name"}, []Literal{
		{Kind: LitQuoted, Text: "a"},
		{Kind: LitQuoted, Text: "b"},
	})
	if kind, ok := storeerr.KindOf(err); !ok || kind != storeerr.KindDuplicateColumn {
		t.Fatalf("expected duplicate_column, got %v", err)
	}
}

func TestFloat32NaNDecodesToJSONNull(t *testing.T) {
	sch := &schema.Schema{
		Columns: []schema.Column{
			{Name: "id", Type: schema.TypeInt32},
			{Name: "v", Type: schema.TypeFloat32},
		},
		PrimaryKeyIndex: 0,
	}
	pk, _ := PartitionKeyBytes(schema.TypeInt32, Literal{Kind: LitNumber, Text: "1"})
	row, err := RowBytes(sch, []string{"id", "v"}, []Literal{
		{Kind: LitNumber, Text: "1"},
		{Kind: LitNumber, Text: "NaN"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out, err := RowToJSONMapped(sch, pk, row, []SelectPair{{Alias: "v", Column: "v"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out) != `{"v":null}` {
		t.Fatalf("got %s", out)
	}
}
