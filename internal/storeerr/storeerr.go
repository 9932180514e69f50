// Package storeerr defines the error taxonomy shared by every layer of the
// store, from the on-disk codecs up through the engine façade. Callers that
// need to turn a failure into a wire-level reply should type-assert with
// errors.As and report Kind rather than the wrapped message.
package storeerr

import (
	"errors"
	"fmt"
)

// Kind identifies a class of failure from spec.md §7. It is the value
// surfaced to the wire protocol as {"ok":false,"error":"<kind>"}.
type Kind string

const (
	// Invalid input
	KindInvalidPK               Kind = "invalid_pk"
	KindMissingPK                Kind = "missing_pk"
	KindWhereMustUsePrimaryKey  Kind = "where_must_use_primary_key"
	KindCannotUpdatePK          Kind = "cannot_update_pk"
	KindUnknownColumn           Kind = "unknown_column"
	KindDuplicateColumn         Kind = "duplicate_column"
	KindBadHex                  Kind = "bad_hex"
	KindBadBase64                Kind = "bad_base64"
	KindBadInt                   Kind = "bad_int"
	KindBadFloat                 Kind = "bad_float"
	KindBadDate                   Kind = "bad_date"
	KindBadTimestamp              Kind = "bad_timestamp"

	// Not found / exists
	KindTableNotFound     Kind = "table_not_found"
	KindKeyspaceNotFound  Kind = "keyspace_not_found"
	KindTableExists       Kind = "table_exists"
	KindSchemaMismatch    Kind = "schema_mismatch"

	// Format / corruption
	KindBadRow              Kind = "bad_row"
	KindBadRowVersion        Kind = "bad_row_version"
	KindBadSSTableFooter     Kind = "bad_sstable_footer"
	KindBadIndex             Kind = "bad_index"
	KindSSTableTooSmall      Kind = "sstable_too_small"
	KindCannotOpenCommitlog  Kind = "cannot_open_commitlog"
	KindCannotWriteSSTable   Kind = "cannot_write_sstable"
	KindCannotWriteMetadata  Kind = "cannot_write_metadata"
	KindCannotWriteManifest  Kind = "cannot_write_manifest"
	KindMissingMetadata      Kind = "missing_metadata"
	KindBadMetadata          Kind = "bad_metadata"

	// I/O
	KindWriteFailed Kind = "write_failed"
	KindReadFailed  Kind = "read_failed"
	KindFsyncFailed Kind = "fsync_failed"
)

// Error is the tagged error type propagated out of the core. Op names the
// operation that failed (e.g. "put_row", "open_table") for log context;
// Kind is the stable, wire-safe classification; Err is the underlying cause
// (may be nil when Kind alone is the whole story).
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an *Error with no wrapped cause.
func New(op string, kind Kind) *Error {
	return &Error{Op: op, Kind: kind}
}

// Wrap builds an *Error around an existing cause.
func Wrap(op string, kind Kind, err error) *Error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// KindOf extracts the Kind from err if it (or something it wraps) is an
// *Error. Returns ("", false) otherwise.
func KindOf(err error) (Kind, bool) {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind, true
	}
	return "", false
}
