// Package codec implements the primitive binary encodings used by the row
// codec and the WAL: big-endian fixed-width integers, length-prefixed byte
// buffers and strings, and the CRC32 variant used to validate WAL records.
// The SSTable writer/reader does its own big-endian encoding and does not
// use this package.
//
// Everything here is big-endian. Package walstore, manifest, keyspace and
// tableengine's metadata file use a separate little-endian convention for
// their own host-local files (see those packages' doc comments) and do not
// use this package's Put/Get helpers for their integer fields.
package codec

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
)

// PutU32 appends a big-endian uint32 to dst and returns the result.
func PutU32(dst []byte, v uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return append(dst, b[:]...)
}

// PutU64 appends a big-endian uint64 to dst and returns the result.
func PutU64(dst []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(dst, b[:]...)
}

// PutI32 appends a big-endian two's-complement int32 to dst.
func PutI32(dst []byte, v int32) []byte {
	return PutU32(dst, uint32(v))
}

// PutI64 appends a big-endian two's-complement int64 to dst.
func PutI64(dst []byte, v int64) []byte {
	return PutU64(dst, uint64(v))
}

// PutBytes appends a u32-length-prefixed byte buffer to dst.
func PutBytes(dst []byte, v []byte) []byte {
	dst = PutU32(dst, uint32(len(v)))
	return append(dst, v...)
}

// PutString appends a u32-length-prefixed UTF-8 string to dst.
func PutString(dst []byte, v string) []byte {
	return PutBytes(dst, []byte(v))
}

// GetU32 reads a big-endian uint32 from the front of b.
func GetU32(b []byte) (uint32, []byte, error) {
	if len(b) < 4 {
		return 0, b, fmt.Errorf("codec: short buffer for u32: have %d bytes", len(b))
	}
	return binary.BigEndian.Uint32(b), b[4:], nil
}

// GetU64 reads a big-endian uint64 from the front of b.
func GetU64(b []byte) (uint64, []byte, error) {
	if len(b) < 8 {
		return 0, b, fmt.Errorf("codec: short buffer for u64: have %d bytes", len(b))
	}
	return binary.BigEndian.Uint64(b), b[8:], nil
}

// GetI32 reads a big-endian two's-complement int32 from the front of b.
func GetI32(b []byte) (int32, []byte, error) {
	v, rest, err := GetU32(b)
	return int32(v), rest, err
}

// GetI64 reads a big-endian two's-complement int64 from the front of b.
func GetI64(b []byte) (int64, []byte, error) {
	v, rest, err := GetU64(b)
	return int64(v), rest, err
}

// GetBytes reads a u32-length-prefixed byte buffer from the front of b.
// The returned slice aliases b; callers that retain it past b's lifetime
// must copy.
func GetBytes(b []byte) ([]byte, []byte, error) {
	n, rest, err := GetU32(b)
	if err != nil {
		return nil, b, err
	}
	if uint64(len(rest)) < uint64(n) {
		return nil, b, fmt.Errorf("codec: short buffer for %d-byte field: have %d bytes", n, len(rest))
	}
	return rest[:n], rest[n:], nil
}

// GetString reads a u32-length-prefixed UTF-8 string from the front of b.
func GetString(b []byte) (string, []byte, error) {
	v, rest, err := GetBytes(b)
	if err != nil {
		return "", b, err
	}
	return string(v), rest, nil
}

// CRC32 computes the reflected CRC32 (polynomial 0xEDB88320, init/final
// XOR 0xFFFFFFFF) over data — the IEEE/"CRC-32" variant, which is exactly
// what hash/crc32.IEEE implements.
func CRC32(data []byte) uint32 {
	return crc32.ChecksumIEEE(data)
}
