// Package token derives the sort-order-preserving decorated key used to
// index every row: a 64-bit hash of the primary-key bytes (the high half
// of a MurmurHash3 x64-128 digest, seed 0) prefixed onto the raw primary
// key so that entries sharing a token are still ordered and disambiguated
// by their actual key. This is the same "hash the key, use the hash as a
// sort prefix" idea guycipher/k4's murmur package applies to its skiplist
// keys, generalized here to the full 128-bit MurmurHash3 algorithm so that
// the distribution matches what spec.md requires bit for bit.
package token

import (
	"encoding/binary"
	"math/bits"
)

const (
	c1 = 0x87c37b91114253d5
	c2 = 0x4cf5ad432745937f
)

// Hash128x64 computes the 128-bit MurmurHash3 x64 variant of data with the
// given seed, returning the two 64-bit halves (h1, h2).
func Hash128x64(data []byte, seed uint64) (h1, h2 uint64) {
	h1, h2 = seed, seed

	nblocks := len(data) / 16
	for i := 0; i < nblocks; i++ {
		block := data[i*16 : i*16+16]
		k1 := binary.LittleEndian.Uint64(block[0:8])
		k2 := binary.LittleEndian.Uint64(block[8:16])

		k1 *= c1
		k1 = bits.RotateLeft64(k1, 31)
		k1 *= c2
		h1 ^= k1

		h1 = bits.RotateLeft64(h1, 27)
		h1 += h2
		h1 = h1*5 + 0x52dce729

		k2 *= c2
		k2 = bits.RotateLeft64(k2, 33)
		k2 *= c1
		h2 ^= k2

		h2 = bits.RotateLeft64(h2, 31)
		h2 += h1
		h2 = h2*5 + 0x38495ab5
	}

	tail := data[nblocks*16:]
	var k1, k2 uint64
	switch len(tail) {
	case 15:
		k2 ^= uint64(tail[14]) << 48
		fallthrough
	case 14:
		k2 ^= uint64(tail[13]) << 40
		fallthrough
	case 13:
		k2 ^= uint64(tail[12]) << 32
		fallthrough
	case 12:
		k2 ^= uint64(tail[11]) << 24
		fallthrough
	case 11:
		k2 ^= uint64(tail[10]) << 16
		fallthrough
	case 10:
		k2 ^= uint64(tail[9]) << 8
		fallthrough
	case 9:
		k2 ^= uint64(tail[8])
		k2 *= c2
		k2 = bits.RotateLeft64(k2, 33)
		k2 *= c1
		h2 ^= k2
		fallthrough
	case 8:
		k1 ^= uint64(tail[7]) << 56
		fallthrough
	case 7:
		k1 ^= uint64(tail[6]) << 48
		fallthrough
	case 6:
		k1 ^= uint64(tail[5]) << 40
		fallthrough
	case 5:
		k1 ^= uint64(tail[4]) << 32
		fallthrough
	case 4:
		k1 ^= uint64(tail[3]) << 24
		fallthrough
	case 3:
		k1 ^= uint64(tail[2]) << 16
		fallthrough
	case 2:
		k1 ^= uint64(tail[1]) << 8
		fallthrough
	case 1:
		k1 ^= uint64(tail[0])
		k1 *= c1
		k1 = bits.RotateLeft64(k1, 31)
		k1 *= c2
		h1 ^= k1
	}

	h1 ^= uint64(len(data))
	h2 ^= uint64(len(data))

	h1 += h2
	h2 += h1

	h1 = fmix64(h1)
	h2 = fmix64(h2)

	h1 += h2
	h2 += h1

	return h1, h2
}

func fmix64(k uint64) uint64 {
	k ^= k >> 33
	k *= 0xff51afd7ed558ccd
	k ^= k >> 33
	k *= 0xc4ceb9fe1a85ec53
	k ^= k >> 33
	return k
}

// Token64 returns the signed 64-bit token for pkBytes: the h1 half of
// MurmurHash3 x64-128 with seed 0, reinterpreted as signed.
func Token64(pkBytes []byte) int64 {
	h1, _ := Hash128x64(pkBytes, 0)
	return int64(h1)
}

// DecoratedKey builds the sort key for pkBytes: the sign-flipped big-endian
// token followed by the raw primary-key bytes. Sign-flipping the token's
// high bit makes lexicographic byte order on the 8-byte prefix match
// signed-integer order on the token, so SSTables and memtables can use a
// byte-string sort/lookup directly.
func DecoratedKey(pkBytes []byte) []byte {
	token := Token64(pkBytes)
	flipped := uint64(token) ^ (1 << 63)

	out := make([]byte, 8+len(pkBytes))
	binary.BigEndian.PutUint64(out[:8], flipped)
	copy(out[8:], pkBytes)
	return out
}

// SplitDecoratedKey returns the primary-key suffix of a decorated key,
// dropping the 8-byte token prefix, or nil when decorated is shorter than
// 8 bytes. The prefix is never itself a valid primary key;
// callers that need the pk must use the suffix.
func SplitDecoratedKey(decorated []byte) (pkBytes []byte) {
	if len(decorated) < 8 {
		return nil
	}
	return decorated[8:]
}
