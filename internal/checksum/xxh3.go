package checksum

import "github.com/zeebo/xxh3"

// kRandomPrime is the multiplier MixTrailingByte applies to the trailing byte
// before XOR-ing it into the truncated digest.
const kRandomPrime = 0x6b9083d9

// XXH3MetaChecksum returns a 64-bit XXH3 digest of a metadata map's encoded
// entries, keyed in the order they were added. It is not stored on disk by
// the header codec (the header has no checksum field of its own); it exists
// for callers that archive or transmit decoded metadata separately from the
// log file and want to detect tampering independent of the physical-record
// CRCs.
func XXH3MetaChecksum(entries [][2][]byte) uint64 {
	h := xxh3.New()
	for _, kv := range entries {
		_, _ = h.Write(kv[0])
		_, _ = h.Write([]byte{0})
		_, _ = h.Write(kv[1])
		_, _ = h.Write([]byte{0})
	}
	return h.Sum64()
}

// MixTrailingByte folds a trailing byte (e.g. a compression indicator stored
// outside the hashed buffer) into an XXH3 digest, mirroring the construction
// RocksDB-family formats use to fold a block's compression type into its
// stored checksum without re-hashing the whole block.
func MixTrailingByte(h uint64, b byte) uint32 {
	return uint32(h) ^ (uint32(b) * kRandomPrime)
}
