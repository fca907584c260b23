package xcrypto

import (
	"crypto/sha256"

	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // RIPEMD-160 is required by the hash160 definition, not a choice.

	"conclave.dev/node/hashes"
)

// SHA256 returns the single SHA-256 digest of b.
func SHA256(b []byte) hashes.Hash32 {
	return hashes.Hash32(sha256.Sum256(b))
}

// Hash256 returns SHA-256(SHA-256(b)), the double-hash used for
// transaction/block ids and the key-value store's content address.
func Hash256(b []byte) hashes.Hash32 {
	first := sha256.Sum256(b)
	return hashes.Hash32(sha256.Sum256(first[:]))
}

// Hash160 returns RIPEMD-160(SHA-256(b)), used for pubkey-hash and
// script-hash addresses.
func Hash160(b []byte) hashes.Hash20 {
	first := sha256.Sum256(b)
	h := ripemd160.New()
	_, _ = h.Write(first[:])
	var out hashes.Hash20
	copy(out[:], h.Sum(nil))
	return out
}
