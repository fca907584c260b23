// Package hashes defines the fixed-width digest types used throughout
// Conclave (Hash20, Hash32) along with the hex codec and the canonical
// little-endian / CompactSize wire primitives that every ledger-visible
// type's serialization builds on.
package hashes

import (
	"encoding/hex"
	"fmt"
)

// Hash20 is a 20-byte digest: RIPEMD-160(SHA-256(·)) output, and the
// payload of Classic/Conclave addresses.
type Hash20 [20]byte

// Hash32 is a 32-byte digest: SHA-256 output, double-SHA-256 output,
// transaction/block ids, and SECP256k1 scalars and x-coordinates.
type Hash32 [32]byte

// Zero20 and Zero32 are the all-zero digests, used to represent the
// coinbase-style absent outpoint in a few wire contexts.
var (
	Zero20 Hash20
	Zero32 Hash32
)

func (h Hash20) Bytes() []byte { return h[:] }
func (h Hash32) Bytes() []byte { return h[:] }

// String renders h as lowercase hex, big-endian (the natural byte order
// of the type itself — wire byte-reversal is applied only when a Hash32
// is serialized onto the wire, see AppendHash32).
func (h Hash20) String() string { return hex.EncodeToString(h[:]) }
func (h Hash32) String() string { return hex.EncodeToString(h[:]) }

// Hash20FromHex decodes a 40-character hex string into a Hash20.
func Hash20FromHex(s string) (Hash20, error) {
	var out Hash20
	b, err := hex.DecodeString(s)
	if err != nil {
		return out, fmt.Errorf("hash20: %w", err)
	}
	if len(b) != len(out) {
		return out, fmt.Errorf("hash20: expected %d bytes, got %d", len(out), len(b))
	}
	copy(out[:], b)
	return out, nil
}

// Hash32FromHex decodes a 64-character hex string into a Hash32.
func Hash32FromHex(s string) (Hash32, error) {
	var out Hash32
	b, err := hex.DecodeString(s)
	if err != nil {
		return out, fmt.Errorf("hash32: %w", err)
	}
	if len(b) != len(out) {
		return out, fmt.Errorf("hash32: expected %d bytes, got %d", len(out), len(b))
	}
	copy(out[:], b)
	return out, nil
}

// Hash20FromBytes copies b into a new Hash20. b must be exactly 20 bytes.
func Hash20FromBytes(b []byte) (Hash20, error) {
	var out Hash20
	if len(b) != len(out) {
		return out, fmt.Errorf("hash20: expected %d bytes, got %d", len(out), len(b))
	}
	copy(out[:], b)
	return out, nil
}

// Hash32FromBytes copies b into a new Hash32. b must be exactly 32 bytes.
func Hash32FromBytes(b []byte) (Hash32, error) {
	var out Hash32
	if len(b) != len(out) {
		return out, fmt.Errorf("hash32: expected %d bytes, got %d", len(out), len(b))
	}
	copy(out[:], b)
	return out, nil
}

// Reversed returns a copy of h with its bytes in reverse order. Used to
// convert between the type's natural (big-endian, display) byte order
// and the little-endian wire order of §4.1.
func (h Hash32) Reversed() Hash32 {
	var out Hash32
	for i := range h {
		out[i] = h[len(h)-1-i]
	}
	return out
}

// Xor returns h XOR other, used exclusively to namespace mutable keys
// in the key-value store (§4.3): hash256(ns) XOR userKey.
func (h Hash32) Xor(other Hash32) Hash32 {
	var out Hash32
	for i := range h {
		out[i] = h[i] ^ other[i]
	}
	return out
}

func (h Hash32) IsZero() bool { return h == Zero32 }
func (h Hash20) IsZero() bool { return h == Zero20 }
