package txmodel

import (
	"conclave.dev/node/hashes"
	"conclave.dev/node/xcrypto"
)

// ConclaveBlockHeader is the read-only chain-tip record §9's design
// notes describe: no component in this core produces blocks, so the
// only operations on it are Genesis() and round-trip serialization for
// the kvstore manifest.
type ConclaveBlockHeader struct {
	Version    uint32
	PrevHash   hashes.Hash32
	MerkleRoot hashes.Hash32
	Timestamp  uint64
	Height     uint64
}

// Genesis returns the hard-coded genesis header chain_tip() falls back
// to when no tip has been persisted yet (§4.7.4).
func Genesis() ConclaveBlockHeader {
	return ConclaveBlockHeader{
		Version:    1,
		PrevHash:   hashes.Zero32,
		MerkleRoot: hashes.Zero32,
		Timestamp:  0,
		Height:     0,
	}
}

// Hash computes SHA-256(SHA-256(serialize(h))), the same content-
// address put_immutable uses to key the header in the kvstore.
func (h ConclaveBlockHeader) Hash() hashes.Hash32 {
	return xcrypto.Hash256(h.Serialize())
}

// Serialize produces a canonical encoding of the header for storage.
func (h ConclaveBlockHeader) Serialize() []byte {
	dst := make([]byte, 0, 4+32+32+8+8)
	dst = hashes.AppendU32LE(dst, h.Version)
	dst = hashes.AppendHash32(dst, h.PrevHash)
	dst = hashes.AppendHash32(dst, h.MerkleRoot)
	dst = hashes.AppendU64LE(dst, h.Timestamp)
	dst = hashes.AppendU64LE(dst, h.Height)
	return dst
}

// DeserializeConclaveBlockHeader parses the encoding Serialize produces.
func DeserializeConclaveBlockHeader(b []byte) (ConclaveBlockHeader, error) {
	c := hashes.NewCursor(b)
	var h ConclaveBlockHeader
	var err error
	if h.Version, err = c.ReadU32LE(); err != nil {
		return ConclaveBlockHeader{}, err
	}
	if h.PrevHash, err = c.ReadHash32(); err != nil {
		return ConclaveBlockHeader{}, err
	}
	if h.MerkleRoot, err = c.ReadHash32(); err != nil {
		return ConclaveBlockHeader{}, err
	}
	if h.Timestamp, err = c.ReadU64LE(); err != nil {
		return ConclaveBlockHeader{}, err
	}
	if h.Height, err = c.ReadU64LE(); err != nil {
		return ConclaveBlockHeader{}, err
	}
	if c.Remaining() != 0 {
		return ConclaveBlockHeader{}, &hashes.ParseError{Context: "trailing bytes after block header"}
	}
	return h, nil
}
