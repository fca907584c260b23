// Package txmodel is the transaction data model of §3.2/§3.3/§4.6:
// Outpoint, Inpoint, the claim/spend ConclaveTx shapes, BitcoinTx, and
// their canonical serialization.
package txmodel

import (
	"conclave.dev/node/hashes"
	"conclave.dev/node/xcrypto"
)

// Outpoint references a specific output of a committed transaction.
type Outpoint struct {
	TxID  hashes.Hash32
	Index uint32
}

// Inpoint references a specific input of a committed transaction. It
// has the same shape as Outpoint but a distinct type: the two are
// never interchangeable even though both dereference a transaction.
type Inpoint struct {
	TxID  hashes.Hash32
	Index uint32
}

func (o Outpoint) Hash() hashes.Hash32 { return pointHash(o.TxID, o.Index) }
func (i Inpoint) Hash() hashes.Hash32  { return pointHash(i.TxID, i.Index) }

// Encode/Decode below are the kvstore value codec for the four
// mutable indices (§3.4) — not to be confused with the wire encoding
// used inside a ConclaveTx's own serialization, since these values
// never flow into a tx id computation.

func (o Outpoint) Encode() []byte {
	buf := make([]byte, 0, 36)
	buf = append(buf, o.TxID[:]...)
	buf = hashes.AppendU32LE(buf, o.Index)
	return buf
}

func DecodeOutpoint(b []byte) (Outpoint, error) {
	c := hashes.NewCursor(b)
	txID, err := c.ReadExact(32)
	if err != nil {
		return Outpoint{}, err
	}
	index, err := c.ReadU32LE()
	if err != nil {
		return Outpoint{}, err
	}
	var out Outpoint
	copy(out.TxID[:], txID)
	out.Index = index
	return out, nil
}

func (i Inpoint) Encode() []byte {
	buf := make([]byte, 0, 36)
	buf = append(buf, i.TxID[:]...)
	buf = hashes.AppendU32LE(buf, i.Index)
	return buf
}

func DecodeInpoint(b []byte) (Inpoint, error) {
	c := hashes.NewCursor(b)
	txID, err := c.ReadExact(32)
	if err != nil {
		return Inpoint{}, err
	}
	index, err := c.ReadU32LE()
	if err != nil {
		return Inpoint{}, err
	}
	var out Inpoint
	copy(out.TxID[:], txID)
	out.Index = index
	return out, nil
}

// pointHash is the 32-byte key used to index an outpoint/inpoint in
// the four mutable indices: hash256(txId || index_LE).
func pointHash(txID hashes.Hash32, index uint32) hashes.Hash32 {
	buf := make([]byte, 0, 36)
	buf = hashes.AppendHash32(buf, txID)
	buf = hashes.AppendU32LE(buf, index)
	return xcrypto.Hash256(buf)
}
