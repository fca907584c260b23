package txmodel

import (
	"conclave.dev/node/hashes"
	"conclave.dev/node/script"
	"conclave.dev/node/xcrypto"
)

// maxVecLen bounds every Vec<T> count and Option/Script byte length
// parsed off the wire against pathological allocation requests.
const maxVecLen = 1 << 20

// ConclaveOutput is a side-ledger output, optionally chained to the
// wallet's previous funding output (§3.2).
type ConclaveOutput struct {
	ScriptPubKey script.Script
	Value        uint64
	Predecessor  *Outpoint
}

// ConclaveInput references a previously committed ConclaveOutput,
// optionally chained to the wallet's previous spend (§3.2).
type ConclaveInput struct {
	Outpoint    Outpoint
	ScriptSig   script.Script
	Sequence    uint32
	Predecessor *Inpoint
}

// BitcoinOutput is a plain Bitcoin-style output, used both for
// withdrawal requests inside a ConclaveTx and as an output of a
// BitcoinTx.
type BitcoinOutput struct {
	Value        uint64
	ScriptPubKey script.Script
}

// BitcoinInput is a Bitcoin-style input (expansion, needed so the
// chainadapter test double can produce byte-identical, hashable
// BitcoinTx fixtures).
type BitcoinInput struct {
	PrevOutpoint Outpoint
	ScriptSig    script.Script
	Sequence     uint32
}

// ConclaveTx is one of two shapes per §3.3: a claim tx (fundPoint
// present) or a spend tx (fundPoint absent).
type ConclaveTx struct {
	Version  uint32
	LockTime uint32

	MinSigs   uint32
	FundPoint *Outpoint
	Trustees  []xcrypto.PubKey

	ConclaveInputs []ConclaveInput

	BitcoinOutputs  []BitcoinOutput
	ConclaveOutputs []ConclaveOutput
}

// IsClaim reports whether tx is the claim-tx variant.
func (tx *ConclaveTx) IsClaim() bool { return tx.FundPoint != nil }

// BitcoinTx is a plain Bitcoin transaction, used only as the
// chainadapter's return type for claim-source lookups.
type BitcoinTx struct {
	Version  uint32
	Inputs   []BitcoinInput
	Outputs  []BitcoinOutput
	LockTime uint32
}

// TxID computes SHA-256(SHA-256(serialize(tx))), the canonical
// identity of §3.2/§4.1.
func (tx *ConclaveTx) TxID() hashes.Hash32 {
	return xcrypto.Hash256(tx.Serialize())
}

// TxID computes the canonical identity of a BitcoinTx.
func (tx *BitcoinTx) TxID() hashes.Hash32 {
	return xcrypto.Hash256(tx.Serialize())
}
