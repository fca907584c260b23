package txmodel

import (
	"fmt"

	"conclave.dev/node/hashes"
	"conclave.dev/node/script"
	"conclave.dev/node/xcrypto"
)

func appendOutpoint(dst []byte, o Outpoint) []byte {
	dst = hashes.AppendHash32(dst, o.TxID)
	return hashes.AppendU32LE(dst, o.Index)
}

func readOutpoint(c *hashes.Cursor) (Outpoint, error) {
	txID, err := c.ReadHash32()
	if err != nil {
		return Outpoint{}, err
	}
	index, err := c.ReadU32LE()
	if err != nil {
		return Outpoint{}, err
	}
	return Outpoint{TxID: txID, Index: index}, nil
}

func appendInpoint(dst []byte, i Inpoint) []byte {
	dst = hashes.AppendHash32(dst, i.TxID)
	return hashes.AppendU32LE(dst, i.Index)
}

func readInpoint(c *hashes.Cursor) (Inpoint, error) {
	txID, err := c.ReadHash32()
	if err != nil {
		return Inpoint{}, err
	}
	index, err := c.ReadU32LE()
	if err != nil {
		return Inpoint{}, err
	}
	return Inpoint{TxID: txID, Index: index}, nil
}

func appendScript(dst []byte, s script.Script) []byte {
	return hashes.AppendBytesVec(dst, s.Bytes())
}

func readScript(c *hashes.Cursor) (script.Script, error) {
	b, err := c.ReadBytesVec(maxVecLen, "script")
	if err != nil {
		return nil, err
	}
	return script.Script(append([]byte(nil), b...)), nil
}

// appendPubKeyCompressedValue appends a trustee pubkey as its 33-byte
// compressed SEC1 encoding, matching the claim-script derivation rule
// of §4.6.
func appendPubKeyCompressedValue(dst []byte, pub xcrypto.PubKey) []byte {
	b, err := pub.SerializeCompressed()
	if err != nil {
		// Trustee pubkeys are always well-formed points constructed via
		// xcrypto.PubKeyFromCompressed; a failure here is a programmer
		// error, not a data error.
		panic(fmt.Sprintf("txmodel: invalid trustee pubkey: %v", err))
	}
	return append(dst, b...)
}

func readPubKeyCompressed(c *hashes.Cursor) (xcrypto.PubKey, error) {
	b, err := c.ReadExact(33)
	if err != nil {
		return xcrypto.PubKey{}, err
	}
	return xcrypto.PubKeyFromCompressed(b)
}

func appendConclaveOutput(dst []byte, o ConclaveOutput) []byte {
	dst = appendScript(dst, o.ScriptPubKey)
	dst = hashes.AppendU64LE(dst, o.Value)
	if o.Predecessor == nil {
		return hashes.AppendNoneOption(dst)
	}
	return hashes.AppendOption(dst, *o.Predecessor, appendOutpoint)
}

func readConclaveOutput(c *hashes.Cursor) (ConclaveOutput, error) {
	s, err := readScript(c)
	if err != nil {
		return ConclaveOutput{}, err
	}
	value, err := c.ReadU64LE()
	if err != nil {
		return ConclaveOutput{}, err
	}
	pred, err := hashes.ReadOption(c, maxVecLen, readOutpoint)
	if err != nil {
		return ConclaveOutput{}, err
	}
	return ConclaveOutput{ScriptPubKey: s, Value: value, Predecessor: pred}, nil
}

func appendConclaveInput(dst []byte, in ConclaveInput) []byte {
	dst = appendOutpoint(dst, in.Outpoint)
	dst = appendScript(dst, in.ScriptSig)
	dst = hashes.AppendU32LE(dst, in.Sequence)
	if in.Predecessor == nil {
		return hashes.AppendNoneOption(dst)
	}
	return hashes.AppendOption(dst, *in.Predecessor, appendInpoint)
}

func readConclaveInput(c *hashes.Cursor) (ConclaveInput, error) {
	op, err := readOutpoint(c)
	if err != nil {
		return ConclaveInput{}, err
	}
	s, err := readScript(c)
	if err != nil {
		return ConclaveInput{}, err
	}
	seq, err := c.ReadU32LE()
	if err != nil {
		return ConclaveInput{}, err
	}
	pred, err := hashes.ReadOption(c, maxVecLen, readInpoint)
	if err != nil {
		return ConclaveInput{}, err
	}
	return ConclaveInput{Outpoint: op, ScriptSig: s, Sequence: seq, Predecessor: pred}, nil
}

func appendBitcoinOutput(dst []byte, o BitcoinOutput) []byte {
	dst = hashes.AppendU64LE(dst, o.Value)
	return appendScript(dst, o.ScriptPubKey)
}

func readBitcoinOutput(c *hashes.Cursor) (BitcoinOutput, error) {
	value, err := c.ReadU64LE()
	if err != nil {
		return BitcoinOutput{}, err
	}
	s, err := readScript(c)
	if err != nil {
		return BitcoinOutput{}, err
	}
	return BitcoinOutput{Value: value, ScriptPubKey: s}, nil
}

func appendBitcoinInput(dst []byte, in BitcoinInput) []byte {
	dst = appendOutpoint(dst, in.PrevOutpoint)
	dst = appendScript(dst, in.ScriptSig)
	return hashes.AppendU32LE(dst, in.Sequence)
}

func readBitcoinInput(c *hashes.Cursor) (BitcoinInput, error) {
	op, err := readOutpoint(c)
	if err != nil {
		return BitcoinInput{}, err
	}
	s, err := readScript(c)
	if err != nil {
		return BitcoinInput{}, err
	}
	seq, err := c.ReadU32LE()
	if err != nil {
		return BitcoinInput{}, err
	}
	return BitcoinInput{PrevOutpoint: op, ScriptSig: s, Sequence: seq}, nil
}

// Serialize produces the canonical §4.6 encoding: version, lockTime,
// minSigs, Option<fundPoint>, Vec<trustees>, Vec<conclaveInputs>,
// Vec<bitcoinOutputs>, Vec<conclaveOutputs>.
func (tx *ConclaveTx) Serialize() []byte {
	dst := make([]byte, 0, 256)
	dst = hashes.AppendU32LE(dst, tx.Version)
	dst = hashes.AppendU32LE(dst, tx.LockTime)
	dst = hashes.AppendU32LE(dst, tx.MinSigs)
	if tx.FundPoint == nil {
		dst = hashes.AppendNoneOption(dst)
	} else {
		dst = hashes.AppendOption(dst, *tx.FundPoint, appendOutpoint)
	}
	dst = hashes.AppendVector(dst, tx.Trustees, appendPubKeyCompressedValue)
	dst = hashes.AppendVector(dst, tx.ConclaveInputs, appendConclaveInput)
	dst = hashes.AppendVector(dst, tx.BitcoinOutputs, appendBitcoinOutput)
	dst = hashes.AppendVector(dst, tx.ConclaveOutputs, appendConclaveOutput)
	return dst
}

// DeserializeConclaveTx parses the canonical §4.6 encoding.
func DeserializeConclaveTx(b []byte) (*ConclaveTx, error) {
	c := hashes.NewCursor(b)
	var tx ConclaveTx
	var err error
	if tx.Version, err = c.ReadU32LE(); err != nil {
		return nil, fmt.Errorf("txmodel: version: %w", err)
	}
	if tx.LockTime, err = c.ReadU32LE(); err != nil {
		return nil, fmt.Errorf("txmodel: lock_time: %w", err)
	}
	if tx.MinSigs, err = c.ReadU32LE(); err != nil {
		return nil, fmt.Errorf("txmodel: min_sigs: %w", err)
	}
	tx.FundPoint, err = hashes.ReadOption(c, maxVecLen, readOutpoint)
	if err != nil {
		return nil, fmt.Errorf("txmodel: fund_point: %w", err)
	}
	tx.Trustees, err = hashes.ReadVector(c, maxVecLen, "trustees", readPubKeyCompressed)
	if err != nil {
		return nil, fmt.Errorf("txmodel: trustees: %w", err)
	}
	tx.ConclaveInputs, err = hashes.ReadVector(c, maxVecLen, "conclave_inputs", readConclaveInput)
	if err != nil {
		return nil, fmt.Errorf("txmodel: conclave_inputs: %w", err)
	}
	tx.BitcoinOutputs, err = hashes.ReadVector(c, maxVecLen, "bitcoin_outputs", readBitcoinOutput)
	if err != nil {
		return nil, fmt.Errorf("txmodel: bitcoin_outputs: %w", err)
	}
	tx.ConclaveOutputs, err = hashes.ReadVector(c, maxVecLen, "conclave_outputs", readConclaveOutput)
	if err != nil {
		return nil, fmt.Errorf("txmodel: conclave_outputs: %w", err)
	}
	if c.Remaining() != 0 {
		return nil, fmt.Errorf("txmodel: trailing bytes after conclave tx")
	}
	return &tx, nil
}

// Serialize produces the §4.6 expansion encoding for BitcoinTx:
// version, Vec<inputs>, Vec<outputs>, lockTime.
func (tx *BitcoinTx) Serialize() []byte {
	dst := make([]byte, 0, 256)
	dst = hashes.AppendU32LE(dst, tx.Version)
	dst = hashes.AppendVector(dst, tx.Inputs, appendBitcoinInput)
	dst = hashes.AppendVector(dst, tx.Outputs, appendBitcoinOutput)
	dst = hashes.AppendU32LE(dst, tx.LockTime)
	return dst
}

// DeserializeBitcoinTx parses the §4.6 expansion BitcoinTx encoding.
func DeserializeBitcoinTx(b []byte) (*BitcoinTx, error) {
	c := hashes.NewCursor(b)
	var tx BitcoinTx
	var err error
	if tx.Version, err = c.ReadU32LE(); err != nil {
		return nil, fmt.Errorf("txmodel: version: %w", err)
	}
	tx.Inputs, err = hashes.ReadVector(c, maxVecLen, "inputs", readBitcoinInput)
	if err != nil {
		return nil, fmt.Errorf("txmodel: inputs: %w", err)
	}
	tx.Outputs, err = hashes.ReadVector(c, maxVecLen, "outputs", readBitcoinOutput)
	if err != nil {
		return nil, fmt.Errorf("txmodel: outputs: %w", err)
	}
	if tx.LockTime, err = c.ReadU32LE(); err != nil {
		return nil, fmt.Errorf("txmodel: lock_time: %w", err)
	}
	if c.Remaining() != 0 {
		return nil, fmt.Errorf("txmodel: trailing bytes after bitcoin tx")
	}
	return &tx, nil
}
