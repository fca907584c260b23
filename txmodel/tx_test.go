package txmodel

import (
	"testing"

	"conclave.dev/node/hashes"
	"conclave.dev/node/script"
	"conclave.dev/node/xcrypto"
)

func mustPrivKey(t *testing.T, fill byte) xcrypto.PrivKey {
	t.Helper()
	var scalar hashes.Hash32
	scalar[31] = fill
	priv, err := xcrypto.PrivKeyFromBytes(scalar[:])
	if err != nil {
		t.Fatalf("PrivKeyFromBytes: %v", err)
	}
	return priv
}

func TestConclaveTxSerializationRoundTripClaim(t *testing.T) {
	trustee := mustPrivKey(t, 1).Public()
	out := ConclaveOutput{ScriptPubKey: script.P2PKH(hashes.Hash20{0x01}), Value: 100}
	fp := Outpoint{TxID: hashes.Hash32{0xaa}, Index: 0}

	tx := &ConclaveTx{
		Version:         1,
		LockTime:        0,
		MinSigs:         1,
		FundPoint:       &fp,
		Trustees:        []xcrypto.PubKey{trustee},
		ConclaveOutputs: []ConclaveOutput{out},
	}
	raw := tx.Serialize()
	back, err := DeserializeConclaveTx(raw)
	if err != nil {
		t.Fatalf("DeserializeConclaveTx: %v", err)
	}
	if !back.IsClaim() {
		t.Fatalf("expected claim tx")
	}
	if back.TxID() != tx.TxID() {
		t.Fatalf("round trip changed tx id")
	}
	if len(back.Trustees) != 1 || back.Trustees[0] != trustee {
		t.Fatalf("trustee mismatch: %+v", back.Trustees)
	}
	if back.ConclaveOutputs[0].Value != 100 {
		t.Fatalf("output value mismatch")
	}
}

func TestConclaveTxSerializationRoundTripSpendWithPredecessors(t *testing.T) {
	pred := Outpoint{TxID: hashes.Hash32{0x01}, Index: 3}
	predIn := Inpoint{TxID: hashes.Hash32{0x02}, Index: 1}

	tx := &ConclaveTx{
		Version:  2,
		LockTime: 7,
		ConclaveInputs: []ConclaveInput{
			{Outpoint: Outpoint{TxID: hashes.Hash32{0x03}, Index: 0}, Sequence: 0xffffffff, Predecessor: &predIn},
		},
		ConclaveOutputs: []ConclaveOutput{
			{ScriptPubKey: script.P2PKH(hashes.Hash20{0x09}), Value: 50, Predecessor: &pred},
		},
	}
	raw := tx.Serialize()
	back, err := DeserializeConclaveTx(raw)
	if err != nil {
		t.Fatalf("DeserializeConclaveTx: %v", err)
	}
	if back.IsClaim() {
		t.Fatalf("expected spend tx")
	}
	if back.ConclaveInputs[0].Predecessor == nil || *back.ConclaveInputs[0].Predecessor != predIn {
		t.Fatalf("input predecessor mismatch: %+v", back.ConclaveInputs[0].Predecessor)
	}
	if back.ConclaveOutputs[0].Predecessor == nil || *back.ConclaveOutputs[0].Predecessor != pred {
		t.Fatalf("output predecessor mismatch: %+v", back.ConclaveOutputs[0].Predecessor)
	}
}

func TestPredecessorChangesTxID(t *testing.T) {
	base := &ConclaveTx{
		Version:         1,
		ConclaveOutputs: []ConclaveOutput{{ScriptPubKey: script.P2PKH(hashes.Hash20{0x01}), Value: 1}},
	}
	initial := base.TxID()

	pred := Outpoint{TxID: hashes.Hash32{0x42}, Index: 0}
	base.ConclaveOutputs[0].Predecessor = &pred
	final := base.TxID()

	if initial == final {
		t.Fatalf("patching predecessor must change the tx id (initialTxId vs finalTxId per §3.3)")
	}
}

func TestBitcoinTxSerializationRoundTrip(t *testing.T) {
	tx := &BitcoinTx{
		Version: 1,
		Inputs: []BitcoinInput{
			{PrevOutpoint: Outpoint{TxID: hashes.Hash32{0x05}, Index: 2}, Sequence: 0xffffffff},
		},
		Outputs: []BitcoinOutput{
			{Value: 100000, ScriptPubKey: script.P2WSHHash(hashes.Hash32{0x07})},
		},
		LockTime: 500000,
	}
	raw := tx.Serialize()
	back, err := DeserializeBitcoinTx(raw)
	if err != nil {
		t.Fatalf("DeserializeBitcoinTx: %v", err)
	}
	if back.TxID() != tx.TxID() {
		t.Fatalf("bitcoin tx id mismatch after round trip")
	}
	if back.Outputs[0].Value != 100000 {
		t.Fatalf("output value mismatch")
	}
}

func TestHashAgreementReversedWireBytes(t *testing.T) {
	tx := &ConclaveTx{Version: 1}
	id := tx.TxID()
	raw := tx.Serialize()
	// The outpoint/txid encoding on the wire is byte-reversed relative
	// to the canonical big-endian hex id (§4.1/§8.1 hash agreement).
	op := Outpoint{TxID: id, Index: 0}
	encoded := appendOutpoint(nil, op)
	reversed := id.Reversed()
	if string(encoded[:32]) != string(reversed[:]) {
		t.Fatalf("outpoint encoding did not byte-reverse the txid")
	}
}

func TestClaimScriptCommitmentDeterministic(t *testing.T) {
	trustee := mustPrivKey(t, 9).Public()
	tx := &ConclaveTx{
		MinSigs:         1,
		Trustees:        []xcrypto.PubKey{trustee},
		ConclaveOutputs: []ConclaveOutput{{ScriptPubKey: script.P2PKH(hashes.Hash20{0x11}), Value: 10}},
	}
	a, err := ClaimScriptCommitment(tx)
	if err != nil {
		t.Fatalf("ClaimScriptCommitment: %v", err)
	}
	b, err := ClaimScriptCommitment(tx)
	if err != nil {
		t.Fatalf("ClaimScriptCommitment: %v", err)
	}
	if a != b {
		t.Fatalf("claim script commitment must be deterministic")
	}
}

func TestClaimScriptRejectsBadMinSigs(t *testing.T) {
	trustee := mustPrivKey(t, 3).Public()
	if _, err := ClaimScript(0, []xcrypto.PubKey{trustee}, nil); err == nil {
		t.Fatalf("expected error for min_sigs=0")
	}
	if _, err := ClaimScript(2, []xcrypto.PubKey{trustee}, nil); err == nil {
		t.Fatalf("expected error for min_sigs exceeding trustee count")
	}
}
