package txmodel

import (
	"fmt"

	"conclave.dev/node/hashes"
	"conclave.dev/node/script"
	"conclave.dev/node/xcrypto"
)

// maxTrustees bounds the claim multisig to the same small-int range
// Bitcoin's OP_1..OP_16 push opcodes can express.
const maxTrustees = 16

// ClaimScript derives the canonical witness script a claim tx's
// Bitcoin fund output must commit to (§4.6): an m-of-n CHECKMULTISIG
// over the trustee set, followed by an OP_RETURN carrying the
// canonical serialization of conclaveOutputs so the script is a
// deterministic function of (minSigs, trustees, conclaveOutputs).
func ClaimScript(minSigs uint32, trustees []xcrypto.PubKey, outputs []ConclaveOutput) (script.Script, error) {
	if minSigs < 1 || int(minSigs) > len(trustees) {
		return nil, fmt.Errorf("txmodel: min_sigs %d out of range for %d trustees", minSigs, len(trustees))
	}
	if len(trustees) > maxTrustees {
		return nil, fmt.Errorf("txmodel: claim script supports at most %d trustees, got %d", maxTrustees, len(trustees))
	}

	s := script.New().AddOp(script.OpN(int(minSigs)))
	for _, t := range trustees {
		pk, err := t.SerializeCompressed()
		if err != nil {
			return nil, fmt.Errorf("txmodel: trustee pubkey: %w", err)
		}
		s = s.AddData(pk)
	}
	s = s.AddOp(script.OpN(len(trustees))).AddOp(script.OP_CHECKMULTISIG)

	var commitment []byte
	commitment = hashes.AppendVector(commitment, outputs, appendConclaveOutput)
	s = s.AddOp(script.OP_RETURN).AddData(commitment)
	return s, nil
}

// ClaimScriptCommitment returns SHA-256(serialize(claimScript)), the
// 32-byte program a claim tx's Bitcoin fund output must carry inside a
// P2WSH scriptPubKey (§3.5 invariant 7).
func ClaimScriptCommitment(tx *ConclaveTx) (hashes.Hash32, error) {
	cs, err := ClaimScript(tx.MinSigs, tx.Trustees, tx.ConclaveOutputs)
	if err != nil {
		return hashes.Hash32{}, err
	}
	return cs.SHA256(), nil
}
