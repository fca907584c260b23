package ledger

import (
	"conclave.dev/node/hashes"
	"conclave.dev/node/script"
	"conclave.dev/node/txmodel"
	"conclave.dev/node/xcrypto"
)

// sighashDomainTag scopes digests to this ledger's signing context so a
// signature collected here can never be replayed against an unrelated
// protocol that happens to share a serialization format.
var sighashDomainTag = []byte("conclave-tx-sighash-v1")

// sighash computes the digest input index must sign: hash256 of the
// domain tag, the tx with every scriptSig blanked, the input's own
// index, and the previous output it spends (script and value) so the
// signature commits to exactly what it authorizes.
func sighash(tx *txmodel.ConclaveTx, inputIndex int, prevOut txmodel.ConclaveOutput) hashes.Hash32 {
	blanked := &txmodel.ConclaveTx{
		Version:         tx.Version,
		LockTime:        tx.LockTime,
		MinSigs:         tx.MinSigs,
		FundPoint:       tx.FundPoint,
		Trustees:        tx.Trustees,
		BitcoinOutputs:  tx.BitcoinOutputs,
		ConclaveOutputs: tx.ConclaveOutputs,
	}
	blanked.ConclaveInputs = make([]txmodel.ConclaveInput, len(tx.ConclaveInputs))
	for i, in := range tx.ConclaveInputs {
		blanked.ConclaveInputs[i] = txmodel.ConclaveInput{
			Outpoint:    in.Outpoint,
			ScriptSig:   script.New(),
			Sequence:    in.Sequence,
			Predecessor: in.Predecessor,
		}
	}

	buf := append([]byte(nil), sighashDomainTag...)
	buf = append(buf, blanked.Serialize()...)
	buf = hashes.AppendU32LE(buf, uint32(inputIndex))
	buf = hashes.AppendBytesVec(buf, prevOut.ScriptPubKey.Bytes())
	buf = hashes.AppendU64LE(buf, prevOut.Value)
	return xcrypto.Hash256(buf)
}
