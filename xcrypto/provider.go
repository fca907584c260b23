// Package xcrypto provides the SECP256k1/ECDSA and hash primitives the
// ledger and address/script layers build on, behind a narrow Provider
// interface so tests can substitute a deterministic implementation.
package xcrypto

import "conclave.dev/node/hashes"

// Provider is the narrow crypto interface consensus-adjacent code
// depends on, mirroring the teacher's CryptoProvider seam.
type Provider interface {
	SHA256(input []byte) hashes.Hash32
	Hash256(input []byte) hashes.Hash32
	Hash160(input []byte) hashes.Hash20
	VerifyECDSA(pub PubKey, sig EcdsaSig, digest hashes.Hash32) bool
}
