package xcrypto

import "conclave.dev/node/hashes"

// Secp256k1Provider is the production Provider: SHA-256/RIPEMD-160
// digests and real SECP256k1 ECDSA verification.
type Secp256k1Provider struct{}

func (Secp256k1Provider) SHA256(input []byte) hashes.Hash32  { return SHA256(input) }
func (Secp256k1Provider) Hash256(input []byte) hashes.Hash32 { return Hash256(input) }
func (Secp256k1Provider) Hash160(input []byte) hashes.Hash20 { return Hash160(input) }

func (Secp256k1Provider) VerifyECDSA(pub PubKey, sig EcdsaSig, digest hashes.Hash32) bool {
	return VerifyECDSA(pub, sig, digest)
}
