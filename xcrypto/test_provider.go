package xcrypto

import "conclave.dev/node/hashes"

// StubProvider is a development/test-only provider. Hashing is real
// (SHA-256/hash160/hash256). With AlwaysValid set, ECDSA verification
// accepts every signature; otherwise it falls back to real
// verification. Mirrors the teacher's
// DevStdCryptoProvider seam: it does not claim production fitness.
type StubProvider struct {
	// AlwaysValid, when true, makes VerifyECDSA accept any input.
	AlwaysValid bool
}

func (StubProvider) SHA256(input []byte) hashes.Hash32  { return SHA256(input) }
func (StubProvider) Hash256(input []byte) hashes.Hash32 { return Hash256(input) }
func (StubProvider) Hash160(input []byte) hashes.Hash20 { return Hash160(input) }

func (p StubProvider) VerifyECDSA(pub PubKey, sig EcdsaSig, digest hashes.Hash32) bool {
	if p.AlwaysValid {
		return true
	}
	return VerifyECDSA(pub, sig, digest)
}
