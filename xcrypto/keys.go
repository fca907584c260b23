package xcrypto

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"

	"conclave.dev/node/hashes"
)

// PubKey is a point on SECP256k1, stored as two 32-byte coordinates per
// §3.1. It serializes in compressed (33B) or uncompressed (65B) form.
type PubKey struct {
	X hashes.Hash32
	Y hashes.Hash32
}

// EcdsaSig is an (r, s) pair. It serializes as DER for script contexts
// and as 64 raw bytes otherwise.
type EcdsaSig struct {
	R hashes.Hash32
	S hashes.Hash32
}

// PrivKey is a 32-byte SECP256k1 scalar in [1, n-1].
type PrivKey struct {
	scalar hashes.Hash32
}

// PrivKeyFromBytes constructs a PrivKey from a 32-byte scalar, rejecting
// zero and out-of-range values.
func PrivKeyFromBytes(b []byte) (PrivKey, error) {
	if len(b) != 32 {
		return PrivKey{}, fmt.Errorf("privkey: expected 32 bytes, got %d", len(b))
	}
	priv, _ := btcec.PrivKeyFromBytes(b)
	if priv == nil {
		return PrivKey{}, fmt.Errorf("privkey: invalid scalar")
	}
	var out PrivKey
	copy(out.scalar[:], b)
	return out, nil
}

func (p PrivKey) btcec() *btcec.PrivateKey {
	priv, _ := btcec.PrivKeyFromBytes(p.scalar[:])
	return priv
}

// Public returns the compressed-form public key derived from p.
func (p PrivKey) Public() PubKey {
	pub := p.btcec().PubKey()
	return pubKeyFromBtcec(pub)
}

// Sign returns a low-S ECDSA signature over the 32-byte digest.
func (p PrivKey) Sign(digest hashes.Hash32) EcdsaSig {
	sig := ecdsa.Sign(p.btcec(), digest[:])
	r, s, err := derToRS(sig.Serialize())
	if err != nil {
		// Sign always produces a well-formed DER signature; a failure
		// here would indicate a broken library invariant.
		panic(fmt.Sprintf("xcrypto: signature self-decode failed: %v", err))
	}
	return EcdsaSig{R: r, S: s}
}

func pubKeyFromBtcec(pub *btcec.PublicKey) PubKey {
	var out PubKey
	xb := pub.X().Bytes()
	yb := pub.Y().Bytes()
	copy(out.X[:], xb[:])
	copy(out.Y[:], yb[:])
	return out
}

func (p PubKey) btcec() (*btcec.PublicKey, error) {
	var fx, fy btcec.FieldVal
	if overflow := fx.SetByteSlice(p.X[:]); overflow {
		return nil, fmt.Errorf("pubkey: x coordinate overflows field")
	}
	if overflow := fy.SetByteSlice(p.Y[:]); overflow {
		return nil, fmt.Errorf("pubkey: y coordinate overflows field")
	}
	return btcec.NewPublicKey(&fx, &fy), nil
}

// SerializeCompressed returns the 33-byte compressed SEC1 encoding.
func (p PubKey) SerializeCompressed() ([]byte, error) {
	pub, err := p.btcec()
	if err != nil {
		return nil, err
	}
	return pub.SerializeCompressed(), nil
}

// SerializeUncompressed returns the 65-byte uncompressed SEC1 encoding.
func (p PubKey) SerializeUncompressed() ([]byte, error) {
	pub, err := p.btcec()
	if err != nil {
		return nil, err
	}
	return pub.SerializeUncompressed(), nil
}

// PubKeyFromCompressed parses a 33- or 65-byte SEC1-encoded public key.
func PubKeyFromCompressed(b []byte) (PubKey, error) {
	pub, err := btcec.ParsePubKey(b)
	if err != nil {
		return PubKey{}, fmt.Errorf("pubkey: %w", err)
	}
	return pubKeyFromBtcec(pub), nil
}

// DER returns the DER encoding of sig, for embedding in a Script.
func (sig EcdsaSig) DER() []byte {
	return rsToDER(sig.R, sig.S)
}

// Raw64 returns the 64-byte raw (r||s) encoding.
func (sig EcdsaSig) Raw64() []byte {
	out := make([]byte, 0, 64)
	out = append(out, sig.R[:]...)
	out = append(out, sig.S[:]...)
	return out
}

// EcdsaSigFromRaw64 parses the 64-byte raw (r||s) encoding.
func EcdsaSigFromRaw64(b []byte) (EcdsaSig, error) {
	if len(b) != 64 {
		return EcdsaSig{}, fmt.Errorf("sig: expected 64 bytes, got %d", len(b))
	}
	var sig EcdsaSig
	copy(sig.R[:], b[:32])
	copy(sig.S[:], b[32:])
	return sig, nil
}

// EcdsaSigFromDER parses a DER-encoded ECDSA signature.
func EcdsaSigFromDER(b []byte) (EcdsaSig, error) {
	r, s, err := derToRS(b)
	if err != nil {
		return EcdsaSig{}, err
	}
	return EcdsaSig{R: r, S: s}, nil
}

// VerifyECDSA reports whether sig is a valid signature over digest by
// the private key corresponding to pub.
func VerifyECDSA(pub PubKey, sig EcdsaSig, digest hashes.Hash32) bool {
	pubKey, err := pub.btcec()
	if err != nil {
		return false
	}
	parsed, err := ecdsa.ParseDERSignature(rsToDER(sig.R, sig.S))
	if err != nil {
		return false
	}
	return parsed.Verify(digest[:], pubKey)
}
