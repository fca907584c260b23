package ledger

import (
	"conclave.dev/node/hashes"
	"conclave.dev/node/script"
	"conclave.dev/node/xcrypto"
)

// verifyScriptSig checks that scriptSig satisfies scriptPubKey for
// digest, supporting the two shapes a Conclave wallet can spend from
// (§4.7.3 step 5): a plain pubkey-hash destination (p2pkh/p2wpkh,
// `[sig, pubkey]`) and an m-of-n script-hash destination
// (p2sh/p2wsh over `OP_m <pub...> OP_n CHECKMULTISIG`,
// `[sig1..sigM, redeemScript]`).
func verifyScriptSig(crypto xcrypto.Provider, pubKeyScript, sigScript script.Script, digest hashes.Hash32) error {
	pkElems, err := script.Parse(pubKeyScript)
	if err != nil {
		return ledgerErr(SignatureInvalid, "unparseable scriptPubKey: %v", err)
	}
	sigElems, err := script.Parse(sigScript)
	if err != nil {
		return ledgerErr(SignatureInvalid, "unparseable scriptSig: %v", err)
	}

	switch {
	case isPubKeyHash(pkElems):
		return verifyPubKeyHash(crypto, pkElems, sigElems, digest, false)
	case isWitnessPubKeyHash(pkElems):
		return verifyPubKeyHash(crypto, pkElems, sigElems, digest, true)
	case isScriptHash(pkElems):
		return verifyScriptHash(crypto, pkElems, sigElems, digest, func(b []byte) []byte {
			h := crypto.Hash160(b)
			return h[:]
		}, 20)
	case isWitnessScriptHash(pkElems):
		return verifyScriptHash(crypto, pkElems, sigElems, digest, func(b []byte) []byte {
			h := crypto.SHA256(b)
			return h[:]
		}, 32)
	default:
		return ledgerErr(SignatureInvalid, "unsupported scriptPubKey shape")
	}
}

func isPubKeyHash(e []script.Element) bool {
	return len(e) == 5 && e[0].Op == script.OP_DUP && e[1].Op == script.OP_HASH160 &&
		e[2].IsPush && len(e[2].Data) == 20 && e[3].Op == script.OP_EQUALVERIFY && e[4].Op == script.OP_CHECKSIG
}

func isWitnessPubKeyHash(e []script.Element) bool {
	return len(e) == 2 && e[0].IsPush && e[0].Op == script.OP_0 && e[1].IsPush && len(e[1].Data) == 20
}

func isScriptHash(e []script.Element) bool {
	return len(e) == 3 && e[0].Op == script.OP_HASH160 && e[1].IsPush && len(e[1].Data) == 20 && e[2].Op == script.OP_EQUAL
}

func isWitnessScriptHash(e []script.Element) bool {
	return len(e) == 2 && e[0].IsPush && e[0].Op == script.OP_0 && e[1].IsPush && len(e[1].Data) == 32
}

func verifyPubKeyHash(crypto xcrypto.Provider, pkElems, sigElems []script.Element, digest hashes.Hash32, witness bool) error {
	if len(sigElems) != 2 || !sigElems[0].IsPush || !sigElems[1].IsPush {
		return ledgerErr(SignatureInvalid, "pubkey-hash scriptSig must push exactly [sig, pubkey]")
	}
	var want []byte
	if witness {
		want = pkElems[1].Data
	} else {
		want = pkElems[2].Data
	}
	pubKeyBytes := sigElems[1].Data
	got := crypto.Hash160(pubKeyBytes)
	if !hashEqual20(got, want) {
		return ledgerErr(SignatureInvalid, "pubkey does not match scriptPubKey hash")
	}
	pub, err := xcrypto.PubKeyFromCompressed(pubKeyBytes)
	if err != nil {
		return ledgerErr(SignatureInvalid, "malformed pubkey: %v", err)
	}
	sig, err := xcrypto.EcdsaSigFromDER(sigElems[0].Data)
	if err != nil {
		return ledgerErr(SignatureInvalid, "malformed signature: %v", err)
	}
	if !crypto.VerifyECDSA(pub, sig, digest) {
		return ledgerErr(SignatureInvalid, "signature does not verify")
	}
	return nil
}

// verifyScriptHash checks a multisig scriptSig of the form
// `[sig1..sigK, redeemScript]` against a scriptPubKey committing to
// hashFn(redeemScript), then requires at least the redeem script's own
// minSigs threshold of those signatures to verify against distinct
// trustee pubkeys in order.
func verifyScriptHash(crypto xcrypto.Provider, pkElems, sigElems []script.Element, digest hashes.Hash32, hashFn func([]byte) []byte, hashLen int) error {
	if len(sigElems) < 2 {
		return ledgerErr(SignatureInvalid, "script-hash scriptSig must push at least [sig, redeemScript]")
	}
	last := sigElems[len(sigElems)-1]
	if !last.IsPush {
		return ledgerErr(SignatureInvalid, "script-hash scriptSig must end with the redeem script")
	}
	want := pkElems[1].Data
	if len(want) != hashLen {
		return ledgerErr(SignatureInvalid, "scriptPubKey hash has unexpected length %d", len(want))
	}
	got := hashFn(last.Data)
	if !bytesEqual(got, want) {
		return ledgerErr(SignatureInvalid, "redeem script does not match scriptPubKey hash")
	}

	redeemElems, err := script.Parse(last.Data)
	if err != nil {
		return ledgerErr(SignatureInvalid, "unparseable redeem script: %v", err)
	}
	minSigs, pubKeys, err := parseMultisigRedeem(redeemElems)
	if err != nil {
		return err
	}

	sigPushes := sigElems[:len(sigElems)-1]
	if len(sigPushes) < minSigs {
		return ledgerErr(SignatureInvalid, "only %d signatures pushed, need %d", len(sigPushes), minSigs)
	}

	pubIdx := 0
	matched := 0
	for _, sp := range sigPushes {
		if !sp.IsPush {
			return ledgerErr(SignatureInvalid, "scriptSig signature slot is not a push")
		}
		sig, err := xcrypto.EcdsaSigFromDER(sp.Data)
		if err != nil {
			return ledgerErr(SignatureInvalid, "malformed signature: %v", err)
		}
		for pubIdx < len(pubKeys) {
			if crypto.VerifyECDSA(pubKeys[pubIdx], sig, digest) {
				matched++
				pubIdx++
				break
			}
			pubIdx++
		}
	}
	if matched < minSigs {
		return ledgerErr(SignatureInvalid, "only %d of %d required signatures verified", matched, minSigs)
	}
	return nil
}

func parseMultisigRedeem(e []script.Element) (int, []xcrypto.PubKey, error) {
	if len(e) < 4 {
		return 0, nil, ledgerErr(SignatureInvalid, "redeem script too short for multisig")
	}
	if !script.IsSmallInt(e[0].Op) || e[0].IsPush {
		return 0, nil, ledgerErr(SignatureInvalid, "redeem script does not open with m")
	}
	minSigs := script.SmallIntValue(e[0].Op)
	last := e[len(e)-1]
	nOp := e[len(e)-2]
	if last.Op != script.OP_CHECKMULTISIG || nOp.IsPush || !script.IsSmallInt(nOp.Op) {
		return 0, nil, ledgerErr(SignatureInvalid, "redeem script does not close with n CHECKMULTISIG")
	}
	n := script.SmallIntValue(nOp.Op)
	pubElems := e[1 : len(e)-2]
	if len(pubElems) != n {
		return 0, nil, ledgerErr(SignatureInvalid, "redeem script declares %d pubkeys but pushes %d", n, len(pubElems))
	}
	pubKeys := make([]xcrypto.PubKey, 0, n)
	for _, pe := range pubElems {
		if !pe.IsPush {
			return 0, nil, ledgerErr(SignatureInvalid, "redeem script pubkey slot is not a push")
		}
		pub, err := xcrypto.PubKeyFromCompressed(pe.Data)
		if err != nil {
			return 0, nil, ledgerErr(SignatureInvalid, "malformed redeem script pubkey: %v", err)
		}
		pubKeys = append(pubKeys, pub)
	}
	return minSigs, pubKeys, nil
}

func hashEqual20(got hashes.Hash20, want []byte) bool {
	return bytesEqual(got[:], want)
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
