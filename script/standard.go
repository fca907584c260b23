package script

import (
	"fmt"

	"conclave.dev/node/addr"
	"conclave.dev/node/hashes"
)

// P2PKH builds `DUP HASH160 <hash> EQUALVERIFY CHECKSIG`.
func P2PKH(hash hashes.Hash20) Script {
	return New().
		AddOp(OP_DUP).
		AddOp(OP_HASH160).
		AddData(hash[:]).
		AddOp(OP_EQUALVERIFY).
		AddOp(OP_CHECKSIG)
}

// P2SHHash builds `HASH160 <hash> EQUAL` over an already-hashed script.
func P2SHHash(hash hashes.Hash20) Script {
	return New().AddOp(OP_HASH160).AddData(hash[:]).AddOp(OP_EQUAL)
}

// P2SHScript builds the p2sh encumbrance of inner, hashing it with
// Hash160 first.
func P2SHScript(inner Script) Script {
	return P2SHHash(inner.Hash160())
}

// P2WPKH builds `OP_0 <hash>` over a 20-byte witness program.
func P2WPKH(hash hashes.Hash20) Script {
	return New().AddOp(OP_0).AddData(hash[:])
}

// P2WSHHash builds `OP_0 <hash>` over an already-hashed 32-byte
// witness program.
func P2WSHHash(hash hashes.Hash32) Script {
	return New().AddOp(OP_0).AddData(hash[:])
}

// P2WSHScript builds the p2wsh encumbrance of inner, hashing it with
// SHA-256 first.
func P2WSHScript(inner Script) Script {
	return P2WSHHash(inner.SHA256())
}

// P2H is the polymorphic factory of §4.5: it selects the correct
// scriptPubKey shape from an address's (format, payee) pair. Conclave
// addresses carry a 20-byte hash exactly like Classic, so they route
// through the same pubkey-hash/script-hash factories.
func P2H(a addr.Address) (Script, error) {
	switch a.Format {
	case addr.Classic, addr.Conclave:
		if len(a.Hash) != 20 {
			return nil, fmt.Errorf("script: p2h: expected 20-byte hash, got %d", len(a.Hash))
		}
		var h hashes.Hash20
		copy(h[:], a.Hash)
		if a.Payee == addr.ScriptPayee {
			return P2SHHash(h), nil
		}
		return P2PKH(h), nil
	case addr.Segwit:
		switch len(a.Hash) {
		case 20:
			var h hashes.Hash20
			copy(h[:], a.Hash)
			return P2WPKH(h), nil
		case 32:
			var h hashes.Hash32
			copy(h[:], a.Hash)
			return P2WSHHash(h), nil
		default:
			return nil, fmt.Errorf("script: p2h: segwit hash must be 20 or 32 bytes, got %d", len(a.Hash))
		}
	default:
		return nil, fmt.Errorf("script: p2h: unknown address format %v", a.Format)
	}
}

// IsP2WSH reports whether s is `OP_0 <32-byte program>` and, if so,
// returns the program.
func IsP2WSH(s Script) (hashes.Hash32, bool) {
	elems, err := Parse(s)
	if err != nil || len(elems) != 2 {
		return hashes.Hash32{}, false
	}
	if !elems[0].IsPush || elems[0].Op != OP_0 || len(elems[0].Data) != 0 {
		return hashes.Hash32{}, false
	}
	if !elems[1].IsPush || len(elems[1].Data) != 32 {
		return hashes.Hash32{}, false
	}
	var h hashes.Hash32
	copy(h[:], elems[1].Data)
	return h, true
}
