package script

import (
	"bytes"
	"testing"

	"conclave.dev/node/addr"
	"conclave.dev/node/hashes"
)

func hash20(fill byte) hashes.Hash20 {
	var h hashes.Hash20
	for i := range h {
		h[i] = fill
	}
	return h
}

func hash32(fill byte) hashes.Hash32 {
	var h hashes.Hash32
	for i := range h {
		h[i] = fill
	}
	return h
}

func TestP2PKHShape(t *testing.T) {
	h := hash20(0xaa)
	s := P2PKH(h)
	want := New().AddOp(OP_DUP).AddOp(OP_HASH160).AddData(h[:]).AddOp(OP_EQUALVERIFY).AddOp(OP_CHECKSIG)
	if !bytes.Equal(s, want) {
		t.Fatalf("got % x want % x", s, want)
	}
	elems, err := Parse(s)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(elems) != 5 || elems[0].Op != OP_DUP || elems[1].Op != OP_HASH160 {
		t.Fatalf("unexpected elements: %+v", elems)
	}
}

func TestP2SHAndP2WSHFromInnerScript(t *testing.T) {
	inner := P2PKH(hash20(0x01))
	p2sh := P2SHScript(inner)
	wantP2SH := P2SHHash(inner.Hash160())
	if !bytes.Equal(p2sh, wantP2SH) {
		t.Fatalf("P2SHScript mismatch")
	}

	p2wsh := P2WSHScript(inner)
	wantP2WSH := P2WSHHash(inner.SHA256())
	if !bytes.Equal(p2wsh, wantP2WSH) {
		t.Fatalf("P2WSHScript mismatch")
	}

	program, ok := IsP2WSH(p2wsh)
	if !ok || program != inner.SHA256() {
		t.Fatalf("IsP2WSH: ok=%v program=%s", ok, program)
	}
}

func TestP2HDispatch(t *testing.T) {
	h := hash20(0x02)
	cases := []struct {
		name string
		a    addr.Address
		want Script
	}{
		{"classic-pubkey", addr.Address{Format: addr.Classic, Payee: addr.PubKeyPayee, Hash: h[:]}, P2PKH(h)},
		{"classic-script", addr.Address{Format: addr.Classic, Payee: addr.ScriptPayee, Hash: h[:]}, P2SHHash(h)},
		{"conclave-pubkey", addr.Address{Format: addr.Conclave, Payee: addr.PubKeyPayee, Hash: h[:]}, P2PKH(h)},
		{"segwit-pubkey", addr.Address{Format: addr.Segwit, Payee: addr.PubKeyPayee, Hash: h[:]}, P2WPKH(h)},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := P2H(c.a)
			if err != nil {
				t.Fatalf("P2H: %v", err)
			}
			if !bytes.Equal(got, c.want) {
				t.Fatalf("got % x want % x", got, c.want)
			}
		})
	}

	h32 := hash32(0x03)
	wshAddr := addr.Address{Format: addr.Segwit, Payee: addr.ScriptPayee, Hash: h32[:]}
	got, err := P2H(wshAddr)
	if err != nil {
		t.Fatalf("P2H segwit-script: %v", err)
	}
	if !bytes.Equal(got, P2WSHHash(h32)) {
		t.Fatalf("got % x want % x", got, P2WSHHash(h32))
	}
}

func TestParseASMRoundTrip(t *testing.T) {
	h := hash20(0x04)
	want := P2PKH(h)
	asm := "OP_DUP OP_HASH160 " + hexEncode(h[:]) + " OP_EQUALVERIFY OP_CHECKSIG"
	got, err := ParseASM(asm)
	if err != nil {
		t.Fatalf("ParseASM: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("got % x want % x", got, want)
	}
}

func hexEncode(b []byte) string {
	const digits = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, c := range b {
		out[i*2] = digits[c>>4]
		out[i*2+1] = digits[c&0xf]
	}
	return string(out)
}

func TestHash256IsWalletHash(t *testing.T) {
	s := P2PKH(hash20(0x05))
	if s.Hash256() != s.Hash256() {
		t.Fatalf("Hash256 must be deterministic")
	}
	other := P2PKH(hash20(0x06))
	if s.Hash256() == other.Hash256() {
		t.Fatalf("distinct scripts must hash differently")
	}
}
