package addr

import "testing"

func hash20(fill byte) []byte {
	h := make([]byte, 20)
	for i := range h {
		h[i] = fill
	}
	return h
}

func TestClassicRoundTrip(t *testing.T) {
	cases := []struct {
		name    string
		network Network
		payee   Payee
	}{
		{"mainnet-pubkey", Mainnet, PubKeyPayee},
		{"mainnet-script", Mainnet, ScriptPayee},
		{"testnet-pubkey", Testnet, PubKeyPayee},
		{"testnet-script", Testnet, ScriptPayee},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			a := Address{Format: Classic, Network: c.network, Payee: c.payee, Hash: hash20(0x11)}
			s := a.String()
			if s == "" {
				t.Fatalf("empty encoding")
			}
			back, err := Parse(s)
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if back.Format != Classic || back.Network != c.network || back.Payee != c.payee {
				t.Fatalf("got %+v want network=%v payee=%v", back, c.network, c.payee)
			}
			if !back.Equal(a) {
				t.Fatalf("hash mismatch after round trip")
			}
		})
	}
}

func TestClassicChecksumRejectsTampering(t *testing.T) {
	a := Address{Format: Classic, Network: Mainnet, Payee: PubKeyPayee, Hash: hash20(0x22)}
	s := a.String()
	tampered := []byte(s)
	tampered[len(tampered)-1]++
	if _, err := Parse(string(tampered)); err == nil {
		t.Fatalf("expected checksum failure on tampered address")
	}
}

func TestSegwitRoundTrip(t *testing.T) {
	cases := []struct {
		name    string
		network Network
		hashLen int
		payee   Payee
	}{
		{"mainnet-p2wpkh", Mainnet, 20, PubKeyPayee},
		{"testnet-p2wpkh", Testnet, 20, PubKeyPayee},
		{"mainnet-p2wsh", Mainnet, 32, ScriptPayee},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			h := make([]byte, c.hashLen)
			for i := range h {
				h[i] = byte(i + 1)
			}
			a := Address{Format: Segwit, Network: c.network, Payee: c.payee, Hash: h}
			s := a.String()
			back, err := Parse(s)
			if err != nil {
				t.Fatalf("Parse(%q): %v", s, err)
			}
			if back.Format != Segwit || back.Network != c.network || back.Payee != c.payee {
				t.Fatalf("got %+v", back)
			}
			if !back.Equal(a) {
				t.Fatalf("hash mismatch after round trip")
			}
		})
	}
}

func TestConclaveRoundTrip(t *testing.T) {
	for _, payee := range []Payee{PubKeyPayee, ScriptPayee} {
		for _, network := range []Network{Mainnet, Testnet} {
			a := Address{Format: Conclave, Network: network, Payee: payee, Hash: hash20(0x33)}
			s := a.String()
			back, err := Parse(s)
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if back.Format != Conclave || back.Network != network || back.Payee != payee {
				t.Fatalf("got %+v want network=%v payee=%v", back, network, payee)
			}
			if !back.Equal(a) {
				t.Fatalf("hash mismatch after round trip")
			}
		}
	}
}

func TestConclaveChecksumRejectsTampering(t *testing.T) {
	a := Address{Format: Conclave, Network: Mainnet, Payee: PubKeyPayee, Hash: hash20(0x44)}
	s := a.String()
	tampered := []byte(s)
	tampered[len(tampered)-1]++
	if _, err := Parse(string(tampered)); err == nil {
		t.Fatalf("expected checksum failure on tampered address")
	}
}

func TestAddressEqualityIsHashOnly(t *testing.T) {
	h := hash20(0x55)
	classic := Address{Format: Classic, Network: Mainnet, Payee: PubKeyPayee, Hash: h}
	conclave := Address{Format: Conclave, Network: Testnet, Payee: ScriptPayee, Hash: h}
	if !classic.Equal(conclave) {
		t.Fatalf("addresses with identical hash must be equal regardless of format/network/payee")
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	if _, err := Parse("not-an-address-at-all"); err == nil {
		t.Fatalf("expected parse error on garbage input")
	}
}
