// Package addr implements the Classic, Segwit, and Conclave address
// codecs of §4.4: three textual encodings over a network and a payee
// hash, unified into one algebraic Address type.
package addr

import (
	"bytes"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/btcsuite/btcd/btcutil/bech32"

	"conclave.dev/node/xcrypto"
)

// Format selects the textual encoding.
type Format int

const (
	Classic Format = iota
	Segwit
	Conclave
)

// Network selects the Bitcoin-compatible network parameters.
type Network int

const (
	Mainnet Network = iota
	Testnet
)

// Payee distinguishes a pubkey-hash destination from a script-hash one.
type Payee int

const (
	PubKeyPayee Payee = iota
	ScriptPayee
)

// Address is the algebraic (format, network, payee, hash) value of
// §3.1. Hash is 20 bytes except for Segwit+ScriptPayee (P2WSH), which
// carries a 32-byte witness program.
type Address struct {
	Format  Format
	Network Network
	Payee   Payee
	Hash    []byte
}

// Equal implements address equality as hash-equality only (§3.1):
// format and network are not compared.
func (a Address) Equal(b Address) bool {
	return bytes.Equal(a.Hash, b.Hash)
}

const (
	classicMainnetPubKeyVersion = 0x00
	classicMainnetScriptVersion = 0x05
	classicTestnetPubKeyVersion = 0x6f
	classicTestnetScriptVersion = 0xc4
)

func classicVersion(network Network, payee Payee) byte {
	switch {
	case network == Mainnet && payee == PubKeyPayee:
		return classicMainnetPubKeyVersion
	case network == Mainnet && payee == ScriptPayee:
		return classicMainnetScriptVersion
	case network == Testnet && payee == PubKeyPayee:
		return classicTestnetPubKeyVersion
	default:
		return classicTestnetScriptVersion
	}
}

func classicNetworkPayee(version byte) (Network, Payee, bool) {
	switch version {
	case classicMainnetPubKeyVersion:
		return Mainnet, PubKeyPayee, true
	case classicMainnetScriptVersion:
		return Mainnet, ScriptPayee, true
	case classicTestnetPubKeyVersion:
		return Testnet, PubKeyPayee, true
	case classicTestnetScriptVersion:
		return Testnet, ScriptPayee, true
	default:
		return 0, 0, false
	}
}

// String renders the address in its canonical textual encoding.
func (a Address) String() string {
	switch a.Format {
	case Classic:
		return encodeClassic(a)
	case Segwit:
		return encodeSegwit(a)
	case Conclave:
		return encodeConclave(a)
	default:
		return ""
	}
}

func encodeClassic(a Address) string {
	if len(a.Hash) != 20 {
		return ""
	}
	payload := make([]byte, 0, 25)
	payload = append(payload, classicVersion(a.Network, a.Payee))
	payload = append(payload, a.Hash...)
	checksum := xcrypto.Hash256(payload)
	payload = append(payload, checksum[:4]...)
	return base58.Encode(payload)
}

func hrpFor(network Network) string {
	if network == Mainnet {
		return "bc"
	}
	return "tb"
}

func encodeSegwit(a Address) string {
	converted, err := bech32.ConvertBits(a.Hash, 8, 5, true)
	if err != nil {
		return ""
	}
	data := append([]byte{0}, converted...)
	s, err := bech32.Encode(hrpFor(a.Network), data)
	if err != nil {
		return ""
	}
	return s
}

// conclaveChecksumModulus is M = 2^20 - 3, the largest prime below 2^20.
const conclaveChecksumModulus = (1 << 20) - 3

func conclaveNetworkByte(network Network) byte {
	if network == Mainnet {
		return 0
	}
	return 1
}

func conclaveClassByte(payee Payee) byte {
	if payee == PubKeyPayee {
		return 0
	}
	return 1
}

// conclaveChecksum computes the 20-bit checksum over the 164-bit string
// [class:3][hash:160][network:1], treated as a big-endian integer,
// modulo conclaveChecksumModulus.
func conclaveChecksum(class byte, hash []byte, network byte) uint32 {
	acc := uint32(class&0x7) % conclaveChecksumModulus
	for _, b := range hash {
		acc = (acc*256 + uint32(b)) % conclaveChecksumModulus
	}
	acc = (acc*2 + uint32(network&0x1)) % conclaveChecksumModulus
	return acc
}

func encodeConclave(a Address) string {
	if len(a.Hash) != 20 {
		return ""
	}
	class := conclaveClassByte(a.Payee)
	network := conclaveNetworkByte(a.Network)
	checksum := conclaveChecksum(class, a.Hash, network)

	// Layout: byte0 = [network:1][class:3][checksum top 4 bits]
	// bytes1-2 = checksum low 16 bits, bytes3-22 = hash.
	out := make([]byte, 23)
	out[0] = (network << 7) | (class << 4) | byte((checksum>>16)&0xf)
	out[1] = byte((checksum >> 8) & 0xff)
	out[2] = byte(checksum & 0xff)
	copy(out[3:], a.Hash)
	return base58.Encode(out)
}

// Parse decodes s, trying Base58 first (Classic at 25 bytes, Conclave
// at 23), then falling back to Bech32 (Segwit), per §4.4.
func Parse(s string) (Address, error) {
	if decoded := base58.Decode(s); len(decoded) == 25 {
		return parseClassic(decoded)
	} else if len(decoded) == 23 {
		return parseConclave(decoded)
	}
	return parseSegwit(s)
}

func parseClassic(decoded []byte) (Address, error) {
	payload, checksum := decoded[:21], decoded[21:]
	want := xcrypto.Hash256(payload)
	if !bytes.Equal(checksum, want[:4]) {
		return Address{}, fmt.Errorf("addr: classic checksum mismatch")
	}
	network, payee, ok := classicNetworkPayee(payload[0])
	if !ok {
		return Address{}, fmt.Errorf("addr: unknown classic version byte 0x%02x", payload[0])
	}
	hash := append([]byte(nil), payload[1:]...)
	return Address{Format: Classic, Network: network, Payee: payee, Hash: hash}, nil
}

func parseConclave(decoded []byte) (Address, error) {
	network := Network((decoded[0] >> 7) & 0x1)
	class := (decoded[0] >> 4) & 0x7
	payee := PubKeyPayee
	if class == 1 {
		payee = ScriptPayee
	} else if class != 0 {
		return Address{}, fmt.Errorf("addr: unknown conclave class %d", class)
	}
	checksum := uint32(decoded[0]&0xf)<<16 | uint32(decoded[1])<<8 | uint32(decoded[2])
	hash := decoded[3:]
	want := conclaveChecksum(conclaveClassByte(payee), hash, conclaveNetworkByte(network))
	if checksum != want {
		return Address{}, fmt.Errorf("addr: conclave checksum mismatch")
	}
	return Address{Format: Conclave, Network: network, Payee: payee, Hash: append([]byte(nil), hash...)}, nil
}

func parseSegwit(s string) (Address, error) {
	hrp, data, err := bech32.Decode(s)
	if err != nil {
		return Address{}, fmt.Errorf("addr: not a recognized address: %w", err)
	}
	var network Network
	switch hrp {
	case "bc":
		network = Mainnet
	case "tb":
		network = Testnet
	default:
		return Address{}, fmt.Errorf("addr: unknown bech32 hrp %q", hrp)
	}
	if len(data) < 1 {
		return Address{}, fmt.Errorf("addr: empty bech32 payload")
	}
	version := data[0]
	if version != 0 {
		return Address{}, fmt.Errorf("addr: only witness version 0 is accepted, got %d", version)
	}
	program, err := bech32.ConvertBits(data[1:], 5, 8, false)
	if err != nil {
		return Address{}, fmt.Errorf("addr: invalid witness program: %w", err)
	}
	switch len(program) {
	case 20:
		return Address{Format: Segwit, Network: network, Payee: PubKeyPayee, Hash: program}, nil
	case 32:
		return Address{Format: Segwit, Network: network, Payee: ScriptPayee, Hash: program}, nil
	default:
		return Address{}, fmt.Errorf("addr: witness program must be 20 or 32 bytes, got %d", len(program))
	}
}
