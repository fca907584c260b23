package script

import (
	"encoding/hex"
	"fmt"
	"strings"

	"conclave.dev/node/hashes"
	"conclave.dev/node/xcrypto"
)

// Script is a finite ordered sequence of opcodes and raw push-data
// chunks, represented directly as its canonical flat byte encoding.
// Equality is byte-equality, matching §3.1.
type Script []byte

// New returns an empty script builder.
func New() Script { return Script{} }

// AddOp appends a single opcode byte.
func (s Script) AddOp(op Opcode) Script {
	return append(s, byte(op))
}

// AddData appends data as a minimally-encoded push, choosing the
// direct byte-count form for short pushes and OP_PUSHDATA1/2/4 for
// longer ones, matching Bitcoin's canonical push rules.
func (s Script) AddData(data []byte) Script {
	n := len(data)
	switch {
	case n == 0:
		return append(s, byte(OP_0))
	case n <= 0x4b:
		s = append(s, byte(n))
	case n <= 0xff:
		s = append(s, byte(OP_PUSHDATA1), byte(n))
	case n <= 0xffff:
		s = append(s, byte(OP_PUSHDATA2), byte(n), byte(n>>8))
	default:
		s = append(s, byte(OP_PUSHDATA4), byte(n), byte(n>>8), byte(n>>16), byte(n>>24))
	}
	return append(s, data...)
}

// Bytes returns the flat canonical byte encoding.
func (s Script) Bytes() []byte { return []byte(s) }

// Hash160 returns RIPEMD-160(SHA-256(serialize(s))), used by p2sh over
// an inner script.
func (s Script) Hash160() hashes.Hash20 {
	return xcrypto.Hash160(s)
}

// Hash256 returns the canonical 32-byte wallet hash (§4.5), the key
// used in FundTips/SpendTips.
func (s Script) Hash256() hashes.Hash32 {
	return xcrypto.Hash256(s)
}

// SHA256 returns SHA-256(serialize(s)), used by p2wsh over an inner
// script.
func (s Script) SHA256() hashes.Hash32 {
	return xcrypto.SHA256(s)
}

// Element is one decoded opcode or push-data entry, produced by Parse.
type Element struct {
	Op     Opcode
	Data   []byte
	IsPush bool
}

// Parse decodes the flat byte encoding back into its element sequence.
func Parse(raw []byte) ([]Element, error) {
	var out []Element
	i := 0
	for i < len(raw) {
		op := Opcode(raw[i])
		i++
		switch {
		case op == OP_0:
			out = append(out, Element{Op: OP_0, IsPush: true})
		case byte(op) >= 1 && byte(op) <= 0x4b:
			n := int(op)
			if i+n > len(raw) {
				return nil, fmt.Errorf("script: truncated push of %d bytes", n)
			}
			out = append(out, Element{Data: append([]byte(nil), raw[i:i+n]...), IsPush: true})
			i += n
		case op == OP_PUSHDATA1:
			if i+1 > len(raw) {
				return nil, fmt.Errorf("script: truncated PUSHDATA1 length")
			}
			n := int(raw[i])
			i++
			if i+n > len(raw) {
				return nil, fmt.Errorf("script: truncated PUSHDATA1 payload")
			}
			out = append(out, Element{Data: append([]byte(nil), raw[i:i+n]...), IsPush: true})
			i += n
		case op == OP_PUSHDATA2:
			if i+2 > len(raw) {
				return nil, fmt.Errorf("script: truncated PUSHDATA2 length")
			}
			n := int(raw[i]) | int(raw[i+1])<<8
			i += 2
			if i+n > len(raw) {
				return nil, fmt.Errorf("script: truncated PUSHDATA2 payload")
			}
			out = append(out, Element{Data: append([]byte(nil), raw[i:i+n]...), IsPush: true})
			i += n
		case op == OP_PUSHDATA4:
			if i+4 > len(raw) {
				return nil, fmt.Errorf("script: truncated PUSHDATA4 length")
			}
			n := int(raw[i]) | int(raw[i+1])<<8 | int(raw[i+2])<<16 | int(raw[i+3])<<24
			i += 4
			if i+n > len(raw) || n < 0 {
				return nil, fmt.Errorf("script: truncated PUSHDATA4 payload")
			}
			out = append(out, Element{Data: append([]byte(nil), raw[i:i+n]...), IsPush: true})
			i += n
		default:
			out = append(out, Element{Op: op})
		}
	}
	return out, nil
}

// ParseASM builds a Script from a whitespace-delimited assembly
// string: recognized opcode mnemonics (OP_DUP, OP_HASH160, ...) and
// bare hex literals for push-data.
func ParseASM(asm string) (Script, error) {
	s := New()
	for _, tok := range strings.Fields(asm) {
		if op, ok := mnemonicToOp(tok); ok {
			s = s.AddOp(op)
			continue
		}
		data, err := hex.DecodeString(tok)
		if err != nil {
			return nil, fmt.Errorf("script: unrecognized token %q", tok)
		}
		s = s.AddData(data)
	}
	return s, nil
}

func mnemonicToOp(tok string) (Opcode, bool) {
	upper := strings.ToUpper(tok)
	for op, name := range opcodeNames {
		if name == upper {
			return op, true
		}
	}
	for n := 0; n <= 16; n++ {
		if name, ok := nameForSmallInt(OpN(n)); ok && name == upper {
			return OpN(n), true
		}
	}
	return 0, false
}
