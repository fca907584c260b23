package xcrypto

import (
	"fmt"

	"conclave.dev/node/hashes"
)

// rsToDER encodes (r, s) as a DER SEQUENCE of two INTEGERs, the
// standard Bitcoin-script signature encoding.
func rsToDER(r, s hashes.Hash32) []byte {
	rEnc := derInt(r[:])
	sEnc := derInt(s[:])
	body := make([]byte, 0, len(rEnc)+len(sEnc))
	body = append(body, rEnc...)
	body = append(body, sEnc...)
	out := []byte{0x30}
	out = append(out, derLen(len(body))...)
	out = append(out, body...)
	return out
}

// derInt encodes an unsigned big-endian integer as a DER INTEGER,
// stripping leading zero bytes and prepending a 0x00 pad byte when the
// high bit is set (so the value is never mistaken for negative).
func derInt(v []byte) []byte {
	i := 0
	for i < len(v)-1 && v[i] == 0x00 {
		i++
	}
	v = v[i:]
	if len(v) == 0 {
		v = []byte{0x00}
	}
	pad := v[0]&0x80 != 0
	body := v
	if pad {
		body = append([]byte{0x00}, v...)
	}
	out := []byte{0x02}
	out = append(out, derLen(len(body))...)
	out = append(out, body...)
	return out
}

func derLen(n int) []byte {
	if n < 0x80 {
		return []byte{byte(n)}
	}
	// Lengths used by 32-byte ECDSA integers never exceed one
	// length-of-length byte.
	return []byte{0x81, byte(n)}
}

// derToRS decodes a DER SEQUENCE of two INTEGERs back into (r, s),
// left-padding each to 32 bytes.
func derToRS(der []byte) (r, s hashes.Hash32, err error) {
	pos := 0
	read := func(n int) ([]byte, error) {
		if pos+n > len(der) {
			return nil, fmt.Errorf("der: truncated")
		}
		out := der[pos : pos+n]
		pos += n
		return out, nil
	}
	tag, err := read(1)
	if err != nil || tag[0] != 0x30 {
		return r, s, fmt.Errorf("der: expected SEQUENCE tag")
	}
	seqLen, err := readDERLen(der, &pos)
	if err != nil {
		return r, s, err
	}
	if pos+seqLen != len(der) {
		return r, s, fmt.Errorf("der: trailing bytes")
	}
	rb, err := readDERInt(der, &pos)
	if err != nil {
		return r, s, err
	}
	sb, err := readDERInt(der, &pos)
	if err != nil {
		return r, s, err
	}
	if pos != len(der) {
		return r, s, fmt.Errorf("der: trailing bytes after s")
	}
	if err := padInto(r[:], rb); err != nil {
		return r, s, fmt.Errorf("der: r: %w", err)
	}
	if err := padInto(s[:], sb); err != nil {
		return r, s, fmt.Errorf("der: s: %w", err)
	}
	return r, s, nil
}

func readDERLen(b []byte, pos *int) (int, error) {
	if *pos >= len(b) {
		return 0, fmt.Errorf("der: truncated length")
	}
	first := b[*pos]
	*pos++
	if first < 0x80 {
		return int(first), nil
	}
	nbytes := int(first &^ 0x80)
	if nbytes == 0 || nbytes > 4 {
		return 0, fmt.Errorf("der: unsupported length encoding")
	}
	if *pos+nbytes > len(b) {
		return 0, fmt.Errorf("der: truncated length bytes")
	}
	n := 0
	for i := 0; i < nbytes; i++ {
		n = n<<8 | int(b[*pos+i])
	}
	*pos += nbytes
	return n, nil
}

func readDERInt(b []byte, pos *int) ([]byte, error) {
	if *pos >= len(b) || b[*pos] != 0x02 {
		return nil, fmt.Errorf("der: expected INTEGER tag")
	}
	*pos++
	n, err := readDERLen(b, pos)
	if err != nil {
		return nil, err
	}
	if *pos+n > len(b) {
		return nil, fmt.Errorf("der: truncated integer")
	}
	out := b[*pos : *pos+n]
	*pos += n
	// Strip a single DER sign-guard pad byte, if present.
	if len(out) > 1 && out[0] == 0x00 && out[1]&0x80 != 0 {
		out = out[1:]
	}
	return out, nil
}

func padInto(dst []byte, src []byte) error {
	if len(src) > len(dst) {
		return fmt.Errorf("value too large for %d-byte field", len(dst))
	}
	for i := range dst {
		dst[i] = 0
	}
	copy(dst[len(dst)-len(src):], src)
	return nil
}
