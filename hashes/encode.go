package hashes

import "encoding/binary"

// AppendU8 appends v as a single byte to dst.
func AppendU8(dst []byte, v byte) []byte { return append(dst, v) }

// AppendU16LE appends v as a 2-byte little-endian value to dst.
func AppendU16LE(dst []byte, v uint16) []byte {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], v)
	return append(dst, buf[:]...)
}

// AppendU32LE appends v as a 4-byte little-endian value to dst.
func AppendU32LE(dst []byte, v uint32) []byte {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	return append(dst, buf[:]...)
}

// AppendU64LE appends v as an 8-byte little-endian value to dst.
func AppendU64LE(dst []byte, v uint64) []byte {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	return append(dst, buf[:]...)
}

// AppendHash20 appends h as-is (no byte reversal).
func AppendHash20(dst []byte, h Hash20) []byte {
	return append(dst, h[:]...)
}

// AppendHash32 appends h byte-reversed, per the §4.1 wire convention.
func AppendHash32(dst []byte, h Hash32) []byte {
	r := h.Reversed()
	return append(dst, r[:]...)
}

// AppendVarInt encodes n as a Bitcoin-style CompactSize varint and
// appends it to dst.
func AppendVarInt(dst []byte, n uint64) []byte {
	switch {
	case n < 0xfd:
		return append(dst, byte(n))
	case n <= 0xffff:
		dst = append(dst, 0xfd)
		return AppendU16LE(dst, uint16(n))
	case n <= 0xffff_ffff:
		dst = append(dst, 0xfe)
		return AppendU32LE(dst, uint32(n))
	default:
		dst = append(dst, 0xff)
		return AppendU64LE(dst, n)
	}
}

// AppendBytesVec appends the varint byte-length of b followed by b
// itself — the §4.1 encoding for Script and other raw byte payloads.
func AppendBytesVec(dst []byte, b []byte) []byte {
	dst = AppendVarInt(dst, uint64(len(b)))
	return append(dst, b...)
}

// AppendOption appends the §4.1 Option<T> encoding for a present value:
// the varint byte-length of encodeInner(v)'s output followed by those
// bytes. Callers with an absent value append AppendVarInt(dst, 0)
// directly instead of calling this helper.
func AppendOption[T any](dst []byte, v T, encodeInner func([]byte, T) []byte) []byte {
	inner := encodeInner(nil, v)
	dst = AppendVarInt(dst, uint64(len(inner)))
	return append(dst, inner...)
}

// AppendNoneOption appends the absent-value §4.1 Option<T> encoding.
func AppendNoneOption(dst []byte) []byte {
	return AppendVarInt(dst, 0)
}

// AppendVector appends the §4.1 Vec<T> encoding: a varint count
// followed by each element's encoding via encodeOne, concatenated.
func AppendVector[T any](dst []byte, items []T, encodeOne func([]byte, T) []byte) []byte {
	dst = AppendVarInt(dst, uint64(len(items)))
	for _, item := range items {
		dst = encodeOne(dst, item)
	}
	return dst
}

// DecodeVarInt decodes one CompactSize value from the front of buf and
// returns the value plus the number of bytes consumed.
func DecodeVarInt(buf []byte) (uint64, int, error) {
	c := NewCursor(buf)
	v, err := c.ReadVarInt()
	if err != nil {
		return 0, 0, err
	}
	return v, c.Pos(), nil
}
