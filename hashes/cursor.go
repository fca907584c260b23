package hashes

import "encoding/binary"

// Cursor reads canonical wire values off a byte slice in order, the way
// every ledger-visible decoder in this repository consumes its input.
type Cursor struct {
	b   []byte
	pos int
}

// NewCursor creates a cursor for reading from b with the initial read
// position set to 0.
func NewCursor(b []byte) *Cursor {
	return &Cursor{b: b, pos: 0}
}

// Remaining returns the number of unread bytes.
func (c *Cursor) Remaining() int {
	if c.pos >= len(c.b) {
		return 0
	}
	return len(c.b) - c.pos
}

// Pos returns the current read offset.
func (c *Cursor) Pos() int { return c.pos }

func (c *Cursor) ReadExact(n int) ([]byte, error) {
	if n < 0 || c.Remaining() < n {
		return nil, parseErr("truncated")
	}
	start := c.pos
	c.pos += n
	return c.b[start:c.pos], nil
}

func (c *Cursor) ReadU8() (byte, error) {
	b, err := c.ReadExact(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (c *Cursor) ReadU16LE() (uint16, error) {
	b, err := c.ReadExact(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (c *Cursor) ReadU32LE() (uint32, error) {
	b, err := c.ReadExact(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (c *Cursor) ReadU64LE() (uint64, error) {
	b, err := c.ReadExact(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// ReadHash20 reads a 20-byte digest as-is (no byte reversal).
func (c *Cursor) ReadHash20() (Hash20, error) {
	b, err := c.ReadExact(20)
	if err != nil {
		return Hash20{}, err
	}
	var out Hash20
	copy(out[:], b)
	return out, nil
}

// ReadHash32 reads a 32-byte digest and reverses it, undoing the wire
// byte-reversal convention of §4.1.
func (c *Cursor) ReadHash32() (Hash32, error) {
	b, err := c.ReadExact(32)
	if err != nil {
		return Hash32{}, err
	}
	var out Hash32
	copy(out[:], b)
	return out.Reversed(), nil
}

// ReadVarInt reads a Bitcoin-style CompactSize varint, rejecting
// non-minimal encodings.
func (c *Cursor) ReadVarInt() (uint64, error) {
	tag, err := c.ReadU8()
	if err != nil {
		return 0, err
	}
	switch {
	case tag < 0xfd:
		return uint64(tag), nil
	case tag == 0xfd:
		v, err := c.ReadU16LE()
		if err != nil {
			return 0, err
		}
		if v < 0xfd {
			return 0, parseErr("non-minimal varint (0xfd)")
		}
		return uint64(v), nil
	case tag == 0xfe:
		v, err := c.ReadU32LE()
		if err != nil {
			return 0, err
		}
		if v <= 0xffff {
			return 0, parseErr("non-minimal varint (0xfe)")
		}
		return uint64(v), nil
	default:
		v, err := c.ReadU64LE()
		if err != nil {
			return 0, err
		}
		if v <= 0xffff_ffff {
			return 0, parseErr("non-minimal varint (0xff)")
		}
		return v, nil
	}
}

// ReadVarIntBounded reads a varint and rejects values above max,
// returning an error tagged with name for the caller's diagnostics.
func (c *Cursor) ReadVarIntBounded(max uint64, name string) (uint64, error) {
	v, err := c.ReadVarInt()
	if err != nil {
		return 0, err
	}
	if v > max {
		return 0, parseErr("%s count exceeds bound (%d > %d)", name, v, max)
	}
	return v, nil
}

// ReadBytesVec reads a varint byte-length followed by that many bytes
// (the §4.1 encoding used for Script and push-data payloads).
func (c *Cursor) ReadBytesVec(maxLen uint64, name string) ([]byte, error) {
	n, err := c.ReadVarIntBounded(maxLen, name)
	if err != nil {
		return nil, err
	}
	return c.ReadExact(int(n))
}

// ReadOption reads the §4.1 Option<T> encoding: a varint byte-length (0
// if absent) followed by that many bytes, which decodeInner must parse
// in full. A zero length always decodes as absent (nil, nil): a
// present-but-empty payload cannot be told apart from absent on the wire.
func ReadOption[T any](c *Cursor, maxLen uint64, decodeInner func(*Cursor) (T, error)) (*T, error) {
	n, err := c.ReadVarIntBounded(maxLen, "option")
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	inner, err := c.ReadExact(int(n))
	if err != nil {
		return nil, err
	}
	ic := NewCursor(inner)
	v, err := decodeInner(ic)
	if err != nil {
		return nil, err
	}
	if ic.Remaining() != 0 {
		return nil, parseErr("option payload has trailing bytes")
	}
	return &v, nil
}

// ReadVector reads the §4.1 Vec<T> encoding: a varint count followed by
// that many elements decoded with decodeOne.
func ReadVector[T any](c *Cursor, maxCount uint64, name string, decodeOne func(*Cursor) (T, error)) ([]T, error) {
	n, err := c.ReadVarIntBounded(maxCount, name)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, n)
	for i := uint64(0); i < n; i++ {
		v, err := decodeOne(c)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
