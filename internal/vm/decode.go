package vm

// OperandType identifies how an operand's bytes should be interpreted (§3).
type OperandType byte

const (
	TypeNone OperandType = iota
	TypeReg
	TypeMem
	TypeImm
)

// Width selects how many bytes of a value participate in a read/write (§3).
type Width byte

const (
	WidthNull Width = iota
	WidthByte
	WidthShort
	WidthInt
)

// bytes returns the number of bytes a width covers, for source truncation and
// destination masking.
func (w Width) bytes() int {
	switch w {
	case WidthByte:
		return 1
	case WidthShort:
		return 2
	case WidthInt:
		return 4
	default:
		return 0
	}
}

// Header is the unpacked form of the 3-byte instruction header (§3). Field
// names mirror the spec exactly so the bit layout below can be checked
// field-by-field against §3 rather than re-derived.
type Header struct {
	opcodeL byte
	op1T    OperandType
	op1VLo  byte

	op1VHi byte
	op2T   OperandType
	xorT   byte
	op1L   byte // stored as raw+1, i.e. already in [1,4]
	op2VHi byte

	op2VLo byte
	op2L   byte // stored as raw+1
	opcodeR byte
}

// Fetch reads a 3-byte header from code at vip. The caller guarantees
// vip+3 <= len(code) (§4.1).
func Fetch(code []byte, vip uint32) Header {
	b0, b1, b2 := code[vip], code[vip+1], code[vip+2]

	h := Header{
		opcodeL: b0 >> 3,
		op1T:    OperandType((b0 >> 1) & 0x3),
		op1VLo:  b0 & 0x1,

		op1VHi: (b1 >> 7) & 0x1,
		op2T:   OperandType((b1 >> 5) & 0x3),
		xorT:   (b1 >> 3) & 0x3,
		op1L:   ((b1 >> 1) & 0x3) + 1,
		op2VHi: b1 & 0x1,

		op2VLo:  (b2 >> 7) & 0x1,
		op2L:    ((b2 >> 5) & 0x3) + 1,
		opcodeR: b2 & 0x1F,
	}
	return h
}

// pack is the inverse of Fetch: it re-encodes a Header to 3 bytes. Used by
// decoder round-trip tests (invariant 1, §8) and nowhere on the hot path.
func pack(h Header) [3]byte {
	var b [3]byte
	b[0] = (h.opcodeL&0x1F)<<3 | (byte(h.op1T)&0x3)<<1 | (h.op1VLo & 0x1)
	b[1] = (h.op1VHi&0x1)<<7 | (byte(h.op2T)&0x3)<<5 | (h.xorT&0x3)<<3 | ((h.op1L-1)&0x3)<<1 | (h.op2VHi & 0x1)
	b[2] = (h.op2VLo&0x1)<<7 | ((h.op2L-1)&0x3)<<5 | (h.opcodeR & 0x1F)
	return b
}

func (h Header) op1Width() Width { return Width(h.op1VHi<<1 | h.op1VLo) }
func (h Header) op2Width() Width { return Width(h.op2VHi<<1 | h.op2VLo) }

// totalBytes is the full byte span of an instruction - header plus operand
// bytes, honoring the same "TypeNone consumes zero" rule Decode applies
// (§4.6). Used to bounds-check a VIP before Decode slices operand bytes out
// of code, so a corrupt or out-of-range jump target can be faulted instead
// of panicking (§7).
func (h Header) totalBytes() uint32 {
	n := uint32(3)
	if h.op1T != TypeNone {
		n += uint32(h.op1L)
	}
	if h.op2T != TypeNone {
		n += uint32(h.op2L)
	}
	return n
}

// opcode applies the XOR-based obfuscation scheme (§3) to recover the real
// opcode from opcode_l/opcode_r. The result is always in 0..31; only 0..27
// name instructions (see dispatchTable). This is the only place the scheme is
// evaluated; everywhere else just uses the resulting Opcode value.
func (h Header) opcode() Opcode {
	l, r := h.opcodeL, h.opcodeR
	switch h.xorT {
	case 1:
		r = ^r & 0x1F
	case 2:
		l = ^l & 0x1F
	case 3:
		l = ^l & 0x1F
		r = ^r & 0x1F
	}
	return Opcode((l ^ r) & 0x1F)
}

// Operand is a view into the code buffer for one instruction operand (§3).
// It is only valid for the lifetime of the instruction it was decoded from -
// code is read-only VCODE and Operand never copies it.
type Operand struct {
	Type   OperandType
	Width  Width
	Length int // byte count consumed from code, 1..4; meaningless if Type==TypeNone
	Data   []byte
}

// Decode unpacks the two operand descriptors following a header at vip,
// and returns the real opcode plus how many bytes of code (beyond the
// 3-byte header) the operands occupied. A TypeNone operand consumes zero
// bytes from the stream regardless of its decoded Length (§4.6).
func Decode(code []byte, vip uint32, h Header) (op Opcode, op1, op2 Operand, consumed uint32) {
	op = h.opcode()

	cursor := vip + 3
	op1 = Operand{Type: h.op1T, Width: h.op1Width(), Length: int(h.op1L)}
	if op1.Type != TypeNone {
		op1.Data = code[cursor : cursor+uint32(op1.Length)]
		cursor += uint32(op1.Length)
	}

	op2 = Operand{Type: h.op2T, Width: h.op2Width(), Length: int(h.op2L)}
	if op2.Type != TypeNone {
		op2.Data = code[cursor : cursor+uint32(op2.Length)]
		cursor += uint32(op2.Length)
	}

	consumed = cursor - vip - 3
	return op, op1, op2, consumed
}
