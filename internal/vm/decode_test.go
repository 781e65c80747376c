package vm

import "testing"

// TestHeaderRoundTrip exercises invariant 1: pack(Fetch(bytes)) reproduces
// the original header bytes for every semantically meaningful field.
func TestHeaderRoundTrip(t *testing.T) {
	cases := []Header{
		{opcodeL: 0x00, op1T: TypeNone, op1VLo: 0, op1VHi: 0, op2T: TypeNone, xorT: 0, op1L: 1, op2VHi: 0, op2VLo: 0, op2L: 1, opcodeR: 0x00},
		{opcodeL: 0x1F, op1T: TypeReg, op1VLo: 1, op1VHi: 1, op2T: TypeMem, xorT: 3, op1L: 4, op2VHi: 1, op2VLo: 0, op2L: 2, opcodeR: 0x05},
		{opcodeL: 0x0A, op1T: TypeImm, op1VLo: 0, op1VHi: 1, op2T: TypeReg, xorT: 1, op1L: 3, op2VHi: 0, op2VLo: 1, op2L: 1, opcodeR: 0x1B},
	}

	for i, h := range cases {
		b := pack(h)
		got := Fetch(b[:], 0)
		if got != h {
			t.Fatalf("case %d: round-trip mismatch: got %+v, want %+v", i, got, h)
		}
	}
}

// TestOpcodeXORScheme checks every xor_t combination against hand-computed
// expectations for the same fixed (opcode_l, opcode_r) = (5, 3) pair (§3).
func TestOpcodeXORScheme(t *testing.T) {
	const l, r = 5, 3
	cases := []struct {
		xorT byte
		want Opcode
	}{
		{0, 6},  // (5^3)&0x1F
		{1, 25}, // (5 ^ (^3&0x1F)) & 0x1F
		{2, 25}, // ((^5&0x1F) ^ 3) & 0x1F
		{3, 6},  // ((^5&0x1F) ^ (^3&0x1F)) & 0x1F
	}
	for _, c := range cases {
		h := Header{opcodeL: l, opcodeR: r, xorT: c.xorT}
		if got := h.opcode(); got != c.want {
			t.Fatalf("xorT=%d: got opcode %d, want %d", c.xorT, got, c.want)
		}
	}
}

// TestDecodeOperandConsumption checks that a TypeNone operand consumes zero
// bytes from the stream regardless of its decoded length field (§4.6).
func TestDecodeOperandConsumption(t *testing.T) {
	h := Header{op1T: TypeReg, op1L: 1, op2T: TypeNone, op2L: 4}
	code := []byte{0, 0, 0, 0x04, 0xAA, 0xAA, 0xAA, 0xAA}
	_, op1, op2, consumed := Decode(code, 0, h)

	if op1.Type != TypeReg || len(op1.Data) != 1 {
		t.Fatalf("op1 = %+v, want 1-byte REG", op1)
	}
	if op2.Type != TypeNone || op2.Data != nil {
		t.Fatalf("op2 = %+v, want absent NONE", op2)
	}
	if consumed != 1 {
		t.Fatalf("consumed = %d, want 1 (NONE op2 contributes 0)", consumed)
	}
}
