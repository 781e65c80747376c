package vm

import (
	"errors"
	"testing"
)

// buildHeader assembles a Header for test programs with xor_t=0 (no
// obfuscation), so opcode_l carries the real opcode directly.
func buildHeader(opcode Opcode, op1T, op2T OperandType, op1V, op2V Width, op1L, op2L byte) Header {
	return Header{
		opcodeL: byte(opcode),
		op1T:    op1T,
		op1VLo:  byte(op1V & 1),
		op1VHi:  byte((op1V >> 1) & 1),
		op2T:    op2T,
		xorT:    0,
		op1L:    op1L,
		op2VHi:  byte((op2V >> 1) & 1),
		op2VLo:  byte(op2V & 1),
		op2L:    op2L,
		opcodeR: 0,
	}
}

// nextBytes encodes the obligatory obfuscated fallthrough trailer (§4.6).
func nextBytes(next uint32) []byte {
	raw := next ^ 0xDC2606
	return []byte{byte(raw), byte(raw >> 8), byte(raw >> 16)}
}

func appendInstr(code []byte, h Header, op1Data, op2Data []byte) []byte {
	b := pack(h)
	code = append(code, b[:]...)
	code = append(code, op1Data...)
	code = append(code, op2Data...)
	return code
}

// TestScenarioS1 reproduces §8 S1: MOV R0 (INT), #0x11223344; EXIT R0.
func TestScenarioS1(t *testing.T) {
	var code []byte
	code = appendInstr(code, buildHeader(OpMOV, TypeReg, TypeImm, WidthInt, WidthInt, 1, 4),
		[]byte{RegR0}, []byte{0x11, 0x22, 0x33, 0x44})
	code = append(code, nextBytes(uint32(len(code))+3)...)

	code = appendInstr(code, buildHeader(OpEXIT, TypeReg, TypeNone, WidthInt, WidthNull, 1, 1),
		[]byte{RegR0}, nil)

	m := NewMachine(code, fakeHost{})
	th := m.NewThread(0)
	code2, err := th.Emulate()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if code2 != 0x11223344 {
		t.Fatalf("exit code = %x, want 11223344", code2)
	}
}

// TestScenarioS2 reproduces §8 S2: ADD R0 (BYTE), #0xFF with R0 initially 1
// wraps to 0 and sets EQ on the following CMP.
func TestScenarioS2(t *testing.T) {
	var code []byte
	code = appendInstr(code, buildHeader(OpADD, TypeReg, TypeImm, WidthByte, WidthByte, 1, 1),
		[]byte{RegR0}, []byte{0xFF})
	code = append(code, nextBytes(uint32(len(code))+3)...)

	code = appendInstr(code, buildHeader(OpCMP, TypeReg, TypeImm, WidthInt, WidthInt, 1, 4),
		[]byte{RegR0}, []byte{0, 0, 0, 0})
	code = append(code, nextBytes(uint32(len(code))+3)...)

	code = appendInstr(code, buildHeader(OpEXIT, TypeNone, TypeNone, WidthNull, WidthNull, 1, 1), nil, nil)

	m := NewMachine(code, fakeHost{})
	th := m.NewThread(0)
	th.Regs[RegR0] = 1

	if _, err := th.Emulate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if th.Regs[RegR0] != 0 {
		t.Fatalf("R0 = %x, want 0 (wrapped)", th.Regs[RegR0])
	}
	if th.Flag&FlagEQ == 0 {
		t.Fatalf("flag = %x, want EQ set", th.Flag)
	}
}

// TestCallStackOverflowExit reproduces §8 S3: the 129th CALL aborts with
// exit code 0xEF32.
func TestCallStackOverflowExit(t *testing.T) {
	code := make([]byte, 32)
	m := NewMachine(code, fakeHost{})
	th := m.NewThread(0)
	for i := 0; i < StackCapacity; i++ {
		th.Stack.Push(uint32(i))
	}

	op1 := Operand{Type: TypeImm, Width: WidthInt, Length: 4, Data: []byte{0, 0, 0, 0}}
	op2 := Operand{Type: TypeNone}
	_, _, err := execCALL(th, op1, op2)

	var hostErr *HostExit
	if !errors.As(err, &hostErr) {
		t.Fatalf("err = %v, want *HostExit", err)
	}
	if hostErr.Code != 0xEF32 {
		t.Fatalf("exit code = %x, want EF32", hostErr.Code)
	}
}

// TestScenarioS4 reproduces §8 S4: PUT #0xAAAA, #0x1234 (SHORT); GET
// R1 (SHORT), #0xAAAA with an empty call stack.
func TestScenarioS4(t *testing.T) {
	var code []byte
	code = appendInstr(code, buildHeader(OpPUT, TypeImm, TypeImm, WidthShort, WidthShort, 2, 2),
		[]byte{0xAA, 0xAA}, []byte{0x12, 0x34})
	code = append(code, nextBytes(uint32(len(code))+3)...)

	code = appendInstr(code, buildHeader(OpGET, TypeReg, TypeImm, WidthShort, WidthShort, 1, 2),
		[]byte{RegR1}, []byte{0xAA, 0xAA})
	code = append(code, nextBytes(uint32(len(code))+3)...)

	code = appendInstr(code, buildHeader(OpEXIT, TypeNone, TypeNone, WidthNull, WidthNull, 1, 1), nil, nil)

	m := NewMachine(code, fakeHost{})
	th := m.NewThread(0)
	if _, err := th.Emulate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := th.Regs[RegR1] & 0xFFFF; got != 0x1234 {
		t.Fatalf("R1 low16 = %x, want 1234", got)
	}

	slot := scopedVarHash(0, 0xAAAA)
	if got := m.Mem.Read(LocalsBase+slot, 2); got != 0x1234 {
		t.Fatalf("locals slot = %x, want 1234", got)
	}
}

// TestScenarioS5 reproduces §8 S5: LEA R0 (INT), [0x10000] (SHORT) where
// VMEM[0x10000..0x10001] = 0xDE, 0xAD -> R0 = 0x0000DEAD.
func TestScenarioS5(t *testing.T) {
	var code []byte
	code = appendInstr(code, buildHeader(OpLEA, TypeReg, TypeMem, WidthInt, WidthShort, 1, 4),
		[]byte{RegR0}, []byte{0x00, 0x01, 0x00, 0x00})
	code = append(code, nextBytes(uint32(len(code))+3)...)

	code = appendInstr(code, buildHeader(OpEXIT, TypeNone, TypeNone, WidthNull, WidthNull, 1, 1), nil, nil)

	m := NewMachine(code, fakeHost{})
	m.Mem.SetByte(0x10000, 0xDE)
	m.Mem.SetByte(0x10001, 0xAD)

	th := m.NewThread(0)
	if _, err := th.Emulate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if th.Regs[RegR0] != 0x0000DEAD {
		t.Fatalf("R0 = %x, want 0000DEAD", th.Regs[RegR0])
	}
}

// TestComparisonCompleteness exercises invariant 7: exactly one of
// {EQ, LT, GT} is set after CMP, regardless of ERR.
func TestComparisonCompleteness(t *testing.T) {
	cases := []struct{ a, b uint32 }{
		{5, 5}, {3, 9}, {9, 3}, {0, 0xFFFFFFFF},
	}
	for _, c := range cases {
		th := newTestThread()
		th.Flag = FlagERR
		op1 := Operand{Type: TypeImm, Width: WidthInt, Data: u32be(c.a)}
		op2 := Operand{Type: TypeImm, Width: WidthInt, Data: u32be(c.b)}
		if _, _, err := execCMP(th, op1, op2); err != nil {
			t.Fatalf("execCMP error: %v", err)
		}
		set := th.Flag & (FlagEQ | FlagLT | FlagGT)
		if set != FlagEQ && set != FlagLT && set != FlagGT {
			t.Fatalf("a=%d b=%d: flags = %x, want exactly one of EQ/LT/GT", c.a, c.b, set)
		}
		if th.Flag&FlagERR == 0 {
			t.Fatalf("ERR bit was not preserved across CMP")
		}
	}
}

func u32be(v uint32) []byte {
	return []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
}

// TestScenarioS6Fork reproduces §8 S6: FORK to a child that writes 0x55 at
// VMEM[0x30000] then exits; the parent observes it once FORK's handshake
// releases it and the child's goroutine is joined.
func TestScenarioS6Fork(t *testing.T) {
	var childCode []byte
	childCode = appendInstr(childCode, buildHeader(OpMOV, TypeMem, TypeImm, WidthByte, WidthByte, 4, 1),
		[]byte{0x00, 0x03, 0x00, 0x00}, []byte{0x55})
	childCode = append(childCode, nextBytes(uint32(len(childCode))+3)...)
	childCode = appendInstr(childCode, buildHeader(OpEXIT, TypeNone, TypeNone, WidthNull, WidthNull, 1, 1), nil, nil)

	const childEntry = 0x1000
	code := make([]byte, childEntry+len(childCode))
	copy(code[childEntry:], childCode)

	m := NewMachine(code, fakeHost{})
	parent := m.NewThread(0)

	op1 := Operand{Type: TypeImm, Width: WidthInt, Data: u32be(childEntry)}
	op2 := Operand{Type: TypeNone}
	if _, _, err := execFORK(parent, op1, op2); err != nil {
		t.Fatalf("execFORK error: %v", err)
	}
	if err := m.Forks.Wait(); err != nil {
		t.Fatalf("child thread error: %v", err)
	}
	if got := m.Mem.Byte(0x30000); got != 0x55 {
		t.Fatalf("VMEM[0x30000] = %x, want 55", got)
	}
}
