package vm

// operandBytes is the number of code bytes op1/op2 together consumed,
// honoring the rule that a TypeNone operand consumes zero regardless of its
// decoded length (§4.6). CALL needs this mid-handler to locate its trailing
// obfuscated return address even when the branch is taken.
func operandBytes(op1, op2 Operand) uint32 {
	var n uint32
	if op1.Type != TypeNone {
		n += uint32(op1.Length)
	}
	if op2.Type != TypeNone {
		n += uint32(op2.Length)
	}
	return n
}

// execCMP implements `CMP op1, op2` (§4.3): unsigned comparison, exactly one
// of EQ/LT/GT set, ERR preserved (invariant 7).
func execCMP(t *Thread, op1, op2 Operand) (uint32, bool, error) {
	a := readOperand(op1, t)
	b := readOperand(op2, t)

	flags := t.Flag & FlagERR
	switch {
	case a == b:
		flags |= FlagEQ
	case a < b:
		flags |= FlagLT
	default:
		flags |= FlagGT
	}
	t.Flag = flags
	return 0, true, nil
}

// execJMP implements `JMP dst, cond?` (§4.3).
func execJMP(t *Thread, op1, op2 Operand) (uint32, bool, error) {
	if !takeBranch(t, op2) {
		return 0, true, nil
	}
	return readOperand(op1, t), false, nil
}

// execCALL implements `CALL dst, cond?` (§4.3): on a taken branch, decodes
// the trailing obfuscated return address, pushes it, then jumps. A full
// call stack is a hard fault (§7: exit code 0xEF32, scenario S3).
func execCALL(t *Thread, op1, op2 Operand) (uint32, bool, error) {
	if !takeBranch(t, op2) {
		return 0, true, nil
	}

	skip := t.VIP + 3 + operandBytes(op1, op2)
	returnto, ok := readFallthrough(t.m.Code, skip)
	if !ok {
		// No room for the trailing return address this instruction needs
		// even on a taken branch (§7): fault rather than index past VCODE.
		t.Flag |= FlagERR
		return SentinelVIP, false, nil
	}
	if !t.Stack.Push(returnto) {
		return 0, false, hostExit(0xEF32)
	}
	return readOperand(op1, t), false, nil
}

// execRET implements `RET cond?` (§4.3). The condition, when present, is
// encoded as op1 since RET has no jump-destination operand. An empty stack
// pop yields the sentinel VIP, terminating Emulate (invariant 4).
func execRET(t *Thread, op1, _ Operand) (uint32, bool, error) {
	if !takeBranch(t, op1) {
		return 0, true, nil
	}
	if t.Stack.Empty() {
		return SentinelVIP, false, nil
	}
	return t.Stack.Pop(), false, nil
}

// execEXIT implements `EXIT code?` (§4.3): terminal, records the guest exit
// code for Emulate to return.
func execEXIT(t *Thread, op1, _ Operand) (uint32, bool, error) {
	code := uint32(0)
	if op1.Type != TypeNone {
		code = readOperand(op1, t)
	}
	t.ExitCode = code
	return SentinelVIP, false, nil
}
