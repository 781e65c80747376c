package vm

// execMOV implements `MOV op1, op2`: write(op1, read(op2)) (§4.3).
func execMOV(t *Thread, op1, op2 Operand) (uint32, bool, error) {
	writeOperand(op1, readOperand(op2, t), t)
	return 0, true, nil
}

// execLEA implements `LEA op1, op2` (§4.3): op2 is evaluated as a full
// 32-bit address A regardless of its own width tag, VMEM is read at A using
// op2's real width (BYTE reads 1 byte per the Open Question resolution),
// and the result is written to op1 honoring op1's width.
func execLEA(t *Thread, op1, op2 Operand) (uint32, bool, error) {
	addr := readOperandAsAddress(op2, t)
	value := t.m.Mem.Read(addr, op2.Width.bytes())
	writeOperand(op1, value, t)
	return 0, true, nil
}

// scopedKey returns the current scoping key: the top-of-call-stack value,
// or 0 for an empty stack (§4.3).
func scopedKey(t *Thread) uint32 {
	if t.Stack.Empty() {
		return 0
	}
	return t.Stack.Peek()
}

// execPUT implements `PUT op1, op2` (§4.3): op1 is the variable id, op2 is
// the value. Writes op2's value into the locals zone at the scoped-hash slot.
func execPUT(t *Thread, op1, op2 Operand) (uint32, bool, error) {
	id := readOperand(op1, t)
	value := readOperand(op2, t)
	slot := scopedVarHash(scopedKey(t), id)
	t.m.Mem.Write(LocalsBase+slot, value, op2.Width.bytes())
	return 0, true, nil
}

// execGET implements `GET op1, op2` (§4.3): op2 is the variable id. Reads
// the scoped-hash slot and writes it to op1.
func execGET(t *Thread, op1, op2 Operand) (uint32, bool, error) {
	id := readOperand(op2, t)
	slot := scopedVarHash(scopedKey(t), id)
	value := t.m.Mem.Read(LocalsBase+slot, op2.Width.bytes())
	writeOperand(op1, value, t)
	return 0, true, nil
}
