package vm

// widthBits returns the bit width a Width tag covers, for shift/rotate
// modulus computation.
func widthBits(w Width) uint {
	return uint(w.bytes()) * 8
}

func execAND(t *Thread, op1, op2 Operand) (uint32, bool, error) {
	return arith(t, op1, op2, func(dst, src uint32) uint32 { return dst & src })
}

func execOR(t *Thread, op1, op2 Operand) (uint32, bool, error) {
	return arith(t, op1, op2, func(dst, src uint32) uint32 { return dst | src })
}

func execXOR(t *Thread, op1, op2 Operand) (uint32, bool, error) {
	return arith(t, op1, op2, func(dst, src uint32) uint32 { return dst ^ src })
}

// execSHL implements `SHL op1, op2`: op1 is both the value shifted and the
// destination; op2 supplies the shift count, taken modulo op1's width in
// bits so that shifts by >= width are well-defined (§4.3: "implementation-
// defined").
func execSHL(t *Thread, op1, op2 Operand) (uint32, bool, error) {
	return arith(t, op1, op2, func(dst, src uint32) uint32 {
		bits := widthBits(op1.Width)
		if bits == 0 {
			return dst
		}
		return dst << (src % uint32(bits))
	})
}

func execSHR(t *Thread, op1, op2 Operand) (uint32, bool, error) {
	return arith(t, op1, op2, func(dst, src uint32) uint32 {
		bits := widthBits(op1.Width)
		if bits == 0 {
			return dst
		}
		return dst >> (src % uint32(bits))
	})
}

// execNOT implements `NOT op1, op2`: writes ~read(op2) into op1 with op1's
// width honored (§4.3).
func execNOT(t *Thread, op1, op2 Operand) (uint32, bool, error) {
	writeOperand(op1, ^readOperand(op2, t), t)
	return 0, true, nil
}
