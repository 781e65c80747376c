package vm

// Mode-byte bits for MEM operands (§3).
const (
	memModeRegDisp  = 0x40 // bit6: register-base + register-displacement
	memModeImmDisp  = 0x80 // bit7: register-base + immediate-displacement (when bit6 clear)
)

// assembleImmediate builds a big-endian value from an operand's raw bytes.
// This already produces the correct N-byte value for every length 1..4; the
// spec's "l=3 logically right-shifted 8" wording describes a low-level trick
// (assembling as if a garbage 4th byte had been read, then discarding it)
// whose net effect is exactly the plain big-endian assembly of the 3 real
// bytes used here - so no separate l==3 case is needed.
func assembleImmediate(data []byte) uint32 {
	var v uint32
	for _, b := range data {
		v = v<<8 | uint32(b)
	}
	return v
}

// truncate applies source-read width masking (§3).
func truncate(v uint32, w Width) uint32 {
	switch w {
	case WidthByte:
		return v & 0xFF
	case WidthShort:
		return v & 0xFFFF
	case WidthInt:
		return v
	default: // WidthNull
		return 0
	}
}

// widthMask returns the bitmask covering the low w.bytes()*8 bits, used to
// clear the destination before OR-ing in a narrow write.
func widthMask(w Width) uint32 {
	switch w {
	case WidthByte:
		return 0xFF
	case WidthShort:
		return 0xFFFF
	case WidthInt:
		return 0xFFFFFFFF
	default:
		return 0
	}
}

// memAddress evaluates a MEM operand's addressing bytes to an absolute VMEM
// offset (§3, mode-byte bit layout). The result is masked modulo 0x100000.
func memAddress(op Operand, t *Thread) uint32 {
	mode := op.Data[0]
	var base, disp uint32

	switch {
	case mode&memModeRegDisp != 0:
		// register-base + register-displacement
		b1 := byte(0)
		if len(op.Data) > 1 {
			b1 = op.Data[1]
		}
		rb := ((mode & 0x03) << 2) | ((b1 & 0xC0) >> 6)
		rd := (b1 & 0x3C) >> 2
		baseWidth := Width((mode & 0x30) >> 4)
		dispWidth := Width((mode & 0x0C) >> 2)
		base = truncate(t.Regs[rb&0x0F], baseWidth)
		disp = truncate(t.Regs[rd&0x0F], dispWidth)

	case mode&memModeImmDisp != 0:
		// register-base + immediate-displacement
		reg := mode & 0x0F
		baseWidth := Width((mode & 0x30) >> 4)
		base = truncate(t.Regs[reg], baseWidth)
		if len(op.Data) > 1 {
			disp = assembleImmediate(op.Data[1:])
		}

	default:
		// immediate-only: base = 0
		if len(op.Data) > 1 {
			disp = assembleImmediate(op.Data[1:])
		}
	}

	return mask(base + disp)
}

// readOperand evaluates op for its use as a source (§4.2).
func readOperand(op Operand, t *Thread) uint32 {
	switch op.Type {
	case TypeNone:
		return 0
	case TypeReg:
		idx := op.Data[0] & 0x0F
		return truncate(t.Regs[idx], op.Width)
	case TypeImm:
		return truncate(assembleImmediate(op.Data), op.Width)
	case TypeMem:
		if op.Width == WidthNull {
			return 0
		}
		addr := memAddress(op, t)
		return t.m.Mem.Read(addr, op.Width.bytes())
	default:
		return 0
	}
}

// writeOperand stores value into op as a destination (§4.2).
func writeOperand(op Operand, value uint32, t *Thread) {
	switch op.Type {
	case TypeReg:
		if op.Width == WidthNull {
			return
		}
		idx := op.Data[0] & 0x0F
		t.Regs[idx] = (t.Regs[idx] &^ widthMask(op.Width)) | (value & widthMask(op.Width))
	case TypeMem:
		if op.Width == WidthNull {
			return
		}
		addr := memAddress(op, t)
		t.m.Mem.Write(addr, value, op.Width.bytes())
	case TypeImm, TypeNone:
		// no-op
	}
}

// readOperandAsAddress evaluates op2 as if its width were INT, regardless of its
// decoded width tag. Used by LEA to compute an address from an operand that
// may be narrower than a full address (§4.3).
func readOperandAsAddress(op Operand, t *Thread) uint32 {
	switch op.Type {
	case TypeNone:
		return 0
	case TypeReg:
		idx := op.Data[0] & 0x0F
		return t.Regs[idx]
	case TypeImm:
		return assembleImmediate(op.Data)
	case TypeMem:
		return memAddress(op, t)
	default:
		return 0
	}
}
