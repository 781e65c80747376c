package vm

// handlerFunc is the shape every opcode handler implements (§4.3): read
// sources, mutate registers/VMEM, and report either a fallthrough (the
// driver decodes the trailing obfuscated next-VIP field) or an explicit
// next VIP. A non-nil error is always a HostExit (§7) - guest-level faults
// are reported through Thread.Flag, never through err.
type handlerFunc func(t *Thread, op1, op2 Operand) (next uint32, fallthrough_ bool, err error)

// dispatchTable is the direct opcode->handler table the Design Notes call
// for, replacing the original's obfuscated modular-arithmetic cascade (§9:
// "replace with a direct 0..27 table"). Sized 32, not 28: Header.opcode()
// (decode.go) returns `(l^r)&0x1F`, so any 3-byte header - including ones
// spec.md never assigns a mnemonic to - can decode to an opcode in 28..31.
// Those slots are left nil and fall into the "unknown opcode" branch below
// rather than indexing out of range.
var dispatchTable = [32]handlerFunc{
	OpMOV:     execMOV,
	OpLEA:     execLEA,
	OpPUT:     execPUT,
	OpGET:     execGET,
	OpADD:     execADD,
	OpSUB:     execSUB,
	OpMUL:     execMUL,
	OpDIV:     execDIV,
	OpMOD:     execMOD,
	OpCMP:     execCMP,
	OpJMP:     execJMP,
	OpCALL:    execCALL,
	OpRET:     execRET,
	OpEXIT:    execEXIT,
	OpAND:     execAND,
	OpOR:      execOR,
	OpXOR:     execXOR,
	OpSHL:     execSHL,
	OpSHR:     execSHR,
	OpNOT:     execNOT,
	OpSYSCALL: execSYSCALL,
	OpSWAP:    execSWAP,
	OpREV:     execREV,
	OpPACKHI:  execPACKHI,
	OpPACKLO:  execPACKLO,
	OpROL:     execROL,
	OpROR:     execROR,
	OpFORK:    execFORK,
}

// decodeFallthroughVIP recovers the obfuscated trailing "next address"
// field (§4.6): three bytes at skip, little-endian, XOR'd with 0xDC2606.
// Callers must bounds-check skip first (see readFallthrough/inBounds) -
// this indexes code directly and panics if skip+3 is out of range.
func decodeFallthroughVIP(code []byte, skip uint32) uint32 {
	raw := uint32(code[skip]) | uint32(code[skip+1])<<8 | uint32(code[skip+2])<<16
	return raw ^ 0xDC2606
}

// inBounds reports whether the n-byte span starting at start fits within
// code, using uint64 arithmetic so a start/n combination near the uint32 max
// can't wrap around and report a false positive.
func inBounds(code []byte, start, n uint32) bool {
	return uint64(start)+uint64(n) <= uint64(len(code))
}

// readFallthrough bounds-checks and reads the obligatory trailing next-VIP
// field at skip. A guest blob that claims more operand bytes than it
// actually has, or whose last instruction has no room for a trailer, has no
// safely decodable fallthrough (§7) - ok is false in that case.
func readFallthrough(code []byte, skip uint32) (vip uint32, ok bool) {
	if !inBounds(code, skip, 3) {
		return 0, false
	}
	return decodeFallthroughVIP(code, skip), true
}

// takeBranch implements the shared JMP/CALL/FORK condition check (§4.3):
// unconditional when op2 is absent, otherwise taken iff cond & vflag != 0.
func takeBranch(t *Thread, cond Operand) bool {
	if cond.Type == TypeNone {
		return true
	}
	c := readOperand(cond, t)
	return c&t.Flag != 0
}

// Emulate runs the fetch-decode-dispatch loop (§4.6) starting at the
// thread's current VIP until the sentinel is reached or a HostExit error
// propagates. It returns the guest exit code: the last value given to EXIT,
// or 0xFFFFFFFF on normal (non-EXIT) sentinel termination (§6).
func (t *Thread) Emulate() (uint32, error) {
	t.ExitCode = 0xFFFFFFFF

	for t.VIP != SentinelVIP {
		if !inBounds(t.m.Code, t.VIP, 3) {
			// Out-of-range VIP (a bad jump/call/ret target, §7): there is no
			// header to fetch here, so fault and stop instead of indexing
			// past VCODE.
			t.Flag |= FlagERR
			break
		}
		header := Fetch(t.m.Code, t.VIP)
		if !inBounds(t.m.Code, t.VIP, header.totalBytes()) {
			// The header claims operand bytes the buffer doesn't have.
			t.Flag |= FlagERR
			break
		}
		opcode, op1, op2, consumed := Decode(t.m.Code, t.VIP, header)

		if t.Monitor != nil {
			if !t.Monitor.beforeStep(t, opcode) {
				return t.ExitCode, hostExit(1)
			}
		}

		handler := dispatchTable[opcode&0x1F]
		if handler == nil {
			// Unknown opcode (§7): set ERR and fall through past the operands.
			t.Flag |= FlagERR
			next, ok := readFallthrough(t.m.Code, t.VIP+3+consumed)
			if !ok {
				break
			}
			t.VIP = next
			continue
		}

		next, fallthru, err := handler(t, op1, op2)
		if err != nil {
			return t.ExitCode, err
		}

		if fallthru {
			n, ok := readFallthrough(t.m.Code, t.VIP+3+consumed)
			if !ok {
				t.Flag |= FlagERR
				break
			}
			next = n
		}
		t.VIP = next
	}

	return t.ExitCode, nil
}
