// Package vm is the VM core: VMEM, the bounded call stack, the instruction
// decoder, the operand evaluator, the 28 opcode handlers, the scoped-variable
// hash, the guest syscall bridge and the fork/futex handshake, driven by the
// fetch-decode-dispatch loop in Emulate.
package vm

import (
	"fmt"

	"github.com/ionguard/ionguard/internal/hostos"
	"golang.org/x/sync/errgroup"
)

// Opcode is the decoded instruction opcode; 0..27 name instructions (§4.1).
type Opcode byte

const (
	OpMOV Opcode = iota
	OpLEA
	OpPUT
	OpGET
	OpADD
	OpSUB
	OpMUL
	OpDIV
	OpMOD
	OpCMP
	OpJMP
	OpCALL
	OpRET
	OpEXIT
	OpAND
	OpOR
	OpXOR
	OpSHL
	OpSHR
	OpNOT
	OpSYSCALL
	OpSWAP
	OpREV
	OpPACKHI
	OpPACKLO
	OpROL
	OpROR
	OpFORK
)

// Compare flags (§3).
const (
	FlagEQ  uint32 = 1
	FlagLT  uint32 = 2
	FlagGT  uint32 = 4
	FlagERR uint32 = 8

	FlagLTE uint32 = FlagEQ | FlagLT
	FlagGTE uint32 = FlagEQ | FlagGT
	FlagNEQ uint32 = FlagLT | FlagGT
)

// SentinelVIP terminates Emulate's loop (§2, §4.6).
const SentinelVIP uint32 = 0xFFFFFF

// Register indices, named by convention only - no architectural distinction
// exists between them (§3).
const (
	RegP0 = iota
	RegP1
	RegP2
	RegP3
	RegR0
	RegR1
	RegR2
	RegR3
	RegR4
	RegR5
	RegF0
	RegF1
	RegF2
	RegF3
	RegC0
	RegC1
)

// Machine is the state shared by every guest thread spawned from the same
// program: the code buffer, VMEM, and the host OS bridge. Each FORK spawns a
// new Thread against the same Machine (§5: "each thread creates its own
// local vregs + stack"; VMEM and VCODE are shared).
type Machine struct {
	Code  []byte
	Mem   *Memory
	Host  hostos.HostOS
	Debug bool

	// Forks tracks every FORK-spawned child goroutine so the top-level
	// driver can join them before process exit (§5: sys_exit_group ends the
	// whole process; stray children must not outlive it).
	Forks errgroup.Group
}

// NewMachine builds a Machine around a decrypted, read-only code buffer and
// a fresh VMEM region.
func NewMachine(code []byte, host hostos.HostOS) *Machine {
	return &Machine{
		Code: code,
		Mem:  &Memory{},
		Host: host,
	}
}

// Thread is one guest thread's register file, call stack, compare flags and
// instruction pointer.
type Thread struct {
	m        *Machine
	Regs     [16]uint32
	Flag     uint32
	Stack    *CallStack
	VIP      uint32
	ExitCode uint32

	// Monitor, when set, is consulted before every instruction - the
	// interactive single-step debugger (debug.go).
	Monitor *Monitor
}

// NewThread creates a thread ready to begin fetching at entry.
func (m *Machine) NewThread(entry uint32) *Thread {
	return &Thread{
		m:     m,
		Stack: NewCallStack(),
		VIP:   entry,
	}
}

func (t *Thread) tracef(format string, args ...any) {
	if t.m.Debug {
		fmt.Printf("vm: "+format+"\n", args...)
	}
}
