package vm

import (
	"bufio"
	"fmt"
	"os"

	"golang.org/x/term"
)

// MonitorState mirrors the freeze/resume states of the teacher's own
// interactive debugger: stepping prints state and waits for a keystroke
// before every instruction; running lets the thread go until quit.
type MonitorState int

const (
	MonitorStepping MonitorState = iota
	MonitorRunning
)

var opcodeNames = [28]string{
	"MOV", "LEA", "PUT", "GET",
	"ADD", "SUB", "MUL", "DIV", "MOD",
	"CMP", "JMP", "CALL", "RET", "EXIT",
	"AND", "OR", "XOR", "SHL", "SHR", "NOT",
	"SYSCALL", "SWAP", "REV", "PACKHI", "PACKLO", "ROL", "ROR", "FORK",
}

// Monitor is an interactive single-step debugger attached to a Thread. It
// reads raw keystrokes from a terminal (space: step, c: continue, q: quit)
// without echoing them, by putting the terminal into raw mode with
// golang.org/x/term.MakeRaw.
type Monitor struct {
	state MonitorState
	in    *os.File
	out   *os.File
	raw   *term.State
	r     *bufio.Reader
}

// NewMonitor attaches a debugger to the given terminal file descriptors.
func NewMonitor(in, out *os.File) (*Monitor, error) {
	raw, err := term.MakeRaw(int(in.Fd()))
	if err != nil {
		return nil, fmt.Errorf("debug monitor: %w", err)
	}
	return &Monitor{state: MonitorStepping, in: in, out: out, raw: raw, r: bufio.NewReader(in)}, nil
}

// Close restores the terminal to cooked mode.
func (m *Monitor) Close() error {
	return term.Restore(int(m.in.Fd()), m.raw)
}

// beforeStep prints the thread's state and, while stepping, blocks for a
// keystroke. It returns false if the user asked to quit.
func (m *Monitor) beforeStep(t *Thread, opcode Opcode) bool {
	name := "???"
	if int(opcode) < len(opcodeNames) {
		name = opcodeNames[opcode]
	}
	fmt.Fprintf(m.out, "\r\nvip=%06X %-7s regs=%08X flag=%X depth=%d\r\n",
		t.VIP, name, t.Regs, t.Flag, t.Stack.Depth())

	if m.state == MonitorRunning {
		return true
	}

	for {
		b, err := m.r.ReadByte()
		if err != nil {
			return false
		}
		switch b {
		case ' ':
			return true
		case 'c':
			m.state = MonitorRunning
			return true
		case 'q':
			return false
		}
	}
}
