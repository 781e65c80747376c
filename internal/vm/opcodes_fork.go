package vm

import (
	"sync/atomic"

	"github.com/ionguard/ionguard/internal/hostos"
)

// forkStackSize is the size of the private, anonymous stack allocated for a
// forked guest thread (§4.5).
const forkStackSize = 128 * 1024

// Host syscall numbers used only as §7's "syscall-number-as-exit-code"
// diagnostic convention when mmap or the futex wait fails during FORK.
const (
	sysMmapNumber  = 9
	sysFutexNumber = 202
)

// execFORK implements `FORK dst, cond?` (§4.5): on a taken branch, spawns a
// cooperating guest thread on its own stack and blocks the caller until the
// child publishes readiness. The parent always falls through afterward -
// dst is only ever used as the child's entry point.
func execFORK(t *Thread, op1, op2 Operand) (uint32, bool, error) {
	if !takeBranch(t, op2) {
		return 0, true, nil
	}
	dst := readOperand(op1, t)

	stack, err := t.m.Host.Mmap(forkStackSize)
	if err != nil {
		return 0, false, hostExit(sysMmapNumber)
	}

	// The allocation's first word is the futex word (ready_flag), backing
	// the handshake; anonymous mmap already zero-fills it.
	readyFlag := futexWord(stack)

	t.m.Forks.Go(func() error {
		child := t.m.NewThread(dst)

		atomic.StoreUint32(readyFlag, 1)
		if _, err := t.m.Host.Futex(readyFlag, hostos.FutexWakeOp, 1, nil); err != nil {
			return err
		}

		if _, err := child.Emulate(); err != nil {
			return err
		}
		return t.m.Host.Munmap(stack)
	})

	for atomic.LoadUint32(readyFlag) == 0 {
		if _, err := t.m.Host.Futex(readyFlag, hostos.FutexWaitOp, 0, nil); err != nil {
			return 0, false, hostExit(sysFutexNumber)
		}
	}

	return 0, true, nil
}
