package vm

import "fmt"

// HostExit is returned up through Emulate when a thread terminates the
// process rather than merely faulting (§7): call-stack overflow during CALL,
// mmap/futex failures during the FORK handshake, and quitting the debug
// monitor all surface this way instead of a custom error-code hierarchy,
// matching the teacher's plain-wrapped-error style. EXIT is not one of
// them: it records Thread.ExitCode and ends the loop with no error.
type HostExit struct {
	Code int
}

func (e *HostExit) Error() string {
	return fmt.Sprintf("host exit: code %d", e.Code)
}

// hostExit is a small constructor to keep call sites terse.
func hostExit(code int) error {
	return &HostExit{Code: code}
}
