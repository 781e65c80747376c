// Package hostos wraps the handful of real host syscalls the VM needs
// (§4.4, §4.5, §6) behind a single small interface, the way memory_bus.go
// wraps memory-mapped I/O behind the MemoryBus interface: the VM core never
// imports golang.org/x/sys/unix directly, only this interface.
package hostos

import "time"

// HostOS is every host-kernel operation the VM core issues. One function per
// syscall the guest ABI or the loader/fork protocol needs (§9: "wrap each
// host syscall in a single function; do not replicate the register-shuffling
// inline").
type HostOS interface {
	// Mmap allocates a private, anonymous read-write mapping of size bytes.
	Mmap(size int) ([]byte, error)
	Munmap(b []byte) error
	Mprotect(b []byte, writable bool) error

	Open(path string, flags int, mode uint32) (fd int, err error)
	Read(fd int, buf []byte) (n int, err error)
	Write(fd int, buf []byte) (n int, err error)
	Close(fd int) error
	Lseek(fd int, offset int64, whence int) (int64, error)

	Getpid() int
	Getppid() int
	Kill(pid int, sig int) error
	Gettimeofday() (sec, usec int64, err error)
	Nanosleep(d time.Duration) error

	InotifyInit() (fd int, err error)
	InotifyAddWatch(fd int, path string, mask uint32) (wd int, err error)
	InotifyRmWatch(fd int, wd int) error

	// Futex issues a futex(2) operation on addr. op is FutexWaitOp/FutexWakeOp
	// for the internal FORK handshake (§4.5), or the guest's own raw futex
	// operation code forwarded unchanged for its 0x33 syscall (§4.4) - the
	// two constants below are chosen to equal the real FUTEX_WAIT/FUTEX_WAKE
	// values, so a guest-supplied op and the internal constants share one
	// code path. val is the expected value (wait) or waiter count (wake).
	// timeout is nil for "block indefinitely"; non-nil bounds a WaitOp.
	Futex(addr *uint32, op int, val uint32, timeout *time.Duration) (int, error)

	// Syscall issues a raw host syscall by number, for the §4.4 "unmapped
	// guest syscall number passes through unchanged" footgun path.
	Syscall(num uintptr, a0, a1, a2, a3 uintptr) (ret int64, errno int)

	// Exit never returns; it ends the current OS thread's process the way
	// §4.3's EXIT handler and §7's hard-fault exits require.
	Exit(code int)
}

// Futex operation codes, passed to HostOS.Futex.
const (
	FutexWaitOp = iota
	FutexWakeOp
)
