package vm

import (
	"sync/atomic"
	"time"

	"github.com/ionguard/ionguard/internal/hostos"
)

// fakeHost is a minimal in-process HostOS for tests: no real syscalls, just
// enough behavior to exercise FORK's futex handshake and the syscall bridge
// deterministically and fast.
type fakeHost struct{}

var _ hostos.HostOS = fakeHost{}

func (fakeHost) Mmap(size int) ([]byte, error)            { return make([]byte, size), nil }
func (fakeHost) Munmap(b []byte) error                    { return nil }
func (fakeHost) Mprotect(b []byte, writable bool) error    { return nil }
func (fakeHost) Open(string, int, uint32) (int, error)     { return 3, nil }
func (fakeHost) Read(int, []byte) (int, error)             { return 0, nil }
func (fakeHost) Write(int, []byte) (int, error)            { return 0, nil }
func (fakeHost) Close(int) error                           { return nil }
func (fakeHost) Lseek(int, int64, int) (int64, error)      { return 0, nil }
func (fakeHost) Getpid() int                               { return 1234 }
func (fakeHost) Getppid() int                              { return 1 }
func (fakeHost) Kill(int, int) error                       { return nil }
func (fakeHost) Gettimeofday() (int64, int64, error)       { return 0, 0, nil }
func (fakeHost) Nanosleep(time.Duration) error             { return nil }
func (fakeHost) InotifyInit() (int, error)                 { return 4, nil }
func (fakeHost) InotifyAddWatch(int, string, uint32) (int, error) { return 1, nil }
func (fakeHost) InotifyRmWatch(int, int) error              { return nil }

func (fakeHost) Futex(addr *uint32, op int, val uint32, timeout *time.Duration) (int, error) {
	switch op {
	case hostos.FutexWaitOp:
		for atomic.LoadUint32(addr) == val {
			time.Sleep(time.Millisecond)
		}
		return 0, nil
	default:
		return 1, nil
	}
}

func (fakeHost) Syscall(num uintptr, a0, a1, a2, a3 uintptr) (int64, int) {
	return 0, 0
}

func (fakeHost) Exit(code int) {}
