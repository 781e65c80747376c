package hostos

import (
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Linux implements HostOS on top of golang.org/x/sys/unix. It is the only
// file in this package that imports unix - everything else in the VM talks
// to the HostOS interface instead.
type Linux struct{}

var _ HostOS = Linux{}

func (Linux) Mmap(size int) ([]byte, error) {
	return unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
}

func (Linux) Munmap(b []byte) error {
	return unix.Munmap(b)
}

func (Linux) Mprotect(b []byte, writable bool) error {
	prot := unix.PROT_READ
	if writable {
		prot |= unix.PROT_WRITE
	}
	return unix.Mprotect(b, prot)
}

func (Linux) Open(path string, flags int, mode uint32) (int, error) {
	return unix.Open(path, flags, mode)
}

func (Linux) Read(fd int, buf []byte) (int, error) {
	return unix.Read(fd, buf)
}

func (Linux) Write(fd int, buf []byte) (int, error) {
	return unix.Write(fd, buf)
}

func (Linux) Close(fd int) error {
	return unix.Close(fd)
}

func (Linux) Lseek(fd int, offset int64, whence int) (int64, error) {
	return unix.Seek(fd, offset, whence)
}

func (Linux) Getpid() int  { return unix.Getpid() }
func (Linux) Getppid() int { return unix.Getppid() }

func (Linux) Kill(pid int, sig int) error {
	return unix.Kill(pid, unix.Signal(sig))
}

func (Linux) Gettimeofday() (sec, usec int64, err error) {
	var tv unix.Timeval
	if err = unix.Gettimeofday(&tv); err != nil {
		return 0, 0, err
	}
	return int64(tv.Sec), int64(tv.Usec), nil
}

func (Linux) Nanosleep(d time.Duration) error {
	ts := unix.NsecToTimespec(d.Nanoseconds())
	return unix.Nanosleep(&ts, nil)
}

func (Linux) InotifyInit() (int, error) {
	return unix.InotifyInit1(0)
}

func (Linux) InotifyAddWatch(fd int, path string, mask uint32) (int, error) {
	return unix.InotifyAddWatch(fd, path, mask)
}

func (Linux) InotifyRmWatch(fd int, wd int) error {
	_, err := unix.InotifyRmWatch(fd, uint32(wd))
	return err
}

// futex issues the raw futex(2) syscall. golang.org/x/sys/unix does not
// expose a high-level wrapper for it, so this and Syscall below are the only
// places in the package that fall back to unix.Syscall6 directly, matching the teacher's
// own pattern of keeping every raw syscall site small and named.
func futex(addr *uint32, op int, val uint32, timeout *unix.Timespec) (int, error) {
	r1, _, errno := unix.Syscall6(
		unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)),
		uintptr(op),
		uintptr(val),
		uintptr(unsafe.Pointer(timeout)),
		0, 0,
	)
	if errno != 0 {
		return int(r1), errno
	}
	return int(r1), nil
}

func (Linux) Futex(addr *uint32, op int, val uint32, timeout *time.Duration) (int, error) {
	// FutexWaitOp/FutexWakeOp are defined (hostos.go) to equal the real
	// unix.FUTEX_WAIT/FUTEX_WAKE values, so op is already the right kernel
	// op code whether it came from the internal handshake or was forwarded
	// unchanged from the guest's own 0x33 syscall (§4.4), including raw ops
	// neither constant names (e.g. FUTEX_WAIT_BITSET).
	var ts *unix.Timespec
	if timeout != nil {
		t := unix.NsecToTimespec(timeout.Nanoseconds())
		ts = &t
	}

	n, err := futex(addr, op, val, ts)
	if op == FutexWaitOp && err == unix.EAGAIN {
		// *addr already changed before we started waiting - not an error.
		return n, nil
	}
	return n, err
}

func (Linux) Syscall(num uintptr, a0, a1, a2, a3 uintptr) (int64, int) {
	r1, _, errno := unix.Syscall6(num, a0, a1, a2, a3, 0, 0)
	return int64(r1), int(errno)
}

func (Linux) Exit(code int) {
	unix.Exit(code)
}
