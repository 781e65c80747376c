package vm

import (
	"bytes"
	"encoding/binary"
	"syscall"
	"time"
	"unsafe"
)

// guestSyscall implements one row of the §4.4 table: read F0..F3 and any
// pointer payloads out of VMEM, issue the host call, and return its result
// (or a negative errno) for R0.
type guestSyscall func(t *Thread) int64

// guestArg reads register Fi (i in 0..3) raw, with no width truncation -
// the syscall ABI always deals in full 32-bit words (§4.4).
func guestArg(t *Thread, i int) uint32 {
	return t.Regs[RegF0+i]
}

// errnoResult converts a host error into the SYSCALL ABI's "negative errno"
// convention (§4.4, §7).
func errnoResult(err error) int64 {
	if err == nil {
		return 0
	}
	if errno, ok := err.(syscall.Errno); ok {
		return -int64(errno)
	}
	return -1
}

// futexWordAt returns a real pointer into VMEM for direct futex(2) use, or
// nil if addr names a word that straddles the end of VMEM. VMEM is a single
// long-lived array for the process lifetime, so a non-nil pointer stays
// valid for as long as the Memory it came from does. A straddling word has
// no live address Slice can hand back (it would return a throwaway copy,
// and the kernel would wait on an address nothing ever wakes) - the caller
// faults the syscall with EFAULT rather than handing the kernel a dead
// pointer and hanging forever.
func futexWordAt(t *Thread, addr uint32) *uint32 {
	if t.m.Mem.Wraps(addr, 4) {
		return nil
	}
	return futexWord(t.m.Mem.Slice(addr, 4))
}

// futexWord reinterprets the first 4 bytes of a host-owned byte slice as a
// futex word, for direct use with HostOS.Futex. Used for both the guest
// 0x33 futex syscall and the FORK ready_flag handshake.
func futexWord(b []byte) *uint32 {
	return (*uint32)(unsafe.Pointer(&b[0]))
}

// readCString reads a NUL-terminated string out of VMEM starting at addr.
func readCString(t *Thread, addr uint32) string {
	max := MemorySize - int(mask(addr))
	raw := t.m.Mem.Slice(addr, uint32(max))
	if i := bytes.IndexByte(raw, 0); i >= 0 {
		return string(raw[:i])
	}
	return string(raw)
}

// nativeDuration decodes a guest `struct timespec` (two native 8-byte
// little-endian longs: seconds, nanoseconds) at addr.
func nativeDuration(t *Thread, addr uint32) time.Duration {
	raw := t.m.Mem.Slice(addr, 16)
	sec := int64(binary.LittleEndian.Uint64(raw[0:8]))
	nsec := int64(binary.LittleEndian.Uint64(raw[8:16]))
	return time.Duration(sec)*time.Second + time.Duration(nsec)
}

// writeNativeTimeval writes a guest `struct timeval` (two native 8-byte
// little-endian longs: seconds, microseconds) at addr.
func writeNativeTimeval(t *Thread, addr uint32, sec, usec int64) {
	raw := t.m.Mem.Slice(addr, 16)
	binary.LittleEndian.PutUint64(raw[0:8], uint64(sec))
	binary.LittleEndian.PutUint64(raw[8:16], uint64(usec))
	if t.m.Mem.Wraps(addr, 16) {
		t.m.Mem.CopyIn(addr, raw)
	}
}

// guestSyscallTable is the §4.4 mapping, keyed by the guest syscall number's
// low byte. A map is the idiomatic sparse-table representation here (most
// of the 0x00-0xFF guest number space is unmapped and falls through).
var guestSyscallTable = map[byte]guestSyscall{
	0x10: func(t *Thread) int64 {
		d := nativeDuration(t, guestArg(t, 0))
		return errnoResult(t.m.Host.Nanosleep(d))
	},
	0x11: func(t *Thread) int64 {
		return int64(t.m.Host.Getpid())
	},
	0x12: func(t *Thread) int64 {
		return int64(t.m.Host.Getppid())
	},
	0x13: func(t *Thread) int64 {
		err := t.m.Host.Kill(int(guestArg(t, 0)), int(guestArg(t, 1)))
		return errnoResult(err)
	},
	0x14: func(t *Thread) int64 {
		sec, usec, err := t.m.Host.Gettimeofday()
		if err != nil {
			return errnoResult(err)
		}
		writeNativeTimeval(t, guestArg(t, 0), sec, usec)
		return 0
	},
	0x20: func(t *Thread) int64 {
		path := readCString(t, guestArg(t, 0))
		fd, err := t.m.Host.Open(path, int(guestArg(t, 1)), 0o644)
		if err != nil {
			return errnoResult(err)
		}
		return int64(fd)
	},
	0x21: func(t *Thread) int64 {
		addr, length := guestArg(t, 1), guestArg(t, 2)
		buf := t.m.Mem.Slice(addr, length)
		n, err := t.m.Host.Read(int(guestArg(t, 0)), buf)
		if err != nil {
			return errnoResult(err)
		}
		if t.m.Mem.Wraps(addr, length) {
			// Slice returned a copy rather than a view for this range; write
			// the bytes Host.Read filled in back into VMEM so a read
			// straddling the boundary isn't silently dropped.
			t.m.Mem.CopyIn(addr, buf[:n])
		}
		return int64(n)
	},
	0x22: func(t *Thread) int64 {
		buf := t.m.Mem.Slice(guestArg(t, 1), guestArg(t, 2))
		n, err := t.m.Host.Write(int(guestArg(t, 0)), buf)
		if err != nil {
			return errnoResult(err)
		}
		return int64(n)
	},
	0x23: func(t *Thread) int64 {
		return errnoResult(t.m.Host.Close(int(guestArg(t, 0))))
	},
	0x24: func(t *Thread) int64 {
		off, err := t.m.Host.Lseek(int(guestArg(t, 0)), int64(int32(guestArg(t, 1))), int(guestArg(t, 2)))
		if err != nil {
			return errnoResult(err)
		}
		return off
	},
	0x30: func(t *Thread) int64 {
		fd, err := t.m.Host.InotifyInit()
		if err != nil {
			return errnoResult(err)
		}
		return int64(fd)
	},
	0x31: func(t *Thread) int64 {
		path := readCString(t, guestArg(t, 1))
		wd, err := t.m.Host.InotifyAddWatch(int(guestArg(t, 0)), path, guestArg(t, 2))
		if err != nil {
			return errnoResult(err)
		}
		return int64(wd)
	},
	0x32: func(t *Thread) int64 {
		err := t.m.Host.InotifyRmWatch(int(guestArg(t, 0)), int(guestArg(t, 1)))
		return errnoResult(err)
	},
	0x33: func(t *Thread) int64 {
		// futex: ptr=F0, op=F1, val=F2, ptr=F3 (timeout, optional) - forwarded
		// through exactly as the guest ABI names them (§4.4). F1 is passed as
		// the raw op code rather than collapsed to wait/wake: FutexWaitOp/
		// FutexWakeOp are defined to equal the real FUTEX_WAIT/FUTEX_WAKE
		// values, so this also covers any other raw futex op the guest names.
		addr := futexWordAt(t, guestArg(t, 0))
		if addr == nil {
			return errnoResult(syscall.EFAULT)
		}
		op := int(guestArg(t, 1))
		val := guestArg(t, 2)

		var timeout *time.Duration
		if tp := guestArg(t, 3); tp != 0 {
			d := nativeDuration(t, tp)
			timeout = &d
		}

		n, err := t.m.Host.Futex(addr, op, val, timeout)
		if err != nil {
			return errnoResult(err)
		}
		return int64(n)
	},
}

// execSYSCALL implements `SYSCALL code` (§4.4). Any guest number not in
// guestSyscallTable is passed through unchanged as the host syscall number,
// a documented footgun rather than a bug to fix (§4.4, §9).
func execSYSCALL(t *Thread, op1, _ Operand) (uint32, bool, error) {
	code := readOperand(op1, t)

	var result int64
	if fn, ok := guestSyscallTable[byte(code)]; ok {
		result = fn(t)
	} else {
		ret, errno := t.m.Host.Syscall(
			uintptr(code),
			uintptr(guestArg(t, 0)), uintptr(guestArg(t, 1)),
			uintptr(guestArg(t, 2)), uintptr(guestArg(t, 3)),
		)
		if errno != 0 {
			result = -int64(errno)
		} else {
			result = ret
		}
	}

	t.Regs[RegR0] = uint32(result)
	return 0, true, nil
}
