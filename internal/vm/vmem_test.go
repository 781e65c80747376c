package vm

import "testing"

// TestMemoryEndianness exercises invariant 3: a 32-bit INT write/read
// round-trips, and the first byte holds the value's top 8 bits.
func TestMemoryEndianness(t *testing.T) {
	var m Memory
	const addr = 0x30000
	const v = uint32(0x11223344)

	m.Write(addr, v, 4)
	if got := m.Read(addr, 4); got != v {
		t.Fatalf("Read(4) = %x, want %x", got, v)
	}
	if got := m.Byte(addr); got != 0x11 {
		t.Fatalf("Byte(addr) = %x, want %x (V>>24)", got, 0x11)
	}
}

func TestMemoryAddressMasking(t *testing.T) {
	var m Memory
	m.Write(0, 0xAA, 1)
	if got := m.Byte(MemorySize); got != 0xAA {
		t.Fatalf("address wraparound: Byte(MemorySize) = %x, want %x", got, 0xAA)
	}
}

func TestMemoryWidthVariants(t *testing.T) {
	var m Memory
	m.Write(0x1000, 0xABCD, 2)
	if got := m.Read(0x1000, 2); got != 0xABCD {
		t.Fatalf("16-bit round trip = %x, want abcd", got)
	}
	if m.Byte(0x1000) != 0xAB || m.Byte(0x1001) != 0xCD {
		t.Fatalf("16-bit write not big-endian: %x %x", m.Byte(0x1000), m.Byte(0x1001))
	}

	m.Write(0x2000, 0x12345678, 0) // NULL width: no-op
	if m.Read(0x2000, 0) != 0 {
		t.Fatal("NULL-width read should return 0")
	}
	if m.Byte(0x2000) != 0 {
		t.Fatal("NULL-width write should not touch memory")
	}
}
