// Package loader implements the one external collaborator spec.md §6 gives
// a concrete contract for: locating and decrypting the trailing code blob
// appended to the host's own executable image, and delivering it as a
// read-only buffer plus an entry address.
package loader

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/yalue/elf_reader"

	"github.com/ionguard/ionguard/internal/hostos"
)

// trailerSize is the 8-byte encrypted vcode_len trailer (§6).
const trailerSize = 8

// EntryVIP is where every top-level guest program begins; FORK targets are
// the only other entry points a thread ever starts from.
const EntryVIP = 0

// Loaded is the code buffer the VM core runs against.
type Loaded struct {
	Code []byte
}

func rol32(x uint32, n uint) uint32 { return (x << n) | (x >> (32 - n)) }
func ror32(x uint32, n uint) uint32 { return (x >> n) | (x << (32 - n)) }

// Load reads the running executable, decrypts vcode_len from its trailing
// 8 bytes, slices out VCODE, and mprotects it read-only (§6). Any failure
// here is a hard fault: the caller should exit with host code 1 (§7).
func Load(host hostos.HostOS) (*Loaded, error) {
	path, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("loader: locate self: %w", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loader: read self: %w", err)
	}
	if len(raw) < trailerSize {
		return nil, fmt.Errorf("loader: image too small for trailer")
	}

	// Parsing with elf_reader both validates the image is well-formed and
	// gives us section introspection for diagnostics, rather than trusting
	// the raw bytes blindly.
	ef, err := elf_reader.ParseELFFile(raw)
	if err != nil {
		return nil, fmt.Errorf("loader: parse self as ELF: %w", err)
	}
	sectionCount := ef.GetSectionCount()

	trailer := raw[len(raw)-trailerSize:]
	hi := binary.BigEndian.Uint32(trailer[0:4])
	lo := binary.BigEndian.Uint32(trailer[4:8])

	// ELF_header_u32_LE (§6): the low 32 bits of the ELF header's entry
	// point field, read little-endian directly out of the image - the one
	// header field guaranteed present and non-zero for an executable.
	if len(raw) < 32 {
		return nil, fmt.Errorf("loader: image too small for ELF header")
	}
	headerWord := binary.LittleEndian.Uint32(raw[24:28])

	vcodeLen := headerWord ^ (rol32(hi, 13) ^ ror32(lo, 27))
	if int64(vcodeLen) > int64(len(raw))-trailerSize {
		return nil, fmt.Errorf("loader: vcode_len %d exceeds image size (sections=%d)", vcodeLen, sectionCount)
	}

	start := int64(len(raw)) - trailerSize - int64(vcodeLen)
	plain := raw[start : int64(len(raw))-trailerSize]

	mem, err := host.Mmap(len(plain))
	if err != nil {
		return nil, fmt.Errorf("loader: mmap vcode region: %w", err)
	}
	copy(mem, plain)
	if err := host.Mprotect(mem, false); err != nil {
		return nil, fmt.Errorf("loader: mprotect vcode read-only: %w", err)
	}

	return &Loaded{Code: mem}, nil
}
