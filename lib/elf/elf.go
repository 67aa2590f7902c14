// Package elf holds the fixed-layout ELF64 records the linker reads and
// writes, together with bounds-checked decoding helpers. Standard constants
// come from debug/elf; only values missing from the standard library are
// defined here.
package elf

import (
	"bytes"
	"debug/elf"
)

const (
	EhdrSize = 64
	ShdrSize = 64
	PhdrSize = 56
	SymSize  = 24
	RelaSize = 24
)

// Not provided by debug/elf.
const (
	SHF_EXCLUDE       uint64 = 0x80000000
	SHT_LLVM_ADDRSIG  uint32 = 0x6fff4c03
	SHT_X86_64_UNWIND uint32 = 0x70000001
)

// Ehdr is the ELF64 file header.
type Ehdr struct {
	Ident     [16]uint8
	Type      uint16
	Machine   uint16
	Version   uint32
	Entry     uint64
	PhOff     uint64
	ShOff     uint64
	Flags     uint32
	EhSize    uint16
	PhEntSize uint16
	PhNum     uint16
	ShEntSize uint16
	ShNum     uint16
	ShStrndx  uint16
}

// Shdr is an ELF64 section header.
type Shdr struct {
	Name      uint32
	Type      uint32
	Flags     uint64
	Addr      uint64
	Offset    uint64
	Size      uint64
	Link      uint32
	Info      uint32
	AddrAlign uint64
	EntSize   uint64
}

// Phdr is an ELF64 program header.
type Phdr struct {
	Type     uint32
	Flags    uint32
	Offset   uint64
	VAddr    uint64
	PAddr    uint64
	FileSize uint64
	MemSize  uint64
	Align    uint64
}

// Sym is an ELF64 symbol table entry.
type Sym struct {
	Name  uint32
	Info  uint8
	Other uint8
	Shndx uint16
	Val   uint64
	Size  uint64
}

// Rela is an ELF64 relocation entry with addend. The 64-bit r_info field is
// split into its little-endian halves: the low word is the relocation type,
// the high word the symbol index.
type Rela struct {
	Offset uint64
	Type   uint32
	Sym    uint32
	Addend int64
}

func (s *Sym) IsUndef() bool {
	return s.Shndx == uint16(elf.SHN_UNDEF)
}

func (s *Sym) IsDefined() bool {
	return !s.IsUndef()
}

func (s *Sym) IsAbs() bool {
	return s.Shndx == uint16(elf.SHN_ABS)
}

func (s *Sym) IsCommon() bool {
	return s.Shndx == uint16(elf.SHN_COMMON)
}

func (s *Sym) Bind() uint8 {
	return s.Info >> 4
}

func (s *Sym) Type() uint8 {
	return s.Info & 0xf
}

func (s *Sym) IsWeak() bool {
	return s.Bind() == uint8(elf.STB_WEAK)
}

// SymInfo packs a binding and a type into an st_info byte.
func SymInfo(bind, typ uint8) uint8 {
	return bind<<4 | typ&0xf
}

// CheckMagic reports whether data starts with the ELF magic bytes.
func CheckMagic(data []byte) bool {
	return bytes.HasPrefix(data, []byte("\x7fELF"))
}

// WriteMagic stores the ELF magic bytes at the start of buf.
func WriteMagic(buf []byte) {
	copy(buf, "\x7fELF")
}

// GetName extracts the NUL-terminated string at offset from a string table.
// A malformed offset yields the empty string.
func GetName(strtab []byte, offset uint32) string {
	if int64(offset) >= int64(len(strtab)) {
		return ""
	}
	length := bytes.IndexByte(strtab[offset:], 0)
	if length < 0 {
		return ""
	}
	return string(strtab[offset : int(offset)+length])
}
