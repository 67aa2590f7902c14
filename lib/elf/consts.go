package elf

import "debug/elf"

// The subset of standard ELF constants the linker works with, lifted to the
// integer widths of the record fields they are compared against.

const (
	EI_CLASS   = int(elf.EI_CLASS)
	EI_DATA    = int(elf.EI_DATA)
	EI_VERSION = int(elf.EI_VERSION)

	ELFCLASS64  = uint8(elf.ELFCLASS64)
	ELFDATA2LSB = uint8(elf.ELFDATA2LSB)
	EV_CURRENT  = uint8(elf.EV_CURRENT)

	ET_REL  = uint16(elf.ET_REL)
	ET_EXEC = uint16(elf.ET_EXEC)

	EM_X86_64 = uint16(elf.EM_X86_64)
)

const (
	SHT_NULL         = uint32(elf.SHT_NULL)
	SHT_PROGBITS     = uint32(elf.SHT_PROGBITS)
	SHT_SYMTAB       = uint32(elf.SHT_SYMTAB)
	SHT_STRTAB       = uint32(elf.SHT_STRTAB)
	SHT_RELA         = uint32(elf.SHT_RELA)
	SHT_NOBITS       = uint32(elf.SHT_NOBITS)
	SHT_REL          = uint32(elf.SHT_REL)
	SHT_GROUP        = uint32(elf.SHT_GROUP)
	SHT_SYMTAB_SHNDX = uint32(elf.SHT_SYMTAB_SHNDX)
	SHT_INIT_ARRAY   = uint32(elf.SHT_INIT_ARRAY)
	SHT_FINI_ARRAY   = uint32(elf.SHT_FINI_ARRAY)

	SHF_WRITE     = uint64(elf.SHF_WRITE)
	SHF_ALLOC     = uint64(elf.SHF_ALLOC)
	SHF_EXECINSTR = uint64(elf.SHF_EXECINSTR)

	SHN_UNDEF  = uint16(elf.SHN_UNDEF)
	SHN_ABS    = uint16(elf.SHN_ABS)
	SHN_COMMON = uint16(elf.SHN_COMMON)
	SHN_XINDEX = uint16(elf.SHN_XINDEX)
)

const (
	STB_LOCAL  = uint8(elf.STB_LOCAL)
	STB_GLOBAL = uint8(elf.STB_GLOBAL)
	STB_WEAK   = uint8(elf.STB_WEAK)

	STT_NOTYPE  = uint8(elf.STT_NOTYPE)
	STT_OBJECT  = uint8(elf.STT_OBJECT)
	STT_FUNC    = uint8(elf.STT_FUNC)
	STT_SECTION = uint8(elf.STT_SECTION)
	STT_FILE    = uint8(elf.STT_FILE)
)

const (
	PT_LOAD = uint32(elf.PT_LOAD)
	PT_PHDR = uint32(elf.PT_PHDR)

	PF_X = uint32(elf.PF_X)
	PF_W = uint32(elf.PF_W)
	PF_R = uint32(elf.PF_R)
)

const (
	R_X86_64_NONE = uint32(elf.R_X86_64_NONE)
	R_X86_64_64   = uint32(elf.R_X86_64_64)
	R_X86_64_32   = uint32(elf.R_X86_64_32)
)
