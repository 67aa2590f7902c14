package elf

import (
	"debug/elf"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordSizes(t *testing.T) {
	// Wire sizes are fixed by the ELF64 spec; the Go structs must match.
	var buf [EhdrSize]byte
	ehdr := Ehdr{Type: uint16(elf.ET_REL), Machine: uint16(elf.EM_X86_64)}
	Write(buf[:], ehdr)
	got, err := Read[Ehdr](buf[:])
	require.NoError(t, err)
	assert.Equal(t, ehdr, got)

	var sbuf [SymSize]byte
	sym := Sym{Name: 7, Info: SymInfo(uint8(elf.STB_GLOBAL), uint8(elf.STT_FUNC)), Val: 0x40}
	Write(sbuf[:], sym)
	gotSym, err := Read[Sym](sbuf[:])
	require.NoError(t, err)
	assert.Equal(t, sym, gotSym)
}

func TestReadTruncated(t *testing.T) {
	_, err := Read[Ehdr](make([]byte, EhdrSize-1))
	assert.Error(t, err)

	_, err = Read[Shdr](nil)
	assert.Error(t, err)
}

func TestReadSlice(t *testing.T) {
	buf := make([]byte, 2*RelaSize)
	Write(buf, Rela{Offset: 8, Type: uint32(elf.R_X86_64_64), Sym: 1, Addend: -4})
	Write(buf[RelaSize:], Rela{Offset: 16, Type: uint32(elf.R_X86_64_32), Sym: 2})

	rels, err := ReadSlice[Rela](buf, RelaSize)
	require.NoError(t, err)
	require.Len(t, rels, 2)
	assert.Equal(t, uint64(8), rels[0].Offset)
	assert.Equal(t, int64(-4), rels[0].Addend)
	assert.Equal(t, uint32(2), rels[1].Sym)

	_, err = ReadSlice[Rela](buf[:RelaSize+1], RelaSize)
	assert.Error(t, err)
}

func TestRelaInfoSplit(t *testing.T) {
	// The Type/Sym pair must occupy the r_info field: low word type,
	// high word symbol index.
	buf := make([]byte, RelaSize)
	Write(buf, Rela{Type: uint32(elf.R_X86_64_64), Sym: 5})
	info, err := Read[uint64](buf[8:16])
	require.NoError(t, err)
	assert.Equal(t, uint64(5)<<32|uint64(elf.R_X86_64_64), info)
}

func TestSymAccessors(t *testing.T) {
	sym := Sym{Info: SymInfo(uint8(elf.STB_WEAK), uint8(elf.STT_OBJECT))}
	assert.Equal(t, uint8(elf.STB_WEAK), sym.Bind())
	assert.Equal(t, uint8(elf.STT_OBJECT), sym.Type())
	assert.True(t, sym.IsWeak())
	assert.True(t, sym.IsUndef())
	assert.False(t, sym.IsDefined())

	sym.Shndx = uint16(elf.SHN_ABS)
	assert.True(t, sym.IsAbs())
	assert.True(t, sym.IsDefined())
}

func TestGetName(t *testing.T) {
	strtab := []byte("\x00_start\x00main\x00")
	assert.Equal(t, "", GetName(strtab, 0))
	assert.Equal(t, "_start", GetName(strtab, 1))
	assert.Equal(t, "main", GetName(strtab, 8))
	assert.Equal(t, "start", GetName(strtab, 2))
	assert.Equal(t, "", GetName(strtab, 200))
}

func TestCheckMagic(t *testing.T) {
	assert.True(t, CheckMagic([]byte("\x7fELF....")))
	assert.False(t, CheckMagic([]byte("\x7fELG")))
	assert.False(t, CheckMagic(nil))
}
