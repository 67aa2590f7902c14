package link

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sldlab/sld/lib/elf"
)

func TestLoadObjectAtoms(t *testing.T) {
	data := buildObject(t, []testSec{
		{name: ".text", typ: elf.SHT_PROGBITS, flags: elf.SHF_ALLOC | elf.SHF_EXECINSTR,
			align: 16, data: make([]byte, 8)},
		{name: ".data", typ: elf.SHT_PROGBITS, flags: elf.SHF_ALLOC | elf.SHF_WRITE,
			align: 8, data: make([]byte, 4)},
		{name: ".bss", typ: elf.SHT_NOBITS, flags: elf.SHF_ALLOC | elf.SHF_WRITE,
			align: 4, memSize: 32},
		{name: ".comment", typ: elf.SHT_PROGBITS, align: 1, data: []byte("cc\x00")},
		{name: ".eh_frame", typ: elf.SHT_PROGBITS, flags: elf.SHF_ALLOC,
			align: 8, data: make([]byte, 16)},
	}, nil, nil)

	s := newTestSession(Options{})
	o, err := LoadObject(s, "a.o", data)
	require.NoError(t, err)

	require.NotZero(t, o.Atoms[1], ".text must be retained")
	require.NotZero(t, o.Atoms[2], ".data must be retained")
	require.NotZero(t, o.Atoms[3], ".bss must be retained")
	assert.Zero(t, o.Atoms[4], ".comment must be skipped")
	assert.Zero(t, o.Atoms[5], ".eh_frame must be skipped")

	text := s.Atom(o.Atoms[1])
	assert.Equal(t, uint64(8), text.Size)
	assert.Equal(t, uint8(4), text.P2Align)
	assert.Equal(t, uint32(NoRelSec), text.RelSec)

	bss := s.Atom(o.Atoms[3])
	assert.Equal(t, uint64(32), bss.Size)
	assert.Nil(t, bss.Bytes(s))
}

func TestLoadObjectAttachesRelocations(t *testing.T) {
	data := buildObject(t, []testSec{
		{name: ".text", typ: elf.SHT_PROGBITS, flags: elf.SHF_ALLOC | elf.SHF_EXECINSTR,
			align: 16, data: make([]byte, 16),
			relas: []elf.Rela{{Offset: 0, Type: elf.R_X86_64_64, Sym: 1}}},
	}, []testSym{
		{name: "local", bind: elf.STB_LOCAL, typ: elf.STT_NOTYPE, shndx: 1},
	}, nil)

	s := newTestSession(Options{})
	o, err := LoadObject(s, "a.o", data)
	require.NoError(t, err)

	text := s.Atom(o.Atoms[1])
	require.NotEqual(t, uint32(NoRelSec), text.RelSec)
	assert.Equal(t, elf.SHT_RELA, o.Shdrs[text.RelSec].Type)
}

func TestLoadObjectRejectsMalformed(t *testing.T) {
	valid := func() []byte {
		return buildObject(t, []testSec{
			{name: ".text", typ: elf.SHT_PROGBITS,
				flags: elf.SHF_ALLOC | elf.SHF_EXECINSTR, align: 1, data: make([]byte, 4)},
		}, nil, nil)
	}

	cases := []struct {
		name   string
		mutate func(data []byte)
		field  string
	}{
		{"bad magic", func(d []byte) { d[0] = 0 }, "magic"},
		{"32-bit class", func(d []byte) { d[elf.EI_CLASS] = 1 }, "class"},
		{"big endian", func(d []byte) { d[elf.EI_DATA] = 2 }, "endianness"},
		{"not relocatable", func(d []byte) { d[16] = 2; d[17] = 0 }, "type"},
		{"wrong machine", func(d []byte) { d[18] = 40; d[19] = 0 }, "machine"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			data := valid()
			tc.mutate(data)
			s := newTestSession(Options{})
			_, err := LoadObject(s, "bad.o", data)
			require.Error(t, err)
			var merr *MalformedInputError
			require.ErrorAs(t, err, &merr)
			assert.Equal(t, tc.field, merr.Field)
			assert.Equal(t, "bad.o", merr.Origin)
		})
	}

	t.Run("truncated", func(t *testing.T) {
		s := newTestSession(Options{})
		_, err := LoadObject(s, "bad.o", valid()[:40])
		require.Error(t, err)
	})
}

func TestLoadObjectSkipsUnwindByType(t *testing.T) {
	// Unwind info must be skipped by section type, whatever its name.
	data := buildObject(t, []testSec{
		{name: ".text", typ: elf.SHT_PROGBITS, flags: elf.SHF_ALLOC | elf.SHF_EXECINSTR,
			align: 4, data: make([]byte, 4)},
		{name: ".unwind_tables", typ: elf.SHT_X86_64_UNWIND, flags: elf.SHF_ALLOC,
			align: 8, data: make([]byte, 24)},
	}, nil, nil)

	s := newTestSession(Options{})
	o, err := LoadObject(s, "a.o", data)
	require.NoError(t, err)

	require.NotZero(t, o.Atoms[1])
	assert.Zero(t, o.Atoms[2], "unwind sections must not become atoms")
}

func TestCommonSymbolRejected(t *testing.T) {
	data := buildObject(t, []testSec{
		{name: ".data", typ: elf.SHT_PROGBITS, flags: elf.SHF_ALLOC | elf.SHF_WRITE,
			align: 8, data: make([]byte, 8)},
	}, nil, []testSym{
		{name: "tentative", bind: elf.STB_GLOBAL, typ: elf.STT_OBJECT,
			shndx: elf.SHN_COMMON, value: 8, size: 8},
	})

	s := newTestSession(Options{})
	o, err := LoadObject(s, "a.o", data)
	require.NoError(t, err)
	ClassifyAtoms(s)

	err = o.initSymbols(s)
	var merr *MalformedInputError
	require.ErrorAs(t, err, &merr)
	assert.Equal(t, "symbol", merr.Field)
	assert.Contains(t, merr.Detail, "common")
}

func TestSectionSymbolTakesOutputName(t *testing.T) {
	data := buildObject(t, []testSec{
		{name: ".text.start", typ: elf.SHT_PROGBITS,
			flags: elf.SHF_ALLOC | elf.SHF_EXECINSTR, align: 4, data: make([]byte, 4)},
	}, []testSym{
		{name: "", bind: elf.STB_LOCAL, typ: elf.STT_SECTION, shndx: 1},
	}, nil)

	s := newTestSession(Options{})
	o, err := LoadObject(s, "a.o", data)
	require.NoError(t, err)
	ClassifyAtoms(s)
	require.NoError(t, o.initSymbols(s))

	require.Len(t, o.Locals, 2)
	assert.Equal(t, ".text", s.NameOf(o.Locals[1].Name))
}
