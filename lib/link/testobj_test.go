package link

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/sldlab/sld/lib/elf"
	"github.com/sldlab/sld/lib/util"
)

// testSec describes one input section for buildObject. NOBITS sections set
// memSize instead of data.
type testSec struct {
	name    string
	typ     uint32
	flags   uint64
	align   uint64
	data    []byte
	memSize uint64
	relas   []elf.Rela
}

// testSym describes one symbol table entry. shndx is the 1-based index of
// the section the symbol lives in, or one of the SHN_* specials.
type testSym struct {
	name  string
	bind  uint8
	typ   uint8
	shndx uint16
	value uint64
	size  uint64
}

// buildObject assembles a valid ELF64 relocatable object in memory:
// null section, content sections in the given order, one .rela section per
// content section that has relocations, then .symtab, .strtab, .shstrtab.
func buildObject(t *testing.T, secs []testSec, locals, globals []testSym) []byte {
	t.Helper()

	shstrtab := []byte{0}
	addShName := func(name string) uint32 {
		off := uint32(len(shstrtab))
		shstrtab = append(shstrtab, name...)
		shstrtab = append(shstrtab, 0)
		return off
	}
	strtab := []byte{0}
	addName := func(name string) uint32 {
		if name == "" {
			return 0
		}
		off := uint32(len(strtab))
		strtab = append(strtab, name...)
		strtab = append(strtab, 0)
		return off
	}

	syms := []elf.Sym{{}}
	for _, ts := range append(append([]testSym{}, locals...), globals...) {
		syms = append(syms, elf.Sym{
			Name:  addName(ts.name),
			Info:  elf.SymInfo(ts.bind, ts.typ),
			Shndx: ts.shndx,
			Val:   ts.value,
			Size:  ts.size,
		})
	}
	firstGlobal := uint32(1 + len(locals))

	relaCount := 0
	for _, ts := range secs {
		if len(ts.relas) > 0 {
			relaCount++
		}
	}
	symtabIdx := uint32(1 + len(secs) + relaCount)
	strtabIdx := symtabIdx + 1
	shstrtabIdx := strtabIdx + 1

	type shent struct {
		hdr  elf.Shdr
		data []byte
	}
	ents := []shent{{}}
	for _, ts := range secs {
		align := ts.align
		if align == 0 {
			align = 1
		}
		hdr := elf.Shdr{
			Name:      addShName(ts.name),
			Type:      ts.typ,
			Flags:     ts.flags,
			AddrAlign: align,
		}
		if ts.typ == elf.SHT_NOBITS {
			hdr.Size = ts.memSize
		}
		ents = append(ents, shent{hdr: hdr, data: ts.data})
	}
	for i, ts := range secs {
		if len(ts.relas) == 0 {
			continue
		}
		var rdata bytes.Buffer
		for _, rel := range ts.relas {
			if err := binary.Write(&rdata, binary.LittleEndian, rel); err != nil {
				t.Fatal(err)
			}
		}
		ents = append(ents, shent{hdr: elf.Shdr{
			Name:      addShName(".rela" + ts.name),
			Type:      elf.SHT_RELA,
			Link:      symtabIdx,
			Info:      uint32(i + 1),
			AddrAlign: 8,
			EntSize:   elf.RelaSize,
		}, data: rdata.Bytes()})
	}

	var symData bytes.Buffer
	for _, sym := range syms {
		if err := binary.Write(&symData, binary.LittleEndian, sym); err != nil {
			t.Fatal(err)
		}
	}
	ents = append(ents, shent{hdr: elf.Shdr{
		Name:      addShName(".symtab"),
		Type:      elf.SHT_SYMTAB,
		Link:      strtabIdx,
		Info:      firstGlobal,
		AddrAlign: 8,
		EntSize:   elf.SymSize,
	}, data: symData.Bytes()})
	ents = append(ents, shent{hdr: elf.Shdr{
		Name:      addShName(".strtab"),
		Type:      elf.SHT_STRTAB,
		AddrAlign: 1,
	}, data: strtab})
	ents = append(ents, shent{hdr: elf.Shdr{
		Name:      addShName(".shstrtab"),
		Type:      elf.SHT_STRTAB,
		AddrAlign: 1,
	}})
	ents[len(ents)-1].data = shstrtab

	off := uint64(elf.EhdrSize)
	for i := 1; i < len(ents); i++ {
		e := &ents[i]
		off = util.AlignTo(off, 8)
		e.hdr.Offset = off
		if e.hdr.Type != elf.SHT_NOBITS {
			e.hdr.Size = uint64(len(e.data))
			off += uint64(len(e.data))
		}
	}
	shoff := util.AlignTo(off, 8)

	ehdr := elf.Ehdr{
		Type:      elf.ET_REL,
		Machine:   elf.EM_X86_64,
		Version:   uint32(elf.EV_CURRENT),
		ShOff:     shoff,
		EhSize:    elf.EhdrSize,
		ShEntSize: elf.ShdrSize,
		ShNum:     uint16(len(ents)),
		ShStrndx:  uint16(shstrtabIdx),
	}
	elf.WriteMagic(ehdr.Ident[:])
	ehdr.Ident[elf.EI_CLASS] = elf.ELFCLASS64
	ehdr.Ident[elf.EI_DATA] = elf.ELFDATA2LSB
	ehdr.Ident[elf.EI_VERSION] = elf.EV_CURRENT

	buf := make([]byte, shoff+uint64(len(ents))*elf.ShdrSize)
	elf.Write(buf, ehdr)
	for i := 1; i < len(ents); i++ {
		e := &ents[i]
		if e.hdr.Type != elf.SHT_NOBITS {
			copy(buf[e.hdr.Offset:], e.data)
		}
	}
	for i, e := range ents {
		elf.Write(buf[shoff+uint64(i)*elf.ShdrSize:], e.hdr)
	}
	return buf
}

func newTestSession(opts Options) *Session {
	return NewSession(opts, NewWriterSink(&bytes.Buffer{}))
}
