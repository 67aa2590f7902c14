package link

import (
	"io"

	"github.com/sldlab/sld/lib/elf"
	"github.com/sldlab/sld/lib/util"
)

// imageWriter serializes the fully resolved link into one output buffer, in
// strict file-offset order: program header table, allocated sections,
// unallocated sections, symbol table, string tables, section header table,
// and finally the ELF header back at offset 0.
type imageWriter struct {
	s *Session

	buf []byte

	symtab      []elf.Sym
	strtab      []byte
	shstrtab    []byte
	firstGlobal int

	secNameOff   []uint32
	symtabName   uint32
	strtabName   uint32
	shstrtabName uint32

	symtabShndx   int
	strtabShndx   int
	shstrtabShndx int
	shnum         int

	symtabOff   uint64
	strtabOff   uint64
	shstrtabOff uint64
	shdrOff     uint64
}

// WriteImage emits the executable image for a session whose relocations
// have been applied. The whole image is assembled in memory and written in
// one call; a partial file is never valid output.
func WriteImage(s *Session, w io.Writer) error {
	iw := &imageWriter{s: s}
	iw.assignShndx()
	iw.buildSymtab()
	iw.buildShstrtab()
	iw.placeTails()

	iw.buf = make([]byte, iw.shdrOff+uint64(iw.shnum)*elf.ShdrSize)
	iw.writePhdrs()
	iw.writeSections()
	iw.writeSymtab()
	iw.writeShdrs()
	iw.writeEhdr()

	_, err := w.Write(iw.buf)
	return err
}

// assignShndx numbers the output section header table: null entry, content
// sections in file order, then the three synthetic table sections.
func (iw *imageWriter) assignShndx() {
	for i, ref := range iw.s.layout {
		iw.s.OutSec(ref).Shndx = i + 1
	}
	iw.symtabShndx = len(iw.s.layout) + 1
	iw.strtabShndx = len(iw.s.layout) + 2
	iw.shstrtabShndx = len(iw.s.layout) + 3
	iw.shnum = len(iw.s.layout) + 4
}

func (iw *imageWriter) addString(tab *[]byte, str string) uint32 {
	if str == "" {
		return 0
	}
	off := uint32(len(*tab))
	*tab = append(*tab, str...)
	*tab = append(*tab, 0)
	return off
}

// outShndx maps a resolved symbol onto its output section index.
func (iw *imageWriter) outShndx(sym *Symbol, esym *elf.Sym) uint16 {
	switch {
	case esym.IsAbs():
		return elf.SHN_ABS
	case sym.Atom != 0:
		return uint16(iw.s.OutSec(iw.s.Atom(sym.Atom).OutSec).Shndx)
	}
	return elf.SHN_UNDEF
}

// buildSymtab collects every object's local symbols in object order, then
// all canonical globals. The first-global index lands in the section's info
// field.
func (iw *imageWriter) buildSymtab() {
	s := iw.s
	iw.strtab = []byte{0}
	iw.symtab = []elf.Sym{{}}

	for _, o := range s.Objs {
		for i := 1; i < len(o.Locals); i++ {
			sym := &o.Locals[i]
			out := o.Syms[i]
			out.Name = iw.addString(&iw.strtab, s.NameOf(sym.Name))
			out.Val = sym.Value
			out.Shndx = iw.outShndx(sym, &o.Syms[i])
			iw.symtab = append(iw.symtab, out)
		}
	}
	iw.firstGlobal = len(iw.symtab)

	for ref := SymRef(1); int(ref) < len(s.globals); ref++ {
		sym := s.Global(ref)
		out := elf.Sym{
			Info: elf.SymInfo(elf.STB_GLOBAL, elf.STT_NOTYPE),
		}
		if sym.ObjID >= 0 && sym.SymIdx >= 0 {
			out = s.Objs[sym.ObjID].Syms[sym.SymIdx]
		}
		if sym.Weak {
			out.Info = elf.SymInfo(elf.STB_WEAK, out.Type())
		}
		out.Name = iw.addString(&iw.strtab, s.NameOf(sym.Name))
		out.Val = sym.Value
		if sym.Defined() {
			out.Shndx = iw.outShndx(sym, &out)
		} else {
			out.Shndx = elf.SHN_UNDEF
		}
		iw.symtab = append(iw.symtab, out)
	}
}

func (iw *imageWriter) buildShstrtab() {
	s := iw.s
	iw.shstrtab = []byte{0}
	iw.secNameOff = make([]uint32, len(s.layout))
	for i, ref := range s.layout {
		iw.secNameOff[i] = iw.addString(&iw.shstrtab, s.NameOf(s.OutSec(ref).Name))
	}
	iw.symtabName = iw.addString(&iw.shstrtab, ".symtab")
	iw.strtabName = iw.addString(&iw.shstrtab, ".strtab")
	iw.shstrtabName = iw.addString(&iw.shstrtab, ".shstrtab")
}

// placeTails assigns file offsets to the symbol table, the two string
// tables and the section header table, after the last content byte.
func (iw *imageWriter) placeTails() {
	iw.symtabOff = util.AlignTo(iw.s.dataEnd, 8)
	iw.strtabOff = iw.symtabOff + uint64(len(iw.symtab))*elf.SymSize
	iw.shstrtabOff = iw.strtabOff + uint64(len(iw.strtab))
	iw.shdrOff = util.AlignTo(iw.shstrtabOff+uint64(len(iw.shstrtab)), 8)
}

func (iw *imageWriter) writePhdrs() {
	off := uint64(elf.EhdrSize)
	for _, seg := range iw.s.Segments {
		elf.Write(iw.buf[off:], elf.Phdr{
			Type:     seg.Type,
			Flags:    seg.Flags,
			Offset:   seg.Offset,
			VAddr:    seg.VAddr,
			PAddr:    seg.VAddr,
			FileSize: seg.FileSize,
			MemSize:  seg.MemSize,
			Align:    seg.Align,
		})
		off += elf.PhdrSize
	}
}

func (iw *imageWriter) writeSections() {
	s := iw.s
	for _, ref := range s.layout {
		osec := s.OutSec(ref)
		if osec.Type == elf.SHT_NOBITS {
			continue
		}
		for aref := osec.Head; aref != 0; aref = s.Atom(aref).Next {
			atom := s.Atom(aref)
			if content := atom.Bytes(s); content != nil {
				copy(iw.buf[osec.Offset+atom.Offset:], content)
			}
		}
	}
}

func (iw *imageWriter) writeSymtab() {
	off := iw.symtabOff
	for _, sym := range iw.symtab {
		elf.Write(iw.buf[off:], sym)
		off += elf.SymSize
	}
	copy(iw.buf[iw.strtabOff:], iw.strtab)
	copy(iw.buf[iw.shstrtabOff:], iw.shstrtab)
}

func (iw *imageWriter) writeShdrs() {
	s := iw.s
	off := iw.shdrOff
	put := func(shdr elf.Shdr) {
		elf.Write(iw.buf[off:], shdr)
		off += elf.ShdrSize
	}

	put(elf.Shdr{})
	for i, ref := range s.layout {
		osec := s.OutSec(ref)
		put(elf.Shdr{
			Name:      iw.secNameOff[i],
			Type:      osec.Type,
			Flags:     osec.Flags,
			Addr:      osec.Addr,
			Offset:    osec.Offset,
			Size:      osec.Size,
			Info:      osec.Info,
			AddrAlign: uint64(1) << osec.P2Align,
			EntSize:   osec.EntSize,
		})
	}
	put(elf.Shdr{
		Name:      iw.symtabName,
		Type:      elf.SHT_SYMTAB,
		Offset:    iw.symtabOff,
		Size:      uint64(len(iw.symtab)) * elf.SymSize,
		Link:      uint32(iw.strtabShndx),
		Info:      uint32(iw.firstGlobal),
		AddrAlign: 8,
		EntSize:   elf.SymSize,
	})
	put(elf.Shdr{
		Name:      iw.strtabName,
		Type:      elf.SHT_STRTAB,
		Offset:    iw.strtabOff,
		Size:      uint64(len(iw.strtab)),
		AddrAlign: 1,
	})
	put(elf.Shdr{
		Name:      iw.shstrtabName,
		Type:      elf.SHT_STRTAB,
		Offset:    iw.shstrtabOff,
		Size:      uint64(len(iw.shstrtab)),
		AddrAlign: 1,
	})
}

// entryAddress resolves the configured entry symbol; a link without it
// falls back to the start of the text section.
func (iw *imageWriter) entryAddress() uint64 {
	s := iw.s
	if ref := s.LookupGlobal(s.Opts.Entry); ref != 0 {
		if sym := s.Global(ref); sym.Defined() {
			return sym.Value
		}
	}
	if s.TextSec != 0 {
		s.warnf("entry symbol %q not found, defaulting to start of .text", s.Opts.Entry)
		return s.OutSec(s.TextSec).Addr
	}
	s.warnf("entry symbol %q not found, no .text section, entry is 0", s.Opts.Entry)
	return 0
}

func (iw *imageWriter) writeEhdr() {
	ehdr := elf.Ehdr{
		Type:      elf.ET_EXEC,
		Machine:   elf.EM_X86_64,
		Version:   uint32(elf.EV_CURRENT),
		Entry:     iw.entryAddress(),
		PhOff:     elf.EhdrSize,
		ShOff:     iw.shdrOff,
		EhSize:    elf.EhdrSize,
		PhEntSize: elf.PhdrSize,
		PhNum:     uint16(len(iw.s.Segments)),
		ShEntSize: elf.ShdrSize,
		ShNum:     uint16(iw.shnum),
		ShStrndx:  uint16(iw.shstrtabShndx),
	}
	elf.WriteMagic(ehdr.Ident[:])
	ehdr.Ident[elf.EI_CLASS] = elf.ELFCLASS64
	ehdr.Ident[elf.EI_DATA] = elf.ELFDATA2LSB
	ehdr.Ident[elf.EI_VERSION] = elf.EV_CURRENT
	elf.Write(iw.buf, ehdr)
}
