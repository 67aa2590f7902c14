package link

import (
	"fmt"
	"strings"

	"github.com/sldlab/sld/lib/elf"
	"github.com/sldlab/sld/lib/util"
)

// Object is one relocatable input: its raw bytes plus everything derived
// from them. The raw buffer is immutable and owned for the whole link.
type Object struct {
	// ID is the object's position in link order.
	ID     int32
	Origin string
	Data   []byte

	Ehdr  elf.Ehdr
	Shdrs []elf.Shdr

	Syms        []elf.Sym
	FirstGlobal int
	Strtab      []byte
	ShStrtab    []byte
	shndxTab    []uint32

	Locals []Symbol
	// Globals holds one handle into the session symbol table per global
	// input symbol, in input order.
	Globals []SymRef
	// Atoms has one slot per input section; 0 means the section was not
	// retained.
	Atoms []AtomRef
}

// LoadObject decodes and validates one input buffer, creates its atoms and
// registers the object with the session. Symbol construction is a separate
// pass because local section symbols borrow their names from classified
// output sections.
func LoadObject(s *Session, origin string, data []byte) (o *Object, err error) {
	o = &Object{
		ID:     int32(len(s.Objs)),
		Origin: origin,
		Data:   data,
	}
	if err = o.parse(); err != nil {
		return nil, err
	}
	o.initAtoms(s)
	s.Objs = append(s.Objs, o)
	return o, nil
}

func (o *Object) malformed(field, format string, args ...any) error {
	return &MalformedInputError{
		Origin: o.Origin,
		Field:  field,
		Detail: fmt.Sprintf(format, args...),
	}
}

func (o *Object) parse() (err error) {
	if !elf.CheckMagic(o.Data) {
		return o.malformed("magic", "not an ELF file")
	}
	if o.Ehdr, err = elf.Read[elf.Ehdr](o.Data); err != nil {
		return o.malformed("header", "%v", err)
	}
	ehdr := &o.Ehdr
	if ehdr.Ident[elf.EI_CLASS] != elf.ELFCLASS64 {
		return o.malformed("class", "want ELFCLASS64, have %d", ehdr.Ident[elf.EI_CLASS])
	}
	if ehdr.Ident[elf.EI_DATA] != elf.ELFDATA2LSB {
		return o.malformed("endianness", "want little-endian, have %d", ehdr.Ident[elf.EI_DATA])
	}
	if ehdr.Ident[elf.EI_VERSION] != elf.EV_CURRENT {
		return o.malformed("version", "want %d, have %d", elf.EV_CURRENT, ehdr.Ident[elf.EI_VERSION])
	}
	if ehdr.Type != elf.ET_REL {
		return o.malformed("type", "not a relocatable object (type %d)", ehdr.Type)
	}
	if ehdr.Machine != elf.EM_X86_64 {
		return o.malformed("machine", "want x86-64 (%d), have %d", elf.EM_X86_64, ehdr.Machine)
	}

	if err = o.parseSections(); err != nil {
		return err
	}
	return o.parseSymtab()
}

// parseSections reads the section header table without trusting any
// header-declared count or offset until it is checked against the buffer.
func (o *Object) parseSections() (err error) {
	ehdr := &o.Ehdr
	if ehdr.ShOff == 0 {
		return nil
	}
	if ehdr.ShOff > uint64(len(o.Data)) {
		return o.malformed("shoff", "section header table at %#x beyond end of file", ehdr.ShOff)
	}

	num := uint64(ehdr.ShNum)
	if num == 0 {
		// Extended numbering: the real count lives in the first header.
		var first elf.Shdr
		if first, err = elf.Read[elf.Shdr](o.Data[ehdr.ShOff:]); err != nil {
			return o.malformed("shnum", "%v", err)
		}
		num = first.Size
	}
	end := ehdr.ShOff + num*elf.ShdrSize
	if end < ehdr.ShOff || end > uint64(len(o.Data)) {
		return o.malformed("shnum", "%d section headers do not fit in %d-byte file",
			num, len(o.Data))
	}
	if o.Shdrs, err = elf.ReadSlice[elf.Shdr](o.Data[ehdr.ShOff:end], elf.ShdrSize); err != nil {
		return o.malformed("shdrs", "%v", err)
	}

	for i := range o.Shdrs {
		shdr := &o.Shdrs[i]
		if shdr.Type == elf.SHT_NOBITS {
			continue
		}
		if shdr.Offset+shdr.Size < shdr.Offset ||
			shdr.Offset+shdr.Size > uint64(len(o.Data)) {
			return o.malformed("section", "section %d range [%#x,+%#x) out of bounds",
				i, shdr.Offset, shdr.Size)
		}
	}

	shstrndx := uint64(ehdr.ShStrndx)
	if ehdr.ShStrndx == elf.SHN_XINDEX && len(o.Shdrs) > 0 {
		shstrndx = uint64(o.Shdrs[0].Link)
	}
	if shstrndx >= uint64(len(o.Shdrs)) {
		return o.malformed("shstrndx", "index %d out of range", shstrndx)
	}
	o.ShStrtab = o.sectionBytes(uint32(shstrndx))
	return nil
}

func (o *Object) parseSymtab() (err error) {
	var symtab *elf.Shdr
	for i := range o.Shdrs {
		if o.Shdrs[i].Type == elf.SHT_SYMTAB {
			symtab = &o.Shdrs[i]
			break
		}
	}
	if symtab == nil {
		return nil
	}

	if o.Syms, err = elf.ReadSlice[elf.Sym](o.shdrBytes(symtab), elf.SymSize); err != nil {
		return o.malformed("symtab", "%v", err)
	}
	o.FirstGlobal = int(symtab.Info)
	if o.FirstGlobal > len(o.Syms) {
		return o.malformed("symtab", "first global %d beyond %d symbols",
			o.FirstGlobal, len(o.Syms))
	}
	if symtab.Link >= uint32(len(o.Shdrs)) {
		return o.malformed("symtab", "string table link %d out of range", symtab.Link)
	}
	o.Strtab = o.sectionBytes(symtab.Link)

	for i := range o.Shdrs {
		if o.Shdrs[i].Type != elf.SHT_SYMTAB_SHNDX {
			continue
		}
		if o.shndxTab, err = elf.ReadSlice[uint32](o.shdrBytes(&o.Shdrs[i]), 4); err != nil {
			return o.malformed("symtab_shndx", "%v", err)
		}
		break
	}
	return nil
}

// sectionBytes returns the raw bytes of an input section. Ranges were
// validated during parsing; zero-fill sections have no bytes.
func (o *Object) sectionBytes(shndx uint32) []byte {
	return o.shdrBytes(&o.Shdrs[shndx])
}

func (o *Object) shdrBytes(shdr *elf.Shdr) []byte {
	if shdr.Type == elf.SHT_NOBITS {
		return nil
	}
	return o.Data[shdr.Offset : shdr.Offset+shdr.Size]
}

func (o *Object) sectionName(shdr *elf.Shdr) string {
	return elf.GetName(o.ShStrtab, shdr.Name)
}

// retainSection is the atom skip predicate: bookkeeping sections and
// conventionally discarded content never become atoms.
func (o *Object) retainSection(shdr *elf.Shdr) bool {
	switch shdr.Type {
	case elf.SHT_NULL, elf.SHT_REL, elf.SHT_RELA, elf.SHT_SYMTAB,
		elf.SHT_STRTAB, elf.SHT_GROUP, elf.SHT_SYMTAB_SHNDX,
		elf.SHT_LLVM_ADDRSIG, elf.SHT_X86_64_UNWIND:
		return false
	}
	if shdr.Flags&elf.SHF_EXCLUDE != 0 && shdr.Flags&elf.SHF_ALLOC == 0 {
		return false
	}
	name := o.sectionName(shdr)
	if name == ".eh_frame" {
		return false
	}
	if strings.HasPrefix(name, ".note") || strings.HasPrefix(name, ".comment") {
		return false
	}
	return true
}

// initAtoms allocates one arena atom per retained section, then attaches
// each relocation section to the atom its sh_info targets. A relocation
// section whose target was not retained is dropped.
func (o *Object) initAtoms(s *Session) {
	o.Atoms = make([]AtomRef, len(o.Shdrs))
	for i := range o.Shdrs {
		shdr := &o.Shdrs[i]
		if !o.retainSection(shdr) {
			continue
		}
		o.Atoms[i] = s.newAtom(Atom{
			Name:    s.Intern(o.sectionName(shdr)),
			ObjID:   o.ID,
			Size:    shdr.Size,
			P2Align: util.ToP2Align(shdr.AddrAlign),
			Shndx:   uint32(i),
			RelSec:  NoRelSec,
		})
	}

	for i := range o.Shdrs {
		shdr := &o.Shdrs[i]
		if shdr.Type != elf.SHT_RELA {
			continue
		}
		if shdr.Info >= uint32(len(o.Atoms)) {
			continue
		}
		if target := o.Atoms[shdr.Info]; target != 0 {
			s.Atom(target).RelSec = uint32(i)
		}
	}
}

// shndx resolves a symbol's section index, following the extended-index
// table when st_shndx overflows.
func (o *Object) shndx(esym *elf.Sym, idx int) (uint32, error) {
	if esym.IsCommon() {
		// Tentative definitions have no backing section to allocate from.
		return 0, o.malformed("symbol", "symbol %d is an unallocated common", idx)
	}
	if esym.Shndx == elf.SHN_XINDEX {
		if idx >= len(o.shndxTab) {
			return 0, o.malformed("symbol", "symbol %d has no extended section index", idx)
		}
		return o.shndxTab[idx], nil
	}
	shndx := uint32(esym.Shndx)
	if shndx >= uint32(len(o.Shdrs)) {
		return 0, o.malformed("symbol", "symbol %d section index %d out of range", idx, shndx)
	}
	return shndx, nil
}

// initSymbols splits the input symbol table at the first-global index:
// below it, private local symbols; at or above it, handles into the shared
// global table. Runs after classification so section symbols can take their
// output section's name.
func (o *Object) initSymbols(s *Session) (err error) {
	if len(o.Syms) == 0 {
		return nil
	}

	o.Locals = make([]Symbol, o.FirstGlobal)
	if o.FirstGlobal > 0 {
		o.Locals[0].ObjID = o.ID
		o.Locals[0].SymIdx = 0
	}
	for i := 1; i < o.FirstGlobal; i++ {
		esym := &o.Syms[i]
		sym := &o.Locals[i]
		sym.ObjID = o.ID
		sym.SymIdx = int32(i)
		sym.Value = esym.Val
		sym.Rank = rankStrong

		if esym.IsDefined() && !esym.IsAbs() {
			var shndx uint32
			if shndx, err = o.shndx(esym, i); err != nil {
				return err
			}
			sym.Atom = o.Atoms[shndx]
		}

		name := elf.GetName(o.Strtab, esym.Name)
		if name == "" && esym.Type() == elf.STT_SECTION && sym.Atom != 0 {
			name = s.NameOf(s.OutSec(s.Atom(sym.Atom).OutSec).Name)
		}
		sym.Name = s.Intern(name)
	}

	o.Globals = make([]SymRef, 0, len(o.Syms)-o.FirstGlobal)
	for i := o.FirstGlobal; i < len(o.Syms); i++ {
		esym := &o.Syms[i]
		name := elf.GetName(o.Strtab, esym.Name)
		ref, created := s.globalByName(name)
		sym := s.Global(ref)
		if created {
			// First sight: provisional population, ranked by the resolver.
			sym.firstRef = o.ID
			sym.ObjID = o.ID
			sym.SymIdx = int32(i)
			sym.Value = esym.Val
			sym.Weak = esym.IsWeak()
			if esym.IsDefined() && !esym.IsAbs() {
				var shndx uint32
				if shndx, err = o.shndx(esym, i); err != nil {
					return err
				}
				sym.Atom = o.Atoms[shndx]
			}
		} else if esym.IsUndef() && !esym.IsWeak() && !sym.Defined() {
			// A strong reference demands a definition even if the first
			// sighting was weak.
			sym.Weak = false
		}
		o.Globals = append(o.Globals, ref)
	}
	return nil
}

// symbol returns the linker symbol for an input symbol table index,
// whichever side of the local/global split it lives on.
func (o *Object) symbol(s *Session, idx uint32) (*Symbol, error) {
	if int(idx) < o.FirstGlobal {
		if int(idx) >= len(o.Locals) {
			return nil, o.malformed("relocation", "symbol index %d out of range", idx)
		}
		return &o.Locals[idx], nil
	}
	gi := int(idx) - o.FirstGlobal
	if gi >= len(o.Globals) {
		return nil, o.malformed("relocation", "symbol index %d out of range", idx)
	}
	return s.Global(o.Globals[gi]), nil
}
