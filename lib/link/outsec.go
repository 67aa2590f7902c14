package link

import (
	"strings"

	"github.com/sldlab/sld/lib/elf"
)

// OutputSection is one named chunk of the output image. Created on first
// reference by the classifier, reused by name afterwards.
type OutputSection struct {
	Name  Name
	Type  uint32
	Flags uint64

	Addr   uint64
	Offset uint64
	// Size grows monotonically during layout and is frozen before
	// address allocation.
	Size    uint64
	P2Align uint8

	// EntSize and Info are carried through for pass-through sections only.
	EntSize uint64
	Info    uint32

	Head, Tail AtomRef

	// Shndx is the section's index in the output header table, assigned by
	// the writer.
	Shndx int
}

func (osec *OutputSection) IsAlloc() bool {
	return osec.Flags&elf.SHF_ALLOC != 0
}

// permClass buckets an allocated section by access permissions: read-only
// first, then read+execute, then read+write. Zero-fill sections sort after
// progbits within their class so they can trail their segment.
func (osec *OutputSection) permClass() int {
	class := 0
	switch {
	case osec.Flags&elf.SHF_EXECINSTR != 0:
		class = 1
	case osec.Flags&elf.SHF_WRITE != 0:
		class = 2
	}
	class *= 2
	if osec.Type == elf.SHT_NOBITS {
		class++
	}
	return class
}

func (osec *OutputSection) phdrFlags() uint32 {
	flags := elf.PF_R
	if osec.Flags&elf.SHF_WRITE != 0 {
		flags |= elf.PF_W
	}
	if osec.Flags&elf.SHF_EXECINSTR != 0 {
		flags |= elf.PF_X
	}
	return flags
}

// classifySection maps an input section onto its canonical output section
// name, type and flags. passthrough marks sections the policy table has no
// rule for; those keep their entry size and info field in the output.
func classifySection(name string, shdr *elf.Shdr) (outName string, typ uint32, flags uint64, passthrough bool) {
	alloc := shdr.Flags&elf.SHF_ALLOC != 0
	write := shdr.Flags&elf.SHF_WRITE != 0
	exec := shdr.Flags&elf.SHF_EXECINSTR != 0

	switch {
	case shdr.Type == elf.SHT_NOBITS:
		return ".bss", elf.SHT_NOBITS, elf.SHF_ALLOC | elf.SHF_WRITE, false

	case shdr.Type == elf.SHT_INIT_ARRAY:
		return ".init_array", elf.SHT_INIT_ARRAY, elf.SHF_ALLOC | elf.SHF_WRITE, false

	case shdr.Type == elf.SHT_FINI_ARRAY:
		return ".fini_array", elf.SHT_FINI_ARRAY, elf.SHF_ALLOC | elf.SHF_WRITE, false

	case shdr.Type == elf.SHT_PROGBITS && !alloc:
		// Debug and info sections pass through untouched.
		return name, shdr.Type, shdr.Flags, true

	case shdr.Type == elf.SHT_PROGBITS && exec:
		outName = ".text"
		if name == ".init" || name == ".fini" {
			outName = name
		}
		flags = elf.SHF_ALLOC | elf.SHF_EXECINSTR
		if write {
			flags |= elf.SHF_WRITE
		}
		return outName, elf.SHT_PROGBITS, flags, false

	case shdr.Type == elf.SHT_PROGBITS && write:
		outName = ".data"
		if strings.HasPrefix(name, ".data.rel.ro") {
			outName = ".data.rel.ro"
		}
		return outName, elf.SHT_PROGBITS, elf.SHF_ALLOC | elf.SHF_WRITE, false

	case shdr.Type == elf.SHT_PROGBITS:
		return ".rodata", elf.SHT_PROGBITS, elf.SHF_ALLOC, false
	}

	// Anything else passes through verbatim.
	return name, shdr.Type, shdr.Flags, true
}

// getOutputSection looks a section up by name, creating it with the
// computed type and flags on first reference.
func (s *Session) getOutputSection(name string, typ uint32, flags uint64) SecRef {
	if ref, ok := s.secIdx[name]; ok {
		return ref
	}
	ref := SecRef(len(s.outsecs))
	s.outsecs = append(s.outsecs, OutputSection{
		Name:  s.Intern(name),
		Type:  typ,
		Flags: flags,
	})
	s.secIdx[name] = ref
	return ref
}

// ClassifyAtoms assigns every atom its output section. The first atom that
// lands in a section literally named ".text" designates the link's text
// section.
func ClassifyAtoms(s *Session) {
	for _, o := range s.Objs {
		for _, ref := range o.Atoms {
			if ref == 0 {
				continue
			}
			atom := s.Atom(ref)
			shdr := &o.Shdrs[atom.Shndx]
			name, typ, flags, passthrough := classifySection(o.sectionName(shdr), shdr)
			sec := s.getOutputSection(name, typ, flags)
			if passthrough {
				osec := s.OutSec(sec)
				if osec.EntSize == 0 {
					osec.EntSize = shdr.EntSize
				}
				if osec.Info == 0 {
					osec.Info = shdr.Info
				}
			}
			atom.OutSec = sec
			if s.TextSec == 0 && name == ".text" {
				s.TextSec = sec
			}
		}
	}
}
