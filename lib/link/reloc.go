package link

import (
	"encoding/binary"

	"github.com/sldlab/sld/lib/elf"
)

// RelocKind is the closed set of relocation semantics the fixup engine
// implements. Numeric type tags from input files are mapped onto it once,
// so every handler site is an exhaustive match.
type RelocKind uint8

const (
	// RelocNone changes no bytes.
	RelocNone RelocKind = iota
	// RelocAbs64 stores the 8-byte absolute value symbol+addend.
	RelocAbs64
	// RelocAbs32 stores symbol+addend truncated to its low 32 bits.
	RelocAbs32
	// RelocUnsupported is the fallback for every type without a handler;
	// the bytes are left untouched and a diagnostic is raised.
	RelocUnsupported
)

func relocKind(typ uint32) RelocKind {
	switch typ {
	case elf.R_X86_64_NONE:
		return RelocNone
	case elf.R_X86_64_64:
		return RelocAbs64
	case elf.R_X86_64_32:
		return RelocAbs32
	}
	return RelocUnsupported
}

// ApplyRelocations rewrites every atom that has an attached relocation
// section, using the symbols' final addresses. Each atom is patched on a
// private copy; the shared input buffers stay untouched.
func ApplyRelocations(s *Session) error {
	for _, o := range s.Objs {
		for _, ref := range o.Atoms {
			if ref == 0 {
				continue
			}
			atom := s.Atom(ref)
			if atom.RelSec == NoRelSec {
				continue
			}
			if err := o.relocateAtom(s, atom); err != nil {
				return err
			}
		}
	}
	return nil
}

func (o *Object) relocateAtom(s *Session, atom *Atom) error {
	rels, err := elf.ReadSlice[elf.Rela](o.sectionBytes(atom.RelSec), elf.RelaSize)
	if err != nil {
		return o.malformed("relocation", "%v", err)
	}
	raw := o.sectionBytes(atom.Shndx)
	if len(rels) == 0 || raw == nil {
		return nil
	}

	buf := make([]byte, len(raw))
	copy(buf, raw)

	for i := range rels {
		rel := &rels[i]
		sym, err := o.symbol(s, rel.Sym)
		if err != nil {
			return err
		}

		switch relocKind(rel.Type) {
		case RelocNone:

		case RelocAbs64:
			if rel.Offset+8 > uint64(len(buf)) || rel.Offset+8 < rel.Offset {
				return o.malformed("relocation", "offset %#x out of range in %s",
					rel.Offset, s.NameOf(atom.Name))
			}
			binary.LittleEndian.PutUint64(buf[rel.Offset:], sym.Value+uint64(rel.Addend))

		case RelocAbs32:
			if rel.Offset+4 > uint64(len(buf)) || rel.Offset+4 < rel.Offset {
				return o.malformed("relocation", "offset %#x out of range in %s",
					rel.Offset, s.NameOf(atom.Name))
			}
			binary.LittleEndian.PutUint32(buf[rel.Offset:], uint32(sym.Value+uint64(rel.Addend)))

		case RelocUnsupported:
			unsup := &UnsupportedRelocationError{
				Type:   rel.Type,
				Atom:   s.NameOf(atom.Name),
				Origin: o.Origin,
				Offset: rel.Offset,
				Symbol: s.NameOf(sym.Name),
			}
			if s.Opts.StrictRelocs {
				return unsup
			}
			s.Diags.Report(SevWarning, unsup.Error())
		}
	}

	atom.fixed = buf
	return nil
}
