package link

import "github.com/sldlab/sld/lib/elf"

// rankOf orders one input symbol occurrence by definition strength.
func rankOf(esym *elf.Sym) uint8 {
	if esym.IsUndef() {
		return rankNone
	}
	switch esym.Bind() {
	case elf.STB_GLOBAL:
		return rankStrong
	case elf.STB_WEAK:
		return rankWeak
	}
	return rankNone
}

// ResolveSymbols picks one canonical definition per global name across all
// objects in link order. A strictly stronger occurrence overwrites the
// record in place; ties keep the first seen. Afterwards it runs the
// duplicate-strong-definition and unresolved-strong-reference checks.
func ResolveSymbols(s *Session) error {
	for _, o := range s.Objs {
		for gi, ref := range o.Globals {
			i := o.FirstGlobal + gi
			esym := &o.Syms[i]
			if esym.IsUndef() {
				// Contributes no definition.
				continue
			}
			sym := s.Global(ref)
			rank := rankOf(esym)
			if rank >= sym.Rank {
				continue
			}
			sym.ObjID = o.ID
			sym.SymIdx = int32(i)
			sym.Value = esym.Val
			sym.Weak = esym.IsWeak()
			sym.Rank = rank
			sym.Atom = 0
			if !esym.IsAbs() {
				shndx, err := o.shndx(esym, i)
				if err != nil {
					return err
				}
				sym.Atom = o.Atoms[shndx]
			}
		}
	}

	for _, o := range s.Objs {
		for gi, ref := range o.Globals {
			i := o.FirstGlobal + gi
			if rankOf(&o.Syms[i]) != rankStrong {
				continue
			}
			sym := s.Global(ref)
			if sym.Rank == rankStrong && sym.ObjID != o.ID {
				return &MultipleDefinitionError{
					Symbol:  s.NameOf(sym.Name),
					Object1: s.Objs[sym.ObjID].Origin,
					Object2: o.Origin,
				}
			}
		}
	}

	for ref := SymRef(1); int(ref) < len(s.globals); ref++ {
		sym := s.Global(ref)
		if sym.Defined() || sym.Weak {
			continue
		}
		return &UndefinedReferenceError{
			Symbol: s.NameOf(sym.Name),
			Origin: s.Objs[sym.firstRef].Origin,
		}
	}
	return nil
}
