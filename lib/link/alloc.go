package link

import (
	"github.com/sldlab/sld/lib/elf"
	"github.com/sldlab/sld/lib/util"
)

// AssignAddresses turns the frozen section layout into absolute virtual
// addresses and file offsets, then propagates them to every atom and
// symbol. Allocated sections keep file offset congruent to virtual address
// modulo the page size; each permission run starts on a fresh page except
// the first read-only run, which shares the page with the ELF header and
// program header table.
func AssignAddresses(s *Session) {
	addr := ImageBase + s.headerSize()
	off := s.headerSize()

	groups := s.loadGroups()
	for gi, group := range groups {
		newPage := gi > 0 || s.OutSec(group[0]).phdrFlags() != elf.PF_R
		if newPage {
			addr = util.AlignTo(addr, PageSize)
		}
		for _, ref := range group {
			osec := s.OutSec(ref)
			addr = util.AlignTo(addr, uint64(1)<<osec.P2Align)
			osec.Addr = addr
			if osec.Type == elf.SHT_NOBITS {
				// Zero-fill content occupies memory but no file bytes. The
				// offset still mirrors the address so a load segment headed
				// by zero-fill keeps p_offset congruent to p_vaddr modulo
				// the page size; the byte cursor stays where it is.
				osec.Offset = addr - ImageBase
			} else {
				off = addr - ImageBase
				osec.Offset = off
				off += osec.Size
			}
			addr += osec.Size
		}
	}

	// Unallocated sections pack after the last mapped byte, at their own
	// declared alignment.
	for _, ref := range s.layout {
		osec := s.OutSec(ref)
		if osec.IsAlloc() {
			continue
		}
		align := uint64(1) << osec.P2Align
		off = util.AlignTo(off, align)
		osec.Offset = off
		if osec.Type != elf.SHT_NOBITS {
			off += osec.Size
		}
	}
	s.dataEnd = off

	for ref := AtomRef(1); int(ref) < len(s.atoms); ref++ {
		atom := s.Atom(ref)
		atom.Addr = s.OutSec(atom.OutSec).Addr + atom.Offset
	}

	// A symbol owning an atom resolves to the atom's address plus its
	// recorded intra-atom offset; absolute and undefined values are final
	// already.
	for _, o := range s.Objs {
		for i := range o.Locals {
			sym := &o.Locals[i]
			if sym.Atom != 0 {
				sym.Value += s.Atom(sym.Atom).Addr
			}
		}
	}
	for ref := SymRef(1); int(ref) < len(s.globals); ref++ {
		sym := s.Global(ref)
		if sym.Atom != 0 {
			sym.Value += s.Atom(sym.Atom).Addr
		}
	}
}
