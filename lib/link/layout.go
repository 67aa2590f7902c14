package link

import "github.com/sldlab/sld/lib/util"

// ComputeSectionSizes packs every atom into its output section: a first-fit
// bump allocator walking atoms in object-then-input-section order, with no
// reordering and no hole reuse. Each atom lands at the section's running
// size rounded up to the atom's alignment; the section's alignment is the
// maximum seen.
func ComputeSectionSizes(s *Session) {
	for _, o := range s.Objs {
		for _, ref := range o.Atoms {
			if ref == 0 {
				continue
			}
			atom := s.Atom(ref)
			osec := s.OutSec(atom.OutSec)

			if osec.Tail == 0 {
				osec.Head = ref
			} else {
				s.Atom(osec.Tail).Next = ref
				atom.Prev = osec.Tail
			}
			osec.Tail = ref

			offset := util.AlignTo(osec.Size, uint64(1)<<atom.P2Align)
			atom.Offset = offset
			osec.Size = offset + atom.Size
			if atom.P2Align > osec.P2Align {
				osec.P2Align = atom.P2Align
			}
		}
	}
}
