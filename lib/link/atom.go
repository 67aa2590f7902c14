package link

import "math"

// NoRelSec marks an atom with no attached relocation section.
const NoRelSec = math.MaxUint32

// Atom is the unit of allocatable content: one per retained input section.
// Its object and input section never change after creation; Addr, OutSec and
// Offset are each written once by their owning pass.
type Atom struct {
	// Addr is the final virtual address, 0 until allocation.
	Addr uint64

	Name  Name
	ObjID int32

	Size    uint64
	P2Align uint8

	// Shndx is the input section index inside the owning object.
	Shndx uint32

	// RelSec is the input index of the relocation section targeting this
	// atom, NoRelSec if none.
	RelSec uint32

	OutSec SecRef

	// Offset is the byte offset relative to the output section base,
	// assigned during layout.
	Offset uint64

	// Self is the atom's stable arena handle.
	Self AtomRef

	// Prev/Next chain the atoms of one output section in layout order.
	Prev, Next AtomRef

	// fixed holds the privately relocated copy of the section bytes. Nil
	// until the relocation pass runs; the shared input buffer is never
	// mutated.
	fixed []byte
}

// Bytes returns the atom's content: the relocated copy when one exists,
// otherwise the raw input section bytes. Zero-fill atoms have no bytes.
func (a *Atom) Bytes(s *Session) []byte {
	if a.fixed != nil {
		return a.fixed
	}
	return s.Objs[a.ObjID].sectionBytes(a.Shndx)
}
