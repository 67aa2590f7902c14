// Package link implements the core of the static linker: parsing
// relocatable objects into an atom graph, resolving global symbols,
// laying out output sections and segments, applying relocations and
// writing the final executable image.
package link

import "io"

// Input is one relocatable object handed to the linker, already read into
// memory. Name identifies it in diagnostics only.
type Input struct {
	Name string
	Data []byte
}

// Link runs the whole pipeline over the inputs, in order, and writes the
// executable image to out. The session carries all intermediate state and
// can be inspected afterwards.
func Link(s *Session, inputs []Input, out io.Writer) (err error) {
	for _, in := range inputs {
		if _, err = LoadObject(s, in.Name, in.Data); err != nil {
			return err
		}
	}
	ClassifyAtoms(s)
	for _, o := range s.Objs {
		if err = o.initSymbols(s); err != nil {
			return err
		}
	}
	if err = ResolveSymbols(s); err != nil {
		return err
	}
	ComputeSectionSizes(s)
	OrderSections(s)
	AssignAddresses(s)
	BuildSegments(s)
	if err = ApplyRelocations(s); err != nil {
		return err
	}
	return WriteImage(s, out)
}
