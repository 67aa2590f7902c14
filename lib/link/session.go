package link

// Name is a handle into the session's interned string pool. Handle 0 is the
// empty string.
type Name int32

// AtomRef is a handle into the session's atom arena. Handle 0 is reserved
// and never refers to a real atom.
type AtomRef int32

// SymRef is a handle into the session's global symbol table. Handle 0 is
// reserved.
type SymRef int32

// SecRef is a handle into the session's output section list. Handle 0 is
// reserved.
type SecRef int32

// Options carries the link-wide knobs the caller controls.
type Options struct {
	// Entry is the symbol name execution starts at.
	Entry string
	// StrictRelocs promotes unsupported relocation types from warnings to
	// hard errors.
	StrictRelocs bool
}

// Session is the state shared by every link pass: the object list, the atom
// arena, the global symbol table, the output sections and the derived
// segments. It is created once per link and passed explicitly; no pass keeps
// ambient state of its own.
type Session struct {
	Opts  Options
	Diags DiagSink

	Objs []*Object

	atoms   []Atom
	globals []Symbol
	symIdx  map[string]SymRef
	outsecs []OutputSection
	secIdx  map[string]SecRef

	names   []string
	nameIdx map[string]Name

	// TextSec is the output section literally named ".text", recorded when
	// the first atom lands in it. It anchors entry-point resolution.
	TextSec SecRef

	Segments []Segment

	// layout is the output sections in their final file order: allocated
	// sections grouped by permission class, unallocated sections last.
	layout []SecRef

	// dataEnd is the file offset one past the last placed section byte.
	dataEnd uint64
}

func NewSession(opts Options, diags DiagSink) *Session {
	if diags == nil {
		diags = NewStderrSink()
	}
	s := &Session{
		Opts:    opts,
		Diags:   diags,
		symIdx:  make(map[string]SymRef),
		secIdx:  make(map[string]SecRef),
		nameIdx: make(map[string]Name),
	}
	// Slot 0 of every arena is the null sentinel.
	s.atoms = append(s.atoms, Atom{})
	s.globals = append(s.globals, Symbol{ObjID: -1})
	s.outsecs = append(s.outsecs, OutputSection{})
	s.names = append(s.names, "")
	s.nameIdx[""] = 0
	return s
}

func (s *Session) Intern(str string) Name {
	if n, ok := s.nameIdx[str]; ok {
		return n
	}
	n := Name(len(s.names))
	s.names = append(s.names, str)
	s.nameIdx[str] = n
	return n
}

func (s *Session) NameOf(n Name) string {
	return s.names[n]
}

func (s *Session) Atom(ref AtomRef) *Atom {
	return &s.atoms[ref]
}

func (s *Session) newAtom(atom Atom) AtomRef {
	ref := AtomRef(len(s.atoms))
	atom.Self = ref
	s.atoms = append(s.atoms, atom)
	return ref
}

// NumAtoms reports the number of real atoms in the arena.
func (s *Session) NumAtoms() int {
	return len(s.atoms) - 1
}

func (s *Session) Global(ref SymRef) *Symbol {
	return &s.globals[ref]
}

// globalByName returns the canonical symbol handle for name, creating an
// empty record on first sight. At most one record ever exists per name.
func (s *Session) globalByName(name string) (ref SymRef, created bool) {
	if ref, ok := s.symIdx[name]; ok {
		return ref, false
	}
	ref = SymRef(len(s.globals))
	s.globals = append(s.globals, Symbol{
		Name:   s.Intern(name),
		ObjID:  -1,
		SymIdx: -1,
		Rank:   rankNone,
	})
	s.symIdx[name] = ref
	return ref, true
}

// LookupGlobal returns the handle for name, or 0 if no object ever
// referenced it.
func (s *Session) LookupGlobal(name string) SymRef {
	return s.symIdx[name]
}

func (s *Session) OutSec(ref SecRef) *OutputSection {
	return &s.outsecs[ref]
}

// NumOutSecs reports the number of real output sections.
func (s *Session) NumOutSecs() int {
	return len(s.outsecs) - 1
}
