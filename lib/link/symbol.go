package link

// Symbol precedence ranks, lower wins. Defined strong beats defined weak;
// anything else (undefined, or a non-standard binding) never provides a
// definition on its own.
const (
	rankStrong uint8 = 0
	rankWeak   uint8 = 1
	rankNone   uint8 = 15
)

// Symbol is the linker's view of one symbol. Local symbols are private to
// their object; global symbols live in the session table, exactly one record
// per name, overwritten in place as stronger definitions are found.
type Symbol struct {
	// Value is the resolved address after allocation. Before that it holds
	// the raw input value: the offset inside the owning atom, or the
	// absolute value for SHN_ABS symbols.
	Value uint64

	Name Name

	// Atom is the owning atom, 0 for absolute and undefined symbols.
	Atom AtomRef

	// ObjID is the owning object, -1 when no object contributed data yet.
	ObjID int32

	// SymIdx is the symbol's index in the owning object's input symbol
	// table, -1 if none.
	SymIdx int32

	Weak bool

	// Rank is the precedence of the currently recorded definition.
	Rank uint8

	// firstRef is the object that first referenced the symbol; it names the
	// culprit in undefined-reference diagnostics.
	firstRef int32
}

// Defined reports whether some object contributed an actual definition.
func (sym *Symbol) Defined() bool {
	return sym.Rank != rankNone
}
