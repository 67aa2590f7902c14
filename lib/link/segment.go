package link

import (
	"github.com/sldlab/sld/lib/elf"
	"golang.org/x/exp/slices"
)

// PageSize is the target's page size; loadable segments are mapped at this
// granularity.
const PageSize = 4096

// ImageBase is the virtual address the image is linked at.
const ImageBase uint64 = 0x200000

// Segment is one program header entry: a contiguous, permission-homogeneous
// region derived from the output sections it spans.
type Segment struct {
	Type     uint32
	Flags    uint32
	Offset   uint64
	VAddr    uint64
	FileSize uint64
	MemSize  uint64
	Align    uint64
}

// OrderSections fixes the output order: allocated sections grouped by
// permission class (read-only, then read+execute, then read+write, zero-fill
// trailing its class), unallocated sections last. Within a bucket, creation
// order is preserved.
func OrderSections(s *Session) {
	s.layout = make([]SecRef, 0, s.NumOutSecs())
	for ref := SecRef(1); int(ref) < len(s.outsecs); ref++ {
		s.layout = append(s.layout, ref)
	}
	rank := func(ref SecRef) int {
		osec := s.OutSec(ref)
		if !osec.IsAlloc() {
			// No virtual address needed; keep them out of every segment.
			return 1 << 10
		}
		return osec.permClass()
	}
	slices.SortStableFunc(s.layout, func(a, b SecRef) int {
		return rank(a) - rank(b)
	})
}

// loadGroups splits the ordered allocated sections into maximal contiguous
// runs sharing one permission triple. Each run becomes one loadable segment.
func (s *Session) loadGroups() [][]SecRef {
	var groups [][]SecRef
	for _, ref := range s.layout {
		osec := s.OutSec(ref)
		if !osec.IsAlloc() {
			break
		}
		flags := osec.phdrFlags()
		if n := len(groups); n > 0 &&
			s.OutSec(groups[n-1][0]).phdrFlags() == flags {
			groups[n-1] = append(groups[n-1], ref)
			continue
		}
		groups = append(groups, []SecRef{ref})
	}
	return groups
}

// numProgHeaders is the final program header count: PT_PHDR plus one
// PT_LOAD per permission run, plus the leading read-only load that carries
// the ELF header and program header table when no read-only run exists to
// absorb them.
func (s *Session) numProgHeaders() int {
	groups := s.loadGroups()
	n := 1 + len(groups)
	if len(groups) == 0 || s.OutSec(groups[0][0]).phdrFlags() != elf.PF_R {
		n++
	}
	return n
}

// headerSize is the byte length of the ELF header plus the program header
// table, the content every link-time offset is laid out after.
func (s *Session) headerSize() uint64 {
	return elf.EhdrSize + uint64(s.numProgHeaders())*elf.PhdrSize
}

// BuildSegments derives the program header table from the final section
// addresses. The segment at file offset 0 is always read-only and covers
// the ELF header and program header table.
func BuildSegments(s *Session) {
	phnum := uint64(s.numProgHeaders())
	s.Segments = append(s.Segments[:0], Segment{
		Type:     elf.PT_PHDR,
		Flags:    elf.PF_R,
		Offset:   elf.EhdrSize,
		VAddr:    ImageBase + elf.EhdrSize,
		FileSize: phnum * elf.PhdrSize,
		MemSize:  phnum * elf.PhdrSize,
		Align:    8,
	})

	groups := s.loadGroups()

	first := Segment{
		Type:     elf.PT_LOAD,
		Flags:    elf.PF_R,
		Offset:   0,
		VAddr:    ImageBase,
		FileSize: s.headerSize(),
		MemSize:  s.headerSize(),
		Align:    PageSize,
	}
	if len(groups) > 0 && s.OutSec(groups[0][0]).phdrFlags() == elf.PF_R {
		first.FileSize, first.MemSize = s.groupExtent(groups[0], ImageBase)
		groups = groups[1:]
	}
	s.Segments = append(s.Segments, first)

	for _, group := range groups {
		head := s.OutSec(group[0])
		fileSize, memSize := s.groupExtent(group, head.Addr)
		s.Segments = append(s.Segments, Segment{
			Type:     elf.PT_LOAD,
			Flags:    head.phdrFlags(),
			Offset:   head.Offset,
			VAddr:    head.Addr,
			FileSize: fileSize,
			MemSize:  memSize,
			Align:    PageSize,
		})
	}
}

// groupExtent measures a permission run from base: file size stops at the
// last byte-carrying section, memory size covers trailing zero-fill too.
func (s *Session) groupExtent(group []SecRef, base uint64) (fileSize, memSize uint64) {
	for _, ref := range group {
		osec := s.OutSec(ref)
		memSize = osec.Addr + osec.Size - base
		if osec.Type != elf.SHT_NOBITS {
			fileSize = memSize
		}
	}
	return fileSize, memSize
}
