package elf

import (
	"encoding/binary"
	"fmt"
)

// Segment type (p_type).
type PType uint32

const (
	PT_NULL    PType = 0
	PT_LOAD    PType = 1
	PT_DYNAMIC PType = 2
	PT_INTERP  PType = 3
	PT_NOTE    PType = 4
	PT_SHLIB   PType = 5
	PT_PHDR    PType = 6
	PT_TLS     PType = 7
)

func (t PType) String() string {
	switch t {
	case PT_NULL:
		return "NULL"
	case PT_LOAD:
		return "LOAD"
	case PT_DYNAMIC:
		return "DYNAMIC"
	case PT_INTERP:
		return "INTERP"
	case PT_NOTE:
		return "NOTE"
	case PT_SHLIB:
		return "SHLIB"
	case PT_PHDR:
		return "PHDR"
	case PT_TLS:
		return "TLS"
	default:
		return fmt.Sprintf("PType(%#x)", uint32(t))
	}
}

// Segment permission flags (p_flags).
type PFlags uint32

const (
	PF_X PFlags = 0x1
	PF_W PFlags = 0x2
	PF_R PFlags = 0x4
)

// ProgramHeader describes one loadable or informational segment.
type ProgramHeader struct {
	Type   PType
	Flags  PFlags
	Offset Off
	VAddr  Addr
	PAddr  Addr
	FileSz uint64
	MemSz  uint64
	Align  uint64
}

// Valid checks the gABI invariants: file size must not exceed memory
// size, and if alignment is non-trivial the virtual address and file
// offset must agree modulo it.
func (p ProgramHeader) Valid() error {
	if p.FileSz > p.MemSz {
		return fmt.Errorf("%w: p_filesz %d > p_memsz %d", ErrBadFormat, p.FileSz, p.MemSz)
	}
	if p.Align > 1 && p.VAddr%p.Align != p.Offset%p.Align {
		return fmt.Errorf("%w: p_vaddr %% align != p_offset %% align", ErrBadFormat)
	}
	return nil
}

// ProgramHeaders is a lazy, bounds-checked, indexed view over a run of
// program header records.
type ProgramHeaders struct {
	data  []byte
	desc  *Descriptor
	order binary.ByteOrder
}

// NewProgramHeaders wraps b, which must be an exact multiple of the
// class's program header record size.
func NewProgramHeaders(b []byte, desc *Descriptor, order binary.ByteOrder) (ProgramHeaders, error) {
	if len(b)%desc.ProgHeaderSize != 0 {
		return ProgramHeaders{}, fmt.Errorf("%w: program header table length %d not a multiple of %d", ErrTooShort, len(b), desc.ProgHeaderSize)
	}
	return ProgramHeaders{data: b, desc: desc, order: order}, nil
}

func (v ProgramHeaders) NumRecords() int { return len(v.data) / v.desc.ProgHeaderSize }

// At decodes the record at position i, or returns ok=false if i is out of
// range.
func (v ProgramHeaders) At(i int) (ProgramHeader, bool, error) {
	if i < 0 || i >= v.NumRecords() {
		return ProgramHeader{}, false, nil
	}
	rec := v.data[i*v.desc.ProgHeaderSize : (i+1)*v.desc.ProgHeaderSize]
	ph, err := decodeProgramHeader(rec, v.desc, v.order)
	return ph, true, err
}

func decodeProgramHeader(rec []byte, desc *Descriptor, bo binary.ByteOrder) (ProgramHeader, error) {
	var ph ProgramHeader
	if desc.Class == Class64 {
		typ, _ := readU32(rec, 0, bo)
		flags, _ := readU32(rec, 4, bo)
		off, _ := readU64(rec, 8, bo)
		vaddr, _ := readU64(rec, 16, bo)
		paddr, _ := readU64(rec, 24, bo)
		filesz, _ := readU64(rec, 32, bo)
		memsz, _ := readU64(rec, 40, bo)
		align, _ := readU64(rec, 48, bo)
		ph = ProgramHeader{PType(typ), PFlags(flags), off, vaddr, paddr, filesz, memsz, align}
	} else {
		typ, _ := readU32(rec, 0, bo)
		off, _ := readU32(rec, 4, bo)
		vaddr, _ := readU32(rec, 8, bo)
		paddr, _ := readU32(rec, 12, bo)
		filesz, _ := readU32(rec, 16, bo)
		memsz, _ := readU32(rec, 20, bo)
		flags, _ := readU32(rec, 24, bo)
		align, _ := readU32(rec, 28, bo)
		ph = ProgramHeader{PType(typ), PFlags(flags), uint64(off), uint64(vaddr), uint64(paddr), uint64(filesz), uint64(memsz), uint64(align)}
	}
	return ph, nil
}

// ProgramHeaderIter is a finite, restartable iterator with exact length.
type ProgramHeaderIter struct {
	v   ProgramHeaders
	pos int
}

func (v ProgramHeaders) Iter() *ProgramHeaderIter { return &ProgramHeaderIter{v: v} }

func (it *ProgramHeaderIter) Len() int { return it.v.NumRecords() - it.pos }

func (it *ProgramHeaderIter) Next() (ProgramHeader, bool, error) {
	ph, ok, err := it.v.At(it.pos)
	if ok {
		it.pos++
	}
	return ph, ok, err
}

// CreateProgramHeaders writes xs sequentially into buf and returns the
// view over the written prefix plus the unused suffix.
func CreateProgramHeaders(buf []byte, xs []ProgramHeader, desc *Descriptor, order binary.ByteOrder) (ProgramHeaders, []byte, error) {
	need := len(xs) * desc.ProgHeaderSize
	if len(buf) < need {
		return ProgramHeaders{}, nil, fmt.Errorf("%w: need %d have %d", ErrCapacityExceeded, need, len(buf))
	}
	for i, ph := range xs {
		rec := buf[i*desc.ProgHeaderSize : (i+1)*desc.ProgHeaderSize]
		if desc.Class == Class64 {
			writeU32(rec, 0, order, uint32(ph.Type))
			writeU32(rec, 4, order, uint32(ph.Flags))
			writeU64(rec, 8, order, ph.Offset)
			writeU64(rec, 16, order, ph.VAddr)
			writeU64(rec, 24, order, ph.PAddr)
			writeU64(rec, 32, order, ph.FileSz)
			writeU64(rec, 40, order, ph.MemSz)
			writeU64(rec, 48, order, ph.Align)
		} else {
			writeU32(rec, 0, order, uint32(ph.Type))
			writeU32(rec, 4, order, uint32(ph.Offset))
			writeU32(rec, 8, order, uint32(ph.VAddr))
			writeU32(rec, 12, order, uint32(ph.PAddr))
			writeU32(rec, 16, order, uint32(ph.FileSz))
			writeU32(rec, 20, order, uint32(ph.MemSz))
			writeU32(rec, 24, order, uint32(ph.Flags))
			writeU32(rec, 28, order, uint32(ph.Align))
		}
	}
	view, err := NewProgramHeaders(buf[:need], desc, order)
	return view, buf[need:], err
}
