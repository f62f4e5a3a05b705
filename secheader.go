package elf

import (
	"encoding/binary"
	"fmt"
)

// Section type (sh_type).
type SType uint32

const (
	SHT_NULL     SType = 0
	SHT_PROGBITS SType = 1
	SHT_SYMTAB   SType = 2
	SHT_STRTAB   SType = 3
	SHT_RELA     SType = 4
	SHT_HASH     SType = 5
	SHT_DYNAMIC  SType = 6
	SHT_NOTE     SType = 7
	SHT_NOBITS   SType = 8
	SHT_REL      SType = 9
	SHT_SHLIB    SType = 10
	SHT_DYNSYM   SType = 11
)

func (t SType) String() string {
	switch t {
	case SHT_NULL:
		return "NULL"
	case SHT_PROGBITS:
		return "PROGBITS"
	case SHT_SYMTAB:
		return "SYMTAB"
	case SHT_STRTAB:
		return "STRTAB"
	case SHT_RELA:
		return "RELA"
	case SHT_HASH:
		return "HASH"
	case SHT_DYNAMIC:
		return "DYNAMIC"
	case SHT_NOTE:
		return "NOTE"
	case SHT_NOBITS:
		return "NOBITS"
	case SHT_REL:
		return "REL"
	case SHT_SHLIB:
		return "SHLIB"
	case SHT_DYNSYM:
		return "DYNSYM"
	default:
		return fmt.Sprintf("SType(%#x)", uint32(t))
	}
}

// Section flags (sh_flags).
type SFlags uint64

const (
	SHF_WRITE     SFlags = 0x1
	SHF_ALLOC     SFlags = 0x2
	SHF_EXECINSTR SFlags = 0x4
	SHF_MERGE     SFlags = 0x10
	SHF_STRINGS   SFlags = 0x20
	SHF_INFO_LINK SFlags = 0x40
)

// Special section indices.
const (
	SHN_UNDEF  = 0
	SHN_ABS    = 0xfff1
	SHN_COMMON = 0xfff2
	SHN_XINDEX = 0xffff
)

// SectionHeader describes one section. Name is unresolved until looked up
// via a StringTable collaborator — this view only decodes the raw
// sh_name offset.
type SectionHeader struct {
	NameOff   uint32
	Type      SType
	Flags     SFlags
	Addr      Addr
	Offset    Off
	Size      uint64
	Link      uint32
	Info      uint32
	AddrAlign uint64
	EntSize   uint64
}

// Name resolves NameOff against a collaborator string table (typically
// the section named by the file header's e_shstrndx).
func (s SectionHeader) Name(strtab StringTable) (string, error) {
	return strtab.String(s.NameOff)
}

// SectionHeaders is a lazy, bounds-checked, indexed view over a run of
// section header records.
type SectionHeaders struct {
	data  []byte
	desc  *Descriptor
	order binary.ByteOrder
}

func NewSectionHeaders(b []byte, desc *Descriptor, order binary.ByteOrder) (SectionHeaders, error) {
	if len(b)%desc.SectHeaderSize != 0 {
		return SectionHeaders{}, fmt.Errorf("%w: section header table length %d not a multiple of %d", ErrTooShort, len(b), desc.SectHeaderSize)
	}
	return SectionHeaders{data: b, desc: desc, order: order}, nil
}

func (v SectionHeaders) NumRecords() int { return len(v.data) / v.desc.SectHeaderSize }

func (v SectionHeaders) At(i int) (SectionHeader, bool, error) {
	if i < 0 || i >= v.NumRecords() {
		return SectionHeader{}, false, nil
	}
	rec := v.data[i*v.desc.SectHeaderSize : (i+1)*v.desc.SectHeaderSize]
	sh, err := decodeSectionHeader(rec, v.desc, v.order)
	return sh, true, err
}

func decodeSectionHeader(rec []byte, desc *Descriptor, bo binary.ByteOrder) (SectionHeader, error) {
	var sh SectionHeader
	if desc.Class == Class64 {
		name, _ := readU32(rec, 0, bo)
		typ, _ := readU32(rec, 4, bo)
		flags, _ := readU64(rec, 8, bo)
		addr, _ := readU64(rec, 16, bo)
		off, _ := readU64(rec, 24, bo)
		size, _ := readU64(rec, 32, bo)
		link, _ := readU32(rec, 40, bo)
		info, _ := readU32(rec, 44, bo)
		align, _ := readU64(rec, 48, bo)
		entsize, _ := readU64(rec, 56, bo)
		sh = SectionHeader{name, SType(typ), SFlags(flags), addr, off, size, link, info, align, entsize}
	} else {
		name, _ := readU32(rec, 0, bo)
		typ, _ := readU32(rec, 4, bo)
		flags, _ := readU32(rec, 8, bo)
		addr, _ := readU32(rec, 12, bo)
		off, _ := readU32(rec, 16, bo)
		size, _ := readU32(rec, 20, bo)
		link, _ := readU32(rec, 24, bo)
		info, _ := readU32(rec, 28, bo)
		align, _ := readU32(rec, 32, bo)
		entsize, _ := readU32(rec, 36, bo)
		sh = SectionHeader{name, SType(typ), SFlags(flags), uint64(addr), uint64(off), uint64(size), link, info, uint64(align), uint64(entsize)}
	}
	return sh, nil
}

type SectionHeaderIter struct {
	v   SectionHeaders
	pos int
}

func (v SectionHeaders) Iter() *SectionHeaderIter { return &SectionHeaderIter{v: v} }

func (it *SectionHeaderIter) Len() int { return it.v.NumRecords() - it.pos }

func (it *SectionHeaderIter) Next() (SectionHeader, bool, error) {
	sh, ok, err := it.v.At(it.pos)
	if ok {
		it.pos++
	}
	return sh, ok, err
}

// CreateSectionHeaders writes xs sequentially into buf, returning the view
// over the written prefix and the unused suffix.
func CreateSectionHeaders(buf []byte, xs []SectionHeader, desc *Descriptor, order binary.ByteOrder) (SectionHeaders, []byte, error) {
	need := len(xs) * desc.SectHeaderSize
	if len(buf) < need {
		return SectionHeaders{}, nil, fmt.Errorf("%w: need %d have %d", ErrCapacityExceeded, need, len(buf))
	}
	for i, sh := range xs {
		rec := buf[i*desc.SectHeaderSize : (i+1)*desc.SectHeaderSize]
		if desc.Class == Class64 {
			writeU32(rec, 0, order, sh.NameOff)
			writeU32(rec, 4, order, uint32(sh.Type))
			writeU64(rec, 8, order, uint64(sh.Flags))
			writeU64(rec, 16, order, sh.Addr)
			writeU64(rec, 24, order, sh.Offset)
			writeU64(rec, 32, order, sh.Size)
			writeU32(rec, 40, order, sh.Link)
			writeU32(rec, 44, order, sh.Info)
			writeU64(rec, 48, order, sh.AddrAlign)
			writeU64(rec, 56, order, sh.EntSize)
		} else {
			writeU32(rec, 0, order, sh.NameOff)
			writeU32(rec, 4, order, uint32(sh.Type))
			writeU32(rec, 8, order, uint32(sh.Flags))
			writeU32(rec, 12, order, uint32(sh.Addr))
			writeU32(rec, 16, order, uint32(sh.Offset))
			writeU32(rec, 20, order, uint32(sh.Size))
			writeU32(rec, 24, order, sh.Link)
			writeU32(rec, 28, order, sh.Info)
			writeU32(rec, 32, order, uint32(sh.AddrAlign))
			writeU32(rec, 36, order, uint32(sh.EntSize))
		}
	}
	view, err := NewSectionHeaders(buf[:need], desc, order)
	return view, buf[need:], err
}
