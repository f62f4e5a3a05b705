package elf

import (
	"encoding/binary"
	"fmt"
)

// Symbol binding (high nibble of st_info).
type SymBind byte

const (
	STB_LOCAL    SymBind = 0
	STB_GLOBAL   SymBind = 1
	STB_WEAK     SymBind = 2
	STB_OS_LO    SymBind = 10
	STB_OS_HI    SymBind = 12
	STB_PROC_LO  SymBind = 13
	STB_PROC_HI  SymBind = 15
)

// SymType (low nibble of st_info).
type SymType byte

const (
	STT_NOTYPE  SymType = 0
	STT_OBJECT  SymType = 1
	STT_FUNC    SymType = 2
	STT_SECTION SymType = 3
	STT_FILE    SymType = 4
	STT_COMMON  SymType = 5
	STT_TLS     SymType = 6
	STT_OS_LO   SymType = 10
	STT_OS_HI   SymType = 12
	STT_PROC_LO SymType = 13
	STT_PROC_HI SymType = 15
)

// decodeSymInfo splits st_info: bind = high nibble, type = low
// nibble. Binds and types in the processor/OS reserved ranges decode to
// their numeric value rather than failing — only a handful of the low
// 4-bit space is entirely unassigned, and spec.md singles out "unknown
// symbol binding fails" as the one case the viewer must reject.
func decodeSymInfo(info byte) (SymBind, SymType, error) {
	bind := SymBind(info >> 4)
	typ := SymType(info & 0xf)
	switch {
	case bind <= STB_WEAK, bind >= STB_OS_LO && bind <= STB_PROC_HI:
	default:
		return 0, 0, fmt.Errorf("%w: symbol binding %d", ErrBadFormat, bind)
	}
	return bind, typ, nil
}

func encodeSymInfo(bind SymBind, typ SymType) byte {
	return byte(bind)<<4 | byte(typ)&0xf
}

// SymSection distinguishes a resolved section-header index from one of the
// special section-index sentinels.
type SymSection struct {
	Undefined bool
	Absolute  bool
	Common    bool
	XIndex    bool
	Index     uint16 // valid when none of the above are set
}

func decodeSymSection(shndx uint16) SymSection {
	switch shndx {
	case SHN_UNDEF:
		return SymSection{Undefined: true}
	case SHN_ABS:
		return SymSection{Absolute: true}
	case SHN_COMMON:
		return SymSection{Common: true}
	case SHN_XINDEX:
		return SymSection{XIndex: true}
	default:
		return SymSection{Index: shndx}
	}
}

func encodeSymSection(s SymSection) uint16 {
	switch {
	case s.Undefined:
		return SHN_UNDEF
	case s.Absolute:
		return SHN_ABS
	case s.Common:
		return SHN_COMMON
	case s.XIndex:
		return SHN_XINDEX
	default:
		return s.Index
	}
}

// Symbol is a fully decoded symbol table entry.
type Symbol struct {
	NameOff uint32
	Bind    SymBind
	Type    SymType
	Other   byte
	Section SymSection
	Value   Addr
	Size    uint64
}

// Name resolves NameOff against the symbol table's linked string table.
func (s Symbol) Name(strtab StringTable) (string, error) {
	return strtab.String(s.NameOff)
}

// Symbols is a lazy, bounds-checked, indexed view over a run of symbol
// records.
type Symbols struct {
	data  []byte
	desc  *Descriptor
	order binary.ByteOrder
}

func NewSymbols(b []byte, desc *Descriptor, order binary.ByteOrder) (Symbols, error) {
	if len(b)%desc.SymSize != 0 {
		return Symbols{}, fmt.Errorf("%w: symbol table length %d not a multiple of %d", ErrTooShort, len(b), desc.SymSize)
	}
	return Symbols{data: b, desc: desc, order: order}, nil
}

func (v Symbols) NumRecords() int { return len(v.data) / v.desc.SymSize }

func (v Symbols) At(i int) (Symbol, bool, error) {
	if i < 0 || i >= v.NumRecords() {
		return Symbol{}, false, nil
	}
	rec := v.data[i*v.desc.SymSize : (i+1)*v.desc.SymSize]
	sym, err := decodeSymbol(rec, v.desc, v.order)
	return sym, true, err
}

func decodeSymbol(rec []byte, desc *Descriptor, bo binary.ByteOrder) (Symbol, error) {
	var name uint32
	var info, other byte
	var shndx uint16
	var value, size uint64
	if desc.Class == Class64 {
		name, _ = readU32(rec, 0, bo)
		info = rec[4]
		other = rec[5]
		shndxU, _ := readU16(rec, 6, bo)
		shndx = shndxU
		value, _ = readU64(rec, 8, bo)
		size, _ = readU64(rec, 16, bo)
	} else {
		name, _ = readU32(rec, 0, bo)
		v, _ := readU32(rec, 4, bo)
		s, _ := readU32(rec, 8, bo)
		info = rec[12]
		other = rec[13]
		shndxU, _ := readU16(rec, 14, bo)
		shndx = shndxU
		value, size = uint64(v), uint64(s)
	}
	bind, typ, err := decodeSymInfo(info)
	return Symbol{
		NameOff: name,
		Bind:    bind,
		Type:    typ,
		Other:   other,
		Section: decodeSymSection(shndx),
		Value:   value,
		Size:    size,
	}, err
}

type SymbolIter struct {
	v   Symbols
	pos int
}

func (v Symbols) Iter() *SymbolIter { return &SymbolIter{v: v} }

func (it *SymbolIter) Len() int { return it.v.NumRecords() - it.pos }

func (it *SymbolIter) Next() (Symbol, bool, error) {
	s, ok, err := it.v.At(it.pos)
	if ok {
		it.pos++
	}
	return s, ok, err
}

// CreateSymbols writes xs sequentially into buf, returning the view over
// the written prefix and the unused suffix.
func CreateSymbols(buf []byte, xs []Symbol, desc *Descriptor, order binary.ByteOrder) (Symbols, []byte, error) {
	need := len(xs) * desc.SymSize
	if len(buf) < need {
		return Symbols{}, nil, fmt.Errorf("%w: need %d have %d", ErrCapacityExceeded, need, len(buf))
	}
	for i, s := range xs {
		rec := buf[i*desc.SymSize : (i+1)*desc.SymSize]
		info := encodeSymInfo(s.Bind, s.Type)
		shndx := encodeSymSection(s.Section)
		if desc.Class == Class64 {
			writeU32(rec, 0, order, s.NameOff)
			rec[4] = info
			rec[5] = s.Other
			writeU16(rec, 6, order, shndx)
			writeU64(rec, 8, order, s.Value)
			writeU64(rec, 16, order, s.Size)
		} else {
			writeU32(rec, 0, order, s.NameOff)
			writeU32(rec, 4, order, uint32(s.Value))
			writeU32(rec, 8, order, uint32(s.Size))
			rec[12] = info
			rec[13] = s.Other
			writeU16(rec, 14, order, shndx)
		}
	}
	view, err := NewSymbols(buf[:need], desc, order)
	return view, buf[need:], err
}
