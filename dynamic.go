package elf

import (
	"encoding/binary"
	"fmt"
)

// DynKind names the recognized PT_DYNAMIC tag families. DynUnknown
// covers the processor- and OS-specific ranges: dynamic tags are an
// open-ended enumeration and an unrecognized tag is never a decode
// failure, only a value the caller must interpret for itself via Tag.
type DynKind int

const (
	DynNull DynKind = iota
	DynNeeded
	DynPltRelSize
	DynPltGot
	DynHash
	DynStrtab
	DynSymtab
	DynRela
	DynRelaSize
	DynRelaEntSize
	DynStrtabSize
	DynSymtabEntSize
	DynInit
	DynFini
	DynSoname
	DynRpath
	DynSymbolic
	DynRel
	DynRelSize
	DynRelEntSize
	DynPltRel
	DynDebug
	DynTextRel
	DynJmpRel
	DynBindNow
	DynInitArray
	DynFiniArray
	DynInitArraySize
	DynFiniArraySize
	DynFlags
	DynUnknown
)

func (k DynKind) String() string {
	switch k {
	case DynNull:
		return "Null"
	case DynNeeded:
		return "Needed"
	case DynPltRelSize:
		return "PltRelSize"
	case DynPltGot:
		return "PltGot"
	case DynHash:
		return "Hash"
	case DynStrtab:
		return "Strtab"
	case DynSymtab:
		return "Symtab"
	case DynRela:
		return "Rela"
	case DynRelaSize:
		return "RelaSize"
	case DynRelaEntSize:
		return "RelaEntSize"
	case DynStrtabSize:
		return "StrtabSize"
	case DynSymtabEntSize:
		return "SymtabEntSize"
	case DynInit:
		return "Init"
	case DynFini:
		return "Fini"
	case DynSoname:
		return "Soname"
	case DynRpath:
		return "Rpath"
	case DynSymbolic:
		return "Symbolic"
	case DynRel:
		return "Rel"
	case DynRelSize:
		return "RelSize"
	case DynRelEntSize:
		return "RelEntSize"
	case DynPltRel:
		return "PltRel"
	case DynDebug:
		return "Debug"
	case DynTextRel:
		return "TextRel"
	case DynJmpRel:
		return "JmpRel"
	case DynBindNow:
		return "BindNow"
	case DynInitArray:
		return "InitArray"
	case DynFiniArray:
		return "FiniArray"
	case DynInitArraySize:
		return "InitArraySize"
	case DynFiniArraySize:
		return "FiniArraySize"
	case DynFlags:
		return "Flags"
	default:
		return "Unknown"
	}
}

// Raw numeric DT_* tag values, per the gABI.
const (
	dtNull         = 0
	dtNeeded       = 1
	dtPltRelSize   = 2
	dtPltGot       = 3
	dtHash         = 4
	dtStrtab       = 5
	dtSymtab       = 6
	dtRela         = 7
	dtRelaSize     = 8
	dtRelaEntSize  = 9
	dtStrtabSize   = 10
	dtSymtabEntSize = 11
	dtInit         = 12
	dtFini         = 13
	dtSoname       = 14
	dtRpath        = 15
	dtSymbolic     = 16
	dtRel          = 17
	dtRelSize      = 18
	dtRelEntSize   = 19
	dtPltRel       = 20
	dtDebug        = 21
	dtTextRel      = 22
	dtJmpRel       = 23
	dtBindNow      = 24
	dtInitArray    = 25
	dtFiniArray    = 26
	dtInitArraySize = 27
	dtFiniArraySize = 28
	dtFlags        = 30
)

var dynTagToKind = map[int64]DynKind{
	dtNull:          DynNull,
	dtNeeded:        DynNeeded,
	dtPltRelSize:    DynPltRelSize,
	dtPltGot:        DynPltGot,
	dtHash:          DynHash,
	dtStrtab:        DynStrtab,
	dtSymtab:        DynSymtab,
	dtRela:          DynRela,
	dtRelaSize:      DynRelaSize,
	dtRelaEntSize:   DynRelaEntSize,
	dtStrtabSize:    DynStrtabSize,
	dtSymtabEntSize: DynSymtabEntSize,
	dtInit:          DynInit,
	dtFini:          DynFini,
	dtSoname:        DynSoname,
	dtRpath:         DynRpath,
	dtSymbolic:      DynSymbolic,
	dtRel:           DynRel,
	dtRelSize:       DynRelSize,
	dtRelEntSize:    DynRelEntSize,
	dtPltRel:        DynPltRel,
	dtDebug:         DynDebug,
	dtTextRel:       DynTextRel,
	dtJmpRel:        DynJmpRel,
	dtBindNow:       DynBindNow,
	dtInitArray:     DynInitArray,
	dtFiniArray:     DynFiniArray,
	dtInitArraySize: DynInitArraySize,
	dtFiniArraySize: DynFiniArraySize,
	dtFlags:         DynFlags,
}

var dynKindToTag = func() map[DynKind]int64 {
	m := make(map[DynKind]int64, len(dynTagToKind))
	for tag, kind := range dynTagToKind {
		m[kind] = tag
	}
	return m
}()

// DynamicEntry is a decoded PT_DYNAMIC tag/value pair. Tag always carries
// the raw numeric tag (needed to format DynUnknown entries); Value is
// interpreted as an address, size, enum, or flag bits depending on Kind.
type DynamicEntry struct {
	Kind  DynKind
	Tag   int64
	Value uint64
}

func decodeDynTag(tag int64) DynKind {
	if k, ok := dynTagToKind[tag]; ok {
		return k
	}
	return DynUnknown
}

// Dynamics is a lazy, bounds-checked, indexed view over a PT_DYNAMIC
// segment or SHT_DYNAMIC section.
type Dynamics struct {
	data  []byte
	desc  *Descriptor
	order binary.ByteOrder
}

func NewDynamics(b []byte, desc *Descriptor, order binary.ByteOrder) (Dynamics, error) {
	if len(b)%desc.DynSize != 0 {
		return Dynamics{}, fmt.Errorf("%w: dynamic table length %d not a multiple of %d", ErrTooShort, len(b), desc.DynSize)
	}
	return Dynamics{data: b, desc: desc, order: order}, nil
}

func (v Dynamics) NumRecords() int { return len(v.data) / v.desc.DynSize }

func (v Dynamics) At(i int) (DynamicEntry, bool, error) {
	if i < 0 || i >= v.NumRecords() {
		return DynamicEntry{}, false, nil
	}
	rec := v.data[i*v.desc.DynSize : (i+1)*v.desc.DynSize]
	e, err := decodeDynamicEntry(rec, v.desc, v.order)
	return e, true, err
}

func decodeDynamicEntry(rec []byte, desc *Descriptor, bo binary.ByteOrder) (DynamicEntry, error) {
	var tag int64
	var value uint64
	if desc.Class == Class64 {
		t, _ := readS64(rec, 0, bo)
		v, _ := readU64(rec, 8, bo)
		tag, value = t, v
	} else {
		t, _ := readS32(rec, 0, bo)
		v, _ := readU32(rec, 4, bo)
		tag, value = int64(t), uint64(v)
	}
	return DynamicEntry{Kind: decodeDynTag(tag), Tag: tag, Value: value}, nil
}

type DynamicIter struct {
	v   Dynamics
	pos int
}

func (v Dynamics) Iter() *DynamicIter { return &DynamicIter{v: v} }
func (it *DynamicIter) Len() int      { return it.v.NumRecords() - it.pos }
func (it *DynamicIter) Next() (DynamicEntry, bool, error) {
	e, ok, err := it.v.At(it.pos)
	if ok {
		it.pos++
	}
	return e, ok, err
}

// CreateDynamics writes xs sequentially into buf, returning the view over
// the written prefix and the unused suffix.
func CreateDynamics(buf []byte, xs []DynamicEntry, desc *Descriptor, order binary.ByteOrder) (Dynamics, []byte, error) {
	need := len(xs) * desc.DynSize
	if len(buf) < need {
		return Dynamics{}, nil, fmt.Errorf("%w: need %d have %d", ErrCapacityExceeded, need, len(buf))
	}
	for i, e := range xs {
		rec := buf[i*desc.DynSize : (i+1)*desc.DynSize]
		tag := e.Tag
		if e.Kind != DynUnknown {
			if t, ok := dynKindToTag[e.Kind]; ok {
				tag = t
			}
		}
		if desc.Class == Class64 {
			writeS64(rec, 0, order, tag)
			writeU64(rec, 8, order, e.Value)
		} else {
			writeS32(rec, 0, order, int32(tag))
			writeU32(rec, 4, order, uint32(e.Value))
		}
	}
	view, err := NewDynamics(buf[:need], desc, order)
	return view, buf[need:], err
}
