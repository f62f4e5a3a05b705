package elf

import (
	"encoding/binary"
	"fmt"
)

// Rel is a raw (not yet architecture-decoded) relocation-without-addend
// record. Sym and Kind are the two halves of r_info:
// ELF32 sym = info>>8, kind = info&0xff; ELF64 sym = info>>32,
// kind = info&0xffffffff.
type Rel struct {
	Offset Addr
	Sym    uint32
	Kind   uint32
}

// Rela is Rel plus an explicit addend.
type Rela struct {
	Rel
	Addend int64
}

func splitInfo32(info uint32) (sym uint32, kind uint32) {
	return info >> 8, info & 0xff
}

func joinInfo32(sym, kind uint32) uint32 {
	return sym<<8 | kind&0xff
}

func splitInfo64(info uint64) (sym uint32, kind uint32) {
	return uint32(info >> 32), uint32(info)
}

func joinInfo64(sym, kind uint32) uint64 {
	return uint64(sym)<<32 | uint64(kind)
}

// Rels is a lazy, bounds-checked, indexed view over a SHT_REL section.
type Rels struct {
	data  []byte
	desc  *Descriptor
	order binary.ByteOrder
}

func NewRels(b []byte, desc *Descriptor, order binary.ByteOrder) (Rels, error) {
	if len(b)%desc.RelSize != 0 {
		return Rels{}, fmt.Errorf("%w: rel table length %d not a multiple of %d", ErrTooShort, len(b), desc.RelSize)
	}
	return Rels{data: b, desc: desc, order: order}, nil
}

func (v Rels) NumRecords() int { return len(v.data) / v.desc.RelSize }

func (v Rels) At(i int) (Rel, bool, error) {
	if i < 0 || i >= v.NumRecords() {
		return Rel{}, false, nil
	}
	rec := v.data[i*v.desc.RelSize : (i+1)*v.desc.RelSize]
	r, err := decodeRel(rec, v.desc, v.order)
	return r, true, err
}

func decodeRel(rec []byte, desc *Descriptor, bo binary.ByteOrder) (Rel, error) {
	if desc.Class == Class64 {
		off, _ := readU64(rec, 0, bo)
		info, _ := readU64(rec, 8, bo)
		sym, kind := splitInfo64(info)
		return Rel{off, sym, kind}, nil
	}
	off, _ := readU32(rec, 0, bo)
	info, _ := readU32(rec, 4, bo)
	sym, kind := splitInfo32(info)
	return Rel{uint64(off), sym, kind}, nil
}

type RelIter struct {
	v   Rels
	pos int
}

func (v Rels) Iter() *RelIter { return &RelIter{v: v} }
func (it *RelIter) Len() int  { return it.v.NumRecords() - it.pos }
func (it *RelIter) Next() (Rel, bool, error) {
	r, ok, err := it.v.At(it.pos)
	if ok {
		it.pos++
	}
	return r, ok, err
}

// CreateRels writes xs sequentially into buf, returning the view over the
// written prefix and the unused suffix.
func CreateRels(buf []byte, xs []Rel, desc *Descriptor, order binary.ByteOrder) (Rels, []byte, error) {
	need := len(xs) * desc.RelSize
	if len(buf) < need {
		return Rels{}, nil, fmt.Errorf("%w: need %d have %d", ErrCapacityExceeded, need, len(buf))
	}
	for i, r := range xs {
		rec := buf[i*desc.RelSize : (i+1)*desc.RelSize]
		if desc.Class == Class64 {
			writeU64(rec, 0, order, r.Offset)
			writeU64(rec, 8, order, joinInfo64(r.Sym, r.Kind))
		} else {
			writeU32(rec, 0, order, uint32(r.Offset))
			writeU32(rec, 4, order, joinInfo32(r.Sym, r.Kind))
		}
	}
	view, err := NewRels(buf[:need], desc, order)
	return view, buf[need:], err
}

// Relas is a lazy, bounds-checked, indexed view over a SHT_RELA section.
type Relas struct {
	data  []byte
	desc  *Descriptor
	order binary.ByteOrder
}

func NewRelas(b []byte, desc *Descriptor, order binary.ByteOrder) (Relas, error) {
	if len(b)%desc.RelaSize != 0 {
		return Relas{}, fmt.Errorf("%w: rela table length %d not a multiple of %d", ErrTooShort, len(b), desc.RelaSize)
	}
	return Relas{data: b, desc: desc, order: order}, nil
}

func (v Relas) NumRecords() int { return len(v.data) / v.desc.RelaSize }

func (v Relas) At(i int) (Rela, bool, error) {
	if i < 0 || i >= v.NumRecords() {
		return Rela{}, false, nil
	}
	rec := v.data[i*v.desc.RelaSize : (i+1)*v.desc.RelaSize]
	r, err := decodeRela(rec, v.desc, v.order)
	return r, true, err
}

func decodeRela(rec []byte, desc *Descriptor, bo binary.ByteOrder) (Rela, error) {
	if desc.Class == Class64 {
		off, _ := readU64(rec, 0, bo)
		info, _ := readU64(rec, 8, bo)
		addend, _ := readS64(rec, 16, bo)
		sym, kind := splitInfo64(info)
		return Rela{Rel{off, sym, kind}, addend}, nil
	}
	off, _ := readU32(rec, 0, bo)
	info, _ := readU32(rec, 4, bo)
	addend, _ := readS32(rec, 8, bo)
	sym, kind := splitInfo32(info)
	return Rela{Rel{uint64(off), sym, kind}, int64(addend)}, nil
}

type RelaIter struct {
	v   Relas
	pos int
}

func (v Relas) Iter() *RelaIter { return &RelaIter{v: v} }
func (it *RelaIter) Len() int   { return it.v.NumRecords() - it.pos }
func (it *RelaIter) Next() (Rela, bool, error) {
	r, ok, err := it.v.At(it.pos)
	if ok {
		it.pos++
	}
	return r, ok, err
}

// CreateRelas writes xs sequentially into buf, returning the view over the
// written prefix and the unused suffix.
func CreateRelas(buf []byte, xs []Rela, desc *Descriptor, order binary.ByteOrder) (Relas, []byte, error) {
	need := len(xs) * desc.RelaSize
	if len(buf) < need {
		return Relas{}, nil, fmt.Errorf("%w: need %d have %d", ErrCapacityExceeded, need, len(buf))
	}
	for i, r := range xs {
		rec := buf[i*desc.RelaSize : (i+1)*desc.RelaSize]
		if desc.Class == Class64 {
			writeU64(rec, 0, order, r.Offset)
			writeU64(rec, 8, order, joinInfo64(r.Sym, r.Kind))
			writeS64(rec, 16, order, r.Addend)
		} else {
			writeU32(rec, 0, order, uint32(r.Offset))
			writeU32(rec, 4, order, joinInfo32(r.Sym, r.Kind))
			writeS32(rec, 8, order, int32(r.Addend))
		}
	}
	view, err := NewRelas(buf[:need], desc, order)
	return view, buf[need:], err
}
