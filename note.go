package elf

import (
	"encoding/binary"
	"fmt"
)

// NoteRecord is one decoded ELF note: name and desc are borrowed slices
// into the backing buffer (never copied), Kind is n_type. Name includes
// its trailing NUL.
type NoteRecord struct {
	Kind uint32
	Name []byte
	Desc []byte
}

const noteHeaderSize = 12 // namesz, descsz, type: 3 * 4 bytes

// requiredNoteBytes returns the packed size of one note: the 12-byte
// header plus name and desc each padded to a 4-byte boundary.
func requiredNoteBytes(n NoteRecord) int {
	return noteHeaderSize + roundUp4(len(n.Name)) + roundUp4(len(n.Desc))
}

// NotesRequiredBytes sums requiredNoteBytes over xs.
func NotesRequiredBytes(xs []NoteRecord) int {
	total := 0
	for _, n := range xs {
		total += requiredNoteBytes(n)
	}
	return total
}

// Notes is a lazy, iterated view over a SHT_NOTE / PT_NOTE byte range.
// Unlike the fixed-size record views, notes are variable length, so there
// is no num_records/At pair — only Iter, which walks the buffer on
// demand. Construction succeeds only if the whole slice is consumable by
// iteration to the end.
type Notes struct {
	data  []byte
	order binary.ByteOrder
}

// NewNotes validates that b parses as a sequence of complete note records
// with nothing left over.
func NewNotes(b []byte, order binary.ByteOrder) (Notes, error) {
	n := Notes{data: b, order: order}
	it := n.Iter()
	for {
		_, ok, err := it.Next()
		if err != nil {
			return Notes{}, err
		}
		if !ok {
			break
		}
	}
	return n, nil
}

type NoteIter struct {
	data  []byte
	order binary.ByteOrder
	pos   int
}

func (n Notes) Iter() *NoteIter { return &NoteIter{data: n.data, order: n.order} }

func (it *NoteIter) Next() (NoteRecord, bool, error) {
	if it.pos >= len(it.data) {
		return NoteRecord{}, false, nil
	}
	rem := it.data[it.pos:]
	if len(rem) < noteHeaderSize {
		return NoteRecord{}, false, fmt.Errorf("%w: note header truncated", ErrBadFormat)
	}
	nameSz, _ := readU32(rem, 0, it.order)
	descSz, _ := readU32(rem, 4, it.order)
	kind, _ := readU32(rem, 8, it.order)

	off := noteHeaderSize
	nameEnd := off + int(nameSz)
	if nameEnd > len(rem) {
		return NoteRecord{}, false, fmt.Errorf("%w: note name runs past end", ErrBadFormat)
	}
	name := rem[off:nameEnd]
	off = noteHeaderSize + roundUp4(int(nameSz))

	descEnd := off + int(descSz)
	if descEnd > len(rem) {
		return NoteRecord{}, false, fmt.Errorf("%w: note desc runs past end", ErrBadFormat)
	}
	desc := rem[off:descEnd]
	off += roundUp4(int(descSz))
	if off > len(rem) {
		return NoteRecord{}, false, fmt.Errorf("%w: note desc padding runs past end", ErrBadFormat)
	}

	it.pos += off
	return NoteRecord{Kind: kind, Name: name, Desc: desc}, true, nil
}

// CreateNotes writes xs sequentially into buf. The supplied Name must
// already include its trailing NUL. Returns the view over the
// written prefix and the unused suffix.
func CreateNotes(buf []byte, xs []NoteRecord, order binary.ByteOrder) (Notes, []byte, error) {
	need := NotesRequiredBytes(xs)
	if len(buf) < need {
		return Notes{}, nil, fmt.Errorf("%w: need %d have %d", ErrCapacityExceeded, need, len(buf))
	}
	off := 0
	for _, n := range xs {
		writeU32(buf, off, order, uint32(len(n.Name)))
		writeU32(buf, off+4, order, uint32(len(n.Desc)))
		writeU32(buf, off+8, order, n.Kind)
		off += noteHeaderSize

		copy(buf[off:], n.Name)
		paddedName := roundUp4(len(n.Name))
		for i := len(n.Name); i < paddedName; i++ {
			buf[off+i] = 0
		}
		off += paddedName

		copy(buf[off:], n.Desc)
		paddedDesc := roundUp4(len(n.Desc))
		for i := len(n.Desc); i < paddedDesc; i++ {
			buf[off+i] = 0
		}
		off += paddedDesc
	}
	view, err := NewNotes(buf[:need], order)
	return view, buf[need:], err
}
