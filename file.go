package elf

import (
	"encoding/binary"
	"fmt"
)

// File is a parsed, read-only view over a whole ELF byte buffer: a
// Header plus the program and section header tables it points to. It
// borrows the buffer for its entire lifetime and never copies it.
type File struct {
	Header  *Header
	Data    []byte
	Desc    *Descriptor
	Order   binary.ByteOrder
	Progs   ProgramHeaders
	Sects   SectionHeaders
}

// Open parses the header, program header table, and section header table
// out of b. It does not interpret section contents — that happens lazily
// through SectionData, Symbols, and friends below. A table whose count in
// the header is zero is kept as an empty view.
func Open(b []byte) (*File, error) {
	h, err := ParseHeader(b)
	if err != nil {
		return nil, err
	}
	desc := h.Descriptor()
	order := h.ByteOrder()

	f := &File{Header: h, Data: b, Desc: desc, Order: order}
	f.Progs, _ = NewProgramHeaders(nil, desc, order)
	f.Sects, _ = NewSectionHeaders(nil, desc, order)

	if h.PhNum > 0 {
		start := int(h.PhOff)
		end := start + int(h.PhNum)*desc.ProgHeaderSize
		if end > len(b) || start < 0 {
			return nil, fmt.Errorf("%w: program header table", ErrOutOfRange)
		}
		progs, err := NewProgramHeaders(b[start:end], desc, order)
		if err != nil {
			return nil, err
		}
		f.Progs = progs
	}

	if h.ShNum > 0 {
		start := int(h.ShOff)
		end := start + int(h.ShNum)*desc.SectHeaderSize
		if end > len(b) || start < 0 {
			return nil, fmt.Errorf("%w: section header table", ErrOutOfRange)
		}
		sects, err := NewSectionHeaders(b[start:end], desc, order)
		if err != nil {
			return nil, err
		}
		f.Sects = sects
	}

	return f, nil
}

// SectionData returns the raw bytes of the section at index i, or an
// error if i is out of range or the section's content lies outside the
// file. A section with no file content (SHT_NOBITS) yields nil and no
// error.
func (f *File) SectionData(i int) ([]byte, error) {
	sh, ok, err := f.Sects.At(i)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: section index %d", ErrOutOfRange, i)
	}
	if sh.Type == SHT_NOBITS {
		return nil, nil
	}
	start := int(sh.Offset)
	end := start + int(sh.Size)
	if start < 0 || end > len(f.Data) {
		return nil, fmt.Errorf("%w: section %d content [%d,%d)", ErrOutOfRange, i, start, end)
	}
	return f.Data[start:end], nil
}

// SectionHeaderStringTable returns the string table named by
// e_shstrndx.
func (f *File) SectionHeaderStringTable() (StringTable, error) {
	b, err := f.SectionData(int(f.Header.ShStrNdx))
	if err != nil {
		return StringTable{}, err
	}
	return NewStringTable(b), nil
}

// SectionByName returns the index and header of the first section whose
// name (resolved via the section header string table) equals name.
func (f *File) SectionByName(name string) (int, SectionHeader, bool, error) {
	shstr, err := f.SectionHeaderStringTable()
	if err != nil {
		return 0, SectionHeader{}, false, err
	}
	it := f.Sects.Iter()
	for i := 0; ; i++ {
		sh, ok, err := it.Next()
		if err != nil {
			return 0, SectionHeader{}, false, err
		}
		if !ok {
			return 0, SectionHeader{}, false, nil
		}
		n, err := sh.Name(shstr)
		if err != nil {
			continue
		}
		if n == name {
			return i, sh, true, nil
		}
	}
}

// Symbols returns the decoded symbol table held in the section at index
// i, along with the string table it links to.
func (f *File) Symbols(i int) (Symbols, StringTable, error) {
	sh, ok, err := f.Sects.At(i)
	if err != nil {
		return Symbols{}, StringTable{}, err
	}
	if !ok {
		return Symbols{}, StringTable{}, fmt.Errorf("%w: section index %d", ErrOutOfRange, i)
	}
	data, err := f.SectionData(i)
	if err != nil {
		return Symbols{}, StringTable{}, err
	}
	syms, err := NewSymbols(data, f.Desc, f.Order)
	if err != nil {
		return Symbols{}, StringTable{}, err
	}
	strData, err := f.SectionData(int(sh.Link))
	if err != nil {
		return Symbols{}, StringTable{}, err
	}
	return syms, NewStringTable(strData), nil
}

// Dynamic returns the decoded dynamic table held in the section at index
// i.
func (f *File) Dynamic(i int) (Dynamics, error) {
	data, err := f.SectionData(i)
	if err != nil {
		return Dynamics{}, err
	}
	return NewDynamics(data, f.Desc, f.Order)
}
