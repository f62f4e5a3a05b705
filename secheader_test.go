package elf

import (
	"encoding/binary"
	"errors"
	"testing"
)

func sampleSectionHeaders() []SectionHeader {
	return []SectionHeader{
		{NameOff: 0, Type: SHT_NULL},
		{NameOff: 1, Type: SHT_PROGBITS, Flags: SHF_ALLOC | SHF_EXECINSTR, Addr: 0x1000, Offset: 0x40, Size: 0x200, AddrAlign: 16},
		{NameOff: 6, Type: SHT_SYMTAB, Link: 3, Info: 2, Offset: 0x240, Size: 0x60, EntSize: 24, AddrAlign: 8},
		{NameOff: 14, Type: SHT_STRTAB, Offset: 0x2a0, Size: 0x20},
	}
}

func TestSectionHeadersRoundTrip(t *testing.T) {
	for _, desc := range []*Descriptor{&Desc32, &Desc64} {
		t.Run(desc.Class.String(), func(t *testing.T) {
			xs := sampleSectionHeaders()
			buf := make([]byte, len(xs)*desc.SectHeaderSize)
			view, leftover, err := CreateSectionHeaders(buf, xs, desc, binary.LittleEndian)
			if err != nil {
				t.Fatalf("CreateSectionHeaders: %v", err)
			}
			if len(leftover) != 0 {
				t.Fatalf("leftover = %d, want 0", len(leftover))
			}
			for i, want := range xs {
				got, ok, err := view.At(i)
				if err != nil || !ok {
					t.Fatalf("At(%d): %v %v %v", i, got, ok, err)
				}
				if got != want {
					t.Fatalf("At(%d) = %+v, want %+v", i, got, want)
				}
			}
		})
	}
}

func TestSectionHeaderName(t *testing.T) {
	strTab := NewStringTable([]byte("\x00.text\x00.symtab\x00"))
	sh := SectionHeader{NameOff: 1}
	name, err := sh.Name(strTab)
	if err != nil || name != ".text" {
		t.Fatalf("Name() = %q, %v", name, err)
	}
}

func TestSectionHeadersLeftoverBytesPreserved(t *testing.T) {
	xs := sampleSectionHeaders()
	need := len(xs) * Desc64.SectHeaderSize
	buf := make([]byte, need+10)
	for i := range buf[need:] {
		buf[need+i] = 0xAB
	}
	view, leftover, err := CreateSectionHeaders(buf, xs, &Desc64, binary.LittleEndian)
	if err != nil {
		t.Fatalf("CreateSectionHeaders: %v", err)
	}
	if view.NumRecords() != len(xs) {
		t.Fatalf("NumRecords() = %d, want %d", view.NumRecords(), len(xs))
	}
	if len(leftover) != 10 {
		t.Fatalf("leftover length = %d, want 10", len(leftover))
	}
	for _, b := range leftover {
		if b != 0xAB {
			t.Fatalf("leftover bytes were mutated")
		}
	}
}

func TestSectionHeadersRejectsMisalignedLength(t *testing.T) {
	if _, err := NewSectionHeaders(make([]byte, Desc64.SectHeaderSize+1), &Desc64, binary.LittleEndian); !errors.Is(err, ErrTooShort) {
		t.Fatalf("err = %v, want ErrTooShort", err)
	}
}
