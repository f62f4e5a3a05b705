package elf

import (
	"encoding/binary"
	"errors"
	"testing"
)

func sampleSymbols() []Symbol {
	return []Symbol{
		{NameOff: 0, Bind: STB_LOCAL, Type: STT_NOTYPE, Section: SymSection{Undefined: true}},
		{NameOff: 1, Bind: STB_GLOBAL, Type: STT_FUNC, Section: SymSection{Index: 1}, Value: 0x1000, Size: 0x40},
		{NameOff: 6, Bind: STB_GLOBAL, Type: STT_OBJECT, Section: SymSection{Absolute: true}, Value: 0x2a},
		{NameOff: 14, Bind: STB_WEAK, Type: STT_NOTYPE, Section: SymSection{Common: true}, Value: 4, Size: 16},
	}
}

func TestSymbolsRoundTrip(t *testing.T) {
	for _, desc := range []*Descriptor{&Desc32, &Desc64} {
		t.Run(desc.Class.String(), func(t *testing.T) {
			xs := sampleSymbols()
			buf := make([]byte, len(xs)*desc.SymSize)
			view, _, err := CreateSymbols(buf, xs, desc, binary.LittleEndian)
			if err != nil {
				t.Fatalf("CreateSymbols: %v", err)
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

func TestSymbolSectionSentinels(t *testing.T) {
	tests := []struct {
		name  string
		shndx uint16
		want  SymSection
	}{
		{"undef", SHN_UNDEF, SymSection{Undefined: true}},
		{"abs", SHN_ABS, SymSection{Absolute: true}},
		{"common", SHN_COMMON, SymSection{Common: true}},
		{"xindex", SHN_XINDEX, SymSection{XIndex: true}},
		{"ordinary", 3, SymSection{Index: 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := decodeSymSection(tt.shndx)
			if got != tt.want {
				t.Fatalf("decodeSymSection(%d) = %+v, want %+v", tt.shndx, got, tt.want)
			}
			if back := encodeSymSection(got); back != tt.shndx {
				t.Fatalf("encodeSymSection round trip = %d, want %d", back, tt.shndx)
			}
		})
	}
}

func TestDecodeSymInfoRejectsUnknownBind(t *testing.T) {
	if _, _, err := decodeSymInfo(byte(9) << 4); !errors.Is(err, ErrBadFormat) {
		t.Fatalf("err = %v, want ErrBadFormat", err)
	}
}

func TestDecodeSymInfoAcceptsReservedRanges(t *testing.T) {
	for _, bind := range []SymBind{STB_OS_LO, STB_OS_HI, STB_PROC_LO, STB_PROC_HI} {
		if _, _, err := decodeSymInfo(byte(bind) << 4); err != nil {
			t.Fatalf("decodeSymInfo rejected reserved bind %d: %v", bind, err)
		}
	}
}

func TestSymbolName(t *testing.T) {
	strs := NewStringTable([]byte("\x00main\x00"))
	s := Symbol{NameOff: 1}
	name, err := s.Name(strs)
	if err != nil || name != "main" {
		t.Fatalf("Name() = %q, %v", name, err)
	}
}
