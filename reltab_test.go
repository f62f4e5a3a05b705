package elf

import (
	"encoding/binary"
	"testing"
)

func TestInfoSplitJoin32(t *testing.T) {
	tests := []struct {
		sym, kind uint32
	}{
		{0, 0}, {1, 1}, {0xffffff, 0xff}, {97, 1}, {96, 2},
	}
	for _, tt := range tests {
		info := joinInfo32(tt.sym, tt.kind)
		sym, kind := splitInfo32(info)
		if sym != tt.sym || kind != tt.kind {
			t.Fatalf("splitInfo32(joinInfo32(%d,%d)) = (%d,%d)", tt.sym, tt.kind, sym, kind)
		}
	}
}

func TestInfoSplitJoin64(t *testing.T) {
	tests := []struct {
		sym, kind uint32
	}{
		{0, 0}, {1, 1}, {0xffffffff, 0xffffffff}, {123456, 8},
	}
	for _, tt := range tests {
		info := joinInfo64(tt.sym, tt.kind)
		sym, kind := splitInfo64(info)
		if sym != tt.sym || kind != tt.kind {
			t.Fatalf("splitInfo64(joinInfo64(%d,%d)) = (%d,%d)", tt.sym, tt.kind, sym, kind)
		}
	}
}

func sampleRels() []Rel {
	return []Rel{
		{Offset: 0x15, Sym: 97, Kind: 1},
		{Offset: 0x20, Sym: 12, Kind: 2},
		{Offset: 0x39, Sym: 96, Kind: 2},
	}
}

func sampleRelas() []Rela {
	return []Rela{
		{Rel: Rel{Offset: 0x1000, Sym: 5, Kind: 1}, Addend: 0},
		{Rel: Rel{Offset: 0x1008, Sym: 6, Kind: 8}, Addend: -16},
		{Rel: Rel{Offset: 0x1010, Sym: 0, Kind: 8}, Addend: 0x7fffffff},
	}
}

func TestRelsRoundTrip(t *testing.T) {
	for _, desc := range []*Descriptor{&Desc32, &Desc64} {
		t.Run(desc.Class.String(), func(t *testing.T) {
			xs := sampleRels()
			buf := make([]byte, len(xs)*desc.RelSize)
			view, _, err := CreateRels(buf, xs, desc, binary.LittleEndian)
			if err != nil {
				t.Fatalf("CreateRels: %v", err)
			}
			for i, want := range xs {
				got, ok, err := view.At(i)
				if err != nil || !ok || got != want {
					t.Fatalf("At(%d) = %+v, %v, %v, want %+v", i, got, ok, err, want)
				}
			}
		})
	}
}

func TestRelasRoundTrip(t *testing.T) {
	for _, desc := range []*Descriptor{&Desc32, &Desc64} {
		t.Run(desc.Class.String(), func(t *testing.T) {
			xs := sampleRelas()
			buf := make([]byte, len(xs)*desc.RelaSize)
			view, _, err := CreateRelas(buf, xs, desc, binary.LittleEndian)
			if err != nil {
				t.Fatalf("CreateRelas: %v", err)
			}
			for i, want := range xs {
				got, ok, err := view.At(i)
				if err != nil || !ok || got != want {
					t.Fatalf("At(%d) = %+v, %v, %v, want %+v", i, got, ok, err, want)
				}
			}
		})
	}
}

func TestRelasIterLengthStability(t *testing.T) {
	xs := sampleRelas()
	buf := make([]byte, len(xs)*Desc64.RelaSize)
	view, _, _ := CreateRelas(buf, xs, &Desc64, binary.LittleEndian)
	it := view.Iter()
	n := 0
	for {
		if it.Len() != len(xs)-n {
			t.Fatalf("Len() = %d at step %d, want %d", it.Len(), n, len(xs)-n)
		}
		_, ok, err := it.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if !ok {
			break
		}
		n++
	}
	if n != len(xs) {
		t.Fatalf("iterated %d records, want %d", n, len(xs))
	}
}
