package elf

import (
	"encoding/binary"
	"testing"
)

func TestDynKindStrings(t *testing.T) {
	tests := []struct {
		k    DynKind
		want string
	}{
		{DynFlags, "Flags"},
		{DynRel, "Rel"},
		{DynRelSize, "RelSize"},
		{DynRelEntSize, "RelEntSize"},
		{DynSymtab, "Symtab"},
		{DynUnknown, "Unknown"},
	}
	for _, tt := range tests {
		if got := tt.k.String(); got != tt.want {
			t.Errorf("%v.String() = %q, want %q", tt.k, got, tt.want)
		}
	}
}

// s3DynamicEntries reproduces a 17-entry ELF32 dynamic table as it would be
// found in a small dynamically linked binary: a handful of well-known tags
// followed by a vendor-reserved tag the decoder has no name for.
func s3DynamicEntries() []DynamicEntry {
	return []DynamicEntry{
		{Kind: DynNeeded, Tag: 1, Value: 0x10},
		{Kind: DynHash, Tag: 4, Value: 0x1f4},
		{Kind: DynStrtab, Tag: 5, Value: 0x240},
		{Kind: DynSymtab, Tag: 6, Value: 0x1b4},
		{Kind: DynStrtabSize, Tag: 10, Value: 0x60},
		{Kind: DynSymtabEntSize, Tag: 11, Value: 16},
		{Kind: DynInit, Tag: 12, Value: 0x1000},
		{Kind: DynFini, Tag: 13, Value: 0x1100},
		{Kind: DynRel, Tag: 17, Value: 0x2a0},
		{Kind: DynRelSize, Tag: 18, Value: 0x40},
		{Kind: DynRelEntSize, Tag: 19, Value: 8},
		{Kind: DynPltGot, Tag: 3, Value: 0x3000},
		{Kind: DynJmpRel, Tag: 23, Value: 0x2e0},
		{Kind: DynPltRel, Tag: 20, Value: 17},
		{Kind: DynFlags, Tag: 30, Value: 0x8},
		{Kind: DynUnknown, Tag: 0x6ffffffa, Value: 189},
		{Kind: DynNull, Tag: 0, Value: 0},
	}
}

func TestDynamicsExactScenario(t *testing.T) {
	xs := s3DynamicEntries()
	const wantBytes = 136 // 17 entries * 8 bytes (ELF32)
	buf := make([]byte, len(xs)*Desc32.DynSize)
	if len(buf) != wantBytes {
		t.Fatalf("entry table is %d bytes, want %d", len(buf), wantBytes)
	}
	view, leftover, err := CreateDynamics(buf, xs, &Desc32, binary.LittleEndian)
	if err != nil {
		t.Fatalf("CreateDynamics: %v", err)
	}
	if len(leftover) != 0 {
		t.Fatalf("leftover = %d, want 0", len(leftover))
	}
	if view.NumRecords() != len(xs) {
		t.Fatalf("NumRecords() = %d, want %d", view.NumRecords(), len(xs))
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
	unknown, _, _ := view.At(15)
	if unknown.Kind.String() != "Unknown" || unknown.Tag != 0x6ffffffa || unknown.Value != 189 {
		t.Fatalf("vendor-reserved entry decoded wrong: %+v", unknown)
	}
}

func TestDecodeDynTagNeverFails(t *testing.T) {
	for _, tag := range []int64{0, 1, 30, 0x6ffffffa, -1, 9999999} {
		k := decodeDynTag(tag)
		if tag > 30 || tag < 0 {
			if k != DynUnknown {
				t.Errorf("decodeDynTag(%d) = %v, want DynUnknown", tag, k)
			}
		}
	}
}

func TestDynamicsRoundTrip64(t *testing.T) {
	xs := s3DynamicEntries()
	buf := make([]byte, len(xs)*Desc64.DynSize)
	view, _, err := CreateDynamics(buf, xs, &Desc64, binary.BigEndian)
	if err != nil {
		t.Fatalf("CreateDynamics: %v", err)
	}
	for i, want := range xs {
		got, ok, err := view.At(i)
		if err != nil || !ok || got != want {
			t.Fatalf("At(%d) = %+v, %v, %v, want %+v", i, got, ok, err, want)
		}
	}
}
