package elf

import (
	"errors"
	"testing"
)

func TestStringTableLookup(t *testing.T) {
	data := []byte("\x00main\x00printf\x00")
	st := NewStringTable(data)

	tests := []struct {
		name    string
		off     uint32
		want    string
		wantErr error
	}{
		{"empty string at zero", 0, "", nil},
		{"main", 1, "main", nil},
		{"printf", 6, "printf", nil},
		{"mid-string offset", 3, "in", nil},
		{"past end", uint32(len(data) + 1), "", ErrBadString},
		{"at exact end", uint32(len(data)), "", ErrBadString},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := st.String(tt.off)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("String(%d) = %q, want %q", tt.off, got, tt.want)
			}
		})
	}
}

func TestStringTableMissingNUL(t *testing.T) {
	data := []byte("\x00nonterminated")
	st := NewStringTable(data)
	if _, err := st.String(1); !errors.Is(err, ErrBadString) {
		t.Fatalf("err = %v, want ErrBadString", err)
	}
}

func TestStringTableBuilderDedup(t *testing.T) {
	b := NewStringTableBuilder()
	off1 := b.Add("main")
	off2 := b.Add("printf")
	off3 := b.Add("main")
	if off1 != off3 {
		t.Fatalf("duplicate Add returned different offsets: %d vs %d", off1, off3)
	}
	if off1 == off2 {
		t.Fatalf("distinct strings got the same offset")
	}

	table := NewStringTable(b.Bytes())
	got1, err := table.String(off1)
	if err != nil || got1 != "main" {
		t.Fatalf("String(off1) = %q, %v", got1, err)
	}
	got2, err := table.String(off2)
	if err != nil || got2 != "printf" {
		t.Fatalf("String(off2) = %q, %v", got2, err)
	}
}

func TestStringTableBuilderReservesZero(t *testing.T) {
	b := NewStringTableBuilder()
	if b.Bytes()[0] != 0 {
		t.Fatalf("offset 0 must be the empty string")
	}
	table := NewStringTable(b.Bytes())
	got, err := table.String(0)
	if err != nil || got != "" {
		t.Fatalf("String(0) = %q, %v", got, err)
	}
}
