package elf

import (
	"bytes"
	"errors"
	"testing"
)

func sampleHeader64() *Header {
	return &Header{
		Class: Class64, Data: Data2LSB, OSABI: 0,
		Type: ET_DYN, Machine: EM_X86_64, Version: EVCurrent,
		Entry: 0x1000, PhOff: 64, ShOff: 0x2000,
		Flags: 0, EhSize: 64, PhEntSize: 56, PhNum: 2,
		ShEntSize: 64, ShNum: 5, ShStrNdx: 4,
	}
}

func sampleHeader32() *Header {
	return &Header{
		Class: Class32, Data: Data2LSB, OSABI: 0,
		Type: ET_EXEC, Machine: EM_386, Version: EVCurrent,
		Entry: 0x08048000, PhOff: 52, ShOff: 0x3000,
		Flags: 0, EhSize: 52, PhEntSize: 32, PhNum: 3,
		ShEntSize: 40, ShNum: 8, ShStrNdx: 7,
	}
}

func TestHeaderMarshalParseRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		h    *Header
	}{
		{"64-bit little-endian", sampleHeader64()},
		{"32-bit little-endian", sampleHeader32()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf, err := tt.h.Marshal()
			if err != nil {
				t.Fatalf("Marshal: %v", err)
			}
			if len(buf) != tt.h.Descriptor().HeaderSize {
				t.Fatalf("Marshal produced %d bytes, want %d", len(buf), tt.h.Descriptor().HeaderSize)
			}
			got, err := ParseHeader(buf)
			if err != nil {
				t.Fatalf("ParseHeader: %v", err)
			}
			if *got != *tt.h {
				t.Fatalf("round trip mismatch: got %+v, want %+v", got, tt.h)
			}
		})
	}
}

func TestParseHeaderRejectsBadMagic(t *testing.T) {
	buf, _ := sampleHeader64().Marshal()
	buf[1] = 'X'
	if _, err := ParseHeader(buf); !errors.Is(err, ErrBadMagic) {
		t.Fatalf("err = %v, want ErrBadMagic", err)
	}
}

func TestParseHeaderRejectsBadClass(t *testing.T) {
	buf, _ := sampleHeader64().Marshal()
	buf[eiClass] = 9
	if _, err := ParseHeader(buf); !errors.Is(err, ErrBadClass) {
		t.Fatalf("err = %v, want ErrBadClass", err)
	}
}

func TestParseHeaderRejectsBadData(t *testing.T) {
	buf, _ := sampleHeader64().Marshal()
	buf[eiData] = 9
	if _, err := ParseHeader(buf); !errors.Is(err, ErrBadData) {
		t.Fatalf("err = %v, want ErrBadData", err)
	}
}

func TestParseHeaderRejectsBadVersion(t *testing.T) {
	buf, _ := sampleHeader64().Marshal()
	buf[eiVersion] = 0
	if _, err := ParseHeader(buf); !errors.Is(err, ErrBadVersion) {
		t.Fatalf("err = %v, want ErrBadVersion", err)
	}
}

func TestParseHeaderRejectsTruncation(t *testing.T) {
	buf, _ := sampleHeader64().Marshal()
	if _, err := ParseHeader(buf[:len(buf)-1]); !errors.Is(err, ErrTooShort) {
		t.Fatalf("err = %v, want ErrTooShort", err)
	}
	if _, err := ParseHeader(buf[:EI_NIDENT-1]); !errors.Is(err, ErrTooShort) {
		t.Fatalf("err = %v, want ErrTooShort", err)
	}
}

func TestHeaderBigEndian(t *testing.T) {
	h := sampleHeader64()
	h.Data = Data2MSB
	buf, err := h.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if got := buf[EI_NIDENT : EI_NIDENT+2]; !bytes.Equal(got, []byte{0x00, byte(ET_DYN)}) {
		t.Fatalf("e_type not big-endian: %x", got)
	}
	got, err := ParseHeader(buf)
	if err != nil {
		t.Fatalf("ParseHeader: %v", err)
	}
	if got.ByteOrder() == nil {
		t.Fatal("expected non-nil byte order")
	}
	if *got != *h {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, h)
	}
}

func TestMachineAndTypeStrings(t *testing.T) {
	if ET_EXEC.String() != "EXEC" || ET_DYN.String() != "DYN" || ET_REL.String() != "REL" {
		t.Errorf("unexpected Type strings")
	}
	if EM_386.String() != "386" || EM_X86_64.String() != "X86_64" {
		t.Errorf("unexpected Machine strings")
	}
	if Machine(9999).String() == "" {
		t.Errorf("unknown machine should still format")
	}
}
