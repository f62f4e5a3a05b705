// Package reloc decodes raw relocation records into architecture-specific
// tagged variants and applies them against a loaded image.
// x86 and x86-64 are peers, kept as sibling files rather than unified
// behind a generic "instruction" abstraction — the same convention the
// teacher uses for per-width arithmetic helpers like div.go and shl.go.
package reloc

import (
	"fmt"

	"github.com/xyproto/elf"
)

// Raw R_386_* numeric codes, per the gABI / glibc elf.h.
const (
	r386None       = 0
	r386_32        = 1
	r386PC32       = 2
	r386GOT32      = 3
	r386PLT32      = 4
	r386Copy       = 5
	r386GlobDat    = 6
	r386JmpSlot    = 7
	r386Relative   = 8
	r386GotOff     = 9
	r386GotPC      = 10
	r386TLSGDCall  = 26
	r386TLSLDMCall = 30
	r386TLSLDO32   = 32
	r386TLSIE      = 15
	r386TLSLE      = 17
	r386TLSDTPMod32 = 35
	r386TLSDTPOff32 = 36
	r386TLSTPOff32  = 37
	r386Size32      = 38
)

// X86Kind is the tagged relocation variant for 32-bit x86.
type X86Kind int

const (
	X86None X86Kind = iota
	X86Abs32
	X86PC32
	X86GOT32
	X86PLT32
	X86Copy
	X86GlobDat
	X86JmpSlot
	X86Relative
	X86GotOff
	X86GotPC
	X86TlsGdPlt
	X86TlsLdmPlt
	X86TlsLdo32
	X86TlsIE
	X86TlsLE
	X86TlsDtpMod32
	X86TlsDtpOff32
	X86TlsTpOff32
	X86Size32
)

func (k X86Kind) String() string {
	switch k {
	case X86None:
		return "None"
	case X86Abs32:
		return "Abs32"
	case X86PC32:
		return "PC32"
	case X86GOT32:
		return "GOT32"
	case X86PLT32:
		return "PLT32"
	case X86Copy:
		return "Copy"
	case X86GlobDat:
		return "GlobDat"
	case X86JmpSlot:
		return "JmpSlot"
	case X86Relative:
		return "Relative"
	case X86GotOff:
		return "GotOff"
	case X86GotPC:
		return "GotPC"
	case X86TlsGdPlt:
		return "TlsGdPlt"
	case X86TlsLdmPlt:
		return "TlsLdmPlt"
	case X86TlsLdo32:
		return "TlsLdo32"
	case X86TlsIE:
		return "TlsIE"
	case X86TlsLE:
		return "TlsLE"
	case X86TlsDtpMod32:
		return "TlsDtpMod32"
	case X86TlsDtpOff32:
		return "TlsDtpOff32"
	case X86TlsTpOff32:
		return "TlsTpOff32"
	case X86Size32:
		return "Size32"
	default:
		return fmt.Sprintf("X86Kind(%d)", int(k))
	}
}

// X86Reloc is a fully decoded x86 relocation: the tagged Kind plus the
// fields every variant needs (symbol index, target offset, addend — for
// Rel-sourced records, the value the caller read from the target site).
type X86Reloc struct {
	Kind   X86Kind
	Offset elf.Addr
	Sym    uint32
	Addend int64
}

var x86KindToRaw = map[X86Kind]uint32{
	X86None:        r386None,
	X86Abs32:       r386_32,
	X86PC32:        r386PC32,
	X86GOT32:       r386GOT32,
	X86PLT32:       r386PLT32,
	X86Copy:        r386Copy,
	X86GlobDat:     r386GlobDat,
	X86JmpSlot:     r386JmpSlot,
	X86Relative:    r386Relative,
	X86GotOff:      r386GotOff,
	X86GotPC:       r386GotPC,
	X86TlsGdPlt:    r386TLSGDCall,
	X86TlsLdmPlt:   r386TLSLDMCall,
	X86TlsLdo32:    r386TLSLDO32,
	X86TlsIE:       r386TLSIE,
	X86TlsLE:       r386TLSLE,
	X86TlsDtpMod32: r386TLSDTPMod32,
	X86TlsDtpOff32: r386TLSDTPOff32,
	X86TlsTpOff32:  r386TLSTPOff32,
	X86Size32:      r386Size32,
}

var x86RawToKind = func() map[uint32]X86Kind {
	m := make(map[uint32]X86Kind, len(x86KindToRaw))
	for k, v := range x86KindToRaw {
		m[v] = k
	}
	return m
}()

// DecodeX86Rel converts a raw Rel record into a tagged X86Reloc. Rel
// carries no explicit addend on x86: the caller reads it
// from the image at the target offset and passes it in.
func DecodeX86Rel(r elf.Rel, addend int64) (X86Reloc, error) {
	kind, ok := x86RawToKind[r.Kind]
	if !ok {
		return X86Reloc{}, fmt.Errorf("%w: R_386 kind %d", elf.ErrBadKind, r.Kind)
	}
	return X86Reloc{Kind: kind, Offset: r.Offset, Sym: r.Sym, Addend: addend}, nil
}

// DecodeX86Rela converts a raw Rela record into a tagged X86Reloc.
func DecodeX86Rela(r elf.Rela) (X86Reloc, error) {
	kind, ok := x86RawToKind[r.Kind]
	if !ok {
		return X86Reloc{}, fmt.Errorf("%w: R_386 kind %d", elf.ErrBadKind, r.Kind)
	}
	return X86Reloc{Kind: kind, Offset: r.Offset, Sym: r.Sym, Addend: r.Addend}, nil
}

// EncodeX86Rel is the writer-path inverse of DecodeX86Rel: the
// architecture decoders get a complete writer path so the encode/decode
// round trip holds for them too.
func EncodeX86Rel(rc X86Reloc) (elf.Rel, error) {
	raw, ok := x86KindToRaw[rc.Kind]
	if !ok {
		return elf.Rel{}, fmt.Errorf("%w: X86Kind %v", elf.ErrBadKind, rc.Kind)
	}
	return elf.Rel{Offset: rc.Offset, Sym: rc.Sym, Kind: raw}, nil
}

// EncodeX86Rela is the writer-path inverse of DecodeX86Rela.
func EncodeX86Rela(rc X86Reloc) (elf.Rela, error) {
	raw, ok := x86KindToRaw[rc.Kind]
	if !ok {
		return elf.Rela{}, fmt.Errorf("%w: X86Kind %v", elf.ErrBadKind, rc.Kind)
	}
	return elf.Rela{Rel: elf.Rel{Offset: rc.Offset, Sym: rc.Sym, Kind: raw}, Addend: rc.Addend}, nil
}
