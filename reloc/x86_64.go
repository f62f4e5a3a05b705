package reloc

import (
	"fmt"

	"github.com/xyproto/elf"
)

// Raw R_X86_64_* numeric codes, per the gABI / glibc elf.h.
const (
	rX8664None      = 0
	rX8664_64       = 1
	rX8664PC32      = 2
	rX8664GOT32     = 3
	rX8664PLT32     = 4
	rX8664Copy      = 5
	rX8664GlobDat   = 6
	rX8664JumpSlot  = 7
	rX8664Relative  = 8
	rX8664GotPCRel  = 9
	rX8664_32       = 10
	rX8664_32S      = 11
	rX8664DTPMod64  = 16
	rX8664DTPOff64  = 17
	rX8664TPOff64   = 18
	rX8664TLSGD     = 19
	rX8664TLSLD     = 20
	rX8664DTPOff32  = 21
	rX8664GotTPOff  = 22
	rX8664TPOff32   = 23
	rX8664PC64      = 24
	rX8664GotOff64  = 25
	rX8664GotPC32   = 26
	rX8664Size32    = 32
	rX8664Size64    = 33
)

// X64Kind is the tagged relocation variant for x86-64.
type X64Kind int

const (
	X64None X64Kind = iota
	X64Abs64
	X64PC32
	X64GOT32
	X64PLT32
	X64Copy
	X64GlobDat
	X64JumpSlot
	X64Relative
	X64GotPCRel
	X64Abs32
	X64Abs32Signed
	X64DtpMod64
	X64DtpOff64
	X64TpOff64
	X64TlsGD
	X64TlsLD
	X64DtpOff32
	X64GotTpOff
	X64TpOff32
	X64PC64
	X64GotOff64
	X64GotPC32
	X64Size32
	X64Size64
)

func (k X64Kind) String() string {
	switch k {
	case X64None:
		return "None"
	case X64Abs64:
		return "Abs64"
	case X64PC32:
		return "PC32"
	case X64GOT32:
		return "GOT32"
	case X64PLT32:
		return "PLT32"
	case X64Copy:
		return "Copy"
	case X64GlobDat:
		return "GlobDat"
	case X64JumpSlot:
		return "JumpSlot"
	case X64Relative:
		return "Relative"
	case X64GotPCRel:
		return "GotPCRel"
	case X64Abs32:
		return "Abs32"
	case X64Abs32Signed:
		return "Abs32Signed"
	case X64DtpMod64:
		return "DtpMod64"
	case X64DtpOff64:
		return "DtpOff64"
	case X64TpOff64:
		return "TpOff64"
	case X64TlsGD:
		return "TlsGD"
	case X64TlsLD:
		return "TlsLD"
	case X64DtpOff32:
		return "DtpOff32"
	case X64GotTpOff:
		return "GotTpOff"
	case X64TpOff32:
		return "TpOff32"
	case X64PC64:
		return "PC64"
	case X64GotOff64:
		return "GotOff64"
	case X64GotPC32:
		return "GotPC32"
	case X64Size32:
		return "Size32"
	case X64Size64:
		return "Size64"
	default:
		return fmt.Sprintf("X64Kind(%d)", int(k))
	}
}

// X64Reloc is a fully decoded x86-64 relocation.
type X64Reloc struct {
	Kind   X64Kind
	Offset elf.Addr
	Sym    uint32
	Addend int64
}

var x64KindToRaw = map[X64Kind]uint32{
	X64None:        rX8664None,
	X64Abs64:       rX8664_64,
	X64PC32:        rX8664PC32,
	X64GOT32:       rX8664GOT32,
	X64PLT32:       rX8664PLT32,
	X64Copy:        rX8664Copy,
	X64GlobDat:     rX8664GlobDat,
	X64JumpSlot:    rX8664JumpSlot,
	X64Relative:    rX8664Relative,
	X64GotPCRel:    rX8664GotPCRel,
	X64Abs32:       rX8664_32,
	X64Abs32Signed: rX8664_32S,
	X64DtpMod64:    rX8664DTPMod64,
	X64DtpOff64:    rX8664DTPOff64,
	X64TpOff64:     rX8664TPOff64,
	X64TlsGD:       rX8664TLSGD,
	X64TlsLD:       rX8664TLSLD,
	X64DtpOff32:    rX8664DTPOff32,
	X64GotTpOff:    rX8664GotTPOff,
	X64TpOff32:     rX8664TPOff32,
	X64PC64:        rX8664PC64,
	X64GotOff64:    rX8664GotOff64,
	X64GotPC32:     rX8664GotPC32,
	X64Size32:      rX8664Size32,
	X64Size64:      rX8664Size64,
}

var x64RawToKind = func() map[uint32]X64Kind {
	m := make(map[uint32]X64Kind, len(x64KindToRaw))
	for k, v := range x64KindToRaw {
		m[v] = k
	}
	return m
}()

// DecodeX64Rela converts a raw Rela record into a tagged X64Reloc. x86-64
// object files use Rela exclusively in practice (there is no native Rel form
// for x86-64), but DecodeX64Rel is still provided
// for completeness and for hand-built test fixtures.
func DecodeX64Rela(r elf.Rela) (X64Reloc, error) {
	kind, ok := x64RawToKind[r.Kind]
	if !ok {
		return X64Reloc{}, fmt.Errorf("%w: R_X86_64 kind %d", elf.ErrBadKind, r.Kind)
	}
	return X64Reloc{Kind: kind, Offset: r.Offset, Sym: r.Sym, Addend: r.Addend}, nil
}

// DecodeX64Rel converts a raw Rel record into a tagged X64Reloc with the
// caller-supplied addend (read from the image, mirroring x86).
func DecodeX64Rel(r elf.Rel, addend int64) (X64Reloc, error) {
	kind, ok := x64RawToKind[r.Kind]
	if !ok {
		return X64Reloc{}, fmt.Errorf("%w: R_X86_64 kind %d", elf.ErrBadKind, r.Kind)
	}
	return X64Reloc{Kind: kind, Offset: r.Offset, Sym: r.Sym, Addend: addend}, nil
}

// EncodeX64Rela is the writer-path inverse of DecodeX64Rela, completing the
// writer path for the architecture decoders.
func EncodeX64Rela(rc X64Reloc) (elf.Rela, error) {
	raw, ok := x64KindToRaw[rc.Kind]
	if !ok {
		return elf.Rela{}, fmt.Errorf("%w: X64Kind %v", elf.ErrBadKind, rc.Kind)
	}
	return elf.Rela{Rel: elf.Rel{Offset: rc.Offset, Sym: rc.Sym, Kind: raw}, Addend: rc.Addend}, nil
}

// EncodeX64Rel is the writer-path inverse of DecodeX64Rel.
func EncodeX64Rel(rc X64Reloc) (elf.Rel, error) {
	raw, ok := x64KindToRaw[rc.Kind]
	if !ok {
		return elf.Rel{}, fmt.Errorf("%w: X64Kind %v", elf.ErrBadKind, rc.Kind)
	}
	return elf.Rel{Offset: rc.Offset, Sym: rc.Sym, Kind: raw}, nil
}
