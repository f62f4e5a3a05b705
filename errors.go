package elf

import "errors"

// Sentinel errors returned by the view constructors, record decoders, and
// the relocator. Callers discriminate with errors.Is; wrapping preserves
// the sentinel while adding the byte offsets or indices that produced it.
var (
	ErrTooShort         = errors.New("elf: buffer too short")
	ErrBadMagic         = errors.New("elf: bad magic number")
	ErrBadClass         = errors.New("elf: bad class byte")
	ErrBadData          = errors.New("elf: bad data encoding byte")
	ErrBadVersion       = errors.New("elf: bad version")
	ErrBadFormat        = errors.New("elf: malformed record")
	ErrBadKind          = errors.New("elf: unknown relocation kind")
	ErrBadSymbol        = errors.New("elf: symbol index out of range")
	ErrBadString        = errors.New("elf: string table offset out of range")
	ErrOutOfRange       = errors.New("elf: value out of range")
	ErrCapacityExceeded = errors.New("elf: output buffer too small")
)
