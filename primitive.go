package elf

import (
	"encoding/binary"
	"fmt"
)

// Primitive reads and writes are the only place that touches raw bytes.
// Everything above this file works in terms of these, so there is exactly
// one spot that needs to agree with the gABI's "no alignment assumption"
// rule: fields are read and written by byte copies, never by casting a
// slice to a pointer.

func readU16(b []byte, off int, bo binary.ByteOrder) (uint16, error) {
	if off < 0 || off+2 > len(b) {
		return 0, fmt.Errorf("%w: u16 at %d (len %d)", ErrTooShort, off, len(b))
	}
	return bo.Uint16(b[off:]), nil
}

func readU32(b []byte, off int, bo binary.ByteOrder) (uint32, error) {
	if off < 0 || off+4 > len(b) {
		return 0, fmt.Errorf("%w: u32 at %d (len %d)", ErrTooShort, off, len(b))
	}
	return bo.Uint32(b[off:]), nil
}

func readU64(b []byte, off int, bo binary.ByteOrder) (uint64, error) {
	if off < 0 || off+8 > len(b) {
		return 0, fmt.Errorf("%w: u64 at %d (len %d)", ErrTooShort, off, len(b))
	}
	return bo.Uint64(b[off:]), nil
}

func readS32(b []byte, off int, bo binary.ByteOrder) (int32, error) {
	u, err := readU32(b, off, bo)
	return int32(u), err
}

func readS64(b []byte, off int, bo binary.ByteOrder) (int64, error) {
	u, err := readU64(b, off, bo)
	return int64(u), err
}

func writeU16(b []byte, off int, bo binary.ByteOrder, v uint16) error {
	if off < 0 || off+2 > len(b) {
		return fmt.Errorf("%w: u16 at %d (len %d)", ErrCapacityExceeded, off, len(b))
	}
	bo.PutUint16(b[off:], v)
	return nil
}

func writeU32(b []byte, off int, bo binary.ByteOrder, v uint32) error {
	if off < 0 || off+4 > len(b) {
		return fmt.Errorf("%w: u32 at %d (len %d)", ErrCapacityExceeded, off, len(b))
	}
	bo.PutUint32(b[off:], v)
	return nil
}

func writeU64(b []byte, off int, bo binary.ByteOrder, v uint64) error {
	if off < 0 || off+8 > len(b) {
		return fmt.Errorf("%w: u64 at %d (len %d)", ErrCapacityExceeded, off, len(b))
	}
	bo.PutUint64(b[off:], v)
	return nil
}

func writeS32(b []byte, off int, bo binary.ByteOrder, v int32) error {
	return writeU32(b, off, bo, uint32(v))
}

func writeS64(b []byte, off int, bo binary.ByteOrder, v int64) error {
	return writeU64(b, off, bo, uint64(v))
}

func roundUp4(n int) int {
	return (n + 3) &^ 3
}
