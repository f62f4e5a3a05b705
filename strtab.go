package elf

import (
	"bytes"
	"fmt"
)

// StringTable is a zero-copy view over a section's raw bytes, indexed by
// byte offset rather than by record number: offset 0 is always the empty
// string, and every other valid offset names the NUL-terminated run of
// bytes starting there. It never copies the underlying slice.
type StringTable struct {
	data []byte
}

// NewStringTable wraps b as a string table. Construction never fails: an
// empty or malformed table simply fails individual lookups later, which
// is a linear scan; out-of-range offsets fail.
func NewStringTable(b []byte) StringTable {
	return StringTable{data: b}
}

// String returns the NUL-terminated string starting at off.
func (s StringTable) String(off uint32) (string, error) {
	if int(off) >= len(s.data) {
		return "", fmt.Errorf("%w: offset %d (len %d)", ErrBadString, off, len(s.data))
	}
	end := bytes.IndexByte(s.data[off:], 0)
	if end < 0 {
		return "", fmt.Errorf("%w: no terminating NUL from offset %d", ErrBadString, off)
	}
	return string(s.data[off : int(off)+end]), nil
}

// Len returns the size of the backing byte slice.
func (s StringTable) Len() int { return len(s.data) }

// StringTableBuilder packs strings into a table, deduplicating exact
// matches and always reserving offset 0 for the empty string.
type StringTableBuilder struct {
	buf     bytes.Buffer
	offsets map[string]uint32
}

// NewStringTableBuilder returns a builder seeded with the mandatory
// leading NUL byte at offset 0.
func NewStringTableBuilder() *StringTableBuilder {
	b := &StringTableBuilder{offsets: make(map[string]uint32)}
	b.buf.WriteByte(0)
	b.offsets[""] = 0
	return b
}

// Add interns s, returning its byte offset. A second Add of the same
// string returns the same offset without growing the buffer.
func (b *StringTableBuilder) Add(s string) uint32 {
	if off, ok := b.offsets[s]; ok {
		return off
	}
	off := uint32(b.buf.Len())
	b.buf.WriteString(s)
	b.buf.WriteByte(0)
	b.offsets[s] = off
	return off
}

// Bytes returns the packed table.
func (b *StringTableBuilder) Bytes() []byte { return b.buf.Bytes() }
