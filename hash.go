package elf

import (
	"encoding/binary"
	"fmt"
)

// SysVHash computes the classic 32-bit ELF symbol hash used by SysV .hash sections.
func SysVHash(name string) uint32 {
	var h uint32
	for i := 0; i < len(name); i++ {
		h = (h << 4) + uint32(name[i])
		if g := h & 0xf0000000; g != 0 {
			h ^= g >> 24
			h &^= g
		}
	}
	return h
}

// HashTable is a zero-copy view over a .hash section: nbucket and nchain
// words followed by the bucket and chain arrays themselves.
type HashTable struct {
	nbucket uint32
	nchain  uint32
	bucket  []uint32
	chain   []uint32
}

// NewHashTable parses b, which must hold at least the two header words
// plus nbucket + nchain entries, each a 32-bit word regardless of class
// (the .hash section format is fixed at 32 bits by the gABI even for
// ELF64).
func NewHashTable(b []byte, order binary.ByteOrder) (HashTable, error) {
	if len(b) < 8 {
		return HashTable{}, fmt.Errorf("%w: hash table header", ErrTooShort)
	}
	nbucket, _ := readU32(b, 0, order)
	nchain, _ := readU32(b, 4, order)
	need := 8 + 4*int(nbucket) + 4*int(nchain)
	if len(b) < need {
		return HashTable{}, fmt.Errorf("%w: hash table body: need %d have %d", ErrTooShort, need, len(b))
	}
	bucket := make([]uint32, nbucket)
	for i := range bucket {
		bucket[i], _ = readU32(b, 8+4*i, order)
	}
	chain := make([]uint32, nchain)
	base := 8 + 4*int(nbucket)
	for i := range chain {
		chain[i], _ = readU32(b, base+4*i, order)
	}
	return HashTable{nbucket: nbucket, nchain: nchain, bucket: bucket, chain: chain}, nil
}

// NumChains is the size of the dynamic symbol table this hash section
// implies: symtab size = max(nchain, highest chain hit), where a hit is
// any symbol index named in the bucket or chain arrays.
func (h HashTable) NumChains() uint32 {
	n := h.nchain
	for _, idxs := range [][]uint32{h.bucket, h.chain} {
		for _, i := range idxs {
			if i >= n {
				n = i + 1
			}
		}
	}
	return n
}

// Lookup walks bucket[hash(name) % nbucket] through the chain array,
// calling nameAt to compare candidate symbol indices against name. It
// returns the matching symbol index and true, or false if the chain ends
// (index 0) without a match.
func (h HashTable) Lookup(name string, nameAt func(symIndex uint32) (string, error)) (uint32, bool, error) {
	if h.nbucket == 0 {
		return 0, false, nil
	}
	i := h.bucket[SysVHash(name)%h.nbucket]
	for i != 0 {
		candidate, err := nameAt(i)
		if err != nil {
			return 0, false, err
		}
		if candidate == name {
			return i, true, nil
		}
		if i >= uint32(len(h.chain)) {
			return 0, false, fmt.Errorf("%w: hash chain index %d out of range", ErrBadFormat, i)
		}
		i = h.chain[i]
	}
	return 0, false, nil
}
