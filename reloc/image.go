package reloc

import (
	"fmt"

	"github.com/xyproto/elf"
)

// Image is the mutable byte buffer a relocated program would occupy once
// loaded at a chosen base virtual address. It is
// created once, written by copying PT_LOAD segments, and then mutated
// once per applied relocation.
type Image struct {
	Data      []byte
	LinkVAddr uint64 // base_vaddr: min(p_vaddr) among PT_LOAD segments
	Base      uint64 // B: the caller-chosen load address
}

// Slide is the effective relocation base delta: B - base_vaddr.
func (img *Image) Slide() uint64 { return img.Base - img.LinkVAddr }

// Offset maps a link-time virtual address into an index into img.Data.
func (img *Image) Offset(vaddr uint64) (int, error) {
	if vaddr < img.LinkVAddr {
		return 0, fmt.Errorf("%w: vaddr %#x below image base %#x", elf.ErrOutOfRange, vaddr, img.LinkVAddr)
	}
	off := int(vaddr - img.LinkVAddr)
	if off > len(img.Data) {
		return 0, fmt.Errorf("%w: vaddr %#x beyond image end", elf.ErrOutOfRange, vaddr)
	}
	return off, nil
}

// computeExtent walks every PT_LOAD segment and returns the image's base
// virtual address and total size: the image must cover
// [min(p_vaddr), max(p_vaddr+p_memsz)).
func computeExtent(f *elf.File) (base uint64, size uint64, err error) {
	first := true
	var lo, hi uint64
	it := f.Progs.Iter()
	for {
		ph, ok, err := it.Next()
		if err != nil {
			return 0, 0, err
		}
		if !ok {
			break
		}
		if ph.Type != elf.PT_LOAD {
			continue
		}
		if err := ph.Valid(); err != nil {
			return 0, 0, err
		}
		end := ph.VAddr + ph.MemSz
		if first {
			lo, hi = ph.VAddr, end
			first = false
			continue
		}
		if ph.VAddr < lo {
			lo = ph.VAddr
		}
		if end > hi {
			hi = end
		}
	}
	if first {
		return 0, 0, fmt.Errorf("%w: no PT_LOAD segments", elf.ErrBadFormat)
	}
	return lo, hi - lo, nil
}

// NewImage allocates a zero-initialized image sized to cover every
// PT_LOAD segment and copies each segment's file content in. NOBITS/BSS regions stay zero because p_memsz > p_filesz for them.
func NewImage(f *elf.File, base uint64) (*Image, error) {
	linkBase, size, err := computeExtent(f)
	if err != nil {
		return nil, err
	}
	img := &Image{Data: make([]byte, size), LinkVAddr: linkBase, Base: base}

	it := f.Progs.Iter()
	for {
		ph, ok, err := it.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		if ph.Type != elf.PT_LOAD || ph.FileSz == 0 {
			continue
		}
		srcStart := int(ph.Offset)
		srcEnd := srcStart + int(ph.FileSz)
		if srcStart < 0 || srcEnd > len(f.Data) {
			return nil, fmt.Errorf("%w: segment file range [%d,%d)", elf.ErrOutOfRange, srcStart, srcEnd)
		}
		dstStart := int(ph.VAddr - linkBase)
		dstEnd := dstStart + int(ph.FileSz)
		if dstStart < 0 || dstEnd > len(img.Data) {
			return nil, fmt.Errorf("%w: segment image range [%d,%d)", elf.ErrOutOfRange, dstStart, dstEnd)
		}
		copy(img.Data[dstStart:dstEnd], f.Data[srcStart:srcEnd])
	}
	return img, nil
}
