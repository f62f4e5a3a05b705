package reloc

import (
	"fmt"

	"github.com/xyproto/elf"
)

// RelocateObject applies the relocation sections of a relocatable (ET_REL)
// object directly against a copy of its own section bytes: ET_REL
// inputs carry no PT_LOAD segments, so there is no virtual-address image
// to build — relocation targets are offsets
// within the target section itself, and symbol values are whatever the
// compiler already assigned (section-relative, mostly zero for anything
// not yet placed by a real linker).
//
// extern, if non-nil, supplies the loaded value for symbols that are
// still SHN_UNDEF in the object (functions/data pulled in from other
// translation units); an undefined symbol with no entry in extern
// resolves to S=0, matching an unresolved weak reference.
func RelocateObject(f *elf.File, extern map[string]uint64) ([]byte, error) {
	out := make([]byte, len(f.Data))
	copy(out, f.Data)

	it := f.Sects.Iter()
	for i := 0; ; i++ {
		sh, ok, err := it.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		if sh.Type != elf.SHT_REL && sh.Type != elf.SHT_RELA {
			continue
		}

		targetIdx := int(sh.Info)
		targetSh, ok, err := f.Sects.At(targetIdx)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: relocation target section %d", elf.ErrOutOfRange, targetIdx)
		}
		targetStart := int(targetSh.Offset)
		targetEnd := targetStart + int(targetSh.Size)
		if targetStart < 0 || targetEnd > len(out) {
			return nil, fmt.Errorf("%w: relocation target section range", elf.ErrOutOfRange)
		}

		syms, strs, err := f.Symbols(int(sh.Link))
		if err != nil {
			return nil, err
		}

		resolveSym := func(idx uint32) (uint64, error) {
			sym, ok, err := syms.At(int(idx))
			if err != nil {
				return 0, err
			}
			if !ok {
				return 0, fmt.Errorf("%w: symbol index %d", elf.ErrBadSymbol, idx)
			}
			if sym.Section.Absolute {
				return sym.Value, nil
			}
			if sym.Section.Undefined {
				if extern != nil {
					if name, err := sym.Name(strs); err == nil {
						if v, ok := extern[name]; ok {
							return v, nil
						}
					}
				}
				return 0, nil
			}
			return sym.Value, nil
		}

		apply := func(offset, sym, kind uint32, addend int64) error {
			siteOff := targetStart + int(offset)
			if siteOff < targetStart || siteOff+4 > targetEnd {
				return fmt.Errorf("%w: relocation site %#x outside target section", elf.ErrOutOfRange, offset)
			}
			S, err := resolveSym(sym)
			if err != nil {
				return err
			}
			switch f.Header.Machine {
			case elf.EM_386:
				rc, err := DecodeX86Rel(elf.Rel{Offset: uint64(offset), Sym: sym, Kind: kind}, addend)
				if err != nil {
					return err
				}
				switch rc.Kind {
				case X86Abs32:
					f.Order.PutUint32(out[siteOff:], uint32(S+uint64(rc.Addend)))
				case X86PC32:
					P := targetSh.Addr + uint64(offset)
					f.Order.PutUint32(out[siteOff:], uint32(int32(int64(S)+rc.Addend-int64(P))))
				default:
					return fmt.Errorf("%w: %v unsupported without a link-time layout", elf.ErrOutOfRange, rc.Kind)
				}
			case elf.EM_X86_64:
				rc, err := DecodeX64Rela(elf.Rela{Rel: elf.Rel{Offset: uint64(offset), Sym: sym, Kind: kind}, Addend: addend})
				if err != nil {
					return err
				}
				switch rc.Kind {
				case X64Abs64:
					f.Order.PutUint64(out[siteOff:], S+uint64(rc.Addend))
				case X64PC32:
					P := targetSh.Addr + uint64(offset)
					f.Order.PutUint32(out[siteOff:], uint32(int32(int64(S)+rc.Addend-int64(P))))
				default:
					return fmt.Errorf("%w: %v unsupported without a link-time layout", elf.ErrOutOfRange, rc.Kind)
				}
			default:
				return fmt.Errorf("%w: machine %v", elf.ErrBadFormat, f.Header.Machine)
			}
			return nil
		}

		data, err := f.SectionData(i)
		if err != nil {
			return nil, err
		}
		if sh.Type == elf.SHT_RELA {
			relas, err := elf.NewRelas(data, f.Desc, f.Order)
			if err != nil {
				return nil, err
			}
			relIt := relas.Iter()
			for {
				r, ok, err := relIt.Next()
				if err != nil {
					return nil, err
				}
				if !ok {
					break
				}
				if err := apply(uint32(r.Offset), r.Sym, r.Kind, r.Addend); err != nil {
					return nil, err
				}
			}
			continue
		}
		rels, err := elf.NewRels(data, f.Desc, f.Order)
		if err != nil {
			return nil, err
		}
		relIt := rels.Iter()
		for {
			r, ok, err := relIt.Next()
			if err != nil {
				return nil, err
			}
			if !ok {
				break
			}
			siteOff := targetStart + int(r.Offset)
			var addend int64
			if siteOff+4 <= targetEnd {
				addend = int64(int32(f.Order.Uint32(out[siteOff:])))
			}
			if err := apply(uint32(r.Offset), r.Sym, r.Kind, addend); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}
