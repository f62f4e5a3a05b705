package elf

// Class is the EI_CLASS identification byte: selects 32- or 64-bit field
// widths for every record kind below.
type Class byte

const (
	ClassNone Class = 0
	Class32   Class = 1
	Class64   Class = 2
)

func (c Class) String() string {
	switch c {
	case Class32:
		return "ELFCLASS32"
	case Class64:
		return "ELFCLASS64"
	default:
		return "ELFCLASSNONE"
	}
}

// Data is the EI_DATA identification byte: little- or big-endian.
type Data byte

const (
	DataNone Data = 0
	Data2LSB Data = 1
	Data2MSB Data = 2
)

func (d Data) String() string {
	switch d {
	case Data2LSB:
		return "ELFDATA2LSB"
	case Data2MSB:
		return "ELFDATA2MSB"
	default:
		return "ELFDATANONE"
	}
}

// Descriptor carries the record sizes that depend on Class. Addresses,
// offsets, and sizes are always represented as uint64 in memory regardless
// of class; Descriptor only governs how many bytes are read or written on
// the wire and how the composite Rel/Rela info field is split.
type Descriptor struct {
	Class          Class
	IdentSize      int
	HeaderSize     int
	ProgHeaderSize int
	SectHeaderSize int
	SymSize        int
	RelSize        int
	RelaSize       int
	DynSize        int
	AddrSize       int // 4 or 8, width of Addr/Off fields on the wire
}

// Desc32 and Desc64 are the two legal instantiations; every view in this
// package takes one of them.
var (
	Desc32 = Descriptor{
		Class: Class32, IdentSize: EI_NIDENT,
		HeaderSize: 52, ProgHeaderSize: 32, SectHeaderSize: 40,
		SymSize: 16, RelSize: 8, RelaSize: 12, DynSize: 8,
		AddrSize: 4,
	}
	Desc64 = Descriptor{
		Class: Class64, IdentSize: EI_NIDENT,
		HeaderSize: 64, ProgHeaderSize: 56, SectHeaderSize: 64,
		SymSize: 24, RelSize: 16, RelaSize: 24, DynSize: 16,
		AddrSize: 8,
	}
)

// DescriptorFor returns the Descriptor matching a class byte, or an error
// if the class is neither ELFCLASS32 nor ELFCLASS64.
func DescriptorFor(c Class) (*Descriptor, error) {
	switch c {
	case Class32:
		return &Desc32, nil
	case Class64:
		return &Desc64, nil
	default:
		return nil, ErrBadClass
	}
}

// EI_NIDENT is the size of the e_ident byte array at the start of every
// ELF file, shared by both classes.
const EI_NIDENT = 16

// Addr and Off are the in-memory representations of gABI Elf32_Addr /
// Elf64_Addr and Elf32_Off / Elf64_Off. Narrowing to 32 bits happens only
// at the wire boundary (Descriptor.AddrSize), per ClassDescriptor.
type Addr = uint64
type Off = uint64
