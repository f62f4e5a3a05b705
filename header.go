package elf

import (
	"encoding/binary"
	"fmt"
)

// e_ident byte offsets.
const (
	eiMag0    = 0
	eiClass   = 4
	eiData    = 5
	eiVersion = 6
	eiOSABI   = 7
)

// Magic is the four-byte ELF magic number at the start of every file.
var Magic = [4]byte{0x7f, 'E', 'L', 'F'}

// EV_CURRENT, the only version this package understands.
const EVCurrent = 1

// Object file type (e_type).
type Type uint16

const (
	ET_NONE Type = 0
	ET_REL  Type = 1
	ET_EXEC Type = 2
	ET_DYN  Type = 3
	ET_CORE Type = 4
)

func (t Type) String() string {
	switch t {
	case ET_NONE:
		return "NONE"
	case ET_REL:
		return "REL"
	case ET_EXEC:
		return "EXEC"
	case ET_DYN:
		return "DYN"
	case ET_CORE:
		return "CORE"
	default:
		return fmt.Sprintf("Type(%d)", uint16(t))
	}
}

// Machine identifies the target instruction set architecture (e_machine).
// Only the two architectures the relocator supports get named constants;
// any other value round-trips through Header without complaint, since
// The relocation engine (not the record-level views here) is scoped to x86 and
// x86-64.
type Machine uint16

const (
	EM_NONE    Machine = 0
	EM_386     Machine = 3
	EM_X86_64  Machine = 62
)

func (m Machine) String() string {
	switch m {
	case EM_386:
		return "386"
	case EM_X86_64:
		return "X86_64"
	default:
		return fmt.Sprintf("Machine(%d)", uint16(m))
	}
}

// Header is the fully decoded ELF file header (e_ident plus the rest of
// Elf32_Ehdr / Elf64_Ehdr). Addresses and offsets are stored widened to
// uint64 regardless of class.
type Header struct {
	Class      Class
	Data       Data
	OSABI      byte
	Type       Type
	Machine    Machine
	Version    uint32
	Entry      Addr
	PhOff      Off
	ShOff      Off
	Flags      uint32
	EhSize     uint16
	PhEntSize  uint16
	PhNum      uint16
	ShEntSize  uint16
	ShNum      uint16
	ShStrNdx   uint16
}

func byteOrderFor(d Data) (binary.ByteOrder, error) {
	switch d {
	case Data2LSB:
		return binary.LittleEndian, nil
	case Data2MSB:
		return binary.BigEndian, nil
	default:
		return nil, ErrBadData
	}
}

// ParseHeader decodes the single Header record at the start of b. It is
// the one view in this package that is never "indexed" — a file has
// exactly one header — so it has no num_records/idx/iter trio; it simply
// parses or fails.
func ParseHeader(b []byte) (*Header, error) {
	if len(b) < EI_NIDENT {
		return nil, fmt.Errorf("%w: e_ident", ErrTooShort)
	}
	if b[0] != Magic[0] || b[1] != Magic[1] || b[2] != Magic[2] || b[3] != Magic[3] {
		return nil, ErrBadMagic
	}
	class := Class(b[eiClass])
	desc, err := DescriptorFor(class)
	if err != nil {
		return nil, err
	}
	data := Data(b[eiData])
	bo, err := byteOrderFor(data)
	if err != nil {
		return nil, err
	}
	if b[eiVersion] != EVCurrent {
		return nil, ErrBadVersion
	}
	if len(b) < desc.HeaderSize {
		return nil, fmt.Errorf("%w: header", ErrTooShort)
	}

	h := &Header{Class: class, Data: data, OSABI: b[eiOSABI]}

	off := EI_NIDENT
	u16 := func() uint16 { v, _ := readU16(b, off, bo); off += 2; return v }
	u32 := func() uint32 { v, _ := readU32(b, off, bo); off += 4; return v }
	addrOff := func() uint64 {
		if desc.AddrSize == 8 {
			v, _ := readU64(b, off, bo)
			off += 8
			return v
		}
		v, _ := readU32(b, off, bo)
		off += 4
		return uint64(v)
	}

	h.Type = Type(u16())
	h.Machine = Machine(u16())
	h.Version = u32()
	h.Entry = addrOff()
	h.PhOff = addrOff()
	h.ShOff = addrOff()
	h.Flags = u32()
	h.EhSize = u16()
	h.PhEntSize = u16()
	h.PhNum = u16()
	h.ShEntSize = u16()
	h.ShNum = u16()
	h.ShStrNdx = u16()

	if h.Version != EVCurrent {
		return nil, ErrBadVersion
	}
	return h, nil
}

// Descriptor returns the ClassDescriptor matching h.Class.
func (h *Header) Descriptor() *Descriptor {
	d, _ := DescriptorFor(h.Class)
	return d
}

// ByteOrder returns the decoded byte order as a binary.ByteOrder, ready to
// hand to every other view constructor in this package.
func (h *Header) ByteOrder() binary.ByteOrder {
	bo, _ := byteOrderFor(h.Data)
	return bo
}

// Marshal encodes h into exactly desc.HeaderSize bytes.
func (h *Header) Marshal() ([]byte, error) {
	desc, err := DescriptorFor(h.Class)
	if err != nil {
		return nil, err
	}
	bo, err := byteOrderFor(h.Data)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, desc.HeaderSize)
	copy(buf[0:4], Magic[:])
	buf[eiClass] = byte(h.Class)
	buf[eiData] = byte(h.Data)
	buf[eiVersion] = EVCurrent
	buf[eiOSABI] = h.OSABI

	off := EI_NIDENT
	putU16 := func(v uint16) { writeU16(buf, off, bo, v); off += 2 }
	putU32 := func(v uint32) { writeU32(buf, off, bo, v); off += 4 }
	putAddrOff := func(v uint64) {
		if desc.AddrSize == 8 {
			writeU64(buf, off, bo, v)
			off += 8
		} else {
			writeU32(buf, off, bo, uint32(v))
			off += 4
		}
	}

	putU16(uint16(h.Type))
	putU16(uint16(h.Machine))
	putU32(EVCurrent)
	putAddrOff(h.Entry)
	putAddrOff(h.PhOff)
	putAddrOff(h.ShOff)
	putU32(h.Flags)
	putU16(uint16(desc.HeaderSize))
	putU16(uint16(desc.ProgHeaderSize))
	putU16(h.PhNum)
	putU16(uint16(desc.SectHeaderSize))
	putU16(h.ShNum)
	putU16(h.ShStrNdx)

	return buf, nil
}
