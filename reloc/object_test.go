package reloc

import (
	"encoding/binary"
	"testing"

	"github.com/xyproto/elf"
)

// buildRelObject assembles a minimal ET_REL ELF32 object: a ".text" section
// with a single 4-byte relocation site, a SHT_REL section describing one
// R_386_32 relocation against a defined symbol in ".text" itself, and the
// symbol/string tables SHT_REL needs to resolve it.
func buildRelObject(t *testing.T, kind uint32, symValue uint64, symSection elf.SymSection, symName string, extern map[string]uint64) (f *elf.File, textOff int) {
	t.Helper()
	desc := &elf.Desc32
	order := binary.LittleEndian

	strBuilder := elf.NewStringTableBuilder()
	symNameOff := strBuilder.Add(symName)
	strtabBytes := strBuilder.Bytes()

	shstrBuilder := elf.NewStringTableBuilder()
	shstrtabNameOff := shstrBuilder.Add(".shstrtab")
	textNameOff := shstrBuilder.Add(".text")
	relNameOff := shstrBuilder.Add(".rel.text")
	symtabNameOff := shstrBuilder.Add(".symtab")
	strtabNameOff := shstrBuilder.Add(".strtab")
	shstrtabBytes := shstrBuilder.Bytes()

	symbols := []elf.Symbol{
		{},
		{NameOff: symNameOff, Bind: elf.STB_GLOBAL, Type: elf.STT_FUNC, Section: symSection, Value: symValue},
	}
	symtabBytes := make([]byte, len(symbols)*desc.SymSize)
	if _, _, err := elf.CreateSymbols(symtabBytes, symbols, desc, order); err != nil {
		t.Fatalf("CreateSymbols: %v", err)
	}

	const textSize = 16
	relSite := 4
	rels := []elf.Rel{{Offset: elf.Addr(relSite), Sym: 1, Kind: kind}}
	relBytes := make([]byte, len(rels)*desc.RelSize)
	if _, _, err := elf.CreateRels(relBytes, rels, desc, order); err != nil {
		t.Fatalf("CreateRels: %v", err)
	}

	ehdrSize := desc.HeaderSize
	textOffset := ehdrSize
	relOffset := textOffset + textSize
	symtabOffset := relOffset + len(relBytes)
	strtabOffset := symtabOffset + len(symtabBytes)
	shstrtabOffset := strtabOffset + len(strtabBytes)
	shdrOffset := shstrtabOffset + len(shstrtabBytes)
	const numSections = 6
	shdrSize := numSections * desc.SectHeaderSize
	total := shdrOffset + shdrSize

	buf := make([]byte, total)
	copy(buf[symtabOffset:], symtabBytes)
	copy(buf[strtabOffset:], strtabBytes)
	copy(buf[relOffset:], relBytes)
	copy(buf[shstrtabOffset:], shstrtabBytes)

	sections := []elf.SectionHeader{
		{},
		{NameOff: shstrtabNameOff, Type: elf.SHT_STRTAB, Offset: elf.Off(shstrtabOffset), Size: uint64(len(shstrtabBytes))},
		{NameOff: textNameOff, Type: elf.SHT_PROGBITS, Addr: 0, Offset: elf.Off(textOffset), Size: textSize},
		{NameOff: relNameOff, Type: elf.SHT_REL, Link: 4, Info: 2, Offset: elf.Off(relOffset), Size: uint64(len(relBytes)), EntSize: uint64(desc.RelSize)},
		{NameOff: symtabNameOff, Type: elf.SHT_SYMTAB, Link: 5, Offset: elf.Off(symtabOffset), Size: uint64(len(symtabBytes)), EntSize: uint64(desc.SymSize)},
		{NameOff: strtabNameOff, Type: elf.SHT_STRTAB, Offset: elf.Off(strtabOffset), Size: uint64(len(strtabBytes))},
	}
	shdrBytes := make([]byte, shdrSize)
	if _, _, err := elf.CreateSectionHeaders(shdrBytes, sections, desc, order); err != nil {
		t.Fatalf("CreateSectionHeaders: %v", err)
	}
	copy(buf[shdrOffset:], shdrBytes)

	h := &elf.Header{
		Class: elf.Class32, Data: elf.Data2LSB, Type: elf.ET_REL, Machine: elf.EM_386, Version: elf.EVCurrent,
		ShOff: elf.Off(shdrOffset), EhSize: uint16(ehdrSize), ShEntSize: uint16(desc.SectHeaderSize), ShNum: numSections, ShStrNdx: 1,
	}
	hdrBytes, err := h.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	copy(buf[:ehdrSize], hdrBytes)

	f, err = elf.Open(buf)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return f, textOffset + relSite
}

// TestRelocateObjectAbs32DefinedSymbol relocates an R_386_32 site against a
// symbol defined in the same section; S is just the symbol's own value,
// with no slide involved since ET_REL carries no PT_LOAD segments.
func TestRelocateObjectAbs32DefinedSymbol(t *testing.T) {
	sec := elf.SymSection{Index: 2}
	f, site := buildRelObject(t, r386_32, 0x40, sec, "local_fn", nil)

	out, err := RelocateObject(f, nil)
	if err != nil {
		t.Fatalf("RelocateObject: %v", err)
	}
	got := binary.LittleEndian.Uint32(out[site:])
	if got != 0x40 {
		t.Fatalf("relocated value = %#x, want %#x", got, 0x40)
	}
}

// TestRelocateObjectUndefinedUsesExtern resolves an undefined symbol via
// the extern map, matching a reference pulled in from another translation
// unit at link time.
func TestRelocateObjectUndefinedUsesExtern(t *testing.T) {
	var undef elf.SymSection
	undef.Undefined = true
	f, site := buildRelObject(t, r386_32, 0, undef, "printf", map[string]uint64{"printf": 0x8048000})

	out, err := RelocateObject(f, map[string]uint64{"printf": 0x8048000})
	if err != nil {
		t.Fatalf("RelocateObject: %v", err)
	}
	got := binary.LittleEndian.Uint32(out[site:])
	if got != 0x8048000 {
		t.Fatalf("relocated value = %#x, want %#x", got, 0x8048000)
	}
}

// TestRelocateObjectUndefinedNoExternResolvesZero confirms an unresolved
// weak reference (no extern entry) relocates to S=0 rather than failing.
func TestRelocateObjectUndefinedNoExternResolvesZero(t *testing.T) {
	var undef elf.SymSection
	undef.Undefined = true
	f, site := buildRelObject(t, r386_32, 0, undef, "unresolved", nil)

	out, err := RelocateObject(f, nil)
	if err != nil {
		t.Fatalf("RelocateObject: %v", err)
	}
	got := binary.LittleEndian.Uint32(out[site:])
	if got != 0 {
		t.Fatalf("relocated value = %#x, want 0", got)
	}
}

// TestRelocateObjectAbsoluteSymbol confirms SHN_ABS symbols contribute
// their value directly, ignoring any section placement.
func TestRelocateObjectAbsoluteSymbol(t *testing.T) {
	var abs elf.SymSection
	abs.Absolute = true
	f, site := buildRelObject(t, r386_32, 0xcafe, abs, "ABS_CONST", nil)

	out, err := RelocateObject(f, nil)
	if err != nil {
		t.Fatalf("RelocateObject: %v", err)
	}
	got := binary.LittleEndian.Uint32(out[site:])
	if got != 0xcafe {
		t.Fatalf("relocated value = %#x, want %#x", got, 0xcafe)
	}
}

func TestRelocateObjectRejectsUnsupportedMachine(t *testing.T) {
	sec := elf.SymSection{Index: 2}
	f, _ := buildRelObject(t, r386_32, 0x40, sec, "local_fn", nil)
	f.Header.Machine = elf.Machine(9999)
	if _, err := RelocateObject(f, nil); err == nil {
		t.Fatalf("expected error for unsupported machine")
	}
}
