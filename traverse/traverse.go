// Package traverse walks a parsed ELF file and yields one observable
// record per header, symbol, relocation, dynamic entry, and note it
// visits — the test collaborator described in spec component 14, and the
// system-level "traverse" driver original_source kept under
// tests/system/traverse: a read-only visitor good for both equality-check
// test fixtures and human-readable dumps.
package traverse

import (
	"fmt"

	"github.com/xyproto/elf"
)

// Sink receives one call per record Walk visits, in file order: the
// header first, then every program header, then each section header in
// turn, followed directly — for sections typed SYMTAB/DYNSYM, REL, RELA,
// DYNAMIC, or NOTE — by every record inside that section.
type Sink interface {
	Header(h *elf.Header)
	ProgramHeader(i int, ph elf.ProgramHeader)
	SectionHeader(i int, name string, sh elf.SectionHeader)
	Symbol(sectionIdx, symIdx int, name string, s elf.Symbol)
	Rel(sectionIdx, relIdx int, r elf.Rel)
	Rela(sectionIdx, relIdx int, r elf.Rela)
	Dynamic(sectionIdx, entIdx int, e elf.DynamicEntry)
	Note(sectionIdx, noteIdx int, n elf.NoteRecord)
}

// Logger receives optional progress strings as Walk visits sections. It is
// never required: a nil Logger passed to WalkWithLogger means silence, and
// Walk itself never logs at all. log.New(os.Stderr, "", 0) satisfies this
// without adaptation.
type Logger interface {
	Printf(format string, args ...any)
}

// Walk visits every record in f and reports each one to sink. It never
// mutates f or its backing buffer.
func Walk(f *elf.File, sink Sink) error {
	return WalkWithLogger(f, sink, nil)
}

// WalkWithLogger is Walk plus an optional Logger that receives one line for
// the header, one line counting the program headers when there are any,
// and one line per section visited, naming its index, name, type, and
// size. Pass a nil logger to get Walk's silent behavior.
func WalkWithLogger(f *elf.File, sink Sink, logger Logger) error {
	sink.Header(f.Header)
	if logger != nil {
		logger.Printf("header: class=%v machine=%v type=%v", f.Desc.Class, f.Header.Machine, f.Header.Type)
	}

	pit := f.Progs.Iter()
	for i := 0; ; i++ {
		ph, ok, err := pit.Next()
		if err != nil {
			return fmt.Errorf("program header %d: %w", i, err)
		}
		if !ok {
			break
		}
		sink.ProgramHeader(i, ph)
	}
	if logger != nil && f.Header.PhNum > 0 {
		logger.Printf("visited %d program headers", f.Header.PhNum)
	}

	shstr, shstrErr := f.SectionHeaderStringTable()

	sit := f.Sects.Iter()
	for i := 0; ; i++ {
		sh, ok, err := sit.Next()
		if err != nil {
			return fmt.Errorf("section header %d: %w", i, err)
		}
		if !ok {
			break
		}
		name := ""
		if shstrErr == nil {
			name, _ = sh.Name(shstr)
		}
		sink.SectionHeader(i, name, sh)
		if logger != nil {
			logger.Printf("section %d %q: type=%v size=%d", i, name, sh.Type, sh.Size)
		}

		switch sh.Type {
		case elf.SHT_SYMTAB, elf.SHT_DYNSYM:
			if err := walkSymbols(f, i, sink); err != nil {
				return err
			}
		case elf.SHT_REL:
			if err := walkRel(f, i, sink); err != nil {
				return err
			}
		case elf.SHT_RELA:
			if err := walkRela(f, i, sink); err != nil {
				return err
			}
		case elf.SHT_DYNAMIC:
			if err := walkDynamic(f, i, sink); err != nil {
				return err
			}
		case elf.SHT_NOTE:
			if err := walkNotes(f, i, sink); err != nil {
				return err
			}
		}
	}
	return nil
}

func walkSymbols(f *elf.File, sectionIdx int, sink Sink) error {
	syms, strs, err := f.Symbols(sectionIdx)
	if err != nil {
		return fmt.Errorf("section %d symbols: %w", sectionIdx, err)
	}
	it := syms.Iter()
	for i := 0; ; i++ {
		s, ok, err := it.Next()
		if err != nil {
			return fmt.Errorf("section %d symbol %d: %w", sectionIdx, i, err)
		}
		if !ok {
			return nil
		}
		name, _ := s.Name(strs)
		sink.Symbol(sectionIdx, i, name, s)
	}
}

func walkRel(f *elf.File, sectionIdx int, sink Sink) error {
	data, err := f.SectionData(sectionIdx)
	if err != nil {
		return err
	}
	rels, err := elf.NewRels(data, f.Desc, f.Order)
	if err != nil {
		return err
	}
	it := rels.Iter()
	for i := 0; ; i++ {
		r, ok, err := it.Next()
		if err != nil {
			return fmt.Errorf("section %d rel %d: %w", sectionIdx, i, err)
		}
		if !ok {
			return nil
		}
		sink.Rel(sectionIdx, i, r)
	}
}

func walkRela(f *elf.File, sectionIdx int, sink Sink) error {
	data, err := f.SectionData(sectionIdx)
	if err != nil {
		return err
	}
	relas, err := elf.NewRelas(data, f.Desc, f.Order)
	if err != nil {
		return err
	}
	it := relas.Iter()
	for i := 0; ; i++ {
		r, ok, err := it.Next()
		if err != nil {
			return fmt.Errorf("section %d rela %d: %w", sectionIdx, i, err)
		}
		if !ok {
			return nil
		}
		sink.Rela(sectionIdx, i, r)
	}
}

func walkDynamic(f *elf.File, sectionIdx int, sink Sink) error {
	dyns, err := f.Dynamic(sectionIdx)
	if err != nil {
		return err
	}
	it := dyns.Iter()
	for i := 0; ; i++ {
		e, ok, err := it.Next()
		if err != nil {
			return fmt.Errorf("section %d dynamic %d: %w", sectionIdx, i, err)
		}
		if !ok {
			return nil
		}
		sink.Dynamic(sectionIdx, i, e)
	}
}

func walkNotes(f *elf.File, sectionIdx int, sink Sink) error {
	data, err := f.SectionData(sectionIdx)
	if err != nil {
		return err
	}
	notes, err := elf.NewNotes(data, f.Order)
	if err != nil {
		return err
	}
	it := notes.Iter()
	for i := 0; ; i++ {
		n, ok, err := it.Next()
		if err != nil {
			return fmt.Errorf("section %d note %d: %w", sectionIdx, i, err)
		}
		if !ok {
			return nil
		}
		sink.Note(sectionIdx, i, n)
	}
}

// Record is one observable event from a Walk, flattened into a single
// struct value for test fixtures that want a []Record rather than a
// hand-written Sink. Kind names which field is populated.
type Record struct {
	Kind           string
	SectionIdx     int
	Index          int
	Name           string
	Header         *elf.Header
	ProgramHeader  elf.ProgramHeader
	SectionHeader  elf.SectionHeader
	Symbol         elf.Symbol
	Rel            elf.Rel
	Rela           elf.Rela
	Dynamic        elf.DynamicEntry
	Note           elf.NoteRecord
}

type recordSink struct {
	records []Record
}

func (s *recordSink) Header(h *elf.Header) {
	s.records = append(s.records, Record{Kind: "header", Header: h})
}

func (s *recordSink) ProgramHeader(i int, ph elf.ProgramHeader) {
	s.records = append(s.records, Record{Kind: "program_header", Index: i, ProgramHeader: ph})
}

func (s *recordSink) SectionHeader(i int, name string, sh elf.SectionHeader) {
	s.records = append(s.records, Record{Kind: "section_header", Index: i, Name: name, SectionHeader: sh})
}

func (s *recordSink) Symbol(sectionIdx, symIdx int, name string, sym elf.Symbol) {
	s.records = append(s.records, Record{Kind: "symbol", SectionIdx: sectionIdx, Index: symIdx, Name: name, Symbol: sym})
}

func (s *recordSink) Rel(sectionIdx, relIdx int, r elf.Rel) {
	s.records = append(s.records, Record{Kind: "rel", SectionIdx: sectionIdx, Index: relIdx, Rel: r})
}

func (s *recordSink) Rela(sectionIdx, relIdx int, r elf.Rela) {
	s.records = append(s.records, Record{Kind: "rela", SectionIdx: sectionIdx, Index: relIdx, Rela: r})
}

func (s *recordSink) Dynamic(sectionIdx, entIdx int, e elf.DynamicEntry) {
	s.records = append(s.records, Record{Kind: "dynamic", SectionIdx: sectionIdx, Index: entIdx, Dynamic: e})
}

func (s *recordSink) Note(sectionIdx, noteIdx int, n elf.NoteRecord) {
	s.records = append(s.records, Record{Kind: "note", SectionIdx: sectionIdx, Index: noteIdx, Note: n})
}

// Collect runs Walk and flattens everything it visits into a single slice,
// for tests that want to diff two files record-for-record rather than
// implement Sink by hand.
func Collect(f *elf.File) ([]Record, error) {
	sink := &recordSink{}
	if err := Walk(f, sink); err != nil {
		return nil, err
	}
	return sink.records, nil
}
