// Command elfrelo parses an ELF object or executable and relocates it to
// a chosen base address, writing the resulting load image to disk.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/xyproto/elf"
	"github.com/xyproto/elf/internal/config"
	"github.com/xyproto/elf/reloc"
	"github.com/xyproto/elf/traverse"
)

const versionString = "elfrelo 1.0.0"

// discardSink satisfies traverse.Sink while keeping none of the records: in
// -dump mode the Logger passed to WalkWithLogger is the whole point, there
// is nothing left for the caller to collect afterward.
type discardSink struct{}

func (discardSink) Header(*elf.Header)                                     {}
func (discardSink) ProgramHeader(int, elf.ProgramHeader)                   {}
func (discardSink) SectionHeader(int, string, elf.SectionHeader)           {}
func (discardSink) Symbol(int, int, string, elf.Symbol)                    {}
func (discardSink) Rel(int, int, elf.Rel)                                  {}
func (discardSink) Rela(int, int, elf.Rela)                                {}
func (discardSink) Dynamic(int, int, elf.DynamicEntry)                     {}
func (discardSink) Note(int, int, elf.NoteRecord)                          {}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	var baseFlag = flag.String("base", "", "load base address, hex (0x...) or decimal; overrides ELFRELO_BASE")
	var outputFlag = flag.String("o", "a.out.relocated", "output image filename")
	var verboseFlag = flag.Bool("v", cfg.Verbose, "verbose mode")
	var dumpFlag = flag.Bool("dump", false, "walk the file and log the header, the program header count, and one line per section instead of relocating")
	var version = flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	if *version {
		fmt.Println(versionString)
		return
	}

	args := flag.Args()
	if len(args) != 1 {
		log.Fatalln("usage: elfrelo [flags] <elf-file>")
	}

	base := cfg.Base
	if *baseFlag != "" {
		var v uint64
		if _, err := fmt.Sscanf(*baseFlag, "0x%x", &v); err != nil {
			if _, err := fmt.Sscanf(*baseFlag, "%d", &v); err != nil {
				log.Fatalf("invalid --base %q", *baseFlag)
			}
		}
		base = v
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		log.Fatalf("reading %s: %v", args[0], err)
	}

	f, err := elf.Open(data)
	if err != nil {
		log.Fatalf("parsing %s: %v", args[0], err)
	}

	maxBytes := int64(cfg.MaxImageMB) << 20
	if *verboseFlag {
		log.Printf("%s: class=%v machine=%v type=%v base=%#x", args[0], f.Desc.Class, f.Header.Machine, f.Header.Type, base)
	}

	if *dumpFlag {
		dumpLog := log.New(os.Stderr, "", 0)
		if err := traverse.WalkWithLogger(f, discardSink{}, dumpLog); err != nil {
			log.Fatalf("walking %s: %v", args[0], err)
		}
		return
	}

	img, err := reloc.Relocate(f, base)
	if err != nil {
		log.Fatalf("relocating %s: %v", args[0], err)
	}
	if int64(len(img.Data)) > maxBytes {
		log.Fatalf("relocated image is %d bytes, exceeds %s limit of %d MiB", len(img.Data), "ELFRELO_MAX_IMAGE_MB", cfg.MaxImageMB)
	}

	if err := os.WriteFile(*outputFlag, img.Data, 0o644); err != nil {
		log.Fatalf("writing %s: %v", *outputFlag, err)
	}
	if *verboseFlag {
		log.Printf("wrote %s (%d bytes, slide=%#x)", *outputFlag, len(img.Data), img.Slide())
	}
}
