// Package elftest builds minimal synthetic ELF32/ELF64 images in memory for
// exercising internal/elfview, internal/planner, and the CLI's RunPatch
// without depending on any binary fixture checked into the repository.
package elftest

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"fmt"
)

// DynEntry is one (d_tag, d_val) pair to place in the synthetic .dynamic
// section, in the order given.
type DynEntry struct {
	Tag int64
	Val uint64
}

// Spec describes the ELF image to synthesize.
type Spec struct {
	Class    elf.Class
	Order    binary.ByteOrder
	InterpSize int // size in bytes of the .interp section
	// DynstrEntries are appended, in order, after the mandatory empty
	// string at offset 0, each followed by one NUL.
	DynstrEntries []string
	DynamicEntries []DynEntry
}

const (
	shNull = iota
	shInterp
	shDynstr
	shDynamic
	shShstrtab
	shCount
)

// Build renders spec into a byte slice that debug/elf.NewFile can parse.
func Build(spec Spec) ([]byte, error) {
	if spec.InterpSize <= 0 {
		return nil, fmt.Errorf("elftest: InterpSize must be positive")
	}

	wordWidth := 4
	if spec.Class == elf.ELFCLASS64 {
		wordWidth = 8
	}
	entryWidth := 2 * wordWidth

	interpData := make([]byte, spec.InterpSize)
	copy(interpData, []byte("/lib64/ld.so\x00"))

	var dynstr bytes.Buffer
	dynstr.WriteByte(0)
	for _, s := range spec.DynstrEntries {
		dynstr.WriteString(s)
		dynstr.WriteByte(0)
	}

	var dynamic bytes.Buffer
	for _, e := range spec.DynamicEntries {
		tagBuf := make([]byte, wordWidth)
		valBuf := make([]byte, wordWidth)
		if wordWidth == 4 {
			spec.Order.PutUint32(tagBuf, uint32(int32(e.Tag)))
			spec.Order.PutUint32(valBuf, uint32(e.Val))
		} else {
			spec.Order.PutUint64(tagBuf, uint64(e.Tag))
			spec.Order.PutUint64(valBuf, e.Val)
		}
		dynamic.Write(tagBuf)
		dynamic.Write(valBuf)
	}

	names := []string{"", ".interp", ".dynstr", ".dynamic", ".shstrtab"}
	var shstrtab bytes.Buffer
	nameOffsets := make([]uint32, len(names))
	for i, n := range names {
		nameOffsets[i] = uint32(shstrtab.Len())
		shstrtab.WriteString(n)
		shstrtab.WriteByte(0)
	}

	ehsize := 52
	shentsize := 40
	if spec.Class == elf.ELFCLASS64 {
		ehsize = 64
		shentsize = 64
	}

	sectionData := [][]byte{nil, interpData, dynstr.Bytes(), dynamic.Bytes(), shstrtab.Bytes()}
	offsets := make([]uint32, shCount)
	offset := uint32(ehsize)
	for i := 1; i < shCount; i++ {
		offsets[i] = offset
		offset += uint32(len(sectionData[i]))
	}
	shoff := offset

	var out bytes.Buffer

	// e_ident
	out.Write([]byte{0x7f, 'E', 'L', 'F'})
	out.WriteByte(byte(spec.Class))
	if spec.Order == binary.LittleEndian {
		out.WriteByte(byte(elf.ELFDATA2LSB))
	} else {
		out.WriteByte(byte(elf.ELFDATA2MSB))
	}
	out.WriteByte(byte(elf.EV_CURRENT))
	out.WriteByte(0) // EI_OSABI
	out.Write(make([]byte, 8))

	put16 := func(v uint16) { b := make([]byte, 2); spec.Order.PutUint16(b, v); out.Write(b) }
	put32 := func(v uint32) { b := make([]byte, 4); spec.Order.PutUint32(b, v); out.Write(b) }
	putWord := func(v uint64) {
		if spec.Class == elf.ELFCLASS32 {
			put32(uint32(v))
		} else {
			b := make([]byte, 8)
			spec.Order.PutUint64(b, v)
			out.Write(b)
		}
	}

	machine := elf.EM_X86_64
	if spec.Class == elf.ELFCLASS32 {
		machine = elf.EM_386
	}

	put16(uint16(elf.ET_DYN))
	put16(uint16(machine))
	put32(uint32(elf.EV_CURRENT))
	putWord(0)          // e_entry
	putWord(0)          // e_phoff
	putWord(uint64(shoff)) // e_shoff
	put32(0)            // e_flags
	put16(uint16(ehsize))
	put16(0) // e_phentsize
	put16(0) // e_phnum
	put16(uint16(shentsize))
	put16(uint16(shCount))
	put16(uint16(shShstrtab))

	if out.Len() != ehsize {
		return nil, fmt.Errorf("elftest: internal header size mismatch: wrote %d want %d", out.Len(), ehsize)
	}

	for i := 1; i < shCount; i++ {
		out.Write(sectionData[i])
	}

	types := []elf.SectionType{elf.SHT_NULL, elf.SHT_PROGBITS, elf.SHT_STRTAB, elf.SHT_DYNAMIC, elf.SHT_STRTAB}
	links := []uint32{0, 0, 0, shDynstr, 0}
	entsizes := []uint64{0, 0, 0, uint64(entryWidth), 0}

	for i := 0; i < shCount; i++ {
		put32(nameOffsets[i])
		put32(uint32(types[i]))
		putWord(0) // sh_flags
		putWord(0) // sh_addr
		putWord(uint64(offsets[i]))
		putWord(uint64(len(sectionData[i])))
		put32(links[i])
		put32(0) // sh_info
		putWord(1) // sh_addralign
		putWord(entsizes[i])
	}

	return out.Bytes(), nil
}
