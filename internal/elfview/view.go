// Package elfview parses just enough of an ELF file to locate .interp,
// .dynstr, and .dynamic and answer narrow queries over them.
package elfview

import (
	"debug/elf"
	"encoding/binary"
	"fmt"
	"os"
	"strings"
)

// View owns a read-only handle on the target file plus the three section
// headers this tool cares about. It never caches decoded string or dynamic
// data across calls; every query re-reads from the section bytes.
type View struct {
	file    *os.File
	ef      *elf.File
	interp  *elf.Section
	dynstr  *elf.Section
	dynamic *elf.Section
}

// New opens path read-only and locates .interp, .dynstr, and .dynamic.
func New(path string) (*View, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s for reading: %w", path, err)
	}

	ef, err := elf.NewFile(file)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("%s: %w: %w", path, ErrParseELF, err)
	}

	interp := ef.Section(".interp")
	if interp == nil {
		file.Close()
		return nil, ErrNoInterpSection
	}
	dynstr := ef.Section(".dynstr")
	if dynstr == nil {
		file.Close()
		return nil, ErrNoDynstrSection
	}
	dynamic := ef.Section(".dynamic")
	if dynamic == nil {
		file.Close()
		return nil, ErrNoDynamicSection
	}

	return &View{file: file, ef: ef, interp: interp, dynstr: dynstr, dynamic: dynamic}, nil
}

// Close releases the underlying file handle.
func (v *View) Close() error {
	return v.file.Close()
}

// Class reports whether the file is ELFCLASS32 or ELFCLASS64.
func (v *View) Class() elf.Class { return v.ef.Class }

// ByteOrder reports the file's configured endianness.
func (v *View) ByteOrder() binary.ByteOrder { return v.ef.ByteOrder }

// Interp exposes the .interp section header read-only.
func (v *View) Interp() elf.SectionHeader { return v.interp.SectionHeader }

// Dynstr exposes the .dynstr section header read-only.
func (v *View) Dynstr() elf.SectionHeader { return v.dynstr.SectionHeader }

// Dynamic exposes the .dynamic section header read-only.
func (v *View) Dynamic() elf.SectionHeader { return v.dynamic.SectionHeader }

func (v *View) wordWidth() int {
	if v.ef.Class == elf.ELFCLASS32 {
		return 4
	}
	return 8
}

// DynEntryWidth is the on-disk size of one (d_tag, d_val) pair: 8 bytes on
// ELF32, 16 bytes on ELF64.
func (v *View) DynEntryWidth() int {
	return 2 * v.wordWidth()
}

// WalkDynstr enumerates .dynstr entries from offset 1, in the order spec'd:
// advancing by len(entry)+1 until the section is exhausted. fn returning
// false stops the walk early.
func (v *View) WalkDynstr(fn func(offset uint64, s string) bool) error {
	data, err := v.dynstr.Data()
	if err != nil {
		return fmt.Errorf("read .dynstr: %w: %w", ErrParseELF, err)
	}

	idx := uint64(1)
	for idx < uint64(len(data)) {
		end := idx
		for end < uint64(len(data)) && data[end] != 0 {
			end++
		}
		if !fn(idx, string(data[idx:end])) {
			return nil
		}
		idx = end + 1
	}
	return nil
}

// DynstrContains reports whether any .dynstr entry has needle as a substring.
func (v *View) DynstrContains(needle string) (bool, error) {
	found := false
	err := v.WalkDynstr(func(_ uint64, s string) bool {
		if strings.Contains(s, needle) {
			found = true
			return false
		}
		return true
	})
	return found, err
}

// dynamicEntries decodes the raw .dynamic bytes into (tag, val) pairs.
func (v *View) dynamicEntries() ([]struct {
	tag int64
	val uint64
}, error) {
	data, err := v.dynamic.Data()
	if err != nil {
		return nil, fmt.Errorf("read .dynamic: %w: %w", ErrParseELF, err)
	}

	width := v.DynEntryWidth()
	order := v.ef.ByteOrder
	wordWidth := v.wordWidth()

	var entries []struct {
		tag int64
		val uint64
	}
	for i := 0; (i+1)*width <= len(data); i++ {
		raw := data[i*width : (i+1)*width]
		var tag int64
		var val uint64
		if wordWidth == 4 {
			tag = int64(int32(order.Uint32(raw[0:4])))
			val = uint64(order.Uint32(raw[4:8]))
		} else {
			tag = int64(order.Uint64(raw[0:8]))
			val = order.Uint64(raw[8:16])
		}
		entries = append(entries, struct {
			tag int64
			val uint64
		}{tag, val})
	}
	return entries, nil
}

// WalkDynamic enumerates .dynamic entries in file order. fn returning false
// stops the walk early.
func (v *View) WalkDynamic(fn func(index int, tag int64, val uint64) bool) error {
	entries, err := v.dynamicEntries()
	if err != nil {
		return err
	}
	for i, e := range entries {
		if !fn(i, e.tag, e.val) {
			return nil
		}
	}
	return nil
}

// DynamicContains reports whether any dynamic entry has d_tag == tag.
func (v *View) DynamicContains(tag int64) (bool, error) {
	found := false
	err := v.WalkDynamic(func(_ int, t int64, _ uint64) bool {
		if t == tag {
			found = true
			return false
		}
		return true
	})
	return found, err
}

// DynamicEntryAt returns the entry at index, and ok=false if index is past
// the end of the table (distinct from a decode failure, which is returned
// as a non-nil error).
func (v *View) DynamicEntryAt(index int) (tag int64, val uint64, ok bool, err error) {
	entries, err := v.dynamicEntries()
	if err != nil {
		return 0, 0, false, err
	}
	if index < 0 || index >= len(entries) {
		return 0, 0, false, nil
	}
	return entries[index].tag, entries[index].val, true, nil
}
