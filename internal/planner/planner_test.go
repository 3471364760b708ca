package planner_test

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/xyproto/patchelfdd/internal/elftest"
	"github.com/xyproto/patchelfdd/internal/elfview"
	"github.com/xyproto/patchelfdd/internal/planner"
)

func openFixture(t *testing.T, spec elftest.Spec) *elfview.View {
	t.Helper()
	data, err := elftest.Build(spec)
	if err != nil {
		t.Fatalf("build fixture: %v", err)
	}
	path := filepath.Join(t.TempDir(), "fixture.elf")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	v, err := elfview.New(path)
	if err != nil {
		t.Fatalf("elfview.New: %v", err)
	}
	t.Cleanup(func() { v.Close() })
	return v
}

func TestSetInterpreterFits(t *testing.T) {
	v := openFixture(t, elftest.Spec{
		Class:      elf.ELFCLASS64,
		Order:      binary.LittleEndian,
		InterpSize: 32,
	})

	p := planner.New(v)
	if err := p.SetInterpreter("/lib-sus.so"); err != nil {
		t.Fatalf("SetInterpreter: %v", err)
	}

	if p.IsEmpty() {
		t.Fatal("expected a patch to be planned")
	}
	patches := p.Patches()
	if len(patches) != 1 {
		t.Fatalf("len(patches) = %d, want 1", len(patches))
	}
	want := append([]byte("/lib-sus.so"), 0)
	if patches[0].Offset != v.Interp().Offset {
		t.Errorf("offset = %d, want %d", patches[0].Offset, v.Interp().Offset)
	}
	if !bytes.Equal(patches[0].Data[:len(want)], want) {
		t.Errorf("data = %q, want %q", patches[0].Data, want)
	}
}

func TestSetInterpreterTooLong(t *testing.T) {
	v := openFixture(t, elftest.Spec{
		Class:      elf.ELFCLASS64,
		Order:      binary.LittleEndian,
		InterpSize: 8,
	})

	p := planner.New(v)
	err := p.SetInterpreter("/this/path/is/way/too/long")
	if err == nil {
		t.Fatal("expected CannotFitInterpreterError")
	}
	var cfe *planner.CannotFitInterpreterError
	if !errors.As(err, &cfe) {
		t.Fatalf("error = %v, want *CannotFitInterpreterError", err)
	}
	if cfe.SectionSize != 8 {
		t.Errorf("SectionSize = %d, want 8", cfe.SectionSize)
	}
	if !p.IsEmpty() {
		t.Error("expected no patches on failure")
	}
}

func TestSetRunpathPrefersITMOverGmon(t *testing.T) {
	v := openFixture(t, elftest.Spec{
		Class:      elf.ELFCLASS64,
		Order:      binary.LittleEndian,
		InterpSize: 16,
		DynstrEntries: []string{
			"__gmon_start__",
			"_ITM_deregisterTMCloneTable",
		},
		DynamicEntries: []elftest.DynEntry{
			{Tag: int64(elf.DT_NEEDED), Val: 1},
			{Tag: int64(elf.DT_NULL), Val: 0},
			{Tag: int64(elf.DT_NULL), Val: 0},
		},
	})

	p := planner.New(v)
	if err := p.SetRunpath("/opt/lib"); err != nil {
		t.Fatalf("SetRunpath: %v", err)
	}

	found := false
	for _, w := range p.Warnings() {
		if bytes.Contains([]byte(w), []byte("_ITM_deregisterTMCloneTable")) {
			found = true
		}
	}
	if !found {
		t.Errorf("expected warning naming ITM candidate, got %v", p.Warnings())
	}
}

func TestSetRunpathNoDynstrCandidate(t *testing.T) {
	v := openFixture(t, elftest.Spec{
		Class:      elf.ELFCLASS64,
		Order:      binary.LittleEndian,
		InterpSize: 16,
		DynstrEntries: []string{
			"__gmon_start__",
			"_ITM_deregisterTMCloneTable",
			"mcount",
			"libitm.so",
		},
		DynamicEntries: []elftest.DynEntry{
			{Tag: int64(elf.DT_NULL), Val: 0},
			{Tag: int64(elf.DT_NULL), Val: 0},
		},
	})

	p := planner.New(v)
	err := p.SetRunpath("/opt/lib")
	if !errors.Is(err, planner.ErrNoDynstrReplacementCandidate) {
		t.Fatalf("err = %v, want ErrNoDynstrReplacementCandidate", err)
	}
	if !p.IsEmpty() {
		t.Error("expected no patches when no candidate is eligible")
	}
}

func TestSetRunpathHijackStrategy(t *testing.T) {
	// Only one DT_NULL, at the very end: the consecutive-terminator
	// strategy must fail over to hijacking the entry that referenced the
	// victim string's dynstr offset (here, a DT_NEEDED entry).
	v := openFixture(t, elftest.Spec{
		Class:      elf.ELFCLASS64,
		Order:      binary.LittleEndian,
		InterpSize: 16,
		DynstrEntries: []string{
			"__gmon_start__",
		},
		DynamicEntries: []elftest.DynEntry{
			{Tag: int64(elf.DT_NEEDED), Val: 1}, // dynstr offset of __gmon_start__
			{Tag: int64(elf.DT_NULL), Val: 0},
		},
	})

	p := planner.New(v)
	if err := p.SetRunpath("/x"); err != nil {
		t.Fatalf("SetRunpath: %v", err)
	}

	patches := p.Patches()
	if len(patches) != 2 {
		t.Fatalf("len(patches) = %d, want 2", len(patches))
	}

	// The dynamic-slot patch must land at the hijacked DT_NEEDED entry
	// (index 0), not the terminating DT_NULL (index 1).
	dynamicOffset := v.Dynamic().Offset
	if patches[1].Offset != dynamicOffset {
		t.Errorf("dynamic patch offset = %d, want %d (index 0)", patches[1].Offset, dynamicOffset)
	}
}

func TestSetRunpathAndSetInterpreterOnELF32(t *testing.T) {
	// spec.md §8 scenario 2: a minimal ELF32 executable, exercising 8-byte
	// .dynamic entries and 4-byte word widths end to end.
	v := openFixture(t, elftest.Spec{
		Class:      elf.ELFCLASS32,
		Order:      binary.LittleEndian,
		InterpSize: 24,
		DynstrEntries: []string{
			"__gmon_start__",
		},
		DynamicEntries: []elftest.DynEntry{
			{Tag: int64(elf.DT_NEEDED), Val: 1},
			{Tag: int64(elf.DT_NULL), Val: 0},
			{Tag: int64(elf.DT_NULL), Val: 0},
		},
	})

	if v.Class() != elf.ELFCLASS32 {
		t.Fatalf("Class() = %v, want ELFCLASS32", v.Class())
	}
	if v.DynEntryWidth() != 8 {
		t.Fatalf("DynEntryWidth() = %d, want 8 on ELF32", v.DynEntryWidth())
	}

	p := planner.New(v)
	if err := p.SetRunpath("/opt/lib32"); err != nil {
		t.Fatalf("SetRunpath: %v", err)
	}
	if err := p.SetInterpreter("/lib/ld-linux.so.2"); err != nil {
		t.Fatalf("SetInterpreter: %v", err)
	}

	patches := p.Patches()
	if len(patches) != 3 {
		t.Fatalf("len(patches) = %d, want 3 (dynstr, dynamic, interp)", len(patches))
	}

	// The dynamic-slot patch (second emitted, for the runpath) must be
	// exactly 8 bytes wide: a 4-byte tag plus a 4-byte value.
	if len(patches[1].Data) != 8 {
		t.Errorf("dynamic patch width = %d, want 8 on ELF32", len(patches[1].Data))
	}

	// Slot index 1 (the first DT_NULL) should be claimed via the
	// consecutive-terminator strategy, using the 8-byte entry width.
	wantSlotOffset := v.Dynamic().Offset + uint64(v.DynEntryWidth())
	if patches[1].Offset != wantSlotOffset {
		t.Errorf("dynamic patch offset = %d, want %d (slot index 1)", patches[1].Offset, wantSlotOffset)
	}

	wantInterp := append([]byte("/lib/ld-linux.so.2"), 0)
	if !bytes.Equal(patches[2].Data[:len(wantInterp)], wantInterp) {
		t.Errorf("interp patch data = %q, want %q", patches[2].Data, wantInterp)
	}
	if patches[2].Offset != v.Interp().Offset {
		t.Errorf("interp patch offset = %d, want %d", patches[2].Offset, v.Interp().Offset)
	}
}

func TestSetRunpathConsecutiveNullStrategy(t *testing.T) {
	v := openFixture(t, elftest.Spec{
		Class:      elf.ELFCLASS64,
		Order:      binary.LittleEndian,
		InterpSize: 16,
		DynstrEntries: []string{
			"__gmon_start__",
		},
		DynamicEntries: []elftest.DynEntry{
			{Tag: int64(elf.DT_NEEDED), Val: 1},
			{Tag: int64(elf.DT_NULL), Val: 0},
			{Tag: int64(elf.DT_NULL), Val: 0},
		},
	})

	p := planner.New(v)
	if err := p.SetRunpath("/x"); err != nil {
		t.Fatalf("SetRunpath: %v", err)
	}

	patches := p.Patches()
	if len(patches) != 2 {
		t.Fatalf("len(patches) = %d, want 2", len(patches))
	}

	// Slot index 1 (the first DT_NULL) should be claimed, not index 0.
	entryWidth := uint64(v.DynEntryWidth())
	wantOffset := v.Dynamic().Offset + entryWidth
	if patches[1].Offset != wantOffset {
		t.Errorf("dynamic patch offset = %d, want %d (slot index 1)", patches[1].Offset, wantOffset)
	}
}
