package main

import (
	"debug/elf"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/xyproto/patchelfdd/internal/applier"
	"github.com/xyproto/patchelfdd/internal/elfview"
	"github.com/xyproto/patchelfdd/internal/planner"
)

// TestEndToEndAgainstSystemLibc exercises the full planner+applier pipeline
// against a real copy of the system's dynamic libc and verifies the result
// with ldd. It skips itself wherever the required tools or libraries are
// not available.
func TestEndToEndAgainstSystemLibc(t *testing.T) {
	lddPath, err := exec.LookPath("ldd")
	if err != nil {
		t.Skip("ldd not available")
	}

	const systemLibc = "/lib/x86_64-linux-gnu/libc.so.6"
	src, err := os.ReadFile(systemLibc)
	if err != nil {
		t.Skipf("system libc not available: %v", err)
	}

	target := filepath.Join(t.TempDir(), "libc-copy.so")
	if err := os.WriteFile(target, src, 0o755); err != nil {
		t.Fatalf("stage copy: %v", err)
	}

	view, err := elfview.New(target)
	if err != nil {
		t.Skipf("target not shaped as expected: %v", err)
	}

	alreadySet, err := view.DynamicContains(int64(elf.DT_RUNPATH))
	if err != nil {
		t.Fatalf("DynamicContains: %v", err)
	}
	if alreadySet {
		t.Skip("target already carries a DT_RUNPATH entry")
	}

	pl := planner.New(view)
	if err := pl.SetRunpath("/tmp/elf64dd"); err != nil {
		view.Close()
		t.Skipf("no eligible dynstr candidate on this libc build: %v", err)
	}
	view.Close()

	originalSize, err := os.Stat(target)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}

	patches := make([]applier.Patch, len(pl.Patches()))
	for i, p := range pl.Patches() {
		patches[i] = applier.Patch{Offset: p.Offset, Data: p.Data}
	}
	if err := applier.Apply(target, patches); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	patchedSize, err := os.Stat(target)
	if err != nil {
		t.Fatalf("stat after patch: %v", err)
	}
	if patchedSize.Size() != originalSize.Size() {
		t.Fatalf("file size changed: %d -> %d", originalSize.Size(), patchedSize.Size())
	}

	out, err := exec.Command(lddPath, target).CombinedOutput()
	if err != nil {
		t.Fatalf("ldd %s: %v\n%s", target, err, out)
	}
}
