// Package planner computes the non-extending byte-range patches needed to
// change an ELF's interpreter path and DT_RUNPATH, without writing anything
// to disk itself.
package planner

import (
	"debug/elf"
	"fmt"
	"sort"

	"github.com/xyproto/patchelfdd/internal/elfview"
	"github.com/xyproto/patchelfdd/internal/serialize"
)

// Patch is a (file_offset, bytes) pair to be written verbatim.
type Patch struct {
	Offset uint64
	Data   []byte
}

// Planner accumulates patches against one Sparse ELF View. It never writes
// to the file; Patches() hands the result to an applier.
type Planner struct {
	view       *elfview.View
	serializer *serialize.Serializer
	patches    []Patch
	warnings   []string
}

// New builds a Planner for view.
func New(view *elfview.View) *Planner {
	return &Planner{
		view:       view,
		serializer: serialize.New(view.Class(), view.ByteOrder()),
	}
}

// IsEmpty reports whether no patches have been added yet.
func (p *Planner) IsEmpty() bool { return len(p.patches) == 0 }

// Patches returns the accumulated patch set.
func (p *Planner) Patches() []Patch { return p.patches }

// Warnings returns human-readable notices accumulated while planning, such
// as which .dynstr victim was chosen. Callers decide how to display them.
func (p *Planner) Warnings() []string { return p.warnings }

func (p *Planner) addPatch(offset uint64, data []byte) {
	p.patches = append(p.patches, Patch{Offset: offset, Data: data})
}

// SetInterpreter plans a patch that overwrites .interp with newPath plus a
// trailing NUL, failing if the section is too small to hold it.
func (p *Planner) SetInterpreter(newPath string) error {
	sectionSize := p.view.Interp().Size
	requested := uint64(len(newPath) + 1)

	if sectionSize < requested {
		return &CannotFitInterpreterError{SectionSize: sectionSize, Requested: requested}
	}

	data := make([]byte, requested)
	copy(data, newPath)
	p.addPatch(p.view.Interp().Offset, data)
	return nil
}

// SetRunpath plans the two-phase patch set for a new DT_RUNPATH: overwrite
// a victim .dynstr entry, then repurpose or claim a .dynamic slot that
// points at it. Callers are responsible for rejecting the request up front
// when the file already carries a DT_RUNPATH entry (see RunpathAlreadySet
// in the CLI layer) — SetRunpath itself only appends patches.
func (p *Planner) SetRunpath(newPath string) error {
	victimOffset, err := p.setRunpathDynstr(newPath)
	if err != nil {
		return err
	}
	return p.setRunpathDynamic(victimOffset)
}

type dynstrMatch struct {
	offset   uint64
	priority int
	name     string
}

func (p *Planner) setRunpathDynstr(newPath string) (uint64, error) {
	candidates, err := eligibleCandidates(p.view)
	if err != nil {
		return 0, err
	}

	var matches []dynstrMatch
	err = p.view.WalkDynstr(func(offset uint64, s string) bool {
		for _, c := range candidates {
			if c.name == s && uint64(len(s)) >= uint64(len(newPath)) {
				matches = append(matches, dynstrMatch{offset: offset, priority: c.priority, name: s})
			}
		}
		return true // collect every eligible match across the full scan
	})
	if err != nil {
		return 0, err
	}

	if len(matches) == 0 {
		return 0, ErrNoDynstrReplacementCandidate
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].priority < matches[j].priority })
	victim := matches[0]

	p.warnings = append(p.warnings, fmt.Sprintf("Overwriting dynstr entry: %s", victim.name))

	dynstrOffset := p.view.Dynstr().Offset
	targetOffset, err := checkedAdd(dynstrOffset, victim.offset)
	if err != nil {
		return 0, err
	}

	data := make([]byte, len(newPath)+1)
	copy(data, newPath)
	p.addPatch(targetOffset, data)

	return victim.offset, nil
}

func (p *Planner) setRunpathDynamic(victimOffset uint64) error {
	slotIndex := -1
	err := p.view.WalkDynamic(func(i int, tag int64, _ uint64) bool {
		if tag == int64(elf.DT_NULL) {
			slotIndex = i
			return false
		}
		return true
	})
	if err != nil {
		return err
	}
	if slotIndex == -1 {
		return ErrNoApplicableDynamicEntry
	}

	// Probe index k+1 specifically: ok=false means it is past the end of
	// the table (this DT_NULL was the sole terminator), distinct from a
	// parse error, which is surfaced unchanged rather than triggering the
	// hijack fallback.
	_, _, ok, err := p.view.DynamicEntryAt(slotIndex + 1)
	if err != nil {
		return err
	}
	if !ok {
		hijack := -1
		err := p.view.WalkDynamic(func(i int, _ int64, val uint64) bool {
			if val == victimOffset {
				hijack = i
				return false
			}
			return true
		})
		if err != nil {
			return err
		}
		if hijack == -1 {
			return ErrNoApplicableDynamicEntry
		}
		slotIndex = hijack
	}

	entryWidth := uint64(p.view.DynEntryWidth())
	tableOffset, err := checkedMul(uint64(slotIndex), entryWidth)
	if err != nil {
		return err
	}
	slotOffset, err := checkedAdd(p.view.Dynamic().Offset, tableOffset)
	if err != nil {
		return err
	}

	tagBytes, err := p.serializer.EncodeSignedWord(int64(elf.DT_RUNPATH))
	if err != nil {
		return err
	}
	valBytes, err := p.serializer.EncodeUnsignedWord(victimOffset)
	if err != nil {
		return err
	}

	data := make([]byte, 0, len(tagBytes)+len(valBytes))
	data = append(data, tagBytes...)
	data = append(data, valBytes...)
	p.addPatch(slotOffset, data)

	return nil
}
