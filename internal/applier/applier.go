// Package applier commits a planner's patch set to a target file.
package applier

import (
	"fmt"
	"io"
	"os"
	"sort"
)

// Patch mirrors planner.Patch without importing the planner package, so
// the applier stays usable against any (offset, bytes) source.
type Patch struct {
	Offset uint64
	Data   []byte
}

// Apply opens path for writing, sorts patches by offset (stable), writes
// each in turn, and fsyncs before returning. It does not verify that
// patches are non-overlapping; the planner guarantees that.
func Apply(path string, patches []Patch) error {
	file, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("%w %s: %w", ErrOpenForWrite, path, err)
	}
	defer file.Close()

	sorted := make([]Patch, len(patches))
	copy(sorted, patches)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Offset < sorted[j].Offset })

	for _, patch := range sorted {
		if _, err := file.Seek(int64(patch.Offset), io.SeekStart); err != nil {
			return fmt.Errorf("%w to offset %d: %w", ErrSeek, patch.Offset, err)
		}
		if _, err := file.Write(patch.Data); err != nil {
			return fmt.Errorf("%w at offset %d: %w", ErrWrite, patch.Offset, err)
		}
	}

	return syncFile(file)
}
