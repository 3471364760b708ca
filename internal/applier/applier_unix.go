//go:build linux || darwin

package applier

import (
	"os"

	"golang.org/x/sys/unix"
)

// syncFile flushes patched bytes to durable storage via fsync(2) before
// the process exits.
func syncFile(f *os.File) error {
	return unix.Fsync(int(f.Fd()))
}
