//go:build !linux && !darwin

package applier

import "os"

// syncFile falls back to the standard library's best-effort flush on
// platforms without a direct fsync(2) syscall wired up.
func syncFile(f *os.File) error {
	return f.Sync()
}
