package elfview

import "errors"

// Structural errors returned by New when a required section is absent, and
// the parse error surfaced when the underlying ELF reader rejects the file.
var (
	ErrNoInterpSection  = errors.New("elf has no .interp section")
	ErrNoDynstrSection  = errors.New("elf has no .dynstr section")
	ErrNoDynamicSection = errors.New("elf has no .dynamic section")
	ErrParseELF         = errors.New("failed to parse elf")
)
