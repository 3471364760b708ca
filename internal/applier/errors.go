package applier

import "errors"

var (
	// ErrOpenForWrite wraps a failure to open the target for writing.
	ErrOpenForWrite = errors.New("failed to open file for writing")
	// ErrSeek wraps a failure to seek to a patch's offset.
	ErrSeek = errors.New("failed to seek")
	// ErrWrite wraps a failure to write a patch's bytes.
	ErrWrite = errors.New("failed to write")
)
