package planner

import (
	"errors"
	"fmt"
)

var (
	// ErrCannotFitInterpreter is wrapped by CannotFitInterpreterError.
	ErrCannotFitInterpreter = errors.New("interpreter path does not fit in .interp section")

	// ErrNoDynstrReplacementCandidate means no eligible entry was found in
	// .dynstr to overwrite with the new runpath.
	ErrNoDynstrReplacementCandidate = errors.New("no eligible .dynstr entry to overwrite with runpath")

	// ErrNoApplicableDynamicEntry means neither the consecutive-terminator
	// strategy nor the hijack-referrer strategy found a usable .dynamic slot.
	ErrNoApplicableDynamicEntry = errors.New("no applicable .dynamic entry to repurpose for DT_RUNPATH")

	// ErrIntegerOverflow is returned when slot offset arithmetic overflows.
	ErrIntegerOverflow = errors.New("integer overflow computing patch offset")
)

// CannotFitInterpreterError reports the .interp section size alongside the
// size the caller asked for, so the message can show both.
type CannotFitInterpreterError struct {
	SectionSize uint64
	Requested   uint64
}

func (e *CannotFitInterpreterError) Error() string {
	return fmt.Sprintf("interp section size %d is smaller than requested size %d", e.SectionSize, e.Requested)
}

func (e *CannotFitInterpreterError) Unwrap() error { return ErrCannotFitInterpreter }

func checkedMul(a, b uint64) (uint64, error) {
	if a == 0 || b == 0 {
		return 0, nil
	}
	result := a * b
	if result/a != b {
		return 0, ErrIntegerOverflow
	}
	return result, nil
}

func checkedAdd(a, b uint64) (uint64, error) {
	result := a + b
	if result < a {
		return 0, ErrIntegerOverflow
	}
	return result, nil
}
