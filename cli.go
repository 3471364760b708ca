// Completion: 100% - orchestration for the patch command
package main

import (
	"debug/elf"
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/xyproto/patchelfdd/internal/applier"
	"github.com/xyproto/patchelfdd/internal/elfview"
	"github.com/xyproto/patchelfdd/internal/planner"
	"github.com/xyproto/patchelfdd/internal/serialize"
)

// ErrRunpathAlreadySet is the policy error raised when the target already
// carries a DT_RUNPATH entry. It is checked here, once, before SetRunpath
// is ever called — see DESIGN.md's Open Question decision #3.
var ErrRunpathAlreadySet = errors.New("binary already has a DT_RUNPATH entry; overwriting it is unsupported")

// Options holds one invocation's worth of CLI input.
type Options struct {
	Bin               string
	SetRunpath        string
	SetRunpathSet     bool
	SetInterpreter    string
	SetInterpreterSet bool
}

// RunPatch opens the target, plans every requested change, and applies the
// resulting patch set. It returns nil (printing "Nothing to do") when
// neither flag was given.
func RunPatch(opts Options, cfg Config) error {
	if VerboseMode {
		fmt.Fprintf(os.Stderr, "DEBUG main: opening %s\n", opts.Bin)
	}

	view, err := elfview.New(opts.Bin)
	if err != nil {
		return wrapError(categorizeViewErr(err), err)
	}
	defer view.Close()

	pl := planner.New(view)

	if opts.SetRunpathSet {
		alreadySet, err := view.DynamicContains(int64(elf.DT_RUNPATH))
		if err != nil {
			return wrapError(categorizeViewErr(err), err)
		}
		if alreadySet {
			return wrapError(CategoryPolicy, ErrRunpathAlreadySet)
		}

		if err := pl.SetRunpath(opts.SetRunpath); err != nil {
			return wrapError(categorizePlannerErr(err), err)
		}
		for _, w := range pl.Warnings() {
			printWarning(w, cfg)
		}
	}

	if opts.SetInterpreterSet {
		if err := pl.SetInterpreter(opts.SetInterpreter); err != nil {
			return wrapError(categorizePlannerErr(err), err)
		}
	}

	if pl.IsEmpty() {
		printNotice("Nothing to do", cfg)
		return nil
	}

	patches := make([]applier.Patch, len(pl.Patches()))
	for i, p := range pl.Patches() {
		patches[i] = applier.Patch{Offset: p.Offset, Data: p.Data}
	}

	if VerboseMode {
		fmt.Fprintf(os.Stderr, "DEBUG main: applying %d patch(es) to %s\n", len(patches), opts.Bin)
	}

	if err := applier.Apply(opts.Bin, patches); err != nil {
		return wrapError(CategoryIO, err)
	}
	return nil
}

func categorizeViewErr(err error) Category {
	switch {
	case errors.Is(err, elfview.ErrNoInterpSection),
		errors.Is(err, elfview.ErrNoDynstrSection),
		errors.Is(err, elfview.ErrNoDynamicSection):
		return CategoryStructure
	case errors.Is(err, elfview.ErrParseELF):
		return CategoryParse
	default:
		return CategoryIO
	}
}

func categorizePlannerErr(err error) Category {
	switch {
	case errors.Is(err, planner.ErrCannotFitInterpreter),
		errors.Is(err, planner.ErrNoDynstrReplacementCandidate),
		errors.Is(err, planner.ErrNoApplicableDynamicEntry):
		return CategoryFeasibility
	case errors.Is(err, planner.ErrIntegerOverflow),
		errors.Is(err, serialize.ErrIntegerConversion):
		return CategoryArithmetic
	default:
		return CategoryParse
	}
}

func printWarning(msg string, cfg Config) {
	if cfg.NoColor {
		fmt.Println("Warning: " + msg)
		return
	}
	color.New(color.FgYellow, color.Bold).Println("Warning: " + msg)
}

func printNotice(msg string, cfg Config) {
	if cfg.NoColor {
		fmt.Println(msg)
		return
	}
	color.New(color.FgYellow).Println(msg)
}

func printError(err error, cfg Config) {
	if cfg.NoColor {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return
	}
	color.New(color.FgRed, color.Bold).Fprintln(os.Stderr, "Error:", err)
}

const usage = `patchelfdd - patch an ELF's interpreter and DT_RUNPATH in place

USAGE:
    patchelfdd --bin <path> [-r <runpath>] [-i <interpreter>]

FLAGS:
    --bin <path>                 ELF file to modify in place (required)
    -r, --set-runpath <string>   new DT_RUNPATH value
    -i, --set-interpreter <str>  new interpreter path
    -v, --verbose                verbose mode (show debug tracing)
    -V, --version                print version information and exit

Exactly the byte ranges needed for the requested changes are rewritten;
the file's length and layout are never altered.
`

func printUsage() {
	fmt.Print(usage)
}
