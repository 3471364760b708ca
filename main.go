// Completion: 100% - CLI entrypoint, flag parsing and dispatch
package main

import (
	"flag"
	"fmt"
	"os"
)

const versionString = "patchelfdd 1.0.0"

// VerboseMode gates DEBUG tracing written to stderr throughout the tool.
var VerboseMode bool

func main() {
	var binFlag = flag.String("bin", "", "ELF binary to patch in place (required)")
	var setRunpathShort = flag.String("r", "", "new DT_RUNPATH value")
	var setRunpathLong = flag.String("set-runpath", "", "new DT_RUNPATH value")
	var setInterpShort = flag.String("i", "", "new interpreter path")
	var setInterpLong = flag.String("set-interpreter", "", "new interpreter path")
	var verbose = flag.Bool("v", false, "verbose mode (show debug tracing)")
	var verboseLong = flag.Bool("verbose", false, "verbose mode (show debug tracing)")
	var versionShort = flag.Bool("V", false, "print version information and exit")
	var version = flag.Bool("version", false, "print version information and exit")
	var help = flag.Bool("help", false, "show usage information and exit")
	flag.Parse()

	if *version || *versionShort {
		fmt.Println(versionString)
		os.Exit(0)
	}

	if *help {
		printUsage()
		os.Exit(0)
	}

	VerboseMode = *verbose || *verboseLong
	if VerboseMode {
		fmt.Fprintf(os.Stderr, "DEBUG main: VerboseMode enabled\n")
	}

	cfg := LoadConfig()
	cfg.Verbose = cfg.Verbose || VerboseMode
	VerboseMode = cfg.Verbose

	if *binFlag == "" {
		fmt.Fprintln(os.Stderr, "Error: --bin is required")
		printUsage()
		os.Exit(1)
	}

	var runpathProvided, shortRunpathProvided, interpProvided, shortInterpProvided bool
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "set-runpath":
			runpathProvided = true
		case "r":
			runpathProvided = true
			shortRunpathProvided = true
		case "set-interpreter":
			interpProvided = true
		case "i":
			interpProvided = true
			shortInterpProvided = true
		}
	})

	runpath := *setRunpathLong
	if shortRunpathProvided {
		runpath = *setRunpathShort
	}
	interp := *setInterpLong
	if shortInterpProvided {
		interp = *setInterpShort
	}

	opts := Options{
		Bin:               *binFlag,
		SetRunpath:        runpath,
		SetRunpathSet:     runpathProvided,
		SetInterpreter:    interp,
		SetInterpreterSet: interpProvided,
	}

	if VerboseMode {
		fmt.Fprintf(os.Stderr, "DEBUG main: bin=%s runpath=%q(%v) interp=%q(%v)\n",
			opts.Bin, opts.SetRunpath, opts.SetRunpathSet, opts.SetInterpreter, opts.SetInterpreterSet)
	}

	if err := RunPatch(opts, cfg); err != nil {
		printError(err, cfg)
		os.Exit(1)
	}
}
