// Completion: 100% - environment-driven defaults for verbosity and color
package main

import "github.com/xyproto/env/v2"

// Config holds the defaults the CLI flags fall back to when not given
// explicitly on the command line.
type Config struct {
	Verbose bool
	NoColor bool
}

// LoadConfig reads PATCHELFDD_VERBOSE and PATCHELFDD_NO_COLOR, defaulting
// both to false, the same env-var-driven-default shape the compiler this
// tool is descended from used for its own build settings.
func LoadConfig() Config {
	return Config{
		Verbose: env.BoolOr("PATCHELFDD_VERBOSE", false),
		NoColor: env.BoolOr("PATCHELFDD_NO_COLOR", false),
	}
}
