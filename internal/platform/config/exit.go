package config

import (
	"fmt"
	"os"
)

// ExitTempFail is the sysexits.h code for a temporary failure. Schedulers
// that understand it may rerun the job early instead of waiting a day.
const ExitTempFail = 75

// Exitf writes a formatted error message to stderr and exits with code 1.
// It provides a consistent fatal-exit pattern for CLI entry points.
func Exitf(format string, args ...any) {
	ExitCodef(1, format, args...)
}

// ExitCodef writes a formatted error message to stderr and exits with code.
func ExitCodef(code int, format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(code)
}
