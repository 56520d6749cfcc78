// Package diag renders compiler and runtime diagnostics through one
// shared path, so a parse error and a VM runtime error look like they
// came from the same tool: colorized severity via fatih/color, with
// color auto-disabled off a terminal via go-isatty/go-colorable.
package diag

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	colorable "github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

var (
	errorColor = color.New(color.FgRed, color.Bold)
)

// Writer wraps f so ANSI escapes are stripped automatically when f isn't
// attached to a terminal (e.g. piped into a log file or CI output).
func Writer(f *os.File) io.Writer {
	if isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()) {
		return colorable.NewColorable(f)
	}
	return colorable.NewNonColorable(f)
}

// FormatCompileError renders one compile-time error line.
func FormatCompileError(line int, msg string) string {
	return fmt.Sprintf("%s line %d: %s", errorColor.Sprint("error:"), line, msg)
}

// FormatRuntimeError renders one VM runtime-error line. stackSnapshot, if
// non-empty, is appended on its own line (populated only in debug builds).
func FormatRuntimeError(line int32, msg string, stackSnapshot string) string {
	s := fmt.Sprintf("%s line %d: %s", errorColor.Sprint("runtime error:"), line, msg)
	if stackSnapshot != "" {
		s += "\n" + stackSnapshot
	}
	return s
}
