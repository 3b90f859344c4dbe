// Package logging provides the small leveled logger absorb's commands and
// engine write diagnostics through, matching the teacher's convention of
// writing directly to an io.Writer rather than depending on a structured
// logging library.
package logging

import (
	"fmt"
	"io"
)

// Logger writes leveled diagnostics to an io.Writer. Debug output is gated
// by Verbose; Warn and Info are always emitted.
type Logger struct {
	Out     io.Writer
	Verbose bool
}

// New returns a Logger writing to out.
func New(out io.Writer, verbose bool) *Logger {
	return &Logger{Out: out, Verbose: verbose}
}

// Warnf writes a "warning: " prefixed message.
func (l *Logger) Warnf(format string, args ...any) {
	if l == nil || l.Out == nil {
		return
	}

	fmt.Fprintf(l.Out, "warning: "+format+"\n", args...)
}

// Infof writes an unprefixed message.
func (l *Logger) Infof(format string, args ...any) {
	if l == nil || l.Out == nil {
		return
	}

	fmt.Fprintf(l.Out, format+"\n", args...)
}

// Debugf writes a message only when Verbose is set.
func (l *Logger) Debugf(format string, args ...any) {
	if l == nil || l.Out == nil || !l.Verbose {
		return
	}

	fmt.Fprintf(l.Out, "debug: "+format+"\n", args...)
}
