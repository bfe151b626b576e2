// Package logger writes leveled messages to stderr.
//
// Debug, Info and Section print only in verbose mode (--verbose). Warn
// and Error always print: they report degraded results such as fallback
// generations, which a user must see.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
)

type level int

const (
	levelDebug level = iota
	levelInfo
	levelWarn
	levelError
)

var prefixes = [...]string{
	levelDebug: "[DEBUG] ",
	levelInfo:  "[INFO] ",
	levelWarn:  "[WARN] ",
	levelError: "[ERROR] ",
}

func (l level) quiet() bool { return l < levelWarn }

var (
	mu      sync.Mutex
	verbose bool
	output  io.Writer = os.Stderr
)

// SetVerbose turns Debug, Info and Section output on or off.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// IsVerbose reports whether verbose output is on.
func IsVerbose() bool {
	mu.Lock()
	defer mu.Unlock()
	return verbose
}

// SetOutput redirects all log output. Tests pass a buffer.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

// Section prints a "=== name ===" header in verbose mode.
func Section(name string) {
	mu.Lock()
	defer mu.Unlock()
	if verbose {
		fmt.Fprintf(output, "\n=== %s ===\n", name)
	}
}

func Debug(format string, args ...any) { write(levelDebug, "", format, args) }
func Info(format string, args ...any)  { write(levelInfo, "", format, args) }
func Warn(format string, args ...any)  { write(levelWarn, "", format, args) }
func Error(format string, args ...any) { write(levelError, "", format, args) }

// write formats under the lock so concurrent messages never interleave.
func write(l level, tag, format string, args []any) {
	mu.Lock()
	defer mu.Unlock()
	if l.quiet() && !verbose {
		return
	}
	fmt.Fprintf(output, prefixes[l]+tag+format+"\n", args...)
}

// Component tags every message with "[name] ".
type Component struct {
	tag string
}

// For returns the logger for a named component.
func For(name string) Component {
	return Component{tag: "[" + name + "] "}
}

func (c Component) Debug(format string, args ...any) { write(levelDebug, c.tag, format, args) }
func (c Component) Info(format string, args ...any)  { write(levelInfo, c.tag, format, args) }
func (c Component) Warn(format string, args ...any)  { write(levelWarn, c.tag, format, args) }
func (c Component) Error(format string, args ...any) { write(levelError, c.tag, format, args) }
