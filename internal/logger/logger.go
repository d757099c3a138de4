// Package logger is the process-wide leveled logger for sercha-rag.
//
// Debug, info and section lines appear only with --verbose. Warnings appear
// unless --quiet is set, so a degraded answer is never silent.
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
)

var prefixes = map[level]string{
	levelDebug: "[DEBUG] ",
	levelInfo:  "[INFO] ",
	levelWarn:  "[WARN] ",
}

var std = struct {
	sync.Mutex
	verbose bool
	quiet   bool
	out     io.Writer
}{out: os.Stderr}

// SetVerbose turns debug, info and section output on or off.
func SetVerbose(v bool) {
	std.Lock()
	std.verbose = v
	std.Unlock()
}

// IsVerbose reports whether verbose output is on.
func IsVerbose() bool {
	std.Lock()
	defer std.Unlock()
	return std.verbose
}

// SetQuiet turns warnings off.
func SetQuiet(q bool) {
	std.Lock()
	std.quiet = q
	std.Unlock()
}

// SetOutput redirects all output. The default is os.Stderr.
func SetOutput(w io.Writer) {
	std.Lock()
	std.out = w
	std.Unlock()
}

func enabled(l level) bool {
	if l == levelWarn {
		return !std.quiet
	}
	return std.verbose
}

func logf(l level, format string, args ...any) {
	std.Lock()
	defer std.Unlock()
	if enabled(l) {
		fmt.Fprintf(std.out, prefixes[l]+format+"\n", args...)
	}
}

// Debug logs a verbose-only diagnostic line.
func Debug(format string, args ...any) { logf(levelDebug, format, args...) }

// Info logs a verbose-only progress line.
func Info(format string, args ...any) { logf(levelInfo, format, args...) }

// Warn logs a warning unless quiet.
func Warn(format string, args ...any) { logf(levelWarn, format, args...) }

// Section prints a "=== name ===" header in verbose mode.
func Section(name string) {
	std.Lock()
	defer std.Unlock()
	if std.verbose {
		fmt.Fprintf(std.out, "\n=== %s ===\n", name)
	}
}
