// Package monitoring carries the converter's diagnostic logging. The
// package-level logger keeps call sites terse and lets tests mute or
// capture output.
package monitoring

import "log"

// Logf is the diagnostic logger, defaulting to log.Printf.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger; nil installs a no-op.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Progressf logs a pipeline progress line with the tool prefix.
func Progressf(format string, v ...interface{}) {
	Logf("[demoset] "+format, v...)
}
