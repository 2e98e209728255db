// Package monitoring holds the engine-wide diagnostic logger indirection.
package monitoring

import "log"

// Logf is the package-level diagnostic logger used by the analytic packages
// for degraded-mode notes (Welch segment fallback, clamped envelope bands).
// It defaults to log.Printf but may be replaced with SetLogger; tests mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil installs a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}
