// Package logging builds the component-scoped zerolog loggers used across
// the module.
package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// New returns a structured logger tagged with the given component name.
func New(component string) zerolog.Logger {
	return zerolog.New(os.Stderr).With().
		Timestamp().
		Str("component", component).
		Logger()
}

// Console returns a human-readable logger for the cmd binaries.
func Console(component string) zerolog.Logger {
	w := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	return zerolog.New(w).With().
		Timestamp().
		Str("component", component).
		Logger()
}

// To returns a logger writing to the given sink; tests use it to capture
// output.
func To(w io.Writer, component string) zerolog.Logger {
	return zerolog.New(w).With().
		Timestamp().
		Str("component", component).
		Logger()
}

// SetGlobalLevel applies a named level ("debug", "info", ...) process-wide.
// Unknown names leave the level untouched.
func SetGlobalLevel(name string) {
	lvl, err := zerolog.ParseLevel(name)
	if err != nil {
		return
	}
	zerolog.SetGlobalLevel(lvl)
}
