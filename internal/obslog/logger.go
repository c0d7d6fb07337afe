// Package obslog builds the process-wide structured logger. It is
// constructed once at start-up and passed by reference into the
// components that need it, rather than accessed through package-level
// functions, per the no-free-function-global-state design used throughout
// this codebase's ancestry.
package obslog

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// New builds a zerolog.Logger writing JSON to stdout, with the level read
// from LOG_LEVEL (defaulting to info) and a component field attached.
func New(component string) zerolog.Logger {
	level := zerolog.InfoLevel
	if v := strings.TrimSpace(os.Getenv("LOG_LEVEL")); v != "" {
		if l, err := zerolog.ParseLevel(strings.ToLower(v)); err == nil {
			level = l
		}
	}
	return zerolog.New(os.Stdout).
		Level(level).
		With().
		Timestamp().
		Str("component", component).
		Logger()
}
