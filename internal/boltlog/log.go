// Package boltlog builds the zerolog.Logger used across Bolt's binaries.
// The teacher's own log package (referenced from publisher-leader-app/main.go)
// wasn't part of the retrieved pack, so this recreates it from its call-site
// usage: a level string plus a pretty-console toggle, producing a logger with
// a "component" field attached at each call site.
package boltlog

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New builds a base zerolog.Logger writing to stderr at the given level.
// An unrecognized level falls back to info. pretty switches to zerolog's
// human-readable console writer, for local/dev use; production deployments
// should leave it off and ship JSON lines.
func New(level string, pretty bool) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	var w zerolog.ConsoleWriter
	var logger zerolog.Logger
	if pretty {
		w = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
		logger = zerolog.New(w)
	} else {
		logger = zerolog.New(os.Stderr)
	}

	return logger.Level(lvl).With().Timestamp().Logger()
}
