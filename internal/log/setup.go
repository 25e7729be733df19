// Package log configures the global zerolog logger and reports progress of
// long-running backtests.
package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"
)

// Format selects the log encoding
type Format string

const (
	FormatAuto    Format = "auto" // console on a terminal, JSON otherwise
	FormatConsole Format = "console"
	FormatJSON    Format = "json"
)

// Setup installs the global logger. level is a zerolog level name.
func Setup(level string, format Format, out *os.File) error {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		return fmt.Errorf("unknown log level %q", level)
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339

	log.Logger = zerolog.New(Writer(format, out)).With().Timestamp().Logger()
	return nil
}

// Writer returns the encoder for format; auto picks console output when out
// is a terminal
func Writer(format Format, out *os.File) io.Writer {
	switch format {
	case FormatJSON:
		return out
	case FormatConsole:
		return zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}
	if IsTerminal(out) {
		return zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}
	return out
}

// IsTerminal reports whether f is attached to a terminal
func IsTerminal(f *os.File) bool {
	return f != nil && term.IsTerminal(int(f.Fd()))
}
