package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// NewComponentLogger builds the zerolog.Logger handed to infrastructure
// managers (database, influx). Output goes to w, or stdout when w is nil.
func NewComponentLogger(w io.Writer, level, component string) zerolog.Logger {
	if w == nil {
		w = os.Stdout
	}
	zerolog.TimeFieldFormat = time.RFC3339
	return zerolog.New(w).
		Level(zerologLevel(level)).
		With().
		Timestamp().
		Str("component", component).
		Logger()
}

func zerologLevel(level string) zerolog.Level {
	switch strings.ToUpper(level) {
	case "TRACE":
		return zerolog.TraceLevel
	case "DEBUG":
		return zerolog.DebugLevel
	case "WARN":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
