package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// SlogManager owns the process logger: console or file output, plus an
// optional Graylog sink, all behind one MultiHandler.
type SlogManager struct {
	logger *slog.Logger

	// closed on Close, e.g. the GELF writer
	sink io.Closer
}

// NewSlogManager creates a new slog-based logging manager.
func NewSlogManager() *SlogManager {
	return &SlogManager{}
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func handlerOptions(lvl slog.Level) *slog.HandlerOptions {
	return &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.UTC().Format(time.RFC3339))
				}
			}
			return a
		},
	}
}

// Setup builds the logger. Records go to file when it is non-nil, otherwise
// to stdout. A non-nil graylog writer receives every record as JSON, and a
// non-nil provider adds its attributes to each record.
func (m *SlogManager) Setup(file io.Writer, level string, graylog io.Writer, provider ContextProvider) {
	opts := handlerOptions(parseLevel(level))

	var handlers []slog.Handler
	if file != nil {
		handlers = append(handlers, slog.NewTextHandler(file, opts))
	} else {
		handlers = append(handlers, slog.NewTextHandler(os.Stdout, opts))
	}
	if graylog != nil {
		handlers = append(handlers, slog.NewJSONHandler(graylog, opts))
		if c, ok := graylog.(io.Closer); ok {
			m.sink = c
		}
	}

	m.logger = slog.New(NewContextHandler(NewMultiHandler(handlers...), provider))
	m.logger.Info("Logging initialized", "level", level, "graylog", graylog != nil)
}

// Logger returns the configured slog.Logger.
func (m *SlogManager) Logger() *slog.Logger {
	if m.logger == nil {
		// Return a default logger if Setup hasn't been called
		return slog.Default()
	}
	return m.logger
}

// Close releases the Graylog sink, if any.
func (m *SlogManager) Close() error {
	if m.sink == nil {
		return nil
	}
	err := m.sink.Close()
	m.sink = nil
	return err
}

// WriteLog writes one entry tagged with the calling component, e.g. "sqlite:dumpLoop".
func (m *SlogManager) WriteLog(component, data, level string) {
	if m.logger == nil {
		return
	}
	m.logger.Log(context.Background(), parseLevel(level), data, "component", component)
}
