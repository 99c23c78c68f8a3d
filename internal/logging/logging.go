// Package logging configures the process-wide zerolog logger and hands out
// named component loggers.
package logging

import (
	"io"
	stdlog "log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Options are set once during startup.
type Options struct {
	Verbose    bool
	JSON       bool
	Colors     bool
	Timestamps bool
	Out        io.Writer // defaults to os.Stderr
}

// Logger is a component logger.
type Logger interface {
	Debug() *zerolog.Event
	Info() *zerolog.Event
	Warn() *zerolog.Event
	Error() *zerolog.Event
}

type namedLogger struct {
	zl zerolog.Logger
}

func (l *namedLogger) Debug() *zerolog.Event { return l.zl.Debug() }
func (l *namedLogger) Info() *zerolog.Event  { return l.zl.Info() }
func (l *namedLogger) Warn() *zerolog.Event  { return l.zl.Warn() }
func (l *namedLogger) Error() *zerolog.Event { return l.zl.Error() }

var (
	mu       sync.Mutex
	registry = make(map[string]*namedLogger)
)

// Setup configures the global logger. Loggers handed out before the call are dropped
// from the registry so later lookups pick up the new output.
func Setup(opts Options) {
	out := opts.Out
	if out == nil {
		out = os.Stderr
	}

	// ISO 8601 format with timezone
	zerolog.TimeFieldFormat = time.RFC3339

	if !opts.JSON {
		out = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: "2006-01-02T15:04:05.000Z07:00",
			NoColor:    !opts.Colors,
		}
	}

	ctx := zerolog.New(out).With()
	if opts.Timestamps {
		ctx = ctx.Timestamp()
	}
	log.Logger = ctx.Logger()

	if opts.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	// Libraries such as hashicorp/mdns report through the standard logger
	stdlog.SetFlags(0)
	stdlog.SetOutput(stdlogWriter{zl: log.Logger.With().Str("component", "stdlog").Logger()})

	mu.Lock()
	registry = make(map[string]*namedLogger)
	mu.Unlock()
}

// stdlogWriter turns "[ERR] mdns: message" lines into debug events.
type stdlogWriter struct {
	zl zerolog.Logger
}

func (w stdlogWriter) Write(p []byte) (int, error) {
	msg := strings.TrimSpace(string(p))
	ev := w.zl.Debug()
	if strings.HasPrefix(msg, "[") {
		if end := strings.Index(msg, "]"); end > 0 {
			ev = ev.Str("origin_level", msg[1:end])
			msg = strings.TrimSpace(msg[end+1:])
		}
	}
	ev.Msg(msg)
	return len(p), nil
}

// Named returns the logger for a component, creating it on first use.
func Named(name string) Logger {
	mu.Lock()
	defer mu.Unlock()

	if l, ok := registry[name]; ok {
		return l
	}
	l := &namedLogger{zl: log.Logger.With().Str("component", name).Logger()}
	registry[name] = l
	return l
}
