// Package logging builds the process logger. Components receive a
// *log.Logger explicitly; a nil logger means Default().
package logging

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/harrisonrobin/tasksync/pkg/config"
	"github.com/mattn/go-isatty"
	"gopkg.in/natefinch/lumberjack.v2"
)

const timeFormat = "2006-01-02 15:04:05"

// New returns a logger writing to stderr, or to a rotating file when
// cfg.File is set. The returned closer releases the file.
func New(cfg config.LogConfig) (*log.Logger, io.Closer) {
	var out io.Writer = os.Stderr
	var closer io.Closer = nopCloser{}
	if cfg.File != "" {
		rotating := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		}
		out, closer = rotating, rotating
	}

	logger := log.NewWithOptions(out, log.Options{
		ReportTimestamp: true,
		TimeFormat:      timeFormat,
		Level:           ParseLevel(cfg.Level),
	})
	switch {
	case cfg.JSON:
		logger.SetFormatter(log.JSONFormatter)
	case !isTerminal(out):
		logger.SetFormatter(log.LogfmtFormatter)
	}
	return logger, closer
}

// ParseLevel maps a configured level name to a log level; unknown names mean
// info.
func ParseLevel(level string) log.Level {
	switch level {
	case "debug":
		return log.DebugLevel
	case "warn":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// Default is used by components constructed without a logger.
func Default(prefix string) *log.Logger {
	return log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      timeFormat,
		Prefix:          prefix,
	})
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *log.Logger {
	return log.New(io.Discard)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
