// Package obs provides the logging facade used across the engine. It
// keeps the teacher's Debug/Info/Warn/Error/With interface shape but
// backs every concrete logger with logrus.
package obs

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Logger is the interface every component logs through.
type Logger interface {
	Debug(msg string, kv ...any)
	Info(msg string, kv ...any)
	Warn(msg string, kv ...any)
	Error(msg string, kv ...any)
	With(kv ...any) Logger
}

type logrusLogger struct {
	entry *logrus.Entry
}

// New builds a Logger writing to w at the given level ("debug", "info",
// "warn", "error"). An unrecognized level defaults to "info".
func New(w io.Writer, level string) Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)
	return &logrusLogger{entry: logrus.NewEntry(l)}
}

// NewStdLogger builds a Logger writing to stderr at info level.
func NewStdLogger() Logger {
	return New(os.Stderr, "info")
}

// NewNop builds a Logger that discards all output.
func NewNop() Logger {
	return New(io.Discard, "error")
}

func fields(kv []any) logrus.Fields {
	f := make(logrus.Fields, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		f[key] = kv[i+1]
	}
	return f
}

func (l *logrusLogger) Debug(msg string, kv ...any) { l.entry.WithFields(fields(kv)).Debug(msg) }
func (l *logrusLogger) Info(msg string, kv ...any)  { l.entry.WithFields(fields(kv)).Info(msg) }
func (l *logrusLogger) Warn(msg string, kv ...any)  { l.entry.WithFields(fields(kv)).Warn(msg) }
func (l *logrusLogger) Error(msg string, kv ...any) { l.entry.WithFields(fields(kv)).Error(msg) }

func (l *logrusLogger) With(kv ...any) Logger {
	return &logrusLogger{entry: l.entry.WithFields(fields(kv))}
}
