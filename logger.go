package assistant

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goliatone/go-logger/glog"
)

// Logger is the logging contract shared by every package in the module.
// Messages are printf style.
type Logger interface {
	Trace(msg string, args ...any)
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	Fatal(msg string, args ...any)
	WithContext(ctx context.Context) Logger
}

// FieldsLogger is implemented by loggers that carry structured fields.
type FieldsLogger interface {
	WithFields(map[string]any) Logger
}

// NewLogger builds a go-logger backed Logger writing to w, stderr when w is
// nil. Format "json" selects JSON lines, anything else key=value text.
// Fatal logs and returns; commands report failures through errors.
func NewLogger(w io.Writer, level, format string) Logger {
	if w == nil {
		w = os.Stderr
	}
	opts := []glog.Option{
		glog.WithWriter(w),
		glog.WithFatalBehavior(glog.FatalBehaviorLogOnly),
	}
	if level = strings.TrimSpace(level); level != "" {
		opts = append(opts, glog.WithLevel(strings.ToLower(level)))
	}
	if strings.EqualFold(format, "json") {
		opts = append(opts, glog.WithLoggerTypeJSON())
	} else {
		opts = append(opts, glog.WithLoggerTypeConsole())
	}
	return glogLogger{logger: glog.NewLogger(opts...)}
}

// NormalizeLogger returns logger, or an info level stderr logger when nil.
func NormalizeLogger(logger Logger) Logger {
	if logger == nil {
		return NewLogger(nil, "", "")
	}
	return logger
}

// WithLoggerFields attaches fields when the logger supports them.
func WithLoggerFields(logger Logger, fields map[string]any) Logger {
	logger = NormalizeLogger(logger)
	if fl, ok := logger.(FieldsLogger); ok {
		return fl.WithFields(fields)
	}
	return logger
}

type glogLogger struct {
	logger glog.Logger
}

// NewGlogLogger adapts a configured go-logger logger.
func NewGlogLogger(logger glog.Logger) Logger {
	if logger == nil {
		return NewLogger(nil, "", "")
	}
	return glogLogger{logger: logger}
}

// go-logger treats trailing args as key/value attributes, so messages are
// formatted before they reach it.
func (l glogLogger) Trace(msg string, args ...any) { l.logger.Trace(sprintf(msg, args)) }
func (l glogLogger) Debug(msg string, args ...any) { l.logger.Debug(sprintf(msg, args)) }
func (l glogLogger) Info(msg string, args ...any)  { l.logger.Info(sprintf(msg, args)) }
func (l glogLogger) Warn(msg string, args ...any)  { l.logger.Warn(sprintf(msg, args)) }
func (l glogLogger) Error(msg string, args ...any) { l.logger.Error(sprintf(msg, args)) }
func (l glogLogger) Fatal(msg string, args ...any) { l.logger.Fatal(sprintf(msg, args)) }

func (l glogLogger) WithContext(ctx context.Context) Logger {
	return glogLogger{logger: l.logger.WithContext(ctx)}
}

func (l glogLogger) WithFields(fields map[string]any) Logger {
	if fl, ok := l.logger.(glog.FieldsLogger); ok {
		return glogLogger{logger: fl.WithFields(fields)}
	}
	return l
}

func sprintf(msg string, args []any) string {
	if len(args) == 0 {
		return msg
	}
	return fmt.Sprintf(msg, args...)
}
