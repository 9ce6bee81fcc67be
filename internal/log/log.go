package log

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

type loggerKey struct{}

func NewEntry(out io.Writer, level int) *logrus.Entry {
	return logrus.NewEntry(&logrus.Logger{
		Out: out,
		Formatter: &logrus.TextFormatter{
			DisableQuote:    true,
			FullTimestamp:   true,
			DisableSorting:  true,
			TimestampFormat: "2006-01-02T15:04:05.999999Z07:00",
		},
		Hooks: make(logrus.LevelHooks),
		Level: logrus.Level(level),
	})
}

var DefaultEntry = NewEntry(os.Stderr, int(logrus.InfoLevel))

// WithLogger returns a new context carrying the provided logger.
func WithLogger(ctx context.Context, logger *logrus.Entry) context.Context {
	e := logger.WithContext(ctx)
	return context.WithValue(ctx, loggerKey{}, e)
}

// GetLogger retrieves the current logger from the context, falling back to
// the default entry.
func GetLogger(ctx context.Context) *logrus.Entry {
	logger := ctx.Value(loggerKey{})
	if logger == nil {
		return DefaultEntry.WithContext(ctx)
	}
	return logger.(*logrus.Entry)
}

func Error(ctx context.Context, msg string, args ...interface{}) {
	appendArgs(GetLogger(ctx), args...).Error(msg)
}

func Warning(ctx context.Context, msg string, args ...interface{}) {
	appendArgs(GetLogger(ctx), args...).Warning(msg)
}

func Info(ctx context.Context, msg string, args ...interface{}) {
	appendArgs(GetLogger(ctx), args...).Info(msg)
}

func Debug(ctx context.Context, msg string, args ...interface{}) {
	appendArgs(GetLogger(ctx), args...).Debug(msg)
}

func Trace(ctx context.Context, msg string, args ...interface{}) {
	appendArgs(GetLogger(ctx), args...).Trace(msg)
}

// appendArgs turns alternating key-value args into logrus fields.
func appendArgs(logger *logrus.Entry, args ...interface{}) *logrus.Entry {
	if len(args) == 0 {
		return logger
	}
	if len(args)%2 != 0 {
		logger.WithField("count", len(args)).Warning("odd count of log arguments")
	}
	fields := make(logrus.Fields)
	for idx := 0; idx+1 < len(args); idx += 2 {
		key, ok := args[idx].(string)
		if !ok {
			logger.WithField("key_type", fmt.Sprintf("%T", args[idx])).
				Warning("log argument key must be string")
			continue
		}
		fields[key] = args[idx+1]
	}
	return logger.WithFields(fields)
}

func CreateAppendFile(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
}
