// Package log provides a leveled, structured logger for the whole module. It
// is a thin wrapper around zap so that packages depend on a small interface
// rather than on a concrete logging library.
package log

import (
	"context"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the logging interface used across fairdeck.
type Logger interface {
	Infow(msg string, keyvals ...interface{})
	Debugw(msg string, keyvals ...interface{})
	Warnw(msg string, keyvals ...interface{})
	Errorw(msg string, keyvals ...interface{})
	Fatalw(msg string, keyvals ...interface{})
	With(args ...interface{}) Logger
	Named(s string) Logger
	AddCallerSkip(skip int) Logger
}

// logger is the zap-backed implementation of Logger.
type logger struct {
	*zap.SugaredLogger
}

func (l *logger) With(args ...interface{}) Logger {
	return &logger{l.SugaredLogger.With(args...)}
}

func (l *logger) Named(s string) Logger {
	return &logger{l.SugaredLogger.Named(s)}
}

func (l *logger) AddCallerSkip(skip int) Logger {
	return &logger{l.WithOptions(zap.AddCallerSkip(skip))}
}

const (
	DebugLevel = int(zapcore.DebugLevel)
	InfoLevel  = int(zapcore.InfoLevel)
	WarnLevel  = int(zapcore.WarnLevel)
	ErrorLevel = int(zapcore.ErrorLevel)
	FatalLevel = int(zapcore.FatalLevel)
)

// DefaultLevel is the level the default logger logs at. Change it before the
// first DefaultLogger call to affect the default logger.
var DefaultLevel = InfoLevel

// Allows debug output in environments where the test logs are set to debug
// level.
//
//nolint:gochecknoinits // we do want to overwrite the default level here
func init() {
	if lvl, ok := os.LookupEnv("FAIRDECK_TEST_LOGS"); ok && lvl == "DEBUG" {
		DefaultLevel = DebugLevel
	}
}

var isDefaultLoggerSet sync.Once

// DefaultLogger is the shared logger writing to stdout at DefaultLevel.
func DefaultLogger() Logger {
	isDefaultLoggerSet.Do(func() {
		zap.ReplaceGlobals(newZapLogger(nil, jsonEncoder(), DefaultLevel))
	})
	return &logger{zap.S()}
}

// ConfigureDefaultLogger replaces the global default logger.
func ConfigureDefaultLogger(output zapcore.WriteSyncer, level int, jsonFormat bool) {
	encoder := consoleEncoder()
	if jsonFormat {
		encoder = jsonEncoder()
	}
	zap.ReplaceGlobals(newZapLogger(output, encoder, level))
}

// New returns a logger printing statements at the given level. A nil output
// defaults to stdout.
func New(output zapcore.WriteSyncer, level int, jsonFormat bool) Logger {
	encoder := consoleEncoder()
	if jsonFormat {
		encoder = jsonEncoder()
	}
	return &logger{newZapLogger(output, encoder, level).Sugar()}
}

func newZapLogger(output zapcore.WriteSyncer, encoder zapcore.Encoder, level int) *zap.Logger {
	if output == nil {
		output = os.Stdout
	}
	core := zapcore.NewCore(encoder, output, zapcore.Level(level))
	return zap.New(core, zap.WithCaller(true))
}

func jsonEncoder() zapcore.Encoder {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewJSONEncoder(cfg)
}

func consoleEncoder() zapcore.Encoder {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewConsoleEncoder(cfg)
}

type ctxLoggerKey string

const ctxLogger ctxLoggerKey = "fairdeckLogger"

// ToContext sets the logger on the context.
func ToContext(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, ctxLogger, l)
}

// FromContextOrDefault returns the logger set with ToContext, or the default
// logger when the context carries none.
func FromContextOrDefault(ctx context.Context) Logger {
	l, ok := ctx.Value(ctxLogger).(Logger)
	if !ok {
		return DefaultLogger()
	}
	return l
}
