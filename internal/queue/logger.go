package queue

import (
	"fmt"

	"go.temporal.io/sdk/log"
	"go.uber.org/zap"
)

// Logger adapts a zap logger to the Temporal SDK logger.
type Logger struct {
	zl *zap.Logger
}

var (
	_ log.Logger     = (*Logger)(nil)
	_ log.WithLogger = (*Logger)(nil)
)

// NewLogger wraps zl for use in Temporal client and worker options.
func NewLogger(zl *zap.Logger) *Logger {
	return &Logger{zl: zl.WithOptions(zap.AddCallerSkip(1))}
}

func (l *Logger) Debug(msg string, keyvals ...interface{}) { l.zl.Debug(msg, fields(keyvals)...) }
func (l *Logger) Info(msg string, keyvals ...interface{})  { l.zl.Info(msg, fields(keyvals)...) }
func (l *Logger) Warn(msg string, keyvals ...interface{})  { l.zl.Warn(msg, fields(keyvals)...) }
func (l *Logger) Error(msg string, keyvals ...interface{}) { l.zl.Error(msg, fields(keyvals)...) }

// With returns a logger carrying keyvals on every entry.
func (l *Logger) With(keyvals ...interface{}) log.Logger {
	return &Logger{zl: l.zl.With(fields(keyvals)...)}
}

// fields converts alternating key/value pairs to zap fields. A trailing
// key without a value is logged under "extra".
func fields(keyvals []interface{}) []zap.Field {
	out := make([]zap.Field, 0, (len(keyvals)+1)/2)
	for i := 0; i < len(keyvals); i += 2 {
		if i+1 >= len(keyvals) {
			out = append(out, zap.Any("extra", keyvals[i]))
			break
		}
		key, ok := keyvals[i].(string)
		if !ok {
			key = fmt.Sprint(keyvals[i])
		}
		out = append(out, zap.Any(key, keyvals[i+1]))
	}
	return out
}
