// Package slogger is the process-wide structured logger used outside of
// components that carry their own logging.ApplicationLogger.
package slogger

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/let-userName-Brian/exempla-ai/internal/application/common/logging"
)

// Fields is an alias for logging.Fields.
type Fields = logging.Fields

var (
	current     atomic.Pointer[logging.ApplicationLogger] //nolint:gochecknoglobals // process-wide logger
	defaultOnce sync.Once                                  //nolint:gochecknoglobals // lazy default
)

func logger() logging.ApplicationLogger {
	if l := current.Load(); l != nil {
		return *l
	}
	defaultOnce.Do(func() {
		l, err := logging.NewApplicationLogger(logging.Config{Level: "INFO", Format: "json", Output: "stdout"})
		if err != nil {
			panic("slogger: default logger: " + err.Error())
		}
		current.CompareAndSwap(nil, &l)
	})
	return *current.Load()
}

// SetGlobalLogger replaces the process-wide logger.
func SetGlobalLogger(l logging.ApplicationLogger) {
	current.Store(&l)
}

// Configure builds a logger from config and installs it.
func Configure(config logging.Config) error {
	l, err := logging.NewApplicationLogger(config)
	if err != nil {
		return err
	}
	SetGlobalLogger(l)
	return nil
}

func Debug(ctx context.Context, msg string, fields Fields) { logger().Debug(ctx, msg, fields) }
func Info(ctx context.Context, msg string, fields Fields)  { logger().Info(ctx, msg, fields) }
func Warn(ctx context.Context, msg string, fields Fields)  { logger().Warn(ctx, msg, fields) }
func Error(ctx context.Context, msg string, fields Fields) { logger().Error(ctx, msg, fields) }

// ErrorWithError logs msg at error level with err attached.
func ErrorWithError(ctx context.Context, err error, msg string, fields Fields) {
	logger().ErrorWithError(ctx, err, msg, fields)
}

// The NoCtx variants are for call sites without a request context, such as
// process startup.

func InfoNoCtx(msg string, fields Fields)  { logger().Info(context.Background(), msg, fields) }
func WarnNoCtx(msg string, fields Fields)  { logger().Warn(context.Background(), msg, fields) }
func ErrorNoCtx(msg string, fields Fields) { logger().Error(context.Background(), msg, fields) }

func ErrorWithErrorNoCtx(err error, msg string, fields Fields) {
	logger().ErrorWithError(context.Background(), err, msg, fields)
}

// Field creates a single-entry Fields.
func Field(key string, value any) Fields {
	return Fields{key: value}
}

// Fields3 creates a Fields with three entries.
func Fields3(k1 string, v1 any, k2 string, v2 any, k3 string, v3 any) Fields {
	return Fields{k1: v1, k2: v2, k3: v3}
}

// WithComponent returns the global logger scoped to a component.
func WithComponent(component string) logging.ApplicationLogger {
	return logger().WithComponent(component)
}
