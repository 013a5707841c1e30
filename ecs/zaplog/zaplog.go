// Package zaplog adapts a zap logger to the ecs.Logger interface.
package zaplog

import (
	"go.uber.org/zap"

	ecs "github.com/DangerosoDavo/simecs"
)

type logger struct {
	sugar *zap.SugaredLogger
}

// New wraps l. A nil l yields a no-op logger.
func New(l *zap.Logger) ecs.Logger {
	if l == nil {
		l = zap.NewNop()
	}
	return logger{sugar: l.Sugar()}
}

func (l logger) With(key string, value any) ecs.Logger {
	return logger{sugar: l.sugar.With(key, value)}
}

func (l logger) Info(msg string, args ...any) {
	l.sugar.Infow(msg, args...)
}

func (l logger) Error(msg string, args ...any) {
	l.sugar.Errorw(msg, args...)
}
