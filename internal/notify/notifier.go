// Package notify delivers engine alerts to external channels. Expected
// steady-state conditions stay in the logs; configuration and integrity
// errors go through a Notifier.
package notify

import (
	"context"

	"go.uber.org/zap"
)

type Level string

const (
	LevelInfo     Level = "INFO"
	LevelCritical Level = "CRITICAL"
)

type Notifier interface {
	Send(ctx context.Context, level Level, message string)
}

// LogNotifier writes alerts to the process log only.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Send(ctx context.Context, level Level, message string) {
	if level == LevelCritical {
		n.logger.Error("alert", zap.String("level", string(level)), zap.String("message", message))
		return
	}
	n.logger.Info("alert", zap.String("level", string(level)), zap.String("message", message))
}
