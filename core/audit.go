package core

import (
	"context"

	"github.com/sirupsen/logrus"
)

// AuthEventLogger records successful sign-ins. Implementations should be
// non-blocking and best-effort.
type AuthEventLogger interface {
	LogLogin(ctx context.Context, userID string, method string) error
}

// LogEventLogger writes sign-in events to a logrus logger.
type LogEventLogger struct {
	log logrus.FieldLogger
}

func NewLogEventLogger(l logrus.FieldLogger) *LogEventLogger {
	if l == nil {
		l = logrus.StandardLogger()
	}
	return &LogEventLogger{log: l}
}

func (l *LogEventLogger) LogLogin(_ context.Context, userID string, method string) error {
	l.log.WithFields(logrus.Fields{
		"event":   "login",
		"user_id": userID,
		"method":  method,
	}).Info("user signed in")
	return nil
}
