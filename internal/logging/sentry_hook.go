package logging

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
)

// SentryHook пересылает записи уровня ERROR и выше в Sentry.
type SentryHook struct {
	hub *sentry.Hub
}

// InitSentry инициализирует клиент Sentry и возвращает хук для логгеров.
// Пустой dsn означает, что отправка выключена: возвращается nil, nil.
func InitSentry(dsn, environment string) (*SentryHook, error) {
	if dsn == "" {
		return nil, nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: environment,
	})
	if err != nil {
		return nil, fmt.Errorf("sentry init: %w", err)
	}
	return &SentryHook{hub: sentry.CurrentHub()}, nil
}

// FlushSentry дожидается отправки накопленных событий.
func FlushSentry(timeout time.Duration) {
	sentry.Flush(timeout)
}

func (h *SentryHook) Levels() []logrus.Level {
	return []logrus.Level{logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel}
}

func (h *SentryHook) Fire(entry *logrus.Entry) error {
	h.hub.WithScope(func(scope *sentry.Scope) {
		for k, v := range entry.Data {
			scope.SetExtra(k, v)
		}
		if c, ok := entry.Data["component"].(string); ok {
			scope.SetTag("component", c)
		}
		h.hub.CaptureMessage(entry.Message)
	})
	return nil
}
