package eventbus

import (
	"context"

	"github.com/annel0/voxelforge/internal/logging"
)

// StartLoggingListener пишет конверты шины в лог компонента "events":
// отказы доступа - Info, события структур - Debug, остальное - Trace.
// Не блокирует; подписка живёт до отмены ctx.
func StartLoggingListener(ctx context.Context, bus EventBus) (Subscription, error) {
	logger := logging.GetComponentLogger("events")
	sub, err := bus.Subscribe(ctx, Filter{}, func(_ context.Context, ev *Envelope) {
		switch {
		case ev.EventType == TypeAccessDenied:
			var d DenialPayload
			if ev.Decode(&d) == nil {
				logger.Info("🚫 %s: %s -> владелец %s (%s)", ev.ID, d.Actor, d.Owner, d.Mode)
				return
			}
			logger.Info("🚫 %s: отказ доступа", ev.ID)
		case ev.Priority >= PriorityStructure:
			logger.Debug("%s %s от %s, %d байт", ev.EventType, ev.ID, ev.Source, len(ev.Payload))
		default:
			logger.Trace("%s %s от %s", ev.EventType, ev.ID, ev.Source)
		}
	})
	if err != nil {
		return nil, err
	}
	logger.Debug("Журнал событий шины подключён")
	return sub, nil
}
