package eventbus

import (
	"context"

	"github.com/annel0/blockmap/internal/logging"
)

// StartLoggingListener подписывается на все события и пишет их в лог (TRACE).
// Функция неблокирующая.
func StartLoggingListener(bus EventBus) (Subscription, error) {
	sub, err := bus.Subscribe(context.Background(), Filter{}, func(ctx context.Context, ev *Envelope) {
		logging.Trace("[EventBus] %s %s src=%s prio=%d size=%dB", ev.ID, ev.EventType, ev.Source, ev.Priority, len(ev.Payload))
	})
	if err != nil {
		return nil, err
	}
	logging.Info("EventBus logging listener subscribed")
	return sub, nil
}
