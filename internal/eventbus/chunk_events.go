package eventbus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/annel0/blockmap/internal/logging"
	"github.com/annel0/blockmap/internal/vec"
	"github.com/annel0/blockmap/internal/world"
)

// Типы событий
const (
	EventChunkModified = "ChunkModified"
	EventRenderControl = "RenderControl"
)

// ChunkModified полезная нагрузка события изменения чанка
type ChunkModified struct {
	World string `json:"world"`
	X     int    `json:"x"`
	Z     int    `json:"z"`
}

// Coord координаты чанка события
func (c ChunkModified) Coord() vec.ChunkCoord {
	return vec.ChunkCoord{X: c.X, Z: c.Z}
}

// PublishChunkModified публикует изменение чанка. Приоритет высокий: потеря события
// оставит на карте устаревший тайл.
func PublishChunkModified(ctx context.Context, bus EventBus, source, worldName string, coord vec.ChunkCoord) error {
	payload, err := json.Marshal(ChunkModified{World: worldName, X: coord.X, Z: coord.Z})
	if err != nil {
		return fmt.Errorf("marshal chunk event: %w", err)
	}
	ev := NewEnvelope(EventChunkModified, source, payload)
	ev.Priority = 7
	return bus.Publish(ctx, ev)
}

// SubscribeChunkModified вызывает h для событий изменения чанков указанного мира
func SubscribeChunkModified(ctx context.Context, bus EventBus, worldName string, h world.ModifiedHandler) (Subscription, error) {
	return bus.Subscribe(ctx, Filter{Types: []string{EventChunkModified}}, func(ctx context.Context, ev *Envelope) {
		var m ChunkModified
		if err := json.Unmarshal(ev.Payload, &m); err != nil {
			logging.Warn("EventBus: bad %s payload from %s: %v", ev.EventType, ev.Source, err)
			return
		}
		if m.World != worldName {
			return
		}
		h(m.Coord())
	})
}

// Feed адаптирует шину к world.ChangeFeed для одного мира
type Feed struct {
	bus   EventBus
	world string
}

// NewFeed создаёт ленту изменений мира поверх шины
func NewFeed(bus EventBus, worldName string) *Feed {
	return &Feed{bus: bus, world: worldName}
}

// OnModified реализует world.ChangeFeed
func (f *Feed) OnModified(h world.ModifiedHandler) func() {
	sub, err := SubscribeChunkModified(context.Background(), f.bus, f.world, h)
	if err != nil {
		logging.Error("EventBus: subscribe %s failed: %v", EventChunkModified, err)
		return func() {}
	}
	return sub.Unsubscribe
}

// Forward публикует в шину все изменения локального источника. Возвращает функцию отписки.
func Forward(feed world.ChangeFeed, bus EventBus, source, worldName string) func() {
	return feed.OnModified(func(coord vec.ChunkCoord) {
		if err := PublishChunkModified(context.Background(), bus, source, worldName, coord); err != nil {
			logging.Warn("EventBus: publish %s %s failed: %v", EventChunkModified, coord, err)
		}
	})
}
