package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/annel0/blockmap/internal/logging"
	nats "github.com/nats-io/nats.go"
)

// SubjectPrefix префикс subject'ов событий карты
const SubjectPrefix = "blockmap"

// JetStreamConfig параметры подключения к NATS JetStream
type JetStreamConfig struct {
	URL       string        `yaml:"url"`
	Stream    string        `yaml:"stream"`
	Retention time.Duration `yaml:"retention"`
	// Durable имя consumer'а; пустое - эфемерная подписка
	Durable string `yaml:"durable"`
}

// JetStreamBus реализует EventBus поверх NATS JetStream. Несколько экземпляров
// рендера получают изменения чанков от игровых серверов через общий стрим.
type JetStreamBus struct {
	nc        *nats.Conn
	js        nats.JetStreamContext
	stream    string
	durable   string
	published uint64
	consumed  uint64
	dropped   uint64
}

// NewJetStreamBus подключается к кластеру NATS и гарантирует наличие стрима.
func NewJetStreamBus(cfg JetStreamConfig) (*JetStreamBus, error) {
	if cfg.Stream == "" {
		cfg.Stream = "BLOCKMAP"
	}
	if cfg.URL == "" {
		cfg.URL = nats.DefaultURL
	}

	nc, err := nats.Connect(cfg.URL, nats.Name("blockmap"))
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Drain()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	if _, err := js.StreamInfo(cfg.Stream); err != nil {
		_, err = js.AddStream(&nats.StreamConfig{
			Name:      cfg.Stream,
			Subjects:  []string{SubjectPrefix + ".>"},
			Retention: nats.LimitsPolicy,
			MaxAge:    cfg.Retention,
			Storage:   nats.FileStorage,
		})
		if err != nil {
			nc.Drain()
			return nil, fmt.Errorf("add stream: %w", err)
		}
	}

	logging.Info("JetStream bus connected: %s stream=%s", cfg.URL, cfg.Stream)
	return &JetStreamBus{nc: nc, js: js, stream: cfg.Stream, durable: cfg.Durable}, nil
}

// Subject subject для типа события: blockmap.<type>
func Subject(eventType string) string {
	return SubjectPrefix + "." + eventType
}

// Publish сериализует Envelope в JSON и публикует в subject blockmap.<type>.
func (jb *JetStreamBus) Publish(ctx context.Context, ev *Envelope) error {
	data, err := json.Marshal(ev)
	if err != nil {
		atomic.AddUint64(&jb.dropped, 1)
		return fmt.Errorf("marshal envelope: %w", err)
	}
	if _, err := jb.js.Publish(Subject(ev.EventType), data, nats.Context(ctx)); err != nil {
		atomic.AddUint64(&jb.dropped, 1)
		return fmt.Errorf("jetstream publish: %w", err)
	}
	atomic.AddUint64(&jb.published, 1)
	return nil
}

// Subscribe создаёт consumer и вызывает handler асинхронно.
// Фильтр по одному типу сужает subject; остальные условия проверяются локально.
func (jb *JetStreamBus) Subscribe(ctx context.Context, f Filter, h Handler) (Subscription, error) {
	subj := SubjectPrefix + ".>"
	if len(f.Types) == 1 {
		subj = Subject(f.Types[0])
	}

	opts := []nats.SubOpt{nats.ManualAck(), nats.AckWait(30 * time.Second), nats.DeliverNew()}
	if jb.durable != "" {
		name := jb.durable
		if len(f.Types) == 1 {
			name += "_" + strings.ToLower(f.Types[0])
		}
		opts = append(opts, nats.Durable(name))
	}

	natSub, err := jb.js.Subscribe(subj, func(msg *nats.Msg) {
		var ev Envelope
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			logging.Warn("JetStream: bad envelope on %s: %v", msg.Subject, err)
			atomic.AddUint64(&jb.dropped, 1)
			_ = msg.Term()
			return
		}
		if matchFilter(&ev, f) && ctx.Err() == nil {
			h(ctx, &ev)
			atomic.AddUint64(&jb.consumed, 1)
		}
		_ = msg.Ack()
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("jetstream subscribe %s: %w", subj, err)
	}

	return &jetSub{natSub}, nil
}

// jetSub обёртка вокруг *nats.Subscription чтобы удовлетворить наш интерфейс.
type jetSub struct {
	s *nats.Subscription
}

func (j *jetSub) Unsubscribe() {
	_ = j.s.Unsubscribe()
}

// Metrics возвращает текущие метрики.
func (jb *JetStreamBus) Metrics() Stats {
	return Stats{
		Published: atomic.LoadUint64(&jb.published),
		Consumed:  atomic.LoadUint64(&jb.consumed),
		Dropped:   atomic.LoadUint64(&jb.dropped),
		InFlight:  0, // jetstream keeps its own queue
	}
}

// Close дожидается отправки буферов и закрывает соединение
func (jb *JetStreamBus) Close() error {
	return jb.nc.Drain()
}
