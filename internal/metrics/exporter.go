// Package metrics экспортирует счётчики планировщика и шины событий в Prometheus.
package metrics

import (
	"sync"
	"time"

	"github.com/annel0/blockmap/internal/eventbus"
	"github.com/annel0/blockmap/internal/scheduler"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "blockmap"

// StatsSource источник счётчиков планировщика
type StatsSource interface {
	Stats() scheduler.Stats
}

// Exporter периодически переносит Stats планировщика и шины в метрики.
// Counter'ы растут на дельту между опросами.
type Exporter struct {
	sched    StatsSource
	bus      eventbus.EventBus // может быть nil
	interval time.Duration

	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once

	mu        sync.Mutex
	prevSched scheduler.Stats
	prevBus   eventbus.Stats

	dispatched    prometheus.Counter
	completed     prometheus.Counter
	failed        prometheus.Counter
	placeholders  prometheus.Counter
	retries       prometheus.Counter
	invalidations prometheus.Counter
	queued        prometheus.Gauge
	inflight      prometheus.Gauge
	remaining     prometheus.Gauge
	state         *prometheus.GaugeVec
	duration      *prometheus.HistogramVec

	busPublished prometheus.Counter
	busConsumed  prometheus.Counter
	busDropped   prometheus.Counter
	busInflight  prometheus.Gauge
}

// NewExporter создаёт экспортер и регистрирует метрики в reg (nil - дефолтный регистр).
// Опрос не запущен до Start.
func NewExporter(reg prometheus.Registerer, sched StatsSource, bus eventbus.EventBus) *Exporter {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	counter := func(sub, name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Subsystem: sub, Name: name, Help: help})
	}
	gauge := func(sub, name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Subsystem: sub, Name: name, Help: help})
	}

	e := &Exporter{
		sched:    sched,
		bus:      bus,
		interval: time.Second,
		quit:     make(chan struct{}),
		done:     make(chan struct{}),

		dispatched:    counter("scheduler", "tiles_dispatched_total", "Задач рендера, выданных воркерам."),
		completed:     counter("scheduler", "tiles_completed_total", "Завершённых задач рендера."),
		failed:        counter("scheduler", "tiles_failed_total", "Задач, завершившихся ошибкой рендера или сохранения."),
		placeholders:  counter("scheduler", "tiles_placeholder_total", "Тайлов, сохранённых прозрачной заглушкой."),
		retries:       counter("scheduler", "render_retries_total", "Повторов рендера из-за недоступных чанков."),
		invalidations: counter("scheduler", "invalidations_total", "Инвалидаций тайлов по изменению чанков."),
		queued:        gauge("scheduler", "urgent_queue_depth", "Инвалидированных регионов в очереди."),
		inflight:      gauge("scheduler", "tiles_inflight", "Выданных, но не завершённых задач."),
		remaining:     gauge("scheduler", "spiral_remaining", "Регионов, оставшихся в обходе спирали."),
		state: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "state",
			Help:      "Текущее состояние планировщика (1 у активного).",
		}, []string{"state"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "render",
			Name:      "tile_duration_seconds",
			Help:      "Длительность рендера тайла с повторами.",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"result"}),

		busPublished: counter("eventbus", "messages_published_total", "Общее число опубликованных сообщений."),
		busConsumed:  counter("eventbus", "messages_consumed_total", "Общее число доставленных сообщений подписчикам."),
		busDropped:   counter("eventbus", "messages_dropped_total", "Сообщений, отброшенных из-за ошибок или ограничения back-pressure."),
		busInflight:  gauge("eventbus", "messages_inflight", "Количество сообщений, находящихся в очереди (не доставленных)."),
	}

	reg.MustRegister(
		e.dispatched, e.completed, e.failed, e.placeholders, e.retries, e.invalidations,
		e.queued, e.inflight, e.remaining, e.state, e.duration,
	)
	if bus != nil {
		reg.MustRegister(e.busPublished, e.busConsumed, e.busDropped, e.busInflight)
	}
	return e
}

// ObserveResult записывает длительность рендера. Подключается через Scheduler.OnResult.
func (e *Exporter) ObserveResult(res scheduler.Result) {
	label := "ok"
	switch {
	case res.Placeholder:
		label = "placeholder"
	case res.Err != nil:
		label = "error"
	}
	e.duration.WithLabelValues(label).Observe(res.Took.Seconds())
}

// Start запускает фоновый опрос
func (e *Exporter) Start() {
	go e.loop()
}

// Stop останавливает опрос. Безопасен только после Start.
func (e *Exporter) Stop() {
	e.stopOnce.Do(func() {
		close(e.quit)
		<-e.done
	})
}

func (e *Exporter) loop() {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()
	defer close(e.done)

	for {
		select {
		case <-ticker.C:
			e.Poll()
		case <-e.quit:
			return
		}
	}
}

// Poll один проход опроса
func (e *Exporter) Poll() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.sched != nil {
		st := e.sched.Stats()
		addDelta(e.dispatched, st.Dispatched, e.prevSched.Dispatched)
		addDelta(e.completed, st.Completed, e.prevSched.Completed)
		addDelta(e.failed, st.Failed, e.prevSched.Failed)
		addDelta(e.placeholders, st.Placeholders, e.prevSched.Placeholders)
		addDelta(e.retries, st.Retries, e.prevSched.Retries)
		addDelta(e.invalidations, st.Invalidations, e.prevSched.Invalidations)
		e.queued.Set(float64(st.Queued))
		e.inflight.Set(float64(st.InFlight))
		e.remaining.Set(float64(st.SpiralRemaining))
		for _, s := range []scheduler.State{scheduler.Idle, scheduler.Running, scheduler.Paused, scheduler.Stopped} {
			v := 0.0
			if s == st.State {
				v = 1
			}
			e.state.WithLabelValues(s.String()).Set(v)
		}
		e.prevSched = st
	}

	if e.bus != nil {
		bs := e.bus.Metrics()
		addDelta(e.busPublished, bs.Published, e.prevBus.Published)
		addDelta(e.busConsumed, bs.Consumed, e.prevBus.Consumed)
		addDelta(e.busDropped, bs.Dropped, e.prevBus.Dropped)
		e.busInflight.Set(float64(bs.InFlight))
		e.prevBus = bs
	}
}

func addDelta(c prometheus.Counter, cur, prev uint64) {
	if cur > prev {
		c.Add(float64(cur - prev))
	}
}
