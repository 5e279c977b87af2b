// Package metrics экспортирует состояние мира в Prometheus.
package metrics

import (
	"context"

	"github.com/annel0/voxelforge/internal/security"
	"github.com/annel0/voxelforge/internal/world"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "voxelforge"

// WorldMetrics - счётчики мира: сканирования, структуры, отказы, тики.
//
// Использование:
//
//	m := metrics.New(prometheus.DefaultRegisterer)
//	w := world.New(..., world.WithListener(m.OnWorldEvent))
//	gate := security.NewGate(trust, security.WithReporter(m.OnDenial))
//	m.ObserveTick(w.Tick(ctx))
type WorldMetrics struct {
	ticks        prometheus.Counter
	tickDuration prometheus.Histogram
	scanPasses   prometheus.Counter
	ejected      prometheus.Counter
	formed       *prometheus.GaugeVec
	transitions  *prometheus.CounterVec
	cells        *prometheus.CounterVec
	interactions prometheus.Counter
	denials      *prometheus.CounterVec
}

// New создаёт метрики и регистрирует их в reg.
func New(reg prometheus.Registerer) *WorldMetrics {
	m := &WorldMetrics{
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Число выполненных тиков.",
		}),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tick_duration_seconds",
			Help:      "Длительность тика.",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
		}),
		scanPasses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "structure_scan_passes_total",
			Help:      "Проходов валидатора структур.",
		}),
		ejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ejections_total",
			Help:      "Успешных передач автовыдачи.",
		}),
		formed: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "structures_formed",
			Help:      "Сформированных структур по грамматикам.",
		}, []string{"grammar"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "structure_transitions_total",
			Help:      "Переходов структур formed/unformed.",
		}, []string{"grammar", "state", "reason"}),
		cells: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cell_changes_total",
			Help:      "Установок и снятий ячеек.",
		}, []string{"change"}),
		interactions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "interactions_total",
			Help:      "Успешных действий игроков.",
		}),
		denials: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "access_denied_total",
			Help:      "Отказов доступа по режимам безопасности.",
		}, []string{"mode"}),
	}
	reg.MustRegister(m.ticks, m.tickDuration, m.scanPasses, m.ejected,
		m.formed, m.transitions, m.cells, m.interactions, m.denials)
	return m
}

// ObserveTick учитывает результат world.Tick.
func (m *WorldMetrics) ObserveTick(s world.TickStats) {
	m.ticks.Inc()
	m.tickDuration.Observe(s.Duration.Seconds())
	m.scanPasses.Add(float64(s.Passes))
	m.ejected.Add(float64(s.Ejected))
}

// OnWorldEvent подходит как world.Listener.
func (m *WorldMetrics) OnWorldEvent(ev world.Event) {
	switch ev.Type {
	case world.EventStructureFormed:
		m.formed.WithLabelValues(ev.Structure).Inc()
		m.transitions.WithLabelValues(ev.Structure, "formed", "").Inc()
	case world.EventStructureUnformed:
		m.formed.WithLabelValues(ev.Structure).Dec()
		m.transitions.WithLabelValues(ev.Structure, "unformed", ev.Reason).Inc()
	case world.EventCellPlaced:
		m.cells.WithLabelValues("placed").Inc()
	case world.EventCellRemoved:
		m.cells.WithLabelValues("removed").Inc()
	case world.EventInteraction:
		m.interactions.Inc()
	}
}

// OnDenial подходит как security.DenialReporter.
func (m *WorldMetrics) OnDenial(_ context.Context, d security.Denial) {
	m.denials.WithLabelValues(d.Mode.String()).Inc()
}
