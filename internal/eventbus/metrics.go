package eventbus

import (
	"github.com/prometheus/client_golang/prometheus"
)

// StatsCollector отдаёт Stats шины в Prometheus в момент сбора метрик.
// Реализация шины не важна: нужен только Metrics().
type StatsCollector struct {
	bus EventBus

	published *prometheus.Desc
	consumed  *prometheus.Desc
	dropped   *prometheus.Desc
	inflight  *prometheus.Desc
}

// NewStatsCollector создаёт коллектор с префиксом namespace_eventbus_.
func NewStatsCollector(namespace string, bus EventBus) *StatsCollector {
	name := func(n string) string { return prometheus.BuildFQName(namespace, "eventbus", n) }
	return &StatsCollector{
		bus:       bus,
		published: prometheus.NewDesc(name("messages_published_total"), "Конвертов, принятых шиной.", nil, nil),
		consumed:  prometheus.NewDesc(name("messages_consumed_total"), "Доставок конвертов подписчикам.", nil, nil),
		dropped:   prometheus.NewDesc(name("messages_dropped_total"), "Конвертов, потерянных при переполнении или отказе сервера.", nil, nil),
		inflight:  prometheus.NewDesc(name("messages_inflight"), "Конвертов в очереди на доставку.", nil, nil),
	}
}

func (c *StatsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.published
	ch <- c.consumed
	ch <- c.dropped
	ch <- c.inflight
}

func (c *StatsCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.bus.Metrics()
	ch <- prometheus.MustNewConstMetric(c.published, prometheus.CounterValue, float64(s.Published))
	ch <- prometheus.MustNewConstMetric(c.consumed, prometheus.CounterValue, float64(s.Consumed))
	ch <- prometheus.MustNewConstMetric(c.dropped, prometheus.CounterValue, float64(s.Dropped))
	ch <- prometheus.MustNewConstMetric(c.inflight, prometheus.GaugeValue, float64(s.InFlight))
}
