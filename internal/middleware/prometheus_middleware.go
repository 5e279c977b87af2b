package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTPMetrics - метрики REST-адаптера:
//
//	<ns>_http_requests_total{method,route,code}
//	<ns>_http_request_duration_seconds{method,route}
//	<ns>_http_response_size_bytes{route}
//	<ns>_http_requests_inflight
//	<ns>_http_forbidden_total{route} - отказы проверки доступа и прав оператора
type HTTPMetrics struct {
	requests  *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	size      *prometheus.HistogramVec
	inflight  prometheus.Gauge
	forbidden *prometheus.CounterVec
}

// NewHTTPMetrics регистрирует метрики в reg с пространством имён namespace.
func NewHTTPMetrics(namespace string, reg prometheus.Registerer) *HTTPMetrics {
	m := &HTTPMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP-запросов по маршрутам и кодам ответа.",
		}, []string{"method", "route", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Длительность HTTP-запросов.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"method", "route"}),
		size: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_response_size_bytes",
			Help:      "Размер ответов.",
			Buckets:   prometheus.ExponentialBuckets(64, 4, 7),
		}, []string{"route"}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_inflight",
			Help:      "Запросов в обработке.",
		}),
		forbidden: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_forbidden_total",
			Help:      "Ответов 403 по маршрутам.",
		}, []string{"route"}),
	}
	reg.MustRegister(m.requests, m.duration, m.size, m.inflight, m.forbidden)
	return m
}

// Handler возвращает middleware для router.Use().
func (m *HTTPMetrics) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		m.inflight.Inc()
		defer m.inflight.Dec()
		start := time.Now()

		c.Next()

		// Несовпавшие маршруты сводятся в одну метку, чтобы не плодить ряды.
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		m.requests.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		m.duration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
		if n := c.Writer.Size(); n > 0 {
			m.size.WithLabelValues(route).Observe(float64(n))
		}
		if status == http.StatusForbidden {
			m.forbidden.WithLabelValues(route).Inc()
		}
	}
}

// RegisterMetricsEndpoint добавляет GET /metrics в указанный router.
func RegisterMetricsEndpoint(r gin.IRoutes, g prometheus.Gatherer) {
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(g, promhttp.HandlerOpts{})))
}
