// Package api - REST-адаптер хоста: переводит HTTP-события (смена соседа,
// действие игрока, запрос сигнала) в вызовы мира.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/annel0/voxelforge/internal/auth"
	"github.com/annel0/voxelforge/internal/logging"
	"github.com/annel0/voxelforge/internal/middleware"
	"github.com/annel0/voxelforge/internal/world"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// RestServer представляет REST API сервер
type RestServer struct {
	router   *gin.Engine
	http     *http.Server
	world    *world.World
	auth     *auth.Authenticator
	webhooks *OutboundWebhookManager
	metrics  *ServerMetrics
	logger   *logging.Logger
}

// Config содержит конфигурацию для REST сервера
type Config struct {
	Port        int                 // порт для запуска сервера
	ServiceName string              // имя сервиса для otelgin и метрик
	World       *world.World        // мир, в который передаются события
	Auth        *auth.Authenticator // проверка JWT
	Webhooks    *OutboundWebhookManager

	// Registerer и Gatherer для HTTP-метрик и /metrics. По умолчанию
	// глобальный регистр Prometheus.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
	Logger     *logging.Logger
}

// NewRestServer создает новый REST API сервер
func NewRestServer(cfg Config) *RestServer {
	if cfg.Port == 0 {
		cfg.Port = 8088
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "voxelforge"
	}
	if cfg.Registerer == nil {
		cfg.Registerer = prometheus.DefaultRegisterer
	}
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.GetAPILogger()
	}

	gin.SetMode(gin.ReleaseMode)

	router := gin.New()        // без стандартного logger/recovery
	router.Use(gin.Recovery()) // добавим только recovery

	// === Observability middleware ===
	router.Use(otelgin.Middleware(cfg.ServiceName))
	router.Use(middleware.NewRequestLogger(cfg.Logger).Handler())

	httpMetrics := middleware.NewHTTPMetrics(cfg.ServiceName, cfg.Registerer)
	router.Use(httpMetrics.Handler())
	middleware.RegisterMetricsEndpoint(router, cfg.Gatherer)

	rs := &RestServer{
		router:   router,
		world:    cfg.World,
		auth:     cfg.Auth,
		webhooks: cfg.Webhooks,
		metrics:  NewServerMetrics(),
		logger:   cfg.Logger,
	}
	rs.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	rs.setupRoutes()
	return rs
}

// Handler возвращает http.Handler сервера (тесты, встраивание).
func (rs *RestServer) Handler() http.Handler { return rs.router }

// setupRoutes настраивает маршруты REST API
func (rs *RestServer) setupRoutes() {
	rs.router.GET("/health", rs.handleHealth)

	api := rs.router.Group("/api")
	api.Use(rs.jwtMiddleware())
	{
		// События хоста
		api.POST("/events/neighbor", rs.handleNeighborChanged)
		api.POST("/events/interact", rs.handleInteract)
		api.POST("/ports/insert", rs.handleInsert)
		api.POST("/ports/extract", rs.handleExtract)

		// Ячейки
		api.POST("/cells", rs.handlePlace)
		api.GET("/cells/:x/:y/:z", rs.handleCellInfo)
		api.DELETE("/cells/:x/:y/:z", rs.handleBreak)
		api.GET("/cells/:x/:y/:z/signal", rs.handleSignal)

		api.GET("/structures", rs.handleStructures)
		api.GET("/stats", rs.handleStats)

		// Управление исходящими webhook'ами (только операторы)
		admin := api.Group("/admin")
		admin.Use(rs.operatorMiddleware())
		{
			admin.GET("/webhooks", rs.handleGetOutboundWebhooks)
			admin.POST("/webhooks", rs.handleCreateOutboundWebhook)
			admin.GET("/webhooks/:id", rs.handleGetOutboundWebhook)
			admin.PUT("/webhooks/:id", rs.handleUpdateOutboundWebhook)
			admin.DELETE("/webhooks/:id", rs.handleDeleteOutboundWebhook)
		}
	}
}

// GenericResponse представляет общий ответ API
type GenericResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// handleHealth проверка состояния сервера
func (rs *RestServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"tick":   rs.world.CurrentTick(),
		"time":   time.Now().Unix(),
	})
}

// Start запускает REST сервер и блокирует до остановки.
func (rs *RestServer) Start() error {
	rs.logger.Info("🌐 REST API слушает %s", rs.http.Addr)
	if err := rs.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop корректно останавливает REST сервер.
func (rs *RestServer) Stop(ctx context.Context) error {
	return rs.http.Shutdown(ctx)
}
