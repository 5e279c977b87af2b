package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/annel0/voxelforge/internal/api"
	"github.com/annel0/voxelforge/internal/auth"
	"github.com/annel0/voxelforge/internal/cache"
	"github.com/annel0/voxelforge/internal/config"
	"github.com/annel0/voxelforge/internal/eventbus"
	"github.com/annel0/voxelforge/internal/logging"
	"github.com/annel0/voxelforge/internal/metrics"
	"github.com/annel0/voxelforge/internal/middleware"
	"github.com/annel0/voxelforge/internal/observability"
	"github.com/annel0/voxelforge/internal/recipe"
	"github.com/annel0/voxelforge/internal/security"
	"github.com/annel0/voxelforge/internal/storage"
	"github.com/annel0/voxelforge/internal/world"
	"github.com/annel0/voxelforge/internal/world/block/implementations"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	configPath := flag.String("config", "", "путь к YAML конфигурации (по умолчанию VF_CONFIG)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}

	opts := cfg.Logging.Options()
	logging.GetLoggerManager().Configure(opts)
	if err := logging.InitDefaultLogger("server"); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()
	defer logging.GetLoggerManager().CloseAll()

	hook, err := logging.InitSentry(cfg.Logging.SentryDSN, cfg.Logging.Environment)
	if err != nil {
		logging.Warn("Sentry недоступен: %v", err)
	}
	if hook != nil {
		logging.DefaultLogger().AddHook(hook)
		defer logging.FlushSentry(2 * time.Second)
	}

	if err := run(cfg); err != nil {
		logging.Error("❌ %v", err)
		os.Exit(1)
	}
	logging.Info("👋 Сервер успешно остановлен")
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info("🏗️ Запуск VoxelForge: REST=%d, метрики=%d, тик=%s",
		cfg.Server.GetRESTPort(), cfg.Server.GetMetricsPort(), cfg.Server.TickInterval())

	// === ТЕЛЕМЕТРИЯ ===
	shutdownTracing, err := observability.InitTelemetry(ctx, cfg.Telemetry.Enabled, cfg.Telemetry.Name(), cfg.Telemetry.Endpoint)
	if err != nil {
		return fmt.Errorf("телеметрия: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logging.Warn("Ошибка остановки трассировки: %v", err)
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// === ДОВЕРИЕ ===
	trust, closeTrust, err := openTrust(ctx, cfg, reg)
	if err != nil {
		return err
	}
	defer closeTrust()

	// === ШИНА СОБЫТИЙ ===
	bus, err := openBus(cfg)
	if err != nil {
		return err
	}
	defer bus.Close()

	publisher := eventbus.NewPublisher(bus, cfg.Telemetry.Name())
	reg.MustRegister(eventbus.NewStatsCollector(cfg.Telemetry.Name(), bus))

	if _, err := eventbus.StartLoggingListener(ctx, bus); err != nil {
		return fmt.Errorf("логирование событий: %w", err)
	}

	worldMetrics := metrics.New(reg)

	// === МИР ===
	operators, err := cfg.Security.OperatorIDs()
	if err != nil {
		return fmt.Errorf("операторы: %w", err)
	}
	gate := security.NewGate(trust,
		security.WithOperators(operators...),
		security.WithReporter(publisher.Reporter()),
		security.WithReporter(worldMetrics.OnDenial),
	)

	recipes := recipe.Defaults()
	if cfg.Recipes != "" {
		if err := recipes.LoadFile(cfg.Recipes); err != nil {
			return fmt.Errorf("рецепты: %w", err)
		}
	}
	registry, err := implementations.NewDefaultRegistry(recipes)
	if err != nil {
		return fmt.Errorf("реестр блоков: %w", err)
	}
	grammars, err := cfg.MergeGrammars(implementations.DefaultGrammars())
	if err != nil {
		return fmt.Errorf("грамматики: %w", err)
	}
	w := world.New(registry, grammars, gate,
		world.WithListener(publisher.Listener()),
		world.WithListener(worldMetrics.OnWorldEvent),
	)
	logging.Info("📦 Блоков: %d, грамматик: %d, рецептов: %d", len(registry.Tags()), len(grammars), recipes.Len())

	store, err := openStorage(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.LoadWorld(w); err != nil {
		return fmt.Errorf("загрузка мира: %w", err)
	}

	// === REST ===
	authenticator, err := auth.NewAuthenticator(cfg.Security.Secret())
	if err != nil {
		return fmt.Errorf("JWT: %w", err)
	}
	webhooks := api.NewOutboundWebhookManager(nil)
	defer webhooks.Close()
	if err := webhooks.Attach(ctx, bus); err != nil {
		return fmt.Errorf("вебхуки: %w", err)
	}

	rest := api.NewRestServer(api.Config{
		Port:        cfg.Server.GetRESTPort(),
		ServiceName: cfg.Telemetry.Name(),
		World:       w,
		Auth:        authenticator,
		Webhooks:    webhooks,
		Registerer:  reg,
		Gatherer:    reg,
	})
	go func() {
		if err := rest.Start(); err != nil {
			logging.Error("❌ REST API: %v", err)
			stop()
		}
	}()
	metricsSrv := startMetricsServer(cfg.Server.GetMetricsPort(), reg)

	logging.Info("✅ Все сервисы запущены")
	logging.Info("   🌐 REST API: http://localhost:%d", cfg.Server.GetRESTPort())
	logging.Info("   ❤️  Health check: http://localhost:%d/health", cfg.Server.GetRESTPort())

	tickLoop(ctx, w, worldMetrics, store, cfg)

	// === GRACEFUL SHUTDOWN ===
	logging.Info("📡 Получен сигнал, завершение работы...")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := rest.Stop(sctx); err != nil {
		logging.Error("❌ Ошибка остановки REST API: %v", err)
	}
	if err := metricsSrv.Shutdown(sctx); err != nil {
		logging.Error("❌ Ошибка остановки сервера метрик: %v", err)
	}
	if err := store.SaveWorld(w); err != nil {
		logging.Error("❌ Ошибка сохранения мира: %v", err)
	}
	return nil
}

// tickLoop продвигает мир до отмены ctx и периодически сохраняет его.
func tickLoop(ctx context.Context, w *world.World, m *metrics.WorldMetrics, store *storage.WorldStorage, cfg *config.Config) {
	ticker := time.NewTicker(cfg.Server.TickInterval())
	defer ticker.Stop()
	autosave := time.NewTicker(cfg.Storage.AutosaveInterval())
	defer autosave.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.ObserveTick(w.Tick(ctx))
		case <-autosave.C:
			if err := store.SaveWorld(w); err != nil {
				logging.Error("❌ Ошибка автосохранения: %v", err)
			}
		}
	}
}

func openTrust(ctx context.Context, cfg *config.Config, reg prometheus.Registerer) (security.TrustStore, func(), error) {
	var trust security.TrustStore
	closeFn := func() {}
	if cfg.Redis.Addr != "" {
		rt, err := security.NewRedisTrust(cfg.Redis)
		if err != nil {
			return nil, nil, fmt.Errorf("Redis: %w", err)
		}
		logging.Info("🔐 Доверие хранится в Redis %s", cfg.Redis.Addr)
		trust, closeFn = rt, func() { rt.Close() }
	} else {
		logging.Info("🔐 Доверие хранится в памяти")
		trust = security.NewMemoryTrust()
	}

	ttl := cfg.Security.TrustCacheTTL()
	if ttl == 0 {
		return trust, closeFn, nil
	}

	var inv cache.Invalidator
	if cfg.EventBus.URL != "" {
		nats, err := cache.NewNATSInvalidator(cfg.EventBus.URL, "", "")
		if err != nil {
			closeFn()
			return nil, nil, err
		}
		inv = nats
	}
	tc := cache.NewTrustCache(trust, ttl, inv)
	if err := tc.Start(ctx); err != nil {
		tc.Close()
		closeFn()
		return nil, nil, fmt.Errorf("кэш доверия: %w", err)
	}
	if err := tc.RegisterMetrics(cfg.Telemetry.Name(), reg); err != nil {
		logging.Warn("Метрики кэша доверия не зарегистрированы: %v", err)
	}
	logging.Info("🔐 Кэш доверия включён, TTL %s", ttl)
	inner := closeFn
	return tc, func() { tc.Close(); inner() }, nil
}

func openBus(cfg *config.Config) (eventbus.EventBus, error) {
	if cfg.EventBus.URL == "" {
		logging.Info("📨 Шина событий в памяти")
		return eventbus.NewMemoryBus(4096), nil
	}
	bus, err := eventbus.NewJetStreamBus(cfg.EventBus.URL, cfg.EventBus.StreamName(), cfg.EventBus.RetentionDuration())
	if err != nil {
		return nil, fmt.Errorf("JetStream: %w", err)
	}
	logging.Info("📨 Шина событий JetStream %s (%s)", cfg.EventBus.URL, cfg.EventBus.StreamName())
	return bus, nil
}

func openStorage(cfg *config.Config) (*storage.WorldStorage, error) {
	if cfg.Storage.InMemory {
		logging.Warn("💾 Мир хранится только в памяти")
		return storage.NewInMemoryWorldStorage()
	}
	ws, err := storage.NewWorldStorage(cfg.Storage.DataPath())
	if err != nil {
		return nil, err
	}
	logging.Info("💾 Мир хранится в %s", cfg.Storage.DataPath())
	return ws, nil
}

// startMetricsServer поднимает отдельный порт для Prometheus.
func startMetricsServer(port int, g prometheus.Gatherer) *http.Server {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	middleware.RegisterMetricsEndpoint(r, g)

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: r}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("❌ Сервер метрик: %v", err)
		}
	}()
	return srv
}
