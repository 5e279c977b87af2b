package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/annel0/voxelforge/internal/logging"
	"github.com/annel0/voxelforge/internal/multiblock"
	"github.com/annel0/voxelforge/internal/security"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Config корневая структура конфигурации приложения.
type Config struct {
	Server    ServerConfig         `yaml:"server"`
	Storage   StorageConfig        `yaml:"storage"`
	EventBus  EventBusConfig       `yaml:"eventbus"`
	Redis     security.RedisConfig `yaml:"redis"`
	Security  SecurityConfig       `yaml:"security"`
	Logging   LoggingConfig        `yaml:"logging"`
	Telemetry TelemetryConfig      `yaml:"telemetry"`

	// Grammars заменяют встроенные формы структур с тем же именем
	// и добавляют новые.
	Grammars []*multiblock.Grammar `yaml:"grammars"`
	// Recipes - путь к YAML-файлу рецептов; пусто - встроенные.
	Recipes string `yaml:"recipes"`
}

type ServerConfig struct {
	RESTPort    int `yaml:"rest_port"`
	MetricsPort int `yaml:"metrics_port"`
	TickMillis  int `yaml:"tick_ms"`
}

type StorageConfig struct {
	Path            string `yaml:"path"`
	InMemory        bool   `yaml:"in_memory"`
	AutosaveSeconds int    `yaml:"autosave_seconds"`
}

type EventBusConfig struct {
	URL       string `yaml:"url"` // пусто - шина в памяти
	Stream    string `yaml:"stream"`
	Retention int    `yaml:"retention_hours"`
}

type SecurityConfig struct {
	// Operators - игроки, проходящие любую проверку доступа.
	Operators []string `yaml:"operators"`
	JWTSecret string   `yaml:"jwt_secret"`
	// TrustCacheSeconds - срок жизни кэша решений доверия; 0 отключает кэш.
	TrustCacheSeconds int `yaml:"trust_cache_seconds"`
}

type LoggingConfig struct {
	Level       string `yaml:"level"`
	FileLevel   string `yaml:"file_level"`
	Dir         string `yaml:"dir"`
	JSON        bool   `yaml:"json"`
	SentryDSN   string `yaml:"sentry_dsn"`
	Environment string `yaml:"environment"`
	// Components - пороги консоли по компонентам: {multiblock: trace}.
	Components map[string]string `yaml:"components"`
}

type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
	Endpoint    string `yaml:"endpoint"` // OTLP HTTP, например localhost:4318
}

// GetRESTPort возвращает REST API порт с поддержкой fallback значений
func (s *ServerConfig) GetRESTPort() int {
	return getPortWithEnvFallback(s.RESTPort, "VF_REST_PORT", 8088)
}

// GetMetricsPort возвращает Prometheus метрики порт с поддержкой fallback значений
func (s *ServerConfig) GetMetricsPort() int {
	return getPortWithEnvFallback(s.MetricsPort, "VF_METRICS_PORT", 2112)
}

// TickInterval возвращает длительность тика (по умолчанию 50 мс, 20 тиков в секунду).
func (s *ServerConfig) TickInterval() time.Duration {
	if s.TickMillis <= 0 {
		return 50 * time.Millisecond
	}
	return time.Duration(s.TickMillis) * time.Millisecond
}

// AutosaveInterval возвращает период автосохранения (по умолчанию 5 минут).
func (s *StorageConfig) AutosaveInterval() time.Duration {
	if s.AutosaveSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(s.AutosaveSeconds) * time.Second
}

// DataPath возвращает каталог BadgerDB.
func (s *StorageConfig) DataPath() string {
	if s.Path == "" {
		return "data/world"
	}
	return s.Path
}

// StreamName возвращает имя потока JetStream.
func (e *EventBusConfig) StreamName() string {
	if e.Stream == "" {
		return "VOXELFORGE"
	}
	return e.Stream
}

// RetentionDuration возвращает срок хранения событий.
func (e *EventBusConfig) RetentionDuration() time.Duration {
	if e.Retention <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(e.Retention) * time.Hour
}

// OperatorIDs разбирает идентификаторы операторов.
func (s *SecurityConfig) OperatorIDs() ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(s.Operators))
	var errs []error
	for _, raw := range s.Operators {
		id, err := uuid.Parse(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("оператор %q: %w", raw, err))
			continue
		}
		ids = append(ids, id)
	}
	return ids, errors.Join(errs...)
}

// Secret возвращает секрет JWT: конфиг, затем VF_JWT_SECRET.
func (s *SecurityConfig) Secret() string {
	if s.JWTSecret != "" {
		return s.JWTSecret
	}
	return os.Getenv("VF_JWT_SECRET")
}

// TrustCacheTTL возвращает срок жизни кэша доверия, 0 - кэш выключен.
func (s *SecurityConfig) TrustCacheTTL() time.Duration {
	if s.TrustCacheSeconds <= 0 {
		return 0
	}
	return time.Duration(s.TrustCacheSeconds) * time.Second
}

// Options преобразует настройки в параметры логгеров.
func (l *LoggingConfig) Options() logging.Options {
	opts := logging.DefaultOptions()
	if l.Level != "" {
		opts.ConsoleLevel = logging.ParseLevel(l.Level)
	}
	if l.FileLevel != "" {
		opts.FileLevel = logging.ParseLevel(l.FileLevel)
	}
	if l.Dir != "" {
		opts.Dir = l.Dir
	}
	opts.JSON = l.JSON
	if len(l.Components) > 0 {
		opts.Components = make(map[string]logging.LogLevel, len(l.Components))
		for name, lvl := range l.Components {
			opts.Components[name] = logging.ParseLevel(lvl)
		}
	}
	return opts
}

// Name возвращает имя сервиса для трассировки.
func (t *TelemetryConfig) Name() string {
	if t.ServiceName == "" {
		return "voxelforge"
	}
	return t.ServiceName
}

// MergeGrammars возвращает встроенные грамматики, заменённые и дополненные
// грамматиками из конфигурации. Каждая грамматика проверяется.
func (c *Config) MergeGrammars(defaults []*multiblock.Grammar) ([]*multiblock.Grammar, error) {
	out := make([]*multiblock.Grammar, 0, len(defaults)+len(c.Grammars))
	index := make(map[string]int, len(defaults))
	for _, g := range defaults {
		index[g.Name] = len(out)
		out = append(out, g)
	}
	var errs []error
	for _, g := range c.Grammars {
		if err := g.Validate(); err != nil {
			errs = append(errs, err)
			continue
		}
		if i, ok := index[g.Name]; ok {
			out[i] = g
			continue
		}
		index[g.Name] = len(out)
		out = append(out, g)
	}
	return out, errors.Join(errs...)
}

// getPortWithEnvFallback возвращает порт с приоритетом: config -> env -> default
func getPortWithEnvFallback(configPort int, envVar string, defaultPort int) int {
	// Если порт задан в конфиге и больше 0, используем его
	if configPort > 0 {
		return configPort
	}

	// Пробуем прочитать из environment variable
	if envVal := os.Getenv(envVar); envVal != "" {
		if port, err := strconv.Atoi(envVal); err == nil && port > 0 {
			return port
		}
	}

	// Используем дефолтное значение
	return defaultPort
}

// Load читает YAML файл конфигурации.
// Если path == "", пытается прочитать из ENV VF_CONFIG; без него
// возвращается конфигурация по умолчанию.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("VF_CONFIG")
		if path == "" {
			return &Config{}, nil // конфиг не задан — использовать дефолты
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения конфигурации: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("ошибка разбора конфигурации %s: %w", path, err)
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = os.Getenv("VF_REDIS_ADDR")
	}
	return &cfg, nil
}
