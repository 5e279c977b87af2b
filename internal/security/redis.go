package security

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/annel0/voxelforge/internal/logging"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// RedisConfig - параметры подключения хранилища доверия.
type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
}

// RedisTrust хранит доверие в Redis, чтобы несколько серверов видели одни
// и те же списки. Доверенные владельца - множество trust:<owner>,
// перекрытия режимов - хеш security:override.
type RedisTrust struct {
	client *redis.Client
	prefix string
}

// NewRedisTrust подключается к Redis и проверяет соединение.
func NewRedisTrust(cfg RedisConfig) (*RedisTrust, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logging.Info("Redis trust store initialized: %s", cfg.Addr)
	return NewRedisTrustFromClient(rdb, cfg.KeyPrefix), nil
}

// NewRedisTrustFromClient оборачивает готовый клиент.
func NewRedisTrustFromClient(client *redis.Client, prefix string) *RedisTrust {
	return &RedisTrust{client: client, prefix: prefix}
}

func (r *RedisTrust) trustKey(owner uuid.UUID) string {
	return r.prefix + "trust:" + owner.String()
}

func (r *RedisTrust) overrideKey() string {
	return r.prefix + "security:override"
}

func (r *RedisTrust) IsTrusted(ctx context.Context, owner, actor uuid.UUID) (bool, error) {
	ok, err := r.client.SIsMember(ctx, r.trustKey(owner), actor.String()).Result()
	if err != nil {
		return false, fmt.Errorf("redis sismember: %w", err)
	}
	return ok, nil
}

func (r *RedisTrust) Trust(ctx context.Context, owner, actor uuid.UUID) error {
	if err := r.client.SAdd(ctx, r.trustKey(owner), actor.String()).Err(); err != nil {
		return fmt.Errorf("redis sadd: %w", err)
	}
	return nil
}

func (r *RedisTrust) Untrust(ctx context.Context, owner, actor uuid.UUID) error {
	if err := r.client.SRem(ctx, r.trustKey(owner), actor.String()).Err(); err != nil {
		return fmt.Errorf("redis srem: %w", err)
	}
	return nil
}

func (r *RedisTrust) Trusted(ctx context.Context, owner uuid.UUID) ([]uuid.UUID, error) {
	members, err := r.client.SMembers(ctx, r.trustKey(owner)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis smembers: %w", err)
	}
	sort.Strings(members)
	out := make([]uuid.UUID, 0, len(members))
	for _, m := range members {
		id, err := uuid.Parse(m)
		if err != nil {
			logging.Warn("Пропускаю некорректный UUID в %s: %q", r.trustKey(owner), m)
			continue
		}
		out = append(out, id)
	}
	return out, nil
}

func (r *RedisTrust) Override(ctx context.Context, owner uuid.UUID) (Mode, bool, error) {
	v, err := r.client.HGet(ctx, r.overrideKey(), owner.String()).Result()
	if err == redis.Nil {
		return Public, false, nil
	}
	if err != nil {
		return Public, false, fmt.Errorf("redis hget: %w", err)
	}
	mode, err := ParseMode(v)
	if err != nil {
		return Public, false, err
	}
	return mode, true, nil
}

func (r *RedisTrust) SetOverride(ctx context.Context, owner uuid.UUID, mode Mode, enabled bool) error {
	var err error
	if enabled {
		err = r.client.HSet(ctx, r.overrideKey(), owner.String(), mode.String()).Err()
	} else {
		err = r.client.HDel(ctx, r.overrideKey(), owner.String()).Err()
	}
	if err != nil {
		return fmt.Errorf("redis override: %w", err)
	}
	return nil
}

// Close закрывает соединение.
func (r *RedisTrust) Close() error {
	return r.client.Close()
}

var (
	_ TrustStore    = (*RedisTrust)(nil)
	_ OverrideStore = (*RedisTrust)(nil)
)
