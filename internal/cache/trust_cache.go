// Package cache держит решения хранилища доверия в памяти узла и
// сбрасывает их на всех узлах при изменении доверия владельца.
package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/annel0/voxelforge/internal/logging"
	"github.com/annel0/voxelforge/internal/security"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

// ErrOverrideUnsupported - вложенное хранилище не хранит перекрытия режима.
var ErrOverrideUnsupported = errors.New("cache: override store not supported")

type trustEntry struct {
	trusted bool
	expires time.Time
}

type overrideEntry struct {
	mode    security.Mode
	enabled bool
	expires time.Time
}

// TrustCache реализует security.TrustStore и security.OverrideStore
// поверх другого хранилища. Кэшируются только IsTrusted и Override;
// списки доверенных всегда читаются из хранилища.
type TrustCache struct {
	inner       security.TrustStore
	ttl         time.Duration
	invalidator Invalidator
	now         func() time.Time

	mu        sync.RWMutex
	trusted   map[uuid.UUID]map[uuid.UUID]trustEntry
	overrides map[uuid.UUID]overrideEntry
	// gen растёт при каждом сбросе владельца. Ответ хранилища, полученный
	// до сброса, в кэш не записывается.
	gen map[uuid.UUID]uint64

	hits   int64
	misses int64
}

// NewTrustCache оборачивает inner. invalidator может быть nil для
// одиночного узла.
func NewTrustCache(inner security.TrustStore, ttl time.Duration, invalidator Invalidator) *TrustCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &TrustCache{
		inner:       inner,
		ttl:         ttl,
		invalidator: invalidator,
		now:         time.Now,
		trusted:     make(map[uuid.UUID]map[uuid.UUID]trustEntry),
		overrides:   make(map[uuid.UUID]overrideEntry),
		gen:         make(map[uuid.UUID]uint64),
	}
}

// Start подписывает кэш на сбросы других узлов.
func (c *TrustCache) Start(ctx context.Context) error {
	if c.invalidator == nil {
		return nil
	}
	return c.invalidator.Subscribe(ctx, c.Invalidate)
}

// Invalidate удаляет записи владельца из локального кэша.
func (c *TrustCache) Invalidate(owner uuid.UUID) {
	c.mu.Lock()
	delete(c.trusted, owner)
	delete(c.overrides, owner)
	c.gen[owner]++
	c.mu.Unlock()
}

func (c *TrustCache) IsTrusted(ctx context.Context, owner, actor uuid.UUID) (bool, error) {
	now := c.now()
	c.mu.RLock()
	e, ok := c.trusted[owner][actor]
	gen := c.gen[owner]
	c.mu.RUnlock()
	if ok && now.Before(e.expires) {
		atomic.AddInt64(&c.hits, 1)
		return e.trusted, nil
	}
	atomic.AddInt64(&c.misses, 1)

	trusted, err := c.inner.IsTrusted(ctx, owner, actor)
	if err != nil {
		return false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen[owner] != gen {
		return trusted, nil
	}
	set, ok := c.trusted[owner]
	if !ok {
		set = make(map[uuid.UUID]trustEntry)
		c.trusted[owner] = set
	}
	set[actor] = trustEntry{trusted: trusted, expires: now.Add(c.ttl)}
	return trusted, nil
}

func (c *TrustCache) Trust(ctx context.Context, owner, actor uuid.UUID) error {
	if err := c.inner.Trust(ctx, owner, actor); err != nil {
		return err
	}
	c.changed(ctx, owner)
	return nil
}

func (c *TrustCache) Untrust(ctx context.Context, owner, actor uuid.UUID) error {
	if err := c.inner.Untrust(ctx, owner, actor); err != nil {
		return err
	}
	c.changed(ctx, owner)
	return nil
}

func (c *TrustCache) Trusted(ctx context.Context, owner uuid.UUID) ([]uuid.UUID, error) {
	return c.inner.Trusted(ctx, owner)
}

func (c *TrustCache) Override(ctx context.Context, owner uuid.UUID) (security.Mode, bool, error) {
	store, ok := c.inner.(security.OverrideStore)
	if !ok {
		return security.Public, false, nil
	}
	now := c.now()
	c.mu.RLock()
	e, ok := c.overrides[owner]
	gen := c.gen[owner]
	c.mu.RUnlock()
	if ok && now.Before(e.expires) {
		atomic.AddInt64(&c.hits, 1)
		return e.mode, e.enabled, nil
	}
	atomic.AddInt64(&c.misses, 1)

	mode, enabled, err := store.Override(ctx, owner)
	if err != nil {
		return mode, false, err
	}
	c.mu.Lock()
	if c.gen[owner] == gen {
		c.overrides[owner] = overrideEntry{mode: mode, enabled: enabled, expires: now.Add(c.ttl)}
	}
	c.mu.Unlock()
	return mode, enabled, nil
}

func (c *TrustCache) SetOverride(ctx context.Context, owner uuid.UUID, mode security.Mode, enabled bool) error {
	store, ok := c.inner.(security.OverrideStore)
	if !ok {
		return ErrOverrideUnsupported
	}
	if err := store.SetOverride(ctx, owner, mode, enabled); err != nil {
		return err
	}
	c.changed(ctx, owner)
	return nil
}

// changed сбрасывает записи владельца здесь и на других узлах. Ошибка
// рассылки не отменяет записи: чужие узлы догонят по TTL.
func (c *TrustCache) changed(ctx context.Context, owner uuid.UUID) {
	c.Invalidate(owner)
	if c.invalidator == nil {
		return
	}
	if err := c.invalidator.Publish(ctx, owner); err != nil {
		logging.Warn("Не удалось разослать сброс доверия %s: %v", owner, err)
	}
}

// Stats возвращает число попаданий и промахов кэша.
func (c *TrustCache) Stats() (hits, misses int64) {
	return atomic.LoadInt64(&c.hits), atomic.LoadInt64(&c.misses)
}

// RegisterMetrics публикует счётчики попаданий и промахов в reg.
func (c *TrustCache) RegisterMetrics(namespace string, reg prometheus.Registerer) error {
	hits := prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "trust_cache",
		Name:      "hits_total",
		Help:      "Ответы кэша доверия без обращения к хранилищу.",
	}, func() float64 { return float64(atomic.LoadInt64(&c.hits)) })
	misses := prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "trust_cache",
		Name:      "misses_total",
		Help:      "Обращения к хранилищу доверия мимо кэша.",
	}, func() float64 { return float64(atomic.LoadInt64(&c.misses)) })
	for _, col := range []prometheus.Collector{hits, misses} {
		if err := reg.Register(col); err != nil {
			return err
		}
	}
	return nil
}

// Close закрывает invalidator. Вложенное хранилище закрывает владелец.
func (c *TrustCache) Close() error {
	if c.invalidator == nil {
		return nil
	}
	return c.invalidator.Close()
}
