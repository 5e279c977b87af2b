package eventbus

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/annel0/voxelforge/internal/logging"
	"github.com/annel0/voxelforge/internal/security"
	"github.com/annel0/voxelforge/internal/world"
	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// collector накапливает доставленные конверты.
type collector struct {
	mu  sync.Mutex
	evs []*Envelope
}

func (c *collector) handle(_ context.Context, ev *Envelope) {
	c.mu.Lock()
	c.evs = append(c.evs, ev)
	c.mu.Unlock()
}

func (c *collector) snapshot() []*Envelope {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*Envelope(nil), c.evs...)
}

func (c *collector) waitFor(t *testing.T, n int) []*Envelope {
	t.Helper()
	require.Eventually(t, func() bool { return len(c.snapshot()) >= n }, time.Second, 5*time.Millisecond)
	return c.snapshot()
}

func TestMemoryBusFilter(t *testing.T) {
	bus := NewMemoryBus(16)
	defer bus.Close()
	ctx := context.Background()

	var all, formed collector
	_, err := bus.Subscribe(ctx, Filter{}, all.handle)
	require.NoError(t, err)
	_, err = bus.Subscribe(ctx, Filter{Types: []string{"structure_formed"}}, formed.handle)
	require.NoError(t, err)

	for _, typ := range []string{"cell_placed", "structure_formed", "cell_removed"} {
		env, err := NewEnvelope("test", typ, 1, map[string]int{"n": 1})
		require.NoError(t, err)
		require.NoError(t, bus.Publish(ctx, env))
	}

	assert.Len(t, all.waitFor(t, 3), 3)
	got := formed.waitFor(t, 1)
	require.Len(t, got, 1)
	assert.Equal(t, "structure_formed", got[0].EventType)
	assert.NotEmpty(t, got[0].ID)

	stats := bus.Metrics()
	assert.Equal(t, uint64(3), stats.Published)
}

func TestMemoryBusUnsubscribeAndClose(t *testing.T) {
	bus := NewMemoryBus(4)
	ctx := context.Background()

	var c collector
	sub, err := bus.Subscribe(ctx, Filter{}, c.handle)
	require.NoError(t, err)
	sub.Unsubscribe()

	env, err := NewEnvelope("test", "cell_placed", 1, nil)
	require.NoError(t, err)
	require.NoError(t, bus.Publish(ctx, env))
	require.Eventually(t, func() bool { return bus.Metrics().InFlight == 0 }, time.Second, 5*time.Millisecond)
	assert.Empty(t, c.snapshot())

	require.NoError(t, bus.Close())
	require.NoError(t, bus.Close(), "повторное закрытие безопасно")
	assert.ErrorIs(t, bus.Publish(ctx, env), ErrClosed)
}

func TestMemoryBusDropsLowPriorityWhenFull(t *testing.T) {
	bus := NewMemoryBus(1)
	defer bus.Close()
	ctx := context.Background()

	release := make(chan struct{})
	_, err := bus.Subscribe(ctx, Filter{}, func(context.Context, *Envelope) { <-release })
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		env, err := NewEnvelope("test", "cell_placed", 0, nil)
		require.NoError(t, err)
		require.NoError(t, bus.Publish(ctx, env))
	}
	close(release)
	assert.Positive(t, bus.Metrics().Dropped)

	tctx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	block := make(chan struct{})
	_, err = bus.Subscribe(ctx, Filter{Types: []string{"slow"}}, func(context.Context, *Envelope) { <-block })
	require.NoError(t, err)
	defer close(block)
	var lastErr error
	for i := 0; i < 4 && lastErr == nil; i++ {
		env, _ := NewEnvelope("test", "slow", 9, nil)
		lastErr = bus.Publish(tctx, env)
	}
	assert.ErrorIs(t, lastErr, context.DeadlineExceeded, "высокий приоритет ждёт места в буфере")
}

func TestPublisherWorldEvents(t *testing.T) {
	bus := NewMemoryBus(16)
	defer bus.Close()
	ctx := context.Background()

	var c collector
	_, err := bus.Subscribe(ctx, Filter{}, c.handle)
	require.NoError(t, err)

	pub := NewPublisher(bus, "")
	listener := pub.Listener()
	listener(world.Event{Type: world.EventStructureFormed, Pos: cube.Pos{1, 2, 3}, Structure: "dynamic_tank", Capacity: 16000})

	actor, owner := uuid.New(), uuid.New()
	pub.Reporter()(ctx, security.Denial{Actor: actor, Owner: owner, Mode: security.Private, Err: errors.New("нет доступа")})

	got := c.waitFor(t, 2)
	assert.Equal(t, "structure_formed", got[0].EventType)
	assert.Equal(t, "voxelforge", got[0].Source)
	assert.Equal(t, PriorityStructure, got[0].Priority)

	var ev world.Event
	require.NoError(t, got[0].Decode(&ev))
	assert.Equal(t, cube.Pos{1, 2, 3}, ev.Pos)
	assert.Equal(t, "dynamic_tank", ev.Structure)
	assert.Equal(t, int64(16000), ev.Capacity)

	assert.Equal(t, TypeAccessDenied, got[1].EventType)
	var d DenialPayload
	require.NoError(t, got[1].Decode(&d))
	assert.Equal(t, actor, d.Actor)
	assert.Equal(t, owner, d.Owner)
	assert.Equal(t, security.Private.String(), d.Mode)
	assert.Equal(t, "нет доступа", d.Error)
}

func TestStatsCollector(t *testing.T) {
	bus := NewMemoryBus(8, WithLogger(logging.NewDiscardLogger()))
	ctx := context.Background()

	var got collector
	_, err := bus.Subscribe(ctx, Filter{}, got.handle)
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	reg.MustRegister(NewStatsCollector("vf", bus))

	for i := 0; i < 3; i++ {
		env, err := NewEnvelope("test", "cell_placed", 1, nil)
		require.NoError(t, err)
		require.NoError(t, bus.Publish(ctx, env))
	}
	require.NoError(t, bus.Close())

	expected := `
# HELP vf_eventbus_messages_published_total Конвертов, принятых шиной.
# TYPE vf_eventbus_messages_published_total counter
vf_eventbus_messages_published_total 3
# HELP vf_eventbus_messages_consumed_total Доставок конвертов подписчикам.
# TYPE vf_eventbus_messages_consumed_total counter
vf_eventbus_messages_consumed_total 3
# HELP vf_eventbus_messages_inflight Конвертов в очереди на доставку.
# TYPE vf_eventbus_messages_inflight gauge
vf_eventbus_messages_inflight 0
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"vf_eventbus_messages_published_total",
		"vf_eventbus_messages_consumed_total",
		"vf_eventbus_messages_inflight",
	))
}

func TestMemoryBusPriorityFilterAndPanics(t *testing.T) {
	bus := NewMemoryBus(16, WithLogger(logging.NewDiscardLogger()), WithDropBelow(0))
	ctx := context.Background()

	_, err := bus.Subscribe(ctx, Filter{}, func(context.Context, *Envelope) { panic("сломанный подписчик") })
	require.NoError(t, err)
	var urgent collector
	_, err = bus.Subscribe(ctx, Filter{MinPriority: PriorityDenial}, urgent.handle)
	require.NoError(t, err)

	for _, prio := range []int{PriorityCell, PriorityDenial, PriorityStructure} {
		env, err := NewEnvelope("test", "cell_placed", prio, nil)
		require.NoError(t, err)
		require.NoError(t, bus.Publish(ctx, env))
	}

	// Close дожидается доставки всех принятых конвертов.
	require.NoError(t, bus.Close())
	got := urgent.snapshot()
	require.Len(t, got, 1)
	assert.Equal(t, PriorityDenial, got[0].Priority)
	assert.Equal(t, uint64(1), bus.Metrics().Consumed, "паника не считается доставкой")
}
