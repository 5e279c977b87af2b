package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/annel0/voxelforge/internal/security"
	"github.com/annel0/voxelforge/internal/world"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestWorldEvents(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.OnWorldEvent(world.Event{Type: world.EventStructureFormed, Structure: "dynamic_tank"})
	m.OnWorldEvent(world.Event{Type: world.EventStructureFormed, Structure: "dynamic_tank"})
	m.OnWorldEvent(world.Event{Type: world.EventStructureUnformed, Structure: "dynamic_tank", Reason: "member_removed"})
	m.OnWorldEvent(world.Event{Type: world.EventCellPlaced})
	m.OnWorldEvent(world.Event{Type: world.EventInteraction})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.formed.WithLabelValues("dynamic_tank")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitions.WithLabelValues("dynamic_tank", "unformed", "member_removed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cells.WithLabelValues("placed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.interactions))
}

func TestTickAndDenials(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveTick(world.TickStats{Tick: 1, Passes: 4, Ejected: 2, Duration: time.Millisecond})
	m.ObserveTick(world.TickStats{Tick: 2, Passes: 1})
	m.OnDenial(context.Background(), security.Denial{Mode: security.Private})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ticks))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.scanPasses))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ejected))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.denials.WithLabelValues(security.Private.String())))

	n, err := testutil.GatherAndCount(reg, "voxelforge_tick_duration_seconds")
	assert.NoError(t, err)
	assert.Equal(t, 1, n)
}
