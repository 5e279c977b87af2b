package sideconfig

import (
	"math/rand"
	"testing"

	"github.com/annel0/voxelforge/internal/lattice"
	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomConfig(r *rand.Rand) *Config {
	c := New(Item, Fluid, Gas, Energy)
	for _, t := range Transmissions {
		for _, s := range Sides {
			_ = c.SetSide(t, s, Channel(r.Intn(3)))
		}
	}
	c.SetFacing(lattice.Faces[r.Intn(6)])
	return c
}

func snapshot(c *Config) map[Transmission]map[cube.Face]Channel {
	out := make(map[Transmission]map[cube.Face]Channel)
	for _, t := range c.Supported() {
		out[t] = make(map[cube.Face]Channel)
		for _, f := range lattice.Faces {
			out[t][f] = c.Channel(t, f)
		}
	}
	return out
}

func TestRotate_RoundTripRestoresMapping(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	axes := []cube.Axis{cube.X, cube.Y, cube.Z}

	for i := 0; i < 200; i++ {
		c := randomConfig(r)
		before := snapshot(c)
		orient := c.Orientation()

		axis := axes[r.Intn(3)]
		inverse := r.Intn(2) == 0
		c.Rotate(axis, inverse)
		c.Rotate(axis, !inverse)

		assert.Equal(t, orient, c.Orientation(), "ориентация после прямого и обратного поворота")
		assert.Equal(t, before, snapshot(c), "режимы граней после прямого и обратного поворота")
	}
}

func TestRotate_FourTurnsIsIdentity(t *testing.T) {
	c := New(Energy)
	c.SetFacing(cube.FaceWest)
	orient := c.Orientation()
	for _, axis := range []cube.Axis{cube.X, cube.Y, cube.Z} {
		for i := 0; i < 4; i++ {
			c.Rotate(axis, false)
		}
		assert.Equal(t, orient, c.Orientation())
	}
}

func TestRotate_PermutesLabelsOnly(t *testing.T) {
	c := New(Energy)
	require.NoError(t, c.Fill(Energy, Input))
	require.NoError(t, c.SetSide(Energy, Front, Output))
	assert.Equal(t, Output, c.Channel(Energy, cube.FaceNorth))

	c.Rotate(cube.Y, false)

	assert.Equal(t, cube.FaceEast, c.Facing())
	assert.Equal(t, Output, c.Channel(Energy, cube.FaceEast), "выход переехал вместе с лицевой стороной")
	assert.Equal(t, Input, c.Channel(Energy, cube.FaceNorth))
	assert.Equal(t, Output, c.SideChannel(Energy, Front), "назначение стороны не изменилось")
	assert.Equal(t, cube.FaceNorth, c.FaceOf(Left))
}

func TestSetFacing_CanonicalOrientation(t *testing.T) {
	c := New()

	c.SetFacing(cube.FaceSouth)
	assert.Equal(t, [6]cube.Face{
		Front: cube.FaceSouth, Back: cube.FaceNorth,
		Left: cube.FaceEast, Right: cube.FaceWest,
		Top: cube.FaceUp, Bottom: cube.FaceDown,
	}, c.Orientation())

	c.SetFacing(cube.FaceUp)
	assert.Equal(t, cube.FaceUp, c.FaceOf(Front))
	assert.Equal(t, cube.FaceDown, c.FaceOf(Back))
	assert.Equal(t, cube.FaceSouth, c.FaceOf(Top))
	assert.Equal(t, cube.FaceWest, c.FaceOf(Left))

	c.SetFacing(cube.FaceDown)
	assert.Equal(t, cube.FaceDown, c.FaceOf(Front))
	assert.Equal(t, cube.FaceNorth, c.FaceOf(Top))
}

func TestUnsupportedTransmission(t *testing.T) {
	c := New(Energy)
	assert.False(t, c.Supports(Item))
	assert.ErrorIs(t, c.SetChannel(Item, cube.FaceUp, Input), ErrUnsupported)
	assert.ErrorIs(t, c.Fill(Gas, Output), ErrUnsupported)
	assert.Equal(t, Disabled, c.Channel(Item, cube.FaceUp))
	assert.Nil(t, c.FacesWith(Item, Disabled))
}

func TestSaveLoad_Lossless(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 50; i++ {
		c := randomConfig(r)
		c.Rotate(cube.Z, r.Intn(2) == 0)
		c.Ejector = Ejector{Enabled: r.Intn(2) == 0, StrictInput: r.Intn(2) == 0}

		m := map[string]string{}
		c.Save(m)

		restored := New(Item, Fluid, Gas, Energy)
		require.NoError(t, restored.Load(m))
		assert.Equal(t, c.Orientation(), restored.Orientation())
		assert.Equal(t, snapshot(c), snapshot(restored))
		assert.Equal(t, c.Ejector, restored.Ejector)
	}
}

func TestLoad_RejectsBrokenOrientation(t *testing.T) {
	m := map[string]string{}
	New(Energy).Save(m)
	m["orient.back"] = "north"

	c := New(Energy)
	assert.Error(t, c.Load(m))
	assert.Equal(t, cube.FaceSouth, c.FaceOf(Back), "битая таблица не применяется")

	// Перестановка граней, но зад и лево не напротив переда и права.
	m = map[string]string{}
	New(Energy).Save(m)
	m["orient.back"] = "west"
	m["orient.left"] = "south"

	c = New(Energy)
	assert.Error(t, c.Load(m))
	assert.Equal(t, cube.FaceSouth, c.FaceOf(Back))
	assert.Equal(t, cube.FaceWest, c.FaceOf(Left))
}

func TestEjector_Targets(t *testing.T) {
	src := New(Energy)
	require.NoError(t, src.SetChannel(Energy, cube.FaceEast, Output))
	assert.Empty(t, src.Targets(Energy), "выключенный эжектор ничего не выдаёт")

	src.Ejector.Enabled = true
	assert.Equal(t, []cube.Face{cube.FaceEast}, src.Targets(Energy))

	dst := New(Energy)
	assert.False(t, src.Ejector.Accepts(dst, Energy, cube.FaceEast))
	require.NoError(t, dst.SetChannel(Energy, cube.FaceWest, Input))
	assert.True(t, src.Ejector.Accepts(dst, Energy, cube.FaceEast))

	assert.True(t, src.Ejector.Accepts(nil, Energy, cube.FaceEast))
	src.Ejector.StrictInput = true
	assert.False(t, src.Ejector.Accepts(nil, Energy, cube.FaceEast))
}

func TestClone_IsIndependent(t *testing.T) {
	c := New(Fluid)
	require.NoError(t, c.Fill(Fluid, Input))
	cp := c.Clone()
	require.NoError(t, cp.SetSide(Fluid, Top, Output))
	assert.Equal(t, Input, c.SideChannel(Fluid, Top))
}
