// Package sideconfig хранит настройку граней ячейки: какой режим
// (вход, выход, отключено) имеет каждая грань для каждого вида передачи.
//
// Режимы привязаны к относительным сторонам (перед, зад, лево, право,
// верх, низ). Таблица ориентации переводит сторону в абсолютную грань,
// поэтому поворот блока переставляет только метки граней и никогда
// не трогает сами назначения.
package sideconfig

import (
	"errors"
	"fmt"

	"github.com/annel0/voxelforge/internal/lattice"
	"github.com/df-mc/dragonfly/server/block/cube"
)

// ErrUnsupported - ячейка не поддерживает этот вид передачи.
var ErrUnsupported = errors.New("sideconfig: transmission not supported")

// Side - сторона блока относительно его лицевой грани.
type Side uint8

const (
	Front Side = iota
	Back
	Left
	Right
	Top
	Bottom
)

// Sides перечисляет стороны в порядке сохранения.
var Sides = [6]Side{Front, Back, Left, Right, Top, Bottom}

var sideNames = [6]string{"front", "back", "left", "right", "top", "bottom"}

func (s Side) String() string {
	if int(s) < len(sideNames) {
		return sideNames[s]
	}
	return fmt.Sprintf("side(%d)", uint8(s))
}

// ParseSide разбирает имя стороны.
func ParseSide(s string) (Side, error) {
	for i, n := range sideNames {
		if n == s {
			return Side(i), nil
		}
	}
	return 0, fmt.Errorf("unknown side %q", s)
}

// Ориентация блока, смотрящего на север.
var northOrientation = [6]cube.Face{
	Front:  cube.FaceNorth,
	Back:   cube.FaceSouth,
	Left:   cube.FaceWest,
	Right:  cube.FaceEast,
	Top:    cube.FaceUp,
	Bottom: cube.FaceDown,
}

// Config - настройка граней одной ячейки.
type Config struct {
	orient    [6]cube.Face
	channels  map[Transmission]*[6]Channel
	supported []Transmission

	Ejector Ejector
}

// New создаёт настройку для указанных видов передачи. Ячейка смотрит
// на север, все стороны отключены.
func New(transmissions ...Transmission) *Config {
	c := &Config{
		orient:   northOrientation,
		channels: make(map[Transmission]*[6]Channel, len(transmissions)),
	}
	for _, t := range transmissions {
		if _, ok := c.channels[t]; ok {
			continue
		}
		c.channels[t] = &[6]Channel{}
		c.supported = append(c.supported, t)
	}
	return c
}

// Supports сообщает, поддерживает ли ячейка вид передачи.
func (c *Config) Supports(t Transmission) bool {
	_, ok := c.channels[t]
	return ok
}

// Supported возвращает поддерживаемые виды передачи.
func (c *Config) Supported() []Transmission {
	out := make([]Transmission, len(c.supported))
	copy(out, c.supported)
	return out
}

// Facing возвращает абсолютную грань, в которую смотрит перед блока.
func (c *Config) Facing() cube.Face { return c.orient[Front] }

// Orientation возвращает таблицу сторона → грань.
func (c *Config) Orientation() [6]cube.Face { return c.orient }

// FaceOf возвращает абсолютную грань стороны.
func (c *Config) FaceOf(s Side) cube.Face { return c.orient[s] }

// SideOf возвращает сторону, которая сейчас смотрит в грань face.
func (c *Config) SideOf(face cube.Face) (Side, bool) {
	for s, f := range c.orient {
		if f == face {
			return Side(s), true
		}
	}
	return 0, false
}

// Channel возвращает режим грани. Неподдерживаемая передача всегда Disabled.
func (c *Config) Channel(t Transmission, face cube.Face) Channel {
	ch, ok := c.channels[t]
	if !ok {
		return Disabled
	}
	s, ok := c.SideOf(face)
	if !ok {
		return Disabled
	}
	return ch[s]
}

// SetChannel назначает режим абсолютной грани.
func (c *Config) SetChannel(t Transmission, face cube.Face, mode Channel) error {
	s, ok := c.SideOf(face)
	if !ok {
		return fmt.Errorf("sideconfig: bad face %d", face)
	}
	return c.SetSide(t, s, mode)
}

// SetSide назначает режим относительной стороны.
func (c *Config) SetSide(t Transmission, s Side, mode Channel) error {
	ch, ok := c.channels[t]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupported, t)
	}
	ch[s] = mode
	return nil
}

// SideChannel возвращает режим относительной стороны.
func (c *Config) SideChannel(t Transmission, s Side) Channel {
	ch, ok := c.channels[t]
	if !ok {
		return Disabled
	}
	return ch[s]
}

// Fill назначает всем сторонам один режим.
func (c *Config) Fill(t Transmission, mode Channel) error {
	ch, ok := c.channels[t]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupported, t)
	}
	for i := range ch {
		ch[i] = mode
	}
	return nil
}

// FacesWith возвращает абсолютные грани с режимом mode в порядке lattice.Faces.
func (c *Config) FacesWith(t Transmission, mode Channel) []cube.Face {
	if !c.Supports(t) {
		return nil
	}
	var out []cube.Face
	for _, f := range lattice.Faces {
		if c.Channel(t, f) == mode {
			out = append(out, f)
		}
	}
	return out
}

// Rotate поворачивает блок на 90° вокруг оси. Поворот применяется к каждой
// записи таблицы ориентации; режимы сторон не меняются.
func (c *Config) Rotate(axis cube.Axis, inverse bool) {
	for i, f := range c.orient {
		c.orient[i] = lattice.RotateAround(f, axis, inverse)
	}
}

// SetFacing перестраивает ориентацию так, чтобы перед смотрел в face.
// Для горизонтальных граней верх остаётся вверху.
func (c *Config) SetFacing(face cube.Face) {
	c.orient = canonicalOrientation(face)
}

func canonicalOrientation(face cube.Face) [6]cube.Face {
	o := northOrientation
	rotate := func(axis cube.Axis, inverse bool) {
		for i, f := range o {
			o[i] = lattice.RotateAround(f, axis, inverse)
		}
	}
	switch face {
	case cube.FaceEast:
		rotate(cube.Y, false)
	case cube.FaceSouth:
		rotate(cube.Y, false)
		rotate(cube.Y, false)
	case cube.FaceWest:
		rotate(cube.Y, true)
	case cube.FaceUp:
		rotate(cube.X, true)
	case cube.FaceDown:
		rotate(cube.X, false)
	}
	return o
}

// Clone возвращает независимую копию.
func (c *Config) Clone() *Config {
	out := New(c.supported...)
	out.orient = c.orient
	for t, ch := range c.channels {
		*out.channels[t] = *ch
	}
	out.Ejector = c.Ejector
	return out
}
