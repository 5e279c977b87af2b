package sideconfig

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/annel0/voxelforge/internal/lattice"
	"github.com/df-mc/dragonfly/server/block/cube"
)

// Ключи плоской карты.
const (
	keyFacing        = "facing"
	keyOrientPrefix  = "orient."
	keyConfigPrefix  = "config."
	keyEjectorOn     = "ejector.enabled"
	keyEjectorStrict = "ejector.strict"
)

// Save записывает настройку в плоскую карту.
func (c *Config) Save(m map[string]string) {
	m[keyFacing] = lattice.FaceName(c.Facing())
	for _, s := range Sides {
		m[keyOrientPrefix+s.String()] = lattice.FaceName(c.orient[s])
	}
	for _, t := range c.supported {
		ch := c.channels[t]
		for _, s := range Sides {
			m[keyConfigPrefix+t.String()+"."+s.String()] = ch[s].String()
		}
	}
	m[keyEjectorOn] = strconv.FormatBool(c.Ejector.Enabled)
	m[keyEjectorStrict] = strconv.FormatBool(c.Ejector.StrictInput)
}

// Load восстанавливает настройку из плоской карты. Отсутствующие ключи
// оставляют текущие значения; записи неподдерживаемых передач пропускаются.
func (c *Config) Load(m map[string]string) error {
	var errs []error

	if v, ok := m[keyFacing]; ok {
		f, err := lattice.ParseFace(v)
		if err != nil {
			errs = append(errs, err)
		} else {
			c.SetFacing(f)
		}
	}

	orient := c.orient
	seen := make(map[cube.Face]bool, 6)
	complete := true
	for _, s := range Sides {
		v, ok := m[keyOrientPrefix+s.String()]
		if !ok {
			complete = false
			break
		}
		f, err := lattice.ParseFace(v)
		if err != nil {
			errs = append(errs, err)
			complete = false
			break
		}
		orient[s] = f
		seen[f] = true
	}
	if complete {
		if validOrientation(orient, seen) {
			c.orient = orient
		} else {
			errs = append(errs, fmt.Errorf("sideconfig: orientation is not a rotation of faces"))
		}
	}

	for _, t := range c.supported {
		ch := c.channels[t]
		for _, s := range Sides {
			v, ok := m[keyConfigPrefix+t.String()+"."+s.String()]
			if !ok {
				continue
			}
			mode, err := ParseChannel(v)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			ch[s] = mode
		}
	}

	if v, ok := m[keyEjectorOn]; ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", keyEjectorOn, err))
		}
		c.Ejector.Enabled = b
	}
	if v, ok := m[keyEjectorStrict]; ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", keyEjectorStrict, err))
		}
		c.Ejector.StrictInput = b
	}
	return errors.Join(errs...)
}

// opposites - пары противоположных сторон.
var opposites = [...][2]Side{{Front, Back}, {Left, Right}, {Top, Bottom}}

// validOrientation проверяет, что таблица - перестановка граней, в которой
// противоположные стороны смотрят в противоположные грани.
func validOrientation(orient [6]cube.Face, seen map[cube.Face]bool) bool {
	for _, f := range lattice.Faces {
		if !seen[f] {
			return false
		}
	}
	for _, p := range opposites {
		if orient[p[1]] != orient[p[0]].Opposite() {
			return false
		}
	}
	return true
}
