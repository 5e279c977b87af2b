package block

import (
	"errors"
	"strings"

	"github.com/annel0/voxelforge/internal/security"
	"github.com/annel0/voxelforge/internal/sideconfig"
	"github.com/annel0/voxelforge/internal/slot"
	"github.com/df-mc/dragonfly/server/block/cube"
)

// Cell - ячейка решётки с блоком и необязательными возможностями.
// Принадлежность структуре хранит менеджер структур, а не ячейка.
type Cell struct {
	Pos cube.Pos
	ID  BlockID

	Ports    *sideconfig.Config
	Security *security.Record
	Slots    *slot.Set

	// Data - прочие сохраняемые поля поведения (прогресс, режимы).
	Data map[string]string
}

// NewCell создаёт ячейку без возможностей.
func NewCell(pos cube.Pos, id BlockID) *Cell {
	return &Cell{Pos: pos, ID: id, Data: make(map[string]string)}
}

// Facing возвращает лицевую грань или North для ячеек без настройки граней.
func (c *Cell) Facing() cube.Face {
	if c.Ports == nil {
		return cube.FaceNorth
	}
	return c.Ports.Facing()
}

// Save записывает состояние ячейки в плоскую карту. Эта же карта
// используется как данные предмета при разборке гаечным ключом.
func (c *Cell) Save() map[string]string {
	m := make(map[string]string, len(c.Data)+16)
	for k, v := range c.Data {
		m[k] = v
	}
	if c.Ports != nil {
		c.Ports.Save(m)
	}
	if c.Security != nil {
		c.Security.Save(m)
	}
	if c.Slots != nil {
		c.Slots.Save(m)
	}
	return m
}

// Load восстанавливает состояние. Возможности должны быть созданы заранее
// (Behavior.Init); ключи отсутствующих возможностей остаются в Data.
func (c *Cell) Load(m map[string]string) error {
	var errs []error
	if c.Ports != nil {
		if err := c.Ports.Load(m); err != nil {
			errs = append(errs, err)
		}
	}
	if c.Security != nil {
		if err := c.Security.Load(m); err != nil {
			errs = append(errs, err)
		}
	}
	if c.Slots != nil {
		if err := c.Slots.Load(m); err != nil {
			errs = append(errs, err)
		}
	}
	if c.Data == nil {
		c.Data = make(map[string]string)
	}
	for k, v := range m {
		if isCapabilityKey(k) {
			continue
		}
		c.Data[k] = v
	}
	return errors.Join(errs...)
}

func isCapabilityKey(k string) bool {
	switch k {
	case "facing", "owner", "security", "ejector.enabled", "ejector.strict":
		return true
	}
	for _, prefix := range []string{"orient.", "config.", "slot."} {
		if strings.HasPrefix(k, prefix) {
			return true
		}
	}
	return false
}
