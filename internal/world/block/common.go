package block

import (
	"fmt"

	"github.com/annel0/voxelforge/internal/lattice"
	"github.com/df-mc/dragonfly/server/block/cube"
)

// HandleCommon обрабатывает действия, общие для всех машин: поворот,
// разборку, настройку граней, режим доступа и автовыдачу.
// Проверку доступа выполняет мир до вызова поведения.
func HandleCommon(api BlockAPI, cell *Cell, in Interaction) (InteractionResult, bool) {
	switch in.Kind {
	case Wrench:
		if cell.Ports == nil {
			return InteractionResult{Message: "Блок нельзя повернуть"}, true
		}
		return RotateAround(api, cell, in.Face.Axis()), true

	case Dismantle:
		return InteractionResult{Success: true, Message: "Блок разобран", Drop: cell.Save()}, true

	case Configure:
		if cell.Ports == nil {
			return InteractionResult{Message: "У блока нет настраиваемых граней"}, true
		}
		if err := cell.Ports.SetChannel(in.Transmission, in.Face, in.Channel); err != nil {
			return InteractionResult{Message: err.Error()}, true
		}
		api.MarkChanged(cell.Pos)
		return InteractionResult{
			Success: true,
			Message: fmt.Sprintf("%s %s: %s", in.Transmission, lattice.FaceName(in.Face), in.Channel),
		}, true

	case ToggleEjector:
		if cell.Ports == nil {
			return InteractionResult{Message: "У блока нет автовыдачи"}, true
		}
		cell.Ports.Ejector.Enabled = in.Enabled
		return InteractionResult{Success: true, Message: fmt.Sprintf("Автовыдача: %v", in.Enabled)}, true

	case SetMode:
		if cell.Security == nil {
			return InteractionResult{Message: "У блока нет защиты"}, true
		}
		if cell.Security.IsOwned() && !cell.Security.IsOwner(in.Actor) && !api.Gate().Bypasses(api.Context(), in.Actor) {
			return Denied(), true
		}
		cell.Security.Mode = in.Mode
		return InteractionResult{Success: true, Message: "Режим доступа: " + in.Mode.String()}, true
	}
	return InteractionResult{}, false
}

// RotateAround поворачивает блок на 90° вокруг оси.
func RotateAround(api BlockAPI, cell *Cell, axis cube.Axis) InteractionResult {
	cell.Ports.Rotate(axis, false)
	api.MarkChanged(cell.Pos)
	return InteractionResult{Success: true, Message: "Блок повёрнут: " + lattice.FaceName(cell.Ports.Facing())}
}
