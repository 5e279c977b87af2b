package implementations

import (
	"github.com/annel0/voxelforge/internal/sideconfig"
	"github.com/annel0/voxelforge/internal/signal"
	"github.com/annel0/voxelforge/internal/slot"
	"github.com/annel0/voxelforge/internal/world/block"
	"github.com/df-mc/dragonfly/server/block/cube"
)

// ValveBehavior - порт структуры: через него ресурсы попадают в общий бак
// и выходят из него. Пока структура не сформирована, хранилища нет.
type ValveBehavior struct {
	block.Base
	transmission sideconfig.Transmission
	// yawOnly - гаечный ключ поворачивает только вокруг вертикали.
	yawOnly bool
	// toggleMode - гаечный ключ переключает порт между входом и выходом.
	toggleMode bool
}

// NewTankValve создаёт клапан динамического бака.
func NewTankValve() *ValveBehavior {
	return &ValveBehavior{
		Base:         block.Base{BlockID: block.TankValveBlockID, BlockTag: "dynamic_valve", Title: "Dynamic Valve"},
		transmission: sideconfig.Fluid,
	}
}

// NewTurbineValve создаёт клапан турбины. Поворачивается только вокруг Y.
func NewTurbineValve() *ValveBehavior {
	return &ValveBehavior{
		Base:         block.Base{BlockID: block.TurbineValveBlockID, BlockTag: "turbine_valve", Title: "Turbine Valve"},
		transmission: sideconfig.Fluid,
		yawOnly:      true,
	}
}

// NewInductionPort создаёт порт матрицы индукции.
func NewInductionPort() *ValveBehavior {
	return &ValveBehavior{
		Base:         block.Base{BlockID: block.InductionPortBlockID, BlockTag: "induction_port", Title: "Induction Port"},
		transmission: sideconfig.Energy,
		toggleMode:   true,
	}
}

func (b *ValveBehavior) Init(cell *block.Cell) {
	cell.Ports = sideconfig.New(b.transmission)
	_ = cell.Ports.Fill(b.transmission, sideconfig.Input)
}

// Storage возвращает общий бак структуры подходящего вида.
func (b *ValveBehavior) Storage(api block.BlockAPI, cell *block.Cell, t sideconfig.Transmission) slot.Slot {
	if t != b.transmission {
		return nil
	}
	s, ok := api.StructureAt(cell.Pos)
	if !ok || s.Tank == nil || s.Tank.Kind() != t.Kind() {
		return nil
	}
	return s.Tank
}

// EjectRate ограничивает выдачу порта пропускной способностью структуры.
func (b *ValveBehavior) EjectRate(api block.BlockAPI, cell *block.Cell, _ sideconfig.Transmission) int64 {
	s, ok := api.StructureAt(cell.Pos)
	if !ok {
		return 0
	}
	return s.Throughput
}

// SignalLevel - заполненность общего бака; 0, пока структура не сформирована.
func (b *ValveBehavior) SignalLevel(api block.BlockAPI, cell *block.Cell) int {
	s, ok := api.StructureAt(cell.Pos)
	if !ok || s.Tank == nil {
		return 0
	}
	return signal.FromFill(s.Tank.Amount(), s.Tank.Capacity())
}

func (b *ValveBehavior) Interact(api block.BlockAPI, cell *block.Cell, in block.Interaction) block.InteractionResult {
	switch in.Kind {
	case block.Open:
		return openStructure(api, cell)
	case block.Wrench:
		if b.toggleMode {
			mode := sideconfig.Output
			if cell.Ports.Channel(b.transmission, cube.FaceNorth) == sideconfig.Output {
				mode = sideconfig.Input
			}
			_ = cell.Ports.Fill(b.transmission, mode)
			cell.Ports.Ejector.Enabled = mode == sideconfig.Output
			api.MarkChanged(cell.Pos)
			return block.InteractionResult{Success: true, Message: "Режим порта: " + mode.String()}
		}
		if b.yawOnly {
			return block.RotateAround(api, cell, cube.Y)
		}
	}
	return b.Base.Interact(api, cell, in)
}
