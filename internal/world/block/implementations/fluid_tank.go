package implementations

import (
	"fmt"

	"github.com/annel0/voxelforge/internal/resource"
	"github.com/annel0/voxelforge/internal/security"
	"github.com/annel0/voxelforge/internal/sideconfig"
	"github.com/annel0/voxelforge/internal/signal"
	"github.com/annel0/voxelforge/internal/slot"
	"github.com/annel0/voxelforge/internal/world/block"
)

// FluidTankTag - тег одиночного бака жидкости.
const FluidTankTag = "fluid_tank"

// Имена слотов бака жидкости.
const (
	FluidSlotName = "fluid"
	FillSlot      = "fill"
	DrainSlot     = "drain"
)

const fluidTankCapacity int64 = 32_000

// FluidTankBehavior - одиночный бак жидкости. Полные контейнеры сливаются
// в бак, пустые наполняются из него; отработанный контейнер уходит в выход.
type FluidTankBehavior struct {
	block.Base
}

func NewFluidTank() *FluidTankBehavior {
	return &FluidTankBehavior{Base: block.Base{BlockID: block.FluidTankBlockID, BlockTag: FluidTankTag, Title: "Fluid Tank"}}
}

func (b *FluidTankBehavior) NeedsTick() bool { return true }

func (b *FluidTankBehavior) Init(cell *block.Cell) {
	cell.Ports = sideconfig.New(sideconfig.Fluid, sideconfig.Item)
	_ = cell.Ports.Fill(sideconfig.Fluid, sideconfig.Input)
	_ = cell.Ports.SetSide(sideconfig.Fluid, sideconfig.Bottom, sideconfig.Output)
	_ = cell.Ports.Fill(sideconfig.Item, sideconfig.Input)
	_ = cell.Ports.SetSide(sideconfig.Item, sideconfig.Bottom, sideconfig.Output)
	cell.Security = &security.Record{}

	tank := slot.NewTank(resource.KindFluid, fluidTankCapacity, nil)
	cell.Slots = slot.NewSet().
		Add(FluidSlotName, tank).
		Add(FillSlot, slot.FluidFill(tank, slot.AlwaysTrue)).
		Add(DrainSlot, slot.FluidDrain(tank)).
		Add(OutputSlot, slot.NewItemSlot(slot.DefaultMaxStack, slot.WithInsert(slot.AlwaysFalse)))
}

func (b *FluidTankBehavior) slots(cell *block.Cell) (tank *slot.Basic, fill, drain *slot.FluidSlot, out *slot.Basic) {
	if s, ok := cell.Slots.Get(FluidSlotName); ok {
		tank, _ = s.(*slot.Basic)
	}
	if s, ok := cell.Slots.Get(FillSlot); ok {
		fill, _ = s.(*slot.FluidSlot)
	}
	if s, ok := cell.Slots.Get(DrainSlot); ok {
		drain, _ = s.(*slot.FluidSlot)
	}
	if s, ok := cell.Slots.Get(OutputSlot); ok {
		out, _ = s.(*slot.Basic)
	}
	return
}

// Tick переливает жидкость между контейнерами и баком.
func (b *FluidTankBehavior) Tick(_ block.BlockAPI, cell *block.Cell) {
	tank, fill, drain, out := b.slots(cell)
	if tank == nil || fill == nil || drain == nil || out == nil {
		return
	}
	fill.FillTankFromContainer()
	moveFinished(fill, out, containerEmpty)
	drain.DrainTankToContainer(tank)
	moveFinished(drain, out, containerFull)
}

// SignalLevel - заполненность бака.
func (b *FluidTankBehavior) SignalLevel(_ block.BlockAPI, cell *block.Cell) int {
	tank, _, _, _ := b.slots(cell)
	if tank == nil {
		return 0
	}
	return signal.FromFill(tank.Amount(), tank.Capacity())
}

func (b *FluidTankBehavior) Interact(api block.BlockAPI, cell *block.Cell, in block.Interaction) block.InteractionResult {
	if in.Kind == block.Open {
		tank, fill, drain, out := b.slots(cell)
		return block.InteractionResult{
			Success: true,
			Message: fmt.Sprintf("%s: %s / %d, налив %s, слив %s, выход %s",
				b.Title, tank.Stack(), tank.Capacity(), fill.Stack(), drain.Stack(), out.Stack()),
		}
	}
	return b.Base.Interact(api, cell, in)
}

func containerEmpty(item resource.Stack) bool {
	fluid, _ := slot.ContainedFluid(item)
	return fluid.IsEmpty()
}

func containerFull(item resource.Stack) bool {
	fluid, capacity := slot.ContainedFluid(item)
	return capacity > 0 && fluid.Amount >= capacity
}

// moveFinished перекладывает контейнер из слота перелива в выход, когда
// done(контейнер) истинно и в выходе есть место.
func moveFinished(from *slot.FluidSlot, out *slot.Basic, done func(resource.Stack) bool) bool {
	item := from.Stack()
	if item.IsEmpty() || !done(item) || out.Space(item) < item.Amount {
		return false
	}
	if err := out.InsertInternal(item, slot.Execute); err != nil {
		return false
	}
	from.Take(item.Amount, slot.Execute)
	return true
}
