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

// RotaryTag - тег ротационного конденсатора.
const RotaryTag = "rotary_condensentrator"

// ContainerSlot - слот контейнера ротационного конденсатора.
const ContainerSlot = "container"

const (
	rotaryEnergyPerTick int64 = 50
	rotaryEnergyBuffer  int64 = 20_000
	rotaryTankCapacity  int64 = 10_000
	rotaryRate          int64 = 128

	modeKey      = "mode"
	decondensing = "decondensing"
)

// RotaryBehavior - ротационный конденсатор: газ конденсируется в жидкость
// того же типа или, в обратном режиме, жидкость испаряется в газ.
type RotaryBehavior struct {
	block.Base
}

func NewRotary() *RotaryBehavior {
	return &RotaryBehavior{Base: block.Base{BlockID: block.RotaryBlockID, BlockTag: RotaryTag, Title: "Rotary Condensentrator"}}
}

func (b *RotaryBehavior) NeedsTick() bool { return true }

// Decondensing сообщает, работает ли машина в обратном режиме (жидкость → газ).
func Decondensing(cell *block.Cell) bool {
	return cell.Data[modeKey] == decondensing
}

func (b *RotaryBehavior) Init(cell *block.Cell) {
	cell.Ports = sideconfig.New(sideconfig.Item, sideconfig.Fluid, sideconfig.Gas, sideconfig.Energy)
	for _, t := range []sideconfig.Transmission{sideconfig.Item, sideconfig.Fluid, sideconfig.Gas} {
		_ = cell.Ports.Fill(t, sideconfig.Input)
		_ = cell.Ports.SetSide(t, sideconfig.Right, sideconfig.Output)
	}
	_ = cell.Ports.Fill(sideconfig.Energy, sideconfig.Input)
	cell.Security = &security.Record{}

	fluid := slot.NewTank(resource.KindFluid, rotaryTankCapacity, nil)
	cell.Slots = slot.NewSet().
		Add(GasSlot, slot.NewTank(resource.KindGas, rotaryTankCapacity, nil)).
		Add(FluidSlotName, fluid).
		Add(ContainerSlot, slot.FluidRotary(fluid, slot.AlwaysTrue, func() bool { return Decondensing(cell) })).
		Add(OutputSlot, slot.NewItemSlot(slot.DefaultMaxStack, slot.WithInsert(slot.AlwaysFalse))).
		Add(EnergySlot, slot.NewEnergyContainer(rotaryEnergyBuffer, slot.WithExtract(slot.AlwaysFalse)))
}

func (b *RotaryBehavior) slots(cell *block.Cell) (gas, fluid *slot.Basic, container *slot.FluidSlot, out, energy *slot.Basic) {
	basic := func(name string) *slot.Basic {
		s, _ := cell.Slots.Get(name)
		v, _ := s.(*slot.Basic)
		return v
	}
	gas, fluid, out, energy = basic(GasSlot), basic(FluidSlotName), basic(OutputSlot), basic(EnergySlot)
	if s, ok := cell.Slots.Get(ContainerSlot); ok {
		container, _ = s.(*slot.FluidSlot)
	}
	return
}

// Tick обслуживает контейнер и переводит до rotaryRate единиц за тик.
// Без энергии перевод стоит, контейнер обслуживается всегда.
func (b *RotaryBehavior) Tick(_ block.BlockAPI, cell *block.Cell) {
	gas, fluid, container, out, energy := b.slots(cell)
	if gas == nil || fluid == nil || container == nil || out == nil || energy == nil {
		return
	}

	from, to := gas, fluid
	if Decondensing(cell) {
		from, to = fluid, gas
		container.FillTankFromContainer()
		moveFinished(container, out, containerEmpty)
	} else {
		container.DrainTankToContainer(fluid)
		moveFinished(container, out, containerFull)
	}

	if from.IsEmpty() || energy.Take(rotaryEnergyPerTick, slot.Simulate).Amount < rotaryEnergyPerTick {
		return
	}
	n := min(rotaryRate, from.Amount())
	n = to.Fill(resource.Of(to.Kind(), from.Stack().Type, n), slot.Simulate)
	if n <= 0 {
		return
	}
	energy.Take(rotaryEnergyPerTick, slot.Execute)
	moved := from.Take(n, slot.Execute)
	to.Fill(resource.Of(to.Kind(), moved.Type, moved.Amount), slot.Execute)
}

// SignalLevel - заполненность бака, в который идёт перевод.
func (b *RotaryBehavior) SignalLevel(_ block.BlockAPI, cell *block.Cell) int {
	gas, fluid, _, _, _ := b.slots(cell)
	target := fluid
	if Decondensing(cell) {
		target = gas
	}
	if target == nil {
		return 0
	}
	return signal.FromFill(target.Amount(), target.Capacity())
}

func (b *RotaryBehavior) Interact(api block.BlockAPI, cell *block.Cell, in block.Interaction) block.InteractionResult {
	switch in.Kind {
	case block.Open:
		gas, fluid, container, out, energy := b.slots(cell)
		return block.InteractionResult{
			Success: true,
			Message: fmt.Sprintf("%s (%s): газ %s, жидкость %s, контейнер %s, выход %s, энергия %d",
				b.Title, rotaryMode(cell), gas.Stack(), fluid.Stack(), container.Stack(), out.Stack(), energy.Amount()),
		}
	case block.Reverse:
		if in.Enabled {
			cell.Data[modeKey] = decondensing
		} else {
			delete(cell.Data, modeKey)
		}
		api.MarkChanged(cell.Pos)
		return block.InteractionResult{Success: true, Message: "Режим: " + rotaryMode(cell)}
	}
	return b.Base.Interact(api, cell, in)
}

func rotaryMode(cell *block.Cell) string {
	if Decondensing(cell) {
		return decondensing
	}
	return "condensing"
}
