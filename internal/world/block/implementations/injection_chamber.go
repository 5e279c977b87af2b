package implementations

import (
	"fmt"
	"strconv"

	"github.com/annel0/voxelforge/internal/recipe"
	"github.com/annel0/voxelforge/internal/resource"
	"github.com/annel0/voxelforge/internal/security"
	"github.com/annel0/voxelforge/internal/sideconfig"
	"github.com/annel0/voxelforge/internal/signal"
	"github.com/annel0/voxelforge/internal/slot"
	"github.com/annel0/voxelforge/internal/world/block"
)

// Имена слотов камеры инъекции.
const (
	InputSlot  = "input"
	GasSlot    = "gas"
	OutputSlot = "output"
)

const (
	injectionEnergyPerTick int64 = 50
	injectionEnergyBuffer  int64 = 24_000
	injectionGasCapacity   int64 = 10_000

	progressKey = "progress"
	recipeKey   = "recipe"
)

// InjectionChamberBehavior - камера химической инъекции: предмет и газ
// превращаются в предмет по рецепту за фиксированное число тиков.
type InjectionChamberBehavior struct {
	block.Base
	recipes *recipe.Registry
}

// NewInjectionChamber создаёт камеру с заданным реестром рецептов.
func NewInjectionChamber(recipes *recipe.Registry) *InjectionChamberBehavior {
	return &InjectionChamberBehavior{
		Base:    block.Base{BlockID: block.InjectionChamberBlockID, BlockTag: "chemical_injection_chamber", Title: "Chemical Injection Chamber"},
		recipes: recipes,
	}
}

func (b *InjectionChamberBehavior) NeedsTick() bool { return true }

func (b *InjectionChamberBehavior) Init(cell *block.Cell) {
	cell.Ports = sideconfig.New(sideconfig.Item, sideconfig.Gas, sideconfig.Energy)
	_ = cell.Ports.Fill(sideconfig.Item, sideconfig.Input)
	_ = cell.Ports.SetSide(sideconfig.Item, sideconfig.Right, sideconfig.Output)
	_ = cell.Ports.Fill(sideconfig.Gas, sideconfig.Input)
	_ = cell.Ports.Fill(sideconfig.Energy, sideconfig.Input)
	cell.Security = &security.Record{}

	cell.Slots = slot.NewSet().
		Add(InputSlot, slot.NewItemSlot(slot.DefaultMaxStack,
			slot.WithValidator(func(s resource.Stack) bool { return b.recipes.ValidItem(s.Type) }),
			slot.WithExtract(slot.AlwaysFalse))).
		Add(GasSlot, slot.NewTank(resource.KindGas, injectionGasCapacity, b.recipes.ValidGas,
			slot.WithExtract(slot.AlwaysFalse))).
		Add(OutputSlot, slot.NewItemSlot(slot.DefaultMaxStack, slot.WithInsert(slot.AlwaysFalse))).
		Add(EnergySlot, slot.NewEnergyContainer(injectionEnergyBuffer, slot.WithExtract(slot.AlwaysFalse)))
}

// Progress возвращает число отработанных тиков текущей операции.
func Progress(cell *block.Cell) int {
	n, _ := strconv.Atoi(cell.Data[progressKey])
	return n
}

func setProgress(cell *block.Cell, n int, rec *recipe.Injecting) {
	if n == 0 || rec == nil {
		delete(cell.Data, progressKey)
		delete(cell.Data, recipeKey)
		return
	}
	cell.Data[progressKey] = strconv.Itoa(n)
	cell.Data[recipeKey] = rec.ID
}

func (b *InjectionChamberBehavior) slots(cell *block.Cell) (in, gas, out, energy slot.Slot) {
	in, _ = cell.Slots.Get(InputSlot)
	gas, _ = cell.Slots.Get(GasSlot)
	out, _ = cell.Slots.Get(OutputSlot)
	energy, _ = cell.Slots.Get(EnergySlot)
	return
}

// Tick продвигает операцию. Без подходящего рецепта или при полном выходе
// прогресс сбрасывается; без энергии операция стоит на месте.
func (b *InjectionChamberBehavior) Tick(api block.BlockAPI, cell *block.Cell) {
	in, gas, out, energy := b.slots(cell)
	if in == nil || gas == nil || out == nil || energy == nil {
		return
	}

	rec, ok := b.recipes.Find(in.Stack(), gas.Stack())
	if !ok || gas.Stack().Amount < rec.Gas.Amount || out.Space(rec.OutputStack()) < rec.Output.Count {
		if Progress(cell) != 0 {
			setProgress(cell, 0, nil)
		}
		return
	}
	if id := cell.Data[recipeKey]; id != "" && id != rec.ID {
		setProgress(cell, 0, nil)
	}

	if energy.Take(injectionEnergyPerTick, slot.Simulate).Amount < injectionEnergyPerTick {
		return
	}
	energy.Take(injectionEnergyPerTick, slot.Execute)

	progress := Progress(cell) + 1
	if progress < rec.Ticks {
		setProgress(cell, progress, rec)
		return
	}

	in.Take(rec.Input.Count, slot.Execute)
	gas.Take(rec.Gas.Amount, slot.Execute)
	if basic, ok := out.(*slot.Basic); ok {
		_ = basic.InsertInternal(rec.OutputStack(), slot.Execute)
	}
	setProgress(cell, 0, nil)
}

// SignalLevel - заполненность выходного слота.
func (b *InjectionChamberBehavior) SignalLevel(_ block.BlockAPI, cell *block.Cell) int {
	out, ok := cell.Slots.Get(OutputSlot)
	if !ok {
		return 0
	}
	return signal.FromFill(out.Stack().Amount, out.Capacity())
}

func (b *InjectionChamberBehavior) Interact(api block.BlockAPI, cell *block.Cell, in block.Interaction) block.InteractionResult {
	if in.Kind == block.Open {
		input, gas, out, energy := b.slots(cell)
		return block.InteractionResult{
			Success: true,
			Message: fmt.Sprintf("%s: вход %s, газ %s, выход %s, энергия %d, прогресс %d",
				b.Title, input.Stack(), gas.Stack(), out.Stack(), energy.Stack().Amount, Progress(cell)),
		}
	}
	return b.Base.Interact(api, cell, in)
}
