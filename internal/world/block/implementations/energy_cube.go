package implementations

import (
	"fmt"

	"github.com/annel0/voxelforge/internal/security"
	"github.com/annel0/voxelforge/internal/sideconfig"
	"github.com/annel0/voxelforge/internal/signal"
	"github.com/annel0/voxelforge/internal/slot"
	"github.com/annel0/voxelforge/internal/world/block"
)

// EnergySlot - имя слота энергии в наборе ячейки.
const EnergySlot = "energy"

// EnergyCubeBehavior - накопитель энергии одного уровня.
// Принимает энергию всеми гранями, кроме лицевой, и отдаёт через лицевую.
type EnergyCubeBehavior struct {
	block.Base
	tier EnergyCubeTier
}

// NewEnergyCube создаёт энергетический куб уровня t.
func NewEnergyCube(t Tier) *EnergyCubeBehavior {
	return &EnergyCubeBehavior{
		Base: block.Base{
			BlockID:  block.EnergyCubeBlockID + block.BlockID(t),
			BlockTag: t.String() + "_energy_cube",
			Title:    fmt.Sprintf("Energy Cube (%s)", t),
		},
		tier: EnergyCubeTiers[t],
	}
}

// Tier возвращает параметры уровня куба.
func (b *EnergyCubeBehavior) Tier() EnergyCubeTier { return b.tier }

func (b *EnergyCubeBehavior) Init(cell *block.Cell) {
	cell.Ports = sideconfig.New(sideconfig.Energy)
	_ = cell.Ports.Fill(sideconfig.Energy, sideconfig.Input)
	_ = cell.Ports.SetSide(sideconfig.Energy, sideconfig.Front, sideconfig.Output)
	cell.Ports.Ejector.Enabled = true
	cell.Security = &security.Record{}

	var container *slot.Basic
	if b.tier.Tier == Creative {
		container = slot.NewCreativeEnergy()
	} else {
		container = slot.NewEnergyContainer(b.tier.MaxEnergy)
	}
	cell.Slots = slot.NewSet().Add(EnergySlot, container)
}

// OnPlace: заряженный креативный куб отдаёт энергию всеми гранями,
// пустой принимает всеми.
func (b *EnergyCubeBehavior) OnPlace(api block.BlockAPI, cell *block.Cell) {
	if b.tier.Tier != Creative {
		return
	}
	mode := sideconfig.Input
	if energy(cell) > 0 {
		mode = sideconfig.Output
	}
	_ = cell.Ports.Fill(sideconfig.Energy, mode)
}

// EjectRate - выдача за тик по уровню куба.
func (b *EnergyCubeBehavior) EjectRate(_ block.BlockAPI, _ *block.Cell, t sideconfig.Transmission) int64 {
	if t != sideconfig.Energy {
		return 0
	}
	return b.tier.Output
}

func (b *EnergyCubeBehavior) SignalLevel(_ block.BlockAPI, cell *block.Cell) int {
	sl, ok := cell.Slots.Get(EnergySlot)
	if !ok {
		return 0
	}
	return signal.FromFill(sl.Stack().Amount, sl.Capacity())
}

func (b *EnergyCubeBehavior) Interact(api block.BlockAPI, cell *block.Cell, in block.Interaction) block.InteractionResult {
	if in.Kind == block.Open {
		return block.InteractionResult{
			Success: true,
			Message: fmt.Sprintf("%s: %d / %d", b.Title, energy(cell), b.tier.MaxEnergy),
		}
	}
	return b.Base.Interact(api, cell, in)
}

func energy(cell *block.Cell) int64 {
	sl, ok := cell.Slots.Get(EnergySlot)
	if !ok {
		return 0
	}
	return sl.Stack().Amount
}
