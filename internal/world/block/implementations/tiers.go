package implementations

import "github.com/annel0/voxelforge/internal/slot"

// Tier - уровень блока.
type Tier uint8

const (
	Basic Tier = iota
	Advanced
	Elite
	Ultimate
	Creative
)

var tierNames = [...]string{"basic", "advanced", "elite", "ultimate", "creative"}

func (t Tier) String() string {
	if int(t) < len(tierNames) {
		return tierNames[t]
	}
	return "unknown"
}

// EnergyCubeTier - ёмкость и выдача за тик энергетического куба.
type EnergyCubeTier struct {
	Tier      Tier
	MaxEnergy int64
	Output    int64
}

// EnergyCubeTiers перечисляет уровни энергетических кубов.
var EnergyCubeTiers = [...]EnergyCubeTier{
	{Basic, 2_000_000, 800},
	{Advanced, 8_000_000, 3_200},
	{Elite, 32_000_000, 12_800},
	{Ultimate, 128_000_000, 51_200},
	{Creative, slot.InfiniteCapacity, slot.InfiniteCapacity},
}

// InductionCellCapacity - вклад ячейки индукции в ёмкость матрицы.
var InductionCellCapacity = [...]int64{
	Basic:    8_000_000_000,
	Advanced: 64_000_000_000,
	Elite:    512_000_000_000,
	Ultimate: 4_000_000_000_000,
}

// InductionProviderOutput - вклад провайдера индукции в выдачу матрицы за тик.
var InductionProviderOutput = [...]int64{
	Basic:    64_000,
	Advanced: 512_000,
	Elite:    4_096_000,
	Ultimate: 32_768_000,
}
